// Package dictionary provides weak-secret corpus lookups for the
// policy engine's dictionary stage.
package dictionary

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// ErrUnavailable indicates the corpus could not be consulted. It is a
// fault of the guard, distinct from a weak/not-weak answer; the host
// decides whether it fails open or closed.
var ErrUnavailable = errors.New("weak-secret corpus unavailable")

// Guard answers whether a plaintext secret appears in a weak-secret
// corpus.
type Guard interface {
	IsWeak(ctx context.Context, secret string) (bool, error)
}

// set is a lowercased corpus with case-insensitive membership tests,
// mirroring how cracklib-style checkers treat case.
type set map[string]struct{}

func newSet(r io.Reader) (set, error) {
	s := make(set)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		s[strings.ToLower(word)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s set) contains(secret string) bool {
	_, ok := s[strings.ToLower(secret)]
	return ok
}
