package dictionary

import (
	"context"
	_ "embed"
	"strings"
)

// Corpus source: SecLists / NCSC breached password lists, trimmed to
// the most common entries.
//
//go:embed common_passwords.txt
var embeddedCorpus string

// Embedded is a Guard backed by the corpus compiled into the binary.
// It never fails once constructed.
type Embedded struct {
	words set
}

// NewEmbedded parses the compiled-in corpus.
func NewEmbedded() (*Embedded, error) {
	words, err := newSet(strings.NewReader(embeddedCorpus))
	if err != nil {
		return nil, err
	}
	return &Embedded{words: words}, nil
}

// IsWeak reports whether secret appears in the embedded corpus.
func (e *Embedded) IsWeak(_ context.Context, secret string) (bool, error) {
	return e.words.contains(secret), nil
}
