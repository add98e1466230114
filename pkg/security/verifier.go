// Package security implements digest verification for the hash schemes
// a host may submit pre-hashed credentials under.
package security

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// Scheme identifiers accepted by the verifier.
const (
	SchemeMD5         = "md5"
	SchemeSCRAMSHA256 = "scram-sha-256"
	SchemeBcrypt      = "bcrypt"
)

// ErrUnknownScheme is returned when the submitted scheme has no
// registered verification routine.
var ErrUnknownScheme = errors.New("unknown hash scheme")

const (
	md5Prefix   = "md5"
	scramPrefix = "SCRAM-SHA-256$"
	scramKeyLen = sha256.Size
)

// Verifier checks whether a plaintext candidate hashes to a given
// digest. The username parameter supplies the salt material schemes
// like postgres-style md5 require.
type Verifier struct{}

// NewVerifier returns a Verifier supporting md5, scram-sha-256 and
// bcrypt digests.
func NewVerifier() *Verifier {
	return &Verifier{}
}

// Verify reports whether candidate, hashed under scheme for the given
// username, equals digest. An unknown scheme or a malformed digest
// yields an error, never a match.
func (v *Verifier) Verify(scheme, digest, username, candidate string) (bool, error) {
	switch scheme {
	case SchemeMD5:
		return verifyMD5(digest, username, candidate), nil
	case SchemeSCRAMSHA256:
		return verifySCRAMSHA256(digest, candidate)
	case SchemeBcrypt:
		return verifyBcrypt(digest, candidate)
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownScheme, scheme)
	}
}

// verifyMD5 checks a postgres-style md5 digest:
// "md5" + hex(md5(password + username)).
func verifyMD5(digest, username, candidate string) bool {
	sum := md5.Sum([]byte(candidate + username))
	expected := md5Prefix + hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(digest)) == 1
}

// verifySCRAMSHA256 checks a SCRAM-SHA-256 verifier of the form
// SCRAM-SHA-256$<iterations>:<salt>$<stored-key>:<server-key>, with the
// salt and keys base64-encoded. The candidate matches when its derived
// stored key equals the one in the verifier.
func verifySCRAMSHA256(digest, candidate string) (bool, error) {
	iterations, salt, storedKey, err := parseSCRAMVerifier(digest)
	if err != nil {
		return false, err
	}

	salted := pbkdf2.Key([]byte(candidate), salt, iterations, scramKeyLen, sha256.New)

	mac := hmac.New(sha256.New, salted)
	mac.Write([]byte("Client Key"))
	clientKey := mac.Sum(nil)

	derived := sha256.Sum256(clientKey)
	return hmac.Equal(derived[:], storedKey), nil
}

func parseSCRAMVerifier(digest string) (iterations int, salt, storedKey []byte, err error) {
	rest, ok := strings.CutPrefix(digest, scramPrefix)
	if !ok {
		return 0, nil, nil, errors.New("malformed scram verifier: missing prefix")
	}

	params, keys, ok := strings.Cut(rest, "$")
	if !ok {
		return 0, nil, nil, errors.New("malformed scram verifier: missing key section")
	}

	iterStr, saltB64, ok := strings.Cut(params, ":")
	if !ok {
		return 0, nil, nil, errors.New("malformed scram verifier: missing salt")
	}
	iterations, err = strconv.Atoi(iterStr)
	if err != nil || iterations < 1 {
		return 0, nil, nil, errors.New("malformed scram verifier: bad iteration count")
	}

	salt, err = base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("malformed scram verifier: %w", err)
	}

	storedB64, _, ok := strings.Cut(keys, ":")
	if !ok {
		return 0, nil, nil, errors.New("malformed scram verifier: missing server key")
	}
	storedKey, err = base64.StdEncoding.DecodeString(storedB64)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("malformed scram verifier: %w", err)
	}
	return iterations, salt, storedKey, nil
}

// EncodeMD5 produces a postgres-style md5 digest. Exposed for hosts
// that need to fabricate digests and for tests.
func EncodeMD5(username, password string) string {
	sum := md5.Sum([]byte(password + username))
	return md5Prefix + hex.EncodeToString(sum[:])
}

// EncodeSCRAMSHA256 builds a SCRAM-SHA-256 verifier string for the
// given password, salt and iteration count.
func EncodeSCRAMSHA256(password string, salt []byte, iterations int) string {
	salted := pbkdf2.Key([]byte(password), salt, iterations, scramKeyLen, sha256.New)

	clientMAC := hmac.New(sha256.New, salted)
	clientMAC.Write([]byte("Client Key"))
	storedKey := sha256.Sum256(clientMAC.Sum(nil))

	serverMAC := hmac.New(sha256.New, salted)
	serverMAC.Write([]byte("Server Key"))
	serverKey := serverMAC.Sum(nil)

	return fmt.Sprintf("%s%d:%s$%s:%s",
		scramPrefix,
		iterations,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(storedKey[:]),
		base64.StdEncoding.EncodeToString(serverKey),
	)
}

func verifyBcrypt(digest, candidate string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(candidate))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("malformed bcrypt digest: %w", err)
	}
}
