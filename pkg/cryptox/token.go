package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"math"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/hkdf"
)

// DefaultTokenAlphabet drops characters that are easy to misread when an
// invite code is typed by hand (0/O, 1/l/I). 57 symbols, ~5.83 bits each.
const DefaultTokenAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const (
	// DefaultTokenLength gives ~93 bits of entropy with DefaultTokenAlphabet.
	DefaultTokenLength = 16

	// MinTokenLength is the shortest token the codec will produce.
	MinTokenLength = 12

	// MinTokenEntropyBits is the lower bound enforced on alphabet/length pairs.
	MinTokenEntropyBits = 72

	fingerprintKeyInfo = "propinvite/token-fingerprint/v1"
	fingerprintKeySize = 32
)

var (
	ErrWeakTokenConfig = errors.New("cryptox: token configuration below entropy floor")
	ErrInvalidAlphabet = errors.New("cryptox: invalid token alphabet")
	ErrMissingPepper   = errors.New("cryptox: fingerprint key material is empty")
)

// TokenCodec generates opaque invite tokens and derives their stored
// fingerprints. The fingerprint is a keyed BLAKE2b-256 digest, so a leaked
// invite table is useless without the pepper the key is derived from.
type TokenCodec struct {
	alphabet []byte
	length   int
	key      []byte
	random   io.Reader
}

// NewTokenCodec builds a codec for the given alphabet and length. The
// fingerprint key is derived from pepper with HKDF-SHA256.
func NewTokenCodec(alphabet string, length int, pepper []byte) (*TokenCodec, error) {
	if len(pepper) == 0 {
		return nil, ErrMissingPepper
	}
	if len(alphabet) < 2 || len(alphabet) > 256 {
		return nil, fmt.Errorf("%w: need 2..256 symbols, got %d", ErrInvalidAlphabet, len(alphabet))
	}

	seen := make(map[byte]struct{}, len(alphabet))
	for i := 0; i < len(alphabet); i++ {
		c := alphabet[i]
		if c < 0x21 || c > 0x7e {
			return nil, fmt.Errorf("%w: symbol %q is not printable ASCII", ErrInvalidAlphabet, c)
		}
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidAlphabet, c)
		}
		seen[c] = struct{}{}
	}

	if length < MinTokenLength {
		return nil, fmt.Errorf("%w: length %d below minimum %d", ErrWeakTokenConfig, length, MinTokenLength)
	}
	if bits := EntropyBits(len(alphabet), length); bits < MinTokenEntropyBits {
		return nil, fmt.Errorf("%w: %.1f bits, need %d", ErrWeakTokenConfig, bits, MinTokenEntropyBits)
	}

	key := make([]byte, fingerprintKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, pepper, nil, []byte(fingerprintKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("cryptox: derive fingerprint key: %w", err)
	}

	return &TokenCodec{
		alphabet: []byte(alphabet),
		length:   length,
		key:      key,
		random:   rand.Reader,
	}, nil
}

// EntropyBits reports the entropy of a uniformly random token.
func EntropyBits(alphabetSize, length int) float64 {
	return float64(length) * math.Log2(float64(alphabetSize))
}

// Length returns the number of symbols in generated tokens.
func (c *TokenCodec) Length() int { return c.length }

// IssueRaw returns a fresh random token and its fingerprint. A failing
// randomness source is returned as an error; there is no weaker fallback.
func (c *TokenCodec) IssueRaw() (raw string, fingerprint string, err error) {
	raw, err = c.generate()
	if err != nil {
		return "", "", err
	}
	return raw, c.Fingerprint(raw), nil
}

// generate uses rejection sampling so every symbol is equally likely.
func (c *TokenCodec) generate() (string, error) {
	n := len(c.alphabet)
	limit := 256 - (256 % n)

	out := make([]byte, 0, c.length)
	buf := make([]byte, c.length*2)
	for len(out) < c.length {
		if _, err := io.ReadFull(c.random, buf); err != nil {
			return "", fmt.Errorf("cryptox: read random: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, c.alphabet[int(b)%n])
			if len(out) == c.length {
				break
			}
		}
	}
	return string(out), nil
}

// Fingerprint returns the base64url keyed BLAKE2b-256 digest of raw (43 chars).
func (c *TokenCodec) Fingerprint(raw string) string {
	h, err := blake2b.New256(c.key)
	if err != nil {
		// key size is fixed at construction; blake2b only rejects keys > 64 bytes
		panic(fmt.Sprintf("cryptox: blake2b: %v", err))
	}
	_, _ = h.Write([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// WellFormed reports whether raw could have been produced by this codec.
// It inspects every symbol regardless of where the first mismatch is.
func (c *TokenCodec) WellFormed(raw string) bool {
	ok := len(raw) == c.length
	for i := 0; i < len(raw); i++ {
		found := 0
		for _, a := range c.alphabet {
			found |= subtle.ConstantTimeByteEq(raw[i], a)
		}
		ok = ok && found == 1
	}
	return ok
}

// EqualFingerprints compares two fingerprints in constant time.
func EqualFingerprints(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Redact keeps the first three and last two characters of a token so it can
// be correlated in logs and analytics without being usable.
func Redact(raw string) string {
	if len(raw) < 8 {
		return "***"
	}
	return raw[:3] + "..." + raw[len(raw)-2:]
}

// GenerateSecret returns size random bytes encoded as base64url.
func GenerateSecret(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("secret size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random secret: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}
