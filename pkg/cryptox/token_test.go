package cryptox

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var testPepper = []byte("unit-test-pepper")

func TestNewTokenCodec_Config(t *testing.T) {
	tests := []struct {
		name     string
		alphabet string
		length   int
		pepper   []byte
		wantErr  error
	}{
		{"default", DefaultTokenAlphabet, DefaultTokenLength, testPepper, nil},
		{"minimum length with wide alphabet", DefaultTokenAlphabet, 13, testPepper, nil},
		{"too short", DefaultTokenAlphabet, 11, testPepper, ErrWeakTokenConfig},
		{"narrow alphabet", "0123456789", 16, testPepper, ErrWeakTokenConfig},
		{"duplicate symbol", "AAbcdefghijk", 20, testPepper, ErrInvalidAlphabet},
		{"whitespace symbol", "ab cdefghijklmnop", 20, testPepper, ErrInvalidAlphabet},
		{"missing pepper", DefaultTokenAlphabet, DefaultTokenLength, nil, ErrMissingPepper},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			codec, err := NewTokenCodec(tt.alphabet, tt.length, tt.pepper)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, codec)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.length, codec.Length())
		})
	}
}

func TestIssueRaw(t *testing.T) {
	codec, err := NewTokenCodec(DefaultTokenAlphabet, DefaultTokenLength, testPepper)
	require.NoError(t, err)

	const count = 200
	seen := make(map[string]bool, count)
	for range count {
		raw, fp, err := codec.IssueRaw()
		require.NoError(t, err)
		require.Len(t, raw, DefaultTokenLength)
		require.True(t, codec.WellFormed(raw))
		require.Equal(t, codec.Fingerprint(raw), fp)
		require.NotContains(t, seen, raw, "duplicate token generated")
		seen[raw] = true

		for _, r := range raw {
			require.True(t, strings.ContainsRune(DefaultTokenAlphabet, r), "unexpected symbol %q", r)
		}
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestIssueRaw_RandomFailureIsFatal(t *testing.T) {
	codec, err := NewTokenCodec(DefaultTokenAlphabet, DefaultTokenLength, testPepper)
	require.NoError(t, err)
	codec.random = failingReader{}

	raw, fp, err := codec.IssueRaw()
	require.Error(t, err)
	require.Empty(t, raw)
	require.Empty(t, fp)
}

func TestIssueRaw_RejectsBiasedBytes(t *testing.T) {
	// 57 symbols: bytes >= 228 must be skipped rather than folded.
	codec, err := NewTokenCodec(DefaultTokenAlphabet, DefaultTokenLength, testPepper)
	require.NoError(t, err)

	stream := append(bytes.Repeat([]byte{255}, 32), bytes.Repeat([]byte{0}, 64)...)
	codec.random = bytes.NewReader(stream)

	raw, _, err := codec.IssueRaw()
	require.NoError(t, err)
	require.Equal(t, strings.Repeat(string(DefaultTokenAlphabet[0]), DefaultTokenLength), raw)
}

func TestFingerprint(t *testing.T) {
	codec, err := NewTokenCodec(DefaultTokenAlphabet, DefaultTokenLength, testPepper)
	require.NoError(t, err)
	other, err := NewTokenCodec(DefaultTokenAlphabet, DefaultTokenLength, []byte("another-pepper"))
	require.NoError(t, err)

	fp1a := codec.Fingerprint("test-token-1")
	fp1b := codec.Fingerprint("test-token-1")
	fp2 := codec.Fingerprint("test-token-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2, "different tokens should have different fingerprints")
	require.NotEqual(t, fp1a, other.Fingerprint("test-token-1"), "fingerprint must depend on the key")
	require.Len(t, fp1a, 43, "BLAKE2b-256 base64url should be 43 chars")
	require.True(t, EqualFingerprints(fp1a, fp1b))
	require.False(t, EqualFingerprints(fp1a, fp2))
}

func TestWellFormed(t *testing.T) {
	codec, err := NewTokenCodec(DefaultTokenAlphabet, DefaultTokenLength, testPepper)
	require.NoError(t, err)

	require.False(t, codec.WellFormed(""))
	require.False(t, codec.WellFormed("short"))
	require.False(t, codec.WellFormed("0000000000000000"), "0 is not in the alphabet")
	require.True(t, codec.WellFormed("ABCDEFGHJKLMNPQR"))
}

func TestRedact(t *testing.T) {
	require.Equal(t, "ABC...QR", Redact("ABCDEFGHJKLMNPQR"))
	require.Equal(t, "***", Redact("abc"))
	require.NotContains(t, Redact("ABCDEFGHJKLMNPQR"), "DEFGH")
}

func TestLoadOrCreatePepper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pepper")

	first, err := LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	second, err := LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second, "pepper must be stable across restarts")
}

func TestLoadOrCreatePepper_ConcurrentStartup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pepper")

	const replicas = 16
	peppers := make([][]byte, replicas)
	errs := make([]error, replicas)

	var wg sync.WaitGroup
	for i := range replicas {
		wg.Add(1)
		go func() {
			defer wg.Done()
			peppers[i], errs[i] = LoadOrCreatePepper(path)
		}()
	}
	wg.Wait()

	for i := range replicas {
		require.NoError(t, errs[i])
		require.Equal(t, peppers[0], peppers[i], "every replica must agree on one pepper")
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files are cleaned up")
	require.Equal(t, "pepper", entries[0].Name())
}

func TestLoadOrCreatePepper_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pepper")
	require.NoError(t, os.WriteFile(path, nil, 0600))

	_, err := LoadOrCreatePepper(path)
	require.ErrorIs(t, err, ErrMissingPepper)
}

func TestGenerateSecret_InvalidSize(t *testing.T) {
	secret, err := GenerateSecret(0)
	require.Error(t, err)
	require.Empty(t, secret)
}
