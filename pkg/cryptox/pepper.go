package cryptox

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const pepperSize = 32

// LoadOrCreatePepper reads the fingerprint pepper from path, generating and
// persisting a new one (mode 0600) when the file does not exist yet.
//
// A new pepper is written to a temporary file and published with a hard
// link, so path either does not exist or holds a complete pepper. When
// several replicas start together exactly one link wins and the rest read
// the winner's file.
//
// Losing this file invalidates every outstanding invite token, since stored
// fingerprints can no longer be reproduced.
func LoadOrCreatePepper(path string) ([]byte, error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}

	pepper, err := readPepper(path)
	if !errors.Is(err, os.ErrNotExist) {
		return pepper, err
	}

	secret, err := GenerateSecret(pepperSize)
	if err != nil {
		return nil, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if _, err := tmp.WriteString(secret); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, os.ErrExist) {
			return readPepper(path)
		}
		return nil, err
	}
	return []byte(secret), nil
}

func readPepper(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pepper := strings.TrimSpace(string(data))
	if pepper == "" {
		return nil, ErrMissingPepper
	}
	return []byte(pepper), nil
}
