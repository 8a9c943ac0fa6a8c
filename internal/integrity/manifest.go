// Package integrity verifica artefatos contra um manifesto SHA-256 e mede
// o drift semântico entre snapshots de embeddings.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
)

// Manifest maps a relative file path to its expected hex SHA-256.
type Manifest map[string]string

// LoadManifest reads a JSON object of path to hash. Non-string entries, such
// as expected row counts, are ignored.
func LoadManifest(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	m := make(Manifest, len(entries))
	for key, value := range entries {
		var hash string
		if err := json.Unmarshal(value, &hash); err != nil {
			continue
		}
		m[key] = hash
	}
	return m, nil
}

type Mismatch struct {
	Path     string
	Expected string
	// Actual is empty when the file is missing.
	Actual string
}

func (m Mismatch) Missing() bool { return m.Actual == "" }

// Verify hashes every manifest entry under root and returns the mismatches
// sorted by path.
func Verify(root string, manifest Manifest) ([]Mismatch, error) {
	paths := make([]string, 0, len(manifest))
	for p := range manifest {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var out []Mismatch
	for _, p := range paths {
		expected := manifest[p]
		actual, err := HashFile(filepath.Join(root, filepath.FromSlash(p)))
		if errors.Is(err, fs.ErrNotExist) {
			out = append(out, Mismatch{Path: p, Expected: expected})
			continue
		}
		if err != nil {
			return nil, err
		}
		if actual != expected {
			out = append(out, Mismatch{Path: p, Expected: expected, Actual: actual})
		}
	}
	return out, nil
}

func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
