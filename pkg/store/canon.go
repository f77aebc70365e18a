package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// marshalCanonical renders v as YAML in its canonical on-disk form: struct
// field order is fixed by the Go type (stable across calls), map keys are
// sorted lexicographically by the yaml.v3 encoder, and the stream is UTF-8
// with LF line endings (yaml.v3's default on all platforms this runs on).
// Two persists of an unchanged value produce byte-identical output — the
// round-trip idempotence required by spec.md §8.
func marshalCanonical(v any) ([]byte, error) {
	var buf []byte
	enc, err := newCanonicalEncoder(&buf)
	if err != nil {
		return nil, err
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("marshal canonical yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}
	return buf, nil
}

// canonicalEncoder wraps yaml.Encoder with a fixed indent so output is
// stable regardless of which call site produced it.
type canonicalEncoder struct {
	enc *yaml.Encoder
}

func newCanonicalEncoder(buf *[]byte) (*canonicalEncoder, error) {
	w := &byteSliceWriter{buf: buf}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &canonicalEncoder{enc: enc}, nil
}

func (c *canonicalEncoder) Encode(v any) error { return c.enc.Encode(v) }
func (c *canonicalEncoder) Close() error        { return c.enc.Close() }

type byteSliceWriter struct{ buf *[]byte }

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}

// hashContent returns the content-address (hex sha256) of bytes, the form
// spec.md's Artifact type uses for identity.
func hashContent(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// writeFileAtomic writes data to path via a temp file in the same directory
// followed by rename, so a crash never leaves a half-written file behind
// (spec.md §4.1: "writes via temp file + rename").
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		return fmt.Errorf("chmod temp file %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	return nil
}

// writeYAMLAtomic marshals v canonically and writes it atomically to path.
func writeYAMLAtomic(path string, v any) error {
	data, err := marshalCanonical(v)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data, 0o644)
}

// readYAML decodes the YAML file at path into v.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}
