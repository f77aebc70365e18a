package store

import (
	"fmt"
	"os"

	"github.com/agentforge/agentforge/pkg/errorkind"
)

// SaveArtifact content-addresses bytes under {root}/{taskID}/artifacts/{stage}/,
// writing both the blob and a metadata sidecar. Idempotent: saving the same
// bytes twice returns the same hash without creating a second file
// (spec.md §8: "Content-addressed artifact save is idempotent").
func (s *Store) SaveArtifact(taskID, stage string, content []byte, contractID string, lifecycle ArtifactLifecycle) (string, error) {
	hash := hashContent(content)
	blobPath := artifactPath(s.root, taskID, stage, hash)

	if _, err := os.Stat(blobPath); err == nil {
		// Duplicate content: only the lifecycle may legitimately progress
		// (e.g. draft -> approved); re-stamp the metadata, not the blob.
		meta, mErr := s.LoadArtifactMeta(taskID, stage, hash)
		if mErr == nil && meta.Lifecycle != lifecycle {
			meta.Lifecycle = lifecycle
			if wErr := writeYAMLAtomic(artifactMetaPath(s.root, taskID, stage, hash), meta); wErr != nil {
				return "", fmt.Errorf("update artifact metadata: %w", wErr)
			}
		}
		return hash, nil
	}

	if err := os.MkdirAll(artifactsDir(s.root, taskID, stage), 0o755); err != nil {
		return "", fmt.Errorf("create artifacts dir: %w", err)
	}
	if err := writeFileAtomic(blobPath, content, 0o644); err != nil {
		return "", fmt.Errorf("write artifact blob: %w", err)
	}
	meta := ArtifactMeta{
		SchemaVersion: schemaVersion1,
		Hash:          hash,
		ContractID:    contractID,
		Stage:         stage,
		Lifecycle:     lifecycle,
		CreatedAt:     nowUTC(),
	}
	if err := writeYAMLAtomic(artifactMetaPath(s.root, taskID, stage, hash), meta); err != nil {
		return "", fmt.Errorf("write artifact metadata: %w", err)
	}
	return hash, nil
}

// LoadArtifact returns an artifact's raw content by hash.
func (s *Store) LoadArtifact(taskID, stage, hash string) ([]byte, error) {
	data, err := os.ReadFile(artifactPath(s.root, taskID, stage, hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errorkind.New(errorkind.NotFound, "artifact not found: "+hash)
		}
		return nil, err
	}
	return data, nil
}

// LoadArtifactMeta returns an artifact's metadata sidecar.
func (s *Store) LoadArtifactMeta(taskID, stage, hash string) (*ArtifactMeta, error) {
	var m ArtifactMeta
	if err := readYAML(artifactMetaPath(s.root, taskID, stage, hash), &m); err != nil {
		if os.IsNotExist(err) {
			return nil, errorkind.New(errorkind.NotFound, "artifact metadata not found: "+hash)
		}
		return nil, err
	}
	return &m, nil
}

// SetArtifactLifecycle updates an existing artifact's lifecycle in place.
// Returns errorkind.ContractViolation-shaped callers' errors are not raised
// here; this is pure bookkeeping, callers enforce the final-is-immutable
// invariant before calling it with ArtifactFinal.
func (s *Store) SetArtifactLifecycle(taskID, stage, hash string, lifecycle ArtifactLifecycle) error {
	meta, err := s.LoadArtifactMeta(taskID, stage, hash)
	if err != nil {
		return err
	}
	meta.Lifecycle = lifecycle
	return writeYAMLAtomic(artifactMetaPath(s.root, taskID, stage, hash), meta)
}
