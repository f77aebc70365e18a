package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveArtifactIdempotent(t *testing.T) {
	s := newTestStore(t)
	content := []byte("artifact body")

	hash1, err := s.SaveArtifact("task-1", "triage", content, "contract-1", ArtifactDraft)
	require.NoError(t, err)

	hash2, err := s.SaveArtifact("task-1", "triage", content, "contract-1", ArtifactDraft)
	require.NoError(t, err)

	assert.Equal(t, hash1, hash2)

	got, err := s.LoadArtifact("task-1", "triage", hash1)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSaveArtifactSameContentUpdatesLifecycle(t *testing.T) {
	s := newTestStore(t)
	content := []byte("artifact body")

	hash, err := s.SaveArtifact("task-1", "triage", content, "contract-1", ArtifactDraft)
	require.NoError(t, err)

	_, err = s.SaveArtifact("task-1", "triage", content, "contract-1", ArtifactApproved)
	require.NoError(t, err)

	meta, err := s.LoadArtifactMeta("task-1", "triage", hash)
	require.NoError(t, err)
	assert.Equal(t, ArtifactApproved, meta.Lifecycle)
}

func TestLoadArtifactNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.LoadArtifact("task-1", "triage", "deadbeef")
	require.Error(t, err)
}

func TestSetArtifactLifecycle(t *testing.T) {
	s := newTestStore(t)
	hash, err := s.SaveArtifact("task-1", "triage", []byte("x"), "c1", ArtifactDraft)
	require.NoError(t, err)

	require.NoError(t, s.SetArtifactLifecycle("task-1", "triage", hash, ArtifactFinal))

	meta, err := s.LoadArtifactMeta("task-1", "triage", hash)
	require.NoError(t, err)
	assert.Equal(t, ArtifactFinal, meta.Lifecycle)
}
