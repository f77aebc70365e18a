package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAppendStepAssignsMonotonicIndex(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	idx1, err := s.AppendStep("task-1", &testRecord{Note: "first"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx1)

	idx2, err := s.AppendStep("task-1", &testRecord{Note: "second"})
	require.NoError(t, err)
	assert.Equal(t, 2, idx2)
}

func TestReadStepDocsReturnsAllEntriesInOrder(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.AppendStep("task-1", &testRecord{Note: "first"})
	require.NoError(t, err)
	_, err = s.AppendStep("task-1", &testRecord{Note: "second"})
	require.NoError(t, err)

	docs, err := s.ReadStepDocs("task-1")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	var r1, r2 testRecord
	require.NoError(t, yaml.Unmarshal(docs[0], &r1))
	require.NoError(t, yaml.Unmarshal(docs[1], &r2))
	assert.Equal(t, "first", r1.Note)
	assert.Equal(t, "second", r2.Note)
}

func TestReadStepDocsEmptyForUnknownTask(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	docs, err := s.ReadStepDocs("ghost")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
