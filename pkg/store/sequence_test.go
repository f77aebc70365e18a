package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	Index int    `yaml:"index"`
	Note  string `yaml:"note"`
}

func (r *testRecord) SetIndex(idx int) { r.Index = idx }

func TestAppendLogEntryAssignsMonotonicIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")

	r1 := &testRecord{Note: "first"}
	idx1, err := appendLogEntry(path, r1)
	require.NoError(t, err)
	assert.Equal(t, 1, idx1)

	r2 := &testRecord{Note: "second"}
	idx2, err := appendLogEntry(path, r2)
	require.NoError(t, err)
	assert.Equal(t, 2, idx2)

	docs, err := readLogEntries(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestReadLogEntriesEmptyWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.log")
	docs, err := readLogEntries(path)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestCountDocsMatchesAppendedCount(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	for i := 0; i < 5; i++ {
		_, err := appendLogEntry(path, &testRecord{Note: "x"})
		require.NoError(t, err)
	}
	n, err := countDocs(path)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
