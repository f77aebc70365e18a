package llmclient

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBackendWritesRecordingThenPlaybackReplays(t *testing.T) {
	dir := t.TempDir()
	recordingPath := filepath.Join(dir, "recording.yaml")

	provider := &stubProvider{chunks: []wireChunk{
		{Type: "text", Content: "hello from provider"},
		{Type: "usage", Input: 3, Output: 7, Total: 10},
	}}
	recorder, err := New(Config{Mode: ModeRecord, Provider: provider, RecordingPath: recordingPath})
	require.NoError(t, err)

	out := drain(t, mustGenerate(t, recorder))
	require.Len(t, out, 2)

	recording, err := LoadRecording(recordingPath)
	require.NoError(t, err)
	require.Len(t, recording.Calls, 1)
	assert.Equal(t, "task-1", recording.Calls[0].TaskID)
	require.Len(t, recording.Calls[0].Chunks, 2)
	assert.Equal(t, "hello from provider", recording.Calls[0].Chunks[0].Content)

	player, err := New(Config{Mode: ModePlayback, Recording: recording})
	require.NoError(t, err)
	played := drain(t, mustGenerate(t, player))
	require.Len(t, played, 2)
	assert.Equal(t, "hello from provider", played[0].(*TextChunk).Content)
}

func TestRecordBackendAppendsAcrossMultipleCalls(t *testing.T) {
	dir := t.TempDir()
	recordingPath := filepath.Join(dir, "recording.yaml")
	provider := &stubProvider{chunks: []wireChunk{{Type: "text", Content: "x"}}}

	recorder, err := New(Config{Mode: ModeRecord, Provider: provider, RecordingPath: recordingPath})
	require.NoError(t, err)

	drain(t, mustGenerate(t, recorder))
	drain(t, mustGenerate(t, recorder))

	recording, err := LoadRecording(recordingPath)
	require.NoError(t, err)
	assert.Len(t, recording.Calls, 2)
}

func TestPlaybackBackendExhaustedReturnsError(t *testing.T) {
	player, err := New(Config{Mode: ModePlayback, Recording: &Recording{}})
	require.NoError(t, err)
	_, err = player.Generate(context.Background(), &GenerateInput{})
	assert.Error(t, err)
}
