package toolbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefinitionAndBackend(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(ToolDefinition{Name: "read_file"}, echoBackend())

	def, err := r.Definition("read_file")
	require.NoError(t, err)
	assert.Equal(t, "read_file", def.Name)

	b, err := r.Backend("read_file")
	require.NoError(t, err)
	assert.NotNil(t, b)
}

func TestRegistryUnknownToolErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Definition("nope")
	require.Error(t, err)
}

func TestRegistryMustRegisterPanicsOnDuplicate(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(ToolDefinition{Name: "x"}, echoBackend())
	assert.Panics(t, func() {
		r.MustRegister(ToolDefinition{Name: "x"}, echoBackend())
	})
}

func TestRegistryNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.MustRegister(ToolDefinition{Name: "z"}, echoBackend())
	r.MustRegister(ToolDefinition{Name: "a"}, echoBackend())
	assert.Equal(t, []string{"a", "z"}, r.Names())
}
