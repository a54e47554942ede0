package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry(
		AgentCapability{AgentName: "a", PrimaryTasks: []string{"one"}},
		AgentCapability{AgentName: "b"},
	)

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Has("a"))
	assert.False(t, r.Has("c"))

	capability, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, []string{"one"}, capability.PrimaryTasks)

	assert.Equal(t, []string{"a", "b"}, r.Names())
}

func TestNewRegistry_DuplicateReplacesEarlier(t *testing.T) {
	r := NewRegistry(
		AgentCapability{AgentName: "a", Expertise: []string{"old"}},
		AgentCapability{AgentName: "a", Expertise: []string{"new"}},
	)

	assert.Equal(t, 1, r.Len())
	capability, _ := r.Get("a")
	assert.Equal(t, []string{"new"}, capability.Expertise)
}

func TestNewRegistry_SkipsEmptyNames(t *testing.T) {
	r := NewRegistry(AgentCapability{AgentName: ""}, AgentCapability{AgentName: "a"})
	assert.Equal(t, 1, r.Len())
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	for _, name := range []string{
		"requirements_analyst",
		"architecture_designer",
		"code_generator",
		"test_generator",
		"quality_reviewer",
		"doc_writer",
	} {
		assert.True(t, r.Has(name), "missing default agent %s", name)
	}

	designer, ok := r.Get("architecture_designer")
	require.True(t, ok)
	assert.Equal(t, []string{"requirements", "project_context"}, designer.RequiredInputs)
}

func TestRegistry_NamesReturnsCopy(t *testing.T) {
	r := NewRegistry(AgentCapability{AgentName: "a"}, AgentCapability{AgentName: "b"})

	names := r.Names()
	names[0] = "mutated"

	assert.Equal(t, []string{"a", "b"}, r.Names())
}
