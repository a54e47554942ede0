package handoff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

func newTestValidator(opts ...ValidatorOption) *Validator {
	return NewValidator(DefaultRegistry(), zap.NewNop(), opts...)
}

func validDesignRequest() *Request {
	return NewRequest("requirements_analyst", "architecture_designer", "Design system architecture",
		map[string]any{
			"requirements":    []string{"must scale"},
			"project_context": "greenfield service",
		})
}

func TestValidator_ValidRequest(t *testing.T) {
	v := newTestValidator()

	result := v.Validate(validDesignRequest(), NewWorkflowState())

	assert.True(t, result.Valid)
	assert.Equal(t, "handoff request is valid", result.Reason)
	assert.Empty(t, result.FailedCheck)
}

func TestValidator_NilRequest(t *testing.T) {
	v := newTestValidator()

	result := v.Validate(nil, NewWorkflowState())

	assert.False(t, result.Valid)
	assert.Equal(t, CheckRequest, result.FailedCheck)
}

func TestValidator_UnknownSourceAgent(t *testing.T) {
	v := newTestValidator()
	req := validDesignRequest()
	req.FromAgent = "ghost_agent"

	result := v.Validate(req, NewWorkflowState())

	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "does not exist")
	assert.Contains(t, result.Reason, "ghost_agent")
	assert.Equal(t, CheckSourceExists, result.FailedCheck)
	assert.NotEmpty(t, result.Suggestions)
}

func TestValidator_UnknownTargetAgent(t *testing.T) {
	v := newTestValidator()
	req := validDesignRequest()
	req.ToAgent = "ghost_agent"

	result := v.Validate(req, NewWorkflowState())

	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "does not exist")
	assert.Equal(t, CheckTargetExists, result.FailedCheck)
}

func TestValidator_TargetUnavailable(t *testing.T) {
	v := newTestValidator()
	state := NewWorkflowState()
	state.AgentAvailability["architecture_designer"] = false

	result := v.Validate(validDesignRequest(), state)

	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "not available")
	assert.Equal(t, CheckTargetAvailable, result.FailedCheck)
	require.NotEmpty(t, result.Suggestions)
	assert.Contains(t, result.Suggestions[0], "wait for the agent")
}

func TestValidator_IncompatibleTask(t *testing.T) {
	v := newTestValidator()
	req := NewRequest("requirements_analyst", "test_generator", "Design system architecture",
		map[string]any{"code": "...", "requirements": []string{}})

	result := v.Validate(req, NewWorkflowState())

	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "not compatible")
	assert.Equal(t, CheckCompatibility, result.FailedCheck)

	// The best alternative for an architecture task is the designer.
	require.NotEmpty(t, result.Suggestions)
	assert.Contains(t, result.Suggestions[0], "architecture_designer")
}

func TestValidator_MissingRequiredInputs(t *testing.T) {
	v := newTestValidator()
	req := NewRequest("requirements_analyst", "architecture_designer", "Design system architecture", map[string]any{})

	result := v.Validate(req, NewWorkflowState())

	assert.False(t, result.Valid)
	assert.Equal(t, CheckRequiredInputs, result.FailedCheck)
	// Every missing key is named in the reason.
	assert.Contains(t, result.Reason, "requirements")
	assert.Contains(t, result.Reason, "project_context")
	assert.Len(t, result.Suggestions, 2)
}

func TestValidator_PartialPayload(t *testing.T) {
	v := newTestValidator()
	req := NewRequest("requirements_analyst", "architecture_designer", "Design system architecture",
		map[string]any{"requirements": []string{"r"}})

	result := v.Validate(req, NewWorkflowState())

	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "project_context")
	assert.NotContains(t, result.Reason, "requirements,")
}

func TestValidator_ChecksShortCircuitInOrder(t *testing.T) {
	v := newTestValidator()

	// Unknown target and empty payload: existence is reported, not inputs.
	req := NewRequest("requirements_analyst", "ghost_agent", "anything", nil)
	state := NewWorkflowState()
	state.AgentAvailability["ghost_agent"] = false

	result := v.Validate(req, state)
	assert.Equal(t, CheckTargetExists, result.FailedCheck)
}

func TestValidator_SuggestAlternatives(t *testing.T) {
	v := newTestValidator()

	scores := v.SuggestAlternatives("Design system architecture", "test_generator")

	require.NotEmpty(t, scores)
	assert.Equal(t, "architecture_designer", scores[0].AgentName)

	for i, s := range scores {
		assert.NotEqual(t, "test_generator", s.AgentName)
		assert.Greater(t, s.Score, 0.05)
		if i > 0 {
			assert.LessOrEqual(t, s.Score, scores[i-1].Score, "scores must be sorted descending")
		}
	}
}

func TestValidator_SuggestAlternatives_ExcludeNeverIncluded(t *testing.T) {
	v := newTestValidator()
	names := DefaultRegistry().Names()

	rapid.Check(t, func(t *rapid.T) {
		desc := rapid.StringMatching(`[a-z]{1,8}( [a-z]{1,8}){0,5}`).Draw(t, "desc")
		exclude := rapid.SliceOfN(rapid.SampledFrom(names), 0, len(names)).Draw(t, "exclude")

		scores := v.SuggestAlternatives(desc, exclude...)

		excluded := make(map[string]struct{}, len(exclude))
		for _, name := range exclude {
			excluded[name] = struct{}{}
		}
		prev := 2.0
		for _, s := range scores {
			if _, bad := excluded[s.AgentName]; bad {
				t.Fatalf("excluded agent %q suggested", s.AgentName)
			}
			if s.Score > prev {
				t.Fatalf("scores not sorted descending")
			}
			prev = s.Score
		}
	})
}

func TestValidator_CustomThreshold(t *testing.T) {
	v := newTestValidator(WithCompatibilityThreshold(0.99))

	result := v.Validate(validDesignRequest(), NewWorkflowState())

	// The exact primary match clips to 1.0, which still clears 0.99.
	assert.True(t, result.Valid)

	strict := newTestValidator(WithCompatibilityThreshold(1.0))
	result = strict.Validate(validDesignRequest(), NewWorkflowState())
	assert.False(t, result.Valid)
	assert.Equal(t, CheckCompatibility, result.FailedCheck)
}

func TestValidator_SuggestionLimit(t *testing.T) {
	v := newTestValidator(WithSuggestionLimit(1), WithMinSuggestionScore(0.0))
	req := NewRequest("requirements_analyst", "test_generator", "Design system architecture", nil)

	result := v.Validate(req, NewWorkflowState())

	assert.False(t, result.Valid)
	assert.Len(t, result.Suggestions, 1)
}
