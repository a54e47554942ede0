package handoff

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Validation check identifiers, used for logs and metrics labels.
const (
	CheckRequest         = "request"
	CheckSourceExists    = "source_agent_exists"
	CheckTargetExists    = "target_agent_exists"
	CheckTargetAvailable = "target_available"
	CheckCompatibility   = "compatibility"
	CheckRequiredInputs  = "required_inputs"
	CheckApply           = "apply"
)

// ValidationResult is the outcome of validating a handoff request. It is
// always populated: validation failures are results, never errors.
type ValidationResult struct {
	Valid       bool     `json:"valid"`
	Reason      string   `json:"reason"`
	Suggestions []string `json:"suggestions,omitempty"`

	// FailedCheck names the check that rejected the request, empty when the
	// request is valid.
	FailedCheck string `json:"failed_check,omitempty"`
}

// AgentScore pairs an agent name with its compatibility score for a task.
type AgentScore struct {
	AgentName string  `json:"agent_name"`
	Score     float64 `json:"score"`
}

// Validator decides whether a proposed handoff may proceed against the
// current workflow state. Checks run in a fixed order and short-circuit on
// the first failure.
type Validator struct {
	registry           *Registry
	compatThreshold    float64
	suggestionLimit    int
	minSuggestionScore float64
	logger             *zap.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithCompatibilityThreshold sets the minimum exclusive compatibility score a
// task must reach against the target agent. Default 0.5.
func WithCompatibilityThreshold(threshold float64) ValidatorOption {
	return func(v *Validator) { v.compatThreshold = threshold }
}

// WithSuggestionLimit caps how many alternative agents a rejection carries.
// Default 3.
func WithSuggestionLimit(limit int) ValidatorOption {
	return func(v *Validator) { v.suggestionLimit = limit }
}

// WithMinSuggestionScore sets the exclusive score floor below which agents
// are not suggested as alternatives. Default 0.05.
func WithMinSuggestionScore(min float64) ValidatorOption {
	return func(v *Validator) { v.minSuggestionScore = min }
}

// NewValidator creates a validator over the given capability table.
func NewValidator(registry *Registry, logger *zap.Logger, opts ...ValidatorOption) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &Validator{
		registry:           registry,
		compatThreshold:    0.5,
		suggestionLimit:    3,
		minSuggestionScore: 0.05,
		logger:             logger.With(zap.String("component", "handoff_validator")),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate runs the check sequence for a proposed handoff: source agent
// exists, target agent exists, target agent available, task compatible with
// target, required payload keys present. The first failed check produces the
// result; a request passing all checks is valid.
func (v *Validator) Validate(req *Request, state *WorkflowState) ValidationResult {
	if req == nil {
		return ValidationResult{
			Reason:      "handoff request is nil",
			FailedCheck: CheckRequest,
		}
	}

	if !v.registry.Has(req.FromAgent) {
		return ValidationResult{
			Reason:      fmt.Sprintf("source agent %q does not exist", req.FromAgent),
			Suggestions: []string{"check the source agent name spelling", "list registered agents with Registry.Names"},
			FailedCheck: CheckSourceExists,
		}
	}

	capability, ok := v.registry.Get(req.ToAgent)
	if !ok {
		return ValidationResult{
			Reason:      fmt.Sprintf("target agent %q does not exist", req.ToAgent),
			Suggestions: []string{"check the target agent name spelling", "list registered agents with Registry.Names"},
			FailedCheck: CheckTargetExists,
		}
	}

	if !state.Available(req.ToAgent) {
		return ValidationResult{
			Reason:      fmt.Sprintf("target agent %q is not available", req.ToAgent),
			Suggestions: append([]string{"wait for the agent to become available"}, v.alternativeSuggestions(req.TaskDescription, req.ToAgent)...),
			FailedCheck: CheckTargetAvailable,
		}
	}

	score := KeywordOverlapScore(req.TaskDescription, capability)
	if score <= v.compatThreshold {
		v.logger.Debug("task rejected as incompatible",
			zap.String("to_agent", req.ToAgent),
			zap.Float64("score", score),
			zap.Float64("threshold", v.compatThreshold),
		)
		return ValidationResult{
			Reason:      fmt.Sprintf("task is not compatible with agent %q (score %.2f)", req.ToAgent, score),
			Suggestions: v.alternativeSuggestions(req.TaskDescription, req.ToAgent),
			FailedCheck: CheckCompatibility,
		}
	}

	if missing := missingInputs(capability, req.Payload); len(missing) > 0 {
		suggestions := make([]string, 0, len(missing))
		for _, key := range missing {
			suggestions = append(suggestions, fmt.Sprintf("add payload key %q", key))
		}
		return ValidationResult{
			Reason:      fmt.Sprintf("payload is missing required keys for agent %q: %s", req.ToAgent, strings.Join(missing, ", ")),
			Suggestions: suggestions,
			FailedCheck: CheckRequiredInputs,
		}
	}

	return ValidationResult{Valid: true, Reason: "handoff request is valid"}
}

// SuggestAlternatives scores every registered agent not in exclude against
// the task description and returns those above the suggestion floor, sorted
// by descending score with ties broken by name.
func (v *Validator) SuggestAlternatives(taskDescription string, exclude ...string) []AgentScore {
	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[name] = struct{}{}
	}

	var scores []AgentScore
	for _, capability := range v.registry.All() {
		if _, skip := excluded[capability.AgentName]; skip {
			continue
		}
		score := KeywordOverlapScore(taskDescription, capability)
		if score > v.minSuggestionScore {
			scores = append(scores, AgentScore{AgentName: capability.AgentName, Score: score})
		}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].AgentName < scores[j].AgentName
	})
	return scores
}

// alternativeSuggestions renders the top alternatives as human-readable
// suggestion strings for a rejection result.
func (v *Validator) alternativeSuggestions(taskDescription string, exclude ...string) []string {
	alternatives := v.SuggestAlternatives(taskDescription, exclude...)
	if len(alternatives) > v.suggestionLimit {
		alternatives = alternatives[:v.suggestionLimit]
	}
	suggestions := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		suggestions = append(suggestions, fmt.Sprintf("consider agent %q (score %.2f)", alt.AgentName, alt.Score))
	}
	return suggestions
}

func missingInputs(capability AgentCapability, payload map[string]any) []string {
	var missing []string
	for _, key := range capability.RequiredInputs {
		if _, present := payload[key]; !present {
			missing = append(missing, key)
		}
	}
	return missing
}
