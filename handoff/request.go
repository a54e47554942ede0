package handoff

import (
	"time"

	"github.com/google/uuid"
)

// Status of a handoff request. Processing is synchronous per request, so a
// request moves straight from pending to completed or failed; there are no
// intermediate states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Priority of a handoff request. Priority is carried for callers and audit
// records; the queue itself is strictly FIFO.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ContextKeyFailureReason is the request context key under which the router
// records why a request failed.
const ContextKeyFailureReason = "failure_reason"

// Request is a proposed transfer of a task and its payload from one agent to
// another. Validity of the agent names is checked by the Validator, not
// enforced at construction.
type Request struct {
	ID              string         `json:"id"`
	FromAgent       string         `json:"from_agent"`
	ToAgent         string         `json:"to_agent"`
	TaskDescription string         `json:"task_description"`
	Payload         map[string]any `json:"payload,omitempty"`
	Priority        Priority       `json:"priority"`
	Context         map[string]any `json:"context,omitempty"`
	Status          Status         `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
}

// RequestOption configures a request built by NewRequest.
type RequestOption func(*Request)

// WithPriority sets the request priority.
func WithPriority(p Priority) RequestOption {
	return func(r *Request) { r.Priority = p }
}

// WithContext merges the given annotations into the request context.
func WithContext(ctx map[string]any) RequestOption {
	return func(r *Request) {
		for k, v := range ctx {
			r.Context[k] = v
		}
	}
}

// NewRequest builds a pending handoff request. IDs are UUID-based so that
// rapid creation for the same agent pair can never collide.
func NewRequest(fromAgent, toAgent, taskDescription string, payload map[string]any, opts ...RequestOption) *Request {
	r := &Request{
		ID:              "handoff_" + uuid.NewString(),
		FromAgent:       fromAgent,
		ToAgent:         toAgent,
		TaskDescription: taskDescription,
		Payload:         payload,
		Priority:        PriorityNormal,
		Context:         make(map[string]any),
		Status:          StatusPending,
		CreatedAt:       time.Now(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FailureReason returns the recorded failure reason, or "" if the request has
// not failed.
func (r *Request) FailureReason() string {
	if r.Context == nil {
		return ""
	}
	if reason, ok := r.Context[ContextKeyFailureReason].(string); ok {
		return reason
	}
	return ""
}
