package handoff

import "time"

// WorkflowState is the shared record threaded through handoff processing:
// the pending queue, the append-only history, per-agent availability, the
// collaboration context audit map, and the free-form value bag that payloads
// merge into.
//
// A WorkflowState has no locking of its own. Hand it to exactly one Router
// and mutate it only through that router; direct field access is safe only
// before the router starts or in tests.
type WorkflowState struct {
	Queue                []*Request     `json:"queue"`
	History              []*Request     `json:"history"`
	AgentAvailability    map[string]bool `json:"agent_availability"`
	CollaborationContext map[string]any `json:"collaboration_context"`
	Values               map[string]any `json:"values"`
	Events               []Event        `json:"events"`
	CurrentAgent         string         `json:"current_agent"`
}

// Event is one entry of the workflow history trail.
type Event struct {
	Type      string    `json:"type"`
	FromAgent string    `json:"from_agent"`
	ToAgent   string    `json:"to_agent"`
	Task      string    `json:"task"`
	Timestamp time.Time `json:"timestamp"`
}

// NewWorkflowState returns an empty state with all maps initialized.
func NewWorkflowState() *WorkflowState {
	return &WorkflowState{
		AgentAvailability:    make(map[string]bool),
		CollaborationContext: make(map[string]any),
		Values:               make(map[string]any),
	}
}

// Available reports whether the named agent is accepting handoffs. Agents
// absent from the availability map are treated as available.
func (s *WorkflowState) Available(agent string) bool {
	if s == nil || s.AgentAvailability == nil {
		return true
	}
	available, tracked := s.AgentAvailability[agent]
	if !tracked {
		return true
	}
	return available
}
