package handoff

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Journal persists processed handoff requests. Implementations must be safe
// for concurrent use. Journal failures are logged and do not fail the
// handoff; the in-memory history remains authoritative.
type Journal interface {
	Record(ctx context.Context, req *Request) error
}

// RouterMetrics receives instrumentation callbacks from the router. All
// methods may be called concurrently.
type RouterMetrics interface {
	HandoffCreated(priority string)
	HandoffProcessed(status string, duration time.Duration)
	ValidationFailed(check string)
	QueueDepth(depth int)
	SuggestionsRequested()
}

// nopMetrics is the default RouterMetrics.
type nopMetrics struct{}

func (nopMetrics) HandoffCreated(string)                  {}
func (nopMetrics) HandoffProcessed(string, time.Duration) {}
func (nopMetrics) ValidationFailed(string)                {}
func (nopMetrics) QueueDepth(int)                         {}
func (nopMetrics) SuggestionsRequested()                  {}

// Router creates handoff requests, queues them, and executes validated
// handoffs against the workflow state it owns, building an audit trail.
//
// The router is the single writer of its WorkflowState: every mutation goes
// through one mutex, and ProcessQueue swaps the queue out atomically before
// working through it, so requests enqueued concurrently during a drain are
// kept for the next one rather than lost.
type Router struct {
	registry  *Registry
	validator *Validator
	state     *WorkflowState
	journal   Journal
	metrics   RouterMetrics
	logger    *zap.Logger
	mu        sync.Mutex
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithJournal attaches a persistence journal for processed handoffs.
func WithJournal(j Journal) RouterOption {
	return func(r *Router) { r.journal = j }
}

// WithMetrics attaches an instrumentation sink.
func WithMetrics(m RouterMetrics) RouterOption {
	return func(r *Router) { r.metrics = m }
}

// WithValidator replaces the default validator, e.g. to change thresholds.
func WithValidator(v *Validator) RouterOption {
	return func(r *Router) { r.validator = v }
}

// NewRouter creates a router over the given capability table. A nil state
// starts empty; a nil logger disables logging. The router takes ownership of
// state: callers must not mutate it directly afterwards.
func NewRouter(registry *Registry, state *WorkflowState, logger *zap.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if state == nil {
		state = NewWorkflowState()
	}
	r := &Router{
		registry: registry,
		state:    state,
		metrics:  nopMetrics{},
		logger:   logger.With(zap.String("component", "handoff_router")),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validator == nil {
		r.validator = NewValidator(registry, logger)
	}
	return r
}

// Validator returns the validator the router routes through.
func (r *Router) Validator() *Validator {
	return r.validator
}

// Enqueue appends a pending request to the workflow queue.
func (r *Router) Enqueue(req *Request) {
	r.mu.Lock()
	r.state.Queue = append(r.state.Queue, req)
	depth := len(r.state.Queue)
	r.mu.Unlock()

	r.metrics.HandoffCreated(string(req.Priority))
	r.metrics.QueueDepth(depth)
	r.logger.Info("handoff enqueued",
		zap.String("id", req.ID),
		zap.String("from", req.FromAgent),
		zap.String("to", req.ToAgent),
		zap.Int("queue_depth", depth),
	)
}

// Submit builds a request with NewRequest and enqueues it.
func (r *Router) Submit(fromAgent, toAgent, taskDescription string, payload map[string]any, opts ...RequestOption) *Request {
	req := NewRequest(fromAgent, toAgent, taskDescription, payload, opts...)
	r.Enqueue(req)
	return req
}

// Validate checks a request against the current workflow state without
// enqueueing or executing it.
func (r *Router) Validate(req *Request) ValidationResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.validator.Validate(req, r.state)
}

// ProcessQueue drains the current queue and processes each request once, in
// FIFO order. Valid requests are executed against the workflow state and
// marked completed; invalid ones are marked failed with the rejection reason
// in their context. A panic while applying one request fails that request
// only; the batch always runs to completion. Every drained request ends up
// in the history, and the batch is returned.
//
// ctx bounds journal writes only; in-memory processing does not block.
func (r *Router) ProcessQueue(ctx context.Context) []*Request {
	start := time.Now()

	r.mu.Lock()
	batch := r.state.Queue
	r.state.Queue = nil
	r.mu.Unlock()

	for _, req := range batch {
		r.processOne(ctx, req)
	}

	r.mu.Lock()
	r.state.History = append(r.state.History, batch...)
	depth := len(r.state.Queue)
	r.mu.Unlock()

	r.metrics.QueueDepth(depth)
	if len(batch) > 0 {
		r.logger.Info("queue processed",
			zap.Int("requests", len(batch)),
			zap.Duration("duration", time.Since(start)),
		)
	}
	return batch
}

// processOne validates and applies a single request, translating the outcome
// into the request's status and context.
func (r *Router) processOne(ctx context.Context, req *Request) {
	started := time.Now()
	result := r.validateAndApply(req)

	now := time.Now()
	req.CompletedAt = &now
	if result.Valid {
		req.Status = StatusCompleted
		r.logger.Info("handoff completed",
			zap.String("id", req.ID),
			zap.String("from", req.FromAgent),
			zap.String("to", req.ToAgent),
		)
	} else {
		req.Status = StatusFailed
		if req.Context == nil {
			req.Context = make(map[string]any)
		}
		req.Context[ContextKeyFailureReason] = result.Reason
		r.metrics.ValidationFailed(result.FailedCheck)
		r.logger.Warn("handoff failed",
			zap.String("id", req.ID),
			zap.String("check", result.FailedCheck),
			zap.String("reason", result.Reason),
		)
	}
	r.metrics.HandoffProcessed(string(req.Status), time.Since(started))

	if r.journal != nil {
		if err := r.journal.Record(ctx, req); err != nil {
			r.logger.Warn("journal record failed", zap.String("id", req.ID), zap.Error(err))
		}
	}
}

// validateAndApply holds the state lock across re-validation and execution so
// availability and payload merging observe a consistent state. A panic during
// apply is converted into a failed result for this request alone.
func (r *Router) validateAndApply(req *Request) (result ValidationResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	defer func() {
		if p := recover(); p != nil {
			result = ValidationResult{
				Reason:      fmt.Sprintf("panic while applying handoff: %v", p),
				FailedCheck: CheckApply,
			}
		}
	}()

	result = r.validator.Validate(req, r.state)
	if !result.Valid {
		return result
	}
	r.apply(req)
	return result
}

// apply executes a validated handoff. Caller holds r.mu.
func (r *Router) apply(req *Request) {
	now := time.Now()
	r.state.CurrentAgent = req.ToAgent

	// Last-write-wins merge; nested structures are replaced, not merged.
	for key, value := range req.Payload {
		r.state.Values[key] = value
	}

	r.state.CollaborationContext[req.ID] = map[string]any{
		"from_agent": req.FromAgent,
		"to_agent":   req.ToAgent,
		"task":       req.TaskDescription,
		"timestamp":  now,
	}
	r.state.Events = append(r.state.Events, Event{
		Type:      "handoff",
		FromAgent: req.FromAgent,
		ToAgent:   req.ToAgent,
		Task:      req.TaskDescription,
		Timestamp: now,
	})
}

// SuggestAlternatives scores every registered agent not in exclude against
// the task description; see Validator.SuggestAlternatives.
func (r *Router) SuggestAlternatives(taskDescription string, exclude ...string) []AgentScore {
	r.metrics.SuggestionsRequested()
	return r.validator.SuggestAlternatives(taskDescription, exclude...)
}

// SetAvailability marks an agent as accepting or refusing handoffs.
func (r *Router) SetAvailability(agent string, available bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.AgentAvailability == nil {
		r.state.AgentAvailability = make(map[string]bool)
	}
	r.state.AgentAvailability[agent] = available
}

// QueueLen returns the number of pending requests.
func (r *Router) QueueLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.Queue)
}

// History returns a copy of the processed-request history, oldest first.
func (r *Router) History() []*Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Request, len(r.state.History))
	copy(out, r.state.History)
	return out
}

// CurrentAgent returns the agent that received the most recent handoff.
func (r *Router) CurrentAgent() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.CurrentAgent
}

// StateSnapshot is a read-only copy of the router's workflow state counters,
// suitable for status endpoints.
type StateSnapshot struct {
	QueueDepth        int             `json:"queue_depth"`
	HistoryLen        int             `json:"history_len"`
	CurrentAgent      string          `json:"current_agent"`
	AgentAvailability map[string]bool `json:"agent_availability"`
	Values            map[string]any  `json:"values"`
}

// Snapshot returns a consistent copy of the state's observable fields.
func (r *Router) Snapshot() StateSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	availability := make(map[string]bool, len(r.state.AgentAvailability))
	for k, v := range r.state.AgentAvailability {
		availability[k] = v
	}
	values := make(map[string]any, len(r.state.Values))
	for k, v := range r.state.Values {
		values[k] = v
	}
	return StateSnapshot{
		QueueDepth:        len(r.state.Queue),
		HistoryLen:        len(r.state.History),
		CurrentAgent:      r.state.CurrentAgent,
		AgentAvailability: availability,
		Values:            values,
	}
}
