// Package handoff provides validation and routing of task handoffs between
// named agents.
//
// A handoff is a request to transfer a task and its associated payload from
// one agent to another. The package is built around four pieces:
//
//   - Registry: the static capability table mapping agent names to declared
//     primary/secondary tasks, expertise keywords, and required payload keys.
//   - KeywordOverlapScore: a word-overlap and substring heuristic that
//     estimates how well a free-text task description matches an agent's
//     declared capabilities. It is keyword matching, not semantic analysis,
//     and the name says so on purpose.
//   - Validator: decides whether a proposed handoff may proceed, returning a
//     structured result with an actionable reason and alternative-agent
//     suggestions. Validation never returns an error.
//   - Router: creates requests, queues them against an owned WorkflowState,
//     and drains the queue in FIFO order, merging payloads into the state and
//     building an append-only history. All state mutation is funneled through
//     the router's mutex, so the router is safe for concurrent use.
//
// Request processing is best-effort: a failure while applying one request
// marks that request failed and the batch continues.
package handoff
