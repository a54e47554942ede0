package handoff

// AgentCapability describes what a named agent can do and what a handoff to
// it must carry. Capability records are defined once at startup and never
// mutated afterwards.
type AgentCapability struct {
	AgentName      string   `json:"agent_name" yaml:"agent_name"`
	PrimaryTasks   []string `json:"primary_tasks" yaml:"primary_tasks"`
	SecondaryTasks []string `json:"secondary_tasks" yaml:"secondary_tasks"`
	Expertise      []string `json:"expertise" yaml:"expertise"`

	// RequiredInputs lists the payload keys that must be present before a
	// handoff to this agent may proceed. Declared here rather than in a
	// separate lookup table so the requirement cannot drift from the agent
	// that owns it.
	RequiredInputs []string `json:"required_inputs" yaml:"required_inputs"`
}

// Registry is a read-only capability table. Build it once with NewRegistry
// and share it freely; lookups never mutate it.
type Registry struct {
	caps  map[string]AgentCapability
	names []string
}

// NewRegistry builds a registry from the given capability records. A later
// record with a duplicate AgentName replaces the earlier one.
func NewRegistry(caps ...AgentCapability) *Registry {
	r := &Registry{caps: make(map[string]AgentCapability, len(caps))}
	for _, c := range caps {
		if c.AgentName == "" {
			continue
		}
		if _, exists := r.caps[c.AgentName]; !exists {
			r.names = append(r.names, c.AgentName)
		}
		r.caps[c.AgentName] = c
	}
	return r
}

// Get returns the capability record for the named agent.
func (r *Registry) Get(name string) (AgentCapability, bool) {
	c, ok := r.caps[name]
	return c, ok
}

// Has reports whether the named agent is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.caps[name]
	return ok
}

// Names returns the registered agent names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// All returns every capability record in registration order.
func (r *Registry) All() []AgentCapability {
	out := make([]AgentCapability, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.caps[name])
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	return len(r.caps)
}

// DefaultRegistry returns the built-in capability table for the standard
// software-delivery pipeline agents. Deployments with their own agents supply
// a table through configuration instead.
func DefaultRegistry() *Registry {
	return NewRegistry(
		AgentCapability{
			AgentName:      "requirements_analyst",
			PrimaryTasks:   []string{"analyze requirements", "gather requirements", "clarify user stories"},
			SecondaryTasks: []string{"write acceptance criteria", "prioritize backlog"},
			Expertise:      []string{"requirements", "analysis", "user stories", "stakeholders"},
			RequiredInputs: []string{"project_context"},
		},
		AgentCapability{
			AgentName:      "architecture_designer",
			PrimaryTasks:   []string{"design system architecture", "define component boundaries", "select technology stack"},
			SecondaryTasks: []string{"review design documents", "evaluate trade-offs"},
			Expertise:      []string{"architecture", "design", "scalability", "patterns"},
			RequiredInputs: []string{"requirements", "project_context"},
		},
		AgentCapability{
			AgentName:      "code_generator",
			PrimaryTasks:   []string{"implement features", "write production code", "refactor modules"},
			SecondaryTasks: []string{"fix defects", "apply review feedback"},
			Expertise:      []string{"implementation", "coding", "refactoring"},
			RequiredInputs: []string{"architecture", "requirements"},
		},
		AgentCapability{
			AgentName:      "test_generator",
			PrimaryTasks:   []string{"generate unit tests", "create test cases", "build regression suites"},
			SecondaryTasks: []string{"measure coverage", "write test fixtures"},
			Expertise:      []string{"testing", "coverage", "fixtures", "assertions"},
			RequiredInputs: []string{"code", "requirements"},
		},
		AgentCapability{
			AgentName:      "quality_reviewer",
			PrimaryTasks:   []string{"review code quality", "audit pull requests"},
			SecondaryTasks: []string{"suggest refactorings", "check style conformance"},
			Expertise:      []string{"review", "quality", "linting"},
			RequiredInputs: []string{"code"},
		},
		AgentCapability{
			AgentName:      "doc_writer",
			PrimaryTasks:   []string{"write documentation", "draft user guides"},
			SecondaryTasks: []string{"update changelogs", "polish examples"},
			Expertise:      []string{"documentation", "writing", "markdown"},
			RequiredInputs: []string{"code", "project_context"},
		},
	)
}
