package harness

// StepResult is the outcome of one step as read back from the journal.
type StepResult struct {
	Kind   string `json:"kind"`
	PassID string `json:"pass_id"`
	Status string `json:"status"`
	// Mutations lists the kinds of the journaled mutations in order.
	Mutations []string `json:"mutations"`
	Error     string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every step expectation and assertion held.
	Pass bool `json:"pass"`

	Steps []StepResult `json:"steps"`

	// Document is the final markup.
	Document string `json:"document"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// TotalMutations sums the journaled mutations of all steps.
func (r *Result) TotalMutations() int {
	n := 0
	for _, s := range r.Steps {
		n += len(s.Mutations)
	}
	return n
}
