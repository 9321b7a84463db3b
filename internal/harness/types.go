package harness

// Outcome is what one query returned on one backend.
type Outcome struct {
	Query      string   `json:"query"`
	Backend    string   `json:"backend"`
	Identities []string `json:"identities"`
	Count      int64    `json:"count"`
	// Error is the query error code when the query failed as expected.
	Error string `json:"error,omitempty"`
}

// Render is the backend text a query translates to with the SQLite
// dialect and the SPARQL graph layout. A translator that rejects the
// query leaves its field holding the error.
type Render struct {
	Query    string `json:"query"`
	SQL      string `json:"sql"`
	CountSQL string `json:"count_sql"`
	Params   []any  `json:"params"`
	SPARQL   string `json:"sparql"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass indicates overall test success.
	// True if every expectation held on every backend.
	Pass bool `json:"pass"`

	// Errors contains assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Outcomes []Outcome `json:"outcomes"`
	Renders  []Render  `json:"renders"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario: scenario,
		Pass:     true,
		Errors:   []string{},
		Outcomes: []Outcome{},
		Renders:  []Render{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// OutcomesFor returns the outcomes of one query, in backend order.
func (r *Result) OutcomesFor(query string) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Query == query {
			out = append(out, o)
		}
	}
	return out
}
