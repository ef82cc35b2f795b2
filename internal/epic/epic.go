// Package epic defines the requirement document under interrogation.
//
// Epics arrive pre-extracted: an external ingestion collaborator (in this
// server, the MCP caller) supplies goals, constraints, acceptance criteria,
// and stakeholders alongside the raw text. The engine treats all of it as
// read-only input — it reacts only to the presence or absence of the
// pre-extracted sections and never re-parses the raw text beyond what the
// structural analyzer needs.
package epic

// Status tracks the epic's lifecycle. The interrogation engine reads it but
// never drives transitions other than draft → interrogating → specified.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusInterrogating Status = "interrogating"
	StatusSpecified     Status = "specified"
	StatusArchived      Status = "archived"
)

// Epic is the raw requirement document plus its pre-extracted structure.
type Epic struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	RawText            string   `json:"raw_text"`
	Goals              []string `json:"goals,omitempty"`
	Constraints        []string `json:"constraints,omitempty"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`
	Stakeholders       []string `json:"stakeholders,omitempty"`
	Status             Status   `json:"status"`
	CreatedAt          string   `json:"created_at"`
	UpdatedAt          string   `json:"updated_at"`
}

// Gaps reports which pre-extracted sections are missing. The question
// generator turns each gap into a template question.
type Gaps struct {
	Goals              bool `json:"goals"`
	AcceptanceCriteria bool `json:"acceptance_criteria"`
	Constraints        bool `json:"constraints"`
	Stakeholders       bool `json:"stakeholders"`
}

// ExtractGaps inspects the pre-extracted sections for emptiness.
func (e *Epic) ExtractGaps() Gaps {
	return Gaps{
		Goals:              len(e.Goals) == 0,
		AcceptanceCriteria: len(e.AcceptanceCriteria) == 0,
		Constraints:        len(e.Constraints) == 0,
		Stakeholders:       len(e.Stakeholders) == 0,
	}
}

// Any returns true if at least one section is missing.
func (g Gaps) Any() bool {
	return g.Goals || g.AcceptanceCriteria || g.Constraints || g.Stakeholders
}
