// Package tools implements the MCP tool handlers for the interrogation
// engine.
//
// Each tool is one file: a struct holding its dependencies plus
// Definition/Handle. Caller mistakes — unknown ids, empty batches, malformed
// arguments — come back as tool results, not Go errors; Go errors are
// reserved for infrastructure failures.
package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/probelabs/socratic/internal/engine"
)

// renderResult formats an engine result as the markdown payload returned to
// the MCP client: state line, scores, open questions in engine order, then
// blockers, warnings, and recommendations when present.
func renderResult(title string, r *engine.Result) string {
	var sb strings.Builder

	sb.WriteString("# " + title + "\n\n")
	fmt.Fprintf(&sb, "**Session:** %s | **Epic:** %s | **Status:** %s\n",
		r.SessionID, r.EpicID, r.Status)
	fmt.Fprintf(&sb, "**Round:** %d/%d | **Tier:** %d | **Strategy:** %s\n",
		r.Round, r.MaxRounds, r.Tier, r.Strategy)
	fmt.Fprintf(&sb, "**Clarity:** %d/100 (%+d) | **Completeness:** %d/100 | **Ready for spec:** %t\n\n",
		r.ClarityScore, r.ClarityDelta, r.CompletenessScore, r.ReadyForSpec)

	if r.EscapeDenied {
		sb.WriteString("Early termination was requested but **denied**: clarity has not reached the escape threshold. Keep answering.\n\n")
	}

	if len(r.Questions) > 0 {
		fmt.Fprintf(&sb, "## Open Questions (%d)\n\n", len(r.Questions))
		sb.WriteString("Answer with `submit_answers`, referencing each question id.\n\n")
		for _, q := range r.Questions {
			fmt.Fprintf(&sb, "- **[%s]** (%s, %s) %s\n", q.ID, q.Priority, q.Type, q.Text)
			if q.Rationale != "" {
				fmt.Fprintf(&sb, "  - _%s_\n", q.Rationale)
			}
			for _, sa := range q.SuggestedAnswers {
				fmt.Fprintf(&sb, "  - suggested: %s\n", sa)
			}
		}
		sb.WriteString("\n")
	} else if r.Status == "complete" {
		sb.WriteString("No open questions. The interrogation is complete.\n\n")
	}

	if len(r.Blockers) > 0 {
		fmt.Fprintf(&sb, "## Blockers (%d)\n\n", len(r.Blockers))
		sb.WriteString("Resolve with `resolve_contradiction` before the spec can be generated.\n\n")
		for _, b := range r.Blockers {
			fmt.Fprintf(&sb, "- %s\n", b)
		}
		sb.WriteString("\n")
	}

	for _, w := range r.Warnings {
		fmt.Fprintf(&sb, "> **%s** (%s): %s\n", w.Code, w.Severity, w.Message)
		for _, d := range w.Details {
			fmt.Fprintf(&sb, "> - %s\n", d)
		}
		sb.WriteString("\n")
	}

	if len(r.Recommendations) > 0 {
		sb.WriteString("## Recommendations\n\n")
		for _, rec := range r.Recommendations {
			fmt.Fprintf(&sb, "- %s\n", rec)
		}
		sb.WriteString("\n")
	}

	// Machine-readable copy of the same state for clients that parse
	// rather than read.
	if data, err := json.MarshalIndent(r, "", "  "); err == nil {
		sb.WriteString("```json\n")
		sb.Write(data)
		sb.WriteString("\n```\n")
	}

	return sb.String()
}

// splitList parses a newline- or comma-separated string parameter into a
// trimmed list, dropping empties.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	sep := "\n"
	if !strings.Contains(raw, "\n") {
		sep = ","
	}
	var out []string
	for _, item := range strings.Split(raw, sep) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
