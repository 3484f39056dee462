package tickets

import (
	"strconv"
	"strings"
)

// Draft is a ticket that has not been submitted yet.
type Draft struct {
	IssueType          string `json:"issue_type"`
	Project            string `json:"project"`
	Summary            string `json:"summary"`
	Description        string `json:"description,omitempty"`
	AcceptanceCriteria string `json:"acceptance_criteria,omitempty"`
	ParentKey          string `json:"parent_key,omitempty"`
	EpicID             string `json:"epic_id,omitempty"`
	// Row is the 1-based source row, when the draft came from a spreadsheet.
	Row int `json:"row,omitempty"`
}

// Label identifies the draft in diagnostics.
func (d Draft) Label() string {
	if d.Row > 0 {
		return "row " + strconv.Itoa(d.Row)
	}
	if d.EpicID != "" {
		return "epic " + d.EpicID
	}
	return d.Summary
}

// FieldConfig maps draft attributes onto instance-specific Jira fields.
type FieldConfig struct {
	CategoryField           string
	CategoryValue           string
	AcceptanceCriteriaField string
	EpicIssueType           string
}

const maxSummaryLength = 255

// BuildFields renders the "fields" object for an issue create request.
// Numeric issue types are sent by id, anything else by name.
func BuildFields(d Draft, cfg FieldConfig) map[string]any {
	fields := map[string]any{
		"issuetype": issueTypeRef(d.IssueType),
		"project":   map[string]string{"key": strings.TrimSpace(d.Project)},
		"summary":   truncate(strings.TrimSpace(d.Summary), maxSummaryLength),
	}
	if cfg.CategoryField != "" && cfg.CategoryValue != "" {
		fields[cfg.CategoryField] = map[string]string{"value": cfg.CategoryValue}
	}
	if parent := strings.TrimSpace(d.ParentKey); parent != "" {
		fields["parent"] = map[string]string{"key": parent}
	}

	description := strings.TrimSpace(d.Description)
	criteria := strings.TrimSpace(d.AcceptanceCriteria)
	if criteria != "" {
		if cfg.AcceptanceCriteriaField != "" {
			fields[cfg.AcceptanceCriteriaField] = criteria
		} else {
			description = strings.TrimSpace(description + "\n\nAcceptance Criteria\n" + criteria)
		}
	}
	if description != "" {
		fields["description"] = description
	}
	return fields
}

// IsEpic reports whether issueType names the configured epic type.
func IsEpic(issueType string, cfg FieldConfig) bool {
	want := strings.TrimSpace(cfg.EpicIssueType)
	return want != "" && strings.EqualFold(strings.TrimSpace(issueType), want)
}

func issueTypeRef(issueType string) map[string]string {
	issueType = strings.TrimSpace(issueType)
	if _, err := strconv.Atoi(issueType); err == nil {
		return map[string]string{"id": issueType}
	}
	return map[string]string{"name": issueType}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
