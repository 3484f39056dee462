package generation

import "strings"

const (
	userStoryMarker          = "user story"
	acceptanceCriteriaMarker = "acceptance criteria"

	// FallbackAcceptanceCriteria is used when a reply has no recognizable sections.
	FallbackAcceptanceCriteria = "See description for details."
)

// Parsed holds the sections extracted from a model reply.
type Parsed struct {
	Description        string
	AcceptanceCriteria string
	// FallbackUsed is set when neither section could be located and the
	// whole reply became the description.
	FallbackUsed bool
}

// ParseResponse splits a reply into description and acceptance criteria.
//
// The first line mentioning "user story" opens the description; the first
// other line mentioning "acceptance criteria" opens the criteria. Matching is
// case-insensitive and blank lines are dropped. When both sections come out
// empty the trimmed reply is returned as the description.
func ParseResponse(text string) Parsed {
	text = strings.TrimSpace(text)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	storyAt, criteriaAt := -1, -1
	for i, line := range lines {
		lower := strings.ToLower(line)
		switch {
		case storyAt == -1 && strings.Contains(lower, userStoryMarker):
			storyAt = i
		case criteriaAt == -1 && strings.Contains(lower, acceptanceCriteriaMarker):
			criteriaAt = i
		}
	}

	var parsed Parsed
	if storyAt != -1 {
		end := len(lines)
		if criteriaAt != -1 {
			end = criteriaAt
		}
		if end > storyAt {
			parsed.Description = joinNonBlank(lines[storyAt+1 : end])
		}
	}
	if criteriaAt != -1 {
		parsed.AcceptanceCriteria = joinNonBlank(lines[criteriaAt+1:])
	}

	if parsed.Description == "" && parsed.AcceptanceCriteria == "" {
		return Parsed{
			Description:        text,
			AcceptanceCriteria: FallbackAcceptanceCriteria,
			FallbackUsed:       true,
		}
	}
	return parsed
}

func joinNonBlank(lines []string) string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}
