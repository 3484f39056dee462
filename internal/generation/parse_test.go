package generation

import "testing"

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Parsed
	}{
		{
			name:  "both sections",
			input: "User Story\nAs a user...\nAcceptance Criteria\nGiven X then Y",
			want:  Parsed{Description: "As a user...", AcceptanceCriteria: "Given X then Y"},
		},
		{
			name:  "blank lines and indentation dropped",
			input: "Title: Export\n\n## USER STORY\n  As an admin\n\n  I want exports\n### Acceptance criteria:\n- one\n\n- two\n",
			want:  Parsed{Description: "As an admin\nI want exports", AcceptanceCriteria: "- one\n- two"},
		},
		{
			name:  "no acceptance marker runs to end",
			input: "user story\nline one\nline two",
			want:  Parsed{Description: "line one\nline two"},
		},
		{
			name:  "acceptance only",
			input: "Intro\nAcceptance Criteria\n- works",
			want:  Parsed{AcceptanceCriteria: "- works"},
		},
		{
			name:  "acceptance before story leaves description empty",
			input: "Acceptance Criteria\n- a\nUser Story\n- b",
			want:  Parsed{AcceptanceCriteria: "- a\nUser Story\n- b"},
		},
		{
			name:  "no markers falls back",
			input: "  Just some prose\nwith two lines  ",
			want: Parsed{
				Description:        "Just some prose\nwith two lines",
				AcceptanceCriteria: FallbackAcceptanceCriteria,
				FallbackUsed:       true,
			},
		},
		{
			name:  "markers with empty sections fall back",
			input: "User Story\n\nAcceptance Criteria\n",
			want: Parsed{
				Description:        "User Story\n\nAcceptance Criteria",
				AcceptanceCriteria: FallbackAcceptanceCriteria,
				FallbackUsed:       true,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseResponse(tt.input)
			if got != tt.want {
				t.Fatalf("ParseResponse(%q)\n got  %+v\n want %+v", tt.input, got, tt.want)
			}
		})
	}
}
