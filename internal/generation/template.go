package generation

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"ticketsmith/internal/services"
)

// Placeholder is the token replaced by the ticket summary when rendering.
const Placeholder = "[TICKET DESCRIPTION GOES HERE]"

// Template is a prompt body containing exactly one Placeholder.
type Template struct {
	Path string
	body string
}

// NewTemplate validates body and returns a Template.
func NewTemplate(body string) (Template, error) {
	switch count := strings.Count(body, Placeholder); {
	case count == 0:
		return Template{}, services.Wrap(
			services.ErrConfiguration,
			"generation",
			"template",
			fmt.Sprintf("template must contain the exact placeholder %s", Placeholder),
			nil,
		)
	case count > 1:
		return Template{}, services.Wrap(
			services.ErrConfiguration,
			"generation",
			"template",
			fmt.Sprintf("template contains placeholder %s %d times, expected once", Placeholder, count),
			nil,
		)
	}
	return Template{body: body}, nil
}

// LoadTemplate reads and validates the template at path.
func LoadTemplate(path string) (Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		msg := "read template " + path
		if errors.Is(err, fs.ErrNotExist) {
			msg = "template not found: " + path
		}
		return Template{}, services.Wrap(services.ErrConfiguration, "generation", "template", msg, err)
	}
	tmpl, err := NewTemplate(string(data))
	if err != nil {
		return Template{}, fmt.Errorf("%s: %w", path, err)
	}
	tmpl.Path = path
	return tmpl, nil
}

// Render substitutes the trimmed summary for the placeholder.
func (t Template) Render(summary string) (string, error) {
	if t.body == "" {
		return "", services.Wrap(services.ErrConfiguration, "generation", "render", "template not loaded", nil)
	}
	return strings.Replace(t.body, Placeholder, strings.TrimSpace(summary), 1), nil
}
