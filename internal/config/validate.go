package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is internally consistent. Credentials are
// checked lazily by the commands that need them (see RequireJira, RequireSonar)
// so offline commands such as `generate` work without a Jira token.
func (c *Config) Validate() error {
	if err := validateURL("jira.base_url", c.Jira.BaseURL); err != nil {
		return err
	}
	if c.Sonar.BaseURL != "" {
		if err := validateURL("sonar.base_url", c.Sonar.BaseURL); err != nil {
			return err
		}
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		return errors.New("ledger.path must be set")
	}
	if c.Archive.Enabled && strings.TrimSpace(c.Archive.Path) == "" {
		return errors.New("archive.path must be set when archive.enabled is true")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateLLM() error {
	switch c.LLM.API {
	case "ollama", "openai":
	default:
		return fmt.Errorf("llm.api must be \"ollama\" or \"openai\", got %q", c.LLM.API)
	}
	if err := validateURL("llm.base_url", c.LLM.BaseURL); err != nil {
		return err
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxAttempts <= 0 {
		return errors.New("llm.max_attempts must be positive")
	}
	if c.LLM.MaxBackoffSeconds < c.LLM.RetryBackoffSeconds {
		return errors.New("llm.max_backoff_seconds must be at least llm.retry_backoff_seconds")
	}
	return nil
}

// RequireJira reports a descriptive error when issue tracker credentials are missing.
func (c *Config) RequireJira() error {
	if c.Jira.Email == "" {
		return fmt.Errorf("jira.email is required. Set JIRA_EMAIL or edit %s", configHint())
	}
	if c.Jira.APIToken == "" {
		return fmt.Errorf("jira.api_token is required. Set JIRA_TOKEN or edit %s", configHint())
	}
	return nil
}

// RequireSonar reports a descriptive error when SonarQube settings are missing.
func (c *Config) RequireSonar() error {
	if c.Sonar.BaseURL == "" {
		return fmt.Errorf("sonar.base_url is required. Edit %s", configHint())
	}
	if c.Sonar.Token == "" {
		return fmt.Errorf("sonar.token is required. Set SONAR_TOKEN or edit %s", configHint())
	}
	if c.Jira.FindingProject == "" {
		return fmt.Errorf("jira.finding_project is required to file findings. Edit %s", configHint())
	}
	return nil
}

func configHint() string {
	path, err := DefaultConfigPath()
	if err != nil {
		return defaultConfigPath
	}
	return path + " (create with 'ticketsmith config init')"
}

func validateURL(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", field)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", field, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", field, value)
	}
	return nil
}
