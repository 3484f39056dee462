package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Jira contains issue tracker connection settings and field mappings.
type Jira struct {
	BaseURL                 string `toml:"base_url"`
	Email                   string `toml:"email"`
	APIToken                string `toml:"api_token"`
	CategoryField           string `toml:"category_field"`
	CategoryValue           string `toml:"category_value"`
	AcceptanceCriteriaField string `toml:"acceptance_criteria_field"`
	ReleaseNotesField       string `toml:"release_notes_field"`
	EpicIssueType           string `toml:"epic_issue_type"`
	FindingIssueType        string `toml:"finding_issue_type"`
	FindingProject          string `toml:"finding_project"`
	FindingParent           string `toml:"finding_parent"`
	TimeoutSeconds          int    `toml:"timeout_seconds"`
	InsecureSkipVerify      bool   `toml:"insecure_skip_verify"`
}

// Sonar contains SonarQube connection settings.
type Sonar struct {
	BaseURL            string `toml:"base_url"`
	Token              string `toml:"token"`
	TimeoutSeconds     int    `toml:"timeout_seconds"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
}

// LLM contains generation backend connection settings.
type LLM struct {
	// API selects the wire format: "ollama" (native /api/chat) or "openai"
	// (chat completions).
	API            string  `toml:"api"`
	BaseURL        string  `toml:"base_url"`
	APIKey         string  `toml:"api_key"`
	Model          string  `toml:"model"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MaxAttempts    int     `toml:"max_attempts"`
	// RetryBackoffSeconds is the base delay; attempt N waits N times this value.
	RetryBackoffSeconds int `toml:"retry_backoff_seconds"`
	MaxBackoffSeconds   int `toml:"max_backoff_seconds"`
}

// Generation contains prompt settings for ticket enrichment.
type Generation struct {
	TemplatePath string `toml:"template_path"`
	SystemPrompt string `toml:"system_prompt"`
	OutputDir    string `toml:"output_dir"`
}

// Ledger contains the location of the finding-to-ticket ledger.
type Ledger struct {
	Path string `toml:"path"`
}

// Archive contains configuration for the generation history database.
type Archive struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Spreadsheet contains defaults for spreadsheet ingestion.
type Spreadsheet struct {
	Path  string `toml:"path"`
	Sheet string `toml:"sheet"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// Config encapsulates all configuration values for ticketsmith.
//
// Configuration sections by subsystem:
//   - Jira: issue tracker endpoint, credentials, and custom field ids
//   - Sonar: static-analysis server used to resolve finding keys
//   - LLM: generation backend and retry policy
//   - Generation: prompt template and output locations
//   - Ledger: finding-to-ticket CSV ledger
//   - Archive: SQLite history of generation results
//   - Spreadsheet: default input workbook
//   - Logging: log format, level, and optional file output
type Config struct {
	Jira        Jira        `toml:"jira"`
	Sonar       Sonar       `toml:"sonar"`
	LLM         LLM         `toml:"llm"`
	Generation  Generation  `toml:"generation"`
	Ledger      Ledger      `toml:"ledger"`
	Archive     Archive     `toml:"archive"`
	Spreadsheet Spreadsheet `toml:"spreadsheet"`
	Logging     Logging     `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("ticketsmith.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the parent directories of every state file.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Ledger.Path)}
	if c.Archive.Enabled {
		dirs = append(dirs, filepath.Dir(c.Archive.Path))
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// JiraTimeout returns the HTTP timeout for issue tracker requests.
func (c *Config) JiraTimeout() time.Duration {
	return time.Duration(c.Jira.TimeoutSeconds) * time.Second
}

// SonarTimeout returns the HTTP timeout for SonarQube requests.
func (c *Config) SonarTimeout() time.Duration {
	return time.Duration(c.Sonar.TimeoutSeconds) * time.Second
}

// RetryBackoff returns the base and maximum delay between generation attempts.
func (c *Config) RetryBackoff() (time.Duration, time.Duration) {
	return time.Duration(c.LLM.RetryBackoffSeconds) * time.Second,
		time.Duration(c.LLM.MaxBackoffSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Redacted returns a copy with credentials masked, suitable for display.
func (c *Config) Redacted() Config {
	clone := *c
	clone.Jira.APIToken = mask(clone.Jira.APIToken)
	clone.Sonar.Token = mask(clone.Sonar.Token)
	clone.LLM.APIKey = mask(clone.LLM.APIKey)
	return clone
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
