package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeJira()
	c.normalizeSonar()
	c.normalizeLLM()
	if err := c.normalizeGeneration(); err != nil {
		return err
	}
	if err := c.normalizeStatePaths(); err != nil {
		return err
	}
	return c.normalizeLogging()
}

func (c *Config) normalizeJira() {
	c.Jira.BaseURL = strings.TrimRight(strings.TrimSpace(c.Jira.BaseURL), "/")
	if c.Jira.BaseURL == "" {
		c.Jira.BaseURL = defaultJiraBaseURL
	}
	c.Jira.Email = strings.TrimSpace(c.Jira.Email)
	if c.Jira.Email == "" {
		if value, ok := os.LookupEnv("JIRA_EMAIL"); ok {
			c.Jira.Email = strings.TrimSpace(value)
		}
	}
	if value, ok := os.LookupEnv("JIRA_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Jira.APIToken = strings.TrimSpace(value)
	}
	c.Jira.APIToken = strings.TrimSpace(c.Jira.APIToken)
	c.Jira.CategoryField = strings.TrimSpace(c.Jira.CategoryField)
	c.Jira.CategoryValue = strings.TrimSpace(c.Jira.CategoryValue)
	c.Jira.AcceptanceCriteriaField = strings.TrimSpace(c.Jira.AcceptanceCriteriaField)
	c.Jira.ReleaseNotesField = strings.TrimSpace(c.Jira.ReleaseNotesField)
	c.Jira.EpicIssueType = strings.TrimSpace(c.Jira.EpicIssueType)
	if c.Jira.EpicIssueType == "" {
		c.Jira.EpicIssueType = defaultJiraEpicIssueType
	}
	c.Jira.FindingIssueType = strings.TrimSpace(c.Jira.FindingIssueType)
	if c.Jira.FindingIssueType == "" {
		c.Jira.FindingIssueType = defaultJiraFindingIssueType
	}
	c.Jira.FindingProject = strings.TrimSpace(c.Jira.FindingProject)
	c.Jira.FindingParent = strings.TrimSpace(c.Jira.FindingParent)
	if c.Jira.TimeoutSeconds <= 0 {
		c.Jira.TimeoutSeconds = defaultJiraTimeoutSeconds
	}
}

func (c *Config) normalizeSonar() {
	c.Sonar.BaseURL = strings.TrimRight(strings.TrimSpace(c.Sonar.BaseURL), "/")
	if value, ok := os.LookupEnv("SONAR_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Sonar.Token = strings.TrimSpace(value)
	}
	c.Sonar.Token = strings.TrimSpace(c.Sonar.Token)
	if c.Sonar.TimeoutSeconds <= 0 {
		c.Sonar.TimeoutSeconds = defaultSonarTimeoutSeconds
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.API = strings.ToLower(strings.TrimSpace(c.LLM.API))
	if c.LLM.API == "" {
		c.LLM.API = defaultLLMAPI
	}
	if value, ok := os.LookupEnv("OLLAMA_HOST"); ok && strings.TrimSpace(value) != "" && c.LLM.API == "ollama" {
		c.LLM.BaseURL = value
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if !strings.Contains(c.LLM.BaseURL, "://") {
		c.LLM.BaseURL = "http://" + c.LLM.BaseURL
	}
	if value, ok := os.LookupEnv("OLLAMA_MODEL"); ok && strings.TrimSpace(value) != "" {
		c.LLM.Model = value
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.MaxAttempts <= 0 {
		c.LLM.MaxAttempts = defaultLLMMaxAttempts
	}
	if c.LLM.RetryBackoffSeconds < 0 {
		c.LLM.RetryBackoffSeconds = 0
	}
	if c.LLM.MaxBackoffSeconds <= 0 {
		c.LLM.MaxBackoffSeconds = defaultLLMMaxBackoffSeconds
	}
}

func (c *Config) normalizeGeneration() error {
	var err error
	if strings.TrimSpace(c.Generation.TemplatePath) == "" {
		c.Generation.TemplatePath = defaultTemplatePath
	}
	if c.Generation.TemplatePath, err = expandPath(c.Generation.TemplatePath); err != nil {
		return fmt.Errorf("generation.template_path: %w", err)
	}
	if strings.TrimSpace(c.Generation.OutputDir) == "" {
		c.Generation.OutputDir = defaultOutputDir
	}
	if c.Generation.OutputDir, err = expandPath(c.Generation.OutputDir); err != nil {
		return fmt.Errorf("generation.output_dir: %w", err)
	}
	c.Generation.SystemPrompt = strings.TrimSpace(c.Generation.SystemPrompt)
	if c.Generation.SystemPrompt == "" {
		c.Generation.SystemPrompt = defaultSystemPrompt
	}
	return nil
}

func (c *Config) normalizeStatePaths() error {
	var err error
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = defaultLedgerPath
	}
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	if strings.TrimSpace(c.Archive.Path) == "" {
		c.Archive.Path = defaultArchivePath
	}
	if c.Archive.Path, err = expandPath(c.Archive.Path); err != nil {
		return fmt.Errorf("archive.path: %w", err)
	}
	if strings.TrimSpace(c.Spreadsheet.Path) != "" {
		if c.Spreadsheet.Path, err = expandPath(c.Spreadsheet.Path); err != nil {
			return fmt.Errorf("spreadsheet.path: %w", err)
		}
	}
	c.Spreadsheet.Sheet = strings.TrimSpace(c.Spreadsheet.Sheet)
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.Dir) != "" {
		var err error
		if c.Logging.Dir, err = expandPath(c.Logging.Dir); err != nil {
			return fmt.Errorf("logging.dir: %w", err)
		}
	}
	return nil
}
