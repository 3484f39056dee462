package config

const (
	defaultConfigPath             = "~/.config/ticketsmith/config.toml"
	defaultJiraBaseURL            = "https://your-domain.atlassian.net/rest/api/2"
	defaultJiraCategoryField      = "customfield_15377"
	defaultJiraCategoryValue      = "Review Workspace"
	defaultJiraAcceptanceField    = "customfield_11930"
	defaultJiraReleaseNotesField  = "customfield_15510"
	defaultJiraEpicIssueType      = "Epic"
	defaultJiraFindingIssueType   = "Bug"
	defaultJiraTimeoutSeconds     = 30
	defaultSonarTimeoutSeconds    = 30
	defaultLLMAPI                 = "ollama"
	defaultLLMBaseURL             = "http://localhost:11434"
	defaultLLMModel               = "phi3"
	defaultLLMTemperature         = 0.2
	defaultLLMTimeoutSeconds      = 300
	defaultLLMMaxAttempts         = 3
	defaultLLMRetryBackoffSeconds = 3
	defaultLLMMaxBackoffSeconds   = 30
	defaultTemplatePath           = "~/.config/ticketsmith/template.txt"
	defaultOutputDir              = "documentation/output"
	defaultLedgerPath             = "~/.local/share/ticketsmith/sonar_tickets_created.csv"
	defaultArchivePath            = "~/.local/share/ticketsmith/history.db"
	defaultSpreadsheetPath        = "tickets_to_create.xlsx"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultSystemPrompt           = "You are an expert product manager crafting precise JIRA tickets. Follow the user's template exactly."
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Jira: Jira{
			BaseURL:                 defaultJiraBaseURL,
			CategoryField:           defaultJiraCategoryField,
			CategoryValue:           defaultJiraCategoryValue,
			AcceptanceCriteriaField: defaultJiraAcceptanceField,
			ReleaseNotesField:       defaultJiraReleaseNotesField,
			EpicIssueType:           defaultJiraEpicIssueType,
			FindingIssueType:        defaultJiraFindingIssueType,
			TimeoutSeconds:          defaultJiraTimeoutSeconds,
		},
		Sonar: Sonar{
			TimeoutSeconds: defaultSonarTimeoutSeconds,
		},
		LLM: LLM{
			API:                 defaultLLMAPI,
			BaseURL:             defaultLLMBaseURL,
			Model:               defaultLLMModel,
			Temperature:         defaultLLMTemperature,
			TimeoutSeconds:      defaultLLMTimeoutSeconds,
			MaxAttempts:         defaultLLMMaxAttempts,
			RetryBackoffSeconds: defaultLLMRetryBackoffSeconds,
			MaxBackoffSeconds:   defaultLLMMaxBackoffSeconds,
		},
		Generation: Generation{
			TemplatePath: defaultTemplatePath,
			SystemPrompt: defaultSystemPrompt,
			OutputDir:    defaultOutputDir,
		},
		Ledger: Ledger{
			Path: defaultLedgerPath,
		},
		Archive: Archive{
			Enabled: true,
			Path:    defaultArchivePath,
		},
		Spreadsheet: Spreadsheet{
			Path: defaultSpreadsheetPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
