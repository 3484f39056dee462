package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"ticketsmith/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config whose writable paths live under a per-test
// temp directory. Network endpoints are left at their defaults.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Ledger.Path = filepath.Join(base, "data", "sonar_tickets_created.csv")
	cfgVal.Archive.Path = filepath.Join(base, "data", "history.db")
	cfgVal.Generation.OutputDir = filepath.Join(base, "output")
	cfgVal.Generation.TemplatePath = filepath.Join(base, "template.txt")
	cfgVal.Logging.Dir = ""
	cfgVal.LLM.RetryBackoffSeconds = 0
	cfgVal.LLM.MaxBackoffSeconds = 0

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithJira points the Jira section at baseURL with test credentials.
func WithJira(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Jira.BaseURL = baseURL
		b.cfg.Jira.Email = "dev@example.com"
		b.cfg.Jira.APIToken = "token"
		b.cfg.Jira.FindingProject = "SEC"
	}
}

// WithSonar points the Sonar section at baseURL.
func WithSonar(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sonar.BaseURL = baseURL
		b.cfg.Sonar.Token = "sonar-token"
	}
}

// WithLLM points the generation backend at baseURL.
func WithLLM(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.BaseURL = baseURL
	}
}

// WithTemplate writes body to the configured template path.
func WithTemplate(body string) ConfigOption {
	return func(b *configBuilder) {
		if err := os.WriteFile(b.cfg.Generation.TemplatePath, []byte(body), 0o644); err != nil {
			b.t.Fatalf("write template: %v", err)
		}
	}
}

// WithArchive toggles the generation archive.
func WithArchive(enabled bool) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Archive.Enabled = enabled
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Generation.OutputDir)
}

// WriteFile writes body to path, creating parent directories.
func WriteFile(t testing.TB, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
