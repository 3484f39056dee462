// Package services defines shared utilities consumed by the ticket workflows
// and their external integrations (Jira, SonarQube, the generation backend).
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, finding keys, batch positions, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     fatal (configuration, write) or absorbable per item.
//
// Integrations live in subpackages so each remote service can be exercised
// against an httptest server in isolation.
package services
