// Package sonar resolves SonarQube finding keys via /api/issues/search.
package sonar
