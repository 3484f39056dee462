// Package config loads, normalizes, and validates ticketsmith configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// JIRA_TOKEN, SONAR_TOKEN and OLLAMA_MODEL. The Config value is built once at
// process start and passed by pointer to every component, so endpoints and
// credentials never live in package-level state.
package config
