// Package jira is a small client for the Jira REST API v2: creating issues
// and searching existing stories with JQL. Requests use basic auth with the
// account email and an API token.
package jira
