// Package ingest reads ticket input: spreadsheet rows (.xlsx or .csv with
// columns issue_type, project, summary, epic_id, description) and
// semicolon-separated summary lists.
package ingest
