// Package tickets turns drafts into Jira issues.
//
// FindingFlow handles static-analysis findings and consults the ledger so a
// finding never produces a second ticket. SpreadsheetFlow handles rows read
// from a workbook, creating epics before the rows that point at them.
// BuildFields is the single place that knows the shape of a create payload.
package tickets
