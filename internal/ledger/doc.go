// Package ledger records which static-analysis findings already produced a
// Jira ticket.
//
// The ledger is a CSV file with the header
// sonar_issue_key,jira_ticket_key,created_date. It is created on first use,
// only ever appended to, and consulted before any finding is turned into a
// ticket. When the same key appears more than once the first row wins and a
// warning is logged. An advisory lock file (<ledger>.lock) keeps two
// invocations from appending at the same time.
package ledger
