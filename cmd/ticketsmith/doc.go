// Package main hosts the ticketsmith CLI entrypoint and command graph.
//
// Commands load configuration once through the shared command context,
// tag their work with a run id, and hand off to the internal packages:
// generation for ticket text, tickets for the spreadsheet and finding flows,
// ledger and archive for local state. Human progress text and logs go to
// stderr; tables and JSON go to stdout.
package main
