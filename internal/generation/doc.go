// Package generation expands short ticket summaries into a description and
// acceptance criteria using a prompt template and a chat model.
//
// Generate always returns exactly one Result per input summary, in order.
// A summary whose backend call keeps failing gets placeholder text and
// Failed set; the rest of the batch continues. A missing template, or one
// without the placeholder token, is reported before any backend call.
//
// ParseResponse is a pure function so the section heuristics can be tested
// on their own.
package generation
