// Package llm provides the chat client used to enrich ticket text.
//
// Two wire formats are supported: the native Ollama /api/chat endpoint
// (default, stream disabled, temperature passed via options) and any
// OpenAI-compatible chat completions server.
//
// # Retry Behaviour
//
// Every failed attempt is retried, including HTTP errors, network errors,
// and empty replies, up to the configured number of attempts (3 by
// default). The wait after attempt N is N × base (3s by default), capped by
// the configured maximum. Context cancellation aborts immediately.
// ChatRequest.OnRetry lets callers print a diagnostic per failed attempt.
//
// # Entry Points
//
// NewClient: construct a client from Config.
// Client.Chat: send system/user prompts and return the reply text.
// Client.HealthCheck: verify the server is reachable and has the model.
package llm
