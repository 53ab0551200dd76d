// Package model abstracts the language-model provider behind a synchronous,
// tool-aware client interface. A Response is a closed sum type: a turn either
// concludes with text or requests tool calls, never both, and the agent loop
// switches over the variants exhaustively.
//
// The package also owns the provider error taxonomy (authentication,
// transient, fatal) and the clock-injected retry state machine used by
// Caller, so backoff behavior is testable without real delays. Provider
// adapters live in the subpackages model/anthropic and model/openai.
package model
