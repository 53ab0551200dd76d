// Package core contains the shared conversational domain types used across
// sqlpilot: role-based content with a closed set of part variants, the
// session state that accumulates a conversation across questions, source
// attribution records, and the per-question turn limiter.
//
// Everything in this package is provider-neutral. Model adapters translate
// Content/Part values into vendor message formats; the agent loop and tool
// registry operate on them directly.
package core
