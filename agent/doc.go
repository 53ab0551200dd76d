// Package agent implements the question-answering loop. Each question runs
// the model against the full conversation history plus tool declarations;
// tool-call turns are dispatched sequentially against the warehouse and their
// results fed back, until the model produces a final text answer or the turn
// budget is spent.
package agent
