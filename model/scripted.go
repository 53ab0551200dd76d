package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/sqlpilot/core"
)

type scriptedStep struct {
	resp Response
	err  error
}

// ScriptedClient is a lightweight in-memory Client useful for tests and
// examples. Each Generate call consumes the next scripted step in order.
type ScriptedClient struct {
	steps    []scriptedStep
	next     int
	PingErr  error     // returned by Ping
	Requests []Request // every request seen, in order
}

// NewScriptedClient constructs an empty script; chain Add* calls to fill it.
func NewScriptedClient() *ScriptedClient {
	return &ScriptedClient{}
}

// AddText scripts a final-text turn.
func (s *ScriptedClient) AddText(text string) *ScriptedClient {
	s.steps = append(s.steps, scriptedStep{resp: TextResponse{Text: text}})
	return s
}

// AddToolCalls scripts a tool-call turn.
func (s *ScriptedClient) AddToolCalls(calls ...core.FunctionCall) *ScriptedClient {
	parts := make([]core.Part, 0, len(calls))
	for _, fc := range calls {
		parts = append(parts, core.FunctionCallPart{FunctionCall: fc})
	}
	s.steps = append(s.steps, scriptedStep{resp: ToolCallResponse{
		Content: core.Content{Role: core.RoleAssistant, Parts: parts},
		Calls:   calls,
	}})
	return s
}

// AddError scripts a failing turn.
func (s *ScriptedClient) AddError(err error) *ScriptedClient {
	s.steps = append(s.steps, scriptedStep{err: err})
	return s
}

// Generate implements Client by replaying the script.
func (s *ScriptedClient) Generate(_ context.Context, req Request) (Response, error) {
	s.Requests = append(s.Requests, req)
	if s.next >= len(s.steps) {
		return nil, fmt.Errorf("scripted client: no step for call %d", s.next+1)
	}
	step := s.steps[s.next]
	s.next++
	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}

// Ping implements Client.
func (s *ScriptedClient) Ping(context.Context) error { return s.PingErr }

// Info implements Client.
func (s *ScriptedClient) Info() Info {
	return Info{Name: "scripted", Provider: "scripted", SupportsTools: true}
}
