package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/hupe1980/sqlpilot/core"
	"github.com/hupe1980/sqlpilot/logging"
	"github.com/hupe1980/sqlpilot/model"
	"github.com/hupe1980/sqlpilot/tool"
)

// maxTurnsAnswer is returned when the turn budget runs out before the model
// produces a final text response. It is an answer, not an error: the session
// stays usable for the next question.
const maxTurnsAnswer = "(Agent reached maximum turns without a final answer. Try a more specific question.)"

// emptyAnswer stands in for a model turn with no text and no tool calls.
const emptyAnswer = "(No response from model)"

// StepFunc observes tool dispatches as they happen, e.g. to print an activity
// trace. It must not block for long; it runs inline in the loop.
type StepFunc func(toolName string, args map[string]any)

// Answer is the outcome of one question.
type Answer struct {
	Text    string       // Final natural-language answer
	Sources core.Sources // Tables consulted and queries executed for this question
}

// Options configures an Agent.
type Options struct {
	// MaxTurns bounds the number of model calls per question. Defaults to 25.
	MaxTurns int
	// OnStep, when set, is invoked before each tool dispatch.
	OnStep StepFunc
	// Logger receives loop-level logging. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Agent answers natural-language questions against a data warehouse by
// looping the model over the warehouse tools. One Agent owns one session;
// it is a single logical thread of control and not safe for concurrent Ask
// calls. Run concurrent questions on separate Agent instances.
type Agent struct {
	caller   *model.Caller
	registry *tool.Registry
	session  *core.Session
	limiter  *core.TurnLimiter
	tools    []model.ToolDefinition
	dialect  string
	onStep   StepFunc
	logger   logging.Logger
}

// New creates an agent over a model caller and a tool registry. The dialect
// name parameterizes the system prompt ("postgres", "mysql", "sqlite").
func New(caller *model.Caller, registry *tool.Registry, dialect string, optFns ...func(o *Options)) *Agent {
	opts := Options{
		MaxTurns: 25,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	decls := registry.Declarations()
	tools := make([]model.ToolDefinition, 0, len(decls))
	for _, d := range decls {
		tools = append(tools, model.NewToolDefinition(d.Name, d.Description, d.Parameters))
	}

	return &Agent{
		caller:   caller,
		registry: registry,
		session:  core.NewSession(),
		limiter:  core.NewTurnLimiter(opts.MaxTurns),
		tools:    tools,
		dialect:  dialect,
		onStep:   opts.OnStep,
		logger:   opts.Logger,
	}
}

// Session exposes the agent's conversation state, e.g. for inspection after
// a question or for persisting a transcript.
func (a *Agent) Session() *core.Session { return a.session }

// Preflight verifies provider credentials with a single minimal call. Run it
// once at session start so a bad key fails fast instead of mid-conversation.
func (a *Agent) Preflight(ctx context.Context) error {
	return a.caller.Preflight(ctx)
}

// Ask runs the loop for one question until the model produces a final text
// answer, the turn budget is spent, or the model call fails terminally.
// Failures never corrupt the session: history, query-error memory, and
// tool-call/result pairing stay intact for the next question.
func (a *Agent) Ask(ctx context.Context, question string) (answer *Answer, err error) {
	// Nothing unclassified escapes the loop; a panic ends the question, not
	// the session. Pairing is restored before returning so the next question
	// never sends a dangling tool call to the provider.
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("agent.ask.panic", "recover", fmt.Sprintf("%v", r), "stack", string(debug.Stack()))
			a.repairDanglingCalls()
			answer = nil
			err = fmt.Errorf("internal error while answering the question")
		}
	}()

	a.session.BeginQuestion()
	a.limiter.Reset()
	a.session.Append(core.NewUserText(question))

	for {
		if limitErr := a.limiter.Increment(); limitErr != nil {
			a.logger.Warn("agent.turns.exhausted", "turns", a.limiter.Count()-1)
			return &Answer{Text: maxTurnsAnswer, Sources: a.session.Sources()}, nil
		}

		resp, callErr := a.caller.Call(ctx, model.Request{
			Instructions: systemPrompt(a.dialect, a.session.QueryErrors()),
			Contents:     a.session.History(),
			Tools:        a.tools,
		})
		if callErr != nil {
			return nil, fmt.Errorf("model call failed: %w", callErr)
		}

		switch r := resp.(type) {
		case model.TextResponse:
			text := r.Text
			if text == "" {
				text = emptyAnswer
			}
			a.session.Append(core.NewAssistantText(text))
			return &Answer{Text: text, Sources: a.session.Sources()}, nil
		case model.ToolCallResponse:
			a.session.Append(r.Content)
			a.dispatch(ctx, r.Calls)
		default:
			return nil, fmt.Errorf("unexpected model response type %T", resp)
		}
	}
}

// dispatch executes a tool-call batch strictly in the order the model issued
// it and appends exactly one paired response per call before the next model
// turn. A failed call is reported inline and the batch continues.
func (a *Agent) dispatch(ctx context.Context, calls []core.FunctionCall) {
	responses := make([]core.FunctionResponse, 0, len(calls))
	for _, fc := range calls {
		responses = append(responses, a.invoke(ctx, fc))
	}
	a.session.Append(core.NewToolResponses(responses...))
}

// invoke runs one tool call and folds the outcome into session bookkeeping:
// sources on success, query-error memory for failed SQL, and dispatch errors
// as tool-result data the model can react to.
func (a *Agent) invoke(ctx context.Context, fc core.FunctionCall) core.FunctionResponse {
	a.reportStep(fc)

	result, err := a.registry.Invoke(ctx, fc.Name, fc.Arguments)
	if err != nil {
		a.logger.Warn("agent.tool.failed", "tool", fc.Name, "error", err.Error())
		return core.FunctionResponse{ID: fc.ID, Name: fc.Name, Error: err.Error()}
	}

	if result.Source != nil {
		a.session.AddSource(result.Source)
	}
	if result.QueryError != nil {
		a.session.RecordQueryError(result.QueryError.SQL, result.QueryError.Message)
	}
	return core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result.Payload}
}

// repairDanglingCalls pairs any unanswered tool calls at the history tail
// with error responses. A panic between appending a tool-call turn and
// appending its results would otherwise leave calls without matching results,
// which providers reject on the next turn. History is append-only, so
// unanswered calls can only sit in the final entry.
func (a *Agent) repairDanglingCalls() {
	history := a.session.History()
	if len(history) == 0 {
		return
	}
	last := history[len(history)-1]
	if last.Role != core.RoleAssistant {
		return
	}
	calls := last.FunctionCalls()
	if len(calls) == 0 {
		return
	}

	responses := make([]core.FunctionResponse, 0, len(calls))
	for _, fc := range calls {
		responses = append(responses, core.FunctionResponse{
			ID:    fc.ID,
			Name:  fc.Name,
			Error: "tool execution aborted before producing a result",
		})
	}
	a.session.Append(core.NewToolResponses(responses...))
}

func (a *Agent) reportStep(fc core.FunctionCall) {
	if a.onStep == nil {
		return
	}
	args := map[string]any{}
	if fc.Arguments != "" {
		_ = json.Unmarshal([]byte(fc.Arguments), &args)
	}
	a.onStep(fc.Name, args)
}
