package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/sqlpilot/core"
	"github.com/hupe1980/sqlpilot/model"
	"github.com/hupe1980/sqlpilot/tool"
	"github.com/hupe1980/sqlpilot/warehouse"
)

// stubWarehouse provides canned data-layer answers for loop tests.
type stubWarehouse struct {
	queryResult *warehouse.QueryResult
}

func (s *stubWarehouse) ListSchemas(context.Context) ([]string, error) {
	return []string{"raw", "marts"}, nil
}

func (s *stubWarehouse) ListTables(_ context.Context, _ string) ([]warehouse.Table, error) {
	rows := int64(120)
	return []warehouse.Table{{Name: "orders", Kind: "BASE TABLE", RowCount: &rows}}, nil
}

func (s *stubWarehouse) DescribeTable(_ context.Context, _, _ string) ([]warehouse.Column, error) {
	return []warehouse.Column{{Name: "id", Type: "INTEGER", Nullable: false}}, nil
}

func (s *stubWarehouse) SampleRows(_ context.Context, _, _ string, _ int) (*warehouse.Sample, error) {
	return &warehouse.Sample{Columns: []string{"id"}, Rows: [][]any{{int64(1)}}}, nil
}

func (s *stubWarehouse) ExecuteQuery(_ context.Context, _ string) (*warehouse.QueryResult, error) {
	if s.queryResult != nil {
		return s.queryResult, nil
	}
	return &warehouse.QueryResult{Columns: []string{"n"}, Rows: [][]any{{int64(42)}}, RowCount: 1}, nil
}

// panicWarehouse fails query execution the way a faulty driver would.
type panicWarehouse struct{ stubWarehouse }

func (p *panicWarehouse) ExecuteQuery(context.Context, string) (*warehouse.QueryResult, error) {
	panic("driver fault")
}

// cancelWarehouse cancels the question's context from inside a dispatch.
type cancelWarehouse struct {
	stubWarehouse
	cancel context.CancelFunc
}

func (c *cancelWarehouse) ExecuteQuery(ctx context.Context, _ string) (*warehouse.QueryResult, error) {
	c.cancel()
	return nil, ctx.Err()
}

// ctxClient makes the scripted client respect cancellation between turns.
type ctxClient struct{ *model.ScriptedClient }

func (c *ctxClient) Generate(ctx context.Context, req model.Request) (model.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.ScriptedClient.Generate(ctx, req)
}

// instantRetryer keeps the default schedule but never actually sleeps.
func instantRetryer() model.Retryer {
	r := model.NewRetryer()
	r.Sleep = func(context.Context, time.Duration) error { return nil }
	return r
}

func newTestAgent(t *testing.T, client model.Client, wh tool.Warehouse, optFns ...func(o *Options)) *Agent {
	t.Helper()
	registry, err := tool.NewRegistry(wh)
	require.NoError(t, err)
	caller := model.NewCaller(client, func(o *model.CallerOptions) {
		o.Retryer = instantRetryer()
	})
	return New(caller, registry, "sqlite", optFns...)
}

func TestAgent_AskAnswersAfterToolCalls(t *testing.T) {
	client := model.NewScriptedClient().
		AddToolCalls(core.FunctionCall{ID: "call-1", Name: "list_schemas"}).
		AddToolCalls(core.FunctionCall{ID: "call-2", Name: "execute_query", Arguments: `{"sql":"SELECT count(*) FROM raw.orders"}`}).
		AddText("There are 42 orders.")

	agent := newTestAgent(t, client, &stubWarehouse{})

	answer, err := agent.Ask(context.Background(), "How many orders are there?")
	require.NoError(t, err)
	assert.Equal(t, "There are 42 orders.", answer.Text)

	require.Len(t, answer.Sources.Queries, 1)
	assert.Equal(t, "SELECT count(*) FROM raw.orders", answer.Sources.Queries[0].SQL)
	assert.Equal(t, 1, answer.Sources.Queries[0].RowCount)

	// user, assistant tool call, tool result, assistant tool call, tool
	// result, assistant answer
	history := agent.Session().History()
	require.Len(t, history, 6)
	assert.Equal(t, core.RoleUser, history[0].Role)
	assert.Equal(t, core.RoleAssistant, history[1].Role)
	assert.Equal(t, core.RoleTool, history[2].Role)
	assert.Equal(t, "There are 42 orders.", history[5].Text())
}

func TestAgent_PairsEveryCallWithOneResponse(t *testing.T) {
	client := model.NewScriptedClient().
		AddToolCalls(
			core.FunctionCall{ID: "call-1", Name: "describe_table", Arguments: `{"schema":"raw","table":"orders"}`},
			core.FunctionCall{ID: "call-2", Name: "sample_data", Arguments: `{"schema":"raw","table":"orders"}`},
		).
		AddText("done")

	agent := newTestAgent(t, client, &stubWarehouse{})

	answer, err := agent.Ask(context.Background(), "What does orders look like?")
	require.NoError(t, err)
	assert.Equal(t, "done", answer.Text)
	assert.Equal(t, []string{"raw.orders"}, answer.Sources.Tables)

	history := agent.Session().History()
	require.Len(t, history, 4)

	calls := history[1].FunctionCalls()
	responses := history[2].FunctionResponses()
	require.Len(t, responses, len(calls))
	for i, fc := range calls {
		assert.Equal(t, fc.ID, responses[i].ID)
		assert.Equal(t, fc.Name, responses[i].Name)
	}
}

func TestAgent_UnknownToolReportedInline(t *testing.T) {
	client := model.NewScriptedClient().
		AddToolCalls(
			core.FunctionCall{ID: "call-1", Name: "drop_database"},
			core.FunctionCall{ID: "call-2", Name: "list_schemas"},
		).
		AddText("recovered")

	agent := newTestAgent(t, client, &stubWarehouse{})

	answer, err := agent.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer.Text)

	responses := agent.Session().History()[2].FunctionResponses()
	require.Len(t, responses, 2)
	assert.Contains(t, responses[0].Error, "UNKNOWN_TOOL")
	assert.Empty(t, responses[1].Error, "batch continues past a failed call")
	assert.NotNil(t, responses[1].Response)
}

func TestAgent_FailedQueryEntersErrorMemory(t *testing.T) {
	wh := &stubWarehouse{queryResult: &warehouse.QueryResult{Error: "no such table: raw.orderz"}}
	client := model.NewScriptedClient().
		AddToolCalls(core.FunctionCall{ID: "call-1", Name: "execute_query", Arguments: `{"sql":"SELECT * FROM raw.orderz"}`}).
		AddText("the table does not exist").
		AddText("second answer")

	agent := newTestAgent(t, client, wh)

	answer, err := agent.Ask(context.Background(), "q1")
	require.NoError(t, err)
	assert.Equal(t, "the table does not exist", answer.Text)
	assert.Empty(t, answer.Sources.Queries, "failed queries are not sources")

	require.Len(t, agent.Session().QueryErrors(), 1)
	assert.Equal(t, "SELECT * FROM raw.orderz", agent.Session().QueryErrors()[0].SQL)

	_, err = agent.Ask(context.Background(), "q2")
	require.NoError(t, err)

	// The next question's system prompt carries the failed SQL.
	last := client.Requests[len(client.Requests)-1]
	assert.Contains(t, last.Instructions, "SELECT * FROM raw.orderz")
	assert.Contains(t, last.Instructions, "no such table")
}

func TestAgent_MaxTurnsYieldsTimeoutAnswer(t *testing.T) {
	client := model.NewScriptedClient()
	for i := 0; i < 3; i++ {
		client.AddToolCalls(core.FunctionCall{ID: "c", Name: "list_schemas"})
	}

	agent := newTestAgent(t, client, &stubWarehouse{}, func(o *Options) {
		o.MaxTurns = 2
	})

	answer, err := agent.Ask(context.Background(), "q")
	require.NoError(t, err, "turn exhaustion is an answer, not an error")
	assert.Equal(t, maxTurnsAnswer, answer.Text)

	// Two full turns: user + 2x (assistant call + tool result), pairing intact.
	assert.Equal(t, 5, agent.Session().Len())
}

func TestAgent_RetryExhaustionEndsQuestionNotSession(t *testing.T) {
	client := model.NewScriptedClient()
	for i := 0; i < 4; i++ {
		client.AddError(model.Classify(429, "rate limited", nil))
	}

	agent := newTestAgent(t, client, &stubWarehouse{})

	_, err := agent.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrExhaustedRetries))

	// The question stays in history; no dangling tool calls.
	assert.Equal(t, 1, agent.Session().Len())
}

func TestAgent_PanicDuringDispatchRepairsPairing(t *testing.T) {
	client := model.NewScriptedClient().
		AddToolCalls(core.FunctionCall{ID: "call-1", Name: "execute_query", Arguments: `{"sql":"SELECT 1"}`}).
		AddText("still alive")

	agent := newTestAgent(t, client, &panicWarehouse{})

	_, err := agent.Ask(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "internal error")

	// The tool-call turn was already in history when the dispatch blew up;
	// it must still end up with a paired error response.
	history := agent.Session().History()
	require.Len(t, history, 3)
	calls := history[1].FunctionCalls()
	responses := history[2].FunctionResponses()
	require.Len(t, responses, len(calls))
	assert.Equal(t, "call-1", responses[0].ID)
	assert.NotEmpty(t, responses[0].Error)

	// The session stays usable for the next question.
	answer, err := agent.Ask(context.Background(), "q2")
	require.NoError(t, err)
	assert.Equal(t, "still alive", answer.Text)
}

func TestAgent_CancellationMidDispatchKeepsPairing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &ctxClient{model.NewScriptedClient().
		AddToolCalls(core.FunctionCall{ID: "call-1", Name: "execute_query", Arguments: `{"sql":"SELECT 1"}`})}

	agent := newTestAgent(t, client, &cancelWarehouse{cancel: cancel})

	_, err := agent.Ask(ctx, "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	// The in-flight model call aborted, but the dispatched call already got
	// its paired response.
	history := agent.Session().History()
	require.Len(t, history, 3)
	calls := history[1].FunctionCalls()
	responses := history[2].FunctionResponses()
	require.Len(t, responses, len(calls))
	assert.Equal(t, "call-1", responses[0].ID)
}

func TestAgent_OnStepObservesDispatches(t *testing.T) {
	client := model.NewScriptedClient().
		AddToolCalls(core.FunctionCall{ID: "call-1", Name: "execute_query", Arguments: `{"sql":"SELECT 1"}`}).
		AddText("done")

	var steps []string
	agent := newTestAgent(t, client, &stubWarehouse{}, func(o *Options) {
		o.OnStep = func(toolName string, args map[string]any) {
			steps = append(steps, StepText(toolName, args))
		}
	})

	_, err := agent.Ask(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, "> Executing: SELECT 1", steps[0])
}

func TestSystemPrompt(t *testing.T) {
	prompt := systemPrompt("postgres", nil)
	assert.Contains(t, prompt, "postgres data warehouse")
	assert.Contains(t, prompt, "Use postgres SQL syntax.")
	assert.NotContains(t, prompt, "Failed queries")

	prompt = systemPrompt("mysql", []core.QueryError{{SQL: "SELECT bogus", Message: "unknown column"}})
	assert.Contains(t, prompt, "Failed queries in this session")
	assert.Contains(t, prompt, "SELECT bogus")
	assert.Contains(t, prompt, "unknown column")
}

func TestStepText_TruncatesLongSQL(t *testing.T) {
	sql := ""
	for len(sql) < 200 {
		sql += "SELECT * FROM t UNION ALL "
	}
	text := StepText("execute_query", map[string]any{"sql": sql})
	assert.Len(t, text, len("> Executing: ")+120)
	assert.Contains(t, text, "...")
}
