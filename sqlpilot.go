// Package sqlpilot provides a high-level façade for answering natural-language
// questions against a SQL data warehouse. Most applications interact with this
// package by:
//  1. Opening a Pilot via New() with a provider client and a database handle
//  2. Running Preflight() once to confirm credentials
//  3. Calling Ask() per question; each Pilot owns one conversation
//
// The façade wires the warehouse data layer, the tool registry, the retrying
// model caller and the agent loop. All defaults are safe for local use; supply
// a structured logger and tuned limits for anything beyond that.
package sqlpilot

import (
	"context"
	"database/sql"

	"github.com/hupe1980/sqlpilot/agent"
	"github.com/hupe1980/sqlpilot/core"
	"github.com/hupe1980/sqlpilot/logging"
	"github.com/hupe1980/sqlpilot/model"
	"github.com/hupe1980/sqlpilot/tool"
	"github.com/hupe1980/sqlpilot/warehouse"
)

// Options configures a Pilot.
type Options struct {
	// MaxTurns bounds the number of model calls per question.
	MaxTurns int

	// SampleLimit and MaxSampleLimit control the sample_data tool; QueryRowCap
	// bounds execute_query results.
	SampleLimit    int
	MaxSampleLimit int
	QueryRowCap    int

	// Retryer drives the model-call retry schedule.
	Retryer model.Retryer

	// OnStep, when set, observes each tool dispatch (progress reporting).
	OnStep agent.StepFunc

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Pilot aggregates the warehouse, the tool registry, the model caller and the
// agent loop behind a question-answering API. One Pilot owns one conversation;
// create a Pilot per concurrent session.
type Pilot struct {
	warehouse *warehouse.Warehouse
	agent     *agent.Agent
}

// New builds a Pilot over an open database handle. The dialect selects the
// catalog introspection queries and parameterizes the system prompt.
func New(client model.Client, db *sql.DB, dialect warehouse.Dialect, optFns ...func(o *Options)) (*Pilot, error) {
	opts := Options{
		MaxTurns:       25,
		SampleLimit:    5,
		MaxSampleLimit: 10,
		QueryRowCap:    100,
		Retryer:        model.NewRetryer(),
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	wh := warehouse.New(db, dialect, func(o *warehouse.Options) {
		o.SampleLimit = opts.SampleLimit
		o.MaxSampleLimit = opts.MaxSampleLimit
		o.QueryRowCap = opts.QueryRowCap
		o.Logger = opts.Logger
	})

	registry, err := tool.NewRegistry(wh, func(o *tool.Options) {
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	caller := model.NewCaller(client, func(o *model.CallerOptions) {
		o.Retryer = opts.Retryer
		o.Logger = opts.Logger
	})

	a := agent.New(caller, registry, dialect.Name(), func(o *agent.Options) {
		o.MaxTurns = opts.MaxTurns
		o.OnStep = opts.OnStep
		o.Logger = opts.Logger
	})

	return &Pilot{warehouse: wh, agent: a}, nil
}

// Open opens a database/sql connection and builds a Pilot over it. The driver
// must be registered by the caller (import the driver package for side
// effects). Close releases the connection.
func Open(client model.Client, driverName, dsn string, dialect warehouse.Dialect, optFns ...func(o *Options)) (*Pilot, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	return New(client, db, dialect, optFns...)
}

// Preflight checks warehouse connectivity and provider credentials before the
// first question. Auth failures surface here as terminal errors.
func (p *Pilot) Preflight(ctx context.Context) error {
	if err := p.warehouse.Ping(ctx); err != nil {
		return err
	}
	return p.agent.Preflight(ctx)
}

// Ask answers one question, running the model/tool loop to completion.
func (p *Pilot) Ask(ctx context.Context, question string) (*agent.Answer, error) {
	return p.agent.Ask(ctx, question)
}

// Session exposes the conversation state of this Pilot.
func (p *Pilot) Session() *core.Session { return p.agent.Session() }

// Warehouse exposes the underlying data layer, e.g. for direct introspection.
func (p *Pilot) Warehouse() *warehouse.Warehouse { return p.warehouse }

// Close closes the underlying database handle.
func (p *Pilot) Close() error { return p.warehouse.Close() }
