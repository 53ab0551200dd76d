package model

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/sqlpilot/logging"
)

// CallerOptions configures a Caller.
type CallerOptions struct {
	// Retryer drives the transient-failure retry schedule.
	Retryer Retryer
	// Logger receives per-call and per-retry logging. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Caller wraps a Client with retry/backoff and logging. It is the only way
// the agent loop talks to a provider.
type Caller struct {
	client  Client
	retryer Retryer
	logger  logging.Logger
}

// NewCaller wraps a provider client.
func NewCaller(client Client, optFns ...func(o *CallerOptions)) *Caller {
	opts := CallerOptions{
		Retryer: NewRetryer(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Caller{client: client, retryer: opts.Retryer, logger: opts.Logger}
}

// Preflight performs a single minimal credential check. Authentication
// failures are terminal and never retried, so a bad key surfaces before the
// first question rather than mid-conversation.
func (c *Caller) Preflight(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		if IsAuth(err) {
			return fmt.Errorf("authentication failed for %s: %w", c.client.Info().Provider, err)
		}
		return err
	}
	return nil
}

// Call performs one model turn with the configured retry schedule. Transient
// failures are retried with backoff; auth and fatal failures propagate on
// first occurrence; exhaustion wraps ErrExhaustedRetries.
func (c *Caller) Call(ctx context.Context, req Request) (Response, error) {
	var resp Response
	attempt := 0

	err := c.retryer.Do(ctx, func() error {
		attempt++
		start := time.Now()
		r, err := c.client.Generate(ctx, req)
		if err != nil {
			c.logger.Warn("model.call.failed",
				"provider", c.client.Info().Provider,
				"attempt", attempt,
				"error", err.Error(),
			)
			return err
		}
		c.logger.Info("model.call.success",
			"provider", c.client.Info().Provider,
			"attempt", attempt,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Info exposes the wrapped client's metadata.
func (c *Caller) Info() Info { return c.client.Info() }
