// Package pipeline composes agents into a single step-producing executable.
package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gethired/jobagents/internal/agent"
	"github.com/gethired/jobagents/internal/domain"
	"github.com/gethired/jobagents/internal/engine"
	"github.com/gethired/jobagents/internal/lease"
	"github.com/gethired/jobagents/internal/session"
	"github.com/gethired/jobagents/internal/stream"
)

// Runner produces the step event stream for one task.
type Runner interface {
	Run(ctx context.Context, userID, sessionID string, message domain.Content) *stream.Stream
}

// Sequential executes its agents strictly in declared order. Agents are
// coupled through session state: every state delta an agent emits is
// persisted before the next agent starts, and each agent receives the state
// accumulated so far.
type Sequential struct {
	name        string
	description string
	app         string

	agents   []*agent.Agent
	leases   *lease.Stack
	engine   engine.Engine
	sessions session.Store
}

// Compose builds the pipeline, acquiring one toolset lease per agent. When
// the N-th builder fails, the leases already acquired are released before the
// error is returned.
func Compose(ctx context.Context, name, description, app string, eng engine.Engine, sessions session.Store, builders ...agent.Builder) (*Sequential, error) {
	stack := lease.NewStack()
	agents := make([]*agent.Agent, 0, len(builders))

	for _, build := range builders {
		a, l, err := build(ctx)
		if err != nil {
			stack.Close()
			return nil, err
		}
		if l != nil {
			stack.Push(l)
		}
		agents = append(agents, a)
	}

	return &Sequential{
		name:        name,
		description: description,
		app:         app,
		agents:      agents,
		leases:      stack,
		engine:      eng,
		sessions:    sessions,
	}, nil
}

// Name returns the pipeline name.
func (p *Sequential) Name() string { return p.name }

// Description returns the pipeline description.
func (p *Sequential) Description() string { return p.description }

// Close releases every toolset lease in reverse order of acquisition.
// Idempotent.
func (p *Sequential) Close() error {
	return p.leases.Close()
}

// Run executes the agents in order, forwarding their events on one stream.
// Closing the returned stream cancels whichever agent is executing.
func (p *Sequential) Run(ctx context.Context, userID, sessionID string, message domain.Content) *stream.Stream {
	return stream.Produce(16, func(sctx context.Context, out *stream.Stream) error {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go func() {
			select {
			case <-sctx.Done():
				cancel()
			case <-runCtx.Done():
			}
		}()

		for _, a := range p.agents {
			if err := p.runAgent(runCtx, out, a, userID, sessionID, message); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p *Sequential) runAgent(ctx context.Context, out *stream.Stream, a *agent.Agent, userID, sessionID string, message domain.Content) error {
	state := map[string]interface{}{}
	if sess, err := p.sessions.Get(ctx, p.app, userID, sessionID); err == nil && sess != nil {
		state = sess.State()
	} else if err != nil {
		logrus.WithError(err).WithField("agent", a.Name).Warn("failed to read session state, running with empty state")
	}

	es, err := p.engine.Execute(ctx, &engine.Request{
		Agent:       a.Name,
		Description: a.Description,
		Instruction: a.Instruction,
		Model:       a.Model,
		OutputKey:   a.OutputKey,
		UserID:      userID,
		SessionID:   sessionID,
		Message:     message,
		State:       state,
		Tools:       a.ToolNames(),
	})
	if err != nil {
		return err
	}
	defer es.Close()

	var finalText string
	for {
		ev, err := es.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		if len(ev.StateDelta) > 0 {
			if err := p.sessions.ApplyState(ctx, p.app, userID, sessionID, ev.StateDelta); err != nil {
				logrus.WithError(err).WithField("agent", a.Name).Error("failed to persist state delta")
			}
		}
		if ev.Final && ev.Content != nil && ev.Content.Text() != "" {
			finalText = ev.Content.Text()
		}
		if err := out.Emit(ctx, ev); err != nil {
			return err
		}
	}

	// The agent's final output flows to the next agent through its declared
	// state key.
	if a.OutputKey != "" && finalText != "" {
		delta := map[string]interface{}{a.OutputKey: finalText}
		if err := p.sessions.ApplyState(ctx, p.app, userID, sessionID, delta); err != nil {
			logrus.WithError(err).WithField("agent", a.Name).Error("failed to persist agent output")
		}
		if err := out.Emit(ctx, stream.Event{Author: a.Name, StateDelta: delta, Ts: time.Now().UnixMilli()}); err != nil {
			return err
		}
	}
	return nil
}
