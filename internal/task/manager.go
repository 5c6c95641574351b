// Package task turns raw task requests into structured outcomes. The manager
// owns session resolution, pipeline execution with a deadline, state
// accumulation and the error envelope.
package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/gethired/jobagents/internal/domain"
	"github.com/gethired/jobagents/internal/extract"
	"github.com/gethired/jobagents/internal/pipeline"
	"github.com/gethired/jobagents/internal/session"
	"github.com/gethired/jobagents/internal/stream"
)

// Publisher receives a copy of every step event for live observers. A nil
// publisher disables publishing.
type Publisher interface {
	Publish(sessionID string, ev stream.Event)
}

// Config tunes one manager instance.
type Config struct {
	App           string
	Timeout       time.Duration
	KeepRawEvents int
	StateKeys     []string
	Feed          Publisher
}

const defaultKeepRawEvents = 3

// Manager orchestrates single-task execution.
type Manager struct {
	cfg      Config
	runner   pipeline.Runner
	sessions session.Store
}

// NewManager wires the pipeline and session store behind one task entry
// point.
func NewManager(cfg Config, runner pipeline.Runner, sessions session.Store) *Manager {
	if cfg.KeepRawEvents <= 0 {
		cfg.KeepRawEvents = defaultKeepRawEvents
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Manager{cfg: cfg, runner: runner, sessions: sessions}
}

// ProcessTask runs one task to completion. It never returns an error: every
// failure is folded into an outcome with status error and a classified
// error_type, so callers always get a well-formed envelope.
func (m *Manager) ProcessTask(ctx context.Context, req *domain.TaskRequest) *domain.TaskOutcome {
	userID, _ := req.Context["user_id"].(string)
	if strings.TrimSpace(userID) == "" {
		return domain.ErrorOutcome(domain.ErrorKindValidation, "user_id is required in context")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("%s_job_search_%s", userID, uuid.NewString()[:8])
	}

	log := logrus.WithFields(logrus.Fields{"user_id": userID, "session_id": sessionID})

	if _, err := m.resolveSession(ctx, userID, sessionID); err != nil {
		log.WithError(err).Error("session creation failed")
		out := domain.ErrorOutcome(domain.ErrorKindSession, fmt.Sprintf("failed to create session: %v", err))
		out.SessionID = sessionID
		return out
	}

	runCtx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	es := m.runner.Run(runCtx, userID, sessionID, domain.UserText(req.Message))
	defer es.Close()

	var (
		raw       []map[string]interface{}
		collected = map[string]interface{}{}
		finalText string
	)

	for {
		ev, err := es.Next(runCtx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			kind := domain.KindOf(err)
			log.WithError(err).WithField("error_type", kind).Error("task failed")

			var out *domain.TaskOutcome
			if kind == domain.ErrorKindTimeout {
				out = domain.ErrorOutcome(kind, fmt.Sprintf("task timed out after %.0f seconds", m.cfg.Timeout.Seconds()))
				out.Data["timeout"] = m.cfg.Timeout.Seconds()
			} else {
				out = domain.ErrorOutcome(kind, err.Error())
			}
			out.SessionID = sessionID
			return out
		}

		raw = append(raw, rawEvent(ev))
		if len(raw) > m.cfg.KeepRawEvents {
			raw = raw[1:]
		}
		for _, key := range m.cfg.StateKeys {
			if v, ok := ev.StateDelta[key]; ok {
				collected[key] = v
			}
		}
		if ev.Final && ev.Content != nil && ev.Content.Role == domain.RoleModel && ev.Content.Text() != "" {
			finalText = ev.Content.Text()
		}
		if m.cfg.Feed != nil {
			m.cfg.Feed.Publish(sessionID, ev)
		}
	}

	m.backfill(ctx, userID, sessionID, collected)

	out := domain.SuccessOutcome(m.finalMessage(finalText), nil)
	out.SessionID = sessionID
	for key, v := range collected {
		if parsed, ok := extract.Value(v); ok {
			out.Data[key] = parsed
		}
	}
	if len(raw) > 0 {
		out.Data["raw_events"] = raw
	}
	return out
}

// resolveSession looks the session up and creates it when absent. Lookup
// failures are retried once, then treated as absence. Only creation failure
// is reported.
func (m *Manager) resolveSession(ctx context.Context, userID, sessionID string) (*session.Session, error) {
	sess, err := m.sessions.Get(ctx, m.cfg.App, userID, sessionID)
	if err != nil {
		sess, err = m.sessions.Get(ctx, m.cfg.App, userID, sessionID)
	}
	if err != nil {
		logrus.WithError(err).Warn("session lookup failed, creating a fresh session")
	}
	if sess != nil {
		return sess, nil
	}
	return m.sessions.Create(ctx, m.cfg.App, userID, sessionID, nil)
}

// backfill fills recognized keys that never appeared on the stream from the
// session state, so late readers still see what earlier agents produced.
func (m *Manager) backfill(ctx context.Context, userID, sessionID string, collected map[string]interface{}) {
	sess, err := m.sessions.Get(ctx, m.cfg.App, userID, sessionID)
	if err != nil || sess == nil {
		return
	}
	for _, key := range m.cfg.StateKeys {
		if _, ok := collected[key]; ok {
			continue
		}
		if v, ok := sess.Value(key); ok {
			collected[key] = v
		}
	}
}

func (m *Manager) finalMessage(finalText string) string {
	if finalText == "" {
		return "no response generated"
	}
	return finalText
}

func rawEvent(ev stream.Event) map[string]interface{} {
	e := map[string]interface{}{
		"author": ev.Author,
		"final":  ev.Final,
		"ts":     ev.Ts,
	}
	if ev.Content != nil {
		e["text"] = ev.Content.Text()
	}
	if len(ev.StateDelta) > 0 {
		e["state_delta"] = ev.StateDelta
	}
	return e
}
