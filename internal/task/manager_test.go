package task

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gethired/jobagents/internal/agent"
	"github.com/gethired/jobagents/internal/domain"
	"github.com/gethired/jobagents/internal/engine"
	"github.com/gethired/jobagents/internal/lease"
	"github.com/gethired/jobagents/internal/pipeline"
	"github.com/gethired/jobagents/internal/session"
	"github.com/gethired/jobagents/internal/stream"
)

type fakeRunner struct {
	events []stream.Event
	err    error
	hang   bool

	canceled atomic.Bool
}

func (f *fakeRunner) Run(ctx context.Context, userID, sessionID string, message domain.Content) *stream.Stream {
	return stream.Produce(len(f.events)+1, func(ctx context.Context, s *stream.Stream) error {
		for _, ev := range f.events {
			if err := s.Emit(ctx, ev); err != nil {
				return err
			}
		}
		if f.hang {
			<-ctx.Done()
			f.canceled.Store(true)
			return ctx.Err()
		}
		return f.err
	})
}

type countingStore struct {
	session.Store
	creates atomic.Int32
}

func (c *countingStore) Create(ctx context.Context, app, userID, id string, state map[string]interface{}) (*session.Session, error) {
	c.creates.Add(1)
	return c.Store.Create(ctx, app, userID, id, state)
}

func request(userID, message string) *domain.TaskRequest {
	req := &domain.TaskRequest{Message: message, Context: map[string]interface{}{}}
	if userID != "" {
		req.Context["user_id"] = userID
	}
	return req
}

func newManager(runner *fakeRunner, store session.Store, opts ...func(*Config)) *Manager {
	cfg := Config{
		App:       "job_search_assistant",
		Timeout:   time.Second,
		StateKeys: []string{"user_preferences", "job_listings", "company_research_report"},
	}
	for _, o := range opts {
		o(&cfg)
	}
	return NewManager(cfg, runner, store)
}

func TestProcessTaskRequiresUserID(t *testing.T) {
	store := &countingStore{Store: session.NewMemoryStore()}
	m := newManager(&fakeRunner{}, store)

	out := m.ProcessTask(context.Background(), request("", "find jobs"))
	if out.Status != domain.TaskStatusError {
		t.Fatalf("expected error status, got %s", out.Status)
	}
	if out.Data["error_type"] != string(domain.ErrorKindValidation) {
		t.Fatalf("expected ValidationError, got %v", out.Data["error_type"])
	}
	if store.creates.Load() != 0 {
		t.Fatal("validation failure must not create a session")
	}
}

func TestProcessTaskDerivesSessionID(t *testing.T) {
	store := session.NewMemoryStore()
	m := newManager(&fakeRunner{}, store)

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	if out.Status != domain.TaskStatusSuccess {
		t.Fatalf("expected success, got %s: %s", out.Status, out.Message)
	}
	if !strings.HasPrefix(out.SessionID, "u1_job_search_") {
		t.Fatalf("unexpected session id %q", out.SessionID)
	}
	if sess, _ := store.Get(context.Background(), "job_search_assistant", "u1", out.SessionID); sess == nil {
		t.Fatal("session was not created")
	}
}

func TestProcessTaskReusesExistingSession(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: session.NewMemoryStore()}
	store.Store.Create(ctx, "job_search_assistant", "u1", "s1", map[string]interface{}{
		"user_preferences": map[string]interface{}{"remote": true},
	})
	m := newManager(&fakeRunner{}, store)

	out := m.ProcessTask(ctx, &domain.TaskRequest{
		Message:   "continue",
		Context:   map[string]interface{}{"user_id": "u1"},
		SessionID: "s1",
	})
	if store.creates.Load() != 0 {
		t.Fatal("existing session must be reused, not recreated")
	}
	// Unset keys are backfilled from the session.
	prefs, ok := out.Data["user_preferences"].(map[string]interface{})
	if !ok || prefs["remote"] != true {
		t.Fatalf("expected backfilled preferences, got %v", out.Data["user_preferences"])
	}
}

func TestProcessTaskTimeout(t *testing.T) {
	runner := &fakeRunner{hang: true}
	m := newManager(runner, session.NewMemoryStore(), func(c *Config) {
		c.Timeout = 50 * time.Millisecond
	})

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	if out.Data["error_type"] != string(domain.ErrorKindTimeout) {
		t.Fatalf("expected TimeoutError, got %v", out.Data["error_type"])
	}
	if out.Data["timeout"] != 0.05 {
		t.Fatalf("expected timeout seconds in data, got %v", out.Data["timeout"])
	}

	// The hung producer must observe cancellation.
	deadline := time.Now().Add(time.Second)
	for !runner.canceled.Load() {
		if time.Now().After(deadline) {
			t.Fatal("producer was not canceled on timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestProcessTaskClassifiesPipelineFailure(t *testing.T) {
	runner := &fakeRunner{err: domain.Errorf(domain.ErrorKindPipeline, "agent exploded")}
	m := newManager(runner, session.NewMemoryStore())

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	if out.Status != domain.TaskStatusError {
		t.Fatalf("expected error status, got %s", out.Status)
	}
	if out.Data["error_type"] != string(domain.ErrorKindPipeline) {
		t.Fatalf("expected PipelineError, got %v", out.Data["error_type"])
	}
	if out.SessionID == "" {
		t.Fatal("error outcome must carry the session id")
	}
}

func TestProcessTaskLatestStateWins(t *testing.T) {
	runner := &fakeRunner{events: []stream.Event{
		{Author: "a1", StateDelta: map[string]interface{}{"job_listings": map[string]interface{}{"k": float64(1)}}},
		{Author: "a1", StateDelta: map[string]interface{}{"job_listings": map[string]interface{}{"k": float64(2)}}},
	}}
	m := newManager(runner, session.NewMemoryStore())

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	listings, ok := out.Data["job_listings"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected structured listings, got %v", out.Data["job_listings"])
	}
	if listings["k"] != float64(2) {
		t.Fatalf("expected latest write to win, got %v", listings["k"])
	}
}

func TestProcessTaskParsesFencedJSON(t *testing.T) {
	runner := &fakeRunner{events: []stream.Event{
		{Author: "a1", StateDelta: map[string]interface{}{
			"job_listings": "```json\n{\"jobs\": [\"backend engineer\"]}\n```",
		}},
	}}
	m := newManager(runner, session.NewMemoryStore())

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	listings, ok := out.Data["job_listings"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected parsed listings, got %T", out.Data["job_listings"])
	}
	if _, ok := listings["jobs"]; !ok {
		t.Fatalf("expected jobs field, got %v", listings)
	}
}

func TestProcessTaskOmitsUnparseablePayloads(t *testing.T) {
	runner := &fakeRunner{events: []stream.Event{
		{Author: "a1", StateDelta: map[string]interface{}{"job_listings": "{not json"}},
	}}
	m := newManager(runner, session.NewMemoryStore())

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	if out.Status != domain.TaskStatusSuccess {
		t.Fatalf("extraction failure must not fail the task: %s", out.Message)
	}
	if _, ok := out.Data["job_listings"]; ok {
		t.Fatal("unparseable payload must be omitted")
	}
}

func TestProcessTaskKeepsLastThreeRawEvents(t *testing.T) {
	var events []stream.Event
	for i := 0; i < 5; i++ {
		c := domain.ModelText(strings.Repeat("x", i+1))
		events = append(events, stream.Event{Author: "a1", Content: &c})
	}
	runner := &fakeRunner{events: events}
	m := newManager(runner, session.NewMemoryStore())

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	raw, ok := out.Data["raw_events"].([]map[string]interface{})
	if !ok {
		t.Fatalf("expected raw events, got %T", out.Data["raw_events"])
	}
	if len(raw) != 3 {
		t.Fatalf("expected 3 raw events, got %d", len(raw))
	}
	if raw[0]["text"] != "xxx" || raw[2]["text"] != "xxxxx" {
		t.Fatalf("expected the last three events, got %v", raw)
	}
}

func TestProcessTaskFinalMessage(t *testing.T) {
	first := domain.ModelText("searching")
	last := domain.ModelText("here are your jobs")
	runner := &fakeRunner{events: []stream.Event{
		{Author: "a1", Content: &first, Final: true},
		{Author: "a2", Content: &last, Final: true},
	}}
	m := newManager(runner, session.NewMemoryStore())

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	if out.Message != "here are your jobs" {
		t.Fatalf("expected the last final content, got %q", out.Message)
	}
}

func TestProcessTaskFallbackMessage(t *testing.T) {
	m := newManager(&fakeRunner{}, session.NewMemoryStore())

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	if out.Message != "no response generated" {
		t.Fatalf("expected fallback message, got %q", out.Message)
	}
}

type recordingFeed struct {
	published atomic.Int32
}

func (r *recordingFeed) Publish(sessionID string, ev stream.Event) {
	r.published.Add(1)
}

func TestProcessTaskPublishesToFeed(t *testing.T) {
	c := domain.ModelText("done")
	runner := &fakeRunner{events: []stream.Event{
		{Author: "a1", StateDelta: map[string]interface{}{"job_listings": "[]"}},
		{Author: "a1", Content: &c, Final: true},
	}}
	feed := &recordingFeed{}
	m := newManager(runner, session.NewMemoryStore(), func(c *Config) { c.Feed = feed })

	m.ProcessTask(context.Background(), request("u1", "find jobs"))
	if feed.published.Load() != 2 {
		t.Fatalf("expected 2 published events, got %d", feed.published.Load())
	}
}

func TestProcessTaskIgnoresNonModelFinalContent(t *testing.T) {
	answer := domain.ModelText("here are your jobs")
	echoed := domain.UserText("find jobs please")
	runner := &fakeRunner{events: []stream.Event{
		{Author: "a1", Content: &answer, Final: true},
		{Author: "a1", Content: &echoed, Final: true},
	}}
	m := newManager(runner, session.NewMemoryStore())

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	if out.Message != "here are your jobs" {
		t.Fatalf("non-model content must not become the message, got %q", out.Message)
	}
}

func TestProcessTaskOnlyUserFinalFallsBack(t *testing.T) {
	echoed := domain.UserText("find jobs please")
	runner := &fakeRunner{events: []stream.Event{
		{Author: "a1", Content: &echoed, Final: true},
	}}
	m := newManager(runner, session.NewMemoryStore())

	out := m.ProcessTask(context.Background(), request("u1", "find jobs"))
	if out.Message != "no response generated" {
		t.Fatalf("expected fallback message, got %q", out.Message)
	}
}

type hangingEngine struct{}

func (hangingEngine) Execute(ctx context.Context, req *engine.Request) (*stream.Stream, error) {
	return stream.Produce(0, func(ctx context.Context, s *stream.Stream) error {
		<-ctx.Done()
		return ctx.Err()
	}), nil
}

type releaseCounter struct {
	releases atomic.Int32
}

func (r *releaseCounter) Close() error {
	r.releases.Add(1)
	return nil
}

func TestProcessTaskTimeoutThenTeardownReleasesLeaseOnce(t *testing.T) {
	ctx := context.Background()
	sessions := session.NewMemoryStore()
	held := &releaseCounter{}

	p, err := pipeline.Compose(ctx, "job_search", "", "job_search_assistant", hangingEngine{}, sessions,
		func(ctx context.Context) (*agent.Agent, lease.Lease, error) {
			return &agent.Agent{Name: "a1"}, held, nil
		})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	m := NewManager(Config{
		App:       "job_search_assistant",
		Timeout:   50 * time.Millisecond,
		StateKeys: []string{"job_listings"},
	}, p, sessions)

	out := m.ProcessTask(ctx, request("u1", "find jobs"))
	if out.Data["error_type"] != string(domain.ErrorKindTimeout) {
		t.Fatalf("expected TimeoutError, got %v", out.Data["error_type"])
	}
	if held.releases.Load() != 0 {
		t.Fatal("lease must survive the timed-out task")
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if held.releases.Load() != 1 {
		t.Fatalf("expected exactly one release at teardown, got %d", held.releases.Load())
	}
}
