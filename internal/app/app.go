// Package app assembles the service: one explicit context object owning
// every long-lived component, torn down in reverse order of construction.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gethired/jobagents/internal/agent"
	"github.com/gethired/jobagents/internal/config"
	"github.com/gethired/jobagents/internal/engine"
	"github.com/gethired/jobagents/internal/feed"
	"github.com/gethired/jobagents/internal/health"
	"github.com/gethired/jobagents/internal/lease"
	"github.com/gethired/jobagents/internal/pipeline"
	"github.com/gethired/jobagents/internal/session"
	"github.com/gethired/jobagents/internal/task"
	"github.com/gethired/jobagents/internal/tools"
	transport "github.com/gethired/jobagents/internal/transport/http"
	"github.com/gethired/jobagents/policy"
)

// Name is the application name sessions are scoped under.
const Name = "job_search_assistant"

// App holds every long-lived component of the service.
type App struct {
	Config    *config.Config
	Checker   *health.Checker
	Sessions  session.Store
	Policy    *policy.Engine
	Approvals *tools.Approvals
	Tools     *tools.Registry
	Pipeline  *pipeline.Sequential
	Manager   *task.Manager
	Hub       *feed.Hub

	Server       *echo.Echo
	HealthServer *echo.Echo

	closers *lease.Stack
}

// New builds the application. Components already constructed are released
// when a later construction step fails.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:  cfg,
		Checker: health.NewChecker(),
		closers: lease.NewStack(),
	}

	var err error
	if cfg.DatabaseURL != "" {
		a.Sessions, err = session.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("session store: %w", err)
		}
	} else {
		a.Sessions = session.NewMemoryStore()
	}
	a.closers.Push(lease.Func(a.Sessions.Close))

	a.Policy, err = policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		a.closers.Close()
		return nil, fmt.Errorf("policy engine: %w", err)
	}
	a.Approvals = tools.NewApprovals()
	a.Tools = tools.NewRegistry()
	deps := agent.Deps{Policy: a.Policy, Approvals: a.Approvals, Registry: a.Tools}

	toolCallback := fmt.Sprintf("http://%s:%d/v1/tools", cfg.Host, cfg.Port)
	eng := engine.NewClient(cfg.EngineURL, toolCallback, cfg.TaskTimeout)
	a.Pipeline, err = pipeline.Compose(ctx, "job_search",
		"Finds and researches job opportunities.", Name, eng, a.Sessions,
		agent.Profile(cfg.ProfileToolURL, deps),
		agent.ListingSearch(cfg.JobSearchToolURL, deps),
		agent.CompanyResearch(cfg.ResearchToolURL, deps),
	)
	if err != nil {
		a.closers.Close()
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	a.closers.Push(a.Pipeline)

	a.Hub = feed.NewHub()
	a.Manager = task.NewManager(task.Config{
		App:     Name,
		Timeout: cfg.TaskTimeout,
		StateKeys: []string{
			agent.StateKeyUserPreferences,
			agent.StateKeyJobListings,
			agent.StateKeyCompanyResearch,
		},
		Feed: a.Hub,
	}, a.Pipeline, a.Sessions)

	card := transport.AgentCard{
		Name:        Name,
		Description: "Searches job listings, researches companies and applies with approval.",
		URL:         fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port),
		Version:     "0.1.0",
		Skills:      []string{"job_search", "company_research", "profile"},
	}
	handler := transport.NewHandler(a.Manager, a.Approvals, a.Tools, card, feed.NewServer(a.Hub))
	a.Server = transport.NewServer(handler)
	a.HealthServer = transport.NewHealthServer(a.Checker)

	return a, nil
}

// WaitForDependencies polls the tool providers and flips the checker to
// ready, or degraded when the attempt budget runs out.
func (a *App) WaitForDependencies(ctx context.Context) error {
	probes := map[string]health.Probe{
		"jobsearch": toolProbe("jobsearch", a.Config.JobSearchToolURL),
		"profile":   toolProbe("profile", a.Config.ProfileToolURL),
		"research":  toolProbe("research", a.Config.ResearchToolURL),
	}
	if err := health.WaitForDependencies(ctx, a.Config.ReadyCheckInterval, a.Config.ReadyCheckAttempts, probes); err != nil {
		a.Checker.RecordError(err.Error())
		a.Checker.Update(health.StatusDegraded)
		return err
	}
	a.Checker.Update(health.StatusReady)
	return nil
}

// Close releases every component in reverse order of construction.
// Idempotent.
func (a *App) Close() error {
	a.Checker.Update(health.StatusStopping)
	return a.closers.Close()
}

func toolProbe(name, baseURL string) health.Probe {
	return func(ctx context.Context) error {
		ts, err := tools.Connect(tools.Config{Name: name, BaseURL: baseURL, Timeout: 5 * time.Second}, nil, nil)
		if err != nil {
			return err
		}
		defer ts.Close()
		return ts.Health(ctx)
	}
}
