package agent

import (
	"context"
	"fmt"

	"github.com/gethired/jobagents/internal/lease"
	"github.com/gethired/jobagents/internal/tools"
)

// State keys written by the agents.
const (
	StateKeyUserPreferences = "user_preferences"
	StateKeyJobListings     = "job_listings"
	StateKeyCompanyResearch = "company_research_report"
)

// Profile returns a builder for the profile agent, which gathers the user's
// stored preferences from the profile store toolset.
func Profile(toolsetURL string, deps Deps) Builder {
	return func(ctx context.Context) (*Agent, lease.Lease, error) {
		ts, err := tools.Connect(tools.Config{
			Name:    "profile",
			BaseURL: toolsetURL,
			Filter: []string{
				"auth_get_user",
				"storage_get_file_info",
				"firestore_list_documents",
				"firestore_get_document",
				"firestore_list_collections",
				"firestore_query_collection_group",
			},
		}, deps.Policy, deps.Approvals)
		if err != nil {
			return nil, nil, fmt.Errorf("profile agent: %w", err)
		}
		if deps.Registry != nil {
			deps.Registry.Add(ts)
		}

		return &Agent{
			Name:        "profile_agent",
			Description: "Gathers the user's career profile and search preferences.",
			Instruction: profilePrompt,
			Model:       DefaultModel,
			OutputKey:   StateKeyUserPreferences,
			Toolset:     ts,
		}, ts, nil
	}
}

// ListingSearch returns a builder for the job listing search agent.
func ListingSearch(toolsetURL string, deps Deps) Builder {
	return func(ctx context.Context) (*Agent, lease.Lease, error) {
		ts, err := tools.Connect(tools.Config{
			Name:    "jobsearch",
			BaseURL: toolsetURL,
			Filter: []string{
				"search_jobs",
				"search_jobs_by_company",
				"get_job_details",
				"search_glassdoor_jobs",
				"apply_to_job",
			},
		}, deps.Policy, deps.Approvals)
		if err != nil {
			return nil, nil, fmt.Errorf("listing search agent: %w", err)
		}
		if deps.Registry != nil {
			deps.Registry.Add(ts)
		}

		return &Agent{
			Name:        "listing_search_agent",
			Description: "Searches and retrieves job listings based on user preferences.",
			Instruction: listingPrompt,
			Model:       DefaultModel,
			OutputKey:   StateKeyJobListings,
			Toolset:     ts,
		}, ts, nil
	}
}

// CompanyResearch returns a builder for the company research agent.
func CompanyResearch(toolsetURL string, deps Deps) Builder {
	return func(ctx context.Context) (*Agent, lease.Lease, error) {
		ts, err := tools.Connect(tools.Config{
			Name:    "research",
			BaseURL: toolsetURL,
			Filter: []string{
				"search_companies",
				"get_company_overview",
				"get_company_reviews",
				"get_company_interviews",
			},
		}, deps.Policy, deps.Approvals)
		if err != nil {
			return nil, nil, fmt.Errorf("company research agent: %w", err)
		}
		if deps.Registry != nil {
			deps.Registry.Add(ts)
		}

		return &Agent{
			Name:        "company_research_agent",
			Description: "Researches companies behind the matched job listings.",
			Instruction: researchPrompt,
			Model:       DefaultModel,
			OutputKey:   StateKeyCompanyResearch,
			Toolset:     ts,
		}, ts, nil
	}
}
