package policy

import (
	"context"
	"testing"
)

func TestDefaultPolicyDecisions(t *testing.T) {
	ctx := context.Background()
	engine, err := NewEngine(ctx, DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	cases := []struct {
		tool string
		want string
	}{
		{"search_jobs", DecisionAllow},
		{"get_company_overview", DecisionAllow},
		{"apply_to_job", DecisionRequireApproval},
		{"delete_profile", DecisionBlock},
	}
	for _, c := range cases {
		decision, _, err := engine.Evaluate(ctx, map[string]interface{}{
			"tool_name": c.tool,
			"user_id":   "u1",
			"args":      map[string]interface{}{},
		})
		if err != nil {
			t.Fatalf("Evaluate(%s) failed: %v", c.tool, err)
		}
		if decision != c.want {
			t.Fatalf("Evaluate(%s) = %s, want %s", c.tool, decision, c.want)
		}
	}
}
