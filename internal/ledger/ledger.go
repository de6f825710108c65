// Package ledger holds squad composition rules. Nothing here gates bidding;
// it only reports on what a team has acquired.
package ledger

import "github.com/DoyleJ11/auction-backend/internal/engine"

const (
	RoleBatsman      = "Batsman"
	RoleBowler       = "Bowler"
	RoleAllRounder   = "All-rounder"
	RoleWicketKeeper = "Wicket-Keeper"
)

type Rules struct {
	MinPerRole map[string]int `json:"min_per_role"`
	Total      int            `json:"total"`
}

type Report struct {
	Valid  bool           `json:"valid"`
	Counts map[string]int `json:"counts"`
	Rules  Rules          `json:"rules"`
}

func DefaultCricketRules() Rules {
	return Rules{
		MinPerRole: map[string]int{
			RoleBatsman:      4,
			RoleBowler:       4,
			RoleAllRounder:   2,
			RoleWicketKeeper: 1,
		},
		Total: 11,
	}
}

// Validate counts items per role and checks them against rules. A squad is
// valid when every role minimum is met and it has exactly rules.Total items.
// A zero Total places no limit on squad size.
func Validate(items []engine.Item, rules Rules) Report {
	counts := make(map[string]int, len(rules.MinPerRole))
	for role := range rules.MinPerRole {
		counts[role] = 0
	}
	for _, it := range items {
		counts[it.Role]++
	}

	valid := rules.Total == 0 || len(items) == rules.Total
	for role, want := range rules.MinPerRole {
		if counts[role] < want {
			valid = false
		}
	}

	return Report{Valid: valid, Counts: counts, Rules: rules}
}

// Spent is how much of the team's budget has gone on acquisitions.
func Spent(team engine.Team) int64 {
	return team.Budget - team.RemainingBudget
}
