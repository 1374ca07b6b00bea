package entity

import "math"

type DashboardStats struct {
	TotalUsers          int `json:"total_users"`
	OnAPlan             int `json:"on_a_plan"`
	AvgRenewablePercent int `json:"avg_renewable_percent"`
}

// NewDashboardStats averages the renewable percent over users that have a plan;
// a plan id that no longer resolves counts as 0 percent
func NewDashboardStats(users []User, plans []Plan) *DashboardStats {
	stats := &DashboardStats{TotalUsers: len(users)}
	total := 0
	for i := range users {
		if !users[i].HasPlan() {
			continue
		}
		stats.OnAPlan++
		if plan := FindPlan(plans, *users[i].PlanId); plan != nil {
			total += plan.RenewablePercent
		}
	}
	if stats.OnAPlan > 0 {
		stats.AvgRenewablePercent = int(math.Floor(float64(total)/float64(stats.OnAPlan) + 0.5))
	}
	return stats
}
