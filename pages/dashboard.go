package pages

import (
	"context"

	"energyadmin/entity"
)

type DashboardState struct {
	Stats        *entity.DashboardStats `json:"stats"`
	FeaturedPlan *entity.Plan           `json:"featured_plan"`
	Error        string                 `json:"error,omitempty"`
}

// Dashboard shows user counts, the average renewable share and the featured plan
type Dashboard struct {
	page
	users []entity.User
	plans []entity.Plan
}

func NewDashboard(store Store) *Dashboard {
	return &Dashboard{page: page{name: "dashboard", store: store}}
}

func (d *Dashboard) Activate(ctx context.Context) error {
	gen := d.begin()
	users, plans, err := loadUsersAndPlans(ctx, d.store)
	if err != nil {
		return d.fail(gen, "load", err)
	}
	d.apply(gen, func() {
		d.users = users
		d.plans = plans
	})
	return nil
}

// Stats is nil until both tables are loaded
func (d *Dashboard) Stats() *entity.DashboardStats {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.users == nil || d.plans == nil {
		return nil
	}
	return entity.NewDashboardStats(d.users, d.plans)
}

func (d *Dashboard) FeaturedPlan() *entity.Plan {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return entity.FeaturedPlan(d.plans)
}

func (d *Dashboard) State() DashboardState {
	return DashboardState{
		Stats:        d.Stats(),
		FeaturedPlan: d.FeaturedPlan(),
		Error:        d.Error(),
	}
}
