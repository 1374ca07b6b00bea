package pages

import (
	"context"

	"energyadmin/entity"
)

type AssignPolicy int

const (
	// AssignPessimistic updates the row after the store confirms
	AssignPessimistic AssignPolicy = iota
	// AssignOptimistic updates the row at once and reverts it if the call fails
	AssignOptimistic
)

type AdminState struct {
	Users []entity.User `json:"users"`
	Plans []entity.Plan `json:"plans"`
	Error string        `json:"error,omitempty"`
}

// Admin assigns users to plans
type Admin struct {
	page
	policy AssignPolicy
	users  []entity.User
	plans  []entity.Plan
}

func NewAdmin(store Store, policy AssignPolicy) *Admin {
	return &Admin{page: page{name: "admin", store: store}, policy: policy}
}

func (a *Admin) Activate(ctx context.Context) error {
	gen := a.begin()
	users, plans, err := loadUsersAndPlans(ctx, a.store)
	if err != nil {
		return a.fail(gen, "load", err)
	}
	a.apply(gen, func() {
		a.users = users
		a.plans = plans
	})
	return nil
}

func (a *Admin) Users() []entity.User {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return entity.CloneUsers(a.users)
}

func (a *Admin) Plans() []entity.Plan {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return entity.ClonePlans(a.plans)
}

// Assign sets the user's plan; nil clears it
func (a *Admin) Assign(ctx context.Context, userId string, planId *string) error {
	gen, err := a.current()
	if err != nil {
		return err
	}

	var previous *string
	optimistic := a.policy == AssignOptimistic
	if optimistic {
		a.apply(gen, func() {
			for i := range a.users {
				if a.users[i].Id == userId {
					previous = a.users[i].PlanId
					a.users[i].PlanId = clonePlanId(planId)
					return
				}
			}
			// nothing to revert for a user the page does not list
			optimistic = false
		})
	}

	updated, err := a.store.AssignPlanToUser(userId, planId).Wait(ctx)
	if err != nil {
		if optimistic {
			a.apply(gen, func() {
				for i := range a.users {
					if a.users[i].Id == userId && entity.SamePlan(a.users[i].PlanId, planId) {
						a.users[i].PlanId = previous
					}
				}
			})
		}
		return a.fail(gen, "assign", err)
	}
	a.apply(gen, func() {
		entity.ReplaceUser(a.users, updated)
	})
	return nil
}

func (a *Admin) State() AdminState {
	return AdminState{
		Users: a.Users(),
		Plans: a.Plans(),
		Error: a.Error(),
	}
}

func clonePlanId(planId *string) *string {
	if planId == nil {
		return nil
	}
	return entity.PlanRef(*planId)
}
