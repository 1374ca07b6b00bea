package backend

import (
	"fmt"

	"energyadmin/entity"
	"energyadmin/internal"
	"energyadmin/metrics/counters"
)

// ListUsers returns a snapshot of the user table
func (b *Backend) ListUsers() *Pending[[]entity.User] {
	b.mutex.Lock()
	users := entity.CloneUsers(b.users)
	b.mutex.Unlock()
	return simulate(b, opListUsers, users)
}

// AssignPlanToUser sets or clears the user's plan. A nil planId clears it;
// a non-nil one must name an existing plan.
func (b *Backend) AssignPlanToUser(userId string, planId *string) *Pending[entity.User] {
	b.mutex.Lock()
	i := b.userIndex(userId)
	if i < 0 {
		b.mutex.Unlock()
		return reject[entity.User](opAssignPlan, outcomeNotFound, userNotFound(userId))
	}
	if planId != nil && b.planIndex(*planId) < 0 {
		b.mutex.Unlock()
		return reject[entity.User](opAssignPlan, outcomeNotFound, planNotFound(*planId))
	}
	if planId == nil {
		b.users[i].PlanId = nil
	} else {
		b.users[i].PlanId = entity.PlanRef(*planId)
	}
	user := b.users[i].Clone()
	b.mutex.Unlock()

	planText := "none"
	event := newEvent(internal.EventPlanAssigned)
	event.UserId = user.Id
	if user.PlanId != nil {
		planText = *user.PlanId
		event.PlanId = *user.PlanId
	}
	b.featureEvent(opAssignPlan, user.Id, fmt.Sprintf("plan set to %s", planText))
	event.Payload = user
	b.notifyUser(event)

	return simulate(b, opAssignPlan, user)
}

// AdjustBalance subtracts amountCents from the user's balance; a negative amount is a refund
func (b *Backend) AdjustBalance(userId string, amountCents int) *Pending[entity.User] {
	b.mutex.Lock()
	i := b.userIndex(userId)
	if i < 0 {
		b.mutex.Unlock()
		return reject[entity.User](opAdjustFunds, outcomeNotFound, userNotFound(userId))
	}
	b.users[i].BalanceCents -= amountCents
	user := b.users[i].Clone()
	b.mutex.Unlock()

	counters.CountAdjustment(amountCents)
	b.featureEvent(opAdjustFunds, user.Id, fmt.Sprintf("balance adjusted by %d, now %d", -amountCents, user.BalanceCents))
	event := newEvent(internal.EventBalanceAdjusted)
	event.UserId = user.Id
	event.AmountCents = amountCents
	if user.PlanId != nil {
		event.PlanId = *user.PlanId
	}
	event.Payload = user
	b.notifyUser(event)

	return simulate(b, opAdjustFunds, user)
}
