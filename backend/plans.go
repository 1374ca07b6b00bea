package backend

import (
	"fmt"
	"strings"

	"energyadmin/entity"
	"energyadmin/internal"
)

// ListPlans returns a snapshot of the plan table
func (b *Backend) ListPlans() *Pending[[]entity.Plan] {
	b.mutex.Lock()
	plans := entity.ClonePlans(b.plans)
	b.mutex.Unlock()
	return simulate(b, opListPlans, plans)
}

// CreatePlan validates the input, assigns a fresh id and puts the plan first in the table
func (b *Backend) CreatePlan(input entity.PlanInput) *Pending[entity.Plan] {
	if err := input.Validate(); err != nil {
		return reject[entity.Plan](opCreatePlan, outcomeValidation, err)
	}

	b.mutex.Lock()
	id := b.newId()
	for b.planIndex(id) >= 0 {
		id = b.newId()
	}
	plan := input.NewPlan(id)
	b.plans = append([]entity.Plan{plan}, b.plans...)
	b.observeTables()
	b.mutex.Unlock()

	b.featureEvent(opCreatePlan, plan.Id, fmt.Sprintf("created plan %q: %d c/kWh, %d%% renewable", plan.Name, plan.PriceCentsPerKwh, plan.RenewablePercent))
	event := newEvent(internal.EventPlanCreated)
	event.PlanId = plan.Id
	event.Payload = plan
	b.notifyPlan(event)

	return simulate(b, opCreatePlan, plan)
}

// DeletePlan removes the plan if present and detaches every user assigned to it
func (b *Backend) DeletePlan(id string) *Pending[entity.Ack] {
	b.mutex.Lock()
	removed := false
	if i := b.planIndex(id); i >= 0 {
		b.plans = append(b.plans[:i:i], b.plans[i+1:]...)
		removed = true
	}
	detached := b.detachPlan(id)
	b.observeTables()
	b.mutex.Unlock()

	if removed {
		b.featureEvent(opDeletePlan, id, fmt.Sprintf("deleted; detached users: [%s]", strings.Join(detached, ",")))
		event := newEvent(internal.EventPlanDeleted)
		event.PlanId = id
		event.Payload = detached
		b.notifyPlan(event)
	}

	return simulate(b, opDeletePlan, entity.Ack{Ok: true})
}

// SavePlans overwrites the listed plans. Every plan must already exist; plans
// left out are kept as they are. Creation rules are not re-applied.
func (b *Backend) SavePlans(plans []entity.Plan) *Pending[entity.Ack] {
	seen := make(map[string]bool, len(plans))
	for _, plan := range plans {
		if plan.Id == "" {
			return reject[entity.Ack](opSavePlans, outcomeValidation, &ValidationError{Field: "id", Message: "must not be empty"})
		}
		if seen[plan.Id] {
			return reject[entity.Ack](opSavePlans, outcomeValidation, &ValidationError{Field: "id", Message: fmt.Sprintf("duplicate id %s", plan.Id)})
		}
		seen[plan.Id] = true
	}

	b.mutex.Lock()
	for _, plan := range plans {
		if b.planIndex(plan.Id) < 0 {
			b.mutex.Unlock()
			return reject[entity.Ack](opSavePlans, outcomeNotFound, planNotFound(plan.Id))
		}
	}
	for _, plan := range entity.ClonePlans(plans) {
		b.plans[b.planIndex(plan.Id)] = plan
	}
	saved := entity.ClonePlans(b.plans)
	b.observeTables()
	b.mutex.Unlock()

	b.featureEvent(opSavePlans, "*", fmt.Sprintf("saved %d plans", len(plans)))
	event := newEvent(internal.EventPlansSaved)
	event.Payload = saved
	b.notifyPlan(event)

	return simulate(b, opSavePlans, entity.Ack{Ok: true})
}
