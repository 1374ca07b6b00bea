package pages

import (
	"context"

	"energyadmin/backend"
	"energyadmin/entity"
	"energyadmin/utility"
)

type PlansState struct {
	Plans          []entity.Plan `json:"plans"`
	Loading        bool          `json:"loading"`
	Editing        *entity.Plan  `json:"editing,omitempty"`
	FeaturedLocked bool          `json:"featured_locked"`
	Error          string        `json:"error,omitempty"`
}

// Plans lists, creates, edits, features and deletes plans.
// At most one plan is featured; the page keeps that rule, the store does not.
type Plans struct {
	page
	plans   []entity.Plan
	loading bool
	editing *entity.Plan
}

func NewPlans(store Store) *Plans {
	return &Plans{page: page{name: "plans", store: store}}
}

func (p *Plans) Activate(ctx context.Context) error {
	gen := p.begin()
	p.apply(gen, func() {
		p.loading = true
	})
	plans, err := p.store.ListPlans().Wait(ctx)
	p.apply(gen, func() {
		p.loading = false
		if err == nil {
			p.plans = plans
		}
	})
	if err != nil {
		return p.fail(gen, "load", err)
	}
	return nil
}

func (p *Plans) Plans() []entity.Plan {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return entity.ClonePlans(p.plans)
}

func (p *Plans) Loading() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.loading
}

// FeaturedLocked reports whether a plan is already featured, in which case new plans cannot be
func (p *Plans) FeaturedLocked() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return featuredLocked(p.plans)
}

func featuredLocked(plans []entity.Plan) bool {
	for _, plan := range plans {
		if plan.IsFeatured {
			return true
		}
	}
	return false
}

// Create puts the created plan first in the list once the store confirms it
func (p *Plans) Create(ctx context.Context, input entity.PlanInput) error {
	gen, err := p.current()
	if err != nil {
		return err
	}
	if input.IsFeatured && p.FeaturedLocked() {
		return p.fail(gen, "create", &entity.ValidationError{Field: "is_featured", Message: "another plan is already featured"})
	}
	created, err := p.store.CreatePlan(input).Wait(ctx)
	if err != nil {
		return p.fail(gen, "create", err)
	}
	p.apply(gen, func() {
		p.plans = append([]entity.Plan{created}, p.plans...)
	})
	return nil
}

func (p *Plans) Delete(ctx context.Context, id string) error {
	gen, err := p.current()
	if err != nil {
		return err
	}
	if _, err = p.store.DeletePlan(id).Wait(ctx); err != nil {
		return p.fail(gen, "delete", err)
	}
	p.apply(gen, func() {
		plans := make([]entity.Plan, 0, len(p.plans))
		for _, plan := range p.plans {
			if plan.Id != id {
				plans = append(plans, plan)
			}
		}
		p.plans = plans
		if p.editing != nil && p.editing.Id == id {
			p.editing = nil
		}
	})
	return nil
}

// BeginEdit starts editing a copy of the plan
func (p *Plans) BeginEdit(id string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	plan := entity.FindPlan(p.plans, id)
	if plan == nil {
		return &backend.NotFoundError{Entity: "Plan", Id: id}
	}
	editing := *plan
	p.editing = &editing
	return nil
}

func (p *Plans) Editing() *entity.Plan {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.editing == nil {
		return nil
	}
	editing := *p.editing
	return &editing
}

func (p *Plans) EditName(name string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.editing != nil {
		p.editing.Name = name
	}
}

// EditPrice takes the price in euros per kWh, like "0.26"
func (p *Plans) EditPrice(euros string) error {
	cents, err := utility.EurosToCents(euros)
	if err != nil {
		return &entity.ValidationError{Field: "price_cents_per_kwh", Message: err.Error()}
	}
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if p.editing != nil {
		p.editing.PriceCentsPerKwh = cents
	}
	return nil
}

func (p *Plans) CancelEdit() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.editing = nil
}

// SaveEdit checks the edited plan against the creation rules and saves it.
// The edit stays open if the save fails.
func (p *Plans) SaveEdit(ctx context.Context) error {
	gen, err := p.current()
	if err != nil {
		return err
	}
	editing := p.Editing()
	if editing == nil {
		return nil
	}
	if err = editing.Validate(); err != nil {
		return p.fail(gen, "edit", err)
	}
	if err = p.save(ctx, gen, "edit", []entity.Plan{*editing}); err != nil {
		return err
	}
	p.apply(gen, func() {
		p.editing = nil
	})
	return nil
}

// ToggleFeatured features the plan and unfeatures every other one; toggling
// the featured plan leaves none featured
func (p *Plans) ToggleFeatured(ctx context.Context, id string) error {
	gen, err := p.current()
	if err != nil {
		return err
	}
	plans := p.Plans()
	target := entity.FindPlan(plans, id)
	if target == nil {
		return p.fail(gen, "feature", &backend.NotFoundError{Entity: "Plan", Id: id})
	}
	wasFeatured := target.IsFeatured
	var changed []entity.Plan
	for _, plan := range plans {
		featured := plan.Id == id && !wasFeatured
		if plan.IsFeatured != featured {
			plan.IsFeatured = featured
			changed = append(changed, plan)
		}
	}
	return p.save(ctx, gen, "feature", changed)
}

// save persists the changed plans and merges them into the list once the
// store confirms. A plan the store no longer has means the list is stale, so
// it is loaded again.
func (p *Plans) save(ctx context.Context, gen uint64, action string, changed []entity.Plan) error {
	if _, err := p.store.SavePlans(changed).Wait(ctx); err != nil {
		if backend.IsNotFound(err) {
			p.reload(ctx, gen)
		}
		return p.fail(gen, action, err)
	}
	p.apply(gen, func() {
		for _, plan := range changed {
			if i := indexOf(p.plans, plan.Id); i >= 0 {
				p.plans[i] = plan
			}
		}
	})
	return nil
}

func (p *Plans) reload(ctx context.Context, gen uint64) {
	plans, err := p.store.ListPlans().Wait(ctx)
	if err != nil {
		return
	}
	p.apply(gen, func() {
		p.plans = plans
		if p.editing != nil && indexOf(plans, p.editing.Id) < 0 {
			p.editing = nil
		}
	})
}

func indexOf(plans []entity.Plan, id string) int {
	for i := range plans {
		if plans[i].Id == id {
			return i
		}
	}
	return -1
}

func (p *Plans) State() PlansState {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	state := PlansState{
		Plans:          entity.ClonePlans(p.plans),
		Loading:        p.loading,
		FeaturedLocked: featuredLocked(p.plans),
		Error:          p.err,
	}
	if p.editing != nil {
		editing := *p.editing
		state.Editing = &editing
	}
	return state
}
