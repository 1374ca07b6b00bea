package pages

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"energyadmin/backend"
	"energyadmin/entity"
	"energyadmin/internal"
	"energyadmin/metrics/counters"

	"golang.org/x/sync/errgroup"
)

var ErrInactive = errors.New("page is not active")

// Store is the backend surface the pages use
type Store interface {
	ListPlans() *backend.Pending[[]entity.Plan]
	ListUsers() *backend.Pending[[]entity.User]
	CreatePlan(input entity.PlanInput) *backend.Pending[entity.Plan]
	DeletePlan(id string) *backend.Pending[entity.Ack]
	SavePlans(plans []entity.Plan) *backend.Pending[entity.Ack]
	AssignPlanToUser(userId string, planId *string) *backend.Pending[entity.User]
	AdjustBalance(userId string, amountCents int) *backend.Pending[entity.User]
}

// page tracks liveness. Every activation and deactivation starts a new
// generation; a result is applied only if its generation is still current,
// so responses that arrive after the page was left are dropped.
type page struct {
	name       string
	store      Store
	logger     internal.LogHandler
	mutex      sync.Mutex
	generation uint64
	active     bool
	err        string
}

func (p *page) SetLogger(logger internal.LogHandler) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.logger = logger
}

func (p *page) begin() uint64 {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.generation++
	p.active = true
	p.err = ""
	return p.generation
}

// Deactivate discards every result still in flight; nothing is cancelled
func (p *page) Deactivate() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.active = false
	p.generation++
}

func (p *page) Active() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.active
}

// Error is the last error message surfaced by the page, empty if none
func (p *page) Error() string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.err
}

func (p *page) ClearError() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.err = ""
}

// current returns the generation an action belongs to
func (p *page) current() (uint64, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if !p.active {
		return 0, ErrInactive
	}
	return p.generation, nil
}

func (p *page) live(gen uint64) bool {
	return p.active && p.generation == gen
}

// apply runs fn under the page lock if gen is still current
func (p *page) apply(gen uint64, fn func()) bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	if !p.live(gen) {
		return false
	}
	fn()
	return true
}

// fail surfaces err on the page if gen is still current and returns err
func (p *page) fail(gen uint64, action string, err error) error {
	applied := p.apply(gen, func() {
		p.err = err.Error()
	})
	counters.CountPageError(p.name)
	p.mutex.Lock()
	logger := p.logger
	p.mutex.Unlock()
	if logger != nil {
		text := fmt.Sprintf("%s %s: %s", p.name, action, err)
		if !applied {
			text += " (discarded)"
		}
		logger.Warn(text)
	}
	return err
}

// loadUsersAndPlans issues both list calls before waiting on either
func loadUsersAndPlans(ctx context.Context, store Store) ([]entity.User, []entity.Plan, error) {
	usersPending := store.ListUsers()
	plansPending := store.ListPlans()

	var users []entity.User
	var plans []entity.Plan
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		users, err = usersPending.Wait(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		plans, err = plansPending.Wait(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, nil, err
	}
	return users, plans, nil
}
