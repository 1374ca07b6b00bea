package backend

import (
	"fmt"
	"sync"
	"time"

	"energyadmin/entity"
	"energyadmin/internal"
	"energyadmin/metrics/counters"
	"energyadmin/utility"
)

const (
	opListPlans   = "ListPlans"
	opListUsers   = "ListUsers"
	opCreatePlan  = "CreatePlan"
	opDeletePlan  = "DeletePlan"
	opSavePlans   = "SavePlans"
	opAssignPlan  = "AssignPlanToUser"
	opAdjustFunds = "AdjustBalance"

	outcomeOk         = "ok"
	outcomeValidation = "validation"
	outcomeNotFound   = "not_found"
	outcomeTransport  = "transport"

	tablePlans = "plans"
	tableUsers = "users"
)

// Backend is an in-memory stand-in for the remote plan/user service.
// Each operation applies its effect immediately under the mutex and returns a
// Pending that settles after the policy delay, failing with the policy's
// probability even when the effect was already applied.
type Backend struct {
	mutex     sync.Mutex
	plans     []entity.Plan
	users     []entity.User
	policy    Policy
	logger    internal.LogHandler
	listeners []internal.EventHandler
	newId     func() string
}

// New returns a backend seeded with the default rows
func New(policy Policy) *Backend {
	return NewWithSeed(policy, DefaultSeed())
}

func NewWithSeed(policy Policy, seed *Seed) *Backend {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if seed == nil {
		seed = DefaultSeed()
	}
	b := &Backend{
		plans:  entity.ClonePlans(seed.Plans),
		users:  entity.CloneUsers(seed.Users),
		policy: policy,
		newId:  utility.NewUUID,
	}
	b.observeTables()
	return b
}

func (b *Backend) SetLogger(logger internal.LogHandler) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.logger = logger
}

// SetPolicy swaps the latency/failure policy for calls issued afterwards
func (b *Backend) SetPolicy(policy Policy) {
	if policy == nil {
		return
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.policy = policy
}

func (b *Backend) AddEventListener(listener internal.EventHandler) {
	if listener == nil {
		return
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.listeners = append(b.listeners, listener)
}

func (b *Backend) setIdGenerator(newId func() string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.newId = newId
}

// simulate settles value after the policy delay, or fails with a TransportError
func simulate[T any](b *Backend, operation string, value T) *Pending[T] {
	b.mutex.Lock()
	policy := b.policy
	b.mutex.Unlock()

	delay := policy.Delay()
	counters.ObserveDelay(operation, delay.Seconds())

	complete := func(p *Pending[T]) {
		if policy.Fail() {
			counters.ObserveOperation(operation, outcomeTransport)
			b.debug(fmt.Sprintf("%s: injected transport failure after %v", operation, delay))
			var zero T
			p.settle(zero, &TransportError{Operation: operation})
			return
		}
		counters.ObserveOperation(operation, outcomeOk)
		p.settle(value, nil)
	}

	pending := newPending[T]()
	if delay <= 0 {
		complete(pending)
		return pending
	}
	go func() {
		timer := time.NewTimer(delay)
		<-timer.C
		complete(pending)
	}()
	return pending
}

// reject settles immediately, bypassing delay and failure injection
func reject[T any](operation, outcome string, err error) *Pending[T] {
	counters.ObserveOperation(operation, outcome)
	var zero T
	return settled(zero, err)
}

func (b *Backend) notifyPlan(event *internal.EventMessage) {
	for _, listener := range b.eventListeners() {
		listener.OnPlanEvent(event)
	}
}

func (b *Backend) notifyUser(event *internal.EventMessage) {
	for _, listener := range b.eventListeners() {
		listener.OnUserEvent(event)
	}
}

func (b *Backend) eventListeners() []internal.EventHandler {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	listeners := make([]internal.EventHandler, len(b.listeners))
	copy(listeners, b.listeners)
	return listeners
}

func (b *Backend) featureEvent(feature, id, text string) {
	b.mutex.Lock()
	logger := b.logger
	b.mutex.Unlock()
	if logger != nil {
		logger.FeatureEvent(feature, id, text)
	}
}

func (b *Backend) debug(text string) {
	b.mutex.Lock()
	logger := b.logger
	b.mutex.Unlock()
	if logger != nil {
		logger.Debug(text)
	}
}

// observeTables must be called with the mutex held or before the backend is shared
func (b *Backend) observeTables() {
	counters.ObserveTable(tablePlans, len(b.plans))
	counters.ObserveTable(tableUsers, len(b.users))
}

func (b *Backend) planIndex(id string) int {
	for i := range b.plans {
		if b.plans[i].Id == id {
			return i
		}
	}
	return -1
}

func (b *Backend) userIndex(id string) int {
	for i := range b.users {
		if b.users[i].Id == id {
			return i
		}
	}
	return -1
}

// detachPlan nulls every reference to planId and returns the affected user ids
func (b *Backend) detachPlan(planId string) []string {
	var detached []string
	for i := range b.users {
		if b.users[i].OnPlan(planId) {
			b.users[i].PlanId = nil
			detached = append(detached, b.users[i].Id)
		}
	}
	return detached
}

func newEvent(eventType string) *internal.EventMessage {
	return &internal.EventMessage{
		Type: eventType,
		Time: time.Now().UTC(),
	}
}
