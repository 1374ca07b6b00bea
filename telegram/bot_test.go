package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"

	"energyadmin/backend"
	"energyadmin/entity"
	"energyadmin/internal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type subscriptionStore struct {
	mutex         sync.Mutex
	subscriptions []entity.Subscription
	failAdd       bool
}

func (s *subscriptionStore) WriteLogMessage(internal.Data) error { return nil }

func (s *subscriptionStore) ReadLog(context.Context, int64) ([]internal.FeatureLogMessage, error) {
	return nil, nil
}

func (s *subscriptionStore) GetSubscriptions() ([]entity.Subscription, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]entity.Subscription(nil), s.subscriptions...), nil
}

func (s *subscriptionStore) AddSubscription(subscription *entity.Subscription) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.failAdd {
		return errors.New("duplicate")
	}
	s.subscriptions = append(s.subscriptions, *subscription)
	return nil
}

func (s *subscriptionStore) DeleteSubscription(subscription *entity.Subscription) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	kept := s.subscriptions[:0]
	for _, existing := range s.subscriptions {
		if existing.UserID != subscription.UserID {
			kept = append(kept, existing)
		}
	}
	s.subscriptions = kept
	return nil
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	database := &subscriptionStore{}
	bot := newBot()
	bot.SetDatabase(database)

	reply := bot.handleCommand("start", 42, "ava_p")
	assert.Equal(t, "Hello *ava\\_p*, you are now subscribed to plan and billing events", reply)
	assert.Equal(t, []int{42}, bot.subscribers())
	require.Len(t, database.subscriptions, 1)
	assert.Equal(t, "events", database.subscriptions[0].SubscriptionType)

	assert.Equal(t, "Your subscription has been removed", bot.handleCommand("stop", 42, "ava_p"))
	assert.Empty(t, bot.subscribers())
	assert.Empty(t, database.subscriptions)

	assert.Empty(t, bot.handleCommand("unknown", 42, "ava_p"))
}

func TestSubscribeReportsDatabaseError(t *testing.T) {
	bot := newBot()
	bot.SetDatabase(&subscriptionStore{failAdd: true})

	reply := bot.handleCommand("start", 7, "liam")
	assert.Contains(t, reply, "Error adding subscription")
	assert.Empty(t, bot.subscribers(), "rejected subscription is not kept")
}

func TestLoadSubscriptions(t *testing.T) {
	bot := newBot()
	bot.SetDatabase(&subscriptionStore{subscriptions: []entity.Subscription{{UserID: 1}, {UserID: 2}}})
	bot.loadSubscriptions()
	assert.ElementsMatch(t, []int{1, 2}, bot.subscribers())
}

func TestStatusMessage(t *testing.T) {
	bot := newBot()
	bot.SetStore(backend.New(backend.Instant()))
	bot.handleCommand("start", 1, "ava")

	msg := bot.handleCommand("status", 1, "ava")
	assert.Contains(t, msg, "Users: 3\n")
	assert.Contains(t, msg, "On a plan: 2\n")
	assert.Contains(t, msg, "Average renewable: 63%\n")
	assert.Contains(t, msg, "Featured plan: Green Plus\n")
	assert.Contains(t, msg, "Active subscriptions: 1")
}

func TestStatusMessageStoreFailure(t *testing.T) {
	bot := newBot()
	bot.SetStore(backend.New(backend.AlwaysFail()))

	msg := bot.composeStatusMessage()
	assert.Contains(t, msg, "Error reading store")
	assert.Contains(t, msg, "Active subscriptions: 0")
}

func TestEventTexts(t *testing.T) {
	created := &internal.EventMessage{
		Type:    internal.EventPlanCreated,
		PlanId:  "p1",
		Payload: entity.Plan{Id: "p1", Name: "Eco", PriceCentsPerKwh: 21, RenewablePercent: 80},
	}
	assert.Equal(t, "*Plan created*: `p1`\nEco, 21 c/kWh, 80% renewable\n", planEventText(created))

	deleted := &internal.EventMessage{Type: internal.EventPlanDeleted, PlanId: "green", Payload: []string{"u_1"}}
	assert.Equal(t, "*Plan deleted*: `green`\nUsers without plan: u\\_1\n", planEventText(deleted))

	assigned := &internal.EventMessage{Type: internal.EventPlanAssigned, UserId: "u_3"}
	assert.Equal(t, "*u\\_3*: plan `none`\n", userEventText(assigned))

	adjusted := &internal.EventMessage{
		Type:        internal.EventBalanceAdjusted,
		UserId:      "u_1",
		AmountCents: 500,
		Payload:     entity.User{Id: "u_1", BalanceCents: 745},
	}
	assert.Equal(t, "*u\\_1*: balance adjusted by \\-5\\.00\nBalance: 7\\.45\n", userEventText(adjusted))

	assert.Empty(t, planEventText(&internal.EventMessage{Type: internal.EventBalanceAdjusted}))
}

func TestQueueDropsWhenFull(t *testing.T) {
	bot := newBot()
	for i := 0; i < cap(bot.event)+5; i++ {
		bot.OnUserEvent(&internal.EventMessage{Type: internal.EventPlanAssigned, UserId: "u_1", PlanId: "green"})
	}
	assert.Len(t, bot.event, cap(bot.event))

	bot.OnPlanEvent(&internal.EventMessage{Type: "unknown"})
	assert.Len(t, bot.event, cap(bot.event))
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a\\.b\\-c\\!", sanitize("a.b-c!"))
	assert.Equal(t, "plain", sanitize("plain"))
}
