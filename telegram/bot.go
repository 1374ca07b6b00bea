package telegram

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"energyadmin/backend"
	"energyadmin/entity"
	"energyadmin/internal"
	"energyadmin/utility"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
)

const statusTimeout = 5 * time.Second

// Store is what the bot reads to answer /status
type Store interface {
	ListPlans() *backend.Pending[[]entity.Plan]
	ListUsers() *backend.Pending[[]entity.User]
}

// TgBot implements EventHandler
type TgBot struct {
	api           *tgbotapi.BotAPI
	database      internal.Database
	store         Store
	mutex         sync.RWMutex
	subscriptions map[int]entity.Subscription
	event         chan MessageContent
	send          chan MessageContent
}

type MessageContent struct {
	ChatID int64
	Text   string
}

func NewBot(apiKey string) (*TgBot, error) {
	tgBot := newBot()
	api, err := tgbotapi.NewBotAPI(apiKey)
	if err != nil {
		return nil, err
	}
	tgBot.api = api
	return tgBot, nil
}

func newBot() *TgBot {
	return &TgBot{
		subscriptions: make(map[int]entity.Subscription),
		event:         make(chan MessageContent, 100),
		send:          make(chan MessageContent, 100),
	}
}

// SetDatabase attach database service
func (b *TgBot) SetDatabase(database internal.Database) {
	b.database = database
}

func (b *TgBot) SetStore(store Store) {
	b.store = store
}

func (b *TgBot) Start() {
	b.loadSubscriptions()
	go b.sendPump()
	go b.eventPump()
	go b.updatesPump()
}

func (b *TgBot) loadSubscriptions() {
	if b.database == nil {
		return
	}
	subscriptions, err := b.database.GetSubscriptions()
	if err != nil {
		log.Printf("bot: error getting subscriptions: %v", err)
		return
	}
	b.mutex.Lock()
	defer b.mutex.Unlock()
	for _, subscription := range subscriptions {
		b.subscriptions[subscription.UserID] = subscription
	}
}

// Start listening for updates
func (b *TgBot) updatesPump() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		log.Printf("bot: error getting updates: %v", err)
		return
	}
	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		from := update.Message.From
		if from == nil {
			continue
		}
		text := b.handleCommand(update.Message.Command(), from.ID, from.UserName)
		if text != "" {
			b.send <- MessageContent{ChatID: update.Message.Chat.ID, Text: text}
		}
	}
}

// handleCommand returns the reply for a chat command, empty for unknown commands
func (b *TgBot) handleCommand(command string, userId int, userName string) string {
	switch command {
	case "start":
		subscription := entity.Subscription{
			UserID:           userId,
			User:             userName,
			SubscriptionType: "events",
		}
		if b.database != nil {
			if err := b.database.AddSubscription(&subscription); err != nil {
				log.Printf("bot: error adding subscription: %v", err)
				return fmt.Sprintf("Error adding subscription:\n `%v`", sanitize(err.Error()))
			}
		}
		b.mutex.Lock()
		b.subscriptions[userId] = subscription
		b.mutex.Unlock()
		return fmt.Sprintf("Hello *%v*, you are now subscribed to plan and billing events", sanitize(userName))
	case "stop":
		b.mutex.Lock()
		delete(b.subscriptions, userId)
		b.mutex.Unlock()
		if b.database != nil {
			if err := b.database.DeleteSubscription(&entity.Subscription{UserID: userId}); err != nil {
				log.Printf("bot: error deleting subscription: %v", err)
			}
		}
		return "Your subscription has been removed"
	case "status":
		return b.composeStatusMessage()
	}
	return ""
}

// eventPump sending events to all subscribers
func (b *TgBot) eventPump() {
	for event := range b.event {
		for _, id := range b.subscribers() {
			b.sendMessage(int64(id), event.Text)
		}
	}
}

func (b *TgBot) subscribers() []int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	ids := make([]int, 0, len(b.subscriptions))
	for id := range b.subscriptions {
		ids = append(ids, id)
	}
	return ids
}

// sendPump sending messages to users
func (b *TgBot) sendPump() {
	for message := range b.send {
		b.sendMessage(message.ChatID, message.Text)
	}
}

// sendMessage common routine to send a message via bot API
func (b *TgBot) sendMessage(id int64, text string) {
	msg := tgbotapi.NewMessage(id, text)
	msg.ParseMode = "MarkdownV2"
	_, err := b.api.Send(msg)
	if err != nil {
		// maybe error was while parsing, so we can send a message about this error
		msg = tgbotapi.NewMessage(id, fmt.Sprintf("Error: %v", err))
		_, err = b.api.Send(msg)
		if err != nil {
			log.Printf("bot: error sending message: %v", err)
		}
	}
}

// queue drops the event when the queue is full; the store must not wait on the bot
func (b *TgBot) queue(text string) {
	if text == "" {
		return
	}
	select {
	case b.event <- MessageContent{Text: text}:
	default:
		log.Printf("bot: event queue is full, message dropped")
	}
}

func (b *TgBot) OnPlanEvent(event *internal.EventMessage) {
	b.queue(planEventText(event))
}

func (b *TgBot) OnUserEvent(event *internal.EventMessage) {
	b.queue(userEventText(event))
}

func planEventText(event *internal.EventMessage) string {
	switch event.Type {
	case internal.EventPlanCreated:
		msg := fmt.Sprintf("*Plan created*: `%v`\n", event.PlanId)
		if plan, ok := event.Payload.(entity.Plan); ok {
			msg += fmt.Sprintf("%v, %v c/kWh, %v%% renewable\n", sanitize(plan.Name), plan.PriceCentsPerKwh, plan.RenewablePercent)
		}
		return msg
	case internal.EventPlanDeleted:
		msg := fmt.Sprintf("*Plan deleted*: `%v`\n", event.PlanId)
		if detached, ok := event.Payload.([]string); ok && len(detached) > 0 {
			msg += fmt.Sprintf("Users without plan: %v\n", sanitize(strings.Join(detached, ", ")))
		}
		return msg
	case internal.EventPlansSaved:
		msg := "*Plans saved*\n"
		if plans, ok := event.Payload.([]entity.Plan); ok {
			if featured := entity.FeaturedPlan(plans); featured != nil && featured.IsFeatured {
				msg += fmt.Sprintf("Featured: %v\n", sanitize(featured.Name))
			}
		}
		if event.Info != "" {
			msg += fmt.Sprintf("%v\n", sanitize(event.Info))
		}
		return msg
	}
	return ""
}

func userEventText(event *internal.EventMessage) string {
	switch event.Type {
	case internal.EventPlanAssigned:
		plan := event.PlanId
		if plan == "" {
			plan = "none"
		}
		return fmt.Sprintf("*%v*: plan `%v`\n", sanitize(event.UserId), plan)
	case internal.EventBalanceAdjusted:
		msg := fmt.Sprintf("*%v*: balance adjusted by %v\n", sanitize(event.UserId), sanitize(utility.IntAsPrice(-event.AmountCents)))
		if user, ok := event.Payload.(entity.User); ok {
			msg += fmt.Sprintf("Balance: %v\n", sanitize(utility.IntAsPrice(user.BalanceCents)))
		}
		return msg
	}
	return ""
}

// compose status message
func (b *TgBot) composeStatusMessage() string {
	msg := "Status info:\n"
	msg += "\n"
	if b.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), statusTimeout)
		defer cancel()
		users, err := b.store.ListUsers().Wait(ctx)
		var plans []entity.Plan
		if err == nil {
			plans, err = b.store.ListPlans().Wait(ctx)
		}
		if err != nil {
			msg += fmt.Sprintf("Error reading store:\n `%v`\n", sanitize(err.Error()))
		} else {
			stats := entity.NewDashboardStats(users, plans)
			msg += fmt.Sprintf("Users: %v\n", stats.TotalUsers)
			msg += fmt.Sprintf("On a plan: %v\n", stats.OnAPlan)
			msg += fmt.Sprintf("Average renewable: %v%%\n", stats.AvgRenewablePercent)
			if featured := entity.FeaturedPlan(plans); featured != nil {
				msg += fmt.Sprintf("Featured plan: %v\n", sanitize(featured.Name))
			}
		}
		msg += "\n"
	}
	b.mutex.RLock()
	msg += fmt.Sprintf("Active subscriptions: %v", len(b.subscriptions))
	b.mutex.RUnlock()
	return msg
}

func sanitize(input string) string {
	reservedChars := "\\`*_{}[]()#+-.!|=>~"
	var sanitized strings.Builder
	for _, char := range input {
		if strings.ContainsRune(reservedChars, char) {
			sanitized.WriteRune('\\')
		}
		sanitized.WriteRune(char)
	}
	return sanitized.String()
}
