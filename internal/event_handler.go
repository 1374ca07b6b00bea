package internal

import "time"

const (
	EventPlanCreated     = "plan_created"
	EventPlanDeleted     = "plan_deleted"
	EventPlansSaved      = "plans_saved"
	EventPlanAssigned    = "plan_assigned"
	EventBalanceAdjusted = "balance_adjusted"
)

// EventHandler receives committed store mutations. Calls are made synchronously
// by the store, so implementations must not block.
type EventHandler interface {
	OnPlanEvent(event *EventMessage)
	OnUserEvent(event *EventMessage)
}

type EventMessage struct {
	Type        string      `json:"type" bson:"type"`
	Time        time.Time   `json:"time" bson:"time"`
	PlanId      string      `json:"plan_id,omitempty" bson:"plan_id"`
	UserId      string      `json:"user_id,omitempty" bson:"user_id"`
	AmountCents int         `json:"amount_cents,omitempty" bson:"amount_cents"`
	Info        string      `json:"info,omitempty" bson:"info"`
	Payload     interface{} `json:"payload,omitempty" bson:"payload"`
}

func (e *EventMessage) MessageType() string {
	return e.Type
}
