package internal

import (
	"context"

	"energyadmin/entity"
)

// Database is the optional storage for the system log and bot subscriptions.
// Plans and users are never persisted.
type Database interface {
	WriteLogMessage(data Data) error
	ReadLog(ctx context.Context, limit int64) ([]FeatureLogMessage, error)
	GetSubscriptions() ([]entity.Subscription, error)
	AddSubscription(subscription *entity.Subscription) error
	DeleteSubscription(subscription *entity.Subscription) error
}

type Data interface {
	DataType() string
}
