package internal

import (
	"context"
	"fmt"
	"log"
	"time"

	"energyadmin/entity"
	"energyadmin/internal/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collectionLog           = "sys_log"
	collectionSubscriptions = "subscriptions"
	operationTimeout        = 10 * time.Second
)

// MongoDB opens a short lived connection per call; writes are rare and the
// log sink must not hold a pool open while the store runs without a database.
type MongoDB struct {
	clientOptions *options.ClientOptions
	database      string
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	if conf.Mongo.Database == "" {
		return nil, fmt.Errorf("mongo database name is empty")
	}
	clientOptions := options.Client().
		ApplyURI(fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)).
		SetTimeout(operationTimeout)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	return &MongoDB{clientOptions: clientOptions, database: conf.Mongo.Database}, nil
}

// collection runs fn against a named collection of a fresh connection
func (m *MongoDB) collection(ctx context.Context, name string, fn func(*mongo.Collection) error) error {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return fmt.Errorf("mongodb connect: %w", err)
	}
	defer func() {
		if err := connection.Disconnect(ctx); err != nil {
			log.Println("mongodb disconnect error;", err)
		}
	}()
	return fn(connection.Database(m.database).Collection(name))
}

func (m *MongoDB) WriteLogMessage(data Data) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	return m.collection(ctx, collectionLog, func(c *mongo.Collection) error {
		_, err := c.InsertOne(ctx, data)
		return err
	})
}

// ReadLog returns up to limit log messages, newest first
func (m *MongoDB) ReadLog(ctx context.Context, limit int64) ([]FeatureLogMessage, error) {
	messages := make([]FeatureLogMessage, 0)
	err := m.collection(ctx, collectionLog, func(c *mongo.Collection) error {
		opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
		cursor, err := c.Find(ctx, bson.D{}, opts)
		if err != nil {
			return err
		}
		return cursor.All(ctx, &messages)
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (m *MongoDB) GetSubscriptions() ([]entity.Subscription, error) {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	var subscriptions []entity.Subscription
	err := m.collection(ctx, collectionSubscriptions, func(c *mongo.Collection) error {
		cursor, err := c.Find(ctx, bson.D{})
		if err != nil {
			return err
		}
		return cursor.All(ctx, &subscriptions)
	})
	return subscriptions, err
}

// AddSubscription inserts the subscription unless the chat is already subscribed
func (m *MongoDB) AddSubscription(subscription *entity.Subscription) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	return m.collection(ctx, collectionSubscriptions, func(c *mongo.Collection) error {
		count, err := c.CountDocuments(ctx, bson.D{{Key: "user_id", Value: subscription.UserID}})
		if err != nil {
			return err
		}
		if count > 0 {
			return fmt.Errorf("user is already subscribed")
		}
		_, err = c.InsertOne(ctx, subscription)
		return err
	})
}

func (m *MongoDB) DeleteSubscription(subscription *entity.Subscription) error {
	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()
	return m.collection(ctx, collectionSubscriptions, func(c *mongo.Collection) error {
		_, err := c.DeleteOne(ctx, bson.D{{Key: "user_id", Value: subscription.UserID}})
		return err
	})
}
