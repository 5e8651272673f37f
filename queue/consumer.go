package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"place-discovery/models"
	"place-discovery/services"
	"place-discovery/utils"
)

// Job kinds a message can ask for.
const (
	KindSuggestions = "suggestions"
	KindTransit     = "transit"
	KindRoutes      = "routes"
)

// Reader is the part of kafka.Reader the consumer uses. Tests swap in a fake.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Dispatcher runs the discovery operations. *services.Engine satisfies it.
type Dispatcher interface {
	Discover(ctx context.Context, req services.DiscoverRequest) (models.Result, error)
	PopulateTransit(ctx context.Context, propertyID int64) (models.Result, error)
	DiscoverRoutes(ctx context.Context, propertyID int64, cityContext string) (models.Result, error)
}

// Job is the JSON payload of a discovery message.
type Job struct {
	PropertyID   int64                    `json:"propertyId"`
	Kind         string                   `json:"kind"`
	CategoryType string                   `json:"categoryType,omitempty"`
	City         string                   `json:"city,omitempty"`
	Override     *models.LocationOverride `json:"override,omitempty"`
}

// NewReader opens a consumer-group reader with manual commits.
func NewReader(broker, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{broker},
		Topic:          topic,
		GroupID:        groupID,
		CommitInterval: 0,
		MinBytes:       1,
		MaxBytes:       10e6,
	})
}

// Consumer turns queue messages into engine calls.
type Consumer struct {
	reader  Reader
	engine  Dispatcher
	logger  *utils.Logger
	backoff time.Duration
}

// NewConsumer builds a consumer over reader.
func NewConsumer(reader Reader, engine Dispatcher, logger *utils.Logger) *Consumer {
	return &Consumer{reader: reader, engine: engine, logger: logger, backoff: time.Second}
}

// Run processes messages until ctx ends or the reader is closed. Every
// message is committed once handled, whatever the outcome: a denied or
// failed job is logged, not retried.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("[queue] Consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				c.logger.Info("[queue] Consumer stopped")
				return nil
			}
			c.logger.Error("[queue] Fetch failed: %v", err)
			if err := utils.Sleep(ctx, c.backoff); err != nil {
				return nil
			}
			continue
		}

		c.Handle(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("[queue] Commit offset %d failed: %v", msg.Offset, err)
		}
	}
}

// Handle decodes and runs one message.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) (models.Result, error) {
	var job Job
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		err = fmt.Errorf("queue: decode offset %d: %w", msg.Offset, err)
		c.logger.Warn("[queue] %v", err)
		return models.Failure(err), err
	}
	if job.PropertyID <= 0 {
		err := fmt.Errorf("queue: offset %d: missing property id", msg.Offset)
		c.logger.Warn("[queue] %v", err)
		return models.Failure(err), err
	}

	var (
		res models.Result
		err error
	)
	switch job.Kind {
	case "", KindSuggestions:
		res, err = c.engine.Discover(ctx, services.DiscoverRequest{
			PropertyID:   job.PropertyID,
			CategoryType: job.CategoryType,
			Override:     job.Override,
		})
	case KindTransit:
		res, err = c.engine.PopulateTransit(ctx, job.PropertyID)
	case KindRoutes:
		res, err = c.engine.DiscoverRoutes(ctx, job.PropertyID, job.City)
	default:
		err = fmt.Errorf("queue: unknown job kind %q", job.Kind)
		res = models.Failure(err)
	}

	if err != nil {
		c.logger.Warn("[queue] Property %d %s: %v", job.PropertyID, job.Kind, err)
	} else {
		c.logger.Info("[queue] Property %d %s: %s", job.PropertyID, job.Kind, res.Message)
	}
	return res, err
}
