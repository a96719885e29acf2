// Package events consumes upload-completed notifications and enqueues the
// enrichment workflows for each video.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/nijaru/yt-enrich/models"
	"github.com/nijaru/yt-enrich/repository"
	"github.com/nijaru/yt-enrich/workflow"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// UploadCompletedMessage announces that a video upload finished and its
// subtitle track is being prepared.
type UploadCompletedMessage struct {
	VideoID string `json:"video_id"`
	UserID  string `json:"user_id"`
}

type Config struct {
	URL   string
	Queue string
}

type Consumer struct {
	cfg    Config
	jobs   repository.JobRepository
	logger *logrus.Logger

	mu     sync.Mutex
	conn   *amqp.Connection
	cancel context.CancelFunc
	done   chan struct{}
}

func NewConsumer(cfg Config, jobs repository.JobRepository) *Consumer {
	return &Consumer{
		cfg:    cfg,
		jobs:   jobs,
		logger: logrus.StandardLogger(),
	}
}

// Start connects to the broker and consumes until the context is canceled
// or Close is called.
func (c *Consumer) Start(ctx context.Context) error {
	conn, err := amqp.Dial(c.cfg.URL)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	queue, err := ch.QueueDeclare(
		c.cfg.Queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return err
	}

	deliveries, err := ch.Consume(
		queue.Name,
		"",    // consumer
		false, // manual ack, redelivery covers enqueue failures
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		conn.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.conn = conn
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.logger.WithField("queue", queue.Name).Info("Consuming upload events")

	go func() {
		defer close(c.done)
		defer conn.Close()
		for {
			select {
			case <-runCtx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					c.logger.Warn("Event channel closed")
					return
				}
				c.handle(runCtx, delivery)
			}
		}
	}()

	return nil
}

// Close stops consuming and waits for the loop to exit.
func (c *Consumer) Close() {
	c.mu.Lock()
	cancel := c.cancel
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (c *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	var msg UploadCompletedMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil || msg.VideoID == "" || msg.UserID == "" {
		c.logger.WithError(err).WithField("body", string(delivery.Body)).
			Warn("Dropping malformed upload event")
		if err := delivery.Reject(false); err != nil {
			c.logger.WithError(err).Error("Failed to reject delivery")
		}
		return
	}

	logger := c.logger.WithFields(logrus.Fields{
		"video_id": msg.VideoID,
		"user_id":  msg.UserID,
	})

	for _, kind := range []models.JobKind{models.JobKindTitle, models.JobKindDescription} {
		if _, err := workflow.Enqueue(ctx, c.jobs, kind, msg.VideoID, msg.UserID); err != nil {
			logger.WithError(err).WithField("kind", string(kind)).
				Error("Failed to enqueue enrichment job, requeueing event")
			if nackErr := delivery.Nack(false, true); nackErr != nil {
				c.logger.WithError(nackErr).Error("Failed to nack delivery")
			}
			return
		}
	}

	if err := delivery.Ack(false); err != nil {
		c.logger.WithError(err).Error("Failed to ack delivery")
		return
	}
	logger.Info("Enqueued enrichment workflows for upload")
}
