package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler processes one delivery. Returning an error parks the message on
// the dead-letter queue; video jobs are never redelivered.
type MessageHandler func(ctx context.Context, body []byte) error

type Consumer struct {
	channel     *amqp.Channel
	queue       string
	workerCount int
	handler     MessageHandler
	dlq         *DLQPublisher
	logger      *zap.Logger
	wg          sync.WaitGroup
}

type ConsumerConfig struct {
	Topology    Topology
	Prefetch    int
	WorkerCount int
}

func NewConsumer(conn *amqp.Connection, cfg ConsumerConfig, handler MessageHandler, dlq *DLQPublisher, logger *zap.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := cfg.Topology.Declare(ch); err != nil {
		ch.Close()
		return nil, err
	}
	prefetch := cfg.Prefetch
	if prefetch < 1 {
		prefetch = 1
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	workers := cfg.WorkerCount
	if workers < 1 {
		workers = 1
	}

	return &Consumer{
		channel:     ch,
		queue:       cfg.Topology.JobQueue,
		workerCount: workers,
		handler:     handler,
		dlq:         dlq,
		logger:      logger,
	}, nil
}

// Start consumes until ctx is cancelled, then waits for in-flight jobs.
func (c *Consumer) Start(ctx context.Context) error {
	deliveries, err := c.channel.ConsumeWithContext(
		ctx,
		c.queue,
		"",
		false, // autoAck=false
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	c.logger.Info("starting queue workers",
		zap.Int("workers", c.workerCount),
		zap.String("queue", c.queue),
	)

	for i := 0; i < c.workerCount; i++ {
		c.wg.Add(1)
		go c.worker(ctx, i, deliveries)
	}

	<-ctx.Done()
	c.logger.Info("context cancelled, waiting for workers to finish")
	c.wg.Wait()
	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, deliveries <-chan amqp.Delivery) {
	defer c.wg.Done()
	log := c.logger.With(zap.Int("worker_id", id))
	log.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info("worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				log.Info("delivery channel closed")
				return
			}
			c.processDelivery(ctx, d, log)
		}
	}
}

func (c *Consumer) processDelivery(ctx context.Context, d amqp.Delivery, log *zap.Logger) {
	// A started job runs to the end even if the worker is asked to stop.
	err := c.handler(context.WithoutCancel(ctx), d.Body)
	if err != nil {
		log.Warn("message rejected",
			zap.Error(err),
			zap.Uint64("delivery_tag", d.DeliveryTag),
		)
		if c.dlq != nil {
			if dlqErr := c.dlq.PublishToDLQ(context.WithoutCancel(ctx), d.Body, err.Error()); dlqErr != nil {
				log.Error("dead-letter publish failed", zap.Error(dlqErr))
			}
		}
	}
	_ = d.Ack(false)
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		return c.channel.Close()
	}
	return nil
}

// Dial connects to the broker.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, nil
}
