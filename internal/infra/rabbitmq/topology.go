package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	JobRoutingKey    = "video.matting"
	StatusRoutingKey = "video.status"
)

// Topology names the exchange and queues shared by the web process and workers.
type Topology struct {
	Exchange    string
	JobQueue    string
	DLQ         string
	StatusQueue string
}

// Declare creates the topic exchange and durable queues and binds them. It is
// idempotent and called by both publishers and consumers.
func (t Topology) Declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	for _, q := range []string{t.JobQueue, t.DLQ, t.StatusQueue} {
		if q == "" {
			continue
		}
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare queue %s: %w", q, err)
		}
	}
	if err := ch.QueueBind(t.JobQueue, JobRoutingKey, t.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind job queue: %w", err)
	}
	if t.StatusQueue != "" {
		if err := ch.QueueBind(t.StatusQueue, StatusRoutingKey, t.Exchange, false, nil); err != nil {
			return fmt.Errorf("bind status queue: %w", err)
		}
	}
	return nil
}
