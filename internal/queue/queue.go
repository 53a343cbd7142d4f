package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/curator/internal/util"
	"github.com/OFFIS-RIT/curator/pkg/logger"

	"github.com/rabbitmq/amqp091-go"
)

const (
	CurationQueue = "curation_queue"
	Exchange      = "pubsub_exchange"
	// TopicJobDone is published after every finished curation job.
	TopicJobDone = "curation.done"

	retryTTLMs = 10000
)

// Init dials RabbitMQ, retrying while the broker is still starting.
func Init(ctx context.Context) (*amqp091.Connection, error) {
	user := util.GetEnv("RABBITMQ_USER")
	pass := util.GetEnv("RABBITMQ_PASSWORD")
	host := util.GetEnv("RABBITMQ_HOST")
	port := util.GetEnvString("RABBITMQ_PORT", "5672")

	connURL := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		user,
		pass,
		host,
		port,
	)

	return util.RetryWithContext(ctx, 10, 2*time.Second, func(ctx context.Context) (*amqp091.Connection, error) {
		conn, err := amqp091.Dial(connURL)
		if err != nil {
			logger.Warn("Failed to connect to RabbitMQ, retrying", "host", host, "err", err)
		}
		return conn, err
	})
}

// SetupQueues declares the topic exchange and, for every queue name, the
// work queue with its dead-letter queue and its delayed retry queue.
func SetupQueues(ch *amqp091.Channel, queueNames []string) error {
	err := ch.ExchangeDeclare(
		Exchange,
		"topic",
		false,
		true,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("exchange declare failed: %w", err)
	}

	for _, name := range queueNames {
		_, err := ch.QueueDeclare(
			name,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("queue declare %s failed: %w", name, err)
		}

		dlqName := name + "_dlq"
		_, err = ch.QueueDeclare(
			dlqName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("queue declare %s failed: %w", dlqName, err)
		}

		retryName := name + "_retry"
		_, err = ch.QueueDeclare(
			retryName,
			true,
			false,
			false,
			false,
			amqp091.Table{
				"x-message-ttl":             int32(retryTTLMs),
				"x-dead-letter-exchange":    "",
				"x-dead-letter-routing-key": name,
			},
		)
		if err != nil {
			return fmt.Errorf("queue declare %s failed: %w", retryName, err)
		}
	}

	return nil
}

func PublishFIFO(ch *amqp091.Channel, queueName string, data []byte) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.Publish(
		"",
		queueName,
		false,
		false,
		publishing,
	)
}

func PublishTopic(ch *amqp091.Channel, topic string, data []byte) error {
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         data,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
	}

	return ch.Publish(
		Exchange,
		topic,
		false,
		false,
		publishing,
	)
}

// RetryCount reads the x-retries header set by HandleProcessingError.
func RetryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// retryTarget returns the queue a failed delivery goes to next and whether
// that is the dead-letter queue.
func retryTarget(queueName string, retries, maxRetries int) (string, bool) {
	if retries >= maxRetries {
		return queueName + "_dlq", true
	}
	return queueName + "_retry", false
}

// HandleProcessingError sends a failed delivery to the retry queue, or to
// the dead-letter queue once it has been retried maxRetries times. It
// reports whether the delivery was dead-lettered.
func HandleProcessingError(ch *amqp091.Channel, msg amqp091.Delivery, queueName string, maxRetries int) bool {
	retries := RetryCount(msg.Headers)

	headers := msg.Headers
	if headers == nil {
		headers = amqp091.Table{}
	}
	target, dead := retryTarget(queueName, retries, maxRetries)
	if dead {
		logger.Info("Sending message to DLQ", "dlq", target)
	} else {
		headers["x-retries"] = int32(retries + 1)
	}

	pubErr := ch.Publish(
		"",
		target,
		false,
		false,
		amqp091.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to republish message", "queue", target, "err", pubErr)
		msg.Nack(false, true)
		return false
	}
	msg.Ack(false)
	return dead
}
