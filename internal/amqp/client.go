// Package amqp publishes and consumes worktime report messages over
// RabbitMQ. The core never touches it directly; the tracker service
// publishes best-effort and the worker process consumes.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"worktime/internal/core"
	"worktime/internal/report"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishRecordSaved announces a saved record for archival.
func (c *Client) PublishRecordSaved(ctx context.Context, date string, rec core.DayRecord) error {
	return c.publish(ctx, KindRecordSaved, RecordSavedMessage{Date: date, Record: rec})
}

// PublishDailyReport requests delivery of one day's record.
func (c *Client) PublishDailyReport(ctx context.Context, date string, rec core.DayRecord, overtimeThreshold int) error {
	return c.publish(ctx, KindDailyReport, DailyReportMessage{
		Date:                     date,
		Record:                   rec,
		OvertimeThresholdMinutes: overtimeThreshold,
	})
}

// PublishMonthlyReport requests delivery of a month/project listing.
func (c *Client) PublishMonthlyReport(ctx context.Context, year, month int, project string, rows []report.DayMinutes) error {
	return c.publish(ctx, KindMonthlyReport, MonthlyReportMessage{
		Year:    year,
		Month:   month,
		Project: project,
		Rows:    rows,
	})
}

func (c *Client) publish(ctx context.Context, kind string, payload any) error {
	env, err := NewEnvelope(kind, payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s message: %w", kind, err)
	}

	slog.InfoContext(ctx, "Published message",
		"kind", kind,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

// Handlers routes consumed envelopes by kind. A nil handler drops messages
// of that kind with an ack.
type Handlers struct {
	RecordSaved   func(context.Context, *RecordSavedMessage) error
	DailyReport   func(context.Context, *DailyReportMessage) error
	MonthlyReport func(context.Context, *MonthlyReportMessage) error
}

// Consume processes queue deliveries until the context is cancelled.
// Undecodable messages are rejected without requeue; handler errors requeue
// the delivery.
func (c *Client) Consume(ctx context.Context, h Handlers) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			env, err := EnvelopeFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal envelope", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := c.dispatch(ctx, env, h); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"kind", env.Kind, "error", err)
				// Undecodable payloads can never succeed; only handler
				// failures are worth redelivering.
				delivery.Nack(false, !errors.Is(err, errDecode))
				continue
			}
			delivery.Ack(false)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, env *Envelope, h Handlers) error {
	switch env.Kind {
	case KindRecordSaved:
		if h.RecordSaved == nil {
			return nil
		}
		var msg RecordSavedMessage
		if err := env.Decode(&msg); err != nil {
			return err
		}
		return h.RecordSaved(ctx, &msg)
	case KindDailyReport:
		if h.DailyReport == nil {
			return nil
		}
		var msg DailyReportMessage
		if err := env.Decode(&msg); err != nil {
			return err
		}
		return h.DailyReport(ctx, &msg)
	case KindMonthlyReport:
		if h.MonthlyReport == nil {
			return nil
		}
		var msg MonthlyReportMessage
		if err := env.Decode(&msg); err != nil {
			return err
		}
		return h.MonthlyReport(ctx, &msg)
	default:
		slog.WarnContext(ctx, "Dropping message of unknown kind", "kind", env.Kind)
		return nil
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
