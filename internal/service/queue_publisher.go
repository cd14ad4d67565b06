// Package service provides functions to publish domain events to RabbitMQ.
// Errors are logged and returned to allow callers to ignore failures without
// interrupting the main request flow.
package service

import (
    "context"
    "encoding/json"
    "log/slog"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/patient-records/internal/config"
    q "github.com/iliyamo/patient-records/internal/queue"
)

// EventPublisher hands patient events to a broker.
type EventPublisher interface {
    Publish(ctx context.Context, event q.PatientEvent) error
}

// NewEventPublisher returns an AMQP publisher when events are enabled and a
// no-op publisher otherwise.
func NewEventPublisher(cfg config.EventsConfig, logger *slog.Logger) EventPublisher {
    if !cfg.Enabled {
        return NopPublisher{}
    }
    return &AMQPPublisher{URL: cfg.URL, Queue: cfg.Queue, DialTimeout: 2 * time.Second, Logger: logger}
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, q.PatientEvent) error { return nil }

// AMQPPublisher publishes each event on its own short-lived connection to
// the default exchange, routed to Queue.
type AMQPPublisher struct {
    URL         string
    Queue       string
    DialTimeout time.Duration
    Logger      *slog.Logger
}

// Publish sends event as a persistent JSON message.  The function never
// panics; any error is logged and returned so the caller can choose to
// ignore it.
func (p *AMQPPublisher) Publish(ctx context.Context, event q.PatientEvent) error {
    conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: amqp.DefaultDial(p.DialTimeout)})
    if err != nil {
        p.Logger.Warn("rabbitmq: dial failed", "error", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.Logger.Warn("rabbitmq: channel open failed", "error", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(
        p.Queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        p.Logger.Warn("rabbitmq: queue declare failed", "queue", p.Queue, "error", err)
        return err
    }

    body, err := json.Marshal(event)
    if err != nil {
        p.Logger.Warn("rabbitmq: marshal event failed", "error", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent, // store on disk
        Timestamp:    time.Now().UTC(),
        Type:         event.Type,
        MessageId:    event.RequestID,
        Body:         body,
    }

    if err := ch.PublishWithContext(ctx,
        "",      // default exchange
        p.Queue, // routing key = queue name
        false,   // mandatory
        false,   // immediate
        pub,
    ); err != nil {
        p.Logger.Warn("rabbitmq: publish failed", "queue", p.Queue, "error", err)
        return err
    }
    return nil
}
