// Package queue contains the background consumer that listens to the
// patient events queue and appends one audit line per event to a log file.
package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// AuditConsumer reads PatientEvents from a durable queue and writes them to
// LogPath.
type AuditConsumer struct {
    URL     string
    Queue   string
    LogPath string
    Logger  *slog.Logger
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is cancelled.  Lost connections are retried with exponential backoff
// capped at 30s.  A message that cannot be handled is logged and rejected
// without requeue so it does not loop.
func (a *AuditConsumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        conn, err := amqp.Dial(a.URL)
        if err != nil {
            a.Logger.Warn("audit consumer: dial failed", "error", err, "retry_in", backoff)
            if !sleep(ctx, backoff) {
                return nil
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second // reset after successful connect

        err = a.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return nil
        }
        a.Logger.Warn("audit consumer: consume loop ended; reconnecting", "error", err)
        if !sleep(ctx, 2*time.Second) {
            return nil
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (a *AuditConsumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        a.Logger.Warn("audit consumer: set QoS failed", "error", err)
    }
    if _, err := ch.QueueDeclare(a.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, a.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    a.Logger.Info("audit consumer: consuming", "queue", a.Queue, "log", a.LogPath)
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := AppendAudit(a.LogPath, d.Body); err != nil {
                a.Logger.Error("audit consumer: handle message failed", "error", err)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// AppendAudit decodes one PatientEvent and appends a single human-friendly
// line for it to path, creating parent directories as needed.
func AppendAudit(path string, body []byte) error {
    var ev PatientEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" || ev.PatientID == "" {
        return errors.New("event without type or patient id")
    }
    if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
        return fmt.Errorf("mkdir: %w", err)
    }
    f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    line := fmt.Sprintf("[%s] %s | patient_id=%s", ev.OccurredAt, ev.Type, ev.PatientID)
    if ev.Patient != nil {
        line += fmt.Sprintf(" | name=%q | age=%d | bmi=%.2f | verdict=%q",
            ev.Patient.Name, ev.Patient.Age, ev.Patient.BMI, ev.Patient.Verdict)
    }
    if ev.RequestID != "" {
        line += " | request_id=" + ev.RequestID
    }
    if _, err := f.WriteString(line + "\n"); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
