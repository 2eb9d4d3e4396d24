package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/film-festival/internal/metrics"
)

// DialTimeout bounds the TCP connect and AMQP handshake with the broker.
const DialTimeout = 2 * time.Second

// dial opens a broker connection that gives up after timeout.
func dial(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

// Publisher publishes activity events to a durable queue. The connection
// is opened on first use and reopened after a failed publish.
type Publisher struct {
	url         string
	queue       string
	log         *slog.Logger
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher returns a publisher for queueName on the broker at url.
func NewPublisher(url, queueName string, log *slog.Logger) *Publisher {
	return &Publisher{
		url:         url,
		queue:       queueName,
		log:         log.With("component", "activity-publisher"),
		dialTimeout: DialTimeout,
	}
}

// Publish sends ev as a persistent JSON message. Errors are returned
// unlogged; the caller decides how loudly to report them.
func (p *Publisher) Publish(ctx context.Context, ev ActivityEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		metrics.ActivityPublishedTotal.WithLabelValues("error").Inc()
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		MessageId:    ev.ID,
		Type:         string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		p.reset()
		metrics.ActivityPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish: %w", err)
	}
	metrics.ActivityPublishedTotal.WithLabelValues("ok").Inc()
	return nil
}

// channel returns the open channel, dialing and declaring the queue if
// needed. The dial never outlives ctx's deadline. Callers hold p.mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	timeout := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, fmt.Errorf("dial: %w", context.DeadlineExceeded)
		}
		timeout = min(timeout, left)
	}
	p.log.DebugContext(ctx, "dialing broker", "timeout", timeout)
	conn, err := dial(p.url, timeout)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

// Close releases the broker connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
