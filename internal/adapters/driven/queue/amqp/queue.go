package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/corpora-labs/corpora-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PipelineQueue = (*Queue)(nil)

const (
	exchangeName = "corpora.pipelines"
	exchangeKind = "topic"
)

// pipelineMessage is the wire format consumed by pipeline runners. The
// routing key carries the pipeline id so each runner binds only to its
// own pipeline.
type pipelineMessage struct {
	TenantID   string    `json:"tenant_id"`
	PipelineID string    `json:"pipeline_id"`
	TaskID     string    `json:"task_id"`
	DocID      string    `json:"doc_id"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Queue implements PipelineQueue on a RabbitMQ topic exchange. Jobs for
// user-defined ingestion pipelines are routed by pipeline id.
type Queue struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewQueue creates a new RabbitMQ-backed pipeline queue and declares
// the durable exchange.
func NewQueue(conn *amqp.Connection) (*Queue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchangeName,
		exchangeKind,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Queue{conn: conn, channel: ch}, nil
}

// Enqueue publishes one pipeline job routed by pipeline id.
func (q *Queue) Enqueue(ctx context.Context, tenantID, pipelineID, taskID, docID string) error {
	body, err := json.Marshal(pipelineMessage{
		TenantID:   tenantID,
		PipelineID: pipelineID,
		TaskID:     taskID,
		DocID:      docID,
		EnqueuedAt: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshal pipeline message: %w", err)
	}

	err = q.channel.PublishWithContext(ctx,
		exchangeName,
		"pipeline."+pipelineID,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    taskID,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish pipeline job: %w", err)
	}
	return nil
}

// Ping checks if the broker connection is alive.
func (q *Queue) Ping(ctx context.Context) error {
	if q.conn.IsClosed() {
		return fmt.Errorf("amqp connection closed")
	}
	return nil
}

// Close closes the channel; the connection is owned by the caller.
func (q *Queue) Close() error {
	return q.channel.Close()
}
