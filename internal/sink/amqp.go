package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher is the part of *amqp.Channel the sink needs
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// recordMessage is the body of one published record
type recordMessage struct {
	Kind     string `json:"kind"`
	Document string `json:"document"`
	Record   any    `json:"record"`
}

// AMQPSink publishes one persistent JSON message per record to a durable
// queue. Master batches are ignored.
type AMQPSink struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	pub   publisher
	queue string
}

// NewAMQPSink dials uri and declares queue
func NewAMQPSink(uri, queue string) (*AMQPSink, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &AMQPSink{conn: conn, ch: ch, pub: ch, queue: queue}, nil
}

// Write publishes every record in the batch, incorporations first
func (s *AMQPSink) Write(ctx context.Context, batch Batch) error {
	if batch.Master {
		return nil
	}

	for _, inc := range batch.Incorporations {
		if err := s.publish(ctx, recordMessage{Kind: KindIncorporations, Document: batch.Key, Record: inc}); err != nil {
			return err
		}
	}
	for _, nc := range batch.NameChanges {
		if err := s.publish(ctx, recordMessage{Kind: KindNameChanges, Document: batch.Key, Record: nc}); err != nil {
			return err
		}
	}
	return nil
}

func (s *AMQPSink) publish(ctx context.Context, msg recordMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", msg.Kind, err)
	}

	err = s.pub.PublishWithContext(
		ctx,
		"",      // default exchange
		s.queue, // routing key = queue name
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Type:         msg.Kind,
			Body:         body,
			Headers:      amqp.Table{"document": msg.Document},
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s record from %s: %w", msg.Kind, msg.Document, err)
	}
	return nil
}

// Close closes the channel and connection
func (s *AMQPSink) Close() error {
	var errCh, errConn error
	if s.ch != nil {
		errCh = s.ch.Close()
	}
	if s.conn != nil {
		errConn = s.conn.Close()
	}
	return errors.Join(errCh, errConn)
}
