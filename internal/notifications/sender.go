package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/angelmondragon/enrollment-backend/pkg/config"
	"github.com/angelmondragon/enrollment-backend/pkg/enums"
	"github.com/angelmondragon/enrollment-backend/pkg/logger"
)

const defaultPublishTimeout = 15 * time.Second

// Recipient is one resolved identity.
type Recipient struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

// Message is what a Sender delivers: send(recipients, subject, body).
type Message struct {
	EventID    uuid.UUID              `json:"event_id"`
	EventType  enums.OutboxEventType  `json:"event_type"`
	Type       enums.NotificationType `json:"type"`
	Subject    string                 `json:"subject"`
	Body       string                 `json:"body"`
	Recipients []Recipient            `json:"recipients"`
}

// Sender is the outbound delivery channel. Delivery is best effort.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender only records the message.
type LogSender struct {
	logg *logger.Logger
}

func NewLogSender(logg *logger.Logger) *LogSender {
	return &LogSender{logg: logg}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if s.logg == nil {
		return nil
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"event_id":   msg.EventID.String(),
		"event_type": msg.EventType,
		"subject":    msg.Subject,
		"recipients": len(msg.Recipients),
	})
	s.logg.Info(logCtx, "notification delivered to log")
	return nil
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// PubSubSender publishes each message to a Pub/Sub topic.
type PubSubSender struct {
	publisher topicPublisher
}

func NewPubSubSender(publisher *gcppubsub.Publisher) (*PubSubSender, error) {
	if publisher == nil {
		return nil, errors.New("pubsub publisher required")
	}
	return &PubSubSender{publisher: &gcpPublisher{Publisher: publisher}}, nil
}

func (s *PubSubSender) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := s.publisher.Publish(publishCtx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_id":   msg.EventID.String(),
			"event_type": string(msg.EventType),
			"type":       string(msg.Type),
		},
	})
	if result == nil {
		return errors.New("publisher returned nil result")
	}
	_, err = result.Get(publishCtx)
	return err
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSender publishes each message to a durable RabbitMQ queue.
type AMQPSender struct {
	conn    *amqp.Connection
	channel amqpChannel
	queue   string
}

func NewAMQPSender(url, queue string) (*AMQPSender, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("amqp url required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("amqp queue required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &AMQPSender{conn: conn, channel: ch, queue: queue}, nil
}

func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	return s.channel.PublishWithContext(publishCtx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.EventID.String(),
		Type:         string(msg.EventType),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (s *AMQPSender) Close() error {
	var err error
	if s.channel != nil {
		err = s.channel.Close()
	}
	if s.conn != nil {
		if cerr := s.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

type notificationPublisherSource interface {
	NotificationPublisher() *gcppubsub.Publisher
}

// NewSender picks the delivery transport named by cfg.Transport.
func NewSender(cfg config.NotifyConfig, pubsub notificationPublisherSource, logg *logger.Logger) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Transport)) {
	case config.NotifyTransportPubSub:
		if pubsub == nil {
			return nil, errors.New("pubsub client required for pubsub transport")
		}
		return NewPubSubSender(pubsub.NotificationPublisher())
	case config.NotifyTransportAMQP:
		return NewAMQPSender(cfg.AMQPURL, cfg.AMQPQueue)
	case config.NotifyTransportLog, "":
		return NewLogSender(logg), nil
	default:
		return nil, fmt.Errorf("unsupported notify transport %q", cfg.Transport)
	}
}
