package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/aussiebroadwan/haulage/pkg/clockx"
	"github.com/aussiebroadwan/haulage/pkg/cryptox"
)

const (
	DefaultNotifyTopic = "auth.notifications"
	DefaultAlertTopic  = "auth.security-alerts"

	publishTimeout = 5 * time.Second
)

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaConfig struct {
	Brokers     []string
	NotifyTopic string
	AlertTopic  string
}

// KafkaPublisher publishes notices and alerts as JSON events. The writer is
// created without a default topic so each message names its own.
type KafkaPublisher struct {
	writer      MessageWriter
	notifyTopic string
	alertTopic  string
	clock       clockx.Clock
	logger      *slog.Logger
}

func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func NewKafkaPublisher(w MessageWriter, cfg KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	if cfg.NotifyTopic == "" {
		cfg.NotifyTopic = DefaultNotifyTopic
	}
	if cfg.AlertTopic == "" {
		cfg.AlertTopic = DefaultAlertTopic
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{
		writer:      w,
		notifyTopic: cfg.NotifyTopic,
		alertTopic:  cfg.AlertTopic,
		clock:       clockx.System{},
		logger:      logger.With("component", "kafka"),
	}
}

type event struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key, typ string, payload any) error {
	data, err := json.Marshal(event{Type: typ, At: p.clock.Now(), Payload: payload})
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", typ, err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	})
	if err != nil {
		return fmt.Errorf("kafka: publish %s to %s: %w", typ, topic, err)
	}
	return nil
}

func (p *KafkaPublisher) SendPasswordReset(ctx context.Context, n PasswordResetNotice) error {
	if err := p.publish(ctx, p.notifyTopic, n.Subject, "password_reset_requested", n); err != nil {
		return err
	}
	p.logger.DebugContext(ctx, "password reset notice published",
		"sub", n.Subject, "token_fp", cryptox.ShortFingerprint(n.Token))
	return nil
}

func (p *KafkaPublisher) Alert(ctx context.Context, a SecurityAlert) {
	if a.At.IsZero() {
		a.At = p.clock.Now()
	}
	if err := p.publish(ctx, p.alertTopic, a.key(), "security_alert", a); err != nil {
		p.logger.ErrorContext(ctx, "security alert not delivered",
			"kind", string(a.Kind), "sub", a.Subject, "error", err)
	}
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
