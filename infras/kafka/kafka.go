package kafka

//go:generate go run go.uber.org/mock/mockgen -source=./kafka.go -destination=./mocks/kafka_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hotel/config"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const (
	handlerAttempts = 3
	writeTimeout    = 10 * time.Second
)

//nolint:gochecknoglobals
var handlerBackoff = 500 * time.Millisecond

type Message struct {
	Key   string
	Value any
}

func (m *Message) ToKafkaMessage() (kafkaGo.Message, error) {
	jsonValue, err := json.Marshal(m.Value)
	if err != nil {
		return kafkaGo.Message{}, fmt.Errorf("failed to marshal message value to JSON: %w", err)
	}

	return kafkaGo.Message{
		Key:   []byte(m.Key),
		Value: jsonValue,
	}, nil
}

func DecodeKafkaMessage[T any](msg kafkaGo.Message) (Message, error) {
	var value T

	if err := json.Unmarshal(msg.Value, &value); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal Kafka message value from JSON: %w", err)
	}

	return Message{
		Key:   string(msg.Key),
		Value: value,
	}, nil
}

// Handler processes one record. A returned error is retried a few times before
// the offset is committed anyway, so one bad record cannot stall a partition.
type Handler func(ctx context.Context, message kafkaGo.Message) error

type Client interface {
	SendMessages(ctx context.Context, topic string, messages ...Message) (err error)
	Consume(ctx context.Context, consumerGroup, topic string, handler Handler) (err error)
}

type kafkaClientImpl struct {
	config *config.Config
	dialer *kafkaGo.Dialer
	writer *kafkaGo.Writer
}

func New(cfg *config.Config) Client {
	if !cfg.Kafka.Enable {
		log.Warn().Msg("Kafka disabled, events will not be published")

		return &noopClient{}
	}

	dialer := &kafkaGo.Dialer{
		Timeout:   writeTimeout,
		DualStack: true,
	}
	transport := &kafkaGo.Transport{}

	if cfg.Kafka.SASL.Username != "" {
		mechanism := plain.Mechanism{
			Username: cfg.Kafka.SASL.Username,
			Password: cfg.Kafka.SASL.Password,
		}

		dialer.SASLMechanism = mechanism
		transport.SASL = mechanism
	}

	log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka client initialized")

	return &kafkaClientImpl{
		config: cfg,
		dialer: dialer,
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(cfg.Kafka.Brokers...),
			Transport:              transport,
			Balancer:               &kafkaGo.Hash{},
			RequiredAcks:           kafkaGo.RequireAll,
			WriteTimeout:           writeTimeout,
			AllowAutoTopicCreation: true,
		},
	}
}

// SendMessages writes synchronously. Records with the same key land on the
// same partition, so events of one booking stay ordered.
func (k *kafkaClientImpl) SendMessages(ctx context.Context, topic string, messages ...Message) error {
	records := make([]kafkaGo.Message, 0, len(messages))

	for _, message := range messages {
		record, err := message.ToKafkaMessage()
		if err != nil {
			return err
		}

		record.Topic = topic
		records = append(records, record)
	}

	if err := k.writer.WriteMessages(ctx, records...); err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to send message to Kafka.")

		return fmt.Errorf("failed to send message to Kafka: %w", err)
	}

	log.Debug().Str("topic", topic).Int("count", len(records)).Msg("Sent messages to Kafka.")

	return nil
}

// Consume processes records one at a time and commits each offset after its
// handler finishes. It returns nil once ctx is cancelled.
func (k *kafkaClientImpl) Consume(ctx context.Context, consumerGroup, topic string, handler Handler) error {
	if topic == "" {
		return errors.New("kafka topic is required") //nolint:err113
	}

	groupID := k.config.Kafka.ConsumerGroup
	if consumerGroup != "" {
		groupID = consumerGroup
	}

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:     k.config.Kafka.Brokers,
		Topic:       topic,
		GroupID:     groupID,
		Dialer:      k.dialer,
		StartOffset: kafkaGo.FirstOffset,
	})

	defer func() {
		if err := reader.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka reader.")
		}
	}()

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Str("topic", topic).Msg("Consumer context done.")

				return nil
			}

			log.Error().Err(err).Str("topic", topic).Msg("Failed to read message from Kafka.")

			continue
		}

		handle(ctx, handler, msg)

		if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Int64("offset", msg.Offset).Msg("Failed to commit Kafka offset.")
		}
	}
}

func handle(ctx context.Context, handler Handler, msg kafkaGo.Message) {
	logger := log.With().
		Str("topic", msg.Topic).
		Int("partition", msg.Partition).
		Int64("offset", msg.Offset).
		Str("key", string(msg.Key)).
		Logger()

	for attempt := 1; attempt <= handlerAttempts; attempt++ {
		err := handler(ctx, msg)
		if err == nil {
			return
		}

		logger.Error().Err(err).Int("attempt", attempt).Msg("Failed to handle Kafka message.")

		if attempt == handlerAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(handlerBackoff * time.Duration(attempt)):
		}
	}

	logger.Warn().Msg("Giving up on Kafka message.")
}

// noopClient stands in when Kafka is disabled so publishers need no nil checks.
type noopClient struct{}

func (n *noopClient) SendMessages(_ context.Context, topic string, messages ...Message) error {
	log.Debug().Str("topic", topic).Int("count", len(messages)).Msg("Kafka disabled, dropping messages.")

	return nil
}

func (n *noopClient) Consume(ctx context.Context, _, topic string, _ Handler) error {
	log.Warn().Str("topic", topic).Msg("Kafka disabled, consumer idle until shutdown.")

	<-ctx.Done()

	return nil
}
