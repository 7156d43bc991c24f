package notification

import (
	"context"
	"fmt"

	"hotel/config"
	"hotel/infras/kafka"
	"hotel/infras/otel"
	"hotel/internal/domains/booking/model/dto"
	"hotel/shared/constant"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

// Notifier turns booking events into guest notification lines.
type Notifier interface {
	Notify(ctx context.Context, event dto.BookingEvent) error
}

type logNotifier struct{}

// NewLogNotifier writes notifications to the structured log.
func NewLogNotifier() Notifier {
	return logNotifier{}
}

func (logNotifier) Notify(_ context.Context, event dto.BookingEvent) error {
	log.Info().
		Str("type", event.Type).
		Int64("booking_id", event.BookingID).
		Int64("room_id", event.RoomID).
		Str("guest_phone", event.GuestPhone).
		Msg(event.Summary())

	return nil
}

type Worker struct {
	client   kafka.Client
	notifier Notifier
	otel     otel.Otel
	group    string
	topic    string
}

func New(client kafka.Client, notifier Notifier, otel otel.Otel, group, topic string) *Worker {
	return &Worker{
		client:   client,
		notifier: notifier,
		otel:     otel,
		group:    group,
		topic:    topic,
	}
}

// NewFromConfig reads the consumer group and booking topic from cfg.
func NewFromConfig(cfg *config.Config, client kafka.Client, notifier Notifier, otel otel.Otel) *Worker {
	return New(client, notifier, otel, cfg.Kafka.ConsumerGroup, cfg.Kafka.Topic.Booking)
}

// Run consumes the booking topic until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	log.Info().Str("topic", w.topic).Str("group", w.group).Msg("Notification worker started.")

	if err := w.client.Consume(ctx, w.group, w.topic, w.Handle); err != nil {
		return fmt.Errorf("failed to consume booking events: %w", err)
	}

	log.Info().Msg("Notification worker stopped.")

	return nil
}

func (w *Worker) Handle(ctx context.Context, message kafkaGo.Message) (err error) {
	ctx, scope := w.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Notification.Handle")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	decoded, err := kafka.DecodeKafkaMessage[dto.BookingEvent](message)
	if err != nil {
		// retrying cannot fix a malformed record
		log.Error().Err(err).Str("key", string(message.Key)).Msg("dropping malformed booking event")

		return nil
	}

	event, _ := decoded.Value.(dto.BookingEvent)

	scope.SetAttributes(map[string]any{
		"event.type":       event.Type,
		"event.booking_id": event.BookingID,
	})

	if err = w.notifier.Notify(ctx, event); err != nil {
		return fmt.Errorf("failed to notify guest: %w", err)
	}

	return nil
}
