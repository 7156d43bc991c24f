package notification_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"hotel/infras/kafka"
	kafkaMocks "hotel/infras/kafka/mocks"
	otelMocks "hotel/infras/otel/mocks"
	"hotel/internal/domains/booking/model"
	"hotel/internal/domains/booking/model/dto"
	"hotel/internal/workers/notification"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingNotifier struct {
	events []dto.BookingEvent
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, event dto.BookingEvent) error {
	r.events = append(r.events, event)

	return r.err
}

func TestWorker_Handle(t *testing.T) {
	event := dto.BookingEvent{
		Type:       model.EventCreated,
		BookingID:  7,
		RoomID:     3,
		GuestName:  "Guest",
		DateStart:  1_700_000_000,
		DateEnd:    1_700_000_000 + 2*86400,
		TotalPrice: decimal.NewFromInt(200),
		Status:     model.StatusConfirmed,
	}

	tests := []struct {
		name        string
		value       string
		notifyErr   error
		wantErr     bool
		wantNotices int
	}{
		{
			name:        "valid event",
			value:       `{"type":"booking.created","booking_id":7,"room_id":3,"guest_name":"Guest","date_start":1700000000,"date_end":1700172800,"total_price":"200","status":"CONFIRMED"}`,
			wantNotices: 1,
		},
		{
			name:  "malformed payload is dropped",
			value: `{`,
		},
		{
			name:        "notifier failure",
			value:       `{"type":"booking.created","booking_id":7}`,
			notifyErr:   errors.New("sms gateway down"),
			wantErr:     true,
			wantNotices: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &recordingNotifier{err: tt.notifyErr}
			worker := notification.New(nil, notifier, otelMocks.NewOtel(), "group", "bookings")

			err := worker.Handle(context.Background(), kafkaGo.Message{Key: []byte("7"), Value: []byte(tt.value)})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}

			require.Len(t, notifier.events, tt.wantNotices)

			if tt.name == "valid event" {
				assert.Equal(t, event.BookingID, notifier.events[0].BookingID)
				assert.Equal(t, event.Nights(), notifier.events[0].Nights())
				assert.True(t, event.TotalPrice.Equal(notifier.events[0].TotalPrice))
			}
		})
	}
}

func TestWorker_RunDispatchesUntilCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	client := kafkaMocks.NewMockClient(ctrl)
	notifier := &recordingNotifier{}
	worker := notification.New(client, notifier, otelMocks.NewOtel(), "group", "bookings")

	ctx, cancel := context.WithCancel(context.Background())

	client.EXPECT().
		Consume(gomock.Any(), "group", "bookings", gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string, handler kafka.Handler) error {
			assert.NoError(t, handler(ctx, kafkaGo.Message{Key: []byte("1"), Value: []byte(`{"type":"booking.cancelled","booking_id":1}`)}))
			cancel()
			<-ctx.Done()

			return nil
		})

	done := make(chan struct{})

	go func() {
		assert.NoError(t, worker.Run(ctx))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}

	require.Len(t, notifier.events, 1)
	assert.Equal(t, model.EventCancelled, notifier.events[0].Type)
}

func TestWorker_RunReportsConsumerFailure(t *testing.T) {
	ctrl := gomock.NewController(t)

	client := kafkaMocks.NewMockClient(ctrl)
	worker := notification.New(client, &recordingNotifier{}, otelMocks.NewOtel(), "group", "")

	client.EXPECT().Consume(gomock.Any(), "group", "", gomock.Any()).Return(errors.New("kafka topic is required"))

	err := worker.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kafka topic is required")
}

func TestLogNotifier_Notify(t *testing.T) {
	assert.NoError(t, notification.NewLogNotifier().Notify(context.Background(), dto.BookingEvent{Type: model.EventDeleted, BookingID: 1}))
}
