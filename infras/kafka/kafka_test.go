package kafka_test

import (
	"context"
	"testing"
	"time"

	"hotel/config"
	"hotel/infras/kafka"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Type string `json:"type"`
	ID   int64  `json:"id"`
}

func TestMessage_RoundTrip(t *testing.T) {
	msg := kafka.Message{Key: "42", Value: payload{Type: "booking.created", ID: 42}}

	raw, err := msg.ToKafkaMessage()
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), raw.Key)
	assert.JSONEq(t, `{"type":"booking.created","id":42}`, string(raw.Value))

	decoded, err := kafka.DecodeKafkaMessage[payload](raw)
	require.NoError(t, err)
	assert.Equal(t, "42", decoded.Key)
	assert.Equal(t, payload{Type: "booking.created", ID: 42}, decoded.Value)
}

func TestDecodeKafkaMessage_InvalidJSON(t *testing.T) {
	_, err := kafka.DecodeKafkaMessage[payload](kafkaGo.Message{Value: []byte("{")})
	assert.Error(t, err)
}

func TestToKafkaMessage_Unmarshalable(t *testing.T) {
	msg := kafka.Message{Key: "k", Value: make(chan int)}

	_, err := msg.ToKafkaMessage()
	assert.Error(t, err)
}

func TestNew_DisabledIsNoop(t *testing.T) {
	cfg := &config.Config{}
	cfg.Kafka.Enable = false

	client := kafka.New(cfg)

	assert.NoError(t, client.SendMessages(context.Background(), "topic", kafka.Message{Key: "k", Value: "v"}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	done := make(chan struct{})

	go func() {
		assert.NoError(t, client.Consume(ctx, "", "topic", func(context.Context, kafkaGo.Message) error { return nil }))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Consume did not return after context cancellation")
	}
}
