package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	segkafka "github.com/segmentio/kafka-go"
)

func TestEncode(t *testing.T) {
	msg, err := encode(Event{Key: "index.complete", Value: map[string]int{"pages": 3}})
	require.NoError(t, err)
	assert.Equal(t, "index.complete", string(msg.Key))
	assert.JSONEq(t, `{"pages":3}`, string(msg.Value))

	_, err = encode(Event{Key: "bad", Value: make(chan int)})
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Generation string `json:"generation"`
	}
	got, err := DecodeJSON[payload]([]byte(`{"generation":"gen-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "gen-1", got.Generation)

	_, err = DecodeJSON[payload]([]byte(`{`))
	assert.Error(t, err)
}

func TestConsumerOptions(t *testing.T) {
	rc := segkafka.ReaderConfig{GroupID: "shared"}
	WithGroupID("replica-7")(&rc)
	WithStartOffset(segkafka.FirstOffset)(&rc)
	assert.Equal(t, "replica-7", rc.GroupID)
	assert.Equal(t, segkafka.FirstOffset, rc.StartOffset)
}
