package analytics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSinkWithoutBrokersIsNoop(t *testing.T) {
	s, err := NewSink(nil, "posting.analytics")
	require.NoError(t, err)
	assert.IsType(t, NoopSink{}, s)
	assert.NoError(t, s.Publish(context.Background(), "k", Message{Kind: "analytics"}))
	assert.NoError(t, s.Close())
}

func TestNewKafkaSinkRequiresTopic(t *testing.T) {
	_, err := NewKafkaSink([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	s, err := NewSink([]string{"localhost:9092"}, "posting.analytics")
	require.NoError(t, err)
	assert.IsType(t, &KafkaSink{}, s)
}
