package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Leegeev/mbus/pkg/config"
)

func TestParse(t *testing.T) {
	t.Run("empty string gives defaults", func(t *testing.T) {
		b, err := config.Parse("")
		require.NoError(t, err)
		assert.Equal(t, config.DefaultBus(), b)
	})

	t.Run("yaml", func(t *testing.T) {
		b, err := config.Parse("queue_capacity: 4\noverflow: drop_newest\nmax_topics: 10\n")
		require.NoError(t, err)
		assert.Equal(t, 4, b.QueueCapacity)
		assert.Equal(t, config.OverflowDropNewest, b.Overflow)
		assert.Equal(t, 10, b.MaxTopics)
		assert.Equal(t, 255, b.MaxTopicName)
	})

	t.Run("json", func(t *testing.T) {
		b, err := config.Parse(`{"queue_capacity": 8, "max_payload": 1024}`)
		require.NoError(t, err)
		assert.Equal(t, 8, b.QueueCapacity)
		assert.Equal(t, 1024, b.MaxPayload)
		assert.Equal(t, config.OverflowDropOldest, b.Overflow)
	})

	t.Run("broken json", func(t *testing.T) {
		_, err := config.Parse(`{"queue_capacity": `)
		require.Error(t, err)
	})

	t.Run("not a mapping", func(t *testing.T) {
		_, err := config.Parse("just some words")
		require.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := config.Parse("queue_capacity: 0")
		require.ErrorIs(t, err, config.ErrInvalid)

		_, err = config.Parse("overflow: grow")
		require.ErrorIs(t, err, config.ErrInvalid)

		_, err = config.Parse("max_payload: -1")
		require.ErrorIs(t, err, config.ErrInvalid)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("MBUS_QUEUE_CAPACITY", "3")

		b, err := config.Parse("queue_capacity: 100")
		require.NoError(t, err)
		assert.Equal(t, 3, b.QueueCapacity)
	})
}

func TestBusValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.DefaultBus().Validate())

	b := config.DefaultBus()
	b.MaxTopicName = 0
	assert.ErrorIs(t, b.Validate(), config.ErrInvalid)

	b = config.DefaultBus()
	b.MaxTopics = -5
	assert.ErrorIs(t, b.Validate(), config.ErrInvalid)
}
