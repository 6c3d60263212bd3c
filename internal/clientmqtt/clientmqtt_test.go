package clientmqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k2mapper/internal/logger"
)

func TestParseTopic(t *testing.T) {
	group, key, ok := parseTopic("mixer", "mixer/[Channel1]/play")
	require.True(t, ok)
	assert.Equal(t, "[Channel1]", group)
	assert.Equal(t, "play", key)

	for _, topic := range []string{
		"mixer/[Channel1]/play/set",
		"mixer/[Channel1]",
		"other/[Channel1]/play",
		"mixer//play",
		"mixer",
	} {
		_, _, ok := parseTopic("mixer", topic)
		assert.False(t, ok, topic)
	}
}

func TestParsePayload(t *testing.T) {
	v, err := parsePayload([]byte(`{"value": 0.25}`))
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)

	v, err = parsePayload([]byte(" 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, v)

	_, err = parsePayload([]byte("on"))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	c := NewClient(logger.NewDiscard(), MQTTConf{Prefix: "mixer"})
	assert.Equal(t, "tcp", c.cfgClient.Schema)

	u, ok, err := c.decode("mixer/[EffectRack1_EffectUnit1]/focused_effect", []byte(`{"value":2}`))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Update{Group: "[EffectRack1_EffectUnit1]", Key: "focused_effect", Value: 2}, u)

	_, ok, err = c.decode("mixer/[Channel1]/play/set", []byte(`{"value":1}`))
	assert.NoError(t, err)
	assert.False(t, ok, "own writes are not applied back")

	_, _, err = c.decode("mixer/[Channel1]/play", []byte("?"))
	assert.Error(t, err)
}

func TestTopicFor(t *testing.T) {
	assert.Equal(t, nameTopic("mixer/[Channel1]/volume/set"), topicFor("mixer", "[Channel1]", "volume"))
}

func TestPublishWithoutConnection(t *testing.T) {
	c := NewClient(logger.NewDiscard(), MQTTConf{Prefix: "mixer"})
	assert.NotPanics(t, func() { c.Publish("[Channel1]", "play", 1) })
}
