package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
[logger]
log-level = "debug"

[midi]
in = "K2 In"
out = "K2 Out"

[mqtt]
enabled = true
server = "broker.local"
prefix = "studio"

[artnet]
enabled = true

[[artnet.channel]]
group = "[Channel1]"
key = "volume"
universe = 1
channel = 10
`

func TestNewConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.toml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := NewConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "K2 In", cfg.MIDI.In)
	assert.Equal(t, "K2 Out", cfg.MIDI.Out)
	assert.Equal(t, "xone-k2", cfg.MIDI.DeviceID, "missing keys keep defaults")
	assert.Equal(t, "xone-k2-4fx", cfg.Mapping.Builtin)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "broker.local", cfg.MQTT.Host)
	assert.Equal(t, "1883", cfg.MQTT.Port)
	assert.Equal(t, "studio", cfg.MQTT.Prefix)
	require.Len(t, cfg.ArtNet.Channels, 1)
	assert.Equal(t, DMXChannelConf{Group: "[Channel1]", Key: "volume", Universe: 1, Channel: 10}, cfg.ArtNet.Channels[0])
}

func TestNewConfigMissingFile(t *testing.T) {
	cfg, err := NewConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestShippedConfig(t *testing.T) {
	cfg, err := NewConfig(filepath.Join("..", "..", "configs", "conf.toml"))
	require.NoError(t, err)
	assert.Equal(t, "xone-k2-4fx", cfg.Mapping.Builtin)
	assert.False(t, cfg.MQTT.Enabled)
	assert.Len(t, cfg.ArtNet.Channels, 2)
}
