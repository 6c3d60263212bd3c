package config

import (
	"github.com/BurntSushi/toml"
)

// Config структура конфигурации.
type Config struct {
	Logger  LogConf     // Logger - конфигурация регистратора.
	MIDI    MIDIConf    // MIDI - порты контроллера.
	Mapping MappingConf // Mapping - пресет контроллера.
	MQTT    MQTTConf    // MQTT - мост к удаленному движку параметров.
	ArtNet  ArtNetConf  // ArtNet - зеркалирование параметров в DMX.
}

// LogConf структура конфигурации.
type LogConf struct {
	Level string `toml:"log-level"` // Level - уровень логирования.
}

// MIDIConf describes the controller ports.
type MIDIConf struct {
	In       string `toml:"in"`        // In - имя входного порта.
	Out      string `toml:"out"`       // Out - имя выходного порта.
	DeviceID string `toml:"device-id"` // DeviceID - передается в init/shutdown.
}

// MappingConf selects the controller preset. A file path wins over a builtin name.
type MappingConf struct {
	Preset  string `toml:"preset"`  // Preset - путь к YAML пресету.
	Builtin string `toml:"builtin"` // Builtin - имя встроенного пресета.
}

// MQTTConf структура конфигурации.
type MQTTConf struct {
	Enabled  bool   `toml:"enabled"`  // Enabled - включает мост.
	ClientID string `toml:"clientID"` // ClientID - имя клиента.
	Host     string `toml:"server"`   // Host - адрес MQTT сервера.
	Port     string `toml:"port"`     // Port - порт MQTT сервера.
	User     string `toml:"user"`     // User - логин для подключения к MQTT серверу.
	Password string `toml:"password"` // Password - пароль для подключения к MQTT серверу.
	Qos      byte   `toml:"qos"`      // Qos - качество обслуживания.
	Prefix   string `toml:"prefix"`   // Prefix - корень дерева топиков.
}

// ArtNetConf структура конфигурации.
type ArtNetConf struct {
	Enabled  bool            `toml:"enabled"`
	Network  string          `toml:"network"` // Network - CIDR сети art-net.
	FPS      int             `toml:"fps"`
	Channels []DMXChannelConf `toml:"channel"`
}

// DMXChannelConf binds one host parameter to one DMX channel.
type DMXChannelConf struct {
	Group    string `toml:"group"`
	Key      string `toml:"key"`
	Universe uint16 `toml:"universe"`
	Channel  uint16 `toml:"channel"`
}

// NewConfig конструктор.
func NewConfig(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Default returns the configuration used when a key is missing from the file.
func Default() *Config {
	// default values
	return &Config{
		Logger: LogConf{Level: "info"},
		MIDI: MIDIConf{
			In:       "XONE:K2",
			Out:      "XONE:K2",
			DeviceID: "xone-k2",
		},
		Mapping: MappingConf{Builtin: "xone-k2-4fx"},
		MQTT: MQTTConf{
			ClientID: "k2mapper",
			Host:     "localhost",
			Port:     "1883",
			Prefix:   "mixer",
		},
		ArtNet: ArtNetConf{
			Network: "192.168.6.0/24",
			FPS:     1,
		},
	}
}
