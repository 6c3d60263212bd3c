package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // регистрирует драйвер rtmidi
	"k2mapper/internal/artnet"
	"k2mapper/internal/clientmqtt"
	"k2mapper/internal/config"
	"k2mapper/internal/control"
	"k2mapper/internal/engine"
	"k2mapper/internal/host"
	"k2mapper/internal/logger"
	"k2mapper/internal/mapping"
	"k2mapper/internal/midiio"
	"k2mapper/internal/preset"
)

var (
	configFile string
	listPorts  bool
)

func init() {
	flag.StringVar(&configFile, "config", "configs/conf.toml", "Path to configuration file")
	flag.BoolVar(&listPorts, "ports", false, "List MIDI ports and exit")
}

func main() {
	flag.Parse()
	if listPorts {
		ins, outs := midiio.Ports()
		fmt.Printf("in:  %q\nout: %q\n", ins, outs)
		return
	}

	cfg, err := config.NewConfig(configFile)
	if err != nil {
		fmt.Printf("configuration file read error: %v", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		fmt.Printf("failed to create a logger: %v", err)
		os.Exit(1)
	}
	log.Module("logger").Debug("newLogger created ok")

	p, err := loadPreset(cfg.Mapping)
	if err != nil {
		log.Module("mapping").Errorf("failed to load preset: %v", err)
		os.Exit(1)
	}

	port, err := midiio.Open(log, cfg.MIDI.In, cfg.MIDI.Out)
	if err != nil {
		log.Module("midi").Errorf("failed to open controller: %v", err)
		os.Exit(1)
	}

	e := engine.New(log)
	m := mapping.New(control.Env{Engine: e, MIDI: port, Timers: e, Log: log}, p, log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	// Канал обновлений от удаленного микшера.
	updates := make(chan clientmqtt.Update, 10)
	var client *clientmqtt.ClientMQTT
	if cfg.MQTT.Enabled {
		client = clientmqtt.NewClient(log, ConvertConfigClientMQTT(cfg.MQTT))
		e.Watch(client.Publish)
		if err = client.Start(ctx, updates); err != nil {
			log.Module("mqtt").Errorf("failed to start MQTT service: %v", err)
			cancel()
		}
		go applyUpdates(ctx, e, updates)
	}

	var a *artnet.ArtNet
	if cfg.ArtNet.Enabled {
		a, err = artnet.NewController(log, cfg.ArtNet.Network, cfg.ArtNet.FPS, ConvertConfigArtNet(cfg.ArtNet))
		if err != nil {
			log.Module("art-net").Errorf("error while creating a new controller art-net. %v", err)
			cancel()
		} else if err = a.Start(ctx); err != nil {
			log.Module("art-net").Errorf("failed to start art-net service: %v", err)
			a = nil
			cancel()
		}
	}

	e.Post(func() {
		m.Init(cfg.MIDI.DeviceID)
		if a != nil {
			a.Connect(e)
		}
	})
	if err = port.Listen(func(msg host.ShortMessage) {
		e.Post(func() { m.Input(msg) })
	}); err != nil {
		log.Module("midi").Errorf("failed to listen: %v", err)
		cancel()
	}

	if err = e.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Module("engine").Errorf("event loop: %v", err)
	}

	m.Shutdown(cfg.MIDI.DeviceID)
	port.Stop()

	if client != nil {
		if err := client.Stop(); err != nil {
			log.Module("mqtt").Errorf("failed to stop MQTT service: %v", err)
		}
	}
	if a != nil {
		a.Disconnect()
		a.Stop()
	}

	log.Info("shutdown complete")
}

func loadPreset(cfg config.MappingConf) (*preset.Preset, error) {
	if cfg.Preset != "" {
		return preset.Load(cfg.Preset)
	}
	return preset.Builtin(cfg.Builtin)
}

// applyUpdates hands remote values over to the event loop.
func applyUpdates(ctx context.Context, e *engine.Engine, updates <-chan clientmqtt.Update) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-updates:
			e.Post(func() { e.Apply(u.Group, u.Key, u.Value) })
		}
	}
}

// ConvertConfigClientMQTT преобразует структуры.
func ConvertConfigClientMQTT(cfg config.MQTTConf) clientmqtt.MQTTConf {
	return clientmqtt.MQTTConf{
		ClientID: cfg.ClientID,
		Schema:   "tcp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		Qos:      cfg.Qos,
		Prefix:   cfg.Prefix,
	}
}

// ConvertConfigArtNet преобразует структуры.
func ConvertConfigArtNet(cfg config.ArtNetConf) []artnet.Binding {
	bindings := make([]artnet.Binding, 0, len(cfg.Channels))
	for _, ch := range cfg.Channels {
		bindings = append(bindings, artnet.Binding{
			Group:    ch.Group,
			Key:      ch.Key,
			Universe: ch.Universe,
			Channel:  ch.Channel,
		})
	}
	return bindings
}
