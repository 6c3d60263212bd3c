// Package clientmqtt bridges the parameter engine to a remote mixer over MQTT.
// The mixer publishes state on <prefix>/<group>/<key>, the mapping publishes
// its writes on <prefix>/<group>/<key>/set.
package clientmqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"k2mapper/internal/logger"
)

// ClientMQTT структура клиента MQTT.
type ClientMQTT struct {
	ctx       context.Context
	log       logger.Logger
	cfgClient MQTTConf
	client    mqtt.Client
	opts      *mqtt.ClientOptions
	updates   chan<- Update
}

// MQTTClient is a convenience interface to use within this application.
type MQTTClient interface {
	Start(ctx context.Context, updates chan<- Update) error
	Stop() error
	Publish(group, key string, value float64)
}

var _ MQTTClient = (*ClientMQTT)(nil)

// NewClient конструктор.
func NewClient(log logger.Logger, cfgClient MQTTConf) *ClientMQTT {
	if cfgClient.Schema == "" {
		cfgClient.Schema = "tcp"
	}
	return &ClientMQTT{
		log:       log,
		cfgClient: cfgClient,
	}
}

func (c *ClientMQTT) Start(ctx context.Context, updates chan<- Update) error {
	if c.log.GetLevel() == "debug" {
		l := c.log.Module("paho")
		mqtt.ERROR = l
		mqtt.CRITICAL = l
		mqtt.WARN = l
	}

	c.ctx = ctx
	c.updates = updates

	c.opts = mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%s", c.cfgClient.Schema, c.cfgClient.Host, c.cfgClient.Port)).
		SetUsername(c.cfgClient.User).
		SetPassword(c.cfgClient.Password).
		SetDefaultPublishHandler(c.messageHandler).
		SetOnConnectHandler(c.connectHandler).
		SetConnectionLostHandler(c.connectLostHandler).
		SetClientID(c.cfgClient.ClientID).
		SetOrderMatters(true).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetMaxReconnectInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	c.client = mqtt.NewClient(c.opts)

	token := c.client.Connect()
	select {
	case <-token.Done():
		if token.Error() != nil {
			return token.Error()
		}
	case <-c.ctx.Done():
		return errors.New("context canceled")
	}

	c.log.Module("mqtt").Infof("Status: %v", c.client.IsConnected())
	return nil
}

func (c *ClientMQTT) Stop() error {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(500)
	}
	return nil
}

// connectHandler (re)subscribes to the state tree, a clean session forgets it.
func (c *ClientMQTT) connectHandler(_ mqtt.Client) {
	c.log.Module("mqtt").Info("client connected to server")
	c.sub(c.cfgClient.Prefix + "/#")
}

func (c *ClientMQTT) connectLostHandler(_ mqtt.Client, err error) {
	c.log.Module("mqtt").Errorf("server connect lost: %v", err)
}

func (c *ClientMQTT) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	c.log.Module("mqtt").Debugf("received message: %s from topic: %s", msg.Payload(), msg.Topic())
	u, ok, err := c.decode(msg.Topic(), msg.Payload())
	if err != nil {
		c.log.Module("mqtt").Errorf("message could not be parsed (%s): %v", msg.Payload(), err)
		return
	}
	if !ok {
		return
	}
	select {
	case c.updates <- u:
	case <-c.ctx.Done():
	}
}

// decode turns a state message into an update. Set topics and topics outside
// the prefix are skipped without error.
func (c *ClientMQTT) decode(topic string, payload []byte) (Update, bool, error) {
	group, key, ok := parseTopic(c.cfgClient.Prefix, topic)
	if !ok {
		return Update{}, false, nil
	}
	value, err := parsePayload(payload)
	if err != nil {
		return Update{}, false, err
	}
	return Update{Group: group, Key: key, Value: value}, true, nil
}

func parseTopic(prefix, topic string) (group, key string, ok bool) {
	rest := strings.TrimPrefix(topic, prefix+"/")
	if rest == topic {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// parsePayload accepts {"value": x} and a bare number.
func parsePayload(payload []byte) (float64, error) {
	var data Payload
	if err := json.Unmarshal(payload, &data); err == nil {
		return data.Value, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(payload)), 64)
	if err != nil {
		return 0, fmt.Errorf("payload %q: %w", payload, err)
	}
	return v, nil
}

func topicFor(prefix, group, key string) nameTopic {
	return nameTopic(strings.Join([]string{prefix, group, key, setSuffix}, "/"))
}

func (c *ClientMQTT) sub(topic string) {
	token := c.client.Subscribe(topic, c.cfgClient.Qos, nil)
	go func() {
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.log.Module("mqtt").Errorf("topic %s subscription error. %v", topic, token.Error())
				return
			}
		}
		c.log.Module("mqtt").Debugf("topic %s subscribed", topic)
	}()
}

// Publish sends a local write to the mixer. It does not block.
func (c *ClientMQTT) Publish(group, key string, value float64) {
	if c.client == nil {
		return
	}
	topic := topicFor(c.cfgClient.Prefix, group, key)
	msg, err := json.Marshal(Payload{Value: value})
	if err != nil {
		c.log.Module("mqtt").Errorf("publish %s: %v", topic, err)
		return
	}
	token := c.client.Publish(string(topic), c.cfgClient.Qos, false, msg)
	go func() {
		select {
		case <-c.ctx.Done():
			return
		case <-token.Done():
			if token.Error() != nil {
				c.log.Module("mqtt").Errorf("error publish topic %s. %v", topic, token.Error())
			}
		}
	}()
}
