// Package pool implements the controller's N+1 bus connections: one control
// connection (join/exit/obituary) and a fixed fan-out of N state
// connections, round-robined per vehicle at subscription time.
package pool

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/htcs-sim/controller/internal/config"
)

// Conn wraps a single MQTT connection with the connection-setup and
// timeout-bound publish/subscribe/unsubscribe calls the pool needs; the
// pool owns many of these rather than one.
type Conn struct {
	client mqttlib.Client
	id     string
	logger *logrus.Logger
}

// dial parses brokerURL, handling both plain MQTT and WebSocket schemes, and
// returns a connected Conn identified by clientID.
func dial(brokerURL, clientID string, cfg *config.Config, logger *logrus.Logger) (*Conn, error) {
	parsedURL, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid broker URL: %w", err)
	}

	opts := mqttlib.NewClientOptions()

	var resolved string
	switch parsedURL.Scheme {
	case "ws":
		resolved = brokerURL
	case "wss":
		resolved = brokerURL
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	case "tcp", "mqtt":
		resolved = strings.Replace(brokerURL, "mqtt://", "tcp://", 1)
	case "ssl", "mqtts":
		resolved = strings.Replace(brokerURL, "mqtts://", "ssl://", 1)
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	default:
		return nil, fmt.Errorf("unsupported broker scheme: %s (supported: tcp, ssl, ws, wss, mqtt, mqtts)", parsedURL.Scheme)
	}

	opts.AddBroker(resolved)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)

	opts.SetConnectionLostHandler(func(_ mqttlib.Client, err error) {
		logger.WithFields(logrus.Fields{"client_id": clientID, "error": err}).Warn("bus connection lost")
	})
	opts.SetOnConnectHandler(func(_ mqttlib.Client) {
		logger.WithField("client_id", clientID).Debug("bus client connected")
	})

	client := mqttlib.NewClient(opts)
	token := client.Connect()
	if token.WaitTimeout(config.ConnectTimeout) && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect client %s: %w", clientID, token.Error())
	}
	if !token.WaitTimeout(config.ConnectTimeout) {
		return nil, fmt.Errorf("connect to broker timed out for client %s", clientID)
	}

	return &Conn{client: client, id: clientID, logger: logger}, nil
}

// Subscribe subscribes to topic at the given QoS, invoking handler for every
// matching message delivered on this connection's read loop.
func (c *Conn) Subscribe(topic string, qos byte, handler mqttlib.MessageHandler) error {
	token := c.client.Subscribe(topic, qos, handler)
	if !token.WaitTimeout(config.SubscribeTimeout) {
		return fmt.Errorf("subscribe to %s timed out on client %s", topic, c.id)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s failed on client %s: %w", topic, c.id, token.Error())
	}
	return nil
}

// Unsubscribe unsubscribes from topic and blocks until the broker
// acknowledges or the timeout elapses.
func (c *Conn) Unsubscribe(topic string) error {
	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(config.UnsubscribeTimeout) {
		return fmt.Errorf("unsubscribe from %s timed out on client %s", topic, c.id)
	}
	return token.Error()
}

// Publish publishes payload to topic at the given QoS.
func (c *Conn) Publish(topic string, qos byte, payload []byte) error {
	token := c.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(config.PublishTimeout) {
		return fmt.Errorf("publish to %s timed out on client %s", topic, c.id)
	}
	return token.Error()
}

// Disconnect tears down the connection, waiting up to quiesceMs for
// in-flight work to drain.
func (c *Conn) Disconnect(quiesceMs uint) {
	c.client.Disconnect(quiesceMs)
}

// IsConnected reports whether the underlying client believes it is
// connected.
func (c *Conn) IsConnected() bool {
	return c.client.IsConnected()
}
