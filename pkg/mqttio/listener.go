// Package mqttio is the optional MQTT side channel: it mirrors broker
// traffic into the log pane. It never participates in delivery
// correlation; acknowledgements only ever come from the radio link.
package mqttio

import (
	"crypto/tls"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/SAMS0N1TE/meshtui/pkg/domain"
	apperrors "github.com/SAMS0N1TE/meshtui/pkg/errors"
	"github.com/SAMS0N1TE/meshtui/pkg/events"
	"github.com/SAMS0N1TE/meshtui/pkg/logger"
)

// Options selects the broker endpoint.
type Options struct {
	Host     string
	Port     int
	TLS      bool
	ClientID string
	Username string
	Password string
}

type Listener struct {
	opts   Options
	bus    *events.Bus
	client mqtt.Client
	logger zerolog.Logger
}

func NewListener(opts Options, bus *events.Bus) *Listener {
	if opts.Host == "" {
		opts.Host = domain.DefaultMQTTHost
	}
	if opts.Port == 0 {
		opts.Port = domain.DefaultMQTTPort
	}
	if opts.ClientID == "" {
		opts.ClientID = "meshtui-listener"
	}
	return &Listener{
		opts:   opts,
		bus:    bus,
		logger: logger.ComponentLogger("mqtt-listener"),
	}
}

func (l *Listener) Connect() error {
	opts := mqtt.NewClientOptions()

	broker := l.brokerURL()
	opts.AddBroker(broker)
	opts.SetClientID(l.opts.ClientID)
	opts.SetKeepAlive(domain.DefaultMQTTKeepAlive)
	opts.SetPingTimeout(domain.DefaultMQTTPingTimeout)
	opts.SetConnectTimeout(domain.DefaultMQTTConnTimeout)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(domain.DefaultMQTTReconnectInt)

	if l.opts.TLS {
		opts.SetTLSConfig(&tls.Config{
			InsecureSkipVerify: false,
			MinVersion:         tls.VersionTLS12,
		})
	}
	if l.opts.Username != "" {
		opts.SetUsername(l.opts.Username)
		opts.SetPassword(l.opts.Password)
	}

	opts.SetOnConnectHandler(l.onConnect)
	opts.SetConnectionLostHandler(l.onConnectionLost)

	l.client = mqtt.NewClient(opts)

	if token := l.client.Connect(); token.Wait() && token.Error() != nil {
		return apperrors.NewTransportError("failed to connect to mqtt", token.Error())
	}

	l.logger.Info().Str("broker", broker).Msg("connected to mqtt broker")
	l.bus.Emit(events.SystemLog{Text: "MQTT connected: " + broker})
	return nil
}

func (l *Listener) brokerURL() string {
	if l.opts.TLS {
		return fmt.Sprintf("ssl://%s:%d", l.opts.Host, l.opts.Port)
	}
	return fmt.Sprintf("tcp://%s:%d", l.opts.Host, l.opts.Port)
}

func (l *Listener) onConnect(client mqtt.Client) {
	if token := client.Subscribe("#", 0, l.messageHandler); token.Wait() && token.Error() != nil {
		l.logger.Error().Err(token.Error()).Msg("failed to subscribe")
	} else {
		l.logger.Info().Str("topic", "#").Msg("subscribed to topic")
	}
}

func (l *Listener) onConnectionLost(_ mqtt.Client, err error) {
	l.logger.Error().Err(err).Msg("connection lost")
	l.bus.Emit(events.SystemLog{Text: "MQTT connection lost"})
}

func (l *Listener) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	if len(payload) > domain.MaxMQTTPayloadLog {
		payload = payload[:domain.MaxMQTTPayloadLog]
	}
	l.bus.Emit(events.SystemLog{
		Text: fmt.Sprintf("MQTT %s: %s", msg.Topic(), payload),
	})
}

func (l *Listener) Disconnect() {
	if l.client != nil && l.client.IsConnected() {
		l.client.Disconnect(domain.DefaultMQTTDisconnectMs)
		l.logger.Info().Msg("disconnected from mqtt broker")
	}
}
