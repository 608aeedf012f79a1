// Package broker feeds MQTT messages into the reading service.
package broker

import (
	"context"
	"time"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/logging"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/service"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const connectWait = 5 * time.Second

// Handler returns a paho callback that ingests every message through
// readings, each under its own request id.
func Handler(ctx context.Context, readings *service.ReadingService) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		logger := logging.WithRequestID(logging.NewRequestID())
		mctx := logger.WithContext(ctx)
		if _, err := readings.FromMQTT(mctx, msg.Topic(), msg.Payload()); err != nil {
			logger.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
		}
	}
}

// Subscribe connects to brokerURL and subscribes to topic. The subscription
// is renewed on every reconnect. If the broker is unreachable at start the
// client keeps retrying in the background.
func Subscribe(ctx context.Context, readings *service.ReadingService, brokerURL, clientID, topic string) mqtt.Client {
	handler := Handler(ctx, readings)

	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOnConnectHandler(func(c mqtt.Client) {
			if token := c.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
				log.Error().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
				return
			}
			log.Info().Str("topic", topic).Msg("subscribed")
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectWait) {
		log.Warn().Str("broker", brokerURL).Msg("mqtt broker not reachable yet; retrying in background")
	} else if token.Error() != nil {
		log.Error().Err(token.Error()).Str("broker", brokerURL).Msg("mqtt connect")
	}
	return client
}
