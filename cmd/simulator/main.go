package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"time"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/config"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/logging"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/service"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/simulation"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

func main() {
	devices := flag.Int("devices", 3, "number of simulated devices")
	clients := flag.Int("clients", 2, "reporting clients per device")
	rounds := flag.Int("rounds", 100, "publish rounds")
	interval := flag.Duration("interval", 500*time.Millisecond, "delay between rounds")
	flag.Parse()

	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(config.LogLevel())

	opts := mqtt.NewClientOptions().
		AddBroker(config.MQTTBroker()).
		SetClientID(config.MQTTClientID() + "-simulator")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatal().Err(token.Error()).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	seed := time.Now().UnixNano()
	gen := simulation.NewGenerator(seed)
	pick := rand.New(rand.NewSource(seed + 1))
	topic := config.MQTTTopic()

	published := 0
	for i := 0; i < *rounds; i++ {
		now := time.Now().UTC()
		sub := service.Submission{
			DeviceID:  fmt.Sprintf("sensor-%03d", pick.Intn(*devices)+1),
			ClientID:  fmt.Sprintf("client-%d", pick.Intn(*clients)+1),
			Timestamp: &now,
			Values:    gen.Values(),
		}
		payload, err := json.Marshal(sub)
		if err != nil {
			log.Error().Err(err).Msg("encode")
			continue
		}
		token := client.Publish(topic, 1, false, payload)
		if token.Wait() && token.Error() != nil {
			log.Error().Err(token.Error()).Str("device_id", sub.DeviceID).Msg("publish failed")
			continue
		}
		published++
		time.Sleep(*interval)
	}
	log.Info().Int("published", published).Str("topic", topic).Msg("simulation done")
}
