// Command ingestor runs only the MQTT subscriber, without the HTTP API.
//
// Reliability counters live in process memory, so use it only when this
// process is the sole entry point for readings. When the api also serves
// traffic, leave MQTT_ENABLED on there instead and do not run this command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/app"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/broker"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/config"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(config.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, closeStore, err := app.Build(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("backend", config.StoreBackend()).Msg("store init failed")
	}
	defer closeStore()

	client := broker.Subscribe(ctx, svcs.Readings, config.MQTTBroker(), config.MQTTClientID(), config.MQTTTopic())
	defer client.Disconnect(250)

	log.Info().Str("topic", config.MQTTTopic()).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("ingestor stopping")
}
