package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/app"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/broker"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/config"
	httpHandlers "github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/http"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/logging"
	"github.com/gofiber/fiber/v2"
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

	// HTTP and MQTT share svcs, so both feed the same reliability counters.
	if config.MQTTEnabled() {
		client := broker.Subscribe(ctx, svcs.Readings, config.MQTTBroker(), config.MQTTClientID(), config.MQTTTopic())
		defer client.Disconnect(250)
	}

	srv := fiber.New()

	srv.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })

	httpHandlers.Register(srv, svcs)

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown()
	}()

	addr := config.APIAddr()
	log.Info().Str("addr", addr).Bool("mqtt", config.MQTTEnabled()).Msg("api listening")
	if err := srv.Listen(addr); err != nil {
		log.Error().Err(err).Msg("server exit")
	}
}
