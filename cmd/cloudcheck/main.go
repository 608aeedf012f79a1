// Command cloudcheck probes the configured AWS resources: it uploads a probe
// object to the archive bucket, publishes a test alert and round-trips a
// device through the DynamoDB tables.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/cloud"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/config"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logging.Setup(config.LogLevel())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	region := config.AWSRegion()
	failed := 0
	check := func(name string, fn func() error) {
		if err := fn(); err != nil {
			failed++
			log.Error().Err(err).Str("check", name).Msg("FAIL")
			return
		}
		log.Info().Str("check", name).Msg("ok")
	}

	if bucket := config.S3Bucket(); bucket != "" {
		check("s3", func() error {
			c, err := cloud.NewS3Client(ctx, region, bucket)
			if err != nil {
				return err
			}
			body := []byte(fmt.Sprintf("probe %s", time.Now().UTC().Format(time.RFC3339)))
			return c.UploadDataFile(ctx, "probes/cloudcheck.txt", body)
		})
	}

	if arn := config.SNSTopicArn(); arn != "" {
		check("sns", func() error {
			c, err := cloud.NewSNSClient(ctx, region, arn)
			if err != nil {
				return err
			}
			return c.SendAlert(ctx, "cloudcheck", "test alert from cloudcheck")
		})
	}

	check("dynamodb", func() error {
		store, err := cloud.NewDynamoDBStore(ctx, region, config.DynamoDevicesTable(), config.DynamoReadingsTable())
		if err != nil {
			return err
		}
		dev, err := store.UpsertDevice(ctx, "cloudcheck-probe")
		if err != nil {
			return err
		}
		if _, err := store.FindReadings(ctx, dev.ID, 1); err != nil {
			return err
		}
		devices, err := store.ListDevices(ctx)
		if err != nil {
			return err
		}
		log.Info().Int("devices", len(devices)).Int64("probe_id", dev.ID).Msg("dynamodb tables reachable")
		return nil
	})

	if failed > 0 {
		log.Fatal().Int("failed", failed).Msg("cloud checks failed")
	}
}
