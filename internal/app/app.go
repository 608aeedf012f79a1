// Package app assembles the store, cloud clients and services from config.
package app

import (
	"context"
	"fmt"

	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/cloud"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/config"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/database"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/repository"
	"github.com/ANIKETSHETTY47/environmental-sensor-hub/internal/service"
	"github.com/rs/zerolog/log"
)

// OpenStore returns the store selected by STORE_BACKEND and a func that
// releases it.
func OpenStore(ctx context.Context) (service.Store, func(), error) {
	noop := func() {}

	switch backend := config.StoreBackend(); backend {
	case "memory":
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), noop, nil

	case "dynamodb":
		store, err := cloud.NewDynamoDBStore(ctx, config.AWSRegion(), config.DynamoDevicesTable(), config.DynamoReadingsTable())
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case "postgres", "":
		db, err := database.Connect(config.DBDSN())
		if err != nil {
			return nil, noop, err
		}
		if config.DBMigrate() {
			if err := database.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, noop, err
			}
		}
		return repository.New(db), func() { db.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", backend)
	}
}

// Build wires the services. Cloud archiving and alerts are attached only when
// USE_CLOUD_SERVICES is set.
func Build(ctx context.Context) (*service.Services, func(), error) {
	store, closeStore, err := OpenStore(ctx)
	if err != nil {
		return nil, closeStore, err
	}

	var opts []service.Option
	if config.UseCloudServices() {
		if bucket := config.S3Bucket(); bucket != "" {
			s3c, err := cloud.NewS3Client(ctx, config.AWSRegion(), bucket)
			if err != nil {
				closeStore()
				return nil, func() {}, err
			}
			opts = append(opts, service.WithArchiver(s3c))
		}
		if arn := config.SNSTopicArn(); arn != "" {
			snsc, err := cloud.NewSNSClient(ctx, config.AWSRegion(), arn)
			if err != nil {
				closeStore()
				return nil, func() {}, err
			}
			opts = append(opts, service.WithNotifier(snsc))
		}
		log.Info().Int("cloud_options", len(opts)).Msg("cloud services enabled")
	}

	return service.New(store, config.Current(), opts...), closeStore, nil
}
