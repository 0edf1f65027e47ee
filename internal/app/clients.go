package app

import (
	"context"
	"fmt"

	"github.com/yungbote/ttahub-resources-backend/internal/clients/gcp"
	"github.com/yungbote/ttahub-resources-backend/internal/clients/redis"
	"github.com/yungbote/ttahub-resources-backend/internal/platform/logger"
)

// Clients are the optional external connections. Nil fields mean the feature
// is off: no wake bus falls back to in-process wakes, no bucket skips blob cleanup.
type Clients struct {
	WakeBus redis.WakeBus
	Blobs   gcp.BlobStore
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if cfg.Redis.Addr != "" {
		bus, err := redis.NewWakeBus(log, cfg.Redis.Addr, cfg.Redis.Channel)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis wake bus: %w", err)
		}
		out.WakeBus = bus
	}

	// Gcs
	if cfg.GCSBucket != "" {
		blobs, err := gcp.NewBucketService(ctx, log, cfg.GCSBucket)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init bucket client: %w", err)
		}
		out.Blobs = blobs
	}
	return out, nil
}

func (c Clients) Close() {
	if c.WakeBus != nil {
		_ = c.WakeBus.Close()
	}
	if c.Blobs != nil {
		_ = c.Blobs.Close()
	}
}
