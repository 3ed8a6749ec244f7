package database

import (
	"context"
	"fmt"
	"time"

	"pulse/config"

	"github.com/sirupsen/logrus"
)

const (
	connectAttempts = 3
	connectBackoff  = 2 * time.Second
)

// Connect opens the store selected by cfg.DatabaseDriver, retrying a few
// times so the API can start alongside its database.
func Connect(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Store, error) {
	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		store, err := open(ctx, cfg, log)
		if err == nil {
			if err = store.Ping(ctx); err == nil {
				log.WithField("driver", cfg.DatabaseDriver).Info("database connected")
				return store, nil
			}
			_ = store.Close()
		}
		lastErr = err
		log.WithFields(logrus.Fields{
			"driver":  cfg.DatabaseDriver,
			"attempt": attempt,
		}).WithError(err).Warn("database connection failed")

		if attempt < connectAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(connectBackoff):
			}
		}
	}
	return nil, fmt.Errorf("connect %s: %w", cfg.DatabaseDriver, lastErr)
}

func open(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		return OpenPostgres(cfg.DatabaseURL, log)
	case config.DriverSQLite:
		return OpenSQLite(cfg.DatabaseURL, log)
	case config.DriverMongo:
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}
