package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/campusdirectory/facility-api/internal/config"
	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/campusdirectory/facility-api/internal/services"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		dbURLFlag string
		driver    string
		timeout   time.Duration
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&driver, "driver", "postgres", "database driver: postgres or pgx")
	flag.DurationVar(&timeout, "timeout", 10*time.Minute, "abort after this long")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		Driver:             driver,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ratings := services.NewRatingService(
		database.NewReviewRepository(db),
		database.NewFacilityRepository(db),
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	started := time.Now()
	count, err := ratings.ReconcileAll(ctx)
	if err != nil {
		logger.WithField("reconciled", count).Fatalf("Rating recompute failed: %v", err)
	}

	logger.WithFields(logrus.Fields{
		"facilities": count,
		"duration":   time.Since(started).String(),
	}).Info("Average ratings recomputed")
}
