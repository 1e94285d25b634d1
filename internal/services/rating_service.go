package services

import (
	"context"
	"fmt"

	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RatingService keeps facilities.average_rating equal to the mean of the
// facility's reviews. Recompute is a read-then-write and may race with a
// concurrent review write; ReconcileAll runs nightly to heal that.
type RatingService struct {
	reviews    *database.ReviewRepository
	facilities *database.FacilityRepository
	logger     *logrus.Logger
}

// NewRatingService creates a new rating service
func NewRatingService(reviews *database.ReviewRepository, facilities *database.FacilityRepository, logger *logrus.Logger) *RatingService {
	return &RatingService{
		reviews:    reviews,
		facilities: facilities,
		logger:     logger,
	}
}

// Recompute refreshes the average rating of one facility. Failures are
// logged, never returned: the review write that triggered it has already
// succeeded.
func (s *RatingService) Recompute(ctx context.Context, facilityID uuid.UUID) {
	if err := s.recompute(ctx, facilityID); err != nil {
		s.logger.WithError(err).
			WithField("facility_id", facilityID).
			Error("Failed to recompute average rating")
	}
}

func (s *RatingService) recompute(ctx context.Context, facilityID uuid.UUID) error {
	stats, err := s.reviews.RatingStats(ctx, facilityID)
	if err != nil {
		return err
	}

	var avg *float64
	if stats.Count > 0 && stats.Average.Valid {
		v := stats.Average.Float64
		avg = &v
	}

	if err := s.facilities.SetAverageRating(ctx, facilityID, avg); err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"facility_id": facilityID,
		"reviews":     stats.Count,
	}).Debug("Average rating recomputed")
	return nil
}

// ReconcileAll recomputes every facility and returns how many were updated.
// It keeps going past individual failures.
func (s *RatingService) ReconcileAll(ctx context.Context) (int, error) {
	ids, err := s.facilities.ListAllIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load facilities for reconcile: %w", err)
	}

	updated := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		if err := s.recompute(ctx, id); err != nil {
			s.logger.WithError(err).WithField("facility_id", id).Warn("Reconcile failed for facility")
			continue
		}
		updated++
	}

	return updated, nil
}
