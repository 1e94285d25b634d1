package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/campusdirectory/facility-api/internal/listquery"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/google/uuid"
)

// ReviewResource describes the reviews table to the list query builder
var ReviewResource = listquery.Resource{
	Table: "reviews",
	Columns: []string{
		"id", "title", "text", "rating", "facility_id", "user_id",
		"created_at", "updated_at",
	},
	Fields: map[string]listquery.Field{
		"id":         {Column: "id", Kind: listquery.UUID},
		"title":      {Column: "title", Kind: listquery.Text},
		"text":       {Column: "text", Kind: listquery.Text},
		"rating":     {Column: "rating", Kind: listquery.Integer},
		"facilityId": {Column: "facility_id", Kind: listquery.UUID},
		"facility":   {Column: "facility_id", Kind: listquery.UUID},
		"userId":     {Column: "user_id", Kind: listquery.UUID},
		"user":       {Column: "user_id", Kind: listquery.UUID},
		"createdAt":  {Column: "created_at", Kind: listquery.Time},
		"updatedAt":  {Column: "updated_at", Kind: listquery.Time},
	},
	Expansions: []string{"facility"},
}

const reviewColumns = `id, title, text, rating, facility_id, user_id, created_at, updated_at`

// RatingStats is the aggregate of a facility's reviews
type RatingStats struct {
	Average sql.NullFloat64 `db:"average"`
	Count   int             `db:"count"`
}

// ReviewRepository handles review database operations
type ReviewRepository struct {
	db DB
}

// NewReviewRepository creates a new review repository
func NewReviewRepository(db DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// List runs a parsed list request against reviews
func (r *ReviewRepository) List(ctx context.Context, params listquery.Params, opts listquery.Options[models.Review]) (*listquery.Result[models.Review], error) {
	return listquery.Find(ctx, r.db, ReviewResource, params, opts)
}

// Create inserts a new review. A second review of the same facility by the
// same user is a Conflict.
func (r *ReviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.ID == uuid.Nil {
		review.ID = uuid.New()
	}
	now := time.Now()
	review.CreatedAt = now
	review.UpdatedAt = now

	query := `
		INSERT INTO reviews (id, title, text, rating, facility_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		review.ID,
		review.Title,
		review.Text,
		review.Rating,
		review.FacilityID,
		review.UserID,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperror.Conflict("Duplicate field value entered", err)
		}
		return fmt.Errorf("failed to create review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	var review models.Review

	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`

	err := r.db.GetContext(ctx, &review, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get review by ID: %w", err)
	}

	return &review, nil
}

// ListByFacility returns every review of a facility, newest first
func (r *ReviewRepository) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]models.Review, error) {
	reviews := []models.Review{}

	query := `SELECT ` + reviewColumns + `
		FROM reviews
		WHERE facility_id = $1
		ORDER BY created_at DESC, id`

	if err := r.db.SelectContext(ctx, &reviews, query, facilityID); err != nil {
		return nil, fmt.Errorf("failed to list reviews by facility: %w", err)
	}

	return reviews, nil
}

// Update writes title, text and rating
func (r *ReviewRepository) Update(ctx context.Context, review *models.Review) error {
	review.UpdatedAt = time.Now()

	query := `
		UPDATE reviews
		SET title = $1,
		    text = $2,
		    rating = $3,
		    updated_at = $4
		WHERE id = $5
	`

	result, err := r.db.ExecContext(ctx, query,
		review.Title,
		review.Text,
		review.Rating,
		review.UpdatedAt,
		review.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update review: %w", err)
	}

	return requireAffected(result, "review", review.ID)
}

// Delete removes a review
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}

	return requireAffected(result, "review", id)
}

// RatingStats returns the mean rating and review count of a facility
func (r *ReviewRepository) RatingStats(ctx context.Context, facilityID uuid.UUID) (RatingStats, error) {
	var stats RatingStats

	query := `
		SELECT AVG(rating)::float8 AS average, COUNT(*) AS count
		FROM reviews
		WHERE facility_id = $1
	`

	if err := r.db.GetContext(ctx, &stats, query, facilityID); err != nil {
		return RatingStats{}, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	return stats, nil
}
