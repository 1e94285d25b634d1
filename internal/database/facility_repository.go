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
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// FacilityResource describes the facilities table to the list query builder
var FacilityResource = listquery.Resource{
	Table: "facilities",
	Columns: []string{
		"id", "name", "slug", "description", "campus", "location", "address",
		"category", "photos", "email", "website", "phone", "hours",
		"average_rating", "user_id", "created_at", "updated_at",
	},
	Fields: map[string]listquery.Field{
		"id":            {Column: "id", Kind: listquery.UUID},
		"name":          {Column: "name", Kind: listquery.Text},
		"slug":          {Column: "slug", Kind: listquery.Text},
		"description":   {Column: "description", Kind: listquery.Text},
		"campus":        {Column: "campus", Kind: listquery.Text},
		"location":      {Column: "location", Kind: listquery.Structured},
		"address":       {Column: "address", Kind: listquery.Text},
		"category":      {Column: "category", Kind: listquery.Text},
		"photos":        {Column: "photos", Kind: listquery.Structured},
		"email":         {Column: "email", Kind: listquery.Text},
		"website":       {Column: "website", Kind: listquery.Text},
		"phone":         {Column: "phone", Kind: listquery.Text},
		"hours":         {Column: "hours", Kind: listquery.Structured},
		"averageRating": {Column: "average_rating", Kind: listquery.Float},
		"user":          {Column: "user_id", Kind: listquery.UUID},
		"createdAt":     {Column: "created_at", Kind: listquery.Time},
		"updatedAt":     {Column: "updated_at", Kind: listquery.Time},
	},
	Expansions: []string{"numberOfRooms", "numberOfReviews"},
}

const facilityColumns = `id, name, slug, description, campus, location, address,
		       category, photos, email, website, phone, hours,
		       average_rating, user_id, created_at, updated_at`

// FacilityRepository handles facility database operations
type FacilityRepository struct {
	db DB
}

// NewFacilityRepository creates a new facility repository
func NewFacilityRepository(db DB) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// List runs a parsed list request against facilities
func (r *FacilityRepository) List(ctx context.Context, params listquery.Params, opts listquery.Options[models.Facility]) (*listquery.Result[models.Facility], error) {
	return listquery.Find(ctx, r.db, FacilityResource, params, opts)
}

// Create inserts a new facility. A taken name is a Conflict.
func (r *FacilityRepository) Create(ctx context.Context, f *models.Facility) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Photos == nil {
		f.Photos = pq.StringArray{}
	}
	if f.Hours == nil {
		f.Hours = models.OperatingHours{}
	}
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now

	query := `
		INSERT INTO facilities (
			id, name, slug, description, campus, location, address,
			category, photos, email, website, phone, hours,
			user_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		f.ID,
		f.Name,
		f.Slug,
		f.Description,
		f.Campus,
		f.Location,
		f.Address,
		f.Category,
		f.Photos,
		f.Email,
		f.Website,
		f.Phone,
		f.Hours,
		f.UserID,
		f.CreatedAt,
		f.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperror.Conflict("Duplicate field value entered", err)
		}
		return fmt.Errorf("failed to create facility: %w", err)
	}

	return nil
}

// GetByID retrieves a facility by ID
func (r *FacilityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Facility, error) {
	var f models.Facility

	query := `SELECT ` + facilityColumns + ` FROM facilities WHERE id = $1`

	err := r.db.GetContext(ctx, &f, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get facility by ID: %w", err)
	}

	return &f, nil
}

// Update writes every mutable column of f
func (r *FacilityRepository) Update(ctx context.Context, f *models.Facility) error {
	f.UpdatedAt = time.Now()

	query := `
		UPDATE facilities
		SET name = $1,
		    slug = $2,
		    description = $3,
		    campus = $4,
		    location = $5,
		    address = $6,
		    category = $7,
		    email = $8,
		    website = $9,
		    phone = $10,
		    hours = $11,
		    updated_at = $12
		WHERE id = $13
	`

	result, err := r.db.ExecContext(ctx, query,
		f.Name,
		f.Slug,
		f.Description,
		f.Campus,
		f.Location,
		f.Address,
		f.Category,
		f.Email,
		f.Website,
		f.Phone,
		f.Hours,
		f.UpdatedAt,
		f.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperror.Conflict("Duplicate field value entered", err)
		}
		return fmt.Errorf("failed to update facility: %w", err)
	}

	return requireAffected(result, "facility", f.ID)
}

// UpdatePhotos replaces the photo list of a facility
func (r *FacilityRepository) UpdatePhotos(ctx context.Context, id uuid.UUID, photos []string) error {
	query := `UPDATE facilities SET photos = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, pq.StringArray(photos), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update facility photos: %w", err)
	}

	return requireAffected(result, "facility", id)
}

// SetAverageRating stores the mean review rating, or NULL when avg is nil
func (r *FacilityRepository) SetAverageRating(ctx context.Context, id uuid.UUID, avg *float64) error {
	query := `UPDATE facilities SET average_rating = $1 WHERE id = $2`

	var value sql.NullFloat64
	if avg != nil {
		value = sql.NullFloat64{Float64: *avg, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query, value, id); err != nil {
		return fmt.Errorf("failed to set average rating: %w", err)
	}
	return nil
}

// Delete removes a facility together with its rooms and reviews
func (r *FacilityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM reviews WHERE facility_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete facility reviews: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE facility_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete facility rooms: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM facilities WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete facility: %w", err)
		}
		return requireAffected(result, "facility", id)
	})
}

// ListSummaries returns name and description for each of ids
func (r *FacilityRepository) ListSummaries(ctx context.Context, ids []uuid.UUID) ([]models.FacilitySummary, error) {
	var summaries []models.FacilitySummary

	query := `SELECT id, name, description FROM facilities WHERE id = ANY($1::uuid[])`

	if err := r.db.SelectContext(ctx, &summaries, query, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to list facility summaries: %w", err)
	}

	return summaries, nil
}

// CountRooms returns the number of rooms per facility for each of ids
func (r *FacilityRepository) CountRooms(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	return r.countChildren(ctx, "rooms", ids)
}

// CountReviews returns the number of reviews per facility for each of ids
func (r *FacilityRepository) CountReviews(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	return r.countChildren(ctx, "reviews", ids)
}

type childCount struct {
	FacilityID uuid.UUID `db:"facility_id"`
	Count      int       `db:"count"`
}

// countChildren only ever receives the literal table names above
func (r *FacilityRepository) countChildren(ctx context.Context, table string, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []childCount

	query := `
		SELECT facility_id, COUNT(*) AS count
		FROM ` + table + `
		WHERE facility_id = ANY($1::uuid[])
		GROUP BY facility_id
	`

	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(uuidStrings(ids))); err != nil {
		return nil, fmt.Errorf("failed to count %s: %w", table, err)
	}

	counts := make(map[uuid.UUID]int, len(ids))
	for _, id := range ids {
		counts[id] = 0
	}
	for _, row := range rows {
		counts[row.FacilityID] = row.Count
	}
	return counts, nil
}

// ListAllIDs returns the id of every facility
func (r *FacilityRepository) ListAllIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID

	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM facilities ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("failed to list facility ids: %w", err)
	}

	return ids, nil
}
