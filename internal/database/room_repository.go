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
	"github.com/lib/pq"
)

// RoomResource describes the rooms table to the list query builder
var RoomResource = listquery.Resource{
	Table: "rooms",
	Columns: []string{
		"id", "name", "slug", "description", "address", "category", "photos",
		"email", "website", "phone", "facility_id", "user_id",
		"created_at", "updated_at",
	},
	Fields: map[string]listquery.Field{
		"id":          {Column: "id", Kind: listquery.UUID},
		"name":        {Column: "name", Kind: listquery.Text},
		"slug":        {Column: "slug", Kind: listquery.Text},
		"description": {Column: "description", Kind: listquery.Text},
		"address":     {Column: "address", Kind: listquery.Text},
		"category":    {Column: "category", Kind: listquery.Text},
		"photos":      {Column: "photos", Kind: listquery.Structured},
		"email":       {Column: "email", Kind: listquery.Text},
		"website":     {Column: "website", Kind: listquery.Text},
		"phone":       {Column: "phone", Kind: listquery.Text},
		"facilityId":  {Column: "facility_id", Kind: listquery.UUID},
		"facility":    {Column: "facility_id", Kind: listquery.UUID},
		"user":        {Column: "user_id", Kind: listquery.UUID},
		"createdAt":   {Column: "created_at", Kind: listquery.Time},
		"updatedAt":   {Column: "updated_at", Kind: listquery.Time},
	},
	Expansions: []string{"facility"},
}

const roomColumns = `id, name, slug, description, address, category, photos,
		       email, website, phone, facility_id, user_id,
		       created_at, updated_at`

// RoomRepository handles room database operations
type RoomRepository struct {
	db DB
}

// NewRoomRepository creates a new room repository
func NewRoomRepository(db DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// List runs a parsed list request against rooms
func (r *RoomRepository) List(ctx context.Context, params listquery.Params, opts listquery.Options[models.Room]) (*listquery.Result[models.Room], error) {
	return listquery.Find(ctx, r.db, RoomResource, params, opts)
}

// Create inserts a new room. A taken name is a Conflict.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	if room.Photos == nil {
		room.Photos = pq.StringArray{}
	}
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now

	query := `
		INSERT INTO rooms (
			id, name, slug, description, address, category, photos,
			email, website, phone, facility_id, user_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.db.ExecContext(ctx, query,
		room.ID,
		room.Name,
		room.Slug,
		room.Description,
		room.Address,
		room.Category,
		room.Photos,
		room.Email,
		room.Website,
		room.Phone,
		room.FacilityID,
		room.UserID,
		room.CreatedAt,
		room.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperror.Conflict("Duplicate field value entered", err)
		}
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

// GetByID retrieves a room by ID
func (r *RoomRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	var room models.Room

	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`

	err := r.db.GetContext(ctx, &room, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get room by ID: %w", err)
	}

	return &room, nil
}

// ListByFacility returns every room of a facility, oldest first
func (r *RoomRepository) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]models.Room, error) {
	rooms := []models.Room{}

	query := `SELECT ` + roomColumns + `
		FROM rooms
		WHERE facility_id = $1
		ORDER BY created_at, id`

	if err := r.db.SelectContext(ctx, &rooms, query, facilityID); err != nil {
		return nil, fmt.Errorf("failed to list rooms by facility: %w", err)
	}

	return rooms, nil
}

// ListByFacilities returns the rooms of each of facilityIDs
func (r *RoomRepository) ListByFacilities(ctx context.Context, facilityIDs []uuid.UUID) ([]models.Room, error) {
	rooms := []models.Room{}

	query := `SELECT ` + roomColumns + `
		FROM rooms
		WHERE facility_id = ANY($1::uuid[])
		ORDER BY created_at, id`

	if err := r.db.SelectContext(ctx, &rooms, query, pq.Array(uuidStrings(facilityIDs))); err != nil {
		return nil, fmt.Errorf("failed to list rooms by facilities: %w", err)
	}

	return rooms, nil
}

// Update writes every mutable column of room
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now()

	query := `
		UPDATE rooms
		SET name = $1,
		    slug = $2,
		    description = $3,
		    address = $4,
		    category = $5,
		    email = $6,
		    website = $7,
		    phone = $8,
		    updated_at = $9
		WHERE id = $10
	`

	result, err := r.db.ExecContext(ctx, query,
		room.Name,
		room.Slug,
		room.Description,
		room.Address,
		room.Category,
		room.Email,
		room.Website,
		room.Phone,
		room.UpdatedAt,
		room.ID,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return apperror.Conflict("Duplicate field value entered", err)
		}
		return fmt.Errorf("failed to update room: %w", err)
	}

	return requireAffected(result, "room", room.ID)
}

// UpdatePhotos replaces the photo list of a room
func (r *RoomRepository) UpdatePhotos(ctx context.Context, id uuid.UUID, photos []string) error {
	query := `UPDATE rooms SET photos = $1, updated_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, pq.StringArray(photos), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update room photos: %w", err)
	}

	return requireAffected(result, "room", id)
}

// Delete removes a room
func (r *RoomRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return requireAffected(result, "room", id)
}
