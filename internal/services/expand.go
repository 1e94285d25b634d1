package services

import (
	"context"

	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/campusdirectory/facility-api/internal/listquery"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/google/uuid"
)

// Binder overlays request input onto the current values and validates the
// result. Update operations call it after the authorization check.
type Binder[T any] func(in *T) error

func uniqueIDs[T any](items []T, key func(*T) uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for i := range items {
		id := key(&items[i])
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// expandFacility fills the facility {name, description} summary of each item
// with one batched query
func expandFacility[T any](repo *database.FacilityRepository, key func(*T) uuid.UUID, set func(*T, *models.FacilitySummary)) listquery.Expander[T] {
	return func(ctx context.Context, items []T) error {
		summaries, err := repo.ListSummaries(ctx, uniqueIDs(items, key))
		if err != nil {
			return err
		}

		byID := make(map[uuid.UUID]*models.FacilitySummary, len(summaries))
		for i := range summaries {
			byID[summaries[i].ID] = &summaries[i]
		}
		for i := range items {
			set(&items[i], byID[key(&items[i])])
		}
		return nil
	}
}

// expandUser fills the user {name} summary of each item
func expandUser[T any](repo *database.UserRepository, key func(*T) uuid.UUID, set func(*T, *models.UserSummary)) listquery.Expander[T] {
	return func(ctx context.Context, items []T) error {
		users, err := repo.ListSummaries(ctx, uniqueIDs(items, key))
		if err != nil {
			return err
		}

		byID := make(map[uuid.UUID]*models.UserSummary, len(users))
		for i := range users {
			byID[users[i].ID] = &users[i]
		}
		for i := range items {
			set(&items[i], byID[key(&items[i])])
		}
		return nil
	}
}

// expandFacilityCounts fills numberOfRooms and numberOfReviews
func expandFacilityCounts(repo *database.FacilityRepository) listquery.Expander[models.Facility] {
	return func(ctx context.Context, items []models.Facility) error {
		ids := uniqueIDs(items, func(f *models.Facility) uuid.UUID { return f.ID })

		rooms, err := repo.CountRooms(ctx, ids)
		if err != nil {
			return err
		}
		reviews, err := repo.CountReviews(ctx, ids)
		if err != nil {
			return err
		}

		for i := range items {
			nRooms, nReviews := rooms[items[i].ID], reviews[items[i].ID]
			items[i].NumberOfRooms = &nRooms
			items[i].NumberOfReviews = &nReviews
		}
		return nil
	}
}
