package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/internal/policy"
	"github.com/campusdirectory/facility-api/pkg/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
)

var facilityCols = []string{
	"id", "name", "slug", "description", "campus", "location", "address",
	"category", "photos", "email", "website", "phone", "hours",
	"average_rating", "user_id", "created_at", "updated_at",
}

var roomCols = []string{
	"id", "name", "slug", "description", "address", "category", "photos",
	"email", "website", "phone", "facility_id", "user_id",
	"created_at", "updated_at",
}

var reviewCols = []string{
	"id", "title", "text", "rating", "facility_id", "user_id", "created_at", "updated_at",
}

func facilityRows(id, owner uuid.UUID, photos string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(facilityCols).AddRow(
		id.String(), "Balme Library", "balme-library", "Main university library", "legon",
		[]byte(`{"type":"Point","coordinates":[-0.1869,5.6508]}`), nil,
		"study", []byte(photos), nil, nil, nil, []byte(`[]`),
		nil, owner.String(), now, now,
	)
}

func roomRows(id, facilityID, owner uuid.UUID, photos string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(roomCols).AddRow(
		id.String(), "Reading Room 2", "reading-room-2", "Quiet reading room", nil, "study",
		[]byte(photos), nil, nil, nil, facilityID.String(), owner.String(), now, now,
	)
}

func reviewRows(id, facilityID, owner uuid.UUID, rating int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(reviewCols).AddRow(
		id.String(), "Great place to study", "Quiet and well lit all day", rating,
		facilityID.String(), owner.String(), now, now,
	)
}

func publisher() *policy.Principal {
	return &policy.Principal{ID: uuid.New(), Role: models.RolePublisher}
}

func regularUser() *policy.Principal {
	return &policy.Principal{ID: uuid.New(), Role: models.RoleUser}
}

func admin() *policy.Principal {
	return &policy.Principal{ID: uuid.New(), Role: models.RoleAdmin}
}

type serviceFixture struct {
	mock       sqlmock.Sqlmock
	hook       *test.Hook
	fs         afero.Fs
	facilities *FacilityService
	rooms      *RoomService
	reviews    *ReviewService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db, mock := setupServiceDB(t)
	logger, hook := test.NewNullLogger()
	fs := afero.NewMemMapFs()

	facilityRepo := database.NewFacilityRepository(db)
	roomRepo := database.NewRoomRepository(db)
	reviewRepo := database.NewReviewRepository(db)
	userRepo := database.NewUserRepository(db)

	photos := NewPhotoService(storage.NewLocalStore(fs), PhotoLimits{
		MaxFileSize: 1024,
		MaxPhotos:   map[PhotoKind]int{PhotoKindFacility: 5, PhotoKindRoom: 5},
	}, logger)
	ratings := NewRatingService(reviewRepo, facilityRepo, logger)

	return &serviceFixture{
		mock:       mock,
		hook:       hook,
		fs:         fs,
		facilities: NewFacilityService(facilityRepo, roomRepo, photos, logger),
		rooms:      NewRoomService(roomRepo, facilityRepo, photos, logger),
		reviews:    NewReviewService(reviewRepo, facilityRepo, userRepo, ratings, logger),
	}
}
