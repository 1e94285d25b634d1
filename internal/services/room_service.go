package services

import (
	"context"
	"net/url"

	"github.com/campusdirectory/facility-api/internal/database"
	"github.com/campusdirectory/facility-api/internal/listquery"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/internal/policy"
	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/campusdirectory/facility-api/pkg/validator"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RoomService handles room business logic
type RoomService struct {
	rooms      *database.RoomRepository
	facilities *database.FacilityRepository
	photos     *PhotoService
	logger     *logrus.Logger
}

// NewRoomService creates a new room service
func NewRoomService(
	rooms *database.RoomRepository,
	facilities *database.FacilityRepository,
	photos *PhotoService,
	logger *logrus.Logger,
) *RoomService {
	return &RoomService{
		rooms:      rooms,
		facilities: facilities,
		photos:     photos,
		logger:     logger,
	}
}

func (s *RoomService) facilityExpander() listquery.Expander[models.Room] {
	return expandFacility(s.facilities,
		func(r *models.Room) uuid.UUID { return r.FacilityID },
		func(r *models.Room, f *models.FacilitySummary) { r.Facility = f },
	)
}

// List runs a list request across all rooms with the parent facility expanded
func (s *RoomService) List(ctx context.Context, query url.Values) (listquery.Envelope, error) {
	params, err := listquery.Parse(query, database.RoomResource)
	if err != nil {
		return listquery.Envelope{}, err
	}

	result, err := s.rooms.List(ctx, params, listquery.Options[models.Room]{
		Expand: []listquery.Expander[models.Room]{s.facilityExpander()},
	})
	if err != nil {
		return listquery.Envelope{}, err
	}

	return result.Envelope()
}

// ListByFacility returns every room of one facility, unpaginated
func (s *RoomService) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]models.Room, error) {
	rooms, err := s.rooms.ListByFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if rooms == nil {
		rooms = []models.Room{}
	}
	return rooms, nil
}

// Get returns a room with its facility expanded
func (s *RoomService) Get(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	items := []models.Room{*room}
	if err := s.facilityExpander()(ctx, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Create adds a room to an existing facility
func (s *RoomService) Create(ctx context.Context, p *policy.Principal, facilityID uuid.UUID, in models.RoomInput) (*models.Room, error) {
	facility, err := s.facilities.GetByID(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if facility == nil {
		return nil, apperror.NotFound("No facility with the id of %s", facilityID)
	}

	if err := policy.Authorize(p, policy.RoomCreate, policy.Resource{Kind: "room"}); err != nil {
		return nil, err
	}

	room := &models.Room{FacilityID: facilityID, UserID: p.ID}
	room.Apply(in)
	normalizeRoom(room)

	if err := s.rooms.Create(ctx, room); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"room_id":     room.ID,
		"facility_id": facilityID,
		"user_id":     p.ID,
	}).Info("Room created")
	return room, nil
}

// Update overlays the request onto the stored room and saves it
func (s *RoomService) Update(ctx context.Context, p *policy.Principal, id uuid.UUID, bind Binder[models.RoomInput]) (*models.Room, error) {
	room, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(p, policy.RoomUpdate, roomResource(room)); err != nil {
		return nil, err
	}

	in := room.Input()
	if err := bind(&in); err != nil {
		return nil, err
	}
	room.Apply(in)
	normalizeRoom(room)

	if err := s.rooms.Update(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// Delete removes a room and its photo blobs
func (s *RoomService) Delete(ctx context.Context, p *policy.Principal, id uuid.UUID) error {
	room, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := policy.Authorize(p, policy.RoomDelete, roomResource(room)); err != nil {
		return err
	}

	if err := s.rooms.Delete(ctx, id); err != nil {
		return err
	}

	s.photos.RemoveAll(ctx, room.Photos)
	return nil
}

// AttachPhotos adds uploaded photos to a room
func (s *RoomService) AttachPhotos(ctx context.Context, p *policy.Principal, id uuid.UUID, files []PhotoUpload) ([]string, error) {
	room, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(p, policy.RoomPhotos, roomResource(room)); err != nil {
		return nil, err
	}

	return s.photos.Attach(ctx, s.photoTarget(room), files)
}

// DetachPhoto removes one photo from a room
func (s *RoomService) DetachPhoto(ctx context.Context, p *policy.Principal, id uuid.UUID, name string) ([]string, error) {
	room, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(p, policy.RoomPhotos, roomResource(room)); err != nil {
		return nil, err
	}

	return s.photos.Detach(ctx, s.photoTarget(room), name)
}

func (s *RoomService) load(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	room, err := s.rooms.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, apperror.NotFound("No room with the id of %s", id)
	}
	return room, nil
}

func (s *RoomService) photoTarget(room *models.Room) PhotoTarget {
	return PhotoTarget{
		Kind:   PhotoKindRoom,
		ID:     room.ID,
		Photos: room.Photos,
		Save: func(ctx context.Context, photos []string) error {
			return s.rooms.UpdatePhotos(ctx, room.ID, photos)
		},
	}
}

func roomResource(r *models.Room) policy.Resource {
	return policy.Resource{Kind: "room", ID: r.ID, OwnerID: r.UserID}
}

func normalizeRoom(r *models.Room) {
	r.Description = validator.StripHTML(r.Description)
	r.Slug = validator.Slugify(r.Name)
}
