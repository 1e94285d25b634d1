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

// FacilityService handles facility business logic
type FacilityService struct {
	facilities *database.FacilityRepository
	rooms      *database.RoomRepository
	photos     *PhotoService
	logger     *logrus.Logger
}

// NewFacilityService creates a new facility service
func NewFacilityService(
	facilities *database.FacilityRepository,
	rooms *database.RoomRepository,
	photos *PhotoService,
	logger *logrus.Logger,
) *FacilityService {
	return &FacilityService{
		facilities: facilities,
		rooms:      rooms,
		photos:     photos,
		logger:     logger,
	}
}

// List runs a list request with room and review counts expanded
func (s *FacilityService) List(ctx context.Context, query url.Values) (listquery.Envelope, error) {
	params, err := listquery.Parse(query, database.FacilityResource)
	if err != nil {
		return listquery.Envelope{}, err
	}

	result, err := s.facilities.List(ctx, params, listquery.Options[models.Facility]{
		Expand: []listquery.Expander[models.Facility]{expandFacilityCounts(s.facilities)},
	})
	if err != nil {
		return listquery.Envelope{}, err
	}

	return result.Envelope()
}

// Get returns a facility with its rooms expanded
func (s *FacilityService) Get(ctx context.Context, id uuid.UUID) (*models.Facility, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	rooms, err := s.rooms.ListByFacility(ctx, id)
	if err != nil {
		return nil, err
	}
	f.Rooms = rooms
	return f, nil
}

// Create adds a facility owned by the caller
func (s *FacilityService) Create(ctx context.Context, p *policy.Principal, in models.FacilityInput) (*models.Facility, error) {
	if err := policy.Authorize(p, policy.FacilityCreate, policy.Resource{Kind: "facility"}); err != nil {
		return nil, err
	}

	f := &models.Facility{UserID: p.ID}
	f.Apply(in)
	normalizeFacility(f)

	if err := s.facilities.Create(ctx, f); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"facility_id": f.ID,
		"user_id":     p.ID,
	}).Info("Facility created")
	return f, nil
}

// Update overlays the request onto the stored facility and saves it
func (s *FacilityService) Update(ctx context.Context, p *policy.Principal, id uuid.UUID, bind Binder[models.FacilityInput]) (*models.Facility, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(p, policy.FacilityUpdate, facilityResource(f)); err != nil {
		return nil, err
	}

	in := f.Input()
	if err := bind(&in); err != nil {
		return nil, err
	}
	f.Apply(in)
	normalizeFacility(f)

	if err := s.facilities.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes a facility with its rooms and reviews, then removes their
// photo blobs best effort
func (s *FacilityService) Delete(ctx context.Context, p *policy.Principal, id uuid.UUID) error {
	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := policy.Authorize(p, policy.FacilityDelete, facilityResource(f)); err != nil {
		return err
	}

	rooms, err := s.rooms.ListByFacility(ctx, id)
	if err != nil {
		return err
	}

	if err := s.facilities.Delete(ctx, id); err != nil {
		return err
	}

	blobs := append([]string{}, f.Photos...)
	for _, r := range rooms {
		blobs = append(blobs, r.Photos...)
	}
	s.photos.RemoveAll(ctx, blobs)

	s.logger.WithFields(logrus.Fields{
		"facility_id": id,
		"user_id":     p.ID,
		"rooms":       len(rooms),
	}).Info("Facility deleted")
	return nil
}

// AttachPhotos adds uploaded photos to a facility
func (s *FacilityService) AttachPhotos(ctx context.Context, p *policy.Principal, id uuid.UUID, files []PhotoUpload) ([]string, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(p, policy.FacilityPhotos, facilityResource(f)); err != nil {
		return nil, err
	}

	return s.photos.Attach(ctx, s.photoTarget(f), files)
}

// DetachPhoto removes one photo from a facility
func (s *FacilityService) DetachPhoto(ctx context.Context, p *policy.Principal, id uuid.UUID, name string) ([]string, error) {
	f, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(p, policy.FacilityPhotos, facilityResource(f)); err != nil {
		return nil, err
	}

	return s.photos.Detach(ctx, s.photoTarget(f), name)
}

func (s *FacilityService) load(ctx context.Context, id uuid.UUID) (*models.Facility, error) {
	f, err := s.facilities.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, apperror.NotFound("No facility found with id %s", id)
	}
	return f, nil
}

func (s *FacilityService) photoTarget(f *models.Facility) PhotoTarget {
	return PhotoTarget{
		Kind:   PhotoKindFacility,
		ID:     f.ID,
		Photos: f.Photos,
		Save: func(ctx context.Context, photos []string) error {
			return s.facilities.UpdatePhotos(ctx, f.ID, photos)
		},
	}
}

func facilityResource(f *models.Facility) policy.Resource {
	return policy.Resource{Kind: "facility", ID: f.ID, OwnerID: f.UserID}
}

// normalizeFacility derives the slug and strips markup from free text
func normalizeFacility(f *models.Facility) {
	f.Description = validator.StripHTML(f.Description)
	f.Slug = validator.Slugify(f.Name)
}
