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

// ReviewService handles review business logic. Every successful write is
// followed by a rating recompute of the parent facility.
type ReviewService struct {
	reviews    *database.ReviewRepository
	facilities *database.FacilityRepository
	users      *database.UserRepository
	ratings    *RatingService
	logger     *logrus.Logger
}

// NewReviewService creates a new review service
func NewReviewService(
	reviews *database.ReviewRepository,
	facilities *database.FacilityRepository,
	users *database.UserRepository,
	ratings *RatingService,
	logger *logrus.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:    reviews,
		facilities: facilities,
		users:      users,
		ratings:    ratings,
		logger:     logger,
	}
}

func (s *ReviewService) facilityExpander() listquery.Expander[models.Review] {
	return expandFacility(s.facilities,
		func(r *models.Review) uuid.UUID { return r.FacilityID },
		func(r *models.Review, f *models.FacilitySummary) { r.Facility = f },
	)
}

func (s *ReviewService) userExpander() listquery.Expander[models.Review] {
	return expandUser(s.users,
		func(r *models.Review) uuid.UUID { return r.UserID },
		func(r *models.Review, u *models.UserSummary) { r.User = u },
	)
}

// List runs a list request across all reviews with the facility expanded
func (s *ReviewService) List(ctx context.Context, query url.Values) (listquery.Envelope, error) {
	params, err := listquery.Parse(query, database.ReviewResource)
	if err != nil {
		return listquery.Envelope{}, err
	}

	result, err := s.reviews.List(ctx, params, listquery.Options[models.Review]{
		Expand: []listquery.Expander[models.Review]{s.facilityExpander()},
	})
	if err != nil {
		return listquery.Envelope{}, err
	}

	return result.Envelope()
}

// ListByFacility returns every review of one facility, newest first, with
// the reviewer's name expanded
func (s *ReviewService) ListByFacility(ctx context.Context, facilityID uuid.UUID) ([]models.Review, error) {
	reviews, err := s.reviews.ListByFacility(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if len(reviews) == 0 {
		return []models.Review{}, nil
	}

	if err := s.userExpander()(ctx, reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// Get returns a review with its facility and user expanded
func (s *ReviewService) Get(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	items := []models.Review{*review}
	for _, expand := range []listquery.Expander[models.Review]{s.facilityExpander(), s.userExpander()} {
		if err := expand(ctx, items); err != nil {
			return nil, err
		}
	}
	return &items[0], nil
}

// Create adds the caller's review of a facility
func (s *ReviewService) Create(ctx context.Context, p *policy.Principal, facilityID uuid.UUID, in models.ReviewInput) (*models.Review, error) {
	facility, err := s.facilities.GetByID(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if facility == nil {
		return nil, apperror.NotFound("No facility with the id of %s", facilityID)
	}

	if err := policy.Authorize(p, policy.ReviewCreate, policy.Resource{Kind: "review"}); err != nil {
		return nil, err
	}

	review := &models.Review{
		Title:      in.Title,
		Text:       validator.StripHTML(in.Text),
		Rating:     in.Rating,
		FacilityID: facilityID,
		UserID:     p.ID,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, err
	}

	s.ratings.Recompute(ctx, facilityID)

	s.logger.WithFields(logrus.Fields{
		"review_id":   review.ID,
		"facility_id": facilityID,
		"user_id":     p.ID,
	}).Info("Review created")
	return review, nil
}

// Update overlays the request onto the stored review and saves it
func (s *ReviewService) Update(ctx context.Context, p *policy.Principal, id uuid.UUID, bind Binder[models.ReviewInput]) (*models.Review, error) {
	review, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(p, policy.ReviewUpdate, reviewResource(review)); err != nil {
		return nil, err
	}

	in := review.Input()
	if err := bind(&in); err != nil {
		return nil, err
	}
	review.Title = in.Title
	review.Text = validator.StripHTML(in.Text)
	review.Rating = in.Rating

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, err
	}

	s.ratings.Recompute(ctx, review.FacilityID)
	return review, nil
}

// Delete removes a review and refreshes its facility's rating
func (s *ReviewService) Delete(ctx context.Context, p *policy.Principal, id uuid.UUID) error {
	review, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	if err := policy.Authorize(p, policy.ReviewDelete, reviewResource(review)); err != nil {
		return err
	}

	facilityID := review.FacilityID
	if err := s.reviews.Delete(ctx, id); err != nil {
		return err
	}

	s.ratings.Recompute(ctx, facilityID)
	return nil
}

func (s *ReviewService) load(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, apperror.NotFound("No review found with id of %s", id)
	}
	return review, nil
}

func reviewResource(r *models.Review) policy.Resource {
	return policy.Resource{Kind: "review", ID: r.ID, OwnerID: r.UserID}
}
