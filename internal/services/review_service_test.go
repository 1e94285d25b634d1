package services

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewInput() models.ReviewInput {
	return models.ReviewInput{
		Title:  "Great place to study",
		Text:   "Quiet and <i>well lit</i> all day",
		Rating: 8,
	}
}

func expectRecompute(fx *serviceFixture, facilityID uuid.UUID, avg interface{}, count int) {
	fx.mock.ExpectQuery(`SELECT AVG\(rating\)`).
		WithArgs(facilityID).
		WillReturnRows(sqlmock.NewRows([]string{"average", "count"}).AddRow(avg, count))
	fx.mock.ExpectExec(`UPDATE facilities SET average_rating = \$1`).
		WithArgs(avg, facilityID).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func TestReviewService_CreateRecomputesRating(t *testing.T) {
	fx := newServiceFixture(t)
	facilityID, p := uuid.New(), regularUser()

	fx.mock.ExpectQuery(`SELECT .+ FROM facilities WHERE id = \$1`).
		WillReturnRows(facilityRows(facilityID, uuid.New(), `{}`))
	fx.mock.ExpectExec(`INSERT INTO reviews`).
		WithArgs(sqlmock.AnyArg(), "Great place to study", "Quiet and well lit all day", 8, facilityID, p.ID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	expectRecompute(fx, facilityID, 8.0, 1)

	review, err := fx.reviews.Create(context.Background(), p, facilityID, reviewInput())
	require.NoError(t, err)
	assert.Equal(t, p.ID, review.UserID)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestReviewService_SecondReviewConflicts(t *testing.T) {
	fx := newServiceFixture(t)
	facilityID := uuid.New()

	fx.mock.ExpectQuery(`SELECT .+ FROM facilities WHERE id = \$1`).
		WillReturnRows(facilityRows(facilityID, uuid.New(), `{}`))
	fx.mock.ExpectExec(`INSERT INTO reviews`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "reviews_facility_id_user_id_key"})

	_, err := fx.reviews.Create(context.Background(), regularUser(), facilityID, reviewInput())
	assert.True(t, apperror.Is(err, apperror.KindConflict))
	assert.Equal(t, 400, apperror.StatusCode(err))
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestReviewService_CreateOnMissingFacility(t *testing.T) {
	fx := newServiceFixture(t)
	facilityID := uuid.New()

	fx.mock.ExpectQuery(`SELECT .+ FROM facilities WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

	_, err := fx.reviews.Create(context.Background(), regularUser(), facilityID, reviewInput())
	assert.Equal(t, fmt.Sprintf("No facility with the id of %s", facilityID), apperror.PublicMessage(err))
}

func TestReviewService_RecomputeFailureDoesNotFailCreate(t *testing.T) {
	fx := newServiceFixture(t)
	facilityID := uuid.New()

	fx.mock.ExpectQuery(`SELECT .+ FROM facilities WHERE id = \$1`).
		WillReturnRows(facilityRows(facilityID, uuid.New(), `{}`))
	fx.mock.ExpectExec(`INSERT INTO reviews`).WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectQuery(`SELECT AVG\(rating\)`).WillReturnError(fmt.Errorf("connection reset"))

	_, err := fx.reviews.Create(context.Background(), regularUser(), facilityID, reviewInput())
	require.NoError(t, err)

	var logged bool
	for _, e := range fx.hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Message == "Failed to recompute average rating" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func TestReviewService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Owner changes rating", func(t *testing.T) {
		fx := newServiceFixture(t)
		id, facilityID, p := uuid.New(), uuid.New(), regularUser()

		fx.mock.ExpectQuery(`SELECT .+ FROM reviews WHERE id = \$1`).
			WillReturnRows(reviewRows(id, facilityID, p.ID, 8))
		fx.mock.ExpectExec(`UPDATE reviews`).
			WithArgs("Great place to study", "Quiet and well lit all day", 4, sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))
		expectRecompute(fx, facilityID, 4.0, 1)

		review, err := fx.reviews.Update(ctx, p, id, func(in *models.ReviewInput) error {
			in.Rating = 4
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 4, review.Rating)
		assert.NoError(t, fx.mock.ExpectationsWereMet())
	})

	t.Run("Another user is forbidden", func(t *testing.T) {
		fx := newServiceFixture(t)
		id := uuid.New()

		fx.mock.ExpectQuery(`SELECT .+ FROM reviews WHERE id = \$1`).
			WillReturnRows(reviewRows(id, uuid.New(), uuid.New(), 8))

		_, err := fx.reviews.Update(ctx, regularUser(), id, func(in *models.ReviewInput) error { return nil })
		assert.True(t, apperror.Is(err, apperror.KindForbidden))
		assert.Equal(t, 403, apperror.StatusCode(err))
		assert.NoError(t, fx.mock.ExpectationsWereMet())
	})

	t.Run("Not found", func(t *testing.T) {
		fx := newServiceFixture(t)
		id := uuid.New()

		fx.mock.ExpectQuery(`SELECT .+ FROM reviews WHERE id = \$1`).WillReturnError(sql.ErrNoRows)

		_, err := fx.reviews.Update(ctx, admin(), id, func(in *models.ReviewInput) error { return nil })
		assert.Equal(t, fmt.Sprintf("No review found with id of %s", id), apperror.PublicMessage(err))
	})
}

func TestReviewService_DeleteLastReviewClearsRating(t *testing.T) {
	fx := newServiceFixture(t)
	id, facilityID := uuid.New(), uuid.New()

	fx.mock.ExpectQuery(`SELECT .+ FROM reviews WHERE id = \$1`).
		WillReturnRows(reviewRows(id, facilityID, uuid.New(), 8))
	fx.mock.ExpectExec(`DELETE FROM reviews WHERE id = \$1`).WithArgs(id).WillReturnResult(sqlmock.NewResult(0, 1))
	expectRecompute(fx, facilityID, nil, 0)

	require.NoError(t, fx.reviews.Delete(context.Background(), admin(), id))
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestReviewService_ListByFacilityExpandsUser(t *testing.T) {
	fx := newServiceFixture(t)
	facilityID, author := uuid.New(), uuid.New()

	fx.mock.ExpectQuery(`FROM reviews\s+WHERE facility_id = \$1\s+ORDER BY created_at DESC`).
		WithArgs(facilityID).
		WillReturnRows(reviewRows(uuid.New(), facilityID, author, 7))
	fx.mock.ExpectQuery(`SELECT id, name FROM users WHERE id = ANY`).
		WithArgs(`{"` + author.String() + `"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(author.String(), "Ama Mensah"))

	reviews, err := fx.reviews.ListByFacility(context.Background(), facilityID)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.NotNil(t, reviews[0].User)
	assert.Equal(t, "Ama Mensah", reviews[0].User.Name)
	assert.Nil(t, reviews[0].Facility)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestReviewService_ListFilterByRating(t *testing.T) {
	fx := newServiceFixture(t)
	facilityID := uuid.New()

	fx.mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "reviews" WHERE \("rating" >= \$1\)`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	fx.mock.ExpectQuery(`FROM "reviews" WHERE \("rating" >= \$1\) ORDER BY "created_at" DESC, "id" ASC`).
		WillReturnRows(reviewRows(uuid.New(), facilityID, uuid.New(), 9))
	fx.mock.ExpectQuery(`SELECT id, name, description FROM facilities WHERE id = ANY`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description"}).
			AddRow(facilityID.String(), "Balme Library", "Main university library"))

	env, err := fx.reviews.List(context.Background(), map[string][]string{"rating[gte]": {"5"}})
	require.NoError(t, err)

	items := env.Data.([]models.Review)
	require.Len(t, items, 1)
	assert.Equal(t, 9, items[0].Rating)
	assert.Equal(t, "Balme Library", items[0].Facility.Name)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}
