package models

import (
	"time"

	"github.com/google/uuid"
)

// Review is a user's rating of a facility. One per (facility, user).
type Review struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Title      string    `db:"title" json:"title"`
	Text       string    `db:"text" json:"text"`
	Rating     int       `db:"rating" json:"rating"`
	FacilityID uuid.UUID `db:"facility_id" json:"facilityId"`
	UserID     uuid.UUID `db:"user_id" json:"userId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`

	Facility *FacilitySummary `db:"-" json:"facility,omitempty"`
	User     *UserSummary     `db:"-" json:"user,omitempty"`
}

// ReviewInput is the writable part of a review
type ReviewInput struct {
	Title  string `json:"title" binding:"required,min=10,max=100"`
	Text   string `json:"text" binding:"required,plain_min=10"`
	Rating int    `json:"rating" binding:"required,min=1,max=10"`
}

// Input returns the writable fields of r
func (r *Review) Input() ReviewInput {
	return ReviewInput{Title: r.Title, Text: r.Text, Rating: r.Rating}
}
