package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Campuses
const (
	CampusLegon = "legon"
	CampusCity  = "city"
)

// FacilityCategories lists the allowed facility categories
var FacilityCategories = []string{
	"classroom", "general use", "laboratory", "office", "residential",
	"special use", "study", "support", "other",
}

// Facility is a campus building or space
type Facility struct {
	ID            uuid.UUID      `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Slug          string         `db:"slug" json:"slug"`
	Description   string         `db:"description" json:"description"`
	Campus        string         `db:"campus" json:"campus"`
	Location      *GeoLocation   `db:"location" json:"location,omitempty"`
	Address       NullString     `db:"address" json:"address,omitempty"`
	Category      string         `db:"category" json:"category"`
	Photos        pq.StringArray `db:"photos" json:"photos"`
	Email         NullString     `db:"email" json:"email,omitempty"`
	Website       NullString     `db:"website" json:"website,omitempty"`
	Phone         NullString     `db:"phone" json:"phone,omitempty"`
	Hours         OperatingHours `db:"hours" json:"hours"`
	AverageRating *float64       `db:"average_rating" json:"averageRating,omitempty"`
	UserID        uuid.UUID      `db:"user_id" json:"user"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`

	// Relation expansion, filled on demand
	Rooms           []Room `db:"-" json:"rooms,omitempty"`
	NumberOfRooms   *int   `db:"-" json:"numberOfRooms,omitempty"`
	NumberOfReviews *int   `db:"-" json:"numberOfReviews,omitempty"`
}

// FacilitySummary is the expanded form of a facility reference
type FacilitySummary struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
}

// FacilityInput is the writable part of a facility. Updates overlay the
// request body onto the current values before validation runs.
type FacilityInput struct {
	Name        string         `json:"name" binding:"required,max=50"`
	Description string         `json:"description" binding:"required,plain_min=1,max=500"`
	Campus      string         `json:"campus" binding:"required,oneof=legon city"`
	Location    *GeoLocation   `json:"location" binding:"required"`
	Address     string         `json:"address" binding:"omitempty,max=200"`
	Category    string         `json:"category" binding:"required,facility_category"`
	Email       string         `json:"email" binding:"omitempty,contact_email"`
	Website     string         `json:"website" binding:"omitempty,website_url"`
	Phone       string         `json:"phone" binding:"omitempty,max=20"`
	Hours       OperatingHours `json:"hours" binding:"omitempty,dive"`
}

// Input returns the writable fields of f
func (f *Facility) Input() FacilityInput {
	return FacilityInput{
		Name:        f.Name,
		Description: f.Description,
		Campus:      f.Campus,
		Location:    f.Location,
		Address:     f.Address.String,
		Category:    f.Category,
		Email:       f.Email.String,
		Website:     f.Website.String,
		Phone:       f.Phone.String,
		Hours:       f.Hours,
	}
}

// Apply copies in onto f. Derived fields (slug, rating, photos) are untouched.
func (f *Facility) Apply(in FacilityInput) {
	f.Name = in.Name
	f.Description = in.Description
	f.Campus = in.Campus
	f.Location = in.Location
	f.Address = NewNullString(in.Address)
	f.Category = in.Category
	f.Email = NewNullString(in.Email)
	f.Website = NewNullString(in.Website)
	f.Phone = NewNullString(in.Phone)
	f.Hours = in.Hours
	if f.Hours == nil {
		f.Hours = OperatingHours{}
	}
}
