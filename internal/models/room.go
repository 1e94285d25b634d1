package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// RoomCategories lists the allowed room categories
var RoomCategories = []string{
	"classroom", "general_use", "laboratory", "office", "residential",
	"special_use", "study", "support", "other",
}

// Room is a space inside a facility
type Room struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Name        string         `db:"name" json:"name"`
	Slug        string         `db:"slug" json:"slug"`
	Description string         `db:"description" json:"description"`
	Address     NullString     `db:"address" json:"address,omitempty"`
	Category    string         `db:"category" json:"category"`
	Photos      pq.StringArray `db:"photos" json:"photos"`
	Email       NullString     `db:"email" json:"email,omitempty"`
	Website     NullString     `db:"website" json:"website,omitempty"`
	Phone       NullString     `db:"phone" json:"phone,omitempty"`
	FacilityID  uuid.UUID      `db:"facility_id" json:"facilityId"`
	UserID      uuid.UUID      `db:"user_id" json:"user"`
	CreatedAt   time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`

	Facility *FacilitySummary `db:"-" json:"facility,omitempty"`
}

// RoomInput is the writable part of a room
type RoomInput struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"required,plain_min=1,max=500"`
	Address     string `json:"address" binding:"omitempty,max=200"`
	Category    string `json:"category" binding:"required,oneof=classroom general_use laboratory office residential special_use study support other"`
	Email       string `json:"email" binding:"omitempty,contact_email"`
	Website     string `json:"website" binding:"omitempty,website_url"`
	Phone       string `json:"phone" binding:"omitempty,max=20"`
}

// Input returns the writable fields of r
func (r *Room) Input() RoomInput {
	return RoomInput{
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address.String,
		Category:    r.Category,
		Email:       r.Email.String,
		Website:     r.Website.String,
		Phone:       r.Phone.String,
	}
}

// Apply copies in onto r
func (r *Room) Apply(in RoomInput) {
	r.Name = in.Name
	r.Description = in.Description
	r.Address = NewNullString(in.Address)
	r.Category = in.Category
	r.Email = NewNullString(in.Email)
	r.Website = NewNullString(in.Website)
	r.Phone = NewNullString(in.Phone)
}
