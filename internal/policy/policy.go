// Package policy decides whether a principal may perform a mutating action.
//
// Each action composes up to two checks: a role check (the principal's role
// is in the action's allowed set) and an ownership check (the principal owns
// the resource, or is an admin). Unknown actions are denied.
package policy

import (
	"github.com/campusdirectory/facility-api/internal/models"
	"github.com/campusdirectory/facility-api/pkg/apperror"
	"github.com/google/uuid"
)

// Action is a mutating operation on a resource
type Action string

const (
	FacilityCreate Action = "facility:create"
	FacilityUpdate Action = "facility:update"
	FacilityDelete Action = "facility:delete"
	FacilityPhotos Action = "facility:photos"

	RoomCreate Action = "room:create"
	RoomUpdate Action = "room:update"
	RoomDelete Action = "room:delete"
	RoomPhotos Action = "room:photos"

	ReviewCreate Action = "review:create"
	ReviewUpdate Action = "review:update"
	ReviewDelete Action = "review:delete"
)

// Principal is the authenticated caller
type Principal struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin reports whether p has the admin role
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// Resource identifies the target of an action. OwnerID is ignored by
// role-only actions, and ID may be nil for creates.
type Resource struct {
	Kind    string
	ID      uuid.UUID
	OwnerID uuid.UUID
}

type rule struct {
	roles     []string // nil means any authenticated role
	ownership bool
}

var publishers = []string{models.RolePublisher, models.RoleAdmin}

var rules = map[Action]rule{
	FacilityCreate: {roles: publishers},
	FacilityUpdate: {roles: publishers, ownership: true},
	FacilityDelete: {roles: publishers, ownership: true},
	FacilityPhotos: {roles: publishers, ownership: true},

	RoomCreate: {roles: publishers},
	RoomUpdate: {roles: publishers, ownership: true},
	RoomDelete: {roles: publishers, ownership: true},
	RoomPhotos: {roles: publishers, ownership: true},

	ReviewCreate: {},
	ReviewUpdate: {ownership: true},
	ReviewDelete: {ownership: true},
}

// Authorize returns nil when p may perform action on res. Otherwise the error
// is Unauthenticated (no principal) or Forbidden, tagged with the principal,
// resource and action.
func Authorize(p *Principal, action Action, res Resource) error {
	if p == nil || p.ID == uuid.Nil {
		return apperror.Unauthenticated("Not authorized to access this route")
	}

	r, ok := rules[action]
	if !ok {
		return deny(p, action, res, "User role %s is not authorized to access this route", p.Role)
	}

	if r.roles != nil && !hasRole(p.Role, r.roles) {
		return deny(p, action, res, "User role %s is not authorized to access this route", p.Role)
	}

	if r.ownership && !p.IsAdmin() && p.ID != res.OwnerID {
		return deny(p, action, res, "User %s is not authorized to %s this %s", p.ID, verb(action), res.Kind)
	}

	return nil
}

func deny(p *Principal, action Action, res Resource, format string, args ...interface{}) error {
	return apperror.Forbidden(format, args...).
		With("principal_id", p.ID).
		With("principal_role", p.Role).
		With("resource_kind", res.Kind).
		With("resource_id", res.ID).
		With("action", string(action))
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func verb(action Action) string {
	switch action {
	case FacilityCreate, RoomCreate, ReviewCreate:
		return "create"
	case FacilityDelete, RoomDelete, ReviewDelete:
		return "delete"
	default:
		return "update"
	}
}
