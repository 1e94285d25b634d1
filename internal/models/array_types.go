package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// GeoLocation is a GeoJSON point stored as JSONB
type GeoLocation struct {
	Type             string    `json:"type" binding:"omitempty,eq=Point"`
	Coordinates      []float64 `json:"coordinates" binding:"required,len=2"` // [longitude, latitude]
	FormattedAddress string    `json:"formattedAddress,omitempty"`
}

// Value implements the driver.Valuer interface
func (g *GeoLocation) Value() (driver.Value, error) {
	if g == nil {
		return nil, nil
	}
	if g.Type == "" {
		g.Type = "Point"
	}
	return json.Marshal(g)
}

// Scan implements the sql.Scanner interface
func (g *GeoLocation) Scan(src interface{}) error {
	return scanJSONB(src, g)
}

// DayHours is one opening window, with open/close in minutes of the day
type DayHours struct {
	Day   string `json:"day" binding:"required,weekday"`
	Open  int    `json:"open" binding:"min=0,max=1440"`
	Close int    `json:"close" binding:"min=0,max=1440"`
}

// OperatingHours is the weekly schedule stored as JSONB
type OperatingHours []DayHours

// Value implements the driver.Valuer interface
func (h OperatingHours) Value() (driver.Value, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(h)
}

// Scan implements the sql.Scanner interface
func (h *OperatingHours) Scan(src interface{}) error {
	if src == nil {
		*h = OperatingHours{}
		return nil
	}
	return scanJSONB(src, h)
}

func scanJSONB(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into JSONB column", src)
	}
}
