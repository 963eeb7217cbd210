package application

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/navigation"
)

// CoordinateDTO is a latitude/longitude pair on the wire.
type CoordinateDTO struct {
	Latitude  float64 `json:"latitude" binding:"latitude"`
	Longitude float64 `json:"longitude" binding:"longitude"`
}

func (c CoordinateDTO) toDomain() navigation.Coordinate {
	return navigation.Coordinate{Latitude: c.Latitude, Longitude: c.Longitude}
}

// WaypointDTO is an intermediate stop on the wire.
type WaypointDTO struct {
	Latitude      float64 `json:"latitude" binding:"latitude"`
	Longitude     float64 `json:"longitude" binding:"longitude"`
	Name          *string `json:"name,omitempty" binding:"omitempty,max=200"`
	SeparatesLegs bool    `json:"separates_legs"`
}

// PropsRequest is a partial update of session props. Absent fields keep their value.
type PropsRequest struct {
	StartOrigin             *CoordinateDTO `json:"start_origin"`
	Destination             *CoordinateDTO `json:"destination"`
	DestinationTitle        *string        `json:"destination_title" binding:"omitempty,max=200"`
	Waypoints               *[]WaypointDTO `json:"waypoints" binding:"omitempty,dive"`
	TravelMode              *string        `json:"travel_mode"`
	Language                *string        `json:"language" binding:"omitempty,max=35"`
	DistanceUnit            *string        `json:"distance_unit"`
	Mute                    *bool          `json:"mute"`
	ShouldSimulateRoute     *bool          `json:"should_simulate_route"`
	SeparateLegs            *bool          `json:"separate_legs"`
	ShowCancelButton        *bool          `json:"show_cancel_button"`
	ShowsEndOfRouteFeedback *bool          `json:"shows_end_of_route_feedback"`
	HideStatusView          *bool          `json:"hide_status_view"`

	ClearStartOrigin      bool `json:"clear_start_origin"`
	ClearDestination      bool `json:"clear_destination"`
	ClearDestinationTitle bool `json:"clear_destination_title"`
}

// ToPatch converts the request into a domain patch. Coordinates are not validated here.
func (r PropsRequest) ToPatch() navigation.ConfigPatch {
	patch := navigation.ConfigPatch{
		DestinationTitle:        r.DestinationTitle,
		Language:                r.Language,
		Muted:                   r.Mute,
		Simulate:                r.ShouldSimulateRoute,
		SeparateLegs:            r.SeparateLegs,
		ShowCancelButton:        r.ShowCancelButton,
		ShowsEndOfRouteFeedback: r.ShowsEndOfRouteFeedback,
		HideStatusView:          r.HideStatusView,
		ClearOrigin:             r.ClearStartOrigin,
		ClearDestination:        r.ClearDestination,
		ClearDestinationTitle:   r.ClearDestinationTitle,
	}
	if r.StartOrigin != nil {
		c := r.StartOrigin.toDomain()
		patch.Origin = &c
	}
	if r.Destination != nil {
		c := r.Destination.toDomain()
		patch.Destination = &c
	}
	if r.Waypoints != nil {
		wps := make([]navigation.Waypoint, len(*r.Waypoints))
		for i, w := range *r.Waypoints {
			wps[i] = navigation.Waypoint{
				Coordinate:    navigation.Coordinate{Latitude: w.Latitude, Longitude: w.Longitude},
				Name:          w.Name,
				SeparatesLegs: w.SeparatesLegs,
			}
		}
		patch.Waypoints = &wps
	}
	if r.TravelMode != nil {
		m := navigation.ParseTravelMode(*r.TravelMode)
		patch.TravelMode = &m
	}
	if r.DistanceUnit != nil {
		u := navigation.ParseDistanceUnit(*r.DistanceUnit)
		patch.DistanceUnit = &u
	}
	return patch
}

// CreateSessionRequest holds the data needed to open a navigation session.
type CreateSessionRequest struct {
	Name  string        `json:"name" binding:"max=200"`
	Props *PropsRequest `json:"props"`
}

// LocationRequest is a device location fix.
type LocationRequest struct {
	Latitude  float64  `json:"latitude" binding:"latitude"`
	Longitude float64  `json:"longitude" binding:"longitude"`
	Bearing   *float64 `json:"bearing" binding:"omitempty,min=0,max=360"`
}

func (r LocationRequest) toDomain() navigation.Location {
	return navigation.Location{
		Coordinate: navigation.Coordinate{Latitude: r.Latitude, Longitude: r.Longitude},
		Bearing:    r.Bearing,
	}
}

// ProgressRequest is progress measured by the host device along the active route.
type ProgressRequest struct {
	DistanceRemaining float64 `json:"distance_remaining" binding:"min=0"`
	DurationRemaining float64 `json:"duration_remaining" binding:"min=0"`
	DistanceTraveled  float64 `json:"distance_traveled" binding:"min=0"`
	FractionTraveled  float64 `json:"fraction_traveled" binding:"min=0,max=1"`
}

// ArrivalRequest reports an arrival. Without LegIndex it is the final destination.
type ArrivalRequest struct {
	LegIndex *int `json:"leg_index" binding:"omitempty,min=0"`
}

// SessionDTO is the response representation of a navigation session.
type SessionDTO struct {
	ID           uuid.UUID                 `json:"id"`
	Name         string                    `json:"name,omitempty"`
	State        string                    `json:"state"`
	Generation   uint64                    `json:"generation"`
	Config       navigation.SessionConfig  `json:"config"`
	Presentation navigation.Presentation   `json:"presentation"`
	SurfaceReady bool                      `json:"surface_ready"`
	Location     *navigation.Location      `json:"location,omitempty"`
	Route        *navigation.Route         `json:"route,omitempty"`
	Progress     *navigation.RouteProgress `json:"progress,omitempty"`
	Live         bool                      `json:"live"`
	Closed       bool                      `json:"closed"`
	Version      int64                     `json:"version"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// SessionStatsDTO holds aggregate session statistics.
type SessionStatsDTO struct {
	TotalSessions int64            `json:"total_sessions"`
	LiveSessions  int              `json:"live_sessions"`
	ByState       map[string]int64 `json:"by_state"`
}

func toSessionDTO(rec *navigation.SessionRecord, live bool) SessionDTO {
	snap := rec.Snapshot
	return SessionDTO{
		ID:           rec.ID,
		Name:         rec.Name,
		State:        snap.State.String(),
		Generation:   snap.Generation,
		Config:       snap.Config,
		Presentation: snap.Presentation,
		SurfaceReady: snap.SurfaceReady,
		Location:     snap.Location,
		Route:        snap.Route,
		Progress:     snap.Progress,
		Live:         live,
		Closed:       rec.Closed,
		Version:      rec.Version,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
}
