package navigation

// CameraMode is the map camera behavior the host should apply.
type CameraMode string

const (
	CameraIdle      CameraMode = "idle"
	CameraOverview  CameraMode = "overview"
	CameraFollowing CameraMode = "following"
)

// Presentation is the UI visibility and camera state that matches the session.
type Presentation struct {
	SoundButton   bool       `json:"sound_button"`
	RouteOverview bool       `json:"route_overview"`
	Maneuver      bool       `json:"maneuver"`
	TripProgress  bool       `json:"trip_progress"`
	CancelButton  bool       `json:"cancel_button"`
	Muted         bool       `json:"muted"`
	Camera        CameraMode `json:"camera"`
}

// derivePresentation computes the presentation for a state. progressed is true
// once the first progress update arrived for the current guidance.
func derivePresentation(state SessionState, cfg SessionConfig, progressed bool) Presentation {
	p := Presentation{Muted: cfg.Muted, Camera: CameraIdle}
	if state != StateGuiding {
		return p
	}
	p.SoundButton = true
	p.RouteOverview = true
	p.Maneuver = true
	p.TripProgress = !cfg.HideStatusView
	p.CancelButton = cfg.ShowCancelButton
	p.Camera = CameraOverview
	if progressed {
		p.Camera = CameraFollowing
	}
	return p
}
