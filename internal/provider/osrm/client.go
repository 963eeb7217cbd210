// Package osrm calculates routes with the OSRM HTTP route service.
package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/navigation"
)

const defaultTimeout = 10 * time.Second

// Client calls the OSRM route service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the OSRM instance at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type routeResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Routes  []route `json:"routes"`
}

type route struct {
	Distance float64           `json:"distance"`
	Duration float64           `json:"duration"`
	Geometry *geojson.Geometry `json:"geometry"`
	Legs     []leg             `json:"legs"`
}

type leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Summary  string  `json:"summary"`
}

// CalculateRoute requests routes for req. A response code other than "Ok" is
// returned as a *navigation.RouteError carrying OSRM's code and message.
func (c *Client) CalculateRoute(ctx context.Context, req navigation.RouteRequest) (navigation.RouteSolution, error) {
	endpoint := c.routeURL(req)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return navigation.RouteSolution{}, fmt.Errorf("failed to build route request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return navigation.RouteSolution{}, ctx.Err()
		}
		return navigation.RouteSolution{}, fmt.Errorf("failed to get route: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return navigation.RouteSolution{}, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed routeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode != http.StatusOK {
			return navigation.RouteSolution{}, &navigation.RouteError{
				Message: "Route request failed",
				Reasons: []string{fmt.Sprintf("HTTP %d", resp.StatusCode)},
			}
		}
		return navigation.RouteSolution{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if parsed.Code != "Ok" {
		reason := parsed.Code
		if parsed.Message != "" {
			reason = parsed.Code + ": " + parsed.Message
		}
		c.logger.Warn("osrm rejected route request",
			zap.String("code", parsed.Code),
			zap.Int("status", resp.StatusCode),
		)
		return navigation.RouteSolution{}, &navigation.RouteError{
			Message: "Route request failed",
			Reasons: []string{reason},
		}
	}

	solution := navigation.RouteSolution{Request: req, Routes: make([]navigation.Route, 0, len(parsed.Routes))}
	for _, r := range parsed.Routes {
		solution.Routes = append(solution.Routes, toRoute(r))
	}
	return solution, nil
}

func (c *Client) routeURL(req navigation.RouteRequest) string {
	coords := req.Coordinates()
	parts := make([]string, len(coords))
	for i, p := range coords {
		parts[i] = formatFloat(p.Longitude) + "," + formatFloat(p.Latitude)
	}

	q := url.Values{}
	q.Set("overview", "full")
	q.Set("geometries", "geojson")
	q.Set("steps", "false")
	if req.Locale() != "" {
		q.Set("language", req.Locale())
	}

	// Intermediate coordinates that do not split legs are pass-through points.
	if bounds := req.LegBoundaries(); len(bounds) < len(coords) {
		idx := make([]string, len(bounds))
		for i, b := range bounds {
			idx[i] = strconv.Itoa(b)
		}
		q.Set("waypoints", strings.Join(idx, ";"))
	}

	if bearing, tolerance, ok := req.OriginBearing(); ok {
		b := make([]string, len(coords))
		b[0] = strconv.Itoa(int(bearing)) + "," + strconv.Itoa(int(tolerance))
		q.Set("bearings", strings.Join(b, ";"))
	}

	return fmt.Sprintf("%s/route/v1/%s/%s?%s", c.baseURL, osrmProfile(req.Profile()), strings.Join(parts, ";"), q.Encode())
}

// osrmProfile maps routing profiles onto the ones OSRM serves.
func osrmProfile(profile string) string {
	switch profile {
	case "walking":
		return "foot"
	case "cycling":
		return "bike"
	default:
		return "driving"
	}
}

func toRoute(r route) navigation.Route {
	out := navigation.Route{
		Distance: r.Distance,
		Duration: r.Duration,
		Legs:     make([]navigation.RouteLeg, 0, len(r.Legs)),
	}
	for _, l := range r.Legs {
		out.Legs = append(out.Legs, navigation.RouteLeg{Distance: l.Distance, Duration: l.Duration, Summary: l.Summary})
	}
	if r.Geometry == nil {
		return out
	}
	if ls, ok := r.Geometry.Geometry().(orb.LineString); ok {
		out.Geometry = make([]navigation.Coordinate, len(ls))
		for i, p := range ls {
			out.Geometry[i] = navigation.Coordinate{Latitude: p.Lat(), Longitude: p.Lon()}
		}
	}
	return out
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
