// Package weather fetches current conditions from Open-Meteo for the
// display's idle screen. No API key is needed.
package weather

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL     = 2 * time.Hour
	defaultTimeout = 8 * time.Second
	geoipKey       = "\x00geoip"
)

// Endpoints are the upstream URLs. Tests point them at httptest servers.
type Endpoints struct {
	Geocoding string
	Forecast  string
	GeoIP     string
}

var DefaultEndpoints = Endpoints{
	Geocoding: "https://geocoding-api.open-meteo.com/v1/search",
	Forecast:  "https://api.open-meteo.com/v1/forecast",
	GeoIP:     "http://ip-api.com/json/?fields=status,city,country,lat,lon",
}

// Report is the weather block of the usage response. On failure only Error
// is set.
type Report struct {
	TempC     *float64 `json:"temp_c,omitempty"`
	WMO       *int     `json:"wmo,omitempty"`
	Condition string   `json:"condition,omitempty"`
	Icon      string   `json:"icon,omitempty"`
	City      string   `json:"city,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Failed reports whether r carries an error instead of conditions.
func (r Report) Failed() bool { return r.Error != "" }

type Options struct {
	Enabled   bool
	Endpoints Endpoints
	Timeout   time.Duration
	TTL       time.Duration
	Log       zerolog.Logger
}

// Service resolves a location and caches its current weather.
type Service struct {
	enabled   bool
	endpoints Endpoints
	ttl       time.Duration
	http      *resty.Client
	cache     *ristretto.Cache[string, Report]
	group     singleflight.Group
	log       zerolog.Logger
}

func New(opts Options) (*Service, error) {
	if opts.Endpoints == (Endpoints{}) {
		opts.Endpoints = DefaultEndpoints
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	cache, err := ristretto.NewCache(&ristretto.Config[string, Report]{
		NumCounters: 1_000,
		MaxCost:     100,
		BufferItems: 64,
		// Entries are counted, not sized.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create weather cache: %w", err)
	}
	return &Service{
		enabled:   opts.Enabled,
		endpoints: opts.Endpoints,
		ttl:       opts.TTL,
		http: resty.New().
			SetTimeout(opts.Timeout).
			SetHeader("User-Agent", "claude-relay/1.0"),
		cache: cache,
		log:   opts.Log,
	}, nil
}

// Close releases the cache.
func (s *Service) Close() {
	s.cache.Close()
}

// Get returns the weather for a city name, or for the caller's public IP
// when location is empty. Results, failures included, are cached per
// location.
func (s *Service) Get(ctx context.Context, location string) Report {
	if !s.enabled {
		return Report{Error: "disabled"}
	}
	key := location
	if key == "" {
		key = geoipKey
	}
	if r, ok := s.cache.Get(key); ok {
		return r
	}

	v, _, _ := s.group.Do(key, func() (any, error) {
		if r, ok := s.cache.Get(key); ok {
			return r, nil
		}
		r := s.fetch(context.WithoutCancel(ctx), location)
		s.cache.SetWithTTL(key, r, 1, s.ttl)
		s.cache.Wait()
		return r, nil
	})
	return v.(Report)
}

type place struct {
	Lat, Lon float64
	Label    string
}

func (s *Service) fetch(ctx context.Context, location string) Report {
	var (
		p   place
		err error
	)
	if location != "" {
		p, err = s.geocode(ctx, location)
		if err != nil {
			s.log.Warn().Err(err).Str("location", location).Msg("geocode failed")
			return Report{Error: fmt.Sprintf("Location '%s' not found", location)}
		}
	} else {
		p, err = s.geoip(ctx)
		if err != nil {
			s.log.Warn().Err(err).Msg("geoip failed")
			return Report{Error: "Could not determine location (GeoIP failed)"}
		}
	}

	r, err := s.current(ctx, p)
	if err != nil {
		s.log.Warn().Err(err).Str("city", p.Label).Msg("forecast fetch failed")
		return Report{Error: "Weather fetch failed"}
	}
	return r
}

func (s *Service) geocode(ctx context.Context, city string) (place, error) {
	var body struct {
		Results []struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Name      string  `json:"name"`
			Country   string  `json:"country"`
		} `json:"results"`
	}
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"name": city, "count": "1"}).
		ForceContentType("application/json").
		SetResult(&body).
		Get(s.endpoints.Geocoding)
	if err != nil {
		return place{}, fmt.Errorf("geocoding request: %w", err)
	}
	if resp.IsError() {
		return place{}, fmt.Errorf("geocoding returned status %d", resp.StatusCode())
	}
	if len(body.Results) == 0 {
		return place{}, fmt.Errorf("no geocoding results for %q", city)
	}
	r := body.Results[0]
	return place{Lat: r.Latitude, Lon: r.Longitude, Label: r.Name + ", " + r.Country}, nil
}

func (s *Service) geoip(ctx context.Context) (place, error) {
	var body struct {
		Status  string  `json:"status"`
		City    string  `json:"city"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	resp, err := s.http.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetResult(&body).
		Get(s.endpoints.GeoIP)
	if err != nil {
		return place{}, fmt.Errorf("geoip request: %w", err)
	}
	if resp.IsError() {
		return place{}, fmt.Errorf("geoip returned status %d", resp.StatusCode())
	}
	if body.Status != "success" {
		return place{}, fmt.Errorf("geoip status %q", body.Status)
	}
	return place{Lat: body.Lat, Lon: body.Lon, Label: body.City + ", " + body.Country}, nil
}

func (s *Service) current(ctx context.Context, p place) (Report, error) {
	var body struct {
		Current struct {
			Temperature *float64 `json:"temperature_2m"`
			WeatherCode int      `json:"weathercode"`
		} `json:"current"`
	}
	resp, err := s.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latitude":         strconv.FormatFloat(p.Lat, 'f', -1, 64),
			"longitude":        strconv.FormatFloat(p.Lon, 'f', -1, 64),
			"current":          "temperature_2m,weathercode,windspeed_10m,relative_humidity_2m",
			"temperature_unit": "celsius",
			"windspeed_unit":   "kmh",
			"timezone":         "auto",
		}).
		ForceContentType("application/json").
		SetResult(&body).
		Get(s.endpoints.Forecast)
	if err != nil {
		return Report{}, fmt.Errorf("forecast request: %w", err)
	}
	if resp.IsError() {
		return Report{}, fmt.Errorf("forecast returned status %d", resp.StatusCode())
	}

	code := body.Current.WeatherCode
	condition, icon := Describe(code)
	return Report{
		TempC:     body.Current.Temperature,
		WMO:       &code,
		Condition: condition,
		Icon:      icon,
		City:      p.Label,
	}, nil
}
