// Package geocode turns map points into addresses and free-text queries
// into points using a Nominatim-compatible HTTP API.
//
// Lookups never fail from the caller's point of view: network or decoding
// problems produce an empty address or an empty result list and are only
// logged.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/contactbook/internal/logging"
)

const (
	DefaultBaseURL    = "https://nominatim.openstreetmap.org"
	DefaultUserAgent  = "contactbook/1.0"
	DefaultLimit      = 8
	DefaultCountry    = "id"
	DefaultLanguage   = "id"
	DefaultTimeout    = 10 * time.Second
	minQueryRuneCount = 3
)

// DefaultCenter is where the picker starts when a contact has no location.
var DefaultCenter = Place{Lat: -6.755316451902105, Lng: 108.50968109451621}

// Place is a geocoded point.
type Place struct {
	Lat     float64
	Lng     float64
	Address string
}

// Options configures a Picker. Empty strings for CountryCodes and Language
// are sent as "no filter"; use the Default* constants for the usual values.
type Options struct {
	BaseURL       string
	UserAgent     string
	Limit         int
	CountryCodes  string
	Language      string
	SearchEnabled bool
	Timeout       time.Duration
	HTTPClient    *http.Client
	Logger        logging.Logger
}

// Picker resolves locations for the contact form.
type Picker struct {
	base   *url.URL
	opts   Options
	client *http.Client
	log    logging.Logger
}

// NewPicker validates the base URL and fills in defaults.
func NewPicker(opts Options) (*Picker, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid geocoder url %q", opts.BaseURL)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop{}
	}

	return &Picker{base: base, opts: opts, client: client, log: log.With("component", "geocode")}, nil
}

// SearchEnabled reports whether free-text search is configured.
func (p *Picker) SearchEnabled() bool { return p.opts.SearchEnabled }

// Reverse looks up the address of a point. The address is empty on failure.
func (p *Picker) Reverse(ctx context.Context, lat, lng float64) Place {
	place := Place{Lat: lat, Lng: lng}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	var res struct {
		DisplayName string `json:"display_name"`
	}
	if err := p.getJSON(ctx, "/reverse", q, &res); err != nil {
		p.log.Warn(ctx, "reverse geocoding failed", "lat", lat, "lng", lng, "err", err)
		return place
	}
	place.Address = res.DisplayName
	return place
}

// Search returns up to Limit matches for query. It returns nothing when
// search is disabled or the trimmed query is shorter than three characters.
func (p *Picker) Search(ctx context.Context, query string) []Place {
	return p.search(ctx, query, p.opts.Limit)
}

// Resolve returns the best match for query.
func (p *Picker) Resolve(ctx context.Context, query string) (Place, bool) {
	hits := p.search(ctx, query, 1)
	if len(hits) == 0 {
		return Place{}, false
	}
	return hits[0], true
}

type searchHit struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (p *Picker) search(ctx context.Context, query string, limit int) []Place {
	query = strings.TrimSpace(query)
	if !p.opts.SearchEnabled || utf8.RuneCountInString(query) < minQueryRuneCount {
		return nil
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("q", query)
	q.Set("addressdetails", "1")
	q.Set("limit", strconv.Itoa(limit))
	if p.opts.CountryCodes != "" {
		q.Set("countrycodes", p.opts.CountryCodes)
	}
	if p.opts.Language != "" {
		q.Set("accept-language", p.opts.Language)
	}

	var hits []searchHit
	if err := p.getJSON(ctx, "/search", q, &hits); err != nil {
		p.log.Warn(ctx, "geocoding search failed", "query", query, "err", err)
		return nil
	}

	places := make([]Place, 0, len(hits))
	for _, h := range hits {
		lat, errLat := strconv.ParseFloat(h.Lat, 64)
		lng, errLng := strconv.ParseFloat(h.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		places = append(places, Place{Lat: lat, Lng: lng, Address: h.DisplayName})
	}
	return places
}

func (p *Picker) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := *p.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.opts.UserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
