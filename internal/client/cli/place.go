package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/client/geocode"
	"github.com/dmitrijs2005/contactbook/internal/client/models"
)

// Place looks up a query or a "lat,lng" pair and prints what the picker
// finds. With no input it describes the default map center.
func (a *App) Place(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		var err error
		query, err = getSimpleText(a.reader, "Address to search, or lat,lng (Enter for map center)", a.out)
		if err != nil {
			return err
		}
	}

	if query == "" {
		c := geocode.DefaultCenter
		a.printPlace(0, a.picker.Reverse(ctx, c.Lat, c.Lng))
		return nil
	}
	if lat, lng, ok := parseLatLng(query); ok {
		a.printPlace(0, a.picker.Reverse(ctx, lat, lng))
		return nil
	}
	if !a.picker.SearchEnabled() {
		return fmt.Errorf("address search is disabled; enter coordinates as lat,lng")
	}

	hits := a.picker.Search(ctx, query)
	if len(hits) == 0 {
		fmt.Fprintln(a.out, "No places found.")
		return nil
	}
	for i, p := range hits {
		a.printPlace(i+1, p)
	}
	return nil
}

// pickLocation asks for a location until the user picks one or presses
// Enter, which returns current unchanged (possibly nil).
func (a *App) pickLocation(ctx context.Context, current *models.Location) (*models.Location, error) {
	prompt := "Location: address to search, or lat,lng"
	if current != nil {
		prompt += " (Enter keeps current)"
	}

	for {
		q, err := getSimpleText(a.reader, prompt, a.out)
		if err != nil {
			return nil, err
		}
		if q == "" {
			return current, nil
		}

		if lat, lng, ok := parseLatLng(q); ok {
			p := a.picker.Reverse(ctx, lat, lng)
			if p.Address == "" {
				fmt.Fprintln(a.out, "No address found for that point.")
			}
			return &models.Location{Address: p.Address, Lat: p.Lat, Lng: p.Lng}, nil
		}

		if !a.picker.SearchEnabled() {
			fmt.Fprintln(a.out, "Address search is disabled; enter coordinates as lat,lng.")
			continue
		}

		hits := a.picker.Search(ctx, q)
		switch len(hits) {
		case 0:
			fmt.Fprintln(a.out, "No places found, try again.")
			continue
		case 1:
			a.printPlace(0, hits[0])
			return placeToLocation(hits[0]), nil
		}

		for i, p := range hits {
			a.printPlace(i+1, p)
		}
		choice, err := getSimpleText(a.reader, fmt.Sprintf("Pick 1-%d (Enter for 1)", len(hits)), a.out)
		if err != nil {
			return nil, err
		}
		n := 1
		if choice != "" {
			n, err = strconv.Atoi(choice)
			if err != nil || n < 1 || n > len(hits) {
				fmt.Fprintln(a.out, "Invalid choice, try again.")
				continue
			}
		}
		return placeToLocation(hits[n-1]), nil
	}
}

func (a *App) printPlace(n int, p geocode.Place) {
	addr := p.Address
	if addr == "" {
		addr = "(no address)"
	}
	if n > 0 {
		fmt.Fprintf(a.out, "%2d. %s (%.6f, %.6f)\n", n, addr, p.Lat, p.Lng)
		return
	}
	fmt.Fprintf(a.out, "%s (%.6f, %.6f)\n", addr, p.Lat, p.Lng)
}

func placeToLocation(p geocode.Place) *models.Location {
	return &models.Location{Address: p.Address, Lat: p.Lat, Lng: p.Lng}
}

// parseLatLng accepts "lat,lng" with optional spaces and checks ranges.
func parseLatLng(s string) (lat, lng float64, ok bool) {
	latS, lngS, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(latS), 64)
	lng, err2 := strconv.ParseFloat(strings.TrimSpace(lngS), 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	if !(lat >= -90 && lat <= 90) || !(lng >= -180 && lng <= 180) {
		return 0, 0, false
	}
	return lat, lng, true
}
