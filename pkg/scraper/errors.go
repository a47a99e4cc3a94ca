package scraper

import (
	"errors"
	"fmt"
)

// Common errors returned by the scraper.
var (
	// ErrCapacityExceeded is matched by *CapacityError. The window holds more
	// items than the endpoint can page through.
	ErrCapacityExceeded = errors.New("more items than the endpoint can page through")

	// ErrMalformedResponse marks a page that lacks required pagination fields.
	// PageFetcher implementations wrap it.
	ErrMalformedResponse = errors.New("malformed response")
)

// CapacityError is returned when the terminal empty page reports more hits than
// nbPages*hitsPerPage.
type CapacityError struct {
	Tag         Tag
	Page        int
	NbHits      int
	NbPages     int
	HitsPerPage int
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("%s scrape stopped at page %d: %d hits but only %d reachable (%d pages of %d)",
		e.Tag, e.Page, e.NbHits, e.NbPages*e.HitsPerPage, e.NbPages, e.HitsPerPage)
}

// Is makes errors.Is(err, ErrCapacityExceeded) hold.
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}
