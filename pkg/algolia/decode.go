package algolia

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Sternrassler/hn-scraper/pkg/scraper"
)

// searchResponse is the subset of the search response the scraper needs.
// Pointers tell a missing key apart from a zero value.
type searchResponse struct {
	Hits        []scraper.RawItem `json:"hits"`
	NbHits      *int              `json:"nbHits"`
	NbPages     *int              `json:"nbPages"`
	HitsPerPage *int              `json:"hitsPerPage"`
}

// DecodePage reads a search response body. Numbers inside hits are kept as
// json.Number.
//
// A body that is not a JSON object returns a syntax or type error; a JSON
// object missing a required key returns an error wrapping
// scraper.ErrMalformedResponse.
func DecodePage(r io.Reader) (*scraper.RawPage, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var body searchResponse
	if err := dec.Decode(&body); err != nil {
		return nil, err
	}

	var missing []string
	if body.Hits == nil {
		missing = append(missing, "hits")
	}
	if body.NbHits == nil {
		missing = append(missing, "nbHits")
	}
	if body.NbPages == nil {
		missing = append(missing, "nbPages")
	}
	if body.HitsPerPage == nil {
		missing = append(missing, "hitsPerPage")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", scraper.ErrMalformedResponse, strings.Join(missing, ", "))
	}

	return &scraper.RawPage{
		Hits:        body.Hits,
		NbHits:      *body.NbHits,
		NbPages:     *body.NbPages,
		HitsPerPage: *body.HitsPerPage,
	}, nil
}
