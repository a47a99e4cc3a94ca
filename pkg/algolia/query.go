package algolia

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Sternrassler/hn-scraper/pkg/scraper"
)

// TimestampAttribute is the numeric attribute the window filters on.
const TimestampAttribute = "created_at_i"

// NumericFilters builds the numericFilters parameter for a window. since is
// the lower bound and until the optional upper bound, both exclusive.
func NumericFilters(since int64, until *int64) string {
	filters := []string{fmt.Sprintf("%s>%d", TimestampAttribute, since)}
	if until != nil {
		filters = append(filters, fmt.Sprintf("%s<%d", TimestampAttribute, *until))
	}
	return strings.Join(filters, ",")
}

// QueryParams returns the query string parameters for one page request.
func QueryParams(req scraper.PageRequest) url.Values {
	return url.Values{
		"numericFilters": []string{NumericFilters(req.Since, req.Until)},
		"tags":           []string{string(req.Tag)},
		"page":           []string{strconv.Itoa(req.Page)},
	}
}

// pageURL returns the full request URL for req.
func pageURL(base *url.URL, req scraper.PageRequest) string {
	u := *base
	u.RawQuery = QueryParams(req).Encode()
	return u.String()
}
