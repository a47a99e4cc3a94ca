package checkpoint

import (
	"encoding/json"
	"strconv"

	"github.com/Sternrassler/hn-scraper/pkg/scraper"
)

// TimestampField is the translated key both item kinds carry created_at_i in.
const TimestampField = "timestamp"

// Watermark tracks the newest timestamp seen across a scrape.
type Watermark struct {
	field string
	max   int64
	seen  bool
}

// NewWatermark tracks the timestamp stored under field. An empty field selects
// TimestampField.
func NewWatermark(field string) *Watermark {
	if field == "" {
		field = TimestampField
	}
	return &Watermark{field: field}
}

// Observe records the item's timestamp. Items without a usable timestamp are
// ignored.
func (w *Watermark) Observe(item scraper.Item) {
	ts, ok := ItemTimestamp(item, w.field)
	if !ok {
		return
	}
	if !w.seen || ts > w.max {
		w.max = ts
		w.seen = true
	}
}

// Value returns the newest timestamp observed and whether any was.
func (w *Watermark) Value() (int64, bool) {
	return w.max, w.seen
}

// ItemTimestamp reads an integer timestamp from item[field]. Decoded JSON
// numbers, native integers and floats, and numeric strings are accepted.
func ItemTimestamp(item scraper.Item, field string) (int64, bool) {
	switch v := item[field].(type) {
	case json.Number:
		ts, err := v.Int64()
		return ts, err == nil
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	case string:
		ts, err := strconv.ParseInt(v, 10, 64)
		return ts, err == nil
	default:
		return 0, false
	}
}
