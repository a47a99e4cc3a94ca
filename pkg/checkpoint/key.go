package checkpoint

import (
	"strings"

	"github.com/Sternrassler/hn-scraper/pkg/scraper"
)

// DefaultNamespace is used when a Key has no namespace.
const DefaultNamespace = "default"

// Key identifies the watermark of one item kind.
type Key struct {
	// Namespace separates independent consumers sharing one Redis.
	Namespace string

	// Tag is the item kind, e.g. "story".
	Tag scraper.Tag
}

// String generates a deterministic Redis key.
// Format: hn:checkpoint:namespace:tag
//
// Example:
//
//	hn:checkpoint:default:story
func (k Key) String() string {
	namespace := strings.TrimSpace(k.Namespace)
	if namespace == "" {
		namespace = DefaultNamespace
	}

	parts := []string{"hn", "checkpoint", namespace, strings.ToLower(string(k.Tag))}
	return strings.Join(parts, ":")
}
