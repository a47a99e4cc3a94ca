package scraper

import "time"

var storyFields = FieldMapping{
	"created_at": "created_at",
	"title":      "title",
	"url":        "url",
	"author":     "author",
	"points":     "points",
	"story_text": "story_text",
	"timestamp":  "created_at_i",
	"objectID":   "story_id",
}

var commentFields = FieldMapping{
	"created_at":   "created_at",
	"title":        "title",
	"url":          "url",
	"comment_text": "comment_text",
	"story_id":     "story_id",
	"story_title":  "story_title",
	"story_url":    "story_url",
	"author":       "author",
	"points":       "points",
	"timestamp":    "created_at_i",
	"comment_id":   "objectID",
	"parent_id":    "parent_id",
}

// StoryFields returns a copy of the field mapping applied to stories.
func StoryFields() FieldMapping {
	return storyFields.Clone()
}

// CommentFields returns a copy of the field mapping applied to comments.
func CommentFields() FieldMapping {
	return commentFields.Clone()
}

// KindScraper scrapes one kind of item with a fixed field mapping.
type KindScraper struct {
	scraper *Scraper
	tag     Tag
	fields  FieldMapping
}

// NewKindScraper binds a tag and field mapping to s. The mapping is copied.
func NewKindScraper(s *Scraper, tag Tag, fields FieldMapping) *KindScraper {
	return &KindScraper{
		scraper: s,
		tag:     tag,
		fields:  fields.Clone(),
	}
}

// NewStoryScraper returns a KindScraper for stories.
func NewStoryScraper(s *Scraper) *KindScraper {
	return NewKindScraper(s, TagStory, storyFields)
}

// NewCommentScraper returns a KindScraper for comments.
func NewCommentScraper(s *Scraper) *KindScraper {
	return NewKindScraper(s, TagComment, commentFields)
}

// Tag returns the tag the scraper searches for.
func (k *KindScraper) Tag() Tag {
	return k.tag
}

// GetItems scrapes every item created after since and, when until is set,
// before until. A zero timeout selects the scraper default.
func (k *KindScraper) GetItems(since int64, until *int64, timeout time.Duration) (*Iterator, error) {
	return k.scraper.Scrape(Query{
		Tag:     k.tag,
		Since:   since,
		Until:   until,
		Fields:  k.fields,
		Timeout: timeout,
	})
}
