package scraper

// Translate renames the keys of every hit according to fields.
//
// With a nil mapping the hits are returned as they are. Otherwise each item
// holds exactly the output keys whose source key exists in the hit; missing
// source keys are dropped silently. The number and order of items always
// matches hits.
func Translate(hits []RawItem, fields FieldMapping) []Item {
	items := make([]Item, 0, len(hits))

	if fields == nil {
		for _, hit := range hits {
			items = append(items, Item(hit))
		}
		return items
	}

	for _, hit := range hits {
		item := make(Item, len(fields))
		for out, src := range fields {
			if v, ok := hit[src]; ok {
				item[out] = v
			}
		}
		items = append(items, item)
	}

	return items
}
