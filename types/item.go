package types

import "encoding/json"

// Item is a single candidate content entry gathered from an upstream source.
// Beyond the handful of fields the dedup engine reads, items are opaque:
// every other field passes through to the output unmodified.
type Item map[string]any

// idKeys is the identifier lookup order: first non-empty value wins.
var idKeys = []string{"content_id", "id"}

// ID returns the item identifier, trying content_id before id.
func (it Item) ID() string {
	return it.firstString(idKeys...)
}

// Title returns the item title, or "" when absent.
func (it Item) Title() string {
	return it.firstString("title")
}

// Text returns the story body, or "" when absent.
func (it Item) Text() string {
	return it.firstString("text")
}

// CompositeScore returns viral_score + quality_score, each defaulting to 0.
// It is derived for ranking only and never written back onto the item.
func (it Item) CompositeScore() float64 {
	return it.number("viral_score") + it.number("quality_score")
}

func (it Item) firstString(keys ...string) string {
	for _, key := range keys {
		if v, ok := it[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// number coerces the common JSON and in-process numeric representations.
func (it Item) number(key string) float64 {
	switch v := it[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
