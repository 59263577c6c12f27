package search

import (
	"sort"
	"strings"
)

const (
	MaxScore = 100.0
	MinScore = 1.0
)

// Field names reported in Result.MatchedFields.
const (
	FieldName             = "name"
	FieldBrand            = "brand"
	FieldCategories       = "categories"
	FieldShortDescription = "short_description"
	FieldDescription      = "description"
)

type fieldWeight struct {
	name    string
	keyword float64
	phrase  float64
	value   func(Item) []string
}

var weights = []fieldWeight{
	{name: FieldName, keyword: 10, phrase: 15, value: func(i Item) []string { return []string{i.Name} }},
	{name: FieldBrand, keyword: 8, phrase: 10, value: func(i Item) []string { return i.Brands }},
	{name: FieldCategories, keyword: 6, phrase: 6, value: func(i Item) []string { return i.Categories }},
	{name: FieldShortDescription, keyword: 4, phrase: 4, value: func(i Item) []string { return []string{i.ShortDescription} }},
	{name: FieldDescription, keyword: 2, phrase: 2, value: func(i Item) []string { return []string{i.Description} }},
}

// Item is the searchable projection of a catalog product.
type Item struct {
	ID               string
	Name             string
	Brands           []string
	Categories       []string
	ShortDescription string
	Description      string
}

// Result is the relevance of one item for one query.
type Result struct {
	Score         float64
	MatchedFields []string
}

// Ranked pairs an item with its score.
type Ranked struct {
	Item   Item
	Result Result
}

// Keywords splits a query on whitespace, lower-cased.
func Keywords(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// Score computes the weighted, keyword-normalized relevance of item for query.
// An empty query scores every item 1.
func Score(query string, item Item) Result {
	keywords := Keywords(query)
	if len(keywords) == 0 {
		return Result{Score: MinScore}
	}
	phrase := strings.Join(keywords, " ")

	var total float64
	var matched []string
	for _, w := range weights {
		values := lowerAll(w.value(item))
		hit := false
		for _, kw := range keywords {
			if containsAny(values, kw) {
				total += w.keyword
				hit = true
			}
		}
		if len(keywords) > 1 && containsAny(values, phrase) {
			total += w.phrase
			hit = true
		}
		if hit {
			matched = append(matched, w.name)
		}
	}

	score := total / float64(len(keywords))
	if score > MaxScore {
		score = MaxScore
	}
	return Result{Score: score, MatchedFields: matched}
}

// Rank scores every item, drops those below MinScore and orders the rest by
// descending score. Equal scores keep their input order.
func Rank(query string, items []Item) []Ranked {
	ranked := make([]Ranked, 0, len(items))
	for _, item := range items {
		result := Score(query, item)
		if result.Score < MinScore {
			continue
		}
		ranked = append(ranked, Ranked{Item: item, Result: result})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Result.Score > ranked[j].Result.Score
	})
	return ranked
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsAny(values []string, needle string) bool {
	for _, v := range values {
		if strings.Contains(v, needle) {
			return true
		}
	}
	return false
}
