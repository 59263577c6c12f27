package search

import (
	"fmt"
	"testing"
)

func TestScoreEmptyQueryPassesThrough(t *testing.T) {
	t.Parallel()

	for _, q := range []string{"", "   ", "\t\n"} {
		got := Score(q, Item{Name: "anything"})
		if got.Score != 1 || len(got.MatchedFields) != 0 {
			t.Fatalf("query %q: expected pass-through score 1, got %+v", q, got)
		}
	}

	ranked := Rank("", []Item{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	if len(ranked) != 3 || ranked[0].Item.ID != "a" || ranked[2].Item.ID != "c" {
		t.Fatalf("empty query must keep every item in input order, got %+v", ranked)
	}
}

func TestScoreFieldWeights(t *testing.T) {
	t.Parallel()

	tests := []struct {
		item  Item
		score float64
		field string
	}{
		{Item{Name: "Whey Isolate"}, 10, FieldName},
		{Item{Brands: []string{"WheyCo"}}, 8, FieldBrand},
		{Item{Categories: []string{"Protein", "Whey"}}, 6, FieldCategories},
		{Item{ShortDescription: "fast whey"}, 4, FieldShortDescription},
		{Item{Description: "contains whey"}, 2, FieldDescription},
		{Item{Name: "Creatine"}, 0, ""},
	}
	for _, tc := range tests {
		got := Score("WHEY", tc.item)
		if got.Score != tc.score {
			t.Fatalf("item %+v: expected %v got %v", tc.item, tc.score, got.Score)
		}
		if tc.field != "" && (len(got.MatchedFields) != 1 || got.MatchedFields[0] != tc.field) {
			t.Fatalf("item %+v: expected matched field %s, got %v", tc.item, tc.field, got.MatchedFields)
		}
	}
}

func TestScoreNormalizesAndBoostsPhrase(t *testing.T) {
	t.Parallel()

	// "whey" (10) + "isolate" (10) + phrase in name (15) = 35, over 2 keywords.
	got := Score("whey isolate", Item{Name: "Pure Whey Isolate"})
	if got.Score != 17.5 {
		t.Fatalf("expected 17.5, got %v", got.Score)
	}

	// Keywords present but not adjacent: no phrase boost.
	got = Score("whey isolate", Item{Name: "Isolate of Whey"})
	if got.Score != 10 {
		t.Fatalf("expected 10 without phrase boost, got %v", got.Score)
	}
}

func TestScoreAcrossAllFields(t *testing.T) {
	t.Parallel()

	item := Item{
		Name:             "a a",
		Brands:           []string{"a a"},
		Categories:       []string{"a a"},
		ShortDescription: "a a",
		Description:      "a a",
	}
	got := Score("a a", item)
	// (20+15) + (16+10) + (12+6) + (8+4) + (4+2) = 97, over 2 keywords.
	if got.Score != 48.5 {
		t.Fatalf("expected 48.5, got %v", got.Score)
	}
	if got.Score > MaxScore || len(got.MatchedFields) != 5 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestRankDropsIrrelevantAndSortsStable(t *testing.T) {
	t.Parallel()

	items := []Item{
		{ID: "desc", Description: "creatine blend"},
		{ID: "none", Name: "Shaker"},
		{ID: "name-1", Name: "Creatine Mono"},
		{ID: "name-2", Name: "Creatine HCL"},
		{ID: "brand", Brands: []string{"Creatine Labs"}},
	}
	ranked := Rank("creatine", items)

	var order []string
	for _, r := range ranked {
		order = append(order, r.Item.ID)
	}
	if got := fmt.Sprint(order); got != "[name-1 name-2 brand desc]" {
		t.Fatalf("unexpected order %s", got)
	}
}

func TestScoreIsPure(t *testing.T) {
	t.Parallel()

	item := Item{Name: "Whey", Categories: []string{"Protein"}}
	first := Score("whey protein", item)
	for i := 0; i < 5; i++ {
		again := Score("whey protein", item)
		if again.Score != first.Score || fmt.Sprint(again.MatchedFields) != fmt.Sprint(first.MatchedFields) {
			t.Fatalf("score changed between calls: %+v vs %+v", first, again)
		}
	}
}
