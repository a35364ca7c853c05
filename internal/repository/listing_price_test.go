package repository

import (
	"sort"
	"testing"
)

func TestKnownItemTypeCoversEveryVertical(t *testing.T) {
	for _, itemType := range []string{"car", "realestate", "laptop", "secondhand", "job", "business", "freelancer"} {
		if !KnownItemType(itemType) {
			t.Fatalf("expected %q to be a known item type", itemType)
		}
	}

	for _, itemType := range []string{"", "cars", "CAR", "yacht"} {
		if KnownItemType(itemType) {
			t.Fatalf("expected %q to be rejected", itemType)
		}
	}
}

func TestItemTypesMatchesRegistry(t *testing.T) {
	types := ItemTypes()
	sort.Strings(types)

	want := []string{"business", "car", "freelancer", "job", "laptop", "realestate", "secondhand"}
	if len(types) != len(want) {
		t.Fatalf("expected %d item types, got %d", len(want), len(types))
	}
	for i, itemType := range want {
		if types[i] != itemType {
			t.Fatalf("expected %q at position %d, got %q", itemType, i, types[i])
		}
	}
}

func TestEveryPriceSourceIsFullySpecified(t *testing.T) {
	for itemType, source := range priceSources {
		if source.Table == "" || source.Column == "" {
			t.Fatalf("price source for %q is incomplete: %+v", itemType, source)
		}
	}
}
