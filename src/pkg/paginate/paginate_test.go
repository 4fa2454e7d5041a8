package paginate

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"price-catalog/src/pkg/catalog"
)

func entries(n int) []catalog.Entry {
	out := make([]catalog.Entry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, catalog.Entry{Key: fmt.Sprintf("item %02d", i), RawPrice: fmt.Sprintf("%dk", i)})
	}
	return out
}

func joined(list []catalog.Entry) string {
	var b strings.Builder
	for _, entry := range list {
		b.WriteString(Format(entry))
	}
	return b.String()
}

func TestPaginateRespectsLimit(t *testing.T) {
	list := entries(40)
	for _, limit := range []int{20, 33, 100, 250} {
		chunks := Paginate(list, limit)
		if len(chunks) < 2 {
			t.Fatalf("limit %d: expected several chunks, got %d", limit, len(chunks))
		}
		for _, chunk := range chunks {
			if utf8.RuneCountInString(chunk) > limit {
				t.Errorf("limit %d: chunk of %d characters", limit, utf8.RuneCountInString(chunk))
			}
		}
		if strings.Join(chunks, "") != joined(list) {
			t.Errorf("limit %d: chunks do not reproduce the listing", limit)
		}
	}
}

func TestPaginateOversizedItemStandsAlone(t *testing.T) {
	long := catalog.Entry{Key: strings.Repeat("x", 50), RawPrice: "1"}
	list := []catalog.Entry{{Key: "a", RawPrice: "1"}, long, {Key: "b", RawPrice: "2"}}

	chunks := Paginate(list, 10)
	want := []string{"a: 1\n", Format(long), "b: 2\n"}
	if fmt.Sprintf("%q", chunks) != fmt.Sprintf("%q", want) {
		t.Fatalf("Paginate = %q, want %q", chunks, want)
	}
}

func TestPaginateGreedyPacking(t *testing.T) {
	list := []catalog.Entry{{Key: "a", RawPrice: "1"}, {Key: "b", RawPrice: "2"}, {Key: "c", RawPrice: "3"}}
	// every line is 5 characters
	chunks := Paginate(list, 10)
	want := []string{"a: 1\nb: 2\n", "c: 3\n"}
	if fmt.Sprintf("%q", chunks) != fmt.Sprintf("%q", want) {
		t.Fatalf("Paginate = %q, want %q", chunks, want)
	}
}

func TestPaginateCountsCharactersNotBytes(t *testing.T) {
	list := []catalog.Entry{{Key: "épée", RawPrice: "1"}, {Key: "ñu", RawPrice: "2"}}
	// "épée: 1\n" is 8 characters, "ñu: 2\n" is 6
	chunks := Paginate(list, 14)
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %q", chunks)
	}
}

func TestPaginateEdgeCases(t *testing.T) {
	if chunks := Paginate(nil, 100); len(chunks) != 0 {
		t.Fatalf("Paginate(nil) = %q", chunks)
	}
	list := entries(30)
	if chunks := Paginate(list, 0); len(chunks) != 1 || chunks[0] != joined(list) {
		t.Fatalf("unlimited Paginate returned %d chunks", len(chunks))
	}
}
