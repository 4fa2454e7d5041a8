// Package budget selects the catalog entries a given amount can pay for.
package budget

import (
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/catalog"
	"price-catalog/src/pkg/price"
)

// Source is the part of the catalog the filter reads.
type Source interface {
	Entries() []catalog.Entry
}

/*
Filter returns every entry whose price parses and is at most budgetText, in
catalog order.

Only an unparseable budget is an error. Entries with prices like "trade only"
are left out silently, they are not comparable and so not affordable.
*/
func Filter(source Source, budgetText string) (affordable []catalog.Entry, e *xerr.Error) {
	limit, e := price.Parse(budgetText)
	if e != nil {
		return nil, e
	}

	affordable = make([]catalog.Entry, 0)
	skipped := 0
	for _, entry := range source.Entries() {
		parsed := price.Evaluate(entry.RawPrice)
		if !parsed.Valid {
			skipped++
			continue
		}
		if parsed.Amount <= limit {
			affordable = append(affordable, entry)
		}
	}

	tl.Log(
		tl.Info1, palette.Cyan, "Budget %d matched %d entries (%d with %s prices skipped)",
		limit, len(affordable), skipped, "unparseable",
	)
	return affordable, e
}
