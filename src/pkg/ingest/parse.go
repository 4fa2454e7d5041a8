package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/catalog"
)

const (
	itemColumn  = "Item"
	priceColumn = "Price"
)

/*
parseLines reads "item = price" lines. Lines without "=" are skipped without a
failure, that is how blank lines and comments are tolerated. The item is the
text before the first "=", lower-cased.
*/
func parseLines(text string) (entries []catalog.Entry, failures []Failure) {
	entries = make([]catalog.Entry, 0)
	failures = make([]Failure, 0)

	for i, line := range strings.Split(text, "\n") {
		itemPart, pricePart, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		item := strings.ToLower(strings.TrimSpace(itemPart))
		rawPrice := strings.TrimSpace(pricePart)
		if item == "" || rawPrice == "" {
			failures = append(failures, Failure{Record: i + 1, Reason: ReasonMalformedLine})
			continue
		}

		entries = append(entries, catalog.Entry{Key: item, RawPrice: rawPrice})
	}

	return entries, failures
}

/*
parseTabular reads CSV with a header row naming the "Item" and "Price"
columns (case-sensitive). Records are numbered by data row, starting at 1.

A row that lacks either column or has an empty value is a failure and the next
row is read. Only a missing or unreadable header fails the whole upload.
*/
func parseTabular(raw []byte) (entries []catalog.Entry, failures []Failure, e *xerr.Error) {
	entries = make([]catalog.Entry, 0)
	failures = make([]Failure, 0)

	bufferedReader := bufio.NewReader(bytes.NewReader(raw))
	// skip BOM if present
	firstBytes, _ := bufferedReader.Peek(3)
	if len(firstBytes) == 3 && firstBytes[0] == 0xEF && firstBytes[1] == 0xBB && firstBytes[2] == 0xBF {
		_, _ = bufferedReader.Discard(3)
	}

	reader := csv.NewReader(bufferedReader)
	reader.FieldsPerRecord = -1

	header, headerErr := reader.Read()
	if headerErr != nil {
		e = xerr.NewError(headerErr, "read CSV header", len(raw))
		return nil, nil, e
	}

	itemIndex, priceIndex := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case itemColumn:
			itemIndex = i
		case priceColumn:
			priceIndex = i
		}
	}
	if itemIndex < 0 || priceIndex < 0 {
		tl.Log(tl.Warning, palette.Yellow, "CSV header %q lacks the '%s' or '%s' column", header, itemColumn, priceColumn)
	}

	for rowNumber := 1; ; rowNumber++ {
		row, rowErr := reader.Read()
		if errors.Is(rowErr, io.EOF) {
			break
		}
		if rowErr != nil {
			failures = append(failures, Failure{Record: rowNumber, Reason: ReasonMalformedRow})
			continue
		}

		entry, ok := rowEntry(row, itemIndex, priceIndex)
		if !ok {
			failures = append(failures, Failure{Record: rowNumber, Reason: ReasonMalformedRow})
			continue
		}
		entries = append(entries, entry)
	}

	return entries, failures, e
}

func rowEntry(row []string, itemIndex int, priceIndex int) (entry catalog.Entry, ok bool) {
	if itemIndex < 0 || priceIndex < 0 || itemIndex >= len(row) || priceIndex >= len(row) {
		return entry, false
	}

	item := strings.ToLower(strings.TrimSpace(row[itemIndex]))
	rawPrice := strings.TrimSpace(row[priceIndex])
	if item == "" || rawPrice == "" {
		return entry, false
	}
	return catalog.Entry{Key: item, RawPrice: rawPrice}, true
}
