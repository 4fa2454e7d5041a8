// Package ingest reads uploaded price lists and merges them into the catalog in one batch.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/catalog"
)

type SourceKind string

const (
	KindLines   SourceKind = "line-delimited"
	KindTabular SourceKind = "tabular"
	KindImage   SourceKind = "image"
)

const (
	ReasonMalformedLine = "malformed line"
	ReasonMalformedRow  = "malformed row"
)

// Failure is one record that could not be turned into an item/price pair.
type Failure struct {
	Record int    `json:"record"`
	Reason string `json:"reason"`
}

// Result summarizes one ingested upload.
type Result struct {
	BatchID   string     `json:"batch_id"`
	Kind      SourceKind `json:"kind"`
	Extracted int        `json:"extracted"`
	Succeeded int        `json:"succeeded"`
	Failures  []Failure  `json:"failures"`
}

// Merger receives every extracted pair in a single call. *catalog.Catalog implements it.
type Merger interface {
	Merge(ctx context.Context, entries []catalog.Entry) (e *xerr.Error)
}

// TextExtractor turns an image into "item = price" text. *ocr.Extractor implements it.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageBytes []byte) (ocrText string, e *xerr.Error)
}

type Ingestor struct {
	target    Merger
	extractor TextExtractor
}

// New returns an Ingestor merging into target. extractor may be nil, image uploads are then refused.
func New(target Merger, extractor TextExtractor) *Ingestor {
	return &Ingestor{target: target, extractor: extractor}
}

/*
KindFromFilename picks the source kind from the file suffix only:
.txt is line-delimited, .csv is tabular and .png/.jpg/.jpeg are screenshots.
*/
func KindFromFilename(filename string) (kind SourceKind, e *xerr.Error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return KindLines, e
	case ".csv":
		return KindTabular, e
	case ".png", ".jpg", ".jpeg":
		return KindImage, e
	}
	e = xerr.NewError(fmt.Errorf("unsupported file type '%s'", filepath.Ext(filename)), "choose upload source kind", filename)
	return "", e
}

/*
Ingest extracts item/price pairs from raw and merges them into the catalog with
one save.

Bad records never stop the batch, they are returned in Result.Failures. Prices
are stored as written, they are not parsed here. The returned error is set only
when the source as a whole cannot be read (Extracted is 0) or the catalog could
not be saved (Extracted is set, Succeeded is 0 and nothing was merged).
*/
func (in *Ingestor) Ingest(ctx context.Context, kind SourceKind, raw []byte) (result Result, e *xerr.Error) {
	result = Result{
		BatchID:  uuid.NewString(),
		Kind:     kind,
		Failures: make([]Failure, 0),
	}

	tl.Log(tl.Info, palette.Blue, "Ingesting %s upload (%d bytes) as batch '%s'", kind, len(raw), result.BatchID)

	var entries []catalog.Entry
	switch kind {
	case KindLines:
		entries, result.Failures = parseLines(string(raw))
	case KindTabular:
		entries, result.Failures, e = parseTabular(raw)
	case KindImage:
		if in.extractor == nil {
			e = xerr.NewError(fmt.Errorf("no text extractor configured"), "ingest image upload", result.BatchID)
			return result, e
		}
		var ocrText string
		ocrText, e = in.extractor.ExtractText(ctx, raw)
		if e == nil {
			entries, result.Failures = parseLines(ocrText)
		}
	default:
		e = xerr.NewError(fmt.Errorf("unknown source kind '%s'", kind), "ingest upload", result.BatchID)
	}
	if e != nil {
		return result, e
	}

	result.Extracted = len(entries)
	if len(entries) > 0 {
		e = in.target.Merge(ctx, entries)
		if e != nil {
			tl.Log(tl.Error, palette.RedBold, "Batch '%s' was not merged, %d pairs %s", result.BatchID, len(entries), "dropped")
			return result, e
		}
	}
	result.Succeeded = len(entries)

	tl.Log(
		tl.Info1, palette.Green, "Batch '%s' merged: %d succeeded, %d failed",
		result.BatchID, result.Succeeded, len(result.Failures),
	)
	if len(result.Failures) > 0 {
		tl.LogJSON(tl.Verbose, palette.CyanDim, "ingest failures", result.Failures)
	}
	return result, e
}
