// Package ocr turns screenshots of price lists into plain "item = price" text.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

// Extractor runs tesseract on uploaded images. The zero value is not usable, see NewExtractor.
type Extractor struct {
	language  string
	threshold uint8
}

// NewExtractor uses the language and binarization threshold from Cfg.
func NewExtractor() *Extractor {
	return &Extractor{
		language:  Cfg.Language,
		threshold: uint8(Cfg.Threshold),
	}
}

/*
ExtractText preprocesses the image and returns the recognized text.

Interword spaces are preserved so "item = price" lines keep their separator.
It returns a *xerr.Error if tesseract or its language data is missing, or the
image cannot be decoded. A cancelled ctx stops it before tesseract starts.
*/
func (x *Extractor) ExtractText(ctx context.Context, imageBytes []byte) (ocrText string, e *xerr.Error) {
	if ctx.Err() != nil {
		return "", xerr.NewError(ctx.Err(), "start OCR", len(imageBytes))
	}

	pngBytes, e := preprocessImage(imageBytes, x.threshold)
	if e != nil {
		return "", e
	}

	// tesseract itself cannot be interrupted, so this is the last point to give up
	if ctx.Err() != nil {
		return "", xerr.NewError(ctx.Err(), "run OCR on processed image", len(pngBytes))
	}

	tl.Log(tl.Info1, palette.Cyan, "Running OCR (%s) on processed image", x.language)

	client := gosseract.NewClient()
	defer func() {
		_ = client.Close()
	}()

	err := client.SetLanguage(x.language)
	if err != nil {
		return "", xerr.NewError(err, "unable to client.SetLanguage", x.language)
	}

	err = client.SetVariable("preserve_interword_spaces", "1")
	if err != nil {
		return "", xerr.NewError(err, "unable to client.SetVariable(\"preserve_interword_spaces\", \"1\")", x.language)
	}

	// one uniform block of text, like `--psm 6`
	err = client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK)
	if err != nil {
		return "", xerr.NewError(err, "unable to client.SetPageSegMode(PSM_SINGLE_BLOCK)", x.language)
	}

	err = client.SetImageFromBytes(pngBytes)
	if err != nil {
		return "", xerr.NewError(err, "unable to client.SetImageFromBytes", len(pngBytes))
	}

	ocrText, ocrErr := client.Text()
	if ocrErr != nil {
		return "", xerr.NewError(ocrErr, "unable to run OCR on image", len(pngBytes))
	}

	tl.Log(
		tl.Info1, palette.Green, "OCR completed (text length: %s)",
		fmt.Sprintf("%d", len(ocrText)),
	)

	return ocrText, e
}
