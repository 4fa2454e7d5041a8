package ocr

import (
	"bytes"
	"image/color"

	"github.com/disintegration/imaging"
	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"
)

/*
preprocessImage decodes an uploaded screenshot, prepares it for OCR and
returns it encoded as PNG.

The preprocessing steps are:
  - Convert to grayscale.
  - Resize to double height (keeping aspect ratio) for clearer text.
  - Apply a mild sharpening.
  - Strongly increase contrast.
  - Apply a hard threshold to produce a pure black/white image.

If any step fails, it returns a *xerr.Error.
*/
func preprocessImage(imageBytes []byte, thresholdValue uint8) (pngBytes []byte, e *xerr.Error) {
	tl.Log(tl.Info1, palette.Blue, "Preprocessing uploaded image (%d bytes)", len(imageBytes))

	originalImage, decodeErr := imaging.Decode(bytes.NewReader(imageBytes), imaging.AutoOrientation(true))
	if decodeErr != nil {
		e = xerr.NewError(decodeErr, "decode uploaded image", len(imageBytes))
		return nil, e
	}

	grayscaleImage := imaging.Grayscale(originalImage)

	// Screenshots of chat price lists use small fonts, doubling helps tesseract.
	targetHeight := grayscaleImage.Bounds().Dy() * 2
	resizedImage := imaging.Resize(grayscaleImage, 0, targetHeight, imaging.Lanczos)

	sharpenedImage := imaging.Sharpen(resizedImage, 1.0)
	highContrastImage := imaging.AdjustContrast(sharpenedImage, 100.0)

	binarizedImage := imaging.AdjustFunc(highContrastImage, func(c color.NRGBA) color.NRGBA {
		// grayscale already, red channel is the brightness
		if c.R > thresholdValue {
			return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
		}
		return color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	})

	var encoded bytes.Buffer
	encodeErr := imaging.Encode(&encoded, binarizedImage, imaging.PNG)
	if encodeErr != nil {
		e = xerr.NewError(encodeErr, "encode processed image", "png")
		return nil, e
	}

	tl.Log(tl.Info1, palette.Green, "Processed image is %d bytes", encoded.Len())
	return encoded.Bytes(), e
}
