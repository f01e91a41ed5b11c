package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"syndicate/internal/services"
)

// WatermarkPadding is the fixed offset of the watermark from the image's
// bottom-left corner.
const WatermarkPadding = 10

const jpegQuality = 85

// Process converts the source image to greyscale, composites the watermark
// anchored near the bottom-left corner, and re-encodes the result as JPEG.
// A nil watermark skips the composite and only converts.
func Process(source, watermark []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(source))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "imaging", "decode", "source image undecodable", err)
	}

	canvas := greyscale(img)

	if len(watermark) > 0 {
		mark, _, err := image.Decode(bytes.NewReader(watermark))
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "imaging", "decode watermark", "watermark image undecodable", err)
		}
		composite(canvas, mark)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, services.Wrap(services.ErrExternalService, "imaging", "encode", "jpeg encoding failed", err)
	}
	return buf.Bytes(), nil
}

func greyscale(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	canvas := image.NewRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			grey := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			canvas.Set(x, y, color.RGBA{R: grey.Y, G: grey.Y, B: grey.Y, A: 0xff})
		}
	}
	return canvas
}

// composite draws the watermark over the canvas at the fixed padding offset
// from the bottom-left, honoring the watermark's alpha channel.
func composite(canvas *image.RGBA, mark image.Image) {
	markBounds := mark.Bounds()
	canvasBounds := canvas.Bounds()
	offset := image.Pt(
		canvasBounds.Min.X+WatermarkPadding,
		canvasBounds.Max.Y-markBounds.Dy()-WatermarkPadding,
	)
	target := image.Rectangle{Min: offset, Max: offset.Add(markBounds.Size())}
	draw.Draw(canvas, target, mark, markBounds.Min, draw.Over)
}
