package storage

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"

	"github.com/disintegration/imaging"
)

// Rendition is one resized output of an uploaded photo.
type Rendition struct {
	MaxWidth  int
	MaxHeight int
	Crop      bool // fill the box and crop instead of fitting inside it
}

// ImageProcessor turns uploaded photos into JPEG renditions.
type ImageProcessor struct {
	quality int
}

func NewImageProcessor() *ImageProcessor {
	return &ImageProcessor{quality: 82}
}

// Decode reads a JPEG or PNG image. Orientation metadata is applied so
// phone photos are not rendered sideways.
func (p *ImageProcessor) Decode(content io.Reader) (image.Image, error) {
	img, err := imaging.Decode(content, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// Render resizes img into r and encodes it as JPEG.
func (p *ImageProcessor) Render(img image.Image, r Rendition) (io.Reader, error) {
	var out image.Image
	if r.Crop {
		out = imaging.Fill(img, r.MaxWidth, r.MaxHeight, imaging.Center, imaging.Lanczos)
	} else {
		out = imaging.Fit(img, r.MaxWidth, r.MaxHeight, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, out, &jpeg.Options{Quality: p.quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf, nil
}
