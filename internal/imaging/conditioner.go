package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"regexp"
	"strings"

	"go-inspection-gateway/internal/logger"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const defaultMediaType = "image/jpeg"

var dataURIPrefix = regexp.MustCompile(`^data:[^,]+,`)

// StripDataURI removes a data-URI scheme prefix so providers receive pure base64.
func StripDataURI(data string) string {
	return dataURIPrefix.ReplaceAllString(strings.TrimSpace(data), "")
}

// Conditioner re-encodes base64 image payloads to fit provider size ceilings.
// Conditioning is best effort: every failure falls back to the trimmed
// original bytes, never to an error.
type Conditioner struct {
	quality int
}

func NewConditioner(quality int) *Conditioner {
	if quality < 1 || quality > 100 {
		quality = 85
	}
	return &Conditioner{quality: quality}
}

// Condition downscales the payload so its longer dimension fits targetWidth
// and re-encodes it with a codec chosen by the declared media type. It returns
// the resulting base64 payload and the effective media type, which changes
// when a lossy re-encode lands on a different codec than declared.
func (c *Conditioner) Condition(data, mediaType string, targetWidth int) (string, string) {
	trimmed := strings.TrimSpace(data)
	normalizedType := strings.ToLower(strings.TrimSpace(mediaType))
	if normalizedType == "" {
		normalizedType = defaultMediaType
	}

	if trimmed == "" || targetWidth <= 0 {
		return trimmed, normalizedType
	}

	// Animated formats must not be collapsed to a single frame
	if strings.Contains(normalizedType, "gif") {
		return trimmed, normalizedType
	}

	raw, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		logger.WithError(err).Warn("Image payload is not decodable base64, passing through")
		return trimmed, normalizedType
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil || cfg.Width <= 0 {
		if err != nil {
			logger.WithError(err).Warn("Could not probe image dimensions, passing through")
		}
		return trimmed, normalizedType
	}
	if cfg.Width <= targetWidth {
		// No upscaling, no unnecessary recompression
		return trimmed, normalizedType
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		logger.WithError(err).Warn("Image decode failed, passing through")
		return trimmed, normalizedType
	}
	img = correctOrientation(img, orientationOf(raw))

	resized := scaleToFit(img, targetWidth)

	var buf bytes.Buffer
	effectiveType := normalizedType
	switch {
	case strings.Contains(normalizedType, "png"):
		encoder := png.Encoder{CompressionLevel: png.BestCompression}
		err = encoder.Encode(&buf, resized)
	default:
		// webp/avif have no encoder in this stack; the lossy re-encode target
		// is jpeg at the configured quality bound
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: c.quality})
		effectiveType = defaultMediaType
	}
	if err != nil {
		logger.WithError(err).Warn("Image re-encode failed, passing through")
		return trimmed, normalizedType
	}

	logger.WithFields(logrus.Fields{
		"original_bytes":    len(raw),
		"conditioned_bytes": buf.Len(),
		"target_width":      targetWidth,
		"media_type":        effectiveType,
	}).Debug("Image conditioned")

	return base64.StdEncoding.EncodeToString(buf.Bytes()), effectiveType
}

// scaleToFit downscales img so its longer dimension equals maxDim, preserving
// aspect ratio and never enlarging.
func scaleToFit(img image.Image, maxDim int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= maxDim && height <= maxDim {
		return img
	}

	scale := float64(maxDim) / float64(width)
	if sy := float64(maxDim) / float64(height); sy < scale {
		scale = sy
	}

	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	if newWidth > maxDim {
		newWidth = maxDim
	}
	if newHeight > maxDim {
		newHeight = maxDim
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

// orientationOf extracts the EXIF orientation tag, defaulting to 1
func orientationOf(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return orientation
}

// correctOrientation bakes the EXIF orientation into pixel data so the
// re-encoded payload renders upright without its metadata.
func correctOrientation(img image.Image, orientation int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	switch orientation {
	case 2: // Flip horizontal
		out := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(width-1-x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	case 3: // Rotate 180
		out := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(width-1-x, height-1-y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	case 4: // Flip vertical
		out := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(x, height-1-y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	case 6: // Rotate 90 clockwise
		out := image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(height-1-y, x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	case 8: // Rotate 90 counter-clockwise
		out := image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(y, width-1-x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	default:
		return img
	}
}
