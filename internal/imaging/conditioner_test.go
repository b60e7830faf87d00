package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodeTestImage(t *testing.T, width, height int, format string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	default:
		t.Fatalf("unsupported test format %s", format)
	}
	if err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodeDims(t *testing.T, data string) (int, int, string) {
	t.Helper()

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		t.Fatalf("output is not valid base64: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("output is not a decodable image: %v", err)
	}
	return cfg.Width, cfg.Height, format
}

func TestCondition_SmallImagePassthrough(t *testing.T) {
	conditioner := NewConditioner(85)
	data := encodeTestImage(t, 400, 300, "png")

	got, mediaType := conditioner.Condition("  "+data+"\n", "image/png", 800)

	if got != data {
		t.Error("Expected byte-identical trimmed input for image within target width")
	}
	if mediaType != "image/png" {
		t.Errorf("Expected media type preserved, got %s", mediaType)
	}
}

func TestCondition_OversizedImageResized(t *testing.T) {
	conditioner := NewConditioner(85)
	data := encodeTestImage(t, 1200, 900, "jpeg")

	got, mediaType := conditioner.Condition(data, "image/jpeg", 800)

	if got == data {
		t.Fatal("Expected a re-encoded payload for oversized image")
	}
	width, height, format := decodeDims(t, got)
	if width > 800 || height > 800 {
		t.Errorf("Expected both dimensions within 800, got %dx%d", width, height)
	}
	if format != "jpeg" {
		t.Errorf("Expected jpeg output, got %s", format)
	}
	if mediaType != "image/jpeg" {
		t.Errorf("Expected image/jpeg media type, got %s", mediaType)
	}
}

func TestCondition_PNGStaysLossless(t *testing.T) {
	conditioner := NewConditioner(85)
	data := encodeTestImage(t, 1000, 500, "png")

	got, mediaType := conditioner.Condition(data, "image/png", 800)

	width, _, format := decodeDims(t, got)
	if width != 800 {
		t.Errorf("Expected width scaled to 800, got %d", width)
	}
	if format != "png" {
		t.Errorf("Expected png re-encode for png media type, got %s", format)
	}
	if mediaType != "image/png" {
		t.Errorf("Expected image/png media type, got %s", mediaType)
	}
}

func TestCondition_WebpReencodesAsJPEG(t *testing.T) {
	conditioner := NewConditioner(85)
	// Codec selection follows the declared media type, decode follows the bytes
	data := encodeTestImage(t, 1200, 600, "png")

	got, mediaType := conditioner.Condition(data, "image/webp", 800)

	_, _, format := decodeDims(t, got)
	if format != "jpeg" {
		t.Errorf("Expected jpeg output for webp media type, got %s", format)
	}
	if mediaType != "image/jpeg" {
		t.Errorf("Expected effective media type image/jpeg, got %s", mediaType)
	}
}

func TestCondition_GIFNeverRecompressed(t *testing.T) {
	conditioner := NewConditioner(85)
	data := encodeTestImage(t, 2000, 2000, "png")

	got, mediaType := conditioner.Condition(" "+data, "image/gif", 100)

	if got != data {
		t.Error("Expected GIF media type to pass through untouched")
	}
	if mediaType != "image/gif" {
		t.Errorf("Expected media type preserved, got %s", mediaType)
	}
}

func TestCondition_Fallbacks(t *testing.T) {
	conditioner := NewConditioner(85)

	tests := []struct {
		name        string
		data        string
		mediaType   string
		targetWidth int
		want        string
	}{
		{"empty data", "   ", "image/jpeg", 800, ""},
		{"zero target width", "aGVsbG8=", "image/jpeg", 0, "aGVsbG8="},
		{"invalid base64", "!!!not-base64!!!", "image/jpeg", 800, "!!!not-base64!!!"},
		{"undecodable image", base64.StdEncoding.EncodeToString([]byte("plain text")), "image/jpeg", 800, base64.StdEncoding.EncodeToString([]byte("plain text"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := conditioner.Condition(tt.data, tt.mediaType, tt.targetWidth)
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCondition_DefaultMediaType(t *testing.T) {
	conditioner := NewConditioner(85)

	_, mediaType := conditioner.Condition("aGVsbG8=", "", 0)
	if mediaType != "image/jpeg" {
		t.Errorf("Expected default media type image/jpeg, got %s", mediaType)
	}
}

func TestStripDataURI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"with prefix", "data:image/png;base64,AAAA", "AAAA"},
		{"without prefix", "AAAA", "AAAA"},
		{"padded", "  data:image/jpeg;base64,BBBB  ", "BBBB"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripDataURI(tt.in); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConditionMessages(t *testing.T) {
	conditioner := NewConditioner(85)
	pool := NewPool(2)
	pool.Start()
	defer pool.Close()

	oversized := encodeTestImage(t, 1200, 600, "jpeg")
	small := encodeTestImage(t, 100, 100, "jpeg")

	first := map[string]interface{}{
		"type": "image",
		"source": map[string]interface{}{
			"type":       "base64",
			"media_type": "image/jpeg",
			"data":       oversized,
		},
	}
	second := map[string]interface{}{
		"type": "image",
		"source": map[string]interface{}{
			"type":       "base64",
			"media_type": "image/jpeg",
			"data":       small,
		},
	}
	textPart := map[string]interface{}{"type": "text", "text": "analyze this"}

	messages := []interface{}{
		map[string]interface{}{
			"role":    "user",
			"content": []interface{}{textPart, first, second},
		},
		"not a message",
	}

	conditioner.ConditionMessages(pool, messages, 800)

	firstData := first["source"].(map[string]interface{})["data"].(string)
	if firstData == oversized {
		t.Error("Expected oversized image to be conditioned")
	}
	width, _, _ := decodeDims(t, firstData)
	if width > 800 {
		t.Errorf("Expected conditioned width within 800, got %d", width)
	}

	secondData := second["source"].(map[string]interface{})["data"].(string)
	if secondData != small {
		t.Error("Expected small image to pass through unchanged")
	}

	if textPart["text"] != "analyze this" {
		t.Error("Expected text parts untouched")
	}
}

func TestConditionMessages_IgnoresMalformedParts(t *testing.T) {
	conditioner := NewConditioner(85)
	pool := NewPool(1)
	pool.Start()
	defer pool.Close()

	messages := []interface{}{
		map[string]interface{}{"role": "user", "content": "plain string content"},
		map[string]interface{}{
			"role": "user",
			"content": []interface{}{
				map[string]interface{}{"type": "image"}, // no source
				map[string]interface{}{
					"type":   "image",
					"source": map[string]interface{}{"type": "url", "url": "http://example.com/a.jpg"},
				},
			},
		},
	}

	// Must not panic or hang
	conditioner.ConditionMessages(pool, messages, 800)
}

func TestScaleToFit_NeverEnlarges(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))

	resized := scaleToFit(img, 800)
	if resized.Bounds().Dx() != 200 || resized.Bounds().Dy() != 100 {
		t.Errorf("Expected no enlargement, got %v", resized.Bounds())
	}
}

func TestScaleToFit_LongerDimensionBounds(t *testing.T) {
	// Tall image: height is the longer dimension and must fit the ceiling
	img := image.NewRGBA(image.Rect(0, 0, 600, 1600))

	resized := scaleToFit(img, 800)
	if resized.Bounds().Dy() != 800 {
		t.Errorf("Expected height scaled to 800, got %d", resized.Bounds().Dy())
	}
	if resized.Bounds().Dx() != 300 {
		t.Errorf("Expected width scaled proportionally to 300, got %d", resized.Bounds().Dx())
	}
}
