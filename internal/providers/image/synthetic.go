package image

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	goimage "image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"
)

// synthetic renders a placeholder image seeded by model and prompt, so the
// same prompt always produces the same bytes.
func (c *Client) synthetic(prompt string) (string, error) {
	width, height := parseSize(c.size)
	seed := deterministicSeed(c.model, prompt)
	data, err := renderSyntheticImage(width, height, seed)
	if err != nil {
		return "", fmt.Errorf("image api: render placeholder: %w", err)
	}
	c.logger.Debug().
		Str("model", c.model).
		Str("seed", seed).
		Msg("image api: generated synthetic image")
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data), nil
}

func renderSyntheticImage(width, height int, seed string) ([]byte, error) {
	img := goimage.NewRGBA(goimage.Rect(0, 0, width, height))
	base := colorFromSeed(seed, 0)
	accent := colorFromSeed(seed, 1)
	draw.Draw(img, img.Bounds(), &goimage.Uniform{base}, goimage.Point{}, draw.Src)

	stripe := max(8, height/12)
	for y := 0; y < height; y += stripe * 2 {
		band := goimage.Rect(0, y, width, min(height, y+stripe))
		draw.Draw(img, band, &goimage.Uniform{accent}, goimage.Point{}, draw.Over)
	}

	diagonal := colorFromSeed(seed, 2)
	for x := 0; x < max(width, height); x += max(16, width/32) {
		for y := 0; y < height && x+y < width; y++ {
			img.Set(x+y, y, diagonal)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func colorFromSeed(seed string, shift int) color.RGBA {
	if len(seed) < 6 {
		seed = "000000"
	}
	doubled := seed + seed
	start := (shift * 6) % len(seed)
	part := doubled[start : start+6]
	return color.RGBA{R: hexByte(part[0:2]), G: hexByte(part[2:4]), B: hexByte(part[4:6]), A: 255}
}

func hexByte(s string) uint8 {
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0
	}
	return uint8(v)
}

func deterministicSeed(parts ...string) string {
	hasher := sha256.New()
	for _, part := range parts {
		hasher.Write([]byte(part))
		hasher.Write([]byte{'|'})
	}
	return hex.EncodeToString(hasher.Sum(nil))[:16]
}

// parseSize reads "WIDTHxHEIGHT" (or "W*H"); anything else is 1024 square.
func parseSize(size string) (int, int) {
	normalized := strings.NewReplacer("*", "x", "X", "x").Replace(strings.TrimSpace(size))
	parts := strings.Split(normalized, "x")
	if len(parts) == 2 {
		w, errW := strconv.Atoi(strings.TrimSpace(parts[0]))
		h, errH := strconv.Atoi(strings.TrimSpace(parts[1]))
		if errW == nil && errH == nil && w > 0 && h > 0 && w <= 4096 && h <= 4096 {
			return w, h
		}
	}
	return 1024, 1024
}
