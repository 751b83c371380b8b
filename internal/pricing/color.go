package pricing

import (
	"fmt"
	"math"
	"strconv"
)

// Display color parameters shared by calendar events and summary dots.
const (
	colorSaturation = 70
	colorLightness  = 50
)

// HSL is a color in hue/saturation/lightness form. Hue may be negative.
type HSL struct {
	Hue        int `json:"hue"`
	Saturation int `json:"saturation"`
	Lightness  int `json:"lightness"`
}

// ColorForPrice returns the display color for a price in cents. Equal prices
// always get the same color; different prices may collide.
func ColorForPrice(price int64) HSL {
	return HSL{
		Hue:        priceHue(strconv.FormatInt(price, 10)),
		Saturation: colorSaturation,
		Lightness:  colorLightness,
	}
}

// priceHue hashes s with hash = c + ((hash << 5) - hash). The shift wraps at
// 32 bits while the subtraction does not, which is what the browser client
// computed; keeping that exactly keeps existing colors stable.
func priceHue(s string) int {
	var hash int64
	for i := 0; i < len(s); i++ {
		shifted := int64(int32(hash) << 5)
		hash = int64(s[i]) + (shifted - hash)
	}
	return int(hash % 360)
}

// String renders the color as a CSS hsl() value.
func (c HSL) String() string {
	return fmt.Sprintf("hsl(%d, %d%%, %d%%)", c.Hue, c.Saturation, c.Lightness)
}

// Hex renders the color as #rrggbb. Negative hues are wrapped into [0, 360).
func (c HSL) Hex() string {
	h := float64(((c.Hue % 360) + 360) % 360)
	s := float64(c.Saturation) / 100
	l := float64(c.Lightness) / 100

	chroma := (1 - math.Abs(2*l-1)) * s
	x := chroma * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - chroma/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = chroma, x, 0
	case h < 120:
		r, g, b = x, chroma, 0
	case h < 180:
		r, g, b = 0, chroma, x
	case h < 240:
		r, g, b = 0, x, chroma
	case h < 300:
		r, g, b = x, 0, chroma
	default:
		r, g, b = chroma, 0, x
	}

	toByte := func(v float64) int { return int(math.Round((v + m) * 255)) }
	return fmt.Sprintf("#%02x%02x%02x", toByte(r), toByte(g), toByte(b))
}
