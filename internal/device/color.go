package device

import "fmt"

type Color struct {
	R, G, B uint8
}

func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Scale returns the color dimmed to factor in [0, 1].
func (c Color) Scale(factor float64) Color {
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	return Color{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
	}
}

var (
	Off     = Color{}
	White   = Color{R: 255, G: 255, B: 255}
	Red     = Color{R: 255}
	Green   = Color{G: 255}
	Blue    = Color{B: 255}
	Yellow  = Color{R: 255, G: 200}
	Orange  = Color{R: 255, G: 90}
	Purple  = Color{R: 140, B: 255}
	Pink    = Color{R: 255, G: 60, B: 160}
	Cyan    = Color{G: 220, B: 255}
	Magenta = Color{R: 255, B: 255}
	Lime    = Color{R: 150, G: 255}
)

// Rainbow is a looping animation palette.
var Rainbow = []Color{Red, Orange, Yellow, Green, Cyan, Blue, Purple, Magenta}
