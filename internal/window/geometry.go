package window

// Point is a screen position in device-independent pixels.
type Point struct {
	X float32
	Y float32
}

// Size is a window size in device-independent pixels.
type Size struct {
	Width  float32
	Height float32
}

// Rect is a positioned size.
type Rect struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// Placement computes where the companion goes. A windowed primary gets the
// companion tucked into its bottom-right corner; a full-screen primary gets
// it centered on the active display.
func Placement(primary, display Rect, fullScreen bool, size Size, margin float32) Point {
	if fullScreen {
		return Point{
			X: display.X + (display.Width-size.Width)/2,
			Y: display.Y + (display.Height-size.Height)/2,
		}
	}

	x := primary.X + primary.Width - size.Width - margin
	y := primary.Y + primary.Height - size.Height - margin
	if x < primary.X {
		x = primary.X
	}
	if y < primary.Y {
		y = primary.Y
	}
	return Point{X: x, Y: y}
}
