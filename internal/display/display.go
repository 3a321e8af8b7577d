// Package display renders the device status screen. Views draw through the
// small Display interface; FrameBuffer implements it for a 128x64
// monochrome panel on top of tinyfont and tinydraw.
package display

// Screen geometry.
const (
	Width  = 128
	Height = 64
)

// TextSize selects a font.
type TextSize uint8

const (
	TextSmall TextSize = iota
	TextLarge
)

// Display is the set of drawing primitives the views need. Coordinates are
// in pixels from the top left; Text draws with y as the baseline.
type Display interface {
	Size() (w, h int16)
	Clear()
	Text(x, y int16, size TextSize, s string, on bool)
	TextWidth(size TextSize, s string) int16
	Rect(x, y, w, h int16)
	FillRect(x, y, w, h int16, on bool)
	Line(x0, y0, x1, y1 int16)
	Circle(x, y, r int16)
	Bitmap(x, y int16, bm *Bitmap)
	// Invert flips every presented pixel until called again with false.
	Invert(on bool)
	Present() error
}

// Bitmap is a 16x16 one-bit image; bit 15 of each row is the leftmost pixel.
type Bitmap [16]uint16

// At reports whether pixel (x, y) is set.
func (b *Bitmap) At(x, y int) bool {
	if x < 0 || x >= 16 || y < 0 || y >= 16 {
		return false
	}
	return b[y]&(1<<(15-x)) != 0
}

// WarningIcon is the hazard triangle shown on the alert screen.
var WarningIcon = Bitmap{
	0b0000000110000000,
	0b0000001111000000,
	0b0000001001000000,
	0b0000011001100000,
	0b0000010110100000,
	0b0000110110110000,
	0b0000100110010000,
	0b0001100110011000,
	0b0001000110001000,
	0b0011000110001100,
	0b0010000000000100,
	0b0110000110000110,
	0b0100000110000010,
	0b1100000000000011,
	0b1111111111111111,
	0b0000000000000000,
}
