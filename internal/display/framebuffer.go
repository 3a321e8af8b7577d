package display

import (
	"image"
	"image/color"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinydraw"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/freemono"
	"tinygo.org/x/tinyfont/proggy"
)

var (
	white = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	black = color.RGBA{A: 0xff}
)

func ink(on bool) color.RGBA {
	if on {
		return white
	}
	return black
}

func font(size TextSize) tinyfont.Fonter {
	if size == TextLarge {
		return &freemono.Bold9pt7b
	}
	return &proggy.TinySZ8pt7b
}

// Sink receives every presented frame.
type Sink interface {
	Present(frame *image.Gray) error
}

// FrameBuffer is an in-memory monochrome panel. It satisfies
// drivers.Displayer so tinyfont and tinydraw can draw into it.
type FrameBuffer struct {
	w, h   int16
	pix    []bool
	invert bool
	sink   Sink
	frames int
}

var (
	_ Display           = (*FrameBuffer)(nil)
	_ drivers.Displayer = (*FrameBuffer)(nil)
)

// NewFrameBuffer returns a blank Width×Height panel. sink may be nil.
func NewFrameBuffer(sink Sink) *FrameBuffer {
	return &FrameBuffer{w: Width, h: Height, pix: make([]bool, Width*Height), sink: sink}
}

// Init implements hal.Initializer.
func (f *FrameBuffer) Init() error {
	f.Clear()
	f.invert = false
	return nil
}

func (f *FrameBuffer) Size() (int16, int16) { return f.w, f.h }

// SetPixel lights any non-black colour. Out-of-range pixels are clipped.
func (f *FrameBuffer) SetPixel(x, y int16, c color.RGBA) {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return
	}
	f.pix[int(y)*int(f.w)+int(x)] = c.R|c.G|c.B != 0
}

// Pixel returns the drawn value of (x, y), ignoring inversion.
func (f *FrameBuffer) Pixel(x, y int16) bool {
	if x < 0 || y < 0 || x >= f.w || y >= f.h {
		return false
	}
	return f.pix[int(y)*int(f.w)+int(x)]
}

// Display implements drivers.Displayer.
func (f *FrameBuffer) Display() error { return f.Present() }

func (f *FrameBuffer) Clear() {
	clear(f.pix)
}

func (f *FrameBuffer) Text(x, y int16, size TextSize, s string, on bool) {
	tinyfont.WriteLine(f, font(size), x, y, s, ink(on))
}

func (f *FrameBuffer) TextWidth(size TextSize, s string) int16 {
	_, outbox := tinyfont.LineWidth(font(size), s)
	return int16(outbox)
}

func (f *FrameBuffer) Rect(x, y, w, h int16) {
	tinydraw.Rectangle(f, x, y, w, h, white)
}

func (f *FrameBuffer) FillRect(x, y, w, h int16, on bool) {
	tinydraw.FilledRectangle(f, x, y, w, h, ink(on))
}

func (f *FrameBuffer) Line(x0, y0, x1, y1 int16) {
	tinydraw.Line(f, x0, y0, x1, y1, white)
}

func (f *FrameBuffer) Circle(x, y, r int16) {
	tinydraw.Circle(f, x, y, r, white)
}

// Bitmap draws bm opaquely: clear bits erase what is underneath.
func (f *FrameBuffer) Bitmap(x, y int16, bm *Bitmap) {
	for row := 0; row < 16; row++ {
		for col := 0; col < 16; col++ {
			f.SetPixel(x+int16(col), y+int16(row), ink(bm.At(col, row)))
		}
	}
}

func (f *FrameBuffer) Invert(on bool) { f.invert = on }

// Inverted reports the current inversion state.
func (f *FrameBuffer) Inverted() bool { return f.invert }

// Image renders the panel as presented, inversion applied.
func (f *FrameBuffer) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, int(f.w), int(f.h)))
	for i, on := range f.pix {
		if on != f.invert {
			img.Pix[i] = 0xff
		}
	}
	return img
}

// Present pushes the frame to the sink.
func (f *FrameBuffer) Present() error {
	f.frames++
	if f.sink == nil {
		return nil
	}
	return f.sink.Present(f.Image())
}

// Frames returns the number of presented frames.
func (f *FrameBuffer) Frames() int { return f.frames }
