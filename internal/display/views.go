package display

import (
	"fmt"
	"math"
	"time"

	"github.com/banshee-data/powerguard/internal/state"
)

// View is one of the mutually exclusive screens.
type View uint8

const (
	ViewBoot View = iota
	ViewLoading
	ViewAlert
	ViewRun
)

func (v View) String() string {
	switch v {
	case ViewBoot:
		return "boot"
	case ViewLoading:
		return "loading"
	case ViewAlert:
		return "alert"
	default:
		return "run"
	}
}

// SelectView picks the screen for phase. BOOT is shown only while bootFrame
// is under budget; once the budget is spent a device still in BOOT shows
// the RUN screen with whatever metrics the snapshot holds.
func SelectView(phase state.Phase, bootFrame, budget int) View {
	switch {
	case phase == state.PhaseBoot && bootFrame < budget:
		return ViewBoot
	case phase == state.PhaseLoading:
		return ViewLoading
	case phase == state.PhaseAlert:
		return ViewAlert
	default:
		return ViewRun
	}
}

// Layout constants shared by the bars.
const (
	barX = 8
	barW = 112

	// BarInterior is the fillable width inside a bar's outline.
	BarInterior = barW - 2

	// BlinkPeriod is the time between alert screen inversions.
	BlinkPeriod = 160 * time.Millisecond

	spinnerStep = 125 * time.Millisecond
	stripeStep  = 40 * time.Millisecond
	stripeGap   = 16
)

// BarFill returns the filled width for a value in [0,1]; out-of-range
// values are clamped.
func BarFill(interior int16, v float64) int16 {
	return int16(math.Round(float64(interior) * clamp01(v)))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// Renderer draws one frame per call. It keeps only the BOOT frame counter.
type Renderer struct {
	d          Display
	bootBudget int
	bootFrame  int
}

// NewRenderer draws onto d and shows the boot screen for at most
// bootBudget frames.
func NewRenderer(d Display, bootBudget int) *Renderer {
	return &Renderer{d: d, bootBudget: bootBudget}
}

// BootFrame returns the number of BOOT frames drawn so far.
func (r *Renderer) BootFrame() int { return r.bootFrame }

// Render draws and presents the view for snap at wall time now.
func (r *Renderer) Render(snap state.Snapshot, now time.Time) (View, error) {
	view := SelectView(snap.Phase, r.bootFrame, r.bootBudget)

	r.d.Clear()
	switch view {
	case ViewBoot:
		r.drawBoot()
		r.bootFrame++
	case ViewLoading:
		r.drawLoading(snap, now)
	case ViewAlert:
		// The inversion must be reset after presenting so the next frame
		// starts from the normal polarity.
		r.d.Invert(blinkOn(now))
		r.drawAlert(snap, now)
		err := r.d.Present()
		r.d.Invert(false)
		return view, err
	default:
		r.drawRun(snap)
	}
	return view, r.d.Present()
}

func blinkOn(now time.Time) bool {
	return (now.UnixMilli()/BlinkPeriod.Milliseconds())%2 == 1
}

func (r *Renderer) centered(y int16, size TextSize, s string) {
	w, _ := r.d.Size()
	r.d.Text((w-r.d.TextWidth(size, s))/2, y, size, s, true)
}

func (r *Renderer) bar(y, h int16, v float64) int16 {
	r.d.Rect(barX, y, barW, h)
	fill := BarFill(BarInterior, v)
	if fill > 0 {
		r.d.FillRect(barX+1, y+1, fill, h-2, true)
	}
	return fill
}

func metrics(snap state.Snapshot) string {
	return fmt.Sprintf("%.1fV %.3fA %.1fW", snap.Voltage, snap.Current, snap.Power)
}

// BootTitle slides in from the left edge by BootStep pixels per frame.
const (
	BootTitle = "POWERGUARD"
	BootStep  = 8
)

// BootSpinner is cycled one glyph per BOOT frame.
var BootSpinner = [4]string{"|", "/", "-", "\\"}

// BootTitleX is the title position on a given BOOT frame: it starts just
// off-screen and stops at the centred resting x.
func BootTitleX(frame int, titleWidth, screenWidth int16) int16 {
	rest := (screenWidth - titleWidth) / 2
	x := int(-titleWidth) + frame*BootStep
	if x >= int(rest) {
		return rest
	}
	return int16(x)
}

func (r *Renderer) drawBoot() {
	w, _ := r.d.Size()
	x := BootTitleX(r.bootFrame, r.d.TextWidth(TextLarge, BootTitle), w)
	r.d.Text(x, 22, TextLarge, BootTitle, true)
	r.d.Circle(w/2, 36, 7)
	r.centered(40, TextSmall, BootSpinner[r.bootFrame%len(BootSpinner)])
	r.centered(58, TextSmall, "anti-theft monitor")
}

var spinnerArms = [4][2]int16{{0, -5}, {4, -4}, {5, 0}, {4, 4}}

func (r *Renderer) drawLoading(snap state.Snapshot, now time.Time) {
	r.d.Text(barX, 14, TextLarge, "LOADING", true)

	phase := (now.UnixMilli() / spinnerStep.Milliseconds()) % 4
	arm := spinnerArms[phase]
	cx, cy := int16(barX+barW-6), int16(9)
	r.d.Line(cx-arm[0], cy-arm[1], cx+arm[0], cy+arm[1])

	r.bar(24, 10, snap.Progress)
	r.d.Text(barX, 46, TextSmall, fmt.Sprintf("window %3.0f%%", 100*clamp01(snap.Progress)), true)
	r.d.Text(barX, 58, TextSmall, metrics(snap), true)
}

func (r *Renderer) drawAlert(snap state.Snapshot, now time.Time) {
	w, h := r.d.Size()

	// diagonal hazard stripes scrolling right
	offset := int16((now.UnixMilli() / stripeStep.Milliseconds()) % stripeGap)
	for x := -h + offset; x < w; x += stripeGap {
		r.d.Line(x, h-1, x+h-1, 0)
	}

	r.d.Bitmap((w-16)/2, 1, &WarningIcon)

	r.d.FillRect(6, 19, w-12, h-22, false)
	r.d.Rect(6, 19, w-12, h-22)
	r.centered(33, TextLarge, "THEFT!")
	r.centered(45, TextSmall, fmt.Sprintf("P(theft) %.2f", snap.TheftProbability))
	r.centered(56, TextSmall, fmt.Sprintf("Power %.1fW", snap.Power))
}

func (r *Renderer) drawRun(snap state.Snapshot) {
	r.d.Text(2, 10, TextSmall, fmt.Sprintf("V %7.1f", snap.Voltage), true)
	r.d.Text(2, 21, TextSmall, fmt.Sprintf("I %7.3f", snap.Current), true)
	r.d.Text(2, 32, TextSmall, fmt.Sprintf("P %7.1fW", snap.Power), true)

	relay := "RELAY OFF"
	if snap.RelayOn {
		relay = "RELAY ON"
	}
	r.d.Text(72, 10, TextSmall, relay, true)
	r.d.Text(72, 32, TextSmall, fmt.Sprintf("THEFT %.2f", snap.TheftProbability), true)

	r.bar(44, 10, snap.TheftProbability)
}
