// Package tone is the fixed palette status values are rendered with. Every
// status enum maps onto it through an exhaustive switch, so an unmapped
// status shows up as Neutral rather than an arbitrary lookup miss.
package tone

type Tone string

const (
	Neutral Tone = "neutral"
	Info    Tone = "info"
	Success Tone = "success"
	Warning Tone = "warning"
	Danger  Tone = "danger"
)

// RGB is the fill color used for table cells in exported reports.
func (t Tone) RGB() (r, g, b int) {
	switch t {
	case Info:
		return 207, 226, 255
	case Success:
		return 209, 231, 221
	case Warning:
		return 255, 243, 205
	case Danger:
		return 248, 215, 218
	default:
		return 233, 236, 239
	}
}
