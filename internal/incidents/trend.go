package incidents

import "fmt"

type TrendDirection string

const (
	TrendSteady  TrendDirection = "steady"
	TrendRising  TrendDirection = "rising"
	TrendFalling TrendDirection = "falling"
)

// trendDeadband is the temperature change, in degrees, below which the
// trend is reported as steady.
const trendDeadband = 0.2

// Trend summarizes the last two temperature readings.
type Trend struct {
	Direction TrendDirection
	// Label is the latest temperature for display, or "N/A".
	Label string
}

func (t Trend) Symbol() string {
	switch t.Direction {
	case TrendRising:
		return "^"
	case TrendFalling:
		return "v"
	}
	return "-"
}

func TrendOf(readings []Reading) Trend {
	n := len(readings)
	if n == 0 {
		return Trend{Direction: TrendSteady, Label: "N/A"}
	}
	last := readings[n-1]
	t := Trend{Direction: TrendSteady, Label: fmt.Sprintf("%.1f F", last.Temperature)}
	if n == 1 {
		return t
	}
	switch delta := last.Temperature - readings[n-2].Temperature; {
	case delta > trendDeadband:
		t.Direction = TrendRising
	case delta < -trendDeadband:
		t.Direction = TrendFalling
	}
	return t
}
