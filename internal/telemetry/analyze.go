package telemetry

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Level string

const (
	LevelCritical Level = "critical"
	LevelWarning  Level = "warning"
	LevelInfo     Level = "info"
)

type Alert struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// threshold describes a two-stage limit. above selects whether readings
// over the limits (true) or under them (false) are out of range.
type threshold struct {
	critical float64
	warning  float64
	above    bool
}

func (t threshold) level(v float64) (Level, bool) {
	if t.above {
		switch {
		case v > t.critical:
			return LevelCritical, true
		case v > t.warning:
			return LevelWarning, true
		}
		return "", false
	}
	switch {
	case v < t.critical:
		return LevelCritical, true
	case v < t.warning:
		return LevelWarning, true
	}
	return "", false
}

var (
	engineTemp       = threshold{critical: 220, warning: 200, above: true}
	oilPressure      = threshold{critical: 10, warning: 20}
	batteryVoltage   = threshold{critical: 11.5, warning: 12.0}
	transmissionTemp = threshold{critical: 250, warning: 220, above: true}
	brakePadWear     = threshold{critical: 90, warning: 75, above: true}
	brakeFluid       = threshold{critical: 25, warning: 50}
	tirePressure     = threshold{critical: 20, warning: 25}
	tireTread        = threshold{critical: 2, warning: 3}
)

// Analyze returns the alerts raised by snap, in a fixed component order.
func Analyze(snap Snapshot, now time.Time) []Alert {
	var alerts []Alert
	add := func(id string, level Level, component, message string) {
		alerts = append(alerts, Alert{ID: id, Level: level, Component: component, Message: message, Timestamp: now})
	}

	if lvl, ok := engineTemp.level(snap.Engine.Temperature); ok {
		add("engine-temp-"+string(lvl), lvl, "Engine", pick(lvl,
			"Engine temperature critically high - pull over immediately",
			"Engine temperature elevated - monitor closely"))
	}
	if lvl, ok := oilPressure.level(snap.Engine.OilPressure); ok {
		add("oil-pressure-"+string(lvl), lvl, "Engine", pick(lvl,
			"Oil pressure critically low - stop engine immediately",
			"Oil pressure low - check oil level"))
	}

	if lvl, ok := batteryVoltage.level(snap.Battery.Voltage); ok {
		add("battery-voltage-"+string(lvl), lvl, "Battery", pick(lvl,
			"Battery voltage critically low - may not start",
			"Battery voltage low - consider charging"))
	}
	if strings.EqualFold(strings.TrimSpace(snap.Battery.Health), "poor") {
		add("battery-health-warning", LevelWarning, "Battery", "Battery health poor - replacement recommended")
	}

	if lvl, ok := transmissionTemp.level(snap.Transmission.Temperature); ok {
		add("transmission-temp-"+string(lvl), lvl, "Transmission", pick(lvl,
			"Transmission overheating - stop driving immediately",
			"Transmission temperature high - reduce load"))
	}
	if strings.EqualFold(strings.TrimSpace(snap.Transmission.FluidLevel), "low") {
		add("transmission-fluid-warning", LevelWarning, "Transmission", "Transmission fluid level low - check for leaks")
	}

	if lvl, ok := brakePadWear.level(snap.Brakes.PadWear); ok {
		add("brake-pad-"+string(lvl), lvl, "Brakes", pick(lvl,
			"Brake pads critically worn - replace immediately",
			"Brake pads worn - replacement needed soon"))
	}
	if lvl, ok := brakeFluid.level(snap.Brakes.FluidLevel); ok {
		add("brake-fluid-"+string(lvl), lvl, "Brakes", pick(lvl,
			"Brake fluid critically low - check system immediately",
			"Brake fluid low - top up recommended"))
	}

	for i, pressure := range snap.Tires.Pressure {
		if lvl, ok := tirePressure.level(pressure); ok {
			add(fmt.Sprintf("tire-pressure-%s-%d", lvl, i), lvl, "Tires", pick(lvl,
				fmt.Sprintf("Tire %d pressure critically low (%s PSI)", i+1, formatReading(pressure)),
				fmt.Sprintf("Tire %d pressure low (%s PSI)", i+1, formatReading(pressure))))
		}
	}
	for i, depth := range snap.Tires.TreadDepth {
		if lvl, ok := tireTread.level(depth); ok {
			add(fmt.Sprintf("tire-tread-%s-%d", lvl, i), lvl, "Tires", pick(lvl,
				fmt.Sprintf("Tire %d tread depth critically low (%smm)", i+1, formatReading(depth)),
				fmt.Sprintf("Tire %d tread depth low (%smm)", i+1, formatReading(depth))))
		}
	}

	return alerts
}

func pick(lvl Level, critical, warning string) string {
	if lvl == LevelCritical {
		return critical
	}
	return warning
}

func formatReading(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// CountByLevel returns how many alerts are critical and how many are warnings.
func CountByLevel(alerts []Alert) (critical, warning int) {
	for _, a := range alerts {
		switch a.Level {
		case LevelCritical:
			critical++
		case LevelWarning:
			warning++
		}
	}
	return critical, warning
}

// FormatSummary renders alerts as plain text lines, critical first.
func FormatSummary(alerts []Alert) string {
	if len(alerts) == 0 {
		return "All systems within normal range."
	}
	critical, warning := CountByLevel(alerts)
	var b strings.Builder
	fmt.Fprintf(&b, "%d critical, %d warning", critical, warning)
	for _, want := range []Level{LevelCritical, LevelWarning, LevelInfo} {
		for _, a := range alerts {
			if a.Level == want {
				fmt.Fprintf(&b, "\n[%s] %s: %s", strings.ToUpper(string(a.Level)), a.Component, a.Message)
			}
		}
	}
	return b.String()
}
