// Package telemetry checks vehicle sensor snapshots against fixed safety
// thresholds and raises alerts.
package telemetry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Snapshot struct {
	Engine       EngineReadings       `yaml:"engine" json:"engine"`
	Battery      BatteryReadings      `yaml:"battery" json:"battery"`
	Transmission TransmissionReadings `yaml:"transmission" json:"transmission"`
	Brakes       BrakeReadings        `yaml:"brakes" json:"brakes"`
	Tires        TireReadings         `yaml:"tires" json:"tires"`
}

type EngineReadings struct {
	Temperature float64 `yaml:"temperature" json:"temperature"` // °F
	OilPressure float64 `yaml:"oilPressure" json:"oilPressure"` // PSI
	RPM         float64 `yaml:"rpm" json:"rpm"`
}

type BatteryReadings struct {
	Voltage float64 `yaml:"voltage" json:"voltage"`
	Health  string  `yaml:"health" json:"health"` // good, fair, poor
}

type TransmissionReadings struct {
	Temperature float64 `yaml:"temperature" json:"temperature"` // °F
	FluidLevel  string  `yaml:"fluidLevel" json:"fluidLevel"`   // low, normal, high
}

type BrakeReadings struct {
	PadWear    float64 `yaml:"padWear" json:"padWear"`       // percent worn
	FluidLevel float64 `yaml:"fluidLevel" json:"fluidLevel"` // percent of nominal
}

type TireReadings struct {
	Pressure    []float64 `yaml:"pressure" json:"pressure"`       // PSI
	TreadDepth  []float64 `yaml:"treadDepth" json:"treadDepth"`   // mm
	Temperature []float64 `yaml:"temperature" json:"temperature"` // °F
}

// requiredReadings lists every section.key a snapshot must carry. A missing
// reading would otherwise decode as zero and look like a critical fault.
var requiredReadings = map[string][]string{
	"engine":       {"temperature", "oilPressure", "rpm"},
	"battery":      {"voltage", "health"},
	"transmission": {"temperature", "fluidLevel"},
	"brakes":       {"padWear", "fluidLevel"},
	"tires":        {"pressure", "treadDepth", "temperature"},
}

var sectionOrder = []string{"engine", "battery", "transmission", "brakes", "tires"}

// LoadSnapshot reads a snapshot file. JSON files are accepted as well since
// JSON is valid YAML. Every reading must be present.
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return snap, fmt.Errorf("read telemetry snapshot: %w", err)
	}
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parse telemetry snapshot %s: %w", path, err)
	}
	var present map[string]map[string]any
	if err := yaml.Unmarshal(data, &present); err != nil {
		return snap, fmt.Errorf("parse telemetry snapshot %s: %w", path, err)
	}
	if missing := missingReadings(present); len(missing) > 0 {
		return snap, fmt.Errorf("telemetry snapshot %s is missing readings: %s", path, strings.Join(missing, ", "))
	}
	return snap, nil
}

func missingReadings(present map[string]map[string]any) []string {
	var missing []string
	for _, section := range sectionOrder {
		fields := present[section]
		for _, key := range requiredReadings[section] {
			if v, ok := fields[key]; !ok || v == nil {
				missing = append(missing, section+"."+key)
			}
		}
	}
	return missing
}
