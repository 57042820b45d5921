package directive

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"

	"flightsup/internal/sched"
)

// Mission is a scripted list of directives, read from YAML:
//
//	name: square
//	directives:
//	  - {command: takeoff, altitude: 1}
//	  - {command: move, direction: forward, duration: 2}
//	  - {command: land}
//
// Directives without a priority take the mission priority, medium unless
// set, so that they run in file order.
type Mission struct {
	Name       string      `yaml:"name"`
	Priority   string      `yaml:"priority"`
	Directives []Directive `yaml:"directives"`
}

func (m Mission) withPriority(d Directive) Directive {
	if d.Priority == "" {
		d.Priority = m.Priority
		if d.Priority == "" {
			d.Priority = sched.Medium.String()
		}
	}
	return d
}

func LoadMission(path string) (Mission, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Mission{}, err
	}
	return ParseMission(data)
}

// ParseMission decodes and validates every directive.
func ParseMission(data []byte) (Mission, error) {
	var m Mission
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Mission{}, fmt.Errorf("parse mission: %w", err)
	}
	if len(m.Directives) == 0 {
		return Mission{}, fmt.Errorf("%w: mission has no directives", ErrInvalidDirective)
	}
	if m.Priority != "" {
		if _, err := sched.ParsePriority(m.Priority); err != nil {
			return Mission{}, fmt.Errorf("%w: mission %v", ErrInvalidDirective, err)
		}
	}
	for i, d := range m.Directives {
		if _, err := m.withPriority(d).Validate(); err != nil {
			return Mission{}, fmt.Errorf("directive %d: %w", i+1, err)
		}
	}
	return m, nil
}

// Submit applies every directive in order.
func (m Mission) Submit(t Target) error {
	for i, d := range m.Directives {
		if err := Apply(m.withPriority(d), t); err != nil {
			return fmt.Errorf("directive %d (%s): %w", i+1, d.Command, err)
		}
	}
	return nil
}
