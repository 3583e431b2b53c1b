package manager

import "fmt"

// PresetWeights returns combination weight overrides for a named horizon.
// Short horizons tilt toward momentum and money flow, long horizons toward
// value and growth; the medium preset keeps the balanced defaults. Unknown
// names fall back to medium.
func PresetWeights(horizon string) map[string]float64 {
	switch horizon {
	case "short":
		return map[string]float64{
			"composite_value":    0.5,
			"composite_growth":   0.75,
			"composite_quality":  0.75,
			"composite_momentum": 1.5,
			"composite_flow":     1.5,
		}
	case "long":
		return map[string]float64{
			"composite_value":    1.5,
			"composite_growth":   1.25,
			"composite_quality":  1.0,
			"composite_momentum": 0.5,
			"composite_flow":     0.5,
		}
	default:
		return map[string]float64{
			"composite_value":    1.0,
			"composite_growth":   1.0,
			"composite_quality":  1.0,
			"composite_momentum": 1.0,
			"composite_flow":     1.0,
		}
	}
}

// ApplyWeights sets every weight in the map, skipping names that are not
// registered so presets stay usable with a trimmed factor library.
func (m *Manager) ApplyWeights(weights map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, w := range weights {
		if _, exists := m.factors[name]; !exists {
			continue
		}
		if w < 0 {
			return fmt.Errorf("negative weight for %s", name)
		}
		m.weights[name] = w
	}
	return nil
}
