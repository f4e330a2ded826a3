package rectifier

import (
	"fmt"
	"math"
	"strings"
)

// Mode selects the rectifier topology.
type Mode int

const (
	HalfWave Mode = iota
	Bridge
)

func (m Mode) String() string {
	switch m {
	case HalfWave:
		return "half-wave"
	case Bridge:
		return "bridge"
	default:
		return "unknown"
	}
}

// ParseMode accepts the usual spellings of both topologies.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "half-wave", "halfwave", "half_wave", "half":
		return HalfWave, nil
	case "bridge", "full-wave", "fullwave", "full_wave":
		return Bridge, nil
	default:
		return HalfWave, fmt.Errorf("unknown rectifier mode %q", s)
	}
}

// MarshalText encodes the mode by name.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.valid() {
		return nil, fmt.Errorf("unknown rectifier mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts any spelling ParseMode does.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Mode) valid() bool {
	return m == HalfWave || m == Bridge
}

// policy holds everything that differs between the two topologies. It is
// picked once per run so the integration loop never branches on the mode.
type policy struct {
	diodesInPath int
	// rectify maps the signed secondary voltage to the voltage presented
	// to the filter.
	rectify func(v float64) float64
	// secondaryCurrent maps the diode current back onto the winding.
	secondaryCurrent func(v, i float64) float64
}

func (m Mode) policy() policy {
	if m == Bridge {
		return policy{
			diodesInPath: 2,
			rectify:      math.Abs,
			secondaryCurrent: func(v, i float64) float64 {
				return sign(v) * i
			},
		}
	}
	return policy{
		diodesInPath: 1,
		rectify: func(v float64) float64 {
			return math.Max(v, 0)
		},
		secondaryCurrent: func(v, i float64) float64 {
			if v > 0 {
				return i
			}
			return 0
		},
	}
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
