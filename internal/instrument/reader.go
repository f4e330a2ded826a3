package instrument

import (
	"fmt"
	"math"
	"time"

	"rectifier-sim/internal/modbus"
)

// Reading is what a remote client sees of the latest run.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`

	Mode       string `json:"mode"`
	RunCount   uint32 `json:"run_count"`
	Status     uint16 `json:"status"`
	StatusText string `json:"status_text"`
	Warnings   uint16 `json:"warnings"`

	InputPower       float64  `json:"input_power_avg_w"`
	LoadPower        float64  `json:"load_power_avg_w"`
	Efficiency       *float64 `json:"efficiency"`
	DCVoltage        float64  `json:"dc_voltage_v"`
	RipplePeakToPeak float64  `json:"ripple_peak_to_peak_v"`
	DiodeCurrentRMS  float64  `json:"diode_current_rms_a"`

	SecondaryRMSVoltage float64 `json:"secondary_rms_voltage_v"`
	WindingResistance   float64 `json:"secondary_winding_resistance_ohm"`
	SeriesResistance    float64 `json:"series_resistance_ohm"`
}

type Reader struct {
	client *modbus.Client
}

func NewReader(client *modbus.Client) *Reader {
	return &Reader{client: client}
}

// ReadAll fetches the whole register bank in one request.
func (r *Reader) ReadAll() (*Reading, error) {
	regs, err := r.client.ReadInputRegisters(0, RegisterCount)
	if err != nil {
		// Try to reconnect, then retry once
		if reconnErr := r.client.Reconnect(); reconnErr != nil {
			return nil, fmt.Errorf("failed to read instrument registers: %w", err)
		}
		regs, err = r.client.ReadInputRegisters(0, RegisterCount)
		if err != nil {
			return nil, fmt.Errorf("failed to read instrument registers after reconnect: %w", err)
		}
	}

	f := func(addr int) float64 {
		return float64(modbus.DecodeFloat32(regs[addr : addr+2]))
	}

	data := &Reading{
		Timestamp:           time.Now(),
		Mode:                GetModeString(regs[RegMode]),
		RunCount:            modbus.DecodeUint32(regs[RegRunCount : RegRunCount+2]),
		Status:              regs[RegStatus],
		StatusText:          GetStatusString(regs[RegStatus]),
		Warnings:            regs[RegWarnings],
		InputPower:          f(RegInputPower),
		LoadPower:           f(RegLoadPower),
		DCVoltage:           f(RegDCVoltage),
		RipplePeakToPeak:    f(RegRipple),
		DiodeCurrentRMS:     f(RegDiodeCurrentRMS),
		SecondaryRMSVoltage: f(RegSecondaryRMSVoltage),
		WindingResistance:   f(RegWindingResistance),
		SeriesResistance:    f(RegSeriesResistance),
	}
	if eff := f(RegEfficiency); !math.IsNaN(eff) {
		data.Efficiency = &eff
	}

	if data.Status == StatusNoData {
		return data, ErrNoData
	}
	return data, nil
}

// RunCount reads the number of runs the instrument has published.
func (r *Reader) RunCount() (uint32, error) {
	return r.client.ReadUint32(RegRunCount)
}

// DCVoltage reads the DC level of the latest run.
func (r *Reader) DCVoltage() (float64, error) {
	v, err := r.client.ReadFloat32(RegDCVoltage)
	return float64(v), err
}

func (r *Reader) TestConnection() error {
	if err := r.client.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	if _, err := r.client.ReadUint16(RegStatus); err != nil {
		return fmt.Errorf("failed to read from instrument: %w", err)
	}
	if _, err := r.RunCount(); err != nil {
		return fmt.Errorf("failed to read run count: %w", err)
	}

	return nil
}
