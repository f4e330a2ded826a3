// Package instrument presents the latest simulation run as a Modbus bench
// instrument and reads such an instrument back.
package instrument

import (
	"errors"
	"sync"

	"rectifier-sim/internal/modbus"
	"rectifier-sim/internal/rectifier"

	mb "github.com/simonvetter/modbus"
)

var ErrNoData = errors.New("instrument: no run published yet")

// Instrument is a read-only input register bank. It implements
// mb.RequestHandler.
type Instrument struct {
	mu     sync.RWMutex
	unitID uint8
	regs   [RegisterCount]uint16
}

func New(unitID uint8) *Instrument {
	return &Instrument{unitID: unitID}
}

// Update loads the registers from a run.
func (in *Instrument) Update(res *rectifier.Result, runCount uint32) {
	var regs [RegisterCount]uint16

	putFloat := func(addr int, v float64) {
		copy(regs[addr:addr+2], modbus.EncodeFloat32(float32(v)))
	}

	m := res.Metrics
	putFloat(RegInputPower, m.InputPower)
	putFloat(RegLoadPower, m.LoadPower)
	putFloat(RegEfficiency, m.Efficiency)
	putFloat(RegDCVoltage, m.DCVoltage)
	putFloat(RegRipple, m.RipplePeakToPeak)
	putFloat(RegDiodeCurrentRMS, m.DiodeCurrentRMS)
	putFloat(RegSecondaryRMSVoltage, res.Derived.SecondaryRMSVoltage)
	putFloat(RegWindingResistance, res.Derived.SecondaryWindingResistance)
	putFloat(RegSeriesResistance, res.Derived.SeriesResistance)

	regs[RegMode] = ModeHalfWave
	if res.Parameters.Mode == rectifier.Bridge {
		regs[RegMode] = ModeBridge
	}
	copy(regs[RegRunCount:RegRunCount+2], modbus.EncodeUint32(runCount))

	regs[RegStatus] = StatusReady
	if !res.Derived.Stable() {
		regs[RegStatus] = StatusUnstable
	}
	regs[RegWarnings] = uint16(len(res.Warnings))

	in.mu.Lock()
	in.regs = regs
	in.mu.Unlock()
}

func (in *Instrument) HandleInputRegisters(req *mb.InputRegistersRequest) ([]uint16, error) {
	if req.UnitId != in.unitID {
		return nil, mb.ErrIllegalFunction
	}
	start, end := int(req.Addr), int(req.Addr)+int(req.Quantity)
	if end > RegisterCount {
		return nil, mb.ErrIllegalDataAddress
	}

	in.mu.RLock()
	defer in.mu.RUnlock()
	out := make([]uint16, end-start)
	copy(out, in.regs[start:end])
	return out, nil
}

func (in *Instrument) HandleHoldingRegisters(req *mb.HoldingRegistersRequest) ([]uint16, error) {
	return nil, mb.ErrIllegalFunction
}

func (in *Instrument) HandleCoils(req *mb.CoilsRequest) ([]bool, error) {
	return nil, mb.ErrIllegalFunction
}

func (in *Instrument) HandleDiscreteInputs(req *mb.DiscreteInputsRequest) ([]bool, error) {
	return nil, mb.ErrIllegalFunction
}
