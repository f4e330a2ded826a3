package instrument

import (
	"errors"
	"math"
	"testing"
	"time"

	"rectifier-sim/internal/modbus"
	"rectifier-sim/internal/rectifier"

	mb "github.com/simonvetter/modbus"
)

func bridgeResult(t *testing.T) *rectifier.Result {
	t.Helper()
	p := rectifier.DefaultParameters()
	p.Mode = rectifier.Bridge
	p.Cycles = 4
	p.SamplesPerCycle = 500
	res, err := rectifier.Run(p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestHandleInputRegisters(t *testing.T) {
	in := New(1)
	res := bridgeResult(t)
	in.Update(res, 7)

	regs, err := in.HandleInputRegisters(&mb.InputRegistersRequest{UnitId: 1, Addr: 0, Quantity: RegisterCount})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got := modbus.DecodeFloat32(regs[RegDCVoltage:]); got != float32(res.Metrics.DCVoltage) {
		t.Errorf("dc voltage register = %g, want %g", got, res.Metrics.DCVoltage)
	}
	if regs[RegMode] != ModeBridge {
		t.Errorf("mode register = %d", regs[RegMode])
	}
	if got := modbus.DecodeUint32(regs[RegRunCount:]); got != 7 {
		t.Errorf("run count = %d, want 7", got)
	}
	if regs[RegStatus] != StatusReady {
		t.Errorf("status = %#x", regs[RegStatus])
	}

	partial, err := in.HandleInputRegisters(&mb.InputRegistersRequest{UnitId: 1, Addr: RegRipple, Quantity: 2})
	if err != nil {
		t.Fatalf("partial read: %v", err)
	}
	if got := modbus.DecodeFloat32(partial); got != float32(res.Metrics.RipplePeakToPeak) {
		t.Errorf("ripple = %g", got)
	}
}

func TestHandleInputRegistersErrors(t *testing.T) {
	in := New(1)

	if _, err := in.HandleInputRegisters(&mb.InputRegistersRequest{UnitId: 1, Addr: RegisterCount - 1, Quantity: 2}); !errors.Is(err, mb.ErrIllegalDataAddress) {
		t.Errorf("out of range read: %v", err)
	}
	if _, err := in.HandleInputRegisters(&mb.InputRegistersRequest{UnitId: 9, Addr: 0, Quantity: 1}); err == nil {
		t.Error("expected an error for another unit id")
	}
	if _, err := in.HandleHoldingRegisters(&mb.HoldingRegistersRequest{UnitId: 1, Addr: 0, Quantity: 1}); !errors.Is(err, mb.ErrIllegalFunction) {
		t.Errorf("holding registers: %v", err)
	}
}

func TestUndeterminedEfficiencyRegister(t *testing.T) {
	p := rectifier.DefaultParameters()
	p.WindingResistancePer100Turns = 0
	p.DiodeDynamicResistance = 0
	p.Cycles = 4
	p.SamplesPerCycle = 100
	res, err := rectifier.Run(p)
	if err != nil {
		t.Fatal(err)
	}

	in := New(1)
	in.Update(res, 1)
	regs, _ := in.HandleInputRegisters(&mb.InputRegistersRequest{UnitId: 1, Addr: RegEfficiency, Quantity: 2})
	if got := modbus.DecodeFloat32(regs); !math.IsNaN(float64(got)) {
		t.Errorf("efficiency register = %g, want NaN", got)
	}
}

func TestReaderOverTCP(t *testing.T) {
	const url = "tcp://localhost:15502"

	in := New(1)
	server, err := modbus.NewServer(modbus.ServerConfig{URL: url, Timeout: 5 * time.Second, MaxClients: 2, Handler: in})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Skipf("cannot listen on %s: %v", url, err)
	}
	defer server.Stop()

	client := modbus.NewClient(url, 1, 5*time.Second)
	reader := NewReader(client)
	if err := reader.TestConnection(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if _, err := reader.ReadAll(); !errors.Is(err, ErrNoData) {
		t.Errorf("empty instrument: %v", err)
	}

	res := bridgeResult(t)
	in.Update(res, 3)

	data, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if data.Mode != "bridge" || data.RunCount != 3 {
		t.Errorf("reading = %+v", data)
	}
	if math.Abs(data.RipplePeakToPeak-res.Metrics.RipplePeakToPeak) > 1e-3 {
		t.Errorf("ripple = %g, want %g", data.RipplePeakToPeak, res.Metrics.RipplePeakToPeak)
	}
	if data.Efficiency == nil || math.Abs(*data.Efficiency-res.Metrics.Efficiency) > 1e-6 {
		t.Errorf("efficiency = %v, want %g", data.Efficiency, res.Metrics.Efficiency)
	}
}

func TestReaderReconnectsAndReadsSingleValues(t *testing.T) {
	const url = "tcp://localhost:15503"

	in := New(1)
	server, err := modbus.NewServer(modbus.ServerConfig{URL: url, Timeout: 5 * time.Second, MaxClients: 2, Handler: in})
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	if err := server.Start(); err != nil {
		t.Skipf("cannot listen on %s: %v", url, err)
	}
	defer server.Stop()

	res := bridgeResult(t)
	in.Update(res, 5)

	client := modbus.NewClient(url, 1, 5*time.Second)
	reader := NewReader(client)
	if err := reader.TestConnection(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	runs, err := reader.RunCount()
	if err != nil || runs != 5 {
		t.Errorf("RunCount = %d, %v; want 5", runs, err)
	}
	vdc, err := reader.DCVoltage()
	if err != nil || math.Abs(vdc-res.Metrics.DCVoltage) > 1e-3*res.Metrics.DCVoltage {
		t.Errorf("DCVoltage = %g, %v; want %g", vdc, err, res.Metrics.DCVoltage)
	}

	// A dropped connection is re-established by ReadAll.
	client.Close()
	data, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("read after disconnect: %v", err)
	}
	if data.RunCount != 5 || !client.IsConnected() {
		t.Errorf("reading after reconnect = %+v, connected=%v", data, client.IsConnected())
	}
}
