package instrument

// Input register map of the virtual bench instrument. Floats are IEEE-754
// single precision over two registers, high word first.

const (
	// Metrics of the latest run (F32)
	RegInputPower      = 0  // 0-1, W
	RegLoadPower       = 2  // 2-3, W
	RegEfficiency      = 4  // 4-5, ratio, NaN when undetermined
	RegDCVoltage       = 6  // 6-7, V
	RegRipple          = 8  // 8-9, V peak-to-peak
	RegDiodeCurrentRMS = 10 // 10-11, A

	// Derived quantities (F32)
	RegSecondaryRMSVoltage = 12 // 12-13, V
	RegWindingResistance   = 14 // 14-15, Ω
	RegSeriesResistance    = 16 // 16-17, Ω

	// Run description
	RegMode     = 18 // U16
	RegRunCount = 19 // 19-20, U32
	RegStatus   = 21 // U16
	RegWarnings = 22 // U16

	RegisterCount = 23
)

// Status values
const (
	StatusNoData   = 0x0000
	StatusReady    = 0x0001
	StatusUnstable = 0x0002
)

// Mode values
const (
	ModeHalfWave = 0
	ModeBridge   = 1
)

func GetStatusString(status uint16) string {
	switch status {
	case StatusNoData:
		return "No data"
	case StatusReady:
		return "Ready"
	case StatusUnstable:
		return "Ready (step above stability limit)"
	default:
		return "Unknown"
	}
}

func GetModeString(mode uint16) string {
	switch mode {
	case ModeHalfWave:
		return "half-wave"
	case ModeBridge:
		return "bridge"
	default:
		return "unknown"
	}
}
