package config

import (
	"fmt"
	"time"

	"rectifier-sim/internal/rectifier"

	"github.com/spf13/viper"
)

type Config struct {
	Circuit    CircuitConfig    `mapstructure:"circuit"`
	API        APIConfig        `mapstructure:"api"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Instrument InstrumentConfig `mapstructure:"instrument"`
	Export     ExportConfig     `mapstructure:"export"`
}

// CircuitConfig is the default parameter set, in the units of the
// classroom controls (capacitance in µF).
type CircuitConfig struct {
	SourceRMSVoltage       float64 `mapstructure:"source_rms_voltage" json:"source_rms_voltage"`
	Frequency              float64 `mapstructure:"frequency" json:"frequency"`
	PrimaryTurns           int     `mapstructure:"primary_turns" json:"primary_turns"`
	SecondaryTurns         int     `mapstructure:"secondary_turns" json:"secondary_turns"`
	WindingResistance      float64 `mapstructure:"winding_resistance" json:"winding_resistance"`
	Mode                   string  `mapstructure:"mode" json:"mode"`
	DiodeForwardVoltage    float64 `mapstructure:"diode_forward_voltage" json:"diode_forward_voltage"`
	DiodeDynamicResistance float64 `mapstructure:"diode_dynamic_resistance" json:"diode_dynamic_resistance"`
	LoadResistance         float64 `mapstructure:"load_resistance" json:"load_resistance"`
	FilterCapacitanceUF    float64 `mapstructure:"filter_capacitance_uf" json:"filter_capacitance_uf"`
	Cycles                 int     `mapstructure:"cycles" json:"cycles"`
	SamplesPerCycle        int     `mapstructure:"samples_per_cycle" json:"samples_per_cycle"`
}

type APIConfig struct {
	Port        int      `mapstructure:"port"`
	Enabled     bool     `mapstructure:"enabled"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
}

type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type InstrumentConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	URL        string        `mapstructure:"url"`
	UnitID     uint8         `mapstructure:"unit_id"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxClients uint          `mapstructure:"max_clients"`
}

type ExportConfig struct {
	MaxChartPoints int     `mapstructure:"max_chart_points"`
	PlotWidthCM    float64 `mapstructure:"plot_width_cm"`
	PlotHeightCM   float64 `mapstructure:"plot_height_cm"`
}

func Load(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/rectifier-sim")
	}

	// Set defaults
	def := rectifier.DefaultParameters()
	viper.SetDefault("circuit.source_rms_voltage", def.SourceRMSVoltage)
	viper.SetDefault("circuit.frequency", def.Frequency)
	viper.SetDefault("circuit.primary_turns", def.PrimaryTurns)
	viper.SetDefault("circuit.secondary_turns", def.SecondaryTurns)
	viper.SetDefault("circuit.winding_resistance", def.WindingResistancePer100Turns)
	viper.SetDefault("circuit.mode", def.Mode.String())
	viper.SetDefault("circuit.diode_forward_voltage", def.DiodeForwardVoltage)
	viper.SetDefault("circuit.diode_dynamic_resistance", def.DiodeDynamicResistance)
	viper.SetDefault("circuit.load_resistance", def.LoadResistance)
	viper.SetDefault("circuit.filter_capacitance_uf", def.FilterCapacitance*1e6)
	viper.SetDefault("circuit.cycles", def.Cycles)
	viper.SetDefault("circuit.samples_per_cycle", def.SamplesPerCycle)
	viper.SetDefault("api.port", 8046)
	viper.SetDefault("api.enabled", true)
	viper.SetDefault("api.cors_origins", []string{"*"})
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.topic_prefix", "rectifier")
	viper.SetDefault("mqtt.client_id", "rectifier-sim")
	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.path", "./rectifier.db")
	viper.SetDefault("instrument.enabled", false)
	viper.SetDefault("instrument.url", "tcp://localhost:5020")
	viper.SetDefault("instrument.unit_id", 1)
	viper.SetDefault("instrument.timeout", "10s")
	viper.SetDefault("instrument.max_clients", 5)
	viper.SetDefault("export.max_chart_points", 4000)
	viper.SetDefault("export.plot_width_cm", 24)
	viper.SetDefault("export.plot_height_cm", 20)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Parameters converts the circuit section into a simulator parameter set.
func (c CircuitConfig) Parameters() (rectifier.Parameters, error) {
	mode, err := rectifier.ParseMode(c.Mode)
	if err != nil {
		return rectifier.Parameters{}, fmt.Errorf("circuit.mode: %w", err)
	}
	return rectifier.Parameters{
		SourceRMSVoltage:             c.SourceRMSVoltage,
		Frequency:                    c.Frequency,
		PrimaryTurns:                 c.PrimaryTurns,
		SecondaryTurns:               c.SecondaryTurns,
		WindingResistancePer100Turns: c.WindingResistance,
		Mode:                         mode,
		DiodeForwardVoltage:          c.DiodeForwardVoltage,
		DiodeDynamicResistance:       c.DiodeDynamicResistance,
		LoadResistance:               c.LoadResistance,
		FilterCapacitance:            c.FilterCapacitanceUF * 1e-6,
		Cycles:                       c.Cycles,
		SamplesPerCycle:              c.SamplesPerCycle,
	}, nil
}

// CircuitFromParameters is the inverse of CircuitConfig.Parameters.
func CircuitFromParameters(p rectifier.Parameters) CircuitConfig {
	return CircuitConfig{
		SourceRMSVoltage:       p.SourceRMSVoltage,
		Frequency:              p.Frequency,
		PrimaryTurns:           p.PrimaryTurns,
		SecondaryTurns:         p.SecondaryTurns,
		WindingResistance:      p.WindingResistancePer100Turns,
		Mode:                   p.Mode.String(),
		DiodeForwardVoltage:    p.DiodeForwardVoltage,
		DiodeDynamicResistance: p.DiodeDynamicResistance,
		LoadResistance:         p.LoadResistance,
		FilterCapacitanceUF:    p.FilterCapacitance * 1e6,
		Cycles:                 p.Cycles,
		SamplesPerCycle:        p.SamplesPerCycle,
	}
}

// SaveCircuit writes the circuit section back to the config file.
func SaveCircuit(configPath string, c CircuitConfig) error {
	if configPath == "" {
		configPath = "config.yaml"
	}
	viper.SetConfigFile(configPath)

	viper.Set("circuit.source_rms_voltage", c.SourceRMSVoltage)
	viper.Set("circuit.frequency", c.Frequency)
	viper.Set("circuit.primary_turns", c.PrimaryTurns)
	viper.Set("circuit.secondary_turns", c.SecondaryTurns)
	viper.Set("circuit.winding_resistance", c.WindingResistance)
	viper.Set("circuit.mode", c.Mode)
	viper.Set("circuit.diode_forward_voltage", c.DiodeForwardVoltage)
	viper.Set("circuit.diode_dynamic_resistance", c.DiodeDynamicResistance)
	viper.Set("circuit.load_resistance", c.LoadResistance)
	viper.Set("circuit.filter_capacitance_uf", c.FilterCapacitanceUF)
	viper.Set("circuit.cycles", c.Cycles)
	viper.Set("circuit.samples_per_cycle", c.SamplesPerCycle)

	return viper.WriteConfig()
}
