package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"

	"rectifier-sim/config"
	"rectifier-sim/internal/export"
	"rectifier-sim/internal/runner"
	"rectifier-sim/internal/storage"
	"rectifier-sim/internal/sweep"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// circuitFlags maps each circuit flag onto its config key.
var circuitFlags = []struct {
	name, key string
}{
	{"mode", "circuit.mode"},
	{"vrms", "circuit.source_rms_voltage"},
	{"freq", "circuit.frequency"},
	{"primary-turns", "circuit.primary_turns"},
	{"secondary-turns", "circuit.secondary_turns"},
	{"winding", "circuit.winding_resistance"},
	{"vd", "circuit.diode_forward_voltage"},
	{"rd", "circuit.diode_dynamic_resistance"},
	{"load", "circuit.load_resistance"},
	{"cap-uf", "circuit.filter_capacitance_uf"},
	{"cycles", "circuit.cycles"},
	{"samples", "circuit.samples_per_cycle"},
}

func addCircuitFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("mode", "half-wave", "rectifier topology (half-wave, bridge)")
	f.Float64("vrms", 230, "source RMS voltage [V]")
	f.Float64("freq", 50, "source frequency [Hz]")
	f.Int("primary-turns", 1000, "primary turns")
	f.Int("secondary-turns", 200, "secondary turns")
	f.Float64("winding", 120, "winding resistance [mΩ per 100 turns]")
	f.Float64("vd", 0.7, "diode forward voltage [V]")
	f.Float64("rd", 0.05, "diode dynamic resistance [Ω]")
	f.Float64("load", 200, "load resistance [Ω]")
	f.Float64("cap-uf", 470, "filter capacitance [µF]")
	f.Int("cycles", 8, "simulated cycles")
	f.Int("samples", 2000, "samples per cycle")
}

// loadWithFlags binds the circuit flags of cmd and loads the config, so
// flags set on the command line override the file.
func loadWithFlags(cmd *cobra.Command) (*config.Config, error) {
	for _, f := range circuitFlags {
		if err := viper.BindPFlag(f.key, cmd.Flags().Lookup(f.name)); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func simulateCmd() *cobra.Command {
	var (
		asJSON            bool
		xlsxPath, tsvPath string
		pngPath, htmlPath string
		save, publish     bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one simulation and print its metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadWithFlags(cmd)
			if err != nil {
				return err
			}
			p, err := cfg.Circuit.Parameters()
			if err != nil {
				return err
			}

			rc := runner.RunnerConfig{}
			if save {
				db, err := storage.NewDatabase(cfg.Database.Path)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				rc.Database = db
			}
			if publish {
				mqttCfg := cfg.MQTT
				mqttCfg.Enabled = true
				rc.Publisher = newPublisher(mqttCfg)
			}
			r := runner.NewRunner(rc)
			defer r.Stop()

			res, err := r.Run(p, "cli")
			if err != nil {
				return err
			}

			if asJSON {
				output, err := json.MarshalIndent(res, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(output))
			} else {
				printResult(res)
			}

			maxPoints := cfg.Export.MaxChartPoints
			size := export.PlotSize{Width: cfg.Export.PlotWidthCM, Height: cfg.Export.PlotHeightCM}
			if xlsxPath != "" {
				if err := export.SaveXLSX(xlsxPath, res, 0); err != nil {
					return fmt.Errorf("xlsx export: %w", err)
				}
				log.Printf("Saved %s", xlsxPath)
			}
			if tsvPath != "" {
				if err := writeFile(tsvPath, func(f *os.File) error { return export.WriteTSV(f, res, 0) }); err != nil {
					return fmt.Errorf("tsv export: %w", err)
				}
				log.Printf("Saved %s", tsvPath)
			}
			if pngPath != "" {
				if err := export.SavePNG(pngPath, res, maxPoints, size); err != nil {
					return fmt.Errorf("png export: %w", err)
				}
				log.Printf("Saved %s", pngPath)
			}
			if htmlPath != "" {
				if err := writeFile(htmlPath, func(f *os.File) error { return export.WriteHTML(f, res, maxPoints) }); err != nil {
					return fmt.Errorf("html export: %w", err)
				}
				log.Printf("Saved %s", htmlPath)
			}
			return nil
		},
	}

	addCircuitFlags(cmd)
	f := cmd.Flags()
	f.BoolVar(&asJSON, "json", false, "print the result as JSON")
	f.StringVar(&xlsxPath, "xlsx", "", "write summary and waveforms to this workbook")
	f.StringVar(&tsvPath, "tsv", "", "write waveforms to this TSV file")
	f.StringVar(&pngPath, "png", "", "write the waveform plot to this PNG file")
	f.StringVar(&htmlPath, "html", "", "write interactive charts to this HTML file")
	f.BoolVar(&save, "save", false, "archive the run in the database")
	f.BoolVar(&publish, "publish", false, "publish the metrics over MQTT")
	return cmd
}

func sweepCmd() *cobra.Command {
	var (
		spec     sweep.Spec
		scale    string
		xlsxPath string
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Vary one parameter and tabulate the metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadWithFlags(cmd)
			if err != nil {
				return err
			}
			base, err := cfg.Circuit.Parameters()
			if err != nil {
				return err
			}
			spec.Scale, err = sweep.ParseScale(scale)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			r := runner.NewRunner(runner.RunnerConfig{})
			points, err := r.Sweep(ctx, base, spec)
			if len(points) > 0 {
				printSweep(spec, points)
			}
			if errors.Is(err, context.Canceled) {
				log.Printf("Sweep interrupted after %d of %d points", len(points), spec.Steps)
			} else if err != nil {
				return err
			}

			if xlsxPath != "" {
				if err := export.SaveSweepXLSX(xlsxPath, base, spec, points); err != nil {
					return fmt.Errorf("xlsx export: %w", err)
				}
				log.Printf("Saved %s", xlsxPath)
			}
			return nil
		},
	}

	addCircuitFlags(cmd)
	f := cmd.Flags()
	f.StringVar(&spec.Parameter, "param", "filter_capacitance_uf",
		"parameter to vary, in SI units (filter_capacitance in F) or filter_capacitance_uf in µF")
	f.Float64Var(&spec.Min, "min", 100, "first value, in the unit of --param")
	f.Float64Var(&spec.Max, "max", 2200, "last value, in the unit of --param")
	f.IntVar(&spec.Steps, "steps", 10, "number of points")
	f.StringVar(&scale, "scale", "linear", "grid spacing (linear, log)")
	f.StringVar(&xlsxPath, "xlsx", "", "write the sweep table to this workbook")
	return cmd
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
