package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rectifier-sim/config"
	"rectifier-sim/internal/api"
	"rectifier-sim/internal/instrument"
	"rectifier-sim/internal/modbus"
	"rectifier-sim/internal/mqtt"
	"rectifier-sim/internal/rectifier"
	"rectifier-sim/internal/runner"
	"rectifier-sim/internal/storage"

	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rectifier-sim",
		Short: "AC to DC rectifier simulator",
		Long:  "Simulates half-wave and bridge rectifiers feeding an RC filter and reports DC level, ripple and efficiency",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetFlags(log.LstdFlags | log.Lshortfile)
			}
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(simulateCmd())
	rootCmd.AddCommand(sweepCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(readCmd())
	rootCmd.AddCommand(testCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPublisher(cfg config.MQTTConfig) *mqtt.Publisher {
	publisher, err := mqtt.NewPublisher(mqtt.PublisherConfig{
		Broker:      cfg.Broker,
		ClientID:    cfg.ClientID,
		Username:    cfg.Username,
		Password:    cfg.Password,
		TopicPrefix: cfg.TopicPrefix,
		Enabled:     cfg.Enabled,
	})
	if err != nil {
		log.Printf("Warning: MQTT connection failed: %v", err)
		return nil
	}
	if cfg.Enabled {
		log.Printf("MQTT connected to %s", cfg.Broker)
		// Publish Home Assistant discovery
		if err := publisher.PublishHomeAssistantDiscovery(); err != nil {
			log.Printf("Warning: discovery publish failed: %v", err)
		}
	}
	return publisher
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the simulation service",
		Long:  "Start the HTTP API, the virtual Modbus instrument and the MQTT publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			defaults, err := cfg.Circuit.Parameters()
			if err != nil {
				return err
			}

			// Create database
			var db *storage.Database
			if cfg.Database.Enabled {
				db, err = storage.NewDatabase(cfg.Database.Path)
				if err != nil {
					return fmt.Errorf("failed to open database: %w", err)
				}
				log.Printf("Database opened at %s", cfg.Database.Path)
			}

			publisher := newPublisher(cfg.MQTT)

			// Start the virtual instrument
			var inst *instrument.Instrument
			var modbusServer *modbus.Server
			if cfg.Instrument.Enabled {
				inst = instrument.New(cfg.Instrument.UnitID)
				modbusServer, err = modbus.NewServer(modbus.ServerConfig{
					URL:        cfg.Instrument.URL,
					Timeout:    cfg.Instrument.Timeout,
					MaxClients: cfg.Instrument.MaxClients,
					Handler:    inst,
				})
				if err != nil {
					return err
				}
				if err := modbusServer.Start(); err != nil {
					return err
				}
				log.Printf("Instrument listening on %s (unit %d)", cfg.Instrument.URL, cfg.Instrument.UnitID)
			}

			r := runner.NewRunner(runner.RunnerConfig{
				Database:   db,
				Publisher:  publisher,
				Instrument: inst,
			})

			// Initial run with the configured circuit
			if _, err := r.Run(defaults, "startup"); err != nil {
				log.Printf("Initial simulation failed: %v", err)
			}

			// Handle signals
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			// Start API server if enabled
			var server *api.Server
			if cfg.API.Enabled {
				server = api.NewServer(api.ServerConfig{
					Port:       cfg.API.Port,
					Runner:     r,
					Database:   db,
					Config:     cfg,
					ConfigPath: configFile,
				})

				go func() {
					if err := server.Start(); err != nil {
						log.Printf("API server error: %v", err)
					}
				}()
			}

			log.Println("Rectifier simulator started. Press Ctrl+C to stop.")

			// Wait for signal
			<-sigChan
			log.Println("Shutting down...")

			if server != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := server.Stop(ctx); err != nil {
					log.Printf("API shutdown error: %v", err)
				}
				cancel()
			}
			if modbusServer != nil {
				if err := modbusServer.Stop(); err != nil {
					log.Printf("Instrument shutdown error: %v", err)
				}
			}
			r.Stop()

			return nil
		},
	}
}

func instrumentReader(cfg *config.Config) (*modbus.Client, *instrument.Reader) {
	client := modbus.NewClient(
		cfg.Instrument.URL,
		cfg.Instrument.UnitID,
		cfg.Instrument.Timeout,
	)
	return client, instrument.NewReader(client)
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read",
		Short: "Read the virtual instrument once",
		Long:  "Connect to a running instrument over Modbus TCP and print its registers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			client, reader := instrumentReader(cfg)
			if err := client.Connect(); err != nil {
				return fmt.Errorf("failed to connect: %w", err)
			}
			defer client.Close()

			data, err := reader.ReadAll()
			if errors.Is(err, instrument.ErrNoData) {
				fmt.Fprintln(os.Stderr, "Warning: the instrument has not run a simulation yet")
			} else if err != nil {
				return fmt.Errorf("failed to read data: %w", err)
			}

			output, _ := json.MarshalIndent(data, "", "  ")
			fmt.Println(string(output))

			return nil
		},
	}
}

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test connection to the virtual instrument",
		Long:  "Test the Modbus TCP connection to a running instrument",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Printf("Testing connection to %s...\n", cfg.Instrument.URL)

			client, reader := instrumentReader(cfg)
			defer client.Close()

			if err := reader.TestConnection(); err != nil {
				fmt.Printf("Connection FAILED: %v\n", err)
				return err
			}

			fmt.Println("Connection SUCCESS!")

			runs, err := reader.RunCount()
			if err != nil {
				fmt.Printf("Warning: Could not read run count: %v\n", err)
				return nil
			}
			vdc, err := reader.DCVoltage()
			if err != nil {
				fmt.Printf("Warning: Could not read DC voltage: %v\n", err)
				return nil
			}

			data, err := reader.ReadAll()
			if err != nil && !errors.Is(err, instrument.ErrNoData) {
				fmt.Printf("Warning: Could not read data: %v\n", err)
				return nil
			}
			fmt.Printf("\nInstrument:\n")
			fmt.Printf("  Status:        %s\n", data.StatusText)
			fmt.Printf("  Runs:          %d\n", runs)
			fmt.Printf("  Mode:          %s\n", data.Mode)
			fmt.Printf("  DC Voltage:    %.3f V\n", vdc)
			fmt.Printf("  Ripple:        %.4f V\n", data.RipplePeakToPeak)
			if data.Efficiency != nil {
				fmt.Printf("  Efficiency:    %.1f %%\n", *data.Efficiency*100)
			} else {
				fmt.Printf("  Efficiency:    undetermined\n")
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var (
		limit  int
		mode   string
		stats  bool
		latest bool
		prune  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			db, err := storage.NewDatabase(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			if prune > 0 {
				if err := db.CleanOldRuns(prune); err != nil {
					return fmt.Errorf("failed to prune runs: %w", err)
				}
				log.Printf("Removed runs older than %s", prune)
			}

			if latest {
				run, err := db.GetLatestRun()
				if errors.Is(err, storage.ErrNoRuns) {
					fmt.Println("No archived runs")
					return nil
				}
				if err != nil {
					return err
				}
				printRuns([]storage.RunRecord{*run})
				return nil
			}

			if stats {
				modes, err := db.GetModeStats()
				if err != nil {
					return err
				}
				printModeStats(modes)
				return nil
			}

			var runs []storage.RunRecord
			if mode != "" {
				m, err := rectifier.ParseMode(mode)
				if err != nil {
					return err
				}
				runs, err = db.GetRunsByMode(m, limit)
				if err != nil {
					return err
				}
			} else {
				runs, err = db.GetRunsWithLimit(limit)
				if err != nil {
					return err
				}
			}
			printRuns(runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	cmd.Flags().StringVar(&mode, "mode", "", "only list runs of this mode (half-wave, bridge)")
	cmd.Flags().BoolVar(&stats, "stats", false, "print per-mode statistics instead")
	cmd.Flags().BoolVar(&latest, "latest", false, "print only the most recent run")
	cmd.Flags().DurationVar(&prune, "prune", 0, "first remove runs older than this (e.g. 720h)")
	return cmd
}
