package runner

import (
	"context"
	"fmt"
	"log"
	"sync"

	"rectifier-sim/internal/instrument"
	"rectifier-sim/internal/mqtt"
	"rectifier-sim/internal/rectifier"
	"rectifier-sim/internal/storage"
	"rectifier-sim/internal/sweep"
)

// Runner executes simulations on request and fans the results out to
// the archive, the MQTT publisher and the virtual instrument. Each of
// them is optional.
type Runner struct {
	db         *storage.Database
	publisher  *mqtt.Publisher
	instrument *instrument.Instrument

	mu       sync.RWMutex
	latest   *rectifier.Result
	latestID uint
	runs     uint32
}

type RunnerConfig struct {
	Database   *storage.Database
	Publisher  *mqtt.Publisher
	Instrument *instrument.Instrument
}

func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		db:         cfg.Database,
		publisher:  cfg.Publisher,
		instrument: cfg.Instrument,
	}
}

// Run simulates p and records the result as the latest one. Archive and
// publish failures are logged; they do not fail the run.
func (r *Runner) Run(p rectifier.Parameters, source string) (*rectifier.Result, error) {
	res, err := rectifier.Run(p)
	if err != nil {
		return nil, err
	}

	var id uint
	if r.db != nil {
		rec, err := r.db.SaveRun(res, source)
		if err != nil {
			log.Printf("Error saving run: %v", err)
		} else {
			id = rec.ID
		}
	}

	r.mu.Lock()
	r.latest = res
	r.latestID = id
	r.runs++
	runs := r.runs
	r.mu.Unlock()

	if r.instrument != nil {
		r.instrument.Update(res, runs)
	}

	if r.publisher != nil {
		if err := r.publisher.Publish(res); err != nil {
			log.Printf("Error publishing to MQTT: %v", err)
		}
	}

	for _, w := range res.Warnings {
		log.Printf("Warning: %s", w)
	}
	log.Printf("Simulated %s: Vdc=%.2fV, ripple=%.3fV, Pload=%.2fW, efficiency=%s",
		p.Mode, res.Metrics.DCVoltage, res.Metrics.RipplePeakToPeak,
		res.Metrics.LoadPower, FormatEfficiency(res.Metrics))

	return res, nil
}

// Sweep runs a parameter sweep. Sweep points are not archived and do not
// replace the latest result.
func (r *Runner) Sweep(ctx context.Context, base rectifier.Parameters, spec sweep.Spec) ([]sweep.Point, error) {
	log.Printf("Sweeping %s from %g to %g (%d steps, %s)",
		spec.Parameter, spec.Min, spec.Max, spec.Steps, spec.Scale)

	points, err := sweep.Run(ctx, base, spec)
	if err != nil {
		return points, err
	}

	log.Printf("Sweep finished: %d points", len(points))
	return points, nil
}

// Latest returns the most recent result, or nil before the first run.
func (r *Runner) Latest() *rectifier.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latest
}

// LatestID is the archive id of the latest result, 0 when not archived.
func (r *Runner) LatestID() uint {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.latestID
}

func (r *Runner) RunCount() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runs
}

func (r *Runner) Database() *storage.Database {
	return r.db
}

func (r *Runner) Publisher() *mqtt.Publisher {
	return r.publisher
}

func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.publisher != nil {
		r.publisher.Close()
	}
	if r.db != nil {
		if err := r.db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}
}

// FormatEfficiency renders efficiency as a percentage or "undetermined".
func FormatEfficiency(m rectifier.Metrics) string {
	if !m.EfficiencyKnown() {
		return "undetermined"
	}
	return fmt.Sprintf("%.1f%%", m.Efficiency*100)
}
