package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rectifier-sim/internal/rectifier"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quickRun(t *testing.T, mutate func(p *rectifier.Parameters)) *rectifier.Result {
	t.Helper()
	p := rectifier.DefaultParameters()
	p.Cycles = 4
	p.SamplesPerCycle = 500
	if mutate != nil {
		mutate(&p)
	}
	res, err := rectifier.Run(p)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestEmptyArchive(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetLatestRun(); !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns, got %v", err)
	}
}

func TestSaveAndQueryRuns(t *testing.T) {
	db := openTestDB(t)

	half := quickRun(t, nil)
	bridge := quickRun(t, func(p *rectifier.Parameters) { p.Mode = rectifier.Bridge })

	saved, err := db.SaveRun(half, "test")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.ID == 0 {
		t.Fatal("record has no id")
	}
	if _, err := db.SaveRun(bridge, "test"); err != nil {
		t.Fatalf("save: %v", err)
	}

	latest, err := db.GetLatestRun()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Mode != "bridge" {
		t.Errorf("latest mode = %s, want bridge", latest.Mode)
	}
	if latest.Efficiency == nil || *latest.Efficiency != bridge.Metrics.Efficiency {
		t.Errorf("efficiency not archived: %v", latest.Efficiency)
	}

	got, err := db.GetRun(saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RipplePeakToPeak != half.Metrics.RipplePeakToPeak || got.SamplesPerCycle != 500 {
		t.Errorf("record %d = %+v", saved.ID, got)
	}

	list, err := db.GetRunsWithLimit(10)
	if err != nil || len(list) != 2 {
		t.Fatalf("list: %d records, err %v", len(list), err)
	}

	byMode, err := db.GetRunsByMode(rectifier.HalfWave, 10)
	if err != nil || len(byMode) != 1 || byMode[0].ID != saved.ID {
		t.Errorf("by mode: %+v, err %v", byMode, err)
	}

	stats, err := db.GetModeStats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 || stats[0].Mode != "bridge" || stats[0].Runs != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestUndeterminedEfficiencyIsNull(t *testing.T) {
	db := openTestDB(t)
	res := quickRun(t, func(p *rectifier.Parameters) {
		p.WindingResistancePer100Turns = 0
		p.DiodeDynamicResistance = 0
	})

	saved, err := db.SaveRun(res, "test")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.GetRun(saved.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Efficiency != nil {
		t.Errorf("efficiency = %v, want NULL", *got.Efficiency)
	}
}

func TestCleanOldRuns(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.SaveRun(quickRun(t, nil), "test"); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := db.CleanOldRuns(time.Hour); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if n, _ := db.CountRuns(); n != 1 {
		t.Errorf("recent run removed: %d left", n)
	}

	if err := db.CleanOldRuns(-time.Hour); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if n, _ := db.CountRuns(); n != 0 {
		t.Errorf("%d runs left after cleaning everything", n)
	}
}

func TestGetRunUnknownID(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetRun(42); !errors.Is(err, ErrNoRuns) {
		t.Errorf("GetRun(42) error = %v, want ErrNoRuns", err)
	}
}
