package storage

import (
	"errors"
	"fmt"
	"time"

	"rectifier-sim/internal/rectifier"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrNoRuns = errors.New("storage: no archived runs")

type Database struct {
	db *gorm.DB
}

func NewDatabase(path string) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{db: db}, nil
}

// SaveRun archives the summary of res and returns the stored record.
func (d *Database) SaveRun(res *rectifier.Result, source string) (*RunRecord, error) {
	p := res.Parameters
	m := res.Metrics

	record := &RunRecord{
		Timestamp:                  time.Now(),
		Source:                     source,
		Mode:                       p.Mode.String(),
		SourceRMSVoltage:           p.SourceRMSVoltage,
		Frequency:                  p.Frequency,
		PrimaryTurns:               p.PrimaryTurns,
		SecondaryTurns:             p.SecondaryTurns,
		WindingResistance:          p.WindingResistancePer100Turns,
		DiodeForwardVoltage:        p.DiodeForwardVoltage,
		DiodeDynamicResistance:     p.DiodeDynamicResistance,
		LoadResistance:             p.LoadResistance,
		FilterCapacitance:          p.FilterCapacitance,
		Cycles:                     p.Cycles,
		SamplesPerCycle:            p.SamplesPerCycle,
		SecondaryRMSVoltage:        res.Derived.SecondaryRMSVoltage,
		SecondaryWindingResistance: res.Derived.SecondaryWindingResistance,
		SeriesResistance:           res.Derived.SeriesResistance,
		InputPower:                 m.InputPower,
		LoadPower:                  m.LoadPower,
		DCVoltage:                  m.DCVoltage,
		RipplePeakToPeak:           m.RipplePeakToPeak,
		DiodeCurrentRMS:            m.DiodeCurrentRMS,
		Warnings:                   len(res.Warnings),
	}
	if m.EfficiencyKnown() {
		eff := m.Efficiency
		record.Efficiency = &eff
	}

	if err := d.db.Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (d *Database) GetLatestRun() (*RunRecord, error) {
	var record RunRecord
	result := d.db.Order("id desc").First(&record)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNoRuns
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &record, nil
}

func (d *Database) GetRun(id uint) (*RunRecord, error) {
	var record RunRecord
	result := d.db.First(&record, id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNoRuns
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &record, nil
}

func (d *Database) GetRunsWithLimit(limit int) ([]RunRecord, error) {
	var records []RunRecord
	result := d.db.Order("id desc").Limit(limit).Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

func (d *Database) GetRunsByMode(mode rectifier.Mode, limit int) ([]RunRecord, error) {
	var records []RunRecord
	result := d.db.Where("mode = ?", mode.String()).
		Order("id desc").
		Limit(limit).
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

func (d *Database) GetRunsByRange(from, to time.Time) ([]RunRecord, error) {
	var records []RunRecord
	result := d.db.Where("timestamp BETWEEN ? AND ?", from, to).
		Order("timestamp desc").
		Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

// GetModeStats aggregates the archive per rectifier mode.
func (d *Database) GetModeStats() ([]ModeStats, error) {
	var stats []ModeStats
	result := d.db.Model(&RunRecord{}).
		Select("mode, COUNT(*) AS runs, AVG(dc_voltage) AS avg_dc_voltage, AVG(ripple_peak_to_peak) AS avg_ripple, MIN(ripple_peak_to_peak) AS min_ripple").
		Group("mode").
		Order("mode").
		Scan(&stats)
	if result.Error != nil {
		return nil, result.Error
	}
	return stats, nil
}

func (d *Database) CountRuns() (int64, error) {
	var count int64
	err := d.db.Model(&RunRecord{}).Count(&count).Error
	return count, err
}

func (d *Database) CleanOldRuns(olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan)
	return d.db.Where("timestamp < ?", cutoff).Delete(&RunRecord{}).Error
}

func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
