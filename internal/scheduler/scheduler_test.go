package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osmo/osmo/internal/config"
	"github.com/osmo/osmo/internal/models"
)

type fakeBackups struct {
	path  string
	err   error
	calls int
}

func (f *fakeBackups) Backup(context.Context) (string, error) {
	f.calls++
	return f.path, f.err
}

type fakeStock struct {
	critical []models.MaterialStock
	err      error
}

func (f *fakeStock) CriticalStock(context.Context) ([]models.MaterialStock, error) {
	return f.critical, f.err
}

func TestStart_RegistersConfiguredJobs(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SchedulerConfig
		want int
	}{
		{"both", config.SchedulerConfig{BackupSchedule: "0 2 * * *", StockCheckSchedule: "*/30 * * * *"}, 2},
		{"backup only", config.SchedulerConfig{BackupSchedule: "@daily"}, 1},
		{"none", config.SchedulerConfig{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.cfg, &fakeBackups{}, &fakeStock{})
			require.NoError(t, s.Start())
			defer s.Stop()
			assert.Equal(t, tt.want, s.Jobs())
		})
	}
}

func TestStart_RejectsBadSpec(t *testing.T) {
	s := New(config.SchedulerConfig{BackupSchedule: "every tuesday"}, &fakeBackups{}, nil)
	assert.Error(t, s.Start())
}

func TestRunBackup(t *testing.T) {
	backups := &fakeBackups{path: "/tmp/osmo-1.db"}
	s := New(config.SchedulerConfig{}, backups, nil)

	s.RunBackup()
	assert.Equal(t, "/tmp/osmo-1.db", s.LastBackup())

	backups.err = errors.New("disk full")
	backups.path = ""
	s.RunBackup()
	assert.Equal(t, 2, backups.calls)
	assert.Equal(t, "/tmp/osmo-1.db", s.LastBackup(), "a failed backup keeps the previous path")
}

func TestRunStockCheck(t *testing.T) {
	stock := &fakeStock{critical: []models.MaterialStock{{
		Material: models.RawMaterial{ID: "m1", Name: "Yeast", Unit: models.UnitGram, CriticalThreshold: decimal.NewFromInt(500)},
		OnHand:   decimal.NewFromInt(120),
	}}}
	s := New(config.SchedulerConfig{}, nil, stock)

	s.RunStockCheck()
	require.Len(t, s.LastCritical(), 1)
	assert.Equal(t, "Yeast", s.LastCritical()[0].Material.Name)

	stock.err = errors.New("database is locked")
	s.RunStockCheck()
	assert.Len(t, s.LastCritical(), 1)
}
