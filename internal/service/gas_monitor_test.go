package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"autodca/internal/bridge"
	"autodca/internal/models"
)

func TestGasMonitorAlertsOnceThrottled(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	backend := bridge.NewMemoryBackend(addr)
	backend.SetGas(addr, decimal.NewFromFloat(0.01))

	repo := newStubRepo()
	monitor := &GasMonitor{
		Bridge: &bridge.Account{
			Backend:       backend,
			Address:       addr,
			MinGasBalance: decimal.NewFromFloat(0.05),
		},
		Repo: repo,
	}

	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce: %v", err)
	}
	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("second CheckOnce: %v", err)
	}

	types := repo.eventTypes()
	if len(types) != 1 || types[0] != models.EventInsufficientGas {
		t.Fatalf("event types = %v, want one insufficient_gas alert", types)
	}
}

// failingEventRepo rejects the first insert so persistence failures can be
// observed against the alert throttle.
type failingEventRepo struct {
	*stubRepo
	failures int
}

func (r *failingEventRepo) InsertEvent(ctx context.Context, item *models.PlanEvent) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("insert failed")
	}
	return r.stubRepo.InsertEvent(ctx, item)
}

func TestGasMonitorRetriesAfterFailedPersist(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	backend := bridge.NewMemoryBackend(addr)
	backend.SetGas(addr, decimal.NewFromFloat(0.01))

	repo := &failingEventRepo{stubRepo: newStubRepo(), failures: 1}
	monitor := &GasMonitor{
		Bridge: &bridge.Account{
			Backend:       backend,
			Address:       addr,
			MinGasBalance: decimal.NewFromFloat(0.05),
		},
		Repo: repo,
	}

	if err := monitor.CheckOnce(context.Background()); err == nil {
		t.Fatalf("expected insert failure to propagate")
	}
	// The throttle is armed only on a successful persist, so the next sweep
	// records the alert.
	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("second CheckOnce: %v", err)
	}
	types := repo.eventTypes()
	if len(types) != 1 || types[0] != models.EventInsufficientGas {
		t.Fatalf("event types = %v, want one insufficient_gas alert", types)
	}
}

func TestGasMonitorQuietWhenFunded(t *testing.T) {
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	backend := bridge.NewMemoryBackend(addr)
	backend.SetGas(addr, decimal.NewFromInt(1))

	repo := newStubRepo()
	monitor := &GasMonitor{
		Bridge: &bridge.Account{
			Backend:       backend,
			Address:       addr,
			MinGasBalance: decimal.NewFromFloat(0.05),
		},
		Repo: repo,
	}

	if err := monitor.CheckOnce(context.Background()); err != nil {
		t.Fatalf("CheckOnce: %v", err)
	}
	if len(repo.eventTypes()) != 0 {
		t.Fatalf("alert emitted while funded")
	}
}
