package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"autodca/internal/bridge"
	"autodca/internal/events"
	"autodca/internal/models"
	"autodca/internal/repository"
)

// GasMonitor watches the bridge account's operational gas balance. Exhaustion
// affects every bridged plan at once, so it is surfaced as an operational
// alert event rather than waiting for per-plan failures.
type GasMonitor struct {
	Bridge *bridge.Account
	Repo   repository.Repository
	Events *events.Hub
	Logger *zap.Logger

	mu        sync.Mutex
	lastAlert time.Time
}

const gasAlertInterval = time.Hour

func (m *GasMonitor) CheckOnce(ctx context.Context) error {
	if m == nil || m.Bridge == nil {
		return nil
	}
	err := m.Bridge.EnsureGas(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, models.ErrInsufficientGas) {
		return err
	}

	if m.Logger != nil {
		m.Logger.Error("bridge account gas below operational floor", zap.Error(err))
	}
	m.mu.Lock()
	throttled := time.Since(m.lastAlert) < gasAlertInterval
	m.mu.Unlock()
	if throttled {
		return nil
	}

	evt := models.NewPlanEvent(models.EventInsufficientGas, "", nil, map[string]any{
		"bridge_account": m.Bridge.Address.Hex(),
		"error":          err.Error(),
	})
	if m.Repo != nil {
		if ierr := m.Repo.InsertEvent(ctx, evt); ierr != nil {
			// Throttle stays disarmed so the next sweep retries the alert.
			return ierr
		}
	}
	if m.Events != nil {
		m.Events.Publish(*evt)
	}
	m.mu.Lock()
	m.lastAlert = time.Now()
	m.mu.Unlock()
	return nil
}
