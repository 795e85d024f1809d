package services

import (
	"context"
	"time"

	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
)

// CooldownGate suppresses rescans of customers with a recent unresolved alert
type CooldownGate struct {
	repo anomaly.Repository
	now  func() time.Time
}

func NewCooldownGate(repo anomaly.Repository) *CooldownGate {
	return &CooldownGate{repo: repo, now: time.Now}
}

// IsInCooldown reports whether the customer has a non-dismissed warning or critical
// anomaly detected within the last cooldownDays
func (g *CooldownGate) IsInCooldown(ctx context.Context, customerID string, cooldownDays int) (bool, error) {
	if cooldownDays <= 0 {
		return false, nil
	}

	since := g.now().AddDate(0, 0, -cooldownDays)
	active, err := g.repo.ListActive(ctx, customerID, anomaly.SeverityWarning.AtLeast(), since)
	if err != nil {
		return false, err
	}
	return len(active) > 0, nil
}
