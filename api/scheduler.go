/*
scheduler.go - Scheduled projection refresh

PURPOSE:
  Recomputes the projection on a cron schedule so the held snapshot never
  drifts far from storage, and logs the next critical point when one
  exists. The projection is also recomputed on every mutation; the cron
  job covers the passage of time itself (the current month rolling over,
  planned events slipping into the past).

CONFIGURATION:
  - Spec: standard 5-field cron expression (default: "0 6 * * *",
    daily at 06:00)

USAGE:
  scheduler := NewRefreshScheduler(planner, log, "0 6 * * *")
  if err := scheduler.Start(); err != nil { ... }
  // ... later
  scheduler.Stop()

SEE ALSO:
  - planner/planner.go: Refresh
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/lifeplan/cashflow-engine/planner"
)

// DefaultRefreshSpec runs the refresh daily at 06:00.
const DefaultRefreshSpec = "0 6 * * *"

// RefreshScheduler periodically refreshes the planner's projection.
type RefreshScheduler struct {
	Planner *planner.Planner
	Log     *logrus.Logger
	Spec    string

	cron *cron.Cron
}

// NewRefreshScheduler creates a scheduler; an empty spec uses the default.
func NewRefreshScheduler(p *planner.Planner, log *logrus.Logger, spec string) *RefreshScheduler {
	if spec == "" {
		spec = DefaultRefreshSpec
	}
	if log == nil {
		log = logrus.New()
	}
	return &RefreshScheduler{Planner: p, Log: log, Spec: spec}
}

// Start registers the cron job and begins scheduling.
func (rs *RefreshScheduler) Start() error {
	rs.cron = cron.New()
	if _, err := rs.cron.AddFunc(rs.Spec, rs.refresh); err != nil {
		return fmt.Errorf("invalid refresh spec %q: %w", rs.Spec, err)
	}
	rs.cron.Start()
	rs.Log.WithField("spec", rs.Spec).Info("refresh scheduler started")
	return nil
}

// Stop halts scheduling and waits for a running refresh to finish.
func (rs *RefreshScheduler) Stop() {
	if rs.cron == nil {
		return
	}
	<-rs.cron.Stop().Done()
	rs.Log.Info("refresh scheduler stopped")
}

// RunNow triggers an immediate refresh (for testing/admin).
func (rs *RefreshScheduler) RunNow() {
	rs.refresh()
}

func (rs *RefreshScheduler) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := rs.Planner.Refresh(ctx); err != nil {
		rs.Log.WithError(err).Warn("scheduled refresh failed")
		return
	}

	proj, ok := rs.Planner.Current()
	if !ok || proj.NextCriticalPoint == nil {
		return
	}
	rs.Log.WithFields(logrus.Fields{
		"month_index": proj.NextCriticalPoint.BucketIndex,
		"balance":     proj.NextCriticalPoint.Balance.String(),
		"cause":       proj.NextCriticalPoint.CauseName,
	}).Warn("upcoming critical balance drop")
}
