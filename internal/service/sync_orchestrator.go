// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"dario.cat/mergo"
	"github.com/sethvargo/go-retry"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/events"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/models"
)

// reasonNoResult is reported for a pushed record the remote left out of its
// reply. The record stays dirty and is pushed again next cycle.
const reasonNoResult = "no result"

type syncOrchestrator struct {
	store     store.LocalStore
	gateway   adapter.RemoteGateway
	resolver  store.Resolver
	publisher events.Publisher
	cfg       config.SyncSettings
	logger    *logger.Logger
	now       func() time.Time

	mu            sync.Mutex
	ctx           context.Context
	started       bool
	stopped       bool
	running       bool
	pending       []chan models.CycleResult
	pendingReason models.TriggerReason
	cancelCycle   context.CancelFunc
	backoff       retry.Backoff
	retryTimer    *time.Timer
	blocked       error
	status        models.SyncStatus
	wg            sync.WaitGroup
}

// NewSyncOrchestrator wires the sync state machine. Zero fields of cfg take
// their default values.
func NewSyncOrchestrator(
	localStore store.LocalStore,
	gateway adapter.RemoteGateway,
	resolver store.Resolver,
	publisher events.Publisher,
	cfg config.SyncSettings,
	log *logger.Logger,
) SyncOrchestrator {
	if err := mergo.Merge(&cfg, config.DefaultSyncSettings()); err != nil {
		log.Warn().Err(err).Str("func", "NewSyncOrchestrator").Msg("failed to apply default sync settings")
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}

	return &syncOrchestrator{
		store:     localStore,
		gateway:   gateway,
		resolver:  resolver,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
		status:    models.SyncStatus{Phase: models.PhaseIdle},
	}
}

func (o *syncOrchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started {
		return
	}
	o.started = true
	o.ctx = o.logger.WithContext(ctx)
}

func (o *syncOrchestrator) Stop() {
	o.mu.Lock()
	o.stopped = true
	if o.cancelCycle != nil {
		o.cancelCycle()
	}
	o.stopRetryTimer()
	o.mu.Unlock()

	o.wg.Wait()
}

func (o *syncOrchestrator) Trigger(reason models.TriggerReason) <-chan models.CycleResult {
	ch := make(chan models.CycleResult, 1)

	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.started || o.halted() {
		ch <- models.CycleResult{Err: ErrOrchestratorStopped}
		return ch
	}

	if o.running {
		o.pending = append(o.pending, ch)
		o.pendingReason = strongerReason(o.pendingReason, reason)
		return ch
	}

	if err := o.admit(reason); err != nil {
		o.logger.Debug().
			Str("func", "syncOrchestrator.Trigger").
			Str("reason", string(reason)).
			Err(err).
			Msg("trigger ignored")
		ch <- models.CycleResult{Err: err}
		return ch
	}

	o.running = true
	o.stopRetryTimer()
	o.wg.Add(1)
	go o.loop(reason, []chan models.CycleResult{ch})

	return ch
}

func (o *syncOrchestrator) SyncNow(ctx context.Context) (models.CycleReport, error) {
	select {
	case res := <-o.Trigger(models.TriggerManual):
		return res.Report, res.Err
	case <-ctx.Done():
		return models.CycleReport{}, ctx.Err()
	}
}

func (o *syncOrchestrator) Status() models.SyncStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot()
}

func (o *syncOrchestrator) ConnectivityLost() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.cancelCycle != nil {
		o.logger.Info().Str("func", "syncOrchestrator.ConnectivityLost").Msg("abandoning in-flight network calls")
		o.cancelCycle()
	}
}

func (o *syncOrchestrator) CredentialsRefreshed(token string) <-chan models.CycleResult {
	if token != "" {
		o.gateway.SetToken(token)
	}
	return o.Trigger(models.TriggerCredentials)
}

// halted reports whether Stop was called or the context given to Start is
// done. Must be called with o.mu held.
func (o *syncOrchestrator) halted() bool {
	return o.stopped || (o.ctx != nil && o.ctx.Err() != nil)
}

// admit decides whether a trigger may start a cycle. Must be called with
// o.mu held.
func (o *syncOrchestrator) admit(reason models.TriggerReason) error {
	switch reason {
	case models.TriggerManual, models.TriggerCredentials:
		o.blocked = nil
		o.status.AuthBlocked = false
		return nil
	}

	if o.blocked != nil {
		return fmt.Errorf("%w: waiting for user action after: %w", ErrTriggerSuppressed, o.blocked)
	}

	if reason == models.TriggerPeriodic &&
		o.status.Phase == models.PhaseError &&
		o.now().Before(o.status.RetryAt) {
		return fmt.Errorf("%w: backing off until %s", ErrTriggerSuppressed, o.status.RetryAt.Format(time.RFC3339))
	}

	return nil
}

// loop runs the triggered cycle and then every coalesced follow-up.
func (o *syncOrchestrator) loop(reason models.TriggerReason, waiters []chan models.CycleResult) {
	defer o.wg.Done()

	for {
		report, err := o.runCycle(reason)
		result := models.CycleResult{Report: report, Err: err}

		o.mu.Lock()
		evs := o.finishCycle(result)

		next, nextWaiters := o.pendingReason, o.pending
		o.pending, o.pendingReason = nil, ""

		var rejectNext error
		switch {
		case len(nextWaiters) == 0:
		case o.halted():
			rejectNext = ErrOrchestratorStopped
		default:
			rejectNext = o.admit(next)
		}

		cont := len(nextWaiters) > 0 && rejectNext == nil
		if cont {
			o.stopRetryTimer()
		} else {
			o.running = false
		}
		o.mu.Unlock()

		for _, ev := range evs {
			o.publisher.Publish(ev)
		}
		for _, w := range waiters {
			w <- result
		}

		if !cont {
			for _, w := range nextWaiters {
				w <- models.CycleResult{Err: rejectNext}
			}
			return
		}

		reason, waiters = next, nextWaiters
	}
}

func (o *syncOrchestrator) runCycle(reason models.TriggerReason) (report models.CycleReport, err error) {
	o.mu.Lock()
	ctx := o.ctx
	netCtx, cancel := context.WithCancel(ctx)
	o.cancelCycle = cancel
	o.mu.Unlock()

	report = models.CycleReport{Reason: reason, StartedAt: o.now()}
	log := logger.FromContext(ctx)
	log.Info().Str("func", "syncOrchestrator.runCycle").Str("reason", string(reason)).Msg("sync cycle started")

	defer func() {
		cancel()
		o.mu.Lock()
		o.cancelCycle = nil
		o.mu.Unlock()

		report.Duration = o.now().Sub(report.StartedAt)
		event := log.Info()
		if err != nil {
			event = log.Warn().Err(err)
		}
		event.Str("func", "syncOrchestrator.runCycle").
			Int("pushed", report.Pushed).
			Int("rejected", report.Rejected).
			Int("pulled", report.Pulled).
			Int("conflicts", report.Conflicts).
			Dur("duration", report.Duration).
			Msg("sync cycle finished")
	}()

	o.setPhase(models.PhasePushing)
	if err = o.push(ctx, netCtx, &report); err != nil {
		return report, fmt.Errorf("push phase: %w", err)
	}

	o.setPhase(models.PhasePulling)
	if err = o.pull(ctx, netCtx, &report); err != nil {
		return report, fmt.Errorf("pull phase: %w", err)
	}

	return report, nil
}

// push drains the dirty set in keyset order. Acknowledgements are committed
// even if connectivity is lost half way through a batch.
func (o *syncOrchestrator) push(ctx, netCtx context.Context, report *models.CycleReport) error {
	durable := context.WithoutCancel(ctx)
	log := logger.FromContext(ctx)

	after := models.DirtyKey{}
	for {
		batch, err := o.store.ListDirty(ctx, after, o.cfg.PushBatchSize)
		if err != nil {
			return fmt.Errorf("list dirty records: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}

		resp, err := o.gateway.Push(netCtx, batch)
		if err != nil {
			return err
		}

		results := make(map[string]models.PushItemResult, len(resp.Results))
		for _, r := range resp.Results {
			results[r.ID] = r
		}

		for _, rec := range batch {
			res, ok := results[rec.ID]
			if !ok {
				log.Warn().
					Str("func", "syncOrchestrator.push").
					Str("id", rec.ID).
					Msg("remote returned no result for pushed record")
				res = models.PushItemResult{ID: rec.ID, Status: models.PushStatusRejected, Reason: reasonNoResult}
			}

			if !res.Acked() {
				report.Rejected++
				report.Rejections = append(report.Rejections, &RejectedError{ID: rec.ID, Reason: res.Reason})
				o.publisher.Publish(models.RecordRejected{ID: rec.ID, Reason: res.Reason})
				continue
			}

			// the version we pushed, not the server timestamp, decides
			// whether a newer local edit must stay dirty
			marked, err := o.store.MarkClean(durable, rec.ID, rec.LastModified)
			if err != nil {
				return fmt.Errorf("mark record clean: %w", err)
			}
			report.Pushed++
			if marked {
				o.publisher.Publish(models.RecordChanged{ID: rec.ID})
			}
		}

		if len(batch) < o.cfg.PushBatchSize {
			return nil
		}
		after = models.KeyOf(batch[len(batch)-1])
	}
}

// pull follows the change feed until the remote reports no more pages. Each
// page is merged and the cursor advanced in one store transaction.
func (o *syncOrchestrator) pull(ctx, netCtx context.Context, report *models.CycleReport) error {
	durable := context.WithoutCancel(ctx)

	cursor, err := o.store.Cursor(ctx)
	if err != nil {
		return fmt.Errorf("read cursor: %w", err)
	}

	for {
		page, err := o.gateway.Pull(netCtx, cursor, o.cfg.PullPageSize)
		if err != nil {
			return err
		}
		if page.HasMore && (page.NextCursor == "" || page.NextCursor == cursor) {
			return fmt.Errorf("%w: %q", ErrCursorNotAdvancing, cursor)
		}

		o.setPhase(models.PhaseMerging)
		results, err := o.store.ApplyRemotePage(durable, page.Records, page.NextCursor, o.resolver)
		if err != nil {
			return fmt.Errorf("merge page: %w", err)
		}
		report.Pulled += len(page.Records)
		o.announceMerge(report, results)

		if page.NextCursor != "" {
			cursor = page.NextCursor
		}
		if !page.HasMore {
			return nil
		}
		o.setPhase(models.PhasePulling)
	}
}

func (o *syncOrchestrator) announceMerge(report *models.CycleReport, results []models.MergeResult) {
	for _, r := range results {
		switch r.Outcome {
		case models.MergeConflicted:
			report.Conflicts++
			report.Conflicted = append(report.Conflicted, &ConflictedError{ID: r.ID})
			o.publisher.Publish(models.RecordConflicted{ID: r.ID})
			o.publisher.Publish(models.RecordChanged{ID: r.ID})
		case models.MergeInserted, models.MergeRemoteWins, models.MergeDeleted:
			o.publisher.Publish(models.RecordChanged{ID: r.ID})
		}
	}
}

// finishCycle records the outcome and schedules a retry when appropriate.
// Must be called with o.mu held; returns the events to publish once the lock
// is released.
func (o *syncOrchestrator) finishCycle(result models.CycleResult) []models.Event {
	report := result.Report
	o.status.LastCycle = &report
	o.status.LastError = result.Err
	o.status.RetryAt = time.Time{}

	var evs []models.Event
	err := result.Err

	switch {
	case err == nil:
		o.backoff = nil
		o.blocked = nil
		o.status.Phase = models.PhaseIdle
		o.status.AuthBlocked = false
		evs = append(evs, models.SyncCycleCompleted{
			Pushed:    report.Pushed,
			Pulled:    report.Pulled,
			Conflicts: report.Conflicts,
		})
	case o.halted():
		o.status.Phase = models.PhaseError
	case errors.Is(err, adapter.ErrAuth):
		o.blocked = err
		o.status.Phase = models.PhaseError
		o.status.AuthBlocked = true
	case errors.Is(err, adapter.ErrPermanent), errors.Is(err, ErrCursorNotAdvancing):
		o.blocked = err
		o.status.Phase = models.PhaseError
	default:
		delay := o.nextBackoff()
		o.status.Phase = models.PhaseError
		o.status.RetryAt = o.now().Add(delay)
		o.retryTimer = time.AfterFunc(delay, func() { o.Trigger(models.TriggerRetry) })
	}

	return append(evs, models.SyncStatusChanged{Status: o.snapshot()})
}

func (o *syncOrchestrator) nextBackoff() time.Duration {
	if o.backoff == nil {
		o.backoff = retry.WithCappedDuration(o.cfg.MaxBackoff, retry.NewExponential(o.cfg.MinBackoff))
	}
	delay, _ := o.backoff.Next()
	return delay
}

func (o *syncOrchestrator) stopRetryTimer() {
	if o.retryTimer != nil {
		o.retryTimer.Stop()
		o.retryTimer = nil
	}
}

func (o *syncOrchestrator) setPhase(phase models.Phase) {
	o.mu.Lock()
	o.status.Phase = phase
	snap := o.snapshot()
	o.mu.Unlock()

	o.publisher.Publish(models.SyncStatusChanged{Status: snap})
}

// snapshot must be called with o.mu held.
func (o *syncOrchestrator) snapshot() models.SyncStatus {
	snap := o.status
	if o.status.LastCycle != nil {
		report := *o.status.LastCycle
		snap.LastCycle = &report
	}
	return snap
}

var reasonRank = map[models.TriggerReason]int{
	models.TriggerPeriodic:    1,
	models.TriggerRetry:       2,
	models.TriggerReachable:   3,
	models.TriggerCredentials: 4,
	models.TriggerManual:      5,
}

func strongerReason(a, b models.TriggerReason) models.TriggerReason {
	if reasonRank[b] > reasonRank[a] {
		return b
	}
	return a
}
