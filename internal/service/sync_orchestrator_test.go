// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/mock"
	"github.com/MKhiriev/go-offline-sync/models"
)

type orchestratorFixture struct {
	o   *syncOrchestrator
	ls  *mock.MockLocalStore
	gw  *mock.MockRemoteGateway
	pub *recordingPublisher
}

func newTestOrchestrator(t *testing.T, cfg config.SyncSettings) orchestratorFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := orchestratorFixture{
		ls:  mock.NewMockLocalStore(ctrl),
		gw:  mock.NewMockRemoteGateway(ctrl),
		pub: &recordingPublisher{},
	}
	f.o = NewSyncOrchestrator(f.ls, f.gw, NewConflictResolver(), f.pub, cfg, logger.Nop()).(*syncOrchestrator)
	f.o.Start(context.Background())
	t.Cleanup(f.o.Stop)

	return f
}

func testSettings() config.SyncSettings {
	return config.SyncSettings{
		PushBatchSize: 10,
		PullPageSize:  20,
		MinBackoff:    time.Hour,
		MaxBackoff:    2 * time.Hour,
	}
}

func await(t *testing.T, ch <-chan models.CycleResult) models.CycleResult {
	t.Helper()

	select {
	case res := <-ch:
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for sync cycle")
		return models.CycleResult{}
	}
}

// expectEmptyPull sets up a pull phase that finds nothing new.
func (f orchestratorFixture) expectEmptyPull(times int) {
	f.ls.EXPECT().Cursor(gomock.Any()).Return(models.Cursor("c0"), nil).Times(times)
	f.gw.EXPECT().Pull(gomock.Any(), models.Cursor("c0"), gomock.Any()).
		Return(models.PullPage{NextCursor: "c0"}, nil).Times(times)
	f.ls.EXPECT().ApplyRemotePage(gomock.Any(), gomock.Any(), models.Cursor("c0"), gomock.Any()).
		Return(nil, nil).Times(times)
}

func dirty(id string, lm int64) models.Record {
	return models.Record{ID: id, Payload: json.RawMessage(`{"id":"` + id + `"}`), LastModified: lm, SyncState: models.SyncStateDirty}
}

func phases(events []models.Event) []models.Phase {
	var out []models.Phase
	for _, ev := range events {
		if s, ok := ev.(models.SyncStatusChanged); ok {
			out = append(out, s.Status.Phase)
		}
	}
	return out
}

// ── lifecycle ────────────────────────────────────────────────────────────────

func TestSyncOrchestrator_TriggerBeforeStart(t *testing.T) {
	o := NewSyncOrchestrator(nil, nil, NewConflictResolver(), &recordingPublisher{}, testSettings(), logger.Nop())

	res := await(t, o.Trigger(models.TriggerManual))
	assert.ErrorIs(t, res.Err, ErrOrchestratorStopped)
}

func TestSyncOrchestrator_TriggerAfterStop(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())
	f.o.Stop()

	res := await(t, f.o.Trigger(models.TriggerManual))
	assert.ErrorIs(t, res.Err, ErrOrchestratorStopped)
}

func TestSyncOrchestrator_DefaultSettings(t *testing.T) {
	o := NewSyncOrchestrator(nil, nil, nil, nil, config.SyncSettings{PushBatchSize: 7}, logger.Nop()).(*syncOrchestrator)

	defaults := config.DefaultSyncSettings()
	assert.Equal(t, 7, o.cfg.PushBatchSize)
	assert.Equal(t, defaults.PullPageSize, o.cfg.PullPageSize)
	assert.Equal(t, defaults.MinBackoff, o.cfg.MinBackoff)
	assert.Equal(t, defaults.MaxBackoff, o.cfg.MaxBackoff)
	assert.Equal(t, models.PhaseIdle, o.Status().Phase)
}

// ── full cycle ───────────────────────────────────────────────────────────────

func TestSyncOrchestrator_Cycle_PushAndPull(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())

	a, b := dirty("a", 100), dirty("b", 101)
	remote := models.Record{ID: "7", Payload: json.RawMessage(`{"v":1}`), LastModified: 200}

	f.ls.EXPECT().ListDirty(gomock.Any(), models.DirtyKey{}, 10).Return([]models.Record{a, b}, nil)
	f.gw.EXPECT().Push(gomock.Any(), []models.Record{a, b}).Return(models.PushResponse{Results: []models.PushItemResult{
		{ID: "a", Status: models.PushStatusAcked, ServerTimestamp: 100},
		{ID: "b", Status: models.PushStatusRejected, Reason: "payload too large"},
	}}, nil)
	f.ls.EXPECT().MarkClean(gomock.Any(), "a", int64(100)).Return(true, nil)
	f.ls.EXPECT().Cursor(gomock.Any()).Return(models.Cursor(""), nil)
	f.gw.EXPECT().Pull(gomock.Any(), models.Cursor(""), 20).
		Return(models.PullPage{Records: []models.Record{remote}, NextCursor: "c1"}, nil)
	f.ls.EXPECT().ApplyRemotePage(gomock.Any(), []models.Record{remote}, models.Cursor("c1"), gomock.Any()).
		Return([]models.MergeResult{{ID: "7", Outcome: models.MergeInserted}}, nil)

	res := await(t, f.o.Trigger(models.TriggerManual))
	require.NoError(t, res.Err)

	assert.Equal(t, models.TriggerManual, res.Report.Reason)
	assert.Equal(t, 1, res.Report.Pushed)
	assert.Equal(t, 1, res.Report.Rejected)
	assert.Equal(t, 1, res.Report.Pulled)
	assert.Zero(t, res.Report.Conflicts)
	require.Len(t, res.Report.Rejections, 1)

	var rejected *RejectedError
	require.ErrorAs(t, res.Report.Rejections[0], &rejected)
	assert.Equal(t, "b", rejected.ID)
	assert.Equal(t, "payload too large", rejected.Reason)

	events := f.pub.all()
	assert.Contains(t, events, models.RecordRejected{ID: "b", Reason: "payload too large"})
	assert.Contains(t, events, models.SyncCycleCompleted{Pushed: 1, Pulled: 1})
	assert.ElementsMatch(t, []string{"a", "7"}, f.pub.changed())
	assert.Equal(t, []models.Phase{
		models.PhasePushing, models.PhasePulling, models.PhaseMerging, models.PhaseIdle,
	}, phases(events))

	status := f.o.Status()
	assert.Equal(t, models.PhaseIdle, status.Phase)
	assert.NoError(t, status.LastError)
	require.NotNil(t, status.LastCycle)
	assert.Equal(t, 1, status.LastCycle.Pushed)
}

func TestSyncOrchestrator_Push_KeysetBatches(t *testing.T) {
	cfg := testSettings()
	cfg.PushBatchSize = 2
	f := newTestOrchestrator(t, cfg)

	a, b, c := dirty("a", 100), dirty("b", 101), dirty("c", 102)
	ack := func(recs ...models.Record) models.PushResponse {
		var resp models.PushResponse
		for _, r := range recs {
			resp.Results = append(resp.Results, models.PushItemResult{ID: r.ID, Status: models.PushStatusAcked, ServerTimestamp: r.LastModified})
		}
		return resp
	}

	gomock.InOrder(
		f.ls.EXPECT().ListDirty(gomock.Any(), models.DirtyKey{}, 2).Return([]models.Record{a, b}, nil),
		f.gw.EXPECT().Push(gomock.Any(), []models.Record{a, b}).Return(ack(a, b), nil),
		f.ls.EXPECT().MarkClean(gomock.Any(), "a", int64(100)).Return(true, nil),
		// b was edited again while the push was in flight
		f.ls.EXPECT().MarkClean(gomock.Any(), "b", int64(101)).Return(false, nil),
		f.ls.EXPECT().ListDirty(gomock.Any(), models.DirtyKey{LastModified: 101, ID: "b"}, 2).Return([]models.Record{c}, nil),
		f.gw.EXPECT().Push(gomock.Any(), []models.Record{c}).Return(ack(c), nil),
		f.ls.EXPECT().MarkClean(gomock.Any(), "c", int64(102)).Return(true, nil),
	)
	f.expectEmptyPull(1)

	res := await(t, f.o.Trigger(models.TriggerManual))
	require.NoError(t, res.Err)
	assert.Equal(t, 3, res.Report.Pushed)
	assert.Equal(t, []string{"a", "c"}, f.pub.changed())
}

func TestSyncOrchestrator_Push_MissingResultIsRejected(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())

	f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]models.Record{dirty("a", 100), dirty("b", 101)}, nil)
	f.gw.EXPECT().Push(gomock.Any(), gomock.Any()).
		Return(models.PushResponse{Results: []models.PushItemResult{
			{ID: "b", Status: models.PushStatusAcked, ServerTimestamp: 101},
		}}, nil)
	f.ls.EXPECT().MarkClean(gomock.Any(), "b", int64(101)).Return(true, nil)
	f.ls.EXPECT().MarkClean(gomock.Any(), "a", gomock.Any()).Times(0)
	f.expectEmptyPull(1)

	res := await(t, f.o.Trigger(models.TriggerManual))
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Report.Pushed)
	assert.Equal(t, 1, res.Report.Rejected)

	require.Len(t, res.Report.Rejections, 1)
	var rejected *RejectedError
	require.ErrorAs(t, res.Report.Rejections[0], &rejected)
	assert.Equal(t, "a", rejected.ID)
	assert.Equal(t, reasonNoResult, rejected.Reason)
	assert.Contains(t, f.pub.all(), models.RecordRejected{ID: "a", Reason: reasonNoResult})
}

func TestSyncOrchestrator_Pull_PagesAndConflicts(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())

	x := models.Record{ID: "x", Payload: json.RawMessage(`{}`), LastModified: 10}
	y := models.Record{ID: "y", LastModified: 11, Tombstone: true}

	f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	f.ls.EXPECT().Cursor(gomock.Any()).Return(models.Cursor("c0"), nil)
	gomock.InOrder(
		f.gw.EXPECT().Pull(gomock.Any(), models.Cursor("c0"), 20).
			Return(models.PullPage{Records: []models.Record{x}, NextCursor: "c1", HasMore: true}, nil),
		f.ls.EXPECT().ApplyRemotePage(gomock.Any(), []models.Record{x}, models.Cursor("c1"), gomock.Any()).
			Return([]models.MergeResult{{ID: "x", Outcome: models.MergeRemoteWins}}, nil),
		f.gw.EXPECT().Pull(gomock.Any(), models.Cursor("c1"), 20).
			Return(models.PullPage{Records: []models.Record{y}, NextCursor: "c2"}, nil),
		f.ls.EXPECT().ApplyRemotePage(gomock.Any(), []models.Record{y}, models.Cursor("c2"), gomock.Any()).
			Return([]models.MergeResult{{ID: "y", Outcome: models.MergeConflicted}}, nil),
	)

	res := await(t, f.o.Trigger(models.TriggerManual))
	require.NoError(t, res.Err)
	assert.Equal(t, 2, res.Report.Pulled)
	assert.Equal(t, 1, res.Report.Conflicts)
	require.Len(t, res.Report.Conflicted, 1)

	var conflicted *ConflictedError
	require.ErrorAs(t, res.Report.Conflicted[0], &conflicted)
	assert.Equal(t, "y", conflicted.ID)

	events := f.pub.all()
	assert.Contains(t, events, models.RecordConflicted{ID: "y"})
	assert.Contains(t, events, models.SyncCycleCompleted{Pulled: 2, Conflicts: 1})
	assert.Equal(t, []models.Phase{
		models.PhasePushing,
		models.PhasePulling, models.PhaseMerging,
		models.PhasePulling, models.PhaseMerging,
		models.PhaseIdle,
	}, phases(events))
}

func TestSyncOrchestrator_Pull_CursorNotAdvancing(t *testing.T) {
	tests := []struct {
		name   string
		stored models.Cursor
		next   models.Cursor
	}{
		{name: "empty next cursor", stored: "c5", next: ""},
		{name: "same cursor", stored: "c5", next: "c5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestOrchestrator(t, testSettings())

			f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
			f.ls.EXPECT().Cursor(gomock.Any()).Return(tt.stored, nil)
			f.gw.EXPECT().Pull(gomock.Any(), tt.stored, gomock.Any()).
				Return(models.PullPage{Records: []models.Record{{ID: "x", LastModified: 1}}, NextCursor: tt.next, HasMore: true}, nil)
			f.ls.EXPECT().ApplyRemotePage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

			res := await(t, f.o.Trigger(models.TriggerManual))
			assert.ErrorIs(t, res.Err, ErrCursorNotAdvancing)

			// protocol errors are not retried automatically
			status := f.o.Status()
			assert.Equal(t, models.PhaseError, status.Phase)
			assert.True(t, status.RetryAt.IsZero())
			assert.ErrorIs(t, await(t, f.o.Trigger(models.TriggerReachable)).Err, ErrTriggerSuppressed)
		})
	}
}

// ── failures ─────────────────────────────────────────────────────────────────

func TestSyncOrchestrator_TransportError_BacksOff(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())

	f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	f.ls.EXPECT().Cursor(gomock.Any()).Return(models.Cursor("c0"), nil).Times(2)
	gomock.InOrder(
		f.gw.EXPECT().Pull(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.PullPage{}, fmt.Errorf("%w: connection refused", adapter.ErrTransport)),
		f.gw.EXPECT().Pull(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.PullPage{NextCursor: "c0"}, nil),
	)
	f.ls.EXPECT().ApplyRemotePage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	before := time.Now()
	res := await(t, f.o.Trigger(models.TriggerPeriodic))
	require.ErrorIs(t, res.Err, adapter.ErrTransport)

	status := f.o.Status()
	assert.Equal(t, models.PhaseError, status.Phase)
	assert.ErrorIs(t, status.LastError, adapter.ErrTransport)
	assert.False(t, status.AuthBlocked)
	assert.WithinDuration(t, before.Add(time.Hour), status.RetryAt, 5*time.Second)

	// periodic triggers wait for the backoff, reachability does not
	assert.ErrorIs(t, await(t, f.o.Trigger(models.TriggerPeriodic)).Err, ErrTriggerSuppressed)

	res = await(t, f.o.Trigger(models.TriggerReachable))
	require.NoError(t, res.Err)

	status = f.o.Status()
	assert.Equal(t, models.PhaseIdle, status.Phase)
	assert.True(t, status.RetryAt.IsZero())
	assert.Nil(t, f.o.backoff)
}

func TestSyncOrchestrator_TransportError_RetryTimerFires(t *testing.T) {
	cfg := testSettings()
	cfg.MinBackoff = 10 * time.Millisecond
	cfg.MaxBackoff = 20 * time.Millisecond
	f := newTestOrchestrator(t, cfg)

	f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	f.ls.EXPECT().Cursor(gomock.Any()).Return(models.Cursor("c0"), nil).Times(2)
	gomock.InOrder(
		f.gw.EXPECT().Pull(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.PullPage{}, fmt.Errorf("%w: timeout", adapter.ErrTransport)),
		f.gw.EXPECT().Pull(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.PullPage{NextCursor: "c0"}, nil),
	)
	f.ls.EXPECT().ApplyRemotePage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	res := await(t, f.o.Trigger(models.TriggerManual))
	require.Error(t, res.Err)

	require.Eventually(t, func() bool {
		s := f.o.Status()
		return s.Phase == models.PhaseIdle && s.LastCycle != nil && s.LastCycle.Reason == models.TriggerRetry
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSyncOrchestrator_NextBackoff(t *testing.T) {
	cfg := testSettings()
	cfg.MinBackoff = 100 * time.Millisecond
	cfg.MaxBackoff = 250 * time.Millisecond
	o := NewSyncOrchestrator(nil, nil, nil, nil, cfg, logger.Nop()).(*syncOrchestrator)

	var got []time.Duration
	for range 4 {
		got = append(got, o.nextBackoff())
	}
	assert.Equal(t, []time.Duration{
		100 * time.Millisecond, 200 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond,
	}, got)
}

func TestSyncOrchestrator_AuthError_BlocksUntilCredentials(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())

	f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).Times(2)
	f.ls.EXPECT().Cursor(gomock.Any()).Return(models.Cursor("c0"), nil).Times(2)
	gomock.InOrder(
		f.gw.EXPECT().Pull(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.PullPage{}, fmt.Errorf("%w: status 401", adapter.ErrAuth)),
		f.gw.EXPECT().SetToken("fresh-token"),
		f.gw.EXPECT().Pull(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(models.PullPage{NextCursor: "c0"}, nil),
	)
	f.ls.EXPECT().ApplyRemotePage(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	res := await(t, f.o.Trigger(models.TriggerReachable))
	require.ErrorIs(t, res.Err, adapter.ErrAuth)

	status := f.o.Status()
	assert.True(t, status.AuthBlocked)
	assert.Equal(t, models.PhaseError, status.Phase)
	assert.True(t, status.RetryAt.IsZero())

	for _, reason := range []models.TriggerReason{models.TriggerPeriodic, models.TriggerReachable, models.TriggerRetry} {
		assert.ErrorIs(t, await(t, f.o.Trigger(reason)).Err, ErrTriggerSuppressed, reason)
	}

	res = await(t, f.o.CredentialsRefreshed("fresh-token"))
	require.NoError(t, res.Err)
	assert.Equal(t, models.TriggerCredentials, res.Report.Reason)
	assert.False(t, f.o.Status().AuthBlocked)
}

func TestSyncOrchestrator_PermanentError_ManualRetries(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())

	f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).Return([]models.Record{dirty("a", 1)}, nil).Times(2)
	gomock.InOrder(
		f.gw.EXPECT().Push(gomock.Any(), gomock.Any()).
			Return(models.PushResponse{}, fmt.Errorf("%w: status 400", adapter.ErrPermanent)),
		f.gw.EXPECT().Push(gomock.Any(), gomock.Any()).
			Return(models.PushResponse{Results: []models.PushItemResult{{ID: "a", Status: models.PushStatusAcked, ServerTimestamp: 1}}}, nil),
	)
	f.ls.EXPECT().MarkClean(gomock.Any(), "a", int64(1)).Return(true, nil)
	f.expectEmptyPull(1)

	res := await(t, f.o.Trigger(models.TriggerPeriodic))
	require.ErrorIs(t, res.Err, adapter.ErrPermanent)
	assert.ErrorIs(t, await(t, f.o.Trigger(models.TriggerReachable)).Err, ErrTriggerSuppressed)

	report, err := f.o.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
}

func TestSyncOrchestrator_ConnectivityLost_CancelsPush(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())

	inPush := make(chan struct{})
	f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).Return([]models.Record{dirty("a", 1)}, nil)
	f.gw.EXPECT().Push(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ []models.Record) (models.PushResponse, error) {
			close(inPush)
			<-ctx.Done()
			return models.PushResponse{}, fmt.Errorf("%w: %w", adapter.ErrTransport, ctx.Err())
		})
	f.ls.EXPECT().MarkClean(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	ch := f.o.Trigger(models.TriggerManual)
	<-inPush
	f.o.ConnectivityLost()

	res := await(t, ch)
	assert.ErrorIs(t, res.Err, adapter.ErrTransport)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, models.PhaseError, f.o.Status().Phase)
}

func TestSyncOrchestrator_StartContextCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	ls := mock.NewMockLocalStore(ctrl)
	cfg := testSettings()
	cfg.MinBackoff = 5 * time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	o := NewSyncOrchestrator(ls, mock.NewMockRemoteGateway(ctrl), NewConflictResolver(), &recordingPublisher{}, cfg, logger.Nop()).(*syncOrchestrator)

	ctx, cancel := context.WithCancel(context.Background())
	o.Start(ctx)
	t.Cleanup(o.Stop)

	entered := make(chan struct{})
	ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ models.DirtyKey, _ int) ([]models.Record, error) {
			close(entered)
			<-ctx.Done()
			return nil, ctx.Err()
		}).Times(1)

	first := o.Trigger(models.TriggerPeriodic)
	<-entered
	cancel()

	res := await(t, first)
	assert.ErrorIs(t, res.Err, context.Canceled)

	// no retry is scheduled and later triggers are refused
	status := o.Status()
	assert.Equal(t, models.PhaseError, status.Phase)
	assert.True(t, status.RetryAt.IsZero())
	assert.Nil(t, o.retryTimer)
	assert.ErrorIs(t, await(t, o.Trigger(models.TriggerManual)).Err, ErrOrchestratorStopped)

	time.Sleep(30 * time.Millisecond)
}

func TestSyncOrchestrator_StoreError(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())
	storeErr := errors.New("database is locked")

	f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, storeErr)

	res := await(t, f.o.Trigger(models.TriggerManual))
	assert.ErrorIs(t, res.Err, storeErr)
	assert.False(t, f.o.Status().RetryAt.IsZero())
}

// ── coalescing ───────────────────────────────────────────────────────────────

func TestSyncOrchestrator_CoalescesTriggers(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())

	entered := make(chan struct{})
	gate := make(chan struct{})
	gomock.InOrder(
		f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, models.DirtyKey, int) ([]models.Record, error) {
				close(entered)
				<-gate
				return nil, nil
			}),
		f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil),
	)
	f.expectEmptyPull(2)

	first := f.o.Trigger(models.TriggerReachable)
	<-entered

	queued := []<-chan models.CycleResult{
		f.o.Trigger(models.TriggerPeriodic),
		f.o.Trigger(models.TriggerManual),
		f.o.Trigger(models.TriggerRetry),
	}
	close(gate)

	res := await(t, first)
	require.NoError(t, res.Err)
	assert.Equal(t, models.TriggerReachable, res.Report.Reason)

	for _, ch := range queued {
		res := await(t, ch)
		require.NoError(t, res.Err)
		assert.Equal(t, models.TriggerManual, res.Report.Reason)
	}

	completed := 0
	for _, ev := range f.pub.all() {
		if _, ok := ev.(models.SyncCycleCompleted); ok {
			completed++
		}
	}
	assert.Equal(t, 2, completed)
}

func TestSyncOrchestrator_SyncNow_ContextCancelled(t *testing.T) {
	f := newTestOrchestrator(t, testSettings())

	gate := make(chan struct{})
	f.ls.EXPECT().ListDirty(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, models.DirtyKey, int) ([]models.Record, error) {
			<-gate
			return nil, nil
		})
	f.expectEmptyPull(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.o.SyncNow(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(gate)
}

func TestStrongerReason(t *testing.T) {
	assert.Equal(t, models.TriggerManual, strongerReason("", models.TriggerManual))
	assert.Equal(t, models.TriggerReachable, strongerReason(models.TriggerReachable, models.TriggerPeriodic))
	assert.Equal(t, models.TriggerReachable, strongerReason(models.TriggerRetry, models.TriggerReachable))
	assert.Equal(t, models.TriggerManual, strongerReason(models.TriggerManual, models.TriggerCredentials))
}
