package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"

	"github.com/MKhiriev/go-offline-sync/internal/adapter"
	"github.com/MKhiriev/go-offline-sync/internal/config"
	"github.com/MKhiriev/go-offline-sync/internal/connectivity"
	"github.com/MKhiriev/go-offline-sync/internal/events"
	"github.com/MKhiriev/go-offline-sync/internal/logger"
	"github.com/MKhiriev/go-offline-sync/internal/service"
	"github.com/MKhiriev/go-offline-sync/internal/store"
	"github.com/MKhiriev/go-offline-sync/internal/utils"
	"github.com/MKhiriev/go-offline-sync/internal/workers"
	"github.com/MKhiriev/go-offline-sync/models"
)

type App struct {
	cfg *config.ClientConfig

	store        store.LocalStore
	bus          *events.Bus
	records      service.RecordService
	orchestrator service.SyncOrchestrator
	monitor      *connectivity.Monitor
	prober       connectivity.Prober

	outMu sync.Mutex
	out   io.Writer

	logger *logger.Logger
}

// NewApp opens the local store and builds the sync engine described by cfg.
// Status lines and command output are written to out.
func NewApp(ctx context.Context, cfg *config.ClientConfig, out io.Writer, log *logger.Logger) (*App, error) {
	baseURL, err := utils.NormalizeBaseURL(cfg.Adapter.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid sync server address: %w", err)
	}

	gateway, err := adapter.NewHTTPRemoteGateway(cfg.Adapter, cfg.App, log)
	if err != nil {
		return nil, fmt.Errorf("create remote gateway: %w", err)
	}

	localStore, err := store.NewLocalStore(ctx, cfg.Storage, log)
	if err != nil {
		return nil, fmt.Errorf("create local store: %w", err)
	}

	prober := connectivity.NewHTTPProber(baseURL, cfg.Adapter.RequestTimeout)

	return newApp(cfg, localStore, gateway, prober, out, log), nil
}

func newApp(cfg *config.ClientConfig, localStore store.LocalStore, gateway adapter.RemoteGateway,
	prober connectivity.Prober, out io.Writer, log *logger.Logger) *App {
	bus := events.NewBus(log)

	return &App{
		cfg:          cfg,
		store:        localStore,
		bus:          bus,
		records:      service.NewRecordService(localStore, bus, log),
		orchestrator: service.NewSyncOrchestrator(localStore, gateway, service.NewConflictResolver(), bus, cfg.Sync, log),
		monitor:      connectivity.NewMonitor(cfg.Sync.ReachabilityDebounce, log),
		prober:       prober,
		out:          out,
		logger:       log,
	}
}

// Run executes the configured command. The local store is closed on return.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	unsubscribe := a.bus.Subscribe(a.printEvent)
	defer unsubscribe()

	a.orchestrator.Start(ctx)

	if len(a.cfg.Command) > 0 {
		return a.runCommand(ctx, a.cfg.Command[0], a.cfg.Command[1:])
	}
	return a.runDaemon(ctx)
}

// runDaemon keeps the store in sync until SIGINT or SIGTERM: an initial
// cycle on start, then cycles on reachability edges, retries and the
// periodic timer.
func (a *App) runDaemon(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws := workers.NewWorkers(
		workers.NewProber(a.monitor, a.prober, a.cfg.Sync.ProbeInterval),
		workers.NewConnectivityListener(a.monitor.Events(), a.orchestrator, a.logger),
		workers.NewPeriodicTrigger(a.orchestrator, a.cfg.Workers.SyncInterval, a.logger),
	)
	ws.Run(ctx)

	if _, err := a.orchestrator.SyncNow(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn().Err(err).Str("func", "*App.runDaemon").Msg("initial sync failed")
	}

	<-ctx.Done()
	a.orchestrator.Stop()
	ws.Wait()

	a.logger.Info().Msg("sync daemon stopped")
	return nil
}

func (a *App) close() {
	a.orchestrator.Stop()
	if err := a.store.Close(); err != nil {
		a.logger.Err(err).Str("func", "*App.close").Msg("error closing local store")
	}
}

func (a *App) printEvent(ev models.Event) {
	if line, ok := renderEvent(ev); ok {
		a.println(line)
	}
}

func (a *App) println(line string) {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintln(a.out, line)
}
