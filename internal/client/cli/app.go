package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/client"
	"github.com/dmitrijs2005/udinflow/internal/client/config"
	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/client/payment"
	"github.com/dmitrijs2005/udinflow/internal/client/pricing"
	"github.com/dmitrijs2005/udinflow/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/udinflow/internal/client/services"
	"github.com/dmitrijs2005/udinflow/internal/logging"
	"github.com/dmitrijs2005/udinflow/internal/observability/metrics"
	"github.com/dmitrijs2005/udinflow/internal/resilience"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// Deps are the services an App drives.
type Deps struct {
	Auth     services.AuthService
	Stage    services.StageService
	Uploads  services.UploadService
	Checkout services.CheckoutService
	Admin    services.AdminService
	Catalog  *pricing.Catalog
	Metrics  *metrics.UploadMetrics
	Log      logging.Logger
}

type App struct {
	config *config.Config
	deps   Deps
	log    logging.Logger
	reader *bufio.Reader
	out    io.Writer
	now    func() time.Time

	mu    sync.Mutex
	mode  Mode
	files []*models.StagedFile
	// durable is false once the stage failed to save; files then live in
	// memory only until a save succeeds again.
	durable bool

	closers []func() error
}

func NewApp(cfg *config.Config, d Deps, in io.Reader, out io.Writer) *App {
	if d.Log == nil {
		d.Log = logging.Nop()
	}
	return &App{
		config:  cfg,
		deps:    d,
		log:     d.Log,
		reader:  bufio.NewReader(in),
		out:     out,
		now:     time.Now,
		durable: true,
	}
}

// Bootstrap opens the local database and wires the production services.
func Bootstrap(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*App, error) {
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	dsn, err := cfg.DatabaseDSN()
	if err != nil {
		return nil, err
	}
	db, err := client.InitDatabase(ctx, dsn)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	catalog, err := pricing.Default()
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	meta := metadata.NewSQLiteRepository(db)
	store, err := services.NewSecureStore(ctx, meta, []byte(cfg.SecurePassphrase), log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	m := metrics.NewUploadMetrics()
	exec := resilience.NewExecutor(resilience.DefaultConfig(), log)
	api := client.NewHTTPClient(cfg.APIBaseURL, cfg.RequestTimeout, exec, log)
	stage := services.NewStageService(db, log, services.WithStageMetrics(m))

	a := NewApp(cfg, Deps{Log: log, Catalog: catalog, Metrics: m, Stage: stage}, in, out)
	a.deps.Auth = services.NewAuthService(api, store, log)
	a.deps.Uploads = services.NewUploadService(api, stage, meta, log, services.WithUploadMetrics(m))
	a.deps.Checkout = services.NewCheckoutService(api, catalog, payment.NewConsoleWidget(a.reader, out), meta, log,
		services.WithPaymentKey(cfg.PaymentKeyID))
	a.deps.Admin = services.NewAdminService(api, cfg.Limits(), log)
	a.closers = append(a.closers, db.Close)
	return a, nil
}

// Close releases the local database.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Restore brings back the signed-in user and any staged files from a
// previous run.
func (a *App) Restore(ctx context.Context) {
	if u, err := a.deps.Auth.RestoreSession(ctx); err != nil {
		a.log.Warn(ctx, "could not restore session", "error", err)
	} else if u != nil {
		fmt.Fprintf(a.out, "Signed in as %s.\n", u.Email)
	}

	if !a.deps.Stage.HasStaged(ctx) {
		return
	}
	files, err := a.deps.Stage.Load(ctx)
	if err != nil {
		a.log.Warn(ctx, "could not restore staged files", "error", err)
		return
	}
	a.mu.Lock()
	a.files = files
	a.mu.Unlock()

	if len(files) > 0 {
		fmt.Fprintf(a.out, "Restored %d file(s) from your previous session:\n", len(files))
		a.printFiles(files)
		fmt.Fprintln(a.out, "Type 'reset' to start fresh.")
	}
}

// Run restores state, starts the background watchers and serves the REPL
// until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintln(a.out, "Welcome to the UDIN client (type 'help' for commands)")
	a.Restore(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if a.config.OnlineCheckInterval > 0 {
		go a.StartOnlineStatusWatcher(ctx, a.config.OnlineCheckInterval)
	}
	a.startMetricsServer(ctx)

	runREPL(ctx, a, a.getStatus, a.reader, a.out)
}

func (a *App) getStatus() string {
	var parts []string
	if u := a.currentUser(); u != nil {
		parts = append(parts, u.Email)
	}
	a.mu.Lock()
	if a.mode != "" {
		parts = append(parts, string(a.mode))
	}
	if n := len(a.files); n > 0 {
		parts = append(parts, fmt.Sprintf("%d staged", n))
	}
	a.mu.Unlock()
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (a *App) currentUser() *models.User {
	if a.deps.Auth == nil {
		return nil
	}
	return a.deps.Auth.CurrentUser()
}

func (a *App) isLoggedIn() bool {
	return a.currentUser() != nil
}

func (a *App) isAdmin() bool {
	u := a.currentUser()
	return u != nil && u.IsAdmin()
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		a.log.Info(ctx, "connectivity changed", "mode", mode)
	}
}

// CheckOnline pings the backend once and records the resulting mode.
func (a *App) CheckOnline(ctx context.Context) Mode {
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	mode := ModeOnline
	if err := a.deps.Auth.Ping(pingCtx); err != nil {
		mode = ModeOffline
	}
	a.setMode(ctx, mode)
	return mode
}

// StartOnlineStatusWatcher pings the backend every interval until ctx ends.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	a.CheckOnline(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.CheckOnline(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) startMetricsServer(ctx context.Context) {
	if a.config.MetricsAddr == "" || a.deps.Metrics == nil {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.deps.Metrics.Handler())
	srv := &http.Server{Addr: a.config.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Warn(ctx, "metrics server stopped", "addr", a.config.MetricsAddr, "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	a.log.Info(ctx, "serving metrics", "addr", a.config.MetricsAddr)
}

func (a *App) snapshot() []*models.StagedFile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*models.StagedFile(nil), a.files...)
}

// persist saves the working set. A failing stage degrades to memory-only
// staging; the flow carries on.
func (a *App) persist(ctx context.Context) {
	files := a.snapshot()
	err := a.deps.Stage.Save(ctx, files)

	a.mu.Lock()
	wasDurable := a.durable
	a.durable = err == nil
	a.mu.Unlock()

	if err != nil {
		a.log.Warn(ctx, "stage unavailable, keeping files in memory only", "error", err)
		if wasDurable {
			fmt.Fprintln(a.out, "Warning: files could not be saved locally and will be lost if you quit.")
		}
	}
}
