package cli

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/client"
	"github.com/dmitrijs2005/udinflow/internal/client/config"
	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/client/payment"
	"github.com/dmitrijs2005/udinflow/internal/client/pricing"
	"github.com/dmitrijs2005/udinflow/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/udinflow/internal/client/services"
	"github.com/dmitrijs2005/udinflow/internal/netx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliBackend implements the parts of client.Client the CLI flows reach.
type cliBackend struct {
	client.Client

	mu        sync.Mutex
	role      string
	loginErr  error
	pingErr   error
	access    string
	txs       map[string]*models.Transaction
	uploads   []models.DocumentUpload
	finalized []string
}

func newCLIBackend() *cliBackend {
	return &cliBackend{role: "user", txs: map[string]*models.Transaction{}}
}

func (b *cliBackend) Ping(ctx context.Context) error { return b.pingErr }

func (b *cliBackend) SetTokens(access, refresh string) {
	b.mu.Lock()
	b.access = access
	b.mu.Unlock()
}

func (b *cliBackend) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	if b.loginErr != nil {
		return nil, b.loginErr
	}
	return &models.LoginResult{
		AccessToken:  "access",
		RefreshToken: "refresh",
		User: models.User{
			ID:       "u1",
			Role:     b.role,
			UserInfo: models.UserInfo{Email: email, FirstName: "Asha", LastName: "Rao"},
		},
	}, nil
}

func (b *cliBackend) CreateTransaction(ctx context.Context, req *models.CreateTransactionRequest) (*models.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx := &models.Transaction{
		ID:            "db-" + req.TransactionID,
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		Documents:     req.Documents,
		Pricing:       &req.Pricing,
		Status:        req.Status,
	}
	b.txs[req.TransactionID] = tx
	return tx, nil
}

func (b *cliBackend) UpdateTransaction(ctx context.Context, id string, upd *models.TransactionUpdate) (*models.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, ok := b.txs[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	tx.Status, tx.PaymentStatus, tx.Payment = upd.Status, upd.PaymentStatus, upd.Payment
	return tx, nil
}

func (b *cliBackend) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	tx, ok := b.txs[id]
	if !ok {
		return nil, client.ErrNotFound
	}
	return tx, nil
}

func (b *cliBackend) UploadDocument(ctx context.Context, up *models.DocumentUpload, progress netx.ProgressFunc) (*models.Document, error) {
	if progress != nil {
		progress(int64(len(up.Content)), int64(len(up.Content)))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads = append(b.uploads, *up)
	return &models.Document{ID: "d" + up.FileName, FileName: up.FileName, DocumentType: up.DocumentType, Status: models.DocumentStatusPending}, nil
}

func (b *cliBackend) FinalizeTransaction(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.finalized = append(b.finalized, id)
	return nil
}

func (b *cliBackend) DocumentsByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var docs []*models.Document
	for _, up := range b.uploads {
		docs = append(docs, &models.Document{ID: "d" + up.FileName, UserID: userID, FileName: up.FileName, DocumentType: up.DocumentType, Status: models.DocumentStatusPending})
	}
	return docs, nil
}

// failingStage rejects every write.
type failingStage struct {
	services.StageService
}

func (failingStage) Save(ctx context.Context, files []*models.StagedFile) error {
	return errors.New("disk full")
}

type appFixture struct {
	app *App
	out *bytes.Buffer
	api *cliBackend
	db  *sql.DB
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DatabasePath = ":memory:"
	cfg.OnlineCheckInterval = 0
	return cfg
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// newAppFixture wires the real services over an in-memory database. Input is
// the scripted stdin shared by the REPL, the prompts and the payment widget.
func newAppFixture(t *testing.T, db *sql.DB, input string) *appFixture {
	t.Helper()
	ctx := context.Background()

	oldTerm := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = oldTerm })

	catalog, err := pricing.Default()
	require.NoError(t, err)

	meta := metadata.NewSQLiteRepository(db)
	store, err := services.NewSecureStore(ctx, meta, nil, nil)
	require.NoError(t, err)

	api := newCLIBackend()
	stage := services.NewStageService(db, nil)
	out := &bytes.Buffer{}

	cfg := testConfig()
	a := NewApp(cfg, Deps{Catalog: catalog, Stage: stage}, strings.NewReader(input), out)
	a.deps.Auth = services.NewAuthService(api, store, nil)
	a.deps.Uploads = services.NewUploadService(api, stage, meta, nil)
	a.deps.Checkout = services.NewCheckoutService(api, catalog, payment.NewConsoleWidget(a.reader, out), meta, nil)
	a.deps.Admin = services.NewAdminService(api, cfg.Limits(), nil)

	return &appFixture{app: a, out: out, api: api, db: db}
}

func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	body := append([]byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n"), bytes.Repeat([]byte(" "), 2048)...)
	body = append(body, []byte("\n%%EOF\n")...)
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, body, 0o600))
	return p
}

func TestApp_StageCommands(t *testing.T) {
	f := newAppFixture(t, openTestDB(t), "")
	ctx := context.Background()
	dir := t.TempDir()

	a := writePDF(t, dir, "networth.pdf")
	b := writePDF(t, dir, "turnover.pdf")
	tiny := filepath.Join(dir, "tiny.pdf")
	require.NoError(t, os.WriteFile(tiny, []byte("%PDF-1.4"), 0o600))

	require.NoError(t, f.app.Exec(ctx, "add", []string{a, b, tiny}))
	assert.Contains(t, f.out.String(), "Rejected tiny.pdf")
	assert.Contains(t, f.out.String(), "Staged 2 file(s)")
	require.Len(t, f.app.snapshot(), 2)

	err := f.app.Exec(ctx, "price", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "classify")

	require.NoError(t, f.app.Exec(ctx, "classify", []string{"1", "net-worth-certificate"}))
	require.NoError(t, f.app.Exec(ctx, "classify", []string{"2", "turnover-certificate"}))
	assert.Error(t, f.app.Exec(ctx, "classify", []string{"3", "turnover-certificate"}))
	assert.Error(t, f.app.Exec(ctx, "classify", []string{"1", "no-such-type"}))

	f.out.Reset()
	require.NoError(t, f.app.Exec(ctx, "price", nil))
	assert.Contains(t, f.out.String(), "3540")

	f.out.Reset()
	require.NoError(t, f.app.Exec(ctx, "list", nil))
	assert.Contains(t, f.out.String(), "networth.pdf")
	assert.Contains(t, f.out.String(), "turnover.pdf")

	require.NoError(t, f.app.Exec(ctx, "remove", []string{"1"}))
	files := f.app.snapshot()
	require.Len(t, files, 1)
	assert.Equal(t, "turnover.pdf", files[0].Name)

	loaded, err := f.app.deps.Stage.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "turnover-certificate", loaded[0].DocumentType)

	require.NoError(t, f.app.Exec(ctx, "reset", nil))
	assert.Empty(t, f.app.snapshot())
	assert.False(t, f.app.deps.Stage.HasStaged(ctx))
}

func TestApp_RestoreNotice(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	dir := t.TempDir()

	first := newAppFixture(t, db, "")
	require.NoError(t, first.app.Exec(ctx, "add", []string{writePDF(t, dir, "kept.pdf")}))

	second := newAppFixture(t, db, "")
	second.app.Restore(ctx)

	out := second.out.String()
	assert.Contains(t, out, "Restored 1 file(s) from your previous session")
	assert.Contains(t, out, "kept.pdf")
	assert.Contains(t, out, "reset")
	assert.Len(t, second.app.snapshot(), 1)
}

func TestApp_PersistDegradesToMemory(t *testing.T) {
	f := newAppFixture(t, openTestDB(t), "")
	f.app.deps.Stage = failingStage{StageService: f.app.deps.Stage}
	ctx := context.Background()
	dir := t.TempDir()

	require.NoError(t, f.app.Exec(ctx, "add", []string{writePDF(t, dir, "a.pdf")}))
	require.NoError(t, f.app.Exec(ctx, "add", []string{writePDF(t, dir, "b.pdf")}))

	assert.Len(t, f.app.snapshot(), 2)
	assert.Equal(t, 1, strings.Count(f.out.String(), "could not be saved locally"))

	f.out.Reset()
	require.NoError(t, f.app.Exec(ctx, "status", nil))
	assert.Contains(t, f.out.String(), "memory only")
}

func TestApp_LoginPayUpload(t *testing.T) {
	dir := t.TempDir()
	path := writePDF(t, dir, "networth.pdf")

	input := strings.Join([]string{
		"login",
		"asha@example.com",
		"secret1",
		"add " + path,
		"classify 1 net-worth-certificate",
		"pay",
		"y",
		"upload",
		"docs",
		"exit",
	}, "\n") + "\n"

	f := newAppFixture(t, openTestDB(t), input)
	ctx := context.Background()

	runREPL(ctx, f.app, f.app.getStatus, f.app.reader, f.out)

	out := f.out.String()
	assert.Contains(t, out, "Logged in as asha@example.com")
	assert.Contains(t, out, "Payment successful")
	assert.Contains(t, out, "Uploaded 1 document(s)")
	assert.NotContains(t, out, "Error:")

	require.Len(t, f.api.uploads, 1)
	up := f.api.uploads[0]
	assert.Equal(t, "u1", up.UserID)
	assert.Equal(t, "networth.pdf", up.FileName)
	assert.Equal(t, "net-worth-certificate", up.DocumentType)
	assert.Equal(t, "application/pdf", up.ContentType)
	require.Len(t, f.api.finalized, 1)
	assert.Equal(t, up.TransactionID, f.api.finalized[0])

	tx := f.api.txs[up.TransactionID]
	require.NotNil(t, tx)
	assert.True(t, tx.IsPaid())

	assert.Empty(t, f.app.snapshot())
	assert.False(t, f.app.deps.Stage.HasStaged(ctx))
	cur, err := f.app.deps.Checkout.CurrentTransaction(ctx)
	require.NoError(t, err)
	assert.Empty(t, cur)
}

func TestApp_UploadUnpaidKeepsStage(t *testing.T) {
	f := newAppFixture(t, openTestDB(t), "")
	ctx := context.Background()
	dir := t.TempDir()

	f.api.txs["TXN_1"] = &models.Transaction{TransactionID: "TXN_1", UserID: "u1", Status: models.TransactionStatusPending}

	require.NoError(t, f.app.Exec(ctx, "add", []string{writePDF(t, dir, "a.pdf")}))
	require.NoError(t, f.app.Exec(ctx, "classify", []string{"1", "net-worth-certificate"}))

	err := f.app.Exec(ctx, "upload", []string{"TXN_1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrNotPaid)
	assert.Empty(t, f.api.uploads)
	assert.Len(t, f.app.snapshot(), 1)
	assert.True(t, f.app.deps.Stage.HasStaged(ctx))
}

func TestApp_Guards(t *testing.T) {
	f := newAppFixture(t, openTestDB(t), "")
	ctx := context.Background()

	assert.ErrorIs(t, f.app.Exec(ctx, "pay", nil), services.ErrNotLoggedIn)
	assert.ErrorIs(t, f.app.Exec(ctx, "docs", nil), services.ErrNotLoggedIn)
	assert.ErrorIs(t, f.app.Exec(ctx, "admin", []string{"users"}), errNotAdmin)
	assert.ErrorIs(t, f.app.Exec(ctx, "upload", nil), errNoStaged)
	assert.ErrorIs(t, f.app.Exec(ctx, "quit", nil), errQuit)

	err := f.app.Exec(ctx, "frobnicate", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

func TestApp_LoginFailureKeepsLoggedOut(t *testing.T) {
	f := newAppFixture(t, openTestDB(t), "asha@example.com\nwrong\n")
	f.api.loginErr = client.ErrUnauthorized

	err := f.app.Exec(context.Background(), "login", nil)
	assert.ErrorIs(t, err, client.ErrUnauthorized)
	assert.False(t, f.app.isLoggedIn())
}

func TestApp_StatusWatcherSetsMode(t *testing.T) {
	f := newAppFixture(t, openTestDB(t), "")
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.app.StartOnlineStatusWatcher(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		f.app.mu.Lock()
		defer f.app.mu.Unlock()
		return f.app.mode == ModeOnline
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
	assert.Equal(t, "(online)", f.app.getStatus())
}
