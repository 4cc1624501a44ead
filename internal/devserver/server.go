package devserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/logging"
	"github.com/gin-gonic/gin"
)

const (
	roleAdmin = "admin"
	roleUser  = "user"
)

type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	OTPTTL     time.Duration

	// AdminEmail and AdminPassword seed a staff account when both are set.
	AdminEmail    string
	AdminPassword string
}

func DefaultConfig() Config {
	return Config{
		JWTSecret:  "dev-secret",
		AccessTTL:  time.Hour,
		RefreshTTL: 7 * 24 * time.Hour,
		OTPTTL:     5 * time.Minute,
	}
}

type Server struct {
	cfg    Config
	store  *Store
	log    logging.Logger
	now    func() time.Time
	engine *gin.Engine
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithStore(st *Store) Option {
	return func(s *Server) { s.store = st }
}

func New(cfg Config, log logging.Logger, opts ...Option) (*Server, error) {
	if log == nil {
		log = logging.Nop()
	}
	s := &Server{cfg: cfg, store: NewStore(), log: log, now: time.Now}
	for _, o := range opts {
		o(s)
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		info := models.UserInfo{Email: cfg.AdminEmail, FirstName: "Admin", TermsAccepted: true}
		if _, err := s.store.CreateUser(info, roleAdmin, cfg.AdminPassword, s.now()); err != nil && !errors.Is(err, errConflict) {
			return nil, err
		}
	}

	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = 64 << 20
	r.Use(gin.Recovery(), requestLogger(s.log))

	api := r.Group("/api")
	api.GET("/health", s.health)

	auth := api.Group("/auth")
	auth.POST("/send-email-otp", s.sendEmailOTP)
	auth.POST("/verify-email-otp", s.verifyEmailOTP)
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)
	auth.POST("/forgot-password", s.forgotPassword)
	auth.POST("/verify-forgot-password", s.verifyForgotPassword)
	auth.POST("/reset-password", s.resetPassword)
	auth.GET("/users", s.requireAuth(), s.requireAdmin(), s.listUsers)

	tx := api.Group("/transactions", s.requireAuth())
	tx.POST("", s.createTransaction)
	tx.GET("/user/:userId", s.transactionsByUser)
	tx.GET("/:id", s.getTransaction)
	tx.PATCH("/:id", s.updateTransaction)

	docs := api.Group("/documents", s.requireAuth())
	docs.POST("/upload", s.uploadDocument)
	docs.GET("/user/:userId", s.documentsByUser)
	docs.GET("/transaction/:txId", s.documentsByTransaction)
	docs.PATCH("/:id/status", s.requireAdmin(), s.updateDocumentStatus)
	docs.PATCH("/:id/signed-file", s.requireAdmin(), s.uploadSignedFile)
	docs.DELETE("/:id", s.deleteDocument)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.Info(ctx, "dev server listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		s.log.Info(ctx, "dev server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{"status": "ok", "time": s.now().UTC()})
}
