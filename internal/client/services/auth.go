package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/client"
	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/logging"
	"golang.org/x/time/rate"
)

// OTPResendInterval is the minimum gap between two emailed codes.
const OTPResendInterval = 30 * time.Second

const (
	secureUser   = "user"
	secureTokens = "tokens"
)

type storedTokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AuthService covers registration, login and password recovery, and keeps the
// signed-in user in the SecureStore between runs.
//
// Contract:
//   - SendEmailOTP / ForgotPassword: throttled to one code per OTPResendInterval.
//   - Register: the user must have verified their email first.
//   - Login / RestoreSession: set the client tokens and CurrentUser.
//   - Logout: forget tokens and the cached user.
type AuthService interface {
	Ping(ctx context.Context) error

	SendEmailOTP(ctx context.Context, email string) (*models.OTPChallenge, error)
	VerifyEmailOTP(ctx context.Context, verificationID, otp string) error
	Register(ctx context.Context, info models.UserInfo) (*models.User, error)

	Login(ctx context.Context, email, password string) (*models.User, error)
	// RestoreSession returns (nil, nil) when nothing usable is stored.
	RestoreSession(ctx context.Context) (*models.User, error)
	CurrentUser() *models.User
	Logout(ctx context.Context) error

	ForgotPassword(ctx context.Context, email string) (*models.OTPChallenge, error)
	VerifyForgotPassword(ctx context.Context, verificationID, otp string) error
	ResetPassword(ctx context.Context, email, newPassword string) error
}

type AuthOption func(*authService)

func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *authService) { s.now = now }
}

type authService struct {
	client  client.Client
	store   SecureStore
	log     logging.Logger
	now     func() time.Time
	limiter *rate.Limiter

	mu   sync.RWMutex
	user *models.User
}

func NewAuthService(c client.Client, store SecureStore, log logging.Logger, opts ...AuthOption) AuthService {
	if log == nil {
		log = logging.Nop()
	}
	s := &authService{
		client:  c,
		store:   store,
		log:     log,
		now:     time.Now,
		limiter: rate.NewLimiter(rate.Every(OTPResendInterval), 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) allowCode() error {
	if !a.limiter.AllowN(a.now(), 1) {
		return ErrOTPThrottled
	}
	return nil
}

func (a *authService) SendEmailOTP(ctx context.Context, email string) (*models.OTPChallenge, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if err := a.allowCode(); err != nil {
		return nil, err
	}
	ch, err := a.client.SendEmailOTP(ctx, email)
	if err != nil {
		return nil, err
	}
	a.log.Info(ctx, "verification code sent", "email", email)
	return ch, nil
}

func (a *authService) VerifyEmailOTP(ctx context.Context, verificationID, otp string) error {
	return a.client.VerifyEmailOTP(ctx, verificationID, strings.TrimSpace(otp))
}

func (a *authService) Register(ctx context.Context, info models.UserInfo) (*models.User, error) {
	info.TermsAccepted = true
	u, err := a.client.Register(ctx, info)
	if err != nil {
		return nil, err
	}
	if err := a.store.Put(ctx, secureUser, u); err != nil {
		a.log.Warn(ctx, "could not cache registered user", "error", err)
	}
	a.setUser(u)
	a.log.Info(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func (a *authService) Login(ctx context.Context, email, password string) (*models.User, error) {
	res, err := a.client.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		return nil, err
	}
	a.client.SetTokens(res.AccessToken, res.RefreshToken)

	u := res.User
	if err := a.store.Put(ctx, secureTokens, storedTokens{Access: res.AccessToken, Refresh: res.RefreshToken}); err != nil {
		a.log.Warn(ctx, "could not persist session", "error", err)
	}
	if err := a.store.Put(ctx, secureUser, &u); err != nil {
		a.log.Warn(ctx, "could not persist session", "error", err)
	}
	a.setUser(&u)
	a.log.Info(ctx, "logged in", "user_id", u.ID, "role", u.Role)
	return &u, nil
}

func (a *authService) RestoreSession(ctx context.Context) (*models.User, error) {
	var tok storedTokens
	ok, err := a.store.Get(ctx, secureTokens, &tok)
	if err != nil {
		return nil, err
	}
	if !ok || tok.Access == "" {
		return nil, nil
	}
	if client.TokenExpired(tok.Access, a.now()) {
		a.log.Info(ctx, "stored session expired")
		return nil, a.store.Delete(ctx, secureTokens, secureUser)
	}

	var u models.User
	ok, err = a.store.Get(ctx, secureUser, &u)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	a.client.SetTokens(tok.Access, tok.Refresh)
	a.setUser(&u)
	return &u, nil
}

func (a *authService) CurrentUser() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.user
}

func (a *authService) setUser(u *models.User) {
	a.mu.Lock()
	a.user = u
	a.mu.Unlock()
}

func (a *authService) Logout(ctx context.Context) error {
	a.client.SetTokens("", "")
	a.setUser(nil)
	return a.store.Delete(ctx, secureTokens, secureUser)
}

func (a *authService) ForgotPassword(ctx context.Context, email string) (*models.OTPChallenge, error) {
	if err := a.allowCode(); err != nil {
		return nil, err
	}
	return a.client.ForgotPassword(ctx, strings.TrimSpace(email))
}

func (a *authService) VerifyForgotPassword(ctx context.Context, verificationID, otp string) error {
	return a.client.VerifyForgotPassword(ctx, verificationID, strings.TrimSpace(otp))
}

func (a *authService) ResetPassword(ctx context.Context, email, newPassword string) error {
	if len(newPassword) < 6 {
		return errors.New("password must be at least 6 characters long")
	}
	return a.client.ResetPassword(ctx, strings.TrimSpace(email), newPassword)
}
