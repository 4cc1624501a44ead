package devserver

import (
	"encoding/binary"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const minPasswordLength = 6

type emailRequest struct {
	Email string `json:"email"`
}

type verifyRequest struct {
	VerificationID string `json:"verificationId"`
	OTP            string `json:"otp"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type resetRequest struct {
	Email       string `json:"email"`
	NewPassword string `json:"newPassword"`
}

func otpCode() string {
	n := binary.BigEndian.Uint32(common.GenerateRandByteArray(4)) % 1000000
	return fmt.Sprintf("%06d", n)
}

// issueOTP stores a fresh code and logs it; there is no mailer in development.
func (s *Server) issueOTP(c *gin.Context, email, purpose string) {
	ch := models.OTPChallenge{VerificationID: uuid.NewString(), ExpiresAt: s.now().Add(s.cfg.OTPTTL)}
	code := otpCode()
	s.store.NewOTP(ch.VerificationID, email, purpose, code, ch.ExpiresAt)
	s.log.Info(c.Request.Context(), "verification code issued", "email", email, "purpose", purpose, "code", code)
	ok(c, http.StatusOK, ch)
}

func bindEmail(c *gin.Context) (string, bool) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		fail(c, http.StatusBadRequest, "email is required")
		return "", false
	}
	return strings.TrimSpace(req.Email), true
}

func (s *Server) sendEmailOTP(c *gin.Context) {
	email, valid := bindEmail(c)
	if !valid {
		return
	}
	if s.store.HasUser(email) {
		fail(c, http.StatusConflict, "user already exists")
		return
	}
	s.issueOTP(c, email, purposeRegister)
}

func (s *Server) verify(c *gin.Context, purpose string) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.VerificationID == "" || req.OTP == "" {
		fail(c, http.StatusBadRequest, "verificationId and otp are required")
		return
	}
	if err := s.store.VerifyOTP(req.VerificationID, purpose, req.OTP, s.now()); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"verified": true})
}

func (s *Server) verifyEmailOTP(c *gin.Context) {
	s.verify(c, purposeRegister)
}

// register creates the account for a verified email and issues its first
// password.
func (s *Server) register(c *gin.Context) {
	var info models.UserInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(info.Email) == "" || info.FirstName == "" {
		fail(c, http.StatusBadRequest, "email and first name are required")
		return
	}
	if !info.TermsAccepted {
		fail(c, http.StatusBadRequest, "terms must be accepted")
		return
	}
	if !s.store.ConsumeVerified(info.Email, purposeRegister, s.now()) {
		failErr(c, errNotVerified)
		return
	}

	password := common.RandBase36(10)
	u, err := s.store.CreateUser(info, roleUser, password, s.now())
	if err != nil {
		failErr(c, err)
		return
	}
	s.log.Info(c.Request.Context(), "user registered", "user_id", u.ID, "email", u.Email, "password", password)
	ok(c, http.StatusCreated, u)
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		fail(c, http.StatusBadRequest, "email and password are required")
		return
	}
	u, err := s.store.Authenticate(req.Email, req.Password)
	if err != nil {
		failErr(c, err)
		return
	}

	access, err := GenerateToken(u.ID, u.Role, []byte(s.cfg.JWTSecret), s.now(), s.cfg.AccessTTL)
	if err != nil {
		failErr(c, fmt.Errorf("%w: %v", common.ErrorInternal, err))
		return
	}
	refresh, err := GenerateToken(u.ID, u.Role, []byte(s.cfg.JWTSecret), s.now(), s.cfg.RefreshTTL)
	if err != nil {
		failErr(c, fmt.Errorf("%w: %v", common.ErrorInternal, err))
		return
	}
	ok(c, http.StatusOK, models.LoginResult{AccessToken: access, RefreshToken: refresh, User: *u})
}

func (s *Server) forgotPassword(c *gin.Context) {
	email, valid := bindEmail(c)
	if !valid {
		return
	}
	if !s.store.HasUser(email) {
		fail(c, http.StatusNotFound, "user not found")
		return
	}
	s.issueOTP(c, email, purposeReset)
}

func (s *Server) verifyForgotPassword(c *gin.Context) {
	s.verify(c, purposeReset)
}

func (s *Server) resetPassword(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		fail(c, http.StatusBadRequest, "email is required")
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		fail(c, http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters long", minPasswordLength))
		return
	}
	if !s.store.ConsumeVerified(req.Email, purposeReset, s.now()) {
		fail(c, http.StatusBadRequest, "reset code not verified")
		return
	}
	if err := s.store.SetPassword(req.Email, req.NewPassword); err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, nil)
}

func (s *Server) listUsers(c *gin.Context) {
	ok(c, http.StatusOK, s.store.Users())
}
