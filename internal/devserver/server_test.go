package devserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/common"
	"github.com/dmitrijs2005/udinflow/internal/netx"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time           { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (e envelope) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Data, v))
}

const (
	adminEmail    = "staff@example.com"
	adminPassword = "staff-pass"
)

func newTestServer(t *testing.T) (*Server, *testClock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := &testClock{t: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)}
	cfg := DefaultConfig()
	cfg.JWTSecret = "test-secret"
	cfg.AdminEmail, cfg.AdminPassword = adminEmail, adminPassword

	s, err := New(cfg, nil, WithClock(clk.now))
	require.NoError(t, err)
	return s, clk
}

func do(t *testing.T, s *Server, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}
	return serve(t, s, req)
}

func doUpload(t *testing.T, s *Server, method, path, token string, fields []netx.FormField, file *netx.FormFile) (int, envelope) {
	t.Helper()
	body, ct, err := netx.BuildMultipart(fields, file)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", ct)
	req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	return serve(t, s, req)
}

func serve(t *testing.T, s *Server, req *http.Request) (int, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func login(t *testing.T, s *Server, email, password string) models.LoginResult {
	t.Helper()
	code, env := do(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, code, env.Message)
	var res models.LoginResult
	env.decode(t, &res)
	return res
}

func seedUser(t *testing.T, s *Server, email string) models.LoginResult {
	t.Helper()
	_, err := s.store.CreateUser(models.UserInfo{Email: email, FirstName: "Asha"}, roleUser, "secret1", s.now())
	require.NoError(t, err)
	return login(t, s, email, "secret1")
}

func pdfFile(name string) *netx.FormFile {
	return &netx.FormFile{Field: "file", FileName: name, Type: "application/pdf", Content: []byte("%PDF-1.4\n%%EOF\n")}
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	code, env := do(t, s, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), `"status":"ok"`)
}

func TestRegisterAndResetPassword(t *testing.T) {
	s, _ := newTestServer(t)
	email := "asha@example.com"

	code, env := do(t, s, http.MethodPost, "/api/auth/send-email-otp", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, code)
	var ch models.OTPChallenge
	env.decode(t, &ch)
	require.NotEmpty(t, ch.VerificationID)

	code, _ = do(t, s, http.MethodPost, "/api/auth/verify-email-otp", "", map[string]string{"verificationId": ch.VerificationID, "otp": "nope"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, s, http.MethodPost, "/api/auth/verify-email-otp", "", map[string]string{"verificationId": ch.VerificationID, "otp": s.store.code(ch.VerificationID)})
	require.Equal(t, http.StatusOK, code)

	info := models.UserInfo{Email: email, FirstName: "Asha", LastName: "Rao", TermsAccepted: true}
	code, env = do(t, s, http.MethodPost, "/api/auth/register", "", info)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var u models.User
	env.decode(t, &u)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, roleUser, u.Role)

	// The verified code was consumed.
	code, _ = do(t, s, http.MethodPost, "/api/auth/register", "", info)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, s, http.MethodPost, "/api/auth/send-email-otp", "", map[string]string{"email": email})
	assert.Equal(t, http.StatusConflict, code)

	code, env = do(t, s, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": email})
	require.Equal(t, http.StatusOK, code)
	env.decode(t, &ch)
	code, _ = do(t, s, http.MethodPost, "/api/auth/verify-forgot-password", "", map[string]string{"verificationId": ch.VerificationID, "otp": s.store.code(ch.VerificationID)})
	require.Equal(t, http.StatusOK, code)

	code, env = do(t, s, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": email, "newPassword": "abc"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "at least 6")

	code, _ = do(t, s, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": email, "newPassword": "brand-new"})
	require.Equal(t, http.StatusOK, code)

	res := login(t, s, email, "brand-new")
	assert.Equal(t, u.ID, res.User.ID)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
}

func TestOTPExpires(t *testing.T) {
	s, clk := newTestServer(t)

	_, env := do(t, s, http.MethodPost, "/api/auth/send-email-otp", "", map[string]string{"email": "late@example.com"})
	var ch models.OTPChallenge
	env.decode(t, &ch)
	otp := s.store.code(ch.VerificationID)

	clk.advance(6 * time.Minute)
	code, env := do(t, s, http.MethodPost, "/api/auth/verify-email-otp", "", map[string]string{"verificationId": ch.VerificationID, "otp": otp})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, errCodeExpired.Error(), env.Message)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s, _ := newTestServer(t)
	code, env := do(t, s, http.MethodPost, "/api/auth/login", "", map[string]string{"email": adminEmail, "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, env.Success)
}

func TestAuthRequired(t *testing.T) {
	s, clk := newTestServer(t)

	code, _ := do(t, s, http.MethodGet, "/api/transactions/TXN_1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	res := seedUser(t, s, "asha@example.com")
	clk.advance(2 * time.Hour)
	code, env := do(t, s, http.MethodGet, "/api/transactions/user/"+res.User.ID, res.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, common.ErrTokenExpired.Error(), env.Message)
}

func TestUploadNeedsPaidTransaction(t *testing.T) {
	s, _ := newTestServer(t)
	res := seedUser(t, s, "asha@example.com")
	uid, tok := res.User.ID, res.AccessToken

	req := models.CreateTransactionRequest{
		TransactionID: "TXN_1718000000000_abcdefghi",
		UserID:        uid,
		Documents:     []models.TransactionFile{{Name: "a.pdf", DocumentType: "net-worth-certificate"}},
		Pricing:       models.TransactionPricing{Subtotal: 1500, GSTAmount: 270, GSTPercentage: 18, TotalAmount: 1770, Currency: "INR"},
		Status:        models.TransactionStatusPending,
	}
	code, env := do(t, s, http.MethodPost, "/api/transactions", tok, req)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var tx models.Transaction
	env.decode(t, &tx)

	code, _ = do(t, s, http.MethodPost, "/api/transactions", tok, req)
	assert.Equal(t, http.StatusConflict, code)

	fields := []netx.FormField{{Name: "userId", Value: uid}, {Name: "transactionId", Value: req.TransactionID}, {Name: "documentType", Value: "net-worth-certificate"}}
	code, env = doUpload(t, s, http.MethodPost, "/api/documents/upload", tok, fields, pdfFile("a.pdf"))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "transaction is not paid", env.Message)

	code, _ = do(t, s, http.MethodPatch, "/api/transactions/"+req.TransactionID, tok, models.TransactionUpdate{Status: models.TransactionStatusCompleted, PaymentStatus: "completed"})
	require.Equal(t, http.StatusOK, code)

	code, env = doUpload(t, s, http.MethodPost, "/api/documents/upload", tok, fields, pdfFile("a.pdf"))
	require.Equal(t, http.StatusCreated, code, env.Message)
	var doc models.Document
	env.decode(t, &doc)
	assert.Equal(t, "a.pdf", doc.FileName)
	assert.Equal(t, "application/pdf", doc.MimeType)
	assert.Equal(t, req.TransactionID, doc.TransactionID)
	assert.Equal(t, models.DocumentStatusPending, doc.Status)

	code, env = do(t, s, http.MethodGet, "/api/documents/transaction/"+tx.ID, tok, nil)
	require.Equal(t, http.StatusOK, code)
	var docs []models.Document
	env.decode(t, &docs)
	require.Len(t, docs, 1)

	code, env = do(t, s, http.MethodGet, "/api/transactions/user/"+uid, tok, nil)
	require.Equal(t, http.StatusOK, code)
	var txs []models.Transaction
	env.decode(t, &txs)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].IsPaid())
}

func TestOwnershipAndAdminRoutes(t *testing.T) {
	s, _ := newTestServer(t)
	asha := seedUser(t, s, "asha@example.com")
	ravi := seedUser(t, s, "ravi@example.com")
	admin := login(t, s, adminEmail, adminPassword)

	code, _ := do(t, s, http.MethodGet, "/api/documents/user/"+asha.User.ID, ravi.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = do(t, s, http.MethodGet, "/api/auth/users", asha.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := do(t, s, http.MethodGet, "/api/auth/users", admin.AccessToken, nil)
	require.Equal(t, http.StatusOK, code)
	var users []models.User
	env.decode(t, &users)
	assert.Len(t, users, 3)

	_, err := s.store.CreateTransaction(&models.CreateTransactionRequest{TransactionID: "TXN_2", UserID: asha.User.ID, Status: models.TransactionStatusCompleted}, s.now())
	require.NoError(t, err)
	doc := s.store.AddDocument(models.Document{UserID: asha.User.ID, TransactionID: "TXN_2", FileName: "a.pdf", Status: models.DocumentStatusPending}, []byte("x"))

	code, _ = do(t, s, http.MethodPatch, "/api/documents/"+doc.ID+"/status", asha.AccessToken, map[string]string{"documentStatus": "completed"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = do(t, s, http.MethodPatch, "/api/documents/"+doc.ID+"/status", admin.AccessToken, map[string]string{"documentStatus": "bogus"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, env = do(t, s, http.MethodPatch, "/api/documents/"+doc.ID+"/status", admin.AccessToken, map[string]string{"documentStatus": "processing"})
	require.Equal(t, http.StatusOK, code)

	code, env = doUpload(t, s, http.MethodPatch, "/api/documents/"+doc.ID+"/signed-file", admin.AccessToken, nil, pdfFile("a-signed.pdf"))
	require.Equal(t, http.StatusOK, code, env.Message)
	var signed models.Document
	env.decode(t, &signed)
	assert.Equal(t, "a-signed.pdf", signed.SignedFileName)
	assert.Equal(t, models.DocumentStatusSigned, signed.Status)
	require.NotNil(t, signed.SignedAt)

	code, _ = do(t, s, http.MethodDelete, "/api/documents/"+doc.ID, ravi.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = do(t, s, http.MethodDelete, "/api/documents/"+doc.ID, asha.AccessToken, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = do(t, s, http.MethodDelete, "/api/documents/"+doc.ID, asha.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, code)
}
