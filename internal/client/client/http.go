package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/common"
	"github.com/dmitrijs2005/udinflow/internal/filex"
	"github.com/dmitrijs2005/udinflow/internal/logging"
	"github.com/dmitrijs2005/udinflow/internal/netx"
	"github.com/dmitrijs2005/udinflow/internal/resilience"
)

// envelope is the JSON wrapper every backend response uses.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
}

type HTTPClient struct {
	baseURL string
	http    *http.Client
	exec    *resilience.Executor
	log     logging.Logger

	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds a REST client for baseURL. A nil executor disables the
// retry and breaker policy.
func NewHTTPClient(baseURL string, timeout time.Duration, exec *resilience.Executor, log logging.Logger) *HTTPClient {
	if log == nil {
		log = logging.Nop()
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		exec:    exec,
		log:     log,
	}
}

func (c *HTTPClient) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = access
	c.refreshToken = refresh
}

func (c *HTTPClient) AccessToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

// retryUnavailable repeats reads that failed at the transport or with a 5xx.
func retryUnavailable(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, ErrUnavailable) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{}
}

// sendOnce never retries. Only ErrUnavailable counts against the breaker, so
// 4xx rejections such as a wrong password or an unpaid transaction leave it closed.
var sendOnce = resilience.NoRetry(func(err error) bool { return errors.Is(err, ErrUnavailable) })

func (c *HTTPClient) run(ctx context.Context, op string, classifier resilience.ErrorClassifier, fn func(context.Context) error) error {
	if c.exec == nil {
		return fn(ctx)
	}
	err := c.exec.Execute(ctx, op, fn, classifier)
	if resilience.IsCircuitOpen(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (c *HTTPClient) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send performs req and decodes the envelope's data into out.
func (c *HTTPClient) send(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if token := c.AccessToken(); token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return fmt.Errorf("decode response from %s: %w", req.URL.Path, err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Debug(req.Context(), "backend request failed", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)
		return mapStatus(resp.StatusCode, &env)
	}
	if len(raw) > 0 && !env.Success && (env.Message != "" || env.Error != "") {
		return mapStatus(resp.StatusCode, &env)
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", req.URL.Path, err)
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, op, path string, out any) error {
	return c.run(ctx, op, retryUnavailable, func(ctx context.Context) error {
		req, err := c.newJSONRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}
		return c.send(req, out)
	})
}

// call sends a state-changing request. It is never retried.
func (c *HTTPClient) call(ctx context.Context, op, method, path string, body, out any) error {
	return c.run(ctx, op, sendOnce, func(ctx context.Context) error {
		req, err := c.newJSONRequest(ctx, method, path, body)
		if err != nil {
			return err
		}
		return c.send(req, out)
	})
}

func (c *HTTPClient) upload(ctx context.Context, op, method, path string, fields []netx.FormField, file *netx.FormFile, progress netx.ProgressFunc, out any) error {
	body, contentType, err := netx.BuildMultipart(fields, file)
	if err != nil {
		return err
	}
	return c.run(ctx, op, sendOnce, func(ctx context.Context) error {
		req, err := netx.NewUploadRequest(ctx, method, c.baseURL+path, body, contentType, progress)
		if err != nil {
			return err
		}
		return c.send(req, out)
	})
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var health struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "ping", "/api/health", &health); err != nil {
		return err
	}
	if !strings.EqualFold(health.Status, "ok") {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) SendEmailOTP(ctx context.Context, email string) (*models.OTPChallenge, error) {
	var ch models.OTPChallenge
	if err := c.call(ctx, "send email otp", http.MethodPost, "/api/auth/send-email-otp", map[string]string{"email": email}, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *HTTPClient) VerifyEmailOTP(ctx context.Context, verificationID, otp string) error {
	body := map[string]string{"verificationId": verificationID, "otp": otp}
	return c.call(ctx, "verify email otp", http.MethodPost, "/api/auth/verify-email-otp", body, nil)
}

func (c *HTTPClient) Register(ctx context.Context, info models.UserInfo) (*models.User, error) {
	info.TermsAccepted = true
	var u models.User
	if err := c.call(ctx, "register", http.MethodPost, "/api/auth/register", info, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login stores the issued tokens on success.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	var res models.LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.call(ctx, "login", http.MethodPost, "/api/auth/login", body, &res); err != nil {
		return nil, err
	}
	if res.AccessToken != "" {
		c.SetTokens(res.AccessToken, res.RefreshToken)
	}
	return &res, nil
}

func (c *HTTPClient) ForgotPassword(ctx context.Context, email string) (*models.OTPChallenge, error) {
	var ch models.OTPChallenge
	if err := c.call(ctx, "forgot password", http.MethodPost, "/api/auth/forgot-password", map[string]string{"email": email}, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (c *HTTPClient) VerifyForgotPassword(ctx context.Context, verificationID, otp string) error {
	body := map[string]string{"verificationId": verificationID, "otp": otp}
	return c.call(ctx, "verify forgot password", http.MethodPost, "/api/auth/verify-forgot-password", body, nil)
}

func (c *HTTPClient) ResetPassword(ctx context.Context, email, newPassword string) error {
	body := map[string]string{"email": email, "newPassword": newPassword}
	return c.call(ctx, "reset password", http.MethodPost, "/api/auth/reset-password", body, nil)
}

func (c *HTTPClient) ListUsers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := c.get(ctx, "list users", "/api/auth/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *HTTPClient) CreateTransaction(ctx context.Context, in *models.CreateTransactionRequest) (*models.Transaction, error) {
	var tx models.Transaction
	if err := c.call(ctx, "create transaction", http.MethodPost, "/api/transactions", in, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *HTTPClient) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := c.get(ctx, "get transaction", "/api/transactions/"+url.PathEscape(id), &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *HTTPClient) UpdateTransaction(ctx context.Context, id string, upd *models.TransactionUpdate) (*models.Transaction, error) {
	var tx models.Transaction
	if err := c.call(ctx, "update transaction", http.MethodPatch, "/api/transactions/"+url.PathEscape(id), upd, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// FinalizeTransaction marks the transaction completed once its documents are in.
func (c *HTTPClient) FinalizeTransaction(ctx context.Context, id string) error {
	_, err := c.UpdateTransaction(ctx, id, &models.TransactionUpdate{Status: models.TransactionStatusCompleted})
	return err
}

func (c *HTTPClient) TransactionsByUser(ctx context.Context, userID string) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	if err := c.get(ctx, "transactions by user", "/api/transactions/user/"+url.PathEscape(userID), &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

func (c *HTTPClient) UploadDocument(ctx context.Context, up *models.DocumentUpload, progress netx.ProgressFunc) (*models.Document, error) {
	docType := up.DocumentType
	if docType == "" {
		docType = common.DefaultDocumentType
	}
	fields := []netx.FormField{
		{Name: "userId", Value: up.UserID},
		{Name: "transactionId", Value: up.TransactionID},
		{Name: "documentType", Value: docType},
	}
	file := &netx.FormFile{Field: "file", FileName: up.FileName, Type: up.ContentType, Content: up.Content}

	var doc models.Document
	if err := c.upload(ctx, "upload document", http.MethodPost, "/api/documents/upload", fields, file, progress, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *HTTPClient) DocumentsByUser(ctx context.Context, userID string) ([]*models.Document, error) {
	var docs []*models.Document
	if err := c.get(ctx, "documents by user", "/api/documents/user/"+url.PathEscape(userID), &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *HTTPClient) DocumentsByTransaction(ctx context.Context, txDBID string) ([]*models.Document, error) {
	var docs []*models.Document
	if err := c.get(ctx, "documents by transaction", "/api/documents/transaction/"+url.PathEscape(txDBID), &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *HTTPClient) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) (*models.Document, error) {
	var doc models.Document
	body := map[string]string{"documentStatus": string(status)}
	if err := c.call(ctx, "update document status", http.MethodPatch, "/api/documents/"+url.PathEscape(id)+"/status", body, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *HTTPClient) UploadSignedDocument(ctx context.Context, id string, f *filex.File, progress netx.ProgressFunc) (*models.Document, error) {
	file := &netx.FormFile{Field: "file", FileName: f.Name, Type: f.Type, Content: f.Content}

	var doc models.Document
	if err := c.upload(ctx, "upload signed document", http.MethodPatch, "/api/documents/"+url.PathEscape(id)+"/signed-file", nil, file, progress, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *HTTPClient) DeleteDocument(ctx context.Context, id string) error {
	return c.call(ctx, "delete document", http.MethodDelete, "/api/documents/"+url.PathEscape(id), nil, nil)
}
