package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/udinflow/internal/client/models"
	"github.com/dmitrijs2005/udinflow/internal/common"
	"golang.org/x/crypto/bcrypt"
)

var (
	errConflict    = errors.New("already exists")
	errInvalidCode = errors.New("invalid verification code")
	errCodeExpired = errors.New("verification code expired")
	errNotVerified = errors.New("email not verified")
)

const (
	purposeRegister = "register"
	purposeReset    = "reset"
)

type userRecord struct {
	user     models.User
	password []byte
}

type otpRecord struct {
	email    string
	code     string
	purpose  string
	expires  time.Time
	verified bool
}

// Store keeps every dev server record in memory. Returned values are copies.
type Store struct {
	mu sync.RWMutex

	users   map[string]*userRecord
	byEmail map[string]string

	otps map[string]*otpRecord

	txs        map[string]*models.Transaction
	txBusiness map[string]string

	docs    map[string]*models.Document
	order   map[string]int
	seq     int
	content map[string][]byte
	signed  map[string][]byte
}

func NewStore() *Store {
	return &Store{
		users:      map[string]*userRecord{},
		byEmail:    map[string]string{},
		otps:       map[string]*otpRecord{},
		txs:        map[string]*models.Transaction{},
		txBusiness: map[string]string{},
		docs:       map[string]*models.Document{},
		order:      map[string]int{},
		content:    map[string][]byte{},
		signed:     map[string][]byte{},
	}
}

func newID() string {
	id, err := common.MakeRandHexString(12)
	if err != nil {
		return common.RandBase36(24)
	}
	return id
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ---- users ----

func (s *Store) CreateUser(info models.UserInfo, role, password string, now time.Time) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(info.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return nil, errConflict
	}

	info.Email = email
	u := models.User{ID: newID(), UserInfo: info, Role: role, EmailVerified: true, CreatedAt: now}
	s.users[u.ID] = &userRecord{user: u, password: hash}
	s.byEmail[email] = u.ID
	return &u, nil
}

func (s *Store) HasUser(email string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byEmail[normalizeEmail(email)]
	return ok
}

// Authenticate returns common.ErrorUnauthorized for an unknown email or a
// wrong password.
func (s *Store) Authenticate(email, password string) (*models.User, error) {
	s.mu.RLock()
	rec, ok := s.users[s.byEmail[normalizeEmail(email)]]
	s.mu.RUnlock()
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	if bcrypt.CompareHashAndPassword(rec.password, []byte(password)) != nil {
		return nil, common.ErrorUnauthorized
	}
	u := rec.user
	return &u, nil
}

func (s *Store) SetPassword(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.users[s.byEmail[normalizeEmail(email)]]
	if !ok {
		return common.ErrorNotFound
	}
	rec.password = hash
	return nil
}

func (s *Store) User(id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := rec.user
	return &u, nil
}

func (s *Store) Users() []*models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, rec := range s.users {
		u := rec.user
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Email < out[j].Email
	})
	return out
}

// ---- one-time codes ----

// NewOTP records a code under its verification id.
func (s *Store) NewOTP(id, email, purpose, code string, expires time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps[id] = &otpRecord{email: normalizeEmail(email), code: code, purpose: purpose, expires: expires}
}

func (s *Store) VerifyOTP(id, purpose, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.otps[id]
	if !ok || rec.purpose != purpose {
		return errInvalidCode
	}
	if now.After(rec.expires) {
		delete(s.otps, id)
		return errCodeExpired
	}
	if rec.code != strings.TrimSpace(code) {
		return errInvalidCode
	}
	rec.verified = true
	return nil
}

// ConsumeVerified removes one verified, unexpired code for email and purpose.
func (s *Store) ConsumeVerified(email, purpose string, now time.Time) bool {
	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.otps {
		if rec.email == email && rec.purpose == purpose && rec.verified && !now.After(rec.expires) {
			delete(s.otps, id)
			return true
		}
	}
	return false
}

func (s *Store) code(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.otps[id]; ok {
		return rec.code
	}
	return ""
}

// ---- transactions ----

func (s *Store) CreateTransaction(req *models.CreateTransactionRequest, now time.Time) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.txBusiness[req.TransactionID]; ok {
		return nil, errConflict
	}
	pricing := req.Pricing
	user := req.UserInfo
	tx := &models.Transaction{
		ID:            newID(),
		TransactionID: req.TransactionID,
		UserID:        req.UserID,
		UserInfo:      &user,
		Documents:     append([]models.TransactionFile(nil), req.Documents...),
		Pricing:       &pricing,
		Status:        req.Status,
		Metadata:      req.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if tx.Status == "" {
		tx.Status = models.TransactionStatusPending
	}
	s.txs[tx.ID] = tx
	s.txBusiness[tx.TransactionID] = tx.ID
	cp := *tx
	return &cp, nil
}

// lookupTx resolves a business id or a backend id. Callers hold mu.
func (s *Store) lookupTx(id string) (*models.Transaction, bool) {
	if dbID, ok := s.txBusiness[id]; ok {
		id = dbID
	}
	tx, ok := s.txs[id]
	return tx, ok
}

func (s *Store) Transaction(id string) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.lookupTx(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *tx
	return &cp, nil
}

func (s *Store) UpdateTransaction(id string, upd *models.TransactionUpdate, now time.Time) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.lookupTx(id)
	if !ok {
		return nil, common.ErrorNotFound
	}
	if upd.Status != "" {
		tx.Status = upd.Status
	}
	if upd.PaymentStatus != "" {
		tx.PaymentStatus = upd.PaymentStatus
	}
	if upd.Payment != nil {
		p := *upd.Payment
		tx.Payment = &p
	}
	tx.UpdatedAt = now
	cp := *tx
	return &cp, nil
}

func (s *Store) TransactionsByUser(userID string) []*models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Transaction
	for _, tx := range s.txs {
		if tx.UserID == userID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// ---- documents ----

func (s *Store) AddDocument(doc models.Document, content []byte) *models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc.ID = newID()
	s.seq++
	s.order[doc.ID] = s.seq
	s.docs[doc.ID] = &doc
	s.content[doc.ID] = content
	cp := doc
	return &cp
}

func (s *Store) Document(id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *d
	return &cp, nil
}

// UpdateDocument applies fn under the store lock.
func (s *Store) UpdateDocument(id string, fn func(*models.Document)) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	fn(d)
	cp := *d
	return &cp, nil
}

func (s *Store) AttachSigned(id, name string, content []byte, now time.Time) (*models.Document, error) {
	d, err := s.UpdateDocument(id, func(d *models.Document) {
		d.SignedFileName = name
		d.SignedAt = &now
		d.Status = models.DocumentStatusSigned
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.signed[id] = content
	s.mu.Unlock()
	return d, nil
}

func (s *Store) DeleteDocument(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return common.ErrorNotFound
	}
	delete(s.docs, id)
	delete(s.order, id)
	delete(s.content, id)
	delete(s.signed, id)
	return nil
}

func (s *Store) documents(match func(*models.Document) bool) []*models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Document
	for _, d := range s.docs {
		if match(d) {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.order[out[i].ID] < s.order[out[j].ID] })
	return out
}

func (s *Store) DocumentsByUser(userID string) []*models.Document {
	return s.documents(func(d *models.Document) bool { return d.UserID == userID })
}

// DocumentsByTransaction accepts the backend id of the transaction.
func (s *Store) DocumentsByTransaction(txDBID string) ([]*models.Document, error) {
	tx, err := s.Transaction(txDBID)
	if err != nil {
		return nil, err
	}
	return s.documents(func(d *models.Document) bool { return d.TransactionID == tx.TransactionID }), nil
}
