package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ibrahimkeyboad/billpay/internal/core/domain"
)

// MemoryStore is a mutex-guarded in-memory Store. It backs unit tests and
// local development without a database; the invariants it enforces are the
// same ones the Postgres store enforces with conditional writes.
type MemoryStore struct {
	mu           sync.Mutex
	bills        map[uuid.UUID]domain.Bill
	methods      map[uuid.UUID]domain.PaymentMethod
	transactions map[uuid.UUID]domain.Transaction
	users        map[uuid.UUID]domain.User
	tokens       map[string]uuid.UUID // token hash -> user
	responses    map[string]cachedResponse
}

type cachedResponse struct {
	status int
	body   []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bills:        make(map[uuid.UUID]domain.Bill),
		methods:      make(map[uuid.UUID]domain.PaymentMethod),
		transactions: make(map[uuid.UUID]domain.Transaction),
		users:        make(map[uuid.UUID]domain.User),
		tokens:       make(map[string]uuid.UUID),
		responses:    make(map[string]cachedResponse),
	}
}

// --- Bills ---

func (s *MemoryStore) ListBills(_ context.Context, userID uuid.UUID) ([]domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bills []domain.Bill
	for _, b := range s.bills {
		if b.UserID == userID {
			bills = append(bills, b)
		}
	}
	sort.Slice(bills, func(i, j int) bool { return bills[i].DueDate.Before(bills[j].DueDate) })
	return bills, nil
}

func (s *MemoryStore) GetBill(_ context.Context, userID, billID uuid.UUID) (domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getBillLocked(userID, billID)
}

func (s *MemoryStore) getBillLocked(userID, billID uuid.UUID) (domain.Bill, error) {
	b, ok := s.bills[billID]
	if !ok || b.UserID != userID {
		return domain.Bill{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *MemoryStore) CreateBill(_ context.Context, bill domain.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[bill.ID] = bill
	return nil
}

func (s *MemoryStore) UpdateBill(_ context.Context, userID, billID uuid.UUID, patch domain.BillPatch) (domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.getBillLocked(userID, billID)
	if err != nil {
		return domain.Bill{}, err
	}
	if b.Status == domain.BillPaid {
		return domain.Bill{}, domain.ErrInvalidState
	}
	b = patch.Apply(b)
	s.bills[billID] = b
	return b, nil
}

func (s *MemoryStore) DeleteBill(_ context.Context, userID, billID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getBillLocked(userID, billID); err != nil {
		return err
	}
	for _, tx := range s.transactions {
		if tx.BillID == billID {
			return domain.ErrConflict
		}
	}
	delete(s.bills, billID)
	return nil
}

func (s *MemoryStore) MarkOverdue(_ context.Context, asOf time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	swept := 0
	for id, b := range s.bills {
		if b.Status == domain.BillPending && b.DueDate.Before(asOf) {
			b.Status = domain.BillOverdue
			s.bills[id] = b
			swept++
		}
	}
	return swept, nil
}

// --- Payment methods ---

func (s *MemoryStore) ListMethods(_ context.Context, userID uuid.UUID) ([]domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var methods []domain.PaymentMethod
	for _, m := range s.methods {
		if m.UserID == userID {
			methods = append(methods, m)
		}
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i].CreatedAt.Before(methods[j].CreatedAt) })
	return methods, nil
}

func (s *MemoryStore) GetMethod(_ context.Context, userID, methodID uuid.UUID) (domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.methods[methodID]
	if !ok || m.UserID != userID {
		return domain.PaymentMethod{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *MemoryStore) DefaultMethod(_ context.Context, userID uuid.UUID) (domain.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fallback *domain.PaymentMethod
	for id := range s.methods {
		m := s.methods[id]
		if m.UserID != userID {
			continue
		}
		if m.IsDefault {
			return m, nil
		}
		if fallback == nil || m.CreatedAt.Before(fallback.CreatedAt) {
			fallback = &m
		}
	}
	if fallback != nil {
		return *fallback, nil
	}
	return domain.PaymentMethod{}, domain.ErrNoPaymentMethod
}

func (s *MemoryStore) CreateMethod(_ context.Context, method domain.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if method.IsDefault {
		for id, m := range s.methods {
			if m.UserID == method.UserID && m.IsDefault {
				m.IsDefault = false
				s.methods[id] = m
			}
		}
	}
	s.methods[method.ID] = method
	return nil
}

func (s *MemoryStore) DeleteMethod(_ context.Context, userID, methodID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.methods[methodID]
	if !ok || m.UserID != userID {
		return domain.ErrNotFound
	}
	for _, tx := range s.transactions {
		if tx.PaymentMethodID == methodID {
			return domain.ErrConflict
		}
	}
	delete(s.methods, methodID)
	return nil
}

// --- Transactions ---

func (s *MemoryStore) RecordTransaction(_ context.Context, tx domain.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions[tx.ID] = tx
	return nil
}

func (s *MemoryStore) FailTransaction(_ context.Context, txID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.transactions[txID]
	if !ok {
		return domain.ErrNotFound
	}
	if tx.Status != domain.TxProcessing {
		return domain.ErrInvalidState
	}
	tx.Status = domain.TxFailed
	s.transactions[txID] = tx
	return nil
}

func (s *MemoryStore) CompletePayment(_ context.Context, billID, txID uuid.UUID, confirmationCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bill, ok := s.bills[billID]
	if !ok {
		return domain.ErrNotFound
	}
	tx, ok := s.transactions[txID]
	if !ok {
		return domain.ErrNotFound
	}
	if bill.Status != domain.BillPending || tx.Status != domain.TxProcessing {
		return domain.ErrInvalidState
	}

	// Both writes land under the same lock: a reader sees either both old
	// or both new, never a mix.
	bill.Status = domain.BillPaid
	tx.Status = domain.TxCompleted
	tx.ConfirmationCode = confirmationCode
	s.bills[billID] = bill
	s.transactions[txID] = tx
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, userID uuid.UUID) ([]domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var txs []domain.Transaction
	for _, tx := range s.transactions {
		if tx.UserID == userID {
			txs = append(txs, tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].Timestamp.After(txs[j].Timestamp) })
	return txs, nil
}

func (s *MemoryStore) HasProcessingTransaction(_ context.Context, billID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tx := range s.transactions {
		if tx.BillID == billID && tx.Status == domain.TxProcessing {
			return true, nil
		}
	}
	return false, nil
}

// --- Users and tokens ---

func (s *MemoryStore) CreateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *MemoryStore) UserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrNotFound
}

func (s *MemoryStore) UserByID(_ context.Context, userID uuid.UUID) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) SaveToken(_ context.Context, userID uuid.UUID, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = userID
	return nil
}

func (s *MemoryStore) UserIDByToken(_ context.Context, tokenHash string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userID, ok := s.tokens[tokenHash]
	if !ok {
		return uuid.Nil, domain.ErrUnauthorized
	}
	return userID, nil
}

func (s *MemoryStore) DeleteToken(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenHash)
	return nil
}

// --- Idempotency cache ---

func (s *MemoryStore) CachedResponse(_ context.Context, key string) (int, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, ok := s.responses[key]
	if !ok {
		return 0, nil, false, nil
	}
	return res.status, res.body, true, nil
}

func (s *MemoryStore) SaveResponse(_ context.Context, key string, status int, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.responses[key]; exists {
		return nil
	}
	buf := make([]byte, len(body))
	copy(buf, body)
	s.responses[key] = cachedResponse{status: status, body: buf}
	return nil
}
