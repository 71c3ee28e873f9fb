package usecase_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/ledger/internal/account/domain"
	outboxDomain "github.com/allisson/ledger/internal/outbox/domain"
)

// memoryStore is an in-memory ledger with optimistic transactions: writes are buffered per
// unit of work and committed only if every account version read is still current.
type memoryStore struct {
	mu           sync.Mutex
	accounts     map[uuid.UUID]domain.Account
	transactions []domain.Transaction
	messages     []*outboxDomain.Message
	sequence     int64
	// failCommit, when set, makes the next commit fail after validation.
	failCommit error
}

type unitOfWork struct {
	accounts     map[uuid.UUID]domain.Account
	readVersions map[uuid.UUID]int64
	transactions []domain.Transaction
	messages     []*outboxDomain.Message
}

type uowKey struct{}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: map[uuid.UUID]domain.Account{}}
}

func (s *memoryStore) seed(account domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[account.ID] = account
}

func (s *memoryStore) account(id uuid.UUID) domain.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accounts[id]
}

func (s *memoryStore) transactionsOf(accountID uuid.UUID) []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.AccountID == accountID {
			out = append(out, tx)
		}
	}
	return out
}

func (s *memoryStore) outbox() []*outboxDomain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]*outboxDomain.Message(nil), s.messages...)
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out
}

// WithTx implements database.TxManager.
func (s *memoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, fn)
}

// WithSerializableTx implements database.TxManager.
func (s *memoryStore) WithSerializableTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.run(ctx, fn)
}

func (s *memoryStore) run(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(uowKey{}).(*unitOfWork); ok {
		return fn(ctx)
	}

	uow := &unitOfWork{accounts: map[uuid.UUID]domain.Account{}, readVersions: map[uuid.UUID]int64{}}
	if err := fn(context.WithValue(ctx, uowKey{}, uow)); err != nil {
		return err
	}
	return s.commit(uow)
}

func (s *memoryStore) commit(uow *unitOfWork) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, version := range uow.readVersions {
		if s.accounts[id].Version != version {
			return domain.ErrConcurrentModification
		}
	}
	if s.failCommit != nil {
		err := s.failCommit
		s.failCommit = nil
		return err
	}

	for id, account := range uow.accounts {
		s.accounts[id] = account
	}
	s.transactions = append(s.transactions, uow.transactions...)
	for _, msg := range uow.messages {
		s.sequence++
		msg.Sequence = s.sequence
		s.messages = append(s.messages, msg)
	}
	return nil
}

func currentUnit(ctx context.Context) *unitOfWork {
	uow, _ := ctx.Value(uowKey{}).(*unitOfWork)
	return uow
}

// accountRepo implements usecase.AccountRepository on a memoryStore.
type accountRepo struct {
	store *memoryStore
	// corrupt, when set, is added to every balance written by Update.
	corrupt func(domain.Account) domain.Account
}

func (r *accountRepo) Create(ctx context.Context, account *domain.Account) error {
	if uow := currentUnit(ctx); uow != nil {
		uow.accounts[account.ID] = *account
		return nil
	}
	r.store.seed(*account)
	return nil
}

func (r *accountRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	uow := currentUnit(ctx)
	if uow != nil {
		if account, ok := uow.accounts[id]; ok {
			return &account, nil
		}
	}

	r.store.mu.Lock()
	account, ok := r.store.accounts[id]
	r.store.mu.Unlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	if uow != nil {
		if _, seen := uow.readVersions[id]; !seen {
			uow.readVersions[id] = account.Version
		}
	}
	return &account, nil
}

func (r *accountRepo) Update(ctx context.Context, account *domain.Account) error {
	current, err := r.Get(ctx, account.ID)
	if err != nil {
		return err
	}
	if current.Version != account.Version {
		return domain.ErrConcurrentModification
	}

	stored := *account
	stored.Version++
	if r.corrupt != nil {
		stored = r.corrupt(stored)
	}

	if uow := currentUnit(ctx); uow != nil {
		uow.accounts[account.ID] = stored
	} else {
		r.store.seed(stored)
	}
	account.Version++
	return nil
}

func (r *accountRepo) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	accounts := make([]*domain.Account, 0)
	for _, account := range r.store.accounts {
		if account.OwnerID == ownerID {
			accounts = append(accounts, &account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].OpenedAt.Before(accounts[j].OpenedAt) })
	if offset >= len(accounts) {
		return []*domain.Account{}, nil
	}
	accounts = accounts[offset:]
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

func (r *accountRepo) SetFrozenByOwner(ctx context.Context, ownerID uuid.UUID, frozen bool) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var changed int64
	for id, account := range r.store.accounts {
		if account.OwnerID == ownerID && account.Frozen != frozen && !account.IsClosed() {
			account.Frozen = frozen
			account.Version++
			r.store.accounts[id] = account
			changed++
		}
	}
	return changed, nil
}

func (r *accountRepo) ListInterestBearing(
	ctx context.Context,
	afterID uuid.UUID,
	limit int,
) ([]*domain.Account, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	accounts := make([]*domain.Account, 0)
	for _, account := range r.store.accounts {
		if account.InterestRate.Valid && !account.IsClosed() && account.ID.String() > afterID.String() {
			accounts = append(accounts, &account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID.String() < accounts[j].ID.String() })
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

// transactionRepo implements usecase.TransactionRepository on a memoryStore.
type transactionRepo struct {
	store *memoryStore
}

func (r *transactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	if uow := currentUnit(ctx); uow != nil {
		uow.transactions = append(uow.transactions, *tx)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.transactions = append(r.store.transactions, *tx)
	return nil
}

func (r *transactionRepo) ListByAccountBetween(
	ctx context.Context,
	accountID uuid.UUID,
	from, to time.Time,
) ([]*domain.Transaction, error) {
	out := make([]*domain.Transaction, 0)
	for _, tx := range r.store.transactionsOf(accountID) {
		if !tx.OccurredAt.Before(from) && !tx.OccurredAt.After(to) {
			out = append(out, &tx)
		}
	}
	return out, nil
}

func (r *transactionRepo) LastByDescription(
	ctx context.Context,
	accountID uuid.UUID,
	description string,
) (*domain.Transaction, error) {
	var last *domain.Transaction
	for _, tx := range r.store.transactionsOf(accountID) {
		if tx.Description == description && (last == nil || tx.OccurredAt.After(last.OccurredAt)) {
			last = &tx
		}
	}
	if last == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return last, nil
}

// messageRepo implements the outbox MessageRepository methods the appender uses.
type messageRepo struct {
	store *memoryStore
}

func (r *messageRepo) Create(ctx context.Context, msg *outboxDomain.Message) error {
	if uow := currentUnit(ctx); uow != nil {
		uow.messages = append(uow.messages, msg)
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.sequence++
	msg.Sequence = r.store.sequence
	r.store.messages = append(r.store.messages, msg)
	return nil
}

func (r *messageRepo) LatestForAccount(ctx context.Context, accountID uuid.UUID) (*outboxDomain.Message, error) {
	if uow := currentUnit(ctx); uow != nil {
		for i := len(uow.messages) - 1; i >= 0; i-- {
			if uow.messages[i].AccountID.UUID == accountID {
				return uow.messages[i], nil
			}
		}
	}
	messages := r.store.outbox()
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].AccountID.UUID == accountID {
			return messages[i], nil
		}
	}
	return nil, outboxDomain.ErrMessageNotFound
}

func (r *messageRepo) ListDue(context.Context, time.Time, int) ([]*outboxDomain.Message, error) {
	return nil, nil
}

func (r *messageRepo) Claim(context.Context, uuid.UUID, time.Time, time.Time) (bool, error) {
	return false, nil
}

func (r *messageRepo) MarkPublished(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func (r *messageRepo) MarkFailed(context.Context, uuid.UUID, int, *time.Time, string) error {
	return nil
}

func (r *messageRepo) CountUnpublished(context.Context) (int64, error) {
	return 0, nil
}

func (r *messageRepo) CountByStatus(context.Context) ([]outboxDomain.StatusCount, error) {
	return nil, nil
}
