package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"fina/internal/cache"
	"fina/internal/core"
	"fina/internal/log"
)

const DefaultPageSize = 10

// Publisher receives ledger changes after they are committed.
type Publisher interface {
	PublishTransactionCreated(ctx context.Context, tx core.Transaction) error
	PublishTransactionUpdated(ctx context.Context, tx core.Transaction) error
	PublishTransactionDeleted(ctx context.Context, tx core.Transaction) error
}

// Service applies the ledger rules on top of a Store.
type Service struct {
	store           Store
	publisher       Publisher
	sums            cache.Cache[int64, core.Money]
	// sumsGen counts invalidations. A reload only fills the cache when no
	// write was committed while it was reading.
	sumsMu          sync.Mutex
	sumsGen         uint64
	logger          *log.Logger
	events          *log.StructuredLogger
	bcryptCost      int
	defaultCurrency string
	pageSize        int
	newPairID       func() string
}

type Option func(*Service)

// WithPublisher sends committed changes to p.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithBalanceCache memoizes per-wallet transaction sums.
func WithBalanceCache(c cache.Cache[int64, core.Money]) Option {
	return func(s *Service) { s.sums = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.bcryptCost = cost }
}

func WithDefaultCurrency(code string) Option {
	return func(s *Service) { s.defaultCurrency = strings.ToUpper(code) }
}

func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithPairIDs overrides pair id generation.
func WithPairIDs(gen func() string) Option {
	return func(s *Service) { s.newPairID = gen }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		bcryptCost:      bcrypt.DefaultCost,
		defaultCurrency: core.DefaultCurrency,
		pageSize:        DefaultPageSize,
		newPairID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// snapshot is everything the aggregations read for one user.
type snapshot struct {
	wallets      []core.Wallet
	categories   []core.Category
	transactions []core.Transaction
}

func (s *Service) load(ctx context.Context, userID int64, withCategories bool) (snapshot, error) {
	var snap snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.store.GetUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		snap.wallets, err = s.store.ListWallets(gctx, userID, core.AllWallets)
		return err
	})
	g.Go(func() error {
		var err error
		snap.transactions, err = s.store.ListTransactions(gctx, userID, TransactionFilter{})
		return err
	})
	if withCategories {
		g.Go(func() error {
			var err error
			snap.categories, err = s.store.ListCategories(gctx, userID, 0)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}
	return snap, nil
}

func (s *Service) checkWalletFilter(wallets []core.Wallet, walletID *int64) error {
	if walletID == nil {
		return nil
	}
	for _, w := range wallets {
		if w.ID == *walletID {
			return nil
		}
	}
	return &core.NotFoundError{Entity: "wallet", ID: *walletID}
}

// ComputeBalances returns the assets scorecard of the user.
func (s *Service) ComputeBalances(ctx context.Context, userID int64) (core.Balances, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return core.Balances{}, err
	}
	wallets, err := s.store.ListWallets(ctx, userID, core.AllWallets)
	if err != nil {
		return core.Balances{}, fmt.Errorf("list wallets: %w", err)
	}
	sums, err := s.walletSums(ctx, userID, wallets)
	if err != nil {
		return core.Balances{}, err
	}
	return AggregateBalances(wallets, sums), nil
}

// walletSums serves per-wallet sums from the cache and reloads the user's
// history when any wallet is missing.
func (s *Service) walletSums(ctx context.Context, userID int64, wallets []core.Wallet) (map[int64]core.Money, error) {
	sums := make(map[int64]core.Money, len(wallets))
	complete := s.sums != nil
	if s.sums != nil {
		for _, w := range wallets {
			v, ok := s.sums.Get(w.ID)
			if !ok {
				complete = false
				break
			}
			sums[w.ID] = v
		}
	}
	if complete {
		return sums, nil
	}

	gen := s.generation()
	txs, err := s.store.ListTransactions(ctx, userID, TransactionFilter{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	all := SumByWallet(txs)
	for _, w := range wallets {
		sums[w.ID] = all[w.ID]
	}
	s.fillSums(gen, sums)
	return sums, nil
}

func (s *Service) generation() uint64 {
	s.sumsMu.Lock()
	defer s.sumsMu.Unlock()
	return s.sumsGen
}

// fillSums caches sums read at generation gen. It does nothing when an
// invalidation happened since, as the read may predate that write.
func (s *Service) fillSums(gen uint64, sums map[int64]core.Money) {
	if s.sums == nil {
		return
	}
	s.sumsMu.Lock()
	defer s.sumsMu.Unlock()
	if gen != s.sumsGen {
		return
	}
	for id, v := range sums {
		s.sums.Set(id, v)
	}
}

func (s *Service) invalidate(walletIDs ...int64) {
	if s.sums == nil {
		return
	}
	s.sumsMu.Lock()
	defer s.sumsMu.Unlock()
	s.sumsGen++
	for _, id := range walletIDs {
		s.sums.Delete(id)
	}
}

// ComputeIncomeExpenseReport returns the income and expense dashboard of the user.
func (s *Service) ComputeIncomeExpenseReport(ctx context.Context, userID int64, q ReportQuery) (core.Report, error) {
	if err := q.Validate(); err != nil {
		return core.Report{}, err
	}
	snap, err := s.load(ctx, userID, true)
	if err != nil {
		return core.Report{}, err
	}
	if err := s.checkWalletFilter(snap.wallets, q.WalletID); err != nil {
		return core.Report{}, err
	}
	return BuildReport(snap.wallets, snap.categories, snap.transactions, q)
}

// ComputeCashflow returns the daily cumulative balance of the asset wallets,
// or of the selected wallet, over the report window.
func (s *Service) ComputeCashflow(ctx context.Context, userID int64, q ReportQuery) (core.CashflowSeries, error) {
	if err := q.Validate(); err != nil {
		return core.CashflowSeries{}, err
	}
	snap, err := s.load(ctx, userID, false)
	if err != nil {
		return core.CashflowSeries{}, err
	}
	if err := s.checkWalletFilter(snap.wallets, q.WalletID); err != nil {
		return core.CashflowSeries{}, err
	}

	latest := latestDate(filterWallet(snap.transactions, q.WalletID))
	if latest.IsZero() && q.From.IsZero() && q.To.IsZero() {
		return BuildCashflow(snap.wallets, nil, core.Date{}, core.Date{}, q.WalletID), nil
	}
	from, to, err := q.window(latest)
	if err != nil {
		return core.CashflowSeries{}, err
	}
	return BuildCashflow(snap.wallets, snap.transactions, from, to, q.WalletID), nil
}

// TransactionInput carries the caller's fields for an expense or income.
// The amount may be given as a magnitude; its sign follows the type.
type TransactionInput struct {
	WalletID    int64                `json:"wallet_id"`
	CategoryID  *int64               `json:"category_id"`
	Type        core.TransactionType `json:"transaction_type_id"`
	Amount      core.Money           `json:"amount"`
	Description string               `json:"description"`
	Date        core.Date            `json:"transaction_date"`
}

// ValidateAndCreateTransaction records an expense or income after checking
// the wallet and category. Transfers and debts go through CreateTransferOrDebt.
func (s *Service) ValidateAndCreateTransaction(ctx context.Context, userID int64, in TransactionInput) (core.Transaction, error) {
	if in.Type.IsPaired() {
		return core.Transaction{}, fmt.Errorf("%w: %s must be created as a pair", core.ErrPairedLeg, in.Type)
	}
	tx := core.Transaction{
		UserID:      userID,
		WalletID:    in.WalletID,
		CategoryID:  in.CategoryID,
		Type:        in.Type,
		Amount:      in.Type.Signed(in.Amount),
		Description: strings.TrimSpace(in.Description),
		Date:        in.Date,
	}
	if err := ValidateTransaction(ctx, s.store, tx); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.invalidate(created.WalletID)
	s.events.LogTransactionCreated(ctx, created)
	s.publishCreated(ctx, created)
	return created, nil
}

// UpdateTransaction replaces the fields of an expense or income. For a
// transfer or debt leg only amount, date and description may change and
// the change is mirrored on the other leg.
func (s *Service) UpdateTransaction(ctx context.Context, userID, id int64, in TransactionInput) (core.Transaction, error) {
	existing, err := s.ownedTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if existing.PairID != "" {
		return s.updatePair(ctx, existing, in)
	}
	if in.Type.IsPaired() {
		return core.Transaction{}, fmt.Errorf("%w: cannot turn a single entry into %s", core.ErrPairedLeg, in.Type)
	}

	tx := existing
	tx.WalletID = in.WalletID
	tx.CategoryID = in.CategoryID
	tx.Type = in.Type
	tx.Amount = in.Type.Signed(in.Amount)
	tx.Description = strings.TrimSpace(in.Description)
	tx.Date = in.Date
	if err := ValidateTransaction(ctx, s.store, tx); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.invalidate(existing.WalletID, updated.WalletID)
	s.events.LogTransactionUpdated(ctx, updated)
	s.publishUpdated(ctx, updated)
	return updated, nil
}

func (s *Service) updatePair(ctx context.Context, existing core.Transaction, in TransactionInput) (core.Transaction, error) {
	switch {
	case in.Type != 0 && in.Type != existing.Type:
		return core.Transaction{}, fmt.Errorf("%w: type cannot change", core.ErrPairedLeg)
	case in.WalletID != 0 && in.WalletID != existing.WalletID:
		return core.Transaction{}, fmt.Errorf("%w: wallet cannot change", core.ErrPairedLeg)
	case in.CategoryID != nil:
		return core.Transaction{}, &core.InvalidCategoryError{CategoryID: *in.CategoryID, Type: existing.Type, Reason: "category not allowed"}
	case in.Amount.IsZero():
		return core.Transaction{}, core.ErrInvalidAmount
	}
	if err := in.Date.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var (
		updated core.Transaction
		saved   []core.Transaction
	)
	err := s.store.WithTx(ctx, func(st Store) error {
		legs, err := st.ListTransactions(ctx, existing.UserID, TransactionFilter{PairID: existing.PairID})
		if err != nil {
			return fmt.Errorf("list pair legs: %w", err)
		}
		for _, leg := range legs {
			// Each leg keeps its own sign.
			amount := in.Amount.Abs()
			if leg.Amount.IsNegative() {
				amount = amount.Neg()
			}
			leg.Amount = amount
			leg.Date = in.Date
			leg.Description = strings.TrimSpace(in.Description)
			if err := leg.Validate(); err != nil {
				return err
			}
			row, err := st.UpdateTransaction(ctx, leg)
			if err != nil {
				return fmt.Errorf("update leg %d: %w", leg.ID, err)
			}
			saved = append(saved, row)
			if row.ID == existing.ID {
				updated = row
			}
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	for _, leg := range saved {
		s.invalidate(leg.WalletID)
		s.events.LogTransactionUpdated(ctx, leg)
		s.publishUpdated(ctx, leg)
	}
	return updated, nil
}

// DeleteTransaction removes a transaction; deleting a transfer or debt leg
// removes both legs. It returns every removed row.
func (s *Service) DeleteTransaction(ctx context.Context, userID, id int64) ([]core.Transaction, error) {
	existing, err := s.ownedTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	removed := []core.Transaction{existing}
	if existing.PairID != "" {
		err = s.store.WithTx(ctx, func(st Store) error {
			removed, err = deletePair(ctx, st, userID, existing.PairID)
			return err
		})
	} else {
		err = s.store.DeleteTransaction(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("delete transaction: %w", err)
	}
	s.afterDelete(ctx, removed)
	return removed, nil
}

func (s *Service) afterDelete(ctx context.Context, removed []core.Transaction) {
	for _, tx := range removed {
		s.invalidate(tx.WalletID)
		s.events.LogTransactionDeleted(ctx, tx)
		s.publishDeleted(ctx, tx)
	}
}

func (s *Service) ownedTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	tx, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if tx.UserID != userID {
		return core.Transaction{}, &core.NotFoundError{Entity: "transaction", ID: id}
	}
	return tx, nil
}

func (s *Service) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.ownedTransaction(ctx, userID, id)
}

// TransactionPage is one page of a transaction listing.
type TransactionPage struct {
	Items      []core.Transaction `json:"items"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
}

// ListTransactions returns the page-th page (from 1) of the user's
// transactions matching f, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID int64, f TransactionFilter, page int) (TransactionPage, error) {
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return TransactionPage{}, core.ErrInvalidWindow
	}
	txs, err := s.store.ListTransactions(ctx, userID, f)
	if err != nil {
		return TransactionPage{}, fmt.Errorf("list transactions: %w", err)
	}
	if page < 1 {
		page = 1
	}
	p := TransactionPage{
		Items:      []core.Transaction{},
		Page:       page,
		PageSize:   s.pageSize,
		Total:      len(txs),
		TotalPages: (len(txs) + s.pageSize - 1) / s.pageSize,
	}
	start := (page - 1) * s.pageSize
	if start < len(txs) {
		end := min(start+s.pageSize, len(txs))
		p.Items = txs[start:end]
	}
	return p, nil
}

// CreateTransferOrDebt records a transfer or debt event as two opposite legs
// sharing a pair id. Both legs are written or neither.
func (s *Service) CreateTransferOrDebt(ctx context.Context, userID int64, in PairInput) (core.Transaction, core.Transaction, error) {
	var legA, legB core.Transaction
	pairID := s.newPairID()
	err := s.store.WithTx(ctx, func(st Store) error {
		var err error
		legA, legB, err = createPair(ctx, st, userID, in, pairID)
		return err
	})
	if err != nil {
		var pce *core.PairCreationError
		if errors.As(err, &pce) {
			s.logger.ErrorContext(ctx, "Transaction pair rolled back",
				log.FieldUserID, userID, log.FieldPairID, pairID, log.FieldError, err)
		}
		return core.Transaction{}, core.Transaction{}, err
	}

	s.invalidate(legA.WalletID, legB.WalletID)
	for _, leg := range []core.Transaction{legA, legB} {
		s.events.LogTransactionCreated(ctx, leg)
		s.publishCreated(ctx, leg)
	}
	return legA, legB, nil
}

func (s *Service) publishCreated(ctx context.Context, tx core.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionCreated(ctx, tx); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, tx.ID, log.FieldError, err)
	}
}

func (s *Service) publishUpdated(ctx context.Context, tx core.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionUpdated(ctx, tx); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, tx.ID, log.FieldError, err)
	}
}

func (s *Service) publishDeleted(ctx context.Context, tx core.Transaction) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionDeleted(ctx, tx); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish transaction event",
			log.FieldTransactionID, tx.ID, log.FieldError, err)
	}
}
