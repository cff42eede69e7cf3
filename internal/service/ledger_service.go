package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const (
	// Conflict retries before surfacing StorageConflict to the caller.
	maxMutationRetries = 3
	retryBackoff       = 20 * time.Millisecond
)

// LedgerServiceImpl implements ports.LedgerService. Every wallet mutation goes
// through here: bucket update, derived-total recompute and log append are one
// database transaction holding a row lock on the wallet.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	ledgerRepo ports.LedgerRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		transactor: transactor,
		log:        log,
	}
}

// Mutate credits or debits one bucket. A debit exceeding the current balance
// fails with InsufficientFunds and writes nothing; no result is ever clamped
// to zero. Write contention is retried a bounded number of times.
func (s *LedgerServiceImpl) Mutate(ctx context.Context, req ports.MutationRequest) (*ports.MutationResult, error) {
	if err := validateMutation(req); err != nil {
		return nil, err
	}

	var result *ports.MutationResult
	backoff := retry.WithMaxRetries(maxMutationRetries, retry.NewConstant(retryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := s.mutateOnce(ctx, req)
		if err != nil {
			if isWriteConflict(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		if isWriteConflict(err) {
			s.log.Warn().Err(err).Str("user_id", req.UserID.String()).Msg("mutation retries exhausted")
			return nil, apperror.ErrStorageConflict(err)
		}
		return nil, err
	}

	s.log.Info().
		Str("user_id", req.UserID.String()).
		Str("bucket", string(req.Bucket)).
		Str("direction", string(req.Direction)).
		Int64("amount", req.Amount).
		Int64("new_balance", result.NewBalance).
		Msg("wallet mutated")

	return result, nil
}

func (s *LedgerServiceImpl) mutateOnce(ctx context.Context, req ports.MutationRequest) (*ports.MutationResult, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	result, err := s.MutateInTx(ctx, dbTx, req)
	if err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return result, nil
}

// MutateInTx runs the triple write inside a caller-owned transaction, for
// flows that must pair a ledger movement with a state change (commission
// reversal, payout settlement). The caller commits or rolls back.
func (s *LedgerServiceImpl) MutateInTx(ctx context.Context, dbTx pgx.Tx, req ports.MutationRequest) (*ports.MutationResult, error) {
	if err := validateMutation(req); err != nil {
		return nil, err
	}

	wallet, err := s.walletRepo.GetByUserIDForUpdate(ctx, dbTx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	if wallet == nil {
		// Wallets appear lazily on first credit; a debit against a missing
		// wallet is just a debit against zero.
		if req.Direction == domain.DirectionDebit {
			return nil, apperror.ErrInsufficientFunds(string(req.Bucket))
		}
		wallet = domain.NewWallet(req.UserID)
		if err := s.walletRepo.Create(ctx, dbTx, wallet); err != nil {
			return nil, fmt.Errorf("create wallet: %w", err)
		}
	}

	oldBalance := wallet.Balance(req.Bucket)
	var newBalance int64
	if req.Direction == domain.DirectionCredit {
		newBalance = oldBalance + req.Amount
	} else {
		if req.Amount > oldBalance {
			return nil, apperror.ErrInsufficientFunds(string(req.Bucket))
		}
		newBalance = oldBalance - req.Amount
	}

	now := time.Now().UTC()
	wallet.SetBalance(req.Bucket, newBalance)
	wallet.UpdatedAt = now

	if err := s.walletRepo.UpdateBalances(ctx, dbTx, wallet); err != nil {
		return nil, fmt.Errorf("update balances: %w", err)
	}

	entry := &domain.WalletTransaction{
		ID:         uuid.New(),
		WalletID:   wallet.ID,
		UserID:     req.UserID,
		Bucket:     req.Bucket,
		Direction:  req.Direction,
		Amount:     req.Amount,
		OldBalance: oldBalance,
		NewBalance: newBalance,
		Reason:     req.Reason,
		AdminID:    req.AdminID,
		CreatedAt:  now,
	}
	if err := s.ledgerRepo.Append(ctx, dbTx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}

	return &ports.MutationResult{
		OldBalance: oldBalance,
		NewBalance: newBalance,
		Total:      wallet.TotalRedeemable,
		Entry:      entry,
	}, nil
}

// GetWallet returns current balances and the derived total. Users without a
// wallet yet read as an empty wallet, not an error.
func (s *LedgerServiceImpl) GetWallet(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return domain.NewWallet(userID), nil
	}
	// Never trust the stored total.
	wallet.TotalRedeemable = wallet.ComputeTotal()
	return wallet, nil
}

// History returns the paginated transaction log for a user.
func (s *LedgerServiceImpl) History(ctx context.Context, params ports.LedgerListParams) ([]domain.WalletTransaction, int64, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 || params.PageSize > 100 {
		params.PageSize = 20
	}
	entries, total, err := s.ledgerRepo.ListByUser(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return entries, total, nil
}

func validateMutation(req ports.MutationRequest) error {
	if req.Amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if !req.Bucket.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown bucket %q", req.Bucket))
	}
	if !req.Direction.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown direction %q", req.Direction))
	}
	return nil
}

// isWriteConflict reports whether err is contention worth retrying:
// serialization failure, deadlock, or a unique-key race on lazy wallet creation.
func isWriteConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
	}
	return false
}
