package service

import (
	"context"
	"testing"
	"time"

	"reward-ledger/internal/core/domain"
	"reward-ledger/internal/core/ports"
	"reward-ledger/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type payoutTestDeps struct {
	svc        *PayoutServiceImpl
	payoutRepo *mocks.MockPayoutRepository
	ledger     *mocks.MockLedgerService
	transactor *mocks.MockDBTransactor
	notifier   *mocks.MockNotifier
	ctrl       *gomock.Controller
}

func setupPayoutService(t *testing.T) *payoutTestDeps {
	ctrl := gomock.NewController(t)
	d := &payoutTestDeps{
		payoutRepo: mocks.NewMockPayoutRepository(ctrl),
		ledger:     mocks.NewMockLedgerService(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		notifier:   mocks.NewMockNotifier(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewPayoutService(d.payoutRepo, d.ledger, d.transactor, d.notifier, zerolog.Nop())
	return d
}

func pendingPayout(actorID uuid.UUID, amount int64) *domain.Payout {
	return &domain.Payout{
		ID:          uuid.New(),
		ActorID:     actorID,
		Amount:      amount,
		Method:      "bank_transfer",
		Status:      domain.PayoutStatusPending,
		RequestedAt: time.Now().UTC(),
	}
}

func TestPayoutService_Request_Success(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	actorID := uuid.New()

	wallet := domain.NewWallet(actorID)
	wallet.SetBalance(domain.BucketAffiliateEarnings, 1000)

	d.ledger.EXPECT().GetWallet(ctx, actorID).Return(wallet, nil)
	d.payoutRepo.EXPECT().Create(ctx, gomock.Any()).Return(nil)

	p, err := d.svc.Request(ctx, actorID, 800, "bank_transfer")
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusPending, p.Status)
	assert.Equal(t, int64(800), p.Amount)
}

func TestPayoutService_Request_BalanceTooLow(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	actorID := uuid.New()

	wallet := domain.NewWallet(actorID)
	wallet.SetBalance(domain.BucketAffiliateEarnings, 500)

	d.ledger.EXPECT().GetWallet(ctx, actorID).Return(wallet, nil)

	_, err := d.svc.Request(ctx, actorID, 501, "bank_transfer")
	assertAppError(t, err, "STM_002")
}

func TestPayoutService_Request_OnlyEarningsCount(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	actorID := uuid.New()

	// Large balances in other buckets do not make earnings withdrawable.
	wallet := domain.NewWallet(actorID)
	wallet.SetBalance(domain.BucketPromotionalCredits, 10000)
	wallet.SetBalance(domain.BucketAffiliateEarnings, 50)

	d.ledger.EXPECT().GetWallet(ctx, actorID).Return(wallet, nil)

	_, err := d.svc.Request(ctx, actorID, 100, "upi")
	assertAppError(t, err, "STM_002")
}

func TestPayoutService_Request_InvalidInput(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	_, err := d.svc.Request(ctx, uuid.New(), 0, "bank_transfer")
	assertAppError(t, err, "VAL_002")

	_, err = d.svc.Request(ctx, uuid.New(), 100, "")
	assertAppError(t, err, "VAL_001")
}

func TestPayoutService_Process_PendingToProcessing(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	p := pendingPayout(uuid.New(), 500)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payoutRepo.EXPECT().GetByIDForUpdate(ctx, tx, p.ID).Return(p, nil)
	// No ledger movement before settlement.
	d.payoutRepo.EXPECT().
		UpdateStatus(ctx, tx, p.ID, domain.PayoutStatusProcessing, nil, nil).
		Return(nil)

	got, err := d.svc.Process(ctx, ports.PayoutProcessRequest{
		PayoutID: p.ID,
		Target:   domain.PayoutStatusProcessing,
		AdminID:  uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusProcessing, got.Status)
}

func TestPayoutService_Process_CompletionDebitsWallet(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	actorID := uuid.New()
	adminID := uuid.New()
	tx := &mockTx{}
	ref := "SETTLE-42"

	p := pendingPayout(actorID, 500)
	p.Status = domain.PayoutStatusProcessing

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payoutRepo.EXPECT().GetByIDForUpdate(ctx, tx, p.ID).Return(p, nil)
	d.ledger.EXPECT().
		MutateInTx(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ any, req ports.MutationRequest) (*ports.MutationResult, error) {
			assert.Equal(t, actorID, req.UserID)
			assert.Equal(t, domain.BucketAffiliateEarnings, req.Bucket)
			assert.Equal(t, domain.DirectionDebit, req.Direction)
			assert.Equal(t, int64(500), req.Amount)
			return &ports.MutationResult{OldBalance: 500, NewBalance: 0}, nil
		})
	d.payoutRepo.EXPECT().
		UpdateStatus(ctx, tx, p.ID, domain.PayoutStatusCompleted, &ref, nil).
		Return(nil)
	d.notifier.EXPECT().Notify(ctx, gomock.Any()).Return(nil)

	got, err := d.svc.Process(ctx, ports.PayoutProcessRequest{
		PayoutID:      p.ID,
		Target:        domain.PayoutStatusCompleted,
		SettlementRef: &ref,
		AdminID:       adminID,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusCompleted, got.Status)
	require.NotNil(t, got.SettlementRef)
	assert.Equal(t, ref, *got.SettlementRef)
}

func TestPayoutService_Process_FailureMovesNoMoney(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	notes := "Bank rejected the account"

	p := pendingPayout(uuid.New(), 500)
	p.Status = domain.PayoutStatusProcessing

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payoutRepo.EXPECT().GetByIDForUpdate(ctx, tx, p.ID).Return(p, nil)
	d.payoutRepo.EXPECT().
		UpdateStatus(ctx, tx, p.ID, domain.PayoutStatusFailed, nil, &notes).
		Return(nil)

	got, err := d.svc.Process(ctx, ports.PayoutProcessRequest{
		PayoutID: p.ID,
		Target:   domain.PayoutStatusFailed,
		Notes:    &notes,
		AdminID:  uuid.New(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PayoutStatusFailed, got.Status)
}

func TestPayoutService_Process_PendingToCompletedRejected(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	p := pendingPayout(uuid.New(), 500)

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payoutRepo.EXPECT().GetByIDForUpdate(ctx, tx, p.ID).Return(p, nil)

	_, err := d.svc.Process(ctx, ports.PayoutProcessRequest{
		PayoutID: p.ID,
		Target:   domain.PayoutStatusCompleted,
		AdminID:  uuid.New(),
	})
	assertAppError(t, err, "STM_001")
}

func TestPayoutService_Process_TerminalStateRejected(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	p := pendingPayout(uuid.New(), 500)
	p.Status = domain.PayoutStatusCompleted

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.payoutRepo.EXPECT().GetByIDForUpdate(ctx, tx, p.ID).Return(p, nil)

	_, err := d.svc.Process(ctx, ports.PayoutProcessRequest{
		PayoutID: p.ID,
		Target:   domain.PayoutStatusProcessing,
		AdminID:  uuid.New(),
	})
	assertAppError(t, err, "STM_001")
}

func TestPayoutService_Process_UnknownTarget(t *testing.T) {
	d := setupPayoutService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Process(context.Background(), ports.PayoutProcessRequest{
		PayoutID: uuid.New(),
		Target:   "archived",
		AdminID:  uuid.New(),
	})
	assertAppError(t, err, "VAL_001")
}
