package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fundmesh/transfer-service/internal/observability"
	"github.com/fundmesh/transfer-service/internal/views"
	"github.com/fundmesh/transfer-service/pkg"
	"github.com/fundmesh/transfer-service/pkg/currency"
	"github.com/fundmesh/transfer-service/pkg/database"
	"github.com/fundmesh/transfer-service/pkg/models"
	"github.com/fundmesh/transfer-service/pkg/repositories"
	pkgviews "github.com/fundmesh/transfer-service/pkg/views"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type TransferService interface {
	// Transfer atomically moves req.Amount from the source account to the
	// destination account, converting currency when they differ. On success
	// it returns both post-transfer snapshots; on any failure neither
	// balance changes.
	Transfer(ctx context.Context, traceID string, req views.TransferRequest) (views.TransferResult, error)
	// PreviewConversion computes what a transfer of amount would credit,
	// without touching accounts or acquiring locks.
	PreviewConversion(traceID string, fromCurrency, toCurrency string, amount decimal.Decimal) (views.PreviewResult, error)
}

type TransferServiceImpl struct {
	logger      *zap.Logger
	converter   *currency.Converter
	accountRepo repositories.AccountRepository
	db          *database.DB
	cache       *AccountCache
	publisher   TransferPublisher
}

func NewTransferService(logger *zap.Logger, converter *currency.Converter, accountRepo repositories.AccountRepository, db *database.DB, cache *AccountCache, publisher TransferPublisher) TransferService {
	return &TransferServiceImpl{
		logger:      logger,
		converter:   converter,
		accountRepo: accountRepo,
		db:          db,
		cache:       cache,
		publisher:   publisher,
	}
}

func (s *TransferServiceImpl) Transfer(ctx context.Context, traceID string, req views.TransferRequest) (views.TransferResult, error) {
	start := time.Now()
	result, err := s.transfer(ctx, traceID, req)
	if err != nil {
		observability.TransfersRejected.WithLabelValues(errorCodeOf(err)).Inc()
		observability.TransferLatency.WithLabelValues(string(pkg.TransferStatusRejected)).Observe(time.Since(start).Seconds())
		return views.TransferResult{}, err
	}
	observability.TransfersCompleted.WithLabelValues(result.FromAccount.Currency, result.ToAccount.Currency).Inc()
	observability.TransferLatency.WithLabelValues(string(pkg.TransferStatusCompleted)).Observe(time.Since(start).Seconds())
	return result, nil
}

func (s *TransferServiceImpl) transfer(ctx context.Context, traceID string, req views.TransferRequest) (views.TransferResult, error) {
	// Validation happens before the transaction opens; everything here is
	// rejected with zero storage side effects.
	if req.Amount.Sign() <= 0 {
		return views.TransferResult{}, pkg.NewAppError(pkg.ErrInvalidAmountCode, "transfer amount must be positive", nil)
	}
	if !req.Amount.Equal(currency.Quantize(req.Amount)) {
		return views.TransferResult{}, pkg.NewAppError(pkg.ErrInvalidAmountCode,
			fmt.Sprintf("transfer amount supports at most %d decimal places", currency.StorageScale), nil)
	}

	fromID, err := uuid.Parse(req.FromAccountID)
	if err != nil {
		return views.TransferResult{}, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid source account id", err)
	}
	toID, err := uuid.Parse(req.ToAccountID)
	if err != nil {
		return views.TransferResult{}, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid destination account id", err)
	}
	if fromID == toID {
		return views.TransferResult{}, pkg.NewAppError(pkg.ErrSameAccountCode, "cannot transfer to the same account", nil)
	}

	var result views.TransferResult
	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// Row locks are always taken in ascending id order so that two
		// transfers moving funds between the same pair of accounts in
		// opposite directions never wait on each other in a cycle.
		firstID, secondID := orderAccountIDs(fromID, toID)

		first, err := s.lockAccount(ctx, tx, traceID, firstID)
		if err != nil {
			return err
		}
		second, err := s.lockAccount(ctx, tx, traceID, secondID)
		if err != nil {
			return err
		}

		from, to := first, second
		if from.ID != fromID {
			from, to = second, first
		}

		for _, account := range []models.Account{from, to} {
			if !s.converter.Supported(account.Currency) {
				return pkg.NewAppError(pkg.ErrUnsupportedCurrencyCode,
					fmt.Sprintf("unsupported currency %s on account %s", account.Currency, account.ID), nil)
			}
		}

		// Balance was read under lock, so this check cannot race with a
		// concurrent transfer debiting the same account.
		if from.Balance.LessThan(req.Amount) {
			return pkg.NewAppError(pkg.ErrInsufficientFundsCode,
				fmt.Sprintf("insufficient balance: available %s %s, requested %s %s",
					from.Balance, from.Currency, req.Amount, from.Currency), nil)
		}

		converted, err := s.converter.Convert(req.Amount, from.Currency, to.Currency)
		if err != nil {
			return pkg.NewAppError(pkg.ErrUnsupportedCurrencyCode, "unsupported currency", err)
		}
		credit := currency.Quantize(converted)

		fromAccount, err := s.accountRepo.UpdateBalance(ctx, tx, from.ID, from.Balance.Sub(req.Amount))
		if err != nil {
			return pkg.HandleSQLError(traceID, s.logger, err)
		}
		toAccount, err := s.accountRepo.UpdateBalance(ctx, tx, to.ID, to.Balance.Add(credit))
		if err != nil {
			return pkg.HandleSQLError(traceID, s.logger, err)
		}

		result = views.TransferResult{
			FromAccount:     fromAccount.ToView(),
			ToAccount:       toAccount.ToView(),
			ConvertedAmount: credit,
		}
		return nil
	})
	if err != nil {
		return views.TransferResult{}, err
	}

	// Post-commit side effects; neither may fail the transfer.
	s.cache.Invalidate(ctx, fromID, toID)
	event := pkgviews.TransferCompletedEvent{
		TransferID:      uuid.New().String(),
		FromAccountID:   result.FromAccount.ID,
		ToAccountID:     result.ToAccount.ID,
		Amount:          req.Amount,
		ConvertedAmount: result.ConvertedAmount,
		FromCurrency:    result.FromAccount.Currency,
		ToCurrency:      result.ToAccount.Currency,
		Status:          pkg.TransferStatusCompleted,
		CompletedAt:     time.Now().UTC(),
	}
	if err := s.publisher.PublishTransferCompleted(event); err != nil {
		s.logger.Error("failed to publish transfer.completed event",
			zap.String(pkg.TraceId, traceID), zap.Error(err))
	}

	s.logger.Info("transfer completed",
		zap.String(pkg.TraceId, traceID),
		zap.String("from_account", result.FromAccount.ID),
		zap.String("to_account", result.ToAccount.ID),
		zap.String("amount", req.Amount.String()),
		zap.String("converted_amount", result.ConvertedAmount.String()),
	)
	return result, nil
}

func (s *TransferServiceImpl) PreviewConversion(traceID string, fromCurrency, toCurrency string, amount decimal.Decimal) (views.PreviewResult, error) {
	observability.ConversionPreviews.Inc()

	// A not-yet-entered amount previews as zero so clients can render "0.00"
	// without special-casing; the live transfer path rejects these amounts.
	if amount.Sign() <= 0 {
		return views.PreviewResult{ConvertedAmount: decimal.Zero}, nil
	}

	converted, err := s.converter.Convert(amount, currency.Code(fromCurrency), currency.Code(toCurrency))
	if err != nil {
		s.logger.Warn("conversion preview rejected",
			zap.String(pkg.TraceId, traceID),
			zap.String("from_currency", fromCurrency),
			zap.String("to_currency", toCurrency),
		)
		return views.PreviewResult{}, pkg.NewAppError(pkg.ErrUnsupportedCurrencyCode, "unsupported currency", err)
	}
	return views.PreviewResult{ConvertedAmount: currency.Quantize(converted)}, nil
}

// lockAccount reads one account row FOR UPDATE, mapping a missing row to the
// not-found business error.
func (s *TransferServiceImpl) lockAccount(ctx context.Context, tx pgx.Tx, traceID string, id uuid.UUID) (models.Account, error) {
	account, err := s.accountRepo.FindByIdForUpdate(ctx, tx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "one or both accounts not found", err)
		}
		return models.Account{}, pkg.HandleSQLError(traceID, s.logger, err)
	}
	return account, nil
}

func orderAccountIDs(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}

func errorCodeOf(err error) string {
	var appErr pkg.AppError
	if errors.As(err, &appErr) {
		return appErr.Code.Code
	}
	return pkg.ErrServerCode.Code
}
