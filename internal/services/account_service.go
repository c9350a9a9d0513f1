package services

import (
	"context"
	"errors"
	"fmt"

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

type AccountService interface {
	CreateAccount(ctx context.Context, traceID string, req views.CreateAccountRequest) (pkgviews.AccountView, error)
	GetAccount(ctx context.Context, traceID string, id string) (pkgviews.AccountView, error)
	ListAccounts(ctx context.Context, traceID string, query views.ListAccountsQuery) ([]pkgviews.AccountView, error)
	DeleteAccount(ctx context.Context, traceID string, id string) error
	// ListCurrencies exposes the configured rate table, read-only.
	ListCurrencies() []views.CurrencyView
}

type AccountServiceImpl struct {
	logger      *zap.Logger
	converter   *currency.Converter
	accountRepo repositories.AccountRepository
	db          *database.DB
	cache       *AccountCache
}

func NewAccountService(logger *zap.Logger, converter *currency.Converter, accountRepo repositories.AccountRepository, db *database.DB, cache *AccountCache) AccountService {
	return &AccountServiceImpl{
		logger:      logger,
		converter:   converter,
		accountRepo: accountRepo,
		db:          db,
		cache:       cache,
	}
}

func (s *AccountServiceImpl) CreateAccount(ctx context.Context, traceID string, req views.CreateAccountRequest) (pkgviews.AccountView, error) {
	code := currency.Code(req.Currency)
	if !s.converter.Supported(code) {
		return pkgviews.AccountView{}, pkg.NewAppError(pkg.ErrUnsupportedCurrencyCode,
			fmt.Sprintf("unsupported currency %s", req.Currency), nil)
	}
	if req.Balance.Sign() < 0 {
		return pkgviews.AccountView{}, pkg.NewAppError(pkg.ErrInvalidInputCode, "opening balance cannot be negative", nil)
	}
	if !req.Balance.Equal(currency.Quantize(req.Balance)) {
		return pkgviews.AccountView{}, pkg.NewAppError(pkg.ErrInvalidInputCode,
			fmt.Sprintf("opening balance supports at most %d decimal places", currency.StorageScale), nil)
	}

	var created models.Account
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		created, err = s.accountRepo.Create(ctx, tx, models.Account{
			ID:           uuid.New(),
			OwnerID:      req.OwnerID,
			OwnerName:    req.OwnerName,
			OwnerAddress: req.OwnerAddress,
			Currency:     code,
			Balance:      req.Balance,
		})
		if err != nil {
			return pkg.HandleSQLError(traceID, s.logger, err)
		}
		return nil
	})
	if err != nil {
		return pkgviews.AccountView{}, err
	}

	s.logger.Info("account created",
		zap.String(pkg.TraceId, traceID),
		zap.String("account_id", created.ID.String()),
		zap.Int64("owner_id", created.OwnerID),
		zap.String("currency", string(created.Currency)),
	)
	return created.ToView(), nil
}

func (s *AccountServiceImpl) GetAccount(ctx context.Context, traceID string, id string) (pkgviews.AccountView, error) {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return pkgviews.AccountView{}, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid account id", err)
	}

	if view, ok := s.cache.Get(ctx, accountID); ok {
		return view, nil
	}

	account, err := s.accountRepo.FindById(ctx, s.db, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return pkgviews.AccountView{}, pkg.NewAppError(pkg.ErrRecordNotFoundCode, "account not found", err)
		}
		return pkgviews.AccountView{}, pkg.HandleSQLError(traceID, s.logger, err)
	}

	view := account.ToView()
	s.cache.Set(ctx, view)
	return view, nil
}

func (s *AccountServiceImpl) ListAccounts(ctx context.Context, traceID string, query views.ListAccountsQuery) ([]pkgviews.AccountView, error) {
	accounts, err := s.accountRepo.List(ctx, s.db, repositories.AccountFilter{
		Query:    query.Query,
		Currency: currency.Code(query.Currency),
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.logger, err)
	}

	out := make([]pkgviews.AccountView, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, account.ToView())
	}
	return out, nil
}

func (s *AccountServiceImpl) DeleteAccount(ctx context.Context, traceID string, id string) error {
	accountID, err := uuid.Parse(id)
	if err != nil {
		return pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid account id", err)
	}

	err = s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		tag, err := s.accountRepo.Delete(ctx, tx, accountID)
		if err != nil {
			return pkg.HandleSQLError(traceID, s.logger, err)
		}
		if tag.RowsAffected() == 0 {
			return pkg.NewAppError(pkg.ErrRecordNotFoundCode, "account not found", nil)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(ctx, accountID)
	s.logger.Info("account deleted",
		zap.String(pkg.TraceId, traceID),
		zap.String("account_id", accountID.String()),
	)
	return nil
}

func (s *AccountServiceImpl) ListCurrencies() []views.CurrencyView {
	codes := s.converter.Codes()
	out := make([]views.CurrencyView, 0, len(codes))
	for _, from := range codes {
		view := views.CurrencyView{Code: string(from), Rates: make(map[string]decimal.Decimal, len(codes))}
		for _, to := range codes {
			rate, err := s.converter.Rate(from, to)
			if err != nil {
				continue
			}
			view.Rates[string(to)] = rate
		}
		out = append(out, view)
	}
	return out
}
