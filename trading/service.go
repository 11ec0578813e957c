// Package trading implements the simulated brokerage: portfolio valuation,
// buying and selling against a cash balance, and user accounts.
package trading

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"stocks-simulator/apperror"
	"stocks-simulator/database"
	"stocks-simulator/logger"
	"stocks-simulator/models"
	"stocks-simulator/quotes"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingSymbol   = apperror.Validation("must provide symbol")
	ErrUnknownSymbol   = apperror.NotFound("symbol does not exist").WithStatus(http.StatusForbidden)
	ErrCannotAfford    = apperror.Validation("cannot afford shares")
	ErrNotEnoughShares = apperror.Validation("do not have enough shares to sell")
	ErrMissingUsername = apperror.Validation("must provide username")
	ErrMissingPassword = apperror.Validation("must provide password")
	ErrMissingConfirm  = apperror.Validation("must confirm password")
	ErrPasswordMatch   = apperror.Validation("passwords do not match")
	ErrUsernameTaken   = apperror.Conflict("username already taken")
	ErrInvalidLogin    = apperror.Auth("invalid username and/or password")
)

// TradeInput is a validated buy or sell order.
type TradeInput struct {
	Symbol string
	Shares int64
}

type RegisterInput struct {
	Username     string
	Password     string
	Confirmation string
}

// PortfolioRow is one open position valued at the current price.
type PortfolioRow struct {
	Symbol string
	Name   string
	Shares int64
	Price  decimal.Decimal
	Value  decimal.Decimal
}

type Portfolio struct {
	Rows  []PortfolioRow
	Cash  decimal.Decimal
	Total decimal.Decimal
}

// Service defines the operations available to a user.
type Service interface {
	Portfolio(ctx context.Context, userID uint) (*Portfolio, error)
	Buy(ctx context.Context, userID uint, in TradeInput) (*models.Transaction, error)
	Sell(ctx context.Context, userID uint, in TradeInput) (*models.Transaction, error)
	AddCash(ctx context.Context, userID uint, amount decimal.Decimal) (decimal.Decimal, error)
	Quote(ctx context.Context, symbol string) (models.Quote, error)
	History(ctx context.Context, userID uint) ([]models.Transaction, error)
	Register(ctx context.Context, in RegisterInput) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

// Options tune a Service.
type Options struct {
	StartingCash decimal.Decimal
	BcryptCost   int
	Now          func() time.Time
}

// NewService creates the trading service.
func NewService(
	store *database.Store,
	users database.UserRepository,
	txns database.TransactionRepository,
	quoter quotes.Provider,
	log *logger.Logger,
	opts Options,
) Service {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{
		store:  store,
		users:  users,
		txns:   txns,
		quoter: quoter,
		log:    log,
		opts:   opts,
	}
}

type service struct {
	store  *database.Store
	users  database.UserRepository
	txns   database.TransactionRepository
	quoter quotes.Provider
	log    *logger.Logger
	opts   Options
}

// Portfolio values every open holding at its current price. A user with no
// holdings gets an empty portfolio whose total is the cash balance.
func (s *service) Portfolio(ctx context.Context, userID uint) (*Portfolio, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}

	holdings, err := s.txns.Holdings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load holdings of user %d: %w", userID, err)
	}

	p := &Portfolio{Rows: make([]PortfolioRow, 0, len(holdings)), Cash: user.Cash, Total: user.Cash}
	for _, h := range holdings {
		q, err := s.lookup(ctx, h.Symbol)
		if err != nil {
			return nil, err
		}
		value := q.Price.Mul(decimal.NewFromInt(h.Shares))
		p.Rows = append(p.Rows, PortfolioRow{
			Symbol: h.Symbol,
			Name:   q.Name,
			Shares: h.Shares,
			Price:  q.Price,
			Value:  value,
		})
		p.Total = p.Total.Add(value)
	}
	return p, nil
}

// Buy purchases shares at the current price. The balance check, the ledger
// entry and the balance update happen in one transaction.
func (s *service) Buy(ctx context.Context, userID uint, in TradeInput) (*models.Transaction, error) {
	symbol, err := validateTrade(in, "buy")
	if err != nil {
		return nil, err
	}
	q, err := s.lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}
	cost := q.Price.Mul(decimal.NewFromInt(in.Shares))

	txn := &models.Transaction{
		UserID:        userID,
		Symbol:        symbol,
		Shares:        in.Shares,
		Time:          s.opts.Now().UTC(),
		Type:          models.Buy,
		PurchasePrice: q.Price,
	}

	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user %d: %w", userID, err)
		}
		if user.Cash.LessThan(cost) {
			return ErrCannotAfford
		}
		if err := s.txns.Create(ctx, txn); err != nil {
			return fmt.Errorf("record buy: %w", err)
		}
		return s.users.UpdateCash(ctx, userID, user.Cash.Sub(cost))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("shares bought",
		logger.UintField("user_id", userID),
		logger.StringField("symbol", symbol),
		logger.Field("shares", in.Shares),
		logger.StringField("price", q.Price.String()))
	return txn, nil
}

// Sell sells shares the user holds at the current price.
func (s *service) Sell(ctx context.Context, userID uint, in TradeInput) (*models.Transaction, error) {
	symbol, err := validateTrade(in, "sell")
	if err != nil {
		return nil, err
	}
	q, err := s.lookup(ctx, symbol)
	if err != nil {
		return nil, err
	}
	proceeds := q.Price.Mul(decimal.NewFromInt(in.Shares))

	txn := &models.Transaction{
		UserID:        userID,
		Symbol:        symbol,
		Shares:        -in.Shares,
		Time:          s.opts.Now().UTC(),
		Type:          models.Sell,
		PurchasePrice: q.Price,
	}

	err = s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user %d: %w", userID, err)
		}
		held, err := s.txns.HoldingOf(ctx, userID, symbol)
		if err != nil {
			return fmt.Errorf("load holding: %w", err)
		}
		if held < in.Shares {
			return ErrNotEnoughShares
		}
		if err := s.txns.Create(ctx, txn); err != nil {
			return fmt.Errorf("record sell: %w", err)
		}
		return s.users.UpdateCash(ctx, userID, user.Cash.Add(proceeds))
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("shares sold",
		logger.UintField("user_id", userID),
		logger.StringField("symbol", symbol),
		logger.Field("shares", in.Shares),
		logger.StringField("price", q.Price.String()))
	return txn, nil
}

// AddCash increases the balance by amount and returns the new balance.
// The amount is not required to be positive.
func (s *service) AddCash(ctx context.Context, userID uint, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.store.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByIDForUpdate(ctx, userID)
		if err != nil {
			return fmt.Errorf("load user %d: %w", userID, err)
		}
		balance = user.Cash.Add(amount)
		return s.users.UpdateCash(ctx, userID, balance)
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.log.Info("cash added",
		logger.UintField("user_id", userID),
		logger.StringField("amount", amount.String()))
	return balance, nil
}

func (s *service) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	symbol = quotes.Normalize(symbol)
	if symbol == "" {
		return models.Quote{}, ErrMissingSymbol
	}
	return s.lookup(ctx, symbol)
}

func (s *service) History(ctx context.Context, userID uint) ([]models.Transaction, error) {
	txns, err := s.txns.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history of user %d: %w", userID, err)
	}
	return txns, nil
}

// Register creates a user with the starting cash balance.
func (s *service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		return nil, ErrMissingUsername
	case in.Password == "":
		return nil, ErrMissingPassword
	case in.Confirmation == "":
		return nil, ErrMissingConfirm
	case in.Password != in.Confirmation:
		return nil, ErrPasswordMatch
	}

	taken, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.opts.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username: username,
		Hash:     string(hash),
		Cash:     s.opts.StartingCash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", logger.UintField("user_id", user.ID), logger.StringField("username", username))
	return user, nil
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords fail with the same error.
func (s *service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrMissingUsername
	}
	if password == "" {
		return nil, ErrMissingPassword
	}

	user, err := s.users.FindByUsername(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidLogin
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Hash), []byte(password)); err != nil {
		return nil, ErrInvalidLogin
	}
	return user, nil
}

func (s *service) UsernameExists(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return false, ErrMissingUsername.WithStatus(http.StatusBadRequest)
	}
	return s.users.ExistsByUsername(ctx, username)
}

func (s *service) lookup(ctx context.Context, symbol string) (models.Quote, error) {
	q, err := s.quoter.Lookup(ctx, symbol)
	if errors.Is(err, quotes.ErrNotFound) {
		return models.Quote{}, ErrUnknownSymbol
	}
	if err != nil {
		return models.Quote{}, fmt.Errorf("lookup %s: %w", symbol, err)
	}
	return q, nil
}

func validateTrade(in TradeInput, verb string) (string, error) {
	symbol := quotes.Normalize(in.Symbol)
	if symbol == "" {
		return "", ErrMissingSymbol
	}
	if in.Shares <= 0 {
		return "", apperror.Validation(fmt.Sprintf("must input shares to %s", verb))
	}
	return symbol, nil
}
