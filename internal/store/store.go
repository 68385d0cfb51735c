package store

import (
	"context"
	"errors"

	"tradeledger/backend/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidRecord = errors.New("invalid record")
)

// Repository is the backing source of the three ledger collections plus
// purchases. Implementations must return copies; callers may mutate results.
type Repository interface {
	ListJobs(ctx context.Context) ([]domain.Job, error)
	GetJob(ctx context.Context, jobNo string) (*domain.Job, error)
	UpsertJob(ctx context.Context, job domain.Job) (*domain.Job, error)
	DeleteJob(ctx context.Context, jobNo string) error

	ListSales(ctx context.Context, filter domain.SaleFilter) ([]domain.SaleConfirmation, error)
	GetSale(ctx context.Context, id string) (*domain.SaleConfirmation, error)
	CreateSale(ctx context.Context, sale domain.SaleConfirmation) (*domain.SaleConfirmation, error)
	UpdateSale(ctx context.Context, sale domain.SaleConfirmation) (*domain.SaleConfirmation, error)
	DeleteSale(ctx context.Context, id string) error

	ListExpenseGroups(ctx context.Context, jobNo string) ([]domain.ExpenseGroup, error)
	GetExpenseGroup(ctx context.Context, id string) (*domain.ExpenseGroup, error)
	CreateExpenseGroup(ctx context.Context, group domain.ExpenseGroup) (*domain.ExpenseGroup, error)
	UpdateExpenseGroup(ctx context.Context, group domain.ExpenseGroup) (*domain.ExpenseGroup, error)
	DeleteExpenseGroup(ctx context.Context, id string) error

	ListPurchases(ctx context.Context, filter domain.PurchaseFilter) ([]domain.Purchase, error)
	GetPurchase(ctx context.Context, id string) (*domain.Purchase, error)
	CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)
	UpdatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)
	DeletePurchase(ctx context.Context, id string) error
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
