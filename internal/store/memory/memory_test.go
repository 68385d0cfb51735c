package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tradeledger/backend/internal/domain"
	"tradeledger/backend/internal/store"
)

func TestSeededStoreHasLedgerData(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	jobs, err := s.ListJobs(ctx)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
	assert.Equal(t, "HM-101", jobs[0].JobNo)

	sales, err := s.ListSales(ctx, domain.SaleFilter{})
	require.NoError(t, err)
	require.Len(t, sales, 4)
	assert.Equal(t, "BC-1004", sales[0].BCNo, "newest first")

	groups, err := s.ListExpenseGroups(ctx, "HM-101")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Entries, 3)

	purchases, err := s.ListPurchases(ctx, domain.PurchaseFilter{})
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, 2555325.0, purchases[0].AmountINR)
}

func TestSeededUsersAreHashed(t *testing.T) {
	t.Setenv("SEED_ADMIN_PASSWORD", "s3cret-admin")
	t.Setenv("SEED_VIEWER_PASSWORD", "s3cret-viewer")

	users, err := NewSeeded().ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, domain.RoleAdmin, users[0].Role)
	assert.Equal(t, domain.RoleViewer, users[1].Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("s3cret-admin")))
}

func TestJobUpsertOverwrites(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.UpsertJob(ctx, domain.Job{JobNo: " J1 ", Overall: 10})
	require.NoError(t, err)
	_, err = s.UpsertJob(ctx, domain.Job{JobNo: "J1", Overall: 25, Commodity: "Maize"})
	require.NoError(t, err)

	job, err := s.GetJob(ctx, "J1")
	require.NoError(t, err)
	assert.Equal(t, 25.0, job.Overall)
	assert.Equal(t, "Maize", job.Commodity)

	_, err = s.UpsertJob(ctx, domain.Job{JobNo: "  "})
	assert.ErrorIs(t, err, store.ErrInvalidRecord)

	require.NoError(t, s.DeleteJob(ctx, "J1"))
	_, err = s.GetJob(ctx, "J1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.DeleteJob(ctx, "J1"), store.ErrNotFound)
}

func TestSaleLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateSale(ctx, domain.SaleConfirmation{BCNo: "BC-1", JobNo: "J1", Qty: 5, Rate: 10, Nett: 50})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = s.CreateSale(ctx, domain.SaleConfirmation{BCNo: "bc-1", JobNo: "J2"})
	assert.ErrorIs(t, err, store.ErrInvalidRecord, "bc numbers are unique")

	created.Qty = 7
	updated, err := s.UpdateSale(ctx, *created)
	require.NoError(t, err)
	assert.Equal(t, 7.0, updated.Qty)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	_, err = s.UpdateSale(ctx, domain.SaleConfirmation{ID: "missing", BCNo: "x", JobNo: "y"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteSale(ctx, created.ID))
	_, err = s.GetSale(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListSalesAppliesFilter(t *testing.T) {
	s := NewSeeded()

	sales, err := s.ListSales(context.Background(), domain.SaleFilter{JobNo: "hm-101"})
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "BC-1002", sales[0].BCNo)

	sales, err = s.ListSales(context.Background(), domain.SaleFilter{From: domain.MustDate("2025-02-01")})
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "RS-201", sales[0].JobNo)
}

func TestExpenseGroupsAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()

	created, err := s.CreateExpenseGroup(ctx, domain.ExpenseGroup{
		JobNo:   "J1",
		Entries: []domain.ExpenseEntry{{Category: domain.Known("P.P. Bags"), Amount: 10}},
	})
	require.NoError(t, err)

	created.Entries[0].Amount = 9999
	got, err := s.GetExpenseGroup(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got.Entries[0].Amount)

	other, err := s.ListExpenseGroups(ctx, "J2")
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = s.UpdateExpenseGroup(ctx, domain.ExpenseGroup{ID: "nope", JobNo: "J1"})
	assert.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, s.DeleteExpenseGroup(ctx, created.ID))
}

func TestPurchaseLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.CreatePurchase(ctx, domain.Purchase{})
	assert.ErrorIs(t, err, store.ErrInvalidRecord)

	p, err := s.CreatePurchase(ctx, domain.Purchase{BusinessNo: "PB-9", Date: domain.MustDate("2025-04-01")})
	require.NoError(t, err)

	p.Vessel = "MV Ocean Star"
	_, err = s.UpdatePurchase(ctx, *p)
	require.NoError(t, err)

	list, err := s.ListPurchases(ctx, domain.PurchaseFilter{BusinessNo: "pb-9"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "MV Ocean Star", list[0].Vessel)

	require.NoError(t, s.DeletePurchase(ctx, p.ID))
	assert.ErrorIs(t, s.DeletePurchase(ctx, p.ID), store.ErrNotFound)
}

func TestUserStore(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, domain.UserAccount{Username: " Ops ", Password: "hash"}))
	assert.ErrorIs(t, s.CreateUser(ctx, domain.UserAccount{Username: "ops", Password: "x"}), store.ErrInvalidRecord)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "ops", users[0].Username)
	assert.Equal(t, domain.RoleViewer, users[0].Role)

	require.NoError(t, s.UpdateUserPassword(ctx, "OPS", "new-hash"))
	assert.ErrorIs(t, s.UpdateUserPassword(ctx, "ghost", "x"), store.ErrNotFound)
}
