package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeledger/backend/internal/domain"
)

func TestCheckConservationRequiresConfirmation(t *testing.T) {
	existing := []domain.SaleConfirmation{sale("a", "J2", 8, 1)}

	check := CheckConservation(10, existing, "J2", "", 5)

	assert.True(t, check.Exceeds)
	assert.Equal(t, 8.0, check.SoldBefore)
	assert.Equal(t, 13.0, check.WouldBeSold)
	warning := check.Warning()
	require.NotNil(t, warning)
	assert.Equal(t, "J2", warning.JobNo)
}

func TestCheckConservationExcludesEditedSale(t *testing.T) {
	existing := []domain.SaleConfirmation{sale("a", "J2", 8, 1), sale("b", "J3", 100, 1)}

	check := CheckConservation(10, existing, "J2", "a", 9)

	assert.False(t, check.Exceeds)
	assert.Equal(t, 9.0, check.WouldBeSold)
	assert.Nil(t, check.Warning())
}

func TestCheckConservationBoundaries(t *testing.T) {
	existing := []domain.SaleConfirmation{sale("a", "J2", 0.1, 1), sale("b", "J2", 0.2, 1)}

	assert.False(t, CheckConservation(0.5, existing, "J2", "", 0.2).Exceeds, "exactly full is allowed")
	assert.True(t, CheckConservation(0.5, existing, "J2", "", 0.21).Exceeds)
	assert.False(t, CheckConservation(0, existing, "J2", "", 1000).Exceeds, "jobs without overall are unchecked")
}

func TestPosition(t *testing.T) {
	pos := Position(100, []domain.SaleConfirmation{sale("a", "J1", 30.25, 1), sale("b", "J1", 19.5, 1)}, "J1")

	assert.Equal(t, 49.75, pos.Used)
	assert.Equal(t, 50.25, pos.Current)
}
