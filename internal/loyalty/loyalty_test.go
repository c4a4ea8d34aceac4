package loyalty

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loyaltix/internal/errors"
	"loyaltix/internal/models"
)

func TestPointsForPurchase(t *testing.T) {
	tests := []struct {
		amount uint64
		want   uint64
	}{
		{0, 0},
		{9, 0},
		{150, 15},
		{199, 19},
		{200, 22},
		{499, 53},
		{500, 62},
		{999, 123},
		{1000, 150},
		{2500, 375},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, PointsForPurchase(tt.amount), "amount %d", tt.amount)
	}
}

func TestTierForPoints(t *testing.T) {
	tests := []struct {
		points uint64
		want   models.Tier
	}{
		{0, models.TierBronze},
		{1999, models.TierBronze},
		{2000, models.TierSilver},
		{4999, models.TierSilver},
		{5000, models.TierGold},
		{9999, models.TierGold},
		{10000, models.TierPlatinum},
		{MaxPoints, models.TierPlatinum},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, TierForPoints(tt.points), "points %d", tt.points)
	}
}

func TestDiscount(t *testing.T) {
	assert.Equal(t, uint64(80), Discount(models.TierPlatinum))
	assert.Equal(t, uint64(85), Discount(models.TierGold))
	assert.Equal(t, uint64(90), Discount(models.TierSilver))
	assert.Equal(t, uint64(95), Discount(models.TierBronze))
	assert.Equal(t, uint64(100), Discount(models.TierNone))
	assert.Equal(t, uint64(100), Discount(models.Tier("Diamond")))
}

func TestCreditAppendsEntryAndPromotes(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	account := NewAccount(7, at)
	account.Points = 1990

	require.NoError(t, Credit(account, 15, PurchaseDescription(150), at))

	assert.Equal(t, uint64(2005), account.Points)
	assert.Equal(t, models.TierSilver, account.Tier)
	require.Len(t, account.History, 1)
	assert.Equal(t, 0, account.History[0].Seq)
	assert.Equal(t, int64(15), account.History[0].Points)
	assert.Equal(t, "Points earned from purchase: 150", account.History[0].Description)
	assert.Equal(t, at, account.History[0].Timestamp)
	assert.True(t, Consistent(account))
}

func TestCreditOverflow(t *testing.T) {
	at := time.Now()
	account := NewAccount(1, at)
	account.Points = MaxPoints - 5

	err := Credit(account, 6, "too much", at)
	assert.True(t, errors.Is(err, apperrors.ErrPointsOverflow))
	assert.Equal(t, MaxPoints-5, account.Points)
	assert.Empty(t, account.History)

	require.NoError(t, Credit(account, 5, "exact", at))
	assert.Equal(t, MaxPoints, account.Points)
}

func TestDebit(t *testing.T) {
	at := time.Now()
	account := NewAccount(1, at)
	require.NoError(t, Credit(account, 2100, "seed", at))
	assert.Equal(t, models.TierSilver, account.Tier)

	require.NoError(t, Debit(account, 200, RedemptionDescription, at))
	assert.Equal(t, uint64(1900), account.Points)
	assert.Equal(t, models.TierBronze, account.Tier)
	require.Len(t, account.History, 2)
	assert.Equal(t, int64(-200), account.History[1].Points)
	assert.Equal(t, 1, account.History[1].Seq)
	assert.Equal(t, "Points redemption", account.History[1].Description)
}

func TestDebitInsufficient(t *testing.T) {
	at := time.Now()
	account := NewAccount(1, at)
	require.NoError(t, Credit(account, 100, "seed", at))

	err := Debit(account, 101, RedemptionDescription, at)
	assert.True(t, errors.Is(err, apperrors.ErrInsufficientBalance))
	assert.Equal(t, uint64(100), account.Points)
	assert.Len(t, account.History, 1)
}

func TestHistorySumsToBalance(t *testing.T) {
	at := time.Now()
	account := NewAccount(1, at)

	require.NoError(t, Credit(account, PointsForPurchase(1000), PurchaseDescription(1000), at))
	require.NoError(t, Credit(account, PointsForPurchase(500), PurchaseDescription(500), at))
	require.NoError(t, Debit(account, 100, RedemptionDescription, at))
	require.NoError(t, Credit(account, 0, PurchaseDescription(0), at))

	var sum int64
	for _, e := range account.History {
		sum += e.Points
	}
	assert.Equal(t, int64(account.Points), sum)
	assert.Equal(t, uint64(112), account.Points)
	assert.Len(t, account.History, 4)
}
