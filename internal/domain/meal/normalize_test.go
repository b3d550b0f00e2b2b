package meal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meal-scheduler/internal/domain/meal"
)

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want meal.SlotStatus
		ok   bool
	}{
		{"AVAIL", meal.StatusAvailable, true},
		{"AVAILABLE", meal.StatusAvailable, true},
		{" available ", meal.StatusAvailable, true},
		{"ORDER", meal.StatusOrdered, true},
		{"ORDERED", meal.StatusOrdered, true},
		{"CLOSED", meal.StatusUnavailable, true},
		{"", meal.StatusUnknown, false},
		{"CANCELED", meal.StatusUnknown, false},
		{"NOT_YET_OPEN", meal.StatusUnknown, false},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			got, ok := meal.NormalizeStatus(tc.raw)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.ok, ok)
		})
	}
}

func TestContainsKeyword_NormalizesComposition(t *testing.T) {
	// decomposed "e" + combining acute vs precomposed "é"
	assert.True(t, meal.ContainsKeyword("Cafe\u0301 lunch", "Caf\u00e9"))
	assert.True(t, meal.ContainsKeyword("anything", ""))
}

func TestContainsKeyword_KeepsSurroundingSpaces(t *testing.T) {
	assert.True(t, meal.ContainsKeyword("自助 午餐", "自助 "))
	assert.False(t, meal.ContainsKeyword("自助午餐", "自助 "))
	assert.False(t, meal.ContainsKeyword("午餐", " 午餐"))
}

func TestDateOf_UsesLocation(t *testing.T) {
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)

	// 2024-01-09 20:00 UTC is already 2024-01-10 in Shanghai.
	ts := time.Date(2024, 1, 9, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), meal.DateOf(ts, shanghai))
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), meal.DateOf(ts, time.UTC))
}

func TestHorizon(t *testing.T) {
	today := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	r := meal.Horizon(today, 7)

	assert.Equal(t, today, r.From)
	assert.Equal(t, time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC), r.To)
	assert.True(t, r.Contains(today))
	assert.True(t, r.Contains(r.To))
	assert.False(t, r.Contains(today.AddDate(0, 0, -1)))
}

func TestParsePrice(t *testing.T) {
	p := meal.ParsePrice("¥25.50")
	require.NotNil(t, p)
	assert.Equal(t, "25.5", p.String())

	assert.Nil(t, meal.ParsePrice(""))
	assert.Nil(t, meal.ParsePrice("free"))
}
