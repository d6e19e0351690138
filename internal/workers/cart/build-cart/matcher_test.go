package buildcart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-search-workers/internal/models"
)

func TestFuzzyScore(t *testing.T) {
	tests := []struct {
		name  string
		query string
		item  string
		want  float64
	}{
		{"exact", "Milk", "milk", 1.0},
		{"exact after whitespace collapse", "  brown   bread ", "Brown Bread", 1.0},
		{"full width", "ＭＩＬＫ", "milk", 1.0},
		{"name contains query", "coke", "Diet Coke 500ml", 0.8 + (4.0/15.0)*0.2},
		{"query contains name", "amul butter 500g", "Amul Butter", 0.7},
		{"token overlap", "fresh orange juice", "Apple Juice 1L", 1.0 / 3.0},
		{"partial overlap", "basmati rice", "Rice Basmati Premium", 2.0 / 3.0},
		{"no overlap", "bread", "Sprite", 0},
		{"empty query", "", "Sprite", 0},
		{"empty name", "bread", "  ", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fuzzyScore(tt.query, tt.item)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}
}

func TestPositionBoost(t *testing.T) {
	assert.Equal(t, 1.0, positionBoost(0, 5))
	assert.InDelta(t, 0.98, positionBoost(1, 5), 1e-12)
	assert.InDelta(t, 0.92, positionBoost(4, 5), 1e-12)
	assert.InDelta(t, 0.95, positionBoost(1, 2), 1e-12)
	assert.Equal(t, 1.0, positionBoost(0, 0))
}

func TestRankCandidates(t *testing.T) {
	t.Run("earlier rank wins equal fuzzy scores", func(t *testing.T) {
		ranked := rankCandidates("milk", []models.Candidate{
			{ID: "a", Name: "Milk"},
			{ID: "b", Name: "milk"},
		})
		require.Len(t, ranked, 2)
		assert.Equal(t, "a", ranked[0].candidate.ID)
		assert.Greater(t, ranked[0].score, ranked[1].score)
	})

	t.Run("better fuzzy score beats rank", func(t *testing.T) {
		ranked := rankCandidates("toned milk", []models.Candidate{
			{ID: "a", Name: "Milk Bread"},
			{ID: "b", Name: "Toned Milk"},
		})
		assert.Equal(t, "b", ranked[0].candidate.ID)
		assert.InDelta(t, 0.95, ranked[0].score, 1e-12)
	})
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "90", formatAmount(90))
	assert.Equal(t, "0", formatAmount(0))
	assert.Equal(t, "35.50", formatAmount(35.5))
	assert.Equal(t, "12.99", formatAmount(12.99))
}
