package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orbitalworks/verdict/internal/model"
)

func TestCheckConsistency(t *testing.T) {
	t.Parallel()

	rec := func(choice string) *model.Recommendation {
		return &model.Recommendation{Choice: choice}
	}

	tests := []struct {
		name         string
		decision     model.Decision
		choice       string
		inconsistent bool
	}{
		{
			name:         "choice matches recommendation",
			decision:     model.Decision{AIRecommendation: rec("approve")},
			choice:       "approve",
			inconsistent: false,
		},
		{
			name:         "choice diverges from recommendation",
			decision:     model.Decision{AIRecommendation: rec("approve")},
			choice:       "deny",
			inconsistent: true,
		},
		{
			name:         "no recommendation recorded",
			decision:     model.Decision{},
			choice:       "approve",
			inconsistent: false,
		},
		{
			name:         "empty recommended choice",
			decision:     model.Decision{AIRecommendation: rec("")},
			choice:       "approve",
			inconsistent: false,
		},
		{
			name:         "empty submitted choice",
			decision:     model.Decision{AIRecommendation: rec("approve")},
			choice:       "",
			inconsistent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := CheckConsistency(tt.decision, tt.choice)
			assert.Equal(t, tt.inconsistent, got.Inconsistent)
			if tt.inconsistent {
				assert.Equal(t, ReasonDivergedFromRecommendation, got.Reason)
			} else {
				assert.Empty(t, got.Reason)
			}
			assert.Nil(t, got.ReferenceDecisionID)
		})
	}
}
