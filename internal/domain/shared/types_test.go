package shared

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFundingSource(t *testing.T) {
	accountID := uuid.New()
	cardID := uuid.New()

	t.Run("Account", func(t *testing.T) {
		src, err := NewFundingSource(&accountID, nil)
		require.NoError(t, err)
		assert.Equal(t, SourceKindAccount, src.Kind)
		assert.Equal(t, &accountID, src.AccountID())
		assert.Nil(t, src.CardID())
	})

	t.Run("Card", func(t *testing.T) {
		src, err := NewFundingSource(nil, &cardID)
		require.NoError(t, err)
		assert.Equal(t, SourceKindCard, src.Kind)
		assert.Equal(t, &cardID, src.CardID())
		assert.Nil(t, src.AccountID())
	})

	t.Run("Both", func(t *testing.T) {
		_, err := NewFundingSource(&accountID, &cardID)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("Neither", func(t *testing.T) {
		_, err := NewFundingSource(nil, nil)
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestFundingSource_Validate(t *testing.T) {
	assert.NoError(t, CardSource(uuid.New()).Validate())
	assert.ErrorIs(t, FundingSource{Kind: "WALLET", ID: uuid.New()}.Validate(), ErrInvalidArgument)
	assert.ErrorIs(t, AccountSource(uuid.Nil).Validate(), ErrInvalidArgument)
}

func TestPlanStatus_IsTerminal(t *testing.T) {
	assert.False(t, PlanStatusActive.IsTerminal())
	assert.True(t, PlanStatusCancelled.IsTerminal())
	assert.True(t, PlanStatusCompleted.IsTerminal())
}

func TestCorrelationID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", CorrelationID(ctx))
	assert.Equal(t, ctx, WithCorrelationID(ctx, ""))
	assert.Equal(t, "corr-42", CorrelationID(WithCorrelationID(ctx, "corr-42")))
}
