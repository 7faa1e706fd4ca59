package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/quenbyco/storefront-backend/pkg/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubLevelRepo struct {
	levels    map[uuid.UUID]int
	failures  int
	callCount int
}

func (s *stubLevelRepo) WithTx(tx *gorm.DB) LevelRepository { return s }

func (s *stubLevelRepo) GetLevel(ctx context.Context, variantID uuid.UUID) (*models.InventoryLevel, error) {
	s.callCount++
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("transient storage error")
	}
	qty, ok := s.levels[variantID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.InventoryLevel{VariantID: variantID, AvailableQuantity: qty}, nil
}

func (s *stubLevelRepo) GetLevelForUpdate(ctx context.Context, variantID uuid.UUID) (*models.InventoryLevel, error) {
	return s.GetLevel(ctx, variantID)
}

func newChecker(t *testing.T, repo LevelRepository) Checker {
	t.Helper()
	svc, err := NewService(ServiceParams{Repo: repo, LowStockThreshold: 5})
	require.NoError(t, err)
	return svc
}

func TestCheckClassification(t *testing.T) {
	variantPlenty := uuid.New()
	variantLow := uuid.New()
	variantEmpty := uuid.New()
	repo := &stubLevelRepo{levels: map[uuid.UUID]int{
		variantPlenty: 40,
		variantLow:    3,
		variantEmpty:  0,
	}}
	checker := newChecker(t, repo)
	ctx := context.Background()

	plenty, err := checker.Check(ctx, variantPlenty)
	require.NoError(t, err)
	assert.True(t, plenty.IsAvailable)
	assert.False(t, plenty.IsLowStock)
	assert.Equal(t, 40, plenty.AvailableQuantity)

	low, err := checker.Check(ctx, variantLow)
	require.NoError(t, err)
	assert.True(t, low.IsAvailable)
	assert.True(t, low.IsLowStock)

	empty, err := checker.Check(ctx, variantEmpty)
	require.NoError(t, err)
	assert.False(t, empty.IsAvailable)
	assert.False(t, empty.IsLowStock)
}

func TestCheckMissingRowReadsAsOutOfStock(t *testing.T) {
	repo := &stubLevelRepo{levels: map[uuid.UUID]int{}}
	checker := newChecker(t, repo)

	availability, err := checker.Check(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, availability.IsAvailable)
	assert.Equal(t, 0, availability.AvailableQuantity)
}

func TestCheckQuantityAgainstStock(t *testing.T) {
	variant := uuid.New()
	repo := &stubLevelRepo{levels: map[uuid.UUID]int{variant: 4}}
	checker := newChecker(t, repo)
	ctx := context.Background()

	ok, err := checker.CheckQuantity(ctx, variant, 4)
	require.NoError(t, err)
	assert.True(t, ok.IsAvailable)

	tooMany, err := checker.CheckQuantity(ctx, variant, 5)
	require.NoError(t, err)
	assert.False(t, tooMany.IsAvailable)
	assert.Equal(t, 4, tooMany.AvailableQuantity)
}

func TestCheckRetriesTransientErrors(t *testing.T) {
	variant := uuid.New()
	repo := &stubLevelRepo{
		levels:   map[uuid.UUID]int{variant: 10},
		failures: 2,
	}
	checker := newChecker(t, repo)

	availability, err := checker.Check(context.Background(), variant)
	require.NoError(t, err)
	assert.True(t, availability.IsAvailable)
	assert.Equal(t, 3, repo.callCount)
}

func TestCheckRequiresVariantID(t *testing.T) {
	checker := newChecker(t, &stubLevelRepo{})

	_, err := checker.Check(context.Background(), uuid.Nil)
	require.Error(t, err)
}
