package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/storage"
)

func testSamples(mint string, base int64, n int) []*storage.PnLSample {
	samples := make([]*storage.PnLSample, 0, n)
	for i := 0; i < n; i++ {
		samples = append(samples, &storage.PnLSample{
			Mint:        mint,
			Pair:        "pair-" + mint,
			TimestampMs: base + int64(i)*4500,
			Price:       0.00001 + float64(i)*0.000001,
			PnLPct:      float64(i) * 10,
		})
	}
	return samples
}

func TestPnLSampleStoreInsertBulkAndGet(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPnLSampleStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, testSamples("mint-a", 1_700_000_000_000, 3)))
	require.NoError(t, store.InsertBulk(ctx, testSamples("mint-b", 1_700_000_000_000, 2)))

	got, err := store.GetByMint(ctx, "mint-a")
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, p := range got {
		assert.Equal(t, "mint-a", p.Mint)
		assert.Equal(t, "pair-mint-a", p.Pair)
		assert.Equal(t, int64(1_700_000_000_000+int64(i)*4500), p.TimestampMs)
		assert.InDelta(t, float64(i)*10, p.PnLPct, 1e-9)
	}
}

func TestPnLSampleStoreInsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPnLSampleStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}

func TestPnLSampleStoreRejectsIntraBatchDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPnLSampleStore(conn)
	ctx := context.Background()

	samples := testSamples("mint-a", 1_700_000_000_000, 2)
	samples[1].TimestampMs = samples[0].TimestampMs

	err := store.InsertBulk(ctx, samples)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Nothing from the failed batch may be visible.
	got, err := store.GetByMint(ctx, "mint-a")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPnLSampleStoreRejectsExistingDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPnLSampleStore(conn)
	ctx := context.Background()

	require.NoError(t, store.InsertBulk(ctx, testSamples("mint-a", 1_700_000_000_000, 1)))

	err := store.InsertBulk(ctx, testSamples("mint-a", 1_700_000_000_000, 1))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestPnLSampleStoreGetByMintEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPnLSampleStore(conn)

	got, err := store.GetByMint(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, got)
}
