package pending

import (
	"context"
	"errors"
	"testing"
	"time"

	"domain-market-tui/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *time.Time) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(storage.NewMemoryKV())
	s.now = func() time.Time { return now }
	return s, &now
}

func TestStoreAndGet(t *testing.T) {
	s, _ := newTestStore()

	require.NoError(t, s.Store(Update{
		Type:   TypePurchase,
		TxHash: "0xaaa",
		Data:   Payload{ListingID: 7, Price: "1.5"},
	}))

	got := s.GetAll()
	require.Len(t, got, 1)
	assert.Equal(t, TypePurchase, got[0].Type)
	assert.Equal(t, "0xaaa", got[0].TxHash)
	assert.Equal(t, uint64(7), got[0].Data.ListingID)
	assert.False(t, got[0].Timestamp.IsZero())
}

func TestExpiryPurgesLazily(t *testing.T) {
	s, now := newTestStore()

	require.NoError(t, s.Store(Update{Type: TypeList, TxHash: "0xaaa"}))

	// just inside the window
	*now = now.Add(MaxAge - time.Second)
	assert.Len(t, s.GetAll(), 1)

	// past the window: gone from reads and purged from storage
	*now = now.Add(2 * time.Second)
	assert.Empty(t, s.GetAll())

	if raw, ok := s.kv.Get(storageKey); ok {
		t.Errorf("expired entry should be purged from storage, found %q", raw)
	}
}

func TestWritePurgesExpired(t *testing.T) {
	s, now := newTestStore()

	require.NoError(t, s.Store(Update{Type: TypeCancel, TxHash: "0xold"}))
	*now = now.Add(MaxAge + time.Second)
	require.NoError(t, s.Store(Update{Type: TypeCancel, TxHash: "0xnew"}))

	got := s.GetAll()
	require.Len(t, got, 1)
	assert.Equal(t, "0xnew", got[0].TxHash)
}

func TestGetAllByType(t *testing.T) {
	s, _ := newTestStore()

	require.NoError(t, s.Store(Update{Type: TypePurchase, TxHash: "0xa"}))
	require.NoError(t, s.Store(Update{Type: TypeMint, TxHash: "0xb"}))
	require.NoError(t, s.Store(Update{Type: TypePurchase, TxHash: "0xc"}))

	purchases := s.GetAllByType(TypePurchase)
	require.Len(t, purchases, 2)
	assert.Equal(t, "0xa", purchases[0].TxHash)
	assert.Equal(t, "0xc", purchases[1].TxHash)
	assert.Empty(t, s.GetAllByType(TypeWithdraw))
}

func TestRemove(t *testing.T) {
	s, _ := newTestStore()

	require.NoError(t, s.Store(Update{Type: TypeApprove, TxHash: "0xa"}))

	// removing a non-existent hash is a no-op
	require.NoError(t, s.Remove("0xmissing"))
	assert.Len(t, s.GetAll(), 1)

	require.NoError(t, s.Remove("0xa"))
	assert.Empty(t, s.GetAll())
}

func TestClear(t *testing.T) {
	s, _ := newTestStore()

	require.NoError(t, s.Store(Update{Type: TypeList, TxHash: "0xa"}))
	require.NoError(t, s.Store(Update{Type: TypeList, TxHash: "0xb"}))
	require.NoError(t, s.Clear())
	assert.Empty(t, s.GetAll())
}

func TestSurvivesReload(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := NewStore(kv)
	require.NoError(t, s.Store(Update{Type: TypeMint, TxHash: "0xa"}))

	// a second store over the same backing sees the record
	reloaded := NewStore(kv)
	got := reloaded.GetAll()
	require.Len(t, got, 1)
	assert.Equal(t, "0xa", got[0].TxHash)
}

type fakeReceipts struct {
	receipts map[common.Hash]*types.Receipt
	err      error
}

func (f *fakeReceipts) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	r, ok := f.receipts[hash]
	if !ok {
		return nil, errors.New("not found")
	}
	return r, nil
}

func TestIsConfirmed(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	okHash := common.HexToHash("0x01")
	failedHash := common.HexToHash("0x02")
	chain := &fakeReceipts{receipts: map[common.Hash]*types.Receipt{
		okHash:     {Status: types.ReceiptStatusSuccessful},
		failedHash: {Status: types.ReceiptStatusFailed},
	}}

	assert.True(t, s.IsConfirmed(ctx, okHash.Hex(), chain))
	assert.False(t, s.IsConfirmed(ctx, failedHash.Hex(), chain), "reverted receipt is not a confirmation")
	assert.False(t, s.IsConfirmed(ctx, common.HexToHash("0x03").Hex(), chain), "missing receipt is not a confirmation")
	assert.False(t, s.IsConfirmed(ctx, okHash.Hex(), &fakeReceipts{err: errors.New("rpc down")}))
	assert.False(t, s.IsConfirmed(ctx, okHash.Hex(), nil))
}
