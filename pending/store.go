package pending

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"domain-market-tui/storage"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// UpdateType names the mutation an optimistic record was created for.
type UpdateType string

const (
	TypePurchase     UpdateType = "purchase"
	TypeList         UpdateType = "list"
	TypeUpdate       UpdateType = "update"
	TypeCancel       UpdateType = "cancel"
	TypeApprove      UpdateType = "approve"
	TypeWithdraw     UpdateType = "withdraw"
	TypeWithdrawFees UpdateType = "withdrawFees"
	TypeMint         UpdateType = "mint"
)

// MaxAge is how long a pending update is kept before it is considered
// expired and purged lazily on the next read or write.
const MaxAge = 5 * time.Minute

const storageKey = "pending_updates"

// Payload carries the fields relevant to the update's type; unused fields
// stay zero.
type Payload struct {
	ListingID uint64 `json:"listingId,omitempty"`
	TokenID   uint64 `json:"tokenId,omitempty"`
	Price     string `json:"price,omitempty"`
	Splitter  string `json:"splitterAddress,omitempty"`
	Amount    string `json:"amount,omitempty"`
}

// Update is one locally recorded, not-yet-confirmed mutation, keyed by its
// transaction hash.
type Update struct {
	Type      UpdateType `json:"type"`
	TxHash    string     `json:"txHash"`
	Timestamp time.Time  `json:"timestamp"`
	Data      Payload    `json:"data"`
}

// ReceiptReader is the slice of the chain handle needed for confirmation
// checks.
type ReceiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Store is a durable, expiring record of in-flight mutations for optimistic
// UI reconciliation. It survives restarts through its KV backing; there is
// no background cleanup timer, expired entries are purged on every access.
type Store struct {
	mu  sync.Mutex
	kv  storage.KV
	now func() time.Time
}

// NewStore builds a store over the given KV backing.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Store appends an update stamped with the current time.
func (s *Store) Store(u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Timestamp = s.now()
	updates := append(s.loadFresh(), u)
	return s.save(updates)
}

// GetAll returns all non-expired updates, purging expired ones as a side
// effect.
func (s *Store) GetAll() []Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	updates := s.loadFresh()
	_ = s.save(updates)
	return updates
}

// GetAllByType returns the non-expired updates of one type.
func (s *Store) GetAllByType(t UpdateType) []Update {
	var filtered []Update
	for _, u := range s.GetAll() {
		if u.Type == t {
			filtered = append(filtered, u)
		}
	}
	return filtered
}

// Remove deletes the update keyed by txHash. Removing an absent hash is a
// no-op.
func (s *Store) Remove(txHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	updates := s.loadFresh()
	kept := updates[:0]
	for _, u := range updates {
		if u.TxHash != txHash {
			kept = append(kept, u)
		}
	}
	return s.save(kept)
}

// Clear removes every update.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kv.Remove(storageKey)
}

// IsConfirmed reports whether txHash has a successful receipt on chain.
// Missing receipts and read errors both count as unconfirmed.
func (s *Store) IsConfirmed(ctx context.Context, txHash string, chain ReceiptReader) bool {
	if chain == nil {
		return false
	}
	receipt, err := chain.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil || receipt == nil {
		return false
	}
	return receipt.Status == types.ReceiptStatusSuccessful
}

// loadFresh reads the collection and drops expired entries.
func (s *Store) loadFresh() []Update {
	raw, ok := s.kv.Get(storageKey)
	if !ok || raw == "" {
		return nil
	}

	var updates []Update
	if err := json.Unmarshal([]byte(raw), &updates); err != nil {
		// A corrupt collection is dropped rather than wedging every access.
		return nil
	}

	cutoff := s.now().Add(-MaxAge)
	fresh := updates[:0]
	for _, u := range updates {
		if u.Timestamp.After(cutoff) {
			fresh = append(fresh, u)
		}
	}
	return fresh
}

func (s *Store) save(updates []Update) error {
	if len(updates) == 0 {
		return s.kv.Remove(storageKey)
	}
	raw, err := json.Marshal(updates)
	if err != nil {
		return err
	}
	return s.kv.Set(storageKey, string(raw))
}
