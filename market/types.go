package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Listing mirrors one on-chain marketplace entry. Inactive listings are
// terminal: the contract never reactivates a cancelled or purchased id.
type Listing struct {
	ListingID   uint64
	Seller      common.Address
	NFTContract common.Address
	TokenID     uint64
	Price       *big.Int
	Active      bool

	// Token is optional best-effort enrichment, populated only for the
	// duration of one query call and never persisted.
	Token *TokenData
}

// TokenData is the per-token metadata the NFT contract exposes.
type TokenData struct {
	Name          string
	Creator       common.Address
	Splitter      common.Address
	MintedAt      *big.Int
	TokenURI      string
	LastSalePrice *big.Int
	LastSaleTime  *big.Int
}

// Domain is one enumerated token from the collection.
type Domain struct {
	TokenID uint64
	Owner   common.Address
	Data    TokenData
}

// SplitterBalance is one royalty splitter holding a nonzero share for a
// wallet.
type SplitterBalance struct {
	Splitter common.Address
	Balance  *big.Int
}
