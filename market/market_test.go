package market

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type sentTx struct {
	to    common.Address
	value *big.Int
	data  []byte
}

// fakeChain dispatches read calls by 4-byte selector and records submitted
// transactions. Unhandled selectors revert, which doubles as the "id does
// not exist" shape real providers produce.
type fakeChain struct {
	account  common.Address
	handlers map[string]func(to common.Address, input []byte) ([]byte, error)
	calls    map[string]int

	txs           []sentTx
	txErr         error
	receiptStatus uint64
	minedErr      error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		account:       common.HexToAddress("0xabc1"),
		handlers:      make(map[string]func(common.Address, []byte) ([]byte, error)),
		calls:         make(map[string]int),
		receiptStatus: types.ReceiptStatusSuccessful,
	}
}

func (f *fakeChain) on(parsed abi.ABI, method string, fn func(to common.Address, input []byte) ([]byte, error)) {
	f.handlers[string(parsed.Methods[method].ID)] = fn
}

func (f *fakeChain) callCount(parsed abi.ABI, method string) int {
	return f.calls[string(parsed.Methods[method].ID)]
}

func (f *fakeChain) Account() common.Address { return f.account }

func (f *fakeChain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	sel := string(msg.Data[:4])
	f.calls[sel]++
	fn, ok := f.handlers[sel]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return fn(*msg.To, msg.Data[4:])
}

func (f *fakeChain) Transact(_ context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	if f.txErr != nil {
		return common.Hash{}, f.txErr
	}
	f.txs = append(f.txs, sentTx{to: to, value: value, data: data})
	return common.BigToHash(big.NewInt(int64(len(f.txs)))), nil
}

func (f *fakeChain) WaitMined(_ context.Context, _ common.Hash) (*types.Receipt, error) {
	if f.minedErr != nil {
		return nil, f.minedErr
	}
	return &types.Receipt{Status: f.receiptStatus}, nil
}

func packOut(t *testing.T, parsed abi.ABI, method string, vals ...any) []byte {
	t.Helper()
	out, err := parsed.Methods[method].Outputs.Pack(vals...)
	require.NoError(t, err)
	return out
}

func newTestAccess(chain *fakeChain) *DataAccess {
	d := New(chain, Addresses{
		Marketplace: common.HexToAddress("0x1000"),
		NFT:         common.HexToAddress("0x2000"),
	}, nil)
	d.limiter = rate.NewLimiter(rate.Inf, 1)
	d.backoffBase = time.Millisecond
	d.backoffMax = 2 * time.Millisecond
	d.waitMined = 100 * time.Millisecond
	return d
}

// listingHandler serves getListing from a fixed map, reverting for absent
// ids.
func listingHandler(t *testing.T, listings map[uint64]Listing) func(common.Address, []byte) ([]byte, error) {
	return func(_ common.Address, input []byte) ([]byte, error) {
		vals, err := marketplaceABI.Methods["getListing"].Inputs.Unpack(input)
		require.NoError(t, err)
		id := vals[0].(*big.Int).Uint64()
		l, ok := listings[id]
		if !ok {
			return nil, errors.New("execution reverted: nonexistent listing")
		}
		return packOut(t, marketplaceABI, "getListing",
			l.Seller, l.NFTContract, new(big.Int).SetUint64(l.TokenID), l.Price, l.Active), nil
	}
}

func counterHandler(t *testing.T, last int64) func(common.Address, []byte) ([]byte, error) {
	return func(common.Address, []byte) ([]byte, error) {
		return packOut(t, marketplaceABI, "lastListingId", big.NewInt(last)), nil
	}
}

func seededListings(ids ...uint64) map[uint64]Listing {
	seller := common.HexToAddress("0x5e11e4")
	nft := common.HexToAddress("0x2000")
	listings := make(map[uint64]Listing)
	for _, id := range ids {
		listings[id] = Listing{
			Seller:      seller,
			NFTContract: nft,
			TokenID:     id,
			Price:       big.NewInt(int64(id) * 100),
			Active:      id%2 == 0,
		}
	}
	return listings
}

func TestGetListing(t *testing.T) {
	chain := newFakeChain()
	chain.on(marketplaceABI, "getListing", listingHandler(t, seededListings(1, 2)))
	chain.on(nftABI, "getTokenData", func(_ common.Address, input []byte) ([]byte, error) {
		vals, err := nftABI.Methods["getTokenData"].Inputs.Unpack(input)
		require.NoError(t, err)
		id := vals[0].(*big.Int).Uint64()
		return packOut(t, nftABI, "getTokenData",
			fmt.Sprintf("domain%d.x", id), common.HexToAddress("0xc0ffee"), common.HexToAddress("0x51"),
			big.NewInt(1700000000), "ipfs://meta", big.NewInt(0), big.NewInt(0)), nil
	})
	d := newTestAccess(chain)

	listing, err := d.GetListing(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), listing.ListingID)
	assert.Equal(t, uint64(2), listing.TokenID)
	assert.True(t, listing.Active)
	require.NotNil(t, listing.Token)
	assert.Equal(t, "domain2.x", listing.Token.Name)

	_, err = d.GetListing(context.Background(), 99)
	assert.Error(t, err)
}

func TestGetListingSurvivesMissingMetadata(t *testing.T) {
	chain := newFakeChain()
	chain.on(marketplaceABI, "getListing", listingHandler(t, seededListings(2)))
	d := newTestAccess(chain)

	listing, err := d.GetListing(context.Background(), 2)
	require.NoError(t, err)
	assert.Nil(t, listing.Token, "metadata failure must not sink the listing")
}

func TestGetListingZeroedTupleIsNotFound(t *testing.T) {
	chain := newFakeChain()
	chain.on(marketplaceABI, "getListing", func(common.Address, []byte) ([]byte, error) {
		return packOut(t, marketplaceABI, "getListing",
			common.Address{}, common.Address{}, big.NewInt(0), big.NewInt(0), false), nil
	})
	d := newTestAccess(chain)

	_, err := d.GetListing(context.Background(), 1)
	assert.ErrorIs(t, err, errListingNotFound)
}

func TestGetAllListingsActiveOnly(t *testing.T) {
	chain := newFakeChain()
	chain.on(marketplaceABI, "lastListingId", counterHandler(t, 6))
	chain.on(marketplaceABI, "getListing", listingHandler(t, seededListings(1, 2, 3, 4, 5, 6)))
	d := newTestAccess(chain)

	got := d.GetAllListings(context.Background(), true)
	require.Len(t, got, 3)
	ids := []uint64{got[0].ListingID, got[1].ListingID, got[2].ListingID}
	assert.Equal(t, []uint64{2, 4, 6}, ids)

	all := d.GetAllListings(context.Background(), false)
	assert.Len(t, all, 6)
}

func TestCounterRangeSpansCancelledGaps(t *testing.T) {
	// ids 1-6 and 9-12 were cancelled and revert, but the counter says 12:
	// the whole range must still be covered
	chain := newFakeChain()
	chain.on(marketplaceABI, "lastListingId", counterHandler(t, 12))
	chain.on(marketplaceABI, "getListing", listingHandler(t, seededListings(7, 8)))
	d := newTestAccess(chain)

	got := d.GetAllListings(context.Background(), false)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(7), got[0].ListingID)
	assert.Equal(t, uint64(8), got[1].ListingID)
	assert.Equal(t, 12, chain.callCount(marketplaceABI, "getListing"),
		"every id up to the counter must be probed")

	page := d.GetListingsPage(context.Background(), 1, 12, false)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(8), page[0].ListingID)
}

func TestFallbackScanStopsOnConsecutiveMisses(t *testing.T) {
	// no counter handler, every listing probe reverts
	chain := newFakeChain()
	d := newTestAccess(chain)

	got := d.GetAllListings(context.Background(), false)
	assert.Empty(t, got)
	assert.LessOrEqual(t, chain.callCount(marketplaceABI, "getListing"), 10,
		"an empty marketplace must not be probed across the whole cap")
}

func TestFallbackScanFindsListingsWithoutCounter(t *testing.T) {
	chain := newFakeChain()
	chain.on(marketplaceABI, "getListing", listingHandler(t, seededListings(1, 2, 3)))
	d := newTestAccess(chain)

	got := d.GetAllListings(context.Background(), false)
	assert.Len(t, got, 3)
}

func TestScanAbortsOnRepeatedProviderFaults(t *testing.T) {
	chain := newFakeChain()
	chain.on(marketplaceABI, "getListing", func(common.Address, []byte) ([]byte, error) {
		return nil, errors.New("connection refused")
	})
	d := newTestAccess(chain)

	got := d.GetAllListings(context.Background(), false)
	assert.Empty(t, got)
	assert.Equal(t, 3, chain.callCount(marketplaceABI, "getListing"))
}

func TestGetListingsPageDescending(t *testing.T) {
	chain := newFakeChain()
	chain.on(marketplaceABI, "lastListingId", counterHandler(t, 10))
	chain.on(marketplaceABI, "getListing", listingHandler(t, seededListings(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)))
	d := newTestAccess(chain)

	page1 := d.GetListingsPage(context.Background(), 1, 3, false)
	require.Len(t, page1, 3)
	assert.Equal(t, uint64(10), page1[0].ListingID)
	assert.Equal(t, uint64(8), page1[2].ListingID)

	page4 := d.GetListingsPage(context.Background(), 4, 3, false)
	require.Len(t, page4, 1, "last page holds the remainder")
	assert.Equal(t, uint64(1), page4[0].ListingID)

	assert.Empty(t, d.GetListingsPage(context.Background(), 5, 3, false))
	assert.Empty(t, d.GetListingsPage(context.Background(), 0, 3, false))
}

func seedCollection(t *testing.T, chain *fakeChain, owners map[uint64]common.Address, splitters map[uint64]common.Address) {
	chain.on(nftABI, "ownerOf", func(_ common.Address, input []byte) ([]byte, error) {
		vals, err := nftABI.Methods["ownerOf"].Inputs.Unpack(input)
		require.NoError(t, err)
		id := vals[0].(*big.Int).Uint64()
		owner, ok := owners[id]
		if !ok {
			return nil, errors.New("execution reverted: ERC721: invalid token ID")
		}
		return packOut(t, nftABI, "ownerOf", owner), nil
	})
	chain.on(nftABI, "getTokenData", func(_ common.Address, input []byte) ([]byte, error) {
		vals, err := nftABI.Methods["getTokenData"].Inputs.Unpack(input)
		require.NoError(t, err)
		id := vals[0].(*big.Int).Uint64()
		return packOut(t, nftABI, "getTokenData",
			fmt.Sprintf("domain%d.x", id), common.HexToAddress("0xc0ffee"), splitters[id],
			big.NewInt(1700000000), "ipfs://meta", big.NewInt(0), big.NewInt(0)), nil
	})
}

func TestGetMyDomainsChecksOwnershipFirst(t *testing.T) {
	chain := newFakeChain()
	other := common.HexToAddress("0xdead")
	seedCollection(t, chain, map[uint64]common.Address{
		1: other, 2: chain.account, 3: other,
	}, nil)
	d := newTestAccess(chain)

	mine := d.GetMyDomainsFromCollection(context.Background(), chain.account)
	require.Len(t, mine, 1)
	assert.Equal(t, uint64(2), mine[0].TokenID)
	assert.Equal(t, "domain2.x", mine[0].Data.Name)
	assert.Equal(t, 1, chain.callCount(nftABI, "getTokenData"),
		"foreign tokens must not cost a metadata read")
}

func TestGetAllStrDomains(t *testing.T) {
	chain := newFakeChain()
	owner := common.HexToAddress("0xdead")
	seedCollection(t, chain, map[uint64]common.Address{1: owner, 2: owner}, nil)
	d := newTestAccess(chain)

	assert.Equal(t, []string{"domain1.x", "domain2.x"}, d.GetAllStrDomainsFromCollection(context.Background()))
}

func TestGetDomainsPaginated(t *testing.T) {
	chain := newFakeChain()
	owner := common.HexToAddress("0xdead")
	seedCollection(t, chain, map[uint64]common.Address{
		1: owner, 2: owner, 3: owner, 4: owner, 5: owner,
	}, nil)
	d := newTestAccess(chain)

	page2 := d.GetDomainsPaginated(context.Background(), 2, 2)
	require.Len(t, page2, 2)
	assert.Equal(t, uint64(3), page2[0].TokenID)

	page3 := d.GetDomainsPaginated(context.Background(), 3, 2)
	require.Len(t, page3, 1)
	assert.Empty(t, d.GetDomainsPaginated(context.Background(), 4, 2))
}

func TestCountTokensCachesBriefly(t *testing.T) {
	chain := newFakeChain()
	owner := common.HexToAddress("0xdead")
	seedCollection(t, chain, map[uint64]common.Address{1: owner, 2: owner, 3: owner}, nil)
	d := newTestAccess(chain)

	require.Equal(t, 3, d.CountTokens(context.Background()))
	probes := chain.callCount(nftABI, "ownerOf")

	require.Equal(t, 3, d.CountTokens(context.Background()))
	assert.Equal(t, probes, chain.callCount(nftABI, "ownerOf"), "second count must be served from cache")

	// swapping the client drops the cache
	d.SetClient(chain)
	require.Equal(t, 3, d.CountTokens(context.Background()))
	assert.Greater(t, chain.callCount(nftABI, "ownerOf"), probes)
}

func TestRoyaltyBalancesSkipZero(t *testing.T) {
	chain := newFakeChain()
	owner := common.HexToAddress("0xdead")
	s1 := common.HexToAddress("0x51")
	s2 := common.HexToAddress("0x52")
	seedCollection(t, chain,
		map[uint64]common.Address{1: owner, 2: owner},
		map[uint64]common.Address{1: s1, 2: s2})
	chain.on(splitterABI, "ethBalance", func(to common.Address, _ []byte) ([]byte, error) {
		if to == s1 {
			return packOut(t, splitterABI, "ethBalance", big.NewInt(500)), nil
		}
		return packOut(t, splitterABI, "ethBalance", big.NewInt(0)), nil
	})
	d := newTestAccess(chain)

	balances := d.GetRoyaltyBalances(context.Background(), chain.account)
	require.Len(t, balances, 1)
	assert.Equal(t, s1, balances[0].Splitter)
	assert.Equal(t, int64(500), balances[0].Balance.Int64())
}

func TestBuyToken(t *testing.T) {
	chain := newFakeChain()
	listings := seededListings(1, 2) // 1 inactive, 2 active
	chain.on(marketplaceABI, "getListing", listingHandler(t, listings))
	d := newTestAccess(chain)
	ctx := context.Background()

	t.Run("inactive listing is refused before signing", func(t *testing.T) {
		assert.Nil(t, d.BuyToken(ctx, 1))
		assert.Empty(t, chain.txs)
	})

	t.Run("missing listing is refused", func(t *testing.T) {
		assert.Nil(t, d.BuyToken(ctx, 42))
		assert.Empty(t, chain.txs)
	})

	t.Run("active listing sends the exact price", func(t *testing.T) {
		hash := d.BuyToken(ctx, 2)
		require.NotNil(t, hash)
		require.Len(t, chain.txs, 1)
		assert.Equal(t, d.addresses().Marketplace, chain.txs[0].to)
		assert.Equal(t, int64(200), chain.txs[0].value.Int64())
	})
}

func TestMutationNilOnRevertedReceipt(t *testing.T) {
	chain := newFakeChain()
	chain.receiptStatus = types.ReceiptStatusFailed
	chain.on(marketplaceABI, "getListing", listingHandler(t, seededListings(2)))
	d := newTestAccess(chain)

	assert.Nil(t, d.BuyToken(context.Background(), 2))
	assert.Len(t, chain.txs, 1, "the transaction was submitted but reverted")
}

func TestMutationNilOnSubmissionFailure(t *testing.T) {
	chain := newFakeChain()
	chain.txErr = errors.New("user rejected the request")
	chain.on(marketplaceABI, "getListing", listingHandler(t, seededListings(2)))
	d := newTestAccess(chain)

	assert.Nil(t, d.BuyToken(context.Background(), 2))
}

func TestListTokenRejectsZeroPrice(t *testing.T) {
	chain := newFakeChain()
	d := newTestAccess(chain)

	assert.Nil(t, d.ListToken(context.Background(), d.addresses().NFT, 1, big.NewInt(0)))
	assert.Nil(t, d.ListToken(context.Background(), d.addresses().NFT, 1, nil))
	assert.Empty(t, chain.txs)

	assert.NotNil(t, d.ListToken(context.Background(), d.addresses().NFT, 1, big.NewInt(100)))
}

func TestCancelListingRequiresSeller(t *testing.T) {
	chain := newFakeChain()
	chain.on(marketplaceABI, "getListing", listingHandler(t, seededListings(2)))
	d := newTestAccess(chain)

	// seeded seller is not the connected account
	assert.Nil(t, d.CancelListing(context.Background(), 2))
	assert.Empty(t, chain.txs)

	chain.account = common.HexToAddress("0x5e11e4")
	assert.NotNil(t, d.CancelListing(context.Background(), 2))
}

func TestUpdateListingPreconditions(t *testing.T) {
	chain := newFakeChain()
	chain.on(marketplaceABI, "getListing", listingHandler(t, seededListings(1, 2)))
	d := newTestAccess(chain)
	ctx := context.Background()

	assert.Nil(t, d.UpdateListing(ctx, 2, big.NewInt(0)))
	assert.Nil(t, d.UpdateListing(ctx, 1, big.NewInt(300)), "inactive listing cannot be repriced")
	assert.Empty(t, chain.txs)

	assert.NotNil(t, d.UpdateListing(ctx, 2, big.NewInt(300)))
}

func TestApproveTokenForSale(t *testing.T) {
	chain := newFakeChain()
	d := newTestAccess(chain)
	ctx := context.Background()

	approved := common.Address{}
	chain.on(nftABI, "getApproved", func(common.Address, []byte) ([]byte, error) {
		return packOut(t, nftABI, "getApproved", approved), nil
	})

	require.NotNil(t, d.ApproveTokenForSale(ctx, 7))
	require.Len(t, chain.txs, 1)
	assert.Equal(t, d.addresses().NFT, chain.txs[0].to)

	// already approved: no second transaction
	approved = d.addresses().Marketplace
	assert.Nil(t, d.ApproveTokenForSale(ctx, 7))
	assert.Len(t, chain.txs, 1)
}

func TestWithdrawRoyaltyFromSplitter(t *testing.T) {
	chain := newFakeChain()
	splitter := common.HexToAddress("0x51")
	balance := big.NewInt(0)
	chain.on(splitterABI, "ethBalance", func(common.Address, []byte) ([]byte, error) {
		return packOut(t, splitterABI, "ethBalance", balance), nil
	})
	d := newTestAccess(chain)
	ctx := context.Background()

	assert.Nil(t, d.WithdrawRoyaltyFromSplitter(ctx, splitter), "zero balance, nothing to withdraw")
	assert.Empty(t, chain.txs)

	balance = big.NewInt(900)
	require.NotNil(t, d.WithdrawRoyaltyFromSplitter(ctx, splitter))
	assert.Equal(t, splitter, chain.txs[0].to)
}

func TestWithdrawAllRoyaltyFees(t *testing.T) {
	chain := newFakeChain()
	owner := common.HexToAddress("0xdead")
	s1 := common.HexToAddress("0x51")
	s2 := common.HexToAddress("0x52")
	seedCollection(t, chain,
		map[uint64]common.Address{1: owner, 2: owner},
		map[uint64]common.Address{1: s1, 2: s2})
	chain.on(splitterABI, "ethBalance", func(common.Address, []byte) ([]byte, error) {
		return packOut(t, splitterABI, "ethBalance", big.NewInt(10)), nil
	})
	d := newTestAccess(chain)

	hash := d.WithdrawAllRoyaltyFees(context.Background())
	require.NotNil(t, hash)
	require.Len(t, chain.txs, 2)
	assert.Equal(t, s1, chain.txs[0].to)
	assert.Equal(t, s2, chain.txs[1].to)
}

func TestAdminAndMinterGates(t *testing.T) {
	chain := newFakeChain()
	granted := false
	chain.on(nftABI, "hasRole", func(common.Address, []byte) ([]byte, error) {
		return packOut(t, nftABI, "hasRole", granted), nil
	})
	d := newTestAccess(chain)
	ctx := context.Background()

	t.Run("fees sweep refused without admin role", func(t *testing.T) {
		assert.Nil(t, d.WithdrawMarketplaceFees(ctx))
		assert.Empty(t, chain.txs)
	})

	t.Run("mint refused without minter role", func(t *testing.T) {
		assert.Nil(t, d.MintDomain(ctx, chain.account, "new.domain"))
		assert.Empty(t, chain.txs)
	})

	granted = true

	t.Run("admin sweeps fees", func(t *testing.T) {
		require.NotNil(t, d.WithdrawMarketplaceFees(ctx))
	})

	t.Run("minter mints", func(t *testing.T) {
		require.NotNil(t, d.MintDomain(ctx, chain.account, "new.domain"))
		assert.Nil(t, d.MintDomain(ctx, chain.account, ""), "empty names are refused")
	})
}

func TestMutationsWithoutClient(t *testing.T) {
	d := New(nil, Addresses{}, nil)
	d.limiter = rate.NewLimiter(rate.Inf, 1)
	ctx := context.Background()

	assert.Nil(t, d.BuyToken(ctx, 1))
	assert.Nil(t, d.ListToken(ctx, common.Address{}, 1, big.NewInt(1)))
	assert.Nil(t, d.MintDomain(ctx, common.Address{}, "x"))
	assert.Nil(t, d.WithdrawAllRoyaltyFees(ctx))
}
