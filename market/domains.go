package market

import (
	"context"
	"math/big"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

func (d *DataAccess) fetchTokenData(ctx context.Context, tokenID uint64) (*TokenData, error) {
	out, err := d.call(ctx, d.addresses().NFT, nftABI, "getTokenData", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return nil, err
	}
	return &TokenData{
		Name:          out[0].(string),
		Creator:       out[1].(common.Address),
		Splitter:      out[2].(common.Address),
		MintedAt:      out[3].(*big.Int),
		TokenURI:      out[4].(string),
		LastSalePrice: out[5].(*big.Int),
		LastSaleTime:  out[6].(*big.Int),
	}, nil
}

func (d *DataAccess) ownerOf(ctx context.Context, tokenID uint64) (common.Address, error) {
	out, err := d.call(ctx, d.addresses().NFT, nftABI, "ownerOf", new(big.Int).SetUint64(tokenID))
	if err != nil {
		return common.Address{}, err
	}
	return out[0].(common.Address), nil
}

// CountTokens derives the collection size by probing ownerOf forward from
// token 1. The result is cached briefly since several views consume it in
// quick succession.
func (d *DataAccess) CountTokens(ctx context.Context) int {
	d.mu.RLock()
	cached, at := d.cachedTokenCount, d.cachedTokenCountAt
	d.mu.RUnlock()
	if !at.IsZero() && time.Since(at) < tokenCountTTL {
		return cached
	}

	count := 0
	scan := d.newScanner()
	for id := uint64(1); id <= countScanCap; id++ {
		if err := d.pace(ctx); err != nil {
			break
		}
		_, err := d.ownerOf(ctx, id)
		if err == nil {
			count++
		}
		if !scan.next(ctx, err) {
			break
		}
	}

	d.mu.Lock()
	d.cachedTokenCount = count
	d.cachedTokenCountAt = time.Now()
	d.mu.Unlock()
	return count
}

// GetAllDomainsFromCollection enumerates the collection with owners and
// metadata, bounded by the domain scan cap.
func (d *DataAccess) GetAllDomainsFromCollection(ctx context.Context) []Domain {
	return d.scanDomains(ctx, domainScanCap, nil)
}

// GetAllStrDomainsFromCollection returns just the domain names of the
// collection, for pickers and completion.
func (d *DataAccess) GetAllStrDomainsFromCollection(ctx context.Context) []string {
	domains := d.scanDomains(ctx, domainScanCap, nil)
	names := make([]string, 0, len(domains))
	for _, dom := range domains {
		names = append(names, dom.Data.Name)
	}
	return names
}

// GetMyDomainsFromCollection enumerates only the tokens owned by the given
// wallet. Ownership is checked before metadata is fetched so foreign tokens
// cost a single read.
func (d *DataAccess) GetMyDomainsFromCollection(ctx context.Context, owner common.Address) []Domain {
	return d.scanDomains(ctx, ownedScanCap, func(tokenOwner common.Address) bool {
		return tokenOwner == owner
	})
}

// GetDomainsPaginated returns one page of the collection, page 1 first. The
// page window is cut from the scan order, so a shrinking collection can
// shorten late pages.
func (d *DataAccess) GetDomainsPaginated(ctx context.Context, page, perPage int) []Domain {
	if page < 1 || perPage < 1 {
		return nil
	}
	all := d.scanDomains(ctx, domainScanCap, nil)

	start := (page - 1) * perPage
	if start >= len(all) {
		return nil
	}
	end := start + perPage
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// scanDomains probes the token id space, keeping tokens the filter accepts
// (nil filter keeps everything). Metadata failures degrade to a Domain with
// zero Data rather than dropping the token.
func (d *DataAccess) scanDomains(ctx context.Context, limit uint64, keep func(owner common.Address) bool) []Domain {
	var domains []Domain
	scan := d.newScanner()

	for id := uint64(1); id <= limit; id++ {
		if err := d.pace(ctx); err != nil {
			break
		}
		owner, err := d.ownerOf(ctx, id)
		if err == nil && (keep == nil || keep(owner)) {
			dom := Domain{TokenID: id, Owner: owner}
			if data, derr := d.fetchTokenData(ctx, id); derr == nil {
				dom.Data = *data
			} else {
				d.logf(log.DebugLevel, "token metadata unavailable", "token", id, "err", derr)
			}
			domains = append(domains, dom)
		}
		if !scan.next(ctx, err) {
			break
		}
	}
	return domains
}

// GetRoyaltySplitters collects the distinct royalty splitter addresses
// across the collection.
func (d *DataAccess) GetRoyaltySplitters(ctx context.Context) []common.Address {
	seen := make(map[common.Address]bool)
	var splitters []common.Address
	for _, dom := range d.scanDomains(ctx, domainScanCap, nil) {
		addr := dom.Data.Splitter
		if addr == (common.Address{}) || seen[addr] {
			continue
		}
		seen[addr] = true
		splitters = append(splitters, addr)
	}
	return splitters
}

// GetRoyaltyBalance reads the wallet's withdrawable share in one splitter.
func (d *DataAccess) GetRoyaltyBalance(ctx context.Context, splitter, wallet common.Address) (*big.Int, error) {
	out, err := d.call(ctx, splitter, splitterABI, "ethBalance", wallet)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// GetRoyaltyBalances reports every splitter holding a nonzero share for the
// wallet. Unreadable splitters are skipped.
func (d *DataAccess) GetRoyaltyBalances(ctx context.Context, wallet common.Address) []SplitterBalance {
	var balances []SplitterBalance
	for _, splitter := range d.GetRoyaltySplitters(ctx) {
		if err := d.pace(ctx); err != nil {
			break
		}
		bal, err := d.GetRoyaltyBalance(ctx, splitter, wallet)
		if err != nil {
			d.logf(log.DebugLevel, "splitter balance unavailable", "splitter", splitter, "err", err)
			continue
		}
		if bal.Sign() > 0 {
			balances = append(balances, SplitterBalance{Splitter: splitter, Balance: bal})
		}
	}
	return balances
}
