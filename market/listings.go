package market

import (
	"context"
	"errors"
	"math/big"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

var errListingNotFound = errors.New("listing not found")

// GetListing fetches a single listing by id, enriched with token metadata
// on a best-effort basis. Returns errListingNotFound-class errors for ids
// the contract has never assigned.
func (d *DataAccess) GetListing(ctx context.Context, listingID uint64) (*Listing, error) {
	listing, err := d.fetchListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	d.enrich(ctx, listing)
	return listing, nil
}

func (d *DataAccess) fetchListing(ctx context.Context, listingID uint64) (*Listing, error) {
	out, err := d.call(ctx, d.addresses().Marketplace, marketplaceABI, "getListing", new(big.Int).SetUint64(listingID))
	if err != nil {
		return nil, err
	}

	listing := &Listing{
		ListingID:   listingID,
		Seller:      out[0].(common.Address),
		NFTContract: out[1].(common.Address),
		TokenID:     out[2].(*big.Int).Uint64(),
		Price:       out[3].(*big.Int),
		Active:      out[4].(bool),
	}
	// Some deployments return a zeroed tuple instead of reverting for an
	// unassigned id.
	if listing.Seller == (common.Address{}) {
		return nil, errListingNotFound
	}
	return listing, nil
}

// enrich attaches token metadata to a listing. Failures are logged and
// swallowed; the listing stays usable without its metadata.
func (d *DataAccess) enrich(ctx context.Context, listing *Listing) {
	data, err := d.fetchTokenData(ctx, listing.TokenID)
	if err != nil {
		d.logf(log.DebugLevel, "token metadata unavailable", "token", listing.TokenID, "err", err)
		return
	}
	listing.Token = data
}

// GetAccruedFees reads the marketplace fees waiting for an admin sweep.
func (d *DataAccess) GetAccruedFees(ctx context.Context) (*big.Int, error) {
	out, err := d.call(ctx, d.addresses().Marketplace, marketplaceABI, "accruedFees")
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// LastListingID reads the marketplace's listing counter.
func (d *DataAccess) LastListingID(ctx context.Context) (uint64, error) {
	out, err := d.call(ctx, d.addresses().Marketplace, marketplaceABI, "lastListingId")
	if err != nil {
		return 0, err
	}
	return out[0].(*big.Int).Uint64(), nil
}

// GetListingsPaginated fetches up to limit listings starting at startID,
// pacing the individual reads. Ids that fail to resolve are skipped, so the
// result may be shorter than limit without that being an error. The window is
// taken from the listing counter, so cancelled ids inside it never cut the
// scan short; only repeated provider faults do.
func (d *DataAccess) GetListingsPaginated(ctx context.Context, startID, limit uint64, activeOnly bool) []Listing {
	var listings []Listing
	scan := d.newRangeScanner()

	for id := startID; id < startID+limit; id++ {
		if err := d.pace(ctx); err != nil {
			break
		}
		listing, err := d.fetchListing(ctx, id)
		if err == nil && (listing.Active || !activeOnly) {
			d.enrich(ctx, listing)
			listings = append(listings, *listing)
		}
		if !scan.next(ctx, err) {
			break
		}
	}
	return listings
}

// GetListingsPage returns one page of listings in descending id order, page
// 1 being the newest. Pages are cut from the counter range before active
// filtering, so an active-only page may come back short.
func (d *DataAccess) GetListingsPage(ctx context.Context, page, perPage int, activeOnly bool) []Listing {
	if page < 1 || perPage < 1 {
		return nil
	}

	last, err := d.LastListingID(ctx)
	if err != nil {
		d.logf(log.WarnLevel, "listing counter unavailable", "err", err)
		return nil
	}

	high := int64(last) - int64(page-1)*int64(perPage)
	if high < 1 {
		return nil
	}
	low := high - int64(perPage) + 1
	if low < 1 {
		low = 1
	}

	asc := d.GetListingsPaginated(ctx, uint64(low), uint64(high-low+1), activeOnly)
	listings := make([]Listing, 0, len(asc))
	for i := len(asc) - 1; i >= 0; i-- {
		listings = append(listings, asc[i])
	}
	return listings
}

// GetAllListings fetches every listing the marketplace knows about. With a
// readable counter the scan range is exact; without one it falls back to a
// bounded probe from id 1.
func (d *DataAccess) GetAllListings(ctx context.Context, activeOnly bool) []Listing {
	last, err := d.LastListingID(ctx)
	if err != nil {
		d.logf(log.InfoLevel, "listing counter unavailable, falling back to bounded scan", "err", err)
		return d.scanListings(ctx, activeOnly)
	}
	if last == 0 {
		return nil
	}
	return d.GetListingsPaginated(ctx, 1, last, activeOnly)
}

// scanListings probes ids forward from 1 until the cap, a run of misses, or
// too many provider faults.
func (d *DataAccess) scanListings(ctx context.Context, activeOnly bool) []Listing {
	var listings []Listing
	scan := d.newScanner()

	for id := uint64(1); id <= listingScanCap; id++ {
		if err := d.pace(ctx); err != nil {
			break
		}
		listing, err := d.fetchListing(ctx, id)
		if err == nil && (listing.Active || !activeOnly) {
			d.enrich(ctx, listing)
			listings = append(listings, *listing)
		}
		if !scan.next(ctx, err) {
			break
		}
	}
	return listings
}
