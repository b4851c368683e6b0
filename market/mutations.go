package market

import (
	"context"
	"math/big"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Mutations return the transaction hash on success and nil on any failure:
// missing wallet, failed precondition, user rejection, submission error, or
// a reverted receipt. Callers branch on nil, never on an error value, which
// keeps the views free of provider error plumbing.

// transact packs, submits and waits out one state-changing call.
func (d *DataAccess) transact(ctx context.Context, op string, to common.Address, value *big.Int, parsed abi.ABI, method string, args ...any) *common.Hash {
	client := d.getClient()
	if client == nil {
		d.logf(log.WarnLevel, "mutation without a wallet", "op", op)
		return nil
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		d.logf(log.ErrorLevel, "calldata encoding failed", "op", op, "err", err)
		return nil
	}

	hash, err := client.Transact(ctx, to, value, data)
	if err != nil {
		d.logf(log.WarnLevel, "transaction not submitted", "op", op, "err", err)
		return nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, d.waitMined)
	defer cancel()
	receipt, err := client.WaitMined(waitCtx, hash)
	if err != nil {
		d.logf(log.WarnLevel, "transaction not mined in time", "op", op, "tx", hash.Hex(), "err", err)
		return nil
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		d.logf(log.WarnLevel, "transaction reverted", "op", op, "tx", hash.Hex())
		return nil
	}

	d.logf(log.InfoLevel, "transaction confirmed", "op", op, "tx", hash.Hex())
	return &hash
}

func (d *DataAccess) hasRole(ctx context.Context, role [32]byte, account common.Address) bool {
	out, err := d.call(ctx, d.addresses().NFT, nftABI, "hasRole", role, account)
	if err != nil {
		d.logf(log.DebugLevel, "role check failed", "err", err)
		return false
	}
	return out[0].(bool)
}

func (d *DataAccess) account() (common.Address, bool) {
	client := d.getClient()
	if client == nil {
		return common.Address{}, false
	}
	addr := client.Account()
	return addr, addr != (common.Address{})
}

// BuyToken purchases an active listing, sending its exact price as value.
// An inactive or missing listing fails before any transaction is built.
func (d *DataAccess) BuyToken(ctx context.Context, listingID uint64) *common.Hash {
	listing, err := d.fetchListing(ctx, listingID)
	if err != nil {
		d.logf(log.WarnLevel, "buy precondition failed", "listing", listingID, "err", err)
		return nil
	}
	if !listing.Active {
		d.logf(log.WarnLevel, "listing no longer active", "listing", listingID)
		return nil
	}
	return d.transact(ctx, "buy", d.addresses().Marketplace, listing.Price,
		marketplaceABI, "buy", new(big.Int).SetUint64(listingID))
}

// ListToken puts a token up for sale at the given wei price. The token must
// already be approved for the marketplace (see ApproveTokenForSale).
func (d *DataAccess) ListToken(ctx context.Context, nftContract common.Address, tokenID uint64, price *big.Int) *common.Hash {
	if price == nil || price.Sign() <= 0 {
		d.logf(log.WarnLevel, "refusing zero-price listing", "token", tokenID)
		return nil
	}
	return d.transact(ctx, "listToken", d.addresses().Marketplace, nil,
		marketplaceABI, "listToken", nftContract, new(big.Int).SetUint64(tokenID), price)
}

// CancelListing deactivates the caller's own active listing.
func (d *DataAccess) CancelListing(ctx context.Context, listingID uint64) *common.Hash {
	listing, err := d.fetchListing(ctx, listingID)
	if err != nil || !listing.Active {
		d.logf(log.WarnLevel, "cancel precondition failed", "listing", listingID, "err", err)
		return nil
	}
	if account, ok := d.account(); ok && listing.Seller != account {
		d.logf(log.WarnLevel, "not the seller of this listing", "listing", listingID)
		return nil
	}
	return d.transact(ctx, "cancelListing", d.addresses().Marketplace, nil,
		marketplaceABI, "cancelListing", new(big.Int).SetUint64(listingID))
}

// UpdateListing changes the price of the caller's own active listing.
func (d *DataAccess) UpdateListing(ctx context.Context, listingID uint64, newPrice *big.Int) *common.Hash {
	if newPrice == nil || newPrice.Sign() <= 0 {
		d.logf(log.WarnLevel, "refusing zero-price update", "listing", listingID)
		return nil
	}
	listing, err := d.fetchListing(ctx, listingID)
	if err != nil || !listing.Active {
		d.logf(log.WarnLevel, "update precondition failed", "listing", listingID, "err", err)
		return nil
	}
	return d.transact(ctx, "updateListing", d.addresses().Marketplace, nil,
		marketplaceABI, "updateListing", new(big.Int).SetUint64(listingID), newPrice)
}

// ApproveTokenForSale grants the marketplace transfer approval for one
// token. Already-approved tokens short-circuit without a transaction, which
// also comes back nil; callers that care should re-check approval, not the
// hash.
func (d *DataAccess) ApproveTokenForSale(ctx context.Context, tokenID uint64) *common.Hash {
	marketplace := d.addresses().Marketplace
	out, err := d.call(ctx, d.addresses().NFT, nftABI, "getApproved", new(big.Int).SetUint64(tokenID))
	if err == nil && out[0].(common.Address) == marketplace {
		d.logf(log.InfoLevel, "token already approved", "token", tokenID)
		return nil
	}
	return d.transact(ctx, "approve", d.addresses().NFT, nil,
		nftABI, "approve", marketplace, new(big.Int).SetUint64(tokenID))
}

// WithdrawRoyaltyFromSplitter pulls the caller's accrued share out of one
// royalty splitter.
func (d *DataAccess) WithdrawRoyaltyFromSplitter(ctx context.Context, splitter common.Address) *common.Hash {
	account, ok := d.account()
	if !ok {
		d.logf(log.WarnLevel, "mutation without a wallet", "op", "withdrawRoyalty")
		return nil
	}
	bal, err := d.GetRoyaltyBalance(ctx, splitter, account)
	if err != nil || bal.Sign() == 0 {
		d.logf(log.WarnLevel, "nothing to withdraw", "splitter", splitter, "err", err)
		return nil
	}
	return d.transact(ctx, "withdrawRoyalty", splitter, nil, splitterABI, "withdraw")
}

// WithdrawAllRoyaltyFees withdraws from every splitter holding a nonzero
// share for the caller, sequentially. Returns the hash of the last
// successful withdrawal, nil when none succeeded.
func (d *DataAccess) WithdrawAllRoyaltyFees(ctx context.Context) *common.Hash {
	account, ok := d.account()
	if !ok {
		d.logf(log.WarnLevel, "mutation without a wallet", "op", "withdrawAllRoyalties")
		return nil
	}

	var last *common.Hash
	for _, sb := range d.GetRoyaltyBalances(ctx, account) {
		if hash := d.transact(ctx, "withdrawRoyalty", sb.Splitter, nil, splitterABI, "withdraw"); hash != nil {
			last = hash
		}
	}
	return last
}

// WithdrawMarketplaceFees sweeps the accrued marketplace fees. Admin only;
// the role is checked up front so non-admins never sign a doomed
// transaction.
func (d *DataAccess) WithdrawMarketplaceFees(ctx context.Context) *common.Hash {
	account, ok := d.account()
	if !ok || !d.hasRole(ctx, DefaultAdminRole, account) {
		d.logf(log.WarnLevel, "caller lacks the admin role", "op", "withdrawFees")
		return nil
	}
	return d.transact(ctx, "withdrawFees", d.addresses().Marketplace, nil,
		marketplaceABI, "withdrawFees")
}

// MintDomain mints a new domain token to the recipient. Minter only.
func (d *DataAccess) MintDomain(ctx context.Context, to common.Address, domainName string) *common.Hash {
	if domainName == "" {
		d.logf(log.WarnLevel, "refusing empty domain name", "op", "mint")
		return nil
	}
	account, ok := d.account()
	if !ok || !d.hasRole(ctx, MinterRole, account) {
		d.logf(log.WarnLevel, "caller lacks the minter role", "op", "mint")
		return nil
	}
	return d.transact(ctx, "mint", d.addresses().NFT, nil,
		nftABI, "mint", to, domainName)
}
