package rpc

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// TxSender submits a prepared transaction through the active wallet
// capability. The wallet signs out of band (extension prompt or relay
// approval) and returns the submitted transaction hash.
type TxSender interface {
	SendTransaction(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (common.Hash, error)
}

// Client wraps an Ethereum RPC client bound to a single connected account.
// Reads go straight to the node; writes are routed through the wallet via
// the TxSender supplied by the active connector.
type Client struct {
	*ethclient.Client
	URL    string
	From   common.Address
	Sender TxSender
}

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client *Client
	Error  error
}

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, 8*time.Second)
}

// ConnectWithTimeout attempts to connect with a custom timeout
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Client: nil, Error: err}
	}

	return ConnectResult{
		Client: &Client{
			Client: client,
			URL:    url,
		},
		Error: nil,
	}
}

// Account returns the account this client transacts as.
func (c *Client) Account() common.Address {
	return c.From
}

// Transact submits a transaction to the given contract through the wallet.
func (c *Client) Transact(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	if c.Sender == nil {
		return common.Hash{}, errors.New("client is read-only: no wallet sender attached")
	}
	return c.Sender.SendTransaction(ctx, c.From, to, value, data)
}

// WaitMined polls for the receipt of hash until it lands in a block or the
// context expires.
func (c *Client) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, err
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// AccountDetails contains balance information for an account
type AccountDetails struct {
	Address    string
	Wei        *big.Int
	LoadedAt   time.Time
	ErrMessage string
}

// LoadAccountDetails fetches the native currency balance for an address
func LoadAccountDetails(client *Client, addr common.Address) AccountDetails {
	return LoadAccountDetailsWithTimeout(client, addr, 12*time.Second)
}

// LoadAccountDetailsWithTimeout fetches account details with a custom timeout
func LoadAccountDetailsWithTimeout(client *Client, addr common.Address, timeout time.Duration) AccountDetails {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	d := AccountDetails{
		Address:  addr.Hex(),
		Wei:      big.NewInt(0),
		LoadedAt: time.Now(),
	}

	if client == nil || client.Client == nil {
		d.ErrMessage = "No RPC client."
		return d
	}

	wei, err := client.BalanceAt(ctx, addr, nil)
	if err != nil {
		d.ErrMessage = "Failed to load balance."
		return d
	}
	d.Wei = wei

	return d
}
