package connector

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"domain-market-tui/rpc"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// NodeProvider adapts a plain JSON-RPC node with node-managed accounts into
// the LocalProvider capability: eth_accounts instead of an extension prompt,
// eth_sendTransaction instead of an extension signer. Chain switching is
// emulated through an endpoint table, one URL per chain id; a switch request
// for an unregistered chain fails the same way a wallet without that network
// would.
type NodeProvider struct {
	mu        sync.Mutex
	url       string
	endpoints map[string]string // hex chain id -> endpoint URL
	raw       *gethrpc.Client
	events    Events
}

// NewNodeProvider builds a provider over the given endpoint. endpoints maps
// additional chain ids to their URLs for emulated network switching; the
// initial URL's chain registers itself on first use.
func NewNodeProvider(url string, endpoints map[int64]string) *NodeProvider {
	eps := make(map[string]string, len(endpoints))
	for id, u := range endpoints {
		eps[hexChainID(big.NewInt(id))] = u
	}
	return &NodeProvider{url: url, endpoints: eps}
}

func (p *NodeProvider) conn(ctx context.Context) (*gethrpc.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.raw != nil {
		return p.raw, nil
	}
	if p.url == "" {
		return nil, ErrNotInstalled
	}

	raw, err := gethrpc.DialContext(ctx, p.url)
	if err != nil {
		return nil, fmt.Errorf("node dial failed: %w", err)
	}
	p.raw = raw
	return raw, nil
}

// Available reports whether the endpoint answers at all.
func (p *NodeProvider) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	raw, err := p.conn(ctx)
	if err != nil {
		return false
	}
	var id hexutil.Big
	return raw.CallContext(ctx, &id, "eth_chainId") == nil
}

// RequestAccounts lists the node-managed accounts. A node never prompts, so
// this is the same read as Accounts.
func (p *NodeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return p.Accounts(ctx)
}

// Accounts returns the node's unlocked accounts.
func (p *NodeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	raw, err := p.conn(ctx)
	if err != nil {
		return nil, err
	}

	var accounts []common.Address
	if err := raw.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("account listing failed: %w", err)
	}
	return accounts, nil
}

func (p *NodeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	raw, err := p.conn(ctx)
	if err != nil {
		return nil, err
	}

	var id hexutil.Big
	if err := raw.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return nil, fmt.Errorf("chain id read failed: %w", err)
	}
	return (*big.Int)(&id), nil
}

// Request handles the two wallet_* management methods locally and passes
// everything else straight to the node.
func (p *NodeProvider) Request(ctx context.Context, method string, params any) (any, error) {
	switch method {
	case "wallet_switchEthereumChain":
		req, ok := params.(switchChainParams)
		if !ok {
			return nil, fmt.Errorf("malformed switch request: %T", params)
		}
		return nil, p.switchEndpoint(ctx, req.ChainID)
	case "wallet_addEthereumChain":
		req, ok := params.(addChainParams)
		if !ok {
			return nil, fmt.Errorf("malformed add-chain request: %T", params)
		}
		p.registerEndpoint(req)
		return nil, nil
	}

	raw, err := p.conn(ctx)
	if err != nil {
		return nil, err
	}
	var result any
	if err := raw.CallContext(ctx, &result, method, params); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *NodeProvider) switchEndpoint(ctx context.Context, hexID string) error {
	p.mu.Lock()
	url, ok := p.endpoints[hexID]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("unrecognized chain %s: no endpoint registered", hexID)
	}

	raw, err := gethrpc.DialContext(ctx, url)
	if err != nil {
		return fmt.Errorf("network switch failed: %w", err)
	}

	p.mu.Lock()
	if p.raw != nil {
		p.raw.Close()
	}
	p.raw = raw
	p.url = url
	changed := p.events.ChainChanged
	p.mu.Unlock()

	if changed != nil {
		id, ok := new(big.Int).SetString(hexID[2:], 16)
		if ok {
			changed(id)
		}
	}
	return nil
}

func (p *NodeProvider) registerEndpoint(req addChainParams) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(req.RPCURLs) > 0 {
		p.endpoints[req.ChainID] = req.RPCURLs[0]
	}
}

// Client derives the read/write handle for the current endpoint, bound to
// the first unlocked account and signing through the node.
func (p *NodeProvider) Client(ctx context.Context) (*rpc.Client, error) {
	accounts, err := p.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}

	p.mu.Lock()
	url := p.url
	p.mu.Unlock()

	result := rpc.ConnectWithTimeout(url, 8*time.Second)
	if result.Error != nil {
		return nil, result.Error
	}
	client := result.Client
	client.From = accounts[0]
	client.Sender = (*nodeSender)(p)
	return client, nil
}

func (p *NodeProvider) Subscribe(ev Events) {
	p.mu.Lock()
	p.events = ev
	p.mu.Unlock()
}

// Close drops the underlying connection; the next call redials.
func (p *NodeProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.raw != nil {
		p.raw.Close()
		p.raw = nil
	}
}

// nodeSender routes transaction submission through eth_sendTransaction so
// the node does the signing.
type nodeSender NodeProvider

func (s *nodeSender) SendTransaction(ctx context.Context, from, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	raw, err := (*NodeProvider)(s).conn(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	tx := map[string]any{
		"from": from,
		"to":   to,
		"data": hexutil.Bytes(data),
	}
	if value != nil && value.Sign() > 0 {
		tx["value"] = (*hexutil.Big)(value)
	}

	var hash common.Hash
	if err := raw.CallContext(ctx, &hash, "eth_sendTransaction", tx); err != nil {
		return common.Hash{}, fmt.Errorf("transaction submission failed: %w", err)
	}
	return hash, nil
}
