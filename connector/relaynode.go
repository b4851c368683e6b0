package connector

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"domain-market-tui/rpc"

	"github.com/ethereum/go-ethereum/common"
)

var errNoRelayEndpoint = errors.New("no relay endpoint configured")

// RelayNodeProvider adapts a remote signing node into the RelayProvider
// capability: the node's unlocked accounts stand in for an approved remote
// session, and eth_sendTransaction is the out-of-band signer. The pairing
// URI handed to the display callback is the node's endpoint, so the operator
// can verify which signer they are about to approve.
type RelayNodeProvider struct {
	mu        sync.Mutex
	node      *NodeProvider
	url       string
	endpoints map[int64]string
	projectID string
	session   bool
	pairing   func(uri string)
	events    RelayEvents
}

// NewRelayNodeProvider builds a provider over the given remote endpoint.
// endpoints maps additional chain ids to their URLs, same as NodeProvider.
func NewRelayNodeProvider(url string, endpoints map[int64]string) *RelayNodeProvider {
	return &RelayNodeProvider{
		url:       url,
		endpoints: endpoints,
		node:      NewNodeProvider(url, endpoints),
	}
}

// Init prepares the provider. Callable again after Disconnect so the adapter
// can rebuild a clean core without a process restart.
func (p *RelayNodeProvider) Init(projectID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.url == "" {
		return errNoRelayEndpoint
	}
	if p.node == nil {
		p.node = NewNodeProvider(p.url, p.endpoints)
	}
	p.projectID = projectID
	return nil
}

// Enable establishes the session: the pairing URI is surfaced first so the
// caller can display it while the remote side approves, then the node's
// accounts are adopted.
func (p *RelayNodeProvider) Enable(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	pairing := p.pairing
	url := p.url
	node := p.node
	p.mu.Unlock()
	if node == nil {
		return nil, errNoRelayEndpoint
	}

	if pairing != nil {
		pairing(url)
	}

	accounts, err := node.RequestAccounts(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.session = len(accounts) > 0
	p.mu.Unlock()
	return accounts, nil
}

// HasSession reports whether a session is standing. A remote node that still
// answers with its keys unlocked counts; there is no separate expiry record
// to consult.
func (p *RelayNodeProvider) HasSession() bool {
	p.mu.Lock()
	session := p.session
	node := p.node
	p.mu.Unlock()
	if session {
		return true
	}
	return node != nil && node.Available()
}

func (p *RelayNodeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.node.ChainID(ctx)
}

func (p *RelayNodeProvider) Request(ctx context.Context, method string, params any) (any, error) {
	return p.node.Request(ctx, method, params)
}

func (p *RelayNodeProvider) Client(ctx context.Context) (*rpc.Client, error) {
	return p.node.Client(ctx)
}

func (p *RelayNodeProvider) Subscribe(ev RelayEvents) {
	p.mu.Lock()
	p.events = ev
	node := p.node
	p.mu.Unlock()
	if node != nil {
		node.Subscribe(ev.Events)
	}
}

// PairingURI registers the display callback fired on the next Enable.
func (p *RelayNodeProvider) PairingURI(fn func(uri string)) {
	p.mu.Lock()
	p.pairing = fn
	p.mu.Unlock()
}

// Disconnect tears the session down. The connection is dropped so the next
// Init/Enable starts from a clean core.
func (p *RelayNodeProvider) Disconnect() error {
	p.mu.Lock()
	node := p.node
	p.session = false
	p.mu.Unlock()
	if node != nil {
		node.Close()
	}
	return nil
}
