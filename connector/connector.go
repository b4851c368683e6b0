package connector

import (
	"context"
	"math/big"

	"domain-market-tui/rpc"

	"github.com/ethereum/go-ethereum/common"
)

// Kind identifies a connector variant.
type Kind string

const (
	KindNone  Kind = "none"
	KindLocal Kind = "local"
	KindRelay Kind = "relay"
)

// ChainDescriptor describes a network for an add-chain request, mirroring the
// wallet_addEthereumChain parameter shape.
type ChainDescriptor struct {
	ChainID     *big.Int
	Name        string
	Currency    string
	RPCURL      string
	ExplorerURL string
}

// Events are the callbacks a connector may fire asynchronously at any time
// after a session is established. Nil callbacks are skipped. Adapters never
// let a callback panic escape the adapter boundary.
type Events struct {
	AccountsChanged func(accounts []common.Address)
	ChainChanged    func(chainID *big.Int)
	Disconnected    func(reason string)
}

// Adapter normalizes one wallet connector behind a single capability set.
// Exactly one adapter is active at a time; the session manager owns that
// choice.
type Adapter interface {
	Kind() Kind

	// Connect establishes a session interactively (extension prompt or
	// out-of-band relay approval) and returns the authorized accounts.
	Connect(ctx context.Context) ([]common.Address, error)

	// Resume silently adopts an already-authorized session. It returns
	// ErrNoSession when there is nothing to adopt and never prompts.
	Resume(ctx context.Context) ([]common.Address, error)

	// ChainID reads the connector's current chain id.
	ChainID(ctx context.Context) (*big.Int, error)

	// Client derives the read/write chain handle for the current network.
	// After a network switch the previous handle may reference a stale
	// network and must be rebuilt through this method.
	Client(ctx context.Context) (*rpc.Client, error)

	// SwitchChain asks the wallet to move to chainID. It returns
	// ErrUnknownChain when the wallet does not know the target network.
	SwitchChain(ctx context.Context, chainID *big.Int) error

	// AddChain registers a network with the wallet so a subsequent
	// SwitchChain can succeed.
	AddChain(ctx context.Context, desc ChainDescriptor) error

	// Subscribe replaces the event callbacks.
	Subscribe(ev Events)

	// Close tears the session down, best effort.
	Close() error
}

// LocalProvider is the extension-style wallet capability injected into the
// process. Supplied externally; this package only consumes it.
type LocalProvider interface {
	// Available reports whether the capability is present at all.
	Available() bool
	// RequestAccounts prompts the user for account access.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts returns already-authorized accounts without prompting.
	Accounts(ctx context.Context) ([]common.Address, error)
	// ChainID returns the wallet's current chain id.
	ChainID(ctx context.Context) (*big.Int, error)
	// Request is the generic RPC passthrough (wallet_switchEthereumChain,
	// wallet_addEthereumChain, ...).
	Request(ctx context.Context, method string, params any) (any, error)
	// Client derives a read/write handle without prompting. Fails when the
	// wallet is locked.
	Client(ctx context.Context) (*rpc.Client, error)
	// Subscribe registers event callbacks.
	Subscribe(ev Events)
}

// RelayEvents extends Events with the relay-only session lifecycle signals.
type RelayEvents struct {
	Events
	SessionUpdate func()
	SessionExpire func()
}

// RelayProvider is the remote-session wallet capability reached through an
// out-of-band relay handshake. Supplied externally.
type RelayProvider interface {
	// Init prepares the relay core. Must be callable again after Disconnect
	// so the adapter can be rebuilt without a process restart.
	Init(projectID string) error
	// Enable establishes (or silently resumes) a session, triggering
	// out-of-band approval when none exists.
	Enable(ctx context.Context) ([]common.Address, error)
	// HasSession reports whether an unexpired remote session exists.
	HasSession() bool
	// ChainID returns the session's current chain id.
	ChainID(ctx context.Context) (*big.Int, error)
	// Request is the generic RPC passthrough.
	Request(ctx context.Context, method string, params any) (any, error)
	// Client derives a read/write handle for the session's current network.
	Client(ctx context.Context) (*rpc.Client, error)
	// Subscribe registers event callbacks.
	Subscribe(ev RelayEvents)
	// PairingURI registers a callback for the pairing URI so the caller can
	// display it (e.g. as a QR code).
	PairingURI(fn func(uri string))
	// Disconnect tears the session and relay core down.
	Disconnect() error
}

// switchChainParams is the wire shape for a switch-chain request.
type switchChainParams struct {
	ChainID string `json:"chainId"`
}

// addChainParams is the wire shape for an add-chain request.
type addChainParams struct {
	ChainID           string   `json:"chainId"`
	ChainName         string   `json:"chainName"`
	NativeCurrency    currency `json:"nativeCurrency"`
	RPCURLs           []string `json:"rpcUrls"`
	BlockExplorerURLs []string `json:"blockExplorerUrls"`
}

type currency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

func descriptorParams(desc ChainDescriptor) addChainParams {
	return addChainParams{
		ChainID:   hexChainID(desc.ChainID),
		ChainName: desc.Name,
		NativeCurrency: currency{
			Name:     desc.Currency,
			Symbol:   desc.Currency,
			Decimals: 18,
		},
		RPCURLs:           []string{desc.RPCURL},
		BlockExplorerURLs: []string{desc.ExplorerURL},
	}
}

func hexChainID(id *big.Int) string {
	return "0x" + id.Text(16)
}
