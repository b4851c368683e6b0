package connector

import (
	"context"
	"fmt"
	"math/big"

	"domain-market-tui/rpc"

	"github.com/ethereum/go-ethereum/common"
)

// LocalAdapter normalizes an extension-style injected wallet.
type LocalAdapter struct {
	provider LocalProvider
}

// NewLocalAdapter wraps the given injected wallet capability.
func NewLocalAdapter(provider LocalProvider) *LocalAdapter {
	return &LocalAdapter{provider: provider}
}

func (a *LocalAdapter) Kind() Kind { return KindLocal }

// Connect prompts the wallet for account access.
func (a *LocalAdapter) Connect(ctx context.Context) ([]common.Address, error) {
	if a.provider == nil || !a.provider.Available() {
		return nil, ErrNotInstalled
	}

	accounts, err := a.provider.RequestAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("wallet connect failed: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoAccounts
	}
	return accounts, nil
}

// Resume adopts already-authorized accounts without prompting. A locked
// wallet surfaces as an error the caller is expected to swallow.
func (a *LocalAdapter) Resume(ctx context.Context) ([]common.Address, error) {
	if a.provider == nil || !a.provider.Available() {
		return nil, ErrNoSession
	}

	accounts, err := a.provider.Accounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("silent account check failed: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoSession
	}

	// Make sure a handle can be derived without prompting before adopting
	// the session; a locked wallet fails here.
	if _, err := a.provider.Client(ctx); err != nil {
		return nil, fmt.Errorf("could not derive chain handle: %w", err)
	}
	return accounts, nil
}

func (a *LocalAdapter) ChainID(ctx context.Context) (*big.Int, error) {
	return a.provider.ChainID(ctx)
}

func (a *LocalAdapter) Client(ctx context.Context) (*rpc.Client, error) {
	return a.provider.Client(ctx)
}

// SwitchChain issues a switch request through the generic passthrough.
func (a *LocalAdapter) SwitchChain(ctx context.Context, chainID *big.Int) error {
	_, err := a.provider.Request(ctx, "wallet_switchEthereumChain", switchChainParams{ChainID: hexChainID(chainID)})
	if err != nil {
		if Classify(err) == FaultUnknownChain {
			return fmt.Errorf("%w: %v", ErrUnknownChain, err)
		}
		return fmt.Errorf("network switch failed: %w", err)
	}
	return nil
}

// AddChain registers a network descriptor with the wallet.
func (a *LocalAdapter) AddChain(ctx context.Context, desc ChainDescriptor) error {
	_, err := a.provider.Request(ctx, "wallet_addEthereumChain", descriptorParams(desc))
	if err != nil {
		return fmt.Errorf("add network failed: %w", err)
	}
	return nil
}

func (a *LocalAdapter) Subscribe(ev Events) {
	a.provider.Subscribe(ev)
}

// Close detaches event callbacks. The injected wallet itself has no session
// to tear down.
func (a *LocalAdapter) Close() error {
	a.provider.Subscribe(Events{})
	return nil
}
