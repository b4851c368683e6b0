package connector

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"domain-market-tui/rpc"

	"github.com/ethereum/go-ethereum/common"
)

const (
	relayEnableAttempts = 3
	relayPollAttempts   = 3
)

// RelayAdapter normalizes a remote-session wallet reached through an
// out-of-band relay. Relay-delivered state changes are asynchronous, so
// chain switches are confirmed by polling the chain id rather than trusting
// the request's return.
type RelayAdapter struct {
	provider  RelayProvider
	projectID string
	inited    bool

	// overridable in tests
	retryDelay   time.Duration
	pollInterval time.Duration
}

// NewRelayAdapter wraps the given relay capability. projectID is passed
// through to the relay core on Init.
func NewRelayAdapter(provider RelayProvider, projectID string) *RelayAdapter {
	return &RelayAdapter{
		provider:     provider,
		projectID:    projectID,
		retryDelay:   time.Second,
		pollInterval: time.Second,
	}
}

func (a *RelayAdapter) Kind() Kind { return KindRelay }

// PairingURI registers the pairing URI callback (QR display).
func (a *RelayAdapter) PairingURI(fn func(uri string)) {
	a.provider.PairingURI(fn)
}

func (a *RelayAdapter) ensureInit() error {
	if a.inited {
		return nil
	}
	if err := a.provider.Init(a.projectID); err != nil {
		return fmt.Errorf("relay init failed: %w", err)
	}
	a.inited = true
	return nil
}

// Connect establishes a relay session. Transient relay faults are retried a
// fixed number of times with a growing delay; everything else surfaces
// immediately.
func (a *RelayAdapter) Connect(ctx context.Context) ([]common.Address, error) {
	if err := a.ensureInit(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < relayEnableAttempts; attempt++ {
		accounts, err := a.provider.Enable(ctx)
		if err == nil {
			if len(accounts) == 0 {
				return nil, ErrNoAccounts
			}
			return accounts, nil
		}
		lastErr = err
		if !Retryable(err) {
			return nil, fmt.Errorf("relay connect failed: %w", err)
		}

		// A stale relay core is the usual culprit; rebuild it before the
		// next attempt instead of relying on a process restart.
		if resetErr := a.Reset(); resetErr != nil {
			return nil, fmt.Errorf("relay reset failed: %w", resetErr)
		}

		delay := a.retryDelay + time.Duration(attempt)*500*time.Millisecond
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("relay connect failed after %d attempts: %w", relayEnableAttempts, lastErr)
}

// Resume adopts an existing unexpired remote session without starting a new
// handshake.
func (a *RelayAdapter) Resume(ctx context.Context) ([]common.Address, error) {
	if err := a.ensureInit(); err != nil {
		return nil, err
	}
	if !a.provider.HasSession() {
		return nil, ErrNoSession
	}

	// Enable resolves silently when a session already exists.
	accounts, err := a.provider.Enable(ctx)
	if err != nil {
		return nil, fmt.Errorf("relay session resume failed: %w", err)
	}
	if len(accounts) == 0 {
		return nil, ErrNoSession
	}
	return accounts, nil
}

func (a *RelayAdapter) ChainID(ctx context.Context) (*big.Int, error) {
	return a.provider.ChainID(ctx)
}

func (a *RelayAdapter) Client(ctx context.Context) (*rpc.Client, error) {
	return a.provider.Client(ctx)
}

// SwitchChain asks the remote wallet to change networks, then polls the
// chain id until it matches the target. Relay network changes may lag the
// request's return, so success is only ever the read-back value.
func (a *RelayAdapter) SwitchChain(ctx context.Context, chainID *big.Int) error {
	_, err := a.provider.Request(ctx, "wallet_switchEthereumChain", switchChainParams{ChainID: hexChainID(chainID)})
	if err != nil {
		if Classify(err) == FaultUnknownChain {
			return fmt.Errorf("%w: %v", ErrUnknownChain, err)
		}
		return fmt.Errorf("network switch failed: %w", err)
	}

	for attempt := 0; attempt < relayPollAttempts; attempt++ {
		current, err := a.provider.ChainID(ctx)
		if err == nil && current != nil && current.Cmp(chainID) == 0 {
			return nil
		}

		select {
		case <-time.After(a.pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("network switch not reflected by relay after %d checks", relayPollAttempts)
}

// AddChain registers a network descriptor with the remote wallet.
func (a *RelayAdapter) AddChain(ctx context.Context, desc ChainDescriptor) error {
	_, err := a.provider.Request(ctx, "wallet_addEthereumChain", descriptorParams(desc))
	if err != nil {
		return fmt.Errorf("add network failed: %w", err)
	}
	return nil
}

// Subscribe wires the caller's callbacks, folding the relay-only session
// lifecycle signals into them: an expired remote session is a disconnect.
// session_update is informational only, the relay re-emits accountsChanged
// and chainChanged for any change it carries.
func (a *RelayAdapter) Subscribe(ev Events) {
	rev := RelayEvents{Events: ev}
	if ev.Disconnected != nil {
		rev.SessionExpire = func() { ev.Disconnected("session expired") }
	}
	a.provider.Subscribe(rev)
}

// Reset tears the relay core down and re-initializes it, leaving no stale
// session state behind.
func (a *RelayAdapter) Reset() error {
	_ = a.provider.Disconnect()
	a.inited = false
	return a.ensureInit()
}

// Close tears the relay session down, best effort.
func (a *RelayAdapter) Close() error {
	a.inited = false
	return a.provider.Disconnect()
}
