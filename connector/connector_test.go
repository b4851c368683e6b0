package connector

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"domain-market-tui/rpc"

	"github.com/ethereum/go-ethereum/common"
)

var testAccount = common.HexToAddress("0x742d35Cc6634C0532925a3b844Bc9e7595f0bEb2")

// fakeLocalProvider is a scriptable injected-wallet capability.
type fakeLocalProvider struct {
	available     bool
	accounts      []common.Address
	silent        []common.Address
	chainID       *big.Int
	requestErr    error
	clientErr     error
	requestCalls  []string
	requestsSeen  int
	subscriptions int
}

func (p *fakeLocalProvider) Available() bool { return p.available }

func (p *fakeLocalProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	return p.accounts, nil
}

func (p *fakeLocalProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	return p.silent, nil
}

func (p *fakeLocalProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.chainID, nil
}

func (p *fakeLocalProvider) Request(ctx context.Context, method string, params any) (any, error) {
	p.requestsSeen++
	p.requestCalls = append(p.requestCalls, method)
	return nil, p.requestErr
}

func (p *fakeLocalProvider) Client(ctx context.Context) (*rpc.Client, error) {
	if p.clientErr != nil {
		return nil, p.clientErr
	}
	return &rpc.Client{From: testAccount}, nil
}

func (p *fakeLocalProvider) Subscribe(ev Events) { p.subscriptions++ }

// fakeRelayProvider is a scriptable relay capability.
type fakeRelayProvider struct {
	initCalls       int
	enableCalls     int
	enableErrs      []error // consumed per call, nil entry = success
	accounts        []common.Address
	hasSession      bool
	chainIDs        []*big.Int // consumed per ChainID call, last repeats
	requestErr      error
	disconnectCalls int
	subscribed      RelayEvents
}

func (p *fakeRelayProvider) Init(projectID string) error { p.initCalls++; return nil }

func (p *fakeRelayProvider) Enable(ctx context.Context) ([]common.Address, error) {
	p.enableCalls++
	if len(p.enableErrs) > 0 {
		err := p.enableErrs[0]
		p.enableErrs = p.enableErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return p.accounts, nil
}

func (p *fakeRelayProvider) HasSession() bool { return p.hasSession }

func (p *fakeRelayProvider) ChainID(ctx context.Context) (*big.Int, error) {
	if len(p.chainIDs) == 0 {
		return nil, errors.New("no chain id scripted")
	}
	id := p.chainIDs[0]
	if len(p.chainIDs) > 1 {
		p.chainIDs = p.chainIDs[1:]
	}
	return id, nil
}

func (p *fakeRelayProvider) Request(ctx context.Context, method string, params any) (any, error) {
	return nil, p.requestErr
}

func (p *fakeRelayProvider) Client(ctx context.Context) (*rpc.Client, error) {
	return &rpc.Client{From: testAccount}, nil
}

func (p *fakeRelayProvider) Subscribe(ev RelayEvents)   { p.subscribed = ev }
func (p *fakeRelayProvider) PairingURI(fn func(string)) {}
func (p *fakeRelayProvider) Disconnect() error          { p.disconnectCalls++; return nil }

func newTestRelayAdapter(p RelayProvider) *RelayAdapter {
	a := NewRelayAdapter(p, "test-project")
	a.retryDelay = time.Millisecond
	a.pollInterval = time.Millisecond
	return a
}

func TestLocalConnect(t *testing.T) {
	t.Run("not installed", func(t *testing.T) {
		a := NewLocalAdapter(&fakeLocalProvider{available: false})
		_, err := a.Connect(context.Background())
		if !errors.Is(err, ErrNotInstalled) {
			t.Fatalf("expected ErrNotInstalled, got %v", err)
		}
	})

	t.Run("success", func(t *testing.T) {
		p := &fakeLocalProvider{available: true, accounts: []common.Address{testAccount}}
		a := NewLocalAdapter(p)
		accounts, err := a.Connect(context.Background())
		if err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		if len(accounts) != 1 || accounts[0] != testAccount {
			t.Errorf("unexpected accounts: %v", accounts)
		}
	})

	t.Run("no accounts", func(t *testing.T) {
		a := NewLocalAdapter(&fakeLocalProvider{available: true})
		_, err := a.Connect(context.Background())
		if !errors.Is(err, ErrNoAccounts) {
			t.Fatalf("expected ErrNoAccounts, got %v", err)
		}
	})
}

func TestLocalResume(t *testing.T) {
	t.Run("nothing authorized", func(t *testing.T) {
		a := NewLocalAdapter(&fakeLocalProvider{available: true})
		_, err := a.Resume(context.Background())
		if !errors.Is(err, ErrNoSession) {
			t.Fatalf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("locked wallet fails handle derivation", func(t *testing.T) {
		p := &fakeLocalProvider{
			available: true,
			silent:    []common.Address{testAccount},
			clientErr: errors.New("wallet is locked"),
		}
		a := NewLocalAdapter(p)
		_, err := a.Resume(context.Background())
		if err == nil {
			t.Fatal("expected error for locked wallet")
		}
	})

	t.Run("adopts authorized accounts", func(t *testing.T) {
		p := &fakeLocalProvider{available: true, silent: []common.Address{testAccount}}
		a := NewLocalAdapter(p)
		accounts, err := a.Resume(context.Background())
		if err != nil {
			t.Fatalf("Resume failed: %v", err)
		}
		if len(accounts) != 1 {
			t.Errorf("expected 1 account, got %d", len(accounts))
		}
	})
}

func TestLocalSwitchChain(t *testing.T) {
	t.Run("unknown chain maps to sentinel", func(t *testing.T) {
		p := &fakeLocalProvider{available: true, requestErr: errors.New("Unrecognized chain ID")}
		a := NewLocalAdapter(p)
		err := a.SwitchChain(context.Background(), big.NewInt(80002))
		if !errors.Is(err, ErrUnknownChain) {
			t.Fatalf("expected ErrUnknownChain, got %v", err)
		}
	})

	t.Run("switch then add use the right methods", func(t *testing.T) {
		p := &fakeLocalProvider{available: true}
		a := NewLocalAdapter(p)
		if err := a.SwitchChain(context.Background(), big.NewInt(137)); err != nil {
			t.Fatalf("SwitchChain failed: %v", err)
		}
		if err := a.AddChain(context.Background(), ChainDescriptor{ChainID: big.NewInt(137), Name: "Polygon"}); err != nil {
			t.Fatalf("AddChain failed: %v", err)
		}
		if len(p.requestCalls) != 2 ||
			p.requestCalls[0] != "wallet_switchEthereumChain" ||
			p.requestCalls[1] != "wallet_addEthereumChain" {
			t.Errorf("unexpected request methods: %v", p.requestCalls)
		}
	})
}

func TestRelayConnectRetriesTransientFaults(t *testing.T) {
	p := &fakeRelayProvider{
		enableErrs: []error{
			errors.New("connection reset by peer"),
			errors.New("relay: please try again"),
			nil,
		},
		accounts: []common.Address{testAccount},
	}
	a := newTestRelayAdapter(p)

	accounts, err := a.Connect(context.Background())
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("expected 1 account, got %d", len(accounts))
	}
	if p.enableCalls != 3 {
		t.Errorf("expected 3 enable attempts, got %d", p.enableCalls)
	}
	// each transient failure rebuilds the relay core
	if p.disconnectCalls != 2 {
		t.Errorf("expected 2 relay resets, got %d", p.disconnectCalls)
	}
}

func TestRelayConnectStopsOnUserRejection(t *testing.T) {
	p := &fakeRelayProvider{
		enableErrs: []error{errors.New("user rejected the session proposal")},
	}
	a := newTestRelayAdapter(p)

	_, err := a.Connect(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if p.enableCalls != 1 {
		t.Errorf("user rejection must not be retried, got %d attempts", p.enableCalls)
	}
}

func TestRelayResume(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		a := newTestRelayAdapter(&fakeRelayProvider{hasSession: false})
		_, err := a.Resume(context.Background())
		if !errors.Is(err, ErrNoSession) {
			t.Fatalf("expected ErrNoSession, got %v", err)
		}
	})

	t.Run("adopts existing session", func(t *testing.T) {
		p := &fakeRelayProvider{hasSession: true, accounts: []common.Address{testAccount}}
		a := newTestRelayAdapter(p)
		accounts, err := a.Resume(context.Background())
		if err != nil {
			t.Fatalf("Resume failed: %v", err)
		}
		if len(accounts) != 1 {
			t.Errorf("expected 1 account, got %d", len(accounts))
		}
	})
}

func TestRelaySessionExpiryDisconnects(t *testing.T) {
	p := &fakeRelayProvider{}
	a := newTestRelayAdapter(p)

	var reason string
	a.Subscribe(Events{Disconnected: func(r string) { reason = r }})

	if p.subscribed.SessionExpire == nil {
		t.Fatal("session expiry must be wired to a callback")
	}
	p.subscribed.SessionExpire()
	if reason != "session expired" {
		t.Fatalf("expected a disconnect on session expiry, got %q", reason)
	}
}

func TestRelaySwitchChainPollsReadback(t *testing.T) {
	t.Run("lagging relay converges", func(t *testing.T) {
		p := &fakeRelayProvider{
			chainIDs: []*big.Int{big.NewInt(137), big.NewInt(80002)},
		}
		a := newTestRelayAdapter(p)

		if err := a.SwitchChain(context.Background(), big.NewInt(80002)); err != nil {
			t.Fatalf("SwitchChain failed: %v", err)
		}
	})

	t.Run("never converging relay fails", func(t *testing.T) {
		p := &fakeRelayProvider{chainIDs: []*big.Int{big.NewInt(137)}}
		a := newTestRelayAdapter(p)

		if err := a.SwitchChain(context.Background(), big.NewInt(80002)); err == nil {
			t.Fatal("expected failure when chain id never matches")
		}
	})
}
