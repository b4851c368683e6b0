package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"domain-market-tui/connector"
	"domain-market-tui/rpc"
	"domain-market-tui/storage"

	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// Storage keys for the reconnect markers.
const (
	keyPreferredConnector = "preferred_connector"
	keyUserDisconnected   = "user_disconnected"
)

// Errors surfaced by the manager.
var (
	ErrNoWalletConnected    = errors.New("no wallet connected")
	ErrConnectInProgress    = errors.New("a connect attempt is already in progress")
	ErrAlreadyConnected     = errors.New("a wallet is already connected")
	ErrSwitchInProgress     = errors.New("a network switch is already in progress")
	ErrUnsupportedNetwork   = errors.New("unsupported network")
	ErrUnknownConnectorKind = errors.New("unknown connector kind")
)

// State names the session lifecycle phases.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	SwitchingNetwork
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case SwitchingNetwork:
		return "switching network"
	default:
		return "disconnected"
	}
}

// Session is a consistent snapshot of the live wallet state.
type Session struct {
	Account       common.Address
	HasAccount    bool
	ChainID       *big.Int
	ConnectorKind connector.Kind
	IsConnecting  bool
	IsSwitching   bool
	LastError     string
}

// AdapterFactory builds a fresh adapter of one kind. The relay adapter in
// particular must be rebuildable so a stale relay core can be replaced
// without a process restart.
type AdapterFactory func() connector.Adapter

// Manager is the single authority for connect, disconnect and switch-network.
// It owns the active adapter and chain handle; no other component replaces
// them. All state is guarded by one mutex; the IsConnecting/IsSwitching
// flags additionally gate which connector events are acted on, since events
// arrive interleaved with in-progress operations.
type Manager struct {
	mu sync.Mutex

	state   State
	account common.Address
	chainID *big.Int
	kind    connector.Kind
	lastErr string

	adapter connector.Adapter
	client  *rpc.Client

	factories map[connector.Kind]AdapterFactory
	store     storage.KV
	logger    *log.Logger

	// Side-effect hooks. Balance refresh is suppressed while switching
	// networks; the client-swap hook tells consumers (the marketplace data
	// layer) to re-point at a new chain handle.
	onBalanceRefresh func(account common.Address)
	onClientSwap     func(client *rpc.Client)
	onSessionChange  func(Session)

	// tunables, shortened in tests
	connectAttempts  int
	connectBaseDelay time.Duration
	connectStepDelay time.Duration
	settleDelay      time.Duration
}

// NewManager builds a manager over the given adapter factories and marker
// storage. The logger may be nil.
func NewManager(factories map[connector.Kind]AdapterFactory, store storage.KV, logger *log.Logger) *Manager {
	return &Manager{
		state:            Disconnected,
		kind:             connector.KindNone,
		factories:        factories,
		store:            store,
		logger:           logger,
		connectAttempts:  3,
		connectBaseDelay: time.Second,
		connectStepDelay: 500 * time.Millisecond,
		settleDelay:      2 * time.Second,
	}
}

// OnBalanceRefresh registers the balance-refresh side effect.
func (m *Manager) OnBalanceRefresh(fn func(account common.Address)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onBalanceRefresh = fn
}

// OnClientSwap registers the hook fired whenever the chain handle is
// replaced (connect, network switch, disconnect with a nil handle).
func (m *Manager) OnClientSwap(fn func(client *rpc.Client)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onClientSwap = fn
}

// OnSessionChange registers a hook fired with a fresh snapshot after every
// state transition.
func (m *Manager) OnSessionChange(fn func(Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSessionChange = fn
}

// Snapshot returns the current session state.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Session {
	return Session{
		Account:       m.account,
		HasAccount:    m.kind != connector.KindNone,
		ChainID:       m.chainID,
		ConnectorKind: m.kind,
		IsConnecting:  m.state == Connecting,
		IsSwitching:   m.state == SwitchingNetwork,
		LastError:     m.lastErr,
	}
}

// Client returns the active chain handle, or nil when disconnected.
func (m *Manager) Client() *rpc.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}

func (m *Manager) notifyLocked() {
	if m.onSessionChange != nil {
		m.onSessionChange(m.snapshotLocked())
	}
}

func (m *Manager) logf(level log.Level, msg string, kv ...any) {
	if m.logger == nil {
		return
	}
	m.logger.Log(level, msg, kv...)
}

// Connect establishes a session through the requested connector kind.
// Only one connect may be in flight; concurrent requests are rejected, not
// queued. Transient relay faults are retried with a growing delay and, when
// exhausted, degrade to a silent failure: no session, nil error. That policy
// keeps a known-noisy relay defect out of the caller's face.
func (m *Manager) Connect(ctx context.Context, kind connector.Kind) error {
	m.mu.Lock()
	switch m.state {
	case Connecting:
		m.mu.Unlock()
		return ErrConnectInProgress
	case Connected, SwitchingNetwork:
		m.mu.Unlock()
		return ErrAlreadyConnected
	}

	factory, ok := m.factories[kind]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConnectorKind, kind)
	}

	m.state = Connecting
	m.lastErr = ""
	m.notifyLocked()
	m.mu.Unlock()

	adapter := factory()
	accounts, err := m.connectWithRetry(ctx, adapter)
	if err != nil {
		_ = adapter.Close()
		m.mu.Lock()
		m.state = Disconnected
		if connector.Retryable(err) {
			// Retry budget exhausted on a transient relay fault: give up
			// quietly instead of surfacing relay noise.
			m.logf(log.WarnLevel, "connect abandoned after transient relay faults", "err", err)
			m.notifyLocked()
			m.mu.Unlock()
			return nil
		}
		m.lastErr = err.Error()
		m.notifyLocked()
		m.mu.Unlock()
		return err
	}

	if err := m.adoptSession(ctx, adapter, kind, accounts); err != nil {
		_ = adapter.Close()
		m.mu.Lock()
		m.state = Disconnected
		m.lastErr = err.Error()
		m.notifyLocked()
		m.mu.Unlock()
		return err
	}

	// Remember this connector for future silent reconnects and clear the
	// explicit-disconnect marker left by any earlier disconnect.
	if m.store != nil {
		_ = m.store.Set(keyPreferredConnector, string(kind))
		_ = m.store.Remove(keyUserDisconnected)
	}
	return nil
}

func (m *Manager) connectWithRetry(ctx context.Context, adapter connector.Adapter) ([]common.Address, error) {
	var lastErr error
	for attempt := 0; attempt < m.connectAttempts; attempt++ {
		accounts, err := adapter.Connect(ctx)
		if err == nil {
			return accounts, nil
		}
		lastErr = err

		if !connector.Retryable(err) {
			return nil, err
		}
		m.logf(log.WarnLevel, "transient connect fault, retrying",
			"attempt", attempt+1, "err", err)

		delay := m.connectBaseDelay + time.Duration(attempt)*m.connectStepDelay
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// adoptSession resolves the chain id and handle for a freshly established
// session and transitions to Connected.
func (m *Manager) adoptSession(ctx context.Context, adapter connector.Adapter, kind connector.Kind, accounts []common.Address) error {
	if len(accounts) == 0 {
		return connector.ErrNoAccounts
	}

	chainID, err := adapter.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("could not resolve chain id: %w", err)
	}
	client, err := adapter.Client(ctx)
	if err != nil {
		return fmt.Errorf("could not derive chain handle: %w", err)
	}
	client.From = accounts[0]

	adapter.Subscribe(connector.Events{
		AccountsChanged: m.handleAccountsChanged,
		ChainChanged:    m.handleChainChanged,
		Disconnected:    m.handleDisconnected,
	})

	m.mu.Lock()
	m.state = Connected
	m.account = accounts[0]
	m.chainID = chainID
	m.kind = kind
	m.adapter = adapter
	m.client = client
	m.lastErr = ""
	swap := m.onClientSwap
	refresh := m.onBalanceRefresh
	m.notifyLocked()
	m.mu.Unlock()

	m.logf(log.InfoLevel, "wallet connected",
		"kind", kind, "account", accounts[0].Hex(), "chain", chainID)

	if swap != nil {
		swap(client)
	}
	if refresh != nil {
		refresh(accounts[0])
	}
	return nil
}

// Disconnect tears the session down. Adapter teardown is best effort. The
// explicit-disconnect marker disables silent auto-reconnect until the next
// explicit connect; the preferred-connector marker is forgotten.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	adapter := m.adapter
	m.clearSessionLocked()
	swap := m.onClientSwap
	m.notifyLocked()
	m.mu.Unlock()

	if adapter != nil {
		_ = adapter.Close()
	}
	if m.store != nil {
		_ = m.store.Set(keyUserDisconnected, "true")
		_ = m.store.Remove(keyPreferredConnector)
	}
	if swap != nil {
		swap(nil)
	}
	m.logf(log.InfoLevel, "wallet disconnected")
}

func (m *Manager) clearSessionLocked() {
	m.state = Disconnected
	m.account = common.Address{}
	m.chainID = nil
	m.kind = connector.KindNone
	m.adapter = nil
	m.client = nil
	m.lastErr = ""
}

// SwitchNetwork moves the active session to the target chain. While the
// switch is in progress connector events are suppressed; after the wallet
// acknowledges, the manager waits a settle delay, re-derives the chain id
// and rebuilds the chain handle (a relay handle may reference the old
// network).
func (m *Manager) SwitchNetwork(ctx context.Context, target *big.Int) error {
	desc, supported := LookupNetwork(target)

	m.mu.Lock()
	switch m.state {
	case SwitchingNetwork:
		m.mu.Unlock()
		return ErrSwitchInProgress
	case Connected:
	default:
		m.mu.Unlock()
		return ErrNoWalletConnected
	}
	if !supported {
		m.mu.Unlock()
		return fmt.Errorf("%w: chain id %s", ErrUnsupportedNetwork, target)
	}

	adapter := m.adapter
	m.state = SwitchingNetwork
	m.notifyLocked()
	m.mu.Unlock()

	err := m.performSwitch(ctx, adapter, target, desc)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != SwitchingNetwork {
		// Disconnected out from under us; nothing left to settle.
		return err
	}
	m.state = Connected
	if err != nil {
		m.lastErr = err.Error()
		m.notifyLocked()
		return err
	}
	m.lastErr = ""
	m.notifyLocked()
	return nil
}

func (m *Manager) performSwitch(ctx context.Context, adapter connector.Adapter, target *big.Int, desc connector.ChainDescriptor) error {
	err := adapter.SwitchChain(ctx, target)
	if errors.Is(err, connector.ErrUnknownChain) {
		// The wallet has never seen this network: register it from the
		// descriptor table and retry the switch once.
		m.logf(log.InfoLevel, "target network unknown to wallet, adding it", "chain", target)
		if addErr := adapter.AddChain(ctx, desc); addErr != nil {
			return addErr
		}
		err = adapter.SwitchChain(ctx, target)
	}
	if err != nil {
		return err
	}

	// Give the wallet time to finish propagating the change before reading
	// anything back.
	select {
	case <-time.After(m.settleDelay):
	case <-ctx.Done():
		return ctx.Err()
	}

	chainID, err := adapter.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("could not re-derive chain id: %w", err)
	}
	if chainID == nil || chainID.Cmp(target) != 0 {
		return fmt.Errorf("wallet reports chain %s after switch to %s", chainID, target)
	}

	client, err := adapter.Client(ctx)
	if err != nil {
		return fmt.Errorf("could not rebuild chain handle: %w", err)
	}

	m.mu.Lock()
	client.From = m.account
	m.chainID = chainID
	m.client = client
	swap := m.onClientSwap
	m.mu.Unlock()

	if swap != nil {
		swap(client)
	}
	m.logf(log.InfoLevel, "network switched", "chain", chainID)
	return nil
}

// AutoReconnect silently re-adopts an existing wallet session on startup.
// It is skipped entirely when the user explicitly disconnected last time or
// a session is already active. The preferred connector is tried first, then
// the remaining kind; the first to succeed wins. All failures are swallowed.
func (m *Manager) AutoReconnect(ctx context.Context) {
	m.mu.Lock()
	if m.state != Disconnected {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	if m.store != nil {
		if _, disconnected := m.store.Get(keyUserDisconnected); disconnected {
			m.logf(log.DebugLevel, "auto-reconnect skipped: user disconnected explicitly")
			return
		}
	}

	for _, kind := range m.reconnectOrder() {
		factory, ok := m.factories[kind]
		if !ok {
			continue
		}
		adapter := factory()
		accounts, err := adapter.Resume(ctx)
		if err != nil {
			// Locked wallets, missing sessions: all swallowed.
			m.logf(log.DebugLevel, "silent reconnect failed", "kind", kind, "err", err)
			_ = adapter.Close()
			continue
		}
		if err := m.adoptSession(ctx, adapter, kind, accounts); err != nil {
			m.logf(log.DebugLevel, "silent reconnect adoption failed", "kind", kind, "err", err)
			_ = adapter.Close()
			continue
		}
		return
	}
}

func (m *Manager) reconnectOrder() []connector.Kind {
	order := []connector.Kind{connector.KindLocal, connector.KindRelay}
	if m.store == nil {
		return order
	}
	preferred, ok := m.store.Get(keyPreferredConnector)
	if !ok {
		return order
	}
	kind := connector.Kind(preferred)
	reordered := []connector.Kind{kind}
	for _, k := range order {
		if k != kind {
			reordered = append(reordered, k)
		}
	}
	return reordered
}

// -------------------- CONNECTOR EVENTS --------------------
// Handlers below may be fired by the connector at any time after Connected,
// interleaved with an in-progress switch. They are idempotent and never let
// a panic escape the manager boundary.

func (m *Manager) handleAccountsChanged(accounts []common.Address) {
	defer m.recoverEvent("accountsChanged")

	if len(accounts) == 0 {
		m.mu.Lock()
		if m.state == SwitchingNetwork {
			// Wallets briefly report empty accounts mid-switch; a real
			// disconnect would be re-reported once the switch settles.
			m.mu.Unlock()
			return
		}
		m.mu.Unlock()
		m.Disconnect()
		return
	}

	m.mu.Lock()
	if m.state != Connected && m.state != SwitchingNetwork {
		m.mu.Unlock()
		return
	}
	if accounts[0] == m.account {
		m.mu.Unlock()
		return
	}
	m.account = accounts[0]
	if m.client != nil {
		m.client.From = accounts[0]
	}
	suppress := m.state == SwitchingNetwork
	refresh := m.onBalanceRefresh
	m.notifyLocked()
	m.mu.Unlock()

	m.logf(log.InfoLevel, "account changed", "account", accounts[0].Hex())
	if !suppress && refresh != nil {
		refresh(accounts[0])
	}
}

func (m *Manager) handleChainChanged(chainID *big.Int) {
	defer m.recoverEvent("chainChanged")

	m.mu.Lock()
	if m.state != Connected || chainID == nil {
		// Mid-switch chain events are ignored; the switch path re-derives
		// the chain id itself after the settle delay.
		m.mu.Unlock()
		return
	}
	if m.chainID != nil && m.chainID.Cmp(chainID) == 0 {
		m.mu.Unlock()
		return
	}
	m.chainID = chainID
	account := m.account
	refresh := m.onBalanceRefresh
	m.notifyLocked()
	m.mu.Unlock()

	m.logf(log.InfoLevel, "chain changed", "chain", chainID)
	if refresh != nil {
		refresh(account)
	}
}

func (m *Manager) handleDisconnected(reason string) {
	defer m.recoverEvent("disconnected")

	m.mu.Lock()
	if m.state == SwitchingNetwork {
		// Session-loss events during a switch window are false alarms.
		m.logf(log.DebugLevel, "ignoring disconnect event during network switch", "reason", reason)
		m.mu.Unlock()
		return
	}
	if m.state != Connected {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.logf(log.WarnLevel, "connector reported session loss", "reason", reason)
	m.Disconnect()
}

func (m *Manager) recoverEvent(name string) {
	if r := recover(); r != nil {
		m.logf(log.ErrorLevel, "panic in connector event handler", "event", name, "panic", r)
	}
}
