package main

import (
	"context"
	"math/big"
	"time"

	"domain-market-tui/connector"
	"domain-market-tui/market"
	"domain-market-tui/pending"
	"domain-market-tui/rpc"
	"domain-market-tui/session"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations

const listingsPerPage = 10

// connectWallet runs a connect attempt through the session manager
func connectWallet(mgr *session.Manager, kind connector.Kind) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		return connectFinishedMsg{err: mgr.Connect(ctx, kind)}
	}
}

// autoReconnect silently resumes a previous session on startup
func autoReconnect(mgr *session.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		mgr.AutoReconnect(ctx)
		return sessionChangedMsg{s: mgr.Snapshot()}
	}
}

// switchNetwork moves the session to the target chain
func switchNetwork(mgr *session.Manager, target *big.Int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return switchFinishedMsg{err: mgr.SwitchNetwork(ctx, target)}
	}
}

// loadListings fetches one most-recent-first page of listings
func loadListings(data *market.DataAccess, page int) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()
		listings := data.GetListingsPage(ctx, page, listingsPerPage, true)
		return listingsLoadedMsg{listings: listings, page: page}
	}
}

// loadDomains fetches the connected wallet's tokens
func loadDomains(data *market.DataAccess, owner common.Address) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()
		return domainsLoadedMsg{domains: data.GetMyDomainsFromCollection(ctx, owner)}
	}
}

// loadRoyalties fetches the wallet's nonzero splitter balances
func loadRoyalties(data *market.DataAccess, wallet common.Address) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
		defer cancel()
		return royaltiesLoadedMsg{balances: data.GetRoyaltyBalances(ctx, wallet)}
	}
}

// loadDetails fetches the native balance for the connected account
func loadDetails(client *rpc.Client, addr common.Address) tea.Cmd {
	return func() tea.Msg {
		return detailsLoadedMsg{d: rpc.LoadAccountDetails(client, addr)}
	}
}

// runMutation executes one marketplace mutation and records it as pending on
// success. The store entry is what lets the UI show the change before the
// next scan reflects it.
func runMutation(store *pending.Store, op string, updateType pending.UpdateType, payload pending.Payload, run func(ctx context.Context) *common.Hash) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		hash := run(ctx)
		if hash != nil && store != nil {
			update := pending.Update{Type: updateType, TxHash: hash.Hex(), Data: payload}
			_ = store.Store(update)
		}
		return txSubmittedMsg{op: op, hash: hash}
	}
}

// reconcilePending drops pending updates whose transactions are confirmed
func reconcilePending(store *pending.Store, client *rpc.Client) tea.Cmd {
	return func() tea.Msg {
		if store == nil || client == nil {
			return pendingReconciledMsg{}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		removed := 0
		for _, u := range store.GetAll() {
			if store.IsConfirmed(ctx, u.TxHash, client) {
				_ = store.Remove(u.TxHash)
				removed++
			}
		}
		return pendingReconciledMsg{removed: removed}
	}
}

// copyToClipboard copies text to clipboard
func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err == nil {
			return clipboardCopiedMsg{}
		}
		return nil
	}
}

// clearCopied waits 2 seconds then clears clipboard feedback
func clearCopied() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return clearCopiedMsg{}
	})
}

// initLogViewport initializes the log viewport
func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// -------------------- MODEL HELPER METHODS --------------------

// addLog adds a log entry with timestamp and type
func (m *model) addLog(logType, message string) {
	if !m.logEnabled || !m.logReady || m.logger == nil {
		return
	}

	switch logType {
	case "info":
		m.logger.Info(message)
	case "success":
		m.logger.Info("✓", "msg", message)
	case "error":
		m.logger.Error(message)
	case "warning":
		m.logger.Warn(message)
	case "debug":
		m.logger.Debug(message)
	default:
		m.logger.Print(message)
	}

	m.updateLogViewport()
}

// updateLogViewport refreshes the viewport content with log output
func (m *model) updateLogViewport() {
	if !m.logReady || m.logBuffer == nil {
		return
	}

	m.logViewport.SetContent(m.logBuffer.String())
	m.logViewport.GotoBottom()
}

// refreshWalletData reloads everything the wallet page shows
func (m *model) refreshWalletData() tea.Cmd {
	if !m.current.HasAccount {
		return nil
	}
	client := m.manager.Client()

	m.detailsLoading = true
	cmds := []tea.Cmd{
		loadDetails(client, m.current.Account),
		loadRoyalties(m.market, m.current.Account),
		reconcilePending(m.pendingStore, client),
	}
	return tea.Batch(cmds...)
}

// currency returns the native currency symbol for the session's network
func (m *model) currency() string {
	if m.current.ChainID != nil {
		if desc, ok := session.LookupNetwork(m.current.ChainID); ok {
			return desc.Currency
		}
	}
	return "ETH"
}

// networkSupported reports whether the session sits on a known network
func (m *model) networkSupported() bool {
	if m.current.ChainID == nil {
		return false
	}
	_, ok := session.LookupNetwork(m.current.ChainID)
	return ok
}

// nextNetworkTarget picks the next supported network after the current one,
// cycling through the descriptor table
func (m *model) nextNetworkTarget() *big.Int {
	supported := session.SupportedNetworks()
	if len(supported) == 0 {
		return nil
	}
	if m.current.ChainID == nil {
		return supported[0]
	}
	for i, id := range supported {
		if id.Cmp(m.current.ChainID) == 0 {
			return supported[(i+1)%len(supported)]
		}
	}
	return supported[0]
}
