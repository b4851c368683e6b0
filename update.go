package main

import (
	"context"
	"fmt"

	"domain-market-tui/config"
	"domain-market-tui/connector"
	"domain-market-tui/helpers"
	"domain-market-tui/market"
	"domain-market-tui/pending"
	"domain-market-tui/rpc"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- UPDATE --------------------

// Update implements tea.Model and routes every message
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height
		m.logViewport.Width = helpers.Max(0, m.w-6)
		return m, nil

	case spinner.TickMsg:
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		m.logSpinner, cmd = m.logSpinner.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case logInitMsg:
		logger := log.New(m.logBuffer)
		logger.SetLevel(log.DebugLevel)
		logger.SetReportTimestamp(true)
		logger.SetTimeFormat("15:04:05")
		m.logger = logger
		m.logReady = true
		m.addLog("info", "log panel ready")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case pairingURIMsg:
		m.pairingURI = msg.uri
		return m, nil

	case sessionChangedMsg:
		hadAccount := m.current.HasAccount
		m.current = msg.s
		if m.current.HasAccount && !hadAccount {
			m.pairingURI = ""
			m.addLog("success", "wallet connected: "+helpers.ShortenAddr(m.current.Account.Hex()))
			m.domainsLoading = true
			return m, tea.Batch(
				m.refreshWalletData(),
				loadDomains(m.market, m.current.Account),
			)
		}
		if !m.current.HasAccount && hadAccount {
			m.addLog("info", "wallet disconnected")
			m.domains = nil
			m.royalties = nil
			m.details = rpc.AccountDetails{}
		}
		return m, nil

	case clientSwappedMsg:
		// a new chain handle means every cached read belongs to the old one
		m.listingsLoading = true
		cmds := []tea.Cmd{loadListings(m.market, m.listingsPage)}
		if m.current.HasAccount {
			m.domainsLoading = true
			cmds = append(cmds, m.refreshWalletData(), loadDomains(m.market, m.current.Account))
		}
		return m, tea.Batch(cmds...)

	case connectFinishedMsg:
		m.current = m.manager.Snapshot()
		m.pairingURI = ""
		if msg.err != nil {
			m.addLog("error", "connect failed: "+msg.err.Error())
		} else if !m.current.HasAccount {
			m.addLog("warning", "connect did not produce a session")
		}
		return m, nil

	case switchFinishedMsg:
		m.current = m.manager.Snapshot()
		if msg.err != nil {
			m.addLog("error", "network switch failed: "+msg.err.Error())
		} else {
			m.addLog("success", "network switched")
		}
		return m, nil

	case listingsLoadedMsg:
		m.listingsLoading = false
		m.listings = msg.listings
		m.listingsPage = msg.page
		if m.selectedListing >= len(m.listings) {
			m.selectedListing = helpers.Max(0, len(m.listings)-1)
		}
		m.addLog("debug", fmt.Sprintf("loaded %d listings (page %d)", len(m.listings), msg.page))
		return m, nil

	case domainsLoadedMsg:
		m.domainsLoading = false
		m.domains = msg.domains
		if m.selectedDomain >= len(m.domains) {
			m.selectedDomain = helpers.Max(0, len(m.domains)-1)
		}
		return m, nil

	case royaltiesLoadedMsg:
		m.royalties = msg.balances
		return m, nil

	case detailsLoadedMsg:
		m.detailsLoading = false
		m.details = msg.d
		return m, nil

	case txSubmittedMsg:
		m.busyOp = ""
		m.pendingRows = m.pendingStore.GetAll()
		if msg.hash == nil {
			m.addLog("error", msg.op+" failed")
			return m, nil
		}
		m.addLog("success", msg.op+" confirmed: "+helpers.ShortenHash(msg.hash.Hex()))
		m.listingsLoading = true
		cmds := []tea.Cmd{loadListings(m.market, m.listingsPage)}
		if m.current.HasAccount {
			m.domainsLoading = true
			cmds = append(cmds, m.refreshWalletData(), loadDomains(m.market, m.current.Account))
		}
		return m, tea.Batch(cmds...)

	case pendingReconciledMsg:
		m.pendingRows = m.pendingStore.GetAll()
		if msg.removed > 0 {
			m.addLog("debug", fmt.Sprintf("cleared %d confirmed pending updates", msg.removed))
		}
		return m, nil

	case clipboardCopiedMsg:
		m.copiedMsg = "copied!"
		return m, clearCopied()

	case clearCopiedMsg:
		m.copiedMsg = ""
		return m, nil
	}

	// forms consume everything the switch above did not
	if m.form != nil {
		return m.updateForm(msg)
	}
	return m, nil
}

// handleKey routes key presses, giving an open form priority
func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form != nil {
		if msg.String() == "esc" {
			m.form = nil
			m.formKind = ""
			return m, nil
		}
		return m.updateForm(msg)
	}

	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "tab":
		m.activePage = (m.activePage + 1) % 4
		return m, nil
	case "shift+tab":
		m.activePage = (m.activePage + 3) % 4
		return m, nil

	case "l":
		if m.logEnabled {
			m.showLog = !m.showLog
			return m, nil
		}
	}

	switch m.activePage {
	case config.PageMarket:
		return m.handleMarketKey(msg)
	case config.PageDomains:
		return m.handleDomainsKey(msg)
	case config.PageWallet:
		return m.handleWalletKey(msg)
	case config.PageSettings:
		return m.handleSettingsKey(msg)
	}
	return m, nil
}

// -------------------- PAGE KEY HANDLERS --------------------

func (m *model) handleMarketKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedListing > 0 {
			m.selectedListing--
		}
	case "down", "j":
		if m.selectedListing < len(m.listings)-1 {
			m.selectedListing++
		}
	case "left":
		if m.listingsPage > 1 && !m.listingsLoading {
			m.listingsLoading = true
			return m, loadListings(m.market, m.listingsPage-1)
		}
	case "right":
		if !m.listingsLoading {
			m.listingsLoading = true
			return m, loadListings(m.market, m.listingsPage+1)
		}
	case "r":
		if !m.listingsLoading {
			m.listingsLoading = true
			return m, loadListings(m.market, m.listingsPage)
		}

	case "enter":
		if l, ok := m.selectedListingRow(); ok {
			m.busyOp = "buy"
			m.addLog("info", fmt.Sprintf("buying listing #%d", l.ListingID))
			listingID := l.ListingID
			payload := pending.Payload{ListingID: l.ListingID, TokenID: l.TokenID, Price: l.Price.String()}
			return m, runMutation(m.pendingStore, "buy", pending.TypePurchase, payload,
				func(ctx context.Context) *common.Hash {
					return m.market.BuyToken(ctx, listingID)
				})
		}

	case "c":
		if l, ok := m.selectedListingRow(); ok {
			m.busyOp = "cancel"
			listingID := l.ListingID
			payload := pending.Payload{ListingID: l.ListingID}
			return m, runMutation(m.pendingStore, "cancel listing", pending.TypeCancel, payload,
				func(ctx context.Context) *common.Hash {
					return m.market.CancelListing(ctx, listingID)
				})
		}

	case "u":
		if _, ok := m.selectedListingRow(); ok {
			m.formKind = "update"
			m.form = m.newUpdateForm()
		}
	}
	return m, nil
}

// selectedListingRow returns the highlighted listing when a mutation on it
// is currently possible
func (m *model) selectedListingRow() (market.Listing, bool) {
	if !m.current.HasAccount || m.busyOp != "" || m.selectedListing >= len(m.listings) {
		return market.Listing{}, false
	}
	return m.listings[m.selectedListing], true
}

func (m *model) handleDomainsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedDomain > 0 {
			m.selectedDomain--
		}
	case "down", "j":
		if m.selectedDomain < len(m.domains)-1 {
			m.selectedDomain++
		}
	case "r":
		if m.current.HasAccount && !m.domainsLoading {
			m.domainsLoading = true
			return m, loadDomains(m.market, m.current.Account)
		}

	case "s":
		if m.current.HasAccount && m.busyOp == "" && m.selectedDomain < len(m.domains) {
			m.formKind = "sell"
			m.form = m.newSellForm()
		}

	case "a":
		if m.current.HasAccount && m.busyOp == "" && m.selectedDomain < len(m.domains) {
			tokenID := m.domains[m.selectedDomain].TokenID
			m.busyOp = "approve"
			payload := pending.Payload{TokenID: tokenID}
			return m, runMutation(m.pendingStore, "approve", pending.TypeApprove, payload,
				func(ctx context.Context) *common.Hash {
					return m.market.ApproveTokenForSale(ctx, tokenID)
				})
		}

	case "m":
		if m.current.HasAccount && m.busyOp == "" {
			m.formKind = "mint"
			m.form = m.newMintForm()
		}
	}
	return m, nil
}

func (m *model) handleWalletKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if !m.current.HasAccount && !m.current.IsConnecting {
			m.addLog("info", "connecting wallet…")
			return m, connectWallet(m.manager, connector.KindLocal)
		}

	case "p":
		if !m.current.HasAccount && !m.current.IsConnecting && m.relayProvider != nil {
			m.addLog("info", "pairing with relay wallet…")
			return m, connectWallet(m.manager, connector.KindRelay)
		}

	case "x":
		if m.current.HasAccount {
			m.manager.Disconnect()
			m.current = m.manager.Snapshot()
		}

	case "n":
		if m.current.HasAccount && !m.current.IsSwitching {
			if target := m.nextNetworkTarget(); target != nil {
				m.addLog("info", "switching to chain "+target.String())
				return m, switchNetwork(m.manager, target)
			}
		}

	case "w":
		if m.current.HasAccount && m.busyOp == "" && len(m.royalties) > 0 {
			m.busyOp = "withdraw"
			return m, runMutation(m.pendingStore, "withdraw royalties", pending.TypeWithdraw, pending.Payload{},
				func(ctx context.Context) *common.Hash {
					return m.market.WithdrawAllRoyaltyFees(ctx)
				})
		}

	case "f":
		if m.current.HasAccount && m.busyOp == "" {
			m.busyOp = "withdraw fees"
			return m, runMutation(m.pendingStore, "withdraw marketplace fees", pending.TypeWithdrawFees, pending.Payload{},
				func(ctx context.Context) *common.Hash {
					return m.market.WithdrawMarketplaceFees(ctx)
				})
		}

	case "y":
		if m.current.HasAccount {
			return m, copyToClipboard(m.current.Account.Hex())
		}

	case "q":
		if m.current.HasAccount {
			m.showQR = !m.showQR
		}

	case "r":
		if m.current.HasAccount {
			return m, m.refreshWalletData()
		}
	}
	return m, nil
}

func (m *model) handleSettingsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.selectedRPCIdx > 0 {
			m.selectedRPCIdx--
		}
	case "down", "j":
		if m.selectedRPCIdx < len(m.cfg.RPCURLs)-1 {
			m.selectedRPCIdx++
		}
	case "enter":
		if m.selectedRPCIdx < len(m.cfg.RPCURLs) {
			for i := range m.cfg.RPCURLs {
				m.cfg.RPCURLs[i].Active = i == m.selectedRPCIdx
			}
			config.Save(m.configPath, m.cfg)

			active := m.cfg.RPCURLs[m.selectedRPCIdx]
			m.addLog("info", "active endpoint: "+active.Name)

			// re-point the read path; the wallet session keeps its own handle
			if deployed, ok := m.cfg.ContractsFor(active.ChainID); ok {
				m.market.SetAddresses(market.Addresses{
					Marketplace: common.HexToAddress(deployed.Marketplace),
					NFT:         common.HexToAddress(deployed.NFT),
				})
			}
			if result := rpc.Connect(active.URL); result.Error == nil {
				m.market.SetClient(result.Client)
			}
			m.listingsLoading = true
			return m, loadListings(m.market, 1)
		}
	}
	return m, nil
}

// -------------------- FORM HANDLING --------------------

func (m *model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	kind := m.formKind
	m.form = nil
	m.formKind = ""
	return m.dispatchForm(kind)
}

// dispatchForm turns a completed form into a mutation command
func (m *model) dispatchForm(kind string) (tea.Model, tea.Cmd) {
	switch kind {
	case "sell":
		price, ok := helpers.ParsePrice(m.formPrice)
		if !ok {
			m.addLog("error", "invalid price: "+m.formPrice)
			return m, nil
		}
		if m.selectedDomain >= len(m.domains) {
			return m, nil
		}
		tokenID := m.domains[m.selectedDomain].TokenID
		nft := m.market.ContractAddresses().NFT
		m.busyOp = "list"
		payload := pending.Payload{TokenID: tokenID, Price: price.String()}
		return m, runMutation(m.pendingStore, "list for sale", pending.TypeList, payload,
			func(ctx context.Context) *common.Hash {
				// the marketplace must hold transfer approval first
				m.market.ApproveTokenForSale(ctx, tokenID)
				return m.market.ListToken(ctx, nft, tokenID, price)
			})

	case "update":
		price, ok := helpers.ParsePrice(m.formPrice)
		if !ok {
			m.addLog("error", "invalid price: "+m.formPrice)
			return m, nil
		}
		if m.selectedListing >= len(m.listings) {
			return m, nil
		}
		listingID := m.listings[m.selectedListing].ListingID
		m.busyOp = "update"
		payload := pending.Payload{ListingID: listingID, Price: price.String()}
		return m, runMutation(m.pendingStore, "update price", pending.TypeUpdate, payload,
			func(ctx context.Context) *common.Hash {
				return m.market.UpdateListing(ctx, listingID, price)
			})

	case "mint":
		if !helpers.IsValidDomainName(m.formName) {
			m.addLog("error", "invalid domain name: "+m.formName)
			return m, nil
		}
		if !helpers.IsValidEthAddress(m.formTo) {
			m.addLog("error", "invalid recipient: "+m.formTo)
			return m, nil
		}
		name := m.formName
		to := common.HexToAddress(m.formTo)
		m.busyOp = "mint"
		return m, runMutation(m.pendingStore, "mint "+name, pending.TypeMint, pending.Payload{},
			func(ctx context.Context) *common.Hash {
				return m.market.MintDomain(ctx, to, name)
			})
	}
	return m, nil
}
