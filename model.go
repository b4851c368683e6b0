package main

import (
	"os"
	"path/filepath"
	"strings"

	"domain-market-tui/config"
	"domain-market-tui/connector"
	"domain-market-tui/market"
	"domain-market-tui/pending"
	"domain-market-tui/rpc"
	"domain-market-tui/session"
	"domain-market-tui/storage"
	"domain-market-tui/styles"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- MODEL --------------------

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	activePage config.Page

	cfg        config.Config
	configPath string

	manager       *session.Manager
	market        *market.DataAccess
	pendingStore  *pending.Store
	relayProvider *connector.RelayNodeProvider // nil when no relay endpoint is configured

	// latest session snapshot
	current session.Session

	// market page
	listings        []market.Listing
	listingsLoading bool
	listingsPage    int
	selectedListing int

	// domains page
	domains        []market.Domain
	domainsLoading bool
	selectedDomain int

	// wallet page
	details        rpc.AccountDetails
	detailsLoading bool
	royalties      []market.SplitterBalance
	pendingRows    []pending.Update
	showQR         bool
	copiedMsg      string
	pairingURI     string

	// settings page
	selectedRPCIdx int

	// sell/mint form state
	form      *huh.Form
	formKind  string // "sell", "update", "mint"
	formPrice string
	formName  string
	formTo    string

	// mutation in flight
	busyOp string

	spin spinner.Model

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logBuffer   *strings.Builder
	logViewport viewport.Model
	logReady    bool
	logSpinner  spinner.Model
	showLog     bool
}

// -------------------- INIT --------------------

// newModel creates and initializes a new model with configuration from disk
func newModel() model {
	// config and state paths
	homeDir, _ := os.UserHomeDir()
	configPath := filepath.Join(homeDir, ".domain-market-config.json")
	statePath := filepath.Join(homeDir, ".domain-market-state.json")

	cfg := config.LoadOrCreate(configPath)

	// RPC endpoint from environment overrides the config
	if envURL := strings.TrimSpace(os.Getenv("MARKET_RPC_URL")); envURL != "" {
		cfg.RPCURLs = append([]config.RPCUrl{{Name: "Env", URL: envURL, Active: true}}, cfg.RPCURLs...)
	}
	if envURL := strings.TrimSpace(os.Getenv("MARKET_RELAY_URL")); envURL != "" {
		cfg.Relay.URL = envURL
	}

	activeRPC, _ := cfg.ActiveRPC()
	endpoints := make(map[int64]string, len(cfg.RPCURLs))
	for _, r := range cfg.RPCURLs {
		if r.ChainID != 0 {
			endpoints[r.ChainID] = r.URL
		}
	}

	// session manager over the node-backed connectors
	provider := connector.NewNodeProvider(activeRPC.URL, endpoints)
	factories := map[connector.Kind]session.AdapterFactory{
		connector.KindLocal: func() connector.Adapter {
			return connector.NewLocalAdapter(provider)
		},
	}
	var relayProvider *connector.RelayNodeProvider
	if cfg.Relay.URL != "" {
		relayProvider = connector.NewRelayNodeProvider(cfg.Relay.URL, endpoints)
		projectID := cfg.Relay.ProjectID
		factories[connector.KindRelay] = func() connector.Adapter {
			return connector.NewRelayAdapter(relayProvider, projectID)
		}
	}
	store := storage.NewFileKV(statePath)
	manager := session.NewManager(factories, store, nil)

	// marketplace data layer, read-only until a wallet connects
	var addrs market.Addresses
	if deployed, ok := cfg.ContractsFor(activeRPC.ChainID); ok {
		addrs = market.Addresses{
			Marketplace: common.HexToAddress(deployed.Marketplace),
			NFT:         common.HexToAddress(deployed.NFT),
		}
	}
	data := market.New(nil, addrs, nil)
	if result := rpc.Connect(activeRPC.URL); result.Error == nil {
		data.SetClient(result.Client)
	}

	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	vp := viewport.New(0, 20) // resized on first WindowSizeMsg
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	m := model{
		activePage:      config.PageMarket,
		cfg:             cfg,
		configPath:      configPath,
		manager:         manager,
		market:          data,
		pendingStore:    pending.NewStore(store),
		relayProvider:   relayProvider,
		current:         manager.Snapshot(),
		listingsPage:    1,
		listingsLoading: true,
		spin:            sp,
		logEnabled:      cfg.Logger,
		logViewport:     vp,
		logBuffer:       &strings.Builder{},
		logSpinner:      logSpin,
	}

	return m
}

// Init implements tea.Model interface and returns initial commands
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}

	cmds = append(cmds,
		loadListings(m.market, m.listingsPage),
		autoReconnect(m.manager),
	)
	return tea.Batch(cmds...)
}

// -------------------- FORMS --------------------

// newSellForm builds the list-for-sale price form
func (m *model) newSellForm() *huh.Form {
	m.formPrice = ""
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("List for sale").
				Description("Price in " + m.currency()).
				Placeholder("1.5").
				Value(&m.formPrice),
		),
	).WithTheme(huh.ThemeCatppuccin())
	form.Init()
	return form
}

// newUpdateForm builds the reprice form for an existing listing
func (m *model) newUpdateForm() *huh.Form {
	m.formPrice = ""
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Update price").
				Description("New price in " + m.currency()).
				Placeholder("2.0").
				Value(&m.formPrice),
		),
	).WithTheme(huh.ThemeCatppuccin())
	form.Init()
	return form
}

// newMintForm builds the mint-domain form
func (m *model) newMintForm() *huh.Form {
	m.formName = ""
	m.formTo = m.current.Account.Hex()
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Mint domain").
				Description("Domain name").
				Placeholder("example.crypto").
				Value(&m.formName),
			huh.NewInput().
				Title("Recipient").
				Placeholder("0x…").
				Value(&m.formTo),
		),
	).WithTheme(huh.ThemeCatppuccin())
	form.Init()
	return form
}
