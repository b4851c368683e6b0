package main

import (
	"fmt"
	"os"

	"domain-market-tui/rpc"
	"domain-market-tui/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

// -------------------- MAIN --------------------

func main() {
	// optional .env for MARKET_RPC_URL and friends
	_ = godotenv.Load()

	m := newModel()
	p := tea.NewProgram(&m, tea.WithAltScreen())

	// session side effects feed back into the event loop
	m.manager.OnSessionChange(func(s session.Session) {
		p.Send(sessionChangedMsg{s: s})
	})
	m.manager.OnClientSwap(func(client *rpc.Client) {
		if client == nil {
			m.market.SetClient(nil)
		} else {
			m.market.SetClient(client)
		}
		p.Send(clientSwappedMsg{client: client})
	})
	m.manager.OnBalanceRefresh(func(account common.Address) {
		p.Send(sessionChangedMsg{s: m.manager.Snapshot()})
	})
	if m.relayProvider != nil {
		m.relayProvider.PairingURI(func(uri string) {
			p.Send(pairingURIMsg{uri: uri})
		})
	}

	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
