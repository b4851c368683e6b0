package main

import (
	"domain-market-tui/market"
	"domain-market-tui/rpc"
	"domain-market-tui/session"

	"github.com/ethereum/go-ethereum/common"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// sessionChangedMsg carries a fresh wallet session snapshot
type sessionChangedMsg struct {
	s session.Session
}

// clientSwappedMsg signals that the chain handle was replaced (connect,
// network switch or disconnect)
type clientSwappedMsg struct {
	client *rpc.Client
}

// connectFinishedMsg contains the outcome of a connect attempt
type connectFinishedMsg struct {
	err error
}

// pairingURIMsg carries the relay pairing URI for QR display
type pairingURIMsg struct {
	uri string
}

// switchFinishedMsg contains the outcome of a network switch
type switchFinishedMsg struct {
	err error
}

// listingsLoadedMsg contains one page of marketplace listings
type listingsLoadedMsg struct {
	listings []market.Listing
	page     int
}

// domainsLoadedMsg contains the connected wallet's domain tokens
type domainsLoadedMsg struct {
	domains []market.Domain
}

// royaltiesLoadedMsg contains the wallet's nonzero splitter balances
type royaltiesLoadedMsg struct {
	balances []market.SplitterBalance
}

// detailsLoadedMsg contains account balance details after loading
type detailsLoadedMsg struct {
	d rpc.AccountDetails
}

// txSubmittedMsg reports a finished mutation; hash is nil on failure
type txSubmittedMsg struct {
	op   string
	hash *common.Hash
}

// pendingReconciledMsg signals that confirmed pending updates were removed
type pendingReconciledMsg struct {
	removed int
}

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct{}

// clearCopiedMsg clears the clipboard feedback after a delay
type clearCopiedMsg struct{}

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}
