package connector

import (
	"errors"
	"strings"
)

// Fault classifies connector failures. Classification is data-driven so new
// wallet/relay error strings can be added to the table without touching
// control flow.
type Fault int

const (
	// FaultUnknown is anything the table does not recognize.
	FaultUnknown Fault = iota
	// FaultUserRejected: the user declined the request. Never retried.
	FaultUserRejected
	// FaultUnavailable: the capability is missing (wallet not installed).
	FaultUnavailable
	// FaultTransientRelay: known-noisy relay failures worth retrying.
	FaultTransientRelay
	// FaultUnknownChain: the wallet does not know the target network and an
	// add-chain request should be attempted first.
	FaultUnknownChain
)

// Sentinel errors shared by both adapter variants.
var (
	ErrNotInstalled = errors.New("no local wallet found: install a wallet extension or use the relay connector")
	ErrNoSession    = errors.New("no existing wallet session")
	ErrNoAccounts   = errors.New("wallet returned no accounts")
	ErrUnknownChain = errors.New("wallet does not recognize the target chain")
)

type faultPattern struct {
	substr string
	kind   Fault
}

// faultTable maps known error substrings to fault kinds. Substrings are
// matched case-insensitively against the full error text.
var faultTable = []faultPattern{
	{"user rejected", FaultUserRejected},
	{"user denied", FaultUserRejected},
	{"rejected by user", FaultUserRejected},
	{"request rejected", FaultUserRejected},

	{"connection reset", FaultTransientRelay},
	{"please try again", FaultTransientRelay},
	{"temporarily unavailable", FaultTransientRelay},
	{"socket hang up", FaultTransientRelay},
	{"session topic doesn't exist", FaultTransientRelay},
	{"no matching key", FaultTransientRelay},
	{"websocket connection failed", FaultTransientRelay},

	{"not installed", FaultUnavailable},
	{"no provider", FaultUnavailable},
	{"wallet is locked", FaultUnavailable},

	{"unrecognized chain", FaultUnknownChain},
	{"unknown chain", FaultUnknownChain},
	{"chain not added", FaultUnknownChain},
	{"4902", FaultUnknownChain}, // EIP-3326 "chain not added" code
}

// Classify maps err onto the fault taxonomy.
func Classify(err error) Fault {
	if err == nil {
		return FaultUnknown
	}
	switch {
	case errors.Is(err, ErrNotInstalled):
		return FaultUnavailable
	case errors.Is(err, ErrUnknownChain):
		return FaultUnknownChain
	}

	msg := strings.ToLower(err.Error())
	for _, p := range faultTable {
		if strings.Contains(msg, p.substr) {
			return p.kind
		}
	}
	return FaultUnknown
}

// Retryable reports whether err belongs to the class of relay faults that is
// retried internally before (silently) giving up.
func Retryable(err error) bool {
	return Classify(err) == FaultTransientRelay
}
