package wallet

import (
	"fmt"
	"strings"

	"domain-market-tui/helpers"
	market "domain-market-tui/market"
	"domain-market-tui/pending"
	"domain-market-tui/rpc"
	"domain-market-tui/session"
	"domain-market-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Data bundles everything the wallet page renders.
type Data struct {
	Session   session.Session
	Details   rpc.AccountDetails
	Royalties []market.SplitterBalance
	Pending   []pending.Update
	Currency  string
	NetworkOK bool

	Loading     bool
	SpinnerView string
	CopiedMsg   string
	QR          string // rendered pairing/address QR, empty when hidden
}

// Nav returns the navigation bar for the wallet view
func Nav(width int, connected, relay bool) string {
	var keys []string
	if connected {
		keys = []string{
			styles.Key("n") + " switch network",
			styles.Key("w") + " withdraw royalties",
			styles.Key("q") + " address QR",
			styles.Key("y") + " copy address",
			styles.Key("x") + " disconnect",
		}
	} else {
		keys = []string{styles.Key("Enter") + " connect"}
		if relay {
			keys = append(keys, styles.Key("p")+" pair relay")
		}
	}
	keys = append(keys,
		styles.Key("Tab")+" next view",
		styles.Key("l")+" log",
		styles.Key("Esc")+" quit",
	)
	return styles.NavStyle.Width(width).Render(strings.Join(keys, "   "))
}

// Render renders the wallet/session page
func Render(d Data) string {
	h := styles.TitleStyle.Render("Wallet")
	muted := lipgloss.NewStyle().Foreground(styles.CMuted)
	ok := lipgloss.NewStyle().Foreground(styles.CAccent)
	warn := lipgloss.NewStyle().Foreground(styles.CWarn)

	lines := []string{h, ""}

	s := d.Session
	switch {
	case s.IsConnecting:
		lines = append(lines, d.SpinnerView+" connecting…")
		if d.QR != "" {
			lines = append(lines, "", muted.Render("approve the pairing on the signing wallet"))
		}
	case s.IsSwitching:
		lines = append(lines, d.SpinnerView+" switching network…")
	case !s.HasAccount:
		lines = append(lines, muted.Render("No wallet connected."))
		lines = append(lines, "")
		lines = append(lines, muted.Render("Press ")+styles.Key("Enter")+muted.Render(" to connect."))
		if s.LastError != "" {
			lines = append(lines, "", warn.Render(s.LastError))
		}
	default:
		addr := s.Account.Hex()
		lines = append(lines, ok.Render("● connected")+muted.Render(fmt.Sprintf("  (%s)", s.ConnectorKind)))
		lines = append(lines, "")
		lines = append(lines, "Account:  "+lipgloss.NewStyle().Foreground(styles.CText).Render(helpers.ShortenAddr(addr)))
		if d.CopiedMsg != "" {
			lines[len(lines)-1] += "  " + ok.Render(d.CopiedMsg)
		}

		network := "unknown network"
		if s.ChainID != nil {
			network = fmt.Sprintf("chain %s", s.ChainID)
			if desc, found := session.LookupNetwork(s.ChainID); found {
				network = desc.Name
			}
		}
		netStyle := ok
		if !d.NetworkOK {
			netStyle = warn
			network += "  (unsupported, press n)"
		}
		lines = append(lines, "Network:  "+netStyle.Render(network))

		if d.Loading {
			lines = append(lines, "Balance:  "+d.SpinnerView)
		} else if d.Details.ErrMessage != "" {
			lines = append(lines, "Balance:  "+warn.Render(d.Details.ErrMessage))
		} else {
			lines = append(lines, "Balance:  "+lipgloss.NewStyle().Foreground(styles.CText).Render(helpers.FormatPrice(d.Details.Wei, d.Currency)))
		}

		if len(d.Royalties) > 0 {
			lines = append(lines, "", styles.TitleStyle.Render("Royalties"))
			for _, rb := range d.Royalties {
				lines = append(lines, fmt.Sprintf("  %s  %s",
					muted.Render(helpers.ShortenAddr(rb.Splitter.Hex())),
					ok.Render(helpers.FormatPrice(rb.Balance, d.Currency))))
			}
			lines = append(lines, muted.Render("  press ")+styles.Key("w")+muted.Render(" to withdraw all"))
		}

		if len(d.Pending) > 0 {
			lines = append(lines, "", styles.TitleStyle.Render("Pending"))
			for _, u := range d.Pending {
				lines = append(lines, fmt.Sprintf("  %s  %s  %s",
					warn.Render(string(u.Type)),
					muted.Render(helpers.ShortenHash(u.TxHash)),
					muted.Render(helpers.Ago(u.Timestamp))))
			}
		}
	}

	if d.QR != "" {
		lines = append(lines, "", d.QR)
	}

	return strings.Join(lines, "\n")
}
