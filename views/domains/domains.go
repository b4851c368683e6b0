package domains

import (
	"fmt"
	"strings"

	"domain-market-tui/helpers"
	market "domain-market-tui/market"
	"domain-market-tui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

// Nav returns the navigation bar for the domains view
func Nav(width int, hasWallet bool) string {
	keys := []string{
		styles.Key("↑/↓") + " select",
		styles.Key("r") + " refresh",
	}
	if hasWallet {
		keys = append(keys,
			styles.Key("s")+" sell",
			styles.Key("a")+" approve",
			styles.Key("m")+" mint",
		)
	}
	keys = append(keys,
		styles.Key("Tab")+" next view",
		styles.Key("l")+" log",
		styles.Key("Esc")+" quit",
	)
	return styles.NavStyle.Width(width).Render(strings.Join(keys, "   "))
}

// Render renders the connected wallet's domain tokens
func Render(owned []market.Domain, selected int, loading bool, spinnerView string, hasWallet bool) string {
	h := styles.TitleStyle.Render("My Domains")
	muted := lipgloss.NewStyle().Foreground(styles.CMuted)

	lines := []string{h, ""}

	if !hasWallet {
		lines = append(lines, muted.Render("Connect a wallet to see your domains (Wallet view)."))
		return strings.Join(lines, "\n")
	}
	if loading {
		lines = append(lines, spinnerView+" scanning collection…")
		return strings.Join(lines, "\n")
	}
	if len(owned) == 0 {
		lines = append(lines, muted.Render("No domains owned by this wallet."))
		return strings.Join(lines, "\n")
	}

	for i, d := range owned {
		marker := muted.Render("  ")
		nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
		if i == selected {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
			nameStyle = nameStyle.Foreground(styles.CAccent2).Bold(true)
		}

		name := d.Data.Name
		if name == "" {
			name = fmt.Sprintf("token #%d", d.TokenID)
		}

		lines = append(lines, marker+nameStyle.Render(name))
		detail := fmt.Sprintf("token #%d", d.TokenID)
		if d.Data.TokenURI != "" {
			detail += " · " + d.Data.TokenURI
		}
		lines = append(lines, "    "+muted.Render(detail))
		if d.Data.Splitter != (common.Address{}) {
			lines = append(lines, "    "+muted.Render("royalties via "+helpers.ShortenAddr(d.Data.Splitter.Hex())))
		}
	}

	return strings.Join(lines, "\n")
}
