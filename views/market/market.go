package market

import (
	"fmt"
	"strings"

	"domain-market-tui/helpers"
	market "domain-market-tui/market"
	"domain-market-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for the market view
func Nav(width int, hasWallet bool) string {
	keys := []string{
		styles.Key("↑/↓") + " select",
		styles.Key("←/→") + " page",
		styles.Key("r") + " refresh",
	}
	if hasWallet {
		keys = append(keys, styles.Key("Enter")+" buy", styles.Key("u")+" reprice", styles.Key("c")+" cancel")
	}
	keys = append(keys,
		styles.Key("Tab")+" next view",
		styles.Key("l")+" log",
		styles.Key("Esc")+" quit",
	)
	return styles.NavStyle.Width(width).Render(strings.Join(keys, "   "))
}

// Render renders the listing browser, most recent listings first
func Render(listings []market.Listing, selected, page int, loading bool, spinnerView, currency string) string {
	h := styles.TitleStyle.Render("Marketplace")
	muted := lipgloss.NewStyle().Foreground(styles.CMuted)

	lines := []string{h, ""}

	if loading {
		lines = append(lines, spinnerView+" loading listings…")
		return strings.Join(lines, "\n")
	}

	if len(listings) == 0 {
		lines = append(lines, muted.Render("No listings on this page."))
		lines = append(lines, "")
		lines = append(lines, muted.Render("Press ")+styles.Key("r")+muted.Render(" to refresh or ")+styles.Key("←")+muted.Render(" for a previous page."))
	} else {
		for i, l := range listings {
			marker := muted.Render("  ")
			nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
			if i == selected {
				marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
				nameStyle = nameStyle.Foreground(styles.CAccent2).Bold(true)
			}

			name := fmt.Sprintf("token #%d", l.TokenID)
			if l.Token != nil && l.Token.Name != "" {
				name = l.Token.Name
			}

			status := lipgloss.NewStyle().Foreground(styles.CAccent).Render("active")
			if !l.Active {
				status = muted.Render("closed")
			}

			lines = append(lines, fmt.Sprintf("%s%s  %s  %s",
				marker,
				nameStyle.Render(name),
				lipgloss.NewStyle().Foreground(styles.CWarn).Render(helpers.FormatPrice(l.Price, currency)),
				status))
			lines = append(lines, "    "+muted.Render(fmt.Sprintf("listing #%d · seller %s", l.ListingID, helpers.ShortenAddr(l.Seller.Hex()))))
		}
	}

	lines = append(lines, "")
	lines = append(lines, muted.Render(fmt.Sprintf("page %d", page)))
	return strings.Join(lines, "\n")
}
