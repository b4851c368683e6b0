package settings

import (
	"fmt"
	"strings"

	"domain-market-tui/config"
	"domain-market-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// Nav returns the navigation bar for settings view
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Key("↑/↓") + " select",
		styles.Key("Enter") + " activate",
		styles.Key("Tab") + " next view",
		styles.Key("l") + " log",
		styles.Key("Esc") + " quit",
	}, "   ")

	return styles.NavStyle.Width(width).Render(left)
}

// Render renders the RPC endpoint settings view
func Render(rpcURLs []config.RPCUrl, contracts []config.Contracts, selectedIdx int) string {
	h := styles.TitleStyle.Render("Endpoints")
	muted := lipgloss.NewStyle().Foreground(styles.CMuted)

	lines := []string{h, ""}

	if len(rpcURLs) == 0 {
		lines = append(lines, muted.Render("No RPC endpoints configured."))
	} else {
		for i, rpc := range rpcURLs {
			var marker string
			if rpc.Active {
				marker = lipgloss.NewStyle().Foreground(styles.CAccent).Render("● ")
			} else {
				marker = muted.Render("○ ")
			}

			nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
			urlStyle := muted

			if i == selectedIdx {
				nameStyle = nameStyle.Foreground(styles.CAccent2).Bold(true)
				marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Render("▶ ")
			}

			lines = append(lines, marker+nameStyle.Render(fmt.Sprintf("%s (chain %d)", rpc.Name, rpc.ChainID)))
			lines = append(lines, "  "+urlStyle.Render(rpc.URL))
			lines = append(lines, "")
		}
	}

	if len(contracts) > 0 {
		lines = append(lines, styles.TitleStyle.Render("Deployments"), "")
		for _, c := range contracts {
			lines = append(lines, muted.Render(fmt.Sprintf("chain %d", c.ChainID)))
			lines = append(lines, "  "+muted.Render("marketplace "+c.Marketplace))
			lines = append(lines, "  "+muted.Render("nft         "+c.NFT))
			lines = append(lines, "")
		}
	}

	return strings.Join(lines, "\n")
}
