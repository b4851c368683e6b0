package main

import (
	"strings"

	"domain-market-tui/config"
	"domain-market-tui/helpers"
	domainsview "domain-market-tui/views/domains"
	logview "domain-market-tui/views/log"
	marketview "domain-market-tui/views/market"
	"domain-market-tui/views/settings"
	walletview "domain-market-tui/views/wallet"

	"github.com/charmbracelet/lipgloss"
	"github.com/mdp/qrterminal/v3"
)

// -------------------- VIEW --------------------

// globalHeader renders the top bar: title, connected account, network
func (m *model) globalHeader() string {
	availableWidth := max(20, m.w-6)

	titleText := titleStyle.Render(helpers.FadeString("domain market", "#7EE787", "#82CFFD"))

	addrDisplay := hotkeyStyle.Render("not connected")
	if m.current.HasAccount {
		addrDisplay = lipgloss.NewStyle().Foreground(cAccent).Render("● " + helpers.ShortenAddr(m.current.Account.Hex()))
	} else if m.current.IsConnecting {
		addrDisplay = hotkeyStyle.Render(m.spin.View() + " connecting")
	}

	netDisplay := hotkeyStyle.Render("no network")
	if m.current.ChainID != nil {
		netDisplay = hotkeyStyle.Render("chain " + m.current.ChainID.String())
		if m.networkSupported() {
			netDisplay = lipgloss.NewStyle().Foreground(cAccent2).Render(m.currency() + " · chain " + m.current.ChainID.String())
		}
	}

	addrWidth := lipgloss.Width(addrDisplay)
	netWidth := lipgloss.Width(netDisplay)
	titleWidth := lipgloss.Width(titleText)
	totalOtherWidth := addrWidth + netWidth + titleWidth

	var headerLine string
	if totalOtherWidth+4 > availableWidth {
		headerLine = addrDisplay + "\n" + titleText + "\n" + netDisplay
	} else {
		remainingSpace := availableWidth - totalOtherWidth
		leftSpacer := strings.Repeat(" ", max(1, remainingSpace/2))
		rightSpacer := strings.Repeat(" ", max(1, remainingSpace-remainingSpace/2))
		headerLine = addrDisplay + leftSpacer + titleText + rightSpacer + netDisplay
	}

	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	return headerLine + "\n" + separator
}

func (m *model) View() string {
	headerPanel := panelStyle.Width(max(0, m.w-2)).Render(m.globalHeader())

	var pageContent string
	var nav string

	switch m.activePage {
	case config.PageMarket:
		pageContent = marketview.Render(m.listings, m.selectedListing, m.listingsPage, m.listingsLoading, m.spin.View(), m.currency())
		nav = marketview.Nav(max(0, m.w-2), m.current.HasAccount)

	case config.PageDomains:
		pageContent = domainsview.Render(m.domains, m.selectedDomain, m.domainsLoading, m.spin.View(), m.current.HasAccount)
		nav = domainsview.Nav(max(0, m.w-2), m.current.HasAccount)

	case config.PageWallet:
		pageContent = walletview.Render(walletview.Data{
			Session:     m.current,
			Details:     m.details,
			Royalties:   m.royalties,
			Pending:     m.pendingRows,
			Currency:    m.currency(),
			NetworkOK:   m.networkSupported(),
			Loading:     m.detailsLoading,
			SpinnerView: m.spin.View(),
			CopiedMsg:   m.copiedMsg,
			QR:          m.qrPanel(),
		})
		nav = walletview.Nav(max(0, m.w-2), m.current.HasAccount, m.relayProvider != nil)

	case config.PageSettings:
		pageContent = settings.Render(m.cfg.RPCURLs, m.cfg.Contracts, m.selectedRPCIdx)
		nav = settings.Nav(max(0, m.w-2))
	}

	// an open form replaces the page body
	if m.form != nil {
		pageContent = m.form.View() + "\n\n" +
			hotkeyStyle.Render("Enter") + " submit   " + hotkeyStyle.Render("Esc") + " cancel"
	}

	if m.busyOp != "" {
		pageContent += "\n\n" + m.spin.View() + " " + hotkeyStyle.Render(m.busyOp+" in flight…")
	}

	body := panelStyle.Width(max(0, m.w-2)).Render(pageContent)

	sections := []string{headerPanel, body}
	if m.logEnabled && m.showLog {
		sections = append(sections, logview.Render(m.w, m.h, m.logReady, m.logSpinner.View(), m.logViewport))
	}
	if nav != "" {
		sections = append(sections, nav)
	}

	return appStyle.Render(strings.Join(sections, "\n"))
}

// qrPanel renders the wallet page's QR code: the relay pairing URI while a
// pairing is in flight, the account address on demand once connected
func (m *model) qrPanel() string {
	if m.current.IsConnecting && m.pairingURI != "" {
		return renderQR(m.pairingURI)
	}
	if m.showQR && m.current.HasAccount {
		return renderQR(m.current.Account.Hex())
	}
	return ""
}

func renderQR(payload string) string {
	var buf strings.Builder
	qrterminal.GenerateWithConfig(payload, qrterminal.Config{
		Level:      qrterminal.L,
		Writer:     &buf,
		HalfBlocks: true,
		QuietZone:  1,
	})
	return buf.String()
}
