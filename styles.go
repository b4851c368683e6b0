package main

import (
	"domain-market-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

// -------------------- THEME (Lip Gloss) --------------------
// The shared palette lives in the styles package; only the aliases the root
// views reach for are bound here.

var (
	cBorder  = styles.CBorder
	cAccent  = styles.CAccent
	cAccent2 = styles.CAccent2

	appStyle    = styles.AppStyle
	titleStyle  = styles.TitleStyle
	panelStyle  = styles.PanelStyle
	hotkeyStyle = lipgloss.NewStyle().Foreground(styles.CMuted)
)
