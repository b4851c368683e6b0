package styles

import "github.com/charmbracelet/lipgloss"

// Theme colors. Green-forward to match the domain-market header fade.
var (
	CBg      = lipgloss.Color("#0C1117") // near-black
	CPanel   = lipgloss.Color("#111A22") // slightly lighter
	CBorder  = lipgloss.Color("#2EA043")
	CMuted   = lipgloss.Color("#8B98A5")
	CText    = lipgloss.Color("#DCE6F0")
	CAccent  = lipgloss.Color("#7EE787") // green
	CAccent2 = lipgloss.Color("#79C0FF") // blue
	CWarn    = lipgloss.Color("#F0883E") // orange
)

// Shared styles
var (
	AppStyle = lipgloss.NewStyle().
			Background(CBg).
			Foreground(CText)

	TitleStyle = lipgloss.NewStyle().
			Foreground(CAccent2).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Background(CPanel).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(CBorder).
			Padding(1, 2)

	NavStyle = lipgloss.NewStyle().
			Background(CPanel).
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(CBorder).
			Padding(0, 1)

	HotkeyKeyStyle = lipgloss.NewStyle().
			Foreground(CAccent).
			Bold(true)
)

// Key renders a key with accent styling
func Key(s string) string {
	return HotkeyKeyStyle.Render(s)
}
