package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/logic-tracker/pkg/tracker"
	"github.com/muesli/reflow/wordwrap"
)

const PlaceHolderText = "add Hookshot | paths Dark World | explain Hyrule Castle..."

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config       *ConsoleConfig
	client       *http.Client
	session      *SessionView
	logViewport  viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	err          error
	loading      bool
	logLines     []string
	statusLine   string

	// Quit confirmation state
	showQuitModal bool
}

type sessionUpdatedMsg struct {
	session *SessionView
	action  string
	err     error
}

type reachabilityMsg struct {
	view *ReachabilityView
	err  error
}

type pathsMsg struct {
	region string
	report *tracker.Report
	err    error
}

type explainMsg struct {
	view *ExplainView
	err  error
}

var (
	logPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	reachableStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, session *SessionView) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 500
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	logVp := viewport.New(50, 20)
	logVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:       cfg,
		client:       client,
		session:      session,
		textarea:     ta,
		logViewport:  logVp,
		metaViewport: metaVp,
		ready:        false,
	}
}

func writeMetadata(s *SessionView) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("TRACKER") + "\n\n")

	content.WriteString("Session ID:\n")
	content.WriteString(s.ID.String()[:8] + "...\n\n")

	content.WriteString("Ruleset:\n")
	content.WriteString(s.Ruleset + "\n\n")

	content.WriteString("Reachable Regions:\n")
	if len(s.ReachableRegions) == 0 {
		content.WriteString("None\n")
	}
	for _, region := range s.ReachableRegions {
		content.WriteString(reachableStyle.Render("• "+region) + "\n")
	}
	content.WriteString("\n")

	content.WriteString(fmt.Sprintf("Accessible Locations:\n%d total\n\n", len(s.AccessibleLocations)))

	content.WriteString("Commands:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Ctrl+Y: Copy session ID\n")
	content.WriteString("• Enter: Run command\n")
	content.WriteString("• help: Command list\n")

	return content.String()
}

// writeLogContent rebuilds the output log for the current viewport width.
func (m *ConsoleUI) writeLogContent() {
	logWidth := m.logViewport.Width - 6 // Account for left(3) + right(3) padding

	var content strings.Builder
	content.WriteString(titleStyle.Render("LOGIC TRACKER") + "\n\n")
	content.WriteString("Type commands below to update your run and query reachability.\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", max(logWidth-6, 1))) + "\n\n")

	for _, line := range m.logLines {
		content.WriteString(wordwrap.String(line, max(logWidth-2, 10)) + "\n")
	}

	if m.loading {
		content.WriteString("\n" + warnStyle.Render("Working..."))
	}

	m.logViewport.SetContent(content.String())
	m.logViewport.GotoBottom()
}

func (m *ConsoleUI) appendLog(lines ...string) {
	m.logLines = append(m.logLines, lines...)
	m.writeLogContent()
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.logViewport, vpCmd = m.logViewport.Update(msg)
		m.textarea, tiCmd = m.textarea.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		logWidth := int(float64(m.width)*0.70) - 4
		metaWidth := m.width - logWidth - 6

		m.logViewport.Width = logWidth - 2
		m.logViewport.Height = m.height - 7
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(logWidth - 4)

		m.ready = true
		m.writeLogContent()
		m.metaViewport.SetContent(writeMetadata(m.session))

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyCtrlY:
			if err := clipboard.WriteAll(m.session.ID.String()); err != nil {
				m.appendLog(errorStyle.Render("Failed to copy session ID: " + err.Error()))
			} else {
				m.appendLog(promptStyle.Render("Session ID copied to clipboard."))
			}
			return m, nil
		case tea.KeyEnter:
			if m.loading {
				return m, nil
			}

			input := strings.TrimSpace(m.textarea.Value())
			if input == "" {
				return m, nil
			}

			m.textarea.Reset()
			m.appendLog(commandStyle.Render("> " + input))
			return m.dispatchCommand(input)
		}

	case sessionUpdatedMsg:
		m.loading = false
		if msg.err != nil {
			m.appendLog(errorStyle.Render("Error: " + msg.err.Error()))
		} else {
			m.session = msg.session
			m.metaViewport.SetContent(writeMetadata(m.session))
			m.appendLog(fmt.Sprintf("%s. %d regions reachable, %d locations accessible.",
				msg.action, len(m.session.ReachableRegions), len(m.session.AccessibleLocations)))
		}
		m.writeLogContent()

	case reachabilityMsg:
		m.loading = false
		if msg.err != nil {
			m.appendLog(errorStyle.Render("Error: " + msg.err.Error()))
		} else {
			m.appendLog(formatReachability(msg.view)...)
		}

	case pathsMsg:
		m.loading = false
		if msg.err != nil {
			m.appendLog(errorStyle.Render("Error: " + msg.err.Error()))
		} else {
			m.appendLog(formatPaths(msg.region, msg.report)...)
		}

	case explainMsg:
		m.loading = false
		if msg.err != nil {
			m.appendLog(errorStyle.Render("Error: " + msg.err.Error()))
		} else {
			m.appendLog(formatExplain(msg.view)...)
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.logViewport, vpCmd = m.logViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

// dispatchCommand parses one input line and fires the matching API call.
func (m ConsoleUI) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	verb, arg, _ := strings.Cut(input, " ")
	verb = strings.ToLower(verb)
	arg = strings.TrimSpace(arg)

	switch verb {
	case "help":
		m.appendLog(helpText()...)
		return m, nil

	case "add":
		if arg == "" {
			m.appendLog(warnStyle.Render("Usage: add <item>"))
			return m, nil
		}
		m.loading = true
		m.writeLogContent()
		if strings.Contains(arg, ",") {
			items := splitItems(arg)
			return m, m.apiCmd(func() tea.Msg {
				s, err := addItemsBatch(m.client, m.config.APIBaseURL, m.session.ID, items)
				return sessionUpdatedMsg{s, fmt.Sprintf("Added %d items", len(items)), err}
			})
		}
		return m, m.apiCmd(func() tea.Msg {
			s, err := addItem(m.client, m.config.APIBaseURL, m.session.ID, arg)
			return sessionUpdatedMsg{s, "Added " + arg, err}
		})

	case "exclude", "include":
		if arg == "" {
			m.appendLog(warnStyle.Render("Usage: " + verb + " <item>"))
			return m, nil
		}
		excluded := verb == "exclude"
		m.loading = true
		m.writeLogContent()
		action := "Excluded " + arg
		if !excluded {
			action = "Included " + arg
		}
		return m, m.apiCmd(func() tea.Msg {
			s, err := setExcluded(m.client, m.config.APIBaseURL, m.session.ID, arg, excluded)
			return sessionUpdatedMsg{s, action, err}
		})

	case "flag", "unflag":
		if arg == "" {
			m.appendLog(warnStyle.Render("Usage: " + verb + " <name>"))
			return m, nil
		}
		value := verb == "flag"
		m.loading = true
		m.writeLogContent()
		action := "Set flag " + arg
		if !value {
			action = "Cleared flag " + arg
		}
		return m, m.apiCmd(func() tea.Msg {
			s, err := setFlag(m.client, m.config.APIBaseURL, m.session.ID, arg, value)
			return sessionUpdatedMsg{s, action, err}
		})

	case "reach":
		m.loading = true
		m.writeLogContent()
		return m, m.apiCmd(func() tea.Msg {
			v, err := getReachability(m.client, m.config.APIBaseURL, m.session.ID)
			return reachabilityMsg{v, err}
		})

	case "paths":
		if arg == "" {
			m.appendLog(warnStyle.Render("Usage: paths <region>"))
			return m, nil
		}
		m.loading = true
		m.writeLogContent()
		return m, m.apiCmd(func() tea.Msg {
			r, err := getPaths(m.client, m.config.APIBaseURL, m.session.ID, arg)
			return pathsMsg{arg, r, err}
		})

	case "explain":
		if arg == "" {
			m.appendLog(warnStyle.Render("Usage: explain <location>"))
			return m, nil
		}
		m.loading = true
		m.writeLogContent()
		return m, m.apiCmd(func() tea.Msg {
			v, err := getExplain(m.client, m.config.APIBaseURL, m.session.ID, arg)
			return explainMsg{v, err}
		})

	default:
		m.appendLog(warnStyle.Render("Unknown command: " + verb + ". Type 'help' for the command list."))
		return m, nil
	}
}

func (m ConsoleUI) apiCmd(fn func() tea.Msg) tea.Cmd {
	return fn
}

func splitItems(arg string) []string {
	parts := strings.Split(arg, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

func helpText() []string {
	return []string{
		titleStyle.Render("Commands:"),
		"• add <item>            - Collect an item (comma-separate for a batch)",
		"• exclude <item>        - Mark an item unusable for logic",
		"• include <item>        - Undo an exclusion",
		"• flag <name>           - Set a state flag",
		"• unflag <name>         - Clear a state flag",
		"• reach                 - Full reachability report",
		"• paths <region>        - Path analysis for a region",
		"• explain <location>    - Why a location is or is not accessible",
		"• help                  - Show this help",
		"",
	}
}

func formatReachability(v *ReachabilityView) []string {
	lines := []string{titleStyle.Render("Reachability:")}
	lines = append(lines, reachableStyle.Render(fmt.Sprintf("Reachable regions (%d):", len(v.ReachableRegions))))
	for _, r := range v.ReachableRegions {
		lines = append(lines, "  • "+r)
	}
	if len(v.UnreachableRegions) > 0 {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("Unreachable regions (%d):", len(v.UnreachableRegions))))
		for _, r := range v.UnreachableRegions {
			lines = append(lines, "  • "+r)
		}
	}
	lines = append(lines, fmt.Sprintf("Accessible locations: %d", len(v.AccessibleLocations)))
	if len(v.NewlyReachable) > 0 {
		lines = append(lines, warnStyle.Render("Newly reachable:"))
		for _, l := range v.NewlyReachable {
			lines = append(lines, "  • "+l)
		}
	}
	if len(v.Events) > 0 {
		lines = append(lines, "Events granted: "+strings.Join(v.Events, ", "))
	}
	lines = append(lines, "")
	return lines
}

func formatPaths(region string, r *tracker.Report) []string {
	lines := []string{titleStyle.Render("Paths to " + region + ":")}
	if r.Reachable {
		lines = append(lines, reachableStyle.Render("Region is reachable."))
	} else {
		lines = append(lines, errorStyle.Render("Region is NOT reachable."))
	}
	if len(r.CanonicalPath) > 0 {
		lines = append(lines, "Canonical route: "+strings.Join(r.CanonicalPath, " → "))
	}
	for i, p := range r.Paths {
		marker := errorStyle.Render("✗")
		if p.Viable {
			marker = reachableStyle.Render("✓")
		}
		lines = append(lines, fmt.Sprintf("%s Path %d: %s", marker, i+1, strings.Join(p.Regions, " → ")))
	}
	if r.Incomplete {
		lines = append(lines, warnStyle.Render("Search budget hit; path list may be incomplete."))
	}
	if r.Disagreement {
		lines = append(lines, warnStyle.Render("Region is reachable but no enumerated path is viable."))
	}
	lines = append(lines, "")
	return lines
}

func formatExplain(v *ExplainView) []string {
	lines := []string{titleStyle.Render("Explain " + v.Location + ":")}
	lines = append(lines, fmt.Sprintf("Region: %s (reachable: %v)", v.Region, v.RegionReachable))
	if v.Accessible {
		lines = append(lines, reachableStyle.Render("Location is accessible."))
	} else {
		lines = append(lines, errorStyle.Render("Location is NOT accessible."))
	}
	for _, f := range v.Findings {
		lines = append(lines, fmt.Sprintf("  • [%s] %s", f.Category, f.Key))
	}
	lines = append(lines, "")
	return lines
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Tracker?"))
	content.WriteString("\n\n")
	content.WriteString("Your session is saved on the server and can be resumed by ID.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	logWidth := int(float64(m.width)*0.70) - 4
	metaWidth := m.width - logWidth - 6

	logPanel := logPanelStyle.Width(logWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.logViewport.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", max(logWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, logPanel, metaPanel)
}
