package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/easton-heights/internal/session"
	"github.com/jwebster45206/easton-heights/pkg/actor"
	"github.com/jwebster45206/easton-heights/pkg/catalog"
	"github.com/jwebster45206/easton-heights/pkg/engine"
	"github.com/jwebster45206/easton-heights/pkg/state"
	"github.com/jwebster45206/easton-heights/pkg/storage"
	"github.com/jwebster45206/easton-heights/pkg/textfilter"
)

const (
	PlaceHolderText = "Enter: next round · /help for commands"
	starterCast     = "Starter cast"
	startOption     = "Start"
)

// Setup steps
const (
	stepRoster = iota
	stepLocation
	stepZone
	stepRange
	stepFlags
)

var setupTitles = map[int]string{
	stepRoster:   "Choose a Roster",
	stepLocation: "Choose a Starting Location",
	stepZone:     "Choose a Zone",
	stepRange:    "Choose a Range",
	stepFlags:    "Set the Conditions",
}

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	library  storage.Library
	catalog  catalog.Catalog
	engine   *engine.Engine
	names    *textfilter.NameFilter
	logger   *slog.Logger
	delay    time.Duration
	copyText func(string) error

	session      *session.Session
	feedViewport viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int
	status       string
	err          error

	// Setup modal state
	showSetupModal bool
	setupStep      int
	options        []string
	selected       int
	roster         actor.Roster
	scene          session.SceneEdit
	loadingRosters bool

	// Quit confirmation state
	showQuitModal bool

	autoplay    bool
	autoplayGen int
}

type rostersLoadedMsg struct {
	names []string
	err   error
}

type rosterLoadedMsg struct {
	roster actor.Roster
	err    error
}

type autoplayTickMsg struct {
	gen int
}

var (
	chatPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	loadingStyle = lipgloss.NewStyle().
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

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

func NewConsoleUI(lib storage.Library, cat catalog.Catalog, eng *engine.Engine, delay time.Duration, logger *slog.Logger, copyText func(string) error) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	feedVp := viewport.New(50, 20)
	feedVp.MouseWheelEnabled = true

	return ConsoleUI{
		library:        lib,
		catalog:        cat,
		engine:         eng,
		names:          textfilter.NewNameFilter(),
		logger:         logger,
		delay:          delay,
		copyText:       copyText,
		textarea:       ta,
		feedViewport:   feedVp,
		metaViewport:   viewport.New(20, 20),
		showSetupModal: true,
		loadingRosters: true,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return m.loadRosters()
}

func (m ConsoleUI) loadRosters() tea.Cmd {
	return func() tea.Msg {
		names, err := m.library.ListRosters(context.Background())
		return rostersLoadedMsg{names, err}
	}
}

func (m ConsoleUI) loadRoster(name string) tea.Cmd {
	return func() tea.Msg {
		r, err := m.library.GetRoster(context.Background(), name)
		return rosterLoadedMsg{r, err}
	}
}

func autoplayTick(delay time.Duration, gen int) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return autoplayTickMsg{gen: gen}
	})
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showSetupModal {
		return m.updateSetupModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.feedViewport, vpCmd = m.feedViewport.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh(true)

	case autoplayTickMsg:
		if !m.autoplay || msg.gen != m.autoplayGen {
			return m, nil
		}
		m.roll()
		if m.autoplay {
			return m, autoplayTick(m.delay, m.autoplayGen)
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.showQuitModal = true
			return m, nil
		case "tab":
			return m, m.toggleAutoplay()
		case "ctrl+p":
			m.session.Back()
			m.refresh(false)
			return m, nil
		case "ctrl+n":
			m.session.Forward()
			m.refresh(false)
			return m, nil
		case "ctrl+y":
			m.copyCurrent()
			return m, nil
		case "pgup", "pgdown":
			m.feedViewport, vpCmd = m.feedViewport.Update(msg)
			return m, vpCmd
		case "enter":
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				m.roll()
				return m, nil
			}
			return m.handleCommand(input)
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	return m, tiCmd
}

// roll plays one round and updates the panels.
func (m *ConsoleUI) roll() {
	round, outcome := m.session.Roll()
	switch outcome {
	case engine.OutcomeOK:
		m.status = ""
		m.logger.Debug("Round played", "turn", round.Turn, "template", round.TemplateID)
	case engine.OutcomeNoEligible:
		m.status = "No eligible event this round."
	case engine.OutcomeInsufficient:
		m.status = "The scenario is over."
		m.autoplay = false
	}
	m.refresh(true)
}

func (m *ConsoleUI) toggleAutoplay() tea.Cmd {
	if m.session.Terminated() {
		m.status = "The scenario is over."
		return nil
	}
	m.autoplay = !m.autoplay
	m.autoplayGen++
	m.refresh(false)
	if !m.autoplay {
		return nil
	}
	return autoplayTick(m.delay, m.autoplayGen)
}

func (m *ConsoleUI) copyCurrent() {
	r := m.session.Current()
	if r == nil {
		m.status = "Nothing to copy yet."
		return
	}
	if err := m.copyText(roundHeader(r) + "\n" + r.Text); err != nil {
		m.logger.Warn("Clipboard copy failed", "error", err)
		m.status = "Copy failed: " + err.Error()
		return
	}
	m.status = "Copied the " + roundHeader(r) + "."
}

func (m *ConsoleUI) editScene(edit session.SceneEdit, done string) {
	if err := m.session.EditScene(edit); err != nil {
		m.status = "Cannot change the scene: " + err.Error()
		return
	}
	m.status = done
}

func (m ConsoleUI) handleCommand(input string) (tea.Model, tea.Cmd) {
	cmd, args, _ := strings.Cut(input, " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(cmd) {
	case "/help":
		m.status = helpText + strings.Join(actor.Traits, ", ")
	case "/add":
		c, err := parseAdd(args, m.names)
		if err == nil {
			err = m.session.AddCharacter(c)
		}
		if err != nil {
			m.status = "Cannot add: " + err.Error()
		} else {
			m.status = c.Name + " joins the group."
		}
	case "/remove":
		if err := m.session.RemoveCharacter(args); err != nil {
			m.status = "Cannot remove: " + err.Error()
		} else {
			m.status = args + " leaves the group."
		}
	case "/auto":
		return m, m.toggleAutoplay()
	case "/copy":
		m.copyCurrent()
	case "/zone":
		m.editScene(session.SceneEdit{Zone: args}, "Zone set to "+args+".")
	case "/range":
		r := strings.ToLower(args)
		m.editScene(session.SceneEdit{Range: r}, "Range set to "+r+".")
	case "/flag":
		flag := strings.ToLower(args)
		var on bool
		m.session.View(func(ws *state.WorldState) { on = ws.HasEnvFlag(flag) })
		verb := "on"
		if on {
			verb = "off"
		}
		m.editScene(session.SceneEdit{EnvFlags: map[string]bool{flag: !on}}, "The "+flag+" flag is "+verb+".")
	default:
		m.status = "Unknown command " + cmd + ". Type /help."
	}
	m.refresh(false)
	return m, nil
}

func (m *ConsoleUI) layout() {
	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	m.feedViewport.Width = chatWidth - 2
	m.feedViewport.Height = m.height - 8
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
	m.textarea.SetWidth(chatWidth - 4)
	m.ready = true
}

// refresh redraws both panels. With follow set the feed scrolls to the
// bottom; otherwise it scrolls to the round under the cursor.
func (m *ConsoleUI) refresh(follow bool) {
	if m.session == nil {
		return
	}
	pos, total := m.session.Position()
	content, line := renderFeed(m.session.Feed(), pos-1, m.feedViewport.Width-6)
	m.feedViewport.SetContent(content)
	if follow {
		m.feedViewport.GotoBottom()
	} else {
		m.feedViewport.SetYOffset(line)
	}

	var meta string
	m.session.View(func(ws *state.WorldState) {
		meta = renderMeta(ws, pos, total, m.autoplay, m.session.CatalogSize())
	})
	m.metaViewport.SetContent(meta)
}

// startSession creates the session from the chosen roster and scene.
func (m *ConsoleUI) startSession() error {
	ws := state.NewDefault()
	if m.roster != nil {
		ws.Players = m.roster
	}

	s, err := session.New(ws, m.catalog, m.engine, m.logger)
	if err != nil {
		return err
	}
	if err := s.EditScene(m.scene); err != nil {
		return err
	}
	m.session = s
	m.showSetupModal = false
	m.logger.Info("Console session started", "session", s.ID(), "location", m.scene.Location, "roster", len(ws.Players))
	return nil
}

func (m ConsoleUI) updateSetupModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case rostersLoadedMsg:
		m.loadingRosters = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.options = append([]string{starterCast}, msg.names...)

	case rosterLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		if len(msg.roster) < session.MinRoster {
			m.err = fmt.Errorf("%w: got %d", session.ErrRosterTooSmall, len(msg.roster))
			return m, nil
		}
		m.roster = msg.roster
		m.toLocationStep()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.showQuitModal = true
			return m, nil
		}
		if m.loadingRosters || m.err != nil {
			return m, nil
		}

		switch msg.String() {
		case "up":
			if m.selected > 0 {
				m.selected--
			}
		case "down":
			if m.selected < len(m.options)-1 {
				m.selected++
			}
		case " ", "enter":
			if len(m.options) == 0 {
				return m, nil
			}
			choice := m.options[m.selected]
			switch m.setupStep {
			case stepRoster:
				if msg.String() != "enter" {
					return m, nil
				}
				if choice == starterCast {
					m.toLocationStep()
					return m, nil
				}
				return m, m.loadRoster(choice)
			case stepLocation:
				m.scene.Location = choice
				m.toZoneStep()
				return m, nil
			case stepZone:
				m.scene.Zone = choice
				m.toRangeStep()
				return m, nil
			case stepRange:
				m.scene.Range = choice
				m.toFlagsStep()
				return m, nil
			}

			if choice != startOption {
				m.scene.EnvFlags[choice] = !m.scene.EnvFlags[choice]
				return m, nil
			}
			if msg.String() != "enter" {
				return m, nil
			}
			if err := m.startSession(); err != nil {
				m.err = err
				return m, nil
			}
			if m.width > 0 && m.height > 0 {
				m.layout()
			}
			m.refresh(true)
			m.textarea.Focus()
			return m, textarea.Blink
		}
	}

	return m, nil
}

func (m *ConsoleUI) toLocationStep() {
	m.setupStep = stepLocation
	m.options = slices.Clone(state.Locations)
	m.selected = max(slices.Index(m.options, state.NewDefault().Scene.Location), 0)
}

func (m *ConsoleUI) toZoneStep() {
	zones := state.ZonesByLocation[m.scene.Location]
	if len(zones) == 0 {
		m.toRangeStep()
		return
	}
	m.setupStep = stepZone
	m.options = slices.Clone(zones)
	m.selected = 0
}

func (m *ConsoleUI) toRangeStep() {
	m.setupStep = stepRange
	m.options = slices.Clone(state.SceneRanges)
	m.selected = 0
}

// toFlagsStep lists the env flags as toggles with Start last and selected.
func (m *ConsoleUI) toFlagsStep() {
	m.setupStep = stepFlags
	m.scene.EnvFlags = make(map[string]bool, len(state.EnvFlagOptions))
	m.options = append(slices.Clone(state.EnvFlagOptions), startOption)
	m.selected = len(m.options) - 1
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
				if m.showSetupModal {
					return m, nil
				}
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
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Are you sure you want to leave Easton Heights?")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderSetupModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder

	switch {
	case m.loadingRosters:
		content.WriteString(modalTitleStyle.Render("Loading Rosters..."))
		content.WriteString("\n\n")
		content.WriteString(loadingStyle.Render("Reading the data directory..."))
	case m.err != nil:
		content.WriteString(modalTitleStyle.Render("Error"))
		content.WriteString("\n\n")
		content.WriteString(errorStyle.Render(m.err.Error()))
		content.WriteString("\n\n")
		content.WriteString("Press Ctrl+C to exit")
	default:
		content.WriteString(modalTitleStyle.Render(setupTitles[m.setupStep]))
		content.WriteString("\n\n")

		for i, opt := range m.options {
			if m.setupStep == stepFlags && opt != startOption {
				mark := " "
				if m.scene.EnvFlags[opt] {
					mark = "x"
				}
				opt = fmt.Sprintf("[%s] %s", mark, opt)
			}
			if i == m.selected {
				content.WriteString(modalSelectedItemStyle.Render(fmt.Sprintf("▶ %s", opt)))
			} else {
				content.WriteString(modalItemStyle.Render(fmt.Sprintf("  %s", opt)))
			}
			content.WriteString("\n")
		}

		content.WriteString("\n")
		prompt := "Use ↑/↓ to navigate, Enter to select, Ctrl+C to exit"
		if m.setupStep == stepFlags {
			prompt = "Use ↑/↓ to navigate, Space to toggle, Enter on Start to begin"
		}
		content.WriteString(promptStyle.Render(prompt))
	}

	modal := modalStyle.Width(60).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showSetupModal {
		return m.renderSetupModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	chatWidth := int(float64(m.width)*0.7) - 4
	metaWidth := m.width - chatWidth - 6

	status := ""
	if m.status != "" {
		status = loadingStyle.Render(m.status)
	}

	chatPanel := chatPanelStyle.Width(chatWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.feedViewport.View(),
			status,
			separatorStyle.Render(strings.Repeat("─", max(chatWidth-4, 1))),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, chatPanel, metaPanel)
}
