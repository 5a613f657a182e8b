// Package tui provides the interactive Bubble Tea dashboard for financas.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/financas/internal/cli"
	"github.com/theirongolddev/financas/internal/engine"
	"github.com/theirongolddev/financas/internal/model"
	"github.com/theirongolddev/financas/internal/pipeline"
	"github.com/theirongolddev/financas/internal/tui/components"
	"github.com/theirongolddev/financas/internal/tui/theme"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Options configures one dashboard session. Goal values live only in memory.
type Options struct {
	Path         string
	Stats        pipeline.StatsOptions
	Goal         *model.GoalConfig
	Rates        engine.RateResolver
	FallbackRate *float64

	Since       civil.Date
	Until       civil.Date
	Institution string

	// RefreshInterval re-reads the export periodically; zero disables it.
	RefreshInterval time.Duration
}

// DataLoadedMsg is sent when the export has been read.
type DataLoadedMsg struct {
	Transactions []model.Transaction
	LoadTime     time.Duration
	Err          error
	Refresh      bool
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// ResultMsg is sent when a computation over the loaded data finishes.
type ResultMsg struct {
	Result *engine.Result
	Err    error
}

// App is the root Bubble Tea model.
type App struct {
	opts Options

	// Data
	transactions []model.Transaction
	result       *engine.Result
	loadErr      error
	computeErr   error
	loaded       bool
	computing    bool
	loadTime     time.Duration

	// Refresh state
	refreshing  bool
	lastRefresh time.Time

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool
	scroll    []int

	// Goal form (huh). goalVals is a pointer so the form's bindings survive
	// the value copies Bubble Tea makes of App.
	goalForm *huh.Form
	goalVals *goalValues
	goalErr  error

	// Loading, channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	scrollOverhead    = 6 // header + status bar + margins for half-page calc
	minHalfPageScroll = 1
	minContentHeight  = 5
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	return App{
		opts:     opts,
		spinner:  sp,
		loadSub:  make(chan tea.Msg, 1),
		scroll:   make([]int, len(components.Tabs)),
		goalVals: newGoalValues(opts.Goal),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts.Path, a.loadSub),
		a.spinner.Tick,
	}
	if a.opts.RefreshInterval > 0 {
		cmds = append(cmds, tickCmd())
	}
	return tea.Batch(cmds...)
}

// input builds the engine input for the current filters and goal.
func (a App) input() engine.Input {
	txs := pipeline.FilterByDate(a.transactions, a.opts.Since, a.opts.Until)
	if a.opts.Institution != "" {
		txs = pipeline.FilterByInstitution(txs, a.opts.Institution)
	}
	if txs == nil {
		txs = []model.Transaction{}
	}
	return engine.Input{
		Transactions: txs,
		Stats:        a.opts.Stats,
		Goal:         a.opts.Goal,
		Rates:        a.opts.Rates,
		FallbackRate: a.opts.FallbackRate,
	}
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.goalForm != nil {
			a.goalForm = a.goalForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.goalForm != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			a.scrollBy(-1)
		case tea.MouseButtonWheelDown:
			a.scrollBy(1)
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		if msg.Err != nil {
			if !msg.Refresh || !a.loaded {
				a.loadErr = msg.Err
				a.loaded = true
			}
			return a, nil
		}
		a.loadErr = nil
		a.loaded = true
		a.loadTime = msg.LoadTime
		a.transactions = msg.Transactions
		return a.recompute()

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case ResultMsg:
		a.computing = false
		a.computeErr = msg.Err
		if msg.Err == nil {
			a.result = msg.Result
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded || a.computing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && !a.refreshing && time.Since(a.lastRefresh) >= a.opts.RefreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshDataCmd(a.opts.Path))
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to the goal form (cursor blinks, etc.)
	if a.goalForm != nil {
		return a.updateGoalForm(msg)
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if a.goalForm != nil {
		if key == "esc" {
			a.goalForm = nil
			return a, nil
		}
		return a.updateGoalForm(msg)
	}
	if key == "q" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	halfPage := max((a.height-scrollOverhead)/2, minHalfPageScroll)

	switch key {
	case "left", "shift+tab":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
	case "j", "down":
		a.scrollBy(1)
	case "k", "up":
		a.scrollBy(-1)
	case "ctrl+d", "pgdown":
		a.scrollBy(halfPage)
	case "ctrl+u", "pgup":
		a.scrollBy(-halfPage)
	case "home":
		a.scroll[a.activeTab] = 0
	case "g":
		return a.openGoalForm()
	case "w":
		if a.opts.Stats.Mode == pipeline.WindowRows {
			a.opts.Stats.Mode = pipeline.WindowCalendarMonths
		} else {
			a.opts.Stats.Mode = pipeline.WindowRows
		}
		return a.recompute()
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, refreshDataCmd(a.opts.Path)
		}
	default:
		if len(msg.Runes) == 1 {
			if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
				a.activeTab = idx
			}
		}
	}
	return a, nil
}

// recompute runs the engine in the background over the current data.
func (a App) recompute() (tea.Model, tea.Cmd) {
	a.computing = true
	return a, tea.Batch(computeCmd(a.input()), a.spinner.Tick)
}

func (a *App) scrollBy(n int) {
	s := a.scroll[a.activeTab] + n
	if s < 0 {
		s = 0
	}
	a.scroll[a.activeTab] = s
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.goalForm != nil {
		return a.goalForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal estreito demais (%d colunas)\n\n  financas precisa de pelo menos %d colunas.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ financas"))
	b.WriteString(subtitleStyle.Render(" · patrimônio e metas"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := min(40, a.width-30)
		barW = max(barW, 20)
		pct := float64(a.progress) / float64(a.progressMax)
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Lendo arquivos\n\n"))
		b.WriteString(components.ProgressBar(pct, barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
	} else {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Lendo " + a.opts.Path + "..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Atalhos"))
	b.WriteString("\n\n")

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Navegação", []struct{ key, desc string }{
			{"v t i e m d", "Ir para a aba"},
			{"← → / Tab", "Aba anterior / próxima"},
			{"j k", "Rolar"},
			{"^d ^u", "Meia página"},
			{"Home", "Topo"},
		}},
		{"Ações", []struct{ key, desc string }{
			{"g", "Definir meta"},
			{"w", "Alternar janela (linhas / meses)"},
			{"r", "Recarregar extrato"},
			{"?", "Ajuda"},
			{"q", "Sair"},
		}},
	}
	for i, sec := range sections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-12s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Pressione qualquer tecla para fechar"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()

	header := components.RenderTabBar(a.activeTab, w)
	statusBar := components.RenderStatusBar(w, a.statusInfo())

	contentH := max(a.height-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch {
	case a.loadErr != nil:
		content = a.renderError("Erro ao ler o extrato", a.loadErr, cw)
	case a.computeErr != nil:
		content = a.renderError("Erro no cálculo", a.computeErr, cw)
	case a.result == nil:
		content = lipgloss.NewStyle().Foreground(t.TextMuted).Render(a.spinner.View() + " Calculando...")
	default:
		switch a.activeTab {
		case 0:
			content = a.renderOverviewTab(cw)
		case 1:
			content = a.renderTransactionsTab(cw)
		case 2:
			content = a.renderInstitutionsTab(cw)
		case 3:
			content = a.renderStatsTab(cw)
		case 4:
			content = a.renderGoalTab(cw)
		case 5:
			content = a.renderDistributionTab(cw)
		}
	}

	content = scrollLines(content, a.scroll[a.activeTab], contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, a.height, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) statusInfo() components.StatusInfo {
	info := components.StatusInfo{
		Source:     a.opts.Path,
		WindowMode: a.opts.Stats.Mode.String(),
		Refreshing: a.refreshing || a.computing,
	}
	if a.result != nil && a.result.Goal != nil {
		info.Rate = cli.FormatRate(a.result.Rate.RatePercent)
	}
	return info
}

func (a App) renderError(title string, err error, cw int) string {
	t := theme.Active
	style := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)
	return components.ContentCard(title, style.Render(err.Error()), cw)
}

// ─── Helpers ────────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// loadDataCmd reads the export in a background goroutine.
// It streams ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(path string, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Non-blocking send so workers aren't stalled; the next update catches up.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			lr, err := pipeline.Load(path, progressFn)
			if err != nil {
				sub <- DataLoadedMsg{Err: err, LoadTime: time.Since(start)}
				return
			}
			sub <- DataLoadedMsg{Transactions: lr.Transactions, LoadTime: time.Since(start)}
		}()

		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd re-reads the export without progress UI.
func refreshDataCmd(path string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		lr, err := pipeline.Load(path, nil)
		if err != nil {
			return DataLoadedMsg{Err: err, Refresh: true, LoadTime: time.Since(start)}
		}
		return DataLoadedMsg{Transactions: lr.Transactions, Refresh: true, LoadTime: time.Since(start)}
	}
}

// computeCmd runs the engine; the rate lookup may block on the network.
func computeCmd(in engine.Input) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		res, err := engine.Run(ctx, in)
		return ResultMsg{Result: res, Err: err}
	}
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// scrollLines returns exactly h lines of s starting at offset. The offset is
// clamped so the last page stays full.
func scrollLines(s string, offset, h int) string {
	lines := strings.Split(s, "\n")
	if offset > len(lines)-h {
		offset = len(lines) - h
	}
	if offset > 0 {
		lines = lines[offset:]
	}
	return padHeight(truncateHeight(strings.Join(lines, "\n"), h), h)
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")

	var result strings.Builder
	for i, line := range lines {
		result.WriteString(lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg)))
		if i < len(lines)-1 {
			result.WriteString("\n")
		}
	}
	return result.String()
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes follow the same width rules as RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i, tab := range components.Tabs {
		tabW := components.TabVisualWidth(tab, i == a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW + 1 // separator
	}
	return -1
}
