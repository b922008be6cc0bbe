package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/anidex/internal/formatter"
	"github.com/desertthunder/anidex/internal/models"
	"github.com/desertthunder/anidex/internal/shared"
	"github.com/desertthunder/anidex/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ProgressView ViewState = iota
	ResultView
)

// Options carries the reconciliation parameters for a TUI session.
type Options struct {
	Username string
	Language string
	Workers  int
	SiteURL  string
	Open     func(target string) error // defaults to [shared.OpenBrowser]
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       tasks.Engine
	opts         Options
	width        int
	height       int
	spinner      spinner.Model
	bar          progress.Model
	resultList   list.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan reconcileResult
	progress     tasks.ProgressUpdate
	items        []models.UnreadItem
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine tasks.Engine, opts Options) *Model {
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}

	return &Model{
		ctx:     ctx,
		view:    ProgressView,
		engine:  engine,
		opts:    opts,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.accent)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the first reconciliation run.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startReconcile())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(40, max(msg.Width-4, 10))
		if m.view == ResultView {
			m.resultList.SetSize(msg.Width-4, msg.Height-6)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ProgressView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != ProgressView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgReconcileComplete:
		result := msg.data.(reconcileResult)
		m.items = result.items
		m.err = result.err
		m.progressChan = nil
		m.doneChan = nil
		m.view = ResultView

		m.resultList = list.New(toListItems(result.items), list.NewDefaultDelegate(), 0, 0)
		m.resultList.Title = fmt.Sprintf("Unread for %s (%s)", m.opts.Username, m.opts.Language)
		m.resultList.SetShowHelp(false)
		if m.width > 0 {
			m.resultList.SetSize(m.width-4, m.height-6)
		}
		return m, nil

	case MsgBrowserOpened:
		data := msg.data.(struct {
			target string
			err    error
		})
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not open %s: %v", data.target, data.err))
		} else {
			m.status = styles.help.Render("Opened " + data.target)
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case ProgressView:
		return m.renderProgress()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.resultList.FilterState() == list.Filtering {
		return m.updateList(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = ProgressView
		m.items = nil
		m.err = nil
		m.status = ""
		m.progress = tasks.ProgressUpdate{}
		return m, tea.Batch(m.spinner.Tick, m.startReconcile())
	case key.Matches(msg, m.keys.open):
		if selected, ok := m.resultList.SelectedItem().(unreadItem); ok {
			return m, m.openTitle(selected.item)
		}
		return m, nil
	}

	return m.updateList(msg)
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != ResultView {
		return m, nil
	}
	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	return m, cmd
}

// startReconcile runs the engine in the background; the result is delivered after the progress channel closes.
func (m *Model) startReconcile() tea.Cmd {
	progressChan := make(chan tasks.ProgressUpdate, 64)
	doneChan := make(chan reconcileResult, 1)
	m.progressChan = progressChan
	m.doneChan = doneChan

	go func() {
		items, err := m.engine.Reconcile(m.ctx, progressChan, m.opts.Username, m.opts.Language, m.opts.Workers)
		doneChan <- reconcileResult{items: items, err: err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan, doneChan := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progressChan == nil {
			return reconcileCompleteMsg(nil, nil)
		}

		update, ok := <-progressChan
		if !ok {
			result := <-doneChan
			return reconcileCompleteMsg(result.items, result.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) openTitle(item models.UnreadItem) tea.Cmd {
	target := formatter.TitleURL(m.opts.SiteURL, item.CatalogID)
	open := m.opts.Open
	return func() tea.Msg {
		return browserOpenedMsg(target, open(target))
	}
}

func (m *Model) renderProgress() string {
	title := styles.title.Render(fmt.Sprintf("Checking %s's reading list", m.opts.Username))

	var phase string
	switch m.progress.Phase {
	case tasks.FetchLists:
		phase = "Fetching reading lists from AniList..."
	case tasks.ResolveEntries:
		phase = fmt.Sprintf("Checking MangaDex (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.Complete:
		phase = "Done"
	}

	percent := 0.0
	if m.progress.Phase == tasks.ResolveEntries && m.progress.Total > 0 {
		percent = float64(m.progress.Step) / float64(m.progress.Total)
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.quit})
	return fmt.Sprintf("%s\n%s %s\n%s\n%s\n\n%s",
		title, m.spinner.View(), phase, m.bar.ViewAs(percent), styles.help.Render(m.progress.Message), helpView)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}

	if m.err != nil {
		msg := styles.err.Render(fmt.Sprintf("Reconciliation failed: %v", m.err))
		return fmt.Sprintf("%s\n\n%s", msg, m.help.ShortHelpView(helpKeys))
	}

	if len(m.items) == 0 {
		msg := styles.ok.Render("✓ All caught up!")
		return fmt.Sprintf("%s\n\n%s", msg, m.help.ShortHelpView(helpKeys))
	}

	helpKeys = append([]key.Binding{m.keys.open}, helpKeys...)
	view := fmt.Sprintf("%s\n\n%s", m.resultList.View(), m.help.ShortHelpView(helpKeys))
	if m.status != "" {
		view = fmt.Sprintf("%s\n%s", view, m.status)
	}
	return view
}
