package ui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/freshweekly/internal/models"
	"github.com/desertthunder/freshweekly/internal/services"
	"github.com/desertthunder/freshweekly/internal/shared"
	"github.com/desertthunder/freshweekly/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	ConfirmView
	GenerateView
	ResultView
)

// biasSteps are the exponents the bias key cycles through.
var biasSteps = []float64{1.0, 1.5, 2.0, 2.5, 3.0}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	catalog      services.Catalog
	generator    *tasks.Generator
	cfg          tasks.GenerateConfig
	source       *models.Playlist
	width        int
	height       int
	playlistList list.Model
	resultList   list.Model
	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan generateOutcome
	progress     tasks.ProgressUpdate
	result       *tasks.GenerationResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model. defaults seeds the settings shown on the confirm view.
func NewModel(ctx context.Context, catalog services.Catalog, generator *tasks.Generator, defaults tasks.GenerateConfig) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.value

	if defaults.TargetTrackCount <= 0 {
		defaults.TargetTrackCount = 30
	}
	if defaults.BiasExponent <= 0 {
		defaults.BiasExponent = shared.MinBias
	}
	if defaults.MaxTracksPerArtist <= 0 {
		defaults.MaxTracksPerArtist = 2
	}
	defaults.PlaylistName = shared.PlaylistNameOrDefault(defaults.PlaylistName)

	return &Model{
		ctx:          ctx,
		view:         PlaylistListView,
		catalog:      catalog,
		generator:    generator,
		cfg:          defaults,
		playlistList: list.New(nil, list.NewDefaultDelegate(), 0, 0),
		resultList:   list.New(nil, list.NewDefaultDelegate(), 0, 0),
		spinner:      s,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init initializes the TUI by fetching the user's playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// Config returns the settings that the next generation will use.
func (m *Model) Config() tasks.GenerateConfig {
	return m.cfg
}

// Err returns the error that ended the session, if any.
func (m *Model) Err() error {
	return m.err
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(max(msg.Width-4, 0), max(msg.Height-8, 0))
		m.resultList.SetSize(max(msg.Width-4, 0), max(msg.Height-12, 0))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case GenerateView:
			if msg.String() == "ctrl+c" {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != GenerateView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(playlistsFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.playlistList.SetItems(playlistItems(data.playlists))
		m.playlistList.Title = "Pick an inspiration playlist"
		return m, nil

	case MsgProgressUpdate:
		// The error itself arrives with MsgGenerateComplete; keep the last phase label.
		if update := msg.data.(tasks.ProgressUpdate); update.Phase != tasks.Errored {
			m.progress = update
		}
		return m, m.waitForProgress()

	case MsgGenerateComplete:
		data := msg.data.(generateOutcome)
		m.result = data.result
		m.err = data.err
		m.progressChan = nil
		m.doneChan = nil
		m.view = ResultView
		if data.result != nil {
			m.resultList.SetItems(trackItems(data.result.Tracks))
			m.resultList.Title = data.result.PlaylistName
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.error.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case PlaylistListView:
		return m.renderPlaylistList()
	case ConfirmView:
		return m.renderConfirm()
	case GenerateView:
		return m.renderGenerate()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.playlistList, cmd = m.playlistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if m.err != nil {
			return m, nil
		}
		if pl, ok := m.playlistList.SelectedItem().(playlistItem); ok {
			m.source = &pl.playlist
			m.cfg.SourcePlaylistID = pl.playlist.ID
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.no):
		m.view = PlaylistListView
	case key.Matches(msg, m.keys.yes):
		m.view = GenerateView
		m.progress = tasks.ProgressUpdate{}
		return m, tea.Batch(m.spinner.Tick, m.startGenerate())
	case key.Matches(msg, m.keys.more):
		m.cfg.TargetTrackCount = min(m.cfg.TargetTrackCount+5, shared.MaxTrackCount)
	case key.Matches(msg, m.keys.fewer):
		m.cfg.TargetTrackCount = max(m.cfg.TargetTrackCount-5, shared.MinTrackCount)
	case key.Matches(msg, m.keys.bias):
		m.cfg.BiasExponent = nextBias(m.cfg.BiasExponent)
	case key.Matches(msg, m.keys.cap):
		m.cfg.MaxTracksPerArtist = m.cfg.MaxTracksPerArtist%shared.MaxPerArtist + 1
	case key.Matches(msg, m.keys.private):
		m.cfg.Private = !m.cfg.Private
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = PlaylistListView
		m.source = nil
		m.result = nil
		m.err = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case ResultView:
		m.resultList, cmd = m.resultList.Update(msg)
	}
	return m, cmd
}

func nextBias(current float64) float64 {
	i := slices.IndexFunc(biasSteps, func(b float64) bool { return b > current })
	if i < 0 {
		return biasSteps[0]
	}
	return biasSteps[i]
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.catalog.AllPlaylists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

// startGenerate launches the run and returns the command that waits for its first update.
func (m *Model) startGenerate() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan generateOutcome, 1)
	m.progressChan = progress
	m.doneChan = done

	cfg := m.cfg
	go func() {
		result, err := m.generator.Generate(m.ctx, cfg, progress)
		close(progress)
		done <- generateOutcome{result: result, err: err}
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return generateCompleteMsg(nil, fmt.Errorf("%w: no generation running", shared.ErrInvalidInput))
		}

		update, ok := <-progress
		if !ok {
			outcome := <-done
			return generateCompleteMsg(outcome.result, outcome.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderPlaylistList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("Build a fresh playlist from '%s'?", m.source.Name)))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(styles.label.Render(label))
		b.WriteString(styles.value.Render(value))
		b.WriteString("\n")
	}
	row("Source tracks", fmt.Sprintf("%d", m.source.TrackCount))
	row("Target tracks", fmt.Sprintf("%d", m.cfg.TargetTrackCount))
	row("Bias", fmt.Sprintf("%.1f", m.cfg.BiasExponent))
	row("Max per artist", fmt.Sprintf("%d", m.cfg.MaxTracksPerArtist))
	row("Playlist", m.cfg.PlaylistName)
	row("Visibility", shared.VisibilityString(!m.cfg.Private))

	helpKeys := []key.Binding{m.keys.yes, m.keys.more, m.keys.fewer, m.keys.bias, m.keys.cap, m.keys.private, m.keys.no, m.keys.quit}
	return fmt.Sprintf("%s\n%s", b.String(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderGenerate() string {
	title := styles.title.Render("Generating")
	message := m.progress.Message
	if message == "" {
		message = "Starting..."
	}

	var detail string
	if tp, ok := m.progress.Data.(tasks.TierProgress); ok {
		detail = styles.help.Render(fmt.Sprintf("\n%s tier: %d of %d tracks collected", tp.Tier, tp.Total, m.cfg.TargetTrackCount))
	}

	return fmt.Sprintf("%s\n%s %s%s", title, m.spinner.View(), message, detail)
}

func (m *Model) renderResult() string {
	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	if m.err != nil {
		last := ""
		if m.progress.Message != "" {
			last = styles.help.Render(fmt.Sprintf("Last step: %s\n", m.progress.Message))
		}
		return fmt.Sprintf("%s\n\n%s\n%s", styles.error.Render(fmt.Sprintf("Generation failed: %v", m.err)), last, helpView)
	}

	if m.result == nil {
		return styles.error.Render("No result available") + "\n\n" + helpView
	}

	verb := "Created"
	if m.result.Reused {
		verb = "Updated"
	}
	title := styles.success.Render(fmt.Sprintf("✓ %s '%s' with %d tracks", verb, m.result.PlaylistName, len(m.result.Tracks)))

	var shortfall string
	if len(m.result.Tracks) < m.result.Requested {
		shortfall = "\n" + styles.warning.Render(fmt.Sprintf("Only %d of %d requested tracks were available.", len(m.result.Tracks), m.result.Requested))
	}

	return fmt.Sprintf("%s%s\n\n%s\n\n%s", title, shortfall, m.resultList.View(), helpView)
}
