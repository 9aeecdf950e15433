package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/songsim/internal/models"
	"github.com/desertthunder/songsim/internal/services"
	"github.com/desertthunder/songsim/internal/tasks"
)

const (
	searchLimit    = 20
	progressBuffer = 32
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InputView ViewState = iota
	SearchView
	RunningView
	ResultView
)

// Recommender runs the recommendation engine with progress reporting.
type Recommender interface {
	Run(ctx context.Context, trackID string, progress chan<- tasks.ProgressUpdate) (*models.AggregateResponse, error)
}

// Favoriter adds tracks to the user's favorites.
type Favoriter interface {
	Add(ctx context.Context, trackID string) error
}

var (
	_ Recommender = (*tasks.RecommendationEngine)(nil)
	_ Favoriter   = (*tasks.FavoritesManager)(nil)
)

// Deps are the services the TUI drives. Catalog and Favorites may be nil, which disables search and
// favoriting respectively.
type Deps struct {
	Engine    Recommender
	Catalog   services.Catalog
	Favorites Favoriter
	Market    string
}

// Model represents the TUI application state.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	deps   Deps
	view   ViewState
	width  int
	height int

	input      textinput.Model
	spinner    spinner.Model
	searchList list.Model
	categories []list.Model
	active     int

	seedID   string
	seedLine string
	phases   map[tasks.Phase]tasks.ProgressUpdate
	progress chan tasks.ProgressUpdate
	done     chan recommendResult

	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	input := textinput.New()
	input.Placeholder = "track id, spotify link or search text"
	input.Prompt = "› "
	input.CharLimit = 200
	input.Width = 60
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.ok

	return &Model{
		ctx:     ctx,
		deps:    deps,
		view:    InputView,
		input:   input,
		spinner: sp,
		phases:  make(map[tasks.Phase]tasks.ProgressUpdate),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the cursor blinking.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w, h := m.listSize()
		m.searchList.SetSize(w, h)
		for i := range m.categories {
			m.categories[i].SetSize(w, h)
		}
		return m, nil

	case spinner.TickMsg:
		if m.view != RunningView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.view {
		case InputView:
			return m.handleInputKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		case RunningView:
			return m.handleRunningKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgSearchDone:
		res := msg.data.(searchResult)
		if res.err != nil {
			m.err = res.err
			m.view = InputView
			return m, nil
		}
		if len(res.tracks) == 0 {
			m.status = fmt.Sprintf("No tracks found for %q", res.query)
			m.view = InputView
			return m, nil
		}
		w, h := m.listSize()
		m.searchList = newTrackList(fmt.Sprintf("Results for %q", res.query), res.tracks, w, h)
		m.view = SearchView
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.phases[update.Phase] = update
		if seed, ok := update.Data.(*tasks.SeedContext); ok {
			m.seedLine = update.Message
			m.seedID = seed.Track.ID
		}
		return m, waitForProgress(m.progress, m.done)

	case MsgRecommendDone:
		res := msg.data.(recommendResult)
		m.progress, m.done = nil, nil
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}

		if res.err != nil {
			if !errors.Is(res.err, context.Canceled) {
				m.err = res.err
			}
			m.view = InputView
			return m, nil
		}

		m.showResults(res.resp)
		return m, nil

	case MsgFavorited:
		res := msg.data.(favoriteResult)
		if res.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not add favorite: %v", res.err))
			return m, nil
		}
		m.markFavorited(res.trackID)
		m.status = styles.ok.Render("♥ Added to favorites")
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case InputView:
		return m.renderInput()
	case SearchView:
		return m.renderSearch()
	case RunningView:
		return m.renderRunning()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		if value == "" {
			return m, nil
		}
		m.err = nil
		m.status = ""

		if id, ok := services.ParseTrackID(value); ok {
			return m, m.startRecommend(id)
		}
		if m.deps.Catalog == nil {
			m.err = fmt.Errorf("%q is not a track id and search is unavailable", value)
			return m, nil
		}
		m.status = fmt.Sprintf("Searching for %q...", value)
		return m, m.search(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = InputView
		m.status = ""
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.searchList.SelectedItem().(trackItem); ok {
			return m, m.startRecommend(item.track.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.searchList, cmd = m.searchList.Update(msg)
	return m, cmd
}

func (m *Model) handleRunningKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	case "esc":
		if m.cancel != nil {
			m.cancel()
		}
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = InputView
		m.status = ""
		m.input.SetValue("")
		return m, nil
	case key.Matches(msg, m.keys.next):
		m.active = (m.active + 1) % len(m.categories)
		return m, nil
	case key.Matches(msg, m.keys.prev):
		m.active = (m.active + len(m.categories) - 1) % len(m.categories)
		return m, nil
	case key.Matches(msg, m.keys.favorite):
		return m, m.favoriteSelected()
	}

	var cmd tea.Cmd
	m.categories[m.active], cmd = m.categories[m.active].Update(msg)
	return m, cmd
}

func (m *Model) startRecommend(trackID string) tea.Cmd {
	runCtx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.seedID = trackID
	m.seedLine = ""
	m.phases = make(map[tasks.Phase]tasks.ProgressUpdate)
	m.view = RunningView

	progress := make(chan tasks.ProgressUpdate, progressBuffer)
	done := make(chan recommendResult, 1)
	m.progress, m.done = progress, done

	engine := m.deps.Engine
	go func() {
		resp, err := engine.Run(runCtx, trackID, progress)
		done <- recommendResult{seedID: trackID, resp: resp, err: err}
		close(progress)
	}()

	return tea.Batch(m.spinner.Tick, waitForProgress(progress, done))
}

// waitForProgress reads the next update, then the final result once progress is closed.
func waitForProgress(progress <-chan tasks.ProgressUpdate, done <-chan recommendResult) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-progress; ok {
			return progressUpdateMsg(update)
		}
		return recommendDoneMsg(<-done)
	}
}

func (m *Model) search(query string) tea.Cmd {
	ctx, catalog, market := m.ctx, m.deps.Catalog, m.deps.Market
	return func() tea.Msg {
		tracks, err := catalog.Search(ctx, query, market, searchLimit)
		return searchDoneMsg(query, tracks, err)
	}
}

func (m *Model) favoriteSelected() tea.Cmd {
	if m.deps.Favorites == nil {
		m.status = styles.warn.Render("Log in with `songsim spotify auth` to save favorites")
		return nil
	}

	item, ok := m.categories[m.active].SelectedItem().(trackItem)
	if !ok {
		return nil
	}

	ctx, favorites, id := m.ctx, m.deps.Favorites, item.track.ID
	return func() tea.Msg {
		return favoritedMsg(id, favorites.Add(ctx, id))
	}
}

func (m *Model) showResults(resp *models.AggregateResponse) {
	w, h := m.listSize()
	m.categories = make([]list.Model, len(models.CategoryKeys))
	for i, k := range models.CategoryKeys {
		cat := resp.Category(k)
		m.categories[i] = newTrackList(cat.Name, cat.Tracks, w, h)
	}
	m.active = 0
	m.status = ""
	m.view = ResultView
}

func (m *Model) markFavorited(trackID string) {
	for i := range m.categories {
		for j, it := range m.categories[i].Items() {
			if item, ok := it.(trackItem); ok && item.track.ID == trackID {
				item.favorited = true
				m.categories[i].SetItem(j, item)
			}
		}
	}
}

func (m *Model) listSize() (int, int) {
	w, h := m.width-4, m.height-8
	if w < 20 {
		w = 20
	}
	if h < 5 {
		h = 5
	}
	return w, h
}

func (m *Model) renderInput() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("songsim: find similar songs") + "\n")
	b.WriteString(m.input.View() + "\n\n")

	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n")
	}
	if m.status != "" {
		b.WriteString(m.status + "\n\n")
	}

	b.WriteString(styles.help.Render("enter: search or find similar • esc: quit"))
	return b.String()
}

func (m *Model) renderSearch() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.searchList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderRunning() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Finding similar tracks") + "\n")

	seed := m.seedLine
	if seed == "" {
		seed = fmt.Sprintf("Resolving %s...", m.seedID)
	}
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), seed)

	for _, phase := range []tasks.Phase{tasks.ArtistStrategy, tasks.AlbumStrategy, tasks.GenreStrategy} {
		update, ok := m.phases[phase]
		switch {
		case !ok:
			fmt.Fprintf(&b, "  %s\n", styles.help.Render(phase.Label()+": waiting"))
		case update.Step < update.Total:
			fmt.Fprintf(&b, "  %s\n", update.Message)
		case update.Err != nil:
			fmt.Fprintf(&b, "  %s\n", styles.warn.Render(update.Message))
		default:
			fmt.Fprintf(&b, "  %s\n", styles.ok.Render(update.Message))
		}
	}

	b.WriteString("\n" + styles.help.Render("esc: cancel • q: quit"))
	return b.String()
}

func (m *Model) renderResult() string {
	tabs := make([]string, len(m.categories))
	for i, l := range m.categories {
		label := fmt.Sprintf("%s (%d)", l.Title, len(l.Items()))
		if i == m.active {
			tabs[i] = styles.activeTab.Render(label)
		} else {
			tabs[i] = styles.tab.Render(label)
		}
	}

	body := m.categories[m.active].View()
	if len(m.categories[m.active].Items()) == 0 {
		body = styles.help.Render("No tracks in this category.")
	}

	helpKeys := []key.Binding{m.keys.next, m.keys.favorite, m.keys.back, m.keys.quit}
	parts := []string{lipgloss.JoinHorizontal(lipgloss.Top, tabs...), body}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	parts = append(parts, m.help.ShortHelpView(helpKeys))

	return strings.Join(parts, "\n\n")
}
