// Package ui is the terminal deck browser behind `mdslides preview`.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/gubarz/mdslides/internal/deck"
	"github.com/gubarz/mdslides/internal/executor"
)

// ============================================================================
// Slide Item
// ============================================================================

// slideItem is a deck slide with its terminal text precomputed
type slideItem struct {
	index  int
	slide  deck.Slide
	title  string
	body   string
	notes  string
	search string
}

func newSlideItem(i int, s deck.Slide) slideItem {
	body := plainText(s.HTML)
	return slideItem{
		index:  i,
		slide:  s,
		title:  slideTitle(s.HTML, s.Raw),
		body:   body,
		notes:  plainText(s.NoteHTML),
		search: strings.ToLower(s.Raw + "\n" + body),
	}
}

func (item slideItem) matches(words []string) bool {
	for _, w := range words {
		if !strings.Contains(item.search, w) {
			return false
		}
	}
	return true
}

// ============================================================================
// Messages
// ============================================================================

// deckMsg delivers a recompiled deck
type deckMsg struct {
	deck *deck.Deck
}

// copiedMsg reports the result of a clipboard copy
type copiedMsg struct {
	index int
	err   error
}

// watchErrMsg reports that live reload stopped
type watchErrMsg struct {
	err error
}

// waitForError blocks on the watcher error channel
func waitForError(errs <-chan error) tea.Cmd {
	return func() tea.Msg {
		err, ok := <-errs
		if !ok || err == nil {
			return nil
		}
		return watchErrMsg{err: err}
	}
}

// waitForDeck blocks on the update channel
func waitForDeck(updates <-chan *deck.Deck) tea.Cmd {
	return func() tea.Msg {
		d, ok := <-updates
		if !ok {
			return nil
		}
		return deckMsg{deck: d}
	}
}

// ============================================================================
// Model
// ============================================================================

// Options configures the deck browser
type Options struct {
	Start     int                // Initial slide index
	Updates   <-chan *deck.Deck  // Recompiled decks, nil when not watching
	Errors    <-chan error       // Watcher failure, nil when not watching
	Clipboard executor.Clipboard // Target of the copy key
}

type model struct {
	width  int
	height int

	deck     *deck.Deck
	items    []slideItem
	filtered []slideItem
	cursor   int
	offset   int

	filter    textinput.Model
	filtering bool

	updates   <-chan *deck.Deck
	errs      <-chan error
	clipboard executor.Clipboard
	status    string
	quitting  bool
}

func newModel(d *deck.Deck, opts Options) model {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.Prompt = "/ "
	ti.CharLimit = 256
	ti.Width = 50

	m := model{
		filter:    ti,
		updates:   opts.Updates,
		errs:      opts.Errors,
		clipboard: opts.Clipboard,
	}
	m.setDeck(d)
	m.selectSlide(opts.Start)
	return m
}

// setDeck swaps in a new deck and keeps the cursor on the same slide index
func (m *model) setDeck(d *deck.Deck) {
	current := m.current()
	m.deck = d
	m.items = make([]slideItem, d.Len())
	for i, s := range d.Slides {
		m.items[i] = newSlideItem(i, s)
	}
	m.applyFilter()
	if current >= 0 {
		m.selectSlide(min(current, d.Len()-1))
	}
}

// current returns the deck index under the cursor, or -1
func (m *model) current() int {
	if m.cursor < 0 || m.cursor >= len(m.filtered) {
		return -1
	}
	return m.filtered[m.cursor].index
}

// selectSlide moves the cursor to deck index i, clearing a filter that hides it
func (m *model) selectSlide(i int) {
	if i < 0 || i >= len(m.items) {
		return
	}
	for pos, item := range m.filtered {
		if item.index == i {
			m.cursor = pos
			return
		}
	}
	m.filter.SetValue("")
	m.applyFilter()
	m.cursor = i
}

func (m *model) applyFilter() {
	query := strings.TrimSpace(strings.ToLower(m.filter.Value()))
	if query == "" {
		m.filtered = m.items
	} else {
		words := strings.Fields(query)
		m.filtered = make([]slideItem, 0, len(m.items))
		for _, item := range m.items {
			if item.matches(words) {
				m.filtered = append(m.filtered, item)
			}
		}
	}
	m.cursor = clamp(m.cursor, 0, max(0, len(m.filtered)-1))
}

// Init implements tea.Model
func (m model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.updates != nil {
		cmds = append(cmds, waitForDeck(m.updates))
	}
	if m.errs != nil {
		cmds = append(cmds, waitForError(m.errs))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filter.Width = max(msg.Width-6, 10)
		return m, nil
	case deckMsg:
		m.setDeck(msg.deck)
		m.status = fmt.Sprintf("reloaded (%d slides)", msg.deck.Len())
		return m, waitForDeck(m.updates)
	case watchErrMsg:
		m.status = "live reload stopped: " + msg.err.Error()
		return m, nil
	case copiedMsg:
		if msg.err != nil {
			m.status = "copy failed: " + msg.err.Error()
		} else {
			m.status = fmt.Sprintf("copied slide %d", msg.index+1)
		}
		return m, nil
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		cmd := m.handleKey(msg)
		return m, cmd
	}
	return m, nil
}

// updateFilter routes keys to the filter input
func (m model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	case "esc":
		m.filtering = false
		m.filter.Blur()
		current := m.current()
		m.filter.SetValue("")
		m.applyFilter()
		m.selectSlide(current)
		return m, nil
	}

	prev := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != prev {
		m.cursor = 0
		m.offset = 0
		m.applyFilter()
	}
	return m, cmd
}

// handleKey processes navigation keys
func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return tea.Quit
	case "/":
		m.filtering = true
		m.status = ""
		return m.filter.Focus()
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(0, len(m.filtered)-1)
	case "right", "l", "enter", " ", "n":
		if i := m.current(); i >= 0 {
			m.selectSlide(m.deck.Next(i, 1))
		}
	case "left", "h", "p":
		if i := m.current(); i >= 0 {
			m.selectSlide(m.deck.Prev(i))
		}
	case "c":
		return m.copyCurrent()
	}
	return nil
}

func (m *model) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(0, len(m.filtered)-1))
}

// copyCurrent copies the raw markdown of the selected slide
func (m *model) copyCurrent() tea.Cmd {
	i := m.current()
	if i < 0 || m.clipboard == nil {
		return nil
	}
	raw := m.items[i].slide.Raw
	clip := m.clipboard
	return func() tea.Msg {
		return copiedMsg{index: i, err: clip.Copy(raw)}
	}
}

// ============================================================================
// View
// ============================================================================

// View implements tea.Model
func (m model) View() string {
	if m.quitting {
		return ""
	}

	width := max(m.width, 80)
	height := max(m.height, 24)
	bodyHeight := max(height-3, 5) // divider + status + filter

	listWidth := min(max(width*2/5, 30), width-20)
	previewWidth := width - listWidth - 1

	list := m.renderList(listWidth, bodyHeight)
	preview := m.renderPreview(previewWidth, bodyHeight)

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, " ", preview))
	b.WriteString("\n")
	b.WriteString(styles.Divider.Render(strings.Repeat("─", width)))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
	}
	return b.String()
}

// renderList renders the scrollable slide list
func (m *model) renderList(width, height int) string {
	lines := make([]string, 0, height)
	start, end := scrollWindow(m.cursor, len(m.filtered), height, &m.offset)
	for i := start; i < end; i++ {
		lines = append(lines, m.renderListItem(m.filtered[i], i == m.cursor, width))
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

// renderListItem renders one row: cursor, page, title and class
func (m model) renderListItem(item slideItem, selected bool, width int) string {
	page := "  -"
	switch {
	case item.slide.Hidden:
		page = "  h"
	case item.slide.Cover:
		page = "  c"
	case item.slide.Page > 0:
		page = fmt.Sprintf("%3d", item.slide.Page)
	}

	class := ""
	if item.slide.ClassName != "" && item.slide.ClassName != "normal" {
		class = " " + item.slide.ClassName
	}

	titleWidth := max(width-2-len(page)-1-len(class), 4)
	title := truncateString(item.title, titleWidth)

	pStyle, tStyle, cStyle := styles.Page, styles.Title, styles.Class
	if item.slide.Hidden {
		tStyle = styles.Dim
	}
	prefix := "  "
	if selected {
		pStyle = styles.WithSelection(pStyle)
		tStyle = styles.WithSelection(tStyle)
		cStyle = styles.WithSelection(cStyle)
		prefix = styles.Cursor.Render("▶ ")
	}

	return prefix + pStyle.Render(page) + tStyle.Render(" "+title) + cStyle.Render(class)
}

// renderPreview renders the selected slide text and notes
func (m model) renderPreview(width, height int) string {
	inner := max(width-4, 10)
	innerHeight := max(height-2, 3)

	var b strings.Builder
	if i := m.current(); i >= 0 {
		item := m.items[i]
		r := item.slide.Range
		b.WriteString(styles.PreviewTitle.Render(truncateString(item.title, inner)))
		b.WriteString("\n")
		b.WriteString(styles.Dim.Render(fmt.Sprintf("slide %d/%d • lines %d-%d", i+1, m.deck.Len(), r.StartLine, r.EndLine)))
		b.WriteString("\n\n")
		b.WriteString(styles.PreviewBody.Render(item.body))
		if item.notes != "" {
			b.WriteString("\n\n")
			b.WriteString(styles.PreviewNotes.Render("Notes: " + item.notes))
		}
	}

	text := truncateLines(b.String(), innerHeight)
	return styles.Border.
		Width(inner + 2).
		Height(innerHeight).
		Padding(0, 1).
		Render(text)
}

// renderStatus renders the key help and the last status message
func (m model) renderStatus() string {
	pages := 0
	if m.deck != nil {
		pages = m.deck.PageCount()
	}
	help := fmt.Sprintf("  %d/%d • %d pages • ←/→ navigate • / filter • c copy • q quit",
		len(m.filtered), len(m.items), pages)
	line := styles.Dim.Render(help)
	if m.status != "" {
		line += "  " + styles.Status.Render(m.status)
	}
	return line
}

// ============================================================================
// Run TUI
// ============================================================================

// getTTY returns file handles for TUI input/output
// Uses /dev/tty when stdout is redirected
func getTTY() (in *os.File, out *os.File, cleanup func()) {
	var closers []func()

	if fileInfo, _ := os.Stdout.Stat(); (fileInfo.Mode() & os.ModeCharDevice) == 0 {
		out, err := os.OpenFile("/dev/tty", os.O_WRONLY, 0)
		if err != nil {
			out = os.Stderr
		} else {
			closers = append(closers, func() { out.Close() })
		}

		in, err := os.OpenFile("/dev/tty", os.O_RDONLY, 0)
		if err != nil {
			in = os.Stdin
		} else {
			closers = append(closers, func() { in.Close() })
		}

		lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(out))

		return in, out, func() {
			for _, c := range closers {
				c()
			}
		}
	}

	return os.Stdin, os.Stdout, func() {}
}

// Run launches the deck browser
func Run(d *deck.Deck, opts Options) error {
	if d == nil || d.Len() == 0 {
		return fmt.Errorf("no slides to preview")
	}

	ttyIn, ttyOut, cleanup := getTTY()
	defer cleanup()
	RefreshStyles()

	p := tea.NewProgram(newModel(d, opts), tea.WithAltScreen(), tea.WithOutput(ttyOut), tea.WithInput(ttyIn))
	_, err := p.Run()
	return err
}

// ============================================================================
// Helpers
// ============================================================================

// clamp restricts v to the range [minV, maxV]
func clamp(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// scrollWindow calculates the visible range for a scrollable list
func scrollWindow(cursor, total, height int, offset *int) (start, end int) {
	if cursor < *offset {
		*offset = cursor
	}
	if cursor >= *offset+height {
		*offset = cursor - height + 1
	}
	*offset = clamp(*offset, 0, max(0, total-height))

	start = *offset
	end = min(start+height, total)
	return
}

// truncateString truncates a string to maxLen runes with an ellipsis
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if maxLen <= 1 || len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}

// truncateLines keeps at most maxLines lines
func truncateLines(text string, maxLines int) string {
	lines := strings.Split(text, "\n")
	if len(lines) <= maxLines {
		return text
	}
	return strings.Join(lines[:maxLines], "\n")
}
