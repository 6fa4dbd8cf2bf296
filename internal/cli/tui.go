package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"onionscope/pkg/analysis"
	"onionscope/pkg/graph"
	"onionscope/pkg/graph/interaction"
	"onionscope/pkg/graph/layout"
	"onionscope/pkg/observability"
	"onionscope/pkg/onion"
)

// Terminal cells are not square; map layout units to cells assuming the
// usual 1:2 glyph aspect ratio.
const (
	cellW = 8.0
	cellH = 16.0
)

const headerHeight = 3

// =============================================================================
// Messages
// =============================================================================

type layerDataMsg struct {
	key  onion.Key
	data onion.Payload
}

type layerErrMsg struct {
	key onion.Key
	err error
}

type filesMsg struct {
	moduleID string
	files    []graph.ModuleFile
}

type filesErrMsg struct {
	moduleID string
	err      error
}

type annotationMsg struct {
	path string
	ann  graph.Annotation
}

// clickTickMsg pumps the click disambiguation machine.
type clickTickMsg time.Time

// =============================================================================
// Model
// =============================================================================

// bodyRow is one selectable line of a list-style layer body. Rows without
// a target are plain text.
type bodyRow struct {
	line   string
	target interaction.Target
}

// exploreModel is the bubbletea model for the interactive surface. The
// navigator and controller are the synchronous cores; this model is the
// shell that executes their fetch descriptors as tea commands and feeds
// completions back in as messages.
//
// The business domain layer renders the laid-out graph onto a cell canvas
// and routes mouse input through the controller's pixel path (pan, zoom,
// node drag, click disambiguation). The other layers are selectable lists.
type exploreModel struct {
	ctx      context.Context
	provider analysis.Provider
	nav      *onion.Navigator
	ctl      *interaction.Controller

	// queued collects commands produced by controller hooks during the
	// current Update call.
	queued *[]tea.Cmd

	width  int
	height int
	cursor int
	scroll int
	status string
}

func newExploreModel(provider analysis.Provider) exploreModel {
	queued := &[]tea.Cmd{}
	nav := onion.NewNavigator()

	m := exploreModel{
		ctx:      context.Background(),
		provider: provider,
		nav:      nav,
		queued:   queued,
		width:    80,
		height:   24,
	}

	m.ctl = interaction.New(interaction.WithHooks(interaction.Hooks{
		OnFileClick: func(file graph.ModuleFile, moduleID string) {
			*queued = append(*queued, m.fetchAnnotationCmd(file.Path))
		},
		OnFileDoubleClick: func(file graph.ModuleFile, moduleID string) {
			*queued = append(*queued, m.fetchAnnotationCmd(file.Path))
		},
	}))
	return m
}

func (m exploreModel) Init() tea.Cmd {
	return m.fetchCmd(m.nav.Init())
}

// onDomainSurface reports whether the graph canvas is on screen.
func (m exploreModel) onDomainSurface() bool {
	_, ok := m.nav.CurrentData().(onion.BusinessDomainData)
	return ok
}

// =============================================================================
// Update
// =============================================================================

func (m exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case tea.MouseMsg:
		return m.updateMouse(msg)

	case layerDataMsg:
		m.nav.Resolve(msg.key, msg.data)
		m.relayout()
		m.snapCursor()
		return m, nil

	case layerErrMsg:
		m.nav.Fail(msg.key, msg.err)
		return m, nil

	case filesMsg:
		m.ctl.ResolveFiles(msg.moduleID, msg.files)
		m.relayout()
		return m, nil

	case filesErrMsg:
		m.ctl.FailFiles(msg.moduleID, msg.err)
		m.status = StyleError.Render(msg.err.Error())
		return m, nil

	case annotationMsg:
		m.status = StyleDim.Render(msg.path+": ") + msg.ann.Summary
		return m, nil

	case clickTickMsg:
		m.ctl.Tick(time.Time(msg))
		return m, m.drain()
	}
	return m, nil
}

func (m exploreModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "1", "2", "3", "4":
		layer, _ := onion.ParseLayer(msg.String())
		fetch := m.nav.QuickJump(layer)
		observability.Navigation().OnNavigate(m.ctx, layer.String(), m.nav.CurrentFocus(), len(m.nav.Stack()))
		m.afterNavigate()
		return m, m.fetchCmd(fetch)

	case "backspace", "esc":
		fetch := m.nav.GoBack()
		m.afterNavigate()
		return m, m.fetchCmd(fetch)

	case "r":
		return m, m.fetchCmd(m.nav.Refresh())

	case "f":
		// Back to the full surface of the current layer.
		fetch := m.nav.NavigateToLayer(m.nav.CurrentLayer())
		m.afterNavigate()
		return m, m.fetchCmd(fetch)

	case "up", "k":
		if m.onDomainSurface() {
			m.cycleSelection(-1)
		} else {
			m.moveCursor(-1)
		}
		return m, nil

	case "down", "j":
		if m.onDomainSurface() {
			m.cycleSelection(1)
		} else {
			m.moveCursor(1)
		}
		return m, nil

	case "enter":
		return m, m.activate()

	case "e":
		cmd := m.toggleExpansion()
		m.relayout()
		return m, cmd

	case "+", "=":
		m.ctl.Wheel(m.canvasCenter(), 1)
		return m, nil

	case "-":
		m.ctl.Wheel(m.canvasCenter(), -1)
		return m, nil

	case "x":
		m.ctl.ResetLayout()
		m.ctl.ResetView()
		return m, nil
	}
	return m, nil
}

func (m exploreModel) updateMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.onDomainSurface() {
		return m.updateCanvasMouse(msg)
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.scroll = max(0, m.scroll-2)
	case tea.MouseButtonWheelDown:
		m.scroll += 2
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return m, nil
		}
		rows := m.bodyRows()
		idx := msg.Y - headerHeight + m.scroll
		if idx < 0 || idx >= len(rows) || rows[idx].target.Kind == interaction.TargetNone {
			return m, nil
		}
		m.cursor = idx
		m.ctl.Click(rows[idx].target)
		return m, m.drain()
	}
	return m, nil
}

// updateCanvasMouse routes pointer input through the controller's pixel
// path: press/move/release drive pan and node drag, release without
// movement clicks, wheel zooms at the cursor.
func (m exploreModel) updateCanvasMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	p := cellToScreen(msg.X, msg.Y-headerHeight)

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.ctl.Wheel(p, 1)
		return m, nil
	case tea.MouseButtonWheelDown:
		m.ctl.Wheel(p, -1)
		return m, nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.ctl.MouseDown(p)
		}
	case tea.MouseActionMotion:
		m.ctl.MouseMove(p)
	case tea.MouseActionRelease:
		if msg.Button == tea.MouseButtonLeft {
			m.ctl.MouseUp(p)
			return m, m.drain()
		}
	}
	return m, nil
}

// cellToScreen converts a terminal cell position to the controller's
// screen coordinate space, using the cell center.
func cellToScreen(x, y int) layout.Point {
	return layout.Point{X: (float64(x) + 0.5) * cellW, Y: (float64(y) + 0.5) * cellH}
}

func (m exploreModel) canvasCenter() layout.Point {
	return cellToScreen(m.width/2, m.bodyHeight()/2)
}

// drain collects commands queued by controller hooks, file fetches issued
// by pointer gestures, plus the tick needed to eventually commit a pending
// single click.
func (m exploreModel) drain() tea.Cmd {
	cmds := *m.queued
	*m.queued = nil
	for _, f := range m.ctl.TakeFileFetches() {
		cmds = append(cmds, m.fetchFilesCmd(f))
	}
	// A double-click may have expanded or collapsed a module.
	m.relayout()
	if deadline, ok := m.ctl.NextDeadline(); ok {
		cmds = append(cmds, tea.Tick(time.Until(deadline), func(t time.Time) tea.Msg {
			return clickTickMsg(t)
		}))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// afterNavigate resets per-layer view state after a layer change.
func (m *exploreModel) afterNavigate() {
	m.cursor = 0
	m.scroll = 0
	m.status = ""
	m.relayout()
	m.snapCursor()
}

// =============================================================================
// Navigation Actions
// =============================================================================

// drillFrom pushes the next-deeper layer focused on the given module.
func (m exploreModel) drillFrom(moduleID string) tea.Cmd {
	next := m.nav.CurrentLayer() + 1
	if !next.Valid() {
		return nil
	}
	fetch := m.nav.DrillDown(next, moduleID)
	observability.Navigation().OnDrillDown(m.ctx, next.String(), moduleID)
	return m.fetchCmd(fetch)
}

// activate drills into the selected module, or fetches the annotation of
// the file under the cursor.
func (m exploreModel) activate() tea.Cmd {
	if m.onDomainSurface() {
		if id := m.ctl.Selected(); id != "" {
			return m.drillFrom(id)
		}
		return nil
	}

	rows := m.bodyRows()
	if m.cursor >= len(rows) {
		return nil
	}
	switch t := rows[m.cursor].target; t.Kind {
	case interaction.TargetModule:
		return m.drillFrom(t.ID)
	case interaction.TargetFile:
		return m.fetchAnnotationCmd(t.File.Path)
	}
	return nil
}

// toggleExpansion expands or collapses the selected module's child files.
func (m exploreModel) toggleExpansion() tea.Cmd {
	data, ok := m.nav.CurrentData().(onion.BusinessDomainData)
	if !ok {
		return nil
	}
	id := m.ctl.Selected()
	for _, n := range data.Domains {
		if n.ID == id {
			return m.fetchFilesCmd(m.ctl.ToggleExpand(n.ID, n.Path))
		}
	}
	return nil
}

// cycleSelection steps the module selection in layout order.
func (m exploreModel) cycleSelection(delta int) {
	data, ok := m.nav.CurrentData().(onion.BusinessDomainData)
	if !ok {
		return
	}
	order := m.moduleOrder(data)
	if len(order) == 0 {
		return
	}
	cur := -1
	for i, n := range order {
		if n.ID == m.ctl.Selected() {
			cur = i
			break
		}
	}
	next := (cur + delta + len(order)) % len(order)
	m.ctl.Select(order[next].ID)
}

// moduleOrder lists domain nodes tier by tier, left to right within each
// tier, matching what the canvas shows.
func (m exploreModel) moduleOrder(data onion.BusinessDomainData) []graph.DomainNode {
	positions := m.ctl.Rendered()
	byTier := map[graph.Tier][]graph.DomainNode{}
	for _, n := range data.Domains {
		byTier[n.ArchitectureLayer] = append(byTier[n.ArchitectureLayer], n)
	}

	var order []graph.DomainNode
	for _, tier := range graph.TierOrder {
		nodes := byTier[tier]
		sort.SliceStable(nodes, func(i, j int) bool {
			return positions[nodes[i].ID].X < positions[nodes[j].ID].X
		})
		order = append(order, nodes...)
	}
	return order
}

func (m *exploreModel) moveCursor(delta int) {
	rows := m.bodyRows()
	i := m.cursor + delta
	for i >= 0 && i < len(rows) {
		if rows[i].target.Kind != interaction.TargetNone {
			m.cursor = i
			break
		}
		i += delta
	}
	m.keepCursorVisible(len(rows))
}

// snapCursor moves the list cursor onto the nearest selectable row, and
// seeds the canvas selection with the first module after a domain load.
func (m *exploreModel) snapCursor() {
	if data, ok := m.nav.CurrentData().(onion.BusinessDomainData); ok {
		order := m.moduleOrder(data)
		if len(order) > 0 && !containsModule(order, m.ctl.Selected()) {
			m.ctl.Select(order[0].ID)
		}
		return
	}

	rows := m.bodyRows()
	if m.cursor < len(rows) && rows[m.cursor].target.Kind != interaction.TargetNone {
		return
	}
	for i, r := range rows {
		if r.target.Kind != interaction.TargetNone {
			m.cursor = i
			return
		}
	}
	if n := len(rows); m.cursor >= n && n > 0 {
		m.cursor = n - 1
	}
}

func containsModule(nodes []graph.DomainNode, id string) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func (m *exploreModel) keepCursorVisible(total int) {
	visible := m.bodyHeight()
	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+visible {
		m.scroll = m.cursor - visible + 1
	}
	if m.scroll > max(0, total-visible) {
		m.scroll = max(0, total-visible)
	}
}

// relayout recomputes base positions when domain graph data is on screen.
func (m exploreModel) relayout() {
	data, ok := m.nav.CurrentData().(onion.BusinessDomainData)
	if !ok {
		return
	}
	start := time.Now()
	positions := layout.Compute(data.Domains, data.Relationships, m.ctl.Expansions())
	m.ctl.SetModules(data.Domains)
	m.ctl.SetLayout(positions)
	observability.Layout().OnLayoutComplete(m.ctx, len(data.Domains), len(m.ctl.Expansions()), time.Since(start))
}

// =============================================================================
// Fetch Commands
// =============================================================================

func (m exploreModel) fetchCmd(f *onion.Fetch) tea.Cmd {
	if f == nil {
		return nil
	}
	key := f.Key
	return func() tea.Msg {
		data, err := m.provider.FetchLayerData(m.ctx, key.Layer, key.FocusID)
		if err != nil {
			return layerErrMsg{key: key, err: err}
		}
		return layerDataMsg{key: key, data: data}
	}
}

func (m exploreModel) fetchFilesCmd(f *interaction.FileFetch) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		files, err := m.provider.FetchModuleFiles(m.ctx, f.Path)
		if err != nil {
			return filesErrMsg{moduleID: f.ModuleID, err: err}
		}
		return filesMsg{moduleID: f.ModuleID, files: files}
	}
}

func (m exploreModel) fetchAnnotationCmd(path string) tea.Cmd {
	return func() tea.Msg {
		ann, err := m.provider.FetchFileAnnotation(m.ctx, path)
		if err != nil {
			return annotationMsg{path: path, ann: graph.Annotation{Summary: err.Error()}}
		}
		return annotationMsg{path: path, ann: ann}
	}
}

// =============================================================================
// View
// =============================================================================

func (m exploreModel) bodyHeight() int {
	h := m.height - headerHeight - 2
	if h < 5 {
		h = 5
	}
	return h
}

func (m exploreModel) View() string {
	var b strings.Builder

	layer := m.nav.CurrentLayer()
	b.WriteString(StyleTitle.Render(layer.Title()))
	if m.nav.Loading(layer) {
		b.WriteString(" " + StyleWarning.Render("loading…"))
	}
	if errMsg := m.nav.Err(layer); errMsg != "" {
		b.WriteString(" " + StyleError.Render(errMsg) + StyleDim.Render("  (r to retry)"))
	}
	b.WriteString("\n")
	b.WriteString(m.breadcrumb())
	b.WriteString("\n\n")

	if data, ok := m.nav.CurrentData().(onion.BusinessDomainData); ok {
		for _, line := range m.canvasLines(data) {
			b.WriteString(line)
			b.WriteString("\n")
		}
	} else {
		rows := m.bodyRows()
		end := m.scroll + m.bodyHeight()
		if end > len(rows) {
			end = len(rows)
		}
		for i := m.scroll; i < end; i++ {
			b.WriteString(rows[i].line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(StyleDim.Render(m.helpLine()))
	return b.String()
}

func (m exploreModel) helpLine() string {
	if m.onDomainSurface() {
		return "1-4 layers  ⏎ drill  e expand  ±/wheel zoom  drag pan  x reset  ⌫ back  r refresh  q quit"
	}
	return "1-4 layers  ⏎ drill  ⌫ back  r refresh  f full  q quit"
}

func (m exploreModel) breadcrumb() string {
	parts := make([]string, 0, len(m.nav.Stack()))
	for _, e := range m.nav.Stack() {
		label := e.Layer.Title()
		if e.FocusID != "" {
			label += "(" + e.FocusID + ")"
		}
		parts = append(parts, label)
	}
	return StyleDim.Render(strings.Join(parts, " › "))
}

// =============================================================================
// Canvas Rendering (business domain layer)
// =============================================================================

// canvasLines draws the laid-out graph onto a cell grid: relationship
// curves first, then module and file boxes with centered labels. The
// controller's transform maps layout space to the visible cells.
func (m exploreModel) canvasLines(data onion.BusinessDomainData) []string {
	w := m.width
	h := m.bodyHeight()
	grid := make([][]rune, h)
	for y := range grid {
		grid[y] = make([]rune, w)
		for x := range grid[y] {
			grid[y][x] = ' '
		}
	}

	tr := m.ctl.Transform()
	rendered := m.ctl.Rendered()

	for _, rel := range data.Relationships {
		from, okF := rendered[rel.Source]
		to, okT := rendered[rel.Target]
		if !okF || !okT {
			continue
		}
		ch := '·'
		if m.ctl.IsEmphasized(rel) {
			ch = '•'
		}
		curve := layout.Connector(from, to)
		for t := 0.0; t <= 1.0; t += 0.04 {
			s := tr.ToScreen(curve.At(t))
			plot(grid, int(s.X/cellW), int(s.Y/cellH), ch)
		}
	}

	labels := m.canvasLabels(data)
	for _, id := range sortedIDs(rendered) {
		pos := rendered[id]
		origin := tr.ToScreen(layout.Point{X: pos.X, Y: pos.Y})
		drawBox(grid,
			int(origin.X/cellW), int(origin.Y/cellH),
			int(pos.Width*tr.Scale/cellW), int(pos.Height*tr.Scale/cellH),
			labels[id], id == m.ctl.Selected())
	}

	lines := make([]string, h)
	for y := range grid {
		lines[y] = string(grid[y])
	}
	return lines
}

// canvasLabels maps every rendered box id to its display name.
func (m exploreModel) canvasLabels(data onion.BusinessDomainData) map[string]string {
	labels := make(map[string]string, len(data.Domains))
	for _, n := range data.Domains {
		labels[n.ID] = n.Name
	}
	for _, exp := range m.ctl.Expansions() {
		for _, f := range exp.Files {
			labels[f.ID] = f.Name
		}
	}
	return labels
}

func sortedIDs(positions map[string]layout.Position) []string {
	ids := make([]string, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func plot(grid [][]rune, x, y int, ch rune) {
	if y < 0 || y >= len(grid) || x < 0 || x >= len(grid[y]) {
		return
	}
	grid[y][x] = ch
}

// drawBox renders a bordered box with a centered, truncated label. Boxes
// shrunk below drawable size by zoom-out degrade to their bare label.
func drawBox(grid [][]rune, x, y, w, h int, label string, selected bool) {
	if selected {
		label = "▸" + label
	}
	if w < 4 || h < 2 {
		for i, ch := range label {
			plot(grid, x+i, y, ch)
		}
		return
	}

	for cx := x; cx < x+w; cx++ {
		plot(grid, cx, y, '─')
		plot(grid, cx, y+h-1, '─')
	}
	for cy := y; cy < y+h; cy++ {
		plot(grid, x, cy, '│')
		plot(grid, x+w-1, cy, '│')
	}
	plot(grid, x, y, '┌')
	plot(grid, x+w-1, y, '┐')
	plot(grid, x, y+h-1, '└')
	plot(grid, x+w-1, y+h-1, '┘')

	runes := []rune(label)
	if len(runes) > w-2 {
		runes = runes[:w-2]
	}
	start := x + (w-len(runes))/2
	for i, ch := range runes {
		plot(grid, start+i, y+h/2, ch)
	}
}

// =============================================================================
// List Rendering (other layers)
// =============================================================================

// bodyRows renders the current layer payload into selectable rows. Mouse
// clicks and the keyboard cursor both index into this slice.
func (m exploreModel) bodyRows() []bodyRow {
	switch data := m.nav.CurrentData().(type) {
	case onion.ProjectIntentData:
		return intentRows(data)
	case onion.KeyProcessData:
		return processRows(data)
	case onion.ImplementationData:
		return m.implementationRows(data)
	}
	return nil
}

func intentRows(data onion.ProjectIntentData) []bodyRow {
	rows := []bodyRow{
		{line: "  " + StyleValue.Render(data.Name)},
	}
	if data.Description != "" {
		rows = append(rows, bodyRow{line: "  " + StyleDim.Render(data.Description)})
	}
	rows = append(rows,
		bodyRow{line: ""},
		bodyRow{line: fmt.Sprintf("  %s %s", StyleDim.Render("languages"), strings.Join(data.Languages, ", "))},
		bodyRow{line: fmt.Sprintf("  %s %d modules, %d files, %d lines",
			StyleDim.Render("size     "), data.ModuleCount, data.FileCount, data.LineCount)},
	)
	if len(data.EntryPoints) > 0 {
		rows = append(rows, bodyRow{line: ""}, bodyRow{line: "  " + StyleDim.Render("entry points")})
		for _, ep := range data.EntryPoints {
			rows = append(rows, bodyRow{line: "    " + iconArrow + " " + StyleValue.Render(ep)})
		}
	}
	return rows
}

func processRows(data onion.KeyProcessData) []bodyRow {
	if len(data.Processes) == 0 {
		return []bodyRow{{line: "  " + StyleDim.Render("no processes found")}}
	}
	var rows []bodyRow
	for _, proc := range data.Processes {
		rows = append(rows, bodyRow{line: "  " + StyleValue.Render(proc.Name)})
		if proc.Description != "" {
			rows = append(rows, bodyRow{line: "    " + StyleDim.Render(proc.Description)})
		}
		for _, step := range proc.Steps {
			rows = append(rows, bodyRow{
				line: fmt.Sprintf("    %d. %s %s", step.Order,
					StyleHighlight.Render(step.Module), step.Action),
				target: interaction.Target{Kind: interaction.TargetModule, ID: step.Module},
			})
		}
		rows = append(rows, bodyRow{line: ""})
	}
	return rows
}

func (m exploreModel) implementationRows(data onion.ImplementationData) []bodyRow {
	if data.FocusID == "" {
		return []bodyRow{{line: "  " + StyleDim.Render("drill into a module to see its implementation")}}
	}
	var rows []bodyRow
	if len(data.Files) > 0 {
		rows = append(rows, bodyRow{line: StyleDim.Render("  ── files")})
		for _, f := range data.Files {
			line := fmt.Sprintf("  %s %s", StyleValue.Render(f.Name), StyleDim.Render(f.Language))
			if f.LineCount > 0 {
				line += StyleDim.Render(fmt.Sprintf(" (%d lines)", f.LineCount))
			}
			rows = append(rows, bodyRow{
				line:   line,
				target: interaction.Target{Kind: interaction.TargetFile, ID: f.ID, ModuleID: data.FocusID, File: f},
			})
		}
	}
	if len(data.Symbols) > 0 {
		rows = append(rows, bodyRow{line: ""}, bodyRow{line: StyleDim.Render("  ── symbols")})
		for _, s := range data.Symbols {
			line := fmt.Sprintf("  %s %s", StyleDim.Render(s.Kind), StyleValue.Render(s.Name))
			if s.Doc != "" {
				line += "  " + StyleDim.Render(s.Doc)
			}
			rows = append(rows, bodyRow{line: line})
		}
	}
	if len(rows) == 0 {
		rows = []bodyRow{{line: "  " + StyleDim.Render("nothing to show")}}
	}
	return rows
}
