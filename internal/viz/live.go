package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/phasefield/internal/dynamo"
	"github.com/san-kum/phasefield/internal/experiment"
	"github.com/san-kum/phasefield/internal/field"
	"github.com/san-kum/phasefield/internal/metrics"
	"github.com/san-kum/phasefield/internal/sim"
)

const (
	historyCapacity = 600
	statsWidth      = 44
	phasorCols      = 12
	phasorRows      = 6
	frameRate       = 30
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(0, 2).Width(statsWidth)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

type TickMsg time.Time

// Options configures the live viewer. Zero values take defaults.
type Options struct {
	Title         string
	Dt            float64
	StepsPerFrame int
	Theme         string
	Width, Height int
	// Hooks see one snapshot per frame, after the frame's steps.
	Hooks []experiment.Hook
}

// Model drives an engine from the Bubble Tea event loop. All engine input
// goes through the engine's mailbox, so hooks may touch it freely.
type Model struct {
	engine *sim.Engine
	policy field.InitPolicy
	opts   Options

	view   *FieldView
	phasor *Canvas
	theme  Theme
	pal    *palette

	width, height int
	phases        []float64
	cursorX       int
	cursorY       int
	touching      bool
	running       bool
	showHelp      bool
	history       []float64
	last          metrics.Snapshot
	err           error
}

// NewModel wraps a configured engine.
func NewModel(e *sim.Engine, policy field.InitPolicy, opts Options) Model {
	if opts.Dt <= 0 {
		opts.Dt = e.Parameters().Dt
	}
	if opts.StepsPerFrame <= 0 {
		opts.StepsPerFrame = 2
	}
	if opts.Width <= 0 {
		opts.Width = 120
	}
	if opts.Height <= 0 {
		opts.Height = 32
	}
	if opts.Title == "" {
		opts.Title = string(e.Geometry().Kind)
	}
	theme := GetTheme(opts.Theme)
	m := Model{
		engine:  e,
		policy:  policy,
		opts:    opts,
		phasor:  NewCanvas(phasorCols, phasorRows),
		theme:   theme,
		pal:     newPalette(theme),
		phases:  make([]float64, e.Topology().N()),
		running: true,
		history: make([]float64, 0, historyCapacity),
		last:    e.Metrics(),
	}
	m.resize(opts.Width, opts.Height)
	return m
}

func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	fw, fh := max(20, w-statsWidth-4), max(10, h-2)
	var cam *Camera
	if m.view != nil {
		cam = m.view.Camera
	}
	m.view = NewFieldView(m.engine.Topology(), fw, fh)
	if cam != nil {
		m.view.Camera.RotX, m.view.Camera.RotY, m.view.Camera.Zoom = cam.RotX, cam.RotY, cam.Zoom
		m.view.Refresh()
	}
	m.cursorX = min(max(m.cursorX, 0), fw-1)
	m.cursorY = min(max(m.cursorY, 0), fh-1)
	if m.cursorX == 0 && m.cursorY == 0 {
		m.cursorX, m.cursorY = fw/2, fh/2
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
	case tea.KeyMsg:
		return m.handleKey(msg)
	case TickMsg:
		if m.running {
			m.step()
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.running = !m.running
	case "r":
		m.err = m.engine.Reset(m.policy)
		m.history = m.history[:0]
		m.touching = false
	case "up", "k":
		m.moveCursor(0, -1)
	case "down", "j":
		m.moveCursor(0, 1)
	case "left", "h":
		m.moveCursor(-1, 0)
	case "right", "l":
		m.moveCursor(1, 0)
	case "p":
		m.touching = !m.touching
		m.engine.SetPointer(m.pointer(), m.touching)
	case "x":
		m.engine.EmitTap(sim.Tap{Position: m.pointer()})
	case "u":
		m.err = m.engine.Perturb(0.1, math.Pi)
	case "+", "=":
		m.scale(func(p sim.Params) sim.ParamUpdate { return sim.ParamUpdate{Coupling: sim.Ptr(p.Coupling*1.1 + 0.01)} })
	case "-", "_":
		m.scale(func(p sim.Params) sim.ParamUpdate { return sim.ParamUpdate{Coupling: sim.Ptr(p.Coupling / 1.1)} })
	case "n":
		m.scale(func(p sim.Params) sim.ParamUpdate { return sim.ParamUpdate{Noise: sim.Ptr(p.Noise*1.25 + 0.01)} })
	case "b":
		m.scale(func(p sim.Params) sim.ParamUpdate { return sim.ParamUpdate{Noise: sim.Ptr(p.Noise / 1.25)} })
	case "e":
		m.scale(func(p sim.Params) sim.ParamUpdate { return sim.ParamUpdate{EmbodimentEnabled: sim.Ptr(!p.EmbodimentEnabled)} })
	case "q":
		m.scale(func(p sim.Params) sim.ParamUpdate { return sim.ParamUpdate{QuantumEnabled: sim.Ptr(!p.QuantumEnabled)} })
	case "[":
		m.rotate(-0.15)
	case "]":
		m.rotate(0.15)
	case "z":
		m.zoom(m.view.Camera.ZoomIn)
	case "Z":
		m.zoom(m.view.Camera.ZoomOut)
	case "t":
		m.theme = m.theme.Next()
		m.pal = newPalette(m.theme)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) scale(change func(sim.Params) sim.ParamUpdate) {
	m.err = m.engine.SetParameters(change(m.engine.Parameters()))
}

func (m *Model) rotate(a float64) {
	m.view.Camera.RotateY(a)
	m.view.Camera.RotateX(a / 3)
	m.view.Refresh()
	m.engine.SetPointer(m.pointer(), m.touching)
}

func (m *Model) zoom(apply func()) {
	apply()
	m.view.Refresh()
	m.engine.SetPointer(m.pointer(), m.touching)
}

func (m *Model) moveCursor(dx, dy int) {
	m.cursorX = min(max(m.cursorX+dx, 0), m.view.Width-1)
	m.cursorY = min(max(m.cursorY+dy, 0), m.view.Height-1)
	if m.touching {
		m.engine.SetPointer(m.pointer(), true)
	}
}

func (m *Model) pointer() dynamo.Vec3 {
	return m.view.Camera.Unproject(m.cursorX, m.cursorY, m.view.Width, m.view.Height)
}

// step advances one frame and feeds the hooks.
func (m *Model) step() {
	for range m.opts.StepsPerFrame {
		if err := m.engine.Advance(m.opts.Dt); err != nil {
			m.err = err
			m.running = false
			return
		}
	}
	m.last = m.engine.Metrics()
	m.history = append(m.history, m.last.R)
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
	for _, h := range m.opts.Hooks {
		h.OnSample(m.engine, m.last)
	}
}

// View renders the field and the stats panel.
func (m Model) View() string {
	m.phases = m.engine.PhasesInto(m.phases)
	var partner func(int) bool
	if m.engine.Parameters().QuantumEnabled {
		partner = func(i int) bool { return m.engine.Partner(i) >= 0 }
	}
	glyph := '○'
	if m.touching {
		glyph = '◉'
	}
	fieldView := m.view.Render(m.phases, partner, m.pal, Cursor{
		X: m.cursorX, Y: m.cursorY, Glyph: glyph,
		Style:   lipgloss.NewStyle().Foreground(m.theme.Pointer).Bold(true),
		Visible: true,
	})

	main := lipgloss.JoinHorizontal(lipgloss.Top, fieldView, statsStyle.Render(m.stats()))
	if m.showHelp {
		return GlassPanel.Render(helpText) + "\n" + main
	}
	return main
}

func (m Model) stats() string {
	s, p := m.last, m.engine.Parameters()
	var b strings.Builder
	b.WriteString(GradientText(strings.ToUpper(m.opts.Title), m.theme.Primary, m.theme.Secondary) + "\n")
	status := StatusRunning.Render("RUNNING")
	if !m.running {
		status = StatusPaused.Render("PAUSED")
	}
	b.WriteString(status + Subtle.Render(fmt.Sprintf("  t=%.2f  step %d", s.Time, s.Steps)) + "\n\n")

	m.phasor.Clear()
	m.phasor.DrawPhasor(s.R, s.Psi)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Center,
		headerStyle.Render(m.phasor.String()),
		"  "+MetricLabel.Render("order r")+"\n  "+ProgressBar(s.R, 16)+" "+MetricValue.Render(fmt.Sprintf("%.3f", s.R)),
	) + "\n")

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(4), asciigraph.Width(statsWidth-12),
			asciigraph.LowerBound(0), asciigraph.UpperBound(1), asciigraph.Caption("r(t)"))
		b.WriteString(graphStyle.Render(chart) + "\n")
	} else {
		b.WriteString(SparklineChart(m.history, statsWidth-8) + "\n")
	}
	b.WriteString(Separator(statsWidth-6) + "\n")

	row := func(label, value string) {
		b.WriteString(MetricLabel.Render(label) + MetricValue.Render(value) + "\n")
	}
	row("ψ", fmt.Sprintf("%.3f", s.Psi))
	row("r skin/core", fmt.Sprintf("%.3f / %.3f", s.RBoundary, s.RInterior))
	row("local r", fmt.Sprintf("%.3f", s.LocalOrder))
	row("entropy", fmt.Sprintf("%.3f", s.Entropy))
	row("coupling K", fmt.Sprintf("%.3f", p.Coupling))
	row("noise σ", fmt.Sprintf("%.3f", p.Noise))
	row("ripples", fmt.Sprintf("%d", s.Ripples))
	if p.QuantumEnabled {
		row("CHSH S", fmt.Sprintf("%.3f", s.CHSH))
		row("superposed", fmt.Sprintf("%d (%.2f)", s.Superposed, s.SuperpositionStrength))
	} else {
		row("quantum", "off")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render(truncate(m.err.Error(), statsWidth-6)) + "\n")
	}
	b.WriteString(KeyHint.Render("\nspace:pause r:reset p:touch x:tap ?:help"))
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

const helpText = `KEYBOARD SHORTCUTS
Space       Pause/Resume        R    Reset field
Arrows/HJKL Move pointer        P    Toggle touch
X           Ripple at pointer   U    Perturb 10%
+/-         Coupling            N/B  Noise up/down
E           Embodiment on/off   Q    Quantum on/off
[ ]         Rotate view         Z/z  Zoom out/in
T           Cycle themes        ?    Toggle help
Esc         Quit`

// Run starts the viewer on the alternate screen and blocks until it exits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
