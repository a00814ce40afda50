package viz

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/phasefield/internal/dynamo"
)

// hueSteps is the number of distinct phase colors per theme.
const hueSteps = 32

// Theme maps phase onto a closed hue wheel Primary → Secondary → Accent →
// Primary, so phases 0 and 2π share a color.
type Theme struct {
	Name      string
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Muted     lipgloss.Color
	Pointer   lipgloss.Color
}

var (
	ThemeCyberpunk = Theme{
		Name:      "cyberpunk",
		Primary:   lipgloss.Color("#ff00ff"),
		Secondary: lipgloss.Color("#00ffff"),
		Accent:    lipgloss.Color("#ffff00"),
		Muted:     lipgloss.Color("#666666"),
		Pointer:   lipgloss.Color("#ffffff"),
	}

	ThemeRetroGreen = Theme{
		Name:      "retro",
		Primary:   lipgloss.Color("#00ff00"),
		Secondary: lipgloss.Color("#005500"),
		Accent:    lipgloss.Color("#88ff88"),
		Muted:     lipgloss.Color("#005500"),
		Pointer:   lipgloss.Color("#ffff00"),
	}

	ThemeMinimal = Theme{
		Name:      "minimal",
		Primary:   lipgloss.Color("#ffffff"),
		Secondary: lipgloss.Color("#444444"),
		Accent:    lipgloss.Color("#0088ff"),
		Muted:     lipgloss.Color("#888888"),
		Pointer:   lipgloss.Color("#ff0000"),
	}

	ThemeOcean = Theme{
		Name:      "ocean",
		Primary:   lipgloss.Color("#0077be"),
		Secondary: lipgloss.Color("#00e0cc"),
		Accent:    lipgloss.Color("#ffd700"),
		Muted:     lipgloss.Color("#4488aa"),
		Pointer:   lipgloss.Color("#ff4444"),
	}

	ThemeSunset = Theme{
		Name:      "sunset",
		Primary:   lipgloss.Color("#ff6b6b"),
		Secondary: lipgloss.Color("#feca57"),
		Accent:    lipgloss.Color("#ff9ff3"),
		Muted:     lipgloss.Color("#8b6b8c"),
		Pointer:   lipgloss.Color("#5fd068"),
	}

	CurrentTheme = ThemeCyberpunk

	Themes = []Theme{
		ThemeCyberpunk,
		ThemeRetroGreen,
		ThemeMinimal,
		ThemeOcean,
		ThemeSunset,
	}
)

// GetTheme returns a theme by name, falling back to cyberpunk.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return ThemeCyberpunk
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

// Next returns the theme after t in Themes.
func (t Theme) Next() Theme {
	for i, c := range Themes {
		if c.Name == t.Name {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

// PhaseColor interpolates the wheel at phase.
func (t Theme) PhaseColor(phase float64) lipgloss.Color {
	x := dynamo.WrapPhase(phase) / dynamo.TwoPi * 3
	stops := [4]lipgloss.Color{t.Primary, t.Secondary, t.Accent, t.Primary}
	seg := min(int(x), 2)
	return mix(stops[seg], stops[seg+1], x-float64(seg))
}

// palette holds one style per hue bucket.
type palette [hueSteps]lipgloss.Style

func newPalette(t Theme) *palette {
	var p palette
	for i := range p {
		p[i] = lipgloss.NewStyle().Foreground(t.PhaseColor(dynamo.TwoPi * float64(i) / hueSteps))
	}
	return &p
}

func (p *palette) style(phase float64) lipgloss.Style {
	i := int(dynamo.WrapPhase(phase)/dynamo.TwoPi*hueSteps+0.5) % hueSteps
	return p[i]
}
