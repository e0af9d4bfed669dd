package resolve

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SwitchFlag is a boolean feature toggle declared by a shader.
type SwitchFlag struct {
	Name    string
	Default bool
}

// UniformRange constrains a numeric parameter.
type UniformRange struct {
	Name     string
	Min, Max float64
	// Default is nil when the directive did not name one.
	Default *float64
}

// Label is a display name for a parameter.
type Label struct {
	Name string
	Text string
}

// Metadata collects the directives stripped from a shader source.
// Each slice keeps declaration order.
type Metadata struct {
	Switches []SwitchFlag
	Ranges   []UniformRange
	Labels   []Label
}

// Empty reports whether no directive was recorded.
func (m *Metadata) Empty() bool {
	return len(m.Switches) == 0 && len(m.Ranges) == 0 && len(m.Labels) == 0
}

// Switch returns the switch named name.
func (m *Metadata) Switch(name string) (SwitchFlag, bool) {
	for _, s := range m.Switches {
		if s.Name == name {
			return s, true
		}
	}
	return SwitchFlag{}, false
}

// Range returns the range declared for name.
func (m *Metadata) Range(name string) (UniformRange, bool) {
	for _, r := range m.Ranges {
		if r.Name == name {
			return r, true
		}
	}
	return UniformRange{}, false
}

// LabelFor returns the display text for a parameter: the declared label if
// any, otherwise the name with underscores turned into spaces and each word
// title-cased ("fog_density" becomes "Fog Density").
func (m *Metadata) LabelFor(name string) string {
	for _, l := range m.Labels {
		if l.Name == name {
			return l.Text
		}
	}
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// Merge returns m extended with the entries of other whose names m does not
// already declare. The receiver's declarations win.
func (m Metadata) Merge(other Metadata) Metadata {
	out := Metadata{
		Switches: append([]SwitchFlag(nil), m.Switches...),
		Ranges:   append([]UniformRange(nil), m.Ranges...),
		Labels:   append([]Label(nil), m.Labels...),
	}
	for _, s := range other.Switches {
		if _, ok := m.Switch(s.Name); !ok {
			out.Switches = append(out.Switches, s)
		}
	}
	for _, r := range other.Ranges {
		if _, ok := m.Range(r.Name); !ok {
			out.Ranges = append(out.Ranges, r)
		}
	}
	for _, l := range other.Labels {
		if !m.hasLabel(l.Name) {
			out.Labels = append(out.Labels, l)
		}
	}
	return out
}

func (m *Metadata) hasLabel(name string) bool {
	for _, l := range m.Labels {
		if l.Name == name {
			return true
		}
	}
	return false
}

// set helpers replace an earlier declaration of the same name in place.

func (m *Metadata) setSwitch(s SwitchFlag) {
	for i := range m.Switches {
		if m.Switches[i].Name == s.Name {
			m.Switches[i] = s
			return
		}
	}
	m.Switches = append(m.Switches, s)
}

func (m *Metadata) setRange(r UniformRange) {
	for i := range m.Ranges {
		if m.Ranges[i].Name == r.Name {
			m.Ranges[i] = r
			return
		}
	}
	m.Ranges = append(m.Ranges, r)
}

func (m *Metadata) setLabel(l Label) {
	for i := range m.Labels {
		if m.Labels[i].Name == l.Name {
			m.Labels[i] = l
			return
		}
	}
	m.Labels = append(m.Labels, l)
}
