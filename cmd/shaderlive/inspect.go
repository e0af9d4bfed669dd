package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-yaml"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/gogpu/shaderlive/internal/wgslc"
	"github.com/gogpu/shaderlive/resolve"
)

// inspectReport is the YAML form of a resolved shader.
type inspectReport struct {
	Entry    string         `yaml:"entry"`
	Lines    int            `yaml:"lines"`
	Includes []string       `yaml:"includes"`
	Switches []switchReport `yaml:"switches,omitempty"`
	Ranges   []rangeReport  `yaml:"ranges,omitempty"`
	LineMap  []lineSpan     `yaml:"line_map"`
	Errors   []string       `yaml:"errors,omitempty"`
}

type switchReport struct {
	Name    string `yaml:"name"`
	Label   string `yaml:"label"`
	Default bool   `yaml:"default"`
}

type rangeReport struct {
	Name    string   `yaml:"name"`
	Label   string   `yaml:"label"`
	Min     float64  `yaml:"min"`
	Max     float64  `yaml:"max"`
	Default *float64 `yaml:"default,omitempty"`
}

// lineSpan is a run of flattened lines copied from consecutive lines of
// one file.
type lineSpan struct {
	From     int    `yaml:"from"`
	To       int    `yaml:"to"`
	File     string `yaml:"file"`
	FileLine int    `yaml:"file_line"`
}

func newInspectCmd(a *app) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show how a shader file resolves",
		Long: `Inspect flattens one shader file and prints the files it includes, the
parameters its directives declare and where every flattened line came from.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.resolver()
			if err != nil {
				return err
			}
			report := newInspectReport(r.Resolve(args[0]))
			if asYAML {
				data, err := yaml.Marshal(report)
				if err != nil {
					return fmt.Errorf("encoding report: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			renderReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the report as YAML")
	return cmd
}

func newInspectReport(s *resolve.ResolvedShader) inspectReport {
	r := inspectReport{
		Entry:    s.Entry,
		Lines:    s.LineCount(),
		Includes: s.IncludedFiles,
		LineMap:  lineSpans(s.LineMappings),
	}
	for _, sw := range s.Metadata.Switches {
		r.Switches = append(r.Switches, switchReport{
			Name:    sw.Name,
			Label:   s.Metadata.LabelFor(sw.Name),
			Default: sw.Default,
		})
	}
	for _, rg := range s.Metadata.Ranges {
		r.Ranges = append(r.Ranges, rangeReport{
			Name:    rg.Name,
			Label:   s.Metadata.LabelFor(rg.Name),
			Min:     rg.Min,
			Max:     rg.Max,
			Default: rg.Default,
		})
	}
	for _, d := range wgslc.ErrorDirectives(s.Source) {
		msg := d.Message
		if m, ok := s.Lookup(d.Line); ok {
			msg += " [" + m.String() + "]"
		}
		r.Errors = append(r.Errors, msg)
	}
	return r
}

// lineSpans compresses a line map into runs.
func lineSpans(mappings []resolve.LineMapping) []lineSpan {
	var spans []lineSpan
	for _, m := range mappings {
		if n := len(spans); n > 0 {
			last := &spans[n-1]
			if last.File == m.OriginFile && last.To+1 == m.FlattenedLine &&
				last.FileLine+(last.To-last.From)+1 == m.OriginLine {
				last.To = m.FlattenedLine
				continue
			}
		}
		spans = append(spans, lineSpan{
			From:     m.FlattenedLine,
			To:       m.FlattenedLine,
			File:     m.OriginFile,
			FileLine: m.OriginLine,
		})
	}
	return spans
}

func renderReport(w io.Writer, r inspectReport) {
	fmt.Fprintf(w, "%s (%d lines)\n\n", r.Entry, r.Lines)

	includes := tablewriter.NewWriter(w)
	includes.SetHeader([]string{"#", "Included file"})
	includes.SetBorder(false)
	includes.SetAutoWrapText(false)
	includes.SetCenterSeparator("")
	for i, p := range r.Includes {
		includes.Append([]string{strconv.Itoa(i + 1), p})
	}
	includes.Render()

	if len(r.Switches)+len(r.Ranges) > 0 {
		fmt.Fprintln(w)
		params := tablewriter.NewWriter(w)
		params.SetHeader([]string{"Parameter", "Label", "Kind", "Default"})
		params.SetBorder(false)
		params.SetAutoWrapText(false)
		params.SetCenterSeparator("")
		params.SetAutoFormatHeaders(false)
		for _, s := range r.Switches {
			params.Append([]string{s.Name, s.Label, "switch", strconv.FormatBool(s.Default)})
		}
		for _, rg := range r.Ranges {
			def := ""
			if rg.Default != nil {
				def = formatFloat(*rg.Default)
			}
			kind := "range [" + formatFloat(rg.Min) + ", " + formatFloat(rg.Max) + "]"
			params.Append([]string{rg.Name, rg.Label, kind, def})
		}
		params.Render()
	}

	fmt.Fprintln(w)
	lines := tablewriter.NewWriter(w)
	lines.SetHeader([]string{"Lines", "Origin"})
	lines.SetBorder(false)
	lines.SetAutoWrapText(false)
	lines.SetCenterSeparator("")
	lines.SetColumnAlignment([]int{tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT})
	for _, s := range r.LineMap {
		lines.Append([]string{spanRange(s.From, s.To), s.File + ":" + spanRange(s.FileLine, s.FileLine+s.To-s.From)})
	}
	lines.Render()

	for _, e := range r.Errors {
		fmt.Fprintln(w, failStyle.Render("error")+" "+e)
	}
}

func spanRange(from, to int) string {
	if from == to {
		return strconv.Itoa(from)
	}
	return strconv.Itoa(from) + "-" + strconv.Itoa(to)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
