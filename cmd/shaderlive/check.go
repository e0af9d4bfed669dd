package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gogpu/shaderlive/program"
)

var errCheckFailed = errors.New("shader program failed to build")

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func newCheckCmd(a *app) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "check <vertex> <fragment>",
		Short: "Compile and link a shader program once",
		Long: `Check resolves both files, compiles them and links the program.
Diagnostics point at the file and line each error came from. The command
exits with a non-zero status when the program does not build.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = programName(args[1])
			}
			ws, err := a.workspace()
			if err != nil {
				return err
			}
			defer ws.Close()

			p := ws.Registry().Load(name, args[0], args[1])
			printResult(cmd.OutOrStdout(), p)
			if !p.Valid {
				return errCheckFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "program name (default: fragment file name)")
	return cmd
}

// printResult writes the status line and diagnostic of one build.
func printResult(w io.Writer, p program.CompiledProgram) {
	if p.Valid {
		fmt.Fprintf(w, "%s %s\n", okStyle.Render("OK"), p.Name)
	} else {
		fmt.Fprintf(w, "%s %s\n", failStyle.Render("FAILED"), p.Name)
	}
	fmt.Fprintln(w, dimStyle.Render("  vertex:   "+p.VertexPath))
	fmt.Fprintln(w, dimStyle.Render("  fragment: "+p.FragmentPath))
	for _, line := range strings.Split(p.Diagnostic, "\n") {
		fmt.Fprintln(w, "  "+line)
	}
}

// printEvent writes one line per build attempt followed by its diagnostic.
func printEvent(w io.Writer, e program.CompileEvent) {
	status := okStyle.Render("compiled")
	if !e.Success {
		status = failStyle.Render("failed")
	}
	fmt.Fprintf(w, "%s %s %s\n", dimStyle.Render(time.Now().Format("15:04:05")), status, e.Name)
	if !e.Success {
		for _, line := range strings.Split(e.Diagnostic, "\n") {
			fmt.Fprintln(w, "  "+line)
		}
	}
}
