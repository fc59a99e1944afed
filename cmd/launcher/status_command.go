package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"launcher/internal/app"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Load the state files and report their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(_ context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				mark := func(ok bool) string {
					if ok {
						return "ready"
					}
					return "failed"
				}
				if shouldColorize(out) {
					mark = func(ok bool) string {
						if ok {
							return "\x1b[32mready\x1b[0m"
						}
						return "\x1b[31mfailed\x1b[0m"
					}
				}

				rows := [][]string{}
				for _, s := range a.Statuses() {
					rows = append(rows, []string{s.Name, mark(s.Ready), s.Detail})
				}
				fmt.Fprintln(out, renderTable(tableSpec{
					headers: []string{"Handler", "State", "Detail"},
					rows:    rows,
				}))
				fmt.Fprintf(out, "Data directory: %s\n", a.DataDir())
				fmt.Fprintf(out, "Bootstrap config: %s\n", ctx.configPath)
				fmt.Fprintf(out, "Saved capes: %d\n", a.Capes.Count())
				fmt.Fprintf(out, "Experimental API: %s\n", yesNo(a.Config.IsExperimental()))
				fmt.Fprintf(out, "Discord presence: %s\n", yesNo(a.Config.PresenceEnabled()))
				return nil
			})
		},
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
