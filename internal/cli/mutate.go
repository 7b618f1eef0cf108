package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yanizio/scanconsole/internal/console"
	"github.com/yanizio/scanconsole/internal/scanreport"
)

func newSetStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <STATUS>",
		Short: "Change the status of one scan report",
		Long:  "Valid codes: " + statusCodes(),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := scanreport.ParseStatus(args[1])
			if err != nil {
				return err
			}

			return app.withLoaded(cmd, func(s *console.Session) error {
				if err := s.SetStatus(cmd.Context(), id, st); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scan report %d: status %s (%s)\n", id, st, st.Label())
				return nil
			})
		},
	}
}

func newArchiveCmd(app *App, hidden bool) *cobra.Command {
	use, short, verb := "archive <id>", "Archive one scan report", "archived"
	if !hidden {
		use, short, verb = "unarchive <id>", "Restore one archived scan report", "restored"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return app.withLoaded(cmd, func(s *console.Session) error {
				if err := s.SetArchived(cmd.Context(), id, hidden); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "scan report %d: %s\n", id, verb)
				return nil
			})
		},
	}
}

// withLoaded boots, loads the collection, and hands the session to fn.
func (a *App) withLoaded(cmd *cobra.Command, fn func(*console.Session) error) error {
	ctx := cmd.Context()
	defer a.close()
	if err := a.boot(ctx, false); err != nil {
		return err
	}
	s, err := a.session(ctx, console.BasePath)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Load(ctx); err != nil {
		return err
	}
	return fn(s)
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid scan report id %q", s)
	}
	return id, nil
}

func statusCodes() string {
	codes := make([]string, 0, len(scanreport.Statuses))
	for _, st := range scanreport.Statuses {
		codes = append(codes, string(st))
	}
	return strings.Join(codes, ", ")
}
