package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/yanizio/scanconsole/internal/console"
	"github.com/yanizio/scanconsole/internal/scanreport"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "240", Dark: "243"})
)

func newListCmd(app *App) *cobra.Command {
	var (
		archived bool
		partner  string
		dataset  string
		author   string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scan reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			defer app.close()
			if err := app.boot(ctx, false); err != nil {
				return err
			}

			mode := scanreport.ModeActive
			if archived {
				mode = scanreport.ModeArchived
			}
			s, err := app.session(ctx, modeURL(mode))
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Load(ctx); err != nil {
				return err
			}
			setIf(s, scanreport.ColumnDataPartner, partner)
			setIf(s, scanreport.ColumnDataset, dataset)
			setIf(s, scanreport.ColumnAuthor, author)

			page := s.Page()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(page)
			}
			return renderPage(cmd.OutOrStdout(), page)
		},
	}
	cmd.Flags().BoolVar(&archived, "archived", false, "Show archived reports instead of active ones")
	cmd.Flags().StringVar(&partner, "partner", "", "Only reports of this data partner")
	cmd.Flags().StringVar(&dataset, "dataset", "", "Only reports of this dataset")
	cmd.Flags().StringVar(&author, "author", "", "Only reports added by this user")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the page model as JSON")
	return cmd
}

func setIf(s *console.Session, c scanreport.Column, v string) {
	if v != "" {
		s.SetFilter(c, v)
	}
}

func modeURL(m scanreport.Mode) string {
	if m == scanreport.ModeArchived {
		return console.BasePath + "?" + scanreport.ArchivedQueryKey + "=" + scanreport.ArchivedQueryValue
	}
	return console.BasePath
}

// renderPage writes the title, applied filters, and the row table.
func renderPage(w io.Writer, p console.Page) error {
	if p.Error != "" {
		return errors.New(p.Error)
	}

	fmt.Fprintln(w, titleStyle.Render(p.Title))
	for _, c := range p.Chips {
		fmt.Fprintln(w, mutedStyle.Render("Applied Filters: "+c.Label))
	}
	if len(p.Rows) == 0 {
		fmt.Fprintln(w, p.Message)
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Data Partner", "Dataset", "Added By", "Date", "Status", "Tables", "Fields").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range p.Rows {
		t.Row(
			strconv.Itoa(r.ID),
			r.DataPartner,
			r.Dataset,
			r.Author,
			r.Created,
			r.StatusLabel,
			r.TablesText(),
			r.FieldsText(),
		)
	}
	fmt.Fprintln(w, t.Render())
	return nil
}
