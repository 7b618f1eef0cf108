package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yanizio/scanconsole/internal/console"
	"github.com/yanizio/scanconsole/internal/logger"
	"github.com/yanizio/scanconsole/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			defer app.close()
			if err := app.boot(ctx, logger.RunningInTTY()); err != nil {
				return err
			}
			if addr == "" {
				addr = app.cfg.HTTP.ListenAddr
			}

			s, err := app.session(ctx, console.BasePath)
			if err != nil {
				return err
			}
			defer s.Close()

			// First load runs in the background; the page shows the
			// loading state until references resolve.
			s.Reload()

			return server.Run(ctx, server.New(addr, console.NewRouter(s)))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: http.listen_addr)")
	return cmd
}
