package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ideagraph/semnet/internal/metrics"
	"ideagraph/semnet/internal/server"
)

var serveOrigins []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve network builds over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := OpenStore(false)
		if err != nil {
			return err
		}
		defer store.Close()

		collector := metrics.New()
		eng, err := newEngine(ctx, appCfg, store, log, collector)
		if err != nil {
			return err
		}

		srv := server.New(eng.assembler, collector, server.Options{
			Addr:            appCfg.Server.Addr,
			DefaultDepth:    appCfg.Network.DefaultDepth,
			ReadTimeout:     appCfg.Server.ReadTimeout,
			WriteTimeout:    appCfg.Server.WriteTimeout,
			ShutdownTimeout: appCfg.Server.ShutdownTimeout,
			AllowedOrigins:  serveOrigins,
		}, log.Named("http"))
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringSliceVar(&serveOrigins, "cors-origin", nil, "Allowed CORS origin (repeatable)")
	rootCmd.AddCommand(serveCmd)
}
