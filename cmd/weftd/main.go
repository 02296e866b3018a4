// Command weftd serves the demo task-board page. It exists to exercise
// the framework end to end: a smart container reconciled against an
// in-memory data source, event handling, and transaction persistence
// in memory or in a bbolt file.
package main

import (
	"net/http"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/weftkit/weft"
	"github.com/weftkit/weft/lib/txstore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "weftd",
		Short:        "Serve the weft demo page",
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cmd.Flags().String("data", "", "bbolt file for transaction storage (empty keeps transactions in memory)")
	cmd.Flags().Bool("debug", false, "enable debug logging")

	viper.SetEnvPrefix("weftd")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(cmd.Flags())
	return cmd
}

func run(cmd *cobra.Command, _ []string) error {
	level := zerolog.InfoLevel
	if viper.GetBool("debug") {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	var txs txstore.Store
	if path := viper.GetString("data"); path != "" {
		bs, err := txstore.OpenBolt(path)
		if err != nil {
			return err
		}
		defer bs.Close()
		txs = bs
		log.Info().Str("path", path).Msg("transactions stored on disk")
	} else {
		txs = txstore.NewMemory()
	}

	registry := weft.NewRegistry()
	board := newBoard(registry)

	h := weft.NewHandler(log)
	h.HandlePage("/", func() *weft.Page {
		return weft.NewPage(board, registry,
			weft.WithTitle("weft task board"),
			weft.WithTxStore(txs),
			weft.WithLogger(log),
		)
	})

	addr := viper.GetString("addr")
	log.Info().Str("addr", addr).Msg("listening")
	return http.ListenAndServe(addr, h)
}
