// Command fenrird hosts the matching engine behind a TCP driver.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"matchbook/internal/driver"
	"matchbook/internal/engine"
)

func main() {
	address := flag.String("address", "0.0.0.0", "listen address")
	port := flag.Int("port", 9001, "listen port")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.New(nil)
	srv := driver.New(*address, *port, eng)
	eng.SetSink(srv.ReportTrade)

	log.Info().Str("address", *address).Int("port", *port).Msg("starting fenrird")
	go srv.Run(ctx)

	<-ctx.Done()
}
