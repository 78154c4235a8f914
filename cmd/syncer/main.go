package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/reelstack/recoserve/internal/bootstrap"
	"github.com/rs/zerolog/log"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bootstrap.InitSyncer(ctx)
	<-ctx.Done()
	log.Info().Msg("Syncer shutting down")
}
