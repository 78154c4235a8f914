package main

import (
	"context"

	"github.com/reelstack/recoserve/internal/bootstrap"
	"github.com/reelstack/recoserve/internal/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bootstrap.InitServing(ctx)
	server.Run()
}
