package server

import (
	"fmt"

	"github.com/reelstack/recoserve/internal/config/structs"
	"github.com/reelstack/recoserve/pkg/httpframework"
	"github.com/rs/zerolog/log"
)

// Run blocks serving HTTP on the configured port.
func Run() {
	cfg := structs.GetAppConfig().Configs
	addr := fmt.Sprintf(":%d", cfg.Port)
	log.Info().Msgf("Starting HTTP server on %s", addr)
	if err := httpframework.Instance().Run(addr); err != nil {
		log.Panic().Err(err).Msg("HTTP server failed")
	}
}
