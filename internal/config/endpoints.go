package config

import (
	"github.com/rs/zerolog/log"
)

// Endpoint configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// SwapTargetRPC is the JSON-RPC endpoint forwarded swap instructions
	// are submitted to when the external target runs out of process.
	SwapTargetRPC string
)

// loadEndpointConfig loads endpoint configuration from environment variables.
// This function is called by LoadConfig() in general.go.
func loadEndpointConfig() error {
	log.Info().Msg("Loading endpoint configuration from environment variables...")

	var err error

	SwapTargetRPC, err = getEnv("SWAP_TARGET_RPC")
	if err != nil {
		return err
	}

	log.Debug().
		Str("SwapTargetRPC", SwapTargetRPC).
		Msg("Endpoint configuration loaded successfully.")

	return nil
}
