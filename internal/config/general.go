package config

import (
	"errors"
	"os"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// ProgramID is the identity under which vault authorities are derived.
	ProgramID solana.PublicKey

	// SwapTargetProgramID is the only external program swap payloads may name.
	SwapTargetProgramID solana.PublicKey

	// AdminKey is the identity permitted to initialize and update global
	// fee parameters.
	AdminKey solana.PublicKey

	// DefaultFeeBps is the protocol swap fee in basis points, used when the
	// global state record is first created.
	DefaultFeeBps uint16

	// WebPort is the port the HTTP API listens on.
	WebPort string
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// All environment variables are required and must be set unless noted otherwise.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	ProgramID, err = getEnvAsPublicKey("GVM_PROGRAM_ID")
	if err != nil {
		return err
	}

	SwapTargetProgramID, err = getEnvAsPublicKey("SWAP_TARGET_PROGRAM_ID")
	if err != nil {
		return err
	}

	AdminKey, err = getEnvAsPublicKey("GVM_ADMIN_KEY")
	if err != nil {
		return err
	}

	DefaultFeeBps, err = getEnvAsUint16("DEFAULT_FEE_BPS")
	if err != nil {
		return err
	}
	if DefaultFeeBps > 10000 {
		return errors.New("DEFAULT_FEE_BPS must not exceed 10000")
	}

	WebPort = getEnvOrDefault("WEB_PORT", "8080")

	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("ProgramID", ProgramID.String()).
		Str("SwapTargetProgramID", SwapTargetProgramID.String()).
		Uint16("DefaultFeeBps", DefaultFeeBps).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists {
		return value, nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

func getEnvOrDefault(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsUint16 retrieves an environment variable as a uint16. Returns error if not set or invalid.
func getEnvAsUint16(key string) (uint16, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 16)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint16, got: " + valueStr)
	}
	return uint16(value), nil
}

// getEnvAsPublicKey retrieves an environment variable as a base58 public key.
func getEnvAsPublicKey(key string) (solana.PublicKey, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return solana.PublicKey{}, err
	}
	pk, err := solana.PublicKeyFromBase58(valueStr)
	if err != nil {
		return solana.PublicKey{}, errors.New("environment variable " + key + " must be a valid base58 public key, got: " + valueStr)
	}
	return pk, nil
}
