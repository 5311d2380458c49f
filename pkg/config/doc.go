// Package config loads typed configuration from the environment.
//
// A .env file in the working directory is read once per process (missing
// files are ignored) and struct fields are filled from `env` tags by
// github.com/caarlos0/env/v11. A struct that implements Validator is
// validated right after parsing.
//
//	type AppConfig struct {
//		EncryptionKey string `env:"ENCRYPTION_KEY,required"`
//	}
//
//	var cfg AppConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
package config
