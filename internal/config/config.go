// Package config loads runtime settings from the environment with sane
// defaults, so the server runs with zero configuration in development.
package config

import "github.com/spf13/viper"

type Config struct {
	// Addr is the listen address for the HTTP server.
	Addr string

	// OutputDir is where rendered settlement PDFs are written.
	OutputDir string

	// CORSOrigin is the allowed browser origin.
	CORSOrigin string

	// MetricsEnabled exposes /metrics when true.
	MetricsEnabled bool

	// MaxUploadBytes caps the size of uploaded receipt documents.
	MaxUploadBytes int64
}

func Load() Config {
	v := viper.New()
	v.SetEnvPrefix("PATUNGAN")
	v.AutomaticEnv()

	v.SetDefault("ADDR", ":8000")
	v.SetDefault("OUTPUT_DIR", "./output")
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("MAX_UPLOAD_BYTES", int64(10<<20))

	return Config{
		Addr:           v.GetString("ADDR"),
		OutputDir:      v.GetString("OUTPUT_DIR"),
		CORSOrigin:     v.GetString("CORS_ORIGIN"),
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
	}
}
