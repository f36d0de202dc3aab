package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "CATALOG_"

// parseEnv overlays CATALOG_* environment variables. Malformed numeric or
// duration values panic, like a bad config file does.
func parseEnv(config *Config) {
	if err := applyEnv(config); err != nil {
		panic(err)
	}
}

func applyEnv(config *Config) error {
	envString("HTTP_ADDR", &config.HTTPAddr)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("SECRET_KEY", &config.SecretKey)
	envString("STORAGE_BACKEND", &config.StorageBackend)
	envString("IMAGE_DIR", &config.ImageDir)
	envString("LOG_FORMAT", &config.LogFormat)
	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)

	if v, ok := os.LookupEnv(envPrefix + "SESSION_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sSESSION_TTL: %w", envPrefix, err)
		}
		config.SessionTTL = d
	}

	if v, ok := os.LookupEnv(envPrefix + "MAX_UPLOAD_BYTES"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%sMAX_UPLOAD_BYTES: %w", envPrefix, err)
		}
		config.MaxUploadBytes = n
	}

	if v, ok := os.LookupEnv(envPrefix + "ALLOWED_ORIGINS"); ok {
		config.AllowedOrigins = splitList(v)
	}
	return nil
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + name); ok {
		*dst = v
	}
}

// splitList parses a comma separated list, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
