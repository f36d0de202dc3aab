package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/webcatalog/internal/flagx"
	"github.com/dmitrijs2005/webcatalog/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "24h" and integer nanoseconds are accepted.
//
// Only keys present in the file override the current Config; absent keys
// keep whatever defaults were loaded before.
type JsonConfig struct {
	HTTPAddr       *string         `json:"http_addr"`
	DatabaseDSN    *string         `json:"database_dsn"`
	SecretKey      *string         `json:"secret_key"`
	SessionTTL     *timex.Duration `json:"session_ttl"`
	StorageBackend *string         `json:"storage_backend"`
	ImageDir       *string         `json:"image_dir"`
	MaxUploadBytes *int64          `json:"max_upload_bytes"`
	AllowedOrigins []string        `json:"allowed_origins"`
	LogFormat      *string         `json:"log_format"`
	S3RootUser     *string         `json:"s3_root_user"`
	S3RootPassword *string         `json:"s3_root_password"`
	S3Bucket       *string         `json:"s3_bucket"`
	S3Region       *string         `json:"s3_region"`
	S3BaseEndpoint *string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from the file named by the -c or
// -config flag. Without the flag nothing is loaded. An unreadable file or
// invalid JSON panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	if err := applyJSONFile(config, jsonConfigFile); err != nil {
		panic(err)
	}
}

// applyJSONFile overlays the keys present in the JSON file at path.
func applyJSONFile(config *Config, path string) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	setString(&config.StorageBackend, c.StorageBackend)
	setString(&config.ImageDir, c.ImageDir)
	if c.MaxUploadBytes != nil {
		config.MaxUploadBytes = *c.MaxUploadBytes
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
