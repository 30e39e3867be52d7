package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/realmkeeper/internal/flagx"
	"github.com/dmitrijs2005/realmkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations accept
// both "30s" strings and integer nanoseconds. Absent or zero fields leave the
// current value alone.
type JsonConfig struct {
	HTTPAddr              string         `json:"http_addr"`
	GRPCAddr              string         `json:"grpc_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	LogLevel              string         `json:"log_level"`
	UserSigningKey        string         `json:"user_signing_key"`
	AdminSigningKey       string         `json:"admin_signing_key"`
	TokenTTL              timex.Duration `json:"token_ttl"`
	AdminEmail            string         `json:"admin_email"`
	AdminPasswordHash     string         `json:"admin_password_hash"`
	PasswordHashAlgorithm string         `json:"password_hash_algorithm"`
	BcryptCost            int            `json:"bcrypt_cost"`
	AssetBackend          string         `json:"asset_backend"`
	AssetFolder           string         `json:"asset_folder"`
	AssetPublicBaseURL    string         `json:"asset_public_base_url"`
	AssetTimeout          timex.Duration `json:"asset_timeout"`
	MaxUploadBytes        int64          `json:"max_upload_bytes"`
	S3AccessKey           string         `json:"s3_access_key"`
	S3SecretKey           string         `json:"s3_secret_key"`
	S3Bucket              string         `json:"s3_bucket"`
	S3Region              string         `json:"s3_region"`
	S3BaseEndpoint        string         `json:"s3_base_endpoint"`
	S3UsePathStyle        *bool          `json:"s3_use_path_style"`
	ShutdownTimeout       timex.Duration `json:"shutdown_timeout"`
}

// parseJson loads the file given with -c / -config, if any.
func parseJson(config *Config, args []string) error {

	jsonConfigFile := flagx.ConfigFileFlag(args)

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.UserSigningKey, c.UserSigningKey)
	setString(&config.AdminSigningKey, c.AdminSigningKey)
	setString(&config.AdminEmail, c.AdminEmail)
	setString(&config.AdminPasswordHash, c.AdminPasswordHash)
	setString(&config.PasswordHashAlgorithm, c.PasswordHashAlgorithm)
	setString(&config.AssetBackend, c.AssetBackend)
	setString(&config.AssetFolder, c.AssetFolder)
	setString(&config.AssetPublicBaseURL, c.AssetPublicBaseURL)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.TokenTTL.Duration != 0 {
		config.TokenTTL = c.TokenTTL.Duration
	}
	if c.AssetTimeout.Duration != 0 {
		config.AssetTimeout = c.AssetTimeout.Duration
	}
	if c.ShutdownTimeout.Duration != 0 {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	if c.MaxUploadBytes != 0 {
		config.MaxUploadBytes = c.MaxUploadBytes
	}
	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
