package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/filevault/internal/flagx"
	"github.com/dmitrijs2005/filevault/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "24h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	AuthEndpointAddr             string         `json:"auth_endpoint_addr"`
	FileEndpointAddr             string         `json:"file_endpoint_addr"`
	GatewayEndpointAddr          string         `json:"gateway_endpoint_addr"`
	AuthBackendURL               string         `json:"auth_backend_url"`
	FileBackendURL               string         `json:"file_backend_url"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	TokenIssuer                  string         `json:"token_issuer"`
	TokenAudience                string         `json:"token_audience"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	BcryptCost                   int            `json:"bcrypt_cost"`
	AuthRequestTimeout           timex.Duration `json:"auth_request_timeout"`
	FileRequestTimeout           timex.Duration `json:"file_request_timeout"`
	PresignTTL                   timex.Duration `json:"presign_ttl"`
	S3RootUser                   string         `json:"s3_root_user"`
	S3RootPassword               string         `json:"s3_root_password"`
	S3Bucket                     string         `json:"s3_bucket"`
	S3Region                     string         `json:"s3_region"`
	S3BaseEndpoint               string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The lookup order for the JSON file path is the -c or -config command-line
// flag. If it is not set, no JSON file is loaded.
//
// If the file path is found, parseJson attempts to read and unmarshal it into
// a JsonConfig. The resulting values are copied into the target Config.
// Zero-valued JSON fields leave the corresponding Config fields untouched so
// that defaults survive a partial file. If the file cannot be read or
// contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setDuration := func(dst *time.Duration, v timex.Duration) {
		if v.Duration != 0 {
			*dst = v.Duration
		}
	}

	setString(&config.AuthEndpointAddr, c.AuthEndpointAddr)
	setString(&config.FileEndpointAddr, c.FileEndpointAddr)
	setString(&config.GatewayEndpointAddr, c.GatewayEndpointAddr)
	setString(&config.AuthBackendURL, c.AuthBackendURL)
	setString(&config.FileBackendURL, c.FileBackendURL)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.TokenIssuer, c.TokenIssuer)
	setString(&config.TokenAudience, c.TokenAudience)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	if c.BcryptCost != 0 {
		config.BcryptCost = c.BcryptCost
	}
	setDuration(&config.AuthRequestTimeout, c.AuthRequestTimeout)
	setDuration(&config.FileRequestTimeout, c.FileRequestTimeout)
	setDuration(&config.PresignTTL, c.PresignTTL)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}
