package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/guardkeeper/internal/flagx"
	"github.com/dmitrijs2005/guardkeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "30s" and integer nanoseconds are accepted.
type JsonConfig struct {
	EndpointAddrGRPC            string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	QueryTimeout                timex.Duration `json:"query_timeout"`
	KeyEncryptionSecret         string         `json:"key_encryption_secret"`
	WalletFactoryAddress        string         `json:"wallet_factory_address"`
	WalletInitCodeHash          string         `json:"wallet_init_code_hash"`
	RateLimit                   float64        `json:"rate_limit"`
	RateBurst                   int            `json:"rate_burst"`
}

// parseJson overlays values from the JSON file named by -c/-config onto
// config. Keys missing from the file keep their current values. If no file
// is given nothing happens; an unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.KeyEncryptionSecret, c.KeyEncryptionSecret)
	setString(&config.WalletFactoryAddress, c.WalletFactoryAddress)
	setString(&config.WalletInitCodeHash, c.WalletInitCodeHash)

	if c.AccessTokenValidityDuration.Duration > 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.QueryTimeout.Duration > 0 {
		config.QueryTimeout = c.QueryTimeout.Duration
	}
	if c.RateLimit > 0 {
		config.RateLimit = c.RateLimit
	}
	if c.RateBurst > 0 {
		config.RateBurst = c.RateBurst
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
