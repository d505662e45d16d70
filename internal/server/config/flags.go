package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/guardkeeper/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-q int      per-operation storage timeout, seconds
//	-k string   key encryption secret for EOA private keys
//	-f string   wallet factory address
//	-i string   wallet init code hash
//	-l float    per-account request rate, requests per second
//	-b int      per-account request burst
//
// Only the flags above are parsed; everything else in os.Args is ignored
// so other components can define their own.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-q", "-k", "-f", "-i", "-l", "-b"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	queryTimeout := fs.Int("q", int(config.QueryTimeout.Seconds()), "query timeout (in seconds)")

	fs.StringVar(&config.KeyEncryptionSecret, "k", config.KeyEncryptionSecret, "key encryption secret")
	fs.StringVar(&config.WalletFactoryAddress, "f", config.WalletFactoryAddress, "wallet factory address")
	fs.StringVar(&config.WalletInitCodeHash, "i", config.WalletInitCodeHash, "wallet init code hash")
	fs.Float64Var(&config.RateLimit, "l", config.RateLimit, "requests per second per account")
	fs.IntVar(&config.RateBurst, "b", config.RateBurst, "request burst per account")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
	config.QueryTimeout = time.Duration(*queryTimeout) * time.Second
}
