package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8000")
//	-g string   gRPC health bind address (e.g., ":50051")
//	-s string   JWT HMAC secret key
//	-t int      access token validity, minutes
//	-o int      OTP validity, minutes
//	-e string   DynamoDB endpoint URL (local emulators)
//	-r string   Redis address
//	-l string   log level
//	-dev        development mode (memory storage, log mailer)
//
// os.Args is first filtered with flagx.FilterArgs so flags owned by other
// components do not break parsing.
func parseFlags(config *Config) error {
	return applyFlags(config, os.Args[1:])
}

func applyFlags(config *Config, osArgs []string) error {
	args := flagx.FilterArgs(osArgs, []string{"-a", "-g", "-s", "-t", "-o", "-e", "-r", "-l"})
	if flagx.LookupBool(osArgs, "dev") {
		config.DevelopmentMode = true
	}

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve HTTP")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "address and port to serve gRPC health")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidity := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access token validity (in minutes)")
	otpValidity := fs.Int("o", int(config.OTPValidityDuration.Minutes()), "otp validity (in minutes)")

	fs.StringVar(&config.AWSEndpointURL, "e", config.AWSEndpointURL, "DynamoDB endpoint URL")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "Redis address")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// durations are only touched when given, so sub-minute values from
	// other sources survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidity) * time.Minute
		case "o":
			config.OTPValidityDuration = time.Duration(*otpValidity) * time.Minute
		}
	})
	return nil
}
