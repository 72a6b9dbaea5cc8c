package config

import (
	"errors"
	"flag"
	"net"
	"strconv"
	"strings"
	"time"
)

// NetAddress holds structured network address data for host and port.
// It implements the flag.Value interface.
type NetAddress struct {
	Host string
	Port int
}

// ParseFlags parses all configuration flags.
//
// Flags:
//
//	-a server address in format [host]:[port]
//	-backend storage backend (memory|postgres|sqlite|redis)
//	-d database DSN (postgres/sqlite backends)
//	-redis-url redis connection URL (redis backend)
//	-c/-config json file path with configs
//	-access-secret access-token signing secret
//	-refresh-secret refresh-token signing secret
//	-token-issuer token issuer name
//	-request-timeout request timeout (e.g., "30s", "1m")
//	-registration-policy auto_activate or pending_approval
//	-sweep-schedule cron spec for the expiry sweep
func ParseFlags() *StructuredConfig {
	var serverAddress NetAddress
	var backend string
	var databaseDSN string
	var redisURL string
	var jsonConfigPath string
	var accessSecret string
	var refreshSecret string
	var tokenIssuer string
	var requestTimeout time.Duration
	var registrationPolicy string
	var sweepSchedule string

	flag.Var(&serverAddress, "a", "Net address host:port")
	flag.StringVar(&backend, "backend", "", "Storage backend (memory|postgres|sqlite|redis)")
	flag.StringVar(&databaseDSN, "d", "", "Database DSN")
	flag.StringVar(&redisURL, "redis-url", "", "Redis connection URL")
	flag.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	flag.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	flag.StringVar(&accessSecret, "access-secret", "", "Access-token signing secret")
	flag.StringVar(&refreshSecret, "refresh-secret", "", "Refresh-token signing secret")
	flag.StringVar(&tokenIssuer, "token-issuer", "", "Token issuer")
	flag.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g., 30s, 1m)")
	flag.StringVar(&registrationPolicy, "registration-policy", "", "Registration policy (auto_activate|pending_approval)")
	flag.StringVar(&sweepSchedule, "sweep-schedule", "", "Cron spec for the expiry sweep")

	flag.Parse()

	return &StructuredConfig{
		App: App{
			RegistrationPolicy: registrationPolicy,
		},
		Tokens: Tokens{
			AccessSecret:  accessSecret,
			RefreshSecret: refreshSecret,
			Issuer:        tokenIssuer,
		},
		Storage: Storage{
			Backend: backend,
			DB: DB{
				DSN: databaseDSN,
			},
			Redis: Redis{
				URL: redisURL,
			},
		},
		Server: Server{
			HTTPAddress:    serverAddress.String(),
			RequestTimeout: requestTimeout,
		},
		Workers: Workers{
			SweepSchedule: sweepSchedule,
		},
		JSONFilePath: jsonConfigPath,
	}
}

// String returns a canonical host:port string for a NetAddress.
// If neither Host nor Port are set, it returns an empty string.
func (a *NetAddress) String() string {
	if a.Host == "" && a.Port == 0 {
		return ""
	}

	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Set parses the input string of form host:port and populates the NetAddress.
// It validates the port range, checks IP correctness unless host is "localhost",
// and returns an error if the format or values are invalid.
func (a *NetAddress) Set(s string) error {
	hostAndPort := strings.Split(s, ":")
	if len(hostAndPort) != 2 {
		return errors.New("need address in a form `host:port`")
	}

	host := hostAndPort[0]
	port, err := strconv.Atoi(hostAndPort[1])
	if err != nil {
		return err
	}

	if port < 1 {
		return errors.New("port number is a positive integer")
	}

	if host != "localhost" {
		ip := net.ParseIP(hostAndPort[0])
		if ip == nil {
			return errors.New("incorrect IP-address provided")
		}
	}

	a.Host = host
	a.Port = port
	return nil
}
