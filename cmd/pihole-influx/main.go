package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var configPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (optional)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("pihole-influx - Pi-hole to InfluxDB monitor\n")
		fmt.Printf("  Version: %s\n", version)
		fmt.Printf("  Commit:  %s\n", commit)
		fmt.Printf("  Built:   %s\n", buildTime)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	v := viper.New()

	v.SetDefault("interval-seconds", defaultIntervalSeconds)
	v.SetDefault("pihole-alias", defaultPiholeAlias)
	v.SetDefault("pihole-address", defaultPiholeAddress)
	v.SetDefault("pihole-password", "")
	v.SetDefault("pihole-num-top-items", defaultNumTopItems)
	v.SetDefault("pihole-num-top-clients", defaultNumTopClients)
	v.SetDefault("influxdb-address", defaultInfluxAddress)
	v.SetDefault("influxdb-org", defaultInfluxOrg)
	v.SetDefault("influxdb-token", "")
	v.SetDefault("influxdb-bucket", defaultInfluxBucket)
	v.SetDefault("influxdb-create-bucket", false)
	v.SetDefault("influxdb-verify-ssl", true)
	v.SetDefault("status-enabled", false)
	v.SetDefault("status-addr", defaultStatusAddr)
	v.SetDefault("debug", false)

	// Environment variable names are kept compatible with the
	// documented container interface.
	v.BindEnv("interval-seconds", "INTERVAL_SECONDS")
	v.BindEnv("pihole-alias", "PIHOLE_ALIAS")
	v.BindEnv("pihole-address", "PIHOLE_ADDRESS")
	v.BindEnv("pihole-password", "PIHOLE_PASSWORD")
	v.BindEnv("pihole-num-top-items", "PIHOLE_NUM_TOP_ITEMS")
	v.BindEnv("pihole-num-top-clients", "PIHOLE_NUM_TOP_CLIENTS")
	v.BindEnv("influxdb-address", "INFLUXDB_ADDRESS")
	v.BindEnv("influxdb-org", "INFLUXDB_ORG")
	v.BindEnv("influxdb-token", "INFLUXDB_TOKEN")
	v.BindEnv("influxdb-bucket", "INFLUXDB_BUCKET")
	v.BindEnv("influxdb-create-bucket", "INFLUXDB_CREATE_BUCKET")
	v.BindEnv("influxdb-verify-ssl", "INFLUXDB_VERIFY_SSL")
	v.BindEnv("status-enabled", "STATUS_ENABLED")
	v.BindEnv("status-addr", "STATUS_ADDR")
	v.BindEnv("debug", "DEBUG")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			var configFileNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
				return cfg, err
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.IntervalSeconds <= 0 {
		return cfg, fmt.Errorf("invalid interval-seconds: %d", cfg.IntervalSeconds)
	}
	if cfg.InfluxToken == "" {
		return cfg, errors.New("no InfluxDB auth token provided")
	}

	return cfg, nil
}
