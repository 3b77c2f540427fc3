package main

// Defaults match the documented container environment; every value can
// be overridden by environment variable or config file.
const (
	defaultIntervalSeconds = 60

	defaultPiholeAlias   = "pihole"
	defaultPiholeAddress = "http://pi.hole:80"

	defaultNumTopItems   = 10
	defaultNumTopClients = 10

	defaultInfluxAddress = "http://influxdb:8086"
	defaultInfluxOrg     = "my-org"
	defaultInfluxBucket  = "pihole"

	defaultStatusAddr = "127.0.0.1:9091"
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	IntervalSeconds int `mapstructure:"interval-seconds"`

	PiholeAlias    string `mapstructure:"pihole-alias"`
	PiholeAddress  string `mapstructure:"pihole-address"`
	PiholePassword string `mapstructure:"pihole-password"`
	NumTopItems    int    `mapstructure:"pihole-num-top-items"`
	NumTopClients  int    `mapstructure:"pihole-num-top-clients"`

	InfluxAddress      string `mapstructure:"influxdb-address"`
	InfluxOrg          string `mapstructure:"influxdb-org"`
	InfluxToken        string `mapstructure:"influxdb-token"`
	InfluxBucket       string `mapstructure:"influxdb-bucket"`
	InfluxCreateBucket bool   `mapstructure:"influxdb-create-bucket"`
	InfluxVerifySSL    bool   `mapstructure:"influxdb-verify-ssl"`

	StatusEnabled bool   `mapstructure:"status-enabled"`
	StatusAddr    string `mapstructure:"status-addr"`

	Debug bool `mapstructure:"debug"`

	ConfigPath string `mapstructure:"-"` // not from config file
}
