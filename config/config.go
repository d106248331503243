// Package config loads the process configuration. The result is built once
// at startup and never mutated afterwards.
package config

import (
	"errors"
	"io/fs"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	// SiteName is shown by the presentation layer on every page.
	SiteName string
	Listen   Listen
	// Dbfile is the path of the sqlite database.
	Dbfile string
	// Posterdir stores uploaded poster images.
	Posterdir string
	// Cachedir stores resized poster renditions, empty disables the cache.
	Cachedir string
	// SessionSecret signs session cookies.
	SessionSecret string
	// ImageQualityPoster is the JPEG quality for resized posters.
	ImageQualityPoster int
	// Logfile: path, "syslog", "stdout" or "none".
	Logfile string
}

type Listen struct {
	Port    int
	TLS     bool
	TLSCert string
	TLSKey  string
}

// Load reads the config file and command line flags. Flags win.
func Load() (*Config, error) {
	pflag.String("config", "filmlog-server.yaml", "Path of configuration file")
	pflag.String("logfile", "", "Path of logfile. Use 'syslog' for syslog, 'stdout' "+
		"for standard output, or 'none' to disable logging.")
	pflag.Int("port", 0, "Port to listen on, overrides the config file")
	pflag.Parse()

	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("sitename", "Film Log")
	v.SetDefault("listen.port", 8080)
	v.SetDefault("dbfile", "filmlog.db")
	v.SetDefault("posterdir", "posters")
	v.SetDefault("imagequalityposter", 85)

	if err := v.BindPFlags(pflag.CommandLine); err != nil {
		return nil, err
	}

	v.SetConfigFile(v.GetString("config"))
	if err := v.ReadInConfig(); err != nil {
		// Defaults and flags are enough to run, only a present-but-broken
		// file is fatal.
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	c := &Config{
		SiteName: v.GetString("sitename"),
		Listen: Listen{
			Port:    v.GetInt("listen.port"),
			TLS:     v.GetBool("listen.tls"),
			TLSCert: v.GetString("listen.tlscert"),
			TLSKey:  v.GetString("listen.tlskey"),
		},
		Dbfile:             v.GetString("dbfile"),
		Posterdir:          v.GetString("posterdir"),
		Cachedir:           v.GetString("cachedir"),
		SessionSecret:      v.GetString("sessionsecret"),
		ImageQualityPoster: v.GetInt("imagequalityposter"),
		Logfile:            v.GetString("logfile"),
	}
	if flagPort := v.GetInt("port"); flagPort != 0 {
		c.Listen.Port = flagPort
	}
	if c.SessionSecret == "" {
		return nil, errors.New("sessionsecret must be set")
	}
	return c, nil
}
