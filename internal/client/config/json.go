package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/contactbook/internal/flagx"
	"github.com/dmitrijs2005/contactbook/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It is
// pre-filled from the current Config so absent keys keep their value.
type JsonConfig struct {
	StorageDriver        string         `json:"storage_driver"`
	DatabaseDSN          string         `json:"database_dsn"`
	RedisAddr            string         `json:"redis_addr"`
	RedisDB              int            `json:"redis_db"`
	SimulateLatency      bool           `json:"simulate_latency"`
	GeocoderURL          string         `json:"geocoder_url"`
	GeocoderUserAgent    string         `json:"geocoder_user_agent"`
	GeocoderCountryCodes string         `json:"geocoder_country_codes"`
	GeocoderLanguage     string         `json:"geocoder_language"`
	GeocoderSearch       bool           `json:"geocoder_search"`
	GeocoderTimeout      timex.Duration `json:"geocoder_timeout"`
	LogLevel             string         `json:"log_level"`
	LogPretty            bool           `json:"log_pretty"`
	MetricsAddr          string         `json:"metrics_addr"`
}

// parseJson overlays cfg with the file named by -c/-config, if any.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	jc := JsonConfig{
		StorageDriver:        cfg.StorageDriver,
		DatabaseDSN:          cfg.DatabaseDSN,
		RedisAddr:            cfg.RedisAddr,
		RedisDB:              cfg.RedisDB,
		SimulateLatency:      cfg.SimulateLatency,
		GeocoderURL:          cfg.GeocoderURL,
		GeocoderUserAgent:    cfg.GeocoderUserAgent,
		GeocoderCountryCodes: cfg.GeocoderCountryCodes,
		GeocoderLanguage:     cfg.GeocoderLanguage,
		GeocoderSearch:       cfg.GeocoderSearch,
		GeocoderTimeout:      timex.Duration{Duration: cfg.GeocoderTimeout},
		LogLevel:             cfg.LogLevel,
		LogPretty:            cfg.LogPretty,
		MetricsAddr:          cfg.MetricsAddr,
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.StorageDriver = jc.StorageDriver
	cfg.DatabaseDSN = jc.DatabaseDSN
	cfg.RedisAddr = jc.RedisAddr
	cfg.RedisDB = jc.RedisDB
	cfg.SimulateLatency = jc.SimulateLatency
	cfg.GeocoderURL = jc.GeocoderURL
	cfg.GeocoderUserAgent = jc.GeocoderUserAgent
	cfg.GeocoderCountryCodes = jc.GeocoderCountryCodes
	cfg.GeocoderLanguage = jc.GeocoderLanguage
	cfg.GeocoderSearch = jc.GeocoderSearch
	cfg.GeocoderTimeout = jc.GeocoderTimeout.Duration
	cfg.LogLevel = jc.LogLevel
	cfg.LogPretty = jc.LogPretty
	cfg.MetricsAddr = jc.MetricsAddr
	return nil
}
