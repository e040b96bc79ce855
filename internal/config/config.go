// Package config содержит логику чтения конфигурации координатора обменов.
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации координатора обменов.
type Config struct {
	RunAddress         string  `env:"RUN_ADDRESS"`
	DatabaseURI        string  `env:"DATABASE_URI"`
	NotifyAddress      string  `env:"NOTIFY_GATEWAY_ADDRESS"`
	AuthSecret         string  `env:"AUTH_SECRET"`
	AdminIDs           []int64 `env:"ADMIN_IDS" envSeparator:","`
	RequireAttribution bool    `env:"REQUIRE_ATTRIBUTION" envDefault:"true"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envNotifyAddress := cfg.NotifyAddress
	envAuthSecret := cfg.AuthSecret
	envAdminIDs := cfg.AdminIDs
	envRequireAttribution := cfg.RequireAttribution
	_, requireAttributionSet := os.LookupEnv("REQUIRE_ATTRIBUTION")

	var adminsFlag string
	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.NotifyAddress, "n", "", "notification gateway address")
	flag.StringVar(&cfg.AuthSecret, "s", "", "secret key for auth cookies")
	flag.StringVar(&adminsFlag, "admins", "", "comma-separated admin ids")
	flag.BoolVar(&cfg.RequireAttribution, "require-attribution", true, "reject registration without a resolvable attribution code")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envNotifyAddress != "" {
		cfg.NotifyAddress = envNotifyAddress
	}
	if envAuthSecret != "" {
		cfg.AuthSecret = envAuthSecret
	}
	if requireAttributionSet {
		cfg.RequireAttribution = envRequireAttribution
	}

	if len(envAdminIDs) > 0 {
		cfg.AdminIDs = envAdminIDs
	} else if adminsFlag != "" {
		ids, err := parseAdminIDs(adminsFlag)
		if err != nil {
			return nil, err
		}
		cfg.AdminIDs = ids
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}

	return cfg, nil
}

func parseAdminIDs(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse admin id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
