package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), gormConfig(cfg))
}

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	user := cfg.User
	if cfg.Password != "" {
		user = cfg.User + ":" + cfg.Password
	}

	merged := mergeOptions(map[string]string{
		"charset":   "utf8mb4",
		"parseTime": "True",
		"loc":       "UTC",
	}, cfg.Options)
	opts := make([]string, 0, len(merged))
	for _, kv := range merged {
		opts = append(opts, kv[0]+"="+kv[1])
	}

	host := valueOr(cfg.Host, "127.0.0.1")
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?%s", user, host, intOr(cfg.Port, 3306), cfg.Name, strings.Join(opts, "&")), nil
}
