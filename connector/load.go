package connector

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override read by LoadConfig.
const EnvPrefix = "PGSWARM_"

// LoadConfig builds a Config from an optional YAML file, then applies
// PGSWARM_* overrides. Overrides come from the process environment first and
// from the given dotenv files second; with no files, ".env" is read if it
// exists. Pool defaults are filled last.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	dotenv, err := readDotenv(envFiles)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+key]
		return v, ok
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	cfg.Pool = cfg.Pool.WithDefaults()
	return cfg, nil
}

func readDotenv(files []string) (map[string]string, error) {
	if len(files) == 0 {
		env, err := godotenv.Read(".env")
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read .env: %w", err)
		}
		return env, nil
	}
	env, err := godotenv.Read(files...)
	if err != nil {
		return nil, fmt.Errorf("read env files: %w", err)
	}
	return env, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"HOST":             &cfg.Host,
		"DATABASE":         &cfg.Database,
		"USER":             &cfg.Username,
		"PASSWORD":         &cfg.Password,
		"CHARSET":          &cfg.Charset,
		"SSLMODE":          &cfg.SSLMode,
		"APPLICATION_NAME": &cfg.ApplicationName,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPORT: %w", EnvPrefix, err)
		}
		cfg.Port = port
	}
	if v, ok := lookup("POOL_MAX_OPEN"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sPOOL_MAX_OPEN: %w", EnvPrefix, err)
		}
		cfg.Pool.MaxOpen = n
	}

	durations := map[string]*time.Duration{
		"POOL_MAX_IDLE_TIME": &cfg.Pool.MaxIdleTime,
		"CONNECT_TIMEOUT":    &cfg.ConnectTimeout,
	}
	for key, dst := range durations {
		v, ok := lookup(key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
	}
	return nil
}
