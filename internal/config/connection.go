package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/kailas-cloud/meiligate/internal/domain"
)

// Connection is the resolved Meilisearch endpoint. Built once at startup.
type Connection struct {
	URL    string
	APIKey string
}

// connectionEnv is the raw environment surface of the connection.
type connectionEnv struct {
	URL       string `env:"MEILISEARCH_URL"`
	Addr      string `env:"MEILI_HTTP_ADDR"`
	HTTPS     bool   `env:"MEILI_HTTPS_URL" envDefault:"false"`
	MasterKey string `env:"MEILI_MASTER_KEY"`
	APIKey    string `env:"MEILISEARCH_API_KEY"`
}

// ResolveConnection builds the connection from an environment map.
// MEILISEARCH_URL wins over MEILI_HTTP_ADDR; the master key wins over its alias.
func ResolveConnection(environ map[string]string) (Connection, error) {
	var raw connectionEnv
	if err := env.ParseWithOptions(&raw, env.Options{Environment: environ}); err != nil {
		return Connection{}, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	conn := Connection{APIKey: raw.MasterKey}
	if conn.APIKey == "" {
		conn.APIKey = raw.APIKey
	}

	switch {
	case strings.TrimSpace(raw.URL) != "":
		conn.URL = strings.TrimRight(strings.TrimSpace(raw.URL), "/")
	case strings.TrimSpace(raw.Addr) != "":
		scheme := "http"
		if raw.HTTPS {
			scheme = "https"
		}
		conn.URL = scheme + "://" + stripScheme(strings.TrimSpace(raw.Addr))
	default:
		return Connection{}, fmt.Errorf("%w: MEILI_HTTP_ADDR or MEILISEARCH_URL is required", domain.ErrInvalidConfig)
	}

	u, err := url.Parse(conn.URL)
	if err != nil || u.Host == "" {
		return Connection{}, fmt.Errorf("%w: invalid meilisearch url %q", domain.ErrInvalidConfig, conn.URL)
	}
	return conn, nil
}

func stripScheme(addr string) string {
	if _, rest, ok := strings.Cut(addr, "://"); ok {
		addr = rest
	}
	return strings.TrimRight(addr, "/")
}

// Environ returns the process environment merged over the optional dotenv
// file at path. A missing file is not an error.
func Environ(path string) (map[string]string, error) {
	merged := map[string]string{}
	if path != "" {
		fileVars, err := godotenv.Read(path)
		switch {
		case err == nil:
			for k, v := range fileVars {
				merged[k] = v
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
	for k, v := range env.ToMap(os.Environ()) {
		merged[k] = v
	}
	return merged, nil
}

// Redacted describes the connection without leaking the key.
func (c Connection) Redacted() string {
	if c.APIKey == "" {
		return c.URL + " (no key)"
	}
	return c.URL + " (key set)"
}
