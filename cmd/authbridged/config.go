package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/viant/afs"

	"github.com/plexora/authbridge/provider"
	"github.com/plexora/authbridge/provider/canvas"
	"github.com/plexora/authbridge/provider/docvault"
	"github.com/plexora/authbridge/provider/tracker"
	"github.com/plexora/authbridge/server"
)

// Config is the daemon configuration, loaded as JSON from any afs-supported
// URL.
type Config struct {
	Name    string `json:"name,omitempty"`
	Version string `json:"version,omitempty"`

	Addr      string `json:"addr,omitempty"`
	PublicURL string `json:"publicURL"`

	// SigningKeyURL points at the HMAC key material for the token issuer.
	SigningKeyURL string `json:"signingKeyURL"`

	DefaultProvider       string     `json:"defaultProvider,omitempty"`
	CompatAuthorizeParams url.Values `json:"compatAuthorizeParams,omitempty"`

	Providers ProvidersConfig `json:"providers"`

	CORS *server.Cors `json:"cors,omitempty"`

	TrackerAPIBaseURL string `json:"trackerAPIBaseURL,omitempty"`
}

// ProvidersConfig enables a downstream provider by configuring it.
type ProvidersConfig struct {
	Tracker  *tracker.Config  `json:"tracker,omitempty"`
	Canvas   *canvas.Config   `json:"canvas,omitempty"`
	Docvault *docvault.Config `json:"docvault,omitempty"`
}

// loadConfig downloads and decodes the configuration.
func loadConfig(ctx context.Context, configURL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, configURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %v: %w", configURL, err)
	}
	config := &Config{}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return config, config.Validate()
}

// loadSigningKey downloads the issuer key material.
func loadSigningKey(ctx context.Context, keyURL string) ([]byte, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, keyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing key from %v: %w", keyURL, err)
	}
	key := []byte(strings.TrimSpace(string(data)))
	if len(key) < 32 {
		return nil, errors.New("signing key must be at least 32 bytes")
	}
	return key, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.PublicURL == "" {
		return errors.New("publicURL is required")
	}
	if c.SigningKeyURL == "" {
		return errors.New("signingKeyURL is required")
	}
	if c.Providers.Tracker == nil && c.Providers.Canvas == nil && c.Providers.Docvault == nil {
		return errors.New("at least one provider must be configured")
	}
	return nil
}

// adapters builds the configured provider adapters.
func (c *Config) adapters() []provider.Adapter {
	var ret []provider.Adapter
	if c.Providers.Tracker != nil {
		ret = append(ret, tracker.New(c.Providers.Tracker))
	}
	if c.Providers.Canvas != nil {
		ret = append(ret, canvas.New(c.Providers.Canvas))
	}
	if c.Providers.Docvault != nil {
		ret = append(ret, docvault.New(c.Providers.Docvault))
	}
	return ret
}
