// internal/app/system/trackerconfig/trackerconfig.go
//
// Package trackerconfig reads the tracker's YAML settings file. The file is
// looked up at an explicit path, or as config.yaml in the working directory
// or its parent.
package trackerconfig

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// FileName is the settings file searched for when no path is given.
const FileName = "config.yaml"

// ErrNotFound is returned by Find when no settings file exists.
var ErrNotFound = errors.New("trackerconfig: no " + FileName + " found")

// File is the parsed settings file.
type File struct {
	Mongo           Mongo                   `yaml:"mongo"`
	Flask           Flask                   `yaml:"flask"`
	DevMode         DevMode                 `yaml:"dev_mode"`
	OIDC            map[string]OIDCProvider `yaml:"oidc"`
	BaseURL         string                  `yaml:"base_url"`
	ResponseKeyCase string                  `yaml:"response_key_case"`
}

// Mongo holds the database connection settings.
type Mongo struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DB       string `yaml:"db"`
}

// Flask holds the session secret. The section name is kept so existing
// settings files work unchanged.
type Flask struct {
	Secret string `yaml:"secret"`
}

// DevMode toggles development helpers.
type DevMode struct {
	API     bool `yaml:"api"`     // mount the developer routes
	Testing bool `yaml:"testing"` // debug logging
}

// OIDCProvider configures one OpenID Connect login provider.
type OIDCProvider struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserinfoURL  string   `yaml:"userinfo_url"`
	Scopes       []string `yaml:"scopes"`
}

// URI builds a mongodb:// connection string, or "" when no host is set.
func (m Mongo) URI() string {
	if m.Host == "" {
		return ""
	}
	host := m.Host
	if m.Port != 0 {
		host = net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	}
	u := url.URL{Scheme: "mongodb", Host: host}
	if m.User != "" {
		u.User = url.UserPassword(m.User, m.Password)
	}
	return u.String()
}

// ProviderNames returns the configured OIDC provider names, sorted.
func (f *File) ProviderNames() []string {
	names := make([]string, 0, len(f.OIDC))
	for name := range f.OIDC {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Find returns the settings file to load. An explicit path must exist;
// otherwise config.yaml is searched in dir and then its parent.
func Find(explicit, dir string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("trackerconfig: %w", err)
		}
		return explicit, nil
	}
	for _, d := range []string{dir, filepath.Dir(dir)} {
		p := filepath.Join(d, FileName)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// Load parses the settings file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("trackerconfig: %w", err)
	}
	return Parse(data)
}

// Parse parses settings from YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("trackerconfig: parse: %w", err)
	}
	return &f, nil
}
