package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// StoreMode selects which time-entry store backend the tracker talks to.
const (
	StoreSQLite = "sqlite"
	StoreHTTP   = "http"
)

// Location modes map onto the permission states surfaced to the UI:
// "always" -> granted, "never" -> denied, "ask" -> prompt.
const (
	LocationAlways = "always"
	LocationAsk    = "ask"
	LocationNever  = "never"
)

type File struct {
	UserID       string `yaml:"user_id"`
	CompanyID    string `yaml:"company_id"`
	AuthToken    string `yaml:"auth_token"`
	Store        string `yaml:"store"`
	APIBaseURL   string `yaml:"api_base_url"`
	RealtimeURL  string `yaml:"realtime_url"`
	LocationMode string `yaml:"location_mode"`
	LocationURL  string `yaml:"location_url"`

	ReconcileSeconds int `yaml:"reconcile_seconds"`
	PersistSeconds   int `yaml:"persist_seconds"`
	ProbeSeconds     int `yaml:"probe_seconds"`
	DriftMinutes     int `yaml:"drift_minutes"`
}

type Config struct {
	DataDir      string
	DBPath       string
	SnapshotPath string

	UserID       string
	CompanyID    string
	AuthToken    string
	Store        string
	APIBaseURL   string
	RealtimeURL  string
	LocationMode string
	LocationURL  string

	TickInterval      time.Duration
	PersistInterval   time.Duration
	ReconcileInterval time.Duration
	ProbeInterval     time.Duration
	DriftTolerance    time.Duration
	LocationTimeout   time.Duration
	StoreTimeout      time.Duration
}

// New builds the runtime config for a data directory, merging defaults with
// an optional config.yaml found inside it.
func New(dataDir string) (Config, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("resolve home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".witar")
	}

	cfg := Config{
		DataDir:      dataDir,
		DBPath:       filepath.Join(dataDir, "witar.db"),
		SnapshotPath: filepath.Join(dataDir, "active-session.json"),

		Store:        StoreSQLite,
		LocationMode: LocationAsk,

		TickInterval:      time.Second,
		PersistInterval:   10 * time.Second,
		ReconcileInterval: 30 * time.Second,
		ProbeInterval:     15 * time.Second,
		DriftTolerance:    5 * time.Minute,
		LocationTimeout:   10 * time.Second,
		StoreTimeout:      10 * time.Second,
	}

	file, err := loadFile(filepath.Join(dataDir, "config.yaml"))
	if err != nil {
		return Config{}, err
	}
	cfg.apply(file)

	if v := os.Getenv("WITAR_USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("WITAR_COMPANY_ID"); v != "" {
		cfg.CompanyID = v
	}
	if v := os.Getenv("WITAR_AUTH_TOKEN"); v != "" {
		cfg.AuthToken = v
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string) (File, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("read config: %w", err)
	}
	file := File{}
	if err := yaml.Unmarshal(payload, &file); err != nil {
		return File{}, fmt.Errorf("decode config: %w", err)
	}
	return file, nil
}

func (c *Config) apply(file File) {
	if file.UserID != "" {
		c.UserID = file.UserID
	}
	if file.CompanyID != "" {
		c.CompanyID = file.CompanyID
	}
	if file.AuthToken != "" {
		c.AuthToken = file.AuthToken
	}
	if file.Store != "" {
		c.Store = file.Store
	}
	if file.APIBaseURL != "" {
		c.APIBaseURL = file.APIBaseURL
	}
	if file.RealtimeURL != "" {
		c.RealtimeURL = file.RealtimeURL
	}
	if file.LocationMode != "" {
		c.LocationMode = file.LocationMode
	}
	if file.LocationURL != "" {
		c.LocationURL = file.LocationURL
	}
	if file.ReconcileSeconds > 0 {
		c.ReconcileInterval = time.Duration(file.ReconcileSeconds) * time.Second
	}
	if file.PersistSeconds > 0 {
		c.PersistInterval = time.Duration(file.PersistSeconds) * time.Second
	}
	if file.ProbeSeconds > 0 {
		c.ProbeInterval = time.Duration(file.ProbeSeconds) * time.Second
	}
	if file.DriftMinutes > 0 {
		c.DriftTolerance = time.Duration(file.DriftMinutes) * time.Minute
	}
}

func (c Config) validate() error {
	switch c.Store {
	case StoreSQLite, StoreHTTP:
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	if c.Store == StoreHTTP && c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required for the http store")
	}
	switch c.LocationMode {
	case LocationAlways, LocationAsk, LocationNever:
	default:
		return fmt.Errorf("unknown location mode %q", c.LocationMode)
	}
	return nil
}
