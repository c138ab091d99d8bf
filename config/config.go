// Package config loads the service configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"labcomm/utils"
)

// Configuration validation errors.
var (
	ErrMissingListenAddr     = errors.New("server.addr is required")
	ErrInvalidLogLevel       = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat      = errors.New("logging.format must be 'text' or 'json'")
	ErrInvalidDatabaseDriver = errors.New("database.driver must be 'postgres' or 'sqlite'")
	ErrMissingDatabaseDSN    = errors.New("database.dsn is required")
	ErrInvalidPermissionMode = errors.New("auth.backend must be 'static' or 'redis'")
	ErrMissingRedisAddr      = errors.New("redis.addr is required when auth.backend is 'redis'")
	ErrInvalidTimeout        = errors.New("fetcher.timeout_sec must be at least 1")
	ErrInvalidBodyLimit      = errors.New("fetcher.max_body_kb must be at least 1")
	ErrIncompleteTwitter     = errors.New("twitter credentials must be all set or all empty")
	ErrMissingFacebookPage   = errors.New("facebook.page_id is required when facebook.access_token is set")
	ErrInvalidCount          = errors.New("counts must be at least 1")
	ErrInvalidURL            = errors.New("must be an absolute http(s) URL")
)

const (
	DefaultListenAddr        = ":8000"
	DefaultTwitterAPIBase    = "https://api.twitter.com/1.1"
	DefaultFacebookGraphBase = "https://graph.facebook.com"
	DefaultWikipediaAPIURL   = "https://en.wikipedia.org/w/api.php"
	DefaultUserHeader        = "X-Remote-User"
	DefaultRedisKeyPrefix    = "labcomm:perms:"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Auth      AuthConfig      `yaml:"auth"`
	Fetcher   FetcherConfig   `yaml:"fetcher"`
	Twitter   TwitterConfig   `yaml:"twitter"`
	Facebook  FacebookConfig  `yaml:"facebook"`
	Wikipedia WikipediaConfig `yaml:"wikipedia"`
	Documents DocumentsConfig `yaml:"documents"`
	Calendar  CalendarConfig  `yaml:"calendar"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
	Migrate  bool   `yaml:"migrate"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AuthConfig describes where caller identity and permissions come from.
// Permissions maps a username to the permission names it holds and is only
// read by the static backend.
type AuthConfig struct {
	Backend     string              `yaml:"backend"`
	UserHeader  string              `yaml:"user_header"`
	KeyPrefix   string              `yaml:"key_prefix"`
	Permissions map[string][]string `yaml:"permissions"`
}

type FetcherConfig struct {
	TimeoutSec int    `yaml:"timeout_sec"`
	MaxBodyKb  int    `yaml:"max_body_kb"`
	UserAgent  string `yaml:"user_agent"`
}

// Timeout returns the outbound request timeout.
func (f *FetcherConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// MaxBodyBytes returns the response body limit in bytes.
func (f *FetcherConfig) MaxBodyBytes() int64 {
	return int64(f.MaxBodyKb) * 1024
}

type TwitterConfig struct {
	ConsumerKey       string `yaml:"consumer_key"`
	ConsumerSecret    string `yaml:"consumer_secret"`
	AccessToken       string `yaml:"access_token"`
	AccessTokenSecret string `yaml:"access_token_secret"`
	ScreenName        string `yaml:"screen_name"`
	Count             int    `yaml:"count"`
	APIBase           string `yaml:"api_base"`
}

// Enabled reports whether every credential needed to sign requests is present.
func (t *TwitterConfig) Enabled() bool {
	return t.ConsumerKey != "" && t.ConsumerSecret != "" &&
		t.AccessToken != "" && t.AccessTokenSecret != ""
}

func (t *TwitterConfig) anySet() bool {
	return t.ConsumerKey != "" || t.ConsumerSecret != "" ||
		t.AccessToken != "" || t.AccessTokenSecret != ""
}

type FacebookConfig struct {
	AccessToken string `yaml:"access_token"`
	PageID      string `yaml:"page_id"`
	GraphBase   string `yaml:"graph_base"`
	PostsLimit  int    `yaml:"posts_limit"`
	LinksLimit  int    `yaml:"links_limit"`
	PhotosLimit int    `yaml:"photos_limit"`
}

type WikipediaConfig struct {
	Username string `yaml:"username"`
	Count    int    `yaml:"count"`
	APIURL   string `yaml:"api_url"`
}

// DocumentsConfig holds the URLs of the markdown documents shown verbatim.
// An empty URL is allowed: the page renders its placeholder.
type DocumentsConfig struct {
	LabRulesURL          string `yaml:"lab_rules_url"`
	PublicationPolicyURL string `yaml:"publication_policy_url"`
	DataSharingPolicyURL string `yaml:"data_sharing_policy_url"`
}

type CalendarConfig struct {
	GoogleCalendarID string `yaml:"google_calendar_id"`
}

// LoadConfig loads configuration from a YAML file, applies environment
// overrides and defaults, and validates the result.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse builds a configuration from YAML bytes. Environment overrides and
// defaults are applied before validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// FromEnv builds a configuration from environment variables only.
func FromEnv() (*Config, error) {
	return Parse(nil)
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Server.Addr, "LABCOMM_SERVER_ADDR")
	setString(&c.Logging.Level, "LABCOMM_LOG_LEVEL")
	setString(&c.Logging.Format, "LABCOMM_LOG_FORMAT")

	setString(&c.Database.Driver, "LABCOMM_DATABASE_DRIVER")
	setString(&c.Database.DSN, "LABCOMM_DATABASE_DSN")
	if v := os.Getenv("LABCOMM_DATABASE_MAX_CONNS"); v != "" {
		c.Database.MaxConns = int32(utils.IntFromString(v, int(c.Database.MaxConns)))
	}
	if v := os.Getenv("LABCOMM_DATABASE_MIGRATE"); v != "" {
		c.Database.Migrate = v == "1" || strings.EqualFold(v, "true")
	}

	setString(&c.Redis.Addr, "LABCOMM_REDIS_ADDR")
	setString(&c.Redis.Password, "LABCOMM_REDIS_PASSWORD")
	if v := os.Getenv("LABCOMM_REDIS_DB"); v != "" {
		c.Redis.DB = utils.IntFromString(v, c.Redis.DB)
	}
	setString(&c.Auth.Backend, "LABCOMM_AUTH_BACKEND")

	setString(&c.Twitter.ConsumerKey, "LABCOMM_TWITTER_CONSUMER_KEY")
	setString(&c.Twitter.ConsumerSecret, "LABCOMM_TWITTER_CONSUMER_SECRET")
	setString(&c.Twitter.AccessToken, "LABCOMM_TWITTER_ACCESS_TOKEN")
	setString(&c.Twitter.AccessTokenSecret, "LABCOMM_TWITTER_ACCESS_TOKEN_SECRET")
	setString(&c.Twitter.ScreenName, "LABCOMM_TWITTER_NAME")

	setString(&c.Facebook.AccessToken, "LABCOMM_FACEBOOK_ACCESS_TOKEN")
	setString(&c.Facebook.PageID, "LABCOMM_FACEBOOK_ID")

	setString(&c.Wikipedia.Username, "LABCOMM_WIKIPEDIA_USERNAME")

	setString(&c.Documents.LabRulesURL, "LABCOMM_LAB_RULES_FILE")
	setString(&c.Documents.PublicationPolicyURL, "LABCOMM_PUBLICATION_POLICY_FILE")
	setString(&c.Documents.DataSharingPolicyURL, "LABCOMM_DATA_SHARING_POLICY_FILE")

	setString(&c.Calendar.GoogleCalendarID, "LABCOMM_GOOGLE_CALENDAR_ID")
}

func setString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultListenAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.DSN == "" && c.Database.Driver == "sqlite" {
		c.Database.DSN = "labcomm.db"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Auth.Backend == "" {
		c.Auth.Backend = "static"
	}
	if c.Auth.UserHeader == "" {
		c.Auth.UserHeader = DefaultUserHeader
	}
	if c.Auth.KeyPrefix == "" {
		c.Auth.KeyPrefix = DefaultRedisKeyPrefix
	}
	if c.Fetcher.TimeoutSec == 0 {
		c.Fetcher.TimeoutSec = 10
	}
	if c.Fetcher.MaxBodyKb == 0 {
		c.Fetcher.MaxBodyKb = 2048
	}
	if c.Fetcher.UserAgent == "" {
		c.Fetcher.UserAgent = "labcomm/1.0"
	}
	if c.Twitter.Count == 0 {
		c.Twitter.Count = 50
	}
	if c.Twitter.APIBase == "" {
		c.Twitter.APIBase = DefaultTwitterAPIBase
	}
	if c.Facebook.GraphBase == "" {
		c.Facebook.GraphBase = DefaultFacebookGraphBase
	}
	if c.Facebook.PostsLimit == 0 {
		c.Facebook.PostsLimit = 100
	}
	if c.Facebook.LinksLimit == 0 {
		c.Facebook.LinksLimit = 5
	}
	if c.Facebook.PhotosLimit == 0 {
		c.Facebook.PhotosLimit = 100
	}
	if c.Wikipedia.Count == 0 {
		c.Wikipedia.Count = 50
	}
	if c.Wikipedia.APIURL == "" {
		c.Wikipedia.APIURL = DefaultWikipediaAPIURL
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrMissingListenAddr
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return ErrInvalidDatabaseDriver
	}
	if c.Database.DSN == "" {
		return ErrMissingDatabaseDSN
	}

	switch c.Auth.Backend {
	case "static":
	case "redis":
		if c.Redis.Addr == "" {
			return ErrMissingRedisAddr
		}
	default:
		return ErrInvalidPermissionMode
	}

	if c.Fetcher.TimeoutSec < 1 {
		return ErrInvalidTimeout
	}
	if c.Fetcher.MaxBodyKb < 1 {
		return ErrInvalidBodyLimit
	}

	if c.Twitter.anySet() && !c.Twitter.Enabled() {
		return ErrIncompleteTwitter
	}
	if c.Facebook.AccessToken != "" && c.Facebook.PageID == "" {
		return ErrMissingFacebookPage
	}

	counts := map[string]int{
		"twitter.count":         c.Twitter.Count,
		"facebook.posts_limit":  c.Facebook.PostsLimit,
		"facebook.links_limit":  c.Facebook.LinksLimit,
		"facebook.photos_limit": c.Facebook.PhotosLimit,
		"wikipedia.count":       c.Wikipedia.Count,
	}
	for name, count := range counts {
		if count < 1 {
			return fmt.Errorf("%w: %s", ErrInvalidCount, name)
		}
	}

	urls := map[string]string{
		"twitter.api_base":                  c.Twitter.APIBase,
		"facebook.graph_base":               c.Facebook.GraphBase,
		"wikipedia.api_url":                 c.Wikipedia.APIURL,
		"documents.lab_rules_url":           c.Documents.LabRulesURL,
		"documents.publication_policy_url":  c.Documents.PublicationPolicyURL,
		"documents.data_sharing_policy_url": c.Documents.DataSharingPolicyURL,
	}
	for name, raw := range urls {
		if raw == "" {
			continue
		}
		if !IsAbsoluteHTTPURL(raw) {
			return fmt.Errorf("%s %w", name, ErrInvalidURL)
		}
	}

	return nil
}

// IsAbsoluteHTTPURL reports whether raw parses as an http or https URL with a host.
func IsAbsoluteHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Host != ""
}

// String returns a string representation of the config without secrets.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Addr: %s, Database: %s, Auth: %s, Twitter: %t, Facebook: %t, Wikipedia: %s}",
		c.Server.Addr,
		c.Database.Driver,
		c.Auth.Backend,
		c.Twitter.Enabled(),
		c.Facebook.AccessToken != "",
		c.Wikipedia.Username,
	)
}
