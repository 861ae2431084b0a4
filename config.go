package segsync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ozanturksever/segsync/klaviyo"
)

const (
	DefaultCacheFile      = "segment_cache.json"
	DefaultRequestTimeout = 30 * time.Second
	DefaultSubjectPrefix  = "segsync"
)

// FileConfig is the synchronizer configuration loaded from a JSON file.
// The process refuses to start without a valid configuration.
type FileConfig struct {
	// APIKey is the Klaviyo private API key.
	APIKey string `json:"apiKey"`

	// SegmentID identifies the remote segment to synchronize.
	SegmentID string `json:"segmentId"`

	// SegmentName is the segment's display name, used in event properties
	// and as the tag value patched onto member profiles.
	SegmentName string `json:"segmentName"`

	// CacheFile is the path of the local membership snapshot.
	CacheFile string `json:"cacheFile"`

	// IdentityMode selects whether members are keyed by profile id or by
	// email address. Mixing modes across runs breaks the diff, so the mode
	// is part of the persisted configuration. Defaults to "id".
	IdentityMode klaviyo.IdentityMode `json:"identityMode,omitempty"`

	// TagProperty is the list-valued profile property patched on join/leave.
	TagProperty string `json:"tagProperty,omitempty"`

	// APIURL overrides the Klaviyo API base URL.
	APIURL string `json:"apiUrl,omitempty"`

	// Revision pins the Klaviyo API version header.
	Revision string `json:"revision,omitempty"`

	// PageSize is the page[size] of the first membership request.
	PageSize int `json:"pageSize,omitempty"`

	// MaxPages bounds pagination so a cyclic next link cannot loop forever.
	MaxPages int `json:"maxPages,omitempty"`

	// RequestTimeoutMs is the per-request HTTP timeout in milliseconds.
	RequestTimeoutMs int64 `json:"requestTimeoutMs,omitempty"`

	// NATS configures the optional lifecycle event mirror.
	NATS NATSFileConfig `json:"nats,omitempty"`
}

// NATSFileConfig contains connection settings for the event mirror.
type NATSFileConfig struct {
	Servers       []string `json:"servers,omitempty"`
	Credentials   string   `json:"credentials,omitempty"`
	SubjectPrefix string   `json:"subjectPrefix,omitempty"`
}

// IsConfigured returns true if a mirror destination is configured.
func (n NATSFileConfig) IsConfigured() bool {
	return len(n.Servers) > 0
}

// Validate validates the configuration.
func (c *FileConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: apiKey is required", ErrConfigInvalid)
	}
	if c.SegmentID == "" {
		return fmt.Errorf("%w: segmentId is required", ErrConfigInvalid)
	}
	if c.SegmentName == "" {
		return fmt.Errorf("%w: segmentName is required", ErrConfigInvalid)
	}
	if c.CacheFile == "" {
		return fmt.Errorf("%w: cacheFile is required", ErrConfigInvalid)
	}
	switch c.IdentityMode {
	case "", klaviyo.IdentityByID, klaviyo.IdentityByEmail:
	default:
		return fmt.Errorf("%w: identityMode must be %q or %q", ErrConfigInvalid,
			klaviyo.IdentityByID, klaviyo.IdentityByEmail)
	}
	if c.PageSize < 0 {
		return fmt.Errorf("%w: pageSize must not be negative", ErrConfigInvalid)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("%w: maxPages must not be negative", ErrConfigInvalid)
	}
	return nil
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *FileConfig) ApplyDefaults() {
	if c.IdentityMode == "" {
		c.IdentityMode = klaviyo.IdentityByID
	}
	if c.TagProperty == "" {
		c.TagProperty = klaviyo.DefaultTagProperty
	}
	if c.APIURL == "" {
		c.APIURL = klaviyo.DefaultBaseURL
	}
	if c.Revision == "" {
		c.Revision = klaviyo.DefaultRevision
	}
	if c.PageSize == 0 {
		c.PageSize = klaviyo.DefaultPageSize
	}
	if c.MaxPages == 0 {
		c.MaxPages = klaviyo.DefaultMaxPages
	}
	if c.RequestTimeoutMs == 0 {
		c.RequestTimeoutMs = int64(DefaultRequestTimeout / time.Millisecond)
	}
	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = DefaultSubjectPrefix
	}
}

// RequestTimeout returns the per-request HTTP timeout as a duration.
func (c *FileConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// ClientConfig converts the file configuration into a Klaviyo client config.
func (c *FileConfig) ClientConfig() klaviyo.Config {
	return klaviyo.Config{
		BaseURL:      c.APIURL,
		APIKey:       c.APIKey,
		Revision:     c.Revision,
		SegmentID:    c.SegmentID,
		SegmentName:  c.SegmentName,
		TagProperty:  c.TagProperty,
		IdentityMode: c.IdentityMode,
		PageSize:     c.PageSize,
		MaxPages:     c.MaxPages,
		Timeout:      c.RequestTimeout(),
	}
}

// DefaultFileConfig returns a configuration skeleton with defaults applied,
// used by "segsync init" to scaffold a config file.
func DefaultFileConfig() *FileConfig {
	cfg := &FileConfig{
		APIKey:      "pk_XXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXXX",
		SegmentID:   "YOUR_SEGMENT_ID",
		SegmentName: "Your Segment",
		CacheFile:   DefaultCacheFile,
	}
	cfg.ApplyDefaults()
	return cfg
}

// LoadConfigFromFile loads, defaults, and validates configuration from a
// JSON file. Any failure is fatal to the caller.
func LoadConfigFromFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfigInvalid, path, err)
	}

	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfigInvalid, path, err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteConfigToFile writes the configuration to a JSON file.
func WriteConfigToFile(cfg *FileConfig, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
