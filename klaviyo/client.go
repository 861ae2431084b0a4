// Package klaviyo is a minimal client for the pieces of the Klaviyo API the
// synchronizer consumes: paginated segment membership listing and event
// creation.
package klaviyo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL     = "https://a.klaviyo.com"
	DefaultRevision    = "2025-01-15"
	DefaultPageSize    = 100
	DefaultMaxPages    = 1000
	DefaultTagProperty = "Is in Segment"

	// EventJoined and EventLeft are the metric names attached to lifecycle events.
	EventJoined = "Joined Segment"
	EventLeft   = "Left Segment"

	contentType = "application/vnd.api+json"

	// fallbackEmail substitutes for profiles that carry no email address
	// when members are keyed by id.
	fallbackEmail = "unknown@example.com"
)

// Client errors.
var (
	// ErrFetchFailed indicates the segment membership fetch did not complete.
	// Callers can distinguish it from a genuinely empty segment.
	ErrFetchFailed = errors.New("segment fetch failed")

	// ErrTooManyPages indicates pagination did not terminate within the
	// configured page bound.
	ErrTooManyPages = errors.New("pagination exceeded page bound")

	// ErrEventRejected indicates the API did not accept a lifecycle event.
	ErrEventRejected = errors.New("event rejected")
)

// IdentityMode selects which profile attribute keys the membership set.
type IdentityMode string

const (
	// IdentityByID keys members by the vendor-assigned profile id.
	IdentityByID IdentityMode = "id"
	// IdentityByEmail keys members by email address.
	IdentityByEmail IdentityMode = "email"
)

// Config configures the API client.
type Config struct {
	BaseURL      string
	APIKey       string
	Revision     string
	SegmentID    string
	SegmentName  string
	TagProperty  string
	IdentityMode IdentityMode
	PageSize     int
	MaxPages     int
	Timeout      time.Duration

	// HTTPClient overrides the default HTTP client (tests).
	HTTPClient *http.Client

	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Revision == "" {
		c.Revision = DefaultRevision
	}
	if c.TagProperty == "" {
		c.TagProperty = DefaultTagProperty
	}
	if c.IdentityMode == "" {
		c.IdentityMode = IdentityByID
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.MaxPages == 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.Logger == nil {
		c.Logger = slog.Default().With("component", "klaviyo")
	}
}

// Client talks to the Klaviyo API for a single segment.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewClient creates a new API client.
func NewClient(cfg Config) (*Client, error) {
	cfg.applyDefaults()

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}
	if cfg.SegmentID == "" {
		return nil, fmt.Errorf("SegmentID is required")
	}
	if cfg.SegmentName == "" {
		return nil, fmt.Errorf("SegmentName is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: cfg.Logger,
		now:    time.Now,
	}, nil
}

// FetchMembers retrieves the full current segment membership, following the
// server-supplied next link until pagination ends. The result maps the member
// identity key (profile id or email, per IdentityMode) to the member email.
//
// Any non-200 page or transport failure abandons the fetch and returns an
// error wrapping ErrFetchFailed; partial progress is discarded.
func (c *Client) FetchMembers(ctx context.Context) (map[string]string, error) {
	first, err := url.Parse(fmt.Sprintf("%s/api/segments/%s/profiles", c.cfg.BaseURL, c.cfg.SegmentID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	q := url.Values{}
	q.Set("page[size]", strconv.Itoa(c.cfg.PageSize))
	first.RawQuery = q.Encode()

	members := make(map[string]string)
	next := first.String()

	for page := 0; next != ""; page++ {
		if page >= c.cfg.MaxPages {
			return nil, fmt.Errorf("%w: aborted after %d pages", ErrTooManyPages, page)
		}

		var body profileListResponse
		if err := c.getJSON(ctx, next, &body); err != nil {
			return nil, err
		}

		for _, p := range body.Data {
			c.accumulate(members, p)
		}
		next = body.Links.Next
	}

	c.logger.Info("segment membership fetched", "segment", c.cfg.SegmentID, "members", len(members))
	return members, nil
}

// accumulate adds one profile resource to the member set under the
// configured identity key.
func (c *Client) accumulate(members map[string]string, p profileResource) {
	email := p.Attributes.Email
	switch c.cfg.IdentityMode {
	case IdentityByEmail:
		if email == "" {
			c.logger.Warn("profile has no email, skipping", "profile", p.ID)
			return
		}
		members[email] = email
	default:
		if email == "" {
			email = fallbackEmail
		}
		members[p.ID] = email
	}
}

// Emit sends one lifecycle event for the member. The joining flag selects the
// metric name and whether the tag property is appended to or removed from the
// member's profile. Only HTTP 202 counts as success.
func (c *Client) Emit(ctx context.Context, identity, email string, joining bool) error {
	name := EventLeft
	if joining {
		name = EventJoined
	}

	payload, err := json.Marshal(c.eventPayload(identity, name, joining))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/events", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build event request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send event %q for %s: %w", name, identity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("%w: event %q for %s: status %d: %s",
			ErrEventRejected, name, identity, resp.StatusCode, readBody(resp.Body))
	}

	c.logger.Info("event sent", "event", name, "identity", identity)
	return nil
}

// eventPayload builds the JSON:API event resource. Exactly one of
// append/unappend carries the tag; the other stays an empty object.
func (c *Client) eventPayload(identity, name string, joining bool) eventRequest {
	patch := patchProperties{
		Append:   map[string][]string{},
		Unappend: map[string][]string{},
	}
	tag := []string{c.cfg.SegmentName}
	if joining {
		patch.Append[c.cfg.TagProperty] = tag
	} else {
		patch.Unappend[c.cfg.TagProperty] = tag
	}

	profile := eventProfileResource{
		Type: "profile",
		Attributes: eventProfileAttributes{
			Meta: &profileMeta{PatchProperties: patch},
		},
	}
	if c.cfg.IdentityMode == IdentityByEmail {
		profile.Attributes.Email = identity
	} else {
		profile.ID = identity
	}

	return eventRequest{
		Data: eventResource{
			Type: "event",
			Attributes: eventAttributes{
				Properties: eventProperties{
					SegmentID:   c.cfg.SegmentID,
					SegmentName: c.cfg.SegmentName,
					Timestamp:   c.now().UTC().Format(time.RFC3339),
				},
				Metric: metricData{
					Data: metricResource{
						Type:       "metric",
						Attributes: metricAttributes{Name: name},
					},
				},
				Profile: profileData{Data: profile},
			},
		},
	}
}

// getJSON performs one authenticated GET and decodes the response body.
func (c *Client) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d: %s", ErrFetchFailed, resp.StatusCode, readBody(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode page: %v", ErrFetchFailed, err)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Klaviyo-API-Key "+c.cfg.APIKey)
	req.Header.Set("accept", contentType)
	req.Header.Set("revision", c.cfg.Revision)
}

func readBody(r io.Reader) string {
	body, _ := io.ReadAll(io.LimitReader(r, 4096))
	return strings.TrimSpace(string(body))
}
