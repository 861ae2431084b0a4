package klaviyo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		APIKey:      "test-key",
		SegmentID:   "SEG123",
		SegmentName: "VIP Customers",
	}
}

func assertCommonHeaders(t *testing.T, r *http.Request) {
	t.Helper()
	assert.Equal(t, "Klaviyo-API-Key test-key", r.Header.Get("Authorization"))
	assert.Equal(t, "application/vnd.api+json", r.Header.Get("accept"))
	assert.Equal(t, DefaultRevision, r.Header.Get("revision"))
}

func TestClient_FetchMembersPagination(t *testing.T) {
	var srv *httptest.Server
	requests := 0

	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assertCommonHeaders(t, r)
		assert.Equal(t, "/api/segments/SEG123/profiles", r.URL.Path)

		switch requests {
		case 1:
			// First request carries the page size, later ones follow the
			// server-supplied next link verbatim.
			assert.Equal(t, "100", r.URL.Query().Get("page[size]"))
			fmt.Fprintf(w, `{
				"data": [
					{"id": "p1", "attributes": {"email": "p1@example.com"}},
					{"id": "p2", "attributes": {}}
				],
				"links": {"next": %q}
			}`, srv.URL+"/api/segments/SEG123/profiles?page[cursor]=abc")
		case 2:
			assert.Empty(t, r.URL.Query().Get("page[size]"))
			assert.Equal(t, "abc", r.URL.Query().Get("page[cursor]"))
			fmt.Fprint(w, `{
				"data": [{"id": "p3", "attributes": {"email": "p3@example.com"}}],
				"links": {}
			}`)
		default:
			t.Errorf("unexpected request %d", requests)
		}
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	members, err := client.FetchMembers(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"p1": "p1@example.com",
		"p2": "unknown@example.com",
		"p3": "p3@example.com",
	}, members)
	assert.Equal(t, 2, requests)
}

func TestClient_FetchMembersByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"data": [
				{"id": "p1", "attributes": {"email": "p1@example.com"}},
				{"id": "p2", "attributes": {}}
			],
			"links": {}
		}`)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.IdentityMode = IdentityByEmail
	client, err := NewClient(cfg)
	require.NoError(t, err)

	members, err := client.FetchMembers(context.Background())
	require.NoError(t, err)

	// Keyed by email; profiles without one are skipped.
	assert.Equal(t, map[string]string{"p1@example.com": "p1@example.com"}, members)
}

func TestClient_FetchMembersAbandonsOnBadStatus(t *testing.T) {
	var srv *httptest.Server
	requests := 0

	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			fmt.Fprintf(w, `{
				"data": [{"id": "p1", "attributes": {"email": "p1@example.com"}}],
				"links": {"next": %q}
			}`, srv.URL+"/api/segments/SEG123/profiles?page[cursor]=abc")
			return
		}
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	members, err := client.FetchMembers(context.Background())

	// Partial progress from page one is discarded.
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
	assert.Nil(t, members)
}

func TestClient_FetchMembersPageBound(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Cyclic next link: pagination must terminate at the bound.
		fmt.Fprintf(w, `{"data": [], "links": {"next": %q}}`, srv.URL+"/api/segments/SEG123/profiles")
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.MaxPages = 3
	client, err := NewClient(cfg)
	require.NoError(t, err)

	_, err = client.FetchMembers(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTooManyPages))
}

func TestClient_EmitJoined(t *testing.T) {
	var got eventRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assertCommonHeaders(t, r)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/events", r.URL.Path)
		assert.Equal(t, "application/vnd.api+json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)
	client.now = func() time.Time {
		return time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	}

	require.NoError(t, client.Emit(context.Background(), "p1", "p1@example.com", true))

	assert.Equal(t, "event", got.Data.Type)
	assert.Equal(t, EventJoined, got.Data.Attributes.Metric.Data.Attributes.Name)
	assert.Equal(t, "SEG123", got.Data.Attributes.Properties.SegmentID)
	assert.Equal(t, "VIP Customers", got.Data.Attributes.Properties.SegmentName)
	assert.Equal(t, "2026-08-23T12:00:00Z", got.Data.Attributes.Properties.Timestamp)

	profile := got.Data.Attributes.Profile.Data
	assert.Equal(t, "profile", profile.Type)
	assert.Equal(t, "p1", profile.ID)
	assert.Empty(t, profile.Attributes.Email)

	require.NotNil(t, profile.Attributes.Meta)
	patch := profile.Attributes.Meta.PatchProperties
	assert.Equal(t, map[string][]string{DefaultTagProperty: {"VIP Customers"}}, patch.Append)
	assert.Empty(t, patch.Unappend)
}

func TestClient_EmitLeft(t *testing.T) {
	var got eventRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	require.NoError(t, client.Emit(context.Background(), "p1", "p1@example.com", false))

	assert.Equal(t, EventLeft, got.Data.Attributes.Metric.Data.Attributes.Name)
	patch := got.Data.Attributes.Profile.Data.Attributes.Meta.PatchProperties
	assert.Empty(t, patch.Append)
	assert.Equal(t, map[string][]string{DefaultTagProperty: {"VIP Customers"}}, patch.Unappend)
}

func TestClient_EmitByEmail(t *testing.T) {
	var got eventRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.IdentityMode = IdentityByEmail
	client, err := NewClient(cfg)
	require.NoError(t, err)

	require.NoError(t, client.Emit(context.Background(), "p1@example.com", "p1@example.com", true))

	profile := got.Data.Attributes.Profile.Data
	assert.Empty(t, profile.ID)
	assert.Equal(t, "p1@example.com", profile.Attributes.Email)
}

func TestClient_EmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	err = client.Emit(context.Background(), "p1", "p1@example.com", true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEventRejected))
}

func TestNewClient_RequiredFields(t *testing.T) {
	_, err := NewClient(Config{SegmentID: "SEG123", SegmentName: "x"})
	assert.Error(t, err)

	_, err = NewClient(Config{APIKey: "k", SegmentName: "x"})
	assert.Error(t, err)

	_, err = NewClient(Config{APIKey: "k", SegmentID: "SEG123"})
	assert.Error(t, err)
}
