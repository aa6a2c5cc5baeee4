package kicktipp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predictops/tipsync/internal/model"
	"github.com/predictops/tipsync/internal/retry"
)

const submissionPage = `
<html><body>
<table id="tippabgabe">
  <tr class="tipp-row" data-entity="m1">
    <td class="heimTipp">2</td><td class="gastTipp">1</td>
  </tr>
  <tr class="tipp-row" data-entity="m2">
    <td class="heimTipp"></td><td class="gastTipp"></td>
  </tr>
  <tr class="bonus-row" data-entity="q1">
    <td><span class="option" data-id="team-a"></span><span class="option" data-id="team-c"></span></td>
  </tr>
  <tr class="bonus-row" data-entity="q2"><td></td></tr>
</table>
</body></html>`

func TestGetSubmittedValues(t *testing.T) {
	var gotPath, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if c, err := r.Cookie("login"); err == nil {
			gotCookie = c.Value
		}
		w.Write([]byte(submissionPage)) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("token-123", WithBaseURL(srv.URL), WithRateLimit(100))

	values, err := c.GetSubmittedValues(context.Background(), "my-pool")
	require.NoError(t, err)

	assert.Equal(t, "/my-pool/tippabgabe", gotPath)
	assert.Equal(t, "token-123", gotCookie)

	// Empty submissions (m2, q2) are omitted.
	require.Len(t, values, 2)
	assert.True(t, model.Score{Home: 2, Away: 1}.Equal(values["m1"]))
	assert.True(t, model.Selection{Options: []string{"team-a", "team-c"}}.Equal(values["q1"]))
}

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/my-pool/tabellen" {
			w.Write([]byte("competition,home,away,score,note\n")) //nolint:errcheck
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRateLimit(100))

	body, err := c.FetchPage(context.Background(), "my-pool", "tabellen")
	require.NoError(t, err)
	assert.Contains(t, body, "competition,home")
}

func TestGet_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRateLimit(100))

	_, err := c.FetchPage(context.Background(), "my-pool", "tabellen")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestGet_RetriesServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered")) //nolint:errcheck
	}))
	defer srv.Close()

	c := NewClient("", WithBaseURL(srv.URL), WithRateLimit(100), WithRetries(retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     1,
	}))

	body, err := c.FetchPage(context.Background(), "my-pool", "news")
	require.NoError(t, err)
	assert.Equal(t, "recovered", body)
	assert.Equal(t, 3, hits)
}
