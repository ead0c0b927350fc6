package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/baletrack/internal/models"
)

func newTestClient(url string) *HTTPClient {
	return NewHTTPClient(url, "op-1", "transport", 2*time.Second)
}

func TestTransitionSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/bales/b-1/status", r.URL.Path)
		require.Equal(t, "op-1", r.Header.Get("X-Actor-Id"))
		require.Equal(t, "transport", r.Header.Get("X-Actor-Roles"))

		var req models.TransitionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "yard", req.TargetStatus)

		json.NewEncoder(w).Encode(models.Bale{
			Base:   models.Base{UUID: "b-1"},
			Status: models.StatusYard,
		})
	}))
	defer server.Close()

	bale, err := newTestClient(server.URL).Transition(context.Background(), "b-1", models.StatusYard)
	require.NoError(t, err)
	require.Equal(t, models.StatusYard, bale.Status)
}

func TestTransitionDecodesRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"message":        "illegal transition",
			"code":           "ILLEGAL_TRANSITION",
			"current_status": "processed",
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Transition(context.Background(), "b-1", models.StatusYard)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, CodeIllegalTransition, apiErr.Code)
	require.Equal(t, models.StatusProcessed, apiErr.CurrentStatus)
	require.NotErrorIs(t, err, ErrNetworkUnavailable)
}

func TestTransitionUnreachableServer(t *testing.T) {
	// Bind-then-close guarantees nothing is listening on the address.
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Transition(context.Background(), "b-1", models.StatusYard)
	require.ErrorIs(t, err, ErrNetworkUnavailable)
}

func TestTransitionTimeoutIsNetworkFailure(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewHTTPClient(server.URL, "op-1", "transport", 50*time.Millisecond)
	_, err := client.Transition(context.Background(), "b-1", models.StatusYard)
	require.ErrorIs(t, err, ErrNetworkUnavailable)
}

func TestListBales(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bales", r.URL.Path)
		json.NewEncoder(w).Encode([]models.Bale{
			{Base: models.Base{UUID: "b-1"}, Status: models.StatusField},
			{Base: models.Base{UUID: "b-2"}, Status: models.StatusYard},
		})
	}))
	defer server.Close()

	bales, err := newTestClient(server.URL).ListBales(context.Background())
	require.NoError(t, err)
	require.Len(t, bales, 2)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	client := newTestClient(server.URL)
	require.NoError(t, client.Ping(context.Background()))

	server.Close()
	require.ErrorIs(t, client.Ping(context.Background()), ErrNetworkUnavailable)
}
