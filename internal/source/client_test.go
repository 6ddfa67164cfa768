package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"gitlab.com/timkado/api/daisi-lead-sync/pkg/logger"
)

func init() {
	logger.Log = zap.NewNop()
}

func TestClient_TestConnection_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"data":[],"total":0}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	result := client.TestConnection(context.Background())

	assert.True(t, result.Success)
	assert.Empty(t, result.ErrorKind)
}

func TestClient_TestConnection_AuthFailure(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := NewClient(server.URL, "bad-key", 5*time.Second)
		result := client.TestConnection(context.Background())
		server.Close()

		assert.False(t, result.Success)
		assert.Equal(t, ErrorKindAuthentication, result.ErrorKind)
		assert.NotEmpty(t, result.Message)
	}
}

func TestClient_TestConnection_Connectivity(t *testing.T) {
	// Closed server simulates an unreachable source.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "test-key", 2*time.Second)
	result := client.TestConnection(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, ErrorKindConnectivity, result.ErrorKind)
}

func TestClient_TestConnection_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	result := client.TestConnection(context.Background())

	assert.False(t, result.Success)
	assert.Equal(t, ErrorKindAPI, result.ErrorKind)
	assert.Contains(t, result.Message, "500")
}

func TestClient_FetchLeads_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "0", q.Get("offset"))
		assert.Equal(t, "crm", q.Get("type"))
		assert.Equal(t, "7", q.Get("days"))
		assert.Equal(t, "facebook", q.Get("source"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"total": 2,
			"data": [
				{"id":"ext-1","fullName":"Mario Rossi","phone":"3331234567","type":"crm"},
				{"id":"ext-2","fullName":"Anna Verdi","phone":"+393337654321","type":"crm",
				 "details":{"additionalData":{"objectives":"lose weight"}}}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	filters := FetchFilters{LeadType: "crm", DaysFilter: "7", SourceFilter: "facebook"}
	result := client.FetchLeads(context.Background(), filters, 100, 0)

	require.True(t, result.Success)
	require.Len(t, result.Data, 2)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, "Mario Rossi", result.Data[0].FullName)
	assert.Equal(t, "lose weight", result.Data[1].AdditionalField("objectives"))
}

func TestClient_FetchLeads_UpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":false,"error":"quota exceeded"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	result := client.FetchLeads(context.Background(), FetchFilters{}, 100, 0)

	assert.False(t, result.Success)
	assert.Equal(t, "quota exceeded", result.Error)
	assert.Equal(t, ErrorKindAPI, result.ErrorKind)
}

func TestClient_FetchLeads_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key", 5*time.Second)
	result := client.FetchLeads(context.Background(), FetchFilters{}, 100, 0)

	assert.False(t, result.Success)
	assert.Equal(t, ErrorKindAuthentication, result.ErrorKind)
}

func TestClient_FetchLeads_Connectivity(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, "test-key", 2*time.Second)
	result := client.FetchLeads(context.Background(), FetchFilters{}, 100, 0)

	assert.False(t, result.Success)
	assert.Equal(t, ErrorKindConnectivity, result.ErrorKind)
}

func TestClient_FetchLeads_UnexpectedShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// No success flag at all
		w.Write([]byte(`{"items":[{"id":"x"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	result := client.FetchLeads(context.Background(), FetchFilters{}, 100, 0)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "unexpected response shape")
}

func TestClient_FetchLeads_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", 5*time.Second)
	result := client.FetchLeads(context.Background(), FetchFilters{}, 100, 0)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "invalid response body")
}
