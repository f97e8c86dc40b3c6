package property

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/landverify/client-sdk-go/client"
	"github.com/landverify/client-sdk-go/types"
)

func newTestService(t *testing.T, mux *http.ServeMux) Service {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	rc := client.DefaultRetryConfig()
	rc.MaxRetries = 1
	rc.InitialDelay = 1
	rc.MaxDelay = 2

	rest, err := client.NewRESTClient(srv.URL, &client.Config{Retry: rc})
	require.NoError(t, err)
	return NewService(rest)
}

func TestService_List(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/properties", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":3,"name":"Riverside plot"},{"id":1,"name":"Hill farm","tokenId":12}]`))
	})
	svc := newTestService(t, mux)

	props, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, props, 2)
	assert.Equal(t, 1, props[0].ID)
	assert.Equal(t, "Hill farm", props[0].Name)
	assert.Equal(t, uint64(12), props[0].TokenID)
	assert.Equal(t, "/property/1", props[0].Link())
	assert.Equal(t, "/property/3", props[1].Link())
}

func TestService_ListEmpty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/properties", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})
	svc := newTestService(t, mux)

	props, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, props)
	assert.Empty(t, props)
}

func TestService_Get(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/properties/5", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":5,"name":"Lake view","owner":"OWNER"}`))
	})
	mux.HandleFunc("/api/properties/6", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	svc := newTestService(t, mux)

	tests := []struct {
		name     string
		id       int
		wantName string
		wantErr  error
	}{
		{name: "found", id: 5, wantName: "Lake view"},
		{name: "missing", id: 6, wantErr: types.ErrNotFound},
		{name: "zero id", id: 0, wantErr: types.ErrValidation},
		{name: "negative id", id: -2, wantErr: types.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Get(context.Background(), tt.id)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, p.Name)
		})
	}
}

func TestService_ListUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/properties", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	svc := newTestService(t, mux)

	_, err := svc.List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrNetwork))
}
