package docauth

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

func TestService_LoginURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://auth.example.org/oauth?client=land", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rest, err := client.NewRESTClient(srv.URL, nil)
	require.NoError(t, err)

	u, err := NewService(rest).LoginURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://auth.example.org/oauth?client=land", u)
}

func TestService_LoginURLUnavailable(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	rest, err := client.NewRESTClient(srv.URL, nil)
	require.NoError(t, err)

	_, err = NewService(rest).LoginURL(context.Background())
	assert.True(t, errors.Is(err, types.ErrNotFound), "got %v", err)
}

func TestHashFromCallback(t *testing.T) {
	tests := []struct {
		name     string
		callback string
		want     string
		wantErr  bool
	}{
		{name: "full url", callback: "http://localhost:3000/auth/callback?hash=abc123&state=x", want: "abc123"},
		{name: "query only", callback: "?hash=abc123", want: "abc123"},
		{name: "bare query", callback: "hash=abc123", want: "abc123"},
		{name: "fragment", callback: "http://localhost:3000/cb#hash=f00d", want: "f00d"},
		{name: "trimmed", callback: "  ?hash=%20abc%20  ", want: "abc"},
		{name: "empty", callback: "", wantErr: true},
		{name: "missing param", callback: "http://localhost:3000/cb?state=x", wantErr: true},
		{name: "blank param", callback: "?hash=", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HashFromCallback(tt.callback)
			if tt.wantErr {
				assert.True(t, errors.Is(err, types.ErrValidation), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
