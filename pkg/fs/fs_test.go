package fs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestFs builds a facade with a static token pointed at a fake store.
func newTestFs(t *testing.T, handler http.Handler) *Fs {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	facade, err := New(Config{
		Account:    "testaccount",
		Filesystem: "data",
		Token:      "test-token",
		Endpoint:   ts.URL,
	})
	require.NoError(t, err)
	return facade
}

// objectHandler serves one object with range support: a whole-object GET
// when no Range header is present, 206 with the requested slice otherwise,
// and 416 for ranges starting at or past the end.
func objectHandler(content []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(content)))
			w.Header().Set("x-ms-resource-type", "file")
			return
		}
		spec := r.Header.Get("Range")
		if spec == "" {
			w.Write(content)
			return
		}
		parts := strings.SplitN(strings.TrimPrefix(spec, "bytes="), "-", 2)
		start, _ := strconv.Atoi(parts[0])
		if start >= len(content) {
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		end := len(content) - 1
		if parts[1] != "" {
			if n, err := strconv.Atoi(parts[1]); err == nil && n < end {
				end = n
			}
		}
		w.WriteHeader(http.StatusPartialContent)
		w.Write(content[start : end+1])
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Filesystem: "data", Token: "t"})
	assert.ErrorContains(t, err, "account")

	_, err = New(Config{Account: "acct", Token: "t"})
	assert.ErrorContains(t, err, "filesystem")

	_, err = New(Config{Account: "acct", Filesystem: "data"})
	assert.ErrorContains(t, err, "client secret")

	_, err = New(Config{Account: "acct", Filesystem: "data", TenantID: "t", ClientID: "c", ClientSecret: "s"})
	assert.NoError(t, err)
}

func TestNew_StaticTokenSkipsExchange(t *testing.T) {
	facade, err := New(Config{Account: "acct", Filesystem: "data", Token: "static"})
	require.NoError(t, err)

	// No exchanger was built, so Connect is a no-op and never dials out.
	require.NoError(t, facade.Connect(context.Background()))
	assert.Equal(t, "static", facade.Credential().Token)
}

func TestStripProtocol(t *testing.T) {
	assert.Equal(t, "dir/file.txt", StripProtocol("abfss://dir/file.txt"))
	assert.Equal(t, "dir/file.txt", StripProtocol("abfs://dir/file.txt"))
	assert.Equal(t, "dir/file.txt", StripProtocol("dir/file.txt"))
	assert.Equal(t, "dir", StripProtocol("/dir/"))
	assert.Equal(t, "", StripProtocol("abfss://"))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("rb")
	require.NoError(t, err)
	assert.Equal(t, ModeRead, m)

	m, err = ParseMode("wb")
	require.NoError(t, err)
	assert.Equal(t, ModeWrite, m)

	m, err = ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeWrite, m)

	for _, bad := range []string{"a", "r+", "rw", "w"} {
		_, err := ParseMode(bad)
		assert.Error(t, err, "mode %q", bad)
	}
}

func TestConnect_RefreshVisibleToRequests(t *testing.T) {
	var issued atomic.Int32
	authSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostFormValue("grant_type"))
		json.NewEncoder(w).Encode(map[string]any{
			"token_type":   "Bearer",
			"expires_in":   3600,
			"access_token": "tok-" + strconv.Itoa(int(issued.Add(1))),
		})
	}))
	defer authSrv.Close()

	var seen []string
	storeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Write([]byte(`{"paths":[]}`))
	}))
	defer storeSrv.Close()

	facade, err := New(Config{
		Account:      "acct",
		Filesystem:   "data",
		TenantID:     "tenant",
		ClientID:     "client",
		ClientSecret: "secret",
		AuthEndpoint: authSrv.URL,
		Endpoint:     storeSrv.URL,
	})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, facade.Connect(ctx))
	_, err = facade.Ls(ctx, "")
	require.NoError(t, err)

	// A second Connect swaps the credential; the next request carries it.
	require.NoError(t, facade.Connect(ctx))
	_, err = facade.Ls(ctx, "")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, "Bearer tok-1", seen[0])
	assert.Equal(t, "Bearer tok-2", seen[1])
}

func TestReadFile_WholeObjectUnranged(t *testing.T) {
	content := []byte("entire object body")
	var sawRange bool
	facade := newTestFs(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Range") != "" {
			sawRange = true
		}
		w.Write(content)
	}))

	data, err := facade.ReadFile(context.Background(), "file.bin")
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.False(t, sawRange, "whole-object read must not send a Range header")
}
