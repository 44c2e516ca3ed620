package fs

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalake-go/adlfs/pkg/client"
	"github.com/datalake-go/adlfs/pkg/protocol"
)

func notFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(protocol.HeaderErrorCode, "PathNotFound")
		w.WriteHeader(http.StatusNotFound)
		if r.Method != http.MethodHead {
			w.Write([]byte(`{"error":{"code":"PathNotFound","message":"The specified path does not exist."}}`))
		}
	}
}

func TestList_Normalization(t *testing.T) {
	facade := newTestFs(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"paths":[
			{"name":"raw/a.txt","contentLength":"42","etag":"0x1"},
			{"name":"raw/sub","isDirectory":"true"},
			{"name":"raw/b.bin","contentLength":"bogus"},
			{"name":"raw/c.bin"}
		]}`))
	}))

	entries, err := facade.List(context.Background(), "raw", false)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, protocol.Entry{Name: "raw/a.txt", Size: 42, Kind: protocol.KindFile}, entries[0])
	assert.Equal(t, protocol.Entry{Name: "raw/sub", Size: 0, Kind: protocol.KindDirectory}, entries[1])
	assert.Equal(t, protocol.Entry{Name: "raw/b.bin", Size: 0, Kind: protocol.KindFile}, entries[2])
	assert.Equal(t, protocol.Entry{Name: "raw/c.bin", Size: 0, Kind: protocol.KindFile}, entries[3])
}

func TestList_QueryShape(t *testing.T) {
	var gotPath string
	var gotQuery url.Values
	facade := newTestFs(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"paths":[]}`))
	}))

	_, err := facade.List(context.Background(), "abfss://raw/sub/", true)
	require.NoError(t, err)

	assert.Equal(t, "/data", gotPath, "listing addresses the filesystem root")
	assert.Equal(t, "filesystem", gotQuery.Get("resource"))
	assert.Equal(t, "true", gotQuery.Get("recursive"))
	assert.Equal(t, "raw/sub", gotQuery.Get("directory"))
}

func TestList_RootOmitsDirectory(t *testing.T) {
	var gotQuery url.Values
	facade := newTestFs(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"paths":[]}`))
	}))

	_, err := facade.List(context.Background(), "", false)
	require.NoError(t, err)
	assert.False(t, gotQuery.Has("directory"))
	assert.Equal(t, "false", gotQuery.Get("recursive"))
}

func TestList_MissingPathIsEmpty(t *testing.T) {
	facade := newTestFs(t, notFoundHandler())

	entries, err := facade.List(context.Background(), "no/such/dir", false)
	require.NoError(t, err)
	require.NotNil(t, entries)
	assert.Empty(t, entries)

	names, err := facade.Ls(context.Background(), "no/such/dir")
	require.NoError(t, err)
	require.NotNil(t, names)
	assert.Empty(t, names)
}

func TestLs_NamesOnly(t *testing.T) {
	facade := newTestFs(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"paths":[{"name":"raw/a.txt","contentLength":"1"},{"name":"raw/sub","isDirectory":"true"}]}`))
	}))

	names, err := facade.Ls(context.Background(), "raw")
	require.NoError(t, err)
	assert.Equal(t, []string{"raw/a.txt", "raw/sub"}, names)
}

func TestInfo_File(t *testing.T) {
	var gotQuery url.Values
	facade := newTestFs(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodHead, r.Method)
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Length", "1024")
		w.Header().Set(protocol.HeaderResourceType, "file")
	}))

	entry, err := facade.Info(context.Background(), "raw/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "getStatus", gotQuery.Get("action"))
	assert.Equal(t, protocol.Entry{Name: "raw/a.txt", Size: 1024, Kind: protocol.KindFile}, entry)
}

func TestInfo_Directory(t *testing.T) {
	facade := newTestFs(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "0")
		w.Header().Set(protocol.HeaderResourceType, "directory")
	}))

	entry, err := facade.Info(context.Background(), "raw/sub")
	require.NoError(t, err)
	assert.Equal(t, protocol.KindDirectory, entry.Kind)
}

func TestInfo_DirectoryFallbackThroughListing(t *testing.T) {
	// The stat endpoint rejects the path but a listing under it has
	// children, so the path exists as a directory prefix.
	facade := newTestFs(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set(protocol.HeaderErrorCode, "PathNotFound")
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"paths":[{"name":"raw/sub/a.txt","contentLength":"1"}]}`))
	}))

	entry, err := facade.Info(context.Background(), "raw/sub")
	require.NoError(t, err)
	assert.Equal(t, protocol.Entry{Name: "raw/sub", Kind: protocol.KindDirectory}, entry)
}

func TestInfo_MissingPathIsNotFound(t *testing.T) {
	facade := newTestFs(t, notFoundHandler())

	_, err := facade.Info(context.Background(), "no/such/path")
	require.Error(t, err)
	assert.True(t, client.IsNotFound(err))
}

func TestSize(t *testing.T) {
	facade := newTestFs(t, objectHandler(make([]byte, 4096)))

	size, err := facade.Size(context.Background(), "file.bin")
	require.NoError(t, err)
	assert.Equal(t, uint64(4096), size)
}

func TestIsDirIsFile(t *testing.T) {
	facade := newTestFs(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind := "file"
		if r.URL.Query().Get("action") == "getStatus" && r.URL.Path == "/data/raw/sub" {
			kind = "directory"
		}
		w.Header().Set("Content-Length", "0")
		w.Header().Set(protocol.HeaderResourceType, kind)
	}))

	ctx := context.Background()

	isDir, err := facade.IsDir(ctx, "raw/sub")
	require.NoError(t, err)
	assert.True(t, isDir)

	isFile, err := facade.IsFile(ctx, "raw/sub")
	require.NoError(t, err)
	assert.False(t, isFile)

	isDir, err = facade.IsDir(ctx, "raw/a.txt")
	require.NoError(t, err)
	assert.False(t, isDir)

	isFile, err = facade.IsFile(ctx, "raw/a.txt")
	require.NoError(t, err)
	assert.True(t, isFile)
}

func TestIsDirIsFile_MissingPathIsFalse(t *testing.T) {
	facade := newTestFs(t, notFoundHandler())

	isDir, err := facade.IsDir(context.Background(), "no/such/path")
	require.NoError(t, err)
	assert.False(t, isDir)

	isFile, err := facade.IsFile(context.Background(), "no/such/path")
	require.NoError(t, err)
	assert.False(t, isFile)
}
