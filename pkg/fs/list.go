package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/datalake-go/adlfs/pkg/client"
	"github.com/datalake-go/adlfs/pkg/protocol"
)

const formURLEncoded = "application/x-www-form-urlencoded"

// List returns the entries under path. A missing path yields an empty,
// non-nil slice rather than an error, so tree-walking callers can treat
// "does not exist" as "no children". Use Info to distinguish a missing
// path from an existing empty directory.
func (a *Fs) List(ctx context.Context, path string, recursive bool) ([]protocol.Entry, error) {
	items, err := a.list(ctx, path, recursive)
	if err != nil {
		return nil, err
	}
	entries := make([]protocol.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, normalize(item))
	}
	return entries, nil
}

// Ls returns only the names under path. Missing paths yield an empty slice.
func (a *Fs) Ls(ctx context.Context, path string) ([]string, error) {
	items, err := a.list(ctx, path, false)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names, nil
}

func (a *Fs) list(ctx context.Context, path string, recursive bool) ([]protocol.PathItem, error) {
	path = StripProtocol(path)
	query := url.Values{
		protocol.ParamResource:  {protocol.ResourceFilesystem},
		protocol.ParamRecursive: {strconv.FormatBool(recursive)},
	}
	if path != "" {
		query.Set(protocol.ParamDirectory, path)
	}

	resp, err := a.client.Get(ctx, "", query, client.Headers{ContentType: formURLEncoded})
	if err != nil {
		if client.IsNotFound(err) {
			return []protocol.PathItem{}, nil
		}
		return nil, err
	}

	var listing protocol.ListResponse
	if err := json.Unmarshal(resp.Body, &listing); err != nil {
		return nil, fmt.Errorf("parse listing response: %w", err)
	}
	if listing.Paths == nil {
		return []protocol.PathItem{}, nil
	}
	return listing.Paths, nil
}

// normalize maps the provider item shape onto the canonical entry: an
// isDirectory flag of "true" makes a directory, anything else a file, and
// a missing or malformed contentLength becomes size 0.
func normalize(item protocol.PathItem) protocol.Entry {
	kind := protocol.KindFile
	if item.IsDirectory == "true" {
		kind = protocol.KindDirectory
	}
	var size uint64
	if item.ContentLength != "" {
		if n, err := strconv.ParseUint(item.ContentLength, 10, 64); err == nil {
			size = n
		}
	}
	return protocol.Entry{Name: item.Name, Size: size, Kind: kind}
}

// Info returns the entry at path. A HEAD with action=getStatus resolves
// leaf paths; when it fails, a listing probe resolves paths that only
// exist as directory prefixes. If both fail, the HEAD failure surfaces —
// in particular a missing path propagates as a NotFound, unlike List.
func (a *Fs) Info(ctx context.Context, path string) (protocol.Entry, error) {
	path = StripProtocol(path)
	query := url.Values{protocol.ParamAction: {protocol.ActionGetStatus}}

	resp, headErr := a.client.Head(ctx, path, query, client.Headers{ContentType: formURLEncoded})
	if headErr != nil {
		entries, err := a.List(ctx, path, false)
		if err == nil && len(entries) > 0 {
			return protocol.Entry{Name: path, Kind: protocol.KindDirectory}, nil
		}
		return protocol.Entry{}, headErr
	}

	var size uint64
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		if n, err := strconv.ParseUint(cl, 10, 64); err == nil {
			size = n
		}
	}
	kind := protocol.KindFile
	if resp.Header.Get(protocol.HeaderResourceType) == string(protocol.KindDirectory) {
		kind = protocol.KindDirectory
	}
	return protocol.Entry{Name: path, Size: size, Kind: kind}, nil
}

// Size returns the object size at path. It is never cached: the remote
// object can grow between calls from a write handle elsewhere.
func (a *Fs) Size(ctx context.Context, path string) (uint64, error) {
	entry, err := a.Info(ctx, path)
	if err != nil {
		return 0, err
	}
	return entry.Size, nil
}

// IsDir reports whether path exists and is a directory. A missing path is
// false, not an error.
func (a *Fs) IsDir(ctx context.Context, path string) (bool, error) {
	entry, err := a.Info(ctx, path)
	if err != nil {
		if client.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return entry.Kind == protocol.KindDirectory, nil
}

// IsFile reports whether path exists and is a file. A missing path is
// false, not an error.
func (a *Fs) IsFile(ctx context.Context, path string) (bool, error) {
	entry, err := a.Info(ctx, path)
	if err != nil {
		if client.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return entry.Kind == protocol.KindFile, nil
}
