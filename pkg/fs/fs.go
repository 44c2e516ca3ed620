// Package fs exposes an Azure Data Lake Gen2 filesystem through a
// POSIX-like interface: directory listing, metadata, and buffered
// random-access reads and append/flush writes over the REST surface.
package fs

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/datalake-go/adlfs/pkg/auth"
	"github.com/datalake-go/adlfs/pkg/client"
	"github.com/datalake-go/adlfs/pkg/retry"
)

// Config holds everything needed to reach one filesystem in one account.
type Config struct {
	// Account is the storage account name; Filesystem is the container
	// within it. Both are required.
	Account    string
	Filesystem string

	// DNSSuffix completes the account host name. Empty selects the public
	// cloud suffix.
	DNSSuffix string

	// Endpoint overrides the account URL entirely, for storage emulators
	// and tests.
	Endpoint string

	// Service-principal identity for the client-credentials exchange.
	// Required unless Token is set.
	TenantID     string
	ClientID     string
	ClientSecret string

	// Token is a pre-acquired bearer token. When set, Connect is a no-op
	// and no exchange is performed.
	Token string

	// Scope and AuthEndpoint override the exchange defaults; tests point
	// AuthEndpoint at a local fake.
	Scope        string
	AuthEndpoint string

	// BlockSize is the unit of range-fetch and flush granularity.
	// Zero selects DefaultBlockSize.
	BlockSize int64

	// Retry, when non-nil, retries transport failures and 5xx responses.
	// Nil preserves the default behavior: every failure surfaces
	// immediately to the caller.
	Retry *retry.Config

	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Fs is the filesystem facade. It owns the credential and composes the
// store client behind open/ls/info/isdir/isfile/glob operations. Handles
// opened from it read the current token at request time, so Connect
// refreshes the session for all of them at once.
type Fs struct {
	cfg       Config
	holder    *auth.Holder
	exchanger *auth.Exchanger
	client    *client.Client
	blockSize int64
	logger    *zap.Logger
}

// New validates cfg and builds the facade. Call Connect before issuing
// requests unless a static Token was supplied.
func New(cfg Config) (*Fs, error) {
	if cfg.Account == "" {
		return nil, fmt.Errorf("account name is required")
	}
	if cfg.Filesystem == "" {
		return nil, fmt.Errorf("filesystem name is required")
	}
	if cfg.Token == "" && (cfg.TenantID == "" || cfg.ClientID == "" || cfg.ClientSecret == "") {
		return nil, fmt.Errorf("tenant id, client id, and client secret are required without a static token")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}

	holder := auth.NewHolder()
	var exchanger *auth.Exchanger
	if cfg.Token != "" {
		holder.Set(auth.Credential{Token: cfg.Token, TokenType: "Bearer"})
	} else {
		exchanger = auth.NewExchanger(auth.Config{
			TenantID:     cfg.TenantID,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scope:        cfg.Scope,
			Endpoint:     cfg.AuthEndpoint,
			HTTPClient:   cfg.HTTPClient,
			Logger:       cfg.Logger,
		})
	}

	c := client.New(client.Config{
		Account:    cfg.Account,
		DNSSuffix:  cfg.DNSSuffix,
		Filesystem: cfg.Filesystem,
		Endpoint:   cfg.Endpoint,
		Tokens:     holder,
		HTTPClient: cfg.HTTPClient,
		Retry:      cfg.Retry,
		Logger:     cfg.Logger,
	})

	return &Fs{
		cfg:       cfg,
		holder:    holder,
		exchanger: exchanger,
		client:    c,
		blockSize: cfg.BlockSize,
		logger:    cfg.Logger,
	}, nil
}

// Connect performs the client-credentials exchange and swaps the stored
// credential. It may be re-invoked to refresh the session: requests issued
// afterwards carry the new token, requests already in flight keep the one
// they read.
func (a *Fs) Connect(ctx context.Context) error {
	if a.exchanger == nil {
		return nil
	}
	cred, err := a.exchanger.Connect(ctx)
	if err != nil {
		return err
	}
	a.holder.Set(cred)
	return nil
}

// Credential returns a copy of the current credential.
func (a *Fs) Credential() auth.Credential {
	return a.holder.Credential()
}

// StripProtocol turns a fully qualified abfs:// or abfss:// path into a
// filesystem-relative one.
func StripProtocol(path string) string {
	path = strings.TrimSuffix(path, "/")
	for _, proto := range []string{"abfss://", "abfs://"} {
		if strings.HasPrefix(path, proto) {
			path = path[len(proto):]
			break
		}
	}
	return strings.Trim(path, "/")
}

// Open returns a buffered file handle for path. Accepted modes are "rb"
// for reading and "wb" (or empty) for writing; anything else is rejected.
func (a *Fs) Open(ctx context.Context, path, mode string, opts ...OpenOption) (*File, error) {
	m, err := ParseMode(mode)
	if err != nil {
		return nil, err
	}
	f := &File{
		fs:        a,
		ctx:       ctx,
		path:      StripProtocol(path),
		mode:      m,
		blockSize: a.blockSize,
		logger:    a.logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// ReadFile fetches the entire object at path in one unranged GET.
func (a *Fs) ReadFile(ctx context.Context, path string) ([]byte, error) {
	f, err := a.Open(ctx, path, "rb")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.readWhole()
}

// WriteFile writes data to path as a single-shot upload.
func (a *Fs) WriteFile(ctx context.Context, path string, data []byte) error {
	f, err := a.Open(ctx, path, "wb", WithSingleShot())
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
