// adlfs — command-line access to Azure Data Lake Gen2 filesystems.
//
// Sub-commands:
//
//	adlfs ls [-l] [-r] <path>     List a directory
//	adlfs stat <path>             Show entry metadata
//	adlfs cat <path>              Print file contents to stdout
//	adlfs put <local> <remote>    Upload a local file
//	adlfs glob <pattern>          List paths matching a glob pattern
//
// Connection settings come from the environment: ADLFS_ACCOUNT,
// ADLFS_FILESYSTEM, and either AZURE_TENANT_ID / AZURE_CLIENT_ID /
// AZURE_CLIENT_SECRET or a pre-acquired ADLFS_TOKEN.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/datalake-go/adlfs/internal/config"
	"github.com/datalake-go/adlfs/internal/logging"
	"github.com/datalake-go/adlfs/pkg/fs"
	"github.com/datalake-go/adlfs/pkg/retry"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "ls":
		err = cmdLs(ctx, os.Args[2:])
	case "stat":
		err = cmdStat(ctx, os.Args[2:])
	case "cat":
		err = cmdCat(ctx, os.Args[2:])
	case "put":
		err = cmdPut(ctx, os.Args[2:])
	case "glob":
		err = cmdGlob(ctx, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "adlfs:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: adlfs <command> [flags] [args]

commands:
  ls [-l] [-r] <path>     list a directory
  stat <path>             show entry metadata
  cat <path>              print file contents
  put <local> <remote>    upload a local file
  glob <pattern>          list paths matching a pattern`)
}

// connect builds the facade from the environment and establishes a session.
func connect(ctx context.Context) (*fs.Fs, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, nil, err
	}

	var retryCfg *retry.Config
	if cfg.RetryMaxAttempts > 0 {
		rc := retry.DefaultConfig()
		rc.MaxAttempts = cfg.RetryMaxAttempts
		retryCfg = &rc
	}

	facade, err := fs.New(fs.Config{
		Account:      cfg.Account,
		Filesystem:   cfg.Filesystem,
		DNSSuffix:    cfg.DNSSuffix,
		TenantID:     cfg.TenantID,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Token:        cfg.Token,
		BlockSize:    cfg.BlockSize,
		Retry:        retryCfg,
		Logger:       logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := facade.Connect(ctx); err != nil {
		return nil, nil, err
	}
	return facade, logger, nil
}

func cmdLs(ctx context.Context, args []string) error {
	fset := flag.NewFlagSet("ls", flag.ExitOnError)
	long := fset.Bool("l", false, "show size and type")
	recursive := fset.Bool("r", false, "list recursively")
	fset.Parse(args)

	path := ""
	if fset.NArg() > 0 {
		path = fset.Arg(0)
	}

	facade, logger, err := connect(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if !*long {
		names, err := facade.Ls(ctx, path)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	entries, err := facade.List(ctx, path, *recursive)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		fmt.Printf("%-9s %12d  %s\n", entry.Kind, entry.Size, entry.Name)
	}
	return nil
}

func cmdStat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("stat: expected exactly one path")
	}
	facade, logger, err := connect(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	entry, err := facade.Info(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("name: %s\ntype: %s\nsize: %d\n", entry.Name, entry.Kind, entry.Size)
	return nil
}

func cmdCat(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("cat: expected exactly one path")
	}
	facade, logger, err := connect(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	f, err := facade.Open(ctx, args[0], "rb")
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(os.Stdout, f)
	return err
}

func cmdPut(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("put: expected <local> <remote>")
	}
	facade, logger, err := connect(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	local, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer local.Close()

	f, err := facade.Open(ctx, args[1], "wb")
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, local); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cmdGlob(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("glob: expected exactly one pattern")
	}
	facade, logger, err := connect(ctx)
	if err != nil {
		return err
	}
	defer logger.Sync()

	matches, err := facade.Glob(ctx, args[0])
	if err != nil {
		return err
	}
	for _, m := range matches {
		fmt.Println(m)
	}
	return nil
}
