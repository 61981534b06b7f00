package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"fortnite-checker-api/internal/app"
	"fortnite-checker-api/internal/cli"
	"fortnite-checker-api/internal/config"
	"fortnite-checker-api/internal/logger"
	"fortnite-checker-api/internal/vault"
)

// Version is set via ldflags during build.
var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	vaultPath := flag.String("vault", defaultVaultPath(), "Path to the device secret vault")
	flag.Usage = func() { cli.PrintUsage(os.Stderr) }
	flag.Parse()

	if *showVersion {
		fmt.Printf("checker %s\n", Version)
		return
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage(os.Stderr)
		os.Exit(1)
	}

	if err := run(args[0], args[1:], *vaultPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string, vaultPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Progress goes to stdout; keep logs quiet unless asked for.
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stdio := cli.NewStdio()
	passphrase, err := cli.ReadPassphrase(stdio)
	if err != nil {
		return err
	}

	v, err := vault.Open(vaultPath, passphrase)
	if err != nil {
		return err
	}
	defer v.Close()

	services := app.NewServices(ctx, cfg, logger.L)
	defer services.Close()

	c := cli.New(stdio, os.Stdout, v, services.Broker, services.Poller, services.Bulk)
	return c.Run(ctx, command, args)
}

func defaultVaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "vault.db"
	}
	return filepath.Join(home, ".fnchecker", "vault.db")
}
