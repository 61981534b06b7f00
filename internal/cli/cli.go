// Package cli implements the checker command line: device login, a local
// vault of device secrets and bulk checks over it.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"fortnite-checker-api/internal/model"
	"fortnite-checker-api/internal/service"
)

// PassphraseEnv names the variable that supplies the vault passphrase.
const PassphraseEnv = "CHECKER_VAULT_PASSPHRASE"

// SecretStore is the device secret vault.
type SecretStore interface {
	Put(ctx context.Context, ds model.DeviceSecret) error
	List(ctx context.Context) ([]model.DeviceSecret, error)
	Delete(ctx context.Context, accountID string) error
}

// DeviceFlow starts device authorization and provisions device secrets.
type DeviceFlow interface {
	BeginDeviceAuthorization(ctx context.Context) (model.DeviceAuthorization, error)
	CreateDeviceSecret(ctx context.Context, cred model.Credential) (model.DeviceSecret, error)
}

// Awaiter runs the device-code poll loop.
type Awaiter interface {
	Await(ctx context.Context, auth model.DeviceAuthorization, onStart func(model.DeviceAuthorization)) (model.Credential, error)
}

// BulkRunner checks many device secrets.
type BulkRunner interface {
	CheckAll(ctx context.Context, items []model.DeviceSecret, opts service.BulkOptions) model.BulkReport
}

// Cli holds the command dependencies.
type Cli struct {
	io     IO
	out    io.Writer
	vault  SecretStore
	flow   DeviceFlow
	poller Awaiter
	bulk   BulkRunner
}

// New creates a Cli. out receives machine-readable output.
func New(tio IO, out io.Writer, vault SecretStore, flow DeviceFlow, poller Awaiter, bulk BulkRunner) *Cli {
	return &Cli{io: tio, out: out, vault: vault, flow: flow, poller: poller, bulk: bulk}
}

// Run dispatches one command.
func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return c.runLogin(ctx, args)
	case "add":
		return c.runAdd(ctx, args)
	case "list":
		return c.runList(ctx)
	case "remove":
		return c.runRemove(ctx, args)
	case "check":
		return c.runCheck(ctx, args)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// PrintUsage prints the command summary.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: checker [global flags] <command> [flags]

Commands:
  login  [-label name]                                   sign in with a device code and save a device secret
  add    -device-id id -account-id id -secret s [-label name]   save an existing device secret
  list                                                   list saved device secrets
  remove <account-id>                                    delete a saved device secret
  check  [-detailed] [-json]                             check every saved device secret

Global flags:
  -vault path   vault file (default ~/.fnchecker/vault.db)
  -version      print version
`)
}

// ReadPassphrase returns the vault passphrase from the environment or a prompt.
func ReadPassphrase(tio IO) (string, error) {
	if pw := os.Getenv(PassphraseEnv); pw != "" {
		return pw, nil
	}
	pw, err := tio.ReadPassword("Vault passphrase: ")
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	if pw == "" {
		return "", errors.New("passphrase cannot be empty")
	}
	return pw, nil
}

func (c *Cli) runLogin(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	label := fs.String("label", "", "label for the saved secret (default: display name)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	auth, err := c.flow.BeginDeviceAuthorization(ctx)
	if err != nil {
		return fmt.Errorf("failed to start device login: %w", err)
	}

	cred, err := c.poller.Await(ctx, auth, func(a model.DeviceAuthorization) {
		c.io.Println("Open this URL in a browser and approve the login:")
		c.io.Printf("  %s\n", a.VerificationURIComplete)
		c.io.Printf("Code: %s (expires in %ds)\n", a.UserCode, a.ExpiresIn)
		c.io.Println("Waiting for approval... (Ctrl-C to cancel)")
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	c.io.Printf("Logged in as %s\n", cred.DisplayName)

	ds, err := c.flow.CreateDeviceSecret(ctx, cred)
	if err != nil {
		return fmt.Errorf("failed to create device secret: %w", err)
	}
	if *label != "" {
		ds.Label = *label
	}
	if err := c.vault.Put(ctx, ds); err != nil {
		return fmt.Errorf("failed to save device secret: %w", err)
	}

	c.io.Printf("Saved device secret for %s\n", ds.DisplayLabel())
	return nil
}

func (c *Cli) runAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	var ds model.DeviceSecret
	fs.StringVar(&ds.DeviceID, "device-id", "", "device id")
	fs.StringVar(&ds.AccountID, "account-id", "", "account id")
	fs.StringVar(&ds.Secret, "secret", "", "device secret (prompted when empty)")
	fs.StringVar(&ds.Label, "label", "", "label")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if ds.Secret == "" && ds.DeviceID != "" && ds.AccountID != "" {
		secret, err := c.io.ReadPassword("Secret: ")
		if err != nil {
			return fmt.Errorf("failed to read secret: %w", err)
		}
		ds.Secret = strings.TrimSpace(secret)
	}
	if err := ds.Validate(); err != nil {
		return err
	}

	if err := c.vault.Put(ctx, ds); err != nil {
		return fmt.Errorf("failed to save device secret: %w", err)
	}
	c.io.Printf("Saved device secret for %s\n", ds.DisplayLabel())
	return nil
}

func (c *Cli) runList(ctx context.Context) error {
	secrets, err := c.vault.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list device secrets: %w", err)
	}
	if len(secrets) == 0 {
		c.io.Println("Vault is empty. Run 'checker login' or 'checker add'.")
		return nil
	}

	c.io.Printf("%-24s %-34s %s\n", "LABEL", "ACCOUNT", "DEVICE")
	for _, ds := range secrets {
		c.io.Printf("%-24s %-34s %s\n", ds.DisplayLabel(), ds.AccountID, model.MaskSecret(ds.DeviceID))
	}
	c.io.Printf("%d secret(s)\n", len(secrets))
	return nil
}

func (c *Cli) runRemove(ctx context.Context, args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: checker remove <account-id>")
	}
	if err := c.vault.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to remove %s: %w", args[0], err)
	}
	c.io.Printf("Removed %s\n", args[0])
	return nil
}

func (c *Cli) runCheck(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	detailed := fs.Bool("detailed", false, "fetch the full account document for valid accounts")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secrets, err := c.vault.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list device secrets: %w", err)
	}
	if len(secrets) == 0 {
		c.io.Println("Vault is empty. Nothing to check.")
		return nil
	}

	if !*asJSON {
		c.io.Printf("Checking %d account(s)...\n", len(secrets))
	}
	report := c.bulk.CheckAll(ctx, secrets, service.BulkOptions{Detailed: *detailed})

	if *asJSON {
		enc := json.NewEncoder(c.out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	for i, res := range report.Results {
		mark := "FAIL"
		if res.Status == model.BulkStatusSuccess {
			mark = " OK "
		}
		line := fmt.Sprintf("[%d/%d] %s %s: %s", i+1, len(report.Results), mark, res.Label, res.Message)
		if res.Data != nil && res.Data.Summary != nil {
			s := res.Data.Summary
			line += fmt.Sprintf(" (%s, %d skins, %d V-Bucks)", s.DisplayName, s.Skins, s.VBucks)
		} else if res.Data != nil && res.Data.Document != nil {
			d := res.Data.Document
			line += fmt.Sprintf(" (%s, %d skins, %d V-Bucks)", d.Account.DisplayName, d.Counts.Skins, d.Account.VBucks)
		}
		c.io.Println(line)
	}
	c.io.Printf("Done: %d valid, %d failed, %d total\n", report.Summary.Valid, report.Summary.Failed, report.Summary.Total)
	return nil
}
