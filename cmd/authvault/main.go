// Command authvault is the admin tool for the local credential vault:
// issue and revoke bearer tokens, inspect records, try logins, and manage
// encrypted provider secrets.
//
// Usage:
//
//	authvault <command> [flags]
//
// Commands:
//
//	issue          mint a bearer token (-role user|manager|admin)
//	list           list records, newest first
//	delete         delete a record (-id)
//	login          prompt for a token and attempt a login
//	secret-add     attach an encrypted provider secret (-id, -provider, -limit)
//	secret-reveal  decrypt a provider secret (-id, -provider)
//
// Global flags (see internal/config): -c/-config, -d, -k, -i, -m, -w, -l.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/term"
	_ "modernc.org/sqlite"

	"authvault/internal/app"
	"authvault/internal/common"
	"authvault/internal/config"
	"authvault/internal/flagx"
	"authvault/internal/shared"
	"authvault/internal/store"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.LoadConfig()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("init: %v", err)
	}
	defer a.Close()

	if err := run(ctx, a, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: authvault <issue|list|delete|login|secret-add|secret-reveal> [flags]")
}

func run(ctx context.Context, a *app.App, command string, args []string) error {
	switch command {
	case "issue":
		return runIssue(ctx, a, args)
	case "list":
		return runList(ctx, a)
	case "delete":
		return runDelete(ctx, a, args)
	case "login":
		return runLogin(ctx, a)
	case "secret-add":
		return runSecretAdd(ctx, a, args)
	case "secret-reveal":
		return runSecretReveal(ctx, a, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runIssue(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	role := fs.String("role", string(store.RoleUser), "record role (user|manager|admin)")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-role"})); err != nil {
		return err
	}

	rawToken, rec, err := a.Auth.IssueToken(ctx, store.Role(*role))
	if err != nil {
		return err
	}

	fmt.Printf("record id: %s\n", rec.ID)
	fmt.Printf("token (shown once, store it now): %s\n", rawToken)
	return nil
}

func runList(ctx context.Context, a *app.App) error {
	records, err := a.Records.ListAll(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		fmt.Printf("%s  %-7s  created %s  last access %s  secrets %d\n",
			rec.ID, rec.Role,
			rec.CreatedAt.Format("2006-01-02 15:04:05"),
			rec.LastAccessAt.Format("2006-01-02 15:04:05"),
			len(rec.Secrets))
	}
	fmt.Printf("%d record(s)\n", len(records))
	return nil
}

func runDelete(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.String("id", "", "record id")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-id"})); err != nil {
		return err
	}
	if *id == "" {
		return errors.New("delete: -id is required")
	}

	if _, err := a.Records.Delete(ctx, *id); err != nil {
		return err
	}
	fmt.Println("deleted")
	return nil
}

func runLogin(ctx context.Context, a *app.App) error {
	token, err := promptSecret("Enter token: ")
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(token)

	session, err := a.Auth.Login(ctx, string(token))
	if err != nil {
		var rl *common.RateLimitedError
		if errors.As(err, &rl) {
			return fmt.Errorf("too many attempts, retry after %ds", rl.RetryAfterSeconds)
		}
		return err
	}

	fmt.Printf("authenticated: id=%s role=%s permissions=%v\n",
		session.ID, session.Role, session.Permissions)
	return nil
}

func runSecretAdd(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("secret-add", flag.ContinueOnError)
	id := fs.String("id", "", "record id")
	provider := fs.String("provider", "", "provider id")
	limit := fs.Int("limit", 0, "usage limit (0 = unlimited)")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-id", "-provider", "-limit"})); err != nil {
		return err
	}
	if *id == "" || *provider == "" {
		return errors.New("secret-add: -id and -provider are required")
	}

	secret, err := promptSecret("Enter secret value: ")
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(secret)

	passphrase, err := promptSecret("Enter passphrase: ")
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(passphrase)

	if err := a.Secrets.Add(ctx, *id, *provider, string(secret), string(passphrase), *limit); err != nil {
		return err
	}
	fmt.Println("secret stored")
	return nil
}

func runSecretReveal(ctx context.Context, a *app.App, args []string) error {
	fs := flag.NewFlagSet("secret-reveal", flag.ContinueOnError)
	id := fs.String("id", "", "record id")
	provider := fs.String("provider", "", "provider id")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-id", "-provider"})); err != nil {
		return err
	}
	if *id == "" || *provider == "" {
		return errors.New("secret-reveal: -id and -provider are required")
	}

	passphrase, err := promptSecret("Enter passphrase: ")
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(passphrase)

	plaintext, err := a.Secrets.Reveal(ctx, *id, *provider, string(passphrase))
	if err != nil {
		if errors.Is(err, common.ErrIntegrity) {
			return errors.New("secret cannot be decrypted with that passphrase")
		}
		return err
	}

	fmt.Println(plaintext)
	return nil
}

// promptSecret reads a value from the terminal without echo. The caller
// should wipe the returned bytes when done.
func promptSecret(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	value, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	return value, nil
}
