// hubctl is the operator CLI for a video hub deployment. It applies
// migrations, hashes passwords, issues access codes and bootstraps admin
// accounts against the same database the server uses.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"go-video-hub/internal/database"
	"go-video-hub/internal/model"
	"go-video-hub/internal/password"
	"go-video-hub/internal/repository"
	"go-video-hub/internal/service"
)

const usage = `usage: hubctl <command> [flags]

commands:
  migrate        apply pending schema migrations
  hash-password  print a password hash (bcrypt, or legacy with --legacy)
  gen-code       issue registration access codes
  create-admin   create an administrator account
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}

	switch args[0] {
	case "migrate":
		return runMigrate(ctx, args[1:])
	case "hash-password":
		return runHashPassword(args[1:], out)
	case "gen-code":
		return runGenCode(ctx, args[1:], out)
	case "create-admin":
		return runCreateAdmin(ctx, args[1:], out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func newFlagSet(name string) (*pflag.FlagSet, *string) {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	databaseURL := flags.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	return flags, databaseURL
}

func connect(ctx context.Context, url string) (*database.DB, error) {
	if url == "" {
		return nil, errors.New("--database-url or DATABASE_URL is required")
	}
	return database.New(ctx, url, 2, 0)
}

func runMigrate(ctx context.Context, args []string) error {
	flags, databaseURL := newFlagSet("migrate")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	db, err := connect(ctx, *databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.EnsureSchema(ctx)
}

func runHashPassword(args []string, out io.Writer) error {
	flags := pflag.NewFlagSet("hash-password", pflag.ContinueOnError)
	plain := flags.StringP("password", "p", "", "password to hash")
	legacy := flags.Bool("legacy", false, "use the legacy salted SHA-256 format")
	salt := flags.String("salt", "", "fixed salt for --legacy (\"demo\" selects the demo salt)")
	cost := flags.Int("cost", 12, "bcrypt cost")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *plain == "" {
		return errors.New("--password is required")
	}

	if !*legacy {
		hasher, err := password.NewHasher(password.SchemeBcrypt, *cost)
		if err != nil {
			return err
		}
		hash, err := hasher.Hash(*plain)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, hash)
		return nil
	}

	mode := password.ModeRandom
	switch *salt {
	case "":
	case "demo":
		mode = password.ModeDemo
	default:
		mode = password.ModeCustom
	}

	hash, err := password.Legacy{}.Hash(*plain, mode, *salt)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}

func runGenCode(ctx context.Context, args []string, out io.Writer) error {
	flags, databaseURL := newFlagSet("gen-code")
	count := flags.IntP("count", "n", 1, "number of codes to issue")
	dryRun := flags.Bool("dry-run", false, "print codes without storing them")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *count < 1 || *count > 100 {
		return errors.New("--count must be between 1 and 100")
	}

	if *dryRun {
		for i := 0; i < *count; i++ {
			code, err := service.GenerateAccessCode()
			if err != nil {
				return err
			}
			fmt.Fprintln(out, code)
		}
		return nil
	}

	db, err := connect(ctx, *databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	codes := service.NewAccessCodeService(repository.NewAccessCodeRepository(db.Pool))
	for i := 0; i < *count; i++ {
		code, err := codes.Generate(ctx, 0)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, code.Code)
	}
	return nil
}

func runCreateAdmin(ctx context.Context, args []string, out io.Writer) error {
	flags, databaseURL := newFlagSet("create-admin")
	username := flags.StringP("username", "u", "", "admin username")
	email := flags.StringP("email", "e", "", "admin email")
	plain := flags.StringP("password", "p", "", "admin password")
	cost := flags.Int("cost", 12, "bcrypt cost")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if *username == "" || *email == "" || *plain == "" {
		return errors.New("--username, --email and --password are required")
	}

	hasher, err := password.NewHasher(password.SchemeBcrypt, *cost)
	if err != nil {
		return err
	}

	db, err := connect(ctx, *databaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	roles := repository.NewRoleRepository(db.Pool)
	users := service.NewUserService(repository.NewUserRepository(db.Pool), roles,
		service.NewAccessCodeService(repository.NewAccessCodeRepository(db.Pool)), hasher)

	user, err := users.CreateByAdmin(ctx, model.AdminCreateUserRequest{
		Username: *username,
		Email:    *email,
		Password: *plain,
		Role:     "admin",
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created admin %s (id %d)\n", user.Username, user.ID)
	return nil
}
