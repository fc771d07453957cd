// Command bugtracker runs the bug tracker API and its maintenance tasks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bigyanadk07/BugTracker"
	"github.com/bigyanadk07/BugTracker/api"
	"github.com/bigyanadk07/BugTracker/auth"
	"github.com/bigyanadk07/BugTracker/config"
	"github.com/bigyanadk07/BugTracker/health"
	"github.com/bigyanadk07/BugTracker/logging"
	"github.com/bigyanadk07/BugTracker/metrics"
	"github.com/bigyanadk07/BugTracker/middleware"
	"github.com/bigyanadk07/BugTracker/model"
	"github.com/bigyanadk07/BugTracker/otel"
	"github.com/bigyanadk07/BugTracker/store"
	"github.com/bigyanadk07/BugTracker/store/memstore"
	"github.com/bigyanadk07/BugTracker/store/sqlstore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = serveCmd(os.Args[2:])
	case "migrate":
		err = migrateCmd(os.Args[2:])
	case "user":
		err = userCmd(os.Args[2:])
	case "token":
		err = tokenCmd(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fatal(err)
	}
}

func usage() {
	fmt.Println("bugtracker")
	fmt.Println("\nCommands:")
	fmt.Println("  bugtracker serve [-config config.json]")
	fmt.Println("  bugtracker migrate <up|down|plan> [-config config.json] [-steps 1]")
	fmt.Println("  bugtracker user -email <email> -name <name> -password <password> [-role Admin] [-config config.json]")
	fmt.Println("  bugtracker token -email <email> [-config config.json]")
}

func serveCmd(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "JSON config file")
	_ = fs.Parse(args)

	cfg, logger, closeLog, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	shutdownTracing, err := otel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("trace shutdown failed", slog.String("error", err.Error()))
		}
	}()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	codec, err := newCodec(cfg)
	if err != nil {
		return err
	}

	checks := health.New(health.WithTimeout(2 * time.Second))
	checks.Add("process", nil)
	checks.AddReady("store", health.PingCheck(st))

	limiter, err := newLimiter(cfg, checks)
	if err != nil {
		return err
	}

	server, err := api.New(api.Options{
		Bugs:    st,
		Users:   st,
		Codec:   codec,
		Metrics: metrics.New(),
		Health:  checks,
		Limiter: limiter,
	})
	if err != nil {
		return err
	}

	var tracer middleware.Tracer
	if cfg.OTEL.Endpoint != "" {
		tracer = otel.NewTracer(cfg.OTEL.ServiceName)
	}

	app := api.NewApp(cfg, logger, server, tracer)
	return app.RunWithSignals()
}

func migrateCmd(args []string) error {
	if len(args) == 0 {
		fmt.Println("usage: bugtracker migrate <up|down|plan> ...")
		return nil
	}

	fs := flag.NewFlagSet("migrate "+args[0], flag.ExitOnError)
	configPath := fs.String("config", "", "JSON config file")
	steps := fs.Int("steps", 1, "Migrations to roll back")
	_ = fs.Parse(args[1:])

	cfg, logger, closeLog, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Database.Driver == config.DriverMemory {
		return errors.New("migrate: the memory driver has no schema")
	}

	// Open without auto-migrate so plan and down see the real state.
	dbCfg := cfg.Database
	dbCfg.AutoMigrate = false
	ctx := context.Background()
	st, err := sqlstore.Open(ctx, dbCfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	runner := sqlstore.Migrator(st.DB(), dbCfg.Driver, logger)
	switch args[0] {
	case "up":
		count, err := runner.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s)\n", count)
	case "down":
		count, err := runner.Down(ctx, *steps)
		if err != nil {
			return err
		}
		fmt.Printf("rolled back %d migration(s)\n", count)
	case "plan":
		plan, err := runner.Plan(ctx)
		if err != nil {
			return err
		}
		for _, entry := range plan {
			status := "pending"
			if entry.Applied {
				status = "applied"
			}
			fmt.Printf("%s %d %s\n", status, entry.Version, entry.Name)
		}
	default:
		fmt.Println("usage: bugtracker migrate <up|down|plan> ...")
	}
	return nil
}

// userCmd creates an account with any role, so a fresh deployment can get
// its first Admin.
func userCmd(args []string) error {
	fs := flag.NewFlagSet("user", flag.ExitOnError)
	configPath := fs.String("config", "", "JSON config file")
	email := fs.String("email", "", "Account email")
	name := fs.String("name", "", "Display name")
	password := fs.String("password", "", "Account password")
	roleName := fs.String("role", string(bugtracker.RoleAdmin), "User, Tester or Admin")
	_ = fs.Parse(args)

	if *email == "" || *name == "" || len(*password) < 6 {
		fmt.Println("usage: bugtracker user -email <email> -name <name> -password <at least 6 chars> [-role Admin]")
		return nil
	}
	role, ok := auth.ParseRole(*roleName)
	if !ok {
		return fmt.Errorf("unknown role %q", *roleName)
	}

	cfg, logger, closeLog, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	hash, err := auth.HashPassword(*password)
	if err != nil {
		return err
	}
	user, err := st.CreateUser(ctx, model.User{Name: *name, Email: *email, PasswordHash: hash, Role: role})
	if errors.Is(err, store.ErrConflict) {
		existing, lookupErr := st.UserByEmail(ctx, *email)
		if lookupErr != nil {
			return lookupErr
		}
		user, err = st.UpdateUser(ctx, existing.ID, model.UserPatch{Name: name, PasswordHash: &hash, Role: &role})
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s %s\n", user.ID, user.Email, user.Role)
	return nil
}

func tokenCmd(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	configPath := fs.String("config", "", "JSON config file")
	email := fs.String("email", "", "Account email")
	_ = fs.Parse(args)

	if *email == "" {
		fmt.Println("usage: bugtracker token -email <email>")
		return nil
	}

	cfg, logger, closeLog, err := setup(*configPath)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := context.Background()
	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	user, err := st.UserByEmail(ctx, *email)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", *email, err)
	}
	codec, err := newCodec(cfg)
	if err != nil {
		return err
	}
	token, err := codec.Issue(user.Principal(), time.Now())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func setup(configPath string) (config.Config, *slog.Logger, func() error, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, nil, nil, err
	}
	logger, closeLog, err := logging.Open(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return cfg, nil, nil, err
	}
	return cfg, logger, closeLog, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		return memstore.New(), nil
	}
	return sqlstore.Open(ctx, cfg.Database, logger)
}

func newCodec(cfg config.Config) (*auth.TokenCodec, error) {
	return auth.NewTokenCodec([]byte(cfg.JWT.Secret), cfg.JWT.TTL)
}

func newLimiter(cfg config.Config, checks *health.Registry) (middleware.Allower, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	if cfg.Redis.URL == "" {
		return middleware.NewLimiter(cfg.RateLimit.Rate, cfg.RateLimit.Burst), nil
	}

	client, err := middleware.NewRedisClient(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	checks.AddReady("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return middleware.NewRedisLimiter(client, cfg.RateLimit.Rate, cfg.RateLimit.Burst, middleware.RedisLimiterOptions{}), nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
