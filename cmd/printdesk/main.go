package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/makerforge/printdesk/internal/auth/oidc"
	"github.com/makerforge/printdesk/internal/auth/state"
	"github.com/makerforge/printdesk/internal/config"
	"github.com/makerforge/printdesk/internal/domain/repositories"
	"github.com/makerforge/printdesk/internal/domain/services"
	"github.com/makerforge/printdesk/internal/infrastructure/database/memory"
	"github.com/makerforge/printdesk/internal/infrastructure/database/postgres"
	"github.com/makerforge/printdesk/internal/pkg/idgen"
	"github.com/makerforge/printdesk/internal/pkg/logger"
	"github.com/makerforge/printdesk/internal/printer"
	"github.com/makerforge/printdesk/internal/web/handlers"
	"github.com/makerforge/printdesk/internal/web/middleware"
	"github.com/makerforge/printdesk/internal/web/session"
	"github.com/makerforge/printdesk/migrations"
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:   "printdesk",
		Short: "Makerspace 3D print request portal",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel, logFormat)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(configPath)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format (text, json)")

	cmd.AddCommand(newServeCommand(&configPath))
	cmd.AddCommand(newMigrateCommand(&configPath))
	cmd.AddCommand(newUserCommand(&configPath))

	return cmd
}

func newServeCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the portal HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(*configPath)
		},
	}
}

func newMigrateCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if cfg.Database.Driver != "postgres" {
				return fmt.Errorf("migrations require database.driver=postgres")
			}

			conn, err := postgres.NewConnection(cfg.Database.Postgres.ConnectionString())
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer conn.Close()

			return conn.RunMigrations(migrations.FS)
		},
	}
}

func newUserCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List provisioned users",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			repo, cleanup, err := newUserRepository(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			users, err := services.NewUserService(repo).ListUsers(context.Background())
			if err != nil {
				return err
			}

			for _, u := range users {
				fmt.Printf("%s\t%s\t%s\n", u.ExternalID, u.DisplayName, u.Email)
			}
			return nil
		},
	})

	return cmd
}

// setupLogging configures the global logger
func setupLogging(logLevel, logFormat string) error {
	globalLogger, err := logger.SetupLogger(logger.Config{
		Level:       logger.ParseLevel(logLevel),
		LogToStderr: true,
		Format:      logFormat,
	})
	if err != nil {
		return err
	}

	slog.SetDefault(globalLogger)
	return nil
}

// newUserRepository builds the identity store backend selected by config
func newUserRepository(cfg *config.Config) (repositories.UserRepository, func(), error) {
	if cfg.Database.Driver == "memory" {
		return memory.NewUserRepository(), func() {}, nil
	}

	conn, err := postgres.NewConnection(cfg.Database.Postgres.ConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.RunMigrations(migrations.FS); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres.NewUserRepository(conn.DB), func() { conn.Close() }, nil
}

func runServer(configPath string) error {
	log := slog.Default().With("component", "web")
	log.Info("starting printdesk")

	if err := idgen.Initialize(1); err != nil {
		return fmt.Errorf("failed to initialize ID generator: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	sessionSecret, err := base64.StdEncoding.DecodeString(cfg.Session.Secret)
	if err != nil {
		// Not base64, use the raw value
		sessionSecret = []byte(cfg.Session.Secret)
	}

	userRepo, cleanup, err := newUserRepository(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	userSvc := services.NewUserService(userRepo)
	sessionMgr := session.NewManager(sessionSecret, userRepo)
	stateSigner := state.NewSigner(sessionSecret)

	httpClient := &http.Client{Timeout: 15 * time.Second}
	discovery := oidc.NewDiscoveryClient(cfg.OAuth.DiscoveryURL, httpClient, 24*time.Hour)
	flow := oidc.NewFlow(oidc.ClientConfig{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
	}, httpClient)

	h := handlers.New(
		discovery,
		flow,
		userSvc,
		sessionMgr,
		stateSigner,
		printer.OfflineSource{},
		cfg.Printers.Names,
		cfg.OAuth.CallbackURL,
		log,
	)

	authMw := middleware.NewAuthMiddleware(sessionMgr, log)
	router := createRouter(h, authMw)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Info("listening", slog.String("address", addr))

	if err := http.ListenAndServe(addr, router); err != nil {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// createRouter sets up the HTTP router with all routes and middleware
func createRouter(h *handlers.Handler, authMw *middleware.AuthMiddleware) http.Handler {
	router := mux.NewRouter()

	// Public routes
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.HandleFunc("/", h.Home).Methods("GET")
	router.HandleFunc("/login", h.Login).Methods("GET")
	router.HandleFunc("/login/callback", h.AuthCallback).Methods("GET")

	// Protected routes
	router.Handle("/logout", authMw.RequireAuth(http.HandlerFunc(h.Logout))).Methods("GET", "POST")
	router.Handle("/form", authMw.RequireAuth(http.HandlerFunc(h.Form))).Methods("GET")
	router.Handle("/status", authMw.RequireAuth(http.HandlerFunc(h.Status))).Methods("GET")
	router.Handle("/queue", authMw.RequireAuth(http.HandlerFunc(h.Queue))).Methods("GET")
	router.Handle("/members", authMw.RequireAuth(http.HandlerFunc(h.Members))).Methods("GET")
	router.Handle("/request", authMw.RequireAuth(http.HandlerFunc(h.SubmitRequest))).Methods("POST")
	router.Handle("/error-no-print-attached", authMw.RequireAuth(http.HandlerFunc(h.Failure))).Methods("GET")

	return middleware.LogRequest(router)
}
