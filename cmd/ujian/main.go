package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/ujian/internal/auth"
	"github.com/pavelanni/ujian/internal/exam"
	"github.com/pavelanni/ujian/internal/handler"
	appI18n "github.com/pavelanni/ujian/internal/i18n"
	"github.com/pavelanni/ujian/internal/metrics"
	"github.com/pavelanni/ujian/internal/model"
	"github.com/pavelanni/ujian/internal/session"
	"github.com/pavelanni/ujian/internal/sheet"
	"github.com/pavelanni/ujian/internal/store"
)

// adminUsername is the account seeded from --admin-password.
const adminUsername = "admin"

var defaultCourses = []string{"Matematika", "Pemrograman", "Jaringan", "AI"}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ujian",
		Short: "Timed multiple-choice online exams",
	}

	serve := serveCmd()
	root.AddCommand(serve, importCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `ujian --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addStoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("db-driver", store.DriverSQLite, "Database driver (sqlite, postgres)")
	f.String("db", "ujian.db", "SQLite database path or PostgreSQL connection string")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	addStoreFlags(cmd)
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.StringP("lang", "l", "id", "Default UI language (id, en)")
	f.String("admin-password", "", "Initial admin password (or set UJIAN_ADMIN_PASSWORD)")
	f.Duration("exam-duration", exam.DefaultDuration, "Time allowed for one exam attempt")
	f.Duration("idle-timeout", session.DefaultIdleTimeout, "Inactivity before a user is signed out")
	f.StringSlice("courses", defaultCourses, "Courses offered on the identity form")
	f.Bool("secure-cookies", true, "Set Secure flag on cookies")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.xlsx>",
		Short: "Import questions from an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	addStoreFlags(cmd)
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export exam results as an Excel workbook",
		RunE:  runExport,
	}
	addStoreFlags(cmd)
	cmd.Flags().StringP("output", "o", "-", "Output file path (- for stdout)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("UJIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("ujian")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/ujian")
	v.AddConfigPath("/etc/ujian")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func openStore(v *viper.Viper) (*store.Store, error) {
	db, err := store.New(v.GetString("db-driver"), v.GetString("db"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := seedAdmin(db, v.GetString("admin-password")); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	cfg := model.ServerConfig{
		Courses:       v.GetStringSlice("courses"),
		ExamDuration:  v.GetDuration("exam-duration"),
		IdleTimeout:   v.GetDuration("idle-timeout"),
		SecureCookies: v.GetBool("secure-cookies"),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := session.NewManager(cfg.IdleTimeout)
	go sessions.Run(ctx, time.Minute)

	h := handler.New(db, sessions, cfg)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(handler.Metrics)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Group(func(r chi.Router) {
		r.Use(appI18n.Middleware(cfg.SecureCookies))
		h.Routes(r)
	})

	addr := v.GetString("addr")
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	slog.Info("starting server",
		"addr", addr,
		"db_driver", v.GetString("db-driver"),
		"lang", lang,
		"courses", cfg.Courses,
		"exam_duration", cfg.ExamDuration,
		"idle_timeout", cfg.IdleTimeout,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	questions, err := sheet.ParseQuestions(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := db.InsertQuestions(questions)
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}
	metrics.QuestionsImported.Add(float64(n))
	slog.Info("imported questions", "path", args[0], "count", n)
	return nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := openStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := db.ListResults()
	if err != nil {
		return fmt.Errorf("list results: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := sheet.WriteResults(w, results); err != nil {
		return err
	}
	slog.Info("exported results", "count", len(results), "output", outPath)
	return nil
}

// seedAdmin creates the admin account when none exists yet.
func seedAdmin(db *store.Store, password string) error {
	count, err := db.CountUsersByRole(model.UserRoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return fmt.Errorf("admin password is required: set --admin-password flag or UJIAN_ADMIN_PASSWORD env var")
	}

	err = auth.NewService(db).RegisterAdmin(adminUsername, password)
	if errors.Is(err, auth.ErrUsernameTaken) {
		return fmt.Errorf("username %q is taken by a student account", adminUsername)
	}
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", adminUsername)
	return nil
}
