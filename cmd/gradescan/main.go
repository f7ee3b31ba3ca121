package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/akshayhegde/gradescan/internal/handler"
	"github.com/akshayhegde/gradescan/internal/llm"
	"github.com/akshayhegde/gradescan/internal/llm/prompts"
	"github.com/akshayhegde/gradescan/internal/model"
	"github.com/akshayhegde/gradescan/internal/report"
	"github.com/akshayhegde/gradescan/internal/storage"
	"github.com/akshayhegde/gradescan/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gradescan",
		Short: "AI-assisted grading of scanned exam answer sheets",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd(), clearCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `gradescan --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the grading HTTP server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "gradescan.db", "SQLite database path")
	f.Bool("memory", false, "Keep results in memory only (demo mode, lost on exit)")
	f.String("llm-url", "https://generativelanguage.googleapis.com/v1beta/openai", "OpenAI-compatible API base URL")
	f.String("llm-key", "", "API key for the evaluation model")
	f.String("llm-model", "gemini-2.5-flash", "Multimodal model name")
	f.String("prompt-variant", string(prompts.VariantStandard), "Grading prompt variant (strict, standard, lenient)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored results as a class CSV report",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "gradescan.db", "SQLite database path")
	f.StringP("output", "o", "", "Output file path (- for stdout, empty for auto-named file)")
	f.String("prefix", "Class_Exam_Report", "Filename prefix for the auto-named report")
	f.String("subject", "", "Scope the report to one subject code")
	f.String("exam", "", "Scope the report to one exam name")
	f.String("class", "", "Scope the report to one class")
	f.String("semester", "", "Scope the report to one semester")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func clearCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored results",
		RunE:  runClear,
	}
	f := cmd.Flags()
	f.String("db", "gradescan.db", "SQLite database path")
	f.Bool("yes", false, "Confirm deletion (required)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
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

	v.SetEnvPrefix("GRADESCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("gradescan")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/gradescan")
	v.AddConfigPath("/etc/gradescan")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

// openBackend opens the configured storage backend and returns it with
// its close function.
func openBackend(v *viper.Viper) (storage.Backend, func() error, error) {
	if v.GetBool("memory") {
		return storage.NewMemory(), func() error { return nil }, nil
	}
	sq, err := storage.NewSQLite(v.GetString("db"))
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return sq, sq.Close, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	backend, closeBackend, err := openBackend(v)
	if err != nil {
		return err
	}
	defer closeBackend()

	resultStore := store.New(backend)

	promptVariant := strings.ToLower(strings.TrimSpace(v.GetString("prompt-variant")))
	if !prompts.IsValidVariant(promptVariant) {
		slog.Warn("invalid prompt-variant, using standard", "variant", promptVariant)
		promptVariant = string(prompts.VariantStandard)
	}
	llmClient, err := llm.New(
		v.GetString("llm-url"),
		v.GetString("llm-key"),
		v.GetString("llm-model"),
		promptVariant,
	)
	if err != nil {
		return fmt.Errorf("create LLM client: %w", err)
	}
	if err := llmClient.Ping(context.Background()); err != nil {
		return fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK", "url", v.GetString("llm-url"), "model", v.GetString("llm-model"))

	h := handler.New(resultStore, llmClient)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("llm-model"),
		"llm_url", v.GetString("llm-url"),
		"prompt_variant", promptVariant,
		"memory", v.GetBool("memory"),
	)
	return http.ListenAndServe(addr, r)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	backend, closeBackend, err := openBackend(v)
	if err != nil {
		return err
	}
	defer closeBackend()

	resultStore := store.New(backend)

	subject := v.GetString("subject")
	exam := v.GetString("exam")
	class := v.GetString("class")
	semester := v.GetString("semester")

	var results []model.ExamResult
	if subject != "" || exam != "" || class != "" || semester != "" {
		results, err = resultStore.FindBySession(subject, exam, class, semester)
	} else {
		results, err = resultStore.GetAll()
	}
	if err != nil {
		return fmt.Errorf("load results: %w", err)
	}

	now := time.Now()
	doc := report.BuildClassReport(results, now)

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "-" {
		w = os.Stdout
	} else {
		if outPath == "" {
			outPath = report.Filename(v.GetString("prefix"), now)
		}
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
		slog.Info("writing report", "path", outPath, "records", len(results))
	}

	if _, err := io.WriteString(w, doc); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	if !v.GetBool("yes") {
		return fmt.Errorf("refusing to delete stored results without --yes")
	}

	backend, closeBackend, err := openBackend(v)
	if err != nil {
		return err
	}
	defer closeBackend()

	if err := store.New(backend).ClearAll(); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	slog.Info("cleared all stored results")
	return nil
}
