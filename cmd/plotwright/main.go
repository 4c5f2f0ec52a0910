// Command plotwright ingests TV episode transcripts into a vector-searchable
// knowledge base and answers questions about the series.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plotwright/plotwright/internal/config"
	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/normalize"
	"github.com/plotwright/plotwright/internal/observe"
	"github.com/plotwright/plotwright/internal/pipeline"
	"github.com/plotwright/plotwright/internal/series"
	"github.com/plotwright/plotwright/pkg/knowledge"
	"github.com/plotwright/plotwright/pkg/knowledge/postgres"
	"github.com/plotwright/plotwright/pkg/provider/embeddings"
	oaembed "github.com/plotwright/plotwright/pkg/provider/embeddings/openai"
	"github.com/plotwright/plotwright/pkg/provider/llm"
	"github.com/plotwright/plotwright/pkg/provider/llm/anyllm"
)

const usage = `Usage: plotwright [flags] <command> [arguments]

Commands:
  process   -transcript FILE -season N -episode N -title TITLE
            ingest one episode transcript
  summary   -season N -episode N
            print the stored episode summary
  profile   NAME
            print a character profile
  search    QUERY...
            semantic search across all collections
  stats     print per-collection counts
  health    probe the store and the model provider
  reset     -yes
            delete every record in the knowledge base

Flags:
`

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "plotwright: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "plotwright: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	command := flag.Arg(0)
	if command == "" {
		flag.Usage()
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "plotwright"})
	if err != nil {
		slog.Error("telemetry init failed", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	normalize.RepairHook = func(outcome string) {
		observe.DefaultMetrics().RecordParseRepair(context.Background(), outcome)
	}

	if cfg.Server.ListenAddr != "" {
		go serveMetrics(cfg.Server.ListenAddr)
	}

	s, err := buildSeries(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		return 1
	}
	printStartupSummary(cfg)

	if err := dispatch(ctx, s, command, flag.Args()[1:]); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("interrupted")
			return 130
		}
		slog.Error("command failed", "command", command, "err", err)
		return 1
	}
	return 0
}

// buildSeries wires the provider stack, the store, and the series facade
// from the loaded configuration.
func buildSeries(ctx context.Context, cfg *config.Config) (*series.Series, error) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	llmProvider, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name)

	embedder, err := reg.CreateEmbeddings(cfg.Providers.Embeddings)
	if err != nil {
		return nil, fmt.Errorf("create embeddings provider %q: %w", cfg.Providers.Embeddings.Name, err)
	}
	slog.Info("provider created", "kind", "embeddings", "name", cfg.Providers.Embeddings.Name)

	store, err := postgres.NewStore(ctx, cfg.Knowledge.PostgresDSN, cfg.Series.Name, embedder)
	if err != nil {
		return nil, fmt.Errorf("open knowledge store: %w", err)
	}

	var processorOpts []pipeline.ProcessorOption
	if cfg.Pipeline.Temperature > 0 {
		processorOpts = append(processorOpts, pipeline.WithTemperature(cfg.Pipeline.Temperature))
	}
	if cfg.Pipeline.MaxTokens > 0 {
		processorOpts = append(processorOpts, pipeline.WithMaxTokens(cfg.Pipeline.MaxTokens))
	}
	if cfg.Pipeline.ProfileConcurrency > 0 {
		processorOpts = append(processorOpts, pipeline.WithProfileConcurrency(cfg.Pipeline.ProfileConcurrency))
	}

	return series.New(cfg.Series.Name, store, llmProvider,
		series.WithProcessorOptions(processorOpts...),
	), nil
}

// dispatch runs one subcommand against the series facade.
func dispatch(ctx context.Context, s *series.Series, command string, args []string) error {
	switch command {
	case "process":
		return cmdProcess(ctx, s, args)
	case "summary":
		return cmdSummary(ctx, s, args)
	case "profile":
		return cmdProfile(ctx, s, args)
	case "search":
		return cmdSearch(ctx, s, args)
	case "stats":
		return cmdStats(ctx, s)
	case "health":
		return cmdHealth(ctx, s)
	case "reset":
		return cmdReset(ctx, s, args)
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func cmdProcess(ctx context.Context, s *series.Series, args []string) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	transcriptPath := fs.String("transcript", "", "path to the transcript file")
	season := fs.Int("season", 0, "season number")
	episode := fs.Int("episode", 0, "episode number")
	title := fs.String("title", "", "episode title")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *transcriptPath == "" {
		return fmt.Errorf("process: -transcript is required")
	}

	transcript, err := os.ReadFile(*transcriptPath)
	if err != nil {
		return fmt.Errorf("read transcript: %w", err)
	}

	info := model.EpisodeInfo{Season: *season, Episode: *episode, Title: *title}
	start := time.Now()
	ep, err := s.ProcessEpisode(ctx, string(transcript), info)
	if err != nil {
		return err
	}

	fmt.Printf("Processed %s %q in %s\n", ep.ID, ep.Info.Title, time.Since(start).Round(time.Second))
	fmt.Printf("  scenes: %d  characters introduced: %d  plot arcs: %d  importance: %.2f\n",
		len(ep.Scenes), len(ep.CharactersIntroduced), len(ep.PlotArcs), ep.ImportanceScore)
	fmt.Printf("\n%s\n", ep.Summary)
	return nil
}

func cmdSummary(ctx context.Context, s *series.Series, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	season := fs.Int("season", 0, "season number")
	episode := fs.Int("episode", 0, "episode number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	summary, err := s.EpisodeSummary(ctx, *season, *episode)
	if err != nil {
		return err
	}
	fmt.Println(summary)
	return nil
}

func cmdProfile(ctx context.Context, s *series.Series, args []string) error {
	name := strings.TrimSpace(strings.Join(args, " "))
	if name == "" {
		return fmt.Errorf("profile: character name is required")
	}

	profile, err := s.Queries().Profile(ctx, name)
	if err != nil {
		return err
	}

	ch := profile.Character
	fmt.Printf("%s (%s)\n", ch.Name, ch.Role)
	if ch.Description != "" {
		fmt.Println(ch.Description)
	}
	if ch.FirstAppearance != "" {
		fmt.Printf("Appears: %s – %s (%d episodes)\n",
			ch.FirstAppearance, ch.LastAppearance, len(ch.EpisodeAppearances))
	}
	if profile.Summary != "" {
		fmt.Printf("\n%s\n", profile.Summary)
	}
	if len(profile.Relationships) > 0 {
		fmt.Println("\nRelationships:")
		for _, rel := range profile.Relationships {
			fmt.Printf("  %-24s %s, %s\n", rel.OtherCharacter, rel.Type, rel.CurrentStatus)
		}
	}
	return nil
}

func cmdSearch(ctx context.Context, s *series.Series, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return fmt.Errorf("search: query text is required")
	}

	results, err := s.Queries().Search(ctx, text, 3)
	if err != nil {
		return err
	}
	for _, col := range knowledge.AllCollections() {
		matches := results.Matches[col]
		if len(matches) == 0 {
			continue
		}
		fmt.Printf("%s:\n", col)
		for _, m := range matches {
			fmt.Printf("  %-28s %s\n", m.ID, firstLine(m.Document))
		}
	}
	return nil
}

func cmdStats(ctx context.Context, s *series.Series) error {
	st, err := s.Statistics(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Series: %s\n", st.SeriesName)
	fmt.Printf("  episodes:      %d\n", st.Episodes)
	fmt.Printf("  scenes:        %d\n", st.Scenes)
	fmt.Printf("  characters:    %d\n", st.Characters)
	fmt.Printf("  relationships: %d\n", st.Relationships)
	fmt.Printf("  plot events:   %d\n", st.PlotEvents)
	return nil
}

func cmdHealth(ctx context.Context, s *series.Series) error {
	h := s.HealthCheck(ctx)
	fmt.Printf("status: %s\n", h.Status)
	for name, comp := range h.Components {
		if comp.Error != "" {
			fmt.Printf("  %-16s %s (%s)\n", name, comp.Status, comp.Error)
		} else {
			fmt.Printf("  %-16s %s\n", name, comp.Status)
		}
	}
	if h.Status != series.StatusHealthy {
		return fmt.Errorf("health check: %s", h.Status)
	}
	return nil
}

func cmdReset(ctx context.Context, s *series.Series, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "confirm deletion of all data")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := s.Reset(ctx, *yes); err != nil {
		if errors.Is(err, series.ErrResetNotConfirmed) {
			return fmt.Errorf("reset deletes all processed data; re-run with -yes to confirm")
		}
		return err
	}
	fmt.Println("knowledge base reset")
	return nil
}

// registerBuiltinProviders wires the provider factories that ship with
// plotwright into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// Remote LLM backends share the pattern: optional APIKey + BaseURL.
	for _, providerName := range []string{
		"groq", "openai", "anthropic", "gemini",
		"deepseek", "mistral", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; BaseURL is the address, no API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	reg.RegisterEmbeddings("openai", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		var opts []oaembed.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaembed.WithBaseURL(entry.BaseURL))
		}
		return oaembed.New(entry.APIKey, entry.Model, opts...)
	})

	// ollama exposes an OpenAI-compatible embeddings endpoint; the API key is
	// required by the client but ignored by the server.
	reg.RegisterEmbeddings("ollama", func(entry config.ProviderEntry) (embeddings.Provider, error) {
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		apiKey := entry.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		return oaembed.New(apiKey, entry.Model, oaembed.WithBaseURL(baseURL))
	})
}

// serveMetrics exposes the Prometheus scrape endpoint.
func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	handler := observe.Middleware(observe.DefaultMetrics())(mux)
	slog.Info("metrics server listening", "addr", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Warn("metrics server stopped", "err", err)
	}
}

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║        Plotwright startup           ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printField("Series", cfg.Series.Name)
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("Embeddings", cfg.Providers.Embeddings.Name, cfg.Providers.Embeddings.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printField("Store", "postgres")
	if cfg.Server.ListenAddr != "" {
		printField("Metrics", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, modelName string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if modelName != "" {
		value = name + " / " + modelName
	}
	printField(kind, value)
}

func printField(kind, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", kind, value)
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// firstLine truncates a document to its first line for compact listings.
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}
