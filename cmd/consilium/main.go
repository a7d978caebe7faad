// Command consilium answers a medical question through the consultation
// pipeline: triage, parallel specialist consultation with bounded
// improvement retries, consensus, and a deterministic safety gate.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/term"

	"consilium/pkg/config"
	"consilium/pkg/consensus"
	"consilium/pkg/consult"
	"consilium/pkg/history"
	"consilium/pkg/llm"
	"consilium/pkg/llm/factory"
	"consilium/pkg/logx"
	"consilium/pkg/metrics"
	"consilium/pkg/persistence"
	"consilium/pkg/review"
	"consilium/pkg/safety"
	"consilium/pkg/specialist"
	"consilium/pkg/triage"
	"consilium/pkg/workflow"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML config file")
		queryText   = flag.String("query", "", "patient query text (reads stdin when empty)")
		sessionID   = flag.String("session", "", "session id for conversation history")
		specialtyIn = flag.String("specialty", "", "force routing to this specialty")
		urgencyIn   = flag.String("urgency", "", "minimum urgency level (low, medium, high, critical)")
		minQuality  = flag.Int("min-quality", 0, "per-request minimum quality score override (1-10)")
		safetyFloor = flag.Int("safety-floor", 0, "per-request safety floor override (1-10)")
		serve       = flag.Bool("serve-metrics", true, "serve /metrics and /healthz")
		initSecrets = flag.Bool("init-secrets", false, "interactively store encrypted API keys and exit")
		statsFor    = flag.String("stats", "", "print consultation stats for a specialty and exit")
		promURL     = flag.String("prometheus-url", "http://localhost:9091", "Prometheus server for -stats queries")
	)
	flag.Parse()

	logger := logx.NewLogger("main")

	if *initSecrets {
		if err := runInitSecrets(); err != nil {
			logger.Error("init-secrets failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if *statsFor != "" {
		if err := runStats(*promURL, *statsFor); err != nil {
			logger.Error("stats: %v", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("config: %v", err)
		os.Exit(1)
	}

	if err := unlockSecrets(&cfg); err != nil {
		logger.Error("secrets: %v", err)
		os.Exit(1)
	}

	text := strings.TrimSpace(*queryText)
	if text == "" {
		text = readStdin()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, store, err := buildEngine(&cfg)
	if err != nil {
		logger.Error("startup: %v", err)
		os.Exit(1)
	}
	if store != nil {
		defer store.Close()
	}

	if *serve {
		go serveMetrics(cfg.Metrics.ListenAddr, logger)
	}

	query := consult.Query{
		Text:      text,
		SessionID: *sessionID,
	}
	if *specialtyIn != "" {
		if s, ok := consult.ParseSpecialty(*specialtyIn, ""); ok {
			query.SpecialtyHint = s
		} else {
			logger.Error("unknown specialty %q", *specialtyIn)
			os.Exit(2)
		}
	}
	if *urgencyIn != "" {
		u := consult.ParseUrgency(*urgencyIn)
		query.UrgencyHint = &u
	}
	if *minQuality > 0 || *safetyFloor > 0 {
		query.Criteria = &consult.CriteriaOverrides{
			MinQualityScore: *minQuality,
			SafetyFloor:     *safetyFloor,
		}
	}

	resp, err := engine.Consult(ctx, query)
	if err != nil && resp.Status != consult.StatusBlocked {
		logger.Error("consult: %v", err)
		os.Exit(1)
	}

	out, merr := json.MarshalIndent(resp, "", "  ")
	if merr != nil {
		logger.Error("encoding response: %v", merr)
		os.Exit(1)
	}
	fmt.Println(string(out))
	if resp.Status == consult.StatusBlocked {
		os.Exit(2)
	}
}

// storeSink adapts the persistence store to the engine's sink interface.
type storeSink struct {
	store *persistence.Store
}

func (s storeSink) RecordConsult(ctx context.Context, consultID, sessionID, query, specialty, status string, emergency bool, attempts map[string]int) error {
	return s.store.RecordConsult(ctx, &persistence.ConsultRecord{
		ConsultID:   consultID,
		SessionID:   sessionID,
		Query:       query,
		Specialty:   specialty,
		Status:      status,
		Emergency:   emergency,
		Attempts:    attempts,
		CompletedAt: time.Now(),
	})
}

func (s storeSink) AppendExchange(ctx context.Context, sessionID string, ex history.Exchange) error {
	return s.store.AppendExchange(ctx, sessionID, ex)
}

// buildEngine wires the pipeline from configuration.
func buildEngine(cfg *config.Config) (*workflow.Engine, *persistence.Store, error) {
	recorder := metrics.NewPrometheusRecorder()

	routerClient, err := clientForRole(cfg, cfg.Backend.Router, recorder, "router")
	if err != nil {
		return nil, nil, fmt.Errorf("router backend: %w", err)
	}
	specialistClient, err := clientForRole(cfg, cfg.Backend.Specialist, recorder, "specialist")
	if err != nil {
		return nil, nil, fmt.Errorf("specialist backend: %w", err)
	}
	evaluatorClient, err := clientForRole(cfg, cfg.Backend.Evaluator, recorder, "evaluator")
	if err != nil {
		return nil, nil, fmt.Errorf("evaluator backend: %w", err)
	}
	consensusClient, err := clientForRole(cfg, cfg.Backend.Consensus, recorder, "consensus")
	if err != nil {
		return nil, nil, fmt.Errorf("consensus backend: %w", err)
	}

	defaultSpecialty, _ := consult.ParseSpecialty(cfg.Workflow.DefaultSpecialty, consult.InternalMedicine)
	router := triage.NewRouter(routerClient, defaultSpecialty)
	registry := specialist.NewRegistry(specialistClient, cfg)
	evaluator := review.NewEvaluator(evaluatorClient, review.CriteriaFromConfig(cfg))
	builder := consensus.NewBuilder(consensusClient)
	gate := safety.NewGate()

	opts := []workflow.EngineOption{workflow.WithRecorder(recorder)}

	var store *persistence.Store
	if cfg.History.DBPath != "" {
		store, err = persistence.Open(cfg.History.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening store: %w", err)
		}
		opts = append(opts, workflow.WithHistoryProvider(store), workflow.WithSink(storeSink{store: store}))
	}

	engine, err := workflow.NewEngine(cfg, router, registry, evaluator, builder, gate, opts...)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}
	return engine, store, nil
}

// clientForRole resolves a role's backend, inheriting unset fields from
// the shared backend section.
func clientForRole(cfg *config.Config, role config.RoleConfig, recorder metrics.Recorder, component string) (llm.LLMClient, error) {
	providerName := role.Provider
	if providerName == "" {
		providerName = cfg.Backend.Provider
	}
	provider, err := factory.ParseProvider(providerName)
	if err != nil {
		return nil, err
	}

	model := role.Model
	if model == "" {
		model = cfg.Backend.Model
	}
	maxTokens := role.MaxTokens
	if maxTokens == 0 {
		maxTokens = cfg.Specialist.MaxTokens
	}
	temperature := role.Temperature
	if temperature == 0 {
		temperature = llm.TemperatureDefault
	}

	client, err := factory.NewClient(provider, llm.Config{
		APIKey:      config.APIKeyFor(providerName),
		ModelName:   model,
		Host:        cfg.Backend.Host,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}, cfg.Backend.CallTimeout)
	if err != nil {
		return nil, err
	}
	return metrics.InstrumentClient(client, recorder, providerName, component), nil
}

// unlockSecrets resolves the active provider's API key: environment
// first, then the encrypted secrets file, finally a no-echo TTY prompt.
// Providers that need no key (ollama, mock) pass through untouched.
func unlockSecrets(cfg *config.Config) error {
	provider := cfg.Backend.Provider
	if provider == "ollama" || provider == "mock" {
		return nil
	}
	if config.APIKeyFor(provider) != "" {
		return nil
	}

	if dir := secretsDir(); config.SecretsFileExists(dir) {
		password, err := promptPassword("Secrets password: ")
		if err != nil {
			return err
		}
		secrets, err := config.DecryptSecretsFile(dir, password)
		if err != nil {
			return err
		}
		config.SetDecryptedSecrets(secrets)
		if config.APIKeyFor(provider) != "" {
			return nil
		}
	}

	if !term.IsTerminal(syscall.Stdin) {
		return fmt.Errorf("no API key for provider %s: set the environment variable or run -init-secrets", provider)
	}
	key, err := promptPassword(fmt.Sprintf("API key for %s: ", provider))
	if err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("no API key entered for provider %s", provider)
	}
	config.SetSecret(envKeyName(provider), strings.TrimSpace(key))
	return nil
}

// envKeyName maps a provider to its API key environment variable.
func envKeyName(provider string) string {
	switch provider {
	case "openai":
		return config.EnvOpenAIKey
	case "google":
		return config.EnvGoogleKey
	default:
		return config.EnvAnthropicKey
	}
}

// runInitSecrets prompts for API keys and writes them encrypted to disk.
func runInitSecrets() error {
	reader := bufio.NewReader(os.Stdin)
	secrets := make(map[string]string)

	for _, env := range []string{config.EnvAnthropicKey, config.EnvOpenAIKey, config.EnvGoogleKey} {
		fmt.Printf("%s (blank to skip): ", env)
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}
		if v := strings.TrimSpace(line); v != "" {
			secrets[env] = v
		}
	}
	if len(secrets) == 0 {
		return fmt.Errorf("no keys entered")
	}

	password, err := promptPassword("Encryption password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	dir := secretsDir()
	if err := config.EncryptSecretsFile(dir, password, secrets); err != nil {
		return err
	}
	fmt.Printf("Wrote encrypted secrets under %s\n", dir)
	return nil
}

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(syscall.Stdin) {
		return "", fmt.Errorf("cannot prompt for password: stdin is not a terminal")
	}
	fmt.Print(prompt)
	raw, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// secretsDir is the parent directory holding the encrypted secrets store.
func secretsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// runStats prints aggregated consultation metrics from a Prometheus
// server that scrapes this process.
func runStats(prometheusURL, specialty string) error {
	svc, err := metrics.NewQueryService(prometheusURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := svc.GetSpecialtyStats(ctx, specialty)
	if err != nil {
		return err
	}
	counts, err := svc.GetStatusCounts(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("specialty:      %s\n", stats.Specialty)
	fmt.Printf("total attempts: %d\n", stats.TotalAttempts)
	fmt.Printf("avg latency:    %.2fs\n", stats.AvgLatency)
	for status, n := range counts {
		fmt.Printf("consults %-10s %d\n", status+":", n)
	}
	return nil
}

func readStdin() string {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// serveMetrics exposes Prometheus metrics and a liveness endpoint.
func serveMetrics(addr string, logger *logx.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/logs", func(w http.ResponseWriter, r *http.Request) {
		entries := logx.RecentEntries(r.URL.Query().Get("component"), time.Time{})
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			logger.Warn("encoding log entries: %v", err)
		}
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Warn("metrics server: %v", err)
	}
}
