package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the configuration",
	Long: `Show the AI providers, vector store, pipeline and retrieval settings.

The subcommands change one part at a time; wizard walks through all of
them. Provider changes are checked with a probe request before they count
as configured.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current configuration",
	RunE:  runSettingsShow,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Configure providers and vector store interactively",
	RunE:  runSettingsWizard,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Choose the embedding provider used to index and search",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSettingsStep(cmd, embeddingStep)
	},
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Choose the LLM provider that writes answers",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSettingsStep(cmd, llmStep)
	},
}

var settingsStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Choose the vector store backend",
	Long: `Choose where the vector table lives.

  sqlite  local file in the data directory (default)
  redis   Redis Stack with RediSearch
  memory  in-process, lost on exit`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSettingsStep(cmd, storeStep)
	},
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd, settingsWizardCmd, settingsEmbeddingCmd, settingsLLMCmd, settingsStoreCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings service")
	}
	s, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	section := func(name string, lines ...string) {
		cmd.Printf("[%s]\n", name)
		for _, l := range lines {
			cmd.Println("  " + l)
		}
		cmd.Println()
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()
	section("Embedding", providerLines(s.Embedding.Provider, s.Embedding.Model,
		s.Embedding.BaseURL, s.Embedding.APIKey, s.Embedding.IsConfigured())...)
	section("LLM", providerLines(s.LLM.Provider, s.LLM.Model,
		s.LLM.BaseURL, s.LLM.APIKey, s.LLM.IsConfigured())...)

	store := []string{"Backend: " + s.Store.Backend.Description()}
	if s.Store.Backend == domain.StoreBackendRedis {
		store = append(store, fmt.Sprintf("Address: %s (db %d)", s.Store.RedisAddr, s.Store.RedisDB))
	}
	section("Store", store...)

	section("Pipeline",
		"Input: "+s.Pipeline.InputDir,
		"Table: "+s.Pipeline.Table,
		fmt.Sprintf("Chunking: %d max tokens, merge peers %t, %s tokenizer",
			s.Pipeline.MaxTokens, s.Pipeline.MergePeers, s.Pipeline.Tokenizer),
		fmt.Sprintf("Extraction: table mode %s, OCR %t", s.Extraction.TableMode, s.Extraction.OCR))
	section("Retrieval",
		fmt.Sprintf("k: chat %d, qa %d, search %d", s.Retrieval.ChatK, s.Retrieval.QAK, s.Retrieval.SearchK),
		fmt.Sprintf("Rerank: %t (vector weight %.2f, oversample %d)",
			s.Retrieval.Rerank, s.Retrieval.RerankWeight, s.Retrieval.Oversample))

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'gdprqa settings wizard' to fix configuration issues.")
		return nil
	}
	cmd.Println("Configuration is valid.")
	return nil
}

func providerLines(p domain.AIProvider, model, baseURL, apiKey string, configured bool) []string {
	lines := []string{"Provider: " + p.Description(), "Model: " + model}
	if p.IsLocal() {
		lines = append(lines, "Base URL: "+baseURL)
	}
	if p.RequiresAPIKey() {
		key := "(not set)"
		if apiKey != "" {
			key = maskAPIKey(apiKey)
		}
		lines = append(lines, "API Key: "+key)
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	return append(lines, "Status: "+status)
}

// settingsStep is one interactive change of the configuration.
type settingsStep func(p *prompter) error

func runSettingsStep(cmd *cobra.Command, step settingsStep) error {
	if settingsService == nil {
		return errNotConfigured("settings service")
	}
	return step(newPrompter(cmd))
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errNotConfigured("settings service")
	}

	cmd.Println("gdprqa Settings Wizard")
	cmd.Println("======================")
	cmd.Println()

	p := newPrompter(cmd)
	steps := []struct {
		title string
		run   settingsStep
	}{
		{"Embedding Provider", embeddingStep},
		{"LLM Provider", llmStep},
		{"Vector Store", storeStep},
	}
	for i, s := range steps {
		heading := fmt.Sprintf("Step %d: %s", i+1, s.title)
		cmd.Println(heading)
		cmd.Println(strings.Repeat("-", len(heading)))
		if err := s.run(p); err != nil {
			return err
		}
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		return nil
	}
	cmd.Println("All settings are valid and saved.")
	return nil
}

// providerStep asks for a provider, a model and, for hosted providers,
// an API key, saves them and probes the result.
type providerStep struct {
	kind      string
	providers []domain.AIProvider
	models    map[domain.AIProvider]string
	set       func(domain.AIProvider, string, string) error
	probe     func() error
}

func embeddingStep(p *prompter) error {
	return providerStep{
		kind:      "embedding",
		providers: domain.AllEmbeddingProviders(),
		models:    domain.DefaultEmbeddingModels(),
		set:       settingsService.SetEmbeddingProvider,
		probe:     settingsService.ValidateEmbeddingConfig,
	}.run(p)
}

func llmStep(p *prompter) error {
	return providerStep{
		kind:      "LLM",
		providers: domain.AllLLMProviders(),
		models:    domain.DefaultLLMModels(),
		set:       settingsService.SetLLMProvider,
		probe:     settingsService.ValidateLLMConfig,
	}.run(p)
}

func (s providerStep) run(p *prompter) error {
	names := make([]string, len(s.providers))
	for i, prov := range s.providers {
		names[i] = prov.Description()
	}
	provider := s.providers[p.choose(fmt.Sprintf("Select %s provider", s.kind), names)]
	model := p.ask("Enter model name", s.models[provider])

	var apiKey string
	if provider.RequiresAPIKey() {
		if apiKey = p.secret("Enter API key: "); apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := s.set(provider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure %s provider: %w", s.kind, err)
	}

	p.printf("Validating configuration... ")
	if err := s.probe(); err != nil {
		p.printf("FAILED: %v\n", err)
		return fmt.Errorf("%s configuration validation failed: %w", s.kind, err)
	}
	p.printf("OK\n")
	p.printf("Configured %s provider: %s (%s)\n\n", s.kind, provider.Description(), model)
	return nil
}

func storeStep(p *prompter) error {
	backends := domain.AllStoreBackends()
	names := make([]string, len(backends))
	for i, b := range backends {
		names[i] = b.Description()
	}
	backend := backends[p.choose("Select vector store", names)]

	if err := settingsService.SetStoreBackend(backend); err != nil {
		return fmt.Errorf("failed to set store backend: %w", err)
	}
	p.printf("Vector store set to: %s\n\n", backend.Description())
	if backend != domain.StoreBackendMemory {
		p.printf("Run 'gdprqa index' to build the table in the new store.\n\n")
	}
	return nil
}

// prompter reads answers line by line from the command's input.
type prompter struct {
	cmd    *cobra.Command
	reader *bufio.Reader
	in     io.Reader
}

func newPrompter(cmd *cobra.Command) *prompter {
	in := cmd.InOrStdin()
	return &prompter{cmd: cmd, reader: bufio.NewReader(in), in: in}
}

func (p *prompter) printf(format string, args ...any) {
	p.cmd.Printf(format, args...)
}

// choose lists options and returns the index picked. Anything but a
// listed number picks the first option.
func (p *prompter) choose(title string, options []string) int {
	p.cmd.Println(title)
	for i, o := range options {
		p.cmd.Printf("  %d. %s\n", i+1, o)
	}
	p.cmd.Print("\nEnter choice [1]: ")
	return parseChoice(readLine(p.reader), len(options), 1) - 1
}

// ask reads a value, returning def for an empty answer.
func (p *prompter) ask(label, def string) string {
	p.cmd.Printf("%s [%s]: ", label, def)
	if v := readLine(p.reader); v != "" {
		return v
	}
	return def
}

// secret reads a value without echo when the input is a terminal.
func (p *prompter) secret(label string) string {
	p.cmd.Print(label)
	defer p.cmd.Println()
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if b, err := term.ReadPassword(int(f.Fd())); err == nil {
			return strings.TrimSpace(string(b))
		}
	}
	return readLine(p.reader)
}

func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n') //nolint:errcheck // EOF reads as an empty answer
	return strings.TrimSpace(line)
}

// parseChoice returns the 1-based choice in input, or defaultVal when
// input is not a number between 1 and maxVal.
func parseChoice(input string, maxVal, defaultVal int) int {
	val, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// maskAPIKey keeps the first and last four characters of keys long
// enough for that to hide most of them.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
