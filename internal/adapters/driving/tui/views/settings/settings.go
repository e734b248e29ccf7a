// Package settings is the TUI screen for switching providers and the
// vector store.
package settings

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/gdprqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driving"
)

// ErrNoSettingsService indicates that no settings service was provided.
var ErrNoSettingsService = errors.New("settings service not available")

// Section is the list the view is showing.
type Section int

const (
	SectionOverview Section = iota
	SectionEmbedding
	SectionLLM
	SectionStore
)

// overviewItems are the sections reachable from the overview, in order.
var overviewItems = []Section{SectionEmbedding, SectionLLM, SectionStore}

const (
	keyLabelWidth = len("API Key: ") + 2
	maxKeyWidth   = 64
)

// View starts on an overview of the saved settings; choosing a row opens
// the list of alternatives, and choosing one saves it at once.
type View struct {
	styles          *styles.Styles
	settingsService driving.SettingsService

	settings *domain.AppSettings
	invalid  error
	err      error

	section    Section
	selected   int
	editingKey bool
	apiKey     textinput.Model

}

// NewView builds the view. A nil service is reported when the view loads.
func NewView(s *styles.Styles, settingsService driving.SettingsService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	apiKey := textinput.New()
	apiKey.Placeholder = "Enter API key"
	apiKey.EchoMode = textinput.EchoPassword
	apiKey.CharLimit = 256

	return &View{
		styles:          s,
		settingsService: settingsService,
		section:         SectionOverview,
		apiKey:          apiKey,
	}
}

// Init loads the current settings.
func (v *View) Init() tea.Cmd {
	return v.loadSettings()
}

func (v *View) loadSettings() tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsLoaded{Err: ErrNoSettingsService}
		}
		settings, err := svc.Get()
		if err != nil {
			return messages.SettingsLoaded{Err: err}
		}
		return messages.SettingsLoaded{Settings: settings, Invalid: svc.Validate()}
	}
}

func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SettingsLoaded:
		v.err = msg.Err
		if msg.Err == nil {
			v.settings = msg.Settings
			v.invalid = msg.Invalid
		}
		return v, nil

	case messages.SettingsSaved:
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.backToOverview()
		return v, v.loadSettings()

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		if v.section == SectionOverview {
			return v, func() tea.Msg {
				return messages.ViewChanged{View: messages.ViewMenu}
			}
		}
		v.backToOverview()
		return v, nil
	}

	if v.editingKey {
		return v.handleAPIKeyInput(msg)
	}

	switch msg.String() {
	case "up", "k":
		if v.selected > 0 {
			v.selected--
		}
	case "down", "j":
		if v.selected < v.optionCount()-1 {
			v.selected++
		}
	case "enter":
		return v.choose()
	}
	return v, nil
}

func (v *View) handleAPIKeyInput(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch msg.String() {
	case "tab", "shift+tab":
		v.editingKey = false
		v.apiKey.Blur()
		return v, nil
	case "enter":
		provider := v.selectedProvider()
		return v, v.saveProvider(v.section, provider, v.apiKey.Value())
	}
	var cmd tea.Cmd
	v.apiKey, cmd = v.apiKey.Update(msg)
	return v, cmd
}

// choose acts on the selected option of the current section.
func (v *View) choose() (*View, tea.Cmd) {
	switch v.section {
	case SectionOverview:
		if v.selected < 0 || v.selected >= len(overviewItems) {
			return v, nil
		}
		v.section = overviewItems[v.selected]
		v.selected = v.currentIndex()
		return v, nil

	case SectionEmbedding, SectionLLM:
		provider := v.selectedProvider()
		if provider == "" {
			return v, nil
		}
		if provider.RequiresAPIKey() {
			v.editingKey = true
			return v, v.apiKey.Focus()
		}
		return v, v.saveProvider(v.section, provider, "")

	case SectionStore:
		backends := domain.AllStoreBackends()
		if v.selected < 0 || v.selected >= len(backends) {
			return v, nil
		}
		return v, v.saveStore(backends[v.selected])
	}
	return v, nil
}

func (v *View) saveProvider(section Section, provider domain.AIProvider, apiKey string) tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		if section == SectionEmbedding {
			model := domain.DefaultEmbeddingModels()[provider]
			return messages.SettingsSaved{Err: svc.SetEmbeddingProvider(provider, model, apiKey)}
		}
		model := domain.DefaultLLMModels()[provider]
		return messages.SettingsSaved{Err: svc.SetLLMProvider(provider, model, apiKey)}
	}
}

func (v *View) saveStore(backend domain.StoreBackend) tea.Cmd {
	svc := v.settingsService
	return func() tea.Msg {
		if svc == nil {
			return messages.SettingsSaved{Err: ErrNoSettingsService}
		}
		return messages.SettingsSaved{Err: svc.SetStoreBackend(backend)}
	}
}

func (v *View) backToOverview() {
	v.section = SectionOverview
	v.selected = 0
	v.editingKey = false
	v.apiKey.SetValue("")
	v.apiKey.Blur()
}

func (v *View) providers() []domain.AIProvider {
	if v.section == SectionEmbedding {
		return domain.AllEmbeddingProviders()
	}
	return domain.AllLLMProviders()
}

func (v *View) selectedProvider() domain.AIProvider {
	providers := v.providers()
	if v.selected < 0 || v.selected >= len(providers) {
		return ""
	}
	return providers[v.selected]
}

func (v *View) optionCount() int {
	switch v.section {
	case SectionEmbedding, SectionLLM:
		return len(v.providers())
	case SectionStore:
		return len(domain.AllStoreBackends())
	default:
		return len(overviewItems)
	}
}

// currentIndex returns the option matching the saved setting.
func (v *View) currentIndex() int {
	if v.settings == nil {
		return 0
	}
	switch v.section {
	case SectionEmbedding:
		return indexOf(v.providers(), v.settings.Embedding.Provider)
	case SectionLLM:
		return indexOf(v.providers(), v.settings.LLM.Provider)
	case SectionStore:
		return indexOf(domain.AllStoreBackends(), v.settings.Store.Backend)
	}
	return 0
}

func indexOf[T comparable](items []T, want T) int {
	for i, item := range items {
		if item == want {
			return i
		}
	}
	return 0
}

func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Settings"))
	b.WriteString("\n\n")

	if v.err != nil {
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
		b.WriteString("\n\n")
	}

	if v.settings == nil {
		b.WriteString(v.styles.Muted.Render("Loading settings..."))
		return b.String()
	}

	switch v.section {
	case SectionOverview:
		b.WriteString(v.renderOverview())
	case SectionEmbedding:
		b.WriteString(v.renderProviders("Select Embedding Provider", v.settings.Embedding.Provider))
	case SectionLLM:
		b.WriteString(v.renderProviders("Select LLM Provider", v.settings.LLM.Provider))
	case SectionStore:
		b.WriteString(v.renderStores())
	}

	b.WriteString("\n")
	b.WriteString(v.renderHelp())
	return b.String()
}

func (v *View) renderOverview() string {
	s := v.settings
	rows := []struct {
		label, value, status string
	}{
		{
			label:  "Embedding Provider",
			value:  providerValue(s.Embedding.Provider, s.Embedding.Model),
			status: v.configuredStatus(s.Embedding.IsConfigured()),
		},
		{
			label:  "LLM Provider",
			value:  providerValue(s.LLM.Provider, s.LLM.Model),
			status: v.configuredStatus(s.LLM.IsConfigured()),
		},
		{
			label: "Vector Store",
			value: s.Store.Backend.Description(),
		},
	}

	var b strings.Builder
	for i, row := range rows {
		line := fmt.Sprintf("%s%s: %s", indicator(i == v.selected), row.label, row.value)
		if row.status != "" {
			line += " " + row.status
		}
		b.WriteString(v.renderLine(line, i == v.selected))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Subtitle.Render("Pipeline"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf(
		"  input %s, table %s, max tokens %d, tokenizer %s",
		s.Pipeline.InputDir, s.Pipeline.Table, s.Pipeline.MaxTokens, s.Pipeline.Tokenizer,
	)))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf(
		"  retrieval chat k=%d, qa k=%d, rerank weight %.2f",
		s.Retrieval.ChatK, s.Retrieval.QAK, s.Retrieval.RerankWeight,
	)))
	b.WriteString("\n\n")

	if v.invalid != nil {
		b.WriteString(v.styles.Warning.Render("Warning: " + v.invalid.Error()))
	} else {
		b.WriteString(v.styles.Success.Render("Configuration is valid"))
	}
	return b.String()
}

func (v *View) renderProviders(title string, current domain.AIProvider) string {
	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render(title))
	b.WriteString("\n\n")

	for i, p := range v.providers() {
		line := indicator(i == v.selected) + p.Description()
		if p == current {
			line += " (current)"
		}
		b.WriteString(v.renderLine(line, i == v.selected))
		b.WriteString("\n")
	}

	if v.editingKey {
		b.WriteString("\n")
		b.WriteString(v.styles.Normal.Render("API Key: "))
		b.WriteString(v.apiKey.View())
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) renderStores() string {
	var b strings.Builder
	b.WriteString(v.styles.Subtitle.Render("Select Vector Store"))
	b.WriteString("\n\n")

	for i, backend := range domain.AllStoreBackends() {
		line := indicator(i == v.selected) + backend.Description()
		if backend == v.settings.Store.Backend {
			line += " (current)"
		}
		b.WriteString(v.renderLine(line, i == v.selected))
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) renderHelp() string {
	switch {
	case v.editingKey:
		return v.styles.Help.Render("[enter] save  [tab] back to list  [esc] cancel")
	case v.section == SectionOverview:
		return v.styles.Help.Render("[j/k] navigate  [enter] change  [esc] back to menu")
	default:
		return v.styles.Help.Render("[j/k] navigate  [enter] select  [esc] back")
	}
}

func (v *View) renderLine(line string, selected bool) string {
	if selected {
		return v.styles.Selected.Render(line)
	}
	return v.styles.Normal.Render(line)
}

func (v *View) configuredStatus(ok bool) string {
	if ok {
		return v.styles.Success.Render("[configured]")
	}
	return v.styles.Warning.Render("[needs API key]")
}

func providerValue(p domain.AIProvider, model string) string {
	if p == "" {
		return "Not Set"
	}
	return fmt.Sprintf("%s (%s)", p.Description(), model)
}

func indicator(selected bool) string {
	if selected {
		return "> "
	}
	return "  "
}

// SetDimensions fits the API key input to the terminal width.
func (v *View) SetDimensions(width, _ int) {
	v.apiKey.Width = max(min(width-keyLabelWidth, maxKeyWidth), 0)
}

// Reset returns to the overview.
func (v *View) Reset() {
	v.backToOverview()
	v.err = nil
}

// Section returns the active section.
func (v *View) Section() Section {
	return v.section
}

// Selected returns the selected option index.
func (v *View) Selected() int {
	return v.selected
}

// EditingKey reports whether the API key input has focus.
func (v *View) EditingKey() bool {
	return v.editingKey
}

// Err returns the last error, if any.
func (v *View) Err() error {
	return v.err
}
