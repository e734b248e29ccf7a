package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
	"github.com/custodia-labs/gdprqa/internal/core/ports/driven"
	"github.com/custodia-labs/gdprqa/internal/logger"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// promptExt is the extension of prompt template files.
const promptExt = ".txt"

// template is a known prompt: its built-in text and the placeholders a
// user edit must keep.
type template struct {
	fallback string
	requires []string
}

// templates lists every prompt the store serves. A chat or QA prompt
// without {context} would answer ungrounded, so such edits are rejected.
var templates = map[string]template{
	driven.PromptChatSystem: {
		fallback: domain.DefaultChatSystemPrompt,
		requires: []string{domain.PlaceholderContext},
	},
	driven.PromptQA: {
		fallback: domain.DefaultQAPrompt,
		requires: []string{domain.PlaceholderContext, domain.PlaceholderQuestion},
	},
}

const promptReadme = `# gdprqa prompts

Templates used when generating answers. Edit a file to change how answers
are written; the change applies to the next command or after restarting
the TUI.

chat_system.txt  System instruction of every chat turn. Must contain {context}.
qa.txt           Prompt of ask and qa. Must contain {context} and {question}.

{context} is replaced by the retrieved passages, each followed by its
Source and Title lines. A file missing a required placeholder is ignored
and the built-in template is used instead.
`

// PromptStore serves prompt templates from user-editable files, seeded
// with the built-in templates on first use. Loaded templates are cached
// until Reload.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore creates a store over dir, defaulting to
// ~/.gdprqa/prompts. Nothing is written until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".gdprqa", "prompts")
	}
	return &PromptStore{dir: dir, cache: make(map[string]string)}, nil
}

// Load returns the template called name. The built-in template is
// returned when the file is missing, unreadable or lacks a required
// placeholder. Unknown names are an error.
func (s *PromptStore) Load(name string) (string, error) {
	tmpl, ok := templates[name]
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}

	s.seedOnce.Do(s.seed)
	if s.seedErr != nil {
		logger.Debug("prompts: %v", s.seedErr)
		return tmpl.fallback, nil
	}

	s.mu.RLock()
	cached, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	prompt := s.read(name, tmpl)

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache[name]; ok {
		return existing, nil
	}
	s.cache[name] = prompt
	return prompt, nil
}

// Reload drops cached templates so the next Load reads the files again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+promptExt)
}

// read loads and checks one template file.
func (s *PromptStore) read(name string, tmpl template) string {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("prompts: reading %s: %v", name, err)
		}
		return tmpl.fallback
	}

	prompt := strings.TrimSpace(string(data))
	if missing := missingPlaceholders(prompt, tmpl.requires); len(missing) > 0 {
		logger.Warn("prompts: %s is missing %s; using the built-in template",
			s.path(name), strings.Join(missing, ", "))
		return tmpl.fallback
	}
	return prompt
}

func missingPlaceholders(prompt string, required []string) []string {
	var missing []string
	for _, p := range required {
		if !strings.Contains(prompt, p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// seed creates the directory, the template files that do not exist yet
// and the README. Existing files are never overwritten.
func (s *PromptStore) seed() {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.seedErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	files := map[string]string{"README.md": promptReadme}
	for name, tmpl := range templates {
		files[name+promptExt] = tmpl.fallback
	}
	for file, content := range files {
		path := filepath.Join(s.dir, file)
		if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
			s.seedErr = fmt.Errorf("write %s: %w", file, err)
			return
		}
	}
}
