package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/gdprqa/internal/core/domain"
)

// Batch output clipping.
const (
	answerClip = 350
	sourceClip = 300
)

var (
	qaQuestionsFile string
	qaOutputFile    string
	qaFull          bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question from the indexed passages",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

var qaCmd = &cobra.Command{
	Use:   "qa",
	Short: "Answer a batch of questions from a YAML file",
	Long: `Answers every question in a YAML file, one after another, with
deterministic generation. The file is either a list of questions or a
mapping with a "questions" list:

  questions:
    - What is the right to erasure?
    - When is a data protection officer required?

Answers are clipped to 350 characters and sources to 300 unless --full
is set. --output writes the full results as YAML.`,
	Args: cobra.NoArgs,
	RunE: runQA,
}

func init() {
	qaCmd.Flags().StringVarP(&qaQuestionsFile, "questions", "q", "", "YAML file of questions (required)")
	qaCmd.Flags().StringVarP(&qaOutputFile, "output", "o", "", "write results to a YAML file")
	qaCmd.Flags().BoolVar(&qaFull, "full", false, "print answers and sources without clipping")
	_ = qaCmd.MarkFlagRequired("questions")
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(qaCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if qaService == nil {
		return errNotConfigured("QA service")
	}

	answer, err := qaService.Ask(commandContext(cmd), args[0])
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	printAnswer(cmd, answer, true)
	return nil
}

// qaFile accepts both a bare list and a {questions: [...]} mapping.
type qaFile struct {
	Questions []string `yaml:"questions"`
}

// qaResult is one entry of the --output file.
type qaResult struct {
	Question string     `yaml:"question"`
	Answer   string     `yaml:"answer,omitempty"`
	Error    string     `yaml:"error,omitempty"`
	Sources  []qaSource `yaml:"sources,omitempty"`
}

type qaSource struct {
	Source string  `yaml:"source"`
	Title  string  `yaml:"title"`
	Score  float64 `yaml:"score"`
	Text   string  `yaml:"text"`
}

func loadQuestions(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading questions: %w", err)
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return nonEmpty(list), nil
	}

	var file qaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing questions: %w", err)
	}
	questions := nonEmpty(file.Questions)
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions in %s", domain.ErrInvalidInput, path)
	}
	return questions, nil
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func runQA(cmd *cobra.Command, _ []string) error {
	if qaService == nil {
		return errNotConfigured("QA service")
	}

	questions, err := loadQuestions(qaQuestionsFile)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	results := make([]qaResult, 0, len(questions))
	var failures int

	for i, q := range questions {
		cmd.Printf("[%d/%d] %s\n", i+1, len(questions), q)

		answer, err := qaService.Ask(ctx, q)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			failures++
			cmd.Printf("  error: %v\n\n", err)
			results = append(results, qaResult{Question: q, Error: err.Error()})
			continue
		}

		printAnswer(cmd, answer, qaFull)
		results = append(results, toQAResult(answer))
	}

	if qaOutputFile != "" {
		data, err := yaml.Marshal(results)
		if err != nil {
			return fmt.Errorf("encoding results: %w", err)
		}
		if err := os.WriteFile(qaOutputFile, data, 0o644); err != nil {
			return fmt.Errorf("writing results: %w", err)
		}
		cmd.Printf("Results written to %s\n", qaOutputFile)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d questions failed", failures, len(questions))
	}
	return nil
}

func toQAResult(a *domain.Answer) qaResult {
	r := qaResult{Question: a.Question, Answer: a.Text}
	for _, s := range a.Sources {
		c := domain.Citation{Text: s.Text, Metadata: s.Metadata}
		r.Sources = append(r.Sources, qaSource{Source: c.Source(), Title: c.Title(), Score: s.Score, Text: s.Text})
	}
	return r
}

func printAnswer(cmd *cobra.Command, a *domain.Answer, full bool) {
	text := a.Text
	if !full {
		text = domain.Clip(text, answerClip)
	}
	cmd.Printf("Answer: %s\n", text)

	if len(a.Sources) > 0 {
		cmd.Println("Sources:")
	}
	for i, s := range a.Sources {
		c := domain.Citation{Text: s.Text, Metadata: s.Metadata}
		passage := strings.Join(strings.Fields(s.Text), " ")
		if !full {
			passage = domain.Clip(passage, sourceClip)
		}
		cmd.Printf("  [%d] %s | %s (%.3f)\n      %s\n", i+1, c.Source(), c.Title(), s.Score, passage)
	}
	cmd.Println()
}
