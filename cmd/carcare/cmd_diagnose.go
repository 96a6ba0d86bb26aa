package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"carcare/internal/app"
	"carcare/internal/diagnosis"
	"carcare/internal/domain"

	"github.com/spf13/cobra"
)

var (
	diagnoseFile    string
	diagnoseJSON    bool
	diagnoseBackend string
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [description...]",
	Short: "Diagnose one symptom description, or one per line of --file",
	Long: `Classifies a symptom description and prints the likely problem.

Examples:
  carcare diagnose "brakes squealing when I stop"
  carcare diagnose --file symptoms.txt --json
  carcare diagnose --backend anthropic "engine won't start, just clicking"`,
	RunE: runDiagnose,
}

type diagnoseOutput struct {
	Description string `json:"description"`
	domain.DiagnosisResult
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	descriptions, err := readDescriptions(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	if len(descriptions) == 0 {
		return fmt.Errorf("nothing to diagnose: pass a description or --file")
	}

	if diagnoseBackend != "" {
		if err := os.Setenv("DIAGNOSIS_BACKEND", diagnoseBackend); err != nil {
			return err
		}
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	classifier, _, err := app.NewClassifier(ctx, cfg, logger)
	if err != nil {
		return err
	}

	results, err := diagnosis.ClassifyAll(ctx, classifier, descriptions)
	if err != nil {
		return err
	}
	return printDiagnoses(cmd.OutOrStdout(), descriptions, results, diagnoseJSON)
}

func readDescriptions(stdin io.Reader, args []string) ([]string, error) {
	if diagnoseFile == "" {
		text := strings.TrimSpace(strings.Join(args, " "))
		if text == "" {
			return nil, nil
		}
		return []string{text}, nil
	}
	if len(args) > 0 {
		return nil, fmt.Errorf("pass either a description or --file, not both")
	}

	r := stdin
	if diagnoseFile != "-" {
		f, err := os.Open(diagnoseFile)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", diagnoseFile, err)
		}
		defer f.Close()
		r = f
	}

	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read descriptions: %w", err)
	}
	return out, nil
}

func printDiagnoses(w io.Writer, descriptions []string, results []domain.DiagnosisResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 {
			return enc.Encode(results[0])
		}
		out := make([]diagnoseOutput, len(results))
		for i := range results {
			out[i] = diagnoseOutput{Description: descriptions[i], DiagnosisResult: results[i]}
		}
		return enc.Encode(out)
	}

	for i, r := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "%s\n", descriptions[i])
		}
		fmt.Fprintf(w, "  Problem:    %s\n", r.PossibleProblem)
		fmt.Fprintf(w, "  Action:     %s\n", r.SuggestedAction)
		fmt.Fprintf(w, "  Severity:   %s\n", r.Severity)
		fmt.Fprintf(w, "  Confidence: %d%%\n", r.Confidence)
	}
	return nil
}
