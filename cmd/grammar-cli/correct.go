package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"grammar-api-app/internal/modules/correction/domain"
	"grammar-api-app/internal/modules/correction/usecase"
)

type correctOptions struct {
	file     string
	language string
	backend  string
	asJSON   bool
}

func newCorrectCmd(global *globalOptions) *cobra.Command {
	opts := &correctOptions{}

	cmd := &cobra.Command{
		Use:   "correct [text]",
		Short: "Correct text from arguments, a file, or stdin",
		Example: `  grammar-cli correct "He don't like pizza"
  grammar-cli correct -f essay.txt -l en-GB
  echo "i recieve teh letter" | grammar-cli correct`,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, opts.file, args)
			if err != nil {
				return err
			}

			container, err := global.newContainer(cmd)
			if err != nil {
				return err
			}
			defer func() {
				_ = container.Close()
			}()

			result, err := container.CorrectionUseCase().Correct(cmd.Context(), text, usecase.Options{
				Language: opts.language,
				Backend:  opts.backend,
			})
			if err != nil {
				return fmt.Errorf("correction failed: %w", err)
			}

			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printResult(cmd.OutOrStdout(), result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "read text from file (\"-\" for stdin)")
	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "language tag, e.g. en-US")
	cmd.Flags().StringVarP(&opts.backend, "backend", "b", "", "backend to try first")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the full result as JSON")
	return cmd
}

// readInput 引数・ファイル・標準入力の順にテキストを取得
func readInput(cmd *cobra.Command, file string, args []string) (string, error) {
	switch {
	case file != "" && file != "-":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file, err)
		}
		return string(data), nil
	case len(args) > 0 && file == "":
		return strings.Join(args, " "), nil
	default:
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
}

func printResult(w io.Writer, result *domain.CorrectionResult) {
	fmt.Fprintln(w, result.CorrectedText)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "service: %s  language: %s  confidence: %d  quality: %d\n",
		result.ServiceUsed, result.Language.Code,
		result.Analysis.ConfidenceScore, result.Analysis.QualityScore)

	if len(result.Edits) == 0 {
		fmt.Fprintln(w, "no corrections")
		return
	}

	// 編集は降順なので表示は先頭から
	for i := len(result.Edits) - 1; i >= 0; i-- {
		e := result.Edits[i]
		fmt.Fprintf(w, "  %4d  %-12s %q -> %q\n", e.Offset, e.Category, e.OriginalSpan, e.Replacement)
	}
}
