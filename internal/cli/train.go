package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/awee-ai/go-segmenter/model"
	"github.com/awee-ai/go-segmenter/train"
)

func newTrainCommand(flags *rootFlags) *cobra.Command {
	opts := model.Defaults()
	var modelPath string
	var marianVocab string

	cmd := &cobra.Command{
		Use:   "train [corpus]",
		Short: "Train a segmenter model from a line corpus",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath == "" {
				return fmt.Errorf("--model is required")
			}
			logger := newLogger(flags.quiet)
			defer logger.Sync()

			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			lines, err := readLines(input)
			if err != nil {
				return err
			}

			m, err := train.Train(cmd.Context(), lines, opts, logger)
			if err != nil {
				return err
			}
			if err := m.Save(modelPath); err != nil {
				return err
			}
			logger.Info("model written", zap.String("path", modelPath))

			if marianVocab != "" {
				if err := os.WriteFile(marianVocab, []byte(m.FactorSpec), 0o644); err != nil {
					return err
				}
				logger.Info("factor spec written", zap.String("path", marianVocab))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "output model path (.fsm)")
	cmd.Flags().StringVar(&marianVocab, "marian-vocab", "", "also write the factor spec file here")
	addOptionFlags(cmd, &opts)
	return cmd
}

func readLines(path string) ([]string, error) {
	var r io.Reader
	if path == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
