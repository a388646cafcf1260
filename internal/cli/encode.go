package cli

import (
	"bufio"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	segmenter "github.com/awee-ai/go-segmenter"
)

func newEncodeCommand(flags *rootFlags) *cobra.Command {
	var modelPath string
	var outPath string
	var fieldSep string

	cmd := &cobra.Command{
		Use:   "encode [input]",
		Short: "Encode lines into factored token strings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if modelPath == "" {
				return fmt.Errorf("--model is required")
			}
			logger := newLogger(flags.quiet)
			defer logger.Sync()

			seg, err := segmenter.Load(modelPath)
			if err != nil {
				return err
			}
			return processLines(cmd, args, outPath, fieldSep, logger, func(field string) (string, error) {
				enc, err := seg.Encode(field, nil, nil)
				if err != nil {
					return "", err
				}
				return strings.Join(enc.Tokens, " "), nil
			})
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model path (.fsm)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (default stdout)")
	cmd.Flags().StringVarP(&fieldSep, "field-separator", "F", "", "TSV field separator; each field is processed separately")
	return cmd
}

// processLines fans the input lines out over the CPUs and writes results in
// input order. A failing line is logged and replaced by an empty line, per
// the stream error policy.
func processLines(cmd *cobra.Command, args []string, outPath, fieldSep string, logger *zap.Logger, fn func(string) (string, error)) error {
	input := "-"
	if len(args) == 1 {
		input = args[0]
	}
	lines, err := readLines(input)
	if err != nil {
		return err
	}

	results := make([]string, len(lines))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, line := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = processLine(line, fieldSep, i, logger, fn)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out, err := openOutput(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	for _, r := range results {
		w.WriteString(r)
		w.WriteByte('\n')
	}
	return w.Flush()
}

func processLine(line, fieldSep string, lineNo int, logger *zap.Logger, fn func(string) (string, error)) string {
	fields := []string{line}
	if fieldSep != "" {
		fields = strings.Split(line, fieldSep)
	}
	outFields := make([]string, len(fields))
	for fi, field := range fields {
		res, err := fn(field)
		if err != nil {
			logger.Warn("line failed, substituting empty output",
				zap.Int("line", lineNo+1),
				zap.Error(err))
			res = ""
		}
		outFields[fi] = res
	}
	if fieldSep == "" {
		return outFields[0]
	}
	return strings.Join(outFields, fieldSep)
}
