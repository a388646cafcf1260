package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	segmenter "github.com/awee-ai/go-segmenter"
)

func newDecodeCommand(flags *rootFlags) *cobra.Command {
	var modelPath string
	var outPath string
	var fieldSep string

	cmd := &cobra.Command{
		Use:   "decode [input]",
		Short: "Decode factored token strings back into surface text",
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
				toks := strings.Fields(field)
				dec, err := seg.Decode(toks, nil, nil)
				if err != nil {
					return "", err
				}
				return dec.Text, nil
			})
		},
	}
	cmd.Flags().StringVar(&modelPath, "model", "", "model path (.fsm)")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (default stdout)")
	cmd.Flags().StringVarP(&fieldSep, "field-separator", "F", "", "TSV field separator; each field is processed separately")
	return cmd
}
