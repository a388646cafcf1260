// Package cli implements the segmenter command line: train, encode and
// decode subcommands over line-oriented files.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/awee-ai/go-segmenter/model"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

type rootFlags struct {
	configFile string
	quiet      bool
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	flags := &rootFlags{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:           "segmenter",
		Short:         "Reversible factored tokenizer for neural machine translation",
		Version:       fmt.Sprintf("%s (%s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flags.configFile != "" {
				v.SetConfigFile(flags.configFile)
				if err := v.ReadInConfig(); err != nil {
					return err
				}
			}
			v.SetEnvPrefix("SEGMENTER")
			v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
			v.AutomaticEnv()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			// Flags the user did not set on the command line pick up config
			// file and environment values.
			var bindErr error
			cmd.Flags().VisitAll(func(f *pflag.Flag) {
				if f.Changed || !v.IsSet(f.Name) {
					return
				}
				if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil && bindErr == nil {
					bindErr = err
				}
			})
			return bindErr
		},
	}
	cmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "optional YAML config file")
	cmd.PersistentFlags().BoolVar(&flags.quiet, "quiet", false, "suppress progress logging")

	cmd.AddCommand(newTrainCommand(flags))
	cmd.AddCommand(newEncodeCommand(flags))
	cmd.AddCommand(newDecodeCommand(flags))
	return cmd
}

// Execute runs the CLI. Exit code 1 signals bad arguments; per-line errors
// are logged and the line replaced by an empty output line.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(quiet bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// addOptionFlags registers the model-option toggles of the train command;
// encode and decode take their options from the loaded model.
func addOptionFlags(cmd *cobra.Command, opts *model.Options) {
	f := cmd.Flags()
	f.BoolVar(&opts.RightWordGlue, "right-word-glue", opts.RightWordGlue,
		"mark word-final pieces with word-end factors")
	f.BoolVar(&opts.DistinguishInitialAndInternalPieces, "distinguish-initial-and-internal-pieces", opts.DistinguishInitialAndInternalPieces,
		"give word-initial and word-internal pieces distinct lemmas")
	f.BoolVar(&opts.SplitHan, "split-han", opts.SplitHan,
		"split Han text into single characters")
	f.BoolVar(&opts.SingleLetterCaseFactors, "single-letter-case-factors", opts.SingleLetterCaseFactors,
		"use dedicated single-letter capitalization factors")
	f.BoolVar(&opts.ContextDependentSingleLetterCap, "context-dependent-single-letter-cap", opts.ContextDependentSingleLetterCap,
		"promote single letters inside all-caps runs")
	f.BoolVar(&opts.SerializeIndicesAndUnrepresentables, "serialize-indices-and-unrepresentables", opts.SerializeIndicesAndUnrepresentables,
		"encode indices and unknown characters as digit token runs")
	f.BoolVar(&opts.InlineFixes, "inline-fixes", opts.InlineFixes,
		"encode phrase fixes inline as source/target pairs")
	f.BoolVar(&opts.InlineFixUseTags, "inline-fix-use-tags", opts.InlineFixUseTags,
		"delimit inline fixes with tag tokens instead of factors")
	noSP := f.Bool("no-sentence-piece", !opts.UseSentencePiece, "disable the piece oracle")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		opts.UseSentencePiece = !*noSP
		return nil
	}
	f.IntVar(&opts.VocabSize, "vocab-size", opts.VocabSize, "piece vocabulary size")
	f.Float64Var(&opts.CharacterCoverage, "character_coverage", opts.CharacterCoverage,
		"character mass covered by the piece alphabet")
	f.IntVar(&opts.TrainingSentenceSize, "training-sentence-size", opts.TrainingSentenceSize,
		"limit on training sentences (0 = all)")
	f.IntVar(&opts.MinPieceCount, "min-piece-count", opts.MinPieceCount,
		"minimum occurrence count for a multi-character piece")
	f.IntVar(&opts.MinCharCount, "min-char-count", opts.MinCharCount,
		"minimum occurrence count for a single-character lemma")
}
