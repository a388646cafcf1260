// Package train derives a segmenter model from a corpus: it bootstraps the
// piece-oracle training stream, drives piece-model training with the
// min-piece-count retrain loop, discovers the per-lemma factor-type map,
// trims rare characters, and assembles the persisted model.
package train

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/awee-ai/go-segmenter/factorize"
	"github.com/awee-ai/go-segmenter/model"
	"github.com/awee-ai/go-segmenter/oracle"
	"github.com/awee-ai/go-segmenter/pretok"
	"github.com/awee-ai/go-segmenter/token"
	"github.com/awee-ai/go-segmenter/wire"
)

var (
	// ErrFactorInconsistent reports a lemma observed with two different
	// factor-type sets. This is fatal from the first conflict.
	ErrFactorInconsistent = errors.New("inconsistent factor set for lemma")
	// ErrFactorSpaceTooLarge reports that the factor-value product exceeds
	// the downstream word-id space.
	ErrFactorSpaceTooLarge = errors.New("factor space exceeds word-id space")
)

// idSpaceBound is the downstream word-id width.
const idSpaceBound = uint64(1) << 32

// Train builds a model from corpus lines.
func Train(ctx context.Context, lines []string, opts model.Options, logger *zap.Logger) (*model.Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TrainingSentenceSize > 0 && len(lines) > opts.TrainingSentenceSize {
		lines = lines[:opts.TrainingSentenceSize]
	}

	words, err := bootstrapWords(ctx, lines, opts)
	if err != nil {
		return nil, err
	}
	logger.Info("bootstrap stream built",
		zap.Int("sentences", len(lines)),
		zap.Int("distinctPieces", len(words)))

	var om *oracle.Model
	if opts.UseSentencePiece {
		om, err = trainOracle(ctx, words, opts, logger)
		if err != nil {
			return nil, err
		}
	}

	adapter := oracle.NewAdapter(oracleOrNil(om), opts.SplitCacheSize)
	lemmaTypes, lemmaCounts, err := discoverFactorTypes(ctx, lines, opts, adapter)
	if err != nil {
		return nil, err
	}
	if err := injectClassLemmas(lemmaTypes, opts, adapter); err != nil {
		return nil, err
	}

	trimmed := trimRareChars(lemmaTypes, lemmaCounts, opts.MinCharCount)
	if trimmed > 0 {
		logger.Info("rare single-character lemmas trimmed", zap.Int("count", trimmed))
	}

	if err := checkFactorSpace(lemmaTypes); err != nil {
		return nil, err
	}

	known := make([]string, 0, len(lemmaTypes))
	for l := range lemmaTypes {
		known = append(known, l)
	}
	sort.Strings(known)

	shortlist := model.BuildShortlist(opts, known)
	traits := make(map[string][]string, len(lemmaTypes))
	for l, ts := range lemmaTypes {
		traits[wire.EscapeLemma(l)] = ts
	}

	m := &model.Model{
		Options:          opts,
		KnownLemmas:      known,
		LemmaFactorTypes: lemmaTypes,
		Shortlist:        shortlist,
		FactorSpec:       model.GenerateFactorSpec(shortlist, traits),
	}
	if om != nil {
		blob, err := om.MarshalBlob()
		if err != nil {
			return nil, err
		}
		m.OracleBlob = blob
	}
	logger.Info("model assembled",
		zap.Int("lemmas", len(known)),
		zap.Int("shortlist", len(shortlist)))
	return m, nil
}

func oracleOrNil(om *oracle.Model) oracle.Oracle {
	if om == nil {
		return nil
	}
	return om
}

// bootstrapWords runs the partial pipeline (no piece oracle) and counts the
// normalized piece forms the oracle trainer will see.
func bootstrapWords(ctx context.Context, lines []string, opts model.Options) (map[string]int64, error) {
	words := map[string]int64{}
	for _, line := range lines {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		toks, err := encodeLine(line, opts, nil)
		if err != nil {
			return nil, err
		}
		for _, t := range toks {
			lemma := wire.Lemma(t, wireOptions(opts))
			if strings.TrimSpace(lemma) == "" {
				continue
			}
			words[lemma]++
		}
	}
	return words, nil
}

// trainOracle trains the piece model on the bootstrap stream, with all
// normalization and sentence-limit handling neutralized, and performs the
// single min-piece-count retrain.
func trainOracle(ctx context.Context, words map[string]int64, opts model.Options, logger *zap.Logger) (*oracle.Model, error) {
	cfg := oracle.TrainerConfig{
		VocabSize:         opts.VocabSize,
		CharacterCoverage: opts.CharacterCoverage,
	}
	om, err := oracle.Train(words, cfg, logger)
	if err != nil {
		return nil, err
	}
	if opts.MinPieceCount <= 1 {
		return om, nil
	}

	counts, err := countPieces(ctx, om, words)
	if err != nil {
		return nil, err
	}
	keep := 0
	for piece, n := range counts {
		if utf8.RuneCountInString(piece) == 1 || n >= int64(opts.MinPieceCount) {
			keep++
		}
	}
	if keep >= opts.VocabSize {
		return om, nil
	}
	logger.Info("retraining piece model to satisfy min piece count",
		zap.Int("keep", keep),
		zap.Int("vocabSize", opts.VocabSize))
	cfg.VocabSize = keep
	return oracle.Train(words, cfg, logger)
}

// countPieces re-encodes the bootstrap stream through the trained model and
// counts piece usage.
func countPieces(ctx context.Context, om *oracle.Model, words map[string]int64) (map[string]int64, error) {
	wordList := make([]string, 0, len(words))
	for w := range words {
		wordList = append(wordList, w)
	}
	sort.Strings(wordList)

	var mu sync.Mutex
	counts := map[string]int64{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	chunk := (len(wordList) + runtime.GOMAXPROCS(0) - 1) / runtime.GOMAXPROCS(0)
	if chunk < 1 {
		chunk = 1
	}
	for lo := 0; lo < len(wordList); lo += chunk {
		hi := lo + chunk
		if hi > len(wordList) {
			hi = len(wordList)
		}
		part := wordList[lo:hi]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			local := map[string]int64{}
			for _, w := range part {
				for _, p := range om.SplitPieces(w) {
					local[p] += words[w]
				}
			}
			mu.Lock()
			for p, n := range local {
				counts[p] += n
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// discoverFactorTypes encodes the whole corpus through the full pipeline and
// records the factor-type set per lemma. A conflict is fatal and names the
// offending lemma.
func discoverFactorTypes(ctx context.Context, lines []string, opts model.Options, adapter *oracle.Adapter) (map[string][]string, map[string]int64, error) {
	var mu sync.Mutex
	lemmaTypes := map[string][]string{}
	lemmaCounts := map[string]int64{}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, line := range lines {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			toks, err := encodeLine(line, opts, adapter)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, t := range toks {
				lemma := wire.Lemma(t, wireOptions(opts))
				if err := record(lemmaTypes, lemmaCounts, lemma, observedTypes(t, opts)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return lemmaTypes, lemmaCounts, nil
}

func record(lemmaTypes map[string][]string, lemmaCounts map[string]int64, lemma string, names []string) error {
	lemmaCounts[lemma]++
	if prev, ok := lemmaTypes[lemma]; ok {
		if !equalStrings(prev, names) {
			return fmt.Errorf("%w: %q has %v and %v", ErrFactorInconsistent, lemma, prev, names)
		}
		return nil
	}
	lemmaTypes[lemma] = names
	return nil
}

// observedTypes returns the factor-type prefixes the wire form carries: in
// digit-serialized mode the index factor leaves the head token.
func observedTypes(t token.Token, opts model.Options) []string {
	names := t.Factors.TypeNames()
	if opts.SerializeIndicesAndUnrepresentables && t.Factors.Get(token.Class) != nil {
		kept := names[:0]
		for _, n := range names {
			if n != token.Index.Prefix() {
				kept = append(kept, n)
			}
		}
		names = kept
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func trimRareChars(lemmaTypes map[string][]string, lemmaCounts map[string]int64, minCharCount int) int {
	if minCharCount <= 1 {
		return 0
	}
	trimmed := 0
	for lemma := range lemmaTypes {
		if utf8.RuneCountInString(lemma) != 1 {
			continue
		}
		if lemmaCounts[lemma] < int64(minCharCount) {
			delete(lemmaTypes, lemma)
			trimmed++
		}
	}
	return trimmed
}

func checkFactorSpace(lemmaTypes map[string][]string) error {
	used := map[string]bool{}
	for _, ts := range lemmaTypes {
		for _, t := range ts {
			used[t] = true
		}
	}
	product := uint64(1)
	for _, ft := range token.Types() {
		if !used[ft.Prefix()] {
			continue
		}
		product *= uint64(len(ft.Values()) + 1)
		if product > idSpaceBound {
			return fmt.Errorf("%w: product exceeds 2^32", ErrFactorSpaceTooLarge)
		}
	}
	return nil
}

// encodeLine runs pre-tokenization and factorization for one line with no
// annotated spans, the shape every training pass consumes.
func encodeLine(line string, opts model.Options, adapter *oracle.Adapter) ([]token.Token, error) {
	res, err := pretok.Pretokenize(line, nil, pretokOptions(opts))
	if err != nil {
		return nil, err
	}
	var split factorize.Splitter
	if adapter != nil {
		split = adapter
	}
	return factorize.Run(res, factorizeOptions(opts), split)
}

func pretokOptions(opts model.Options) pretok.Options {
	return pretok.Options{
		SplitHan:    opts.SplitHan,
		InlineFixes: opts.InlineFixes,
	}
}

func factorizeOptions(opts model.Options) factorize.Options {
	return factorize.Options{
		DistinguishInitialAndInternalPieces: opts.DistinguishInitialAndInternalPieces,
		SingleLetterCaseFactors:             opts.SingleLetterCaseFactors,
		ContextDependentSingleLetterCap:     opts.ContextDependentSingleLetterCap,
		RightWordGlue:                       opts.RightWordGlue,
		InlineFixes:                         opts.InlineFixes,
		InlineFixUseTags:                    opts.InlineFixUseTags,
	}
}

func wireOptions(opts model.Options) wire.Options {
	return wire.Options{
		DistinguishInitialAndInternalPieces: opts.DistinguishInitialAndInternalPieces,
		SerializeIndicesAndUnrepresentables: opts.SerializeIndicesAndUnrepresentables,
	}
}

// injectClassLemmas registers the hard-coded class lemmas and, in
// digit-serialized mode, the {unk,...} lemmas, by encoding representative
// strings and characters.
func injectClassLemmas(lemmaTypes map[string][]string, opts model.Options, adapter *oracle.Adapter) error {
	classFor := map[string]string{
		wire.ClassLemmaWord:       "Hello",
		wire.ClassLemmaWordNoCase: "नमस्ते",
		wire.ClassLemmaCS:         "你好",
		wire.ClassLemmaPunct:      "!",
	}
	classNames := make([]string, 0, len(classFor))
	for name := range classFor {
		classNames = append(classNames, name)
	}
	sort.Strings(classNames)
	for _, name := range classNames {
		toks, err := encodeLine(classFor[name], opts, adapter)
		if err != nil {
			return err
		}
		if len(toks) == 0 {
			continue
		}
		var tuple token.Tuple
		for _, v := range toks[0].Factors.Values() {
			tuple.Set(v)
		}
		tuple.Set(token.ClassPhraseFix)
		if !opts.SerializeIndicesAndUnrepresentables {
			tuple.Set(token.IndexValue(0))
		}
		lemmaTypes[name] = tuple.TypeNames()
	}

	if !opts.SerializeIndicesAndUnrepresentables {
		return nil
	}
	for _, example := range []string{"a", "0", ".", "त", "超", "ⓐ", "☺"} {
		toks, err := encodeLine(example, opts, adapter)
		if err != nil {
			return err
		}
		if len(toks) == 0 {
			continue
		}
		names := toks[0].Factors.TypeNames()
		lemmaTypes[wire.UnkLemma(&toks[0].Factors)] = names
	}
	return nil
}
