package segmenter

// Package segmenter provides reversible factored tokenization for neural
// machine translation: it encodes a plain-text line into factored tokens
// (lemma plus capitalization, word-boundary, glue, script-continuity, class,
// index and inline-fix factors) and inverts the token sequence back into the
// original line.
//
// Usage Example
//
// Here is an example of how to round-trip a line through a trained model:
//
//	package main
//
//	import (
//		"fmt"
//		"github.com/awee-ai/go-segmenter"
//	)
//
//	func main() {
//		seg, err := segmenter.Load("corpus.fsm")
//		if err != nil {
//			panic("oh oh")
//		}
//
//		// this should print the factored token strings
//		enc, _ := seg.Encode("Hello world!", nil, nil)
//		fmt.Println(enc.Tokens)
//
//		// this should print the original line back
//		dec, _ := seg.Decode(enc.Tokens, enc.Package, nil)
//		fmt.Println(dec.Text)
//	}

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/awee-ai/go-segmenter/align"
	"github.com/awee-ai/go-segmenter/decoder"
	"github.com/awee-ai/go-segmenter/factorize"
	"github.com/awee-ai/go-segmenter/model"
	"github.com/awee-ai/go-segmenter/oracle"
	"github.com/awee-ai/go-segmenter/pretok"
	"github.com/awee-ai/go-segmenter/token"
	"github.com/awee-ai/go-segmenter/train"
	"github.com/awee-ai/go-segmenter/wire"
)

// The error kinds the library surfaces.
var (
	ErrInvalidAnnotation   = pretok.ErrInvalidAnnotation
	ErrMalformedWire       = wire.ErrMalformedWire
	ErrOracleFailure       = oracle.ErrFailure
	ErrFactorInconsistent  = train.ErrFactorInconsistent
	ErrFactorSpaceTooLarge = train.ErrFactorSpaceTooLarge
)

// Options are the model options; see the model package for the fields.
type Options = model.Options

// DefaultOptions returns the defaults a fresh segmenter starts from.
func DefaultOptions() Options { return model.Defaults() }

// Span is an annotated range of the input line.
type Span = pretok.Span

// ClassKind identifies what an annotated class span stands for.
type ClassKind = pretok.ClassKind

// The class kinds.
const (
	ClassNone      = pretok.ClassNone
	ClassPhraseFix = pretok.ClassPhraseFix
)

// Alignment carries source-to-target token links through decoding.
type Alignment = align.Alignment

// Link is one alignment link.
type Link = align.Link

// DecoderPackage is the encode-time side channel Decode consumes.
type DecoderPackage = decoder.Package

// Decoded is the decoder output: surface text plus per-token segments.
type Decoded = decoder.Result

// Encoded is the encoder output: the wire token strings and the decoder
// package for the eventual decode of this sentence's translation.
type Encoded struct {
	Tokens  []string
	Package *DecoderPackage
}

// Segmenter encodes and decodes lines under one model. It is re-entrant:
// concurrent calls on the same instance are safe, the only shared state
// being the piece-oracle split cache.
type Segmenter struct {
	opts    model.Options
	model   *model.Model
	adapter *oracle.Adapter
	known   map[string]bool
}

// New returns an untrained segmenter: no piece oracle, no known-lemma set.
// Encoding works but nothing is split and no character is unrepresentable.
func New(opts Options) *Segmenter {
	return &Segmenter{
		opts:    opts,
		adapter: oracle.NewAdapter(nil, opts.SplitCacheSize),
	}
}

// NewFromModel builds a segmenter from a loaded model.
func NewFromModel(m *model.Model) (*Segmenter, error) {
	s := &Segmenter{opts: m.Options, model: m, known: m.KnownSet()}
	var om oracle.Oracle
	if len(m.OracleBlob) > 0 {
		bpe, err := oracle.LoadBlob(m.OracleBlob)
		if err != nil {
			return nil, err
		}
		om = bpe
	}
	s.adapter = oracle.NewAdapter(om, m.Options.SplitCacheSize)
	return s, nil
}

// Load reads a .fsm model file and builds a segmenter from it.
func Load(path string) (*Segmenter, error) {
	m, err := model.Load(path)
	if err != nil {
		return nil, err
	}
	return NewFromModel(m)
}

// Train builds a model from corpus lines and returns a segmenter over it.
func Train(ctx context.Context, lines []string, opts Options, logger *zap.Logger) (*Segmenter, error) {
	m, err := train.Train(ctx, lines, opts, logger)
	if err != nil {
		return nil, err
	}
	return NewFromModel(m)
}

// Model returns the underlying model, or nil for an untrained segmenter.
func (s *Segmenter) Model() *model.Model { return s.model }

// Options returns the options in effect.
func (s *Segmenter) Options() Options { return s.opts }

// Save persists the model. Untrained segmenters cannot be saved.
func (s *Segmenter) Save(path string) error {
	if s.model == nil {
		return fmt.Errorf("segmenter has no trained model to save")
	}
	return s.model.Save(path)
}

// Encode turns one line into factored wire tokens. Spans may be nil;
// annotations carry sentence-level annotation values for the types declared
// in the model options.
func (s *Segmenter) Encode(line string, spans []Span, annotations map[string]string) (*Encoded, error) {
	for typ := range annotations {
		if _, ok := s.opts.SentenceAnnotationTypes[typ]; !ok {
			return nil, fmt.Errorf("%w: undeclared sentence annotation type %q", ErrInvalidAnnotation, typ)
		}
	}

	res, err := pretok.Pretokenize(line, spans, pretok.Options{
		SplitHan:    s.opts.SplitHan,
		InlineFixes: s.opts.InlineFixes,
	})
	if err != nil {
		return nil, err
	}

	toks, err := factorize.Run(res, factorize.Options{
		DistinguishInitialAndInternalPieces: s.opts.DistinguishInitialAndInternalPieces,
		SingleLetterCaseFactors:             s.opts.SingleLetterCaseFactors,
		ContextDependentSingleLetterCap:     s.opts.ContextDependentSingleLetterCap,
		RightWordGlue:                       s.opts.RightWordGlue,
		InlineFixes:                         s.opts.InlineFixes,
		InlineFixUseTags:                    s.opts.InlineFixUseTags,
	}, s.adapter)
	if err != nil {
		return nil, err
	}

	strs, emitted := wire.Serialize(line, toks, wire.Options{
		DistinguishInitialAndInternalPieces: s.opts.DistinguishInitialAndInternalPieces,
		SerializeIndicesAndUnrepresentables: s.opts.SerializeIndicesAndUnrepresentables,
	}, s.known, annotations)

	return &Encoded{Tokens: strs, Package: buildPackage(line, emitted, res)}, nil
}

func buildPackage(line string, emitted []token.Token, res pretok.Result) *decoder.Package {
	pkg := &decoder.Package{
		SourceText:     line,
		DecodeAs:       res.DecodeAs,
		ClassKinds:     res.ClassKinds,
		ClassPositions: map[int]int{},
	}
	for i, t := range emitted {
		off, length := t.Orig()
		pkg.SourceSegments = append(pkg.SourceSegments, decoder.Segment{Off: off, Len: length})
		if t.Factors.Get(token.Class) != nil {
			if idx := t.Factors.Get(token.Index); idx != nil {
				pkg.ClassPositions[token.IndexOf(idx)] = i
			}
		}
	}
	return pkg
}

// Decode inverts a token sequence back into surface text. pkg and a may be
// nil when alignment and phrase-fix restoration are not needed.
func (s *Segmenter) Decode(tokens []string, pkg *DecoderPackage, a *Alignment) (Decoded, error) {
	return decoder.Decode(tokens, pkg, a, decoder.Options{
		SerializeIndicesAndUnrepresentables: s.opts.SerializeIndicesAndUnrepresentables,
	})
}
