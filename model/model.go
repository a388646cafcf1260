// Package model defines the persisted segmenter model: the options it was
// trained with, the embedded piece-oracle blob, the known-lemma set with its
// factor-type map, the shortlist vocabulary, and the factor spec consumed by
// the NMT toolkit.
package model

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/awee-ai/go-segmenter/wire"
)

// Ext is the required model file extension; temporary oracle training
// artefacts derive their paths by extension substitution.
const Ext = ".fsm"

// Options are the model options, persisted with the model so that encode and
// decode agree with training.
type Options struct {
	RightWordGlue                       bool `yaml:"rightWordGlue"`
	DistinguishInitialAndInternalPieces bool `yaml:"distinguishInitialAndInternalPieces"`
	SplitHan                            bool `yaml:"splitHan"`
	SingleLetterCaseFactors             bool `yaml:"singleLetterCaseFactors"`
	ContextDependentSingleLetterCap     bool `yaml:"contextDependentSingleLetterCap"`
	SerializeIndicesAndUnrepresentables bool `yaml:"serializeIndicesAndUnrepresentables"`
	InlineFixes                         bool `yaml:"inlineFixes"`
	InlineFixUseTags                    bool `yaml:"inlineFixUseTags"`
	UseSentencePiece                    bool `yaml:"useSentencePiece"`

	// SentenceAnnotationTypes declares the sentence-level annotation types
	// and their closed value sets.
	SentenceAnnotationTypes map[string][]string `yaml:"sentenceAnnotationTypes,omitempty"`

	VocabSize            int     `yaml:"vocabSize"`
	CharacterCoverage    float64 `yaml:"characterCoverage"`
	TrainingSentenceSize int     `yaml:"trainingSentenceSize"`
	MinPieceCount        int     `yaml:"minPieceCount"`
	MinCharCount         int     `yaml:"minCharCount"`

	// SplitCacheSize bounds the piece-oracle split cache.
	SplitCacheSize int `yaml:"splitCacheSize"`
}

// Defaults returns the options a fresh segmenter starts from.
func Defaults() Options {
	return Options{
		UseSentencePiece:  true,
		VocabSize:         32000,
		CharacterCoverage: 1,
		MinPieceCount:     0,
		MinCharCount:      1,
		SplitCacheSize:    100000,
	}
}

// Model is the persisted segmenter model.
type Model struct {
	Options Options `yaml:"options"`
	// OracleBlob is the serialized piece model; empty when training ran with
	// the piece oracle disabled.
	OracleBlob []byte `yaml:"oracle,omitempty"`
	// KnownLemmas is the admissible lemma set, sorted, in raw form.
	KnownLemmas []string `yaml:"knownLemmas"`
	// LemmaFactorTypes maps each raw lemma to the factor-type prefixes it
	// carries, sorted.
	LemmaFactorTypes map[string][]string `yaml:"lemmaFactorTypes"`
	// Shortlist is the vocabulary in escaped serialized form, in canonical
	// order.
	Shortlist []string `yaml:"shortlist"`
	// FactorSpec is the generated declarative vocabulary spec.
	FactorSpec string `yaml:"factorSpec"`
}

// KnownSet returns the lemma set keyed for lookup.
func (m *Model) KnownSet() map[string]bool {
	out := make(map[string]bool, len(m.KnownLemmas))
	for _, l := range m.KnownLemmas {
		out[l] = true
	}
	return out
}

// Save writes the model document. The path must carry the .fsm extension.
func (m *Model) Save(path string) error {
	if filepath.Ext(path) != Ext {
		return fmt.Errorf("model path %q must have extension %s", path, Ext)
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal model: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load reads a model document written by Save.
func Load(path string) (*Model, error) {
	if filepath.Ext(path) != Ext {
		return nil, fmt.Errorf("model path %q must have extension %s", path, Ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal model %s: %w", path, err)
	}
	return &m, nil
}

// ReservedLemmas returns the reserved shortlist head for the given options,
// in canonical order.
func ReservedLemmas(opts Options) []string {
	out := []string{wire.LemmaUnk, wire.LemmaBOS, wire.LemmaEOS}
	if opts.InlineFixes && opts.InlineFixUseTags {
		out = append(out, wire.TagOpen, wire.TagDelim, wire.TagClose)
	}
	types := make([]string, 0, len(opts.SentenceAnnotationTypes))
	for typ := range opts.SentenceAnnotationTypes {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		values := append([]string(nil), opts.SentenceAnnotationTypes[typ]...)
		sort.Strings(values)
		for _, v := range values {
			out = append(out, wire.SLALemma(typ, v))
		}
	}
	if opts.SerializeIndicesAndUnrepresentables {
		for d := 0; d < 10; d++ {
			out = append(out, wire.DigitLemma(d))
		}
		out = append(out, wire.DigitTerm)
	}
	return out
}

// BuildShortlist assembles the shortlist: the reserved tokens followed by the
// known lemmas in escaped serialized form, sorted by ordinal comparison.
func BuildShortlist(opts Options, knownLemmas []string) []string {
	out := ReservedLemmas(opts)
	reserved := make(map[string]bool, len(out))
	for _, r := range out {
		reserved[r] = true
	}
	escaped := make([]string, 0, len(knownLemmas))
	for _, l := range knownLemmas {
		e := wire.EscapeLemma(l)
		if reserved[e] {
			continue
		}
		escaped = append(escaped, e)
	}
	sort.Slice(escaped, func(i, j int) bool {
		return strings.Compare(escaped[i], escaped[j]) < 0
	})
	return append(out, escaped...)
}
