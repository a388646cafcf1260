// Package pretok turns an input line and its annotated spans into the
// pre-tokenized token sequence: span substitution and class-token emission,
// gap filling, and Unicode-aware splitting at unambiguous word boundaries.
package pretok

import (
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"

	"github.com/awee-ai/go-segmenter/token"
)

// ErrInvalidAnnotation reports overlapping or otherwise malformed annotated
// spans.
var ErrInvalidAnnotation = errors.New("invalid annotation")

// MaxIndex bounds the class-token index factor.
const MaxIndex = token.NumIndexValues

// ClassKind identifies what an annotated class span stands for.
type ClassKind int

// The class kinds.
const (
	ClassNone ClassKind = iota
	ClassPhraseFix
)

// FactorValue returns the class factor value for k, or nil for ClassNone.
func (k ClassKind) FactorValue() *token.FactorValue {
	if k == ClassPhraseFix {
		return token.ClassPhraseFix
	}
	return nil
}

// String returns the serialized kind name.
func (k ClassKind) String() string {
	if k == ClassPhraseFix {
		return "phrasefix"
	}
	return "none"
}

// Span is one annotated range of the input line.
//
// A span with a class kind is replaced by a class token (or an inline-fix
// pair); DecodeAs supplies its surface form at decode time. EncodeAsIf
// substitutes the underlying text for the range while the original range is
// retained; the empty string deletes the range (HTML tags).
type Span struct {
	Start    int
	Len      int
	Class    ClassKind
	DecodeAs string
	// EncodeAsIf is nil when absent; a pointer to "" is a pure deletion.
	EncodeAsIf *string
}

// Options control the pre-tokenizer.
type Options struct {
	// SplitHan additionally splits between adjacent Han characters.
	SplitHan bool
	// InlineFixes emits phrase-fix spans as source/target inline pairs
	// instead of replaced class tokens.
	InlineFixes bool
}

// Result is the pre-tokenizer output: the token sequence, the decode-as
// table for class indices, and the class kind per index.
type Result struct {
	Tokens     []token.Token
	DecodeAs   map[int]string
	ClassKinds map[int]ClassKind
}

// Pretokenize applies the annotated spans to line and splits the remaining
// text at every unambiguous word boundary. The concatenated original ranges
// of the emitted tokens tile [0, len(line)) exactly.
func Pretokenize(line string, spans []Span, opts Options) (Result, error) {
	res := Result{
		DecodeAs:   map[int]string{},
		ClassKinds: map[int]ClassKind{},
	}

	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].Len < sorted[j].Len
	})

	cursor := 0
	used := map[int]bool{}
	var coarse []token.Token
	for _, s := range sorted {
		if s.Start < cursor || s.Start+s.Len > len(line) {
			return Result{}, fmt.Errorf("%w: span (%d,%d) overlaps or exceeds line", ErrInvalidAnnotation, s.Start, s.Len)
		}
		if s.Class != ClassNone && s.DecodeAs == "" {
			return Result{}, fmt.Errorf("%w: class span (%d,%d) has empty decodeAs", ErrInvalidAnnotation, s.Start, s.Len)
		}
		if s.Start > cursor {
			coarse = append(coarse, token.New(line, cursor, s.Start-cursor))
		}
		coarse = append(coarse, applySpan(line, s, used, &res, opts)...)
		cursor = s.Start + s.Len
	}
	if cursor < len(line) {
		coarse = append(coarse, token.New(line, cursor, len(line)-cursor))
	}

	for _, t := range coarse {
		res.Tokens = append(res.Tokens, splitToken(t, opts)...)
	}
	return res, nil
}

func applySpan(line string, s Span, used map[int]bool, res *Result, opts Options) []token.Token {
	base := token.New(line, s.Start, s.Len)

	switch {
	case s.Class != ClassNone:
		if opts.InlineFixes {
			what := base
			what.Factors.Set(token.InlineFixWhat)
			with := base.OverrideAsIf(s.DecodeAs)
			with.Factors.Set(token.InlineFixWith)
			return []token.Token{what, with}
		}
		idx, ok := allocIndex(used, s.DecodeAs)
		if !ok {
			// Index space exhausted: the span degrades to plain text.
			return []token.Token{base}
		}
		res.DecodeAs[idx] = s.DecodeAs
		res.ClassKinds[idx] = s.Class
		cls := base.OverrideAsIf("")
		cls.Factors.Set(s.Class.FactorValue())
		cls.Factors.Set(token.IndexValue(idx))
		return []token.Token{cls}

	case s.EncodeAsIf != nil:
		return []token.Token{base.OverrideAsIf(*s.EncodeAsIf)}

	default:
		return []token.Token{base}
	}
}

// allocIndex draws a pseudo-random index seeded by the decode-as string and
// probes linearly for a free slot, so that source and target side encoders
// assign matching indices without sharing state.
func allocIndex(used map[int]bool, decodeAs string) (int, bool) {
	h := fnv.New32a()
	h.Write([]byte(decodeAs))
	r := rand.New(rand.NewSource(int64(h.Sum32())))
	start := r.Intn(MaxIndex)
	for i := 0; i < MaxIndex; i++ {
		idx := (start + i) % MaxIndex
		if !used[idx] {
			used[idx] = true
			return idx, true
		}
	}
	return 0, false
}

// splitToken applies the break rules to one coarse token. Tokens with empty
// underlying text (class tokens, deletions) pass through unchanged.
func splitToken(t token.Token, opts Options) []token.Token {
	under := t.Under()
	if under == "" {
		return []token.Token{t}
	}
	if strings.ContainsRune(under, wordBegMarker) {
		// A literal U+2581 in the input would collide with the word-begin
		// prefix marker; it is rewritten to an underscore (documented
		// non-round-trip case).
		t = t.OverrideAsIf(strings.Map(func(r rune) rune {
			if r == wordBegMarker {
				return '_'
			}
			return r
		}, under))
		under = t.Under()
	}
	cuts := computeBreaks(under, opts)
	if len(cuts) == 0 {
		return []token.Token{t}
	}
	out := make([]token.Token, 0, len(cuts)+1)
	prev := 0
	for _, c := range append(cuts, len(under)) {
		out = append(out, t.Narrow(prev, c-prev))
		prev = c
	}
	return out
}

const wordBegMarker = '▁'
