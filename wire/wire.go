package wire

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/awee-ai/go-segmenter/token"
)

// Reserved lemmas.
const (
	LemmaUnk = "<unk>"
	LemmaBOS = "<s>"
	LemmaEOS = "</s>"

	TagOpen  = "<IOPEN>"
	TagDelim = "<IDELIM>"
	TagClose = "<ICLOSE>"

	// DigitTerm terminates a digit-encoded index or scalar run.
	DigitTerm = "<#>"

	// WordBegPrefix marks word-initial lemmas when the model distinguishes
	// initial and internal pieces.
	WordBegPrefix = "▁"
)

// Class lemmas.
const (
	ClassLemmaWord       = "{word}"
	ClassLemmaWordNoCase = "{word-wo-case}"
	ClassLemmaCS         = "{continuousScript}"
	ClassLemmaPunct      = "{punctuation}"
)

// DigitLemma returns the pseudo-token lemma for decimal digit d.
func DigitLemma(d int) string {
	return fmt.Sprintf("<%d>", d)
}

// ParseDigitLemma recognises <0>..<9>.
func ParseDigitLemma(s string) (int, bool) {
	if len(s) == 3 && s[0] == '<' && s[2] == '>' && s[1] >= '0' && s[1] <= '9' {
		return int(s[1] - '0'), true
	}
	return 0, false
}

// SLALemma renders a sentence-level annotation head token.
func SLALemma(typ, value string) string {
	return fmt.Sprintf("<SLA:%s=%s>", typ, value)
}

// IsSLALemma reports whether s is a sentence-level annotation token.
func IsSLALemma(s string) bool {
	return strings.HasPrefix(s, "<SLA:") && strings.HasSuffix(s, ">")
}

// Options control serialization.
type Options struct {
	// DistinguishInitialAndInternalPieces prefixes word-initial lemmas with
	// U+2581.
	DistinguishInitialAndInternalPieces bool
	// SerializeIndicesAndUnrepresentables replaces index factors by digit
	// runs and escapes out-of-vocabulary single characters as {unk,...}
	// heads with digit runs.
	SerializeIndicesAndUnrepresentables bool
}

// Lemma derives the lemma string of a factored token: class tokens map to
// the literal class lemmas, word-nature tokens are uppercased per rune (with
// the optional word-begin prefix), everything else passes through.
func Lemma(t token.Token, opts Options) string {
	f := &t.Factors
	if f.Get(token.Class) != nil {
		return classLemma(f)
	}
	if f.Get(token.WordBeg) != nil || f.Get(token.WordInt) != nil {
		lemma := upperRunes(t.Under())
		if opts.DistinguishInitialAndInternalPieces && f.Get(token.WordBeg) == token.WordBegYes {
			lemma = WordBegPrefix + lemma
		}
		return lemma
	}
	return t.Under()
}

func classLemma(f *token.Tuple) string {
	switch {
	case f.Get(token.Cap) != nil:
		return ClassLemmaWord
	case f.Get(token.CSBeg) != nil:
		return ClassLemmaCS
	case f.Get(token.WordBeg) != nil:
		return ClassLemmaWordNoCase
	default:
		return ClassLemmaPunct
	}
}

func upperRunes(s string) string {
	return strings.Map(unicode.ToUpper, s)
}

// UnkLemma synthesizes the {unk,...} head lemma for a factor tuple.
func UnkLemma(f *token.Tuple) string {
	names := f.TypeNames()
	return "{unk," + strings.Join(names, ",") + "}"
}

// ParseUnkLemma recognises {unk,...} lemmas and returns the factor type
// prefixes they declare.
func ParseUnkLemma(s string) ([]string, bool) {
	if !strings.HasPrefix(s, "{unk,") || !strings.HasSuffix(s, "}") {
		return nil, false
	}
	body := s[len("{unk,") : len(s)-1]
	if body == "" {
		return nil, false
	}
	return strings.Split(body, ","), true
}

// Render serializes one token string from a lemma and a factor tuple.
func Render(lemma string, f *token.Tuple, skip ...*token.FactorType) string {
	var b strings.Builder
	b.WriteString(EscapeLemma(lemma))
	for _, v := range f.Values() {
		skipped := false
		for _, st := range skip {
			if v.Type() == st {
				skipped = true
				break
			}
		}
		if skipped {
			continue
		}
		b.WriteByte('|')
		b.WriteString(v.String())
	}
	return b.String()
}

// Serialize renders the factored token stream into wire strings. Digit runs
// for indices and unrepresentable characters are produced here, as are the
// sentence-level annotation head tokens. The returned token slice parallels
// the strings and carries the original ranges (pseudo tokens have zero-length
// ranges), for use by the decoder package.
func Serialize(line string, toks []token.Token, opts Options, known map[string]bool, annotations map[string]string) ([]string, []token.Token) {
	var out []string
	var emitted []token.Token

	head := token.New(line, 0, 0)
	types := make([]string, 0, len(annotations))
	for typ := range annotations {
		types = append(types, typ)
	}
	sort.Strings(types)
	for _, typ := range types {
		sla := head.PseudoAt(false, SLALemma(typ, annotations[typ]))
		out = append(out, sla.Under())
		emitted = append(emitted, sla)
	}

	for _, t := range toks {
		lemma := Lemma(t, opts)

		if opts.SerializeIndicesAndUnrepresentables {
			if idx := t.Factors.Get(token.Index); idx != nil && t.Factors.Get(token.Class) != nil {
				out = append(out, Render(lemma, &t.Factors, token.Index))
				emitted = append(emitted, t)
				appendDigits(&out, &emitted, t, token.IndexOf(idx))
				continue
			}
			if known != nil && isUnrepresentable(t, lemma, known) {
				r, _ := utf8.DecodeRuneInString(strings.TrimPrefix(lemma, WordBegPrefix))
				out = append(out, Render(UnkLemma(&t.Factors), &t.Factors))
				emitted = append(emitted, t)
				appendDigits(&out, &emitted, t, int(r))
				continue
			}
		}

		out = append(out, Render(lemma, &t.Factors))
		emitted = append(emitted, t)
	}
	return out, emitted
}

func isUnrepresentable(t token.Token, lemma string, known map[string]bool) bool {
	if t.Factors.Get(token.Class) != nil || isPseudoLemma(t.Under()) {
		return false
	}
	if utf8.RuneCountInString(t.Under()) != 1 {
		return false
	}
	return !known[lemma]
}

func isPseudoLemma(s string) bool {
	return s == TagOpen || s == TagDelim || s == TagClose || IsSLALemma(s)
}

func appendDigits(out *[]string, emitted *[]token.Token, t token.Token, n int) {
	for _, d := range strconv.Itoa(n) {
		dt := t.PseudoAt(true, DigitLemma(int(d-'0')))
		*out = append(*out, dt.Under())
		*emitted = append(*emitted, dt)
	}
	term := t.PseudoAt(true, DigitTerm)
	*out = append(*out, term.Under())
	*emitted = append(*emitted, term)
}

// Parsed is one parsed wire token.
type Parsed struct {
	Lemma   string
	Factors token.Tuple
}

// Parse splits a wire token into its unescaped lemma and factor values.
// Unknown factor strings and duplicate factor types are rejected.
func Parse(s string) (Parsed, error) {
	parts := strings.Split(s, "|")
	lemma, err := UnescapeLemma(parts[0])
	if err != nil {
		return Parsed{}, err
	}
	p := Parsed{Lemma: lemma}
	for _, fs := range parts[1:] {
		v, ok := token.ValueOf(fs)
		if !ok {
			return Parsed{}, fmt.Errorf("%w: unknown factor %q in %q", ErrMalformedWire, fs, s)
		}
		if p.Factors.Get(v.Type()) != nil {
			return Parsed{}, fmt.Errorf("%w: duplicate factor type %q in %q", ErrMalformedWire, v.Type().Name(), s)
		}
		p.Factors.Set(v)
	}
	return p, nil
}
