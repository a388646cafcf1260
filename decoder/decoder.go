// Package decoder inverts the encoding pipeline: it parses wire tokens,
// folds digit-encoded indices and unrepresentable characters back in,
// restores missing phrase fixes, and reconstructs the surface string with
// its spacing, carrying an alignment structure across every insertion and
// drop.
package decoder

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/awee-ai/go-segmenter/align"
	"github.com/awee-ai/go-segmenter/pretok"
	"github.com/awee-ai/go-segmenter/token"
	"github.com/awee-ai/go-segmenter/wire"
)

// Options control decoding.
type Options struct {
	// SerializeIndicesAndUnrepresentables enables the digit-run
	// deserialization pass.
	SerializeIndicesAndUnrepresentables bool
}

// Segment is a character range of the original source line.
type Segment struct {
	Off int
	Len int
}

// Package is the side channel produced at encode time that decoding needs:
// the source text and per-token ranges for alignment output, the decode-as
// table, and the class indices the source carried.
type Package struct {
	SourceText     string
	SourceSegments []Segment
	DecodeAs       map[int]string
	ClassKinds     map[int]pretok.ClassKind
	// ClassPositions maps a class index to the source token position of its
	// head token, used to place re-inserted phrase fixes.
	ClassPositions map[int]int
}

// DecodedSegment is one output token: its range in the decoded text and the
// source ranges its aligned tokens cover.
type DecodedSegment struct {
	Off          int
	Len          int
	SourceRanges []Segment
}

// Result is the decoded surface string plus per-token segments.
type Result struct {
	Text     string
	Segments []DecodedSegment
}

type dtok struct {
	parsed    wire.Parsed
	invalid   bool
	recovered rune
	inserted  bool
}

// Decode reconstructs the surface string from wire tokens. The alignment, if
// given, is mutated in place to track inserted and dropped tokens.
func Decode(tokens []string, pkg *Package, a *align.Alignment, opts Options) (Result, error) {
	dtoks := make([]dtok, len(tokens))
	for i, s := range tokens {
		p, err := wire.Parse(s)
		if err != nil {
			return Result{}, err
		}
		dtoks[i] = dtok{parsed: p}
	}

	stripStructural(dtoks)
	if opts.SerializeIndicesAndUnrepresentables {
		deserializeDigits(dtoks)
	}
	dtoks = insertMissingFixes(dtoks, pkg, a)
	dtoks = compact(dtoks, a)
	return render(dtoks, pkg, a), nil
}

// stripStructural drops sentence annotations, inline-fix source runs, and
// inline-fix delimiter tags.
func stripStructural(dtoks []dtok) {
	inWhat := false
	for i := range dtoks {
		lemma := dtoks[i].parsed.Lemma
		switch {
		case wire.IsSLALemma(lemma):
			dtoks[i].invalid = true
		case lemma == wire.TagOpen:
			dtoks[i].invalid = true
			inWhat = true
		case lemma == wire.TagDelim:
			dtoks[i].invalid = true
			inWhat = false
		case lemma == wire.TagClose:
			dtoks[i].invalid = true
		case inWhat:
			dtoks[i].invalid = true
		case dtoks[i].parsed.Factors.Get(token.InlineFix) == token.InlineFixWhat:
			dtoks[i].invalid = true
		}
	}
}

// deserializeDigits folds trailing digit runs back into their head tokens.
// Malformed runs are dropped silently: the model emitting them is not
// trusted, and discarding gives the best round-trip behaviour in practice.
func deserializeDigits(dtoks []dtok) {
	i := 0
	for i < len(dtoks) {
		if dtoks[i].invalid || !isDigitHead(&dtoks[i]) {
			// A digit or terminator token outside a run is stray.
			if _, isDigit := wire.ParseDigitLemma(dtoks[i].parsed.Lemma); isDigit || dtoks[i].parsed.Lemma == wire.DigitTerm {
				dtoks[i].invalid = true
			}
			i++
			continue
		}

		j := i + 1
		value := 0
		digits := 0
		for j < len(dtoks) {
			d, ok := wire.ParseDigitLemma(dtoks[j].parsed.Lemma)
			if !ok {
				break
			}
			value = value*10 + d
			digits++
			dtoks[j].invalid = true
			j++
			if value > utf8.MaxRune {
				break
			}
		}
		terminated := j < len(dtoks) && dtoks[j].parsed.Lemma == wire.DigitTerm
		if terminated {
			dtoks[j].invalid = true
			j++
		}
		if !terminated || digits == 0 {
			dtoks[i].invalid = true
			i = j
			continue
		}
		applyDigitValue(&dtoks[i], value)
		i = j
	}
}

func isDigitHead(d *dtok) bool {
	if _, ok := wire.ParseUnkLemma(d.parsed.Lemma); ok {
		return true
	}
	return d.parsed.Factors.Get(token.Class) != nil && d.parsed.Factors.Get(token.Index) == nil
}

func applyDigitValue(d *dtok, value int) {
	if _, ok := wire.ParseUnkLemma(d.parsed.Lemma); ok {
		r := rune(value)
		if !utf8.ValidRune(r) || !validTuple(&d.parsed.Factors) {
			d.invalid = true
			return
		}
		d.recovered = r
		return
	}
	if value >= token.NumIndexValues {
		d.invalid = true
		return
	}
	d.parsed.Factors.Set(token.IndexValue(value))
}

// validTuple checks the boundary invariant: a reconstructed token must carry
// exactly one of glue-left, word-begin, word-internal or cs-begin.
func validTuple(f *token.Tuple) bool {
	n := 0
	for _, ft := range []*token.FactorType{token.GlueLeft, token.WordBeg, token.WordInt, token.CSBeg} {
		if f.Get(ft) != nil {
			n++
		}
	}
	return n == 1
}

// insertMissingFixes re-inserts class tokens the decoded side lost, at the
// alignment-suggested position or at the end.
func insertMissingFixes(dtoks []dtok, pkg *Package, a *align.Alignment) []dtok {
	if pkg == nil || len(pkg.ClassKinds) == 0 {
		return dtoks
	}
	present := map[int]bool{}
	for i := range dtoks {
		if dtoks[i].invalid || dtoks[i].parsed.Factors.Get(token.Class) == nil {
			continue
		}
		if idx := dtoks[i].parsed.Factors.Get(token.Index); idx != nil {
			present[token.IndexOf(idx)] = true
		}
	}

	indices := make([]int, 0, len(pkg.ClassKinds))
	for idx := range pkg.ClassKinds {
		if !present[idx] {
			indices = append(indices, idx)
		}
	}
	sort.Ints(indices)

	for _, idx := range indices {
		var d dtok
		d.inserted = true
		d.parsed.Lemma = wire.ClassLemmaWord
		d.parsed.Factors.Set(pkg.ClassKinds[idx].FactorValue())
		d.parsed.Factors.Set(token.IndexValue(idx))
		d.parsed.Factors.Set(token.WordBegYes)

		pos := len(dtoks)
		if srcPos, ok := pkg.ClassPositions[idx]; ok {
			if t, found := a.TargetForSource(srcPos); found && t <= len(dtoks) {
				pos = t
			}
		}
		dtoks = append(dtoks, dtok{})
		copy(dtoks[pos+1:], dtoks[pos:])
		dtoks[pos] = d
		a.InsertTarget(pos)
		if srcPos, ok := pkg.ClassPositions[idx]; a != nil && ok {
			a.Links = append(a.Links, align.Link{Source: srcPos, Target: pos, Confidence: 1})
		}
	}
	return dtoks
}

func compact(dtoks []dtok, a *align.Alignment) []dtok {
	oldToNew := make([]int, len(dtoks))
	kept := dtoks[:0]
	for i := range dtoks {
		if dtoks[i].invalid {
			oldToNew[i] = -1
			continue
		}
		oldToNew[i] = len(kept)
		kept = append(kept, dtoks[i])
	}
	a.ProjectTargets(oldToNew)
	return kept
}

func render(dtoks []dtok, pkg *Package, a *align.Alignment) Result {
	var b strings.Builder
	res := Result{}
	prevGluesRight := true // sentence start counts as glued
	for i := range dtoks {
		d := &dtoks[i]
		surface := surfaceOf(d, pkg)
		if !prevGluesRight && !gluesLeft(&d.parsed.Factors) {
			b.WriteByte(' ')
		}
		seg := DecodedSegment{Off: b.Len(), Len: len(surface)}
		for _, s := range a.SourcesForTarget(i) {
			if pkg != nil && s >= 0 && s < len(pkg.SourceSegments) {
				seg.SourceRanges = append(seg.SourceRanges, pkg.SourceSegments[s])
			}
		}
		res.Segments = append(res.Segments, seg)
		b.WriteString(surface)
		prevGluesRight = gluesRight(&d.parsed.Factors)
	}
	res.Text = b.String()
	return res
}

func gluesLeft(f *token.Tuple) bool {
	switch {
	case f.Get(token.GlueLeft) == token.GlueLeftYes:
		return true
	case f.Get(token.WordBeg) == token.WordBegNot:
		return true
	case f.Get(token.WordInt) != nil:
		return true
	case f.Get(token.CSBeg) == token.CSBegNot:
		return true
	}
	return false
}

func gluesRight(f *token.Tuple) bool {
	switch {
	case f.Get(token.GlueRight) == token.GlueRightYes:
		return true
	case f.Get(token.WordEnd) == token.WordEndNot:
		return true
	case f.Get(token.CSEnd) == token.CSEndNot:
		return true
	}
	return false
}

func surfaceOf(d *dtok, pkg *Package) string {
	f := &d.parsed.Factors
	if idx := f.Get(token.Index); idx != nil && pkg != nil {
		if s, ok := pkg.DecodeAs[token.IndexOf(idx)]; ok {
			return s
		}
	}
	if f.Get(token.Class) != nil {
		return ""
	}

	var base string
	if d.recovered != 0 {
		base = string(d.recovered)
	} else {
		base = strings.TrimPrefix(d.parsed.Lemma, wire.WordBegPrefix)
	}

	switch {
	case f.Get(token.Cap) == token.CapAll || f.Get(token.SingleCap) == token.SingleCapUpper:
		return strings.Map(unicode.ToUpper, base)
	case f.Get(token.Cap) == token.CapInitial:
		return titleCase(base)
	case f.Get(token.Cap) == token.CapNone || f.Get(token.SingleCap) == token.SingleCapLower:
		return strings.Map(unicode.ToLower, base)
	case f.Get(token.WordBeg) != nil || f.Get(token.WordInt) != nil:
		// Uncased word lemma: per-rune lowering is the identity for scripts
		// without case.
		return strings.Map(unicode.ToLower, base)
	default:
		return base
	}
}

func titleCase(s string) string {
	out := make([]rune, 0, len(s))
	for i, r := range s {
		if i == 0 {
			out = append(out, unicode.ToUpper(r))
		} else {
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}
