// Package factorize assigns the factor tuples to a pre-tokenized sequence:
// subword splitting through the piece oracle, capitalization, word-boundary
// and glue factors, space elision, and inline-fix sequencing.
//
// The stage never mutates underlying strings; every output token is a
// narrowed or annotated version of its input.
package factorize

import (
	"strings"
	"unicode"

	"github.com/awee-ai/go-segmenter/charclass"
	"github.com/awee-ai/go-segmenter/pretok"
	"github.com/awee-ai/go-segmenter/token"
	"github.com/awee-ai/go-segmenter/wire"
)

// Options control factor assignment.
type Options struct {
	DistinguishInitialAndInternalPieces bool
	SingleLetterCaseFactors             bool
	ContextDependentSingleLetterCap     bool
	RightWordGlue                       bool
	InlineFixes                         bool
	InlineFixUseTags                    bool
}

// Splitter is the piece-oracle contract the factorizer consumes; it is
// satisfied by *oracle.Adapter.
type Splitter interface {
	Split(word string, adjustForWordBegPrefix bool) ([]int, error)
}

type nature int

const (
	natEmpty nature = iota
	natSpace
	natWord
	natCS
	natPunct
	natClass
)

// classTreat is how a class token behaves for factor assignment, derived
// from its decode-as surface form.
type classTreat int

const (
	treatWord classTreat = iota
	treatWordNoCase
	treatCS
	treatPunct
)

type piece struct {
	tok    token.Token
	nat    nature
	treat  classTreat
	first  bool
	last   bool
	elided bool
}

// Run assigns all factors and elides space tokens. The result is the final
// factored token stream ready for serialization.
func Run(res pretok.Result, opts Options, split Splitter) ([]token.Token, error) {
	pretoks := make([]token.Token, 0, len(res.Tokens))
	for _, t := range res.Tokens {
		if t.Under() == "" && t.Factors.Get(token.Class) == nil {
			continue // deleted range, e.g. an HTML tag
		}
		pretoks = append(pretoks, t)
	}

	natures := make([]nature, len(pretoks))
	treats := make([]classTreat, len(pretoks))
	for i, t := range pretoks {
		natures[i] = natureOf(t)
		if natures[i] == natClass {
			treats[i] = classTreatOf(res, t)
		}
	}

	begins := make([]bool, len(pretoks))
	for i := range pretoks {
		p := prevVisible(pretoks, natures, i)
		begins[i] = p < 0 || !wordish(natures[p])
	}

	pieces, err := splitAll(pretoks, natures, treats, begins, opts, split)
	if err != nil {
		return nil, err
	}

	assignCaps(pieces, opts)
	if opts.ContextDependentSingleLetterCap {
		promoteAllCaps(pieces)
	}
	markElision(pieces)
	assignBoundaries(pieces, opts)

	out := make([]token.Token, 0, len(pieces))
	for _, p := range pieces {
		if p.elided {
			continue
		}
		out = append(out, p.tok)
	}
	if opts.InlineFixes && opts.InlineFixUseTags {
		out = insertTags(out)
	}
	return out, nil
}

func natureOf(t token.Token) nature {
	if t.Factors.Get(token.Class) != nil {
		return natClass
	}
	u := t.Under()
	if u == "" {
		return natEmpty
	}
	r := []rune(u)[0]
	if r <= ' ' {
		return natSpace
	}
	des := charclass.MajorDesignation(r)
	if charclass.IsNumeral(r) {
		des = 'N'
	}
	if charclass.IsCombiner(r) {
		des = charclass.CombinerTypicalMajorDesignation(r)
	}
	if des == 'L' || des == 'N' {
		if charclass.IsContinuousScript(r) {
			return natCS
		}
		return natWord
	}
	return natPunct
}

func classTreatOf(res pretok.Result, t token.Token) classTreat {
	idx := t.Factors.Get(token.Index)
	if idx == nil {
		return treatWord
	}
	decodeAs := res.DecodeAs[token.IndexOf(idx)]
	if decodeAs == "" {
		return treatWord
	}
	r := []rune(decodeAs)[0]
	switch {
	case charclass.IsContinuousScript(r):
		return treatCS
	case charclass.IsBicameral(r):
		return treatWord
	case unicode.IsLetter(r) || unicode.IsNumber(r):
		return treatWordNoCase
	default:
		return treatPunct
	}
}

func wordish(n nature) bool {
	return n == natWord || n == natCS || n == natClass
}

// prevVisible returns the index of the neighbour used for boundary checks:
// inline-fix source runs are invisible to tokens outside them.
func prevVisible(toks []token.Token, natures []nature, i int) int {
	self := toks[i].Factors.Get(token.InlineFix)
	for j := i - 1; j >= 0; j-- {
		if self != token.InlineFixWhat && toks[j].Factors.Get(token.InlineFix) == token.InlineFixWhat {
			continue
		}
		return j
	}
	return -1
}

func splitAll(pretoks []token.Token, natures []nature, treats []classTreat, begins []bool, opts Options, split Splitter) ([]piece, error) {
	var pieces []piece
	for i, t := range pretoks {
		nat := natures[i]
		if nat != natWord && nat != natCS {
			pieces = append(pieces, piece{tok: t, nat: nat, treat: treats[i], first: true, last: true})
			continue
		}
		subs, err := splitWord(t, nat, begins[i], opts, split)
		if err != nil {
			return nil, err
		}
		for k, st := range subs {
			pieces = append(pieces, piece{
				tok:   st,
				nat:   nat,
				first: k == 0,
				last:  k == len(subs)-1,
			})
		}
	}
	return pieces, nil
}

func splitWord(t token.Token, nat nature, begin bool, opts Options, split Splitter) ([]token.Token, error) {
	if split == nil {
		return []token.Token{t}, nil
	}
	under := t.Under()
	upper := strings.Map(unicode.ToUpper, under)

	var cuts []int
	var err error
	if opts.DistinguishInitialAndInternalPieces && nat == natWord && begin {
		cuts, err = split.Split(wire.WordBegPrefix+upper, true)
	} else {
		cuts, err = split.Split(upper, false)
	}
	if err != nil {
		return nil, err
	}
	if len(cuts) == 0 {
		return []token.Token{t}, nil
	}

	underOff := runeStarts(under)
	upperRuneAt := map[int]int{}
	for ri, off := range runeStarts(upper) {
		upperRuneAt[off] = ri
	}

	out := make([]token.Token, 0, len(cuts)-1)
	for k := 1; k < len(cuts); k++ {
		lo := underOff[upperRuneAt[cuts[k-1]]]
		var hi int
		if k == len(cuts)-1 {
			hi = len(under)
		} else {
			hi = underOff[upperRuneAt[cuts[k]]]
		}
		out = append(out, t.Narrow(lo, hi-lo))
	}
	return out, nil
}

// runeStarts returns the byte offset of each rune plus the total length.
func runeStarts(s string) []int {
	offs := make([]int, 0, len(s)+1)
	for off := range s {
		offs = append(offs, off)
	}
	offs = append(offs, len(s))
	return offs
}
