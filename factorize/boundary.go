package factorize

import (
	"github.com/awee-ai/go-segmenter/token"
	"github.com/awee-ai/go-segmenter/wire"
)

// markElision removes the default single space between tokens from the
// stream. Inside a run of consecutive spaces elision alternates, so that any
// number of original spaces survives the round trip: one implied space plus
// literal space tokens for the rest.
func markElision(pieces []piece) {
	for i := range pieces {
		// Only a plain space elides; tabs and other controls survive as
		// concrete tokens so they decode back to themselves.
		if pieces[i].nat != natSpace || pieces[i].tok.Under() != " " {
			continue
		}
		if i == 0 || i == len(pieces)-1 {
			continue
		}
		prev := pieces[i-1]
		if prev.nat == natSpace && prev.elided {
			continue
		}
		pieces[i].elided = true
	}
}

func assignBoundaries(pieces []piece, opts Options) {
	for i := range pieces {
		p := &pieces[i]
		prev := neighbour(pieces, i, -1)
		next := neighbour(pieces, i, +1)

		switch effectiveNature(p) {
		case natWord:
			begin := p.first && (prev == nil || !wordish(prev.nat))
			if p.nat == natClass {
				// Class tokens stand for whole phrases; they take the word
				// begin type in every mode so their lemma keeps one factor
				// set.
				if begin {
					p.tok.Factors.Set(token.WordBegYes)
				} else {
					p.tok.Factors.Set(token.WordBegNot)
				}
			} else {
				switch {
				case begin:
					p.tok.Factors.Set(token.WordBegYes)
				case opts.DistinguishInitialAndInternalPieces:
					p.tok.Factors.Set(token.WordIntYes)
				default:
					p.tok.Factors.Set(token.WordBegNot)
				}
			}
			if opts.RightWordGlue {
				if p.last && (next == nil || !wordish(next.nat)) {
					p.tok.Factors.Set(token.WordEndYes)
				} else {
					p.tok.Factors.Set(token.WordEndNot)
				}
			}

		case natCS:
			if p.first && (prev == nil || !wordish(prev.nat)) {
				p.tok.Factors.Set(token.CSBegYes)
			} else {
				p.tok.Factors.Set(token.CSBegNot)
			}
			if opts.RightWordGlue {
				if p.last && (next == nil || !wordish(next.nat)) {
					p.tok.Factors.Set(token.CSEndYes)
				} else {
					p.tok.Factors.Set(token.CSEndNot)
				}
			}

		case natPunct:
			if prev != nil && prev.nat != natSpace {
				p.tok.Factors.Set(token.GlueLeftYes)
			} else {
				p.tok.Factors.Set(token.GlueLeftNo)
			}
			if next != nil && next.nat != natSpace {
				p.tok.Factors.Set(token.GlueRightYes)
			} else {
				p.tok.Factors.Set(token.GlueRightNo)
			}
		}
	}
}

// effectiveNature folds class tokens onto the nature their decode-as surface
// behaves as; concrete spaces behave as punctuation.
func effectiveNature(p *piece) nature {
	switch p.nat {
	case natClass:
		switch p.treat {
		case treatCS:
			return natCS
		case treatPunct:
			return natPunct
		default:
			return natWord
		}
	case natSpace:
		return natPunct
	default:
		return p.nat
	}
}

// neighbour returns the adjacent piece for boundary checks, skipping
// inline-fix source runs for tokens outside them. Elided spaces still count:
// they are what makes the following word a word beginning.
func neighbour(pieces []piece, i, dir int) *piece {
	self := pieces[i].tok.Factors.Get(token.InlineFix)
	for j := i + dir; j >= 0 && j < len(pieces); j += dir {
		if self != token.InlineFixWhat && pieces[j].tok.Factors.Get(token.InlineFix) == token.InlineFixWhat {
			continue
		}
		return &pieces[j]
	}
	return nil
}

// insertTags wraps inline-fix pairs in explicit delimiter tokens:
// <IOPEN> source ... <IDELIM> target ... <ICLOSE>. The inline-fix factors are
// cleared; the tags carry the structure instead.
func insertTags(toks []token.Token) []token.Token {
	out := make([]token.Token, 0, len(toks)+6)
	i := 0
	for i < len(toks) {
		if toks[i].Factors.Get(token.InlineFix) != token.InlineFixWhat {
			out = append(out, toks[i])
			i++
			continue
		}
		j := i
		for j < len(toks) && toks[j].Factors.Get(token.InlineFix) == token.InlineFixWhat {
			j++
		}
		k := j
		for k < len(toks) && toks[k].Factors.Get(token.InlineFix) == token.InlineFixWith {
			k++
		}
		out = append(out, toks[i].PseudoAt(false, wire.TagOpen))
		for _, t := range toks[i:j] {
			t.Factors.Clear(token.InlineFix)
			out = append(out, t)
		}
		out = append(out, toks[j-1].PseudoAt(true, wire.TagDelim))
		for _, t := range toks[j:k] {
			t.Factors.Clear(token.InlineFix)
			out = append(out, t)
		}
		out = append(out, toks[k-1].PseudoAt(true, wire.TagClose))
		i = k
	}
	return out
}
