package factorize

import (
	"github.com/awee-ai/go-segmenter/charclass"
	"github.com/awee-ai/go-segmenter/token"
)

func assignCaps(pieces []piece, opts Options) {
	for i := range pieces {
		p := &pieces[i]
		switch {
		case p.nat == natClass:
			if p.treat == treatWord {
				p.tok.Factors.Set(token.CapNone)
			}
		case p.nat == natWord:
			assignCap(&p.tok, opts)
		}
	}
}

func assignCap(t *token.Token, opts Options) {
	runes := []rune(t.Under())
	needsCase := false
	for _, r := range runes {
		if charclass.IsBicameral(r) {
			needsCase = true
			break
		}
	}
	if !needsCase && !(len(runes) == 1 && runes[0] == 'ß') {
		return
	}

	if len(runes) == 1 && opts.SingleLetterCaseFactors {
		if charclass.HasAndIsUpper(runes[0]) {
			t.Factors.Set(token.SingleCapUpper)
		} else {
			t.Factors.Set(token.SingleCapLower)
		}
		return
	}

	if len(runes) > 1 && allCased(runes) {
		t.Factors.Set(token.CapAll)
		return
	}
	if charclass.HasAndIsUpper(runes[0]) {
		t.Factors.Set(token.CapInitial)
		return
	}
	t.Factors.Set(token.CapNone)
}

// allCased reports whether every case-relevant character is upper case.
// Combining marks and ß do not count against an all-caps word.
func allCased(runes []rune) bool {
	seen := false
	for _, r := range runes {
		if charclass.IsCombiner(r) || r == 'ß' {
			continue
		}
		if !charclass.IsBicameral(r) {
			continue
		}
		if !charclass.HasAndIsUpper(r) {
			return false
		}
		seen = true
	}
	return seen
}

// promoteAllCaps re-scans runs of cased word pieces: inside an all-caps run
// (at least one CAP_ALL, no CAP_NONE) a single-letter CAP_INITIAL piece is
// promoted to CAP_ALL, so that the A in "NAVY A TEAM" carries the same cap
// factor as its all-caps neighbours.
func promoteAllCaps(pieces []piece) {
	i := 0
	for i < len(pieces) {
		if pieces[i].tok.Factors.Get(token.Cap) == nil {
			i++
			continue
		}
		j := i
		hasAll := false
		hasNone := false
		var singles []int
		for j < len(pieces) {
			p := pieces[j]
			if p.nat == natSpace {
				j++
				continue
			}
			c := p.tok.Factors.Get(token.Cap)
			if c == nil {
				break
			}
			switch c {
			case token.CapAll:
				hasAll = true
			case token.CapNone:
				hasNone = true
			case token.CapInitial:
				if len([]rune(p.tok.Under())) == 1 {
					singles = append(singles, j)
				}
			}
			j++
		}
		if hasAll && !hasNone {
			for _, k := range singles {
				pieces[k].tok.Factors.Set(token.CapAll)
			}
		}
		if j == i {
			j++
		}
		i = j
	}
}
