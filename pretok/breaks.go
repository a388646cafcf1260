package pretok

import (
	"sort"

	"github.com/dlclark/regexp2"

	"github.com/awee-ai/go-segmenter/charclass"
)

// casingPatStr marks split points inside mixed-case words: a lower-to-upper
// transition (camelCase), and an upper letter that opens a new title-cased
// word after an upper run (NSStrings -> NS Strings). ß has no upper-case
// form and does not count as a lower-case letter here, so an all-caps word
// containing it (HELLOß) stays whole.
const casingPatStr = `(?<=\p{Ll})(?<!ß)\p{Lu}|(?<=\p{Lu})\p{Lu}(?=(?!ß)\p{Ll})`

var casingRegexp = regexp2.MustCompile(casingPatStr, regexp2.None)

type charInfo struct {
	r      rune
	off    int
	des    byte
	script charclass.Script
}

// analyze computes the adjusted (designation, script) pair per character:
// numeric letters are forced to N, in-word punctuation is absorbed into its
// letter or numeral neighbours, and combining marks inherit from the left.
func analyze(s string) []charInfo {
	infos := make([]charInfo, 0, len(s))
	for off, r := range s {
		des := charclass.MajorDesignation(r)
		if charclass.IsNumeral(r) {
			des = 'N'
		}
		infos = append(infos, charInfo{r: r, off: off, des: des, script: charclass.Lookup(r)})
	}

	for i := 1; i < len(infos)-1; i++ {
		switch infos[i].r {
		case '\'', '\u2019', '-', '\u00ad':
			if infos[i-1].des == 'L' && infos[i+1].des == 'L' {
				infos[i].des = 'L'
			}
		case '.', ',', '\u2009':
			if infos[i-1].des == 'N' && infos[i+1].des == 'N' {
				infos[i].des = 'N'
			}
		}
	}

	for i := range infos {
		if !charclass.IsCombiner(infos[i].r) {
			continue
		}
		if i > 0 {
			infos[i].des = infos[i-1].des
			infos[i].script = infos[i-1].script
		} else {
			infos[i].des = charclass.CombinerTypicalMajorDesignation(infos[i].r)
		}
	}
	return infos
}

// computeBreaks returns the byte offsets at which s must be cut.
func computeBreaks(s string, opts Options) []int {
	infos := analyze(s)
	if len(infos) < 2 {
		return nil
	}

	breakSet := make(map[int]bool)
	for i := 1; i < len(infos); i++ {
		a, b := infos[i-1], infos[i]
		if charclass.IsCombiner(b.r) {
			continue
		}
		switch {
		case a.des != b.des:
			breakSet[b.off] = true
		case scriptChange(a.script, b.script):
			breakSet[b.off] = true
		case charclass.IsNumeral(a.r) || charclass.IsNumeral(b.r):
			breakSet[b.off] = true
		case a.r <= ' ' || b.r <= ' ':
			breakSet[b.off] = true
		case reserved(a.r) || reserved(b.r):
			breakSet[b.off] = true
		case opts.SplitHan && charclass.IsHan(a.r) && charclass.IsHan(b.r):
			breakSet[b.off] = true
		}
	}

	addCasingBreaks(s, infos, breakSet)

	cuts := make([]int, 0, len(breakSet))
	for off := range breakSet {
		cuts = append(cuts, off)
	}
	sort.Ints(cuts)
	return cuts
}

func addCasingBreaks(s string, infos []charInfo, breakSet map[int]bool) {
	m, err := casingRegexp.FindStringMatch(s)
	for err == nil && m != nil {
		// regexp2 match indices count runes, not bytes.
		ri := m.Index
		if ri > 0 && ri < len(infos) {
			breakSet[infos[ri].off] = true
		}
		m, err = casingRegexp.FindNextMatch(m)
	}
}

func scriptChange(a, b charclass.Script) bool {
	if a == b {
		return false
	}
	if a == charclass.Common || b == charclass.Common {
		return false
	}
	if a == charclass.None || b == charclass.None {
		return false
	}
	return true
}

func reserved(r rune) bool {
	return r == '<' || r == '{'
}
