package model

import (
	"fmt"
	"strings"

	"github.com/awee-ai/go-segmenter/token"
)

// GenerateFactorSpec emits the declarative vocabulary spec: the factors
// block, the lemmas block in shortlist order, and the factor-distribution
// block. shortlist entries are escaped lemmas; traits maps each entry to the
// factor-type prefixes it takes (reserved tokens have none).
func GenerateFactorSpec(shortlist []string, traits map[string][]string) string {
	used := map[string]bool{}
	for _, ts := range traits {
		for _, t := range ts {
			used[t] = true
		}
	}
	var prefixes []string
	for _, ft := range token.Types() {
		if used[ft.Prefix()] {
			prefixes = append(prefixes, ft.Prefix())
		}
	}

	var b strings.Builder
	b.WriteString("# factored segmenter vocabulary\n")
	b.WriteString("\n# factors\n")
	b.WriteString("_lemma\n")
	for _, p := range prefixes {
		ft, _ := token.TypeByPrefix(p)
		fmt.Fprintf(&b, "_%s\n", p)
		for _, v := range ft.Values() {
			fmt.Fprintf(&b, "%s : _%s\n", v.String(), p)
		}
		fmt.Fprintf(&b, "_has_%s\n", p)
	}

	b.WriteString("\n# lemmas\n")
	for _, lemma := range shortlist {
		ts := traits[lemma]
		if len(ts) == 0 {
			fmt.Fprintf(&b, "%s : _lemma\n", lemma)
			continue
		}
		fmt.Fprintf(&b, "%s : _lemma", lemma)
		for _, t := range ts {
			fmt.Fprintf(&b, " _has_%s", t)
		}
		b.WriteByte('\n')
	}

	b.WriteString("\n# factor distributions\n")
	for _, p := range prefixes {
		fmt.Fprintf(&b, "_%s <-> _has_%s\n", p, p)
	}
	return b.String()
}

// Spec is a parsed factor spec file.
type Spec struct {
	Types         []string
	Values        map[string][]string
	Lemmas        []string
	LemmaTraits   map[string][]string
	Distributions [][2]string
}

// ParseFactorSpec reads the grammar back: NAME declares a type, VALUE : TYPE
// declares a member, TYPE <-> HAS_TYPE declares a distribution. Lemma lines
// are VALUE : _lemma [_has_X ...]. Comments and blank lines are ignored.
func ParseFactorSpec(s string) (Spec, error) {
	spec := Spec{
		Values:      map[string][]string{},
		LemmaTraits: map[string][]string{},
	}
	declared := map[string]bool{}
	for ln, raw := range strings.Split(s, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if parts := strings.Split(line, "<->"); len(parts) == 2 {
			spec.Distributions = append(spec.Distributions,
				[2]string{strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])})
			continue
		}
		if name, rest, ok := strings.Cut(line, " : "); ok {
			fields := strings.Fields(rest)
			if len(fields) == 0 {
				return Spec{}, fmt.Errorf("factor spec line %d: empty type list", ln+1)
			}
			if fields[0] == "_lemma" {
				spec.Lemmas = append(spec.Lemmas, name)
				for _, f := range fields[1:] {
					spec.LemmaTraits[name] = append(spec.LemmaTraits[name], strings.TrimPrefix(f, "_has_"))
				}
				continue
			}
			spec.Values[fields[0]] = append(spec.Values[fields[0]], name)
			continue
		}
		if declared[line] {
			return Spec{}, fmt.Errorf("factor spec line %d: duplicate type %q", ln+1, line)
		}
		declared[line] = true
		spec.Types = append(spec.Types, line)
	}
	return spec, nil
}
