package oracle

import (
	"sort"

	"go.uber.org/zap"
)

// TrainerConfig carries the piece-model training parameters. The segmenter
// trainer feeds an already pre-tokenized stream, so no normalization or
// whitespace handling happens here.
type TrainerConfig struct {
	// VocabSize is the target piece inventory size, alphabet included.
	VocabSize int
	// CharacterCoverage keeps only the most frequent characters covering
	// this share of the character mass; 0 means full coverage.
	CharacterCoverage float64
}

// Train learns a merge-rank BPE model from a weighted word list.
func Train(words map[string]int64, cfg TrainerConfig, logger *zap.Logger) (*Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	coverage := cfg.CharacterCoverage
	if coverage <= 0 || coverage > 1 {
		coverage = 1
	}

	type charFreq struct {
		c string
		n int64
	}
	charCounts := map[string]int64{}
	var total int64
	for w, n := range words {
		for _, r := range w {
			charCounts[string(r)] += n
			total += n
		}
	}
	freqs := make([]charFreq, 0, len(charCounts))
	for c, n := range charCounts {
		freqs = append(freqs, charFreq{c, n})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].n != freqs[j].n {
			return freqs[i].n > freqs[j].n
		}
		return freqs[i].c < freqs[j].c
	})

	m := &Model{pieceSet: map[string]bool{}, merges: map[mergeKey]int{}}
	var covered int64
	for _, f := range freqs {
		if coverage < 1 && covered >= int64(float64(total)*coverage) {
			break
		}
		covered += f.n
		m.pieces = append(m.pieces, f.c)
		m.pieceSet[f.c] = true
	}
	logger.Debug("piece alphabet built",
		zap.Int("alphabet", len(m.pieces)),
		zap.Int("distinctChars", len(charCounts)))

	type seq struct {
		segs []string
		n    int64
	}
	seqs := make([]seq, 0, len(words))
	wordList := make([]string, 0, len(words))
	for w := range words {
		wordList = append(wordList, w)
	}
	sort.Strings(wordList)
	for _, w := range wordList {
		var segs []string
		for _, r := range w {
			segs = append(segs, string(r))
		}
		seqs = append(seqs, seq{segs: segs, n: words[w]})
	}

	for len(m.pieces) < cfg.VocabSize {
		pairCounts := map[mergeKey]int64{}
		for _, s := range seqs {
			for i := 0; i+1 < len(s.segs); i++ {
				l, r := s.segs[i], s.segs[i+1]
				if !m.pieceSet[l] || !m.pieceSet[r] {
					continue
				}
				pairCounts[mergeKey{l, r}] += s.n
			}
		}
		var best mergeKey
		var bestN int64
		for k, n := range pairCounts {
			if n > bestN || (n == bestN && less(k, best)) {
				best, bestN = k, n
			}
		}
		if bestN < 2 {
			break
		}
		merged := best.left + best.right
		m.merges[best] = len(m.merges)
		m.pieces = append(m.pieces, merged)
		m.pieceSet[merged] = true
		for si := range seqs {
			seqs[si].segs = applyMerge(seqs[si].segs, best)
		}
	}
	logger.Info("piece model trained",
		zap.Int("pieces", len(m.pieces)),
		zap.Int("merges", len(m.merges)))
	return m, nil
}

func less(a, b mergeKey) bool {
	if a.left != b.left {
		return a.left < b.left
	}
	return a.right < b.right
}

func applyMerge(segs []string, k mergeKey) []string {
	for i := 0; i+1 < len(segs); {
		if segs[i] == k.left && segs[i+1] == k.right {
			segs[i] = k.left + k.right
			segs = append(segs[:i+1], segs[i+2:]...)
		} else {
			i++
		}
	}
	return segs
}
