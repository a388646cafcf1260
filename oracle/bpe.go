package oracle

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Model is the built-in piece model: merge-rank BPE in the SentencePiece
// style. Splitting applies the learned merges best-rank first until no
// adjacent pair merges; characters the model has never seen stay single
// pieces, which realises the per-code-point OOV contract.
type Model struct {
	pieces   []string
	pieceSet map[string]bool
	merges   map[mergeKey]int
}

type mergeKey struct {
	left, right string
}

// Pieces returns the piece inventory in id order.
func (m *Model) Pieces() []string { return m.pieces }

// Has reports whether p is in the piece inventory.
func (m *Model) Has(p string) bool { return m.pieceSet[p] }

// Split implements Oracle.
func (m *Model) Split(word string) ([]int, error) {
	segs := m.SplitPieces(word)
	if len(segs) <= 1 {
		return nil, nil
	}
	cuts := make([]int, 0, len(segs)+1)
	off := 0
	cuts = append(cuts, 0)
	for _, s := range segs {
		off += len(s)
		cuts = append(cuts, off)
	}
	return cuts, nil
}

// SplitPieces returns the piece strings of word in order.
func (m *Model) SplitPieces(word string) []string {
	var segs []string
	for _, r := range word {
		segs = append(segs, string(r))
	}
	if len(segs) <= 1 {
		return segs
	}
	for {
		best := -1
		bestRank := int(^uint(0) >> 1)
		for i := 0; i+1 < len(segs); i++ {
			if rank, ok := m.merges[mergeKey{segs[i], segs[i+1]}]; ok && rank < bestRank {
				best, bestRank = i, rank
			}
		}
		if best < 0 {
			return segs
		}
		merged := segs[best] + segs[best+1]
		segs = append(segs[:best+1], segs[best+2:]...)
		segs[best] = merged
	}
}

type blobDoc struct {
	Type   string      `yaml:"type"`
	Pieces []string    `yaml:"pieces"`
	Merges [][2]string `yaml:"merges"`
}

// MarshalBlob serializes the model into the byte blob embedded in the
// segmenter model file.
func (m *Model) MarshalBlob() ([]byte, error) {
	doc := blobDoc{Type: "bpe", Pieces: m.pieces}
	ordered := make([][2]string, len(m.merges))
	for k, rank := range m.merges {
		ordered[rank] = [2]string{k.left, k.right}
	}
	doc.Merges = ordered
	return yaml.Marshal(doc)
}

// LoadBlob reconstructs a model from its serialized blob.
func LoadBlob(b []byte) (*Model, error) {
	var doc blobDoc
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("oracle blob: %w", err)
	}
	if doc.Type != "bpe" {
		return nil, fmt.Errorf("oracle blob: unsupported type %q", doc.Type)
	}
	m := &Model{
		pieces:   doc.Pieces,
		pieceSet: make(map[string]bool, len(doc.Pieces)),
		merges:   make(map[mergeKey]int, len(doc.Merges)),
	}
	for _, p := range doc.Pieces {
		m.pieceSet[p] = true
	}
	for rank, pair := range doc.Merges {
		m.merges[mergeKey{pair[0], pair[1]}] = rank
	}
	return m, nil
}
