package train_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/awee-ai/go-segmenter/model"
	"github.com/awee-ai/go-segmenter/train"
	"github.com/awee-ai/go-segmenter/wire"
)

var corpus = []string{
	"This is a test text for this module.",
	"I think it is not very complex. I think.",
	"This is mostly for testing that the thing actually runs, and for manual inspection of the generated vocab file.",
}

func trainOpts() model.Options {
	opts := model.Defaults()
	opts.VocabSize = 200
	opts.MinCharCount = 2
	opts.SerializeIndicesAndUnrepresentables = true
	return opts
}

func TestTrainBuildsModel(t *testing.T) {
	m, err := train.Train(context.Background(), corpus, trainOpts(), zap.NewNop())
	require.NoError(t, err)

	assert.NotEmpty(t, m.OracleBlob)
	assert.NotEmpty(t, m.KnownLemmas)
	assert.NotEmpty(t, m.Shortlist)
	assert.NotEmpty(t, m.FactorSpec)

	known := m.KnownSet()
	assert.True(t, known["THIS"], "corpus word lemmas are known")
	assert.True(t, known["."], "frequent punctuation is known")

	// The hard-coded class lemmas are injected.
	for _, cls := range []string{
		wire.ClassLemmaWord, wire.ClassLemmaWordNoCase,
		wire.ClassLemmaCS, wire.ClassLemmaPunct,
	} {
		assert.Contains(t, m.LemmaFactorTypes, cls)
	}
	assert.Equal(t, []string{"c", "class", "wb"}, m.LemmaFactorTypes[wire.ClassLemmaWord])
	assert.Equal(t, []string{"cb", "class"}, m.LemmaFactorTypes[wire.ClassLemmaCS])
	assert.Equal(t, []string{"class", "gl", "gr"}, m.LemmaFactorTypes[wire.ClassLemmaPunct])

	// Digit-serialized mode registers the unknown-character lemmas.
	assert.Contains(t, m.LemmaFactorTypes, "{unk,c,wb}")
	assert.Contains(t, m.LemmaFactorTypes, "{unk,gl,gr}")
	assert.Contains(t, m.LemmaFactorTypes, "{unk,wb}")
	assert.Contains(t, m.LemmaFactorTypes, "{unk,cb}")
}

func TestTrainFactorModeKeepsIndexOnClassLemmas(t *testing.T) {
	opts := trainOpts()
	opts.SerializeIndicesAndUnrepresentables = false
	m, err := train.Train(context.Background(), corpus, opts, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "class", "index", "wb"}, m.LemmaFactorTypes[wire.ClassLemmaWord])
	assert.NotContains(t, m.LemmaFactorTypes, "{unk,c,wb}")
}

func TestFactorSetUniqueness(t *testing.T) {
	// P3: every lemma carries one factor-type tuple across the whole corpus.
	m, err := train.Train(context.Background(), corpus, trainOpts(), nil)
	require.NoError(t, err)
	for lemma, types := range m.LemmaFactorTypes {
		assert.NotEmpty(t, lemma)
		for i := 1; i < len(types); i++ {
			assert.Less(t, types[i-1], types[i], "types of %q are sorted", lemma)
		}
	}
}

func TestMinCharCountTrims(t *testing.T) {
	opts := trainOpts()
	opts.MinCharCount = 1000
	m, err := train.Train(context.Background(), corpus, opts, nil)
	require.NoError(t, err)
	for lemma := range m.LemmaFactorTypes {
		if len([]rune(lemma)) == 1 {
			t.Fatalf("single-code-point lemma %q survived an impossible min char count", lemma)
		}
	}
}

func TestShortlistMatchesFactorSpec(t *testing.T) {
	// P4: the shortlist equals the lemma section of the factor spec.
	m, err := train.Train(context.Background(), corpus, trainOpts(), nil)
	require.NoError(t, err)

	parsed, err := model.ParseFactorSpec(m.FactorSpec)
	require.NoError(t, err)
	assert.Equal(t, m.Shortlist, parsed.Lemmas)
}

func TestTrainWithoutSentencePiece(t *testing.T) {
	opts := trainOpts()
	opts.UseSentencePiece = false
	m, err := train.Train(context.Background(), corpus, opts, nil)
	require.NoError(t, err)
	assert.Empty(t, m.OracleBlob)
	assert.True(t, m.KnownSet()["THIS"])
}

func TestTrainingSentenceSize(t *testing.T) {
	opts := trainOpts()
	opts.TrainingSentenceSize = 1
	m, err := train.Train(context.Background(), corpus, opts, nil)
	require.NoError(t, err)
	// Only the first line was seen, so "COMPLEX" from line two is unknown.
	assert.False(t, m.KnownSet()["COMPLEX"])
}

func TestTrainCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := train.Train(ctx, corpus, trainOpts(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
