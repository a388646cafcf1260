package decoder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awee-ai/go-segmenter/align"
	"github.com/awee-ai/go-segmenter/decoder"
	"github.com/awee-ai/go-segmenter/pretok"
)

func decode(t *testing.T, toks []string, pkg *decoder.Package, a *align.Alignment, opts decoder.Options) decoder.Result {
	t.Helper()
	res, err := decoder.Decode(toks, pkg, a, opts)
	require.NoError(t, err)
	return res
}

func TestSurfaceReconstruction(t *testing.T) {
	tests := []struct {
		name string
		toks []string
		want string
	}{
		{
			name: "words and glue",
			toks: []string{"HELLO|ci|wb", "WORLD|cn|wb", "!|gl+|gr-"},
			want: "Hello world!",
		},
		{
			name: "word internal pieces",
			toks: []string{"CAMEL|cn|wb", "CASE|ci|wbn"},
			want: "camelCase",
		},
		{
			name: "all caps",
			toks: []string{"NASA|ca|wb"},
			want: "NASA",
		},
		{
			name: "single letter cap",
			toks: []string{"I|scu|wb", "A|scl|wb"},
			want: "I a",
		},
		{
			name: "continuous script",
			toks: []string{"OR|cn|wb", "二|cb", "十|cbn", "AT|cn|wb"},
			want: "or 二十 at",
		},
		{
			name: "concrete space",
			toks: []string{"A|cn|wb", `\x20|gl-|gr+`, "B|cn|wb"},
			want: "a  b",
		},
		{
			name: "uncased script",
			toks: []string{"नमस्ते|wb"},
			want: "नमस्ते",
		},
		{
			name: "punct glued both sides",
			toks: []string{"3|wb", ".|gl+|gr+", "1|wb", "4|wbn"},
			want: "3.14",
		},
		{
			name: "empty",
			toks: nil,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := decode(t, tt.toks, nil, nil, decoder.Options{})
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestSentenceAnnotationsStripped(t *testing.T) {
	res := decode(t, []string{"<SLA:domain=news>", "HI|cn|wb"}, nil, nil, decoder.Options{})
	assert.Equal(t, "hi", res.Text)
}

func TestRightWordGlueSpacing(t *testing.T) {
	res := decode(t, []string{"CAMEL|cn|wb|wen", "CASE|ci|wbn|we"}, nil, nil, decoder.Options{})
	assert.Equal(t, "camelCase", res.Text)
}

func TestDecodeAsTable(t *testing.T) {
	pkg := &decoder.Package{
		DecodeAs:   map[int]string{7: "First Class"},
		ClassKinds: map[int]pretok.ClassKind{7: pretok.ClassPhraseFix},
	}
	res := decode(t, []string{"A|cn|wb", "{word}|cn|classphrasefix|index007|wb", "SEAT|cn|wb"},
		pkg, nil, decoder.Options{})
	assert.Equal(t, "a First Class seat", res.Text)
}

func TestDigitDeserialization(t *testing.T) {
	pkg := &decoder.Package{
		DecodeAs:   map[int]string{12: "Economy"},
		ClassKinds: map[int]pretok.ClassKind{12: pretok.ClassPhraseFix},
	}
	res := decode(t, []string{
		"{word}|cn|classphrasefix|wb", "<1>", "<2>", "<#>",
	}, pkg, nil, decoder.Options{SerializeIndicesAndUnrepresentables: true})
	assert.Equal(t, "Economy", res.Text)
}

func TestUnrepresentableDeserialization(t *testing.T) {
	// '!' is 33; it reattaches with its glue factors.
	res := decode(t, []string{
		"HI|cn|wb", "{unk,gl,gr}|gl+|gr-", "<3>", "<3>", "<#>",
	}, nil, nil, decoder.Options{SerializeIndicesAndUnrepresentables: true})
	assert.Equal(t, "hi!", res.Text)

	// An upper-case letter comes back through its cap factor: 'X' is 88.
	res = decode(t, []string{
		"{unk,c,wb}|ci|wb", "<8>", "<8>", "<#>",
	}, nil, nil, decoder.Options{SerializeIndicesAndUnrepresentables: true})
	assert.Equal(t, "X", res.Text)
}

func TestMalformedDigitRunsAreDroppedSilently(t *testing.T) {
	tests := []struct {
		name string
		toks []string
		want string
	}{
		{
			name: "missing terminator",
			toks: []string{"HI|cn|wb", "{unk,gl,gr}|gl+|gr-", "<3>", "<3>"},
			want: "hi",
		},
		{
			name: "no digits",
			toks: []string{"HI|cn|wb", "{unk,gl,gr}|gl+|gr-", "<#>"},
			want: "hi",
		},
		{
			name: "stray digits",
			toks: []string{"HI|cn|wb", "<7>", "<#>", "THERE|cn|wb"},
			want: "hi there",
		},
		{
			name: "scalar out of range",
			toks: []string{"HI|cn|wb", "{unk,gl,gr}|gl+|gr-", "<9>", "<9>", "<9>", "<9>", "<9>", "<9>", "<9>", "<9>", "<#>"},
			want: "hi",
		},
		{
			name: "invalid boundary tuple",
			toks: []string{"HI|cn|wb", "{unk,gl,wb}|gl+|wb", "<3>", "<3>", "<#>"},
			want: "hi",
		},
		{
			name: "index too large",
			toks: []string{"{word}|cn|classphrasefix|wb", "<9>", "<9>", "<#>"},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := decode(t, tt.toks, nil, nil, decoder.Options{SerializeIndicesAndUnrepresentables: true})
			assert.Equal(t, tt.want, res.Text)
		})
	}
}

func TestMalformedWireIsRejected(t *testing.T) {
	_, err := decoder.Decode([]string{"HELLO|zz"}, nil, nil, decoder.Options{})
	assert.Error(t, err)
}

func TestMissingPhraseFixInsertion(t *testing.T) {
	pkg := &decoder.Package{
		SourceText:     "send tax now",
		SourceSegments: []decoder.Segment{{Off: 0, Len: 4}, {Off: 5, Len: 3}, {Off: 9, Len: 3}},
		DecodeAs:       map[int]string{3: "money"},
		ClassKinds:     map[int]pretok.ClassKind{3: pretok.ClassPhraseFix},
		ClassPositions: map[int]int{3: 1},
	}
	a := &align.Alignment{Links: []align.Link{
		{Source: 0, Target: 0, Confidence: 1},
		{Source: 1, Target: 1, Confidence: 1},
		{Source: 2, Target: 1, Confidence: 0.5},
	}}

	// The decoded side lost the class token; it is re-inserted at the
	// alignment-suggested position.
	res := decode(t, []string{"SEND|cn|wb", "NOW|cn|wb"}, pkg, a, decoder.Options{})
	assert.Equal(t, "send money now", res.Text)
}

func TestInlineFixDecoding(t *testing.T) {
	// Factor-carried inline fix: the WHAT run is dropped, the WITH run stays.
	res := decode(t, []string{"TO|cn|wb", "BERLIN|ci|wb|iw", "MUNICH|ci|wb|it", "NOW|cn|wb"},
		nil, nil, decoder.Options{})
	assert.Equal(t, "to Munich now", res.Text)

	// Tag-delimited inline fix.
	res = decode(t, []string{"TO|cn|wb", "<IOPEN>", "BERLIN|ci|wb", "<IDELIM>", "MUNICH|ci|wb", "<ICLOSE>", "NOW|cn|wb"},
		nil, nil, decoder.Options{})
	assert.Equal(t, "to Munich now", res.Text)
}

func TestAlignmentProjection(t *testing.T) {
	pkg := &decoder.Package{
		SourceText:     "hi there",
		SourceSegments: []decoder.Segment{{Off: 0, Len: 2}, {Off: 3, Len: 5}},
	}
	a := &align.Alignment{Links: []align.Link{
		{Source: 0, Target: 1, Confidence: 1},
		{Source: 1, Target: 2, Confidence: 1},
	}}

	res := decode(t, []string{"<SLA:domain=news>", "HI|cn|wb", "THERE|cn|wb"},
		pkg, a, decoder.Options{})
	assert.Equal(t, "hi there", res.Text)

	// The SLA head was dropped, so targets shifted down by one and the
	// source ranges follow the surviving tokens.
	require.Len(t, res.Segments, 2)
	assert.Equal(t, []decoder.Segment{{Off: 0, Len: 2}}, res.Segments[0].SourceRanges)
	assert.Equal(t, []decoder.Segment{{Off: 3, Len: 5}}, res.Segments[1].SourceRanges)
	assert.Equal(t, 0, res.Segments[0].Off)
	assert.Equal(t, 2, res.Segments[0].Len)
	assert.Equal(t, 3, res.Segments[1].Off)
}
