package pretok_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/awee-ai/go-segmenter/pretok"
	"github.com/awee-ai/go-segmenter/token"
)

func segments(t *testing.T, line string, opts pretok.Options) []string {
	t.Helper()
	res, err := pretok.Pretokenize(line, nil, opts)
	require.NoError(t, err)
	out := make([]string, 0, len(res.Tokens))
	for _, tok := range res.Tokens {
		out = append(out, tok.Under())
	}
	return out
}

func TestSegmentCounts(t *testing.T) {
	tests := []struct {
		name string
		line string
		want int
	}{
		{
			name: "reserved delimiters",
			line: "-<<<>>>{{{}}}",
			want: 9,
		},
		{
			name: "mixed casing numerals currency",
			line: "1°C! This is a test, iPods cost    $3.14, or ९३ or 二十 at 13¾°C, for camelCase, PascalCase, and NSStrings, plus a longword.",
			want: 70,
		},
		{
			name: "devanagari digits",
			line: "२०१४ से २०१९ तक",
			want: 13,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segs := segments(t, tt.line, pretok.Options{})
			assert.Len(t, segs, tt.want, "segments: %q", segs)
			// The original ranges tile the line exactly.
			assert.Equal(t, tt.line, strings.Join(segs, ""))
		})
	}
}

func TestSegmentDetails(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"-<<<>>>{{{}}}", []string{"-", "<", "<", "<", ">>>", "{", "{", "{", "}}}"}},
		{"camelCase", []string{"camel", "Case"}},
		{"PascalCase", []string{"Pascal", "Case"}},
		{"NSStrings", []string{"NS", "Strings"}},
		{"iPods", []string{"i", "Pods"}},
		{"don't", []string{"don't"}},
		{"e-mail", []string{"e-mail"}},
		{"3.14", []string{"3", ".", "1", "4"}},
		{"नमस्ते", []string{"नमस्ते"}},
		{"२०१९", []string{"२", "०", "१", "९"}},
		{"二十", []string{"二", "十"}},
		{"a b", []string{"a", " ", "b"}},
		{"a  b", []string{"a", " ", " ", "b"}},
		{"Hello!", []string{"Hello", "!"}},
		{"你好abc", []string{"你好", "abc"}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Equal(t, tt.want, segments(t, tt.line, pretok.Options{}))
		})
	}
}

func TestSplitHan(t *testing.T) {
	assert.Equal(t, []string{"你好"}, segments(t, "你好", pretok.Options{}))
	assert.Equal(t, []string{"你", "好"}, segments(t, "你好", pretok.Options{SplitHan: true}))
}

func TestWordBegMarkerRewrite(t *testing.T) {
	res, err := pretok.Pretokenize("▁▁▁", nil, pretok.Options{})
	require.NoError(t, err)
	require.Len(t, res.Tokens, 1)
	assert.Equal(t, "___", res.Tokens[0].Under())
	// The original range still covers the U+2581 run.
	off, length := res.Tokens[0].Orig()
	assert.Equal(t, 0, off)
	assert.Equal(t, 9, length)
}

func TestOverlappingSpansFail(t *testing.T) {
	spans := []pretok.Span{
		{Start: 0, Len: 5, EncodeAsIf: strPtr("")},
		{Start: 3, Len: 4, EncodeAsIf: strPtr("")},
	}
	_, err := pretok.Pretokenize("abcdefghij", spans, pretok.Options{})
	assert.ErrorIs(t, err, pretok.ErrInvalidAnnotation)
}

func TestClassSpanNeedsDecodeAs(t *testing.T) {
	spans := []pretok.Span{{Start: 0, Len: 3, Class: pretok.ClassPhraseFix}}
	_, err := pretok.Pretokenize("abc", spans, pretok.Options{})
	assert.ErrorIs(t, err, pretok.ErrInvalidAnnotation)
}

func TestPhraseFixSpan(t *testing.T) {
	line := "send tax now"
	spans := []pretok.Span{{Start: 5, Len: 3, Class: pretok.ClassPhraseFix, DecodeAs: "money"}}
	res, err := pretok.Pretokenize(line, spans, pretok.Options{})
	require.NoError(t, err)

	var classTok *token.Token
	for i := range res.Tokens {
		if res.Tokens[i].Factors.Get(token.Class) != nil {
			classTok = &res.Tokens[i]
		}
	}
	require.NotNil(t, classTok)
	assert.Empty(t, classTok.Under())
	assert.Equal(t, "tax", classTok.OrigText())

	idx := classTok.Factors.Get(token.Index)
	require.NotNil(t, idx)
	assert.Equal(t, "money", res.DecodeAs[token.IndexOf(idx)])
	assert.Equal(t, pretok.ClassPhraseFix, res.ClassKinds[token.IndexOf(idx)])
}

func TestPhraseFixIndexDeterminism(t *testing.T) {
	line := "send tax now"
	spans := []pretok.Span{{Start: 5, Len: 3, Class: pretok.ClassPhraseFix, DecodeAs: "money"}}
	a, err := pretok.Pretokenize(line, spans, pretok.Options{})
	require.NoError(t, err)
	b, err := pretok.Pretokenize("pay tax today", []pretok.Span{{Start: 4, Len: 3, Class: pretok.ClassPhraseFix, DecodeAs: "money"}}, pretok.Options{})
	require.NoError(t, err)

	// The same decode-as string seeds the same index on both sides.
	aIdx := soleIndex(t, a)
	bIdx := soleIndex(t, b)
	assert.Equal(t, aIdx, bIdx)
}

func soleIndex(t *testing.T, res pretok.Result) int {
	t.Helper()
	for idx := range res.DecodeAs {
		return idx
	}
	t.Fatal("no class index allocated")
	return -1
}

func TestDeletionSpan(t *testing.T) {
	line := "a<b>c"
	spans := []pretok.Span{{Start: 1, Len: 3, EncodeAsIf: strPtr("")}}
	res, err := pretok.Pretokenize(line, spans, pretok.Options{})
	require.NoError(t, err)

	var unders []string
	for _, tok := range res.Tokens {
		unders = append(unders, tok.Under())
	}
	assert.Equal(t, []string{"a", "", "c"}, unders)
}

func TestEncodeAsIf(t *testing.T) {
	line := "No. 5"
	spans := []pretok.Span{{Start: 0, Len: 3, EncodeAsIf: strPtr("Number")}}
	res, err := pretok.Pretokenize(line, spans, pretok.Options{})
	require.NoError(t, err)

	assert.Equal(t, "Number", res.Tokens[0].Under())
	assert.Equal(t, "No.", res.Tokens[0].OrigText())
}

func TestInlineFixPair(t *testing.T) {
	line := "to Berlin now"
	spans := []pretok.Span{{Start: 3, Len: 6, Class: pretok.ClassPhraseFix, DecodeAs: "Munich"}}
	res, err := pretok.Pretokenize(line, spans, pretok.Options{InlineFixes: true})
	require.NoError(t, err)

	var what, with []string
	for _, tok := range res.Tokens {
		switch tok.Factors.Get(token.InlineFix) {
		case token.InlineFixWhat:
			what = append(what, tok.Under())
		case token.InlineFixWith:
			with = append(with, tok.Under())
		}
	}
	assert.Equal(t, []string{"Berlin"}, what)
	assert.Equal(t, []string{"Munich"}, with)
}

func strPtr(s string) *string { return &s }
