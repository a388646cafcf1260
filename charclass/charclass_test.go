package charclass_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/awee-ai/go-segmenter/charclass"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		r      rune
		script charclass.Script
	}{
		{'a', charclass.Latin},
		{'Z', charclass.Latin},
		{'न', charclass.Devanagari},
		{'९', charclass.Devanagari},
		{'你', charclass.Han},
		{'ひ', charclass.Hiragana},
		{'カ', charclass.Katakana},
		{'ท', charclass.Thai},
		{'.', charclass.Common},
		{' ', charclass.Common},
		{'1', charclass.Common},
	}
	for _, tt := range tests {
		t.Run(string(tt.r), func(t *testing.T) {
			assert.Equal(t, tt.script, charclass.Lookup(tt.r))
		})
	}
}

func TestLookupSurrogatesAndUnassigned(t *testing.T) {
	assert.Equal(t, charclass.None, charclass.Lookup(0xD800))
	assert.Equal(t, charclass.None, charclass.Lookup(0xDFFF))
	assert.Equal(t, charclass.None, charclass.Lookup(0x10FFFE))
}

func TestMajorDesignation(t *testing.T) {
	tests := []struct {
		r   rune
		des byte
	}{
		{'a', 'L'},
		{'न', 'L'},
		{'1', 'N'},
		{'९', 'N'},
		{'¾', 'N'},
		{'.', 'P'},
		{'$', 'S'},
		{'°', 'S'},
		{' ', 'Z'},
		{'\t', 'C'},
		{'\u0301', 'M'},
	}
	for _, tt := range tests {
		assert.Equal(t, string(tt.des), string(charclass.MajorDesignation(tt.r)), "rune %q", tt.r)
	}
}

func TestIsNumeral(t *testing.T) {
	for _, r := range "0123456789९३¾" {
		assert.True(t, charclass.IsNumeral(r), "rune %q", r)
	}
	// CJK numeric letters are category L but count as numerals.
	for _, r := range "〇○零一二三四五六七八九十百千万萬億兆" {
		assert.True(t, charclass.IsNumeral(r), "rune %q", r)
	}
	for _, r := range "ab.!你" {
		assert.False(t, charclass.IsNumeral(r), "rune %q", r)
	}
}

func TestBicameral(t *testing.T) {
	assert.True(t, charclass.IsBicameral('a'))
	assert.True(t, charclass.IsBicameral('Ä'))
	assert.False(t, charclass.IsBicameral('न'))
	assert.False(t, charclass.IsBicameral('你'))
	assert.False(t, charclass.IsBicameral('ß'))

	assert.True(t, charclass.HasAndIsUpper('A'))
	assert.False(t, charclass.HasAndIsUpper('a'))
	assert.True(t, charclass.HasAndIsLower('a'))
	assert.False(t, charclass.HasAndIsLower('न'))
}

func TestCombiner(t *testing.T) {
	assert.True(t, charclass.IsCombiner('\u0301'))
	assert.True(t, charclass.IsCombiner('\u093e'))
	assert.False(t, charclass.IsCombiner('a'))

	assert.Equal(t, byte('P'), charclass.CombinerTypicalMajorDesignation('\ufe0f'))
	assert.Equal(t, byte('P'), charclass.CombinerTypicalMajorDesignation('\ufe0e'))
	assert.Equal(t, byte('L'), charclass.CombinerTypicalMajorDesignation('\u0301'))
}

func TestContinuousScript(t *testing.T) {
	for _, r := range "你ひカท" {
		assert.True(t, charclass.IsContinuousScript(r), "rune %q", r)
	}
	for _, r := range "aन1." {
		assert.False(t, charclass.IsContinuousScript(r), "rune %q", r)
	}
	assert.True(t, charclass.IsHan('你'))
	assert.False(t, charclass.IsHan('ひ'))
}
