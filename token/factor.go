// Package token holds the factored-token data model: the process-global
// registry of factor types and values, the fixed-shape factor tuple, and the
// dual-slice token that the pipeline stages pass around.
//
// The registry is populated once at package initialisation and is read-only
// afterwards. Factor types and values are singletons; equality is pointer
// identity.
package token

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FactorType is one orthogonal attribute dimension of a token, for example
// capitalization or left glue. The set of types a token may carry is fixed by
// its lemma.
type FactorType struct {
	name   string
	prefix string
	slot   int
	values []*FactorValue
}

// Name returns the long type name, e.g. "cap".
func (t *FactorType) Name() string { return t.name }

// Prefix returns the short serialized prefix, e.g. "c". The canonical wire
// order of factors is alphabetic on this prefix.
func (t *FactorType) Prefix() string { return t.prefix }

// Values returns the finite value set of this type.
func (t *FactorType) Values() []*FactorValue { return t.values }

// FactorValue is one element of a factor type's value set.
type FactorValue struct {
	typ        *FactorType
	serialized string
}

// Type returns the type this value belongs to.
func (v *FactorValue) Type() *FactorType { return v.typ }

// String returns the serialized factor string, e.g. "gl+".
func (v *FactorValue) String() string { return v.serialized }

var (
	allTypes []*FactorType
	byString = map[string]*FactorValue{}
	byPrefix = map[string]*FactorType{}
)

func newType(name, prefix string) *FactorType {
	t := &FactorType{name: name, prefix: prefix}
	allTypes = append(allTypes, t)
	byPrefix[prefix] = t
	return t
}

func (t *FactorType) value(s string) *FactorValue {
	v := &FactorValue{typ: t, serialized: s}
	t.values = append(t.values, v)
	if _, dup := byString[s]; dup {
		panic(fmt.Sprintf("token: duplicate factor value %q", s))
	}
	byString[s] = v
	return v
}

// The factor types. Slot indices are assigned in init after sorting by
// prefix, so the declaration order here does not matter.
var (
	Cap       = newType("cap", "c")
	CSBeg     = newType("csBeg", "cb")
	CSEnd     = newType("csEnd", "ce")
	Class     = newType("class", "class")
	GlueLeft  = newType("glueLeft", "gl")
	GlueRight = newType("glueRight", "gr")
	InlineFix = newType("inlineFix", "i")
	Index     = newType("index", "index")
	SingleCap = newType("singleCap", "sc")
	WordBeg   = newType("wordBeg", "wb")
	WordEnd   = newType("wordEnd", "we")
	WordInt   = newType("wordInt", "wi")
)

// The factor values.
var (
	CapInitial = Cap.value("ci")
	CapAll     = Cap.value("ca")
	CapNone    = Cap.value("cn")

	CSBegYes = CSBeg.value("cb")
	CSBegNot = CSBeg.value("cbn")
	CSEndYes = CSEnd.value("ce")
	CSEndNot = CSEnd.value("cen")

	ClassPhraseFix = Class.value("classphrasefix")

	GlueLeftYes  = GlueLeft.value("gl+")
	GlueLeftNo   = GlueLeft.value("gl-")
	GlueRightYes = GlueRight.value("gr+")
	GlueRightNo  = GlueRight.value("gr-")

	InlineFixWhat = InlineFix.value("iw")
	InlineFixWith = InlineFix.value("it")

	SingleCapUpper = SingleCap.value("scu")
	SingleCapLower = SingleCap.value("scl")

	WordBegYes = WordBeg.value("wb")
	WordBegNot = WordBeg.value("wbn")
	WordEndYes = WordEnd.value("we")
	WordEndNot = WordEnd.value("wen")

	WordIntYes = WordInt.value("wi")
)

// NumIndexValues bounds the index factor; it mirrors the width available for
// factor ids downstream.
const NumIndexValues = 40

var indexValues [NumIndexValues]*FactorValue

func init() {
	for i := 0; i < NumIndexValues; i++ {
		indexValues[i] = Index.value(fmt.Sprintf("index%03d", i))
	}
	// Canonical order: alphabetic on prefix. Slot assignment makes tuple
	// iteration emit factors in wire order with no sorting at serialize time.
	sort.Slice(allTypes, func(i, j int) bool { return allTypes[i].prefix < allTypes[j].prefix })
	for i, t := range allTypes {
		t.slot = i
	}
}

// IndexValue returns the singleton value for index i. It panics when i is
// outside [0, NumIndexValues).
func IndexValue(i int) *FactorValue {
	return indexValues[i]
}

// IndexOf returns the integer an index factor value stands for.
func IndexOf(v *FactorValue) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(v.serialized, "index"))
	return n
}

// ValueOf looks up a serialized factor string. The second result is false for
// unknown strings.
func ValueOf(s string) (*FactorValue, bool) {
	v, ok := byString[s]
	return v, ok
}

// TypeByPrefix looks up a factor type by its serialized prefix.
func TypeByPrefix(p string) (*FactorType, bool) {
	t, ok := byPrefix[p]
	return t, ok
}

// Types returns all factor types in canonical order.
func Types() []*FactorType { return allTypes }

const numTypes = 12

// Tuple is the unordered fixed-shape factor record of a token: one slot per
// type, each unset or bound to one value of that type.
type Tuple struct {
	slots [numTypes]*FactorValue
}

// Set binds v into its type's slot, replacing any previous value.
func (t *Tuple) Set(v *FactorValue) {
	t.slots[v.typ.slot] = v
}

// Get returns the value bound for ft, or nil.
func (t *Tuple) Get(ft *FactorType) *FactorValue {
	return t.slots[ft.slot]
}

// Clear unsets the slot for ft.
func (t *Tuple) Clear(ft *FactorType) {
	t.slots[ft.slot] = nil
}

// Values returns the bound values in canonical order.
func (t *Tuple) Values() []*FactorValue {
	out := make([]*FactorValue, 0, numTypes)
	for _, v := range t.slots {
		if v != nil {
			out = append(out, v)
		}
	}
	return out
}

// TupleTypes returns the set types in canonical order.
func (t *Tuple) TupleTypes() []*FactorType {
	out := make([]*FactorType, 0, numTypes)
	for i, v := range t.slots {
		if v != nil {
			out = append(out, allTypes[i])
		}
	}
	return out
}

// TypeNames returns the prefixes of the set types in canonical order. This is
// the identity used by the factor-type map and the {unk,...} lemma names.
func (t *Tuple) TypeNames() []string {
	types := t.TupleTypes()
	out := make([]string, len(types))
	for i, ft := range types {
		out[i] = ft.prefix
	}
	return out
}

// Empty reports whether no slot is set.
func (t *Tuple) Empty() bool {
	for _, v := range t.slots {
		if v != nil {
			return false
		}
	}
	return true
}
