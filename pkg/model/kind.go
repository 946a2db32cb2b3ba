// Package model defines the structural entities built from a program's debug
// information: types, variables and functions.
//
// Every entity is created once while a Model is built and is read-only
// afterwards. A Type exists for each base type and each aggregate, never for
// pointer types: pointer nesting lives on the Variable (PtrLevels), so one
// Type instance is shared by every pointer depth that reaches it.
package model

import (
	"fmt"
	"strings"
)

// Kind is the closed set of declared type kinds.
type Kind int

const (
	KindNone Kind = iota
	KindUnsignedChar
	KindChar
	KindUnsignedShort
	KindShort
	KindUnsignedInt
	KindInt
	KindUnsignedLongLong
	KindLongLong
	KindFloat
	KindDouble
	KindLongDouble
	KindEnum
	KindStruct
	KindUnion
	KindFunction
	KindVoid
	KindCharAsString
	KindBool
)

var kindNames = [...]string{
	KindNone:             "no_declared_type",
	KindUnsignedChar:     "unsigned char",
	KindChar:             "char",
	KindUnsignedShort:    "unsigned short",
	KindShort:            "short",
	KindUnsignedInt:      "unsigned int",
	KindInt:              "int",
	KindUnsignedLongLong: "unsigned long long int",
	KindLongLong:         "long long int",
	KindFloat:            "float",
	KindDouble:           "double",
	KindLongDouble:       "long double",
	KindEnum:             "enumeration",
	KindStruct:           "struct",
	KindUnion:            "union",
	KindFunction:         "function",
	KindVoid:             "void",
	KindCharAsString:     "char",
	KindBool:             "bool",
}

// String returns the C declared-type spelling of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// IsInteger reports whether values of this kind are printed as integers.
func (k Kind) IsInteger() bool {
	switch k {
	case KindUnsignedChar, KindChar, KindUnsignedShort, KindShort,
		KindUnsignedInt, KindInt, KindUnsignedLongLong, KindLongLong, KindEnum:
		return true
	}
	return false
}

// IsFloat reports whether the kind is a floating-point kind.
func (k Kind) IsFloat() bool {
	return k == KindFloat || k == KindDouble || k == KindLongDouble
}

// IsAggregate reports whether the kind is struct or union.
func (k Kind) IsAggregate() bool {
	return k == KindStruct || k == KindUnion
}

// IsChar reports whether the kind is a plain or unsigned char.
func (k Kind) IsChar() bool {
	return k == KindChar || k == KindUnsignedChar
}

var kindAliases = map[string]Kind{
	"signed char":            KindChar,
	"unsigned short int":     KindUnsignedShort,
	"short int":              KindShort,
	"signed short":           KindShort,
	"unsigned":               KindUnsignedInt,
	"signed":                 KindInt,
	"signed int":             KindInt,
	"long":                   KindLongLong,
	"long int":               KindLongLong,
	"signed long":            KindLongLong,
	"unsigned long":          KindUnsignedLongLong,
	"unsigned long int":      KindUnsignedLongLong,
	"long long":              KindLongLong,
	"unsigned long long":     KindUnsignedLongLong,
	"_Bool":                  KindBool,
	"enum":                   KindEnum,
	"class":                  KindStruct,
	"char_as_string":         KindCharAsString,
	"unsigned long long int": KindUnsignedLongLong,
}

// ParseKind maps a declared-type spelling to its Kind. It accepts the
// spellings produced by Kind.String plus the usual C aliases.
func ParseKind(s string) (Kind, error) {
	s = strings.Join(strings.Fields(s), " ")
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	for k := KindUnsignedChar; k <= KindBool; k++ {
		if k == KindCharAsString {
			continue
		}
		if kindNames[k] == s {
			return k, nil
		}
	}
	return KindNone, fmt.Errorf("unknown type kind %q", s)
}
