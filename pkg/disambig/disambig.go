// Package disambig resolves how ambiguous pointer, array and char variables
// are presented: as sequences or single values, as strings or integers.
//
// Hints come from two places. A variable may carry its own letter, and a
// .disambig file may override it for one run:
//
//	----SECTION----
//	globals
//	/buf
//	P
//
//	----SECTION----
//	..copy()
//	src
//	A
//
//	----SECTION----
//	usertype.Node
//	name
//	C
//
// Sections are headed by a program point name, "globals", or
// "usertype.<TypeName>" for members of a named aggregate. Each entry is a
// variable name on one line and its letter on the next.
package disambig

import (
	"github.com/l3aro/go-decls/pkg/model"
)

// Override is the effective presentation override of one variable.
type Override int

const (
	None Override = iota
	// CharAsString prints a char as a one-character string.
	CharAsString
	// StringAsIntArray prints a string as an array of its character codes.
	StringAsIntArray
	// StringAsOneInt prints only the first character code of a string.
	StringAsOneInt
	// ArrayAsPointer treats a pointer or static array as addressing a
	// single element.
	ArrayAsPointer
)

func (o Override) String() string {
	switch o {
	case None:
		return "none"
	case CharAsString:
		return "char-as-string"
	case StringAsIntArray:
		return "string-as-int-array"
	case StringAsOneInt:
		return "string-as-one-int"
	case ArrayAsPointer:
		return "array-as-pointer"
	}
	return "unknown"
}

// Letters accepted in .disambig files.
const (
	LetterArray   byte = 'A'
	LetterPointer byte = 'P'
	LetterChar    byte = 'C'
	LetterInt     byte = 'I'
	LetterString  byte = 'S'
)

func validLetter(c byte) bool {
	switch c {
	case LetterArray, LetterPointer, LetterChar, LetterInt, LetterString:
		return true
	}
	return false
}

// Resolve maps a letter to the override it implies for v. Letters that do
// not apply to the variable's shape resolve to None.
func Resolve(letter byte, v *model.Variable) Override {
	if letter == 0 || v == nil || v.Type == nil {
		return None
	}
	switch {
	case v.IsString:
		switch letter {
		case LetterArray:
			return StringAsIntArray
		case LetterPointer:
			return StringAsOneInt
		}
	case v.PtrLevels > 0 || v.IsStaticArray:
		if letter == LetterPointer {
			return ArrayAsPointer
		}
	case v.Type.Kind.IsChar():
		if letter == LetterChar {
			return CharAsString
		}
	}
	return None
}
