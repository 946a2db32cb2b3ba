package disambig

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/l3aro/go-decls/pkg/model"
)

// SectionDelimiter opens a section in .disambig and variable list files.
const SectionDelimiter = "----SECTION----"

// GlobalsSection is the reserved section header for global variables.
const GlobalsSection = "globals"

// UserTypePrefix prefixes section headers naming an aggregate type.
const UserTypePrefix = "usertype."

// MalformedEntryError reports a .disambig line that does not fit the format.
type MalformedEntryError struct {
	File   string
	Line   int
	Text   string
	Reason string
}

func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("%s:%d: %s: %q", e.File, e.Line, e.Reason, e.Text)
}

// Map holds the per-run overrides loaded from a .disambig file.
type Map struct {
	sections map[string]map[string]byte
}

// NewMap returns an empty map.
func NewMap() *Map {
	return &Map{sections: make(map[string]map[string]byte)}
}

// Set records letter for variable name in section.
func (m *Map) Set(section, name string, letter byte) {
	s, ok := m.sections[section]
	if !ok {
		s = make(map[string]byte)
		m.sections[section] = s
	}
	s[name] = letter
}

// Letter returns the letter recorded for name in section, or 0.
func (m *Map) Letter(section, name string) byte {
	if m == nil {
		return 0
	}
	return m.sections[section][name]
}

// Len returns the number of entries across all sections.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, s := range m.sections {
		n += len(s)
	}
	return n
}

// Lookup returns the effective override of v at fn, where fn is nil for the
// globals group and fullName is the variable's internal name. A per-run
// entry for the program point (or globals) wins, then an entry in the
// usertype section of the member's enclosing type, then the variable's own
// letter.
func (m *Map) Lookup(fn *model.Function, v *model.Variable, fullName string) Override {
	section := GlobalsSection
	if fn != nil {
		section = fn.PptName()
	}
	letter := m.Letter(section, fullName)
	if letter == 0 && v.StructParent != nil && v.StructParent.Name != "" {
		letter = m.Letter(UserTypePrefix+v.StructParent.Name, v.Name)
	}
	if letter == 0 {
		letter = v.Disambig
	}
	return Resolve(letter, v)
}

// LoadFile reads a .disambig file from disk.
func LoadFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open disambig file: %w", err)
	}
	defer f.Close()
	return Load(path, f)
}

// Load parses .disambig content. name is only used in error messages.
func Load(name string, r io.Reader) (*Map, error) {
	m := NewMap()
	scanner := bufio.NewScanner(r)

	var (
		section     string
		wantHeader  bool
		pendingName string
		pendingLine int
		lineNo      int
	)
	malformed := func(text, reason string) error {
		return &MalformedEntryError{File: name, Line: lineNo, Text: text, Reason: reason}
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		switch {
		case strings.HasPrefix(line, SectionDelimiter):
			if pendingName != "" {
				lineNo = pendingLine
				return nil, malformed(pendingName, "variable without a disambiguation letter")
			}
			wantHeader = true
		case wantHeader:
			section = strings.TrimSpace(line)
			wantHeader = false
		case section == "":
			return nil, malformed(line, "entry before any section header")
		case pendingName == "":
			pendingName = line
			pendingLine = lineNo
		default:
			letter := strings.TrimSpace(line)
			if len(letter) != 1 || !validLetter(letter[0]) {
				return nil, malformed(line, "expected one of A, C, I, P, S")
			}
			m.Set(section, pendingName, letter[0])
			pendingName = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if pendingName != "" {
		lineNo = pendingLine
		return nil, malformed(pendingName, "variable without a disambiguation letter")
	}
	if wantHeader {
		return nil, malformed(SectionDelimiter, "section without a header")
	}
	return m, nil
}
