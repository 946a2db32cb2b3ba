package scanner

import (
	"bufio"
	"os"
	"path"
	"strings"
)

// IgnorePattern is one gitignore-style line.
type IgnorePattern struct {
	Negate  bool // "!pattern"
	DirOnly bool // "pattern/"
	// Anchored patterns contain a slash and match from the directory
	// holding the ignore file; others match a name at any depth.
	Anchored bool
	segments []string
}

// ParseIgnorePattern parses a gitignore-style pattern string.
func ParseIgnorePattern(line string) IgnorePattern {
	var p IgnorePattern
	if strings.HasPrefix(line, "!") {
		p.Negate = true
		line = line[1:]
	}
	if strings.HasSuffix(line, "/") {
		p.DirOnly = true
		line = strings.TrimSuffix(line, "/")
	}
	if strings.Contains(line, "/") {
		p.Anchored = true
		line = strings.TrimPrefix(line, "/")
	}
	p.segments = strings.Split(line, "/")
	return p
}

// Match reports whether rel, a slash-separated path relative to the
// directory of the ignore file, matches the pattern.
func (p IgnorePattern) Match(rel string, isDir bool) bool {
	if p.DirOnly && !isDir {
		// A file matches when one of its parent directories does.
		dir := path.Dir(rel)
		for dir != "." && dir != "/" {
			if p.Match(dir, true) {
				return true
			}
			dir = path.Dir(dir)
		}
		return false
	}
	parts := strings.Split(rel, "/")
	if p.Anchored {
		return matchSegments(p.segments, parts)
	}
	return matchSegments(p.segments, parts[len(parts)-1:])
}

func matchSegments(pattern, parts []string) bool {
	if len(pattern) == 0 {
		return len(parts) == 0
	}
	if pattern[0] == "**" {
		for i := 0; i <= len(parts); i++ {
			if matchSegments(pattern[1:], parts[i:]) {
				return true
			}
		}
		return false
	}
	if len(parts) == 0 {
		return false
	}
	ok, err := path.Match(pattern[0], parts[0])
	if err != nil || !ok {
		return false
	}
	return matchSegments(pattern[1:], parts[1:])
}

func loadIgnoreFile(name string) ([]IgnorePattern, error) {
	file, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var patterns []IgnorePattern
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, ParseIgnorePattern(line))
	}
	return patterns, scanner.Err()
}
