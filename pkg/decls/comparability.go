package decls

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-decls/pkg/model"
)

// Comparability supplies the comparability number of the observable at
// index within a function's entry or exit. Implementations must return the
// same value for the same arguments throughout one pass.
type Comparability interface {
	CompNumber(fn *model.Function, isEntry bool, index int) int
}

// ComparabilityFunc adapts a function to the Comparability interface.
type ComparabilityFunc func(fn *model.Function, isEntry bool, index int) int

// CompNumber calls f.
func (f ComparabilityFunc) CompNumber(fn *model.Function, isEntry bool, index int) int {
	return f(fn, isEntry, index)
}

// ComparabilityTable is a Comparability read from a YAML file that maps
// program point names to per-direction lists of numbers:
//
//	"..main()":
//	  enter: [1, 2, 2]
//	  exit: [1, 2, 2, 3]
//
// Observables past the end of a list, and unknown program points, get
// Default.
type ComparabilityTable struct {
	Points  map[string]ComparabilityPoint
	Default int
}

// ComparabilityPoint holds the numbers of one function.
type ComparabilityPoint struct {
	Enter []int `yaml:"enter"`
	Exit  []int `yaml:"exit"`
}

// LoadComparabilityTable parses a YAML comparability table.
func LoadComparabilityTable(r io.Reader) (*ComparabilityTable, error) {
	t := &ComparabilityTable{Default: -1}
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&t.Points); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse comparability table: %w", err)
	}
	if t.Points == nil {
		t.Points = make(map[string]ComparabilityPoint)
	}
	return t, nil
}

// LoadComparabilityFile reads a YAML comparability table from disk.
func LoadComparabilityFile(path string) (*ComparabilityTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open comparability table: %w", err)
	}
	defer f.Close()
	return LoadComparabilityTable(f)
}

// CompNumber implements Comparability.
func (t *ComparabilityTable) CompNumber(fn *model.Function, isEntry bool, index int) int {
	p, ok := t.Points[fn.PptName()]
	if !ok {
		return t.Default
	}
	list := p.Exit
	if isEntry {
		list = p.Enter
	}
	if index < 0 || index >= len(list) {
		return t.Default
	}
	return list[index]
}
