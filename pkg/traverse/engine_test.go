package traverse

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-decls/pkg/disambig"
	"github.com/l3aro/go-decls/pkg/model"
)

const programDoc = `
types:
  - id: node
    kind: struct
    name: Node
    members:
      - {name: val, type: int}
      - {name: next, type: node, ptr: 1}
  - id: pair
    kind: struct
    name: Pair
    members:
      - {name: x, type: int}
  - id: outer
    kind: struct
    name: Outer
    members:
      - {name: mid, type: middle}
  - id: middle
    kind: struct
    name: Middle
    members:
      - {name: in, type: inner}
  - id: inner
    kind: struct
    name: Inner
    members:
      - {name: z, type: int}
  - id: counter
    kind: class
    name: Counter
    members:
      - {name: n, type: int}
    static_members:
      - {name: instances, type: int, external: true}
    member_functions: [bump]
globals:
  - {name: table, type: int, dims: [10], external: true}
  - {name: hidden, type: int, file: lib.c}
functions:
  - name: deep
    external: true
    params:
      - {name: pp, type: pair, ptr: 2}
  - name: walk
    external: true
    params:
      - {name: head, type: node, ptr: 1}
      - {name: tail, type: node, ptr: 1}
    return: {type: node, ptr: 1}
  - name: single
    external: true
    params:
      - {name: head, type: node, ptr: 1, disambig: P}
  - name: strings
    external: true
    params:
      - {name: s, type: char, ptr: 1, string: true}
      - {name: argv, type: char, ptr: 2, string: true}
      - {name: opaque, type: void, ptr: 1}
  - name: byvalue
    external: true
    params:
      - {name: n, type: node}
  - name: nested
    external: true
    params:
      - {name: o, type: outer}
  - name: bump
    external: true
`

func buildModel(t *testing.T) *model.Model {
	t.Helper()
	var doc model.Document
	require.NoError(t, yaml.Unmarshal([]byte(programDoc), &doc))
	m, err := doc.Build()
	require.NoError(t, err)
	return m
}

// collect gathers every observable of one group.
func collect(t *testing.T, eng *Engine, fn string, group Group) []*Observable {
	t.Helper()
	f := eng.Model().Function(fn)
	require.NotNil(t, f, fn)
	var out []*Observable
	s := eng.NewSession(f, false)
	err := s.VisitGroup(group, VisitorFunc(func(obs *Observable) (Result, error) {
		out = append(out, obs)
		return Continue, nil
	}))
	require.NoError(t, err)
	return out
}

func namesOf(obs []*Observable) []string {
	out := make([]string, len(obs))
	for i, o := range obs {
		out[i] = o.Name
	}
	return out
}

func TestPointerToPointerToStruct(t *testing.T) {
	eng := New(buildModel(t), DefaultOptions())
	obs := collect(t, eng, "..deep()", FormalParams)

	require.Equal(t, []string{"pp", "pp[]", "pp[]->x"}, namesOf(obs))

	assert.Equal(t, 2, obs[0].LayersBeforeBase)
	assert.Equal(t, 1, obs[1].LayersBeforeBase)
	assert.Equal(t, 0, obs[2].LayersBeforeBase)

	assert.False(t, obs[0].IsSequence)
	assert.True(t, obs[1].IsSequence)
	assert.True(t, obs[2].IsSequence, "sequence flag reaches members")

	assert.Equal(t, OriginFormalParam, obs[1].Origin)
	assert.Equal(t, OriginMember, obs[2].Origin)
	assert.Equal(t, "pp[]", obs[2].Enclosing)
	assert.Equal(t, []int{0, 1, 2}, []int{obs[0].Index, obs[1].Index, obs[2].Index})
}

func TestSelfReferentialCutoff(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{
			name:  "default limit",
			limit: 1,
			want:  []string{"head", "head[].val", "head[].next"},
		},
		{
			name:  "limit two",
			limit: 2,
			want: []string{
				"head", "head[].val", "head[].next",
				"head[].next->val", "head[].next->next",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.StructRecursionLimit = tt.limit
			eng := New(buildModel(t), opts)

			var got []string
			for _, name := range namesOf(collect(t, eng, "..walk()", FormalParams)) {
				if strings.HasPrefix(name, "head") {
					got = append(got, name)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateResetBetweenVariables(t *testing.T) {
	eng := New(buildModel(t), DefaultOptions())
	obs := collect(t, eng, "..walk()", FormalParams)

	assert.Equal(t, []string{
		"head", "head[].val", "head[].next",
		"tail", "tail[].val", "tail[].next",
	}, namesOf(obs))

	// The second variable starts without an enclosing name.
	assert.Equal(t, "", obs[3].Enclosing)
	assert.Equal(t, "tail", obs[4].Enclosing)
}

func TestReturnValue(t *testing.T) {
	eng := New(buildModel(t), DefaultOptions())
	obs := collect(t, eng, "..walk()", ReturnValue)

	assert.Equal(t, []string{"return", "return[].val", "return[].next"}, namesOf(obs))
	assert.Equal(t, OriginReturn, obs[0].Origin)
}

func TestArrayAsPointer(t *testing.T) {
	eng := New(buildModel(t), DefaultOptions())
	obs := collect(t, eng, "..single()", FormalParams)

	assert.Equal(t, []string{"head", "head->val", "head->next"}, namesOf(obs))
	assert.Equal(t, disambig.ArrayAsPointer, obs[0].Override)
	for _, o := range obs {
		assert.False(t, o.IsSequence, o.Name)
	}
}

func TestStringsAndVoid(t *testing.T) {
	eng := New(buildModel(t), DefaultOptions())
	obs := collect(t, eng, "..strings()", FormalParams)

	require.Equal(t, []string{"s", "argv", "argv[]", "opaque"}, namesOf(obs))
	assert.Equal(t, 0, obs[0].LayersBeforeBase)
	assert.Equal(t, 1, obs[1].LayersBeforeBase)
	assert.True(t, obs[2].IsSequence)
	assert.Equal(t, 1, obs[3].LayersBeforeBase, "void pointers stay pointers")
}

func TestStructByValue(t *testing.T) {
	m := buildModel(t)

	obs := collect(t, New(m, DefaultOptions()), "..byvalue()", FormalParams)
	assert.Equal(t, []string{"n.val", "n.next"}, namesOf(obs))
	assert.Equal(t, "", obs[0].Enclosing)

	opts := DefaultOptions()
	opts.OutputStructVars = true
	obs = collect(t, New(m, opts), "..byvalue()", FormalParams)
	assert.Equal(t, []string{"n", "n.val", "n.next", "n.next[]"}, namesOf(obs))
	assert.Equal(t, "n", obs[1].Enclosing)
}

func TestMaxNestingDepth(t *testing.T) {
	m := buildModel(t)

	obs := collect(t, New(m, DefaultOptions()), "..nested()", FormalParams)
	assert.Equal(t, []string{"o.mid.in.z"}, namesOf(obs))

	opts := DefaultOptions()
	opts.MaxNestingDepth = 2
	obs = collect(t, New(m, opts), "..nested()", FormalParams)
	assert.Empty(t, obs)
}

func TestGlobals(t *testing.T) {
	m := buildModel(t)

	obs := collect(t, New(m, DefaultOptions()), "..walk()", Globals)
	assert.Equal(t, []string{"/table", "/table[]", "lib_c/hidden"}, namesOf(obs))
	assert.True(t, obs[1].OverrideIsInit)
	assert.True(t, obs[1].IsSequence)
	assert.Equal(t, OriginGlobal, obs[0].Origin)

	opts := DefaultOptions()
	opts.IgnoreStaticVars = true
	obs = collect(t, New(m, opts), "..walk()", Globals)
	assert.Equal(t, []string{"/table", "/table[]"}, namesOf(obs))

	opts = DefaultOptions()
	opts.IgnoreGlobals = true
	obs = collect(t, New(m, opts), "..walk()", Globals)
	assert.Empty(t, obs)

	// Static members only show up at their own class's functions.
	obs = collect(t, New(m, DefaultOptions()), "..bump()", Globals)
	assert.Equal(t, []string{"/instances", "/table", "/table[]", "lib_c/hidden"}, namesOf(obs))
}

type denyFilter map[string]bool

func (d denyFilter) TracesVariable(fn *model.Function, name string) bool {
	return !d[name]
}

func TestFilterPrunesSubtree(t *testing.T) {
	opts := DefaultOptions()
	opts.StructRecursionLimit = 2
	opts.Filter = denyFilter{"head[].next": true, "tail": true}
	obs := collect(t, New(buildModel(t), opts), "..walk()", FormalParams)

	assert.Equal(t, []string{"head", "head[].val"}, namesOf(obs))
}

func TestDisregardFurtherDerefs(t *testing.T) {
	eng := New(buildModel(t), DefaultOptions())
	f := eng.Model().Function("..walk()")

	var names []string
	s := eng.NewSession(f, true)
	require.NoError(t, s.VisitGroup(FormalParams, VisitorFunc(func(obs *Observable) (Result, error) {
		names = append(names, obs.Name)
		return DisregardFurtherDerefs, nil
	})))

	assert.Equal(t, []string{"head", "tail"}, names)
	assert.Equal(t, 2, s.Count())
}

func TestVisitorError(t *testing.T) {
	eng := New(buildModel(t), DefaultOptions())
	f := eng.Model().Function("..walk()")
	boom := errors.New("boom")

	calls := 0
	err := eng.NewSession(f, true).VisitGroup(FormalParams, VisitorFunc(func(obs *Observable) (Result, error) {
		calls++
		if obs.Name == "head[].val" {
			return Continue, boom
		}
		return Continue, nil
	}))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestClassMembers(t *testing.T) {
	m := buildModel(t)
	eng := New(m, DefaultOptions())

	var obs []*Observable
	s := eng.NewSession(nil, true)
	require.NoError(t, s.VisitClassMembers(m.Type("node"), VisitorFunc(func(o *Observable) (Result, error) {
		obs = append(obs, o)
		return Continue, nil
	})))

	assert.Equal(t, []string{"this->val", "this->next"}, namesOf(obs))
	assert.Equal(t, OriginMember, obs[0].Origin)

	assert.Error(t, s.VisitClassMembers(m.Type("int"), VisitorFunc(func(*Observable) (Result, error) {
		return Continue, nil
	})))
}

func TestDeterministic(t *testing.T) {
	m := buildModel(t)
	run := func() []string {
		var out []string
		eng := New(m, DefaultOptions())
		for _, f := range m.Functions() {
			for _, entry := range []bool{true, false} {
				s := eng.NewSession(f, entry)
				for _, g := range []Group{Globals, FormalParams, ReturnValue} {
					require.NoError(t, s.VisitGroup(g, VisitorFunc(func(o *Observable) (Result, error) {
						out = append(out, o.Name)
						return Continue, nil
					})))
				}
			}
		}
		return out
	}

	first := run()
	assert.NotEmpty(t, first)
	assert.Equal(t, first, run())
}

func TestLayers(t *testing.T) {
	i := &model.Type{Kind: model.KindInt}
	c := &model.Type{Kind: model.KindChar}

	assert.Equal(t, 0, Layers(&model.Variable{Type: i}))
	assert.Equal(t, 2, Layers(&model.Variable{Type: i, PtrLevels: 1, IsStaticArray: true, UpperBounds: []uint64{4}}))
	assert.Equal(t, 0, Layers(&model.Variable{Type: c, PtrLevels: 1, IsString: true}))
}
