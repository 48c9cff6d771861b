package ir

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// The JSON program format: a flat list of procedures with serialized blocks
// and instructions, plus class tables. This is the standalone input surface
// for Java-derived programs; the Go frontend builds Programs directly.

type jsonProgram struct {
	Procedures []jsonProcedure `json:"procedures"`
	Classes    []*Class        `json:"classes,omitempty"`
}

type jsonProcedure struct {
	Name          Procname   `json:"name"`
	File          string     `json:"file,omitempty"`
	Line          int        `json:"line,omitempty"`
	Language      string     `json:"language,omitempty"` // "java" (default), "clang", "go"
	Formals       []Formal   `json:"formals,omitempty"`
	Access        string     `json:"access,omitempty"` // "public", "private", "protected", "default" (also when omitted)
	Annotations   []string   `json:"annotations,omitempty"`
	IsConstructor bool       `json:"constructor,omitempty"`
	IsClassInit   bool       `json:"class_initializer,omitempty"`
	IsAutogen     bool       `json:"autogenerated,omitempty"`
	IsSync        bool       `json:"synchronized,omitempty"`
	IsStaticSync  bool       `json:"static_synchronized,omitempty"`
	Blocks        []jsonBlock `json:"blocks"`
}

type jsonBlock struct {
	ID     int         `json:"id"`
	Succs  []int       `json:"succs,omitempty"`
	Instrs []jsonInstr `json:"instrs,omitempty"`
}

type jsonInstr struct {
	Op      string    `json:"op"` // "assign", "assume", "metadata", "icall", "call"
	Callee  Procname  `json:"callee,omitempty"`
	Actuals []jsonExp `json:"actuals,omitempty"`
	Line    int       `json:"line,omitempty"`
}

type jsonExp struct {
	Kind  string      `json:"kind"` // "path", "class", "local"
	Path  *AccessPath `json:"path,omitempty"`
	Class string      `json:"class,omitempty"`
	Name  string      `json:"name,omitempty"`
}

// LoadFile reads a JSON program from a file.
func LoadFile(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	prog, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// Load decodes a JSON program from r.
func Load(r io.Reader) (*Program, error) {
	var jp jsonProgram
	dec := json.NewDecoder(r)
	if err := dec.Decode(&jp); err != nil {
		return nil, fmt.Errorf("decode program: %w", err)
	}

	prog := NewProgram()
	for _, c := range jp.Classes {
		prog.Classes[c.Name] = c
	}
	for _, p := range jp.Procedures {
		proc, err := buildProcedure(p)
		if err != nil {
			return nil, fmt.Errorf("procedure %s: %w", p.Name, err)
		}
		prog.AddProc(proc)
	}
	return prog, nil
}

func buildProcedure(jp jsonProcedure) (*Procedure, error) {
	attrs := Attributes{
		Name:          jp.Name,
		Loc:           Location{File: jp.File, Line: jp.Line},
		Language:      parseLanguage(jp.Language),
		Formals:       jp.Formals,
		Access:        parseAccess(jp.Access),
		IsConstructor: jp.IsConstructor,
		IsClassInit:   jp.IsClassInit,
		IsAutogen:     jp.IsAutogen,
		IsSync:        jp.IsSync,
		IsStaticSync:  jp.IsStaticSync,
	}
	for _, a := range jp.Annotations {
		switch a {
		case "Lockless":
			attrs.IsLockless = true
		case "NonBlocking":
			attrs.IsNonBlocking = true
		case "UiThread":
			attrs.OnUIThread = true
		}
	}

	if len(jp.Blocks) == 0 {
		return nil, fmt.Errorf("no blocks")
	}
	blocks := make([]*Block, 0, len(jp.Blocks))
	for _, jb := range jp.Blocks {
		b := &Block{ID: jb.ID, Succs: jb.Succs}
		for _, ji := range jb.Instrs {
			instr, err := buildInstr(ji, jp.File)
			if err != nil {
				return nil, err
			}
			b.Instrs = append(b.Instrs, instr)
		}
		blocks = append(blocks, b)
	}
	return &Procedure{Attrs: attrs, CFG: NewGraph(blocks)}, nil
}

func buildInstr(ji jsonInstr, file string) (Instr, error) {
	loc := Location{File: file, Line: ji.Line}
	switch ji.Op {
	case "assign":
		return Assign{At: loc}, nil
	case "assume":
		return Assume{At: loc}, nil
	case "metadata":
		return Metadata{At: loc}, nil
	case "icall":
		return IndirectCall{At: loc}, nil
	case "call":
		actuals := make([]Exp, 0, len(ji.Actuals))
		for _, je := range ji.Actuals {
			e, err := buildExp(je)
			if err != nil {
				return nil, err
			}
			actuals = append(actuals, e)
		}
		return DirectCall{Callee: ji.Callee, Actuals: actuals, At: loc}, nil
	default:
		return nil, fmt.Errorf("unknown instruction op %q", ji.Op)
	}
}

func buildExp(je jsonExp) (Exp, error) {
	switch je.Kind {
	case "path":
		if je.Path == nil {
			return nil, fmt.Errorf("path expression without path")
		}
		return PathExp{Path: *je.Path}, nil
	case "class":
		return ClassLitExp{Class: je.Class}, nil
	case "local":
		return LocalExp{Name: je.Name}, nil
	default:
		return nil, fmt.Errorf("unknown expression kind %q", je.Kind)
	}
}

func parseLanguage(s string) Language {
	switch s {
	case "clang":
		return LangClang
	case "go":
		return LangGo
	default:
		return LangJava
	}
}

func parseAccess(s string) Access {
	switch s {
	case "public":
		return AccessPublic
	case "private":
		return AccessPrivate
	case "protected":
		return AccessProtected
	default:
		return AccessDefault
	}
}
