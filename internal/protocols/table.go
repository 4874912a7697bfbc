package protocols

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"
	"golang.org/x/exp/slices"

	"github.com/classyserve/pytype/internal/lattice"
)

const (
	UNKNOWN_TYPE_NAME = "?"
	NONE_TYPE_NAME    = "None"
)

var (
	ErrInvalidTable      = errors.New("invalid protocol table")
	ErrUnknownTypeName   = errors.New("unknown type name")
	ErrInvalidTypeExpr   = errors.New("invalid type expression")
	ErrDuplicateProtocol = errors.New("protocol defined twice in the same table")
	ErrWrongParamCount   = errors.New("wrong number of type arguments")
	ErrInvalidCoverage   = errors.New("coverage should be 'any' or 'every'")
)

// A Table is the declarative description of protocols:
//
//	protocols:
//	  - name: SupportsRound
//	    params: [_T_co]
//	    members:
//	      - name: __round__
//	        signatures:
//	          - params: [int]
//	            returns: _T_co
type Table struct {
	Protocols []ProtocolEntry `yaml:"protocols"`
}

type ProtocolEntry struct {
	Name    string        `yaml:"name"`
	Module  string        `yaml:"module"`
	Params  []string      `yaml:"params"`
	Members []MemberEntry `yaml:"members"`
}

type MemberEntry struct {
	Name       string           `yaml:"name"`
	Coverage   string           `yaml:"coverage"`
	Signatures []SignatureEntry `yaml:"signatures"`
}

type SignatureEntry struct {
	Params  []string `yaml:"params"`
	Returns string   `yaml:"returns"`
	Varargs bool     `yaml:"varargs"`
}

// LoadTable parses a YAML protocol table, defines its protocols and registers them in the registry of lib.
// Type expressions can reference the builtins of lib, its registered protocols, the protocols
// of the table and the type parameters of the enclosing protocol. Nothing is registered if the
// table is invalid.
func (lib *Library) LoadTable(data []byte) ([]*lattice.Class, error) {
	var table Table
	if err := yaml.UnmarshalWithOptions(data, &table, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTable, err)
	}
	return lib.DefineTable(table)
}

// DefineTable defines and registers the protocols of table, see LoadTable.
func (lib *Library) DefineTable(table Table) ([]*lattice.Class, error) {
	defined := map[string]*lattice.Class{}
	entries := map[string]ProtocolEntry{}
	parsed := map[string][][]parsedSignature{}

	for _, entry := range table.Protocols {
		if entry.Name == "" {
			return nil, fmt.Errorf("%w: protocol without name", ErrInvalidTable)
		}
		if _, ok := entries[entry.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateProtocol, entry.Name)
		}
		entries[entry.Name] = entry
	}

	//type expressions are validated before any class is defined.
	for _, entry := range table.Protocols {
		var members [][]parsedSignature

		for _, member := range entry.Members {
			if member.Name == "" {
				return nil, fmt.Errorf("%w: member without name in %s", ErrInvalidTable, entry.Name)
			}
			if _, err := parseCoverage(member.Coverage); err != nil {
				return nil, fmt.Errorf("%s.%s: %w", entry.Name, member.Name, err)
			}

			var signatures []parsedSignature
			for _, sig := range member.Signatures {
				parsedSig, err := lib.parseSignature(sig, entry, entries)
				if err != nil {
					return nil, fmt.Errorf("%s.%s: %w", entry.Name, member.Name, err)
				}
				signatures = append(signatures, parsedSig)
			}
			members = append(members, signatures)
		}
		parsed[entry.Name] = members
	}

	var protocols []*lattice.Class

	for _, entry := range table.Protocols {
		entry := entry
		module := entry.Module
		if module == "" {
			module = TYPING_MODULE
		}

		protocol := lattice.DefineClass(lattice.ClassConfig{
			Name:       entry.Name,
			Module:     module,
			TypeParams: entry.Params,
			Protocol: func(self *lattice.Class) []lattice.ProtocolMember {
				var members []lattice.ProtocolMember

				for i, member := range entry.Members {
					coverage, _ := parseCoverage(member.Coverage)
					var signatures []*lattice.CallableSignature

					for _, sig := range parsed[entry.Name][i] {
						signatures = append(signatures, sig.build(member.Name, lib, defined))
					}

					members = append(members, lattice.ProtocolMember{
						Name:       member.Name,
						Signatures: signatures,
						Coverage:   coverage,
					})
				}
				return members
			},
		})
		defined[entry.Name] = protocol
		protocols = append(protocols, protocol)
	}

	for _, protocol := range protocols {
		if err := lib.Registry.Register(protocol); err != nil {
			return nil, err
		}
	}

	return protocols, nil
}

func parseCoverage(s string) (lattice.Coverage, error) {
	switch s {
	case "", "any":
		return lattice.AnySignature, nil
	case "every":
		return lattice.EverySignature, nil
	default:
		return 0, ErrInvalidCoverage
	}
}

type parsedSignature struct {
	params  []*typeExpr
	returns *typeExpr
	varargs bool
}

func (s parsedSignature) build(name string, lib *Library, defined map[string]*lattice.Class) *lattice.CallableSignature {
	params := make([]lattice.Param, len(s.params))
	for i, param := range s.params {
		params[i] = lattice.Param{
			Name: "arg" + strconv.Itoa(i),
			Type: param.build(lib, defined),
		}
	}

	var ret lattice.Value = lattice.UNKNOWN
	if s.returns != nil {
		ret = s.returns.build(lib, defined)
	}

	return lattice.NewSignature(name, params, ret, s.varargs)
}

func (lib *Library) parseSignature(sig SignatureEntry, entry ProtocolEntry, entries map[string]ProtocolEntry) (parsedSignature, error) {
	result := parsedSignature{varargs: sig.Varargs}

	for _, param := range sig.Params {
		expr, err := lib.parseTypeExpr(param, entry, entries)
		if err != nil {
			return parsedSignature{}, err
		}
		result.params = append(result.params, expr)
	}

	if sig.Returns != "" {
		expr, err := lib.parseTypeExpr(sig.Returns, entry, entries)
		if err != nil {
			return parsedSignature{}, err
		}
		result.returns = expr
	}

	return result, nil
}

// A typeExpr is a parsed type expression such as int, _T_co or Iterator[list[int]].
type typeExpr struct {
	name string
	args []*typeExpr

	isParam bool
}

func (e *typeExpr) build(lib *Library, defined map[string]*lattice.Class) lattice.Value {
	if e.isParam {
		return lattice.NewTypeParameter(e.name)
	}

	switch e.name {
	case UNKNOWN_TYPE_NAME:
		return lattice.UNKNOWN
	case NONE_TYPE_NAME:
		return lattice.NewInstance(lib.NoneType, nil)
	}

	cls, ok := defined[e.name]
	if !ok {
		cls, ok = lib.Builtin(e.name)
	}
	if !ok {
		cls, _ = lib.Registry.Get(e.name)
	}

	if len(e.args) == 0 {
		return cls
	}

	params := map[string]lattice.Value{}
	for i, name := range cls.TypeParams() {
		params[name] = e.args[i].build(lib, defined)
	}
	return lattice.NewParameterizedClass(cls, params)
}

// parseTypeExpr parses and validates a type expression in the context of a table entry.
func (lib *Library) parseTypeExpr(s string, entry ProtocolEntry, entries map[string]ProtocolEntry) (*typeExpr, error) {
	p := &typeExprParser{input: s}

	expr, err := p.parse()
	if err != nil {
		return nil, err
	}
	if err := lib.checkTypeExpr(expr, entry, entries); err != nil {
		return nil, fmt.Errorf("%w in %q", err, s)
	}
	return expr, nil
}

func (lib *Library) checkTypeExpr(expr *typeExpr, entry ProtocolEntry, entries map[string]ProtocolEntry) error {
	var paramCount int

	switch {
	case slices.Contains(entry.Params, expr.name):
		expr.isParam = true
	case expr.name == UNKNOWN_TYPE_NAME || expr.name == NONE_TYPE_NAME:
	default:
		if other, ok := entries[expr.name]; ok {
			paramCount = len(other.Params)
		} else if cls, ok := lib.Builtin(expr.name); ok {
			paramCount = len(cls.TypeParams())
		} else if cls, ok := lib.Registry.Get(expr.name); ok {
			paramCount = len(cls.TypeParams())
		} else {
			return fmt.Errorf("%w: %s", ErrUnknownTypeName, expr.name)
		}
	}

	if len(expr.args) > 0 && len(expr.args) != paramCount {
		return fmt.Errorf("%w: %s expects %d", ErrWrongParamCount, expr.name, paramCount)
	}

	for _, arg := range expr.args {
		if err := lib.checkTypeExpr(arg, entry, entries); err != nil {
			return err
		}
	}
	return nil
}

type typeExprParser struct {
	input string
	i     int
}

func (p *typeExprParser) parse() (*typeExpr, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.i != len(p.input) {
		return nil, p.error("unexpected " + p.input[p.i:])
	}
	return expr, nil
}

func (p *typeExprParser) parseExpr() (*typeExpr, error) {
	p.skipSpaces()

	start := p.i
	for p.i < len(p.input) && isNameChar(p.input[p.i]) {
		p.i++
	}
	if start == p.i {
		return nil, p.error("missing type name")
	}

	expr := &typeExpr{name: p.input[start:p.i]}

	p.skipSpaces()
	if p.i >= len(p.input) || p.input[p.i] != '[' {
		return expr, nil
	}
	p.i++

	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		expr.args = append(expr.args, arg)

		p.skipSpaces()
		if p.i >= len(p.input) {
			return nil, p.error("unterminated type arguments")
		}

		switch p.input[p.i] {
		case ',':
			p.i++
		case ']':
			p.i++
			return expr, nil
		default:
			return nil, p.error("unexpected " + string(p.input[p.i]))
		}
	}
}

func (p *typeExprParser) skipSpaces() {
	for p.i < len(p.input) && p.input[p.i] == ' ' {
		p.i++
	}
}

func (p *typeExprParser) error(msg string) error {
	return fmt.Errorf("%w %q: %s", ErrInvalidTypeExpr, p.input, msg)
}

func isNameChar(c byte) bool {
	return c == '_' || c == '?' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
