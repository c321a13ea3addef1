package cover

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
)

// Global hooks the instrumented code calls. The spec runtime defines them.
const (
	StatementHook = "__cov_s"
	FunctionHook  = "__cov_f"
)

// Instrumenter rewrites JavaScript sources with coverage counters.
//
// Counted statements are those sitting directly in a program, block or switch
// clause, plus the single-statement bodies of if/else and loops, which get
// wrapped in braces. Directive prologues ("use strict") and hoisted
// declarations are left alone. Each function body counts its entries.
type Instrumenter struct{}

func NewInstrumenter() *Instrumenter { return &Instrumenter{} }

type insertion struct {
	at   uint32
	seq  int
	text string
}

type instrumentation struct {
	src     []byte
	pathLit string
	fc      *FileCoverage
	ins     []insertion
}

// Instrument parses src and returns the instrumented code together with the
// zeroed counters for path. A source with syntax errors is rejected.
func (in *Instrumenter) Instrument(ctx context.Context, path string, src []byte) ([]byte, *FileCoverage, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(javascript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		line, col := firstError(root)
		return nil, nil, fmt.Errorf("parse %s: syntax error at %d:%d", path, line, col)
	}

	lit, _ := json.Marshal(path)
	st := &instrumentation{
		src:     src,
		pathLit: string(lit),
		fc:      &FileCoverage{Path: path, Statements: []Statement{}, Functions: []Function{}},
	}
	st.walk(root)
	return st.apply(), st.fc, nil
}

func (s *instrumentation) insert(at uint32, text string) {
	s.ins = append(s.ins, insertion{at: at, seq: len(s.ins), text: text})
}

func (s *instrumentation) apply() []byte {
	sort.SliceStable(s.ins, func(i, j int) bool {
		if s.ins[i].at != s.ins[j].at {
			return s.ins[i].at < s.ins[j].at
		}
		return s.ins[i].seq < s.ins[j].seq
	})
	var b strings.Builder
	b.Grow(len(s.src) + len(s.ins)*32)
	var last uint32
	for _, in := range s.ins {
		b.Write(s.src[last:in.at])
		b.WriteString(in.text)
		last = in.at
	}
	b.Write(s.src[last:])
	return []byte(b.String())
}

func (s *instrumentation) statementCounter(n *sitter.Node) string {
	id := len(s.fc.Statements)
	s.fc.Statements = append(s.fc.Statements, Statement{
		ID:      id,
		Line:    int(n.StartPoint().Row) + 1,
		Column:  int(n.StartPoint().Column) + 1,
		EndLine: int(n.EndPoint().Row) + 1,
	})
	return fmt.Sprintf("%s(%s,%d);", StatementHook, s.pathLit, id)
}

func (s *instrumentation) functionCounter(n *sitter.Node) string {
	id := len(s.fc.Functions)
	s.fc.Functions = append(s.fc.Functions, Function{
		ID:   id,
		Name: s.functionName(n),
		Line: int(n.StartPoint().Row) + 1,
	})
	return fmt.Sprintf("%s(%s,%d)", FunctionHook, s.pathLit, id)
}

func (s *instrumentation) walk(n *sitter.Node) {
	switch n.Type() {
	case "program", "statement_block":
		s.statementList(n, nil)
	case "switch_case", "switch_default":
		s.statementList(n, n.ChildByFieldName("value"))
	case "if_statement":
		s.wrapBody(n.ChildByFieldName("consequence"))
	case "else_clause":
		for i := 0; i < int(n.NamedChildCount()); i++ {
			if c := n.NamedChild(i); c.Type() != "comment" {
				s.wrapBody(c)
				break
			}
		}
	case "for_statement", "for_in_statement", "while_statement", "do_statement", "with_statement":
		s.wrapBody(n.ChildByFieldName("body"))
	}

	if isFunction(n) {
		s.instrumentFunction(n)
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		s.walk(n.NamedChild(i))
	}
}

// statementList counts the statements directly inside a statement list.
// skip excludes a non-statement child such as a case label.
func (s *instrumentation) statementList(n, skip *sitter.Node) {
	directives := n.Type() == "program" || isFunctionBody(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if skip != nil && sameNode(c, skip) {
			continue
		}
		if c.Type() == "comment" {
			continue
		}
		if directives && isDirective(c) {
			continue
		}
		directives = false
		if !countable(c) {
			continue
		}
		s.insert(c.StartByte(), s.statementCounter(c))
	}
}

// wrapBody counts a single-statement body by turning it into a block.
func (s *instrumentation) wrapBody(body *sitter.Node) {
	if body == nil || body.Type() == "statement_block" || !countable(body) {
		return
	}
	s.insert(body.StartByte(), "{"+s.statementCounter(body))
	s.insert(body.EndByte(), "}")
}

func (s *instrumentation) instrumentFunction(n *sitter.Node) {
	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	counter := s.functionCounter(n)
	if body.Type() != "statement_block" {
		// Arrow function with an expression body.
		s.insert(body.StartByte(), "("+counter+",")
		s.insert(body.EndByte(), ")")
		return
	}

	at := body.StartByte() + 1
	prefix := ""
	for i := 0; i < int(body.NamedChildCount()); i++ {
		c := body.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		if !isDirective(c) {
			break
		}
		at = c.EndByte()
		prefix = ";"
	}
	s.insert(at, prefix+counter+";")
}

func (s *instrumentation) functionName(n *sitter.Node) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return name.Content(s.src)
	}
	if p := n.Parent(); p != nil {
		switch p.Type() {
		case "variable_declarator":
			if name := p.ChildByFieldName("name"); name != nil {
				return name.Content(s.src)
			}
		case "assignment_expression":
			if left := p.ChildByFieldName("left"); left != nil {
				return left.Content(s.src)
			}
		case "pair":
			if key := p.ChildByFieldName("key"); key != nil {
				return key.Content(s.src)
			}
		}
	}
	return fmt.Sprintf("(anonymous_%d)", len(s.fc.Functions))
}

func isFunction(n *sitter.Node) bool {
	if !n.IsNamed() {
		return false
	}
	switch n.Type() {
	case "function_declaration", "generator_function_declaration",
		"function", "function_expression", "generator_function",
		"arrow_function", "method_definition":
		return true
	}
	return false
}

func isFunctionBody(n *sitter.Node) bool {
	p := n.Parent()
	return n.Type() == "statement_block" && p != nil && isFunction(p)
}

// countable reports whether a statement gets a counter. Declarations that
// hoist are reached through their function counter instead.
func countable(n *sitter.Node) bool {
	switch n.Type() {
	case "function_declaration", "generator_function_declaration", "class_declaration",
		"empty_statement", "import_statement", "export_statement", "labeled_statement":
		return false
	}
	return strings.HasSuffix(n.Type(), "_statement") ||
		strings.HasSuffix(n.Type(), "_declaration") ||
		n.Type() == "statement_block"
}

func isDirective(n *sitter.Node) bool {
	if n.Type() != "expression_statement" || n.NamedChildCount() != 1 {
		return false
	}
	return n.NamedChild(0).Type() == "string"
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

func firstError(n *sitter.Node) (int, int) {
	if n.Type() == "ERROR" || n.IsMissing() {
		return int(n.StartPoint().Row) + 1, int(n.StartPoint().Column) + 1
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.HasError() || c.IsMissing() {
			return firstError(c)
		}
	}
	return int(n.StartPoint().Row) + 1, int(n.StartPoint().Column) + 1
}
