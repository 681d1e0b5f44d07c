package casebook

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"tlog.app/go/errors"
)

type (
	// Case is a program with expectations, extracted from a Markdown document.
	//
	//	## Test: name
	//
	//	```pl0
	//	var x; x := 1.
	//	```
	//
	//	```memory
	//	x = 1
	//	```
	Case struct {
		Name string
		Line int

		Source string

		Input map[string]int64 // initial memory, from an input fence

		Memory    map[string]int64 // expected cells, others are not checked
		HasMemory bool

		Output    string
		HasOutput bool

		Error string // expected error substring
	}
)

const heading = "Test: "

// Fence languages.
const (
	FenceSource = "pl0"
	FenceInput  = "input"
	FenceMemory = "memory"
	FenceOutput = "output"
	FenceError  = "error"
)

// Extract parses a Markdown document into cases.
// Fences without a language are ignored, unknown languages are an error.
func Extract(md []byte) (cs []Case, err error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(md))

	var cur *Case

	flush := func() error {
		if cur == nil {
			return nil
		}

		if cur.Source == "" {
			return errors.New("line %d: test %q: no %s fence", cur.Line, cur.Name, FenceSource)
		}

		if !cur.HasMemory && !cur.HasOutput && cur.Error == "" {
			return errors.New("line %d: test %q: no expectations", cur.Line, cur.Name)
		}

		cs = append(cs, *cur)
		cur = nil

		return nil
	}

	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch n := n.(type) {
		case *ast.Heading:
			h := nodeText(n, md)
			if !strings.HasPrefix(h, heading) {
				return ast.WalkSkipChildren, nil
			}

			if err := flush(); err != nil {
				return ast.WalkStop, err
			}

			cur = &Case{
				Name: strings.TrimSpace(strings.TrimPrefix(h, heading)),
				Line: line(n, md),
			}

			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			lang := string(n.Language(md))
			if lang == "" {
				return ast.WalkContinue, nil
			}

			l := line(n, md)

			if cur == nil {
				return ast.WalkStop, errors.New("line %d: %s fence outside of a test", l, lang)
			}

			if err := cur.add(lang, blockText(n, md)); err != nil {
				return ast.WalkStop, errors.Wrap(err, "line %d: test %q", l, cur.Name)
			}
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	if err = flush(); err != nil {
		return nil, err
	}

	return cs, nil
}

func (c *Case) add(lang, body string) (err error) {
	switch lang {
	case FenceSource:
		if c.Source != "" {
			return errors.New("duplicate %s fence", lang)
		}

		c.Source = body
	case FenceInput:
		c.Input, err = ParseMemory(body)
	case FenceMemory:
		c.Memory, err = ParseMemory(body)
		c.HasMemory = true
	case FenceOutput:
		c.Output = body
		c.HasOutput = true
	case FenceError:
		c.Error = strings.TrimSpace(body)
		if c.Error == "" {
			return errors.New("empty %s fence", lang)
		}
	default:
		return errors.New("unknown fence %q", lang)
	}

	return err
}

// ParseMemory reads "name = value" lines. Blank lines are skipped.
func ParseMemory(s string) (map[string]int64, error) {
	m := map[string]int64{}

	for i, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}

		name, val, ok := strings.Cut(l, "=")
		if !ok {
			return nil, errors.New("memory line %d: want name = value: %q", i+1, l)
		}

		v, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return nil, errors.Wrap(err, "memory line %d", i+1)
		}

		m[strings.TrimSpace(name)] = v
	}

	return m, nil
}

func nodeText(n ast.Node, src []byte) string {
	var b bytes.Buffer

	_ = ast.Walk(n, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := n.(*ast.Text); ok && entering {
			b.Write(t.Segment.Value(src))
		}

		return ast.WalkContinue, nil
	})

	return b.String()
}

func blockText(n *ast.FencedCodeBlock, src []byte) string {
	var b bytes.Buffer

	for i := 0; i < n.Lines().Len(); i++ {
		s := n.Lines().At(i)
		b.Write(s.Value(src))
	}

	return b.String()
}

func line(n ast.Node, src []byte) int {
	if n.Lines().Len() == 0 {
		return 0
	}

	pos := n.Lines().At(0).Start

	return 1 + bytes.Count(src[:pos], []byte{'\n'})
}
