package template

import (
	"context"
	"fmt"

	"github.com/geocine/folio/internal/parser"
)

// BlockInput is what a block receives: its rendered body and the keyword arguments of the tag
type BlockInput struct {
	Body   string
	Kwargs map[string]any
}

// BlockResult is the output of a block.
// Parse results are put back in the document before markup rendering; the others are
// deferred and inserted by PostProcess. Text marks a body that is plain text, not HTML.
type BlockResult struct {
	Body  string
	Parse bool
	Text  bool
}

// BlockFunc processes a block
type BlockFunc func(ctx context.Context, in BlockInput) (BlockResult, error)

// Shortcut is an alternate syntax of a block for some parsers: Start...End expands to the block tag
type Shortcut struct {
	Parsers []string
	Start   string
	End     string
}

// Block is a named block helper
type Block struct {
	Process   BlockFunc
	Shortcuts []Shortcut
}

// defaultBlocks are always available; plugins may replace them
func defaultBlocks() map[string]Block {
	return map[string]Block{
		"html": {Process: func(_ context.Context, in BlockInput) (BlockResult, error) {
			return BlockResult{Body: in.Body}, nil
		}},
		"code": {Process: func(_ context.Context, in BlockInput) (BlockResult, error) {
			return BlockResult{Body: in.Body, Text: true}, nil
		}},
		"markdown": {Process: parserBlock("markdown")},
		"asciidoc": {Process: parserBlock("asciidoc")},
	}
}

func parserBlock(name string) BlockFunc {
	return func(_ context.Context, in BlockInput) (BlockResult, error) {
		p, ok := parser.Get(name)
		if !ok {
			return BlockResult{}, fmt.Errorf("no parser %q", name)
		}
		out, err := p.Page(in.Body)
		if err != nil {
			return BlockResult{}, err
		}
		return BlockResult{Body: out}, nil
	}
}
