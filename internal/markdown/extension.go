// Package markdown integrates the uml directive into goldmark. A fenced code
// block with language "uml" is replaced by the diagram images the directive
// generates for it.
package markdown

import (
	"bytes"
	"context"
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"git.home.luguber.info/inful/umlgen/internal/directive"
)

var umlLanguage = []byte("uml")

var directiveErrorKey = parser.NewContextKey()

// Extension registers the uml directive with a goldmark instance.
type Extension struct {
	ctx       context.Context
	directive *directive.Directive
	env       directive.Environment
}

// NewExtension builds the goldmark extension. The context is carried into
// directive invocations because goldmark transformers take none.
func NewExtension(ctx context.Context, d *directive.Directive, env directive.Environment) *Extension {
	return &Extension{ctx: ctx, directive: d, env: env}
}

// Extend implements goldmark.Extender.
func (e *Extension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithASTTransformers(
		util.Prioritized(&umlTransformer{ext: e}, 500),
	))
}

// DirectiveError returns the first directive failure recorded during a parse,
// or nil. Transformers cannot return errors, so failures are parked in the
// parser context for the caller to check after conversion.
func DirectiveError(pc parser.Context) error {
	if v := pc.Get(directiveErrorKey); v != nil {
		return v.(error)
	}
	return nil
}

type umlTransformer struct {
	ext *Extension
}

// Transform replaces every uml fence with a paragraph of image nodes.
func (t *umlTransformer) Transform(doc *gmast.Document, reader text.Reader, pc parser.Context) {
	source := reader.Source()

	var fences []*gmast.FencedCodeBlock
	_ = gmast.Walk(doc, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if fc, ok := n.(*gmast.FencedCodeBlock); ok && bytes.Equal(fc.Language(source), umlLanguage) {
			fences = append(fences, fc)
		}
		return gmast.WalkContinue, nil
	})

	for _, fc := range fences {
		args := directiveArgs(fc, source)

		images, err := t.ext.directive.Run(t.ext.ctx, t.ext.env, args)
		if err != nil {
			if DirectiveError(pc) == nil {
				pc.Set(directiveErrorKey, err)
			}
			// Leave the fence in place so the failing source stays visible.
			continue
		}

		para := gmast.NewParagraph()
		for _, img := range images {
			node := gmast.NewImage(gmast.NewLink())
			node.Destination = []byte(img.Path)
			node.AppendChild(node, gmast.NewString([]byte(img.Alt)))
			para.AppendChild(para, node)
		}

		parent := fc.Parent()
		parent.ReplaceChild(parent, fc, para)
	}
}

// directiveArgs extracts directive arguments from the fence info string
// ("```uml mymodule :classes:") or, when absent there, from the first
// non-blank content line of the block.
func directiveArgs(fc *gmast.FencedCodeBlock, source []byte) []string {
	if fc.Info != nil {
		info := string(fc.Info.Segment.Value(source))
		fields := strings.Fields(info)
		if len(fields) > 1 {
			return fields[1:]
		}
	}

	lines := fc.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		line := strings.TrimSpace(string(seg.Value(source)))
		if line != "" {
			return strings.Fields(line)
		}
	}
	return nil
}
