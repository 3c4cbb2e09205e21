// Package render converts Graphviz DOT output into raster images for
// generator configurations that emit dot instead of png.
package render

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"
)

// DOTRenderer renders DOT graphs to PNG using the embedded Graphviz engine.
type DOTRenderer struct{}

// NewDOTRenderer returns a ready-to-use renderer.
func NewDOTRenderer() *DOTRenderer { return &DOTRenderer{} }

// PNG renders the given DOT source to PNG bytes.
func (DOTRenderer) PNG(ctx context.Context, dot []byte) ([]byte, error) {
	if len(bytes.TrimSpace(dot)) == 0 {
		return nil, fmt.Errorf("empty DOT input")
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes(dot)
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render DOT: %w", err)
	}
	return buf.Bytes(), nil
}

// PNGFile reads a DOT file and writes the rendered PNG next to it,
// returning the PNG path.
func (r DOTRenderer) PNGFile(ctx context.Context, dotPath, pngPath string) error {
	dot, err := os.ReadFile(dotPath)
	if err != nil {
		return fmt.Errorf("read DOT file: %w", err)
	}
	png, err := r.PNG(ctx, dot)
	if err != nil {
		return err
	}
	if err := os.WriteFile(pngPath, png, 0o644); err != nil {
		return fmt.Errorf("write PNG file: %w", err)
	}
	return nil
}
