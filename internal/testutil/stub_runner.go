// Package testutil provides shared helpers for exercising the diagram
// pipeline in tests without a real external generator installed.
package testutil

import (
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/umlgen/internal/generator"
)

// StubRunner is a generator.Runner that fabricates diagram artifacts on disk
// instead of shelling out. It always produces both diagram kinds, matching
// the external tool's behavior.
type StubRunner struct {
	Calls  int
	Fail   bool
	Output []byte
	Width  int // pixel width of fabricated PNGs, default 100
}

func (s *StubRunner) Generate(_ context.Context, dir, module, project, format string) ([]byte, error) {
	s.Calls++
	if s.Fail {
		return s.Output, &generator.RunError{Cmd: "stub", Output: s.Output, Err: errors.New("exit status 1")}
	}

	width := s.Width
	if width == 0 {
		width = 100
	}
	for _, kind := range []string{"classes", "packages"} {
		path := filepath.Join(dir, kind+"_"+project+"."+format)
		var err error
		switch format {
		case "png":
			err = WritePNG(path, width)
		case "dot":
			err = os.WriteFile(path, []byte("digraph G { a -> b; }\n"), 0o644)
		default:
			err = os.WriteFile(path, []byte(`<svg xmlns="http://www.w3.org/2000/svg"/>`+"\n"), 0o644)
		}
		if err != nil {
			return nil, err
		}
	}
	return []byte("stub output"), nil
}

// WritePNG writes a blank PNG of the given pixel width with a 2:1 aspect ratio.
func WritePNG(path string, width int) error {
	height := width / 2
	if height < 1 {
		height = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
