package bundle

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
)

const jsMediaType = "application/javascript"

// Minifier shrinks one source file. name is used for error messages only.
type Minifier interface {
	Minify(name string, src []byte) ([]byte, error)
}

// MinifierFunc adapts a function to Minifier.
type MinifierFunc func(name string, src []byte) ([]byte, error)

func (f MinifierFunc) Minify(name string, src []byte) ([]byte, error) { return f(name, src) }

// JSMinifier minifies JavaScript with tdewolff/minify. It is safe for
// concurrent use.
type JSMinifier struct {
	m *minify.M
}

func NewJSMinifier() *JSMinifier {
	m := minify.New()
	m.AddFunc(jsMediaType, js.Minify)
	return &JSMinifier{m: m}
}

func (j *JSMinifier) Minify(_ string, src []byte) ([]byte, error) {
	return j.m.Bytes(jsMediaType, src)
}
