package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/weave-lang/weave/pkg/emitter"
	"github.com/weave-lang/weave/pkg/format"
	"github.com/weave-lang/weave/pkg/lexer"
	"github.com/weave-lang/weave/pkg/parser"
	"github.com/weave-lang/weave/pkg/runtime"
)

// loadStory reads path and builds a runtime.Story from it, either by
// compiling weave source through the lexer/parser/emitter pipeline or,
// for a format the registry recognizes by extension, importing it
// directly. Either path produces the identical Story shape, so the
// engine below can't tell the two apart.
func loadStory(path string, formats *format.Registry, log *slog.Logger) (*runtime.Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read story file: %w", err)
	}

	if f := formats.ByExtension(filepath.Ext(path)); f != nil && f.CanImport(data) {
		return f.Import(data)
	}

	lx := lexer.New(path, string(data))
	tokens, bag := lx.Lex()
	if bag.HasErrors() {
		return nil, fmt.Errorf("lex %s: %s", path, bag.All()[0].Error())
	}

	p := parser.New(path, tokens)
	script, pbag := p.Parse()
	if pbag.HasErrors() {
		return nil, fmt.Errorf("parse %s: %s", path, pbag.All()[0].Error())
	}

	em := emitter.New(log)
	return em.Emit(script)
}
