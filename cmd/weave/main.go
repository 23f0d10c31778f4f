// weave is the command-line front end: compile a story to its
// transport JSON, lint a story for diagnostics only, or play it
// interactively at a terminal.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/weave-lang/weave/pkg/emitter"
	"github.com/weave-lang/weave/pkg/format"
	"github.com/weave-lang/weave/pkg/kernel"
	"github.com/weave-lang/weave/pkg/lexer"
	"github.com/weave-lang/weave/pkg/parser"
	"github.com/weave-lang/weave/pkg/runtime"
	"github.com/weave-lang/weave/pkg/source"
)

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "compile":
		err = runCompile(os.Args[2:], log)
	case "lint":
		err = runLint(os.Args[2:], log)
	case "run":
		err = runPlay(os.Args[2:], log)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: weave <compile|lint|run> <story-file> [flags]")
}

// compileScript lexes, parses and emits path, returning the diagnostics
// bag alongside the Story so callers can decide how to react to
// recoverable errors (lint wants to print them all; compile/run want to
// fail on the first one).
func compileScript(path string) (*runtime.Story, *source.Bag, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	lx := lexer.New(path, string(src))
	tokens, bag := lx.Lex()
	if bag.HasErrors() {
		return nil, bag, nil
	}

	p := parser.New(path, tokens)
	script, pbag := p.Parse()
	bag = mergeBags(bag, pbag)
	if bag.HasErrors() {
		return nil, bag, nil
	}

	em := emitter.New(slog.Default())
	story, err := em.Emit(script)
	if err != nil {
		return nil, bag, err
	}
	return story, bag, nil
}

func mergeBags(a, b *source.Bag) *source.Bag {
	merged := &source.Bag{}
	for _, d := range a.All() {
		merged.Add(d)
	}
	for _, d := range b.All() {
		merged.Add(d)
	}
	return merged
}

func runLint(args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("lint", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("lint requires a story file argument")
	}
	path := fs.Arg(0)

	_, bag, err := compileScript(path)
	if err != nil {
		return err
	}
	for _, d := range bag.All() {
		fmt.Fprintln(os.Stdout, d.Error())
	}
	if bag.HasErrors() {
		return fmt.Errorf("%d diagnostic(s)", len(bag.All()))
	}
	fmt.Fprintln(os.Stdout, "ok")
	return nil
}

func runCompile(args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	out := fs.String("out", "", "output path (defaults to stdout)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("compile requires a story file argument")
	}
	path := fs.Arg(0)

	story, bag, err := compileScript(path)
	if err != nil {
		return err
	}
	if bag.HasErrors() {
		for _, d := range bag.All() {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		return fmt.Errorf("compilation failed with %d diagnostic(s)", len(bag.All()))
	}

	exported, err := format.InkJSON{}.Export(story)
	if err != nil {
		return err
	}

	if *out == "" {
		fmt.Fprintln(os.Stdout, exported)
		return nil
	}
	return os.WriteFile(*out, []byte(exported), 0644)
}

func runPlay(args []string, log *slog.Logger) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	knot := fs.String("start", "", "passage to start from (defaults to the story's start passage)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("run requires a story file argument")
	}
	path := fs.Arg(0)

	story, bag, err := compileScript(path)
	if err != nil {
		return err
	}
	if bag.HasErrors() {
		for _, d := range bag.All() {
			fmt.Fprintln(os.Stderr, d.Error())
		}
		return fmt.Errorf("compilation failed with %d diagnostic(s)", len(bag.All()))
	}

	bus := kernel.NewBus(log)
	engine := runtime.NewEngine(bus, log)
	if err := engine.Load(story); err != nil {
		return err
	}
	if err := engine.Start(*knot); err != nil {
		return err
	}

	stdin := bufio.NewScanner(os.Stdin)
	for !engine.HasEnded() {
		for engine.CanContinue() {
			text, _, err := engine.Continue()
			if err != nil {
				return err
			}
			if text != "" {
				fmt.Fprintln(os.Stdout, text)
			}
		}
		if engine.HasEnded() {
			break
		}

		choices, err := engine.GetChoices()
		if err != nil {
			return err
		}
		if len(choices) == 0 {
			return fmt.Errorf("awaiting choice but none presented")
		}
		for i, c := range choices {
			text, err := engine.ChoiceText(c)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%d) %s\n", i+1, text)
		}

		fmt.Fprint(os.Stdout, "> ")
		if !stdin.Scan() {
			return nil
		}
		choice, ok := parseChoiceSelection(stdin.Text(), choices)
		if !ok {
			fmt.Fprintln(os.Stderr, "not a valid choice, try again")
			continue
		}
		if err := engine.MakeChoice(choice.Index); err != nil {
			return err
		}
	}
	return nil
}

func parseChoiceSelection(input string, choices []*runtime.Choice) (*runtime.Choice, bool) {
	var n int
	if _, err := fmt.Sscanf(input, "%d", &n); err != nil {
		return nil, false
	}
	if n < 1 || n > len(choices) {
		return nil, false
	}
	return choices[n-1], true
}

