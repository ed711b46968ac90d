// Package shell wraps mvdan.cc/sh so commands behave the same on every platform. Commands are built as syntax
// trees instead of strings, which avoids quoting issues with paths that contain spaces or backslashes.
package shell

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/rotisserie/eris"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Word turns a single argument into a shell word. Values with special characters are single-quoted.
func Word(value string) *syntax.Word {
	var part syntax.WordPart

	switch {
	case strings.Contains(value, "'"):
		// single quotes can't be escaped inside single quotes, fall back to double quotes
		part = &syntax.DblQuoted{Parts: []syntax.WordPart{&syntax.Lit{Value: escapeDouble(value)}}}
	case value == "" || strings.ContainsAny(value, " \t\n$\"\\;&|<>()*?[]{}#~`"):
		part = &syntax.SglQuoted{Value: value}
	default:
		part = &syntax.Lit{Value: value}
	}

	return &syntax.Word{Parts: []syntax.WordPart{part}}
}

func escapeDouble(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "$", `\$`, "`", "\\`")
	return replacer.Replace(value)
}

// Call builds a simple command from its arguments.
func Call(args ...string) *syntax.CallExpr {
	cmd := &syntax.CallExpr{Args: make([]*syntax.Word, len(args))}
	for idx, arg := range args {
		cmd.Args[idx] = Word(arg)
	}
	return cmd
}

// Render prints a node the way it would be typed into a shell.
func Render(node syntax.Node) string {
	buffer := strings.Builder{}
	printer := syntax.NewPrinter(syntax.Minify(true))
	err := printer.Print(&buffer, node)
	if err != nil {
		return fmt.Sprintf("<unprintable: %v>", err)
	}
	return strings.TrimSpace(buffer.String())
}

// Parse parses a script snippet into statements. name is only used for error messages.
func Parse(name, script string) ([]*syntax.Stmt, error) {
	result, err := syntax.NewParser().Parse(strings.NewReader(script), name)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse command %s", script)
	}
	return result.Stmts, nil
}

// Environ merges the process environment with overrides. Overridden entries replace the original ones.
func Environ(overrides map[string]string) []string {
	osEnv := os.Environ()
	result := make([]string, 0, len(osEnv)+len(overrides))
	for _, item := range osEnv {
		parts := strings.SplitN(item, "=", 2)
		key := parts[0]
		if runtime.GOOS == "windows" {
			key = strings.ToUpper(key)
		}

		// skip overriden entries to avoid conflicts
		if _, present := overrides[key]; !present {
			result = append(result, item)
		}
	}

	for k, v := range overrides {
		result = append(result, k+"="+v)
	}

	return result
}

// Options configure a Runner.
type Options struct {
	Dir    string
	Env    map[string]string
	Stdout io.Writer
	Stderr io.Writer
}

// NewRunner returns an interpreter that stops at the first failing command.
func NewRunner(opts Options) (*interp.Runner, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	runner, err := interp.New(
		interp.Dir(opts.Dir),
		interp.Env(expand.ListEnviron(Environ(opts.Env)...)),
		interp.ExecHandler(execHandler),
		interp.OpenHandler(openHandler),
		interp.StdIO(nil, opts.Stdout, opts.Stderr),
		interp.Params("-e"),
	)
	if err != nil {
		return nil, eris.Wrap(err, "failed to initialize runner")
	}
	return runner, nil
}

// ExitStatus extracts the exit status from an error returned by the interpreter.
func ExitStatus(err error) (uint8, bool) {
	if err == nil {
		return 0, true
	}
	return interp.IsExitStatus(err)
}

var defaultExecHandler = interp.DefaultExecHandler(2)

func execHandler(ctx context.Context, args []string) error {
	if len(args) > 0 {
		hc := interp.HandlerCtx(ctx)

		// always use our cross-platform implementation for these operations to make sure
		// they behave consistently
		var err error
		switch args[0] {
		case "mv":
			err = runMove(hc.Dir, args[1:])
		case "rm":
			err = runRemove(hc.Dir, args[1:])
		case "mkdir":
			err = runMakeDir(hc.Dir, args[1:])
		default:
			return defaultExecHandler(ctx, args)
		}

		if err != nil {
			fmt.Fprintf(hc.Stderr, "%s: %v\n", args[0], err)
			return interp.NewExitStatus(1)
		}
		return nil
	}

	return defaultExecHandler(ctx, args)
}

var defaultOpenHandler = interp.DefaultOpenHandler()

func openHandler(ctx context.Context, path string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	if path == "/dev/null" {
		path = os.DevNull
	}

	return defaultOpenHandler(ctx, path, flag, perm)
}
