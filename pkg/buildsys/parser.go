package buildsys

import (
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"runtime"

	"github.com/rotisserie/eris"
	"go.starlark.net/resolve"
	"go.starlark.net/starlark"

	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
)

type parserCtx struct {
	ctx         context.Context
	overrides   map[string]string
	yamlCache   map[string]interface{}
	filepath    string
	projectRoot string
	descriptor  *recipe.Descriptor
}

func init() {
	// recipes pick their requirements with top-level if statements
	resolve.AllowGlobalReassign = true
}

func getCtx(thread *starlark.Thread) *parserCtx {
	return thread.Local("parserCtx").(*parserCtx)
}

func info(thread *starlark.Thread, msg string, args ...interface{}) {
	ctx := getCtx(thread)
	pos := thread.CallFrame(1).Pos

	Log(ctx.ctx).Info().
		Msgf("%s:%d:%d: %s", simplifyPath(ctx, ctx.filepath), pos.Line, pos.Col, fmt.Sprintf(msg, args...))
}

func warn(thread *starlark.Thread, msg string, args ...interface{}) {
	ctx := getCtx(thread)
	pos := thread.CallFrame(1).Pos

	Log(ctx.ctx).Warn().
		Msgf("%s:%d:%d: %s", simplifyPath(ctx, ctx.filepath), pos.Line, pos.Col, fmt.Sprintf(msg, args...))
}

// * Builtin functions

// option returns the value passed on the command line for name or the given default
func option(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var defaultValue starlark.Value = starlark.None

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "name", &name, "default?", &defaultValue)
	if err != nil {
		return nil, err
	}

	value, ok := getCtx(thread).overrides[name]
	if ok {
		return starlark.String(recipe.NormalizeValue(value)), nil
	}

	return defaultValue, nil
}

func declareRecipe(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var topics, settings, requires, buildRequires, generators *starlark.List
	var options, defaultOptions, scm, cmakeVars *starlark.Dict

	d := new(recipe.Descriptor)
	err := starlark.UnpackArgs(fn.Name(), args, kwargs,
		"name", &d.Name,
		"license?", &d.License,
		"url?", &d.URL,
		"description?", &d.Description,
		"topics?", &topics,
		"settings?", &settings,
		"options?", &options,
		"default_options?", &defaultOptions,
		"requires?", &requires,
		"build_requires?", &buildRequires,
		"build_policy?", &d.BuildPolicy,
		"generators?", &generators,
		"scm?", &scm,
		"cmake_variables?", &cmakeVars,
	)
	if err != nil {
		return nil, err
	}

	ctx := getCtx(thread)
	if ctx.descriptor != nil {
		return nil, eris.Errorf("recipe %s was already declared", ctx.descriptor.Name)
	}

	if d.Topics, err = starlarkIterable2stringSlice(topics, "topics"); err != nil {
		return nil, err
	}
	if d.Settings, err = starlarkIterable2stringSlice(settings, "settings"); err != nil {
		return nil, err
	}
	if d.Generators, err = starlarkIterable2stringSlice(generators, "generators"); err != nil {
		return nil, err
	}

	rawRequires, err := starlarkIterable2stringSlice(requires, "requires")
	if err != nil {
		return nil, err
	}
	if d.Requires, err = recipe.ParseReferences(rawRequires); err != nil {
		return nil, err
	}

	rawBuildRequires, err := starlarkIterable2stringSlice(buildRequires, "build_requires")
	if err != nil {
		return nil, err
	}
	if d.BuildRequires, err = recipe.ParseReferences(rawBuildRequires); err != nil {
		return nil, err
	}

	d.Options = map[string]recipe.OptionDomain{}
	if options != nil {
		for _, item := range options.Items() {
			name, ok := item[0].(starlark.String)
			if !ok {
				return nil, eris.Errorf("option names have to be strings but found %s", item[0].Type())
			}

			list, ok := item[1].(starlarkIterable)
			if !ok {
				return nil, eris.Errorf("option %s: expected a list of legal values but found %s", name.GoString(), item[1].Type())
			}

			values := make([]interface{}, 0, list.Len())
			iter := list.Iterate()
			var value starlark.Value
			for iter.Next(&value) {
				converted, err := starlarkToInterface(value)
				if err != nil {
					iter.Done()
					return nil, eris.Wrapf(err, "option %s", name.GoString())
				}
				values = append(values, converted)
			}
			iter.Done()

			d.Options[name.GoString()] = recipe.Domain(values...)
		}
	}

	d.DefaultOptions = recipe.OptionValues{}
	if defaultOptions != nil {
		for _, item := range defaultOptions.Items() {
			name, ok := item[0].(starlark.String)
			if !ok {
				return nil, eris.Errorf("option names have to be strings but found %s", item[0].Type())
			}

			converted, err := starlarkToInterface(item[1])
			if err != nil {
				return nil, eris.Wrapf(err, "default for option %s", name.GoString())
			}
			d.DefaultOptions[name.GoString()] = recipe.NormalizeValue(converted)
		}
	}

	scmValues, err := starlarkDict2stringMap(scm, "scm")
	if err != nil {
		return nil, err
	}
	d.SCM = recipe.SCM{
		Type:      scmValues["type"],
		URL:       scmValues["url"],
		Revision:  scmValues["revision"],
		Submodule: scmValues["submodule"],
	}

	if d.CMakeVariables, err = starlarkDict2stringMap(cmakeVars, "cmake_variables"); err != nil {
		return nil, err
	}

	err = d.Validate()
	if err != nil {
		return nil, err
	}

	ctx.descriptor = d
	return starlark.None, nil
}

// LoadScript executes a Starlark recipe script and returns the descriptor it declared with recipe(). overrides
// are the option values passed on the command line; the script can read them with option().
func LoadScript(ctx context.Context, filename, projectRoot string, overrides map[string]string) (*recipe.Descriptor, error) {
	projectRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, err
	}

	filename, err = filepath.Abs(filename)
	if err != nil {
		return nil, err
	}

	builtins := starlark.StringDict{
		"OS":        starlark.String(runtime.GOOS),
		"ARCH":      starlark.String(runtime.GOARCH),
		"info":      starlark.NewBuiltin("info", starInfo),
		"warn":      starlark.NewBuiltin("warn", starWarn),
		"error":     starlark.NewBuiltin("error", starError),
		"option":    starlark.NewBuiltin("option", option),
		"getenv":    starlark.NewBuiltin("getenv", getenv),
		"read_yaml": starlark.NewBuiltin("read_yaml", readYaml),
		"isdir":     starlark.NewBuiltin("isdir", starIsdir),
		"isfile":    starlark.NewBuiltin("isfile", starIsfile),
		"execute":   starlark.NewBuiltin("execute", starExec),
		"recipe":    starlark.NewBuiltin("recipe", declareRecipe),
	}

	thread := &starlark.Thread{
		Name: "main",
		Print: func(thread *starlark.Thread, msg string) {
			Log(ctx).Info().Str("thread", thread.Name).Msg(msg)
		},
	}
	threadCtx := parserCtx{
		ctx:         ctx,
		filepath:    filename,
		projectRoot: projectRoot,
		overrides:   overrides,
		yamlCache:   make(map[string]interface{}),
	}
	thread.SetLocal("parserCtx", &threadCtx)

	script, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read file")
	}

	_, err = starlark.ExecFile(thread, simplifyPath(&threadCtx, filename), script, builtins)
	if err != nil {
		if evalError, ok := err.(*starlark.EvalError); ok {
			return nil, eris.Errorf("failed to execute %s:\n%s", simplifyPath(&threadCtx, filename), evalError.Backtrace())
		}
		return nil, eris.Wrap(err, "failed to execute")
	}

	if threadCtx.descriptor == nil {
		return nil, eris.Errorf("%s did not call recipe()", simplifyPath(&threadCtx, filename))
	}

	return threadCtx.descriptor, nil
}
