package buildsys

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.starlark.net/starlark"
	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/syntax"

	"github.com/adnn/glfwsandbox/build-tools/pkg/shell"
)

type builtinFunc = func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error)

// messageBuiltin returns a builtin that takes a single message; info, warn and error only differ in what they do
// with it.
func messageBuiltin(emit func(thread *starlark.Thread, message string) error) builtinFunc {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var message string
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &message); err != nil {
			return nil, err
		}

		if err := emit(thread, message); err != nil {
			return nil, err
		}
		return starlark.None, nil
	}
}

var (
	starInfo = messageBuiltin(func(thread *starlark.Thread, message string) error {
		info(thread, "%s", message)
		return nil
	})
	starWarn = messageBuiltin(func(thread *starlark.Thread, message string) error {
		warn(thread, "%s", message)
		return nil
	})
	starError = messageBuiltin(func(thread *starlark.Thread, message string) error {
		return eris.New(message)
	})
)

func getenv(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var defaultValue string

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &key, &defaultValue)
	if err != nil {
		return nil, err
	}

	value, ok := os.LookupEnv(key)
	if !ok {
		value = defaultValue
	}

	return starlark.String(value), nil
}

func readYaml(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var yamlFile string
	var yamlKey string
	var defaultValue starlark.Value = starlark.None

	err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 2, &yamlFile, &yamlKey, &defaultValue)
	if err != nil {
		return nil, err
	}

	yamlFile = normalizePath(getCtx(thread), yamlFile)

	cache := getCtx(thread).yamlCache
	doc, loaded := cache[yamlFile]
	if !loaded {
		content, err := ioutil.ReadFile(yamlFile)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to open file %s", yamlFile)
		}

		err = yaml.Unmarshal(content, &doc)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to parse file %s", yamlFile)
		}
		cache[yamlFile] = doc
	}

	// walk the dotted key
	value := reflect.ValueOf(doc)
	for _, key := range strings.Split(yamlKey, ".") {
		if value.Kind() == reflect.Interface {
			value = value.Elem()
		}

		switch value.Kind() {
		case reflect.Map:
			value = value.MapIndex(reflect.ValueOf(key))
		case reflect.Slice:
			idx, err := strconv.Atoi(key)
			if err != nil || idx < 0 || idx >= value.Len() {
				return defaultValue, nil
			}
			value = value.Index(idx)
		case reflect.Invalid:
			return defaultValue, nil
		default:
			return nil, eris.Errorf("encountered unexpected value of kind %v in YAML document", value.Kind())
		}
	}

	if !value.IsValid() || (value.Kind() == reflect.Interface && value.IsNil()) {
		return defaultValue, nil
	}

	return interfaceToStarlark(value.Interface())
}

// statBuiltin returns a builtin that reports whether the path relative to the recipe exists and passes check.
func statBuiltin(check func(os.FileInfo) bool) builtinFunc {
	return func(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		var path string
		if err := starlark.UnpackPositionalArgs(fn.Name(), args, kwargs, 1, &path); err != nil {
			return nil, err
		}

		fi, err := os.Stat(normalizePath(getCtx(thread), path))
		return starlark.Bool(err == nil && check(fi)), nil
	}
}

var (
	starIsdir  = statBuiltin(os.FileInfo.IsDir)
	starIsfile = statBuiltin(func(fi os.FileInfo) bool { return fi.Mode().IsRegular() })
)

// starExec runs a command and returns its output. Failing commands return False.
func starExec(thread *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var command starlark.Value
	var outputFormat string
	var showError bool

	err := starlark.UnpackArgs(fn.Name(), args, kwargs, "command", &command, "format?", &outputFormat, "show_error?", &showError)
	if err != nil {
		return nil, err
	}

	if outputFormat == "" {
		outputFormat = "text"
	}

	if outputFormat != "text" && outputFormat != "json" {
		return nil, eris.Errorf("unsupported format %s", outputFormat)
	}

	ctx := getCtx(thread)
	var shellCmd []syntax.Node

	switch command := command.(type) {
	case starlark.String:
		stmts, err := shell.Parse(fn.Name(), command.GoString())
		if err != nil {
			return nil, err
		}

		for _, stmt := range stmts {
			shellCmd = append(shellCmd, stmt)
		}
	case starlark.Tuple, *starlark.List:
		parts, err := starlarkIterable2stringSlice(command.(starlarkIterable), "command")
		if err != nil {
			return nil, err
		}

		shellCmd = []syntax.Node{shell.Call(parts...)}
	default:
		return nil, eris.Errorf("unexpected type %s for command parameter, only strings, lists and tuples are valid", command.Type())
	}

	outputBuffer := strings.Builder{}
	opts := shell.Options{
		Dir:    filepath.Dir(ctx.filepath),
		Stdout: &outputBuffer,
		Stderr: ioutil.Discard,
	}
	if showError {
		opts.Stderr = os.Stderr
	}

	runner, err := shell.NewRunner(opts)
	if err != nil {
		return nil, err
	}

	for _, cmd := range shellCmd {
		err := runner.Run(ctx.ctx, cmd)
		if err != nil {
			if showError {
				Log(ctx.ctx).Error().Err(err).Msg("shell error")
			}
			return starlark.False, nil
		}
	}

	if outputFormat == "json" {
		var decoded interface{}
		err = json.Unmarshal([]byte(outputBuffer.String()), &decoded)
		if err != nil {
			return nil, eris.Wrap(err, "failed to parse command output")
		}

		return interfaceToStarlark(decoded)
	}

	return starlark.String(outputBuffer.String()), nil
}
