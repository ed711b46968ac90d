package recipe

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTool struct {
	calls        []string
	configureErr error
	buildErr     error
	installErr   error
	options      OptionValues
}

func (f *fakeTool) Configure(ctx context.Context, options OptionValues) error {
	f.calls = append(f.calls, "configure")
	f.options = options
	return f.configureErr
}

func (f *fakeTool) Build(ctx context.Context) error {
	f.calls = append(f.calls, "build")
	return f.buildErr
}

func (f *fakeTool) Install(ctx context.Context) error {
	f.calls = append(f.calls, "install")
	return f.installErr
}

func newTestRecipe(t *testing.T, tool *fakeTool) *CMakeRecipe {
	root := t.TempDir()
	r, err := NewCMakeRecipe(Glfwsandbox(), Layout{
		SourceDir:  root,
		BuildDir:   filepath.Join(root, "build"),
		PackageDir: filepath.Join(root, "package"),
	}, tool)
	require.NoError(t, err)
	return r
}

func TestNewCMakeRecipeValidates(t *testing.T) {
	d := Glfwsandbox()
	d.DefaultOptions["shared"] = "sometimes"

	_, err := NewCMakeRecipe(d, Layout{}, &fakeTool{})
	var verr *ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = NewCMakeRecipe(Glfwsandbox(), Layout{}, nil)
	assert.Error(t, err)
}

func TestConfigureChecksCppstd(t *testing.T) {
	r := newTestRecipe(t, &fakeTool{})
	ctx := context.Background()

	err := r.Configure(ctx, Settings{Compiler: "gcc", CompilerVersion: "10", Cppstd: "98"})
	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))

	assert.NoError(t, r.Configure(ctx, Settings{Compiler: "gcc", CompilerVersion: "10", Cppstd: "17"}))
}

func TestGenerateCreatesBuildDir(t *testing.T) {
	r := newTestRecipe(t, &fakeTool{})
	options, err := r.Descriptor.ResolveOptions(nil)
	require.NoError(t, err)

	require.NoError(t, r.Generate(context.Background(), options))
	assert.FileExists(t, filepath.Join(r.Layout.BuildDir, UserConfigFile))
}

func TestBuildRunsConfigureThenBuild(t *testing.T) {
	tool := &fakeTool{}
	r := newTestRecipe(t, tool)
	options := OptionValues{"build_tests": "False", "shared": "True", "visibility": "hidden"}

	require.NoError(t, r.Build(context.Background(), options))
	assert.Equal(t, []string{"configure", "build"}, tool.calls)
	assert.Equal(t, options, tool.options)
}

func TestBuildFailureSkipsInstall(t *testing.T) {
	stepErr := errors.New("exit status 2")
	tool := &fakeTool{buildErr: stepErr}
	r := newTestRecipe(t, tool)

	err := r.Build(context.Background(), OptionValues{})
	var berr *BuildError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, "build", berr.Step)
	assert.True(t, errors.Is(err, stepErr))
	assert.Equal(t, []string{"configure", "build"}, tool.calls)
}

func TestBuildConfigureFailure(t *testing.T) {
	tool := &fakeTool{configureErr: errors.New("no compiler")}
	r := newTestRecipe(t, tool)

	err := r.Build(context.Background(), OptionValues{})
	var berr *BuildError
	require.True(t, errors.As(err, &berr))
	assert.Equal(t, "configure", berr.Step)
	assert.Equal(t, []string{"configure"}, tool.calls)
}

func TestPackageFailure(t *testing.T) {
	tool := &fakeTool{installErr: errors.New("permission denied")}
	r := newTestRecipe(t, tool)

	err := r.Package(context.Background())
	var perr *PackagingError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, []string{"install"}, tool.calls)
}

func TestPackageInfoIsNoop(t *testing.T) {
	tool := &fakeTool{}
	r := newTestRecipe(t, tool)

	assert.NoError(t, r.PackageInfo(context.Background()))
	assert.Empty(t, tool.calls)
}
