package recipe

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
)

// Recipe is the set of lifecycle hooks an orchestrator invokes, in this order: Configure, Generate, Build,
// Package, PackageInfo.
type Recipe interface {
	Configure(ctx context.Context, settings Settings) error
	Generate(ctx context.Context, options OptionValues) error
	Build(ctx context.Context, options OptionValues) error
	Package(ctx context.Context) error
	PackageInfo(ctx context.Context) error
}

// BuildTool is the delegated build system (i.e. CMake).
type BuildTool interface {
	Configure(ctx context.Context, options OptionValues) error
	Build(ctx context.Context) error
	Install(ctx context.Context) error
}

// Layout contains the directories a recipe works with.
type Layout struct {
	SourceDir  string
	BuildDir   string
	PackageDir string
}

// MinCppstd is the oldest C++ standard the sandbox compiles with.
const MinCppstd = "11"

// CMakeRecipe implements Recipe for a descriptor that delegates the actual work to a BuildTool.
type CMakeRecipe struct {
	Descriptor *Descriptor
	Layout     Layout
	Tool       BuildTool
}

var _ Recipe = (*CMakeRecipe)(nil)

// NewCMakeRecipe validates the descriptor and returns a recipe using it.
func NewCMakeRecipe(d *Descriptor, layout Layout, tool BuildTool) (*CMakeRecipe, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	if tool == nil {
		return nil, eris.New("no build tool configured")
	}

	return &CMakeRecipe{Descriptor: d, Layout: layout, Tool: tool}, nil
}

func (r *CMakeRecipe) Configure(ctx context.Context, settings Settings) error {
	return CheckMinCppstd(settings, MinCppstd)
}

func (r *CMakeRecipe) Generate(ctx context.Context, options OptionValues) error {
	err := os.MkdirAll(r.Layout.BuildDir, 0770)
	if err != nil {
		return eris.Wrapf(err, "failed to create build directory %s", r.Layout.BuildDir)
	}

	_, err = WriteUserConfig(r.Layout.BuildDir, r.Descriptor, options)
	return err
}

func (r *CMakeRecipe) Build(ctx context.Context, options OptionValues) error {
	err := r.Tool.Configure(ctx, options)
	if err != nil {
		return &BuildError{Step: "configure", Err: err}
	}

	err = r.Tool.Build(ctx)
	if err != nil {
		return &BuildError{Step: "build", Err: err}
	}

	return nil
}

func (r *CMakeRecipe) Package(ctx context.Context) error {
	err := r.Tool.Install(ctx)
	if err != nil {
		return &PackagingError{Err: err}
	}

	return nil
}

// PackageInfo exports nothing beyond what the build tool installs.
func (r *CMakeRecipe) PackageInfo(ctx context.Context) error {
	return nil
}
