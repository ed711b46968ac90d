// Package config loads the build profile: platform settings, directory layout and CMake invocation details.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigtoml"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"github.com/adnn/glfwsandbox/build-tools/pkg/recipe"
)

// DefaultFile is the profile looked up in the working directory when none is passed explicitly.
const DefaultFile = "profile.toml"

// Profile describes all configuration options
type Profile struct {
	Settings struct {
		OS              string `toml:"os" env:"OS" usage:"Target operating system (Linux, Windows, Macos)"`
		Arch            string `toml:"arch" env:"ARCH" usage:"Target architecture (x86_64, armv8)"`
		Compiler        string `toml:"compiler" env:"COMPILER"`
		CompilerVersion string `toml:"compiler_version" env:"COMPILER_VERSION"`
		Cppstd          string `toml:"cppstd" env:"CPPSTD" usage:"C++ standard, empty means the compiler default"`
		BuildType       string `toml:"build_type" env:"BUILD_TYPE" default:"Release"`
	} `toml:"settings" env:"SETTINGS"`
	Layout struct {
		SourceDir  string `toml:"source_dir" env:"SOURCE_DIR" default:"."`
		BuildDir   string `toml:"build_dir" env:"BUILD_DIR" default:"build"`
		PackageDir string `toml:"package_dir" env:"PACKAGE_DIR" default:"package"`
	} `toml:"layout" env:"LAYOUT"`
	CMake struct {
		Program   string `toml:"program" env:"PROGRAM" default:"cmake"`
		Generator string `toml:"generator" env:"GENERATOR"`
		Parallel  int    `toml:"parallel" env:"PARALLEL" default:"0" usage:"Parallel build jobs, 0 lets the generator decide"`
	} `toml:"cmake" env:"CMAKE"`
	Log struct {
		Level string `toml:"level" env:"LEVEL" default:"info"`
		JSON  bool   `toml:"json" env:"JSON" default:"false" usage:"Output JSONND instead of pretty console messages"`
	} `toml:"log" env:"LOG"`
}

var logLevels = map[string]zerolog.Level{
	"debug":   zerolog.DebugLevel,
	"info":    zerolog.InfoLevel,
	"warn":    zerolog.WarnLevel,
	"warning": zerolog.WarnLevel,
	"error":   zerolog.ErrorLevel,
	"fatal":   zerolog.FatalLevel,
}

var buildTypes = map[string]bool{
	"Debug":          true,
	"Release":        true,
	"RelWithDebInfo": true,
	"MinSizeRel":     true,
}

// Loader initializes an empty profile and returns a new Loader for it. Command line flags are handled by cobra,
// so the loader only reads defaults, the profile file and RECIPE_* environment variables.
func Loader(file string) (*Profile, *aconfig.Loader) {
	cfg := Profile{}
	return &cfg, aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "RECIPE",
		SkipFlags: true,
		Files:     []string{file},
		FileDecoders: map[string]aconfig.FileDecoder{
			".toml": aconfigtoml.New(),
		},
	})
}

// Load reads the profile from file. A missing file is only an error if explicit is set.
func Load(file string, explicit bool) (*Profile, error) {
	if file == "" {
		file = DefaultFile
	}

	if explicit {
		if _, err := os.Stat(file); err != nil {
			return nil, eris.Wrapf(err, "failed to open profile %s", file)
		}
	}

	cfg, loader := Loader(file)
	if err := loader.Load(); err != nil {
		return nil, eris.Wrapf(err, "failed to load profile %s", file)
	}

	cfg.detectPlatform()
	return cfg, nil
}

// detectPlatform fills in the host platform for settings the profile left empty
func (cfg *Profile) detectPlatform() {
	s := &cfg.Settings
	if s.OS == "" {
		switch runtime.GOOS {
		case "windows":
			s.OS = "Windows"
		case "darwin":
			s.OS = "Macos"
		case "linux":
			s.OS = "Linux"
		default:
			s.OS = runtime.GOOS
		}
	}

	if s.Arch == "" {
		switch runtime.GOARCH {
		case "amd64":
			s.Arch = "x86_64"
		case "386":
			s.Arch = "x86"
		case "arm64":
			s.Arch = "armv8"
		default:
			s.Arch = runtime.GOARCH
		}
	}

	if s.Compiler == "" {
		switch s.OS {
		case "Windows":
			s.Compiler = "msvc"
			s.CompilerVersion = "193"
		case "Macos":
			s.Compiler = "apple-clang"
			s.CompilerVersion = "13"
			// apple-clang still defaults to gnu98
			if s.Cppstd == "" {
				s.Cppstd = "gnu17"
			}
		default:
			s.Compiler = "gcc"
			s.CompilerVersion = "11"
		}
	}
}

// Apply overrides settings with -s key=value assignments. Both flat (compiler_version) and dotted
// (compiler.version) keys are accepted.
func (cfg *Profile) Apply(assignments map[string]string) error {
	s := &cfg.Settings
	keys := make([]string, 0, len(assignments))
	for key := range assignments {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := assignments[key]
		switch key {
		case "os":
			s.OS = value
		case "arch":
			s.Arch = value
		case "compiler":
			s.Compiler = value
		case "compiler.version", "compiler_version":
			s.CompilerVersion = value
		case "compiler.cppstd", "cppstd":
			s.Cppstd = value
		case "build_type":
			s.BuildType = value
		case "cmake.generator":
			cfg.CMake.Generator = value
		case "cmake.parallel":
			num, err := strconv.Atoi(value)
			if err != nil {
				return eris.Wrapf(err, "invalid value for cmake.parallel: %s", value)
			}
			cfg.CMake.Parallel = num
		default:
			return eris.Errorf("unknown setting %s", key)
		}
	}

	return nil
}

// Validate verifies that all config fields have valid values
func (cfg *Profile) Validate() error {
	_, ok := logLevels[cfg.Log.Level]
	if !ok {
		return eris.Errorf(`Invalid value for log.level: %s`, cfg.Log.Level)
	}

	if !buildTypes[cfg.Settings.BuildType] {
		return eris.Errorf(`Invalid value for settings.build_type: %s (must be one of Debug, Release, RelWithDebInfo or MinSizeRel)`, cfg.Settings.BuildType)
	}

	if cfg.CMake.Parallel < 0 {
		return eris.Errorf(`Invalid value for cmake.parallel: %d`, cfg.CMake.Parallel)
	}

	if cfg.Layout.BuildDir == "" || cfg.Layout.PackageDir == "" {
		return eris.New(`layout.build_dir and layout.package_dir can't be empty`)
	}

	return nil
}

// LogLevel converts the .Log.Level field to a zerolog.Level
func (cfg *Profile) LogLevel() zerolog.Level {
	return logLevels[cfg.Log.Level]
}

// RecipeSettings returns the platform settings in the form the recipe hooks expect.
func (cfg *Profile) RecipeSettings() recipe.Settings {
	s := cfg.Settings
	return recipe.Settings{
		OS:              s.OS,
		Arch:            s.Arch,
		Compiler:        s.Compiler,
		CompilerVersion: s.CompilerVersion,
		Cppstd:          s.Cppstd,
		BuildType:       s.BuildType,
	}
}

// RecipeLayout resolves the layout directories relative to root.
func (cfg *Profile) RecipeLayout(root string) recipe.Layout {
	resolve := func(dir string) string {
		if filepath.IsAbs(dir) {
			return filepath.Clean(dir)
		}
		return filepath.Join(root, dir)
	}

	return recipe.Layout{
		SourceDir:  resolve(cfg.Layout.SourceDir),
		BuildDir:   resolve(cfg.Layout.BuildDir),
		PackageDir: resolve(cfg.Layout.PackageDir),
	}
}
