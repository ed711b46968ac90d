package recipe

// Glfwsandbox returns the descriptor of the GLFW sandbox application.
func Glfwsandbox() *Descriptor {
	return &Descriptor{
		Name:        "glfwsandbox",
		License:     "MIT License",
		URL:         "https://github.com/Adnn/glfwsandbox",
		Description: "Prototype and investigate GLFW usage.",
		Settings:    []string{"os", "compiler", "build_type", "arch"},
		Options: map[string]OptionDomain{
			"build_tests": Domain(true, false),
			"shared":      Domain(true, false),
			"visibility":  Domain("default", "hidden"),
		},
		DefaultOptions: OptionValues{
			"build_tests": "False",
			"shared":      "False",
			"visibility":  "hidden",
		},
		Requires: []Reference{
			MustParseReference("glad/0.1.34"),
			MustParseReference("glfw/3.3.6"),
		},
		BuildRequires: []Reference{
			MustParseReference("cmake/3.22.0"),
		},
		BuildPolicy: "missing",
		Generators:  []string{"cmake_paths", "cmake_find_package", "CMakeToolchain"},
		SCM: SCM{
			Type:      "git",
			URL:       Auto,
			Revision:  Auto,
			Submodule: "recursive",
		},
		CMakeVariables: map[string]string{
			"build_tests": "BUILD_tests",
		},
	}
}
