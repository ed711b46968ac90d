package main

import "github.com/adnn/glfwsandbox/build-tools/cmd"

func main() {
	cmd.Execute()
}
