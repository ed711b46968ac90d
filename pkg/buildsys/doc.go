// Package buildsys drives a recipe through its lifecycle. Recipes are declared either in Go, in YAML or in a
// Starlark script (recipe.star); commands run through mvdan.cc/sh so the same script works on every platform.
package buildsys
