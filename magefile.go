//go:build mage
// +build mage

package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Builds both executables into ./bin
func Build() error {
	mg.Deps(BuildEmulator)
	mg.Deps(BuildValidate)
	fmt.Println("Compilation finished")
	return nil
}

func BuildEmulator() error {
	fmt.Println("Building emulator executable...")
	return goBuild("./bin/emulator", "./emulator", true)
}

func BuildValidate() error {
	fmt.Println("Building validate executable...")
	return goBuild("./bin/validate", "./validate", false)
}

// Runs the library tests, which do not need HDF5
func Test() error {
	fmt.Println("Running tests...")
	cmd := exec.Command("go", "test", "./pkg/...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func goBuild(output string, pkg string, cgo bool) error {
	cmd := exec.Command("go", "build", "-o", output, pkg)
	cmd.Env = os.Environ()
	if cgo {
		ldflags := os.Getenv("CGO_LDFLAGS")
		cflags := os.Getenv("CGO_CFLAGS")
		cmd.Env = append(cmd.Env,
			"CGO_ENABLED=1",
			fmt.Sprintf("CGO_LDFLAGS=%s", ldflags),
			fmt.Sprintf("CGO_CFLAGS=%s", cflags))
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
