package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"ecbatch/internal/config"
	"ecbatch/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckDirectoryReadable verifies that an input directory exists and can be listed.
func CheckDirectoryReadable(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "read ok")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckSystemDeps evaluates the tool binaries required by scope. The status
// command and every batch command use this to avoid duplicating the
// requirements list.
func CheckSystemDeps(_ context.Context, cfg *config.Config, scope Scope) []deps.Status {
	var requirements []deps.Requirement
	if scope.Foldseek {
		requirements = append(requirements, deps.Requirement{
			Name:        "foldseek",
			Command:     cfg.Foldseek.Binary,
			Description: "Required for createdb and easy-search",
		})
	}
	if scope.Diamond {
		requirements = append(requirements, deps.Requirement{
			Name:        "diamond",
			Command:     cfg.Diamond.Binary,
			Description: "Required for blastp comparison",
			Optional:    scope.Foldseek,
		})
	}
	return deps.CheckBinaries(requirements)
}
