package sandbox

import (
	"fmt"
	pathpkg "path"
	"strings"
)

// TraversalError is returned by ResolvePath when the input escapes /workspace.
type TraversalError struct {
	Input    string
	Resolved string
}

func (e *TraversalError) Error() string {
	return fmt.Sprintf("path %q resolves outside the sandbox workspace. All paths must be within %s", e.Input, Workspace)
}

// ResolvePath normalizes path relative to /workspace and rejects anything
// that would land outside it. Relative paths are joined onto /workspace;
// absolute paths are cleaned in place. The containment check runs on the
// normalized form, never the raw input.
//
// The sandbox filesystem is always POSIX regardless of host OS, so this
// uses the "path" package (forward-slash semantics), not "path/filepath".
func ResolvePath(input string) (string, error) {
	var resolved string
	if strings.HasPrefix(input, "/") {
		resolved = pathpkg.Clean(input)
	} else {
		resolved = pathpkg.Clean(pathpkg.Join(Workspace, input))
	}

	if resolved != Workspace && !strings.HasPrefix(resolved, Workspace+"/") {
		return "", &TraversalError{Input: input, Resolved: resolved}
	}
	return resolved, nil
}
