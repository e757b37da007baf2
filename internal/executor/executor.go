package executor

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// PathPlaceholder is replaced with the quoted image path in a viewer command
const PathPlaceholder = "{path}"

// DefaultViewerCommand returns the platform's default file opener
func DefaultViewerCommand() string {
	switch runtime.GOOS {
	case "windows":
		return `start "" ` + PathPlaceholder
	case "darwin":
		return "open " + PathPlaceholder
	default:
		return "xdg-open " + PathPlaceholder
	}
}

// BuildCommand substitutes path into the viewer command template. The path
// is quoted for the shell. Without a placeholder the path is appended.
func BuildCommand(template, path string) string {
	quoted := quote(path)
	if strings.Contains(template, PathPlaceholder) {
		return strings.ReplaceAll(template, PathPlaceholder, quoted)
	}
	return strings.TrimSpace(template) + " " + quoted
}

func quote(s string) string {
	if runtime.GOOS == "windows" {
		return `"` + s + `"`
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Open shows the image at path with the viewer command template
func Open(template, path string) error {
	return OpenWithDebug(template, path, false)
}

// OpenWithDebug shows the image at path with optional debug logging
func OpenWithDebug(template, path string, debug bool) error {
	if path == "" {
		return fmt.Errorf("item has no image path")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("image not found: %w", err)
	}
	if template == "" {
		template = DefaultViewerCommand()
	}

	return ExecuteWithDebug(BuildCommand(template, path), debug)
}

// Execute runs a shell command
func Execute(command string) error {
	return ExecuteWithDebug(command, false)
}

// ExecuteWithDebug runs a shell command with optional debug logging
func ExecuteWithDebug(command string, debug bool) error {
	var cmd *exec.Cmd
	var shell string
	var shellArgs []string

	// Determine shell based on OS
	if runtime.GOOS == "windows" {
		shell = "cmd"
		shellArgs = []string{"/C", command}
		if debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Executor: using Windows cmd.exe\n")
		}
	} else {
		shell = os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/sh"
		}
		shellArgs = []string{"-c", command}
		if debug {
			fmt.Fprintf(os.Stderr, "[DEBUG] Executor: using shell %s\n", shell)
		}
	}

	if debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Executor: executing viewer: %q\n", command)
	}

	cmd = exec.Command(shell, shellArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		if debug {
			if exitError, ok := err.(*exec.ExitError); ok {
				fmt.Fprintf(os.Stderr, "[DEBUG] Executor: viewer failed with exit code %d\n", exitError.ExitCode())
			} else {
				fmt.Fprintf(os.Stderr, "[DEBUG] Executor: viewer failed: %v\n", err)
			}
		}
		return fmt.Errorf("viewer failed: %w", err)
	}

	if debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Executor: viewer exited successfully\n")
	}

	return nil
}
