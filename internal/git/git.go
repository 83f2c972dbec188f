package git

import (
	"fmt"
	"os/exec"
	"strings"
)

// Exposure describes how plaintext files relate to the enclosing git work tree.
type Exposure struct {
	IsRepo    bool
	Tracked   []string // tracked by git (bad)
	Unignored []string // not in .gitignore (warning)
	Ignored   []string // in .gitignore (good)
}

// Available reports whether a git binary can be found.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(workDir string) bool {
	cmd := exec.Command("git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	err := cmd.Run()
	return err == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(workDir, path string) bool {
	cmd := exec.Command("git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()

	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(workDir, path string) bool {
	cmd := exec.Command("git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir
	err := cmd.Run()

	// git check-ignore returns exit code 0 if file is ignored
	return err == nil
}

// CheckExposure inspects files, given relative to workDir. Outside a
// repository, or without git installed, it reports IsRepo false.
func CheckExposure(workDir string, files []string) *Exposure {
	e := &Exposure{}
	if !Available() || !IsGitRepo(workDir) {
		return e
	}
	e.IsRepo = true

	for _, file := range files {
		if IsTracked(workDir, file) {
			e.Tracked = append(e.Tracked, file)
		}
		if IsIgnored(workDir, file) {
			e.Ignored = append(e.Ignored, file)
		} else {
			e.Unignored = append(e.Unignored, file)
		}
	}
	return e
}

// Risky reports whether any file could end up in a commit.
func (e *Exposure) Risky() bool {
	return len(e.Tracked) > 0 || len(e.Unignored) > 0
}

// FormatExposure formats the exposure check for display
func FormatExposure(e *Exposure) string {
	if !e.IsRepo || !e.Risky() {
		return ""
	}

	var result strings.Builder
	result.WriteString("\nGit exposure:\n")

	trackedSet := make(map[string]bool, len(e.Tracked))
	for _, file := range e.Tracked {
		trackedSet[file] = true
		result.WriteString(fmt.Sprintf("   error: %s is tracked by git (run: git rm --cached %s)\n", file, file))
	}
	for _, file := range e.Unignored {
		if !trackedSet[file] {
			result.WriteString(fmt.Sprintf("   warning: %s contains plaintext secrets and is not in .gitignore\n", file))
		}
	}

	return result.String()
}
