// Package git checks whether plaintext files written by lockpass are at risk
// of being committed.
//
// Checks performed for each file:
//   - Whether it sits inside a git work tree
//   - Whether it is tracked by git (should not be)
//   - Whether it is covered by .gitignore (should be)
//
// A vault export is unencrypted, so the CLI prints these warnings after
// writing one inside a repository.
package git
