// Package revision resolves the current commit hash of the git repository
// containing a directory, without shelling out to git. It understands
// symbolic refs, detached HEADs, packed refs and worktree gitdir files.
package revision

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ShortLen is the length of the short hash appended to identifiers. Twelve
// hex digits is comfortably collision-free for any tree this tool targets.
const ShortLen = 12

// Short returns the abbreviated commit hash of the repository containing dir.
func Short(dir string) (string, error) {
	full, err := Head(dir)
	if err != nil {
		return "", err
	}
	if len(full) < ShortLen {
		return full, nil
	}
	return full[:ShortLen], nil
}

// Head returns the full commit hash that HEAD points at for the repository
// containing dir. dir may be anywhere inside the work tree.
func Head(dir string) (string, error) {
	gitDir, err := findGitDir(dir)
	if err != nil {
		return "", err
	}

	head, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return "", fmt.Errorf("revision: read HEAD: %w", err)
	}
	line := strings.TrimSpace(string(head))

	ref, ok := strings.CutPrefix(line, "ref: ")
	if !ok {
		// Detached HEAD holds the hash directly.
		return validHash(line)
	}

	// Loose ref first, packed-refs as fallback.
	if data, err := os.ReadFile(filepath.Join(gitDir, filepath.FromSlash(ref))); err == nil {
		return validHash(strings.TrimSpace(string(data)))
	}
	return packedRef(gitDir, ref)
}

// findGitDir walks upward from dir until it finds a .git entry. A .git file
// (linked worktree) is followed to its gitdir.
func findGitDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("revision: resolve dir: %w", err)
	}
	for {
		candidate := filepath.Join(abs, ".git")
		info, statErr := os.Stat(candidate)
		if statErr == nil {
			if info.IsDir() {
				return candidate, nil
			}
			return linkedGitDir(candidate)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("revision: no git repository found above %s", dir)
		}
		abs = parent
	}
}

// linkedGitDir resolves a .git file of the form "gitdir: <path>".
func linkedGitDir(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("revision: read gitdir link: %w", err)
	}
	target, ok := strings.CutPrefix(strings.TrimSpace(string(data)), "gitdir: ")
	if !ok {
		return "", fmt.Errorf("revision: malformed gitdir link: %s", path)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(path), target)
	}
	return filepath.Clean(target), nil
}

// packedRef scans .git/packed-refs for the given fully-qualified ref.
func packedRef(gitDir, ref string) (string, error) {
	f, err := os.Open(filepath.Join(gitDir, "packed-refs"))
	if err != nil {
		return "", fmt.Errorf("revision: ref %s not found and no packed-refs: %w", ref, err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Bytes()
		if len(line) == 0 || line[0] == '#' || line[0] == '^' {
			continue
		}
		hash, name, ok := bytes.Cut(line, []byte{' '})
		if !ok {
			continue
		}
		if string(name) == ref {
			return validHash(string(hash))
		}
	}
	if err := s.Err(); err != nil {
		return "", fmt.Errorf("revision: scan packed-refs: %w", err)
	}
	return "", fmt.Errorf("revision: ref %s not found", ref)
}

func validHash(s string) (string, error) {
	if len(s) < 40 {
		return "", fmt.Errorf("revision: malformed hash: %q", s)
	}
	for _, c := range s {
		if !strings.ContainsRune("0123456789abcdef", c) {
			return "", fmt.Errorf("revision: malformed hash: %q", s)
		}
	}
	return s, nil
}
