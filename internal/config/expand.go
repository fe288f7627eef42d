package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandPath normalizes a user-supplied media path: a leading ~ or
// environment variable reference is expanded, relative paths resolve
// against $HOME, and the result is canonicalized best-effort.
func ExpandPath(path string) string {
	p := strings.TrimSpace(path)
	if p == "" {
		return ""
	}

	if expanded, ok := expandHomePrefix(p); ok {
		p = expanded
	}
	if expanded, ok := expandEnvPrefix(p); ok {
		p = expanded
	}

	if !filepath.IsAbs(p) {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p)
		} else if cwd, err := os.Getwd(); err == nil {
			p = filepath.Join(cwd, p)
		}
	}
	return canonicalizeBestEffort(p)
}

func expandHomePrefix(value string) (string, bool) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", false
	}
	if value == "~" {
		return home, true
	}
	if rest, ok := strings.CutPrefix(value, "~/"); ok {
		return filepath.Join(home, rest), true
	}
	return "", false
}

func expandEnvPrefix(value string) (string, bool) {
	if rest, ok := strings.CutPrefix(value, "${"); ok {
		end := strings.IndexByte(rest, '}')
		if end <= 0 {
			return "", false
		}
		val, set := os.LookupEnv(rest[:end])
		if !set {
			return "", false
		}
		return val + rest[end+1:], true
	}

	if rest, ok := strings.CutPrefix(value, "$"); ok {
		n := 0
		for _, ch := range rest {
			if ch == '_' || ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' {
				n += len(string(ch))
				continue
			}
			break
		}
		if n == 0 {
			return "", false
		}
		val, set := os.LookupEnv(rest[:n])
		if !set {
			return "", false
		}
		return val + rest[n:], true
	}
	return "", false
}

func canonicalizeBestEffort(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}
