// Package vpath resolves path expressions against a per-session virtual
// working directory, and tracks which directory each session is in.
//
// Resolution is not a lexical cleanup: only a leading "../" or a bare
// ".." climbs to the parent of the working directory, while ".." segments
// embedded deeper in an expression are kept verbatim. Results always use
// "/" as separator so they compare as plain strings.
package vpath

import (
	"strings"
)

// Resolve maps expr against the working directory cwd. It performs no
// I/O and never fails; validating the result against the filesystem is
// the caller's job.
//
// The rules, in order:
//  1. Drive-letter absolute expressions ("C:\x", "C:/x") are returned
//     with separators normalized, ignoring cwd.
//  2. Expressions starting with "/" are returned untouched.
//  3. A leading "./" is replaced with cwd.
//  4. A leading "../" is replaced with the parent of cwd.
//  5. A bare ".." resolves to the parent of cwd.
//  6. A bare "." resolves to cwd.
//  7. Anything else is joined onto cwd.
//
// Where no parent exists (cwd is a root or a single name), rules 4 and 5
// fall back to cwd itself.
func Resolve(expr string, cwd string) string {
	switch {
	case isDriveAbsolute(expr):
		return normalize(expr)
	case strings.HasPrefix(expr, "/"):
		return expr
	case strings.HasPrefix(expr, "./"):
		return normalize(join(cwd, expr[2:]))
	case strings.HasPrefix(expr, "../"):
		return normalize(join(parentOrSelf(cwd), expr[3:]))
	case expr == "..":
		return normalize(parentOrSelf(cwd))
	case expr == ".":
		return normalize(cwd)
	default:
		return normalize(join(cwd, expr))
	}
}

// Parent returns the parent directory of dir, or false when dir is a
// root ("/", "C:/") or a single name with nothing to climb to.
func Parent(dir string) (string, bool) {
	trimmed := strings.TrimRight(dir, "/")
	if trimmed == "" || isDriveName(trimmed) {
		return "", false
	}
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return "", false
	}
	if idx == 0 {
		return "/", true
	}
	parent := trimmed[:idx]
	if isDriveName(parent) {
		return parent + "/", true
	}
	return parent, true
}

func parentOrSelf(dir string) string {
	if parent, found := Parent(dir); found {
		return parent
	}
	return dir
}

func join(base string, rest string) string {
	if rest == "" {
		return base
	}
	if strings.HasSuffix(base, "/") {
		return base + rest
	}
	return base + "/" + rest
}

func normalize(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

func isDriveAbsolute(expr string) bool {
	return len(expr) >= 3 && isASCIILetter(expr[0]) && expr[1] == ':' && (expr[2] == '/' || expr[2] == '\\')
}

func isDriveName(s string) bool {
	return len(s) == 2 && s[1] == ':' && isASCIILetter(s[0])
}

func isASCIILetter(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}
