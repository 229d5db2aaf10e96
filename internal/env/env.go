// Package env contains functions that retrieve configuration from the
// environment
package env

import (
	"io/fs"
	"os"
	"strings"
)

// Lookup resolves a configuration key to its value. An empty string means the
// key is unset.
type Lookup func(key string) string

// Getenv retrieves the value of the environment variable named by the key,
// honouring the `_FILE` convention described in [FS]. Files are resolved from
// the root of the local filesystem.
func Getenv(key string) string {
	return FS(os.DirFS("/"), os.Getenv)(key)
}

// FS returns a Lookup which reads values with getenv. If the variable is
// unset, but the same variable ending in `_FILE` is set, the referenced file
// (resolved from fsys) will be read into the value, with surrounding
// whitespace trimmed. Unreadable files resolve to an empty string.
func FS(fsys fs.FS, getenv func(string) string) Lookup {
	return func(key string) string {
		val := getenv(key)
		if val != "" {
			return val
		}

		p := getenv(key + "_FILE")
		if p == "" {
			return ""
		}

		p = strings.TrimPrefix(p, "/")

		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return ""
		}

		return strings.TrimSpace(string(b))
	}
}

// Map returns a Lookup backed by vals, with the same `_FILE` fallback as [FS]
// when fsys is non-nil. Intended for tests and embedding applications that
// don't want to touch process state.
func Map(vals map[string]string, fsys fs.FS) Lookup {
	get := func(key string) string { return vals[key] }
	if fsys == nil {
		return get
	}

	return FS(fsys, get)
}
