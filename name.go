package bookzip

import "strings"

// normalizeName returns the catalog key for an entry path. Backslashes become
// forward slashes and any leading "./" segments are dropped, so "./OPS/a.xhtml"
// and "OPS\a.xhtml" both resolve to "OPS/a.xhtml". Nothing else is cleaned:
// ".." segments and a leading "/" are kept as written.
func normalizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	for strings.HasPrefix(name, "./") {
		name = name[2:]
	}
	return name
}
