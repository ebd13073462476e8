package warehouse

import (
	"fmt"
	"regexp"
	"strings"
)

const identPart = "(?:`[^`]*`|[A-Za-z_][A-Za-z0-9_]*)"

var (
	quotedLiteralPattern = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"`)
	lineCommentPattern   = regexp.MustCompile(`--[^\n]*`)
	blockCommentPattern  = regexp.MustCompile(`(?s)/\*.*?\*/`)
	identPartPattern     = regexp.MustCompile(identPart)
	tableKeywordPattern  = regexp.MustCompile(`(?i)\b(?:FROM|JOIN|INTO|UPDATE|TABLE)\s+`)
	leadingRefPattern    = regexp.MustCompile(`^` + identPart + `(?:\s*\.\s*` + identPart + `)*`)
	aliasPattern         = regexp.MustCompile(`(?i)^\s+(?:AS\s+)?` + identPart)
	listSepPattern       = regexp.MustCompile(`^\s*,\s*`)
)

// QuoteIdentifier quotes a single identifier part with backticks.
func QuoteIdentifier(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

// TwoPartReferences returns the distinct schema.table references that follow
// FROM, JOIN, INTO, UPDATE or TABLE in the query, including every item of a
// comma separated FROM list, in order of appearance. String literals and
// comments are ignored.
func TwoPartReferences(query string) []string {
	stripped := blockCommentPattern.ReplaceAllString(query, " ")
	stripped = lineCommentPattern.ReplaceAllString(stripped, " ")
	stripped = quotedLiteralPattern.ReplaceAllString(stripped, "''")

	var refs []string
	seen := make(map[string]struct{})
	add := func(name string) {
		parts := identPartPattern.FindAllString(name, -1)
		if len(parts) != 2 {
			return
		}
		ref := parts[0] + "." + parts[1]
		if _, ok := seen[ref]; ok {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	for _, loc := range tableKeywordPattern.FindAllStringIndex(stripped, -1) {
		// Walk comma separated FROM items: name [[AS] alias], name ...
		rest := stripped[loc[1]:]
		for {
			name := leadingRefPattern.FindString(rest)
			if name == "" {
				break
			}
			add(name)
			rest = rest[len(name):]
			if alias := aliasPattern.FindString(rest); alias != "" {
				rest = rest[len(alias):]
			}
			sep := listSepPattern.FindString(rest)
			if sep == "" {
				break
			}
			rest = rest[len(sep):]
		}
	}
	return refs
}

// NamingHint returns a corrective hint for a failed query when it uses
// two-part names, or when the engine reported a missing object. It returns an
// empty string when no hint applies.
func NamingHint(query, defaultCatalog string, notFound bool) string {
	refs := TwoPartReferences(query)
	if len(refs) > 0 {
		catalog := defaultCatalog
		if catalog == "" {
			catalog = "<catalog>"
		}
		suggestions := make([]string, len(refs))
		for i, ref := range refs {
			suggestions[i] = catalog + "." + ref
		}
		return fmt.Sprintf("Unity Catalog requires three-part table names (catalog.schema.table); the query uses %s, try %s",
			strings.Join(refs, ", "), strings.Join(suggestions, ", "))
	}
	if notFound {
		return "Unity Catalog requires three-part table names (catalog.schema.table), for example SELECT * FROM main.default.users"
	}
	return ""
}
