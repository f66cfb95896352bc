// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"
	"unicode"
)

// =============================================================================
// SLASH LINES
// =============================================================================

// Slash is a parsed REPL line of the form "/name arg...".
type Slash struct {
	// Name includes the leading slash, e.g. "/cmd".
	Name string

	// Args are the whitespace-separated arguments, quotes honoured.
	Args []string

	// Rest is everything after the name with its spacing intact.
	Rest string
}

// ParseSlash parses input as a slash line. ok is false for ordinary text.
func ParseSlash(input string) (s Slash, ok bool) {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return Slash{}, false
	}

	s.Name = input
	if end := strings.IndexFunc(input, unicode.IsSpace); end >= 0 {
		s.Name = input[:end]
		s.Rest = strings.TrimSpace(input[end:])
	}
	s.Args = SplitArgs(s.Rest)
	return s, true
}

// Arg returns the i'th argument or "".
func (s Slash) Arg(i int) string {
	if i < len(s.Args) {
		return s.Args[i]
	}
	return ""
}

// After returns the raw text following the first n arguments.
func (s Slash) After(n int) string {
	rest := s.Rest
	for i := 0; i < n; i++ {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			return ""
		}
		rest = rest[end:]
	}
	return strings.TrimSpace(rest)
}

// SplitArgs splits a line into tokens. Single or double quotes group words;
// a backslash inside quotes escapes a quote or another backslash.
func SplitArgs(input string) []string {
	var tokens []string
	var current strings.Builder
	var inSingle, inDouble, started bool

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '\'' && !inDouble:
			inSingle = !inSingle
			started = true
		case r == '"' && !inSingle:
			inDouble = !inDouble
			started = true
		case r == '\\' && (inSingle || inDouble) && i+1 < len(runes) && strings.ContainsRune(`"'\`, runes[i+1]):
			current.WriteRune(runes[i+1])
			i++
		case unicode.IsSpace(r) && !inSingle && !inDouble:
			if started || current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
				started = false
			}
		default:
			current.WriteRune(r)
		}
	}
	if started || current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

// =============================================================================
// COMPLETION
// =============================================================================

// Complete returns completions for a partially typed REPL line. The slash
// name is completed from names; the first argument of "/cmd" is completed
// from the registry's IDs.
func Complete(line string, names []string, reg *Registry) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}

	name, partial, hasArg := strings.Cut(line, " ")
	if !hasArg {
		return withPrefix(names, name, "")
	}
	if name != "/cmd" || reg == nil || strings.Contains(partial, " ") {
		return nil
	}
	return withPrefix(reg.IDs(), partial, name+" ")
}

func withPrefix(candidates []string, prefix, lead string) []string {
	var out []string
	for _, c := range candidates {
		if strings.HasPrefix(c, prefix) {
			out = append(out, lead+c)
		}
	}
	sort.Strings(out)
	return out
}
