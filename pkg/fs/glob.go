package fs

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/datalake-go/adlfs/pkg/protocol"
)

// Glob returns the paths matching pattern. "*" and "?" match within one
// path segment, "**" matches across segments. A pattern without
// metacharacters resolves to the path itself when it exists.
func (a *Fs) Glob(ctx context.Context, pattern string) ([]string, error) {
	pattern = StripProtocol(pattern)
	if !strings.ContainsAny(pattern, "*?[") {
		entry, err := a.Info(ctx, pattern)
		if err != nil {
			return []string{}, nil
		}
		return []string{entry.Name}, nil
	}

	re, err := globRegexp(pattern)
	if err != nil {
		return nil, err
	}

	entries, err := a.List(ctx, globPrefix(pattern), true)
	if err != nil {
		return nil, err
	}

	var matches []string
	for _, entry := range entries {
		if entry.Kind == protocol.KindFile && re.MatchString(entry.Name) {
			matches = append(matches, entry.Name)
		}
	}
	sort.Strings(matches)
	return matches, nil
}

// globPrefix returns the fixed directory prefix of pattern, the part that
// can be listed before matching starts.
func globPrefix(pattern string) string {
	meta := strings.IndexAny(pattern, "*?[")
	if meta < 0 {
		return pattern
	}
	slash := strings.LastIndex(pattern[:meta], "/")
	if slash < 0 {
		return ""
	}
	return pattern[:slash]
}

// globRegexp compiles a glob pattern to an anchored regexp.
func globRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}
