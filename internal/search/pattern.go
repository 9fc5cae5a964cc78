package search

import (
	"regexp"
	"regexp/syntax"
	"unicode"
	"unicode/utf8"
)

// PatternOptions controls how Compile builds a Pattern from a raw
// expression: the same knobs as readerGrep/compile:
// literal vs. regexp, whole-word matching, and case sensitivity.
type PatternOptions struct {
	IsRegExp        bool
	IsWordMatch     bool
	IsCaseSensitive bool
}

// Pattern is an immutable compiled regular expression plus the options used
// to build it. Each worker clones its own Pattern via Clone because
// *regexp.Regexp carries match-time scratch state that is not safe for
// concurrent Find/FindAllIndex calls; cloning preserves semantics while
// avoiding shared mutable state.
type Pattern struct {
	re         *regexp.Regexp
	ignoreCase bool
}

// Compile builds a Pattern for expr under opts. Mirrors compile() in
// cmd/searcher/search/matcher.go: literal patterns are quoted, word
// matches wrapped in \b, and case-insensitive search is implemented by
// lowercasing both pattern and input rather than relying on (?i), since the
// stdlib regexp engine has no fast path for case folding. The pattern side
// of that lowering walks the parsed syntax tree rather than lowercasing the
// expression text, since a plain strings.ToLower would also mangle
// case-sensitive-meaning shorthand like \S, \B or [^A-Z].
func Compile(expr string, opts PatternOptions) (*Pattern, error) {
	if expr == "" {
		return nil, newArgError("pattern expression must not be empty")
	}

	var ignoreCase bool
	if !opts.IsRegExp {
		expr = regexp.QuoteMeta(expr)
	}
	if opts.IsWordMatch {
		expr = `\b` + expr + `\b`
	}
	if !opts.IsCaseSensitive {
		ast, err := syntax.Parse(expr, syntax.Perl)
		if err != nil {
			return nil, err
		}
		lowerRegexpASCII(ast)
		expr = ast.String()
		ignoreCase = true
	}

	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return &Pattern{re: re, ignoreCase: ignoreCase}, nil
}

// lowerRegexpASCII lowers rune literals and expands char classes to include
// their lowercase equivalents, in place. A plain text-level lowercase would
// change the meaning of shorthand classes like \S or \B, so this walks the
// parsed tree and only touches the nodes that represent actual rune
// literals or character ranges.
func lowerRegexpASCII(re *syntax.Regexp) {
	for _, c := range re.Sub {
		if c != nil {
			lowerRegexpASCII(c)
		}
	}
	switch re.Op {
	case syntax.OpLiteral:
		for i := range re.Rune {
			re.Rune[i] = unicode.ToLower(re.Rune[i])
		}
	case syntax.OpCharClass:
		l := len(re.Rune)

		// An exclusion class like [^A-Z] must map to [^a-z]; the normal
		// inclusive mapping below would do nothing since [a-z] is already
		// inside [^A-Z]. An inclusive range starting at 0 and ending at
		// the top of the unicode range is assumed to be an exclusion.
		isExclusion := l >= 4 && re.Rune[0] == 0 && re.Rune[l-1] == utf8.MaxRune
		if isExclusion {
			// excluded holds the exclusive ranges in ['a', 'z'] that the
			// complement of [A-Z] needs to carve back out.
			excluded := []rune{}
			for i := 1; i < l-1; i += 2 {
				a, b := re.Rune[i], re.Rune[i+1]
				if a > 'Z' || b < 'A' {
					continue
				}
				if a < 'A' {
					a = 'A' - 1
				}
				if b > 'Z' {
					b = 'Z' + 1
				}
				excluded = append(excluded, a+'a'-'A', b+'b'-'B')
			}

			copy := make([]rune, 0, len(re.Rune))
			for i := 0; i < l; i += 2 {
				a, b := re.Rune[i], re.Rune[i+1]
				for len(excluded) > 0 && a >= excluded[1] {
					excluded = excluded[2:]
				}
				if len(excluded) == 0 || b <= excluded[0] {
					copy = append(copy, a, b)
					continue
				}
				if a <= excluded[0] {
					copy = append(copy, a, excluded[0])
				}
				if b >= excluded[1] {
					copy = append(copy, excluded[1], b)
				}
			}
			re.Rune = copy
		} else {
			for i := 0; i < l; i += 2 {
				// Already includes a-z: nothing to add.
				if re.Rune[i] <= 'a' && re.Rune[i+1] >= 'z' {
					return
				}
			}
			for i := 0; i < l; i += 2 {
				a, b := re.Rune[i], re.Rune[i+1]
				if a > 'Z' || b < 'A' {
					continue
				}
				simple := true
				if a < 'A' {
					simple = false
					a = 'A'
				}
				if b > 'Z' {
					simple = false
					b = 'Z'
				}
				a, b = unicode.ToLower(a), unicode.ToLower(b)
				if simple {
					re.Rune[i], re.Rune[i+1] = a, b
				} else {
					re.Rune = append(re.Rune, a, b)
				}
			}
		}
	default:
		return
	}
	for i := 0; i < 2 && i < len(re.Rune); i++ {
		re.Rune0[i] = re.Rune[i]
	}
}

// Clone returns a copy of p that is safe to use from another goroutine.
func (p *Pattern) Clone() *Pattern {
	return &Pattern{re: p.re.Copy(), ignoreCase: p.ignoreCase}
}

// FindAllMatches returns the (start, length) pairs of every non-overlapping
// match of p against line, in left-to-right order. If limit > 0 the search
// stops after limit matches, bounding the cost of pathological lines.
func (p *Pattern) FindAllMatches(line string, limit int) [][2]int {
	matchBuf := line
	var lowered []byte
	if p.ignoreCase {
		lowered = make([]byte, len(line))
		bytesToLowerASCII(lowered, []byte(line))
		matchBuf = string(lowered)
	}

	if limit <= 0 {
		limit = -1
	}
	locs := p.re.FindAllStringIndex(matchBuf, limit)
	if len(locs) == 0 {
		return nil
	}
	out := make([][2]int, len(locs))
	for i, m := range locs {
		out[i] = [2]int{m[0], m[1] - m[0]}
	}
	return out
}

// lowerTable is a non-UTF-8-aware ASCII lowercase table, traded for speed
// over correctness on multi-byte runes the same way matcher.go's does: the
// regexp engine still sees the original bytes' structure, only the byte
// values used for matching are folded.
var lowerTable = [256]byte{
	0x0, 0x1, 0x2, 0x3, 0x4, 0x5, 0x6, 0x7, 0x8, 0x9, 0xa, 0xb, 0xc, 0xd, 0xe, 0xf,
	0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18, 0x19, 0x1a, 0x1b, 0x1c, 0x1d, 0x1e, 0x1f,
	0x20, 0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27, 0x28, 0x29, 0x2a, 0x2b, 0x2c, 0x2d, 0x2e, 0x2f,
	0x30, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39, 0x3a, 0x3b, 0x3c, 0x3d, 0x3e, 0x3f,
	0x40, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6a, 0x6b, 0x6c, 0x6d, 0x6e, 0x6f,
	0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7a, 0x5b, 0x5c, 0x5d, 0x5e, 0x5f,
	0x60, 0x61, 0x62, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69, 0x6a, 0x6b, 0x6c, 0x6d, 0x6e, 0x6f,
	0x70, 0x71, 0x72, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79, 0x7a, 0x7b, 0x7c, 0x7d, 0x7e, 0x7f,
	0x80, 0x81, 0x82, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89, 0x8a, 0x8b, 0x8c, 0x8d, 0x8e, 0x8f,
	0x90, 0x91, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98, 0x99, 0x9a, 0x9b, 0x9c, 0x9d, 0x9e, 0x9f,
	0xa0, 0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7, 0xa8, 0xa9, 0xaa, 0xab, 0xac, 0xad, 0xae, 0xaf,
	0xb0, 0xb1, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6, 0xb7, 0xb8, 0xb9, 0xba, 0xbb, 0xbc, 0xbd, 0xbe, 0xbf,
	0xc0, 0xc1, 0xc2, 0xc3, 0xc4, 0xc5, 0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xcb, 0xcc, 0xcd, 0xce, 0xcf,
	0xd0, 0xd1, 0xd2, 0xd3, 0xd4, 0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xdb, 0xdc, 0xdd, 0xde, 0xdf,
	0xe0, 0xe1, 0xe2, 0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea, 0xeb, 0xec, 0xed, 0xee, 0xef,
	0xf0, 0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff,
}

func bytesToLowerASCII(dst, src []byte) {
	dst = dst[:len(src)]
	for i := range src {
		dst[i] = lowerTable[src[i]]
	}
}
