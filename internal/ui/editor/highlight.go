// Package editor provides the SQL editor component for dbscope.
package editor

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"
	"github.com/dbscope/dbscope/internal/theme"
)

// Highlighter tokenises SQL text using chroma and renders it with lipgloss
// styles from the active theme.
type Highlighter struct {
	lexer chroma.Lexer
}

// NewHighlighter creates a Highlighter on the default PostgreSQL lexer
// chain. Use NewHighlighterForDialect once the connected adapter is known.
func NewHighlighter() *Highlighter {
	return NewHighlighterForDialect("postgres")
}

// NewHighlighterForDialect creates a Highlighter whose lexer matches the
// adapter dialect. MySQL gets its own lexer so backtick quoting and #
// comments tokenise correctly; sqlite and duckdb speak close enough to
// PostgreSQL that its lexer gives the best coverage. Unresolvable lexers
// fall back through generic SQL.
func NewHighlighterForDialect(dialect string) *Highlighter {
	var l chroma.Lexer
	if dialect == "mysql" {
		l = lexers.Get("MySQL")
	}
	if l == nil {
		l = lexers.Get("PostgreSQL")
	}
	if l == nil {
		l = lexers.Get("SQL")
	}
	if l == nil {
		l = lexers.Fallback
	}
	// Coalesce runs of identical token types so Highlight processes fewer,
	// larger chunks.
	return &Highlighter{lexer: chroma.Coalesce(l)}
}

// Highlight tokenises sql and returns it with each token wrapped in the
// matching style from th. Newlines always pass through unstyled so the
// editor's line layout survives the escape sequences.
func (h *Highlighter) Highlight(sql string, th *theme.Theme) string {
	if th == nil {
		return sql
	}

	iter, err := h.lexer.Tokenise(nil, sql)
	if err != nil {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) * 2)
	for _, tok := range iter.Tokens() {
		if tok.Value == "" {
			continue
		}
		if style, ok := styleFor(tok.Type, th); ok {
			writeStyled(&b, style, tok.Value)
		} else {
			b.WriteString(tok.Value)
		}
	}
	return b.String()
}

// writeStyled emits value under style, splitting on newlines so that
// multi-line tokens (block comments, multi-line strings) are styled per
// segment and the newline bytes stay bare.
func writeStyled(b *strings.Builder, style lipgloss.Style, value string) {
	for {
		i := strings.IndexByte(value, '\n')
		if i < 0 {
			if value != "" {
				b.WriteString(style.Render(value))
			}
			return
		}
		if i > 0 {
			b.WriteString(style.Render(value[:i]))
		}
		b.WriteByte('\n')
		value = value[i+1:]
	}
}

// styleFor maps a chroma token type to the corresponding lipgloss.Style from
// the theme, matching on chroma's category hierarchy. The second return
// value is false when the token should pass through unstyled (plain text,
// punctuation, whitespace).
func styleFor(tt chroma.TokenType, th *theme.Theme) (lipgloss.Style, bool) {
	switch {
	// KeywordType sits inside the keyword category, so match it first to
	// give SQL types (INT, VARCHAR) their own colour.
	case tt == chroma.KeywordType:
		return th.SQLType, true
	case tt == chroma.NameFunction:
		return th.SQLFunction, true
	case tt.InCategory(chroma.Keyword):
		return th.SQLKeyword, true
	case tt.InSubCategory(chroma.LiteralString):
		return th.SQLString, true
	case tt.InSubCategory(chroma.LiteralNumber):
		return th.SQLNumber, true
	case tt.InCategory(chroma.Comment):
		return th.SQLComment, true
	case tt.InCategory(chroma.Operator):
		return th.SQLOperator, true
	default:
		return lipgloss.Style{}, false
	}
}
