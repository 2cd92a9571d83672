package editor

import (
	"strings"
	"testing"

	"github.com/alecthomas/chroma/v2"
	"github.com/dbscope/dbscope/internal/theme"
)

// Without a TTY lipgloss renders styles as no-ops, so these tests
// cannot assert on escape sequences. They pin down what survives
// regardless of the color profile: token content, newline structure,
// nil-theme passthrough, and the token-to-style mapping itself.

func TestNewHighlighterForDialect(t *testing.T) {
	for _, dialect := range []string{"postgres", "mysql", "sqlite", "duckdb", "", "no-such-dialect"} {
		h := NewHighlighterForDialect(dialect)
		if h == nil || h.lexer == nil {
			t.Fatalf("NewHighlighterForDialect(%q) returned nil lexer", dialect)
		}
		if out := h.Highlight("SELECT 1", theme.Default()); !strings.Contains(out, "SELECT") {
			t.Errorf("dialect %q: keyword not preserved", dialect)
		}
	}
	if h := NewHighlighter(); h == nil || h.lexer == nil {
		t.Fatal("NewHighlighter() returned nil lexer")
	}
}

func TestHighlightNilTheme(t *testing.T) {
	const sql = "SELECT 1"
	if got := NewHighlighter().Highlight(sql, nil); got != sql {
		t.Errorf("Highlight(sql, nil) = %q, want input unchanged", got)
	}
}

func TestHighlightPreservesContent(t *testing.T) {
	h := NewHighlighter()
	th := theme.Default()

	tests := []struct {
		name     string
		sql      string
		contains []string
	}{
		{
			"keywords",
			"SELECT id FROM users WHERE id = 1",
			[]string{"SELECT", "FROM", "WHERE", "users", "id", "1"},
		},
		{
			"string literal",
			"SELECT * FROM users WHERE name = 'Alice'",
			[]string{"Alice", "users", "name"},
		},
		{
			"mixed case",
			"select ID from Users where Active = TRUE",
			[]string{"select", "ID", "Users", "TRUE"},
		},
		{
			"line comment",
			"-- keep this note\nSELECT 1",
			[]string{"keep this note", "SELECT"},
		},
		{
			"ddl",
			"CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
			[]string{"CREATE", "INTEGER", "PRIMARY", "name"},
		},
		{
			"cte and aggregates",
			"WITH cte AS (SELECT COUNT(*) FROM t) SELECT * FROM cte",
			[]string{"WITH", "cte", "COUNT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := h.Highlight(tt.sql, th)
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q", want)
				}
			}
		})
	}
}

// Newlines must pass through unstyled so the editor's line layout
// stays intact, including newlines inside block comments.
func TestHighlightKeepsNewlines(t *testing.T) {
	h := NewHighlighter()
	th := theme.Default()

	for _, sql := range []string{
		"SELECT id,\n       name\nFROM users\nWHERE active = true",
		"/* multi\n   line\n   comment */\nSELECT 1",
	} {
		out := h.Highlight(sql, th)
		if got, want := strings.Count(out, "\n"), strings.Count(sql, "\n"); got < want {
			t.Errorf("output has %d newlines, want at least %d; input %q", got, want, sql)
		}
	}
}

func TestHighlightDegenerateInputs(t *testing.T) {
	h := NewHighlighter()
	th := theme.Default()

	if out := h.Highlight("", th); strings.TrimSpace(out) != "" {
		t.Errorf("Highlight(empty) = %q", out)
	}
	// Must not panic or drop content on odd inputs.
	for _, sql := range []string{"   \n\t  ", "-- comment only", "/* block */", ";;;"} {
		if out := h.Highlight(sql, th); out == "" {
			t.Errorf("Highlight(%q) returned empty string", sql)
		}
	}
}

func TestHighlightMySQLSyntax(t *testing.T) {
	h := NewHighlighterForDialect("mysql")

	// Backtick identifiers and # comments are MySQL-only syntax; they
	// must round-trip through the lexer with content intact.
	out := h.Highlight("SELECT `name` FROM `users` # trailing", theme.Default())
	for _, want := range []string{"name", "users", "trailing"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestStyleFor(t *testing.T) {
	th := theme.Default()

	styled := []chroma.TokenType{
		chroma.Keyword, chroma.KeywordReserved, chroma.KeywordType,
		chroma.NameFunction,
		chroma.LiteralStringSingle, chroma.LiteralStringBacktick,
		chroma.LiteralNumberInteger, chroma.LiteralNumberFloat,
		chroma.CommentSingle, chroma.CommentMultiline, chroma.CommentPreproc,
		chroma.Operator, chroma.OperatorWord,
	}
	for _, tt := range styled {
		if _, ok := styleFor(tt, th); !ok {
			t.Errorf("styleFor(%v) should be styled", tt)
		}
	}

	plain := []chroma.TokenType{
		chroma.Text, chroma.TextWhitespace, chroma.Punctuation,
		chroma.Name, chroma.NameOther,
	}
	for _, tt := range plain {
		if _, ok := styleFor(tt, th); ok {
			t.Errorf("styleFor(%v) should pass through unstyled", tt)
		}
	}

	// The default theme renders keywords bold and comments italic, so
	// the mapping can be checked by style property rather than color.
	if kw, _ := styleFor(chroma.Keyword, th); !kw.GetBold() {
		t.Error("keyword style should be bold")
	}
	if cm, _ := styleFor(chroma.CommentSingle, th); !cm.GetItalic() {
		t.Error("comment style should be italic")
	}
	// KeywordType maps to the type style, not the keyword style.
	if kt, _ := styleFor(chroma.KeywordType, th); kt.GetBold() {
		t.Error("type style should not inherit keyword bold")
	}
}
