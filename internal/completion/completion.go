package completion

import (
	"strings"
	"sync"
	"unicode"

	"github.com/dbscope/dbscope/internal/adapter"
	"github.com/dbscope/dbscope/internal/schema"
	"github.com/sahilm/fuzzy"
)

// maxSuggestions bounds every candidate list handed to the UI.
const maxSuggestions = 50

// Engine produces schema-aware SQL completion candidates. It holds a
// snapshot of the introspected schema plus the keyword and function
// vocabulary of one dialect, and is safe for concurrent use.
type Engine struct {
	mu        sync.RWMutex
	byName    map[string][]schema.Column // bare and schema-qualified relation names
	schemas   []string
	databases []string
	dialect   string
	keywords  []string
	functions []string
}

// NewEngine creates an engine speaking the given dialect's vocabulary.
func NewEngine(dialect string) *Engine {
	return &Engine{
		byName:    make(map[string][]schema.Column),
		dialect:   dialect,
		keywords:  KeywordsForDialect(dialect),
		functions: FunctionsForDialect(dialect),
	}
}

// UpdateSchema replaces the cached schema snapshot.
func (e *Engine) UpdateSchema(databases []schema.Database) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.byName = make(map[string][]schema.Column)
	e.schemas = nil
	e.databases = nil

	for _, db := range databases {
		e.databases = append(e.databases, db.Name)
		for _, sc := range db.Schemas {
			e.schemas = append(e.schemas, sc.Name)
			for _, t := range sc.Tables {
				e.index(sc.Name, t.Name, t.Columns)
			}
			for _, v := range sc.Views {
				e.index(sc.Name, v.Name, v.Columns)
			}
		}
	}
}

// index registers a relation under both its bare and schema-qualified name,
// so dot access works with or without the qualifier.
func (e *Engine) index(schemaName, relName string, cols []schema.Column) {
	e.byName[relName] = cols
	e.byName[schemaName+"."+relName] = cols
}

// Complete returns candidates for the fragment under the cursor, ranked
// best first. Inside an unterminated string literal it returns nothing.
func (e *Engine) Complete(text string, cursorPos int) []adapter.CompletionItem {
	before := text[:min(max(cursorPos, 0), len(text))]

	if inOpenString(before) {
		return nil
	}

	word, qual := wordAt(before)

	// "alias." or "table." completes that relation's columns only.
	if qual != "" {
		return rankByWord(word, e.lookupColumns(qual))
	}

	var pool []adapter.CompletionItem
	switch scopeBefore(before, word) {
	case scopeTable:
		pool = e.relationItems()
	case scopeColumn:
		for _, rel := range referencedTables(text) {
			pool = append(pool, e.lookupColumns(rel)...)
		}
		pool = append(pool, e.relationItems()...)
		pool = append(pool, vocabItems(e.functions, adapter.CompletionFunction, "function")...)
	default:
		pool = vocabItems(e.keywords, adapter.CompletionKeyword, "keyword")
		pool = append(pool, e.relationItems()...)
		pool = append(pool, vocabItems(e.functions, adapter.CompletionFunction, "function")...)
	}

	return rankByWord(word, pool)
}

// scope is the grammatical position the cursor sits in.
type scope int

const (
	scopeAny scope = iota
	scopeTable
	scopeColumn
)

// leaderScope maps a keyword to the scope it opens for whatever follows it.
func leaderScope(tok string) (scope, bool) {
	switch tok {
	case "FROM", "JOIN", "INTO", "UPDATE", "TABLE",
		"LEFT", "RIGHT", "INNER", "OUTER", "FULL", "CROSS":
		return scopeTable, true
	case "SELECT", "WHERE", "SET", "ON", "AND", "OR", "HAVING", "BY":
		return scopeColumn, true
	}
	return scopeAny, false
}

// scopeBefore classifies the cursor position by the token to its left. A
// trailing comma continues whatever list the nearest leader keyword opened.
func scopeBefore(before, word string) scope {
	toks := strings.Fields(strings.TrimSpace(before[:len(before)-len(word)]))
	if len(toks) == 0 {
		return scopeAny
	}

	last := strings.ToUpper(toks[len(toks)-1])
	if sc, ok := leaderScope(last); ok {
		return sc
	}
	if !strings.HasSuffix(last, ",") {
		return scopeAny
	}
	for i := len(toks) - 1; i >= 0; i-- {
		if sc, ok := leaderScope(strings.ToUpper(strings.TrimRight(toks[i], ","))); ok {
			return sc
		}
	}
	return scopeAny
}

// wordAt returns the identifier fragment ending at the cursor and, when the
// fragment is dot-qualified, the qualifier to the left of the dot. For
// "users.na" it returns ("na", "users"); for "sel" it returns ("sel", "").
func wordAt(before string) (word, qualifier string) {
	i := len(before)
	for i > 0 && identRune(rune(before[i-1])) {
		i--
	}
	frag := before[i:]

	if dot := strings.LastIndexByte(frag, '.'); dot >= 0 {
		return frag[dot+1:], frag[:dot]
	}
	return frag, ""
}

// identRune reports whether r can appear in a (possibly dot-qualified)
// SQL identifier.
func identRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// inOpenString reports whether the cursor sits inside an unterminated
// single-quoted literal.
func inOpenString(before string) bool {
	return strings.Count(before, "'")%2 == 1
}

// listCommas spaces out commas so strings.Fields yields them as tokens.
var listCommas = strings.NewReplacer(",", " , ")

// clauseEnders terminate a FROM list when they appear where the next
// relation name could.
var clauseEnders = map[string]bool{
	"WHERE": true, "GROUP": true, "ORDER": true, "HAVING": true,
	"LIMIT": true, "OFFSET": true, "ON": true, "SET": true,
	"JOIN": true, "LEFT": true, "RIGHT": true, "INNER": true,
	"OUTER": true, "FULL": true, "CROSS": true, "UNION": true,
}

// referencedTables lists the relations named by FROM and JOIN clauses in
// order of appearance, aliases dropped and quoting stripped.
func referencedTables(text string) []string {
	fields := strings.Fields(listCommas.Replace(text))

	var names []string
	seen := map[string]bool{}
	add := func(tok string) {
		name := strings.Trim(tok, `"`)
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for i := 0; i < len(fields); i++ {
		switch strings.ToUpper(fields[i]) {
		case "FROM":
			// The first token of each comma-separated group names the
			// relation; tokens after it up to the next comma are aliases.
			expect := true
			for i+1 < len(fields) {
				tok := fields[i+1]
				if clauseEnders[strings.ToUpper(tok)] {
					break
				}
				i++
				if tok == "," {
					expect = true
				} else if expect {
					add(tok)
					expect = false
				}
			}
		case "JOIN":
			if i+1 < len(fields) {
				add(fields[i+1])
			}
		}
	}
	return names
}

// lookupColumns resolves a relation reference to its column items, trying
// the bare name first and then each known schema qualifier.
func (e *Engine) lookupColumns(rel string) []adapter.CompletionItem {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if cols, ok := e.byName[rel]; ok {
		return columnItems(rel, cols)
	}
	for _, sc := range e.schemas {
		if cols, ok := e.byName[sc+"."+rel]; ok {
			return columnItems(rel, cols)
		}
	}
	return nil
}

// columnItems converts relation columns into completion rows. The detail
// carries the owning relation plus type, key and nullability markers.
func columnItems(rel string, cols []schema.Column) []adapter.CompletionItem {
	items := make([]adapter.CompletionItem, 0, len(cols))
	for _, c := range cols {
		detail := c.Type
		if c.IsPK {
			detail += " PK"
		}
		if !c.Nullable {
			detail += " NOT NULL"
		}
		items = append(items, adapter.CompletionItem{
			Label:  c.Name,
			Kind:   adapter.CompletionColumn,
			Detail: rel + " - " + detail,
		})
	}
	return items
}

// relationItems lists every known relation once: bare names first, then
// qualified names whose bare form is absent from the snapshot.
func (e *Engine) relationItems() []adapter.CompletionItem {
	e.mu.RLock()
	defer e.mu.RUnlock()

	seen := make(map[string]bool, len(e.byName))
	var items []adapter.CompletionItem
	add := func(label string) {
		if !seen[label] {
			seen[label] = true
			items = append(items, adapter.CompletionItem{
				Label:  label,
				Kind:   adapter.CompletionTable,
				Detail: "table",
			})
		}
	}

	for name := range e.byName {
		if !strings.Contains(name, ".") {
			add(name)
		}
	}
	for name := range e.byName {
		if dot := strings.IndexByte(name, '.'); dot >= 0 && !seen[name[dot+1:]] {
			add(name)
		}
	}
	return items
}

// vocabItems wraps a dialect word list as completion rows of one kind.
func vocabItems(words []string, kind adapter.CompletionKind, detail string) []adapter.CompletionItem {
	items := make([]adapter.CompletionItem, 0, len(words))
	for _, w := range words {
		items = append(items, adapter.CompletionItem{Label: w, Kind: kind, Detail: detail})
	}
	return items
}

// rankByWord orders the pool by fuzzy score against the typed fragment,
// best first. Matching is case-insensitive. An empty fragment keeps the
// pool order; either way at most maxSuggestions survive.
func rankByWord(word string, pool []adapter.CompletionItem) []adapter.CompletionItem {
	if word == "" {
		if len(pool) > maxSuggestions {
			pool = pool[:maxSuggestions]
		}
		return pool
	}

	labels := make([]string, len(pool))
	for i, it := range pool {
		labels[i] = strings.ToLower(it.Label)
	}

	ranked := make([]adapter.CompletionItem, 0, maxSuggestions)
	for _, m := range fuzzy.Find(strings.ToLower(word), labels) {
		ranked = append(ranked, pool[m.Index])
		if len(ranked) == maxSuggestions {
			break
		}
	}
	return ranked
}
