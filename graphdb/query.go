package graphdb

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
)

type Predicate string

const (
	Eq    Predicate = "="
	NotEq Predicate = "!="
	Lt    Predicate = "<"
	Lte   Predicate = "<="
	Gt    Predicate = ">"
	Gte   Predicate = ">="
	Like  Predicate = "LIKE"
	Glob  Predicate = "GLOB"
)

func (p Predicate) valid() bool {
	switch p {
	case Eq, NotEq, Lt, Lte, Gt, Gte, Like, Glob:
		return true
	}
	return false
}

// Joiner chains a clause to the one before it.
type Joiner string

const (
	NoJoin Joiner = ""
	And    Joiner = "AND"
	Or     Joiner = "OR"
	Not    Joiner = "NOT"
)

type Column string

const (
	ColumnBody Column = "body"
	ColumnID   Column = "id"
)

// Clause is one predicate fragment. With Tree set it matches any value in the
// nested body (scoped to entries named Key when Key is non-empty); otherwise
// it compares the top-level field Key. A Key starting with "$" is used as a
// raw JSON path.
type Clause struct {
	Key       string
	Predicate Predicate
	Joiner    Joiner
	Tree      bool
}

// Query is a search over node bodies. Bindings holds one value per clause,
// in clause order.
type Query struct {
	Clauses  []Clause
	Bindings []any
	Tree     bool   // join json_tree over the body so Tree clauses can match nested values
	Key      string // scopes json_tree to this path
	Result   Column
}

type clauseData struct {
	Joiner    string
	IDLookup  bool
	Tree      bool
	Key       bool
	Predicate Predicate
}

type queryData struct {
	Result  Column
	Tree    bool
	Key     bool
	Clauses []string
}

// Build renders the query and returns it with its bound arguments. Keys,
// paths and values are always bound; only whitelisted tokens are rendered.
func (q Query) Build() (string, []any, error) {
	result := q.Result
	if result == "" {
		result = ColumnBody
	}
	if result != ColumnBody && result != ColumnID {
		return "", nil, queryErrorf("unknown result column %q", result)
	}

	if len(q.Bindings) != len(q.Clauses) {
		return "", nil, queryErrorf("%d clauses but %d bindings", len(q.Clauses), len(q.Bindings))
	}

	var args []any
	if q.Tree && q.Key != "" {
		args = append(args, jsonPath(q.Key))
	}

	rendered := make([]string, 0, len(q.Clauses))
	for i, c := range q.Clauses {
		data, clauseArgs, err := c.compile(i, q.Tree)
		if err != nil {
			return "", nil, err
		}

		clause, err := render("search-where", data)
		if err != nil {
			return "", nil, err
		}

		rendered = append(rendered, clause)
		args = append(args, clauseArgs...)
		args = append(args, q.Bindings[i])
	}

	stmt, err := render("search-node", queryData{
		Result:  result,
		Tree:    q.Tree,
		Key:     q.Tree && q.Key != "",
		Clauses: rendered,
	})
	if err != nil {
		return "", nil, err
	}

	return stmt, args, nil
}

func (c Clause) compile(pos int, treeQuery bool) (clauseData, []any, error) {
	pred := c.Predicate
	if pred == "" {
		pred = Eq
	}
	if !pred.valid() {
		return clauseData{}, nil, queryErrorf("clause %d: unknown predicate %q", pos, c.Predicate)
	}

	joiner, err := c.joiner(pos)
	if err != nil {
		return clauseData{}, nil, err
	}

	data := clauseData{Joiner: joiner, Predicate: pred}

	if c.Tree {
		if !treeQuery {
			return clauseData{}, nil, queryErrorf("clause %d: tree clause needs a tree query", pos)
		}
		data.Tree = true
		if c.Key != "" {
			data.Key = true
			return data, []any{c.Key}, nil
		}
		return data, nil, nil
	}

	if c.Key == "" {
		return clauseData{}, nil, queryErrorf("clause %d: key is required outside tree mode", pos)
	}

	return data, []any{jsonPath(c.Key)}, nil
}

func (c Clause) joiner(pos int) (string, error) {
	switch c.Joiner {
	case NoJoin:
		if pos > 0 {
			return "", queryErrorf("clause %d: missing joiner", pos)
		}
		return "", nil
	case And, Or:
		if pos == 0 {
			return "", queryErrorf("clause 0: %s has nothing to join", c.Joiner)
		}
		return string(c.Joiner), nil
	case Not:
		if pos == 0 {
			return "NOT", nil
		}
		return "AND NOT", nil
	default:
		return "", queryErrorf("clause %d: unknown joiner %q", pos, c.Joiner)
	}
}

func jsonPath(key string) string {
	if strings.HasPrefix(key, "$") {
		return key
	}
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}

func findNode(ctx context.Context, cur Cursor, id string) (Attributes, error) {
	stmt, err := render("search-node", queryData{
		Result:  ColumnBody,
		Clauses: []string{mustRender("search-where", clauseData{IDLookup: true})},
	})
	if err != nil {
		return nil, err
	}

	var body string
	err = cur.QueryRowContext(ctx, stmt, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return Attributes{}, nil
	}
	if err != nil {
		return nil, err
	}

	return decodeAttributes(body)
}

func mustRender(name string, data any) string {
	s, err := render(name, data)
	if err != nil {
		panic(err)
	}
	return s
}

// FindNode returns the node's attributes, or an empty map when it does not exist.
func (s *Store) FindNode(ctx context.Context, id string) (Attributes, error) {
	return view(ctx, s, func(ctx context.Context, cur Cursor) (Attributes, error) {
		return findNode(ctx, cur, id)
	})
}

// FindNodes runs q and returns an iterator over the matching bodies in
// storage order. On a file store the iterator holds a read transaction until
// it is exhausted or closed. A single-connection store reads every match up
// front so the connection is free for calls made while iterating.
func (s *Store) FindNodes(ctx context.Context, q Query) (*NodeIterator, error) {
	if ctx.Value(atomicKey{}) != nil {
		return nil, ErrNestedAtomic
	}

	q.Result = ColumnBody
	query, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	if s.single {
		bodies, err := view(ctx, s, func(ctx context.Context, cur Cursor) ([]string, error) {
			return scanStrings(ctx, cur, query, args...)
		})
		if err != nil {
			return nil, err
		}
		return &NodeIterator{buffered: bodies}, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, &ConnectionError{Err: err}
	}

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		conn.Close()
		return nil, &TransactionError{Err: err}
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		tx.Rollback()
		conn.Close()
		return nil, &TransactionError{Err: err}
	}

	return &NodeIterator{conn: conn, tx: tx, rows: rows}, nil
}

// FindNodeIDs runs q selecting only identifiers.
func (s *Store) FindNodeIDs(ctx context.Context, q Query) ([]string, error) {
	q.Result = ColumnID
	query, args, err := q.Build()
	if err != nil {
		return nil, err
	}

	return view(ctx, s, func(ctx context.Context, cur Cursor) ([]string, error) {
		return scanStrings(ctx, cur, query, args...)
	})
}

func scanStrings(ctx context.Context, cur Cursor, query string, args ...any) ([]string, error) {
	rows, err := cur.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, rows.Err()
}

// NodeIterator is a single-pass, non-restartable sequence of node bodies.
type NodeIterator struct {
	conn *sql.Conn
	tx   *sql.Tx
	rows *sql.Rows

	// used instead of rows when the store has a single connection
	buffered []string

	current Attributes
	err     error
	closed  bool
}

func (it *NodeIterator) Next() bool {
	if it.closed || it.err != nil {
		return false
	}

	var body string
	if it.rows == nil {
		if len(it.buffered) == 0 {
			it.Close()
			return false
		}
		body, it.buffered = it.buffered[0], it.buffered[1:]
	} else {
		if !it.rows.Next() {
			it.err = it.rows.Err()
			it.Close()
			return false
		}

		if err := it.rows.Scan(&body); err != nil {
			it.err = err
			it.Close()
			return false
		}
	}

	attrs, err := decodeAttributes(body)
	if err != nil {
		it.err = err
		it.Close()
		return false
	}

	it.current = attrs
	return true
}

func (it *NodeIterator) Attributes() Attributes {
	return it.current
}

func (it *NodeIterator) Err() error {
	return it.err
}

func (it *NodeIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.buffered = nil

	if it.rows == nil {
		return nil
	}

	it.rows.Close()
	it.tx.Rollback()
	return it.conn.Close()
}

// All adapts the iterator for range-over-func. It can be ranged over once.
func (it *NodeIterator) All() iter.Seq2[Attributes, error] {
	return func(yield func(Attributes, error) bool) {
		defer it.Close()
		for it.Next() {
			if !yield(it.current, nil) {
				return
			}
		}
		if it.err != nil {
			yield(nil, it.err)
		}
	}
}

// Collect drains the iterator.
func (it *NodeIterator) Collect() ([]Attributes, error) {
	var out []Attributes
	for attrs, err := range it.All() {
		if err != nil {
			return out, err
		}
		out = append(out, attrs)
	}
	return out, nil
}

// UnmarshalJSON keeps integers exact: numbers that fit an int64 decode as
// int64, the rest as float64. Nested objects and arrays are handled the same.
func (a *Attributes) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	if m == nil {
		*a = nil
		return nil
	}

	for k, v := range m {
		m[k] = normalizeNumbers(v)
	}
	*a = m
	return nil
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	}
	return v
}

func decodeAttributes(body string) (Attributes, error) {
	var attrs Attributes
	if err := json.Unmarshal([]byte(body), &attrs); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	if attrs == nil {
		attrs = Attributes{}
	}
	return attrs, nil
}

func encodeAttributes(attrs Attributes) (string, error) {
	if attrs == nil {
		attrs = Attributes{}
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}
	return string(b), nil
}
