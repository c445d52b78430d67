package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bowerhall/graphlite/graphdb"
)

func parseAttributes(s string) (graphdb.Attributes, error) {
	if s == "" {
		return graphdb.Attributes{}, nil
	}

	var attrs graphdb.Attributes
	if err := json.Unmarshal([]byte(s), &attrs); err != nil {
		return nil, fmt.Errorf("attributes must be a JSON object: %w", err)
	}
	if attrs == nil {
		attrs = graphdb.Attributes{}
	}
	return attrs, nil
}

func parseDirection(s string) (graphdb.Direction, error) {
	switch strings.ToLower(s) {
	case "", "both":
		return graphdb.Both, nil
	case "out", "outbound":
		return graphdb.Outbound, nil
	case "in", "inbound":
		return graphdb.Inbound, nil
	default:
		return graphdb.Both, fmt.Errorf("unknown direction %q (want both, out or in)", s)
	}
}

// operators are matched at the first position any of them occurs, longer
// tokens first.
var operators = []struct {
	token string
	pred  graphdb.Predicate
}{
	{"!=", graphdb.NotEq},
	{"<=", graphdb.Lte},
	{">=", graphdb.Gte},
	{"=", graphdb.Eq},
	{"<", graphdb.Lt},
	{">", graphdb.Gt},
	{"~", graphdb.Like},
	{"*", graphdb.Glob},
}

// parseCondition splits "key<op>value" where op is one of = != < <= > >=,
// ~ (LIKE) or * (GLOB). The value is decoded as JSON when it parses,
// otherwise taken as a string.
func parseCondition(s string) (graphdb.Clause, any, error) {
	for i := range len(s) {
		for _, op := range operators {
			if strings.HasPrefix(s[i:], op.token) {
				return conditionClause(s[:i], op.pred, s[i+len(op.token):])
			}
		}
	}

	return graphdb.Clause{}, nil, fmt.Errorf("condition %q has no operator", s)
}

func conditionClause(key string, pred graphdb.Predicate, value string) (graphdb.Clause, any, error) {
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return graphdb.Clause{}, nil, fmt.Errorf("condition is missing a key")
	}

	return graphdb.Clause{Key: key, Predicate: pred}, parseValue(value), nil
}

func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

// buildQuery joins conditions with AND, or OR when matchAny is set. Negated
// conditions are appended with NOT.
func buildQuery(where, not []string, matchAny bool) (graphdb.Query, error) {
	var q graphdb.Query

	joiner := graphdb.And
	if matchAny {
		joiner = graphdb.Or
	}

	add := func(cond string, j graphdb.Joiner) error {
		clause, value, err := parseCondition(cond)
		if err != nil {
			return err
		}
		if len(q.Clauses) == 0 && j != graphdb.Not {
			j = graphdb.NoJoin
		}
		clause.Joiner = j
		q.Clauses = append(q.Clauses, clause)
		q.Bindings = append(q.Bindings, value)
		return nil
	}

	for _, cond := range where {
		if err := add(cond, joiner); err != nil {
			return q, err
		}
	}
	for _, cond := range not {
		if err := add(cond, graphdb.Not); err != nil {
			return q, err
		}
	}

	return q, nil
}
