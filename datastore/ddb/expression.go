/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/suparena/livestore/errors"
)

var expressionKeywords = map[string]bool{
	"AND":     true,
	"OR":      true,
	"NOT":     true,
	"BETWEEN": true,
	"IN":      true,
}

// expression accumulates attribute name and value placeholders shared by the
// filter, projection and update parts of one request.
type expression struct {
	names  map[string]string
	byName map[string]string
	values map[string]types.AttributeValue
}

func newExpression() *expression {
	return &expression{
		names:  map[string]string{},
		byName: map[string]string{},
		values: map[string]types.AttributeValue{},
	}
}

func (e *expression) name(attr string) string {
	if ph, ok := e.byName[attr]; ok {
		return ph
	}
	ph := fmt.Sprintf("#n%d", len(e.names))
	e.names[ph] = attr
	e.byName[attr] = ph
	return ph
}

func (e *expression) path(attr string) string {
	parts := strings.Split(attr, ".")
	for i, p := range parts {
		parts[i] = e.name(p)
	}
	return strings.Join(parts, ".")
}

func (e *expression) value(v any) (string, error) {
	av, err := attributevalue.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal expression value: %w", err)
	}
	ph := fmt.Sprintf(":v%d", len(e.values))
	e.values[ph] = av
	return ph, nil
}

// attrNames returns nil when empty; DynamoDB rejects empty maps.
func (e *expression) attrNames() map[string]string {
	if len(e.names) == 0 {
		return nil
	}
	return e.names
}

func (e *expression) attrValues() map[string]types.AttributeValue {
	if len(e.values) == 0 {
		return nil
	}
	return e.values
}

// projection aliases every column and joins them for a ProjectionExpression.
func (e *expression) projection(columns []string) string {
	if len(columns) == 0 {
		return ""
	}
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		out = append(out, e.path(c))
	}
	return strings.Join(out, ", ")
}

// filter rewrites a SQL-style where clause into a DynamoDB condition
// expression. Attribute names become #nN, "?" placeholders become :vN bound
// to args in order, and != becomes <>. Function names such as
// attribute_exists or begins_with are kept. String literals are rejected.
func (e *expression) filter(where string, args []any) (string, error) {
	var b strings.Builder
	argIdx := 0
	runes := []rune(where)

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '\'' || r == '"':
			return "", errors.NewValidationError("where", "literals are not supported, bind values with ?")

		case r == '?':
			if argIdx >= len(args) {
				return "", errors.NewValidationError("where", fmt.Sprintf("missing argument for placeholder %d", argIdx+1))
			}
			ph, err := e.value(args[argIdx])
			if err != nil {
				return "", err
			}
			argIdx++
			b.WriteString(ph)
			i++

		case r == '!' && i+1 < len(runes) && runes[i+1] == '=':
			b.WriteString("<>")
			i += 2

		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_' || runes[j] == '.') {
				j++
			}
			word := string(runes[i:j])

			k := j
			for k < len(runes) && unicode.IsSpace(runes[k]) {
				k++
			}

			switch {
			case expressionKeywords[strings.ToUpper(word)]:
				b.WriteString(strings.ToUpper(word))
			case k < len(runes) && runes[k] == '(':
				b.WriteString(word)
			default:
				b.WriteString(e.path(word))
			}
			i = j

		default:
			b.WriteRune(r)
			i++
		}
	}

	if argIdx != len(args) {
		return "", errors.NewValidationError("where", fmt.Sprintf("%d arguments bound but %d placeholders", len(args), argIdx))
	}
	return b.String(), nil
}

// update builds a SET expression for the columns of row, skipping skip.
func (e *expression) update(row map[string]any, columns []string, skip string) (string, error) {
	clauses := make([]string, 0, len(columns))
	for _, c := range columns {
		if c == skip {
			continue
		}
		ph, err := e.value(row[c])
		if err != nil {
			return "", err
		}
		clauses = append(clauses, fmt.Sprintf("%s = %s", e.name(c), ph))
	}
	if len(clauses) == 0 {
		return "", errors.NewValidationError("row", "update requires at least one non-key column")
	}
	return "SET " + strings.Join(clauses, ", "), nil
}
