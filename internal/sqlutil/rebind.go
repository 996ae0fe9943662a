// Copyright 2026 The scrubd Authors.
//
// SPDX-License-Identifier: AGPL-3.0-only
// Please see the LICENSE file in the repository root for full details.

package sqlutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rebind converts `?` placeholders in a query to the numbered `$1` form
// when targeting PostgreSQL. Queries built by the rule engine use `?`
// uniformly and are rebound at execution time.
func Rebind(dbType DBType, query string) string {
	if dbType != DBTypePostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

var identifierRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CheckIdentifier rejects table or column names that are not plain SQL
// identifiers. Rule tables are operator-supplied configuration and their
// names are interpolated into query text, so they must never carry quoting
// or punctuation.
func CheckIdentifier(name string) error {
	if !identifierRegexp.MatchString(name) {
		return fmt.Errorf("%q is not a valid SQL identifier", name)
	}
	return nil
}

// EscapeLike escapes LIKE metacharacters in a literal so it can be used
// as a fixed prefix in a pattern match. The escape character is `\`.
func EscapeLike(literal string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(literal)
}
