package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dirbs/dirbs-core/internal/dimensions"
)

var placeholderPattern = regexp.MustCompile(`\$(\d+)`)

// renumberPlaceholders rewrites a query fragment's positional
// placeholders ($1, $2, ...) so they continue counting from offset,
// letting several independently-built dimension queries be combined
// into one statement.
func renumberPlaceholders(sql string, offset int) string {
	return placeholderPattern.ReplaceAllStringFunc(sql, func(m string) string {
		n, _ := strconv.Atoi(m[1:])
		return "$" + strconv.Itoa(n+offset)
	})
}

// BuildMatchingSetQuery renders a condition's full matching-set query:
// the SQL-level INTERSECT of each of its dimensions' (possibly
// inverted) queries, per spec.md §4.7 step 1 ("The condition's matching
// set is the intersection of its dimensions' sets, or their inversions
// when invert=true").
func BuildMatchingSetQuery(cond Condition, currDate string) (dimensions.Query, error) {
	if len(cond.Dimensions) == 0 {
		return dimensions.Query{}, fmt.Errorf("condition %s: no dimensions configured", cond.Label)
	}

	var parts []string
	var args []any
	for _, d := range cond.Dimensions {
		q, err := d.BuildQuery(currDate)
		if err != nil {
			return dimensions.Query{}, fmt.Errorf("condition %s: %w", cond.Label, err)
		}
		sql := renumberPlaceholders(q.SQL, len(args))
		if d.Invert {
			sql = fmt.Sprintf(
				"SELECT imei_norm FROM network_imeis WHERE imei_norm NOT IN (%s)", sql)
		}
		parts = append(parts, "("+sql+")")
		args = append(args, q.Args...)
	}

	return dimensions.Query{SQL: strings.Join(parts, " INTERSECT "), Args: args}, nil
}
