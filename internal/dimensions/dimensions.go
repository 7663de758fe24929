// Package dimensions implements the C7 dimension registry (spec.md
// §4.7): each dimension module computes a set of imei_norm values
// ("the matching set") given module-specific parameters. Generalized
// from the Python dynamic dimension loader
// (original_source/src/dirbs/config/conditions.py's DimensionConfig,
// which dispatches on a string `module` field) into a closed Go
// tagged-variant registry, per spec.md §9's explicit re-architecture
// instruction to replace dynamic dispatch with a static switch.
package dimensions

import (
	"fmt"

	"github.com/dirbs/dirbs-core/internal/errs"
)

// Kind names a dimension module. The set is closed: spec.md §4.7 names
// exactly these plus the pairing-derived not_paired implied by §4.8.
type Kind string

const (
	KindGSMANotFound          Kind = "gsma_not_found"
	KindStolen                Kind = "stolen"
	KindDuplicateLarge        Kind = "duplicate_large"
	KindNotOnRegistrationList Kind = "not_on_registration_list"
	KindMalformedIMEI         Kind = "malformed_imei"
	KindInconsistentRAT       Kind = "inconsistent_rat"
	KindNotPaired             Kind = "not_paired"
)

// Dimension is one configured instance of a Kind within a condition
// (spec.md §4.7: "each dimension references a named module ... with
// module-specific parameters and an invert flag").
type Dimension struct {
	Kind       Kind
	Parameters map[string]any
	Invert     bool
}

// Query is a SQL statement (with positional $1.. placeholders) that
// selects a single `imei_norm` column: the dimension's matching set as
// of the query-time parameters supplied in Args.
type Query struct {
	SQL  string
	Args []any
}

// BuildQuery renders the SQL selecting d's raw (pre-invert) matching
// set. Inversion is applied by the caller (internal/classify), which
// wraps the query as `SELECT imei_norm FROM network_imeis WHERE
// imei_norm NOT IN (<raw query>)` so every dimension's inverted form is
// expressed uniformly against the observed-IMEI universe.
func (d Dimension) BuildQuery(currDate string) (Query, error) {
	switch d.Kind {
	case KindGSMANotFound:
		return Query{SQL: `
			SELECT ni.imei_norm FROM network_imeis ni
			WHERE NOT EXISTS (
				SELECT 1 FROM gsma_data g WHERE g.tac = substring(ni.imei_norm from 1 for 8)
			)`}, nil

	case KindStolen:
		return Query{SQL: `
			SELECT imei_norm FROM historic_stolen_list WHERE end_date IS NULL`}, nil

	case KindNotOnRegistrationList:
		return Query{SQL: `
			SELECT ni.imei_norm FROM network_imeis ni
			WHERE NOT EXISTS (
				SELECT 1 FROM historic_registration_list r
				WHERE r.imei_norm = ni.imei_norm AND r.end_date IS NULL
			)`}, nil

	case KindMalformedIMEI:
		return Query{SQL: `
			SELECT imei_norm FROM network_imeis WHERE is_malformed_imei(imei_norm)`}, nil

	case KindNotPaired:
		return Query{SQL: `
			SELECT ni.imei_norm FROM network_imeis ni
			WHERE NOT EXISTS (
				SELECT 1 FROM historic_pairing_list p
				WHERE p.imei_norm = ni.imei_norm AND p.end_date IS NULL
			)`}, nil

	case KindDuplicateLarge:
		threshold, ok := intParam(d.Parameters, "threshold")
		if !ok {
			return Query{}, errs.NewConfigError("build duplicate_large dimension query",
				fmt.Errorf("missing required integer parameter %q", "threshold"))
		}
		periodDays, ok := intParam(d.Parameters, "period_days")
		if !ok {
			periodDays = 30
		}
		return Query{SQL: `
			SELECT imei_norm FROM (
				SELECT imei_norm, count(DISTINCT imsi) AS imsi_count
				FROM monthly_network_triplets_country
				WHERE last_seen >= $2::date - ($1 || ' days')::interval
				GROUP BY imei_norm
			) counted
			WHERE imsi_count > $3`,
			Args: []any{periodDays, currDate, threshold}}, nil

	case KindInconsistentRAT:
		return Query{SQL: `
			SELECT DISTINCT t.imei_norm FROM monthly_network_triplets_country t
			JOIN network_imeis ni ON ni.imei_norm = t.imei_norm
			JOIN gsma_data g ON g.tac = substring(t.imei_norm from 1 for 8)
			WHERE (t.rat_bitmask & g.rat_bitmask) = 0`}, nil

	default:
		return Query{}, errs.NewConfigError("build dimension query", fmt.Errorf("unknown dimension kind %q", d.Kind))
	}
}

func intParam(params map[string]any, key string) (int, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
