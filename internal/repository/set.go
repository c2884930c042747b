package repository

import (
	"database/sql"
	"encoding/json"
	"sort"
)

// encodeSet stores a string set as a sorted JSON array. Empty sets become NULL
// so the contacts check constraint sees them as missing.
func encodeSet(values []string) sql.NullString {
	if len(values) == 0 {
		return sql.NullString{}
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)

	b, _ := json.Marshal(out)
	return sql.NullString{String: string(b), Valid: true}
}

func decodeSet(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return []string{}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
