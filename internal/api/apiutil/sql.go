package apiutil

import "database/sql"

// ToNullString maps "" to NULL.
func ToNullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
