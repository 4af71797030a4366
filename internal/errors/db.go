package errors

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// "Key (email)=(dana@fakehospital.com) already exists."
var reDetailKey = regexp.MustCompile(`Key \(([^)]+)\)=`)

// tableNouns names portal tables the way a user would read them.
var tableNouns = map[string]string{
	"identities":    "account",
	"credentials":   "account",
	"patients":      "patient",
	"doctors":       "doctor",
	"nurses":        "nurse",
	"admins":        "admin",
	"medications":   "medication",
	"prescriptions": "prescription",
}

// MapDBError translates driver and context errors into AppErrors:
//
//	sql.ErrNoRows, pgx.ErrNoRows     -> not_found
//	unique_violation                 -> conflict (Field from column, detail, or constraint)
//	foreign_key_violation            -> foreign_key
//	not_null / check violation       -> validation
//	context deadline / cancellation  -> timeout / canceled
//
// Other PostgreSQL errors become internal; anything else is returned unchanged.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return Wrap(err, ErrCodeTimeout, "Request timed out. Please try again.")
	case errors.Is(err, context.Canceled):
		return Wrap(err, ErrCodeCanceled, "Request was canceled.")
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, pgx.ErrNoRows):
		return Wrap(err, ErrCodeNotFound, "Record not found")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return &AppError{
			Code:    ErrCodeConflict,
			Message: "This value already exists.",
			Field:   uniqueField(pgErr),
			Cause:   err,
		}
	case pgerrcode.ForeignKeyViolation:
		return &AppError{Code: ErrCodeForeignKey, Message: foreignKeyMessage(pgErr), Cause: err}
	case pgerrcode.NotNullViolation:
		return &AppError{Code: ErrCodeValidation, Message: "This field is required.", Field: pgErr.ColumnName, Cause: err}
	case pgerrcode.CheckViolation:
		return &AppError{Code: ErrCodeValidation, Message: "This field has an invalid value.", Field: pgErr.ColumnName, Cause: err}
	default:
		return Wrap(err, ErrCodeInternal, "A database error occurred. Please try again.")
	}
}

func uniqueField(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reDetailKey.FindStringSubmatch(pgErr.Detail); len(m) == 2 && !strings.Contains(m[1], ",") {
		return strings.TrimSpace(m[1])
	}
	return fieldFromConstraint(pgErr.TableName, pgErr.ConstraintName)
}

// fieldFromConstraint reads the column out of PostgreSQL's default
// "<table>_<column>_key" naming. Anything else yields "".
func fieldFromConstraint(table, constraint string) string {
	rest, ok := strings.CutSuffix(constraint, "_key")
	if !ok {
		return ""
	}
	if table != "" {
		rest, ok = strings.CutPrefix(rest, table+"_")
		if !ok {
			return ""
		}
	} else if i := strings.Index(rest, "_"); i >= 0 {
		rest = rest[i+1:]
	} else {
		return ""
	}
	if rest == "" || strings.Contains(rest, "_") {
		return ""
	}
	return rest
}

func foreignKeyMessage(pgErr *pgconn.PgError) string {
	detail := pgErr.Detail
	switch {
	case strings.Contains(detail, "is not present in table"):
		return "The referenced " + nounFor(quotedTable(detail)) + " does not exist."
	case strings.Contains(detail, "is still referenced from table"):
		return "This record is still in use by a " + nounFor(quotedTable(detail)) + "."
	case pgErr.TableName != "":
		return "This change conflicts with an existing " + nounFor(pgErr.TableName) + "."
	default:
		return "This change references a record that does not exist."
	}
}

func quotedTable(detail string) string {
	_, after, ok := strings.Cut(detail, `table "`)
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(after, `"`)
	return name
}

func nounFor(table string) string {
	if noun, ok := tableNouns[strings.ToLower(table)]; ok {
		return noun
	}
	if table == "" {
		return "record"
	}
	return strings.ReplaceAll(table, "_", " ")
}
