package pool

import (
	"talentmatch/internal/errors"
	"talentmatch/internal/types"
)

// Ref identifies a candidate inside the talent pool. ID wins when both
// fields are set; Email is the fallback for records written before ids
// were assigned at intake. Comparison is exact, no trimming or case
// folding.
type Ref struct {
	ID    string
	Email string
}

// RefFrom builds a Ref from raw request values, canonicalizing numeric
// ids to their literal string form.
func RefFrom(id any, email string) Ref {
	return Ref{
		ID:    types.CanonicalID(id),
		Email: email,
	}
}

// Validate rejects refs that cannot address any record.
func (r Ref) Validate() error {
	if r.ID == "" && r.Email == "" {
		return errors.NewValidationError(
			errors.ErrCodeInvalidRequest,
			"candidate id or email is required",
			nil,
		)
	}
	return nil
}

// resolve finds the index of the record addressed by ref, trying id
// first and falling back to email. Returns -1 when no record matches.
func resolve(records []types.Record, ref Ref) int {
	if ref.ID != "" {
		for i, rec := range records {
			if rec.Identity(types.KeyID) == ref.ID {
				return i
			}
		}
	}

	if ref.Email != "" {
		for i, rec := range records {
			if rec.Identity(types.KeyEmail) == ref.Email {
				return i
			}
		}
	}

	return -1
}

// heal backfills a missing id on a record found via the email fallback.
// Records matched by id are left alone. Reports whether the record was
// modified.
func heal(rec types.Record, ref Ref) bool {
	if ref.ID == "" {
		return false
	}
	if rec.Identity(types.KeyID) != "" {
		return false
	}
	rec[types.KeyID] = ref.ID
	return true
}
