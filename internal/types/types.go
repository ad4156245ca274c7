package types

import (
	"encoding/json"
	"fmt"
	"maps"
)

// Record is a semi-structured candidate profile as produced by resume
// extraction. Only a handful of keys are interpreted by the service; any
// other key is carried through reads, scoring, and updates untouched.
type Record map[string]any

// Keys interpreted by the matching and store layers. Everything else is
// opaque payload.
const (
	KeyID                 = "id"
	KeyEmail              = "email"
	KeyName               = "name"
	KeyLocation           = "location"
	KeyRoleApplied        = "role_applied"
	KeyRole               = "role"
	KeySummary            = "summary"
	KeyEmploymentType     = "employment_type"
	KeyLocationPreference = "location_preference"
	KeyEducation          = "education"
	KeySkills             = "skills"
	KeyExperience         = "experience"
	KeyAwards             = "awards"
	KeyMeetingID          = "meeting_id"
	KeyStatus             = "status"
	KeyMatch              = "match"
)

// SkillBuckets lists the independent skill arrays inside the "skills"
// object, in projection order.
var SkillBuckets = []string{
	"soft_skills",
	"languages",
	"frameworks_libraries",
	"tools_platforms",
	"APIs",
}

// String returns the value under key when it is a string, "" otherwise.
func (r Record) String(key string) string {
	if s, ok := r[key].(string); ok {
		return s
	}
	return ""
}

// Array returns the value under key when it is a JSON array, along with
// whether the key held an array at all. An empty array reports true.
func (r Record) Array(key string) ([]any, bool) {
	arr, ok := r[key].([]any)
	return arr, ok
}

// Object returns the value under key when it is a JSON object.
func (r Record) Object(key string) (map[string]any, bool) {
	obj, ok := r[key].(map[string]any)
	return obj, ok
}

// Identity renders the value under an identity key (id, email) as a
// comparable string. Unset renders empty.
func (r Record) Identity(key string) string {
	return CanonicalID(r[key])
}

// Clone returns a shallow copy; nested values stay shared with the
// original, which is safe because the service never mutates nested
// structures in place.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	maps.Copy(out, r)
	return out
}

// CanonicalID renders an identity value (string or number per the wire
// contract) as its exact string form. Unset and unsupported values render
// empty, which identity resolution treats as absent.
func CanonicalID(v any) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		b, err := json.Marshal(id)
		if err != nil {
			return ""
		}
		return string(b)
	case int:
		return fmt.Sprintf("%d", id)
	case int64:
		return fmt.Sprintf("%d", id)
	default:
		return ""
	}
}

// ScoredCandidate is a candidate record re-emitted with its match
// percentage. Produced per query, never persisted.
type ScoredCandidate struct {
	Record Record
	Match  int
}

// MarshalJSON flattens the record and its match score into a single
// object, mirroring the wire shape callers expect.
func (s ScoredCandidate) MarshalJSON() ([]byte, error) {
	out := s.Record.Clone()
	if out == nil {
		out = Record{}
	}
	out[KeyMatch] = s.Match
	return json.Marshal(map[string]any(out))
}

// MatchQuery is the transient input to a ranking run. Candidates may hold
// arbitrary JSON values; non-object entries are passed through unscored.
type MatchQuery struct {
	Query      string
	Job        string
	Candidates []any
}

// InvitationUpdate carries the two fields an interview invitation writes
// onto a candidate record. Both are always set together.
type InvitationUpdate struct {
	MeetingID string
	Status    string
}

// Fields returns the update as store-level field overwrites.
func (u InvitationUpdate) Fields() map[string]any {
	return map[string]any{
		KeyMeetingID: u.MeetingID,
		KeyStatus:    u.Status,
	}
}
