package auth

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestinationFor(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RolePatient, "/patients"},
		{RoleDoctor, "/doctors"},
		{RoleAdmin, "/admin"},
		{RoleNurse, "/nurses"},
		{Role(""), "/sign-in"},
		{Role("unknown"), "/sign-in"},
		{Role("Doctor"), "/sign-in"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, DestinationFor(tt.role))
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, r := range AllRoles() {
		got, err := ParseRole(string(r))
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	got, err := ParseRole("  Nurse ")
	require.NoError(t, err)
	assert.Equal(t, RoleNurse, got)

	_, err = ParseRole("guest")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRole))

	_, err = ParseRole("")
	assert.ErrorIs(t, err, ErrUnknownRole)
}

func TestRole_EveryRoleHasDirectoryAndHome(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range AllRoles() {
		table, err := r.DirectoryTable()
		require.NoError(t, err, "role %s", r)
		assert.False(t, seen[table], "table %s reused", table)
		seen[table] = true

		assert.NotEqual(t, SignInRoute, DestinationFor(r))
		assert.NotEmpty(t, r.RecordAlias())
		assert.NotEmpty(t, r.Title())
	}

	_, err := Role("root").DirectoryTable()
	assert.ErrorIs(t, err, ErrUnknownRole)
	assert.Empty(t, Role("root").RecordAlias())
}

func TestRole_IsStaff(t *testing.T) {
	assert.False(t, RolePatient.IsStaff())
	for _, r := range StaffRoles() {
		assert.True(t, r.IsStaff(), "role %s", r)
	}
	assert.False(t, Role("x").IsStaff())
}

func TestAuthToken_Expired(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	tok := AuthToken{ExpiresAt: now.Add(time.Minute)}
	assert.False(t, tok.Expired(now))
	assert.True(t, tok.Expired(now.Add(time.Minute)))
}

func TestSessionUser_MarshalJSON(t *testing.T) {
	created := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	doctorID := int64(7)

	t.Run("record merged under alias", func(t *testing.T) {
		u := SessionUser{
			Identity: Identity{ID: "id-1", Email: "p@x.com", DisplayName: "Pat", Role: RolePatient, CreatedAt: created},
			Record:   &RoleRecord{Role: RolePatient, ID: 42, IdentityID: "id-1", DoctorID: &doctorID},
		}
		raw, err := json.Marshal(u)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, "id-1", got["id"])
		assert.InDelta(t, 42, got["patientId"], 0)
		assert.InDelta(t, 7, got["assignedDoctorId"], 0)
		assert.NotContains(t, got, "assignedNurseId")
	})

	t.Run("missing record omits role keys", func(t *testing.T) {
		u := SessionUser{Identity: Identity{ID: "id-2", Role: RoleDoctor}}
		raw, err := json.Marshal(u)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.NotContains(t, got, "doctorId")
		assert.Equal(t, "doctor", got["role"])
		assert.Nil(t, u.RecordID())
	})
}
