package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"admin":    RoleAdmin,
		"Officer":  RoleOfficer,
		"petugas":  RoleOfficer,
		" staff ":  RoleOfficer,
		"customer": RoleCustomer,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseRole("manager")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestActorCapabilities(t *testing.T) {
	admin := StaffActor(1, RoleAdmin)
	officer := StaffActor(2, RoleOfficer)
	cust := CustomerActor(3)

	assert.True(t, admin.IsStaff())
	assert.True(t, admin.IsAdmin())
	assert.True(t, officer.IsStaff())
	assert.False(t, officer.IsAdmin())
	assert.True(t, cust.IsCustomer())
	assert.False(t, cust.IsStaff())

	assert.True(t, officer.CanAccessCustomer(3))
	assert.True(t, cust.CanAccessCustomer(3))
	assert.False(t, cust.CanAccessCustomer(4))

	assert.True(t, officer.HasRole(RoleAdmin, RoleOfficer))
	assert.False(t, cust.HasRole(RoleAdmin, RoleOfficer))
}

func TestParseTransactionStatus(t *testing.T) {
	st, err := ParseTransactionStatus("Refunded")
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, st)

	_, err = ParseTransactionStatus("all")
	assert.Error(t, err)
}
