package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedRole(t *testing.T) {
	// Read surfaces are open to every role.
	assert.True(t, AllowedRole(ViewData, Viewer))
	assert.True(t, AllowedRole(Deposit, Viewer))

	// Position and admin surfaces require a manager.
	assert.False(t, AllowedRole(ManagePosition, Viewer))
	assert.True(t, AllowedRole(ManagePosition, Manager))
	assert.True(t, AllowedRole(ManageVaultAdmin, Superadmin))

	// Account provisioning is superadmin only.
	assert.False(t, AllowedRole(ManageUsers, Manager))
	assert.True(t, AllowedRole(ManageUsers, Superadmin))

	// Unknown permission or role denies.
	assert.False(t, AllowedRole("unknown", Superadmin))
	assert.False(t, AllowedRole(ViewData, "ghost"))
}

func TestEveryPermissionHasRoles(t *testing.T) {
	for perm, roles := range PermissionRoles {
		assert.NotEmpty(t, roles, "permission %s has no roles", perm)
		for _, r := range roles {
			assert.True(t, IsValidRole(r), "permission %s lists invalid role %s", perm, r)
		}
	}
}
