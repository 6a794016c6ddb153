package constants

const (
	ViewData         = "view_data"
	CreateVault      = "create_vault"
	Deposit          = "deposit"
	Withdraw         = "withdraw"
	TransferShares   = "transfer_shares"
	ManagePosition   = "manage_position"
	ManageVaultAdmin = "manage_vault_admin"
	ManageUsers      = "manage_users"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
// Per-vault manager ownership is checked inside the vaults service on top of
// the role gate here.
var PermissionRoles = map[string][]string{
	ViewData:         {Viewer, Manager, Superadmin},
	CreateVault:      {Manager, Superadmin},
	Deposit:          {Viewer, Manager, Superadmin},
	Withdraw:         {Viewer, Manager, Superadmin},
	TransferShares:   {Viewer, Manager, Superadmin},
	ManagePosition:   {Manager, Superadmin},
	ManageVaultAdmin: {Manager, Superadmin},
	ManageUsers:      {Superadmin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
