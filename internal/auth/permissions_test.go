package auth

import "testing"

func TestHasPermission(t *testing.T) {
	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{RoleUser, PermDeviceRead, true},
		{RoleUser, PermDeviceOperate, true},
		{RoleUser, PermDeviceConfigure, false},
		{RoleUser, PermLocationManage, false},
		{RoleAdmin, PermDeviceRead, true},
		{RoleAdmin, PermDeviceOperate, true},
		{RoleAdmin, PermDeviceConfigure, true},
		{RoleAdmin, PermLocationManage, true},
		{RoleUser, PermAuditRead, false},
		{RoleAdmin, PermAuditRead, true},
		{Role("guest"), PermDeviceRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.perm), func(t *testing.T) {
			if got := HasPermission(tt.role, tt.perm); got != tt.want {
				t.Errorf("HasPermission(%s, %s) = %v, want %v", tt.role, tt.perm, got, tt.want)
			}
		})
	}
}

func TestPermissionsForRole(t *testing.T) {
	perms := PermissionsForRole(RoleUser)
	if len(perms) != 2 {
		t.Fatalf("PermissionsForRole(user) = %v, want 2 entries", perms)
	}

	// The returned slice is a copy.
	perms[0] = PermLocationManage
	if HasPermission(RoleUser, PermLocationManage) {
		t.Error("mutating the result changed the permission table")
	}

	if PermissionsForRole(Role("guest")) != nil {
		t.Error("PermissionsForRole(unknown) should be nil")
	}
}

func TestIsValidRole(t *testing.T) {
	for _, r := range ValidRoles {
		if !IsValidRole(r) {
			t.Errorf("IsValidRole(%q) = false", r)
		}
	}
	if IsValidRole("owner") || IsValidRole("") {
		t.Error("IsValidRole accepted an unknown role")
	}
}
