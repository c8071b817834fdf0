package access

// Holder is anything carrying a role, usually *models.User. Implementations
// must tolerate a nil receiver and return an empty role.
type Holder interface {
	GetRole() Role
}

// HasPermission checks p against the process-wide table. A nil holder or an
// empty role has no permissions.
func HasPermission(h Holder, p Permission) bool {
	return RolePermissions.HasPermission(h, p)
}

// HasAllPermissions requires every permission in ps
func HasAllPermissions(h Holder, ps ...Permission) bool {
	return RolePermissions.HasAllPermissions(h, ps...)
}

// HasAnyPermission requires at least one permission in ps
func HasAnyPermission(h Holder, ps ...Permission) bool {
	return RolePermissions.HasAnyPermission(h, ps...)
}

func (t *Table) HasPermission(h Holder, p Permission) bool {
	if h == nil {
		return false
	}
	role := h.GetRole()
	if role == "" {
		return false
	}
	return t.Allows(role, p)
}

func (t *Table) HasAllPermissions(h Holder, ps ...Permission) bool {
	if h == nil || h.GetRole() == "" {
		return false
	}
	for _, p := range ps {
		if !t.HasPermission(h, p) {
			return false
		}
	}
	return true
}

func (t *Table) HasAnyPermission(h Holder, ps ...Permission) bool {
	for _, p := range ps {
		if t.HasPermission(h, p) {
			return true
		}
	}
	return false
}
