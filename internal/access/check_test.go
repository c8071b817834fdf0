package access

import (
	"sync"
	"testing"
)

type holder struct{ role Role }

func (h *holder) GetRole() Role {
	if h == nil {
		return ""
	}
	return h.role
}

func TestNilHolderHasNothing(t *testing.T) {
	for _, p := range AllPermissions {
		if HasPermission(nil, p) {
			t.Errorf("nil holder should not have %s", p)
		}
		var typedNil *holder
		if HasPermission(typedNil, p) {
			t.Errorf("typed nil holder should not have %s", p)
		}
	}
	if HasAllPermissions(nil) {
		t.Error("HasAllPermissions(nil) should fail closed")
	}
	if HasAnyPermission(nil, ViewTasks) {
		t.Error("HasAnyPermission(nil) should fail closed")
	}
}

func TestEmptyAndUnknownRole(t *testing.T) {
	for _, role := range []Role{"", "JANITOR", "admin"} {
		h := &holder{role: role}
		for _, p := range AllPermissions {
			if HasPermission(h, p) {
				t.Errorf("role %q should not have %s", role, p)
			}
		}
	}
}

func TestEveryRoleHasExplicitEntry(t *testing.T) {
	for _, role := range Roles {
		if len(RolePermissions.Permissions(role)) == 0 {
			t.Errorf("role %s has an empty permission set", role)
		}
	}
}

func TestAdminHasEverything(t *testing.T) {
	admin := &holder{role: RoleAdmin}
	got := RolePermissions.Permissions(RoleAdmin)
	if len(got) != len(AllPermissions) {
		t.Fatalf("admin has %d permissions, want %d", len(got), len(AllPermissions))
	}
	if !HasAllPermissions(admin, AllPermissions...) {
		t.Error("admin should hold every permission")
	}
}

func TestHasPermissionMatchesTable(t *testing.T) {
	want := map[Role][]Permission{
		RoleManager:        {ViewTasks, CreateTask, UpdateTask, DeleteTask, ViewOrders, CreateOrder, UpdateOrder, DeleteOrder, SendNotifications, ViewReports, CreateReports},
		RoleSupervisor:     {ViewTasks, CreateTask, UpdateTask, ViewOrders, CreateOrder, UpdateOrder, SendNotifications, ViewReports},
		RoleWorker:         {ViewTasks, UpdateTask, ViewOrders},
		RoleQualityControl: {ViewTasks, UpdateTask, ViewOrders, ViewReports},
		RoleViewer:         {ViewTasks, ViewOrders, ViewReports},
	}

	for role, granted := range want {
		set := make(map[Permission]bool)
		for _, p := range granted {
			set[p] = true
		}
		h := &holder{role: role}
		for _, p := range AllPermissions {
			if got := HasPermission(h, p); got != set[p] {
				t.Errorf("HasPermission(%s, %s) = %v, want %v", role, p, got, set[p])
			}
		}
	}
}

func TestWorkerCannotDeleteOrder(t *testing.T) {
	if HasPermission(&holder{role: RoleWorker}, DeleteOrder) {
		t.Error("worker must not delete orders")
	}
}

func TestAllAndAny(t *testing.T) {
	worker := &holder{role: RoleWorker}

	tests := []struct {
		name string
		ps   []Permission
		all  bool
		any  bool
	}{
		{"all granted", []Permission{ViewTasks, ViewOrders}, true, true},
		{"mixed", []Permission{ViewTasks, DeleteTask}, false, true},
		{"none granted", []Permission{ManageUsers, DeleteTask}, false, false},
		{"empty list", nil, true, false},
	}

	for _, tc := range tests {
		if got := HasAllPermissions(worker, tc.ps...); got != tc.all {
			t.Errorf("%s: HasAllPermissions = %v, want %v", tc.name, got, tc.all)
		}
		if got := HasAnyPermission(worker, tc.ps...); got != tc.any {
			t.Errorf("%s: HasAnyPermission = %v, want %v", tc.name, got, tc.any)
		}
	}
}

func TestPermissionsReturnsCopy(t *testing.T) {
	perms := RolePermissions.Permissions(RoleViewer)
	perms[0] = ManageUsers
	if HasPermission(&holder{role: RoleViewer}, ManageUsers) {
		t.Error("mutating the returned slice must not change the table")
	}
}

func TestConcurrentReads(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			role := Roles[i%len(Roles)]
			for _, p := range AllPermissions {
				HasPermission(&holder{role: role}, p)
			}
		}(i)
	}
	wg.Wait()
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"ADMIN", RoleAdmin, true},
		{" qc ", RoleQualityControl, true},
		{"viewer", RoleViewer, true},
		{"root", "", false},
	}
	for _, tc := range tests {
		got, ok := ParseRole(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseRole(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
