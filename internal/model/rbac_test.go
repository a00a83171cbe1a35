// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "testing"

func TestPermissionsForRole(t *testing.T) {
	admin := PermissionsForRole(RoleAdmin)
	if len(admin) != len(AllPermissions()) {
		t.Errorf("admin permissions = %d, want full catalogue of %d", len(admin), len(AllPermissions()))
	}

	viewer := PermissionsForRole(RoleViewer)
	want := []Permission{PermViewPosts, PermViewProjects, PermViewDownloads, PermViewDashboard}
	if len(viewer) != len(want) {
		t.Fatalf("viewer permissions = %v, want %v", viewer, want)
	}
	for i, p := range want {
		if viewer[i] != p {
			t.Errorf("viewer[%d] = %q, want %q", i, viewer[i], p)
		}
	}

	if got := PermissionsForRole(Role("ghost")); got != nil {
		t.Errorf("unknown role permissions = %v, want nil", got)
	}
}

func TestRolesHavePermission(t *testing.T) {
	tests := []struct {
		roles []string
		perm  Permission
		want  bool
	}{
		{[]string{"admin"}, PermManageSettings, true},
		{[]string{"editor"}, PermPublishPosts, true},
		{[]string{"editor"}, PermDeletePosts, false},
		{[]string{"editor"}, PermReplyContacts, true},
		{[]string{"author"}, PermPublishPosts, false},
		{[]string{"author"}, PermEditProjects, true},
		{[]string{"viewer"}, PermCreatePosts, false},
		{[]string{"viewer", "editor"}, PermCreatePosts, true},
		{[]string{}, PermViewPosts, false},
		{[]string{"unknown"}, PermViewPosts, false},
	}

	for _, tt := range tests {
		if got := RolesHavePermission(tt.roles, tt.perm); got != tt.want {
			t.Errorf("RolesHavePermission(%v, %q) = %v, want %v", tt.roles, tt.perm, got, tt.want)
		}
	}
}

func TestPermissionsForRolesUnion(t *testing.T) {
	perms := PermissionsForRoles([]string{"viewer", "author"})
	seen := make(map[Permission]bool)
	for _, p := range perms {
		if seen[p] {
			t.Errorf("duplicate permission %q in union", p)
		}
		seen[p] = true
	}
	if !seen[PermCreatePosts] || !seen[PermViewDownloads] {
		t.Errorf("union missing expected permissions: %v", perms)
	}
}

func TestValidRole(t *testing.T) {
	for _, r := range AllRoles() {
		if !ValidRole(string(r)) {
			t.Errorf("ValidRole(%q) = false", r)
		}
	}
	if ValidRole("superuser") {
		t.Error("ValidRole(superuser) = true, want false")
	}
}
