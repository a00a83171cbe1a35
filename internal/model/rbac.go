// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Role is a named bundle of permissions assignable to users.
type Role string

// Available roles.
const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleAuthor Role = "author"
	RoleViewer Role = "viewer"
)

// AllRoles returns every assignable role.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleEditor, RoleAuthor, RoleViewer}
}

// ValidRole reports whether s names a known role.
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleAdmin, RoleEditor, RoleAuthor, RoleViewer:
		return true
	}
	return false
}

// Permission is a capability tag checked by the authorization middleware.
// The set is closed: unknown tags never grant access.
type Permission string

// Content permissions.
const (
	PermViewPosts   Permission = "view-posts"
	PermCreatePosts Permission = "create-posts"
	PermEditPosts   Permission = "edit-posts"
	PermDeletePosts Permission = "delete-posts"
	PermPublishPosts Permission = "publish-posts"

	PermViewProjects    Permission = "view-projects"
	PermCreateProjects  Permission = "create-projects"
	PermEditProjects    Permission = "edit-projects"
	PermDeleteProjects  Permission = "delete-projects"
	PermPublishProjects Permission = "publish-projects"

	PermViewDownloads    Permission = "view-downloads"
	PermCreateDownloads  Permission = "create-downloads"
	PermEditDownloads    Permission = "edit-downloads"
	PermDeleteDownloads  Permission = "delete-downloads"
	PermPublishDownloads Permission = "publish-downloads"
)

// Contact permissions.
const (
	PermViewContacts   Permission = "view-contacts"
	PermReplyContacts  Permission = "reply-contacts"
	PermDeleteContacts Permission = "delete-contacts"
	PermManageContacts Permission = "manage-contacts"
)

// User and system permissions.
const (
	PermViewUsers   Permission = "view-users"
	PermCreateUsers Permission = "create-users"
	PermEditUsers   Permission = "edit-users"
	PermDeleteUsers Permission = "delete-users"

	PermManageRoles    Permission = "manage-roles"
	PermViewDashboard  Permission = "view-dashboard"
	PermManageSettings Permission = "manage-settings"
	PermViewAnalytics  Permission = "view-analytics"
)

// AllPermissions returns the full permission catalogue.
func AllPermissions() []Permission {
	return []Permission{
		PermViewPosts, PermCreatePosts, PermEditPosts, PermDeletePosts, PermPublishPosts,
		PermViewProjects, PermCreateProjects, PermEditProjects, PermDeleteProjects, PermPublishProjects,
		PermViewDownloads, PermCreateDownloads, PermEditDownloads, PermDeleteDownloads, PermPublishDownloads,
		PermViewContacts, PermReplyContacts, PermDeleteContacts, PermManageContacts,
		PermViewUsers, PermCreateUsers, PermEditUsers, PermDeleteUsers,
		PermManageRoles, PermViewDashboard, PermManageSettings, PermViewAnalytics,
	}
}

// rolePermissions maps each role to its permission set. Admin is handled
// separately in PermissionsForRole to always cover the full catalogue.
var rolePermissions = map[Role][]Permission{
	RoleEditor: {
		PermViewPosts, PermCreatePosts, PermEditPosts, PermPublishPosts,
		PermViewProjects, PermCreateProjects, PermEditProjects, PermPublishProjects,
		PermViewDownloads, PermCreateDownloads, PermEditDownloads, PermPublishDownloads,
		PermViewContacts, PermReplyContacts,
		PermViewDashboard, PermViewAnalytics,
	},
	RoleAuthor: {
		PermViewPosts, PermCreatePosts, PermEditPosts,
		PermViewProjects, PermCreateProjects, PermEditProjects,
		PermViewDownloads, PermCreateDownloads, PermEditDownloads,
		PermViewDashboard,
	},
	RoleViewer: {
		PermViewPosts, PermViewProjects, PermViewDownloads, PermViewDashboard,
	},
}

// PermissionsForRole returns the permissions granted by a single role.
func PermissionsForRole(role Role) []Permission {
	if role == RoleAdmin {
		return AllPermissions()
	}
	return rolePermissions[role]
}

// PermissionsForRoles returns the union of permissions granted by the
// given role names, in catalogue order. Unknown names grant nothing.
func PermissionsForRoles(roles []string) []Permission {
	granted := make(map[Permission]bool)
	for _, name := range roles {
		for _, p := range PermissionsForRole(Role(name)) {
			granted[p] = true
		}
	}

	var result []Permission
	for _, p := range AllPermissions() {
		if granted[p] {
			result = append(result, p)
		}
	}
	return result
}

// RolesHavePermission reports whether any of the role names grants perm.
func RolesHavePermission(roles []string, perm Permission) bool {
	for _, name := range roles {
		for _, p := range PermissionsForRole(Role(name)) {
			if p == perm {
				return true
			}
		}
	}
	return false
}

// HasRole reports whether the role name list contains role.
func HasRole(roles []string, role Role) bool {
	for _, name := range roles {
		if Role(name) == role {
			return true
		}
	}
	return false
}
