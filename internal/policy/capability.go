package policy

import (
	"github.com/bwmarrin/discordgo"
	"github.com/modrelay/backend/internal/models"
)

// RequiredPermissions defines the platform capability each command needs.
// Automod is not listed: it is never invoked by a member.
var RequiredPermissions = map[models.Action]int64{
	models.ActionKick:    discordgo.PermissionKickMembers,
	models.ActionBan:     discordgo.PermissionBanMembers,
	models.ActionTimeout: discordgo.PermissionModerateMembers,
	models.ActionClear:   discordgo.PermissionManageMessages,
}

// RequiredPermission returns the bit for action and whether the action is member-invocable.
func RequiredPermission(action models.Action) (int64, bool) {
	p, ok := RequiredPermissions[action]
	return p, ok
}

// HasCapability checks a member permission bitset. Administrator implies everything.
func HasCapability(perms int64, action models.Action) bool {
	required, ok := RequiredPermission(action)
	if !ok {
		return false
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return perms&required == required
}

// NeedsHierarchyCheck reports whether the action targets a member above the actor's reach.
func NeedsHierarchyCheck(action models.Action) bool {
	return action == models.ActionKick || action == models.ActionBan
}
