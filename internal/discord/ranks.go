package discord

import (
	"math"

	"github.com/bwmarrin/discordgo"
)

// OwnerRank outranks every role position.
const OwnerRank = math.MaxInt32

// TopRoleRank is the highest role position held by a member. Members with only
// @everyone rank 0. The guild owner always ranks highest.
func TopRoleRank(guild *discordgo.Guild, userID string, roleIDs []string) int {
	if guild == nil {
		return 0
	}
	if guild.OwnerID != "" && guild.OwnerID == userID {
		return OwnerRank
	}
	held := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = struct{}{}
	}
	rank := 0
	for _, r := range guild.Roles {
		if _, ok := held[r.ID]; ok && r.Position > rank {
			rank = r.Position
		}
	}
	return rank
}

// DisplayName prefers the guild nickname, then the global name, then the username.
func DisplayName(m *discordgo.Member, u *discordgo.User) string {
	if m != nil && m.Nick != "" {
		return m.Nick
	}
	if u == nil && m != nil {
		u = m.User
	}
	if u == nil {
		return ""
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}
