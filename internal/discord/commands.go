package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/modrelay/backend/internal/models"
	"github.com/modrelay/backend/internal/policy"
	"github.com/modrelay/backend/internal/services"
)

// Command names
const (
	CmdKick    = "kick"
	CmdBan     = "ban"
	CmdTimeout = "timeout"
	CmdClear   = "clear"
)

var commandActions = map[string]models.Action{
	CmdKick:    models.ActionKick,
	CmdBan:     models.ActionBan,
	CmdTimeout: models.ActionTimeout,
	CmdClear:   models.ActionClear,
}

func CommandAction(name string) (models.Action, bool) {
	a, ok := commandActions[name]
	return a, ok
}

func permissionsFor(action models.Action) *int64 {
	p, _ := policy.RequiredPermission(action)
	return &p
}

// Commands are the slash commands registered on startup. Default member
// permissions hide them from members without the capability.
func Commands() []*discordgo.ApplicationCommand {
	minOne := 1.0
	memberOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "member",
		Description: "Member to act on",
		Required:    true,
	}
	reasonOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason shown in the audit log",
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:                     CmdKick,
			Description:              "Kick a member",
			DefaultMemberPermissions: permissionsFor(models.ActionKick),
			Options:                  []*discordgo.ApplicationCommandOption{memberOpt, reasonOpt},
		},
		{
			Name:                     CmdBan,
			Description:              "Ban a member",
			DefaultMemberPermissions: permissionsFor(models.ActionBan),
			Options:                  []*discordgo.ApplicationCommandOption{memberOpt, reasonOpt},
		},
		{
			Name:                     CmdTimeout,
			Description:              "Timeout a member",
			DefaultMemberPermissions: permissionsFor(models.ActionTimeout),
			Options: []*discordgo.ApplicationCommandOption{
				memberOpt,
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "minutes",
					Description: "Timeout length in minutes",
					Required:    true,
					MinValue:    &minOne,
				},
				reasonOpt,
			},
		},
		{
			Name:                     CmdClear,
			Description:              "Delete messages",
			DefaultMemberPermissions: permissionsFor(models.ActionClear),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        "amount",
					Description: "How many recent messages to delete",
					Required:    true,
					MinValue:    &minOne,
					MaxValue:    services.MaxClearCount,
				},
			},
		},
	}
}

// BuildRequest turns a slash command into a pipeline request. Ranks are read
// from guild at call time.
func BuildRequest(
	kind models.Action,
	guild *discordgo.Guild,
	guildID, channelID string,
	actor *discordgo.Member,
	data discordgo.ApplicationCommandInteractionData,
) (models.ActionRequest, error) {
	if actor == nil || actor.User == nil {
		return models.ActionRequest{}, fmt.Errorf("%w: command used outside a server", services.ErrInvalidRequest)
	}

	req := models.ActionRequest{
		Kind:      kind,
		GuildID:   guildID,
		ChannelID: channelID,
		Actor: models.Actor{Member: models.Member{
			ID:   actor.User.ID,
			Name: DisplayName(actor, nil),
			Rank: TopRoleRank(guild, actor.User.ID, actor.Roles),
		}},
	}

	for _, opt := range data.Options {
		switch opt.Name {
		case "member":
			target, err := resolveTarget(guild, opt, data.Resolved)
			if err != nil {
				return models.ActionRequest{}, err
			}
			req.Target = target
		case "reason":
			req.Reason = opt.StringValue()
		case "minutes":
			req.Minutes = int(opt.IntValue())
		case "amount":
			req.Count = int(opt.IntValue())
		}
	}
	return req, nil
}

func resolveTarget(
	guild *discordgo.Guild,
	opt *discordgo.ApplicationCommandInteractionDataOption,
	resolved *discordgo.ApplicationCommandInteractionDataResolved,
) (models.Member, error) {
	userID, _ := opt.Value.(string)
	if userID == "" {
		return models.Member{}, fmt.Errorf("%w: member option is empty", services.ErrInvalidRequest)
	}

	var (
		user   *discordgo.User
		member *discordgo.Member
	)
	if resolved != nil {
		user = resolved.Users[userID]
		member = resolved.Members[userID]
	}
	if member == nil {
		return models.Member{}, fmt.Errorf("%w: user is not a member of this server", services.ErrInvalidRequest)
	}
	if user == nil {
		user = &discordgo.User{ID: userID}
	}

	return models.Member{
		ID:   userID,
		Name: DisplayName(member, user),
		Rank: TopRoleRank(guild, userID, member.Roles),
	}, nil
}
