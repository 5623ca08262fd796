package utils

import (
	"context"
	"fmt"
	"slices"

	"livechat-bot/models"

	"github.com/bwmarrin/discordgo"
)

// GuildLookup is the part of *discordgo.Session used for permission checks.
type GuildLookup interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// Auth provides methods for authorization checks.
type Auth struct {
	lookup     GuildLookup
	state      *discordgo.State
	developers []string
	adminRoles []string
}

// NewAuth creates an Auth backed by the session's state cache, falling back to REST.
func NewAuth(s *discordgo.Session, cfg models.AuthConfig) *Auth {
	a := &Auth{lookup: s, developers: cfg.Developers, adminRoles: cfg.AdminsRoles}
	if s != nil {
		a.state = s.State
	}
	return a
}

// NewAuthWithLookup creates an Auth without a state cache.
func NewAuthWithLookup(lookup GuildLookup, cfg models.AuthConfig) *Auth {
	return &Auth{lookup: lookup, developers: cfg.Developers, adminRoles: cfg.AdminsRoles}
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	return slices.Contains(a.developers, userID)
}

// IsAdministrator reports whether userID administers guildID: guild owner,
// a role carrying the Administrator permission, a configured admin role, or a developer.
func (a *Auth) IsAdministrator(ctx context.Context, guildID, userID string) (bool, error) {
	if a.IsDeveloper(userID) {
		return true, nil
	}
	guild, err := a.guild(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch guild %s: %w", guildID, err)
	}
	if guild.OwnerID == userID {
		return true, nil
	}
	member, err := a.member(ctx, guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to fetch member %s: %w", userID, err)
	}
	return a.hasAdministrator(guild, member), nil
}

// IsAdmin checks an already-resolved interaction member.
func (a *Auth) IsAdmin(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	if member.User != nil && a.IsDeveloper(member.User.ID) {
		return true
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return a.hasAdminRole(member)
}

func (a *Auth) hasAdministrator(guild *discordgo.Guild, member *discordgo.Member) bool {
	if a.hasAdminRole(member) {
		return true
	}
	for _, role := range guild.Roles {
		// The @everyone role shares the guild ID and applies to every member.
		if role.ID != guild.ID && !slices.Contains(member.Roles, role.ID) {
			continue
		}
		if role.Permissions&discordgo.PermissionAdministrator != 0 {
			return true
		}
	}
	return false
}

func (a *Auth) hasAdminRole(member *discordgo.Member) bool {
	for _, roleID := range member.Roles {
		if slices.Contains(a.adminRoles, roleID) {
			return true
		}
	}
	return false
}

func (a *Auth) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if a.state != nil {
		if g, err := a.state.Guild(guildID); err == nil && len(g.Roles) > 0 {
			return g, nil
		}
	}
	return a.lookup.Guild(guildID, discordgo.WithContext(ctx))
}

func (a *Auth) member(ctx context.Context, guildID, userID string) (*discordgo.Member, error) {
	if a.state != nil {
		if m, err := a.state.Member(guildID, userID); err == nil {
			return m, nil
		}
	}
	return a.lookup.GuildMember(guildID, userID, discordgo.WithContext(ctx))
}
