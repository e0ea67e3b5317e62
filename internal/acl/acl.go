// Package acl derives platform permission overwrites from the channel
// visibility modes and role relationships the bot supports. Everything in
// this package is a pure function of its inputs; applying the resulting
// overwrites is the caller's concern.
package acl

import "github.com/aurelwyn/conclave/internal/discord"

// Capability bundles. Writable is everything needed to participate in a
// channel; the owner bundle adds thread, message, and channel management.
const (
	Viewable = discord.PermissionViewChannel

	Writable = discord.PermissionSendMessages |
		discord.PermissionSendMessagesInThreads |
		discord.PermissionAddReactions

	OwnerBundle = Viewable | Writable |
		discord.PermissionCreatePublicThreads |
		discord.PermissionCreatePrivateThreads |
		discord.PermissionManageThreads |
		discord.PermissionManageMessages |
		discord.PermissionManageChannels
)

// Mode is a transient visibility instruction. Modes are translated to
// overwrites immediately and never stored; the live overwrite set is the
// only record of a channel's current mode.
type Mode string

const (
	ModePublic  Mode = "public"
	ModeVisible Mode = "visible"
	ModePrivate Mode = "private"
)

// ParseMode resolves a mode name.
func ParseMode(name string) (Mode, bool) {
	switch Mode(name) {
	case ModePublic, ModeVisible, ModePrivate:
		return Mode(name), true
	}
	return "", false
}

// HideEveryone denies channel visibility to the everyone role.
func HideEveryone(role discord.Snowflake) discord.Overwrite {
	return discord.Overwrite{ID: role, Type: discord.OverwriteRole, Deny: Viewable}
}

// PublicMember lets the member role read and write.
func PublicMember(role discord.Snowflake) discord.Overwrite {
	return discord.Overwrite{ID: role, Type: discord.OverwriteRole, Allow: Viewable | Writable}
}

// VisibleMember lets the member role read but not write.
func VisibleMember(role discord.Snowflake) discord.Overwrite {
	return discord.Overwrite{ID: role, Type: discord.OverwriteRole, Allow: Viewable, Deny: Writable}
}

// Owner grants the full owner bundle to a user.
func Owner(user discord.Snowflake) discord.Overwrite {
	return discord.Overwrite{ID: user, Type: discord.OverwriteMember, Allow: OwnerBundle}
}

// Collaborator lets a user read and write.
func Collaborator(user discord.Snowflake) discord.Overwrite {
	return discord.Overwrite{ID: user, Type: discord.OverwriteMember, Allow: Viewable | Writable}
}

// Viewer lets a user read.
func Viewer(user discord.Snowflake) discord.Overwrite {
	return discord.Overwrite{ID: user, Type: discord.OverwriteMember, Allow: Viewable}
}

// Banned denies a user reading and writing.
func Banned(user discord.Snowflake) discord.Overwrite {
	return discord.Overwrite{ID: user, Type: discord.OverwriteMember, Deny: Viewable | Writable}
}

// CreationOverwrites is the initial overwrite set of a fresh channel:
// hidden from everyone, full owner bundle for the creator, and the public
// member bundle as the default mode.
func CreationOverwrites(everyoneRole, memberRole, owner discord.Snowflake) []discord.Overwrite {
	return []discord.Overwrite{
		HideEveryone(everyoneRole),
		Owner(owner),
		PublicMember(memberRole),
	}
}

// ModeChange returns the member-role overwrite for a mode. For ModePrivate
// the overwrite row is removed entirely rather than set to allow-nothing:
// with no explicit role entry left, only individually added users and the
// owner retain access.
func ModeChange(mode Mode, memberRole discord.Snowflake) (overwrite discord.Overwrite, remove bool) {
	switch mode {
	case ModeVisible:
		return VisibleMember(memberRole), false
	case ModePrivate:
		return discord.Overwrite{ID: memberRole, Type: discord.OverwriteRole}, true
	default:
		return PublicMember(memberRole), false
	}
}

// Describe returns the reply wording for a mode change.
func Describe(mode Mode) string {
	switch mode {
	case ModeVisible:
		return "visible to everyone"
	case ModePrivate:
		return "private"
	default:
		return "fully public"
	}
}
