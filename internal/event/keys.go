// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package event

// Standard event keys. Adapters may declare their own keys below these.
var (
	Root = NewKey("api.event")

	BotKey  = NewKey("api.bot", Root)
	Message = NewKey("api.message", Root)
	Change  = NewKey("api.change", Root)
	Timer   = NewKey("api.timer", Root)

	User   = NewKey("api.user", Root)
	Member = NewKey("api.member", User)
	Friend = NewKey("api.friend", User)

	Organization = NewKey("api.organization", Root)
	Group        = NewKey("api.group", Organization)
	Guild        = NewKey("api.guild", Organization)
	Channel      = NewKey("api.channel", Organization)

	FriendMessage  = NewKey("api.friend_message", Friend, Message)
	GroupMessage   = NewKey("api.group_message", Group, Member, Message)
	ChannelMessage = NewKey("api.channel_message", Channel, Member, Message)

	MemberIncrease = NewKey("api.member_increase", Member, Change)
	MemberDecrease = NewKey("api.member_decrease", Member, Change)
)
