package logging

const (
	// KeyError is the key for an error attribute.
	KeyError = "err"

	// KeyDal is the key for the data access layer that emitted the log.
	KeyDal = "dal"

	// KeyGuild is the key for a guild ID.
	KeyGuild = "guild_id"

	// KeyChannel is the key for a channel ID.
	KeyChannel = "channel_id"

	// KeyUser is the key for a user ID.
	KeyUser = "user_id"

	// KeyTicket is the key for a ticket ID.
	KeyTicket = "ticket_id"

	// KeyRequestID is the key for the correlation ID of an interaction.
	KeyRequestID = "request_id"

	// KeyCommand is the key for a command or component name.
	KeyCommand = "command"
)
