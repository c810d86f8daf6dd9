package main

import (
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
)

// commands returns every slash command of the bot.
func commands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		setupCmd,
		ticketTypeCmd,
		ticketCmd,
		pingCmd,
	}
}

func guildJoinedHandler(a IApp) func(s *discordgo.Session, g *discordgo.GuildCreate) {
	return func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		l := a.Log().With(slog.String(logging.KeyGuild, g.ID))
		l.Info(fmt.Sprintf("Joined guild %s", g.Name))

		// Increment the total number of guilds.
		TotalDiscordGuilds.Inc()

		// Overwriting is idempotent so this is safe on every reconnect.
		if _, err := a.Session().ApplicationCommandBulkOverwrite(a.Config().ApplicationID, g.ID, commands()); err != nil {
			l.Error("Error registering slash commands", slog.String(logging.KeyError, err.Error()))
		}
	}
}

func guildLeaveHandler(a IApp) func(s *discordgo.Session, g *discordgo.GuildDelete) {
	return func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		// Unavailable guilds are outages, not departures.
		if g.Unavailable {
			return
		}
		a.Log().Info("Left guild", slog.String(logging.KeyGuild, g.ID))

		// Decrement the total number of guilds.
		TotalDiscordGuilds.Dec()
	}
}
