package main

import (
	"context"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
)

const pingCmdName = "ping"

var pingCmd = &discordgo.ApplicationCommand{
	Name:        pingCmdName,
	Type:        discordgo.ChatApplicationCommand,
	Description: "Check that the bot is alive.",
}

func pingCmdController(_ IApp, _ *discordgo.InteractionCreate) (commandProcessor, error) {
	return ping, nil
}

func ping(_ context.Context, a IApp, i *discordgo.InteractionCreate) error {
	return respondEphemeral(a, i, messages.Latency(a.Session().HeartbeatLatency()))
}
