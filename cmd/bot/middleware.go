package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/logging"
	"github.com/Jacobbrewer1/ticketwolf/pkg/messages"
	"github.com/Jacobbrewer1/ticketwolf/pkg/request"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// interactionTimeout bounds the work done for one interaction. Followups stay valid for
// 15 minutes so this is well within the token lifetime.
const interactionTimeout = 2 * time.Minute

// commandProcessor handles one interaction.
type commandProcessor func(ctx context.Context, a IApp, i *discordgo.InteractionCreate) error

// commandController picks the processor for a slash command, usually by sub command.
type commandController func(a IApp, i *discordgo.InteractionCreate) (commandProcessor, error)

type Controller func(w http.ResponseWriter, r *http.Request)

func middlewareHttp(a IApp, handler Controller) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC()
		cw := request.NewClientWriter(w)

		var path string
		route := mux.CurrentRoute(r)
		if route != nil { // The route may be nil if the request is not routed.
			var err error
			path, err = route.GetPathTemplate()
			if err != nil {
				// An error here is only returned if the route does not define a path.
				a.Log().Error("Error getting path template", slog.String(logging.KeyError, err.Error()))
				path = r.URL.Path
			}
		} else {
			path = r.URL.Path
		}

		defer func() {
			// The status code is only known once the handler has returned.
			code := strconv.Itoa(cw.StatusCode())
			HttpTotalRequests.WithLabelValues(path, r.Method, code).Inc()
			HttpRequestDuration.WithLabelValues(path, r.Method, code).Observe(time.Since(now).Seconds())
		}()

		// Recover from any panics that occur in the handler. Runs before the metrics are recorded.
		defer func() {
			if rec := recover(); rec != nil {
				a.Log().Error("Panic in handler",
					slog.String(logging.KeyError, fmt.Sprint(rec)),
					slog.String("stack", string(debug.Stack())),
				)
				request.WriteJSON(a.Log(), cw, http.StatusInternalServerError, request.NewMessage(request.ErrInternalServer.Error()))
			}
		}()

		handler(cw, r)
	}
}

// interactionHandler routes slash commands, message components and modal submits. Components
// and modals are routed on the part of their custom ID before the first colon.
func interactionHandler(
	a IApp,
	controllers map[string]commandController,
	components map[string]commandProcessor,
	modals map[string]commandProcessor,
) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		name := interactionName(i)
		l := a.Log().With(
			slog.String(logging.KeyRequestID, uuid.NewString()),
			slog.String(logging.KeyCommand, name),
			slog.String(logging.KeyGuild, i.GuildID),
			slog.String(logging.KeyChannel, i.ChannelID),
		)

		defer func() {
			if rec := recover(); rec != nil {
				l.Error("Panic in interaction handler",
					slog.String(logging.KeyError, fmt.Sprint(rec)),
					slog.String("stack", string(debug.Stack())),
				)
				reply(a, l, i, messages.ErrUserErrorProcessing)
			}
		}()

		if i.GuildID == "" || i.Member == nil {
			reply(a, l, i, messages.ErrUserGuildOnly)
			return
		}
		l = l.With(slog.String(logging.KeyUser, i.Member.User.ID))
		l.Debug("Handling interaction")

		var processor commandProcessor
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			controller, ok := controllers[name]
			if !ok {
				l.Error("No controller found for command")
				reply(a, l, i, messages.ErrUserErrorProcessing)
				return
			}
			var err error
			processor, err = controller(a, i)
			if err != nil {
				handleInteractionError(a, l, i, name, err)
				return
			}
		case discordgo.InteractionMessageComponent:
			processor = components[name]
		case discordgo.InteractionModalSubmit:
			processor = modals[name]
		default:
			return
		}

		if processor == nil {
			l.Warn("No processor found for interaction")
			reply(a, l, i, messages.ErrUserErrorProcessing)
			return
		}

		t := prometheus.NewTimer(DiscordCommandDuration.WithLabelValues(name))
		defer t.ObserveDuration()

		ctx, cancel := context.WithTimeout(context.Background(), interactionTimeout)
		defer cancel()

		if err := processor(ctx, a, i); err != nil {
			handleInteractionError(a, l, i, name, err)
		}
	}
}

// interactionName returns the routing key of an interaction.
func interactionName(i *discordgo.InteractionCreate) string {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		return i.ApplicationCommandData().Name
	case discordgo.InteractionMessageComponent:
		return routeKey(i.MessageComponentData().CustomID)
	case discordgo.InteractionModalSubmit:
		return routeKey(i.ModalSubmitData().CustomID)
	default:
		return i.Type.String()
	}
}

// routeKey strips the arguments from a custom ID.
func routeKey(customID string) string {
	key, _, _ := strings.Cut(customID, ":")
	return key
}

// handleInteractionError answers an interaction that failed. Expected errors are the user's
// doing and only logged at debug level.
func handleInteractionError(a IApp, l *slog.Logger, i *discordgo.InteractionCreate, name string, err error) {
	msg, expected := messages.ForError(err)
	DiscordInteractionErrors.WithLabelValues(name, strconv.FormatBool(expected)).Inc()
	if expected {
		l.Debug("Interaction rejected", slog.String(logging.KeyError, err.Error()))
	} else {
		l.Error("Error processing interaction", slog.String(logging.KeyError, err.Error()))
	}
	reply(a, l, i, msg)
}
