package main

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/tickets"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeApp struct {
	l   *slog.Logger
	cfg *Config
}

func newFakeApp() *fakeApp {
	return &fakeApp{
		l:   slog.New(slog.NewTextHandler(new(bytes.Buffer), nil)),
		cfg: new(Config),
	}
}

func (f *fakeApp) Session() *discordgo.Session { return nil }
func (f *fakeApp) Log() *slog.Logger { return f.l }
func (f *fakeApp) Engine() *tickets.Engine { return nil }
func (f *fakeApp) Repository() dataaccess.Repository { return nil }
func (f *fakeApp) Config() *Config { return f.cfg }

func TestMiddlewareHttp(t *testing.T) {
	a := newFakeApp()

	r := mux.NewRouter()
	r.HandleFunc("/ok", middlewareHttp(a, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	r.HandleFunc("/panic", middlewareHttp(a, func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	t.Run("passes through", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		assert.Equal(t, http.StatusTeapot, w.Code)
	})

	t.Run("recovers panics", func(t *testing.T) {
		w := httptest.NewRecorder()
		require.NotPanics(t, func() {
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"message":"internal server error"}`, w.Body.String())
	})
}

func TestInteractionName(t *testing.T) {
	tests := []struct {
		name string
		i    *discordgo.Interaction
		want string
	}{
		{
			name: "slash command",
			i: &discordgo.Interaction{
				Type: discordgo.InteractionApplicationCommand,
				Data: discordgo.ApplicationCommandInteractionData{Name: TicketCmdName},
			},
			want: TicketCmdName,
		},
		{
			name: "component",
			i: &discordgo.Interaction{
				Type: discordgo.InteractionMessageComponent,
				Data: discordgo.MessageComponentInteractionData{CustomID: TicketTypeSelectID},
			},
			want: TicketTypeSelectID,
		},
		{
			name: "modal with argument",
			i: &discordgo.Interaction{
				Type: discordgo.InteractionModalSubmit,
				Data: discordgo.ModalSubmitInteractionData{CustomID: TicketReasonModalID + ":robux"},
			},
			want: TicketReasonModalID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, interactionName(&discordgo.InteractionCreate{Interaction: tt.i}))
		})
	}
}
