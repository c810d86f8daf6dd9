package tickets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Jacobbrewer1/ticketwolf/pkg/dataaccess"
	"github.com/Jacobbrewer1/ticketwolf/pkg/entities"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepository is an in-memory dataaccess.Repository.
type fakeRepository struct {
	mu       sync.Mutex
	settings map[string]*entities.Settings
	types    map[string]*entities.TicketType
	tickets  []*entities.Ticket
	nextID   int64

	// failInsert makes InsertTicket fail.
	failInsert bool

	// failClose makes CloseTicket fail.
	failClose bool
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		settings: make(map[string]*entities.Settings),
		types:    make(map[string]*entities.TicketType),
	}
}

func (r *fakeRepository) Settings() dataaccess.SettingsDal { return (*fakeSettings)(r) }
func (r *fakeRepository) Types() dataaccess.TypeDal       { return (*fakeTypes)(r) }
func (r *fakeRepository) Tickets() dataaccess.TicketDal   { return (*fakeTickets)(r) }
func (r *fakeRepository) Ping(context.Context) error      { return nil }
func (r *fakeRepository) Migrate(context.Context) error   { return nil }
func (r *fakeRepository) Close(context.Context) error     { return nil }

type fakeSettings fakeRepository

func (f *fakeSettings) GetSettings(_ context.Context, guildID string) (*entities.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if s, ok := f.settings[guildID]; ok {
		cp := *s
		return &cp, nil
	}
	return entities.DefaultSettings(guildID), nil
}

func (f *fakeSettings) UpsertSettings(_ context.Context, guildID string, patch *entities.SettingsPatch) (*entities.Settings, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.settings[guildID]
	if !ok {
		s = entities.DefaultSettings(guildID)
		f.settings[guildID] = s
	}
	patch.Apply(s)
	cp := *s
	return &cp, nil
}

func (f *fakeSettings) ListAutoClose(context.Context) ([]*entities.Settings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := make([]*entities.Settings, 0)
	for _, s := range f.settings {
		if s.AutoCloseMinutes > 0 {
			cp := *s
			list = append(list, &cp)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].GuildID < list[j].GuildID })
	return list, nil
}

type fakeTypes fakeRepository

func typeKey(guildID, slug string) string { return guildID + "/" + slug }

func (f *fakeTypes) UpsertType(_ context.Context, t *entities.TicketType) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *t
	f.types[typeKey(t.GuildID, t.Slug)] = &cp
	return nil
}

func (f *fakeTypes) DeleteType(_ context.Context, guildID, slug string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	k := typeKey(guildID, slug)
	_, ok := f.types[k]
	delete(f.types, k)
	return ok, nil
}

func (f *fakeTypes) ListTypes(_ context.Context, guildID string) ([]*entities.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := make([]*entities.TicketType, 0)
	for _, t := range f.types {
		if t.GuildID == guildID {
			cp := *t
			list = append(list, &cp)
		}
	}
	dataaccess.SortTypes(list)
	return list, nil
}

func (f *fakeTypes) GetType(_ context.Context, guildID, slug string) (*entities.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.types[typeKey(guildID, slug)]
	if !ok {
		return nil, dataaccess.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

type fakeTickets fakeRepository

func (f *fakeTickets) find(guildID, channelID string) *entities.Ticket {
	for _, t := range f.tickets {
		if t.GuildID == guildID && t.ChannelID == channelID {
			return t
		}
	}
	return nil
}

func (f *fakeTickets) InsertTicket(_ context.Context, t *entities.Ticket) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failInsert {
		return 0, fmt.Errorf("insert failed")
	}
	for _, existing := range f.tickets {
		if existing.ChannelID == t.ChannelID {
			return 0, dataaccess.ErrDuplicate
		}
	}

	f.nextID++
	cp := *t
	cp.ID = f.nextID
	f.tickets = append(f.tickets, &cp)
	return cp.ID, nil
}

func (f *fakeTickets) GetTicketByChannel(_ context.Context, guildID, channelID string) (*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.find(guildID, channelID)
	if t == nil {
		return nil, dataaccess.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTickets) CountOpen(_ context.Context, guildID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, t := range f.tickets {
		if t.GuildID == guildID && t.UserID == userID && t.IsOpen() {
			n++
		}
	}
	return n, nil
}

func (f *fakeTickets) LastOpenedAt(_ context.Context, guildID, userID string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var latest *entities.Ticket
	for _, t := range f.tickets {
		if t.GuildID == guildID && t.UserID == userID && (latest == nil || t.ID > latest.ID) {
			latest = t
		}
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return latest.OpenedAt, true, nil
}

func (f *fakeTickets) TouchActivity(_ context.Context, guildID, channelID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if t := f.find(guildID, channelID); t != nil && t.IsOpen() && at.After(t.LastActivityAt) {
		t.LastActivityAt = at
	}
	return nil
}

func (f *fakeTickets) ClaimTicket(_ context.Context, guildID, channelID, userID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.find(guildID, channelID)
	if t == nil || !t.IsOpen() || t.ClaimedBy != "" {
		return false, nil
	}
	t.ClaimedBy = userID
	t.ClaimedAt = &at
	if at.After(t.LastActivityAt) {
		t.LastActivityAt = at
	}
	return true, nil
}

func (f *fakeTickets) CloseTicket(_ context.Context, guildID, channelID string, at time.Time, closedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failClose {
		return fmt.Errorf("close failed")
	}
	if t := f.find(guildID, channelID); t != nil && t.IsOpen() {
		t.Status = entities.TicketStatusClosed
		t.ClosedAt = &at
		t.ClosedBy = closedBy
	}
	return nil
}

func (f *fakeTickets) ListIdle(_ context.Context, guildID string, cutoff time.Time) ([]*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := make([]*entities.Ticket, 0)
	for _, t := range f.tickets {
		if t.GuildID == guildID && t.IsOpen() && !t.LastActivityAt.After(cutoff) {
			cp := *t
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (f *fakeTickets) ListOpen(_ context.Context, guildID string) ([]*entities.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	list := make([]*entities.Ticket, 0)
	for _, t := range f.tickets {
		if t.GuildID == guildID && t.IsOpen() {
			cp := *t
			list = append(list, &cp)
		}
	}
	return list, nil
}

// postedMessage is a message recorded by fakePlatform.
type postedMessage struct {
	ChannelID string
	Message   *Message
}

// fakePlatform is an in-memory Platform.
type fakePlatform struct {
	mu       sync.Mutex
	channels map[string]*Channel
	history  map[string][]*HistoryMessage
	posted   []*postedMessage
	revoked  map[string][]string
	nextID   int

	// failures maps a capability name to the error it returns.
	failures map[string]error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		channels: make(map[string]*Channel),
		history:  make(map[string][]*HistoryMessage),
		revoked:  make(map[string][]string),
		failures: make(map[string]error),
	}
}

func (p *fakePlatform) fail(op string) error {
	return p.failures[op]
}

func (p *fakePlatform) CreateChannel(_ context.Context, spec *ChannelSpec) (*Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fail("create"); err != nil {
		return nil, err
	}

	p.nextID++
	ch := &Channel{
		ID:       fmt.Sprintf("chan-%d", p.nextID),
		GuildID:  spec.GuildID,
		ParentID: spec.ParentID,
		Name:     spec.Name,
		Topic:    spec.Topic,
	}
	p.channels[ch.ID] = ch
	cp := *ch
	return &cp, nil
}

func (p *fakePlatform) Channel(_ context.Context, channelID string) (*Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.channels[channelID]
	if !ok {
		return nil, ErrChannelGone
	}
	cp := *ch
	return &cp, nil
}

func (p *fakePlatform) GuildChannels(_ context.Context, guildID string) ([]*Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fail("scan"); err != nil {
		return nil, err
	}

	list := make([]*Channel, 0)
	for _, ch := range p.channels {
		if ch.GuildID == guildID {
			cp := *ch
			list = append(list, &cp)
		}
	}
	return list, nil
}

func (p *fakePlatform) RenameChannel(_ context.Context, channelID, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.channels[channelID]
	if !ok {
		return ErrChannelGone
	}
	ch.Name = name
	return nil
}

func (p *fakePlatform) RevokeVisibility(_ context.Context, channelID, userID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.channels[channelID]; !ok {
		return ErrChannelGone
	}
	p.revoked[channelID] = append(p.revoked[channelID], userID)
	return nil
}

func (p *fakePlatform) PostMessage(_ context.Context, channelID string, msg *Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fail("post:" + channelID); err != nil {
		return err
	}
	if _, ok := p.channels[channelID]; !ok && !strings.HasPrefix(channelID, "log") {
		return ErrChannelGone
	}
	p.posted = append(p.posted, &postedMessage{ChannelID: channelID, Message: msg})
	return nil
}

func (p *fakePlatform) FetchHistory(_ context.Context, channelID string, limit int) ([]*HistoryMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.fail("history"); err != nil {
		return nil, err
	}
	if _, ok := p.channels[channelID]; !ok {
		return nil, ErrChannelGone
	}

	h := p.history[channelID]
	if len(h) > limit {
		h = h[len(h)-limit:]
	}
	return h, nil
}

func (p *fakePlatform) DeleteChannel(_ context.Context, channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.channels[channelID]; !ok {
		return ErrChannelGone
	}
	delete(p.channels, channelID)
	return nil
}

// messagesTo returns the messages posted to a channel.
func (p *fakePlatform) messagesTo(channelID string) []*Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	list := make([]*Message, 0)
	for _, m := range p.posted {
		if m.ChannelID == channelID {
			list = append(list, m.Message)
		}
	}
	return list
}

func (p *fakePlatform) exists(channelID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.channels[channelID]
	return ok
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
