package tickets

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	// MaxTypeSlugLength is the longest allowed ticket type slug.
	MaxTypeSlugLength = 50

	// MaxChannelNameLength is the longest channel name the platform accepts.
	MaxChannelNameLength = 100

	// MaxReasonLength is the longest reason stored with a ticket.
	MaxReasonLength = 200

	fallbackTypeSlug    = "type"
	fallbackChannelName = "ticket"

	openerTagPrefix = "opener:"
)

var typeSlugPattern = regexp.MustCompile(`^[a-z0-9-]{1,50}$`)

// ValidSlug reports whether s is a well formed ticket type slug.
func ValidSlug(s string) bool {
	return typeSlugPattern.MatchString(s)
}

// Slugify derives a ticket type slug from a label.
func Slugify(label string) string {
	return slugify(label, MaxTypeSlugLength, fallbackTypeSlug)
}

// ChannelSlug normalizes a channel name.
func ChannelSlug(name string) string {
	return slugify(name, MaxChannelNameLength, fallbackChannelName)
}

func slugify(s string, limit int, fallback string) string {
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	lastHyphen := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case r == '-' || r == ' ':
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}

	out := strings.Trim(b.String(), "-")
	if len(out) > limit {
		out = strings.TrimRight(out[:limit], "-")
	}
	if out == "" {
		return fallback
	}
	return out
}

// HasIDToken reports whether a channel name template needs the ticket ID.
func HasIDToken(template string) bool {
	return strings.Contains(template, "{id}")
}

// RenderChannelName substitutes the template tokens and normalizes the result. An id of
// zero renders {id} as nothing.
func RenderChannelName(template, typeSlug, username string, id int64) string {
	ticketID := ""
	if id > 0 {
		ticketID = strconv.FormatInt(id, 10)
	}
	name := strings.NewReplacer(
		"{type}", typeSlug,
		"{user}", username,
		"{id}", ticketID,
	).Replace(template)
	return ChannelSlug(name)
}

// OpenerTag is the channel topic marker of the user that opened the ticket.
func OpenerTag(userID string) string {
	return openerTagPrefix + userID
}

// TopicOpener extracts the opener from a channel topic.
func TopicOpener(topic string) (string, bool) {
	for _, f := range strings.Fields(topic) {
		if id, ok := strings.CutPrefix(f, openerTagPrefix); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

// Priority is a channel name prefix that marks the urgency of a ticket.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Priorities lists the recognized priorities from least to most urgent.
var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityHigh}

// ParsePriority returns the priority named by s.
func ParsePriority(s string) (Priority, bool) {
	for _, p := range Priorities {
		if string(p) == strings.ToLower(strings.TrimSpace(s)) {
			return p, true
		}
	}
	return "", false
}

// ApplyPriority replaces every leading priority prefix of name with p.
func ApplyPriority(name string, p Priority) string {
	return ChannelSlug(string(p) + "-" + StripPriority(name))
}

// StripPriority removes all leading priority prefixes from name.
func StripPriority(name string) string {
	for {
		trimmed := name
		for _, p := range Priorities {
			trimmed = strings.TrimPrefix(trimmed, string(p)+"-")
		}
		if trimmed == name {
			return name
		}
		name = trimmed
	}
}
