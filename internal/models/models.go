package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Default integration types. An integration tag is an (id, type) pair
// linking an internal entity to an external system identity.
const (
	IntegrationDiscordRole    = "DISCORD_ROLE"
	IntegrationDiscordUser    = "DISCORD_USER"
	IntegrationDiscordChannel = "DISCORD_TEXT_CHANNEL"
	IntegrationDiscordGuild   = "DISCORD_GUILD"
	IntegrationFansubDB       = "FANSUBDB_ID"
	IntegrationFansubDBProj   = "FANSUBDB_PROJECT_ID"
	IntegrationFansubDBAnime  = "FANSUBDB_ANIME_ID"
	IntegrationShowtimesUser  = "SHOWTIMES_USER"

	// IntegrationPrefixAnnounce marks announcement variants of another
	// integration type, e.g. ANNOUNCEMENT_DISCORD_TEXT_CHANNEL.
	IntegrationPrefixAnnounce = "ANNOUNCEMENT_"
)

var knownIntegrationTypes = map[string]bool{
	IntegrationDiscordRole:    true,
	IntegrationDiscordUser:    true,
	IntegrationDiscordChannel: true,
	IntegrationDiscordGuild:   true,
	IntegrationFansubDB:       true,
	IntegrationFansubDBProj:   true,
	IntegrationFansubDBAnime:  true,
	IntegrationShowtimesUser:  true,
}

// IntegrationID links an entity to an external identity.
type IntegrationID struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Normalize upper-cases the type, mirroring the persistence hook the
// document layer applies before every save.
func (i *IntegrationID) Normalize() {
	i.Type = strings.ToUpper(i.Type)
}

// ValidIntegrationType reports whether the given type is one of the known
// defaults, with the announcement prefix stripped first.
func ValidIntegrationType(t string) bool {
	t = strings.ToUpper(t)
	t = strings.TrimPrefix(t, IntegrationPrefixAnnounce)
	return knownIntegrationTypes[t]
}

// RoleStatus is a single role entry of an episode: key is a short
// uppercase code, name the expanded label, finished the completion flag.
type RoleStatus struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Finished bool   `json:"finished"`
}

// Default role vocabularies per project kind. Returned slices are fresh
// copies so callers can mutate them.
func DefaultRolesShows() []RoleStatus {
	return []RoleStatus{
		{Key: "TL", Name: "Translator"},
		{Key: "TLC", Name: "Translation Checker"},
		{Key: "ENC", Name: "Encoder"},
		{Key: "ED", Name: "Editor"},
		{Key: "TS", Name: "Typesetter"},
		{Key: "TM", Name: "Timer"},
		{Key: "QC", Name: "Quality Checker"},
	}
}

func DefaultRolesManga() []RoleStatus {
	return []RoleStatus{
		{Key: "TL", Name: "Translator"},
		{Key: "CL", Name: "Cleaner"},
		{Key: "RD", Name: "Redrawer"},
		{Key: "PR", Name: "Proofreader"},
		{Key: "TS", Name: "Typesetter"},
		{Key: "QC", Name: "Quality Checker"},
	}
}

func DefaultRolesNovel() []RoleStatus {
	return []RoleStatus{
		{Key: "TL", Name: "Translator"},
		{Key: "TLC", Name: "Translation Checker"},
		{Key: "ED", Name: "Editor"},
		{Key: "PR", Name: "Proofreader"},
		{Key: "QC", Name: "Quality Checker"},
	}
}

// RoleActor is an external identity assignable to production roles.
// Exists once per identity: two actors sharing an (id, type) integration
// tag must be merged, not duplicated.
type RoleActor struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Avatar       string          `json:"avatar"`
	Integrations []IntegrationID `json:"integrations"`
}

// HasIntegration reports whether the actor already carries the given tag.
func (a *RoleActor) HasIntegration(id, typ string) bool {
	typ = strings.ToUpper(typ)
	for _, integ := range a.Integrations {
		if integ.ID == id && strings.ToUpper(integ.Type) == typ {
			return true
		}
	}
	return false
}

// AddIntegration appends the tag unless an identical one is present.
func (a *RoleActor) AddIntegration(id, typ string) bool {
	if a.HasIntegration(id, typ) {
		return false
	}
	integ := IntegrationID{ID: id, Type: typ}
	integ.Normalize()
	a.Integrations = append(a.Integrations, integ)
	return true
}

// Assignment maps a role key to an actor; a nil actor means the role is
// unassigned, which is valid.
type Assignment struct {
	Key     string     `json:"key"`
	ActorID *uuid.UUID `json:"actor_id"`
}

// EpisodeStatus is the per-episode completion state across roles.
type EpisodeStatus struct {
	Episode     int          `json:"episode"`
	IsReleased  bool         `json:"is_released"`
	AiringAt    *float64     `json:"airing_at,omitempty"`
	Statuses    []RoleStatus `json:"statuses"`
	DelayReason *string      `json:"delay_reason,omitempty"`
}

// ImageMetadata locates a stored object by (key, parent, filename).
type ImageMetadata struct {
	Type     string `json:"type"`
	Key      string `json:"key"`
	Parent   string `json:"parent"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
}

// Poster is a project cover image plus an optional display color.
type Poster struct {
	Image ImageMetadata `json:"image"`
	Color *int32        `json:"color,omitempty"`
}

// ExternalKind identifies the metadata provider backing a project.
type ExternalKind string

const (
	ExternalAnilist ExternalKind = "ANILIST"
	ExternalTMDB    ExternalKind = "THEMOVIEDB"
	ExternalUnknown ExternalKind = "INVALID_EXTERNAL_TYPE"
)

// ExternalEpisode is a provider-sourced episode record.
type ExternalEpisode struct {
	Episode int      `json:"episode"`
	Season  int      `json:"season"`
	Title   *string  `json:"title,omitempty"`
	Airtime *float64 `json:"airtime,omitempty"`
}

// ExternalData holds provider metadata for a project: episode list, start
// time, and the provider-specific IDs.
type ExternalData struct {
	ID        uuid.UUID         `json:"id"`
	Kind      ExternalKind      `json:"kind"`
	Episodes  []ExternalEpisode `json:"episodes"`
	StartTime *float64          `json:"start_time,omitempty"`

	AniID  string `json:"ani_id,omitempty"`
	MalID  string `json:"mal_id,omitempty"`
	TMDBID string `json:"tmdb_id,omitempty"`
}

// Project is a tracked translation work with per-episode progress.
type Project struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Poster       Poster          `json:"poster"`
	ExternalID   uuid.UUID       `json:"external_id"`
	Assignments  []Assignment    `json:"assignments"`
	Episodes     []EpisodeStatus `json:"episodes"`
	Integrations []IntegrationID `json:"integrations"`
	ServerID     uuid.UUID       `json:"server_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// AssignmentKeys returns the set of role keys present on the project.
func (p *Project) AssignmentKeys() map[string]bool {
	keys := make(map[string]bool, len(p.Assignments))
	for _, a := range p.Assignments {
		keys[a.Key] = true
	}
	return keys
}

// EpisodeIndex returns the slice index of the given episode number, or -1.
func (p *Project) EpisodeIndex(episode int) int {
	for i, ep := range p.Episodes {
		if ep.Episode == episode {
			return i
		}
	}
	return -1
}

// OrphanStatusKeys lists role keys appearing in any episode's status list
// without a matching assignment. Such entries are tolerated but callers
// should log them.
func (p *Project) OrphanStatusKeys() []string {
	keys := p.AssignmentKeys()
	seen := make(map[string]bool)
	var orphans []string
	for _, ep := range p.Episodes {
		for _, st := range ep.Statuses {
			if !keys[st.Key] && !seen[st.Key] {
				seen[st.Key] = true
				orphans = append(orphans, st.Key)
			}
		}
	}
	return orphans
}
