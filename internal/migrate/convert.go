package migrate

import (
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

// minimumSnowflake is the smallest value a Discord snowflake can take
// (a timestamp of zero with the lowest worker/process bits set).
const minimumSnowflake = 4194304

// Fixed role slots of the old schema, in their canonical order.
var fixedRoles = []struct {
	Key  string
	Name string
}{
	{"TL", "Translator"},
	{"TLC", "Translation Checker"},
	{"ENC", "Encoder"},
	{"ED", "Editor"},
	{"TS", "Typesetter"},
	{"TM", "Timer"},
	{"QC", "Quality Checker"},
}

var reservedRoleKeys = map[string]bool{
	"TL": true, "TLC": true, "ENC": true, "ED": true,
	"TM": true, "TS": true, "QC": true,
}

// IsValidSnowflake reports whether s is a plausible Discord snowflake:
// all digits and at least the minimum encodable value.
func IsValidSnowflake(s string) bool {
	if s == "" {
		return false
	}
	var n uint64
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
		n = n*10 + uint64(r-'0')
		if n >= 1<<63 {
			return false
		}
	}
	return n >= minimumSnowflake
}

// actorCache deduplicates role actors across an entire migration run,
// keyed by Discord snowflake. One identity maps to exactly one actor
// record no matter how many projects reference it.
type actorCache struct {
	bySnowflake map[string]*models.RoleActor
	created     []*models.RoleActor
}

func newActorCache() *actorCache {
	return &actorCache{bySnowflake: make(map[string]*models.RoleActor)}
}

// Resolve returns the actor for a legacy person, creating one on first
// sight. Unassigned slots and invalid snowflakes resolve to nil.
func (c *actorCache) Resolve(person LegacyPerson) *models.RoleActor {
	if person.ID == nil || !IsValidSnowflake(*person.ID) {
		return nil
	}
	if actor, ok := c.bySnowflake[*person.ID]; ok {
		return actor
	}
	name := *person.ID
	if person.Name != nil && *person.Name != "" {
		name = *person.Name
	}
	actor := &models.RoleActor{ID: uuid.New(), Name: name}
	actor.AddIntegration(*person.ID, models.IntegrationDiscordUser)
	c.bySnowflake[*person.ID] = actor
	c.created = append(c.created, actor)
	return actor
}

// Created returns every actor minted during the run, in creation order.
func (c *actorCache) Created() []*models.RoleActor {
	return c.created
}

// convertAssignments builds the role list for a project. A slot only
// becomes an assignment when its assignee resolved to an actor; empty
// and invalid slots are left out, and episode statuses are later
// filtered to the keys that made it in. A custom key that shadows a
// reserved one is imported anyway with a warning.
func convertAssignments(legacy LegacyAssignments, cache *actorCache) []models.Assignment {
	fixed := map[string]LegacyPerson{
		"TL": legacy.TL, "TLC": legacy.TLC, "ENC": legacy.ENC, "ED": legacy.ED,
		"TS": legacy.TS, "TM": legacy.TM, "QC": legacy.QC,
	}
	assignments := make([]models.Assignment, 0, len(fixedRoles)+len(legacy.Custom))
	for _, role := range fixedRoles {
		actor := cache.Resolve(fixed[role.Key])
		if actor == nil {
			continue
		}
		assignments = append(assignments, models.Assignment{Key: role.Key, ActorID: &actor.ID})
	}
	for _, custom := range legacy.Custom {
		key := strings.ToUpper(custom.Key)
		if reservedRoleKeys[key] {
			log.Printf("[migrate] custom role %q shadows a reserved key, importing anyway", custom.Key)
		}
		actor := cache.Resolve(custom.Person)
		if actor == nil {
			continue
		}
		assignments = append(assignments, models.Assignment{Key: key, ActorID: &actor.ID})
	}
	return assignments
}

// convertEpisodes rebuilds the per-episode role statuses. Progress keys
// with no matching assignment are dropped with a log line; every
// assignment key appears in every episode, defaulting to unfinished.
func convertEpisodes(title string, legacy []LegacyEpisode, assignments []models.Assignment, customs []LegacyCustomRole) []models.EpisodeStatus {
	names := roleNames(assignments, customs)
	keys := make([]string, 0, len(assignments))
	keySet := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		if keySet[a.Key] {
			continue
		}
		keySet[a.Key] = true
		keys = append(keys, a.Key)
	}

	episodes := make([]models.EpisodeStatus, 0, len(legacy))
	for _, ep := range legacy {
		for key := range ep.Progress {
			if !keySet[strings.ToUpper(key)] {
				log.Printf("[migrate] %s ep %d: dropping progress for unassigned role %q", title, ep.Episode, key)
			}
		}
		statuses := make([]models.RoleStatus, 0, len(keys))
		for _, key := range keys {
			statuses = append(statuses, models.RoleStatus{
				Key:      key,
				Name:     names[key],
				Finished: progressFor(ep.Progress, key),
			})
		}
		var airing *float64
		if ep.Airtime != nil {
			at := float64(*ep.Airtime)
			airing = &at
		}
		episodes = append(episodes, models.EpisodeStatus{
			Episode:     ep.Episode,
			IsReleased:  ep.IsDone,
			AiringAt:    airing,
			Statuses:    statuses,
			DelayReason: ep.Delay,
		})
	}
	return episodes
}

func progressFor(progress map[string]bool, key string) bool {
	if done, ok := progress[key]; ok {
		return done
	}
	for k, done := range progress {
		if strings.EqualFold(k, key) {
			return done
		}
	}
	return false
}

func roleNames(assignments []models.Assignment, customs []LegacyCustomRole) map[string]string {
	names := make(map[string]string, len(assignments))
	for _, role := range fixedRoles {
		names[role.Key] = role.Name
	}
	for _, custom := range customs {
		key := strings.ToUpper(custom.Key)
		if custom.Name != "" {
			names[key] = custom.Name
		}
	}
	for _, a := range assignments {
		if _, ok := names[a.Key]; !ok {
			names[a.Key] = a.Key
		}
	}
	return names
}

// convertTimestamp maps a legacy unix timestamp to UTC. Non-positive
// values fall back to the current time with a warning.
func convertTimestamp(title string, unix int64, now time.Time) time.Time {
	if unix <= 0 {
		log.Printf("[migrate] %s: missing last update timestamp, using current time", title)
		return now.UTC()
	}
	return time.Unix(unix, 0).UTC()
}
