package migrate

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Legacy dump file names, one mongoexport JSON array per collection.
const (
	dumpServers = "showtimesdatas.json"
	dumpAdmins  = "showtimesadmin.json"
	dumpLogins  = "showtimesuilogin.json"
)

// LegacyPerson is an assignee slot in the old schema. ID is a Discord
// snowflake as a string, or null when unassigned.
type LegacyPerson struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

// LegacyCustomRole is a server-defined role beyond the fixed seven.
type LegacyCustomRole struct {
	Key    string       `json:"key"`
	Name   string       `json:"name"`
	Person LegacyPerson `json:"person"`
}

// LegacyAssignments carries the fixed role slots plus custom entries.
type LegacyAssignments struct {
	TL     LegacyPerson       `json:"TL"`
	TLC    LegacyPerson       `json:"TLC"`
	ENC    LegacyPerson       `json:"ENC"`
	ED     LegacyPerson       `json:"ED"`
	TM     LegacyPerson       `json:"TM"`
	TS     LegacyPerson       `json:"TS"`
	QC     LegacyPerson       `json:"QC"`
	Custom []LegacyCustomRole `json:"custom"`
}

// LegacyEpisode is one episode's progress in the old schema: a flat
// role-key to done-flag map plus release state.
type LegacyEpisode struct {
	Episode  int             `json:"episode"`
	IsDone   bool            `json:"is_done"`
	Progress map[string]bool `json:"progress"`
	Airtime  *int64          `json:"airtime"`
	Delay    *string         `json:"delay_reason"`
}

// LegacyPoster is the project cover as stored by the old bot.
type LegacyPoster struct {
	URL   string `json:"url"`
	Color *int32 `json:"color"`
}

// LegacyAnime is a tracked project in the old schema.
type LegacyAnime struct {
	ID          string            `json:"id"`
	MalID       *int64            `json:"mal_id"`
	Title       string            `json:"title"`
	StartTime   *int64            `json:"start_time"`
	Assignments LegacyAssignments `json:"assignments"`
	Status      []LegacyEpisode   `json:"status"`
	Poster      LegacyPoster      `json:"poster_data"`
	Aliases     []string          `json:"aliases"`
	Kolaborasi  []string          `json:"kolaborasi"`
	LastUpdate  int64             `json:"last_update"`
}

// LegacyConfirm is a pending collaboration confirmation.
type LegacyConfirm struct {
	ID       string `json:"id"`
	ServerID string `json:"server_id"`
	AnimeID  string `json:"anime_id"`
}

// LegacyServer is one guild document from showtimesdatas.
type LegacyServer struct {
	ID              string          `json:"id"`
	Name            *string         `json:"name"`
	Owners          []string        `json:"serverowner"`
	AnnounceChannel *string         `json:"announce_channel"`
	Anime           []LegacyAnime   `json:"anime"`
	Konfirmasi      []LegacyConfirm `json:"konfirmasi"`
}

// LegacyAdmin maps an administrator snowflake to the servers it manages.
type LegacyAdmin struct {
	ID      string   `json:"id"`
	Servers []string `json:"servers"`
}

// LegacyLogin is a web-panel credential from showtimesuilogin. Privilege
// is "owner" for the global admin and "server" otherwise. UserType is
// "PASSWORD" for secret-based logins and "DISCORD" for OAuth-linked
// accounts, which carry discord_meta instead of a usable secret.
type LegacyLogin struct {
	ID          string             `json:"id"`
	Secret      string             `json:"secret"`
	Privilege   string             `json:"privilege"`
	Name        *string            `json:"name"`
	UserType    string             `json:"user_type"`
	DiscordMeta *LegacyDiscordMeta `json:"discord_meta"`
}

// LegacyDiscordMeta is the OAuth linkage stored on a Discord-type login.
type LegacyDiscordMeta struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    float64 `json:"expires_at"`
}

// Dump bundles the three exported collections.
type Dump struct {
	Servers []LegacyServer
	Admins  []LegacyAdmin
	Logins  []LegacyLogin
}

// LoadDump reads the three collection exports from dir. The server
// collection is required; the others default to empty when absent.
func LoadDump(dir string) (*Dump, error) {
	dump := &Dump{}
	if err := readJSON(filepath.Join(dir, dumpServers), &dump.Servers); err != nil {
		return nil, fmt.Errorf("load %s: %w", dumpServers, err)
	}
	if err := readJSON(filepath.Join(dir, dumpAdmins), &dump.Admins); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", dumpAdmins, err)
	}
	if err := readJSON(filepath.Join(dir, dumpLogins), &dump.Logins); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", dumpLogins, err)
	}
	return dump, nil
}

func readJSON(path string, out interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
