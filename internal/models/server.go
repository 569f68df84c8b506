package models

import (
	"time"

	"github.com/google/uuid"
)

// Server is a community/workspace owning projects. The name is carried
// over from the original Discord bot product.
type Server struct {
	ID           uuid.UUID       `json:"id"`
	Name         string          `json:"name"`
	Avatar       *ImageMetadata  `json:"avatar,omitempty"`
	Projects     []uuid.UUID     `json:"projects"`
	Owners       []uuid.UUID     `json:"owners"`
	Integrations []IntegrationID `json:"integrations"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// HasProject reports whether the server lists the given project.
func (s *Server) HasProject(projectID uuid.UUID) bool {
	for _, p := range s.Projects {
		if p == projectID {
			return true
		}
	}
	return false
}

// RemoveProject unlinks the project, returning whether it was present.
func (s *Server) RemoveProject(projectID uuid.UUID) bool {
	for i, p := range s.Projects {
		if p == projectID {
			s.Projects = append(s.Projects[:i], s.Projects[i+1:]...)
			return true
		}
	}
	return false
}

// UserPrivilege is the permission level of a user account.
type UserPrivilege string

const (
	PrivilegeUser  UserPrivilege = "USER"
	PrivilegeAdmin UserPrivilege = "ADMIN"
)

// UserKind discriminates full accounts from pending registrations; every
// consumer switches on it explicitly instead of probing optional fields.
type UserKind string

const (
	UserFull    UserKind = "FULL"
	UserPending UserKind = "PENDING"
)

// DiscordMeta is the Discord OAuth2 linkage of a user.
type DiscordMeta struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresAt    float64 `json:"expires_at"`
}

// User is an authenticated account. A Full user must carry a password or
// Discord metadata; a Pending user carries the approval code handed out
// at registration.
type User struct {
	ID           uuid.UUID      `json:"id"`
	Username     string         `json:"username"`
	Privilege    UserPrivilege  `json:"privilege"`
	Kind         UserKind       `json:"kind"`
	Name         string         `json:"name,omitempty"`
	Password     string         `json:"password,omitempty"`
	APIKey       string         `json:"api_key,omitempty"`
	Avatar       *ImageMetadata `json:"avatar,omitempty"`
	DiscordMeta  *DiscordMeta   `json:"discord_meta,omitempty"`
	ApprovalCode string         `json:"approval_code,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CollabLink groups the copies of one cross-posted project across
// servers. Membership is symmetric: it only exists because every member
// server listed every other one back. A link with one or zero servers or
// projects is not viable and must be deleted, never saved.
type CollabLink struct {
	ID        uuid.UUID   `json:"id"`
	Projects  []uuid.UUID `json:"projects"`
	Servers   []uuid.UUID `json:"servers"`
	CreatedAt time.Time   `json:"created_at"`
}

// Viable reports whether the link still has enough members to exist.
func (l *CollabLink) Viable() bool {
	return len(l.Servers) > 1 && len(l.Projects) > 1
}

// RemoveMember drops a (server, project) pair from the link.
func (l *CollabLink) RemoveMember(serverID, projectID uuid.UUID) {
	for i, s := range l.Servers {
		if s == serverID {
			l.Servers = append(l.Servers[:i], l.Servers[i+1:]...)
			break
		}
	}
	for i, p := range l.Projects {
		if p == projectID {
			l.Projects = append(l.Projects[:i], l.Projects[i+1:]...)
			break
		}
	}
}

// PendingCollab is a collaboration invite awaiting acceptance: the source
// server offers one of its projects to the target server.
type PendingCollab struct {
	ID           uuid.UUID  `json:"id"`
	Code         string     `json:"code"`
	SourceServer uuid.UUID  `json:"source_server"`
	TargetServer uuid.UUID  `json:"target_server"`
	ProjectID    uuid.UUID  `json:"project_id"`
	TargetProj   *uuid.UUID `json:"target_project,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// PremiumKind selects which feature a premium ticket unlocks.
type PremiumKind string

const (
	PremiumShowtimes PremiumKind = "showtimes"
	PremiumShowRSS   PremiumKind = "showrss"
)

// Premium is a time-bounded feature ticket for a server.
type Premium struct {
	ID        uuid.UUID   `json:"id"`
	Target    uuid.UUID   `json:"target"`
	Kind      PremiumKind `json:"kind"`
	ExpiresAt time.Time   `json:"expires_at"`
	CreatedAt time.Time   `json:"created_at"`
}

// Active reports whether the ticket is still valid at the given instant.
func (p *Premium) Active(now time.Time) bool {
	return p.ExpiresAt.After(now)
}
