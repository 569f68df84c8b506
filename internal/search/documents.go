package search

import (
	"github.com/naoTimesdev/showtimes-sub000/internal/models"
)

const (
	IndexServers  = "showtimes_servers"
	IndexProjects = "showtimes_projects"
)

// ServerDocument is the flat search projection of a server.
type ServerDocument struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Projects []string `json:"projects"`
}

// ProjectDocument is the flat search projection of a project.
type ProjectDocument struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PosterURL string `json:"poster_url"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
	ServerID  string `json:"server_id"`
}

func NewServerDocument(server *models.Server) ServerDocument {
	projects := make([]string, 0, len(server.Projects))
	for _, p := range server.Projects {
		projects = append(projects, p.String())
	}
	return ServerDocument{
		ID:       server.ID.String(),
		Name:     server.Name,
		Projects: projects,
	}
}

func NewProjectDocument(project *models.Project) ProjectDocument {
	img := project.Poster.Image
	posterURL := "/" + img.Type + "/" + img.Key + "/" + img.Parent + "/" + img.Filename
	return ProjectDocument{
		ID:        project.ID.String(),
		Title:     project.Title,
		PosterURL: posterURL,
		CreatedAt: project.CreatedAt.Unix(),
		UpdatedAt: project.UpdatedAt.Unix(),
		ServerID:  project.ServerID.String(),
	}
}

const serverMapping = `{
	"mappings": {
		"properties": {
			"id":       {"type": "keyword"},
			"name":     {"type": "text"},
			"projects": {"type": "keyword"}
		}
	}
}`

const projectMapping = `{
	"mappings": {
		"properties": {
			"id":         {"type": "keyword"},
			"title":      {"type": "text"},
			"poster_url": {"type": "keyword", "index": false},
			"created_at": {"type": "long"},
			"updated_at": {"type": "long"},
			"server_id":  {"type": "keyword"}
		}
	}
}`
