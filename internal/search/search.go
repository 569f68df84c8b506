package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/olivere/elastic/v7"

	"github.com/naoTimesdev/showtimes-sub000/internal/showerrors"
)

// Service keeps the Elasticsearch indexes in sync with the document
// store. Documents are flat JSON projections of the domain entities;
// every project/server mutation routes through here.
type Service struct {
	client *elastic.Client
}

func New(url, username, password string) (*Service, error) {
	opts := []elastic.ClientOptionFunc{
		elastic.SetURL(url),
		elastic.SetSniff(false),
	}
	if username != "" {
		opts = append(opts, elastic.SetBasicAuth(username, password))
	}
	client, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open search client: %w", err)
	}

	info, code, err := client.Ping(url).Do(context.Background())
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeSearchUnavailable, "search index unreachable", err)
	}
	log.Printf("[search] connected, code %d version %s", code, info.Version.Number)
	return &Service{client: client}, nil
}

// EnsureIndexes creates the server/project indexes with their mappings
// when missing.
func (s *Service) EnsureIndexes(ctx context.Context) error {
	for index, mapping := range map[string]string{
		IndexServers:  serverMapping,
		IndexProjects: projectMapping,
	} {
		exists, err := s.client.IndexExists(index).Do(ctx)
		if err != nil {
			return fmt.Errorf("check index %s: %w", index, err)
		}
		if exists {
			continue
		}
		if _, err := s.client.CreateIndex(index).BodyString(mapping).Do(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", index, err)
		}
		log.Printf("[search] created index %s", index)
	}
	return nil
}

func (s *Service) IndexServer(ctx context.Context, doc ServerDocument) error {
	_, err := s.client.Index().Index(IndexServers).Id(doc.ID).BodyJson(doc).Do(ctx)
	if err != nil {
		return showerrors.Wrap(showerrors.CodeSearchUnavailable, "index server document", err)
	}
	return nil
}

func (s *Service) IndexProject(ctx context.Context, doc ProjectDocument) error {
	_, err := s.client.Index().Index(IndexProjects).Id(doc.ID).BodyJson(doc).Do(ctx)
	if err != nil {
		return showerrors.Wrap(showerrors.CodeSearchUnavailable, "index project document", err)
	}
	return nil
}

func (s *Service) DeleteServer(ctx context.Context, id string) error {
	_, err := s.client.Delete().Index(IndexServers).Id(id).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return showerrors.Wrap(showerrors.CodeSearchUnavailable, "delete server document", err)
	}
	return nil
}

func (s *Service) DeleteProject(ctx context.Context, id string) error {
	_, err := s.client.Delete().Index(IndexProjects).Id(id).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return showerrors.Wrap(showerrors.CodeSearchUnavailable, "delete project document", err)
	}
	return nil
}

// ProjectResults is a typed page of project hits with the per-server
// facet distribution.
type ProjectResults struct {
	Hits      []ProjectDocument `json:"hits"`
	TotalHits int64             `json:"total_hits"`
	Facets    map[string]int64  `json:"facets,omitempty"`
}

// SearchProjects runs a title query, optionally scoped to one server,
// with a terms facet over server_id.
func (s *Service) SearchProjects(ctx context.Context, query, serverID string, offset, limit int) (*ProjectResults, error) {
	q := elastic.NewBoolQuery().Must(elastic.NewMatchQuery("title", query))
	if serverID != "" {
		q = q.Filter(elastic.NewTermQuery("server_id", serverID))
	}

	result, err := s.client.Search().
		Index(IndexProjects).
		Query(q).
		Aggregation("servers", elastic.NewTermsAggregation().Field("server_id")).
		From(offset).Size(limit).
		Do(ctx)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeSearchUnavailable, "search projects", err)
	}

	out := &ProjectResults{TotalHits: result.TotalHits()}
	for _, hit := range result.Hits.Hits {
		var doc ProjectDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			log.Printf("[search] skipping malformed hit %s: %v", hit.Id, err)
			continue
		}
		out.Hits = append(out.Hits, doc)
	}
	if terms, found := result.Aggregations.Terms("servers"); found {
		out.Facets = make(map[string]int64, len(terms.Buckets))
		for _, bucket := range terms.Buckets {
			if key, ok := bucket.Key.(string); ok {
				out.Facets[key] = bucket.DocCount
			}
		}
	}
	return out, nil
}

// ServerResults is a typed page of server hits.
type ServerResults struct {
	Hits      []ServerDocument `json:"hits"`
	TotalHits int64            `json:"total_hits"`
}

func (s *Service) SearchServers(ctx context.Context, query string, offset, limit int) (*ServerResults, error) {
	result, err := s.client.Search().
		Index(IndexServers).
		Query(elastic.NewMatchQuery("name", query)).
		From(offset).Size(limit).
		Do(ctx)
	if err != nil {
		return nil, showerrors.Wrap(showerrors.CodeSearchUnavailable, "search servers", err)
	}

	out := &ServerResults{TotalHits: result.TotalHits()}
	for _, hit := range result.Hits.Hits {
		var doc ServerDocument
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			log.Printf("[search] skipping malformed hit %s: %v", hit.Id, err)
			continue
		}
		out.Hits = append(out.Hits, doc)
	}
	return out, nil
}

// BulkIndexProjects reindexes a batch of project documents. Individual
// item failures are logged and skipped; only transport-level failures
// return an error.
func (s *Service) BulkIndexProjects(ctx context.Context, docs []ProjectDocument) error {
	if len(docs) == 0 {
		return nil
	}
	bulk := s.client.Bulk()
	for _, doc := range docs {
		bulk.Add(elastic.NewBulkIndexRequest().Index(IndexProjects).Id(doc.ID).Doc(doc))
	}
	resp, err := bulk.Do(ctx)
	if err != nil {
		return showerrors.Wrap(showerrors.CodeSearchUnavailable, "bulk index projects", err)
	}
	for _, failed := range resp.Failed() {
		log.Printf("[search] bulk index failed for %s: %s", failed.Id, failed.Error.Reason)
	}
	return nil
}

// BulkIndexServers reindexes a batch of server documents.
func (s *Service) BulkIndexServers(ctx context.Context, docs []ServerDocument) error {
	if len(docs) == 0 {
		return nil
	}
	bulk := s.client.Bulk()
	for _, doc := range docs {
		bulk.Add(elastic.NewBulkIndexRequest().Index(IndexServers).Id(doc.ID).Doc(doc))
	}
	resp, err := bulk.Do(ctx)
	if err != nil {
		return showerrors.Wrap(showerrors.CodeSearchUnavailable, "bulk index servers", err)
	}
	for _, failed := range resp.Failed() {
		log.Printf("[search] bulk index failed for %s: %s", failed.Id, failed.Error.Reason)
	}
	return nil
}
