// api/audit/repository.go
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const defaultIndex = "access-audit"

type Repository interface {
	LogAccess(ctx context.Context, record AuditRecord) error
	QueryLogs(ctx context.Context, q Query) ([]AuditRecord, error)
}

type ElasticsearchRepository struct {
	esClient *elasticsearch.Client
	index    string
}

// NewElasticsearchRepository creates a new repository with a given Elasticsearch client URL.
func NewElasticsearchRepository(esURL, index string) (*ElasticsearchRepository, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esURL},
	}
	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if index == "" {
		index = defaultIndex
	}
	return &ElasticsearchRepository{esClient: esClient, index: index}, nil
}

// LogAccess indexes an audit record. The record ID is the document ID, so a
// retried write overwrites rather than duplicates.
func (r *ElasticsearchRepository) LogAccess(ctx context.Context, record AuditRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      r.index,
		DocumentID: record.ID,
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, r.esClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing document: %s", res.String())
	}

	return nil
}

// QueryLogs searches for audit records within a time frame, optionally filtered by requester and subject.
func (r *ElasticsearchRepository) QueryLogs(ctx context.Context, q Query) ([]AuditRecord, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildSearchQuery(q)); err != nil {
		return nil, err
	}

	size := q.Limit
	if size <= 0 {
		size = 100
	}

	res, err := r.esClient.Search(
		r.esClient.Search.WithContext(ctx),
		r.esClient.Search.WithIndex(r.index),
		r.esClient.Search.WithBody(&buf),
		r.esClient.Search.WithSize(size),
		r.esClient.Search.WithSort("timestamp:desc"),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error searching documents: %s", res.String())
	}

	var body searchResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, err
	}

	records := make([]AuditRecord, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		records = append(records, hit.Source)
	}
	return records, nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source AuditRecord `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildSearchQuery(q Query) map[string]interface{} {
	rangeFilter := map[string]interface{}{}
	if !q.From.IsZero() {
		rangeFilter["gte"] = q.From.Format(time.RFC3339)
	}
	if !q.To.IsZero() {
		rangeFilter["lte"] = q.To.Format(time.RFC3339)
	}

	must := []interface{}{}
	if len(rangeFilter) > 0 {
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"timestamp": rangeFilter},
		})
	}
	if q.RequesterID != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"requester_id": q.RequesterID},
		})
	}
	if q.SubjectID != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"subject_id": q.SubjectID},
		})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": must,
			},
		},
	}
}
