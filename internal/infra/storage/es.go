package storage

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/mapreviews/harvester/internal/config"
	"github.com/mapreviews/harvester/internal/domain/model"
)

// ESStore keeps harvest results in an Elasticsearch index, one document per
// job keyed by the job identifier. ES refuses partial documents, so the
// write-once contract holds without extra bookkeeping.
type ESStore struct {
	client *elasticsearch.TypedClient
	index  string
}

type resultDoc struct {
	JobID       string         `json:"job_id"`
	Records     []model.Review `json:"records"`
	HarvestedAt time.Time      `json:"harvested_at"`
}

func NewESStore(ctx context.Context, cfg *config.Config) (*ESStore, error) {
	es := cfg.Storage.Elasticsearch
	client, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Username:  es.Username,
		Password:  es.Password,
		Addresses: []string{es.Address},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			// Development clusters commonly run with self-signed certs.
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("storage: initialize elasticsearch client: %w", err)
	}

	s := &ESStore{client: client, index: es.Index}
	if err := s.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ESStore) ensureIndex(ctx context.Context) error {
	exists, err := s.client.Indices.Exists(s.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("storage: check index existence: %w", err)
	}
	if exists {
		return nil
	}
	if _, err := s.client.Indices.Create(s.index).Do(ctx); err != nil {
		return fmt.Errorf("storage: create index: %w", err)
	}
	return nil
}

func (s *ESStore) Write(ctx context.Context, key string, records []model.Review) (string, error) {
	doc := resultDoc{JobID: key, Records: records, HarvestedAt: time.Now().UTC()}
	_, err := s.client.Index(s.index).
		Id(key).
		Document(doc).
		Do(ctx)
	if err != nil {
		return "", fmt.Errorf("storage: index result: %w", err)
	}
	return fmt.Sprintf("es://%s/%s", s.index, key), nil
}

func (s *ESStore) Read(ctx context.Context, key string) ([]model.Review, error) {
	resp, err := s.client.Get(s.index, key).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: get result: %w", err)
	}
	if !resp.Found {
		return nil, ErrNotFound
	}
	var doc resultDoc
	if err := json.Unmarshal(resp.Source_, &doc); err != nil {
		return nil, fmt.Errorf("storage: unmarshal result: %w", err)
	}
	return doc.Records, nil
}
