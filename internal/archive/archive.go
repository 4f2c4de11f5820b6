// internal/archive/archive.go
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"advisor-engine/internal/common/errors"
)

// TurnRecord is the archived form of one completed turn.
type TurnRecord struct {
	TurnID     string    `json:"turnId"`
	ProfileID  string    `json:"profileId"`
	Screen     string    `json:"screen"`
	Sequence   int       `json:"sequence"`
	Input      string    `json:"input"`
	Intent     string    `json:"intent"`
	Score      float64   `json:"score"`
	Source     string    `json:"source"`
	Text       string    `json:"text"`
	Stuck      bool      `json:"stuck"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Archiver interface {
	Archive(ctx context.Context, rec TurnRecord) error
}

// Searcher reads archived turns back.
type Searcher interface {
	Recent(ctx context.Context, profileID string, size int) ([]TurnRecord, error)
}

// Nop discards records.
type Nop struct{}

func (Nop) Archive(context.Context, TurnRecord) error { return nil }

func (Nop) Recent(context.Context, string, int) ([]TurnRecord, error) { return []TurnRecord{}, nil }

// ElasticArchive indexes one document per turn, keyed by turn id. A turn
// reprocessed under the same id replaces its document.
type ElasticArchive struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticArchive(client *elasticsearch.Client, index string) *ElasticArchive {
	return &ElasticArchive{client: client, index: index}
}

func (a *ElasticArchive) Archive(ctx context.Context, rec TurnRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.NewArchiveFailedError(fmt.Errorf("encode turn: %w", err))
	}

	req := esapi.IndexRequest{
		Index:      a.index,
		DocumentID: rec.TurnID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return errors.NewArchiveFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return errors.NewArchiveFailedError(fmt.Errorf("index %s: %s: %s", a.index, res.Status(), string(msg))).
			WithMetadata("turnId", rec.TurnID)
	}
	return nil
}

// Recent returns the newest archived turns for a profile, newest first.
func (a *ElasticArchive) Recent(ctx context.Context, profileID string, size int) ([]TurnRecord, error) {
	if size <= 0 {
		size = 20
	}
	query := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"term": map[string]interface{}{"profileId.keyword": profileID},
		},
		"sort": []interface{}{
			map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, errors.NewArchiveFailedError(err)
	}

	req := esapi.SearchRequest{
		Index: []string{a.index},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, a.client)
	if err != nil {
		return nil, errors.NewArchiveFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, errors.NewArchiveFailedError(fmt.Errorf("search %s: %s", a.index, res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source TurnRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewArchiveFailedError(fmt.Errorf("decode search: %w", err))
	}

	out := make([]TurnRecord, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
