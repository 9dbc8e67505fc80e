package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/loykin/fmonctl/internal/history"
)

// Sink indexes archived log events as documents in an OpenSearch or
// Elasticsearch index. Each event is one document; the day field travels as
// its own property so daily rollups aggregate server-side without reparsing
// raw lines. The index is created on first write with dynamic mapping.
type Sink struct {
	client  *http.Client
	baseURL string
	index   string
}

func New(baseURL, index string) *Sink {
	c := &http.Client{Timeout: 5 * time.Second}
	return &Sink{client: c, baseURL: strings.TrimRight(baseURL, "/"), index: index}
}

// docURL is the per-document ingest endpoint. IDs are server-assigned; the
// archive may be re-run and duplicates deduplicated downstream by raw line.
func (s *Sink) docURL() string {
	return fmt.Sprintf("%s/%s/_doc", s.baseURL, s.index)
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.docURL(), bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("index %s: status %d: %s", s.index, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
