package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/f1-penalty-rag/internal/core/domain"
	"github.com/kirillkom/f1-penalty-rag/internal/infrastructure/resilience"
)

// Payload keys besides the document metadata fields.
const (
	payloadID   = "id"
	payloadFile = "file"
	payloadText = "chunk"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu sync.Mutex
	ensured  map[string]int
}

func New(baseURL string) *Client {
	return NewWithExecutor(baseURL, nil)
}

func NewWithExecutor(baseURL string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
		ensured:    make(map[string]int),
	}
}

// PointID derives a stable point id from a chunk id, so re-upserting a
// chunk overwrites it.
func PointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

type point struct {
	ID      string            `json:"id"`
	Vector  []float32         `json:"vector"`
	Payload map[string]string `json:"payload"`
}

func (c *Client) Upsert(ctx context.Context, collection string, records []domain.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	if len(records[0].Embedding) == 0 {
		return fmt.Errorf("qdrant upsert: record %s has no embedding", records[0].ID)
	}
	if err := c.ensureCollection(ctx, collection, len(records[0].Embedding)); err != nil {
		return err
	}

	points := make([]point, 0, len(records))
	for _, r := range records {
		payload := r.Payload()
		payload[payloadID] = r.ID
		payload[payloadFile] = r.File
		payload[payloadText] = r.Text
		points = append(points, point{
			ID:      PointID(r.ID),
			Vector:  r.Embedding,
			Payload: payload,
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", url.PathEscape(collection))
	if err := c.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert"); err != nil {
		return collectionError(collection, err)
	}
	return nil
}

func (c *Client) Query(
	ctx context.Context,
	collection string,
	embedding []float32,
	topN int,
	filter domain.MetadataFilter,
) ([]domain.CollectionHit, error) {
	reqBody := map[string]any{
		"vector":       embedding,
		"limit":        topN,
		"with_payload": true,
	}
	if len(filter) > 0 {
		must := make([]map[string]any, 0, len(filter))
		for _, key := range filter.Keys() {
			must = append(must, map[string]any{
				"key": key,
				"match": map[string]any{
					"value": filter[key],
				},
			})
		}
		reqBody["filter"] = map[string]any{"must": must}
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", url.PathEscape(collection))
	if err := c.do(ctx, http.MethodPost, path, reqBody, &searchResp, "search"); err != nil {
		return nil, collectionError(collection, err)
	}

	out := make([]domain.CollectionHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		meta := make(map[string]string, len(r.Payload))
		for k := range r.Payload {
			if k == payloadText {
				continue
			}
			meta[k] = getStringPayload(r.Payload, k)
		}
		out = append(out, domain.CollectionHit{
			ID:       getStringPayload(r.Payload, payloadID),
			Document: getStringPayload(r.Payload, payloadText),
			Metadata: meta,
			Score:    r.Score,
		})
	}
	return out, nil
}

// Count returns the number of points; a missing collection counts as empty.
func (c *Client) Count(ctx context.Context, collection string) (int, error) {
	var countResp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/count", url.PathEscape(collection))
	err := c.do(ctx, http.MethodPost, path, map[string]any{"exact": true}, &countResp, "count")
	if isNotFound(err) {
		return 0, nil
	}
	if err != nil {
		return 0, collectionError(collection, err)
	}
	return countResp.Result.Count, nil
}

func (c *Client) DeleteCollection(ctx context.Context, collection string) error {
	path := fmt.Sprintf("/collections/%s", url.PathEscape(collection))
	err := c.do(ctx, http.MethodDelete, path, nil, nil, "delete_collection")
	if err != nil && !isNotFound(err) {
		return collectionError(collection, err)
	}

	c.ensureMu.Lock()
	delete(c.ensured, collection)
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, collection string, vectorSize int) error {
	c.ensureMu.Lock()
	if size, ok := c.ensured[collection]; ok && size == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	path := fmt.Sprintf("/collections/%s", url.PathEscape(collection))
	err := c.do(ctx, http.MethodPut, path, reqBody, nil, "ensure_collection")

	// 409 if the collection already exists (depends on version/config).
	var statusErr *resilience.HTTPStatusError
	if err != nil && !(errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict) {
		return collectionError(collection, err)
	}

	c.ensureMu.Lock()
	c.ensured[collection] = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var body []byte
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = raw
	}

	return c.executor.Execute(ctx, "qdrant_"+operation, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant %s request: %w", operation, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return resilience.NewHTTPStatusError("qdrant", operation, resp)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s response: %w", operation, err)
		}
		return nil
	}, resilience.ClassifyHTTPError)
}

func isNotFound(err error) bool {
	var statusErr *resilience.HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

func collectionError(collection string, err error) error {
	return domain.WrapError(domain.ErrCollectionUnavailable, "qdrant "+collection, resilience.WrapTemporaryIfNeeded("qdrant", err))
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
