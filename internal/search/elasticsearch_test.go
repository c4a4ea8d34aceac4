package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyaltix/internal/config"
	"loyaltix/internal/models"
)

// fakeES answers just enough of the Elasticsearch API for the client
type fakeES struct {
	mu       sync.Mutex
	created  bool
	indexed  map[string][]byte
	lastBody []byte
	hits     []models.Ticket
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/tickets":
		if f.created {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/tickets":
		f.created = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case strings.HasPrefix(r.URL.Path, "/tickets/_doc/"):
		f.indexed[strings.TrimPrefix(r.URL.Path, "/tickets/_doc/")] = body
		_, _ = w.Write([]byte(`{"result":"created"}`))
	case r.URL.Path == "/_bulk":
		f.lastBody = body
		_, _ = w.Write([]byte(`{"errors":false,"items":[]}`))
	case r.URL.Path == "/tickets/_search":
		f.lastBody = body
		var resp struct {
			Hits struct {
				Hits []map[string]interface{} `json:"hits"`
			} `json:"hits"`
		}
		for _, t := range f.hits {
			resp.Hits.Hits = append(resp.Hits.Hits, map[string]interface{}{"_source": t})
		}
		_ = json.NewEncoder(w).Encode(resp)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{}`))
	}
}

func newTestClient(t *testing.T) (*ElasticsearchClient, *fakeES) {
	t.Helper()
	fake := &fakeES{indexed: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewElasticsearchClient(context.Background(), config.ElasticsearchConfig{
		URL:   srv.URL,
		Index: "tickets",
	})
	require.NoError(t, err)
	return c, fake
}

func TestNewClientCreatesIndex(t *testing.T) {
	_, fake := newTestClient(t)
	assert.True(t, fake.created)
}

func TestIndexTicket(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.IndexTicket(context.Background(), &models.Ticket{ID: 42, EventID: 1, UserID: 7, Price: 85})
	require.NoError(t, err)

	var doc models.Ticket
	require.NoError(t, json.Unmarshal(fake.indexed["42"], &doc))
	assert.Equal(t, uint64(85), doc.Price)
}

func TestSearchTickets(t *testing.T) {
	c, fake := newTestClient(t)
	fake.hits = []models.Ticket{{ID: 1, UserID: 7}, {ID: 2, UserID: 7}}

	tickets, err := c.SearchTickets(context.Background(), 7, 0, 5)
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
	assert.Contains(t, string(fake.lastBody), `"user_id":7`)
	assert.NotContains(t, string(fake.lastBody), "event_id")
}

func TestBulkIndexBody(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.BulkIndex(context.Background(), []models.Ticket{{ID: 1}, {ID: 2}})
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(fake.lastBody))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"_id":"1"`)
	assert.Contains(t, lines[2], `"_id":"2"`)

	assert.NoError(t, c.BulkIndex(context.Background(), nil))
}

func TestBuildTicketQuery(t *testing.T) {
	q := buildTicketQuery(0, 0)
	assert.Contains(t, q, "match_all")

	q = buildTicketQuery(3, 4)
	filters := q["bool"].(map[string]interface{})["filter"].([]map[string]interface{})
	assert.Len(t, filters, 2)
}
