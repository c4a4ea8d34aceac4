//go:build integration

package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyaltix/internal/models"
)

// Эти тесты идут против запущенного API (docker compose up), адрес берется из API_BASE_URL

type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewTestClient() *TestClient {
	baseURL := os.Getenv("API_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8081"
	}
	return &TestClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	require.NoError(t, err)
	return resp
}

// expect проверяет статус и декодирует тело в out, если он задан
func (c *TestClient) expect(t *testing.T, method, path string, body interface{}, status int, out interface{}) {
	t.Helper()
	resp := c.makeRequest(t, method, path, body)
	defer resp.Body.Close()

	if resp.StatusCode != status {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected status %d, got %d. Body: %s", method, path, status, resp.StatusCode, raw)
	}
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
}

func (c *TestClient) CreateEvent(t *testing.T, price, total uint64) int64 {
	var created models.CreateEventResponse
	c.expect(t, "POST", "/api/events", models.CreateEventRequest{
		Title:        "Integration " + t.Name(),
		TicketPrice:  price,
		TotalTickets: total,
	}, http.StatusCreated, &created)
	return created.ID
}

func uniqueUserID() int64 {
	return time.Now().UnixNano()
}

func TestAPI_HealthCheck(t *testing.T) {
	client := NewTestClient()

	var health map[string]interface{}
	client.expect(t, "GET", "/health", nil, http.StatusOK, &health)
	assert.Contains(t, []interface{}{"ok", "healthy"}, health["status"])
}

func TestAPI_PurchaseAndLoyaltyFlow(t *testing.T) {
	client := NewTestClient()
	userID := uniqueUserID()

	eventID := client.CreateEvent(t, 1000, 10)

	// 40000 потрачено: 6000 баллов, Gold
	var account models.LoyaltyAccount
	client.expect(t, "POST", "/api/loyalty/award", models.AwardPointsRequest{UserID: userID, Amount: 40000}, http.StatusOK, &account)
	require.Equal(t, models.TierGold, account.Tier)

	var quote models.PriceQuoteResponse
	client.expect(t, "GET", fmt.Sprintf("/api/events/%d/quote?user_id=%d", eventID, userID), nil, http.StatusOK, &quote)
	assert.Equal(t, uint64(500), quote.DynamicPrice)
	assert.Equal(t, uint64(425), quote.FinalPrice)

	var purchase models.PurchaseTicketResponse
	client.expect(t, "POST", "/api/tickets/purchase", models.PurchaseTicketRequest{EventID: eventID, UserID: userID, SeatNumber: "A1"}, http.StatusCreated, &purchase)
	assert.Equal(t, quote.FinalPrice, purchase.Ticket.Price)
	assert.Equal(t, 6000+quote.PointsToEarn, purchase.Loyalty.Points)

	var event models.Event
	client.expect(t, "GET", fmt.Sprintf("/api/events/%d", eventID), nil, http.StatusOK, &event)
	assert.Equal(t, uint64(1), event.TicketsSold)

	client.expect(t, "POST", "/api/loyalty/redeem", models.RedeemPointsRequest{UserID: userID, Points: purchase.Loyalty.Points + 1}, http.StatusConflict, nil)

	var redeemed models.RedeemPointsResponse
	client.expect(t, "POST", "/api/loyalty/redeem", models.RedeemPointsRequest{UserID: userID, Points: 1500}, http.StatusOK, &redeemed)
	assert.Equal(t, models.TierSilver, redeemed.Tier)
}

func TestAPI_ConcurrentPurchasesDoNotOversell(t *testing.T) {
	client := NewTestClient()
	const capacity, buyers = 5, 25

	eventID := client.CreateEvent(t, 100, capacity)
	base := uniqueUserID()

	var wg sync.WaitGroup
	statuses := make(chan int, buyers)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := client.makeRequest(t, "POST", "/api/tickets/purchase", models.PurchaseTicketRequest{
				EventID:    eventID,
				UserID:     base + int64(i),
				SeatNumber: fmt.Sprintf("S%d", i),
			})
			resp.Body.Close()
			statuses <- resp.StatusCode
		}(i)
	}
	wg.Wait()
	close(statuses)

	counts := map[int]int{}
	for s := range statuses {
		counts[s]++
	}
	assert.Equal(t, capacity, counts[http.StatusCreated])
	assert.Equal(t, buyers-capacity, counts[http.StatusConflict])

	var event models.Event
	client.expect(t, "GET", fmt.Sprintf("/api/events/%d", eventID), nil, http.StatusOK, &event)
	assert.Equal(t, uint64(capacity), event.TicketsSold)
}
