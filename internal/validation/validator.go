package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"loyaltix/internal/models"
)

// SmokeValidator прогоняет основной сценарий против запущенного API
type SmokeValidator struct {
	baseURL string
	client  *http.Client
	// userID подбирается заново на каждый прогон, чтобы не зависеть от старых данных
	userID int64
}

// NewSmokeValidator создает новый валидатор
func NewSmokeValidator(baseURL string) *SmokeValidator {
	return &SmokeValidator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		userID:  time.Now().UnixNano(),
	}
}

// ValidateAll проверяет события, покупку и операции с баллами
func (v *SmokeValidator) ValidateAll() error {
	slog.Info("Начинаю валидацию API...", "base_url", v.baseURL)

	eventID, err := v.validateEvents()
	if err != nil {
		return fmt.Errorf("events validation failed: %w", err)
	}

	if err := v.validatePurchase(eventID); err != nil {
		return fmt.Errorf("purchase validation failed: %w", err)
	}

	if err := v.validateLoyalty(); err != nil {
		return fmt.Errorf("loyalty validation failed: %w", err)
	}

	slog.Info("✅ Все endpoints прошли валидацию успешно!")
	return nil
}

func (v *SmokeValidator) validateEvents() (int64, error) {
	slog.Info("Проверяю Events endpoints...")

	var created models.CreateEventResponse
	err := v.expect("POST", "/api/events", models.CreateEventRequest{
		Title:        "Тестовое событие",
		TicketPrice:  1000,
		TotalTickets: 100,
	}, http.StatusCreated, &created)
	if err != nil {
		return 0, err
	}
	if created.ID == 0 {
		return 0, fmt.Errorf("POST /api/events: expected non-zero ID")
	}

	var event models.Event
	if err := v.expect("GET", fmt.Sprintf("/api/events/%d", created.ID), nil, http.StatusOK, &event); err != nil {
		return 0, err
	}
	if event.TotalTickets != 100 || event.TicketsSold != 0 {
		return 0, fmt.Errorf("GET /api/events/%d: unexpected counters %d/%d", created.ID, event.TicketsSold, event.TotalTickets)
	}

	err = v.expect("POST", "/api/events", models.CreateEventRequest{Title: "Пустой зал", TicketPrice: 100}, http.StatusUnprocessableEntity, nil)
	if err != nil {
		return 0, err
	}

	if err := v.expect("GET", fmt.Sprintf("/api/events/%d", int64(math.MaxInt64)), nil, http.StatusNotFound, nil); err != nil {
		return 0, err
	}

	slog.Info("✅ Events endpoints валидны")
	return created.ID, nil
}

func (v *SmokeValidator) validatePurchase(eventID int64) error {
	slog.Info("Проверяю покупку билета...")

	var quote models.PriceQuoteResponse
	if err := v.expect("GET", fmt.Sprintf("/api/events/%d/quote?user_id=%d", eventID, v.userID), nil, http.StatusOK, &quote); err != nil {
		return err
	}
	// пустой зал: половина базовой цены, без скидки
	if quote.FinalPrice != 500 {
		return fmt.Errorf("quote: expected final price 500, got %d", quote.FinalPrice)
	}

	var purchase models.PurchaseTicketResponse
	err := v.expect("POST", "/api/tickets/purchase", models.PurchaseTicketRequest{
		EventID:    eventID,
		UserID:     v.userID,
		SeatNumber: "A1",
	}, http.StatusCreated, &purchase)
	if err != nil {
		return err
	}
	if purchase.Ticket.Price != quote.FinalPrice {
		return fmt.Errorf("purchase: charged %d, quoted %d", purchase.Ticket.Price, quote.FinalPrice)
	}
	if purchase.Loyalty.Points != quote.PointsToEarn {
		return fmt.Errorf("purchase: credited %d points, quoted %d", purchase.Loyalty.Points, quote.PointsToEarn)
	}

	if err := v.expect("GET", fmt.Sprintf("/api/tickets/%d", purchase.Ticket.ID), nil, http.StatusOK, nil); err != nil {
		return err
	}

	var tickets models.ListTicketsResponse
	if err := v.expect("GET", fmt.Sprintf("/api/tickets?user_id=%d", v.userID), nil, http.StatusOK, &tickets); err != nil {
		return err
	}
	if len(tickets) != 1 {
		return fmt.Errorf("GET /api/tickets: expected 1 ticket, got %d", len(tickets))
	}

	slog.Info("✅ Покупка валидна")
	return nil
}

func (v *SmokeValidator) validateLoyalty() error {
	slog.Info("Проверяю Loyalty endpoints...")

	var account models.LoyaltyAccount
	if err := v.expect("GET", fmt.Sprintf("/api/loyalty/%d", v.userID), nil, http.StatusOK, &account); err != nil {
		return err
	}

	err := v.expect("POST", "/api/loyalty/redeem", models.RedeemPointsRequest{UserID: v.userID, Points: account.Points + 1}, http.StatusConflict, nil)
	if err != nil {
		return err
	}

	var redeemed models.RedeemPointsResponse
	err = v.expect("POST", "/api/loyalty/redeem", models.RedeemPointsRequest{UserID: v.userID, Points: 1}, http.StatusOK, &redeemed)
	if err != nil {
		return err
	}
	if redeemed.Points != account.Points-1 {
		return fmt.Errorf("redeem: expected balance %d, got %d", account.Points-1, redeemed.Points)
	}

	if err := v.expect("GET", fmt.Sprintf("/api/loyalty/%d", v.userID), nil, http.StatusOK, &account); err != nil {
		return err
	}
	if len(account.History) != 2 {
		return fmt.Errorf("GET /api/loyalty: expected 2 history entries, got %d", len(account.History))
	}

	slog.Info("✅ Loyalty endpoints валидны")
	return nil
}

// expect выполняет запрос, проверяет статус и, если out не nil, декодирует тело
func (v *SmokeValidator) expect(method, path string, body interface{}, status int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, v.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != status {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: expected %d, got %d: %s", method, path, status, resp.StatusCode, raw)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
		}
	}
	return nil
}

// RunValidation запускает валидацию API; args - аргументы после "validate"
func RunValidation(args []string) {
	fs := pflag.NewFlagSet("validate", pflag.ExitOnError)
	baseURL := fs.String("url", "http://localhost:8081", "Base URL for API validation")
	_ = fs.Parse(args)

	validator := NewSmokeValidator(*baseURL)
	if err := validator.ValidateAll(); err != nil {
		slog.Error("❌ Валидация не пройдена", "error", err)
		os.Exit(1)
	}
}
