package models

// CreateEventRequest - модель для создания события
type CreateEventRequest struct {
	Title        string `json:"title"`
	TicketPrice  uint64 `json:"ticket_price"`
	TotalTickets uint64 `json:"total_tickets"`
	TicketsSold  uint64 `json:"tickets_sold,omitempty"`
}

// CreateEventResponse - модель ответа при создании события
type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// PurchaseTicketRequest - покупка билета по динамической цене
type PurchaseTicketRequest struct {
	EventID    int64  `json:"event_id" binding:"required"`
	UserID     int64  `json:"user_id" binding:"required"`
	SeatNumber string `json:"seat_number" binding:"required"`
}

// PurchaseTicketResponse - созданный билет и состояние счета после начисления баллов
type PurchaseTicketResponse struct {
	Ticket  Ticket         `json:"ticket"`
	Loyalty LoyaltyAccount `json:"loyalty"`
}

// ListTicketsResponse - список билетов пользователя
type ListTicketsResponse []Ticket

// AwardPointsRequest - начисление баллов за покупку
type AwardPointsRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Amount uint64 `json:"amount"`
}

// RedeemPointsRequest - списание баллов
type RedeemPointsRequest struct {
	UserID int64  `json:"user_id" binding:"required"`
	Points uint64 `json:"points" binding:"required"`
}

// RedeemPointsResponse - ответ на успешное списание
type RedeemPointsResponse struct {
	Message string `json:"message"`
	Points  uint64 `json:"points"`
	Tier    Tier   `json:"tier"`
}

// PriceQuoteResponse - предварительный расчет цены билета
type PriceQuoteResponse struct {
	EventID         int64  `json:"event_id"`
	UserID          int64  `json:"user_id,omitempty"`
	Tier            Tier   `json:"tier,omitempty"`
	BasePrice       uint64 `json:"base_price"`
	DynamicPrice    uint64 `json:"dynamic_price"`
	DiscountPercent uint64 `json:"discount_percent"`
	FinalPrice      uint64 `json:"final_price"`
	PointsToEarn    uint64 `json:"points_to_earn"`
}
