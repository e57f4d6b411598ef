package domain

import "time"

type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "draft"
	QuoteStatusSent     QuoteStatus = "sent"
	QuoteStatusAccepted QuoteStatus = "accepted"
	QuoteStatusDeclined QuoteStatus = "declined"
)

type Quote struct {
	ID              int64       `json:"id"`
	ClientID        int64       `json:"clientId"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	Amount          string      `json:"amount"`
	Status          QuoteStatus `json:"status"`
	ExternalQuoteID *string     `json:"externalQuoteId"`
	SentAt          *time.Time  `json:"sentAt"`
	FollowupCount   int         `json:"followupCount"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

type Client struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	ExternalID *string   `json:"externalId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Estimate is the draft estimate returned by the external CRM.
type Estimate struct {
	ID         string `json:"estimate_id"`
	Number     string `json:"estimate_number,omitempty"`
	CustomerID string `json:"customer_id,omitempty"`
	Status     string `json:"status,omitempty"`
}
