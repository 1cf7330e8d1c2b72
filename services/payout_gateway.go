package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"community-challenges/models"

	"github.com/rs/zerolog/log"
)

// PayoutGateway hands a prize to the payout rails. A nil error means the
// payout was accepted.
type PayoutGateway interface {
	Pay(ctx context.Context, d models.PrizeDistribution) error
}

// HTTPPayoutGateway posts payout instructions to the payout service.
type HTTPPayoutGateway struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

func NewHTTPPayoutGateway(baseURL, token string) *HTTPPayoutGateway {
	return &HTTPPayoutGateway{
		BaseURL: baseURL,
		Token:   token,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type payoutRequest struct {
	DistributionID string  `json:"distribution_id"` // idempotency key on the payout side
	ChallengeID    string  `json:"challenge_id"`
	UserID         string  `json:"user_id"`
	Position       string  `json:"position"`
	PrizeType      string  `json:"prize_type"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency,omitempty"`
	Description    string  `json:"description"`
}

func (g *HTTPPayoutGateway) Pay(ctx context.Context, d models.PrizeDistribution) error {
	url := fmt.Sprintf("%s/payouts", g.BaseURL)

	body, err := json.Marshal(payoutRequest{
		DistributionID: d.ID,
		ChallengeID:    d.ChallengeID,
		UserID:         d.UserID,
		Position:       d.Position,
		PrizeType:      string(d.Prize.Type),
		Amount:         d.Prize.Amount,
		Currency:       d.Prize.Currency,
		Description:    d.Prize.Description,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Service-Token", g.Token)

	resp, err := g.Client.Do(req)
	if err != nil {
		return fmt.Errorf("payout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("payout service returned %d: %s", resp.StatusCode, string(msg))
	}
	return nil
}

// LoggingPayoutGateway only records the intent. Used when no payout service is configured.
type LoggingPayoutGateway struct{}

func (LoggingPayoutGateway) Pay(_ context.Context, d models.PrizeDistribution) error {
	log.Info().
		Str("distribution_id", d.ID).
		Str("challenge_id", d.ChallengeID).
		Str("user_id", d.UserID).
		Str("position", d.Position).
		Float64("amount", d.Prize.Amount).
		Msg("💸 [PAYOUT] recorded payout intent (no payout service configured)")
	return nil
}
