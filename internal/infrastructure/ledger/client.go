// Package ledger implements the credential-ledger API client. The
// ledger is the external system of record that durably verifies badge
// awards; the engine submits each award and records the settled
// verification status.
package ledger

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/codequest-hub/gamification-engine/internal/application/reward"
	"github.com/codequest-hub/gamification-engine/internal/domain/badge"
	"github.com/codequest-hub/gamification-engine/internal/domain/shared"
	"github.com/codequest-hub/gamification-engine/pkg/circuitbreaker"
	"github.com/codequest-hub/gamification-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the ledger client.
type ClientConfig struct {
	// BaseURL is the ledger API base URL
	BaseURL string

	// APIKey is the bearer token for authentication
	APIKey string

	// Timeout is the HTTP request timeout
	Timeout time.Duration

	// Logger for structured logging
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL: baseURL,
		Timeout: 15 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client is the credential-ledger API client. It implements
// reward.CredentialLedger.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	retrier    *retry.Retrier
	breaker    *circuitbreaker.CircuitBreaker
}

// NewClient creates a new ledger client.
func NewClient(config ClientConfig) *Client {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:  logger,
		retrier: retry.LedgerRetrier(),
		breaker: circuitbreaker.LedgerBreaker(func(name string, from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		}),
	}
}

// submitRequestDTO is the wire shape of an award submission.
type submitRequestDTO struct {
	AwardID      string   `json:"award_id"`
	BadgeName    string   `json:"badge_name"`
	Category     string   `json:"category"`
	Rarity       string   `json:"rarity"`
	RarityScore  int      `json:"rarity_score"`
	AwardedAt    string   `json:"awarded_at"`
	QualityScore float64  `json:"quality_score"`
	Skills       []string `json:"skills,omitempty"`

	// Fingerprint is a BLAKE2b digest of the fields above; the ledger
	// rejects submissions whose payload does not match it.
	Fingerprint string `json:"fingerprint"`
}

// submitResponseDTO is the ledger's answer.
type submitResponseDTO struct {
	Status         string `json:"status"`
	TransactionRef string `json:"transaction_ref"`
	Error          string `json:"error,omitempty"`
}

// SubmitAward implements reward.CredentialLedger.
func (c *Client) SubmitAward(ctx context.Context, award *badge.Award, qualityScore float64) (*reward.LedgerReceipt, error) {
	req, err := buildSubmitRequest(award, qualityScore)
	if err != nil {
		return nil, err
	}

	var resp submitResponseDTO
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doRequest(ctx, http.MethodPost, "/api/v1/awards", req, &resp)
		})
	})
	if err != nil {
		if c.breaker.IsOpen() {
			return nil, shared.WrapError("ledger", "SubmitAward", shared.ErrServiceUnavailable,
				"credential ledger circuit open", err)
		}
		return nil, shared.WrapError("ledger", "SubmitAward", shared.ErrExternalService,
			"award submission failed", err)
	}

	receipt := &reward.LedgerReceipt{
		Status:         badge.VerificationStatus(resp.Status),
		TransactionRef: resp.TransactionRef,
	}
	if receipt.Status != badge.VerificationVerified && receipt.Status != badge.VerificationPending {
		// Anything else from the ledger means the award did not verify.
		receipt.Status = badge.VerificationUnverified
	}

	c.logger.Info("award submitted to ledger",
		"award_id", award.ID,
		"badge", award.BadgeName,
		"status", string(receipt.Status),
		"transaction_ref", receipt.TransactionRef,
	)
	return receipt, nil
}

// VerificationResult is the ledger's stored view of one award.
type VerificationResult struct {
	AwardID        string
	Status         badge.VerificationStatus
	TransactionRef string
	VerifiedAt     *time.Time
}

// GetVerification fetches the current verification state of an award.
func (c *Client) GetVerification(ctx context.Context, awardID string) (*VerificationResult, error) {
	var resp struct {
		AwardID        string     `json:"award_id"`
		Status         string     `json:"status"`
		TransactionRef string     `json:"transaction_ref"`
		VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	}

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return c.retrier.Do(ctx, func(ctx context.Context) error {
			return c.doRequest(ctx, http.MethodGet, "/api/v1/awards/"+awardID, nil, &resp)
		})
	})
	if err != nil {
		return nil, shared.WrapError("ledger", "GetVerification", shared.ErrExternalService,
			"verification lookup failed", err)
	}

	return &VerificationResult{
		AwardID:        resp.AwardID,
		Status:         badge.VerificationStatus(resp.Status),
		TransactionRef: resp.TransactionRef,
		VerifiedAt:     resp.VerifiedAt,
	}, nil
}

// Ping checks ledger availability.
func (c *Client) Ping(ctx context.Context) error {
	return c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, nil)
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSPORT
// ══════════════════════════════════════════════════════════════════════════════

// doRequest performs a single HTTP request against the ledger API.
// Server errors are marked retryable; client errors are permanent.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return retry.Permanent(fmt.Errorf("marshal request: %w", err))
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return retry.Retryable(fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError,
		resp.StatusCode == http.StatusTooManyRequests:
		return retry.Retryable(fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, string(respBody)))
	case resp.StatusCode >= http.StatusBadRequest:
		return retry.Permanent(fmt.Errorf("ledger returned status %d: %s", resp.StatusCode, string(respBody)))
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return retry.Permanent(fmt.Errorf("parse response: %w", err))
	}
	return nil
}

func buildSubmitRequest(award *badge.Award, qualityScore float64) (*submitRequestDTO, error) {
	skills := make([]string, 0, len(award.Metadata.ValidatedSkills))
	for _, s := range award.Metadata.ValidatedSkills {
		skills = append(skills, s.String())
	}

	req := &submitRequestDTO{
		AwardID:      award.ID,
		BadgeName:    award.BadgeName,
		Category:     string(award.Category),
		Rarity:       award.Rarity.String(),
		RarityScore:  award.RarityScore,
		AwardedAt:    award.AwardedAt.UTC().Format(time.RFC3339),
		QualityScore: qualityScore,
		Skills:       skills,
	}

	fingerprint, err := fingerprintOf(req)
	if err != nil {
		return nil, shared.WrapError("ledger", "SubmitAward", shared.ErrInvalidInput,
			"failed to fingerprint award", err)
	}
	req.Fingerprint = fingerprint
	return req, nil
}

// fingerprintOf computes the BLAKE2b-256 digest of the submission
// payload with the fingerprint field left empty.
func fingerprintOf(req *submitRequestDTO) (string, error) {
	clone := *req
	clone.Fingerprint = ""

	data, err := json.Marshal(&clone)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
