package advisor

import (
	"context"
	"fmt"
	"time"

	"SignalDesk/internal/domain/models"
	xhttp "SignalDesk/pkg/http"
)

// Client implements RecommendationSource against the advisor HTTP service.
// The service owns prompt construction and model calls; this side only sees
// proposals with confidence scores.
type Client struct {
	url  string
	http *xhttp.Client
}

// New creates an advisor client.
func New(url string, timeout time.Duration) *Client {
	return &Client{
		url:  url,
		http: xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

type proposeResponse struct {
	Proposals []models.Proposal `json:"proposals"`
}

// Propose posts the portfolio context and returns proposed trades in the
// advisor's emitted order.
func (c *Client) Propose(ctx context.Context, pc models.PortfolioContext) ([]models.Proposal, error) {
	var resp proposeResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.url + "/v1/propose",
		Body:   pc,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("advisor propose: %w", err)
	}
	return resp.Proposals, nil
}
