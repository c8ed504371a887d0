// Package leaderboard queries the remote scoreboard for the best known
// score per problem instance. Read-only: nothing here mutates local state.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/placement-opt/placement-core/pkg/utils"
)

// scoreDecimals is the precision scores are rounded to before comparing,
// matching the precision the scoreboard itself stores
const scoreDecimals = 6

// Entry is one team's score for an instance
type Entry struct {
	TeamName  string
	TeamScore float64
}

// scoreboard is the wire shape of a scoreboard response
type scoreboard struct {
	Entries []Entry
}

// Comparison relates a local solution to the best remote score
type Comparison struct {
	Size   string
	ID     int
	Local  float64
	Best   float64
	Better bool
	Tied   bool
}

// Client fetches scoreboard entries over HTTP
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient creates a scoreboard client for the given base URL. A nil
// httpc gets a client with a ten second timeout.
func NewClient(baseURL string, httpc *http.Client) *Client {
	if httpc == nil {
		httpc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, httpc: httpc}
}

// BestScore returns the lowest score any team has posted for the instance
func (c *Client) BestScore(ctx context.Context, size string, id int) (float64, error) {
	url := fmt.Sprintf("%s/%s/%d", c.baseURL, size, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build scoreboard request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch scoreboard %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scoreboard %s returned status %d", url, resp.StatusCode)
	}

	var board scoreboard
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return 0, fmt.Errorf("decode scoreboard %s: %w", url, err)
	}
	if len(board.Entries) == 0 {
		return 0, fmt.Errorf("scoreboard %s has no entries", url)
	}

	best := board.Entries[0].TeamScore
	for _, e := range board.Entries[1:] {
		if e.TeamScore < best {
			best = e.TeamScore
		}
	}
	return best, nil
}

// Compare fetches the best remote score and relates the local penalty to
// it. Both sides are rounded to six decimals before comparing.
func (c *Client) Compare(ctx context.Context, size string, id int, localPenalty float64) (Comparison, error) {
	best, err := c.BestScore(ctx, size, id)
	if err != nil {
		return Comparison{}, err
	}

	local := utils.Round(localPenalty, scoreDecimals)
	remote := utils.Round(best, scoreDecimals)
	return Comparison{
		Size:   size,
		ID:     id,
		Local:  local,
		Best:   remote,
		Better: local < remote,
		Tied:   local == remote,
	}, nil
}
