// Package entropy sources run seeds. With an API key it draws true
// randomness from random.org; otherwise it falls back to crypto/rand.
// A configured fixed seed bypasses this package entirely, which is the
// only path to reproducible runs.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sync"
	"time"
)

// Client fetches random fractions from random.org with a local pool.
type Client struct {
	apiKey string
	client *http.Client

	mu   sync.Mutex
	pool []float64
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Seed derives an int64 run seed. Uses the random.org pool when
// available, crypto/rand otherwise. Never fails; never returns 0, so a
// zero config seed can safely mean "unseeded".
func (c *Client) Seed() int64 {
	f, ok := c.takeFloat()
	if !ok {
		return cryptoSeed()
	}
	// Spread the [0, 1) fraction across the full int64 range.
	seed := int64(f * float64(math.MaxInt64))
	if seed == 0 {
		seed = cryptoSeed()
	}
	return seed
}

// takeFloat pops a pooled fraction, refilling the pool when low.
func (c *Client) takeFloat() (float64, bool) {
	if c == nil {
		return 0, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) < 10 {
		c.refill()
	}
	if len(c.pool) == 0 {
		return 0, false
	}

	val := c.pool[0]
	c.pool = c.pool[1:]
	return val, true
}

func (c *Client) refill() {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        c.apiKey,
			"n":             100,
			"decimalPlaces": 6,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return
	}

	resp, err := c.client.Post("https://api.random.org/json-rpc/4/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return
	}

	var result struct {
		Result struct {
			Random struct {
				Data []float64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return
	}

	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return
	}

	c.pool = append(c.pool, result.Result.Random.Data...)
	slog.Debug("random.org pool refilled", "count", len(result.Result.Random.Data))
}

// cryptoSeed generates a non-zero seed from crypto/rand.
func cryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Should never happen; fall back to a fixed non-zero seed.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}

// SeedFromSource returns a seed from the client if available, or
// crypto/rand when no client is configured.
func SeedFromSource(c *Client) int64 {
	if c != nil {
		return c.Seed()
	}
	return cryptoSeed()
}
