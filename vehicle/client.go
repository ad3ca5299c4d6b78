// Package vehicle decodes VINs and lists models through the NHTSA vPIC API.
package vehicle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dentscan/dentclaim/apperr"
	"github.com/dentscan/dentclaim/cache"
	"github.com/dentscan/dentclaim/config"
	"go.uber.org/zap"
)

const (
	VINLength = 17

	MsgScanned     = "VIN scanned successfully"
	MsgScanFailed  = "Failed to retrieve VIN data"
	MsgSpecsFound  = "Vehicle models fetched successfully"
	MsgSpecsFailed = "Failed to retrieve vehicle models"
)

var errNoResults = errors.New("vehicle: empty result set")

// Model is one make/model pair for a model year.
type Model struct {
	MakeID    int    `json:"Make_ID"`
	MakeName  string `json:"Make_Name"`
	ModelID   int    `json:"Model_ID"`
	ModelName string `json:"Model_Name"`
}

type vpicResponse[T any] struct {
	Count   int    `json:"Count"`
	Message string `json:"Message"`
	Results []T    `json:"Results"`
}

// Client queries the primary vPIC endpoint and falls back to the backup
// endpoint when the primary fails. Successful answers are cached.
type Client struct {
	bases  []string
	http   *http.Client
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

func NewClient(cfg config.VehicleConfig, c cache.Cache, logger *zap.Logger) *Client {
	var bases []string
	for _, b := range []string{cfg.BaseURL, cfg.BackupURL} {
		if b = strings.TrimRight(strings.TrimSpace(b), "/"); b != "" {
			bases = append(bases, b)
		}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		bases:  bases,
		http:   &http.Client{Timeout: timeout},
		cache:  c,
		ttl:    cfg.CacheTTL,
		logger: logger,
	}
}

// NormalizeVIN upper-cases and trims vin.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// DecodeVIN returns the flat decode record for vin.
func (c *Client) DecodeVIN(ctx context.Context, vin string) (map[string]any, error) {
	vin = NormalizeVIN(vin)
	if len(vin) != VINLength {
		return nil, apperr.ValidationFields("vin length must be 17", map[string]string{"vin": "length must be 17"})
	}

	var out map[string]any
	path := "/DecodeVinValues/" + url.PathEscape(vin) + "?format=json"
	if err := c.lookup(ctx, "vin:"+vin, path, &out, func(body []byte) error {
		var resp vpicResponse[map[string]any]
		if err := json.Unmarshal(body, &resp); err != nil {
			return err
		}
		if len(resp.Results) == 0 {
			return errNoResults
		}
		out = resp.Results[0]
		return nil
	}); err != nil {
		return nil, apperr.Upstream(MsgScanFailed, err)
	}
	return out, nil
}

// Models lists the models a make produced in a model year.
func (c *Client) Models(ctx context.Context, makeName string, year int) ([]Model, error) {
	makeName = strings.ToLower(strings.TrimSpace(makeName))
	if makeName == "" || year <= 0 {
		return nil, apperr.Validation("make and year are required")
	}

	var out []Model
	path := "/GetModelsForMakeYear/make/" + url.PathEscape(makeName) +
		"/modelyear/" + strconv.Itoa(year) + "?format=json"
	key := "models:" + makeName + ":" + strconv.Itoa(year)
	if err := c.lookup(ctx, key, path, &out, func(body []byte) error {
		var resp vpicResponse[Model]
		if err := json.Unmarshal(body, &resp); err != nil {
			return err
		}
		out = resp.Results
		if out == nil {
			out = []Model{}
		}
		return nil
	}); err != nil {
		return nil, apperr.Upstream(MsgSpecsFailed, err)
	}
	return out, nil
}

// lookup serves dst from the cache, or fetches path from each base in turn
// until parse accepts a body, then caches the parsed value.
func (c *Client) lookup(ctx context.Context, key, path string, dst any, parse func([]byte) error) error {
	if c.cache != nil && c.ttl > 0 {
		if raw, err := c.cache.Get(ctx, key); err == nil {
			if json.Unmarshal([]byte(raw), dst) == nil {
				return nil
			}
		}
	}

	if len(c.bases) == 0 {
		return errors.New("vehicle: no endpoint configured")
	}
	var lastErr error
	for _, base := range c.bases {
		body, err := c.get(ctx, base+path)
		if err == nil {
			err = parse(body)
		}
		if err == nil {
			c.store(ctx, key, dst)
			return nil
		}
		lastErr = err
		c.logger.Warn("vpic request failed", zap.String("base", base), zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return lastErr
}

func (c *Client) store(ctx context.Context, key string, v any) {
	if c.cache == nil || c.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, string(raw), c.ttl); err != nil {
		c.logger.Warn("vpic cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vehicle: %s returned %d", req.URL.Host, resp.StatusCode)
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
