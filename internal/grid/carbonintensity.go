package grid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gridflex/pkg/units"
)

// DefaultCarbonIntensityURL is the UK National Grid Carbon Intensity
// API - free, no auth required.
// https://carbon-intensity.github.io/api-definitions/
const DefaultCarbonIntensityURL = "https://api.carbonintensity.org.uk"

var renewableSources = map[string]bool{
	"wind":    true,
	"solar":   true,
	"hydro":   true,
	"biomass": true,
}

// IntensityReading is the parsed result of a carbon intensity query.
type IntensityReading struct {
	Actual           float64
	Forecast         float64
	RenewablePercent float64
}

// CarbonIntensityClient queries the UK National Grid carbon intensity API.
type CarbonIntensityClient struct {
	baseURL string
	client  *http.Client
}

// NewCarbonIntensityClient creates a client against the public API.
func NewCarbonIntensityClient() *CarbonIntensityClient {
	return NewCarbonIntensityClientWithURL(DefaultCarbonIntensityURL)
}

// NewCarbonIntensityClientWithURL creates a client against a custom
// endpoint, used by tests.
func NewCarbonIntensityClientWithURL(baseURL string) *CarbonIntensityClient {
	return &CarbonIntensityClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

type intensityResponse struct {
	Data []struct {
		Intensity struct {
			Forecast      float64 `json:"forecast"`
			Actual        float64 `json:"actual"`
			Index         string  `json:"index"`
			GenerationMix []struct {
				Fuel string  `json:"fuel"`
				Perc float64 `json:"perc"`
			} `json:"generationmix"`
		} `json:"intensity"`
	} `json:"data"`
}

// CurrentIntensity fetches the current half-hour carbon intensity and the
// renewable share of the generation mix.
func (c *CarbonIntensityClient) CurrentIntensity(ctx context.Context) (*IntensityReading, error) {
	body, err := c.get(ctx, "/intensity")
	if err != nil {
		return nil, err
	}

	if len(body.Data) == 0 {
		return nil, fmt.Errorf("carbon intensity api returned empty data")
	}

	slot := body.Data[0].Intensity
	reading := &IntensityReading{
		Actual:   slot.Actual,
		Forecast: slot.Forecast,
	}
	if reading.Actual == 0 {
		reading.Actual = slot.Forecast
	}

	var renewable float64
	for _, fuel := range slot.GenerationMix {
		if renewableSources[fuel.Fuel] {
			renewable += fuel.Perc
		}
	}
	reading.RenewablePercent = units.Round2(renewable)

	return reading, nil
}

// NextPeriodForecast fetches the forecast intensity for the next half-hour
// slot. Returns nil when the API exposes no further slots.
func (c *CarbonIntensityClient) NextPeriodForecast(ctx context.Context) (*float64, error) {
	body, err := c.get(ctx, "/intensity/date")
	if err != nil {
		return nil, err
	}

	if len(body.Data) < 2 {
		return nil, nil
	}
	forecast := body.Data[1].Intensity.Forecast
	return &forecast, nil
}

func (c *CarbonIntensityClient) get(ctx context.Context, path string) (*intensityResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create carbon intensity request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call carbon intensity api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("carbon intensity api status: %s", resp.Status)
	}

	var body intensityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode carbon intensity response: %w", err)
	}
	return &body, nil
}
