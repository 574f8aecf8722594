// Package providers – AmadeusProvider
//
// Fallback flight-data provider backed by the Amadeus Self-Service API.
// Stable and generously rate-limited, but its free tier excludes the
// European low-cost carriers, so it sits behind Google Flights in the
// cascade and its results skew toward major carriers.
//
// Authentication is OAuth2 client-credentials; access tokens are reused
// through an injected TokenCache until shortly before expiry.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hopcraft/go-trip-backend/internal/domain"
)

const defaultAmadeusBaseURL = "https://test.api.amadeus.com"

// AmadeusProvider queries the Amadeus flight-offers search API.
type AmadeusProvider struct {
	apiKey    string
	apiSecret string
	baseURL   string
	client    *http.Client
	tokens    *TokenCache
}

// NewAmadeusProvider constructs the provider with its injected HTTP client
// and token cache. Pass baseURL "" for the Amadeus test environment.
func NewAmadeusProvider(apiKey, apiSecret, baseURL string, client *http.Client, tokens *TokenCache) *AmadeusProvider {
	if baseURL == "" {
		baseURL = defaultAmadeusBaseURL
	}
	return &AmadeusProvider{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   baseURL,
		client:    client,
		tokens:    tokens,
	}
}

var (
	isoHoursRE   = regexp.MustCompile(`(\d+)H`)
	isoMinutesRE = regexp.MustCompile(`(\d+)M`)
)

// parseISODuration converts an ISO 8601 duration like "PT2H30M" to minutes.
func parseISODuration(s string) int {
	minutes := 0
	if m := isoHoursRE.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		minutes += h * 60
	}
	if m := isoMinutesRE.FindStringSubmatch(s); m != nil {
		mm, _ := strconv.Atoi(m[1])
		minutes += mm
	}
	return minutes
}

// amadeusOffer mirrors the parts of an Amadeus flight offer this provider
// reads.
type amadeusOffer struct {
	Itineraries []struct {
		Duration string `json:"duration"`
		Segments []struct {
			Departure struct {
				IATACode string `json:"iataCode"`
				At       string `json:"at"`
			} `json:"departure"`
			Arrival struct {
				IATACode string `json:"iataCode"`
			} `json:"arrival"`
			CarrierCode string `json:"carrierCode"`
		} `json:"segments"`
	} `json:"itineraries"`
	Price struct {
		Total string `json:"total"`
	} `json:"price"`
}

// parseAmadeusOffer normalizes one Amadeus offer; malformed entries are
// dropped rather than failing the batch.
func parseAmadeusOffer(item amadeusOffer) (domain.FlightOffer, bool) {
	if len(item.Itineraries) == 0 || len(item.Itineraries[0].Segments) == 0 {
		return domain.FlightOffer{}, false
	}
	itin := item.Itineraries[0]
	first := itin.Segments[0]
	last := itin.Segments[len(itin.Segments)-1]

	price, err := strconv.ParseFloat(item.Price.Total, 64)
	if err != nil {
		return domain.FlightOffer{}, false
	}

	return domain.FlightOffer{
		Origin:      first.Departure.IATACode,
		Destination: last.Arrival.IATACode,
		Departure:   first.Departure.At,
		PriceEUR:    price,
		Airline:     first.CarrierCode,
		Direct:      len(itin.Segments) == 1,
		DurationMin: parseISODuration(itin.Duration),
	}, true
}

// fetchToken performs the client-credentials exchange.
func (p *AmadeusProvider) fetchToken(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.apiKey)
	form.Set("client_secret", p.apiSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/security/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("amadeus: token request failed with status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", 0, fmt.Errorf("amadeus: decode token response: %w", err)
	}
	return body.AccessToken, time.Duration(body.ExpiresIn) * time.Second, nil
}

// SearchOneWay queries offers departing on dateFrom. Amadeus has no native
// date-range search, so dateTo is ignored beyond validation upstream.
func (p *AmadeusProvider) SearchOneWay(ctx context.Context, origin, dest string, dateFrom, _ time.Time, directOnly bool, maxResults int) ([]domain.FlightOffer, error) {
	token, err := p.tokens.Token(ctx, p.fetchToken)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("originLocationCode", origin)
	q.Set("destinationLocationCode", dest)
	q.Set("departureDate", dateFrom.Format("2006-01-02"))
	q.Set("adults", "1")
	q.Set("currencyCode", "EUR")
	if maxResults > 250 {
		maxResults = 250 // Amadeus hard cap
	}
	q.Set("max", strconv.Itoa(maxResults))
	if directOnly {
		q.Set("nonStop", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		p.baseURL+"/v2/shopping/flight-offers?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("amadeus: search failed with status %d", resp.StatusCode)
	}

	var payload struct {
		Data []amadeusOffer `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("amadeus: decode search response: %w", err)
	}

	var offers []domain.FlightOffer
	for _, item := range payload.Data {
		if offer, ok := parseAmadeusOffer(item); ok {
			offers = append(offers, offer)
		}
	}
	sortOffersByPrice(offers)
	return offers, nil
}

// SearchMultiCity searches each leg sequentially and keeps the cheapest
// offer per leg; legs with no availability are omitted.
func (p *AmadeusProvider) SearchMultiCity(ctx context.Context, legs []domain.Leg) ([]domain.FlightOffer, error) {
	var out []domain.FlightOffer
	for _, leg := range legs {
		offers, err := p.SearchOneWay(ctx, leg.Origin, leg.Destination, leg.Date, leg.Date, false, 5)
		if err != nil {
			return nil, err
		}
		if len(offers) > 0 {
			out = append(out, cheapestOffer(offers))
		}
	}
	return out, nil
}
