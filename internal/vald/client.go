package vald

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPDoer defines the http.Client interface subset used by this package.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// NewDefaultHTTPClient returns an *http.Client with a bounded per-call
// timeout so a hung API call cannot stall the whole nightly run.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// Options configures a Client.
type Options struct {
	ForceDecksURL string
	ProfileURL    string
	TenantID      string
}

// Client calls the VALD profile and ForceDecks APIs with bearer auth.
type Client struct {
	opts   Options
	doer   HTTPDoer
	tokens *TokenSource
}

// NewClient builds a VALD API client.
func NewClient(opts Options, tokens *TokenSource, doer HTTPDoer) *Client {
	opts.ForceDecksURL = strings.TrimRight(opts.ForceDecksURL, "/")
	opts.ProfileURL = strings.TrimRight(opts.ProfileURL, "/")
	return &Client{opts: opts, doer: doer, tokens: tokens}
}

// Profile is one athlete registered with the tenant.
type Profile struct {
	ProfileID   string
	GivenName   string
	FamilyName  string
	FullName    string
	DateOfBirth time.Time // zero when absent
}

// TestSession is one recorded test for a profile.
type TestSession struct {
	TestID      string
	TestType    string
	ModifiedUTC time.Time
}

// TrialResult is one raw metric value inside a trial.
type TrialResult struct {
	Value     float64
	Limb      string
	ResultKey string
	Unit      string
}

// RawTrial is one trial of a test as returned by the trials endpoint.
type RawTrial struct {
	Results []TrialResult
}

func (c *Client) get(ctx context.Context, rawURL string, out interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.doer.Do(req)
	if err != nil {
		return fmt.Errorf("vald: GET %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("vald: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vald: GET %s: status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("vald: decode response: %w", err)
	}
	return nil
}

// Profiles fetches every athlete profile for the tenant.
func (c *Client) Profiles(ctx context.Context) ([]Profile, error) {
	u := fmt.Sprintf("%s/profiles?tenantId=%s", c.opts.ProfileURL, url.QueryEscape(c.opts.TenantID))

	var payload struct {
		Profiles []struct {
			ProfileID   string `json:"profileId"`
			GivenName   string `json:"givenName"`
			FamilyName  string `json:"familyName"`
			DateOfBirth string `json:"dateOfBirth"`
		} `json:"profiles"`
	}
	if err := c.get(ctx, u, &payload); err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(payload.Profiles))
	for _, p := range payload.Profiles {
		given := strings.TrimSpace(p.GivenName)
		family := strings.TrimSpace(p.FamilyName)
		profiles = append(profiles, Profile{
			ProfileID:   p.ProfileID,
			GivenName:   given,
			FamilyName:  family,
			FullName:    strings.TrimSpace(given + " " + family),
			DateOfBirth: parseAPITime(p.DateOfBirth),
		})
	}
	return profiles, nil
}

// TestsByProfile fetches tests for one profile modified since the given
// UTC instant.
func (c *Client) TestsByProfile(ctx context.Context, profileID string, modifiedFrom time.Time) ([]TestSession, error) {
	u := fmt.Sprintf("%s/tests?TenantId=%s&ModifiedFromUtc=%s&ProfileId=%s",
		c.opts.ForceDecksURL,
		url.QueryEscape(c.opts.TenantID),
		url.QueryEscape(modifiedFrom.UTC().Format("2006-01-02T15:04:05Z")),
		url.QueryEscape(profileID),
	)

	var payload struct {
		Tests []struct {
			TestID          string `json:"testId"`
			ModifiedDateUTC string `json:"modifiedDateUtc"`
			TestType        string `json:"testType"`
		} `json:"tests"`
	}
	if err := c.get(ctx, u, &payload); err != nil {
		return nil, err
	}

	sessions := make([]TestSession, 0, len(payload.Tests))
	for _, t := range payload.Tests {
		sessions = append(sessions, TestSession{
			TestID:      t.TestID,
			TestType:    t.TestType,
			ModifiedUTC: parseAPITime(t.ModifiedDateUTC),
		})
	}
	return sessions, nil
}

// TrialsByTest fetches the per-trial metric values of one test.
func (c *Client) TrialsByTest(ctx context.Context, testID string) ([]RawTrial, error) {
	u := fmt.Sprintf("%s/v2019q3/teams/%s/tests/%s/trials",
		c.opts.ForceDecksURL, url.PathEscape(c.opts.TenantID), url.PathEscape(testID))

	var payload []struct {
		Results []struct {
			Value      float64 `json:"value"`
			Limb       string  `json:"limb"`
			Definition struct {
				Result string `json:"result"`
				Unit   string `json:"unit"`
			} `json:"definition"`
		} `json:"results"`
	}
	if err := c.get(ctx, u, &payload); err != nil {
		return nil, err
	}

	trials := make([]RawTrial, 0, len(payload))
	for _, t := range payload {
		trial := RawTrial{Results: make([]TrialResult, 0, len(t.Results))}
		for _, res := range t.Results {
			trial.Results = append(trial.Results, TrialResult{
				Value:     res.Value,
				Limb:      res.Limb,
				ResultKey: res.Definition.Result,
				Unit:      res.Definition.Unit,
			})
		}
		trials = append(trials, trial)
	}
	return trials, nil
}

// parseAPITime accepts the timestamp layouts the API is known to emit.
// Returns the zero time when the value is absent or unparseable.
func parseAPITime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
