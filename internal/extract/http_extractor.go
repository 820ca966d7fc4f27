package extract

import (
	"context"
	"net/http"
	"time"

	"stubborn-archivist/internal/models"
)

// Challenge polling: a page serving an anti-automation interstitial is
// re-fetched at PollInterval until Timeout, then recorded as failed.
const (
	DefaultChallengeTimeout      = 30 * time.Second
	DefaultChallengePollInterval = 3 * time.Second
)

// HTTPExtractor extracts dictionary page content over plain HTTP. Every
// Extract call builds a fresh client and throws it away afterwards, so no
// cookies, connections or TLS session state carry over between items.
type HTTPExtractor struct {
	// ProxyURL routes fetches through a fixed proxy. If empty and ProxyPool
	// is set (comma-separated URLs), one is picked deterministically by
	// Hostname.
	ProxyURL  string
	ProxyPool string
	Hostname  string

	// Robots, when non-nil, is consulted before each fetch; a disallowed
	// path is recorded as a failed outcome without touching the site.
	Robots *RobotsRules

	ChallengeTimeout      time.Duration
	ChallengePollInterval time.Duration

	// NewClient overrides client construction (tests). Defaults to
	// extract.NewClient.
	NewClient func(proxyURL string) *http.Client
}

// Extract fetches one URL and parses its content, always returning a
// terminal outcome: succeeded with a payload, or failed with a reason.
func (e *HTTPExtractor) Extract(ctx context.Context, pageURL string) models.Outcome {
	if e.Robots != nil {
		if path := PathFromURL(pageURL); !e.Robots.Allowed(path) {
			return models.FailedOutcome(pageURL, "robots.txt disallows path "+path)
		}
	}

	proxyURL := e.ProxyURL
	if proxyURL == "" && e.ProxyPool != "" {
		proxyURL = SelectProxyFromPool(e.ProxyPool, e.Hostname)
	}
	newClient := e.NewClient
	if newClient == nil {
		newClient = NewClient
	}
	client := newClient(proxyURL)

	body, err := e.fetchPastChallenge(ctx, client, pageURL)
	if err != nil {
		return models.FailedOutcome(pageURL, err.Error())
	}

	page := ParsePage(body)
	page.ExtractedAt = time.Now().UTC()
	if page.Empty() {
		return models.FailedOutcome(pageURL, "empty content")
	}

	return models.Outcome{
		ID:      pageURL,
		Status:  models.StatusSucceeded,
		Payload: &page,
	}
}

// errChallengeNotCleared is the reason recorded when the interstitial never
// goes away within the challenge timeout.
const errChallengeNotCleared = "challenge page not cleared"

type challengeError struct{}

func (challengeError) Error() string { return errChallengeNotCleared }

// fetchPastChallenge fetches the page, re-fetching on a fixed interval while
// the site serves an anti-automation interstitial.
func (e *HTTPExtractor) fetchPastChallenge(ctx context.Context, client *http.Client, pageURL string) ([]byte, error) {
	timeout := e.ChallengeTimeout
	if timeout <= 0 {
		timeout = DefaultChallengeTimeout
	}
	poll := e.ChallengePollInterval
	if poll <= 0 {
		poll = DefaultChallengePollInterval
	}

	deadline := time.Now().Add(timeout)
	for {
		body, err := FetchPage(ctx, client, pageURL)
		if err != nil {
			return nil, err
		}
		if !IsChallengePage(body) {
			return body, nil
		}
		if time.Now().After(deadline) {
			return nil, challengeError{}
		}
		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
