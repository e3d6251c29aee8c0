package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ytchat/internal/domain"
)

// Fetcher downloads caption tracks from YouTube watch pages.
type Fetcher struct {
	baseURL string
	client  *http.Client
}

// Config configures the fetcher. BaseURL is overridable for tests.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

func NewFetcher(cfg Config) *Fetcher {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.youtube.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Fetcher{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// NewWithHTTPClient is intended for tests.
func NewWithHTTPClient(cfg Config, httpClient *http.Client) *Fetcher {
	f := NewFetcher(cfg)
	if httpClient != nil {
		f.client = httpClient
	}
	return f
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"`
}

type captions struct {
	Renderer struct {
		CaptionTracks []captionTrack `json:"captionTracks"`
	} `json:"playerCaptionsTracklistRenderer"`
}

type playability struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Body  string `xml:",chardata"`
	} `xml:"text"`
}

// Fetch returns the transcript as caption segments joined by single spaces, in time order.
func (f *Fetcher) Fetch(ctx context.Context, videoID, lang string) (string, error) {
	page, err := f.get(ctx, f.baseURL+"/watch?v="+url.QueryEscape(videoID)+"&hl="+url.QueryEscape(lang))
	if err != nil {
		return "", err
	}

	var status playability
	if ok := decodeAfter(page, `"playabilityStatus":`, &status); ok && status.Status == "ERROR" {
		return "", fmt.Errorf("%w: %s", domain.ErrVideoNotFound, status.Reason)
	}
	var caps captions
	if ok := decodeAfter(page, `"captions":`, &caps); !ok || len(caps.Renderer.CaptionTracks) == 0 {
		return "", domain.ErrCaptionsDisabled
	}
	track, ok := pickTrack(caps.Renderer.CaptionTracks, lang)
	if !ok {
		return "", fmt.Errorf("%w: no %q captions", domain.ErrTranscriptUnavailable, lang)
	}

	body, err := f.get(ctx, track.BaseURL)
	if err != nil {
		return "", err
	}
	var tt timedText
	if err := xml.Unmarshal([]byte(body), &tt); err != nil {
		return "", fmt.Errorf("%w: decode timed text: %v", domain.ErrTranscriptUnavailable, err)
	}
	parts := make([]string, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		// timed text entities are escaped twice
		s := strings.Join(strings.Fields(html.UnescapeString(t.Body)), " ")
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " "), nil
}

// pickTrack prefers a manual track over an auto-generated ("asr") one.
func pickTrack(tracks []captionTrack, lang string) (captionTrack, bool) {
	var auto *captionTrack
	for i := range tracks {
		t := &tracks[i]
		if !strings.EqualFold(t.LanguageCode, lang) && !strings.HasPrefix(strings.ToLower(t.LanguageCode), strings.ToLower(lang)+"-") {
			continue
		}
		if t.Kind != "asr" {
			return *t, true
		}
		if auto == nil {
			auto = t
		}
	}
	if auto != nil {
		return *auto, true
	}
	return captionTrack{}, false
}

// decodeAfter decodes the JSON value that follows marker in page.
func decodeAfter(page, marker string, v any) bool {
	i := strings.Index(page, marker)
	if i < 0 {
		return false
	}
	return json.NewDecoder(strings.NewReader(page[i+len(marker):])).Decode(v) == nil
}

func (f *Fetcher) get(ctx context.Context, u string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; ytchat)")
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscriptUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", domain.ErrVideoNotFound
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %w", domain.ErrTranscriptUnavailable, &domain.HTTPError{StatusCode: resp.StatusCode})
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrTranscriptUnavailable, err)
	}
	return string(b), nil
}
