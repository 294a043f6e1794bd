package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultAPIBaseURL = "https://www.googleapis.com/youtube/v3"

	// Appended to every query so results lean toward karaoke versions.
	searchKeyword = "karaoke"

	searchMaxResults = 12
)

// KeyRotator hands out API keys round-robin so rate-limit usage spreads
// across all configured credentials.
type KeyRotator struct {
	mu   sync.Mutex
	keys []string
	next int
}

func NewKeyRotator(keys []string) *KeyRotator {
	return &KeyRotator{keys: keys}
}

// Next returns the next key in rotation, or ErrSearchUnavailable when no
// key is configured.
func (r *KeyRotator) Next() (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return "", fmt.Errorf("%w: no API key configured", ErrSearchUnavailable)
	}
	key := r.keys[r.next%len(r.keys)]
	r.next++
	return key, nil
}

// SearchResult is one ranked video candidate from the upstream API.
type SearchResult struct {
	VideoID      string `json:"videoId"`
	Title        string `json:"title"`
	Thumbnail    string `json:"thumbnail"`
	ChannelTitle string `json:"channelTitle"`
	Duration     string `json:"duration"`
}

// SearchService proxies free-text queries to the YouTube Data API: one
// search call for candidates, then one videos call to enrich durations.
type SearchService struct {
	httpClient *http.Client
	keys       *KeyRotator
	baseURL    string
}

func NewSearchService(apiKeys []string) *SearchService {
	return &SearchService{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		keys:       NewKeyRotator(apiKeys),
		baseURL:    defaultAPIBaseURL,
	}
}

type searchListResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Medium struct {
					URL string `json:"url"`
				} `json:"medium"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

type videoListResponse struct {
	Items []struct {
		ID             string `json:"id"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

// Search returns ranked video candidates for a free-text query.
func (s *SearchService) Search(ctx context.Context, query string) ([]SearchResult, error) {
	logCtx := logrus.WithField("query", query)

	key, err := s.keys.Next()
	if err != nil {
		logCtx.Error("Search requested but no API key is configured")
		return nil, err
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("videoEmbeddable", "true")
	params.Set("maxResults", strconv.Itoa(searchMaxResults))
	params.Set("q", query+" "+searchKeyword)
	params.Set("key", key)

	var list searchListResponse
	if err := s.getJSON(ctx, s.baseURL+"/search?"+params.Encode(), &list); err != nil {
		logCtx.WithError(err).Error("Upstream search call failed")
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	results := make([]SearchResult, 0, len(list.Items))
	ids := make([]string, 0, len(list.Items))
	for _, item := range list.Items {
		if item.ID.VideoID == "" {
			continue
		}
		results = append(results, SearchResult{
			VideoID:      item.ID.VideoID,
			Title:        item.Snippet.Title,
			Thumbnail:    item.Snippet.Thumbnails.Medium.URL,
			ChannelTitle: item.Snippet.ChannelTitle,
		})
		ids = append(ids, item.ID.VideoID)
	}
	if len(results) == 0 {
		return results, nil
	}

	durations, err := s.fetchDurations(ctx, ids)
	if err != nil {
		logCtx.WithError(err).Error("Upstream video details call failed")
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	for i := range results {
		results[i].Duration = durations[results[i].VideoID]
	}

	logCtx.WithField("result_count", len(results)).Debug("Search completed")
	return results, nil
}

// fetchDurations resolves formatted durations for a batch of video ids.
func (s *SearchService) fetchDurations(ctx context.Context, ids []string) (map[string]string, error) {
	key, err := s.keys.Next()
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", strings.Join(ids, ","))
	params.Set("key", key)

	var list videoListResponse
	if err := s.getJSON(ctx, s.baseURL+"/videos?"+params.Encode(), &list); err != nil {
		return nil, err
	}

	durations := make(map[string]string, len(list.Items))
	for _, item := range list.Items {
		durations[item.ID] = formatISODuration(item.ContentDetails.Duration)
	}
	return durations, nil
}

func (s *SearchService) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// formatISODuration turns an ISO-8601 duration token (PT1H2M3S, or
// P1DT2H for day-long videos) into H:MM:SS, or M:SS when under an hour.
// Days fold into the hour component. Unparseable tokens yield an empty
// string.
func formatISODuration(iso string) string {
	m := isoDurationRe.FindStringSubmatch(iso)
	if m == nil {
		return ""
	}
	days, _ := strconv.Atoi(m[1])
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	seconds, _ := strconv.Atoi(m[4])
	hours += days * 24

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
