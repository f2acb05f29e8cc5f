// cmd/verilens-scan/scanner.go
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
)

const maxImageDownload = 5 * 1024 * 1024

// VerdictAxis mirrors the service's axis shape.
type VerdictAxis struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Assessment mirrors the service's response shape; the scanner only reads
// the axes and reasoning.
type Assessment struct {
	ImageTextMatch  VerdictAxis `json:"image_text_match"`
	FactCheckStatus VerdictAxis `json:"fact_check_status"`
	IsFakeNews      VerdictAxis `json:"is_fake_news"`
	Reasoning       string      `json:"reasoning"`
}

// Scanner walks RSS feeds and submits their items to the verilens service.
type Scanner struct {
	apiBase  string
	maxItems int
	parser   *gofeed.Parser
	client   *http.Client
	notifier *DiscordNotifier
	logger   *zap.Logger
}

func NewScanner(apiBase string, maxItems int, notifier *DiscordNotifier, logger *zap.Logger) *Scanner {
	return &Scanner{
		apiBase:  strings.TrimRight(apiBase, "/"),
		maxItems: maxItems,
		parser:   gofeed.NewParser(),
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    100,
				IdleConnTimeout: 90 * time.Second,
				MaxConnsPerHost: 10,
			},
		},
		notifier: notifier,
		logger:   logger,
	}
}

// ScanAll processes every source concurrently, bounded to five in flight.
func (sc *Scanner) ScanAll(ctx context.Context, sources []Source) {
	sem := make(chan struct{}, 5)
	var wg sync.WaitGroup

	for _, source := range sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := sc.ScanSource(ctx, src); err != nil {
				sc.logger.Error("scan failed", zap.String("source", src.Name), zap.Error(err))
			}
		}(source)
	}
	wg.Wait()
}

// ScanSource assesses up to maxItems entries from one feed.
func (sc *Scanner) ScanSource(ctx context.Context, source Source) error {
	feed, err := sc.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	count := 0
	for _, item := range feed.Items {
		if count >= sc.maxItems {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := sc.scanItem(ctx, source, item); err != nil {
			sc.logger.Warn("item skipped",
				zap.String("source", source.Name),
				zap.String("link", item.Link),
				zap.Error(err))
			continue
		}
		count++
	}
	sc.logger.Info("source scanned", zap.String("source", source.Name), zap.Int("assessed", count))
	return nil
}

func (sc *Scanner) scanItem(ctx context.Context, source Source, item *gofeed.Item) error {
	text, imageURL, err := sc.resolveItem(ctx, item)
	if err != nil {
		return err
	}
	if imageURL == "" {
		return fmt.Errorf("no image found for item")
	}

	imageData, contentType, err := sc.downloadImage(ctx, imageURL)
	if err != nil {
		return fmt.Errorf("image download failed: %w", err)
	}

	assessment, err := sc.submit(ctx, text, imageData, contentType)
	if err != nil {
		return fmt.Errorf("assessment failed: %w", err)
	}

	sc.logger.Info("item assessed",
		zap.String("source", source.Name),
		zap.String("title", item.Title),
		zap.String("is_fake_news", assessment.IsFakeNews.Label),
		zap.Float64("confidence", assessment.IsFakeNews.Confidence))

	if assessment.IsFakeNews.Label == "Yes" && sc.notifier != nil {
		sc.notifier.NotifyFlagged(source.Name, item.Title, item.Link, assessment)
	}
	return nil
}

// resolveItem builds the claim text and lead image URL for a feed item,
// fetching the article page when the feed entry alone is not enough.
func (sc *Scanner) resolveItem(ctx context.Context, item *gofeed.Item) (string, string, error) {
	text := strings.TrimSpace(item.Title)
	if desc := strings.TrimSpace(item.Description); desc != "" {
		text = text + ". " + desc
	}

	imageURL := ""
	if item.Image != nil {
		imageURL = item.Image.URL
	}

	if item.Link != "" && (imageURL == "" || len(text) < 120) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, item.Link, nil)
		if err != nil {
			return "", "", err
		}
		req.Header.Set("User-Agent", "VerilensScanner/1.0")
		resp, err := sc.client.Do(req)
		if err == nil {
			defer resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				if content, err := ExtractArticle(resp.Body); err == nil {
					if imageURL == "" {
						imageURL = content.ImageURL
					}
					if len(content.Text) > len(text) {
						text = content.Text
					}
				}
			}
		}
	}

	if text == "" {
		return "", "", fmt.Errorf("item has no usable text")
	}
	return text, imageURL, nil
}

func (sc *Scanner) downloadImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "VerilensScanner/1.0")

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image fetch returned status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageDownload))
	if err != nil {
		return nil, "", err
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		contentType = "image/jpeg"
	}
	return data, contentType, nil
}

// submit posts the claim and image to the verilens /analyze endpoint.
func (sc *Scanner) submit(ctx context.Context, newsText string, imageData []byte, contentType string) (*Assessment, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	newsPayload, err := json.Marshal(map[string]string{"news_text": newsText})
	if err != nil {
		return nil, err
	}
	if err := writer.WriteField("news", string(newsPayload)); err != nil {
		return nil, err
	}

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="image"; filename="article.jpg"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sc.apiBase+"/analyze", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := sc.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service returned status %s: %s", resp.Status, string(body))
	}

	var assessment Assessment
	if err := json.Unmarshal(body, &assessment); err != nil {
		return nil, fmt.Errorf("failed to decode assessment: %w", err)
	}
	return &assessment, nil
}
