package pipeline

import (
	"context"
	"html"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"recipe-importer/internal/pkg/common"
)

// Sniffer defaults; overridable via SniffOptions.
const (
	defaultSniffByteLimit = 512 * 1024
	defaultSniffTimeLimit = 500 * time.Millisecond
	sniffChunkSize        = 8 * 1024
)

var (
	scriptOpenRe  = regexp.MustCompile(`(?i)<script[^>]*type\s*=\s*["']application/ld\+json["'][^>]*>`)
	scriptCloseRe = regexp.MustCompile(`(?i)</script\s*>`)
	recipeHintRe  = regexp.MustCompile(`(?i)recipe`)
)

// SniffOptions bounds a sniff run. Zero values fall back to the defaults.
type SniffOptions struct {
	ByteLimit int
	TimeLimit time.Duration
	UserAgent string
	Client    *http.Client
}

// ValidateImportURL rejects non-HTTP(S) schemes and private, loopback and
// link-local targets before any request is made. This is the SSRF guard for
// user-supplied import URLs: adversarial input is expected here, so a
// blocked URL is refused outright rather than treated as an anomaly.
func ValidateImportURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", common.ErrBlockedURL
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", common.ErrBlockedURL
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" || host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return "", common.ErrBlockedURL
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return "", common.ErrBlockedURL
		}
	}

	return parsed.String(), nil
}

// SniffJSONLD streams the page at rawURL, scanning each chunk for an
// embedded ld+json Recipe block, and aborts the transfer the moment one
// complete block maps to a recipe. Both a byte budget and a wall-clock
// budget bound the worst case: a slow-but-alive connection must not stall
// the single-worker queue. Returns ErrNoRecipeFound on a miss.
func SniffJSONLD(ctx context.Context, rawURL string, opts SniffOptions) (*StructuredHit, error) {
	validated, err := ValidateImportURL(rawURL)
	if err != nil {
		return nil, err
	}

	byteLimit := opts.ByteLimit
	if byteLimit <= 0 {
		byteLimit = defaultSniffByteLimit
	}
	timeLimit := opts.TimeLimit
	if timeLimit <= 0 {
		timeLimit = defaultSniffTimeLimit
	}
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, timeLimit)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, validated, nil)
	if err != nil {
		return nil, err
	}
	if opts.UserAgent != "" {
		req.Header.Set("User-Agent", opts.UserAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	// Closing the body on every exit path releases the connection; cancel()
	// above aborts any in-flight read. A leaked stream here starves the
	// single-worker queue, so cleanup is a correctness requirement.
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, common.ErrNoRecipeFound
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "html") && !strings.Contains(contentType, "ld+json") {
		return nil, common.ErrNoRecipeFound
	}

	var (
		buffer     string
		collecting bool
		collectBuf string
		totalBytes int
		chunk      = make([]byte, sniffChunkSize)
		deadline   = time.Now().Add(timeLimit)
	)

	for totalBytes < byteLimit && time.Now().Before(deadline) {
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			totalBytes += n
			text := string(chunk[:n])
			if collecting {
				collectBuf += text
				if hit, done := tryCollectedBlock(&collectBuf, &collecting); hit != nil {
					return hit, nil
				} else if done {
					buffer = collectBuf
					collectBuf = ""
				}
			} else {
				buffer += text
				if hit := scanBuffer(&buffer, &collecting, &collectBuf); hit != nil {
					return hit, nil
				}
				// Bound memory while still scanning: keep only the tail.
				if !collecting && len(buffer) > byteLimit {
					buffer = buffer[len(buffer)-byteLimit:]
				}
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				common.LogDebug("sniff read ended", zap.Error(readErr))
			}
			break
		}
	}

	// Budget exhausted or stream ended: one final attempt against whatever
	// was buffered.
	final := buffer
	if collecting {
		final = collectBuf
	}
	if hit := parseCapturedBlocks(final); hit != nil {
		return hit, nil
	}
	return nil, common.ErrNoRecipeFound
}

// scanBuffer looks for complete ld+json blocks in the rolling buffer. When
// an open tag has no close tag yet it flips into the collecting sub-state,
// moving the partial block into collectBuf.
func scanBuffer(buffer *string, collecting *bool, collectBuf *string) *StructuredHit {
	buf := *buffer
	if !strings.Contains(buf, "application/ld+json") || !recipeHintRe.MatchString(buf) {
		return nil
	}

	for {
		open := scriptOpenRe.FindStringIndex(buf)
		if open == nil {
			break
		}
		closeIdx := scriptCloseRe.FindStringIndex(buf[open[1]:])
		if closeIdx == nil {
			// Close tag not buffered yet: collect until it arrives.
			*collecting = true
			*collectBuf = buf[open[0]:]
			*buffer = ""
			return nil
		}
		content := buf[open[1] : open[1]+closeIdx[0]]
		buf = buf[open[1]+closeIdx[1]:]
		if hit := parseBlock(content); hit != nil {
			return hit
		}
	}
	*buffer = buf
	return nil
}

// tryCollectedBlock checks whether the dedicated collect buffer now holds
// the close tag, and if so parses exactly the content between the tags.
// done reports that collection finished (hit or not).
func tryCollectedBlock(collectBuf *string, collecting *bool) (*StructuredHit, bool) {
	buf := *collectBuf
	open := scriptOpenRe.FindStringIndex(buf)
	if open == nil {
		return nil, false
	}
	closeIdx := scriptCloseRe.FindStringIndex(buf[open[1]:])
	if closeIdx == nil {
		return nil, false
	}
	content := buf[open[1] : open[1]+closeIdx[0]]
	*collecting = false
	*collectBuf = buf[open[1]+closeIdx[1]:]
	return parseBlock(content), true
}

// parseCapturedBlocks is the last-gasp scan over the residual buffer.
func parseCapturedBlocks(buf string) *StructuredHit {
	for {
		open := scriptOpenRe.FindStringIndex(buf)
		if open == nil {
			return nil
		}
		rest := buf[open[1]:]
		closeIdx := scriptCloseRe.FindStringIndex(rest)
		content := rest
		if closeIdx != nil {
			content = rest[:closeIdx[0]]
		}
		if hit := parseBlock(content); hit != nil {
			return hit
		}
		if closeIdx == nil {
			return nil
		}
		buf = rest[closeIdx[1]:]
	}
}

// parseBlock unescapes one captured ld+json payload, salvages it and maps
// the best Recipe node, if any.
func parseBlock(content string) *StructuredHit {
	content = strings.TrimSpace(html.UnescapeString(content))
	if content == "" {
		return nil
	}
	roots := SalvageJSON(content)
	if len(roots) == 0 {
		return nil
	}
	node, ok := BestRecipeNode(roots)
	if !ok {
		return nil
	}
	return MapRecipeNode(node)
}
