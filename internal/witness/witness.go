// Package witness collects non-authoritative external time observations.
// Each probe records what a well-known host claimed the time was when the
// manifest was cut. Witness data corroborates the evidence chain; it is
// never load-bearing, and a failed probe is an observation in its own right.
package witness

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Report is one witness observation. Failed probes carry OK=false and a
// note; they are recorded, not retried.
type Report struct {
	URL         string `json:"url"`
	OK          bool   `json:"ok"`
	Status      int    `json:"status,omitempty"`
	Date        string `json:"date,omitempty"`
	Server      string `json:"server,omitempty"`
	Via         string `json:"via,omitempty"`
	ReceivedUTC string `json:"received_utc"`
	Note        string `json:"note,omitempty"`
}

// Prober issues one HEAD request per configured URL, sequentially. Probes
// run one at a time to keep witness ordering stable between runs; latency is
// an acceptable price for a deterministic bundle layout.
type Prober struct {
	urls    []string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// NewProber builds a Prober over urls with an independent timeout per probe.
func NewProber(urls []string, timeout time.Duration, logger *slog.Logger) *Prober {
	return &Prober{
		urls:    urls,
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
		now:     time.Now,
	}
}

// Probe contacts every configured witness in order. The returned slice
// always has one Report per URL; network failures and timeouts become
// OK=false entries and never abort the batch.
func (p *Prober) Probe(ctx context.Context) []Report {
	reports := make([]Report, 0, len(p.urls))
	for _, url := range p.urls {
		reports = append(reports, p.probeOne(ctx, url))
	}
	return reports
}

func (p *Prober) probeOne(ctx context.Context, url string) Report {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	report := Report{URL: url}

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, url, nil)
	if err != nil {
		report.ReceivedUTC = p.stamp()
		report.Note = "request build failed: " + err.Error()
		return report
	}

	resp, err := p.client.Do(req)
	report.ReceivedUTC = p.stamp()
	if err != nil {
		report.Note = "probe failed: " + err.Error()
		p.logger.Warn("witness probe failed", "url", url, "error", err)
		return report
	}
	defer resp.Body.Close()

	report.OK = true
	report.Status = resp.StatusCode
	report.Date = resp.Header.Get("Date")
	report.Server = resp.Header.Get("Server")
	report.Via = resp.Header.Get("Via")
	return report
}

func (p *Prober) stamp() string {
	return p.now().UTC().Format("2006-01-02T15:04:05.000Z")
}
