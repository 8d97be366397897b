package report

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/aurora-tools/aurorareport/internal/model"
)

// DefaultHTMLTitle is the page title of the HTML report.
const DefaultHTMLTitle = "Image Comparison"

//go:embed templates/report.html
var htmlSource string

var htmlTemplate = template.Must(template.New("report").Parse(htmlSource))

// htmlOptions holds the settings of RenderHTML.
type htmlOptions struct {
	title       string
	baseDir     string
	host        *model.HostInfo
	generatedAt time.Time
	summary     bool
}

// HTMLOption configures RenderHTML.
type HTMLOption func(*htmlOptions)

// WithTitle sets the page title.
func WithTitle(title string) HTMLOption {
	return func(o *htmlOptions) {
		o.title = title
	}
}

// WithBaseDir makes image sources relative to dir, normally the directory
// the HTML file is written to. Paths that cannot be made relative stay
// absolute.
func WithBaseDir(dir string) HTMLOption {
	return func(o *htmlOptions) {
		o.baseDir = dir
	}
}

// WithHost shows the host description in the page header.
func WithHost(host model.HostInfo) HTMLOption {
	return func(o *htmlOptions) {
		o.host = &host
	}
}

// WithGeneratedAt shows the generation time in the page header.
func WithGeneratedAt(t time.Time) HTMLOption {
	return func(o *htmlOptions) {
		o.generatedAt = t
	}
}

// WithSummary shows the per-status counts in the page header.
func WithSummary(show bool) HTMLOption {
	return func(o *htmlOptions) {
		o.summary = show
	}
}

// htmlPage is the data of the HTML template.
type htmlPage struct {
	Title       string
	ShowMeta    bool
	GeneratedAt string
	Host        string
	Summary     string
	Records     []htmlRecord
}

// htmlRecord is one record block of the HTML template.
type htmlRecord struct {
	Title         string
	Message       string
	Status        string
	CandidateSrc  template.URL
	CandidateName string
	BaselineSrc   template.URL
	BaselineName  string
}

// RenderHTML renders records as a self-contained HTML page with an inline
// stylesheet. Each record shows its title, the candidate image with its file
// name, the baseline image labelled "Golden image" and the message.
// All records are rendered, in order. The output depends only on the
// arguments.
func RenderHTML(records []model.Record, opts ...HTMLOption) ([]byte, error) {
	o := htmlOptions{title: DefaultHTMLTitle}
	for _, opt := range opts {
		opt(&o)
	}

	page := htmlPage{
		Title:   o.title,
		Records: make([]htmlRecord, len(records)),
	}
	if !o.generatedAt.IsZero() {
		page.GeneratedAt = o.generatedAt.Format("2006-01-02 15:04:05 MST")
	}
	if o.host != nil {
		page.Host = o.host.String()
	}
	if o.summary {
		page.Summary = summaryLine(records)
	}
	page.ShowMeta = page.GeneratedAt != "" || page.Host != "" || page.Summary != ""

	for i, rec := range records {
		page.Records[i] = htmlRecord{
			Title:         rec.Title,
			Message:       rec.Message,
			Status:        rec.Status.String(),
			CandidateSrc:  imageSrc(rec.Candidate, o.baseDir),
			CandidateName: rec.CandidateName(),
			BaselineSrc:   imageSrc(rec.Baseline, o.baseDir),
			BaselineName:  rec.BaselineName(),
		}
	}

	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("failed to render html report: %w", err)
	}
	return buf.Bytes(), nil
}

// summaryLine returns e.g. "12 images: 9 match, 1 warning, 2 fail".
func summaryLine(records []model.Record) string {
	counts := make(map[model.Status]int)
	for _, rec := range records {
		counts[rec.Status]++
	}

	parts := make([]string, 0, len(model.AllStatuses))
	for _, s := range model.AllStatuses {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], strings.ToLower(s.Label())))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d images", len(records))
	}
	return fmt.Sprintf("%d images: %s", len(records), strings.Join(parts, ", "))
}

// imageSrc turns an image path into an img src value.
// Paths are escaped as URL paths; Windows drive paths become file URLs,
// which html/template would otherwise reject as an unknown scheme.
func imageSrc(path, baseDir string) template.URL {
	p := path
	if baseDir != "" {
		if rel, err := filepath.Rel(baseDir, path); err == nil {
			p = rel
		}
	}

	slashed := filepath.ToSlash(p)
	u := url.URL{Path: slashed}
	if vol := filepath.VolumeName(p); vol != "" {
		u = url.URL{Scheme: "file", Path: "/" + slashed}
	}
	return template.URL(u.String()) //nolint:gosec // Built from a file path, not user markup
}

// HTMLWriter writes a run as an HTML page.
type HTMLWriter struct {
	baseWriter
	opts []HTMLOption
}

// NewHTMLWriter creates an HTMLWriter. The report's host and start time are
// added to the header; opts are applied after them.
func NewHTMLWriter(output io.Writer, opts ...HTMLOption) *HTMLWriter {
	return &HTMLWriter{
		baseWriter: newBaseWriter(output),
		opts:       opts,
	}
}

// Write outputs the report as HTML.
func (w *HTMLWriter) Write(report *model.Report) (int, error) {
	opts := append([]HTMLOption{
		WithHost(report.Host),
		WithGeneratedAt(report.StartedAt),
		WithSummary(true),
	}, w.opts...)

	data, err := RenderHTML(report.Records, opts...)
	if err != nil {
		return 0, err
	}
	return w.output.Write(data)
}
