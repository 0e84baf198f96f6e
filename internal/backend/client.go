package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

const (
	TryOnPath   = "/try-on/image"
	AnalyzePath = "/analyze"
	HealthPath  = "/"
)

// maxResponseBytes bounds how much of a reply is buffered before decoding.
const maxResponseBytes = 8 << 20

// Image is an uploaded image file.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

type TryOnInput struct {
	Person   Image
	Garment  Image
	Category string
	// SegmentationModel is sent only when set.
	SegmentationModel string
}

type AnalyzeInput struct {
	Person Image
	Model  Model
}

// Health is the reply of the backend root endpoint.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RequestError is a transport or decode failure for a single backend call.
type RequestError struct {
	Op  string
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Client talks to the try-on backend. The zero value is not usable; use New.
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. A nil client keeps the
// default one.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds every call. Zero means no timeout. It applies whatever
// client WithHTTPClient installs, in any option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(opts ...Option) *Client {
	c := &Client{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// TryOn posts a person and a garment image to {base}/try-on/image.
func (c *Client) TryOn(ctx context.Context, base string, in TryOnInput) (Result, error) {
	category := in.Category
	if category == "" {
		category = DefaultCategory
	}
	form := newForm()
	form.file("person_image", in.Person)
	form.file("garment_image", in.Garment)
	form.field("category", category)
	if in.SegmentationModel != "" {
		form.field("segmentation_model", in.SegmentationModel)
	}
	return c.post(ctx, "try-on", base, TryOnPath, form)
}

// Analyze posts a person image to {base}/analyze for segmentation.
func (c *Client) Analyze(ctx context.Context, base string, in AnalyzeInput) (Result, error) {
	model := in.Model
	if model == "" {
		model = DefaultModel
	}
	form := newForm()
	form.file("person_image", in.Person)
	form.field("model_type", string(model))
	return c.post(ctx, "analyze", base, AnalyzePath, form)
}

// Health probes GET {base}/.
func (c *Client) Health(ctx context.Context, base string) (Health, error) {
	url := TrimBaseURL(base) + HealthPath
	var health Health
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return health, &RequestError{Op: "health", URL: url, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return health, &RequestError{Op: "health", URL: url, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return health, &RequestError{Op: "health", URL: url, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&health); err != nil {
		return health, &RequestError{Op: "health", URL: url, Err: fmt.Errorf("decode response: %w", err)}
	}
	return health, nil
}

func (c *Client) post(ctx context.Context, op, base, path string, form *multipartForm) (Result, error) {
	trimmed := TrimBaseURL(base)
	url := trimmed + path

	body, contentType, err := form.close()
	if err != nil {
		return nil, &RequestError{Op: op, URL: url, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, &RequestError{Op: op, URL: url, Err: err}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Op: op, URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &RequestError{Op: op, URL: url, Err: fmt.Errorf("read response: %w", err)}
	}
	result, err := DecodeResult(trimmed, resp.StatusCode, respBody)
	if err != nil {
		return nil, &RequestError{Op: op, URL: url, Err: err}
	}
	return result, nil
}

// multipartForm collects the first write error so callers can chain parts.
type multipartForm struct {
	buf    bytes.Buffer
	writer *multipart.Writer
	err    error
}

func newForm() *multipartForm {
	f := &multipartForm{}
	f.writer = multipart.NewWriter(&f.buf)
	return f
}

func (f *multipartForm) file(name string, img Image) {
	if f.err != nil {
		return
	}
	filename := img.Name
	if filename == "" {
		filename = name
	}
	contentType := img.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, name, escapeQuotes(filename)))
	h.Set("Content-Type", contentType)
	part, err := f.writer.CreatePart(h)
	if err != nil {
		f.err = fmt.Errorf("failed to create form file %s: %w", name, err)
		return
	}
	if _, err := part.Write(img.Data); err != nil {
		f.err = fmt.Errorf("failed to copy file %s: %w", name, err)
	}
}

func (f *multipartForm) field(name, value string) {
	if f.err != nil {
		return
	}
	if err := f.writer.WriteField(name, value); err != nil {
		f.err = fmt.Errorf("failed to write field %s: %w", name, err)
	}
}

func (f *multipartForm) close() (io.Reader, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	if err := f.writer.Close(); err != nil {
		return nil, "", err
	}
	return &f.buf, f.writer.FormDataContentType(), nil
}

func escapeQuotes(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '"' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
