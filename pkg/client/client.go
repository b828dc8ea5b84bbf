// Package client is a typed HTTP client for the stock tracker REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response. Message is the body's "error" field when
// the server sent one.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Filters are the list query parameters. Zero values are left out of the
// query so the server defaults apply.
type Filters struct {
	Search      string
	MinPrice    *float64
	MaxPrice    *float64
	MinQuantity *int
	MaxQuantity *int
	SortBy      domain.SortField
	SortOrder   domain.SortOrder
	Page        int
	Limit       int
}

// DefaultFilters is the first page, newest first.
func DefaultFilters() Filters {
	return Filters{
		SortBy:    domain.SortByCreatedAt,
		SortOrder: domain.SortDesc,
		Page:      domain.DefaultPage,
		Limit:     domain.DefaultLimit,
	}
}

func (f Filters) Query() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.MinPrice != nil {
		q.Set("minPrice", formatFloat(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		q.Set("maxPrice", formatFloat(*f.MaxPrice))
	}
	if f.MinQuantity != nil {
		q.Set("minQuantity", strconv.Itoa(*f.MinQuantity))
	}
	if f.MaxQuantity != nil {
		q.Set("maxQuantity", strconv.Itoa(*f.MaxQuantity))
	}
	if f.SortBy != "" {
		q.Set("sortBy", string(f.SortBy))
	}
	if f.SortOrder != "" {
		q.Set("sortOrder", string(f.SortOrder))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

// Upload is an image file sent along with a product mutation.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ProductPayload is the body of a create or update. Nil and unset fields
// are not sent; Description and Image set to domain.Null clear the stored
// value. When Upload is set the request is multipart, which cannot carry
// null.
type ProductPayload struct {
	Name        *string
	Description domain.Optional[string]
	Price       *float64
	Quantity    *int
	Image       domain.Optional[string]
	Upload      *Upload
}

func (p ProductPayload) MarshalJSON() ([]byte, error) {
	body := map[string]any{}
	if p.Name != nil {
		body["name"] = *p.Name
	}
	if p.Description.Set {
		body["description"] = p.Description.Ptr()
	}
	if p.Price != nil {
		body["price"] = *p.Price
	}
	if p.Quantity != nil {
		body["quantity"] = *p.Quantity
	}
	if p.Image.Set {
		body["image"] = p.Image.Ptr()
	}
	return json.Marshal(body)
}

type stockByProductResponse struct {
	Items []domain.StockLevel `json:"items"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (c *Client) ListProducts(ctx context.Context, f Filters) (*domain.ProductPage, error) {
	var page domain.ProductPage
	path := "/products"
	if q := f.Query().Encode(); q != "" {
		path += "?" + q
	}
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, in ProductPayload) (*domain.Product, error) {
	var p domain.Product
	if err := c.sendProduct(ctx, http.MethodPost, "/products", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductPayload) (*domain.Product, error) {
	var p domain.Product
	if err := c.sendProduct(ctx, http.MethodPut, "/products/"+url.PathEscape(id), in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/products/"+url.PathEscape(id), nil, "")
	if err != nil {
		return err
	}
	var out messageResponse
	return c.do(req, &out)
}

func (c *Client) StockSummary(ctx context.Context) (*domain.StockSummary, error) {
	var s domain.StockSummary
	if err := c.getJSON(ctx, "/analytics/stock-summary", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) StockByProduct(ctx context.Context) ([]domain.StockLevel, error) {
	var out stockByProductResponse
	if err := c.getJSON(ctx, "/analytics/stock-by-product", &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) sendProduct(ctx context.Context, method, path string, in ProductPayload, out any) error {
	var (
		body        io.Reader
		contentType string
	)
	if in.Upload != nil {
		buf, ct, err := multipartBody(in)
		if err != nil {
			return err
		}
		body, contentType = buf, ct
	} else {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode product: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil {
			apiErr.Message = body.Error
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}

func multipartBody(in ProductPayload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if in.Description.Null || in.Image.Null {
		return nil, "", errors.New("multipart product bodies cannot clear description or image")
	}

	fields := map[string]*string{"name": in.Name, "description": in.Description.Ptr(), "image": in.Image.Ptr()}
	if in.Price != nil {
		s := formatFloat(*in.Price)
		fields["price"] = &s
	}
	if in.Quantity != nil {
		s := strconv.Itoa(*in.Quantity)
		fields["quantity"] = &s
	}
	for name, v := range fields {
		if v == nil {
			continue
		}
		if err := mw.WriteField(name, *v); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", name, err)
		}
	}

	contentType := in.Upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, in.Upload.Filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create image part: %w", err)
	}
	if _, err := io.Copy(part, in.Upload.Body); err != nil {
		return nil, "", fmt.Errorf("failed to write image part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
