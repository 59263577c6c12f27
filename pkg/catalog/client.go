package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	defaultTimeout              = 10 * time.Second
	defaultPageSize             = 50
	responseBodyReadLimit int64 = 1024
)

type Term struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt,omitempty"`
}

// Product is the catalog view of a sellable item.
type Product struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Price            decimal.Decimal   `json:"price"`
	StockStatus      enums.StockStatus `json:"stock_status"`
	StockQuantity    *int              `json:"stock_quantity,omitempty"`
	Categories       []Term            `json:"categories"`
	Brands           []Term            `json:"brands"`
	Images           []Image           `json:"images"`
	ShortDescription string            `json:"short_description,omitempty"`
	Description      string            `json:"description,omitempty"`
	Weight           string            `json:"weight,omitempty"`
}

// PrimaryImage returns the first image source or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].Src
}

type productBody struct {
	ID               json.Number     `json:"id"`
	Name             string          `json:"name"`
	Price            json.RawMessage `json:"price"`
	StockStatus      string          `json:"stock_status"`
	StockQuantity    *int            `json:"stock_quantity"`
	Categories       []Term          `json:"categories"`
	Brands           []Term          `json:"brands"`
	Images           []Image         `json:"images"`
	ShortDescription string          `json:"short_description"`
	Description      string          `json:"description"`
	Weight           string          `json:"weight"`
}

func (b productBody) toProduct() Product {
	status, err := enums.ParseStockStatus(strings.ToLower(strings.TrimSpace(b.StockStatus)))
	if err != nil {
		status = enums.StockStatusInStock
	}
	return Product{
		ID:               b.ID.String(),
		Name:             strings.TrimSpace(b.Name),
		Price:            parsePrice(b.Price),
		StockStatus:      status,
		StockQuantity:    b.StockQuantity,
		Categories:       b.Categories,
		Brands:           b.Brands,
		Images:           b.Images,
		ShortDescription: b.ShortDescription,
		Description:      b.Description,
		Weight:           strings.TrimSpace(b.Weight),
	}
}

// parsePrice accepts a JSON number, a numeric string or an empty string (zero).
func parsePrice(raw json.RawMessage) decimal.Decimal {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if text == "" || text == "null" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// Client reads products from the catalog REST API.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	consumerKey    string
	consumerSecret string
	timeout        time.Duration
	pageSize       int
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCredentials sets the basic-auth consumer key pair.
func WithCredentials(key, secret string) Option {
	return func(c *Client) {
		c.consumerKey = strings.TrimSpace(key)
		c.consumerSecret = strings.TrimSpace(secret)
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithPageSize(size int) Option {
	return func(c *Client) {
		if size > 0 {
			c.pageSize = size
		}
	}
}

// NewClient builds a catalog client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("catalog base url is required")
	}
	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		pageSize:   defaultPageSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Search lists products matching query. An empty query lists the first page.
func (c *Client) Search(ctx context.Context, query string, page int) ([]Product, error) {
	if page <= 0 {
		page = 1
	}
	params := url.Values{}
	if q := strings.TrimSpace(query); q != "" {
		params.Set("search", q)
	}
	params.Set("per_page", strconv.Itoa(c.pageSize))
	params.Set("page", strconv.Itoa(page))

	var bodies []productBody
	if err := c.getJSON(ctx, "products", params, &bodies); err != nil {
		return nil, err
	}
	products := make([]Product, 0, len(bodies))
	for _, b := range bodies {
		products = append(products, b.toProduct())
	}
	return products, nil
}

// Product fetches one product. A missing product maps to NOT_FOUND.
func (c *Client) Product(ctx context.Context, id string) (*Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var body productBody
	if err := c.getJSON(ctx, "products/"+url.PathEscape(id), nil, &body); err != nil {
		return nil, err
	}
	product := body.toProduct()
	return &product, nil
}

func (c *Client) Categories(ctx context.Context) ([]Term, error) {
	var terms []Term
	params := url.Values{"per_page": {"100"}}
	if err := c.getJSON(ctx, "products/categories", params, &terms); err != nil {
		return nil, err
	}
	return terms, nil
}

func (c *Client) Brands(ctx context.Context) ([]Term, error) {
	var terms []Term
	params := url.Values{"per_page": {"100"}}
	if err := c.getJSON(ctx, "products/brands", params, &terms); err != nil {
		return nil, err
	}
	return terms, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "catalog client not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + "/" + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build catalog request")
	}
	req.Header.Set("Accept", "application/json")
	if c.consumerKey != "" {
		req.SetBasicAuth(c.consumerKey, c.consumerSecret)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.FromTransport(err, "execute catalog request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return pkgerrors.New(pkgerrors.CodeNotFound, "catalog entry not found")
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "catalog request failed")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode catalog response")
	}
	return nil
}
