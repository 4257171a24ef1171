package amazon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/Achierius/amazon-transaction-scraper/lib/restyutil"
	"github.com/Achierius/amazon-transaction-scraper/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/amazon")

var ErrNotLoggedIn = fmt.Errorf("not logged in to an Amazon account")

// Fetcher is the document-source capability the extraction code runs
// against: fetch a page now, or keep fetching until a selector shows
// up. Implemented by Client against the live site and by synthetic
// fixtures in tests.
type Fetcher interface {
	Fetch(ctx context.Context, link string) (*goquery.Document, error)
	WaitForSelector(ctx context.Context, link, selector string) (*goquery.Document, error)
}

type ClientOptions struct {
	// defaults to https://www.amazon.com
	BaseUrl string
	// session cookies in JSON form, loaded on startup when the file
	// exists and rewritten by SaveCookies
	CookieFile string
	// per-request timeout, defaults to 20s
	FetchTimeout time.Duration
	// upper bound on one WaitForSelector call, defaults to 20s
	WaitTimeout time.Duration
	// re-fetch interval while waiting for a selector, defaults to 2s
	PollInterval time.Duration
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	cookieFile   string
	waitTimeout  time.Duration
	pollInterval time.Duration
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://www.amazon.com"
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = time.Second * 20
	}
	if opts.WaitTimeout <= 0 {
		opts.WaitTimeout = time.Second * 20
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second * 2
	}

	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseUrl.Hostname()))
	client.SetTimeout(opts.FetchTimeout)

	telemetry.InstrumentResty(client, "scrapers/amazon/http")

	c := &Client{
		BaseUrl:      baseUrl,
		Http:         client,
		cookieFile:   opts.CookieFile,
		waitTimeout:  opts.WaitTimeout,
		pollInterval: opts.PollInterval,
	}
	if opts.CookieFile != "" {
		err = c.LoadCookies()
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("load cookies from %s: %w", opts.CookieFile, err)
		}
	}
	return c, nil
}

func (c *Client) SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	restyutil.InstrumentClient(c.Http, output)
}

func (c *Client) LoadCookies() error {
	contents, err := os.ReadFile(c.cookieFile)
	if err != nil {
		return err
	}
	var cookies []*http.Cookie
	err = json.Unmarshal(contents, &cookies)
	if err != nil {
		return err
	}
	c.Http.GetClient().Jar.SetCookies(c.BaseUrl, cookies)
	slog.Debug("loaded session cookies", "file", c.cookieFile, "count", len(cookies))
	return nil
}

func (c *Client) SaveCookies() error {
	if c.cookieFile == "" {
		return fmt.Errorf("no cookie file configured")
	}
	cookies := c.Http.GetClient().Jar.Cookies(c.BaseUrl)
	contents, err := json.MarshalIndent(cookies, "", "  ")
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(c.cookieFile), 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(c.cookieFile, contents, 0600)
}

func (c *Client) Fetch(ctx context.Context, link string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()

	res, err := c.Http.R().
		SetContext(ctx).
		Get(link)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch page")
		return nil, err
	}
	if res.StatusCode() >= 400 {
		err := fmt.Errorf("fetch %s: status %d", link, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "bad response status")
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse html")
		return nil, err
	}
	return doc, nil
}

// fetches link until selector matches something or the wait timeout
// runs out. there is no retry beyond this, a timeout here is fatal
// for the operation in progress.
func (c *Client) WaitForSelector(ctx context.Context, link, selector string) (*goquery.Document, error) {
	ctx, span := tracer.Start(ctx, "client:WaitForSelector")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.waitTimeout)
	defer cancel()

	for {
		doc, err := c.Fetch(ctx, link)
		if err == nil && doc.Find(selector).Length() > 0 {
			return doc, nil
		}
		if err != nil {
			slog.DebugContext(ctx, "fetch failed while waiting for selector",
				"url", link, "selector", selector, "err", err)
		}

		select {
		case <-ctx.Done():
			err := fmt.Errorf("waiting for %q on %s: %w", selector, link, ctx.Err())
			span.RecordError(err)
			span.SetStatus(codes.Error, "selector wait timed out")
			return nil, err
		case <-time.After(c.pollInterval):
		}
	}
}

// loads the generic orders page and checks for the signed-in "Your
// Orders" heading
func (c *Client) CheckLogin(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:CheckLogin")
	defer span.End()

	doc, err := c.Fetch(ctx, "/your-orders/orders")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch orders page")
		return err
	}
	if findMarker(doc.Selection, "h1", "Your Orders").Length() == 0 {
		span.SetStatus(codes.Error, ErrNotLoggedIn.Error())
		return ErrNotLoggedIn
	}
	return nil
}

// polls CheckLogin until the session looks signed in, for use while
// the cookie file is being produced out of band. this is the one
// long-running wait in the program, bounded by `timeout` rather than
// the client's usual wait timeout.
func (c *Client) WaitForLogin(ctx context.Context, timeout time.Duration) error {
	ctx, span := tracer.Start(ctx, "client:WaitForLogin")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		err := c.LoadCookies()
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		err = c.CheckLogin(ctx)
		if err == nil {
			return nil
		}

		select {
		case <-ctx.Done():
			err := fmt.Errorf("waiting for login: %w", ctx.Err())
			span.RecordError(err)
			span.SetStatus(codes.Error, "login wait timed out")
			return err
		case <-time.After(c.pollInterval):
		}
	}
}
