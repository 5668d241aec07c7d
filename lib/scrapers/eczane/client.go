package eczane

import (
	"bytes"
	"context"
	"fmt"
	"net/http/cookiejar"
	"regexp"
	"strconv"
	"time"

	"github.com/berkinory/Nobetcim/lib/htmlutil"
	"github.com/berkinory/Nobetcim/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// DefaultBaseUrl is the duty-pharmacy query form on the e-government
// portal.
const DefaultBaseUrl = "https://www.turkiye.gov.tr/saglik-titck-nobetci-eczane-sorgulama"

const defaultTimeout = time.Second * 6

var ErrTokenMissing = fmt.Errorf("could not find session token on landing page")
var ErrCoordsMissing = fmt.Errorf("could not find coordinate literals in response")

// Client is the session-stateful side of one fetch attempt: one cookie
// jar, one per-session token, shared default headers. it never retries
// on its own, the caller decides at which granularity a failure is
// worth repeating.
type Client struct {
	BaseUrl string
	Http    *resty.Client
}

type ClientOptions struct {
	BaseUrl string
	// per-request timeout, defaults to 6s
	Timeout time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0")
	client.SetHeader("accept-language", "tr-TR,tr;q=0.9,en;q=0.8")
	client.SetHeader("referer", opts.BaseUrl)
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, "scrapers/eczane/http")

	return &Client{
		BaseUrl: opts.BaseUrl,
		Http:    client,
	}, nil
}

func checkStatus(res *resty.Response) error {
	if res.IsError() {
		return fmt.Errorf("unexpected status: %s", res.Status())
	}
	return nil
}

// FetchToken loads the landing page and pulls the per-session
// anti-forgery token out of the <body> tag.
func (c *Client) FetchToken(ctx context.Context) (string, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get("")
	if err != nil {
		return "", err
	}
	if err := checkStatus(res); err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return "", err
	}

	token := doc.Find("body").AttrOr("data-token", "")
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}

// SubmitQuery posts the region+date form. the response body carries
// nothing useful, success is judged later by whether the result table
// materializes in the session.
func (c *Client) SubmitQuery(ctx context.Context, region int, date, token string) error {
	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"plakaKodu":   strconv.Itoa(region),
			"nobetTarihi": date,
			"token":       token,
			"btn":         "Sorgula",
		}).
		Post("?submit")
	if err != nil {
		return err
	}
	return checkStatus(res)
}

// FetchRosterRows loads the result page and returns the cell texts of
// every row in the search table. a missing table yields no rows and no
// error: the source renders the same page whether the query matched
// nothing or silently failed.
func (c *Client) FetchRosterRows(ctx context.Context) ([][]string, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get("?nobetci=Eczaneler")
	if err != nil {
		return nil, err
	}
	if err := checkStatus(res); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, err
	}

	var rows [][]string
	doc.Find("table#searchTable tbody tr").Each(func(_ int, row *goquery.Selection) {
		rows = append(rows, htmlutil.CellTexts(row))
	})
	return rows, nil
}

var lattiRegex = regexp.MustCompile(`var latti = parseFloat\(([\d\.]+)\);`)
var longiRegex = regexp.MustCompile(`var longi = parseFloat\(([\d\.]+)\);`)

// FetchCoordinates asks the map endpoint for one row of the current
// session's result table and extracts the two coordinate literals
// embedded in its script body.
func (c *Client) FetchCoordinates(ctx context.Context, index int) (float64, float64, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"harita": "Goster",
			"index":  strconv.Itoa(index),
		}).
		Post(fmt.Sprintf("?harita=Goster&index=%d", index))
	if err != nil {
		return 0, 0, err
	}
	if err := checkStatus(res); err != nil {
		return 0, 0, err
	}

	body := res.String()
	latMatch := lattiRegex.FindStringSubmatch(body)
	lonMatch := longiRegex.FindStringSubmatch(body)
	if latMatch == nil || lonMatch == nil {
		return 0, 0, ErrCoordsMissing
	}

	lat, err := strconv.ParseFloat(latMatch[1], 64)
	if err != nil {
		return 0, 0, ErrCoordsMissing
	}
	lon, err := strconv.ParseFloat(lonMatch[1], 64)
	if err != nil {
		return 0, 0, ErrCoordsMissing
	}
	return lat, lon, nil
}
