package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/kisansetu/kisanmitra/internal/mandi"
	"github.com/kisansetu/kisanmitra/internal/refdata"
	"github.com/kisansetu/kisanmitra/pkg/models"
	"github.com/kisansetu/kisanmitra/pkg/utils"
)

const (
	agmarknetBaseURL = "https://agmarknet.gov.in"
	// priceTableSelector matches the GridView AgMarkNet renders the
	// commodity-wise daily report into.
	priceTableSelector = "table#cphBody_GridPriceData"
)

// AgmarknetConfig tunes the adapter. Zero values take the defaults below.
type AgmarknetConfig struct {
	BaseURL        string
	Timeout        time.Duration // per-attempt deadline
	RetryAttempts  int           // extra attempts for transient failures
	RetryBackoff   time.Duration
	RequestsPerSec float64
}

func (c *AgmarknetConfig) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = agmarknetBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	} else if c.RetryAttempts == 0 {
		c.RetryAttempts = 2
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
	if c.RequestsPerSec <= 0 {
		c.RequestsPerSec = 2
	}
}

// Agmarknet scrapes mandi price tables from the AgMarkNet portal. It
// implements mandi.SourceAdapter: every failure is classified transient or
// permanent, transient failures are retried with a short constant backoff,
// and each attempt carries its own deadline so a hung portal cannot stall a
// request beyond cfg.Timeout per try. Safe for concurrent use.
type Agmarknet struct {
	cfg     AgmarknetConfig
	catalog *refdata.Catalog
	client  *http.Client
	limiter *rate.Limiter
	log     *logrus.Logger
}

// NewAgmarknet creates the adapter. log may be nil.
func NewAgmarknet(cfg AgmarknetConfig, catalog *refdata.Catalog, log *logrus.Logger) *Agmarknet {
	cfg.applyDefaults()
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Agmarknet{
		cfg:     cfg,
		catalog: catalog,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), 1),
		log:     log,
	}
}

// Name returns the data source name.
func (a *Agmarknet) Name() string { return "AgMarkNet" }

// Fetch retrieves the full price table for one market and date.
func (a *Agmarknet) Fetch(ctx context.Context, marketID string, date time.Time) ([]models.PriceRecord, error) {
	market, ok := a.catalog.MarketByID(marketID)
	if !ok {
		return nil, &mandi.SourceError{
			Kind: mandi.SourcePermanent,
			Op:   "agmarknet.fetch",
			Err:  fmt.Errorf("market %q not in reference table", marketID),
		}
	}

	reqURL := a.reportURL(market, date)
	log := a.log.WithFields(logrus.Fields{
		"source": "agmarknet",
		"market": marketID,
		"date":   utils.FormatMandiDate(date),
	})

	var records []models.PriceRecord
	backoff := retry.WithMaxRetries(uint64(a.cfg.RetryAttempts), retry.NewConstant(a.cfg.RetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := a.limiter.Wait(ctx); err != nil {
			return transientErr(fmt.Errorf("rate limiter: %w", err))
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()

		recs, err := a.fetchOnce(attemptCtx, reqURL, market, date)
		if err != nil {
			if mandi.Transient(err) {
				log.WithError(err).Debug("transient attempt failure, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		records = recs
		return nil
	})
	if err != nil {
		// retry.Do hands back the inner error once attempts are spent.
		var se *mandi.SourceError
		if errors.As(err, &se) {
			return nil, se
		}
		return nil, &mandi.SourceError{Kind: mandi.SourceTransient, Op: "agmarknet.fetch", Err: err}
	}

	log.WithField("records", len(records)).Debug("fetched mandi price table")
	return records, nil
}

// reportURL builds the commodity-wise daily report request for one mandi.
func (a *Agmarknet) reportURL(market models.CanonicalMarket, date time.Time) string {
	q := url.Values{}
	q.Set("Tx_Commodity", "0") // all commodities
	q.Set("Tx_State", market.State)
	q.Set("Tx_District", market.District)
	q.Set("Tx_Market", market.DisplayName)
	q.Set("DateFrom", utils.FormatMandiDate(date))
	q.Set("DateTo", utils.FormatMandiDate(date))
	return a.cfg.BaseURL + "/SearchCmmMkt.aspx?" + q.Encode()
}

func (a *Agmarknet) fetchOnce(ctx context.Context, reqURL string, market models.CanonicalMarket, date time.Time) ([]models.PriceRecord, error) {
	body, status, err := doGet(ctx, a.client, reqURL, nil)
	if err != nil {
		return nil, classifyHTTPError(status, err)
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, transientErr(fmt.Errorf("read response: %w", err))
	}
	return a.parseTable(doc, market, date)
}

// parseTable extracts PriceRecords from the report page. A reachable page
// without a usable table, or with an explicit no-data marker, is permanent
// for this (market, date): the portal has confirmed there is nothing.
func (a *Agmarknet) parseTable(doc *goquery.Document, market models.CanonicalMarket, date time.Time) ([]models.PriceRecord, error) {
	table := doc.Find(priceTableSelector)
	if table.Length() == 0 {
		return nil, permanentErr(fmt.Errorf("price table missing from page"))
	}

	pageText := doc.Text()
	if strings.Contains(pageText, "No Data Found") || strings.Contains(pageText, "No Records Found") {
		return nil, permanentErr(fmt.Errorf("no trading reported for %s on %s",
			market.DisplayName, utils.FormatMandiDate(date)))
	}

	fetchedAt := utils.NowIST()
	var records []models.PriceRecord
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		// Layout: Sl No | District | Market | Commodity | Variety | Grade |
		// Min | Max | Modal | Price Date.
		if cells.Length() < 10 {
			return // header or pager row
		}

		commodityName := strings.TrimSpace(cells.Eq(3).Text())
		if commodityName == "" {
			return
		}

		rec := models.PriceRecord{
			MarketID:    market.MarketID,
			CommodityID: a.commodityID(commodityName),
			Date:        utils.TruncateToDay(date),
			MinPrice:    parsePrice(cells.Eq(6).Text()),
			MaxPrice:    parsePrice(cells.Eq(7).Text()),
			ModalPrice:  parsePrice(cells.Eq(8).Text()),
			Unit:        "quintal", // AgMarkNet reports INR per quintal
			FetchedAt:   fetchedAt,
		}
		if !rec.Complete() {
			rec.Partial = true
		}
		records = append(records, rec)
	})

	if len(records) == 0 {
		return nil, permanentErr(fmt.Errorf("price table empty for %s on %s",
			market.DisplayName, utils.FormatMandiDate(date)))
	}
	return records, nil
}

// commodityID maps a source commodity caption to its canonical id, falling
// back to the normalized caption so unlisted commodities stay visible in
// "all commodities" results.
func (a *Agmarknet) commodityID(name string) string {
	norm := utils.NormalizeName(name)
	if c, ok := a.catalog.CommodityByAlias(norm); ok {
		return c.CommodityID
	}
	return norm
}

// parsePrice parses an AgMarkNet price cell ("2,350", "NR", "-", "") into
// an optional INR value. Zero and non-numeric cells are treated as absent.
func parsePrice(s string) *float64 {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" || strings.EqualFold(s, "NR") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// classifyHTTPError sorts transport-level failures into the adapter error
// taxonomy: connection faults, timeouts, 429 and 5xx are transient; any
// other HTTP status means the portal answered and will keep answering the
// same way, so it is permanent for this key.
func classifyHTTPError(status int, err error) error {
	var httpErr *ErrHTTP
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500 {
			return transientErr(err)
		}
		return permanentErr(err)
	}
	return transientErr(err)
}

func transientErr(err error) *mandi.SourceError {
	return &mandi.SourceError{Kind: mandi.SourceTransient, Op: "agmarknet.fetch", Err: err}
}

func permanentErr(err error) *mandi.SourceError {
	return &mandi.SourceError{Kind: mandi.SourcePermanent, Op: "agmarknet.fetch", Err: err}
}
