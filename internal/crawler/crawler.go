package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sedar-crawler/internal/components/assert"
	"sedar-crawler/internal/components/chrono"
	"sedar-crawler/internal/components/telemetry"
	"sedar-crawler/internal/db"
	"sedar-crawler/pkg/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const (
	report_crawler_page   = "crawler.page"
	report_crawler_filing = "crawler.filing"
	report_crawler_pages  = "crawler.pages"
)

// DocumentFetcher is the part of documents.Fetcher the crawler depends on.
type DocumentFetcher interface {
	Fetch(ctx context.Context, submissionUrl string) (string, error)
}

// CompanyRetriever stores the profile behind a company url.
type CompanyRetriever interface {
	Retrieve(ctx context.Context, companyUrl string) error
}

// Listing is a filing row as it appears on a result page.
type Listing struct {
	Filing     string
	Submission string
	Company    string
	CompanyUrl string
	Date       string
	Time       string
	Type       string
	Format     string
	Size       string
}

type Options struct {
	ResultPage string
	Search     Search
}

// Crawler walks the result pages and stores every filing it finds.
type Crawler struct {
	client     *resty.Client
	fetcher    DocumentFetcher
	companies  CompanyRetriever
	qry        *db.Queries
	clock      chrono.TimeAPI
	resultPage *url.URL
	search     Search
	tel        telemetry.API
}

func NewCrawler(
	client *resty.Client,
	fetcher DocumentFetcher,
	companies CompanyRetriever,
	qry *db.Queries,
	clock chrono.TimeAPI,
	opts Options,
	tel telemetry.API,
) (Crawler, error) {
	assert.NotNil(client)
	assert.NotNil(fetcher)
	assert.NotNil(companies)
	assert.NotNil(qry)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NotEmptyStr(opts.ResultPage)

	resultPage, err := url.Parse(opts.ResultPage)
	if err != nil {
		return Crawler{}, err
	}

	return Crawler{
		client:     client,
		fetcher:    fetcher,
		companies:  companies,
		qry:        qry,
		clock:      clock,
		resultPage: resultPage,
		search:     opts.Search,
		tel:        telemetry.NewScopedAPI("crawler", tel),
	}, nil
}

// Run crawls result pages starting at page 1 until a page has no usable rows.
// Store and filesystem errors end the run.
func (c Crawler) Run(ctx context.Context) error {
	from, to := c.search.Window(c.clock.Now())
	c.tel.ReportDebug("crawling", from.Format("2006-01-02"), to.Format("2006-01-02"))

	for page := 1; ; page++ {
		listings, err := c.fetchPage(ctx, c.search.Params(from, to, page))
		if err != nil {
			return err
		}
		if len(listings) == 0 {
			c.tel.ReportCount(report_crawler_pages, int64(page-1))
			c.tel.ReportDebug("no filings left", page)
			return nil
		}

		for _, listing := range listings {
			err := c.store(ctx, listing)
			if err != nil {
				return err
			}
		}
	}
}

func (c Crawler) fetchPage(ctx context.Context, params map[string]string) ([]Listing, error) {
	endpoint := c.resultPage.String()

	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(endpoint)
	if err != nil {
		c.tel.ReportWarning(report_crawler_page, fmt.Errorf("fetch: %w", err), params["page_no"])
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("fetch result page %s: status %s", params["page_no"], res.Status())
		c.tel.ReportWarning(report_crawler_page, err)
		return nil, err
	}

	doc, err := htmlutil.ParseDocument(c.resultPage, res.Body())
	if err != nil {
		c.tel.ReportWarning(report_crawler_page, fmt.Errorf("parse: %w", err), params["page_no"])
		return nil, err
	}
	return ParseListings(c.resultPage, doc), nil
}

// ParseListings returns the usable rows of a result page: rows with at least
// six cells whose type cell carries a submission form action.
func ParseListings(base *url.URL, doc *goquery.Document) []Listing {
	var listings []Listing
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 6 {
			return
		}
		form := cells.Eq(3).Children().First()
		action, ok := form.Attr("action")
		if !ok {
			return
		}
		submission, ok := htmlutil.ResolveAttr(base, form, "action")
		if !ok {
			return
		}
		filing := action
		_, tail, found := strings.Cut(action, "fileName=")
		if found {
			filing = tail
		}

		listing := Listing{
			Filing:     filing,
			Submission: submission.String(),
			Company:    cellText(cells.Eq(0)),
			Date:       cellText(cells.Eq(1)),
			Time:       cellText(cells.Eq(2)),
			Type:       cellText(cells.Eq(3)),
			Format:     cellText(cells.Eq(4)),
			Size:       cellText(cells.Eq(5)),
		}
		companyUrl, ok := htmlutil.ResolveAttr(base, cells.Eq(0).ChildrenFiltered("a").First(), "href")
		if ok {
			listing.CompanyUrl = companyUrl.String()
		}
		listings = append(listings, listing)
	})
	return listings
}

// cellText keeps the inner whitespace of a cell as published, only the ends
// are trimmed.
func cellText(cell *goquery.Selection) string {
	if cell.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(htmlutil.GetText(cell.Nodes[0]))
}

// store downloads the filing's document before the record is written, so a
// stored filing always has its file on disk.
func (c Crawler) store(ctx context.Context, listing Listing) error {
	c.tel.ReportDebug("filing", listing.Filing)

	path, err := c.fetcher.Fetch(ctx, listing.Submission)
	if err != nil {
		c.tel.ReportBroken(report_crawler_filing, fmt.Errorf("fetch document: %w", err), listing.Filing)
		return err
	}

	err = c.qry.UpsertFiling(ctx, db.UpsertFilingParams{
		Filing:     listing.Filing,
		FileName:   path,
		Company:    listing.Company,
		CompanyUrl: listing.CompanyUrl,
		Date:       listing.Date,
		Time:       listing.Time,
		Type:       listing.Type,
		TosForm:    listing.Submission,
		Format:     listing.Format,
		Size:       listing.Size,
		UpdatedAt:  c.clock.Now().Unix(),
	})
	if err != nil {
		c.tel.ReportBroken(report_crawler_filing, fmt.Errorf("upsert: %w", err), listing.Filing)
		return err
	}

	if listing.CompanyUrl == "" {
		c.tel.ReportWarning(report_crawler_filing, "row has no company link", listing.Filing)
		return nil
	}
	return c.companies.Retrieve(ctx, listing.CompanyUrl)
}
