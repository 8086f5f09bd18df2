package crawler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sedar-crawler/internal/components/assert"
	"sedar-crawler/internal/components/chrono"
	"sedar-crawler/internal/components/telemetry"
	"sedar-crawler/internal/db"
	"sedar-crawler/pkg/htmlutil"
	"sedar-crawler/pkg/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const report_company_scrape = "company.scrape"

// Profile is what a company profile page says about a company.
type Profile struct {
	Name       string
	Attributes map[string]string
}

// ParseProfile reads the name and the label/value attribute pairs of a
// company profile page.
func ParseProfile(doc *goquery.Document) (Profile, error) {
	content := doc.Find("div#content").First()
	if content.Length() == 0 {
		return Profile{}, fmt.Errorf("profile page has no content")
	}

	profile := Profile{
		Name:       htmlutil.CleanText(htmlutil.OwnText(content.Find("td > font > strong").First())),
		Attributes: map[string]string{},
	}

	key := ""
	content.Find("td").Each(func(_ int, cell *goquery.Selection) {
		switch {
		case cell.HasClass("bt"):
			key = textutil.AttributeKey(htmlutil.OwnText(cell))
		case cell.HasClass("rt") && key != "":
			profile.Attributes[key] = htmlutil.CleanText(htmlutil.OwnText(cell))
			key = ""
		}
	})
	return profile, nil
}

// CompanyScraper stores company profiles, each url is fetched at most once.
type CompanyScraper struct {
	client *resty.Client
	qry    *db.Queries
	clock  chrono.TimeAPI
	tel    telemetry.API
}

func NewCompanyScraper(client *resty.Client, qry *db.Queries, clock chrono.TimeAPI, tel telemetry.API) CompanyScraper {
	assert.NotNil(client)
	assert.NotNil(qry)
	assert.NotNil(clock)
	assert.NotNil(tel)

	return CompanyScraper{
		client: client,
		qry:    qry,
		clock:  clock,
		tel:    telemetry.NewScopedAPI("crawler", tel),
	}
}

func (s CompanyScraper) Retrieve(ctx context.Context, companyUrl string) error {
	_, err := s.qry.GetCompany(ctx, companyUrl)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	base, err := url.Parse(companyUrl)
	if err != nil {
		return err
	}
	res, err := s.client.R().
		SetContext(ctx).
		Get(companyUrl)
	if err != nil {
		s.tel.ReportWarning(report_company_scrape, fmt.Errorf("fetch: %w", err), companyUrl)
		return err
	}
	if res.IsError() {
		err := fmt.Errorf("fetch company %s: status %s", companyUrl, res.Status())
		s.tel.ReportWarning(report_company_scrape, err)
		return err
	}

	doc, err := htmlutil.ParseDocument(base, res.Body())
	if err != nil {
		s.tel.ReportWarning(report_company_scrape, fmt.Errorf("parse: %w", err), companyUrl)
		return err
	}
	profile, err := ParseProfile(doc)
	if err != nil {
		s.tel.ReportWarning(report_company_scrape, err, companyUrl)
		return err
	}
	s.tel.ReportDebug("company", profile.Name)

	attributes, err := json.Marshal(profile.Attributes)
	if err != nil {
		return err
	}
	return s.qry.UpsertCompany(ctx, db.UpsertCompanyParams{
		Url:        companyUrl,
		Name:       profile.Name,
		Attributes: string(attributes),
		UpdatedAt:  s.clock.Now().Unix(),
	})
}
