package commands

import (
	"database/sql"
	"sedar-crawler/internal/captcha"
	"sedar-crawler/internal/components/chrono"
	"sedar-crawler/internal/config"
	"sedar-crawler/internal/crawler"
	"sedar-crawler/internal/db"
	"sedar-crawler/internal/documents"
	"sedar-crawler/internal/httpclient"
	"sedar-crawler/internal/session"
)

func httpOptions(cfg config.Config) httpclient.Options {
	return httpclient.Options{
		Timeout:           cfg.HttpTimeout(),
		RequestsPerSecond: cfg.Http.RequestsPerSecond,
		UserAgent:         cfg.Http.UserAgent,
	}
}

func newAcquirer(cfg config.Config) (session.Acquirer, error) {
	tel := globals.tel

	enhancer, err := captcha.NewGraphicsMagick(cfg.Captcha.GmPaths, tel)
	if err != nil {
		return session.Acquirer{}, err
	}
	recognizer, err := captcha.NewTesseract(cfg.Captcha.TesseractPaths, cfg.Captcha.Language, cfg.Captcha.Psm, tel)
	if err != nil {
		return session.Acquirer{}, err
	}
	solver := captcha.NewSolver(enhancer, recognizer, tel)

	return session.NewAcquirer(
		httpclient.NewFactory(httpOptions(cfg), tel),
		solver,
		session.AcquirerOptions{
			ChallengeUrl: cfg.Endpoints.Challenge,
			Retry: session.RetryPolicy{
				Delay: cfg.RetryDelay(),
			},
		},
		tel,
	)
}

// newFetcher looks up the captcha tools only once a download actually needs a
// session, documents already on disk are served without them.
func newFetcher(cfg config.Config) (documents.Fetcher, error) {
	source := session.NewLazySource(func() (session.Source, error) {
		acquirer, err := newAcquirer(cfg)
		if err != nil {
			return nil, err
		}
		return acquirer, nil
	})
	opts := documents.DefaultOptions(cfg.FilingsDir)
	opts.MaxAttempts = cfg.FetchMaxAttempts()
	return documents.NewFetcher(session.NewHolder(source), opts, globals.tel), nil
}

func openStore(cfg config.Config) (*sql.DB, *db.Queries, error) {
	sqldb, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return sqldb, db.New(sqldb), nil
}

// newCrawler wires the whole pipeline, the returned db must be closed by the
// caller.
func newCrawler(cfg config.Config) (crawler.Crawler, *sql.DB, error) {
	tel := globals.tel

	fetcher, err := newFetcher(cfg)
	if err != nil {
		return crawler.Crawler{}, nil, err
	}
	sqldb, qry, err := openStore(cfg)
	if err != nil {
		return crawler.Crawler{}, nil, err
	}

	client, err := httpclient.New(httpOptions(cfg), tel)
	if err != nil {
		sqldb.Close()
		return crawler.Crawler{}, nil, err
	}
	clock := chrono.NewStandardTime()

	c, err := crawler.NewCrawler(
		client,
		fetcher,
		crawler.NewCompanyScraper(client, qry, clock, tel),
		qry,
		clock,
		crawler.Options{
			ResultPage: cfg.Endpoints.ResultPage,
			Search: crawler.Search{
				Industries:  cfg.Search.Industries,
				WindowYears: cfg.Search.WindowYears,
			},
		},
		tel,
	)
	if err != nil {
		sqldb.Close()
		return crawler.Crawler{}, nil, err
	}
	return c, sqldb, nil
}
