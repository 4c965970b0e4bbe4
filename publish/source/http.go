package source

import (
	"context"
	"net/http"
	"net/url"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/melbahja/got"
)

// HTTPDownloader downloads http(s) media with parallel range requests.
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader ...
func NewHTTPDownloader(logger log.Logger) *HTTPDownloader {
	retryableHTTPClient := retryhttp.NewClient(logger)
	retryableHTTPClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		retry, checkErr := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		logger.Debugf("CheckRetry: retry=%v ; err=%+v ; downloadErr=%+v", retry, checkErr, err)
		return retry, checkErr
	}

	return &HTTPDownloader{client: retryableHTTPClient.StandardClient()}
}

// Download ...
func (d *HTTPDownloader) Download(ctx context.Context, location *url.URL, dest string) error {
	downloader := got.New()
	downloader.Client = d.client

	return downloader.Do(got.NewDownload(ctx, location.String(), dest))
}
