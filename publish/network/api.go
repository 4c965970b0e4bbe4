package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/bitrise-io/go-mediaupload/internal/httpbody"
	"github.com/bitrise-io/go-mediaupload/publish/network/chunkuploader"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	uploadProfile = "ugcfr/pc3"
	clientBuild   = 1054
	sidCookie     = "sid"
)

// UploadTarget is where the chunks of one part go. It is valid for the lifetime of that part's session only.
type UploadTarget struct {
	ChunkURL       string `json:"url"`
	FinalizeURL    string `json:"complete"`
	ServerFilename string `json:"filename"`
}

type finalizeRequest struct {
	Chunks   int
	FileSize int64
	MD5      string
	Name     string
}

type okResponse struct {
	OK   int    `json:"OK"`
	Info string `json:"info"`
}

type coverResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

type submitResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		AID  int64  `json:"aid"`
		BVID string `json:"bvid"`
	} `json:"data"`
}

type apiClient struct {
	httpClient *retryablehttp.Client
	baseURL    string
	appKey     string
	appSecret  string
	logger     log.Logger
}

func newAPIClient(client *retryablehttp.Client, baseURL, appKey, appSecret string, logger log.Logger) apiClient {
	return apiClient{
		httpClient: client,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		appKey:     appKey,
		appSecret:  appSecret,
		logger:     logger,
	}
}

func (c apiClient) preupload(ctx context.Context, creds Credentials) (UploadTarget, error) {
	query := url.Values{}
	query.Set("access_key", creds.AccessToken)
	query.Set("mid", strconv.FormatInt(creds.MemberID, 10))
	query.Set("profile", uploadProfile)
	apiURL := fmt.Sprintf("%s/preupload?%s", c.baseURL, query.Encode())

	req, err := retryablehttp.NewRequest(http.MethodGet, apiURL, nil)
	if err != nil {
		return UploadTarget{}, err
	}
	req = req.WithContext(ctx)
	req.AddCookie(&http.Cookie{Name: sidCookie, Value: creds.SessionID})

	body, err := c.do(req, "Preupload")
	if err != nil {
		return UploadTarget{}, err
	}

	var target UploadTarget
	if err := json.Unmarshal(body, &target); err != nil {
		return UploadTarget{}, fmt.Errorf("decode preupload response: %w", err)
	}
	if target.ChunkURL == "" || target.FinalizeURL == "" || target.ServerFilename == "" {
		return UploadTarget{}, fmt.Errorf("incomplete preupload response: %s", body)
	}

	return target, nil
}

func (c apiClient) finalize(ctx context.Context, target UploadTarget, request finalizeRequest) error {
	form := url.Values{}
	form.Set("chunks", strconv.Itoa(request.Chunks))
	form.Set("filesize", strconv.FormatInt(request.FileSize, 10))
	form.Set("md5", request.MD5)
	form.Set("name", request.Name)
	form.Set("version", chunkuploader.ClientVersion)

	req, err := retryablehttp.NewRequest(http.MethodPost, target.FinalizeURL, []byte(form.Encode()))
	if err != nil {
		return err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	body, err := c.do(req, "Finalize")
	if err != nil {
		return err
	}

	var response okResponse
	if err := json.Unmarshal(body, &response); err != nil || response.OK != 1 {
		return &HTTPError{StatusCode: http.StatusOK, Body: string(body)}
	}

	return nil
}

func (c apiClient) uploadCover(ctx context.Context, creds Credentials, fileName string, data []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, fileName))
	header.Set("Content-Type", http.DetectContentType(data))
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	apiURL := fmt.Sprintf("%s/x/vu/client/cover/up?%s", c.baseURL, c.signedQuery(creds).Encode())
	req, err := retryablehttp.NewRequest(http.MethodPost, apiURL, buf.Bytes())
	if err != nil {
		return "", err
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: sidCookie, Value: creds.SessionID})

	body, err := c.do(req, "Cover")
	if err != nil {
		return "", err
	}

	var response coverResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("decode cover response: %w", err)
	}
	if response.Code != 0 || response.Data.URL == "" {
		return "", &HTTPError{StatusCode: http.StatusOK, Body: string(body)}
	}

	return response.Data.URL, nil
}

func (c apiClient) submit(ctx context.Context, creds Credentials, manifest Manifest) (SubmitResult, error) {
	payload, err := json.Marshal(manifest)
	if err != nil {
		return SubmitResult{}, &FatalManifestError{Err: fmt.Errorf("encode manifest: %w", err)}
	}

	apiURL := fmt.Sprintf("%s/x/vu/client/add?%s", c.baseURL, c.signedQuery(creds).Encode())
	req, err := retryablehttp.NewRequest(http.MethodPost, apiURL, payload)
	if err != nil {
		return SubmitResult{}, &FatalManifestError{Err: err}
	}
	req = req.WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: sidCookie, Value: creds.SessionID})

	body, err := c.do(req, "Submit")
	if err != nil {
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			return SubmitResult{}, &FatalManifestError{StatusCode: httpErr.StatusCode, Message: httpErr.Body}
		}
		return SubmitResult{}, &FatalManifestError{Err: err}
	}

	var response submitResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return SubmitResult{}, &FatalManifestError{StatusCode: http.StatusOK, Err: fmt.Errorf("decode submit response: %w", err)}
	}
	if response.Code != 0 {
		message := response.Message
		if message == "" {
			message = string(body)
		}
		return SubmitResult{}, &FatalManifestError{StatusCode: http.StatusOK, Code: response.Code, Message: message}
	}

	return SubmitResult{GlobalID: response.Data.AID, PublicID: response.Data.BVID}, nil
}

// do sends req and returns the decoded body of a 2xx response. Other statuses become *HTTPError.
func (c apiClient) do(req *retryablehttp.Request, name string) ([]byte, error) {
	req.Header.Set("Accept-Encoding", httpbody.AcceptEncoding)

	c.logger.Debugf("%s request: %s %s", name, req.Method, req.URL.Path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warnf("close %s response body: %s", name, err)
		}
	}()

	body, err := httpbody.Read(resp)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("%s response: HTTP %d: %s", name, resp.StatusCode, body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
