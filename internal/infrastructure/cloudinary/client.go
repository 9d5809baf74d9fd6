package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Client talks to the Cloudinary admin/upload API. PDFs are uploaded with
// resource_type image so page images can be served as URL transformations
// of the original (pg_N) without any further uploads.
type Client struct {
	CloudName string
	APIKey    string
	APISecret string

	// APIBaseURL overrides https://api.cloudinary.com (tests).
	APIBaseURL string
	// DeliveryBaseURL overrides https://res.cloudinary.com in built URLs.
	DeliveryBaseURL string
	HTTP            *http.Client
}

type UploadResult struct {
	URL      string
	PublicID string
	Width    int
	Height   int
}

// PageImageOptions control the page transformation. Zero values fall back
// to the service defaults (1200x1600, q_auto, jpg).
type PageImageOptions struct {
	Width   int
	Height  int
	Quality string
	Format  string
}

type uploadResp struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

type destroyResp struct {
	Result string `json:"result"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
}

type pingResp struct {
	Status string `json:"status"`
}

// UploadOriginal uploads the PDF at filePath into the given folder and
// returns the hosting-side reference for it.
func (c *Client) UploadOriginal(ctx context.Context, filePath, folder string) (UploadResult, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return UploadResult{}, err
	}
	defer f.Close()

	params := map[string]string{
		"folder":          folder,
		"format":          "pdf",
		"timestamp":       strconv.FormatInt(time.Now().Unix(), 10),
		"unique_filename": "true",
		"use_filename":    "true",
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		for k, v := range params {
			_ = mw.WriteField(k, v)
		}
		_ = mw.WriteField("api_key", c.APIKey)
		_ = mw.WriteField("signature", signParams(params, c.APISecret))
		part, err := mw.CreateFormFile("file", filepath.Base(filePath))
		if err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, f); err != nil {
			_ = pw.CloseWithError(err)
			return
		}
		_ = pw.CloseWithError(mw.Close())
	}()

	u := c.apiBase() + "/v1_1/" + c.CloudName + "/image/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pr)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out uploadResp
	if err := c.do(req, &out); err != nil {
		return UploadResult{}, err
	}
	if out.PublicID == "" {
		return UploadResult{}, errors.New("cloudinary upload: empty public_id")
	}
	return UploadResult{
		URL:      out.SecureURL,
		PublicID: out.PublicID,
		Width:    out.Width,
		Height:   out.Height,
	}, nil
}

// DeleteOriginal asks Cloudinary to destroy the stored original. A false
// return without error means the asset was already gone.
func (c *Client) DeleteOriginal(ctx context.Context, publicID string) (bool, error) {
	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	}
	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	form.Set("api_key", c.APIKey)
	form.Set("signature", signParams(params, c.APISecret))

	u := c.apiBase() + "/v1_1/" + c.CloudName + "/image/destroy"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out destroyResp
	if err := c.do(req, &out); err != nil {
		return false, err
	}
	return out.Result == "ok", nil
}

// Ping verifies the configured credentials against the admin API.
func (c *Client) Ping(ctx context.Context) error {
	u := c.apiBase() + "/v1_1/" + c.CloudName + "/ping"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.APIKey, c.APISecret)

	var out pingResp
	if err := c.do(req, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("cloudinary ping: status %q", out.Status)
	}
	return nil
}

// PageImageURL builds the transformation URL for one page of an uploaded
// PDF. Pure string construction; pg_N renders page N as an image.
func (c *Client) PageImageURL(publicID string, pageNumber int, opts PageImageOptions) string {
	if opts.Width == 0 {
		opts.Width = 1200
	}
	if opts.Height == 0 {
		opts.Height = 1600
	}
	if opts.Quality == "" {
		opts.Quality = "auto"
	}
	if opts.Format == "" {
		opts.Format = "jpg"
	}
	base := c.DeliveryBaseURL
	if base == "" {
		base = "https://res.cloudinary.com"
	}
	return fmt.Sprintf("%s/%s/image/upload/pg_%d,w_%d,h_%d,c_limit,q_%s/%s.%s",
		strings.TrimRight(base, "/"), c.CloudName, pageNumber,
		opts.Width, opts.Height, opts.Quality, publicID, opts.Format)
}

func (c *Client) apiBase() string {
	base := strings.TrimSpace(c.APIBaseURL)
	if base == "" {
		base = "https://api.cloudinary.com"
	}
	return strings.TrimRight(base, "/")
}

func (c *Client) do(req *http.Request, out any) error {
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var er uploadResp
		if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
			return errors.New("cloudinary: " + er.Error.Message)
		}
		return errors.New("cloudinary: " + strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// signParams produces the Cloudinary request signature: the sorted
// key=value pairs joined with &, with the API secret appended, SHA-1 hashed.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + secret))
	return hex.EncodeToString(sum[:])
}
