package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"jobdispatch-backend/models"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

const defaultServer = "http://localhost:8081/api/v1"

// APIClient talks to the dispatch REST API with a bearer token
type APIClient struct {
	baseURL string
	token   string
	http    *http.Client
}

// newAPIClient builds an APIClient from flags or DISPATCH_* env vars
func newAPIClient(cmd *cobra.Command) (*APIClient, error) {
	server, _ := cmd.Flags().GetString("server")
	token, _ := cmd.Flags().GetString("token")

	if server == "" {
		server = os.Getenv("DISPATCH_SERVER")
	}
	if token == "" {
		token = os.Getenv("DISPATCH_TOKEN")
	}
	if server == "" {
		server = defaultServer
	}
	if token == "" {
		return nil, fmt.Errorf("no token: pass --token or set DISPATCH_TOKEN (see 'dispatchctl token')")
	}

	return &APIClient{
		baseURL: strings.TrimRight(server, "/"),
		token:   token,
		http:    &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// APIError is an error envelope returned by the server
type APIError struct {
	Code    int
	Message string
	Detail  models.APIError
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%d)", e.Message, e.Code)
	if e.Detail.Details != "" {
		fmt.Fprintf(&b, ": %s", e.Detail.Details)
	}
	names := make([]string, 0, len(e.Detail.Fields))
	for name := range e.Detail.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\n  %s: %s", name, e.Detail.Fields[name])
	}
	return b.String()
}

func (c *APIClient) get(path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *APIClient) postJSON(path string, body interface{}, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *APIClient) patchJSON(path string, body interface{}, out interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPatch, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// postCompletion uploads a report with the completion form fields
func (c *APIClient) postCompletion(jobID, reportPath string, form *models.CompleteJobRequest, out interface{}) error {
	file, err := os.Open(reportPath)
	if err != nil {
		return fmt.Errorf("failed to open report: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="report"; filename=%q`, filepath.Base(reportPath)))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to read report: %w", err)
	}

	if err := writer.WriteField("hasInvoice", fmt.Sprint(form.HasInvoice)); err != nil {
		return err
	}
	if form.HasInvoice && form.Invoice != nil {
		invoice, err := json.Marshal(form.Invoice)
		if err != nil {
			return err
		}
		if err := writer.WriteField("invoice", string(invoice)); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/jobs/"+url.PathEscape(jobID)+"/complete", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req, out)
}

// do sends req and decodes the data member of the envelope into out
func (c *APIClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Code: resp.StatusCode, Message: gjson.GetBytes(body, "message").String()}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		if detail := gjson.GetBytes(body, "error"); detail.Exists() {
			_ = json.Unmarshal([]byte(detail.Raw), &apiErr.Detail)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	data := gjson.GetBytes(body, "data")
	if !data.Exists() {
		return fmt.Errorf("response has no data: %s", string(body))
	}
	return json.Unmarshal([]byte(data.Raw), out)
}
