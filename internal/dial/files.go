package dial

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path"
)

type bucketWireResponse struct {
	Bucket  string `json:"bucket"`
	Appdata string `json:"appdata"`
}

// Home returns the caller's application-data home inside the file storage
// namespace. Uploaded file URLs take the form "files/<home>/<name>".
func (c *Client) Home(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/bucket", nil)
	if err != nil {
		return "", fmt.Errorf("home: build request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("home: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var wire bucketWireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return "", fmt.Errorf("home: decode response: %w", err)
	}
	if wire.Appdata != "" {
		return wire.Appdata, nil
	}
	return wire.Bucket, nil
}

// DownloadFile fetches a stored file. fileURL is storage-relative, e.g.
// "files/<home>/report.csv". The filename comes from Content-Disposition when
// present, else from the URL's last path element.
func (c *Client) DownloadFile(ctx context.Context, fileURL string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/"+fileURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("download: build request: %w", err)
	}

	resp, err := c.do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("download: read body: %w", err)
	}

	filename := path.Base(fileURL)
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil && params["filename"] != "" {
			filename = params["filename"]
		}
	}
	return filename, data, nil
}

// UploadFile stores data under the given storage-relative URL as a multipart
// upload.
func (c *Client) UploadFile(ctx context.Context, fileURL string, data []byte, mimeType string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename=%q`, path.Base(fileURL)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	header.Set("Content-Type", mimeType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("upload: build form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("upload: write form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("upload: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint+"/v1/"+fileURL, &body)
	if err != nil {
		return fmt.Errorf("upload: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return resp.Body.Close()
}
