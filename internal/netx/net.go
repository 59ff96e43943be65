// Package netx uploads product images straight to object storage through a
// presigned PUT URL handed out by the catalog server.
package netx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

const maxErrorBody = 4 << 10

// UploadPresigned PUTs body to a presigned URL. The Content-Type must match
// the one the URL was signed with. Any non-2xx answer is an error carrying
// the status and the first few KiB of the response body.
func UploadPresigned(ctx context.Context, client *http.Client, url, contentType string, body []byte) error {
	if client == nil {
		client = http.DefaultClient
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(body))

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("upload failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
