package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/ppiankov/vesselcost/internal/model"
	"github.com/ppiankov/vesselcost/internal/util"
)

// WebhookSink posts the spreadsheet to an email automation webhook as a
// multipart form with fields "email" and "file"
type WebhookSink struct {
	url       string
	recipient string
	client    *http.Client
}

// NewWebhookSink creates a webhook sink from delivery settings
func NewWebhookSink(cfg model.DeliveryConfig, httpProxy, httpsProxy, noProxy string) *WebhookSink {
	client := util.NewHTTPClient(httpProxy, httpsProxy, noProxy)
	client.Timeout = cfg.Timeout
	if client.Timeout <= 0 {
		client.Timeout = 30 * time.Second
	}
	return &WebhookSink{
		url:       cfg.WebhookURL,
		recipient: cfg.Recipient,
		client:    client,
	}
}

func (s *WebhookSink) Name() string { return "webhook" }

// Deliver uploads the rendered workbook
func (s *WebhookSink) Deliver(ctx context.Context, rep *model.Report) (string, error) {
	if s.url == "" {
		return "", &DeliveryError{Sink: s.Name(), Err: errors.New("no webhook URL configured")}
	}
	if s.recipient == "" {
		return "", &DeliveryError{Sink: s.Name(), Err: errors.New("no recipient email configured")}
	}

	workbook, err := RenderBytes(rep)
	if err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("email", s.recipient); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, FileName(rep)))
	header.Set("Content-Type", xlsxContentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}
	if _, err := part.Write(workbook); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, &body)
	if err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &DeliveryError{Sink: s.Name(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &DeliveryError{Sink: s.Name(), Err: fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)}
	}

	return s.recipient, nil
}
