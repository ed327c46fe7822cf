// Пакет loaddriver — нагрузочный клиент ingest-gateway.
// client.go — HTTP-клиент протокола устройств.
package loaddriver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// HeaderRequestID — заголовок идентификатора запроса.
const HeaderRequestID = "X-Request-ID"

// Client отправляет отчёты и файлы от имени одного устройства.
// Безопасен для конкурентного использования.
type Client struct {
	baseURL    string
	httpClient *http.Client
	deviceID   string
	password   string
}

// NewClient создаёт клиента. httpClient == nil — http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client, deviceID, password string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		deviceID:   deviceID,
		password:   password,
	}
}

// Response — статус и тело ответа сервера.
type Response struct {
	StatusCode int
	Body       string
}

// Report отправляет отчёт устройства на POST /report.
func (c *Client) Report(ctx context.Context, body []byte) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/report", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

// Upload отправляет содержимое content как multipart-поле "file".
// Тело передаётся потоком через io.Pipe и не буферизуется целиком.
func (c *Client) Upload(ctx context.Context, fileName, fileType string, content io.Reader) (*Response, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", fileName)
		if err == nil {
			_, err = io.Copy(part, content)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Device-ID", c.deviceID)
	req.Header.Set("Password", c.password)
	req.Header.Set("File-Type", fileType)

	resp, err := c.do(req)
	// Разблокирует горутину записи, если сервер ответил, не дочитав тело
	pr.CloseWithError(io.ErrClosedPipe)
	return resp, err
}

// SendFile загружает локальный файл под его базовым именем.
func (c *Client) SendFile(ctx context.Context, path, fileType string) (*Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("открытие файла %s: %w", path, err)
	}
	defer f.Close()

	return c.Upload(ctx, filepath.Base(path), fileType, f)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	req.Header.Set(HeaderRequestID, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("чтение ответа %s: %w", req.URL.Path, err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       string(body),
	}, nil
}
