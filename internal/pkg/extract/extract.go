// Package extract 提供文档内容提取能力。
// 纯文本与 Markdown 在本地直接读取，表格类型按行解析为记录，
// 其余类型通过外部提取服务处理。
package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kart-io/docseek/pkg/utils/httpclient"
	"github.com/kart-io/docseek/pkg/utils/json"
)

// Result 表示一次提取的结果。
// 普通文档填充 Text，表格文档填充 Rows（每行一条序列化记录）。
type Result struct {
	Text string
	Rows []string
}

// IsImage 判断媒体类型是否为图片。
func IsImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

// IsTabular 判断媒体类型是否为表格数据。
func IsTabular(mediaType string) bool {
	switch normalizeMediaType(mediaType) {
	case "text/csv", "text/tab-separated-values":
		return true
	}
	return false
}

func normalizeMediaType(mediaType string) string {
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// Extractor 文档内容提取器。
type Extractor struct {
	serviceURL string
	client     *httpclient.Client
}

// New 创建提取器。serviceURL 为空时仅支持本地可解析的类型。
func New(serviceURL string, timeout time.Duration, maxRetries int) *Extractor {
	return &Extractor{
		serviceURL: serviceURL,
		client:     httpclient.NewClient(timeout, maxRetries),
	}
}

// Extract 提取文件内容。
func (e *Extractor) Extract(ctx context.Context, path string, mediaType string) (*Result, error) {
	mt := normalizeMediaType(mediaType)
	if mt == "" {
		mt = guessMediaType(path)
	}

	switch {
	case IsTabular(mt):
		rows, err := extractRows(path, mt)
		if err != nil {
			return nil, err
		}
		return &Result{Rows: rows}, nil

	case isNativeText(mt, path):
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return &Result{Text: string(data)}, nil

	default:
		return e.extractRemote(ctx, path, mt)
	}
}

// isNativeText 判断类型是否可直接按文本读取。
func isNativeText(mediaType, path string) bool {
	switch mediaType {
	case "text/plain", "text/markdown":
		return true
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		return true
	}
	return false
}

func guessMediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".csv":
		return "text/csv"
	case ".tsv":
		return "text/tab-separated-values"
	}
	return ""
}

// extractRows 将 CSV/TSV 文件解析为序列化记录。
// 第一行作为表头，每条记录序列化为 "header: value" 键值对。
func extractRows(path string, mediaType string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	if mediaType == "text/tab-separated-values" {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	var rows []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		rows = append(rows, serializeRow(header, record))
	}
	return rows, nil
}

// serializeRow 将一条记录序列化为键值对文本。
func serializeRow(header, record []string) string {
	var sb strings.Builder
	for i, value := range record {
		key := fmt.Sprintf("column_%d", i+1)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			key = strings.TrimSpace(header[i])
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(key)
		sb.WriteString(": ")
		sb.WriteString(strings.TrimSpace(value))
	}
	return sb.String()
}

// extractResponse 外部提取服务的响应体。
type extractResponse struct {
	Text string `json:"text"`
}

// extractRemote 将文件发送到外部提取服务。
func (e *Extractor) extractRemote(ctx context.Context, path string, mediaType string) (*Result, error) {
	if e.serviceURL == "" {
		return nil, fmt.Errorf("unsupported media type %q and no extractor service configured", mediaType)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serviceURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.DoRequest(req)
	if err != nil {
		return nil, fmt.Errorf("extractor service request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("extractor service returned status %d: %s", resp.StatusCode, string(data))
	}

	var extracted extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&extracted); err != nil {
		return nil, fmt.Errorf("failed to decode extractor response: %w", err)
	}

	return &Result{Text: extracted.Text}, nil
}
