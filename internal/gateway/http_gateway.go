package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPGateway 对接 Evolution 风格的 REST 消息接口
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Send 发送文本消息，非2xx响应视为失败
func (g *HTTPGateway) Send(ctx context.Context, phone, instanceID, text string) error {
	if instanceID == "" {
		return fmt.Errorf("租户未配置消息实例")
	}

	body, err := json.Marshal(sendTextRequest{Number: phone, Text: text})
	if err != nil {
		return fmt.Errorf("序列化消息失败: %v", err)
	}

	endpoint := fmt.Sprintf("%s/message/sendText/%s", g.baseURL, url.PathEscape(instanceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("apikey", g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("请求消息网关失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("消息网关返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
