package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wojo-o/inker-sub000/design"
)

// 本包封装设计器依赖的两个外部服务：模板目录与数据源。
// 目录不可用时回退到内置目录，数据源错误由会话层降级处理。

// CatalogClient 提供有序的组件模板目录。
type CatalogClient interface {
	Load(ctx context.Context) ([]design.WidgetTemplate, error)
}

// DataClient 按数据源 ID 提供原始数据、字段元信息与自定义组件预览。
type DataClient interface {
	FetchValue(ctx context.Context, id int64) (any, error)
	FetchFields(ctx context.Context, id int64) ([]design.FieldMeta, error)
	FetchPreview(ctx context.Context, id int64) (*Preview, error)
}

// LoadTemplates 加载模板目录；远端出错时回退到内置目录，
// 保证设计会话总能拿到可用模板。
func LoadTemplates(ctx context.Context, client CatalogClient) ([]design.WidgetTemplate, error) {
	if client != nil {
		if templates, err := client.Load(ctx); err == nil && len(templates) > 0 {
			return templates, nil
		}
	}
	return design.BuiltinCatalog()
}

// --- HTTP 实现 ---

// HTTPClient 同时实现 CatalogClient 与 DataClient。
type HTTPClient struct {
	base string
	http *http.Client
}

var (
	_ CatalogClient = (*HTTPClient)(nil)
	_ DataClient    = (*HTTPClient)(nil)
)

// NewHTTPClient 创建指向 base 地址的客户端。httpClient 为 nil 时
// 使用 10s 超时的默认客户端。
func NewHTTPClient(base string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{base: base, http: httpClient}
}

// Load 拉取模板目录，保持服务端给出的顺序。
func (c *HTTPClient) Load(ctx context.Context) ([]design.WidgetTemplate, error) {
	var templates []design.WidgetTemplate
	if err := c.getJSON(ctx, c.base+"/widget-templates", &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

// FetchValue 拉取数据源的原始 JSON 根对象。
func (c *HTTPClient) FetchValue(ctx context.Context, id int64) (any, error) {
	var value any
	if err := c.getJSON(ctx, fmt.Sprintf("%s/data-sources/%d/value", c.base, id), &value); err != nil {
		return nil, err
	}
	return value, nil
}

// FetchFields 拉取数据源的字段元信息，供绑定面板自动补全。
func (c *HTTPClient) FetchFields(ctx context.Context, id int64) ([]design.FieldMeta, error) {
	var fields []design.FieldMeta
	if err := c.getJSON(ctx, fmt.Sprintf("%s/data-sources/%d/fields", c.base, id), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// FetchPreview 拉取自定义组件的预览载荷。
func (c *HTTPClient) FetchPreview(ctx context.Context, id int64) (*Preview, error) {
	var preview Preview
	if err := c.getJSON(ctx, fmt.Sprintf("%s/widgets/%d/preview", c.base, id), &preview); err != nil {
		return nil, err
	}
	return &preview, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("构造请求 %s 失败: %w", url, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("请求 %s 失败: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("请求 %s 返回 %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取 %s 响应失败: %w", url, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("解析 %s 响应失败: %w", url, err)
	}
	return nil
}

// --- 静态实现 ---

// StaticClient 用内存数据充当数据源，供离线预览与测试使用。
type StaticClient struct {
	Templates []design.WidgetTemplate
	Values    map[int64]any
	Fields    map[int64][]design.FieldMeta
	Previews  map[int64]*Preview
}

var (
	_ CatalogClient = (*StaticClient)(nil)
	_ DataClient    = (*StaticClient)(nil)
)

func (s *StaticClient) Load(ctx context.Context) ([]design.WidgetTemplate, error) {
	if len(s.Templates) == 0 {
		return nil, fmt.Errorf("没有配置模板")
	}
	return s.Templates, nil
}

func (s *StaticClient) FetchValue(ctx context.Context, id int64) (any, error) {
	v, ok := s.Values[id]
	if !ok {
		return nil, fmt.Errorf("数据源 %d 不存在", id)
	}
	return v, nil
}

func (s *StaticClient) FetchFields(ctx context.Context, id int64) ([]design.FieldMeta, error) {
	return s.Fields[id], nil
}

func (s *StaticClient) FetchPreview(ctx context.Context, id int64) (*Preview, error) {
	p, ok := s.Previews[id]
	if !ok {
		return nil, fmt.Errorf("组件 %d 没有预览", id)
	}
	return p, nil
}
