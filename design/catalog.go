package design

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

var (
	catalogOnce sync.Once
	catalogTpls []WidgetTemplate
	catalogErr  error
)

// BuiltinCatalog 返回内置的组件模板目录。
// 当外部模板目录接口不可用时作为回退使用，至少覆盖
// clock/date/weather/text/qrcode/battery 这些基础类型。
func BuiltinCatalog() ([]WidgetTemplate, error) {
	catalogOnce.Do(func() {
		var doc struct {
			Templates []WidgetTemplate `yaml:"templates"`
		}
		if err := yaml.Unmarshal(catalogYAML, &doc); err != nil {
			catalogErr = fmt.Errorf("解析内置模板目录失败: %w", err)
			return
		}
		catalogTpls = doc.Templates
	})
	return catalogTpls, catalogErr
}
