package renderer

import "github.com/wojo-o/inker-sub000/design"

// ValueSet 按组件 ID 保存绑定引擎解析后的值，渲染时按需取用。
// 缺失条目表示该组件没有绑定数据，各变体自行决定占位行为。
type ValueSet map[int64]any

// Renderer 将设计稿输出为最终图像，例如 PNG 字节切片。
// Render 返回生成的二进制数据以及可能的错误。
type Renderer interface {
	Render(doc *design.ScreenDesign, values ValueSet) ([]byte, error)
}
