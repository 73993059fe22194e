package source

import (
	"encoding/json"
	"fmt"
)

// PreviewKind 标识预览载荷的形态。
type PreviewKind int

const (
	PreviewText PreviewKind = iota
	PreviewList
	PreviewGrid
	PreviewStructured
)

// Preview 是自定义组件预览服务返回的载荷。同一个接口会按组件类型
// 返回四种形态之一：纯字符串、字符串列表、网格，或任意结构化对象。
// 形态在反序列化时判定，渲染端按 Kind 分派。
type Preview struct {
	Kind   PreviewKind
	Text   string
	Lines  []string
	Grid   [][]string
	Object map[string]any
}

// UnmarshalJSON 按载荷的 JSON 形态归类：
// 字符串 → PreviewText；字符串数组 → PreviewList；
// 带 grid 键（二维字符串数组）的对象 → PreviewGrid；
// 其余对象 → PreviewStructured。
func (p *Preview) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*p = Preview{Kind: PreviewText, Text: text}
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err == nil {
		*p = Preview{Kind: PreviewList, Lines: lines}
		return nil
	}

	var object map[string]any
	if err := json.Unmarshal(data, &object); err != nil {
		return fmt.Errorf("无法识别的预览载荷: %w", err)
	}

	if raw, ok := object["grid"]; ok {
		if grid, ok := toGrid(raw); ok {
			*p = Preview{Kind: PreviewGrid, Grid: grid, Object: object}
			return nil
		}
	}
	*p = Preview{Kind: PreviewStructured, Object: object}
	return nil
}

// MarshalJSON 按 Kind 还原为服务端的原始形态。
func (p Preview) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PreviewText:
		return json.Marshal(p.Text)
	case PreviewList:
		return json.Marshal(p.Lines)
	case PreviewGrid, PreviewStructured:
		return json.Marshal(p.Object)
	default:
		return nil, fmt.Errorf("未知的预览形态 %d", p.Kind)
	}
}

// Value 把预览转换为渲染端可直接消费的值。
func (p *Preview) Value() any {
	switch p.Kind {
	case PreviewText:
		return p.Text
	case PreviewList:
		out := make([]any, len(p.Lines))
		for i, s := range p.Lines {
			out[i] = s
		}
		return out
	case PreviewGrid:
		cells := map[string]any{}
		for r, row := range p.Grid {
			for c, cell := range row {
				cells[fmt.Sprintf("%d,%d", r, c)] = cell
			}
		}
		return cells
	default:
		return p.Object
	}
}

func toGrid(raw any) ([][]string, bool) {
	rows, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	grid := make([][]string, 0, len(rows))
	for _, r := range rows {
		cols, ok := r.([]any)
		if !ok {
			return nil, false
		}
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			s, ok := c.(string)
			if !ok {
				return nil, false
			}
			row = append(row, s)
		}
		grid = append(grid, row)
	}
	return grid, true
}
