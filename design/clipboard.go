package design

// Clipboard 保存复制的组件深拷贝，支持跨次粘贴。
type Clipboard struct {
	items []ScreenWidget
}

// pasteOffset 粘贴时相对原位置的偏移（设计空间像素）。
const pasteOffset = 10

// Copy 以深拷贝方式记录一组组件。
func (c *Clipboard) Copy(ws ...*ScreenWidget) {
	c.items = c.items[:0]
	for _, w := range ws {
		if w == nil {
			continue
		}
		c.items = append(c.items, *cloneWidget(w))
	}
}

// Len 返回剪贴板中的组件数量。
func (c *Clipboard) Len() int { return len(c.items) }

// Paste 将剪贴板内容粘贴到设计中：分配新的本地 ID、
// 偏移 10px、ZIndex 置于当前最高层之上。返回新建的组件。
func (c *Clipboard) Paste(d *ScreenDesign) []*ScreenWidget {
	out := make([]*ScreenWidget, 0, len(c.items))
	z := d.MaxZIndex()
	for _, item := range c.items {
		w := cloneWidget(&item)
		w.ID = d.NextLocalID()
		w.X += pasteOffset
		w.Y += pasteOffset
		z++
		w.ZIndex = z
		d.AddWidget(w)
		out = append(out, w)
	}
	return out
}

// Duplicate 复制单个组件并立即粘贴，等价于 Copy+Paste，但不影响剪贴板。
func Duplicate(d *ScreenDesign, w *ScreenWidget) *ScreenWidget {
	dup := cloneWidget(w)
	dup.ID = d.NextLocalID()
	dup.X += pasteOffset
	dup.Y += pasteOffset
	dup.ZIndex = d.MaxZIndex() + 1
	d.AddWidget(dup)
	return dup
}

func cloneWidget(w *ScreenWidget) *ScreenWidget {
	cp := *w
	cp.Config = cloneConfig(w.Config)
	return &cp
}

func cloneConfig(cfg map[string]any) map[string]any {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneConfig(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
