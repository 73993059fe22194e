package design

import (
	"encoding/json"
	"fmt"
	"sort"
)

// 该文件定义屏幕设计的数据模型，供几何引擎、数据绑定与渲染器共用。

const (
	// MinWidgetSize 组件宽高的最小值（设计空间像素）。
	MinWidgetSize = 10

	// CustomTemplateOffset 以上的模板 ID 表示由外部数据源驱动的自定义组件。
	CustomTemplateOffset = 1000
)

// WidgetTemplate 描述组件库中的一个模板条目，由外部目录提供，核心不修改它。
type WidgetTemplate struct {
	ID            int64          `json:"id" yaml:"id"`
	Name          string         `json:"name" yaml:"name"` // 类型判别名，例如 clock/date/text
	Label         string         `json:"label" yaml:"label"`
	Category      string         `json:"category" yaml:"category"`
	DefaultConfig map[string]any `json:"defaultConfig" yaml:"defaultConfig"`
	MinWidth      float64        `json:"minWidth" yaml:"minWidth"`
	MinHeight     float64        `json:"minHeight" yaml:"minHeight"`
}

// ScreenWidget 表示画布上的一个组件实例。
// ID 为负表示本地新建尚未保存，为正表示已持久化，两个区间不会冲突。
// X/Y 不做边界限制，可以为负或超出画布。
type ScreenWidget struct {
	ID         int64          `json:"id"`
	TemplateID int64          `json:"templateId"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Rotation   int            `json:"rotation"` // 角度，规范化到 [0,360)
	Config     map[string]any `json:"config"`
	ZIndex     int            `json:"zIndex"`

	// Template 是加载时挂接的模板引用，保存时会被剥离。
	Template *WidgetTemplate `json:"-"`
}

// FieldMeta 描述一个可解析字段，仅用于编辑器的自动补全。
type FieldMeta struct {
	Path       string `json:"path"`
	Type       string `json:"type"`
	Sample     any    `json:"sample"`
	IsImageURL bool   `json:"isImageUrl"`
	IsLink     bool   `json:"isLink"`
}

// ScreenDesign 是一张屏幕设计：固定尺寸的画布加上一组组件。
// Widgets 的切片顺序即插入顺序，绘制顺序由 ZIndex 决定（相同 ZIndex 后加的在上）。
type ScreenDesign struct {
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Background string          `json:"background"`
	Widgets    []*ScreenWidget `json:"widgets"`

	nextLocal int64
}

// NormalizeRotation 将任意角度规范化到 [0,360)，360 映射为 0。
func NormalizeRotation(deg int) int {
	d := deg % 360
	if d < 0 {
		d += 360
	}
	return d
}

// IsCustomTemplate 判断模板 ID 是否落在自定义组件区间。
func IsCustomTemplate(templateID int64) bool {
	return templateID >= CustomTemplateOffset
}

// NextLocalID 分配一个新的本地组件 ID，严格为负且递减。
func (d *ScreenDesign) NextLocalID() int64 {
	d.nextLocal--
	return d.nextLocal
}

// AddWidget 将组件加入设计并做一次基本约束修正（最小尺寸、角度范围）。
func (d *ScreenDesign) AddWidget(w *ScreenWidget) {
	w.Clamp()
	d.Widgets = append(d.Widgets, w)
}

// RemoveWidget 按 ID 删除组件，返回是否找到。
func (d *ScreenDesign) RemoveWidget(id int64) bool {
	for i, w := range d.Widgets {
		if w.ID == id {
			d.Widgets = append(d.Widgets[:i], d.Widgets[i+1:]...)
			return true
		}
	}
	return false
}

// WidgetByID 按 ID 查找组件，找不到返回 nil。
func (d *ScreenDesign) WidgetByID(id int64) *ScreenWidget {
	for _, w := range d.Widgets {
		if w.ID == id {
			return w
		}
	}
	return nil
}

// MaxZIndex 返回当前最大的 ZIndex；没有组件时返回 0。
func (d *ScreenDesign) MaxZIndex() int {
	max := 0
	for _, w := range d.Widgets {
		if w.ZIndex > max {
			max = w.ZIndex
		}
	}
	return max
}

// SortedWidgets 返回按绘制顺序排列的组件副本切片：
// ZIndex 升序，相同 ZIndex 保持插入顺序（后加的画在上面）。
func (d *ScreenDesign) SortedWidgets() []*ScreenWidget {
	out := make([]*ScreenWidget, len(d.Widgets))
	copy(out, d.Widgets)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// Clamp 就地修正组件的尺寸与角度不变式。
func (w *ScreenWidget) Clamp() {
	if w.Width < MinWidgetSize {
		w.Width = MinWidgetSize
	}
	if w.Height < MinWidgetSize {
		w.Height = MinWidgetSize
	}
	w.Rotation = NormalizeRotation(w.Rotation)
}

// Center 返回组件的中心点坐标。
func (w *ScreenWidget) Center() (float64, float64) {
	return w.X + w.Width/2, w.Y + w.Height/2
}

// Kind 返回组件的类型判别名。自定义区间的模板返回 "custom"；
// 没有挂接模板时返回空字符串，渲染器会据此降级为占位符。
func (w *ScreenWidget) Kind() string {
	if IsCustomTemplate(w.TemplateID) {
		return "custom"
	}
	if w.Template == nil {
		return ""
	}
	return w.Template.Name
}

// savedWidget 是保存回持久化层时的组件形状：剥离模板引用与本地字段，
// 只保留 templateId,x,y,width,height,rotation,config,zIndex。
type savedWidget struct {
	TemplateID int64          `json:"templateId"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Rotation   int            `json:"rotation"`
	Config     map[string]any `json:"config"`
	ZIndex     int            `json:"zIndex"`
}

type savedDesign struct {
	Width      int           `json:"width"`
	Height     int           `json:"height"`
	Background string        `json:"background"`
	Widgets    []savedWidget `json:"widgets"`
}

// SaveDocument 将设计序列化为持久化层约定的 JSON 文档。
func SaveDocument(d *ScreenDesign) ([]byte, error) {
	doc := savedDesign{
		Width:      d.Width,
		Height:     d.Height,
		Background: d.Background,
		Widgets:    make([]savedWidget, 0, len(d.Widgets)),
	}
	for _, w := range d.Widgets {
		doc.Widgets = append(doc.Widgets, savedWidget{
			TemplateID: w.TemplateID,
			X:          w.X,
			Y:          w.Y,
			Width:      w.Width,
			Height:     w.Height,
			Rotation:   w.Rotation,
			Config:     w.Config,
			ZIndex:     w.ZIndex,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Load 解析会话开始时加载的设计 JSON 文档。
func Load(data []byte) (*ScreenDesign, error) {
	var d ScreenDesign
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("解析设计 JSON 失败: %w", err)
	}
	if d.Width <= 0 || d.Height <= 0 {
		return nil, fmt.Errorf("设计画布尺寸非法: %dx%d", d.Width, d.Height)
	}
	for _, w := range d.Widgets {
		w.Clamp()
		if w.Config == nil {
			w.Config = map[string]any{}
		}
	}
	return &d, nil
}

// AttachTemplates 按 templateId 为每个组件挂接模板引用。
// 自定义区间与未知模板保持 nil，由渲染器降级处理。
func AttachTemplates(d *ScreenDesign, templates []WidgetTemplate) {
	byID := make(map[int64]*WidgetTemplate, len(templates))
	for i := range templates {
		byID[templates[i].ID] = &templates[i]
	}
	for _, w := range d.Widgets {
		if IsCustomTemplate(w.TemplateID) {
			continue
		}
		w.Template = byID[w.TemplateID]
	}
}
