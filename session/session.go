package session

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/spf13/cast"

	"github.com/wojo-o/inker-sub000/binding"
	"github.com/wojo-o/inker-sub000/design"
	"github.com/wojo-o/inker-sub000/geometry"
	"github.com/wojo-o/inker-sub000/overlay"
	"github.com/wojo-o/inker-sub000/renderer"
	"github.com/wojo-o/inker-sub000/schedule"
	"github.com/wojo-o/inker-sub000/script"
	"github.com/wojo-o/inker-sub000/source"
)

// Painter 渲染整张设计稿为位图。
type Painter interface {
	RenderImage(*design.ScreenDesign, renderer.ValueSet) (*image.RGBA, error)
}

// ErrGestureActive 表示已有手势在进行中。三种手势互斥。
var ErrGestureActive = fmt.Errorf("已有手势在进行中")

// Session 是一次设计会话：文档、选中态、手势、数据绑定与手绘层的
// 汇合点。除脚本防抖与异步数据解析外全部单线程，互斥锁只保护
// 异步回包路径上的共享状态。
type Session struct {
	mu sync.Mutex

	doc       *design.ScreenDesign
	catalog   map[int64]*design.WidgetTemplate
	data      source.DataClient
	painter   Painter
	sched     *schedule.Scheduler
	clipboard design.Clipboard
	layer     *overlay.Layer

	// 每个组件一个防抖脚本执行器，编辑中的连续修改合并为一次执行。
	runners map[int64]*script.Runner

	values renderer.ValueSet
	// 每个组件一个请求代数：回包时代数不匹配说明已有更新的请求，丢弃。
	generations map[int64]uint64

	selection int64
	active    geometry.Gesture
	activeID  int64

	// onChange 在组件状态改变后通知上层重绘；可以为 nil。
	onChange func(widgetID int64)
}

// Options 组装一次设计会话。
type Options struct {
	Data     source.DataClient
	Painter  Painter
	OnChange func(widgetID int64)
}

// New 基于文档与模板目录创建会话。模板按 ID 建索引并挂到各组件上。
func New(doc *design.ScreenDesign, templates []design.WidgetTemplate, opts Options) *Session {
	design.AttachTemplates(doc, templates)
	catalog := make(map[int64]*design.WidgetTemplate, len(templates))
	for i := range templates {
		catalog[templates[i].ID] = &templates[i]
	}
	s := &Session{
		doc:         doc,
		catalog:     catalog,
		data:        opts.Data,
		painter:     opts.Painter,
		sched:       schedule.NewScheduler(),
		layer:       overlay.NewLayer(doc.Width, doc.Height),
		runners:     map[int64]*script.Runner{},
		values:      renderer.ValueSet{},
		generations: map[int64]uint64{},
		onChange:    opts.OnChange,
	}
	for _, w := range doc.Widgets {
		s.mountTimers(w)
	}
	return s
}

// Close 释放会话持有的定时器。
func (s *Session) Close() { s.sched.Stop() }

// Document 返回会话文档。
func (s *Session) Document() *design.ScreenDesign { return s.doc }

// Overlay 返回手绘层。
func (s *Session) Overlay() *overlay.Layer { return s.layer }

// Values 返回当前各组件已解析值的快照。
func (s *Session) Values() renderer.ValueSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(renderer.ValueSet, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// --- 选中与增删 ---

// Select 选中一个组件；id 必须存在于文档中。
func (s *Session) Select(id int64) error {
	if s.doc.WidgetByID(id) == nil {
		return fmt.Errorf("组件 %d 不存在", id)
	}
	s.selection = id
	return nil
}

// Selected 返回当前选中的组件，未选中时为 nil。
func (s *Session) Selected() *design.ScreenWidget {
	if s.selection == 0 {
		return nil
	}
	return s.doc.WidgetByID(s.selection)
}

// ClearSelection 取消选中。
func (s *Session) ClearSelection() { s.selection = 0 }

// AddWidget 从模板库拖入一个新组件：负数本地 ID、模板默认配置、
// 置于最顶层，随后挂载所需定时器。
func (s *Session) AddWidget(templateID int64, x, y float64) (*design.ScreenWidget, error) {
	tmpl, ok := s.catalog[templateID]
	if !ok && !design.IsCustomTemplate(templateID) {
		return nil, fmt.Errorf("模板 %d 不存在", templateID)
	}
	w := &design.ScreenWidget{
		ID:         s.doc.NextLocalID(),
		TemplateID: templateID,
		X:          x,
		Y:          y,
		Width:      design.MinWidgetSize * 10,
		Height:     design.MinWidgetSize * 5,
		Config:     map[string]any{},
		ZIndex:     s.doc.MaxZIndex() + 1,
		Template:   tmpl,
	}
	if tmpl != nil {
		if tmpl.MinWidth > w.Width {
			w.Width = tmpl.MinWidth
		}
		if tmpl.MinHeight > w.Height {
			w.Height = tmpl.MinHeight
		}
		for k, v := range tmpl.DefaultConfig {
			w.Config[k] = v
		}
	}
	s.doc.AddWidget(w)
	s.mountTimers(w)
	s.selection = w.ID
	s.notify(w.ID)
	return w, nil
}

// RemoveWidget 删除组件并取消其全部定时器；若删除的是选中项则清空选中。
func (s *Session) RemoveWidget(id int64) bool {
	if !s.doc.RemoveWidget(id) {
		return false
	}
	s.sched.Cancel(id)
	s.mu.Lock()
	delete(s.values, id)
	delete(s.generations, id)
	delete(s.runners, id)
	s.mu.Unlock()
	if s.selection == id {
		s.selection = 0
	}
	s.notify(id)
	return true
}

// Reconfigure 整体替换组件配置，并按新配置重挂定时器。
func (s *Session) Reconfigure(id int64, config map[string]any) error {
	w := s.doc.WidgetByID(id)
	if w == nil {
		return fmt.Errorf("组件 %d 不存在", id)
	}
	w.Config = config
	s.sched.Cancel(id)
	s.mountTimers(w)
	s.notify(id)
	return nil
}

// Copy 把当前选中组件放入剪贴板。
func (s *Session) Copy() bool {
	w := s.Selected()
	if w == nil {
		return false
	}
	s.clipboard.Copy(w)
	return true
}

// Paste 粘贴剪贴板内容并选中粘贴出的最后一个组件。
func (s *Session) Paste() []*design.ScreenWidget {
	pasted := s.clipboard.Paste(s.doc)
	for _, w := range pasted {
		s.mountTimers(w)
		s.selection = w.ID
		s.notify(w.ID)
	}
	return pasted
}

// Duplicate 原地复制当前选中组件，不影响剪贴板内容。
func (s *Session) Duplicate() (*design.ScreenWidget, bool) {
	w := s.Selected()
	if w == nil {
		return nil, false
	}
	dup := design.Duplicate(s.doc, w)
	s.mountTimers(dup)
	s.selection = dup.ID
	s.notify(dup.ID)
	return dup, true
}

// --- 手势 ---

// BeginDrag 开始拖拽。吸附参考线由其余组件的几何信息在手势开始时
// 即时构建，而不是缓存。
func (s *Session) BeginDrag(id int64, pointer geometry.Point, scale float64) (*geometry.Drag, error) {
	w, err := s.acquireGesture(id)
	if err != nil {
		return nil, err
	}
	snap := &geometry.Snapper{
		CanvasWidth:  float64(s.doc.Width),
		CanvasHeight: float64(s.doc.Height),
		Siblings:     s.siblingRects(id),
	}
	g := geometry.BeginDrag(w, pointer, scale, snap)
	s.active = g
	s.activeID = id
	return g, nil
}

// BeginResize 开始缩放手势。
func (s *Session) BeginResize(id int64, handle geometry.Handle, pointer geometry.Point, scale float64) (*geometry.Resize, error) {
	w, err := s.acquireGesture(id)
	if err != nil {
		return nil, err
	}
	g := geometry.BeginResize(w, handle, pointer, scale)
	s.active = g
	s.activeID = id
	return g, nil
}

// BeginRotate 开始旋转手势。
func (s *Session) BeginRotate(id int64, pointer geometry.Point) (*geometry.Rotate, error) {
	w, err := s.acquireGesture(id)
	if err != nil {
		return nil, err
	}
	g := geometry.BeginRotate(w, pointer)
	s.active = g
	s.activeID = id
	return g, nil
}

// EndGesture 无条件结束当前手势：指针已经离开画布也必须释放。
func (s *Session) EndGesture() {
	if s.active == nil {
		return
	}
	id := s.activeID
	s.active.End()
	s.active = nil
	s.activeID = 0
	s.notify(id)
}

func (s *Session) acquireGesture(id int64) (*design.ScreenWidget, error) {
	if s.active != nil {
		return nil, ErrGestureActive
	}
	w := s.doc.WidgetByID(id)
	if w == nil {
		return nil, fmt.Errorf("组件 %d 不存在", id)
	}
	return w, nil
}

func (s *Session) siblingRects(exclude int64) []geometry.SiblingRect {
	var out []geometry.SiblingRect
	for _, w := range s.doc.Widgets {
		if w.ID == exclude {
			continue
		}
		out = append(out, geometry.SiblingRect{X: w.X, Y: w.Y, W: w.Width, H: w.Height})
	}
	return out
}

// --- 数据绑定 ---

// Refresh 解析组件的数据绑定。带请求代数防护：解析返回时若已有
// 更新的请求启动，本次结果直接丢弃。
func (s *Session) Refresh(ctx context.Context, id int64) error {
	w := s.doc.WidgetByID(id)
	if w == nil {
		return fmt.Errorf("组件 %d 不存在", id)
	}

	s.mu.Lock()
	s.generations[id]++
	gen := s.generations[id]
	s.mu.Unlock()

	value, err := s.resolve(ctx, w)

	s.mu.Lock()
	if s.generations[id] != gen {
		s.mu.Unlock()
		return nil // 已被更新的请求取代
	}
	if err == nil {
		s.values[id] = value
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}
	s.notify(id)
	return nil
}

// resolve 执行绑定流水线：数据源 → 字段路径 → 脚本 → 模板插值。
// 每一步都可选；自定义组件改走预览载荷。
func (s *Session) resolve(ctx context.Context, w *design.ScreenWidget) (any, error) {
	if design.IsCustomTemplate(w.TemplateID) && s.data != nil {
		preview, err := s.data.FetchPreview(ctx, w.TemplateID-design.CustomTemplateOffset)
		if err != nil {
			return nil, err
		}
		return preview.Value(), nil
	}

	var root any
	if s.data != nil {
		if sourceID := cast.ToInt64(w.Config["dataSourceId"]); sourceID != 0 {
			fetched, err := s.data.FetchValue(ctx, sourceID)
			if err != nil {
				return nil, err
			}
			root = fetched
		}
	}

	value := root
	if field := cast.ToString(w.Config["field"]); field != "" {
		value = binding.Resolve(root, field)
	}

	var vars map[string]any
	if src := cast.ToString(w.Config["script"]); src != "" {
		mode := script.ModeValue
		if cast.ToString(w.Config["scriptMode"]) == "template" {
			mode = script.ModeTemplate
		}
		result := script.RunSource(src, root, mode)
		if !result.Success {
			return nil, fmt.Errorf("脚本执行失败: %s", result.Error)
		}
		if mode == script.ModeTemplate {
			vars = result.Variables
		} else {
			value = result.Output
		}
	}

	if tmpl := cast.ToString(w.Config["template"]); tmpl != "" {
		if vars == nil {
			vars = map[string]any{}
			if m, ok := root.(map[string]any); ok {
				vars = m
			}
		}
		value = binding.Interpolate(tmpl, vars)
	}
	return value, nil
}

// SubmitScript 走防抖执行器运行编辑中的脚本：防抖窗口内的连续修改
// 合并为一次执行，只有最后一次提交的结果会被应用。
func (s *Session) SubmitScript(id int64, src string, mode script.Mode) {
	s.mu.Lock()
	runner, ok := s.runners[id]
	if !ok {
		runner = script.NewRunner(func(r script.Result) {
			s.applyScriptResult(id, r)
		})
		s.runners[id] = runner
	}
	root := s.values[id]
	s.mu.Unlock()
	runner.Submit(src, root, mode)
}

func (s *Session) applyScriptResult(id int64, r script.Result) {
	if !r.Success {
		return
	}
	s.mu.Lock()
	if r.Variables != nil {
		s.values[id] = r.Variables
	} else {
		s.values[id] = r.Output
	}
	s.mu.Unlock()
	s.notify(id)
}

// --- 定时器 ---

// mountTimers 按组件类型挂载周期任务。时钟与倒计时每秒刷新，
// 日期组件在生效时区的午夜翻转。
func (s *Session) mountTimers(w *design.ScreenWidget) {
	if w == nil {
		return
	}
	id := w.ID
	switch w.Kind() {
	case "clock", "countdown", "daysuntil":
		_ = s.sched.EverySecond(id, func() { s.notify(id) })
	case "date":
		tz := cast.ToString(w.Config["timezone"])
		if tz == "local" {
			tz = ""
		}
		if err := s.sched.AtMidnight(id, tz, func() { s.notify(id) }); err != nil {
			// 时区名非法时退回本地午夜。
			_ = s.sched.AtMidnight(id, "", func() { s.notify(id) })
		}
	}
}

// ActiveTimers 返回组件当前挂载的定时任务数，用于泄漏排查。
func (s *Session) ActiveTimers(id int64) int { return s.sched.Active(id) }

func (s *Session) notify(widgetID int64) {
	if s.onChange != nil {
		s.onChange(widgetID)
	}
}

// --- 捕获 ---

// Capture 渲染组件层，再把手绘层合成到其上，产出交给外部
// 墨水屏流程的成品位图。
func (s *Session) Capture() (*image.RGBA, error) {
	if s.painter == nil {
		return nil, fmt.Errorf("会话未配置渲染器")
	}
	base, err := s.painter.RenderImage(s.doc, s.Values())
	if err != nil {
		return nil, err
	}
	return overlay.Composite(base, s.layer), nil
}
