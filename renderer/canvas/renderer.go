package canvasrenderer

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/spf13/cast"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
	xdraw "golang.org/x/image/draw"

	"github.com/wojo-o/inker-sub000/design"
	"github.com/wojo-o/inker-sub000/renderer"
)

// 画布内部以 mm 为单位，这里约定 1 设计像素 = 1mm，
// 栅格化时用 DPMM(1) 还原像素尺寸。字号换算经由 mmToPt。
const mmToPt = 72.0 / 25.4

const (
	defaultFontSize = 16.0
	placeholderText = "?"
)

// Renderer 基于 github.com/tdewolff/canvas 绘制设计稿中的每个组件。
type Renderer struct {
	opts Options

	fontMu       sync.Mutex
	fontFamilies map[string]*canvas.FontFamily
}

var _ renderer.Renderer = (*Renderer)(nil)

// ImageLoader 按 URL 或路径获取图片。返回错误时组件降级为占位框。
type ImageLoader func(src string) (image.Image, error)

// Options 配置画布渲染器。
type Options struct {
	// Now 注入当前时间，便于时钟/倒计时类组件在测试中固定时刻。
	// 为 nil 时使用 time.Now。
	Now func() time.Time
	// Images 解析图片组件的来源；为 nil 时图片组件渲染占位框。
	Images ImageLoader
}

// NewRenderer 创建画布渲染器。
func NewRenderer(opts Options) *Renderer {
	return &Renderer{
		opts:         opts,
		fontFamilies: map[string]*canvas.FontFamily{},
	}
}

func (r *Renderer) now() time.Time {
	if r.opts.Now != nil {
		return r.opts.Now()
	}
	return time.Now()
}

// Render 渲染整张设计稿并编码为 PNG。
func (r *Renderer) Render(doc *design.ScreenDesign, values renderer.ValueSet) ([]byte, error) {
	img, err := r.RenderImage(doc, values)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("编码 PNG 失败: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderImage 渲染整张设计稿为位图，供上层与手绘层合成。
func (r *Renderer) RenderImage(doc *design.ScreenDesign, values renderer.ValueSet) (*image.RGBA, error) {
	if doc == nil {
		return nil, fmt.Errorf("设计稿为空")
	}
	if doc.Width <= 0 || doc.Height <= 0 {
		return nil, fmt.Errorf("画布尺寸非法: %dx%d", doc.Width, doc.Height)
	}

	c := canvas.New(float64(doc.Width), float64(doc.Height))
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与设计稿保持左上角为原点

	// 背景
	ctx.SetFillColor(hexColor(doc.Background, canvas.White))
	ctx.SetStrokeColor(canvas.Transparent)
	ctx.DrawPath(0, 0, canvas.Rectangle(float64(doc.Width), float64(doc.Height)))

	// 按 zIndex 升序绘制，后画的在上层。
	for _, w := range doc.SortedWidgets() {
		r.drawWidget(ctx, w, values[w.ID])
	}

	return rasterizer.Draw(c, canvas.DPMM(1.0), canvas.DefaultColorSpace), nil
}

// drawWidget 绘制单个组件。任何变体内部的异常都不允许逃出渲染器，
// 统一降级为组件边框内的占位符。
func (r *Renderer) drawWidget(ctx *canvas.Context, w *design.ScreenWidget, value any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.drawPlaceholder(ctx, w, fmt.Sprintf("%v", rec))
		}
	}()

	ctx.Push()
	defer ctx.Pop()
	if deg := design.NormalizeRotation(w.Rotation); deg != 0 {
		cx, cy := w.Center()
		ctx.ComposeView(canvas.Identity.RotateAbout(float64(deg), cx, cy))
	}

	if bg := cast.ToString(w.Config["background"]); bg != "" {
		ctx.SetFillColor(hexColor(bg, canvas.Transparent))
		ctx.SetStrokeColor(canvas.Transparent)
		ctx.DrawPath(w.X, w.Y, canvas.Rectangle(w.Width, w.Height))
	}

	switch w.Kind() {
	case "text":
		r.drawTextWidget(ctx, w, value)
	case "clock":
		r.drawClock(ctx, w)
	case "date":
		r.drawDate(ctx, w)
	case "countdown":
		r.drawCountdown(ctx, w)
	case "daysuntil":
		r.drawDaysUntil(ctx, w)
	case "weather":
		r.drawWeather(ctx, w, value)
	case "battery":
		r.drawBattery(ctx, w, value)
	case "qrcode":
		r.drawQRCode(ctx, w, value)
	case "image":
		r.drawImageWidget(ctx, w, value)
	case "shape":
		r.drawShape(ctx, w)
	case "grid":
		r.drawGrid(ctx, w, value)
	case "custom":
		// 自定义组件的值由绑定引擎完成插值，这里只负责排版。
		r.drawTextWidget(ctx, w, value)
	default:
		r.drawPlaceholder(ctx, w, placeholderText)
	}
}

// --- 文本类变体 ---

func (r *Renderer) drawTextWidget(ctx *canvas.Context, w *design.ScreenWidget, value any) {
	content := cast.ToString(w.Config["text"])
	if value != nil {
		content = stringify(value)
	}
	r.drawTextBox(ctx, w, content, textStyleFromConfig(w.Config))
}

func (r *Renderer) drawClock(ctx *canvas.Context, w *design.ScreenWidget) {
	loc, err := renderer.ResolveTimezone(cast.ToString(w.Config["timezone"]))
	if err != nil {
		r.drawPlaceholder(ctx, w, placeholderText)
		return
	}
	use24 := true
	if v, ok := w.Config["use24Hour"]; ok {
		use24 = cast.ToBool(v)
	}
	withSeconds := cast.ToBool(w.Config["showSeconds"])
	r.drawTextBox(ctx, w, renderer.FormatClock(r.now().In(loc), use24, withSeconds), textStyleFromConfig(w.Config))
}

func (r *Renderer) drawDate(ctx *canvas.Context, w *design.ScreenWidget) {
	loc, err := renderer.ResolveTimezone(cast.ToString(w.Config["timezone"]))
	if err != nil {
		r.drawPlaceholder(ctx, w, placeholderText)
		return
	}
	parts := renderer.DateParts{Day: true, Month: true, Year: true}
	if v, ok := w.Config["showWeekday"]; ok {
		parts.Weekday = cast.ToBool(v)
	}
	if v, ok := w.Config["showDay"]; ok {
		parts.Day = cast.ToBool(v)
	}
	if v, ok := w.Config["showMonth"]; ok {
		parts.Month = cast.ToBool(v)
	}
	if v, ok := w.Config["showYear"]; ok {
		parts.Year = cast.ToBool(v)
	}
	r.drawTextBox(ctx, w, renderer.FormatDate(r.now().In(loc), parts), textStyleFromConfig(w.Config))
}

func (r *Renderer) drawCountdown(ctx *canvas.Context, w *design.ScreenWidget) {
	target, ok := parseTargetTime(cast.ToString(w.Config["target"]))
	if !ok {
		r.drawPlaceholder(ctx, w, placeholderText)
		return
	}
	r.drawTextBox(ctx, w, renderer.FormatCountdown(target.Sub(r.now())), textStyleFromConfig(w.Config))
}

func (r *Renderer) drawDaysUntil(ctx *canvas.Context, w *design.ScreenWidget) {
	loc, err := renderer.ResolveTimezone(cast.ToString(w.Config["timezone"]))
	if err != nil {
		r.drawPlaceholder(ctx, w, placeholderText)
		return
	}
	target, ok := parseTargetTime(cast.ToString(w.Config["target"]))
	if !ok {
		r.drawPlaceholder(ctx, w, placeholderText)
		return
	}
	days := renderer.DaysUntil(target, r.now(), loc)
	content := renderer.ExpiredLabel
	if days > 0 {
		content = fmt.Sprintf("%d", days)
	}
	label := cast.ToString(w.Config["label"])
	if label != "" && days > 0 {
		content = content + " " + label
	}
	r.drawTextBox(ctx, w, content, textStyleFromConfig(w.Config))
}

func (r *Renderer) drawWeather(ctx *canvas.Context, w *design.ScreenWidget, value any) {
	// 天气组件的值来自绑定引擎解析的数据：温度 + 描述两行。
	data, _ := value.(map[string]any)
	unit := cast.ToString(w.Config["unit"])
	if unit == "" {
		unit = "C"
	}
	temp := "--"
	cond := ""
	if data != nil {
		if v, ok := data["temperature"]; ok {
			temp = stringify(v)
		}
		cond = cast.ToString(data["condition"])
	}
	style := textStyleFromConfig(w.Config)
	lines := []string{fmt.Sprintf("%s°%s", temp, unit)}
	if cond != "" {
		lines = append(lines, cond)
	}
	r.drawTextLines(ctx, w, lines, style)
}

func (r *Renderer) drawBattery(ctx *canvas.Context, w *design.ScreenWidget, value any) {
	level := cast.ToFloat64(value)
	if level < 0 {
		level = 0
	}
	if level > 100 {
		level = 100
	}

	// 电池轮廓 + 正极凸起 + 按比例填充的电量条。
	bodyW := w.Width * 0.85
	bodyH := w.Height * 0.6
	bodyX := w.X
	bodyY := w.Y + (w.Height-bodyH)/2
	capW := w.Width * 0.06
	capH := bodyH * 0.4

	stroke := hexColor(cast.ToString(w.Config["color"]), canvas.Black)
	ctx.SetStrokeColor(stroke)
	ctx.SetStrokeWidth(2)
	ctx.SetFillColor(canvas.Transparent)
	ctx.DrawPath(bodyX, bodyY, canvas.Rectangle(bodyW, bodyH))
	ctx.SetFillColor(stroke)
	ctx.DrawPath(bodyX+bodyW, bodyY+(bodyH-capH)/2, canvas.Rectangle(capW, capH))

	inset := 3.0
	fillW := (bodyW - 2*inset) * level / 100
	if fillW > 0 {
		ctx.DrawPath(bodyX+inset, bodyY+inset, canvas.Rectangle(fillW, bodyH-2*inset))
	}

	if cast.ToBool(w.Config["showPercent"]) {
		style := textStyleFromConfig(w.Config)
		style.align = "center"
		label := fmt.Sprintf("%d%%", int(level))
		r.drawLine(ctx, w, label, bodyY+bodyH+2, style)
	}
}

func (r *Renderer) drawQRCode(ctx *canvas.Context, w *design.ScreenWidget, value any) {
	content := cast.ToString(w.Config["content"])
	if value != nil {
		content = stringify(value)
	}
	if content == "" {
		r.drawPlaceholder(ctx, w, placeholderText)
		return
	}
	side := int(w.Width)
	if int(w.Height) < side {
		side = int(w.Height)
	}
	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		r.drawPlaceholder(ctx, w, placeholderText)
		return
	}
	code.DisableBorder = cast.ToBool(w.Config["disableBorder"])
	img := code.Image(side)
	// 居中放置在组件框内。
	x := w.X + (w.Width-float64(side))/2
	y := w.Y + (w.Height-float64(side))/2
	ctx.DrawImage(x, y, img, canvas.DPMM(1.0))
}

func (r *Renderer) drawImageWidget(ctx *canvas.Context, w *design.ScreenWidget, value any) {
	src := cast.ToString(w.Config["src"])
	if value != nil {
		src = stringify(value)
	}
	if src == "" || r.opts.Images == nil {
		r.drawPlaceholder(ctx, w, placeholderText)
		return
	}
	img, err := r.opts.Images(src)
	if err != nil || img == nil {
		r.drawPlaceholder(ctx, w, placeholderText)
		return
	}
	fit := cast.ToString(w.Config["fit"])
	fitted := fitImage(img, int(w.Width), int(w.Height), fit)
	ctx.DrawImage(w.X, w.Y, fitted, canvas.DPMM(1.0))
}

func (r *Renderer) drawShape(ctx *canvas.Context, w *design.ScreenWidget) {
	fill := hexColor(cast.ToString(w.Config["fill"]), canvas.Transparent)
	stroke := hexColor(cast.ToString(w.Config["stroke"]), canvas.Black)
	strokeWidth := cast.ToFloat64(w.Config["strokeWidth"])
	if strokeWidth <= 0 {
		strokeWidth = 1
	}
	ctx.SetFillColor(fill)
	ctx.SetStrokeColor(stroke)
	ctx.SetStrokeWidth(strokeWidth)

	switch cast.ToString(w.Config["shape"]) {
	case "circle":
		radius := w.Width / 2
		if w.Height/2 < radius {
			radius = w.Height / 2
		}
		cx, cy := w.Center()
		ctx.DrawPath(cx-radius, cy-radius, canvas.Circle(radius))
	case "line":
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(w.Width, w.Height)
		ctx.DrawPath(w.X, w.Y, p)
	default: // rect
		ctx.DrawPath(w.X, w.Y, canvas.Rectangle(w.Width, w.Height))
	}
}

// drawGrid 绘制 R×C 网格。每个单元格的值由绑定引擎解析后放进
// value（map，键为 "row,col"）；空单元格保持空白而不是报错。
func (r *Renderer) drawGrid(ctx *canvas.Context, w *design.ScreenWidget, value any) {
	rows := cast.ToInt(w.Config["rows"])
	cols := cast.ToInt(w.Config["columns"])
	if rows <= 0 {
		rows = 1
	}
	if cols <= 0 {
		cols = 1
	}
	cellValues, _ := value.(map[string]any)
	cellConfigs := gridCellConfigs(w.Config)

	cellW := w.Width / float64(cols)
	cellH := w.Height / float64(rows)

	if cast.ToBool(w.Config["showBorders"]) {
		ctx.SetStrokeColor(canvas.Black)
		ctx.SetStrokeWidth(1)
		ctx.SetFillColor(canvas.Transparent)
		for row := 0; row < rows; row++ {
			for col := 0; col < cols; col++ {
				ctx.DrawPath(w.X+float64(col)*cellW, w.Y+float64(row)*cellH, canvas.Rectangle(cellW, cellH))
			}
		}
	}

	base := textStyleFromConfig(w.Config)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			key := fmt.Sprintf("%d,%d", row, col)
			var content string
			if cellValues != nil {
				if v, ok := cellValues[key]; ok && v != nil {
					content = stringify(v)
				}
			}
			cfg := cellConfigs[key]
			if content == "" && cfg != nil {
				content = cast.ToString(cfg["text"])
			}
			if content == "" {
				continue // 空单元格保持空白
			}
			style := base
			if cfg != nil {
				style = style.override(cfg)
			}
			cell := design.ScreenWidget{
				X:      w.X + float64(col)*cellW,
				Y:      w.Y + float64(row)*cellH,
				Width:  cellW,
				Height: cellH,
			}
			r.drawTextBox(ctx, &cell, content, style)
		}
	}
}

func gridCellConfigs(config map[string]any) map[string]map[string]any {
	out := map[string]map[string]any{}
	raw, ok := config["cells"].(map[string]any)
	if !ok {
		return out
	}
	for key, v := range raw {
		if m, ok := v.(map[string]any); ok {
			out[key] = m
		}
	}
	return out
}

// --- 占位与文本排版 ---

// drawPlaceholder 在组件边框内绘制降级占位符。
func (r *Renderer) drawPlaceholder(ctx *canvas.Context, w *design.ScreenWidget, msg string) {
	ctx.SetFillColor(canvas.Transparent)
	ctx.SetStrokeColor(canvas.Gray)
	ctx.SetStrokeWidth(1)
	ctx.DrawPath(w.X, w.Y, canvas.Rectangle(w.Width, w.Height))

	if msg == "" {
		msg = placeholderText
	}
	style := textStyle{family: "sans-serif", size: defaultFontSize, colorHex: "#808080", align: "center"}
	r.drawTextBox(ctx, w, msg, style)
}

type textStyle struct {
	family   string
	size     float64
	colorHex string
	align    string
}

func textStyleFromConfig(config map[string]any) textStyle {
	s := textStyle{
		family:   cast.ToString(config["fontFamily"]),
		size:     cast.ToFloat64(config["fontSize"]),
		colorHex: cast.ToString(config["color"]),
		align:    cast.ToString(config["align"]),
	}
	if s.size <= 0 {
		s.size = defaultFontSize
	}
	return s
}

// override 应用单元格级别的样式覆盖。
func (s textStyle) override(cfg map[string]any) textStyle {
	if v := cast.ToString(cfg["fontFamily"]); v != "" {
		s.family = v
	}
	if v := cast.ToFloat64(cfg["fontSize"]); v > 0 {
		s.size = v
	}
	if v := cast.ToString(cfg["color"]); v != "" {
		s.colorHex = v
	}
	if v := cast.ToString(cfg["align"]); v != "" {
		s.align = v
	}
	return s
}

// drawTextBox 在组件框内绘制多行文本，按换行符划分，行高恒为字号 × 1.2。
func (r *Renderer) drawTextBox(ctx *canvas.Context, w *design.ScreenWidget, content string, style textStyle) {
	lines := strings.Split(content, "\n")
	r.drawTextLines(ctx, w, lines, style)
}

func (r *Renderer) drawTextLines(ctx *canvas.Context, w *design.ScreenWidget, lines []string, style textStyle) {
	face := r.fontFace(style)
	lineHeight := renderer.LineHeight(style.size)

	// 垂直方向整体居中。
	blockH := lineHeight * float64(len(lines))
	cursorY := w.Y + (w.Height-blockH)/2
	if cursorY < w.Y {
		cursorY = w.Y
	}

	var textAlign canvas.TextAlign
	var anchorX float64
	switch strings.ToLower(style.align) {
	case "center":
		textAlign = canvas.Center
		anchorX = w.X + w.Width/2
	case "right", "end":
		textAlign = canvas.Right
		anchorX = w.X + w.Width
	default:
		textAlign = canvas.Left
		anchorX = w.X
	}

	metrics := face.Metrics()
	for _, line := range lines {
		if line != "" {
			tl := canvas.NewTextLine(face, line, textAlign)
			ctx.DrawText(anchorX, cursorY+metrics.Ascent, tl)
		}
		cursorY += lineHeight
	}
}

func (r *Renderer) drawLine(ctx *canvas.Context, w *design.ScreenWidget, content string, y float64, style textStyle) {
	face := r.fontFace(style)
	tl := canvas.NewTextLine(face, content, canvas.Center)
	ctx.DrawText(w.X+w.Width/2, y+face.Metrics().Ascent, tl)
}

// fontFace 按字体查找序列创建字体面。家族对象带锁缓存，
// 任何名称最终都能落到内置常规体。
func (r *Renderer) fontFace(style textStyle) *canvas.FontFace {
	family := r.ensureFontFamily(style.family)
	col := hexColor(style.colorHex, canvas.Black)
	return family.Face(style.size*mmToPt, col, canvas.FontRegular, canvas.FontNormal)
}

func (r *Renderer) ensureFontFamily(configured string) *canvas.FontFamily {
	stack := renderer.FontStack(configured)

	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	for _, name := range stack {
		if family, ok := r.fontFamilies[name]; ok {
			return family
		}
		family := canvas.NewFontFamily(name)
		if err := family.LoadFont(renderer.FontBytes(name), 0, canvas.FontRegular); err != nil {
			continue
		}
		r.fontFamilies[name] = family
		return family
	}

	// FontBytes 对任意名称都返回常规体数据，理论上到不了这里。
	fallback := canvas.NewFontFamily("fallback")
	_ = fallback.LoadFont(renderer.FontBytes("Go"), 0, canvas.FontRegular)
	return fallback
}

// --- 辅助 ---

// fitImage 按 contain/cover/stretch 规则把源图缩放进目标框。
func fitImage(src image.Image, width, height int, fit string) image.Image {
	if width <= 0 || height <= 0 {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return dst
	}

	switch fit {
	case "stretch":
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Over, nil)
	case "cover":
		// 等比放大直到覆盖目标框，超出部分居中裁掉。
		scale := float64(width) / float64(sb.Dx())
		if s := float64(height) / float64(sb.Dy()); s > scale {
			scale = s
		}
		cropW := int(float64(width) / scale)
		cropH := int(float64(height) / scale)
		sx := sb.Min.X + (sb.Dx()-cropW)/2
		sy := sb.Min.Y + (sb.Dy()-cropH)/2
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, image.Rect(sx, sy, sx+cropW, sy+cropH), xdraw.Over, nil)
	default: // contain
		scale := float64(width) / float64(sb.Dx())
		if s := float64(height) / float64(sb.Dy()); s < scale {
			scale = s
		}
		dw := int(float64(sb.Dx()) * scale)
		dh := int(float64(sb.Dy()) * scale)
		dx := (width - dw) / 2
		dy := (height - dh) / 2
		xdraw.CatmullRom.Scale(dst, image.Rect(dx, dy, dx+dw, dy+dh), src, sb, xdraw.Over, nil)
	}
	return dst
}

// parseTargetTime 解析倒计时目标时刻，支持 RFC3339 与常见日期写法。
func parseTargetTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return cast.ToString(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func hexColor(s string, fallback color.RGBA) color.RGBA {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) != 4 && len(s) != 7 && len(s) != 9 {
		return fallback
	}
	return canvas.Hex(s)
}
