package geometry

import (
	"math"

	"github.com/wojo-o/inker-sub000/design"
)

// Point 是一个二维坐标。拖拽/缩放手势里表示屏幕坐标，
// 旋转手势里表示画布坐标（两者的差异见各手势说明）。
type Point struct {
	X, Y float64
}

// Gesture 是三种指针手势的公共接口。手势在开始时捕获初始状态，
// 在每次指针移动时更新组件，End 无条件释放（即使指针已离开画布）。
// 同一组件上三种手势互斥，由会话层保证。
type Gesture interface {
	End()
}

// --- 拖拽 ---

// Drag 记录一次拖拽手势：组件初始位置 + 指针初始位置。
// 每次移动按 屏幕增量/视图缩放 换算为画布增量，不做画布边界钳制。
type Drag struct {
	widget  *design.ScreenWidget
	startX  float64
	startY  float64
	pointer Point
	scale   float64
	snap    *Snapper
}

// BeginDrag 开始拖拽。scale 是当前视图缩放系数；snap 可以为 nil（不吸附）。
func BeginDrag(w *design.ScreenWidget, pointer Point, scale float64, snap *Snapper) *Drag {
	if scale <= 0 {
		scale = 1
	}
	return &Drag{
		widget:  w,
		startX:  w.X,
		startY:  w.Y,
		pointer: pointer,
		scale:   scale,
		snap:    snap,
	}
}

// Move 根据当前指针位置更新组件坐标，返回吸附结果（用于画参考线）。
func (d *Drag) Move(pointer Point) SnapResult {
	rawX := d.startX + (pointer.X-d.pointer.X)/d.scale
	rawY := d.startY + (pointer.Y-d.pointer.Y)/d.scale

	res := SnapResult{X: rawX, Y: rawY}
	if d.snap != nil {
		res = d.snap.Resolve(rawX, rawY, d.widget.Width, d.widget.Height)
	}
	d.widget.X = res.X
	d.widget.Y = res.Y
	return res
}

// End 结束手势。拖拽没有需要清理的状态，方法保留以满足统一的生命周期。
func (d *Drag) End() {}

// --- 缩放 ---

// Handle 标识八个缩放把手：四角加四边中点。
type Handle int

const (
	HandleN Handle = iota
	HandleNE
	HandleE
	HandleSE
	HandleS
	HandleSW
	HandleW
	HandleNW
)

// Resize 记录一次缩放手势的初始外框与指针位置。
// 每个把手对应固定的增量规则（如西北角把手缩小宽高并同步推进 x/y，
// 保持对角固定）；宽高最小值逐轴独立生效；缩放过程不做吸附。
type Resize struct {
	widget  *design.ScreenWidget
	handle  Handle
	startX  float64
	startY  float64
	startW  float64
	startH  float64
	pointer Point
	scale   float64
}

// BeginResize 开始缩放手势。
func BeginResize(w *design.ScreenWidget, handle Handle, pointer Point, scale float64) *Resize {
	if scale <= 0 {
		scale = 1
	}
	return &Resize{
		widget:  w,
		handle:  handle,
		startX:  w.X,
		startY:  w.Y,
		startW:  w.Width,
		startH:  w.Height,
		pointer: pointer,
		scale:   scale,
	}
}

// Move 根据当前指针位置应用把手规则。
func (r *Resize) Move(pointer Point) {
	dx := (pointer.X - r.pointer.X) / r.scale
	dy := (pointer.Y - r.pointer.Y) / r.scale

	w := r.widget
	switch r.handle {
	case HandleE:
		w.Width = growEast(r.startW, dx)
	case HandleW:
		w.Width, w.X = growWest(r.startW, r.startX, dx)
	case HandleS:
		w.Height = growEast(r.startH, dy)
	case HandleN:
		w.Height, w.Y = growWest(r.startH, r.startY, dy)
	case HandleNE:
		w.Width = growEast(r.startW, dx)
		w.Height, w.Y = growWest(r.startH, r.startY, dy)
	case HandleSE:
		w.Width = growEast(r.startW, dx)
		w.Height = growEast(r.startH, dy)
	case HandleSW:
		w.Width, w.X = growWest(r.startW, r.startX, dx)
		w.Height = growEast(r.startH, dy)
	case HandleNW:
		w.Width, w.X = growWest(r.startW, r.startX, dx)
		w.Height, w.Y = growWest(r.startH, r.startY, dy)
	}
}

// End 结束手势。
func (r *Resize) End() {}

// growEast 处理远离原点一侧的把手：增量直接作用于尺寸。
func growEast(start, delta float64) float64 {
	size := start + delta
	if size < design.MinWidgetSize {
		size = design.MinWidgetSize
	}
	return size
}

// growWest 处理靠近原点一侧的把手：尺寸缩小多少，坐标就推进多少，
// 使对侧边保持固定；最小尺寸生效时坐标同样停住。
func growWest(startSize, startPos, delta float64) (float64, float64) {
	size := startSize - delta
	if size < design.MinWidgetSize {
		size = design.MinWidgetSize
	}
	return size, startPos + (startSize - size)
}

// --- 旋转 ---

// Rotate 记录一次旋转手势。与拖拽/缩放不同，旋转使用画布坐标系下的
// 指针绝对位置：初始角度 = 组件中心到指针的 atan2，之后
// 新角度 = 初始角度 + 当前夹角差，可选 15° 步进，最终规范化到 [0,360)。
type Rotate struct {
	widget        *design.ScreenWidget
	centerX       float64
	centerY       float64
	startAngle    float64 // 度
	startRotation int
}

// BeginRotate 开始旋转手势，pointer 为画布坐标。
func BeginRotate(w *design.ScreenWidget, pointer Point) *Rotate {
	cx, cy := w.Center()
	return &Rotate{
		widget:        w,
		centerX:       cx,
		centerY:       cy,
		startAngle:    angleDeg(cx, cy, pointer),
		startRotation: w.Rotation,
	}
}

// Move 根据当前指针位置更新旋转角。snapStep 为真时取最近的 15° 倍数。
func (r *Rotate) Move(pointer Point, snapStep bool) int {
	delta := angleDeg(r.centerX, r.centerY, pointer) - r.startAngle
	raw := float64(r.startRotation) + delta
	if snapStep {
		raw = math.Round(raw/15) * 15
	}
	deg := design.NormalizeRotation(int(math.Round(raw)))
	r.widget.Rotation = deg
	return deg
}

// End 结束手势。
func (r *Rotate) End() {}

func angleDeg(cx, cy float64, p Point) float64 {
	return math.Atan2(p.Y-cy, p.X-cx) * 180 / math.Pi
}
