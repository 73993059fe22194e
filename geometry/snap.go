package geometry

import "math"

// SnapThreshold 吸附判定的默认距离（设计空间像素）。
const SnapThreshold = 8.0

// GuideSource 区分参考线的来源，画布参考线与同级组件参考线
// 在界面上使用不同样式绘制。
type GuideSource int

const (
	GuideCanvas GuideSource = iota
	GuideSibling
)

// Guide 是一次成功吸附命中的参考线：坐标值与来源。
type Guide struct {
	Value  float64
	Source GuideSource
}

// SiblingRect 描述吸附时参与计算的同级组件外框。
type SiblingRect struct {
	X, Y, W, H float64
}

// SnapResult 是一次吸附求解的输出。X/Y 为最终坐标；
// 命中参考线时对应的 GuideX/GuideY 非空。
type SnapResult struct {
	X, Y               float64
	SnappedX, SnappedY bool
	GuideX, GuideY     *Guide
}

// Snapper 对拖拽中的组件做逐轴吸附求解。
// 求解顺序是刻意保留的简化实现而非最近参考线搜索：
// 每个轴上依次取移动组件的 左/中/右（上/中/下）三个参考点，
// 先按列表顺序与画布参考线比较，首个落入阈值的组合即命中，
// 其余画布参考线与全部同级参考线都被跳过；画布侧无命中时
// 再按同样规则比较同级参考线；都未命中则该轴使用原始坐标。
type Snapper struct {
	CanvasWidth  float64
	CanvasHeight float64
	Siblings     []SiblingRect
	Threshold    float64 // <=0 时使用 SnapThreshold
}

func (s *Snapper) threshold() float64 {
	if s.Threshold > 0 {
		return s.Threshold
	}
	return SnapThreshold
}

// Resolve 对候选位置 (x,y) 与外框尺寸 (w,h) 做逐轴吸附。
func (s *Snapper) Resolve(x, y, w, h float64) SnapResult {
	res := SnapResult{X: x, Y: y}

	canvasX := []float64{0, s.CanvasWidth / 3, s.CanvasWidth / 2, 2 * s.CanvasWidth / 3, s.CanvasWidth}
	canvasY := []float64{0, s.CanvasHeight / 3, s.CanvasHeight / 2, 2 * s.CanvasHeight / 3, s.CanvasHeight}

	var siblingX, siblingY []float64
	for _, sib := range s.Siblings {
		siblingX = append(siblingX, sib.X, sib.X+sib.W/2, sib.X+sib.W)
		siblingY = append(siblingY, sib.Y, sib.Y+sib.H/2, sib.Y+sib.H)
	}

	// 参考点与候选坐标的偏移：左/中/右（上/中/下）。
	offsetsX := []float64{0, w / 2, w}
	offsetsY := []float64{0, h / 2, h}

	if snapped, guide := snapAxis(x, offsetsX, canvasX, siblingX, s.threshold()); guide != nil {
		res.X = snapped
		res.SnappedX = true
		res.GuideX = guide
	}
	if snapped, guide := snapAxis(y, offsetsY, canvasY, siblingY, s.threshold()); guide != nil {
		res.Y = snapped
		res.SnappedY = true
		res.GuideY = guide
	}
	return res
}

// snapAxis 在单个轴上执行两级优先的首次命中搜索。
func snapAxis(pos float64, offsets, canvasGuides, siblingGuides []float64, threshold float64) (float64, *Guide) {
	for _, off := range offsets {
		ref := pos + off
		for _, g := range canvasGuides {
			if math.Abs(ref-g) <= threshold {
				return g - off, &Guide{Value: g, Source: GuideCanvas}
			}
		}
	}
	for _, off := range offsets {
		ref := pos + off
		for _, g := range siblingGuides {
			if math.Abs(ref-g) <= threshold {
				return g - off, &Guide{Value: g, Source: GuideSibling}
			}
		}
	}
	return pos, nil
}
