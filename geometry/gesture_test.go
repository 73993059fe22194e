package geometry

import (
	"math"
	"testing"

	"github.com/wojo-o/inker-sub000/design"
)

func testWidget() *design.ScreenWidget {
	return &design.ScreenWidget{ID: 1, X: 50, Y: 50, Width: 100, Height: 100}
}

func TestDragAppliesScaledDelta(t *testing.T) {
	w := testWidget()
	// 视图缩放 2x：屏幕增量 40px 等于画布增量 20px。
	d := BeginDrag(w, Point{X: 100, Y: 100}, 2, nil)
	d.Move(Point{X: 140, Y: 160})
	if w.X != 70 || w.Y != 80 {
		t.Fatalf("拖拽结果 (%g,%g)，期望 (70,80)", w.X, w.Y)
	}
	d.End()
}

func TestDragAllowsOutOfCanvasPositions(t *testing.T) {
	w := testWidget()
	d := BeginDrag(w, Point{X: 0, Y: 0}, 1, nil)
	d.Move(Point{X: -500, Y: -500})
	if w.X != -450 || w.Y != -450 {
		t.Fatalf("拖拽不应钳制边界，实际 (%g,%g)", w.X, w.Y)
	}
}

func TestDragSnapsToCanvasGuide(t *testing.T) {
	w := testWidget()
	s := &Snapper{CanvasWidth: 300, CanvasHeight: 300}
	d := BeginDrag(w, Point{X: 0, Y: 0}, 1, s)
	// 先移到 X=-65：左/中/右参考点 -65/-15/35 距最近参考线均超过阈值；
	// 再移到 X=5：左边缘距 0 线 5px 命中。
	res := d.Move(Point{X: -115, Y: 305})
	if res.SnappedX {
		t.Fatalf("阈值外不应吸附: %+v", res)
	}
	res = d.Move(Point{X: -45, Y: 305})
	if !res.SnappedX || w.X != 0 {
		t.Fatalf("应吸附到画布 0 线，实际 %+v, X=%g", res, w.X)
	}
}

// TestResizeNorthWest 西北把手：100×100 在 (50,50)，向右下拖 20px，
// 期望 width=80,height=80,x=70,y=70（未触发最小尺寸）。
func TestResizeNorthWest(t *testing.T) {
	w := testWidget()
	r := BeginResize(w, HandleNW, Point{X: 0, Y: 0}, 1)
	r.Move(Point{X: 20, Y: 20})
	if w.Width != 80 || w.Height != 80 || w.X != 70 || w.Y != 70 {
		t.Fatalf("西北缩放结果 w=%g h=%g x=%g y=%g，期望 80/80/70/70",
			w.Width, w.Height, w.X, w.Y)
	}
	r.End()
}

func TestResizeSouthEast(t *testing.T) {
	w := testWidget()
	r := BeginResize(w, HandleSE, Point{X: 0, Y: 0}, 1)
	r.Move(Point{X: 30, Y: -10})
	if w.Width != 130 || w.Height != 90 || w.X != 50 || w.Y != 50 {
		t.Fatalf("东南缩放结果 w=%g h=%g x=%g y=%g", w.Width, w.Height, w.X, w.Y)
	}
}

// TestResizeMinimumPerAxis 最小尺寸逐轴独立生效；西侧把手触发下限时
// 坐标同样停在对应位置。
func TestResizeMinimumPerAxis(t *testing.T) {
	w := testWidget()
	r := BeginResize(w, HandleNW, Point{X: 0, Y: 0}, 1)
	r.Move(Point{X: 95, Y: 20})
	if w.Width != design.MinWidgetSize {
		t.Fatalf("宽度应钳制为最小值，实际 %g", w.Width)
	}
	if w.X != 50+100-design.MinWidgetSize {
		t.Fatalf("宽度触底时 X 应停在 %d，实际 %g", 50+100-design.MinWidgetSize, w.X)
	}
	if w.Height != 80 || w.Y != 70 {
		t.Fatalf("高度轴不应受宽度触底影响: h=%g y=%g", w.Height, w.Y)
	}
}

func TestResizeEdgeHandles(t *testing.T) {
	w := testWidget()
	r := BeginResize(w, HandleE, Point{X: 0, Y: 0}, 1)
	r.Move(Point{X: 25, Y: 999})
	if w.Width != 125 || w.Height != 100 {
		t.Fatalf("东边把手只影响宽度: w=%g h=%g", w.Width, w.Height)
	}

	w2 := testWidget()
	r2 := BeginResize(w2, HandleN, Point{X: 0, Y: 0}, 1)
	r2.Move(Point{X: 999, Y: -30})
	if w2.Height != 130 || w2.Y != 20 || w2.Width != 100 {
		t.Fatalf("北边把手只影响高度与 Y: h=%g y=%g w=%g", w2.Height, w2.Y, w2.Width)
	}
}

func TestRotateFollowsPointer(t *testing.T) {
	w := testWidget() // 中心 (100,100)
	// 把手初始在中心正下方。
	r := BeginRotate(w, Point{X: 100, Y: 160})
	// 指针转到中心正左方：夹角差 +90°。
	got := r.Move(Point{X: 40, Y: 100}, false)
	if got != 90 {
		t.Fatalf("旋转角应为 90，实际 %d", got)
	}
	if w.Rotation != 90 {
		t.Fatalf("组件角度应更新，实际 %d", w.Rotation)
	}
}

func TestRotateStepSnapping(t *testing.T) {
	w := testWidget()
	r := BeginRotate(w, Point{X: 100, Y: 160})
	// 约 37° 的夹角差在步进模式下取整到 15° 倍数。
	rad := 127.0 * math.Pi / 180
	got := r.Move(Point{X: 100 + 160*math.Cos(rad), Y: 100 + 160*math.Sin(rad)}, true)
	if got%15 != 0 {
		t.Fatalf("步进模式应取 15° 倍数，实际 %d", got)
	}
}

// TestRotateNormalization 370° 输入规范化为 10°，360° 规范化为 0°。
func TestRotateNormalization(t *testing.T) {
	if got := design.NormalizeRotation(370); got != 10 {
		t.Fatalf("370° 应为 10°，实际 %d", got)
	}
	if got := design.NormalizeRotation(360); got != 0 {
		t.Fatalf("360° 应为 0°，实际 %d", got)
	}

	w := testWidget()
	w.Rotation = 350
	r := BeginRotate(w, Point{X: 100, Y: 160})
	// 在 350° 基础上再顺时针 20°：350+20=370 → 10。
	// 初始把手在正下方(90°)，顺时针 20° 即 110°。
	rad := 110.0 * math.Pi / 180
	got := r.Move(Point{X: 100 + 160*math.Cos(rad), Y: 100 + 160*math.Sin(rad)}, false)
	if got != 10 {
		t.Fatalf("350°+20° 应规范化为 10°，实际 %d", got)
	}
}
