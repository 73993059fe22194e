package geometry

import "testing"

// TestSnapWithinThreshold 参考点落入阈值时坐标精确等于参考线值，
// 阈值之外保留原始坐标。
func TestSnapWithinThreshold(t *testing.T) {
	s := &Snapper{CanvasWidth: 300, CanvasHeight: 300}

	// 左边缘距画布 0 线 5px（阈值内）。
	res := s.Resolve(5, 150.5, 40, 40)
	if !res.SnappedX || res.X != 0 {
		t.Fatalf("X 应吸附到 0，实际 %+v", res)
	}
	if res.GuideX == nil || res.GuideX.Value != 0 || res.GuideX.Source != GuideCanvas {
		t.Fatalf("应报告画布参考线 0，实际 %+v", res.GuideX)
	}

	// 距任何参考线都超过阈值：保留原始值。
	res = s.Resolve(60, 60, 7, 7)
	if res.SnappedX || res.SnappedY || res.X != 60 || res.Y != 60 {
		t.Fatalf("阈值外不应吸附，实际 %+v", res)
	}
}

func TestSnapExactlyAtThreshold(t *testing.T) {
	s := &Snapper{CanvasWidth: 300, CanvasHeight: 300}
	// 左边缘恰好距 0 线 8px，阈值为含端点判定。
	res := s.Resolve(8, 60, 7, 7)
	if !res.SnappedX || res.X != 0 {
		t.Fatalf("恰好等于阈值应吸附，实际 %+v", res)
	}
}

// TestCanvasGuideBeatsSibling 同时落入画布与同级参考线阈值时画布胜出。
func TestCanvasGuideBeatsSibling(t *testing.T) {
	s := &Snapper{
		CanvasWidth:  300,
		CanvasHeight: 300,
		// 同级组件左边缘在 x=3，比画布 0 线离候选位置更近。
		Siblings: []SiblingRect{{X: 3, Y: 200, W: 50, H: 50}},
	}
	res := s.Resolve(5, 60, 40, 7)
	if !res.SnappedX || res.X != 0 {
		t.Fatalf("画布参考线应优先于同级参考线，实际 %+v", res)
	}
	if res.GuideX.Source != GuideCanvas {
		t.Fatalf("参考线来源应为画布，实际 %+v", res.GuideX)
	}
}

func TestSiblingSnapWhenNoCanvasGuide(t *testing.T) {
	s := &Snapper{
		CanvasWidth:  1000,
		CanvasHeight: 1000,
		Siblings:     []SiblingRect{{X: 123, Y: 0, W: 50, H: 50}},
	}
	// 左边缘距同级左边缘(123) 4px，距所有画布参考线都很远。
	res := s.Resolve(127, 400, 20, 20)
	if !res.SnappedX || res.X != 123 {
		t.Fatalf("应吸附到同级参考线 123，实际 %+v", res)
	}
	if res.GuideX.Source != GuideSibling {
		t.Fatalf("参考线来源应为同级组件，实际 %+v", res.GuideX)
	}
}

// TestSnapFirstMatchInListOrder 首次命中即停，而不是全局最近：
// 中心点离 width/2 更近，但左参考点先命中 width/3。
func TestSnapFirstMatchInListOrder(t *testing.T) {
	s := &Snapper{CanvasWidth: 300, CanvasHeight: 300}
	// 左参考点 = 95 距 100 为 5px；右参考点 = 199 距 200 仅 1px。
	// 最近线搜索会选右参考点，但列表顺序上左参考点先命中。
	res := s.Resolve(95, 400, 104, 20)
	if !res.SnappedX || res.X != 100 {
		t.Fatalf("应按列表顺序首次命中左参考点，实际 %+v", res)
	}
	if res.GuideX.Value != 100 {
		t.Fatalf("参考线应为 100，实际 %+v", res.GuideX)
	}
}

func TestSnapCenterReference(t *testing.T) {
	s := &Snapper{CanvasWidth: 300, CanvasHeight: 300}
	// 左(139)与右(169)参考点均无命中；中心 = 154 距 150 为 4px。
	res := s.Resolve(139, 400, 30, 20)
	if !res.SnappedX || res.X != 135 {
		t.Fatalf("中心吸附后 X 应为 135，实际 %+v", res)
	}
	if res.GuideX.Value != 150 {
		t.Fatalf("参考线应为 150，实际 %+v", res.GuideX)
	}
}
