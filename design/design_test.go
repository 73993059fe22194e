package design

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestNormalizeRotation 验证角度规范化：370°→10°，360°→0°，负角度回绕。
func TestNormalizeRotation(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0},
		{360, 0},
		{370, 10},
		{-10, 350},
		{-360, 0},
		{725, 5},
	}
	for _, c := range cases {
		if got := NormalizeRotation(c.in); got != c.want {
			t.Fatalf("NormalizeRotation(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestNextLocalIDIsNegativeAndDecreasing(t *testing.T) {
	d := &ScreenDesign{Width: 800, Height: 480}
	a := d.NextLocalID()
	b := d.NextLocalID()
	if a >= 0 || b >= 0 {
		t.Fatalf("本地 ID 必须为负: %d, %d", a, b)
	}
	if b >= a {
		t.Fatalf("本地 ID 必须严格递减: %d 然后 %d", a, b)
	}
}

func TestClampEnforcesMinimumSize(t *testing.T) {
	w := &ScreenWidget{Width: 3, Height: 500, Rotation: 360}
	w.Clamp()
	if w.Width != MinWidgetSize {
		t.Fatalf("宽度应被修正为 %d，实际 %g", MinWidgetSize, w.Width)
	}
	if w.Height != 500 {
		t.Fatalf("高度不应被修改，实际 %g", w.Height)
	}
	if w.Rotation != 0 {
		t.Fatalf("360° 应规范化为 0，实际 %d", w.Rotation)
	}
}

// TestSortedWidgetsStableOrder 相同 ZIndex 时保持插入顺序（后加的画在上面）。
func TestSortedWidgetsStableOrder(t *testing.T) {
	d := &ScreenDesign{Width: 800, Height: 480}
	d.AddWidget(&ScreenWidget{ID: 1, ZIndex: 2, Width: 20, Height: 20})
	d.AddWidget(&ScreenWidget{ID: 2, ZIndex: 1, Width: 20, Height: 20})
	d.AddWidget(&ScreenWidget{ID: 3, ZIndex: 1, Width: 20, Height: 20})

	sorted := d.SortedWidgets()
	gotIDs := []int64{sorted[0].ID, sorted[1].ID, sorted[2].ID}
	wantIDs := []int64{2, 3, 1}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Fatalf("绘制顺序不符 (-want +got):\n%s", diff)
	}
}

// TestSaveDocumentStripsTemplate 保存时只保留约定字段，模板引用与 id 不回传。
func TestSaveDocumentStripsTemplate(t *testing.T) {
	tpl := &WidgetTemplate{ID: 2, Name: "clock"}
	d := &ScreenDesign{Width: 800, Height: 480, Background: "#ffffff"}
	d.AddWidget(&ScreenWidget{
		ID: -1, TemplateID: 2, X: 10, Y: 20, Width: 100, Height: 50,
		Rotation: 90, ZIndex: 3, Template: tpl,
		Config: map[string]any{"format24h": true},
	})

	data, err := SaveDocument(d)
	if err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("保存文档不是合法 JSON: %v", err)
	}
	widgets := doc["widgets"].([]any)
	w := widgets[0].(map[string]any)
	for _, forbidden := range []string{"id", "template"} {
		if _, ok := w[forbidden]; ok {
			t.Fatalf("保存文档不应包含字段 %q", forbidden)
		}
	}
	for _, required := range []string{"templateId", "x", "y", "width", "height", "rotation", "config", "zIndex"} {
		if _, ok := w[required]; !ok {
			t.Fatalf("保存文档缺少字段 %q", required)
		}
	}
}

func TestLoadRejectsBadCanvas(t *testing.T) {
	if _, err := Load([]byte(`{"width":0,"height":480,"widgets":[]}`)); err == nil {
		t.Fatal("画布尺寸非法时应报错")
	}
}

func TestAttachTemplates(t *testing.T) {
	tpls := []WidgetTemplate{{ID: 2, Name: "clock"}}
	d := &ScreenDesign{Width: 800, Height: 480}
	d.AddWidget(&ScreenWidget{ID: 1, TemplateID: 2, Width: 20, Height: 20})
	d.AddWidget(&ScreenWidget{ID: 2, TemplateID: 99, Width: 20, Height: 20})
	d.AddWidget(&ScreenWidget{ID: 3, TemplateID: CustomTemplateOffset + 1, Width: 20, Height: 20})
	AttachTemplates(d, tpls)

	if d.Widgets[0].Template == nil || d.Widgets[0].Kind() != "clock" {
		t.Fatal("已知模板应被挂接")
	}
	if d.Widgets[1].Template != nil || d.Widgets[1].Kind() != "" {
		t.Fatal("未知模板应保持 nil")
	}
	if d.Widgets[2].Kind() != "custom" {
		t.Fatalf("自定义区间应返回 custom，实际 %q", d.Widgets[2].Kind())
	}
}

func TestBuiltinCatalogCoversRequiredKinds(t *testing.T) {
	tpls, err := BuiltinCatalog()
	if err != nil {
		t.Fatalf("BuiltinCatalog: %v", err)
	}
	have := map[string]bool{}
	for _, tpl := range tpls {
		have[tpl.Name] = true
	}
	for _, kind := range []string{"clock", "date", "weather", "text", "qrcode", "battery"} {
		if !have[kind] {
			t.Fatalf("内置目录缺少 %q", kind)
		}
	}
}

func TestPasteOffsetsAndRestacks(t *testing.T) {
	d := &ScreenDesign{Width: 800, Height: 480}
	src := &ScreenWidget{ID: 5, X: 30, Y: 40, Width: 100, Height: 50, ZIndex: 7,
		Config: map[string]any{"nested": map[string]any{"a": 1}}}
	d.AddWidget(src)

	var cb Clipboard
	cb.Copy(src)
	pasted := cb.Paste(d)
	if len(pasted) != 1 {
		t.Fatalf("应粘贴 1 个组件，实际 %d", len(pasted))
	}
	p := pasted[0]
	if p.ID >= 0 {
		t.Fatalf("粘贴组件应使用本地负 ID，实际 %d", p.ID)
	}
	if p.X != 40 || p.Y != 50 {
		t.Fatalf("粘贴应偏移 10px，实际 (%g,%g)", p.X, p.Y)
	}
	if p.ZIndex <= src.ZIndex {
		t.Fatalf("粘贴组件应置于最上层: %d <= %d", p.ZIndex, src.ZIndex)
	}

	// 深拷贝：修改粘贴结果不影响原组件配置。
	p.Config["nested"].(map[string]any)["a"] = 2
	if src.Config["nested"].(map[string]any)["a"] != 1 {
		t.Fatal("粘贴必须深拷贝 config")
	}
}

func TestDuplicate(t *testing.T) {
	d := &ScreenDesign{Width: 800, Height: 480}
	src := &ScreenWidget{ID: 9, X: 0, Y: 0, Width: 50, Height: 50, ZIndex: 1, Config: map[string]any{}}
	d.AddWidget(src)
	dup := Duplicate(d, src)
	if dup.ID == src.ID || dup.ID >= 0 {
		t.Fatalf("副本应获得新的本地 ID，实际 %d", dup.ID)
	}
	if len(d.Widgets) != 2 {
		t.Fatalf("副本应加入设计，组件数 %d", len(d.Widgets))
	}
}
