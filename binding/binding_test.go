package binding

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveNestedPath(t *testing.T) {
	var root any
	if err := json.Unmarshal([]byte(`{"a":{"b":[{"c":5}]}}`), &root); err != nil {
		t.Fatal(err)
	}
	got := Resolve(root, "a.b[0].c")
	if got != float64(5) {
		t.Fatalf("Resolve(a.b[0].c) = %v, want 5", got)
	}
}

func TestResolveMissingPathIsNilNotPanic(t *testing.T) {
	if got := Resolve(map[string]any{}, "x.y"); got != nil {
		t.Fatalf("缺失路径应返回 nil，实际 %v", got)
	}
	if got := Resolve(nil, "a"); got != nil {
		t.Fatalf("nil 根应返回 nil，实际 %v", got)
	}
	// 对非序列做下标、下标越界，都只能返回 nil。
	root := map[string]any{"a": "string", "b": []any{1.0}}
	if got := Resolve(root, "a[0]"); got != nil {
		t.Fatalf("对字符串做下标应返回 nil，实际 %v", got)
	}
	if got := Resolve(root, "b[5]"); got != nil {
		t.Fatalf("下标越界应返回 nil，实际 %v", got)
	}
	if got := Resolve(root, "b[x]"); got != nil {
		t.Fatalf("非数字下标应返回 nil，实际 %v", got)
	}
}

func TestResolveBareIndexSegment(t *testing.T) {
	root := []any{map[string]any{"name": "first"}, map[string]any{"name": "second"}}
	if got := Resolve(root, "[1].name"); got != "second" {
		t.Fatalf("Resolve([1].name) = %v, want second", got)
	}
}

func TestResolveOKDistinguishesMissingFromNull(t *testing.T) {
	root := map[string]any{"present": nil}
	if _, ok := ResolveOK(root, "present"); !ok {
		t.Fatal("存在但为 null 的字段应报告 ok=true")
	}
	if _, ok := ResolveOK(root, "absent"); ok {
		t.Fatal("缺失字段应报告 ok=false")
	}
}

func TestInterpolateReplacesAllOccurrences(t *testing.T) {
	got := Interpolate("Hi {{name}}, {{name}}!", map[string]any{"name": "Sam"})
	if got != "Hi Sam, Sam!" {
		t.Fatalf("Interpolate = %q, want %q", got, "Hi Sam, Sam!")
	}
}

func TestInterpolateKeepsUnknownKeys(t *testing.T) {
	got := Interpolate("{{known}} and {{unknown}}", map[string]any{"known": 42})
	if got != "42 and {{unknown}}" {
		t.Fatalf("未知变量应保留原样，实际 %q", got)
	}
}

func TestInterpolateEmptyVars(t *testing.T) {
	tpl := "nothing {{here}}"
	if got := Interpolate(tpl, nil); got != tpl {
		t.Fatalf("空变量表应原样返回，实际 %q", got)
	}
}

func TestFieldsMetadata(t *testing.T) {
	var root any
	if err := json.Unmarshal([]byte(`{
		"name": "Sam",
		"count": 3,
		"active": true,
		"avatar": "https://example.com/a.png",
		"home": "https://example.com",
		"items": [{"label": "x"}]
	}`), &root); err != nil {
		t.Fatal(err)
	}
	fields := Fields(root)

	byPath := map[string]int{}
	for i, f := range fields {
		byPath[f.Path] = i
	}
	wantPaths := []string{"active", "avatar", "count", "home", "items[0].label", "name"}
	var gotPaths []string
	for _, f := range fields {
		gotPaths = append(gotPaths, f.Path)
	}
	if diff := cmp.Diff(wantPaths, gotPaths); diff != "" {
		t.Fatalf("字段路径不符 (-want +got):\n%s", diff)
	}

	avatar := fields[byPath["avatar"]]
	if !avatar.IsImageURL || !avatar.IsLink {
		t.Fatalf("avatar 应识别为图片链接: %+v", avatar)
	}
	home := fields[byPath["home"]]
	if home.IsImageURL || !home.IsLink {
		t.Fatalf("home 应识别为普通链接: %+v", home)
	}
	if fields[byPath["count"]].Type != "number" {
		t.Fatalf("count 类型应为 number: %+v", fields[byPath["count"]])
	}
}
