package binding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wojo-o/inker-sub000/design"
)

// Fields 遍历一个 JSON 形式的数据根，产出可解析字段的元信息列表，
// 供编辑器的路径自动补全使用。数组只取第一个元素作为样例。
func Fields(root any) []design.FieldMeta {
	var out []design.FieldMeta
	walkFields("", root, &out)
	return out
}

func walkFields(path string, val any, out *[]design.FieldMeta) {
	switch t := val.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if path != "" {
				child = path + "." + k
			}
			walkFields(child, t[k], out)
		}
	case []any:
		if len(t) == 0 {
			*out = append(*out, design.FieldMeta{Path: path, Type: "array", Sample: t})
			return
		}
		walkFields(path+"[0]", t[0], out)
	default:
		*out = append(*out, leafMeta(path, val))
	}
}

func leafMeta(path string, val any) design.FieldMeta {
	meta := design.FieldMeta{Path: path, Sample: val}
	switch t := val.(type) {
	case string:
		meta.Type = "string"
		meta.IsLink = strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://")
		meta.IsImageURL = meta.IsLink && hasImageExt(t)
	case float64, int, int64:
		meta.Type = "number"
	case bool:
		meta.Type = "boolean"
	case nil:
		meta.Type = "null"
	default:
		meta.Type = fmt.Sprintf("%T", val)
	}
	return meta
}

func hasImageExt(url string) bool {
	lower := strings.ToLower(url)
	if i := strings.IndexAny(lower, "?#"); i != -1 {
		lower = lower[:i]
	}
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".svg", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
