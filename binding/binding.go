package binding

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var varPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Interpolate 将模板中每一处 {{name}} 替换为 vars 中对应值的字符串形式。
// 同一个变量的所有出现都会被替换；vars 中不存在的名字保留原样。
func Interpolate(template string, vars map[string]any) string {
	if len(vars) == 0 {
		return template
	}
	return varPattern.ReplaceAllStringFunc(template, func(match string) string {
		groups := varPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		name := groups[1]
		val, ok := vars[name]
		if !ok {
			return match
		}
		return fmt.Sprint(val)
	})
}

// Resolve 按点/方括号路径从 JSON 形式的数据中取值。
// 路径示例："a.b[0].c"、"[2].name"。任何中间值缺失、被索引的值
// 不是序列、或下标越界时返回 nil，永远不会 panic。
func Resolve(root any, path string) any {
	val, _ := ResolveOK(root, path)
	return val
}

// ResolveOK 与 Resolve 相同，但额外报告路径是否存在，
// 用于区分"缺失"与"存在但为 null"。
func ResolveOK(root any, path string) (any, bool) {
	if path == "" {
		return root, true
	}
	current := root
	for _, segment := range strings.Split(path, ".") {
		name, indexes := parseSegment(segment)
		if name != "" {
			var ok bool
			current, ok = descendMap(current, name)
			if !ok {
				return nil, false
			}
		}
		for _, idxStr := range indexes {
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, false
			}
			var ok bool
			current, ok = descendSequence(current, idx)
			if !ok {
				return nil, false
			}
		}
	}
	return current, true
}

// parseSegment 将一个路径段拆成属性名与若干下标，
// 支持 name[0]、name[0][1] 与裸下标 [0]。
func parseSegment(segment string) (string, []string) {
	name := segment
	var indexes []string
	if i := strings.Index(segment, "["); i != -1 {
		name = segment[:i]
		rest := segment[i:]
		for len(rest) > 0 && rest[0] == '[' {
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				break
			}
			indexes = append(indexes, rest[1:end])
			rest = rest[end+1:]
		}
	}
	return name, indexes
}

func descendMap(current any, key string) (any, bool) {
	m, ok := current.(map[string]any)
	if !ok {
		return nil, false
	}
	val, ok := m[key]
	return val, ok
}

func descendSequence(current any, idx int) (any, bool) {
	seq, ok := current.([]any)
	if !ok {
		return nil, false
	}
	if idx < 0 || idx >= len(seq) {
		return nil, false
	}
	return seq[idx], true
}
