package renderer

import (
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomedium"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// FontBytes 返回内置字体的 TTF 数据。未收录的名称回退到常规体，
// 与 FontStack 的 sans-serif 回退语义一致。
func FontBytes(name string) []byte {
	switch name {
	case "Go":
		return goregular.TTF
	case "Go Mono":
		return gomono.TTF
	case "Go Medium":
		return gomedium.TTF
	case "Go Bold":
		return gobold.TTF
	default:
		return goregular.TTF
	}
}
