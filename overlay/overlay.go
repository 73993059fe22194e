package overlay

import (
	"image"
	"image/color"
	"image/draw"
)

// 手绘层是一块独立于组件层的透明位图，三种工具：画笔、橡皮、填充。
// 橡皮擦出的是透明像素，合成时露出下层组件。

// DefaultPenRadius 画笔与橡皮的默认半径（像素）。
const DefaultPenRadius = 4

// Tool 标识当前激活的工具。同一时刻至多一个工具处于笔划中，
// 互斥由上层会话保证。
type Tool int

const (
	ToolPen Tool = iota
	ToolEraser
	ToolFill
)

// Layer 是整张设计稿尺寸的手绘缓冲区，带线性快照历史。
type Layer struct {
	buf    *image.RGBA
	radius int
	pen    color.RGBA

	// 历史为整幅缓冲区快照的线性栈；index 指向当前状态。
	history []*image.RGBA
	index   int

	// 笔划进行中记录上一个采样点，用于连接线段。
	stroking bool
	lastX    int
	lastY    int
}

// NewLayer 创建给定尺寸的透明手绘层，初始快照即空白状态。
func NewLayer(width, height int) *Layer {
	buf := image.NewRGBA(image.Rect(0, 0, width, height))
	l := &Layer{
		buf:    buf,
		radius: DefaultPenRadius,
		pen:    color.RGBA{A: 255},
	}
	l.history = []*image.RGBA{cloneRGBA(buf)}
	l.index = 0
	return l
}

// SetPenColor 设置画笔颜色。
func (l *Layer) SetPenColor(c color.RGBA) { l.pen = c }

// SetPenRadius 设置画笔/橡皮半径，最小为 1。
func (l *Layer) SetPenRadius(r int) {
	if r < 1 {
		r = 1
	}
	l.radius = r
}

// Image 返回当前缓冲区，供合成时直接叠加。调用方不得修改。
func (l *Layer) Image() *image.RGBA { return l.buf }

// --- 笔划 ---

// StrokeStart 开始一段画笔或橡皮笔划：在起点盖一个圆章。
func (l *Layer) StrokeStart(tool Tool, x, y int) {
	l.stroking = true
	l.lastX, l.lastY = x, y
	l.stamp(tool, x, y)
}

// StrokeMove 连接上一个采样点到当前点：沿线段逐点盖章，
// 避免快速移动时笔迹断开。
func (l *Layer) StrokeMove(tool Tool, x, y int) {
	if !l.stroking {
		return
	}
	plotLine(l.lastX, l.lastY, x, y, func(px, py int) {
		l.stamp(tool, px, py)
	})
	l.lastX, l.lastY = x, y
}

// StrokeEnd 结束笔划并提交一个历史快照。
func (l *Layer) StrokeEnd() {
	if !l.stroking {
		return
	}
	l.stroking = false
	l.commit()
}

// stamp 在 (x,y) 处盖一个实心圆。画笔写入笔色，橡皮写入透明。
func (l *Layer) stamp(tool Tool, x, y int) {
	var c color.RGBA
	if tool == ToolPen {
		c = l.pen
	}
	r := l.radius
	bounds := l.buf.Bounds()
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			px, py := x+dx, y+dy
			if !image.Pt(px, py).In(bounds) {
				continue
			}
			l.buf.SetRGBA(px, py, c)
		}
	}
}

// --- 填充 ---

// Fill 从点击像素开始做基于栈的四连通填充。
// 目标色等于填充色时整段操作为无操作，不产生历史快照。
func (l *Layer) Fill(x, y int, fill color.RGBA) {
	bounds := l.buf.Bounds()
	if !image.Pt(x, y).In(bounds) {
		return
	}
	target := l.buf.RGBAAt(x, y)
	if target == fill {
		return
	}

	type point struct{ x, y int }
	stack := []point{{x, y}}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !image.Pt(p.x, p.y).In(bounds) {
			continue
		}
		if l.buf.RGBAAt(p.x, p.y) != target {
			continue // 已填充或不属于目标区域
		}
		l.buf.SetRGBA(p.x, p.y, fill)
		stack = append(stack,
			point{p.x + 1, p.y},
			point{p.x - 1, p.y},
			point{p.x, p.y + 1},
			point{p.x, p.y - 1},
		)
	}
	l.commit()
}

// --- 历史 ---

// commit 截断当前位置之后的快照并追加新快照，构成线性撤销/重做。
func (l *Layer) commit() {
	l.history = append(l.history[:l.index+1], cloneRGBA(l.buf))
	l.index = len(l.history) - 1
}

// HistoryLen 返回历史快照数（含初始空白快照）。
func (l *Layer) HistoryLen() int { return len(l.history) }

// CanUndo 报告是否还有可撤销的动作。
func (l *Layer) CanUndo() bool { return l.index > 0 }

// CanRedo 报告是否还有可重做的动作。
func (l *Layer) CanRedo() bool { return l.index < len(l.history)-1 }

// Undo 回退到上一个快照。
func (l *Layer) Undo() bool {
	if !l.CanUndo() {
		return false
	}
	l.index--
	l.restore()
	return true
}

// Redo 前进到下一个快照。
func (l *Layer) Redo() bool {
	if !l.CanRedo() {
		return false
	}
	l.index++
	l.restore()
	return true
}

// Clear 清空整层并记录为一次动作。
func (l *Layer) Clear() {
	for i := range l.buf.Pix {
		l.buf.Pix[i] = 0
	}
	l.commit()
}

func (l *Layer) restore() {
	snapshot := l.history[l.index]
	copy(l.buf.Pix, snapshot.Pix)
}

// Composite 把手绘层叠加到底图之上，返回合成结果。
func Composite(base *image.RGBA, layer *Layer) *image.RGBA {
	out := cloneRGBA(base)
	if layer != nil {
		draw.Draw(out, out.Bounds(), layer.Image(), layer.Image().Bounds().Min, draw.Over)
	}
	return out
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// plotLine 用 Bresenham 算法遍历两点间的整数坐标。
func plotLine(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
