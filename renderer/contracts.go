package renderer

import (
	"fmt"
	"strings"
	"time"
)

// 本文件集中所有必须与设备端渲染器逐项一致的排版约定。
// 预览端与设备端各自实现这些规则，任何一处改动都要同步两边。

// LineHeightFactor 行高系数：行高恒为 字号 × 1.2。
const LineHeightFactor = 1.2

// ExpiredLabel 倒计时归零或越过目标时刻后的固定文案。
const ExpiredLabel = "Expired"

// LineHeight 按字号计算行高。
func LineHeight(fontSize float64) float64 {
	return fontSize * LineHeightFactor
}

// 字体族映射表：通用族名 → 设备端内置字体名。
var fontTable = map[string]string{
	"sans-serif": "Go",
	"monospace":  "Go Mono",
	"serif":      "Go Medium",
}

// FontStack 将配置里的字体族展开为查找序列。表内族名映射为单一字体；
// 表外名称原样保留并追加 sans-serif 回退。
func FontStack(family string) []string {
	name := strings.ToLower(strings.TrimSpace(family))
	if name == "" {
		return []string{fontTable["sans-serif"]}
	}
	if mapped, ok := fontTable[name]; ok {
		return []string{mapped}
	}
	return []string{strings.TrimSpace(family), fontTable["sans-serif"]}
}

// ResolveTimezone 解析配置的时区名。空串与 "local" 是显式哨兵，
// 解析为运行环境的本地时区；其余名称按 IANA 数据库解析。
func ResolveTimezone(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || strings.EqualFold(trimmed, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, fmt.Errorf("解析时区 %s 失败: %w", trimmed, err)
	}
	return loc, nil
}

// FormatClock 按 12/24 小时制格式化时刻，可选附带秒。
func FormatClock(t time.Time, use24, withSeconds bool) string {
	switch {
	case use24 && withSeconds:
		return t.Format("15:04:05")
	case use24:
		return t.Format("15:04")
	case withSeconds:
		return t.Format("3:04:05 PM")
	default:
		return t.Format("3:04 PM")
	}
}

// DateParts 控制日期组件各可见部分的开关。
type DateParts struct {
	Weekday bool
	Day     bool
	Month   bool
	Year    bool
}

// FormatDate 按开关拼接日期文本。全部关闭时回退为 日+月+年。
func FormatDate(t time.Time, parts DateParts) string {
	if !parts.Weekday && !parts.Day && !parts.Month && !parts.Year {
		parts = DateParts{Day: true, Month: true, Year: true}
	}
	var segs []string
	if parts.Weekday {
		segs = append(segs, t.Format("Monday"))
	}
	if parts.Day {
		segs = append(segs, t.Format("2"))
	}
	if parts.Month {
		segs = append(segs, t.Format("January"))
	}
	if parts.Year {
		segs = append(segs, t.Format("2006"))
	}
	return strings.Join(segs, " ")
}

// SecondsUntilMidnight 计算在给定时区内距下一个午夜的时长。
// 关键点：午夜按该时区衡量，而不是按查看者本机时区。
func SecondsUntilMidnight(now time.Time, loc *time.Location) time.Duration {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return next.Sub(local)
}

// CountdownParts 把剩余时长分解为整数天/时/分/秒。负值按零处理。
func CountdownParts(d time.Duration) (days, hours, minutes, seconds int) {
	if d <= 0 {
		return 0, 0, 0, 0
	}
	total := int(d / time.Second)
	days = total / 86400
	hours = total % 86400 / 3600
	minutes = total % 3600 / 60
	seconds = total % 60
	return days, hours, minutes, seconds
}

// FormatCountdown 渲染倒计时文本；剩余时长为零或负时返回 ExpiredLabel。
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return ExpiredLabel
	}
	days, hours, minutes, seconds := CountdownParts(d)
	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// DaysUntil 计算从 now 到目标日期（按给定时区的日历日）的整天数。
// 目标日在今天或之前返回非正数，由调用方映射为 ExpiredLabel。
func DaysUntil(target, now time.Time, loc *time.Location) int {
	t := target.In(loc)
	n := now.In(loc)
	targetDay := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	return int(targetDay.Sub(today) / (24 * time.Hour))
}
