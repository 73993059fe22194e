package renderer

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLineHeight(t *testing.T) {
	if got := LineHeight(20); got != 24 {
		t.Fatalf("字号 20 的行高应为 24，实际 %g", got)
	}
	if got := LineHeight(15); got != 18 {
		t.Fatalf("字号 15 的行高应为 18，实际 %g", got)
	}
}

func TestFontStack(t *testing.T) {
	cases := []struct {
		family string
		want   []string
	}{
		{"sans-serif", []string{"Go"}},
		{"monospace", []string{"Go Mono"}},
		{"serif", []string{"Go Medium"}},
		{"Monospace", []string{"Go Mono"}},
		{"", []string{"Go"}},
		{"Comic Neue", []string{"Comic Neue", "Go"}},
	}
	for _, c := range cases {
		if diff := cmp.Diff(c.want, FontStack(c.family)); diff != "" {
			t.Errorf("FontStack(%q) 不符 (-want +got):\n%s", c.family, diff)
		}
	}
}

func TestFontBytesFallback(t *testing.T) {
	if len(FontBytes("Go Mono")) == 0 {
		t.Fatal("Go Mono 字体数据为空")
	}
	unknown := FontBytes("No Such Font")
	if len(unknown) == 0 {
		t.Fatal("未知字体应回退到常规体")
	}
	if string(unknown[:4]) != string(FontBytes("Go")[:4]) {
		t.Fatal("未知字体回退数据不一致")
	}
}

func TestResolveTimezone(t *testing.T) {
	for _, sentinel := range []string{"", "local", "Local", " LOCAL "} {
		loc, err := ResolveTimezone(sentinel)
		if err != nil || loc != time.Local {
			t.Fatalf("哨兵值 %q 应解析为本地时区: loc=%v err=%v", sentinel, loc, err)
		}
	}
	loc, err := ResolveTimezone("Asia/Shanghai")
	if err != nil || loc.String() != "Asia/Shanghai" {
		t.Fatalf("IANA 名称解析失败: loc=%v err=%v", loc, err)
	}
	if _, err := ResolveTimezone("Mars/Olympus"); err == nil {
		t.Fatal("无效时区应返回错误")
	}
}

func TestFormatClock(t *testing.T) {
	at := time.Date(2024, 6, 1, 21, 5, 9, 0, time.UTC)
	if got := FormatClock(at, true, false); got != "21:05" {
		t.Fatalf("24 小时制应为 21:05，实际 %q", got)
	}
	if got := FormatClock(at, false, false); got != "9:05 PM" {
		t.Fatalf("12 小时制应为 9:05 PM，实际 %q", got)
	}
	if got := FormatClock(at, true, true); got != "21:05:09" {
		t.Fatalf("带秒 24 小时制应为 21:05:09，实际 %q", got)
	}
	if got := FormatClock(at, false, true); got != "9:05:09 PM" {
		t.Fatalf("带秒 12 小时制应为 9:05:09 PM，实际 %q", got)
	}
}

func TestFormatDateParts(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) // 周六
	cases := []struct {
		parts DateParts
		want  string
	}{
		{DateParts{Weekday: true, Day: true, Month: true, Year: true}, "Saturday 1 June 2024"},
		{DateParts{Weekday: true}, "Saturday"},
		{DateParts{Day: true, Year: true}, "1 2024"},
		// 全部关闭时回退为 日+月+年。
		{DateParts{}, "1 June 2024"},
	}
	for _, c := range cases {
		if got := FormatDate(at, c.parts); got != c.want {
			t.Errorf("FormatDate(%+v) = %q，期望 %q", c.parts, got, c.want)
		}
	}
}

func TestSecondsUntilMidnightUsesEffectiveZone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("缺少时区数据库")
	}
	// UTC 23:00 = 东京次日 08:00，距东京午夜还有 16 小时。
	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	got := SecondsUntilMidnight(now, tokyo)
	if got != 16*time.Hour {
		t.Fatalf("东京午夜倒计时应为 16h，实际 %v", got)
	}
	// 同一时刻按 UTC 衡量只剩 1 小时，验证两者确实不同。
	if SecondsUntilMidnight(now, time.UTC) != time.Hour {
		t.Fatalf("UTC 午夜倒计时应为 1h")
	}
}

func TestCountdownParts(t *testing.T) {
	d := 2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second
	days, hours, minutes, seconds := CountdownParts(d)
	if days != 2 || hours != 3 || minutes != 4 || seconds != 5 {
		t.Fatalf("分解结果 %d/%d/%d/%d，期望 2/3/4/5", days, hours, minutes, seconds)
	}
	days, hours, minutes, seconds = CountdownParts(-time.Minute)
	if days != 0 || hours != 0 || minutes != 0 || seconds != 0 {
		t.Fatal("负时长应全零")
	}
}

func TestFormatCountdownExpired(t *testing.T) {
	if got := FormatCountdown(0); got != ExpiredLabel {
		t.Fatalf("零时长应为 %q，实际 %q", ExpiredLabel, got)
	}
	if got := FormatCountdown(-time.Second); got != ExpiredLabel {
		t.Fatalf("负时长应为 %q，实际 %q", ExpiredLabel, got)
	}
	if got := FormatCountdown(3*time.Hour + 2*time.Minute + 1*time.Second); got != "03:02:01" {
		t.Fatalf("不足一天的格式不符: %q", got)
	}
	if got := FormatCountdown(25*time.Hour + 1*time.Second); got != "1d 01:00:01" {
		t.Fatalf("超过一天的格式不符: %q", got)
	}
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)
	target := time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC)
	if got := DaysUntil(target, now, time.UTC); got != 9 {
		t.Fatalf("按日历日计数应为 9，实际 %d", got)
	}
	if got := DaysUntil(now, now, time.UTC); got != 0 {
		t.Fatalf("目标为今天应返回 0，实际 %d", got)
	}
	past := now.AddDate(0, 0, -3)
	if got := DaysUntil(past, now, time.UTC); got != -3 {
		t.Fatalf("过去日期应返回负数，实际 %d", got)
	}
}
