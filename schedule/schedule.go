package schedule

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wojo-o/inker-sub000/renderer"
)

// 定时器按组件归属管理：时钟每秒刷新、日期在生效时区的午夜翻转、
// 倒计时每秒递减。组件卸载或改配置时必须取消其全部定时器，
// 残留的定时器继续触发属于缺陷。

// Scheduler 在单个 cron 实例上按组件 ID 登记周期任务，
// 午夜翻转则测量生效时区距下一个零点的时长后单独定时。
type Scheduler struct {
	cron *cron.Cron

	mu        sync.Mutex
	entries   map[int64][]cron.EntryID
	midnights map[int64][]*midnightTask
}

// midnightTask 是一次性定时器，每次触发后按新的午夜间隔重新上弦。
type midnightTask struct {
	timer   *time.Timer
	stopped bool
}

// NewScheduler 创建并启动调度器。
func NewScheduler() *Scheduler {
	c := cron.New(cron.WithSeconds())
	c.Start()
	return &Scheduler{
		cron:      c,
		entries:   map[int64][]cron.EntryID{},
		midnights: map[int64][]*midnightTask{},
	}
}

// EverySecond 为组件登记每秒触发的任务（时钟、倒计时）。
func (s *Scheduler) EverySecond(widgetID int64, fn func()) error {
	return s.add(widgetID, "@every 1s", fn)
}

// AtMidnight 为组件登记在给定时区每天零点触发的任务（日期翻转）。
// tz 为空或 "local" 时按本地时区。零点按该时区衡量：先测量距
// 下一个午夜的剩余时长，触发后再按新的剩余时长重新上弦，
// 夏令时切换下跨日间隔不固定，固定周期会漂。
func (s *Scheduler) AtMidnight(widgetID int64, tz string, fn func()) error {
	loc, err := renderer.ResolveTimezone(tz)
	if err != nil {
		return fmt.Errorf("登记午夜任务失败: %w", err)
	}

	task := &midnightTask{}
	var arm func()
	arm = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if task.stopped {
			return
		}
		task.timer = time.AfterFunc(renderer.SecondsUntilMidnight(time.Now(), loc), func() {
			fn()
			arm()
		})
	}

	s.mu.Lock()
	s.midnights[widgetID] = append(s.midnights[widgetID], task)
	s.mu.Unlock()
	arm()
	return nil
}

func (s *Scheduler) add(widgetID int64, spec string, fn func()) error {
	id, err := s.cron.AddFunc(spec, fn)
	if err != nil {
		return fmt.Errorf("登记定时任务 %q 失败: %w", spec, err)
	}
	s.mu.Lock()
	s.entries[widgetID] = append(s.entries[widgetID], id)
	s.mu.Unlock()
	return nil
}

// Cancel 取消某个组件的全部定时任务。组件卸载与重新配置都走这里。
func (s *Scheduler) Cancel(widgetID int64) {
	s.mu.Lock()
	ids := s.entries[widgetID]
	delete(s.entries, widgetID)
	tasks := s.midnights[widgetID]
	delete(s.midnights, widgetID)
	for _, task := range tasks {
		task.stopped = true
		if task.timer != nil {
			task.timer.Stop()
		}
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.cron.Remove(id)
	}
}

// Active 返回组件当前登记的任务数，用于泄漏检查。
func (s *Scheduler) Active(widgetID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[widgetID]) + len(s.midnights[widgetID])
}

// Stop 停止调度器，等待在跑的任务结束。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for id, tasks := range s.midnights {
		for _, task := range tasks {
			task.stopped = true
			if task.timer != nil {
				task.timer.Stop()
			}
		}
		delete(s.midnights, id)
	}
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
}
