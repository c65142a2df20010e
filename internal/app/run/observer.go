package run

import (
	"time"

	"github.com/John-Robertt/shaderbuild/internal/config"
	"github.com/John-Robertt/shaderbuild/internal/domain"
)

// Observer 用于把“运行进度/阶段/单个着色器结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（trace 行的格式由 CLI 决定）。
// - Observer 的实现必须并发安全：concurrency > 1 时事件来自多个 goroutine。
type Observer interface {
	// OnStart 在 ExecuteWithObserver 开始时调用。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用（scan/plan/exec）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnShaderStart 在启动编译器之前调用；args 为完整调用参数（含可执行文件）。
	OnShaderStart(idx, total int, job domain.CompileJob, args []string)
	// OnShaderDone 在某个着色器结束（或因中止被跳过）时调用；done 为已完成数量。
	OnShaderDone(done, total int, res domain.ItemResult, dur time.Duration)
}
