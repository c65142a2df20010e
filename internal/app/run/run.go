package run

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/John-Robertt/shaderbuild/internal/app/planner"
	"github.com/John-Robertt/shaderbuild/internal/compiler"
	"github.com/John-Robertt/shaderbuild/internal/config"
	"github.com/John-Robertt/shaderbuild/internal/domain"
	"github.com/John-Robertt/shaderbuild/internal/infra/spvx"
	"github.com/John-Robertt/shaderbuild/internal/scan"
)

// Runner 是外部编译器的最小抽象（compiler.Compiler 实现它；测试可替换）。
type Runner interface {
	Args(src, out string) []string
	Run(ctx context.Context, src, out string) (compiler.Result, error)
}

// Execute 执行一次扫描 + 编译，并返回对外稳定的 RunReport。
//
// 失败分三类：
// - 扫描失败：任何编译开始前中止，报告中只有一条 scan_failed
// - 启动失败（编译器不存在/不可执行）：中止整次运行，尚未开始的着色器记为 not_run
// - 编译失败（非 0 退出码）：记录后继续处理其余着色器
//
// 已写出的产物不会回滚；没有重试、没有超时。
func Execute(ctx context.Context, eff config.EffectiveConfig, c Runner) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, c, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出 trace/进度（由上层决定如何展示）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, c Runner, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	workers := eff.Concurrency
	if workers < 1 {
		workers = 1
	}

	rr := domain.RunReport{
		GLSLDir:     eff.GLSLDir,
		OutputDir:   eff.OutputDir,
		Compiler:    eff.Compiler,
		Concurrency: workers,
		StartedAt:   started,
		Items:       make([]domain.ItemResult, 0, 32),
	}

	scanStarted := time.Now()
	files, err := scan.ScanShaders(eff.GLSLDir, eff.OutputDir)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeScanFailed, fmt.Sprintf("扫描 %q 失败：%v", eff.GLSLDir, err)))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr
	}
	scanDur := time.Since(scanStarted)

	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"files": len(files),
		}, scanDur)
	}

	planStarted := time.Now()
	st, err := planner.ReadOutState(eff.OutputDir)
	if err != nil {
		// 输出目录不可读只影响 overwrite 标记；真正的写入失败交给编译器报告。
		st = domain.OutState{OutDir: eff.OutputDir, ExistingNames: map[string]struct{}{}}
	}
	jobs := planner.Plan(files, st)
	planDur := time.Since(planStarted)

	if obs != nil {
		stages := planner.CountStages(jobs)
		overwrite := 0
		for i := range jobs {
			if jobs[i].Overwrite {
				overwrite++
			}
		}
		obs.OnPhaseDone("plan", map[string]any{
			"jobs":       len(jobs),
			"vertex":     stages[domain.StageVertex],
			"fragment":   stages[domain.StageFragment],
			"generic":    stages[domain.StageGeneric],
			"overwrite":  overwrite,
			"output_dir": st.Exists,
		}, planDur)
		obs.OnPhaseDone("exec", map[string]any{
			"workers": workers,
			"total":   len(jobs),
		}, 0)
	}

	type indexed struct {
		idx int
		job domain.CompileJob
	}

	// aborted 在启动失败后置位：之后领取到的 job 一律不再执行。
	var aborted atomic.Bool

	// finish 在 worker 内同步调用：单 worker 时 OnShaderDone 一定先于下一个 OnShaderStart。
	var (
		mu   sync.Mutex
		done int
	)
	finish := func(res domain.ItemResult, dur time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		done++
		rr.Items = append(rr.Items, res)
		if obs != nil {
			obs.OnShaderDone(done, len(jobs), res, dur)
		}
	}

	queue := make(chan indexed)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range queue {
				if aborted.Load() {
					finish(notRunItem(c, it.job, "编译器启动失败，已中止，未执行"), 0)
					continue
				}
				if e := ctx.Err(); e != nil {
					finish(notRunItem(c, it.job, fmt.Sprintf("运行被取消：%v", e)), 0)
					continue
				}

				if obs != nil {
					obs.OnShaderStart(it.idx, len(jobs), it.job, c.Args(it.job.File.SrcAbs, it.job.File.OutAbs))
				}
				oneStarted := time.Now()
				r, launchFailed := execOne(ctx, eff, c, it.job)
				if launchFailed {
					aborted.Store(true)
				}
				finish(r, time.Since(oneStarted))
			}
		}()
	}

	for i, j := range jobs {
		queue <- indexed{idx: i + 1, job: j}
	}
	close(queue)
	wg.Wait()

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	return rr
}

// execOne 编译单个着色器。第二个返回值表示发生了启动失败（调用方据此中止）。
func execOne(ctx context.Context, eff config.EffectiveConfig, c Runner, job domain.CompileJob) (domain.ItemResult, bool) {
	f := job.File
	item := baseItem(c, job)
	item.Status = domain.StatusCompiled // 失败时覆盖

	started := time.Now()
	res, err := c.Run(ctx, f.SrcAbs, f.OutAbs)
	item.DurationMS = time.Since(started).Milliseconds()
	if err != nil {
		item.Status = domain.StatusFailed
		item.ExitCode = -1
		item.ErrorCode = domain.ErrCodeLaunchFailed
		item.ErrorMsg = err.Error()
		return item, compiler.IsLaunch(err)
	}

	item.ExitCode = res.ExitCode
	if !res.OK() {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeCompileFailed
		item.ErrorMsg = compileFailedMsg(res)
		return item, false
	}

	// 退出码为 0：检查产物。只有开启 verify_output 时才会把检查失败算作失败。
	info, err := spvx.InspectFile(f.OutAbs)
	if err != nil {
		if eff.VerifyOutput {
			item.Status = domain.StatusFailed
			item.ErrorCode = domain.ErrCodeOutputInvalid
			item.ErrorMsg = fmt.Sprintf("编译器返回 0，但产物不是有效的 SPIR-V：%v", err)
		}
		return item, false
	}
	item.SPIRV = &info
	return item, false
}

func baseItem(c Runner, job domain.CompileJob) domain.ItemResult {
	f := job.File
	return domain.ItemResult{
		Source:    f.SrcAbs,
		Output:    f.OutAbs,
		Stage:     f.Stage,
		Command:   c.Args(f.SrcAbs, f.OutAbs),
		Overwrote: job.Overwrite,
	}
}

func notRunItem(c Runner, job domain.CompileJob, msg string) domain.ItemResult {
	item := baseItem(c, job)
	item.Status = domain.StatusNotRun
	item.ExitCode = -1
	item.ErrorMsg = msg
	return item
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Source:    "",
		Output:    "",
		Command:   []string{},
		Status:    domain.StatusFailed,
		ExitCode:  -1,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

func compileFailedMsg(res compiler.Result) string {
	msg := fmt.Sprintf("编译器退出码 %d", res.ExitCode)
	if d := strings.TrimSpace(res.Diagnostics); d != "" {
		msg += "：" + lastLines(d, 8)
	}
	return msg
}

// lastLines 保留最后 n 行（编译器诊断通常以汇总行结尾）。
func lastLines(s string, n int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= n {
		return s
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}
