package main

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/John-Robertt/shaderbuild/internal/app/run"
	"github.com/John-Robertt/shaderbuild/internal/compiler"
	"github.com/John-Robertt/shaderbuild/internal/config"
	"github.com/John-Robertt/shaderbuild/internal/domain"
)

var _ run.Observer = (*traceUI)(nil)

// traceUI 把 run 层事件变成终端输出。
//
// - trace 行（每个着色器一行，启动编译器之前）始终写到 out（stdout）
// - 配置回显、阶段统计、逐条结果与 keepalive 只在 progress 非 nil（交互终端）时输出
type traceUI struct {
	out      io.Writer
	progress io.Writer

	mu          sync.Mutex
	startedAt   time.Time
	lastPrinted time.Time

	workers int
	total   int
	done    int
	ok      int
	fail    int
	active  map[string]struct{}

	keepaliveThreshold time.Duration
	tickerInterval     time.Duration

	stopCh        chan struct{}
	tickerStarted bool
}

func newTraceUI(out, progress io.Writer) *traceUI {
	return &traceUI{
		out:                out,
		progress:           progress,
		active:             map[string]struct{}{},
		keepaliveThreshold: 6 * time.Second,
		tickerInterval:     2 * time.Second,
	}
}

// traceLine 是对外约定的 trace 格式：Running '<compiler> <source> -o <output>'...
func traceLine(args []string) string {
	return "Running '" + compiler.CommandLine(args) + "'..."
}

func (p *traceUI) OnStart(eff config.EffectiveConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}
	if p.progress == nil {
		return
	}

	fmt.Fprintf(p.progress, "[%s] shaderbuild run\n", now.Format("15:04:05"))
	fmt.Fprintln(p.progress, "配置（生效）:")
	if eff.ConfigFile != "" {
		fmt.Fprintf(p.progress, "  config: %s\n", eff.ConfigFile)
	}
	fmt.Fprintf(p.progress, "  glsl_dir: %s\n", eff.GLSLDir)
	fmt.Fprintf(p.progress, "  output_dir: %s\n", eff.OutputDir)
	fmt.Fprintf(p.progress, "  compiler: %s\n", eff.Compiler)
	fmt.Fprintf(p.progress, "  concurrency: %d\n", eff.Concurrency)
	fmt.Fprintf(p.progress, "  verify_output: %s\n", onOff(eff.VerifyOutput))
	fmt.Fprintln(p.progress)
	p.lastPrinted = time.Now()
}

func (p *traceUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if name == "exec" {
		p.workers = intField(fields, "workers")
		p.total = intField(fields, "total")
	}
	if p.progress == nil {
		return
	}

	switch name {
	case "scan":
		fmt.Fprintf(p.progress, "扫描: files=%d (%s)\n", intField(fields, "files"), formatShortDuration(dur))
	case "plan":
		fmt.Fprintf(p.progress, "规划: jobs=%d vertex=%d fragment=%d generic=%d overwrite=%d (%s)\n",
			intField(fields, "jobs"),
			intField(fields, "vertex"),
			intField(fields, "fragment"),
			intField(fields, "generic"),
			intField(fields, "overwrite"),
			formatShortDuration(dur),
		)
		if exists, ok := fields["output_dir"].(bool); ok && !exists {
			fmt.Fprintln(p.progress, "警告: 输出目录不存在，编译器将无法写入产物")
		}
	case "exec":
		fmt.Fprintf(p.progress, "执行: workers=%d total=%d\n\n", p.workers, p.total)
		if p.total > 0 && !p.tickerStarted {
			p.startTickerLocked()
		}
	default:
		fmt.Fprintf(p.progress, "%s (%s)\n", name, formatShortDuration(dur))
	}
	p.lastPrinted = time.Now()
}

func (p *traceUI) OnShaderStart(idx, total int, job domain.CompileJob, args []string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active[job.File.Name] = struct{}{}
	fmt.Fprintln(p.out, traceLine(args))
	p.lastPrinted = time.Now()
}

func (p *traceUI) OnShaderDone(done, total int, res domain.ItemResult, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done = done
	p.total = total
	name := baseName(res.Source)
	delete(p.active, name)

	switch res.Status {
	case domain.StatusCompiled:
		p.ok++
	default:
		p.fail++
	}

	if p.progress != nil {
		switch res.Status {
		case domain.StatusCompiled:
			note := ""
			if res.SPIRV != nil {
				note = fmt.Sprintf(" spirv=%s %dB", res.SPIRV.Version, res.SPIRV.Size)
			}
			fmt.Fprintf(p.progress, "[%d/%d] %s OK%s (%s)\n", done, total, name, note, formatShortDuration(dur))
		case domain.StatusNotRun:
			fmt.Fprintf(p.progress, "[%d/%d] %s SKIP %s\n", done, total, name, truncate(res.ErrorMsg, 160))
		default:
			fmt.Fprintf(p.progress, "[%d/%d] %s FAIL %s exit=%d (%s)\n",
				done, total, name, res.ErrorCode, res.ExitCode, formatShortDuration(dur),
			)
		}
		p.lastPrinted = time.Now()
	}

	if p.tickerStarted && p.done >= p.total {
		p.stopTickerLocked()
	}
}

// Stop 停止 keepalive（run 结束后调用，幂等）。
func (p *traceUI) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tickerStarted {
		p.stopTickerLocked()
	}
}

func (p *traceUI) stopTickerLocked() {
	close(p.stopCh)
	p.tickerStarted = false
}

func (p *traceUI) startTickerLocked() {
	p.stopCh = make(chan struct{})
	p.tickerStarted = true
	stop := p.stopCh

	interval := p.tickerInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	threshold := p.keepaliveThreshold
	if threshold <= 0 {
		threshold = 6 * time.Second
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				p.mu.Lock()
				if p.total > 0 && time.Since(p.lastPrinted) > threshold {
					p.printProgressLocked()
				}
				p.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}

func (p *traceUI) printProgressLocked() {
	if p.progress == nil {
		return
	}
	names := make([]string, 0, len(p.active))
	for n := range p.active {
		names = append(names, n)
	}
	sort.Strings(names)
	fmt.Fprintf(p.progress, "进度: done=%d/%d ok=%d fail=%d active=%s elapsed=%s\n",
		p.done, p.total, p.ok, p.fail, formatActive(names, 3), formatElapsed(time.Since(p.startedAt)),
	)
	p.lastPrinted = time.Now()
}
