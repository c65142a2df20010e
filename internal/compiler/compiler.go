package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// diagLimit 是报告中保留的编译器 stderr 尾部长度。
const diagLimit = 4 << 10

// Compiler 调用外部 GLSL -> SPIR-V 编译器（glslc 约定：<bin> <src> -o <out>）。
//
// 约束：
// - 只依赖退出码约定（0=成功，非 0=失败），不解析编译器输出
// - 编译器的 stdout/stderr 原样转发到 Stdout/Stderr（为 nil 时丢弃）
type Compiler struct {
	Bin string

	Stdout io.Writer
	Stderr io.Writer
}

// Result 是一次已启动的编译进程的结果。
type Result struct {
	// ExitCode 为进程退出码；被信号终止时为 -1。
	ExitCode int
	// Diagnostics 是 stderr 的尾部（最多 diagLimit 字节），仅用于报告。
	Diagnostics string
}

func (r Result) OK() bool { return r.ExitCode == 0 }

// LaunchError 表示编译器进程没能启动（不存在/不可执行）。
// 这与“编译失败”不同：上层会中止整次运行。
type LaunchError struct {
	Bin string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("无法启动编译器 %q：%v", e.Bin, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// IsLaunch 判断 err 是否为 LaunchError。
func IsLaunch(err error) bool {
	var e *LaunchError
	return errors.As(err, &e)
}

// Args 返回完整的调用参数（含可执行文件本身）。
func (c Compiler) Args(src, out string) []string {
	return []string{c.Bin, src, "-o", out}
}

// CommandLine 把参数拼成一行（用于 trace 输出，不做 shell 转义）。
func CommandLine(args []string) string {
	return strings.Join(args, " ")
}

// Run 启动编译器并等待其退出。
//
// - 进程启动失败：返回 *LaunchError
// - 进程已运行：无论退出码是多少都返回 nil error，退出码放在 Result 中
func (c Compiler) Run(ctx context.Context, src, out string) (Result, error) {
	args := c.Args(src, out)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)

	tail := &tailBuffer{max: diagLimit}
	cmd.Stdout = c.Stdout
	if c.Stderr != nil {
		cmd.Stderr = io.MultiWriter(c.Stderr, tail)
	} else {
		cmd.Stderr = tail
	}

	err := cmd.Run()
	if cmd.ProcessState == nil {
		// 没有 ProcessState 说明进程根本没跑起来。
		if err == nil {
			err = errors.New("进程未启动")
		}
		return Result{ExitCode: -1}, &LaunchError{Bin: c.Bin, Err: err}
	}

	// 进程已退出：退出码是唯一判据（输出转发错误不改变结论）。
	return Result{
		ExitCode:    cmd.ProcessState.ExitCode(),
		Diagnostics: tail.String(),
	}, nil
}

// tailBuffer 只保留最后 max 字节。
type tailBuffer struct {
	mu  sync.Mutex
	max int
	b   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.b = append(t.b, p...)
	if over := len(t.b) - t.max; over > 0 {
		t.b = append(t.b[:0], t.b[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.b))
}
