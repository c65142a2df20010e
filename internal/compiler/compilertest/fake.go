// Package compilertest 提供一个假的 glslc：测试二进制在环境变量开启时把自己当作编译器执行。
//
// 用法：
//
//	func TestMain(m *testing.M) {
//		compilertest.MaybeRun()
//		os.Exit(m.Run())
//	}
//
// 然后把 compilertest.Bin() 作为编译器路径，并用 Enable 打开开关。
package compilertest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/John-Robertt/shaderbuild/internal/infra/spvx"
)

const (
	// EnvFake 为 "1" 时，测试二进制表现为编译器。
	EnvFake = "SHADERBUILD_FAKE_GLSLC"
	// EnvFail 是逗号分隔的源文件名（例如 "b.glsl"），命中时以退出码 1 失败。
	EnvFail = "SHADERBUILD_FAKE_FAIL"
	// EnvGarbage 是逗号分隔的源文件名，命中时退出码 0 但写出非 SPIR-V 内容。
	EnvGarbage = "SHADERBUILD_FAKE_GARBAGE"
	// EnvLog 指向一个文件，每次调用追加一行源文件名。
	EnvLog = "SHADERBUILD_FAKE_LOG"
)

// MaybeRun 在 EnvFake=1 时执行假编译器并退出进程；否则直接返回。
func MaybeRun() {
	if os.Getenv(EnvFake) != "1" {
		return
	}
	os.Exit(fakeMain(os.Args[1:]))
}

// Bin 返回假编译器的可执行文件路径（即当前测试二进制）。
func Bin() string { return os.Args[0] }

// Enable 打开假编译器，并返回调用日志文件路径。
func Enable(t *testing.T) string {
	t.Helper()
	log := filepath.Join(t.TempDir(), "invocations.log")
	t.Setenv(EnvFake, "1")
	t.Setenv(EnvLog, log)
	t.Setenv(EnvFail, "")
	t.Setenv(EnvGarbage, "")
	return log
}

// Invocations 读取调用日志（每行一个源文件名，按调用顺序）。
func Invocations(t *testing.T, log string) []string {
	t.Helper()
	b, err := os.ReadFile(log)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("读取调用日志失败：%v", err)
	}
	var out []string
	for _, line := range strings.Split(string(b), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func fakeMain(args []string) int {
	if len(args) != 3 || args[1] != "-o" {
		fmt.Fprintf(os.Stderr, "glslc: usage: <src> -o <out>, got %q\n", args)
		return 2
	}
	src, out := args[0], args[2]
	name := filepath.Base(src)

	if log := os.Getenv(EnvLog); log != "" {
		f, err := os.OpenFile(log, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintln(f, name)
			_ = f.Close()
		}
	}

	if _, err := os.Stat(src); err != nil {
		fmt.Fprintf(os.Stderr, "glslc: error: cannot open input file: '%s'\n", src)
		return 1
	}
	if inList(os.Getenv(EnvFail), name) {
		fmt.Fprintf(os.Stderr, "%s:1: error: '' : syntax error\n1 error generated.\n", src)
		return 1
	}

	data := spvx.EncodeHeader(spvx.Header{Magic: spvx.MagicNumber, Version: 0x00010000, Bound: 8})
	if inList(os.Getenv(EnvGarbage), name) {
		data = []byte("not spir-v")
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "glslc: error: cannot open output file: '%s'\n", out)
		return 1
	}
	return 0
}

func inList(list, name string) bool {
	for _, x := range strings.Split(list, ",") {
		if strings.TrimSpace(x) == name {
			return true
		}
	}
	return false
}
