package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/John-Robertt/shaderbuild/internal/compiler/compilertest"
	"github.com/John-Robertt/shaderbuild/internal/config"
	"github.com/John-Robertt/shaderbuild/internal/domain"
)

func TestMain(m *testing.M) {
	compilertest.MaybeRun()
	os.Exit(m.Run())
}

func setupShaders(t *testing.T, names ...string) (glsl, out string) {
	t.Helper()
	root := t.TempDir()
	glsl = filepath.Join(root, "assets", "shaders", "glsl")
	out = filepath.Join(root, "assets", "shaders", "spir-v")
	for _, d := range []string{glsl, out} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("创建目录失败：%v", err)
		}
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(glsl, n), []byte("void main() {}\n"), 0o644); err != nil {
			t.Fatalf("写入文件失败：%v", err)
		}
	}
	return glsl, out
}

func TestRunCmd_TraceLinesOnStdout(t *testing.T) {
	compilertest.Enable(t)
	glsl, out := setupShaders(t, "triangle.vert", "triangle.frag", "readme.txt")
	bin := compilertest.Bin()

	var stdout, stderr bytes.Buffer
	code := runCmd([]string{"--glsl-dir", glsl, "--output-dir=" + out, "--compiler", bin}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr.String())
	}

	want := []string{
		"Running '" + bin + " " + filepath.Join(glsl, "triangle.frag") + " -o " + filepath.Join(out, "triangle_frag.spv") + "'...",
		"Running '" + bin + " " + filepath.Join(glsl, "triangle.vert") + " -o " + filepath.Join(out, "triangle_vert.spv") + "'...",
	}
	got := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("stdout trace 不符合约定：\ngot=%q\nwant=%q", got, want)
	}
	if !strings.Contains(stderr.String(), "完成：total=2 compiled=2 failed=0 not_run=0") {
		t.Fatalf("stderr 缺少完成摘要：%q", stderr.String())
	}
}

func TestRunCmd_FailurePropagatesExitCode(t *testing.T) {
	compilertest.Enable(t)
	t.Setenv(compilertest.EnvFail, "b.glsl")
	glsl, out := setupShaders(t, "a.vert", "b.glsl")

	var stdout, stderr bytes.Buffer
	code := runCmd([]string{"--glsl-dir", glsl, "--output-dir", out, "--compiler", compilertest.Bin()}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("存在编译失败时期望退出码 1，实际 %d", code)
	}
	if strings.Count(stdout.String(), "Running '") != 2 {
		t.Fatalf("失败的着色器也必须被尝试：%q", stdout.String())
	}
	// 编译器自己的诊断原样出现在 stderr。
	if !strings.Contains(stderr.String(), "syntax error") {
		t.Fatalf("stderr 缺少编译器诊断：%q", stderr.String())
	}
	if !strings.Contains(stderr.String(), domain.ErrCodeCompileFailed) {
		t.Fatalf("stderr 缺少失败条目：%q", stderr.String())
	}
}

func TestRunCmd_MissingSourceDir(t *testing.T) {
	_, out := setupShaders(t)

	var stdout, stderr bytes.Buffer
	code := runCmd([]string{"--glsl-dir", filepath.Join(out, "nope"), "--output-dir", out, "--compiler", compilertest.Bin()}, &stdout, &stderr)
	if code != 1 {
		t.Fatalf("期望退出码 1，实际 %d", code)
	}
	if stdout.Len() != 0 {
		t.Fatalf("扫描失败时不应有 trace：%q", stdout.String())
	}
	if !strings.Contains(stderr.String(), domain.ErrCodeScanFailed) {
		t.Fatalf("stderr 缺少 scan_failed：%q", stderr.String())
	}
}

func TestRunCmd_EnvConfigAndReport(t *testing.T) {
	compilertest.Enable(t)
	glsl, out := setupShaders(t, "a.vert")
	t.Setenv(config.EnvGLSLDir, glsl)
	t.Setenv(config.EnvOutputDir, out)
	t.Setenv(config.EnvCompiler, compilertest.Bin())

	reportPath := filepath.Join(t.TempDir(), "report.json")

	var stdout, stderr bytes.Buffer
	code := runCmd([]string{"--report", reportPath, "--verify", "-j", "2"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("期望退出码 0，实际 %d\nstderr=%s", code, stderr.String())
	}

	b, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("期望写出报告：%v", err)
	}
	var rr domain.RunReport
	if err := json.Unmarshal(b, &rr); err != nil {
		t.Fatalf("报告不是合法 JSON：%v", err)
	}
	if rr.GLSLDir != glsl || rr.Concurrency != 2 || rr.Summary.Compiled != 1 {
		t.Fatalf("报告内容不正确：%+v", rr)
	}
	if rr.Items[0].SPIRV == nil {
		t.Fatalf("报告应包含 SPIR-V 信息")
	}
}

func TestRunCmd_UsageErrors(t *testing.T) {
	cases := [][]string{
		{"--concurrency", "0"},
		{"--glsl-dir"},
		{"--verify=maybe"},
		{"--nope"},
		{"assets"},
	}
	for _, args := range cases {
		var stdout, stderr bytes.Buffer
		if code := runCmd(args, &stdout, &stderr); code != 2 {
			t.Fatalf("args=%q 期望退出码 2，实际 %d", args, code)
		}
	}
}

func TestParseRunArgs(t *testing.T) {
	ca, err := parseRunArgs([]string{
		"--glsl-dir=src", "--output-dir", "bin", "--compiler", "/sdk/bin/glslc",
		"--config", "b.json", "--report=r.html", "--concurrency=3", "--verify=false",
	})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	want := config.CLIArgs{
		ConfigPath:     "b.json",
		GLSLDir:        "src",
		OutputDir:      "bin",
		Compiler:       "/sdk/bin/glslc",
		Concurrency:    3,
		ConcurrencySet: true,
		Verify:         false,
		VerifySet:      true,
		Report:         "r.html",
	}
	if ca != want {
		t.Fatalf("解析结果不正确：\ngot=%+v\nwant=%+v", ca, want)
	}
}
