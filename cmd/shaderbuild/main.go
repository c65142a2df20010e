package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/John-Robertt/shaderbuild/internal/app/run"
	"github.com/John-Robertt/shaderbuild/internal/compiler"
	"github.com/John-Robertt/shaderbuild/internal/config"
	"github.com/John-Robertt/shaderbuild/internal/domain"
	"github.com/John-Robertt/shaderbuild/internal/report"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage(os.Stdout)
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:], os.Stdout, os.Stderr); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage(os.Stderr)
		os.Exit(2)
	}
}

// runCmd 返回进程退出码：0=全部编译成功；1=任一失败（含扫描/启动/配置错误）；2=参数错误。
func runCmd(args []string, stdout, stderr io.Writer) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage(stdout)
			return 0
		}
	}

	cli, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "参数错误：%v\n\n", err)
		printRunUsage(stderr)
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, cli, os.LookupEnv)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	c := compiler.Compiler{
		Bin:    eff.Compiler,
		Stdout: stdout,
		Stderr: stderr,
	}

	progressW, interactive := pickProgressWriter(stderr)
	ui := newTraceUI(stdout, progressW)

	rr := run.ExecuteWithObserver(context.Background(), eff, c, ui)
	ui.Stop()

	code := 0
	if !rr.OK() {
		code = 1
	}

	if eff.ReportPath != "" {
		if err := report.Write(eff.ReportPath, rr); err != nil {
			fmt.Fprintf(stderr, "写入报告失败：%v\n", err)
			code = 1
		} else if interactive {
			fmt.Fprintf(progressW, "report: %s\n", eff.ReportPath)
		}
	}

	emitSummary(stderr, rr)
	return code
}

func parseRunArgs(args []string) (config.CLIArgs, error) {
	var ca config.CLIArgs

	for i := 0; i < len(args); i++ {
		a := args[i]

		name, val, hasVal := strings.Cut(a, "=")
		takeValue := func() (string, error) {
			if hasVal {
				return val, nil
			}
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s 需要一个值", name)
			}
			i++
			return args[i], nil
		}

		switch name {
		case "--glsl-dir", "--output-dir", "--compiler", "--config", "--report":
			v, err := takeValue()
			if err != nil {
				return config.CLIArgs{}, err
			}
			if strings.TrimSpace(v) == "" {
				return config.CLIArgs{}, fmt.Errorf("%s 不能为空", name)
			}
			switch name {
			case "--glsl-dir":
				ca.GLSLDir = v
			case "--output-dir":
				ca.OutputDir = v
			case "--compiler":
				ca.Compiler = v
			case "--config":
				ca.ConfigPath = v
			case "--report":
				ca.Report = v
			}
		case "--concurrency", "-j":
			v, err := takeValue()
			if err != nil {
				return config.CLIArgs{}, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return config.CLIArgs{}, fmt.Errorf("%s 必须是正整数，实际是 %q", name, v)
			}
			ca.Concurrency = n
			ca.ConcurrencySet = true
		case "--verify":
			ca.Verify = true
			if hasVal {
				switch val {
				case "true":
				case "false":
					ca.Verify = false
				default:
					return config.CLIArgs{}, fmt.Errorf("--verify 只能是 true 或 false，实际是 %q", val)
				}
			}
			ca.VerifySet = true
		default:
			if strings.HasPrefix(a, "-") {
				return config.CLIArgs{}, fmt.Errorf("未知参数 %q", a)
			}
			return config.CLIArgs{}, fmt.Errorf("不接受位置参数 %q（请使用 --glsl-dir/--output-dir）", a)
		}
	}

	return ca, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  shaderbuild run [--glsl-dir DIR] [--output-dir DIR] [--compiler PATH] [options]

命令：
  run    扫描 GLSL 源文件并逐个编译为 SPIR-V

使用 "shaderbuild run --help" 查看详细说明。
`)
}

func printRunUsage(w io.Writer) {
	fmt.Fprint(w, `用法：
  shaderbuild run [--glsl-dir DIR] [--output-dir DIR] [--compiler PATH] [options]

参数：
  --glsl-dir DIR      源目录（默认 assets/shaders/glsl；环境变量 SHADERBUILD_GLSL_DIR）
  --output-dir DIR    输出目录，必须已存在（默认 assets/shaders/spir-v；环境变量 SHADERBUILD_OUTPUT_DIR）
  --compiler PATH     编译器（默认 $VULKAN_SDK/bin/glslc，否则 PATH 中的 glslc；环境变量 SHADERBUILD_COMPILER）
  --config FILE       配置文件（默认读取 ./shaderbuild.json，可选）
  -j, --concurrency N 同时运行的编译器进程数（默认 1，逐个编译）
  --verify[=bool]     编译成功后检查产物是否为有效 SPIR-V
  --report FILE       写出运行报告（.html 为 HTML，其余为 JSON）
  -h, --help          显示帮助

优先级：命令行 > 环境变量 > 配置文件 > 默认值。
退出码：0 全部成功；1 任一失败；2 参数错误。
`)
}

func emitSummary(w io.Writer, rr domain.RunReport) {
	fmt.Fprintf(w, "完成：total=%d compiled=%d failed=%d not_run=%d\n",
		rr.Summary.Total, rr.Summary.Compiled, rr.Summary.Failed, rr.Summary.NotRun,
	)
	for _, it := range rr.Items {
		if it.Status == domain.StatusCompiled {
			continue
		}
		key := it.Source
		if key == "" {
			key = rr.GLSLDir
		}
		code := it.ErrorCode
		if code == "" {
			code = it.Status
		}
		fmt.Fprintf(w, "%s %s: %s\n", key, code, firstLine(it.ErrorMsg))
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// pickProgressWriter：进度/配置回显只在 stderr 是交互终端时启用，不污染 stdout 的 trace 行。
func pickProgressWriter(stderr io.Writer) (io.Writer, bool) {
	if isTTY(stderr) {
		return stderr, true
	}
	return nil, false
}
