package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusCompiled = "compiled"
	StatusFailed   = "failed"
	// StatusNotRun 表示因启动失败中止整次运行，该着色器没有被尝试。
	StatusNotRun = "not_run"
)

const (
	ErrCodeCompileFailed = "compile_failed"
	ErrCodeLaunchFailed  = "launch_failed"
	ErrCodeScanFailed    = "scan_failed"
	ErrCodeOutputInvalid = "output_invalid"
)

// RunReport 是对外稳定输出（--report 指定的 json/html）的结构。
type RunReport struct {
	GLSLDir     string `json:"glsl_dir"`
	OutputDir   string `json:"output_dir"`
	Compiler    string `json:"compiler"`
	Concurrency int    `json:"concurrency"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Total    int `json:"total"`
	Compiled int `json:"compiled"`
	Failed   int `json:"failed"`
	NotRun   int `json:"not_run"`
}

type ItemResult struct {
	Source string `json:"source"`
	Output string `json:"output"`
	Stage  Stage  `json:"stage"`

	Command []string `json:"command"`

	Status    string `json:"status"`
	ExitCode  int    `json:"exit_code"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Overwrote  bool  `json:"overwrote"`
	DurationMS int64 `json:"duration_ms"`

	// SPIRV 只在编译成功且产物可读时填充。
	SPIRV *ModuleInfo `json:"spirv,omitempty"`
}

// ModuleInfo 是产物的 SPIR-V 头信息与内容摘要。
type ModuleInfo struct {
	Version   string `json:"version"`
	Generator uint32 `json:"generator"`
	Bound     uint32 `json:"bound"`
	Size      int64  `json:"size"`
	BLAKE3    string `json:"blake3"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC
// 2) items 稳定排序：按 source 字典序；source=="" 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Source
		b := r.Items[j].Source
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusCompiled:
			s.Compiled++
		case StatusFailed:
			s.Failed++
		case StatusNotRun:
			s.NotRun++
		}
		if it.Source != "" {
			s.Total++
		}
	}
	r.Summary = s
}

// OK 表示整次运行是否成功：没有失败项，也没有因中止而未执行的项。
// 零个着色器同样视为成功。
func (r RunReport) OK() bool {
	return r.Summary.Failed == 0 && r.Summary.NotRun == 0
}

// MarshalJSON 集中约束输出稳定性：nil slice 输出为 []。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	a := Alias(r)
	a.Items = append([]ItemResult{}, r.Items...)
	for i := range a.Items {
		if a.Items[i].Command == nil {
			a.Items[i].Command = []string{}
		}
	}
	return json.Marshal(a)
}
