package planner

import (
	"os"
	"sort"

	"github.com/John-Robertt/shaderbuild/internal/domain"
)

// ReadOutState 读取输出目录的现状（只做 ReadDir，不读文件内容）。
// 若 outDir 不存在，返回 Exists=false 的空状态且不报错：缺失的输出目录由编译器自己报错。
func ReadOutState(outDir string) (domain.OutState, error) {
	st := domain.OutState{
		OutDir:        outDir,
		ExistingNames: map[string]struct{}{},
	}

	entries, err := os.ReadDir(outDir)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return domain.OutState{}, err
	}

	st.Exists = true
	for _, e := range entries {
		st.ExistingNames[e.Name()] = struct{}{}
	}
	return st, nil
}

// Plan 基于扫描结果 + OutState 生成确定性的执行计划（不做任何写入）。
func Plan(files []domain.ShaderFile, st domain.OutState) []domain.CompileJob {
	jobs := make([]domain.CompileJob, 0, len(files))
	for _, f := range files {
		_, exists := st.ExistingNames[f.OutName]
		jobs = append(jobs, domain.CompileJob{
			File:      f,
			Overwrite: exists,
		})
	}
	SortJobs(jobs)
	return jobs
}

// SortJobs 让上层在需要时可显式保证稳定顺序（按源文件名）。
func SortJobs(jobs []domain.CompileJob) {
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].File.Name < jobs[j].File.Name })
}

// CountStages 统计各阶段的着色器数量（用于规划阶段的展示）。
func CountStages(jobs []domain.CompileJob) map[domain.Stage]int {
	out := make(map[domain.Stage]int, 3)
	for _, j := range jobs {
		out[j.File.Stage]++
	}
	return out
}
