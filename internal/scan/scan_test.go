package scan

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestScanShaders_FilterByExt(t *testing.T) {
	root := t.TempDir()
	glsl := filepath.Join(root, "glsl")
	out := filepath.Join(root, "spir-v")

	touch(t, filepath.Join(glsl, "a.vert"))
	touch(t, filepath.Join(glsl, "a.frag"))
	touch(t, filepath.Join(glsl, "readme.txt"))
	touch(t, filepath.Join(glsl, "noext"))

	got, err := ScanShaders(glsl, out)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("期望 2 个着色器，实际 %d：%+v", len(got), got)
	}

	// 按文件名排序：a.frag 在 a.vert 之前。
	if got[0].Name != "a.frag" || got[1].Name != "a.vert" {
		t.Fatalf("顺序不符合预期：%q %q", got[0].Name, got[1].Name)
	}
	if got[0].OutAbs != filepath.Join(out, "a_frag.spv") {
		t.Fatalf("产物路径不正确：%q", got[0].OutAbs)
	}
	if got[1].OutName != "a_vert.spv" || got[1].SrcAbs != filepath.Join(glsl, "a.vert") {
		t.Fatalf("文件信息不正确：%+v", got[1])
	}
}

func TestScanShaders_ExtCaseSensitive(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "X.FRAG"))
	touch(t, filepath.Join(root, "y.Glsl"))

	got, err := ScanShaders(root, root)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 0 {
		t.Fatalf("大写扩展名不应被选中，实际 %+v", got)
	}
}

func TestScanShaders_SkipDirsAndNoRecursion(t *testing.T) {
	root := t.TempDir()

	// 名字像着色器的目录必须忽略；子目录里的文件也不参与。
	if err := os.MkdirAll(filepath.Join(root, "fake.vert"), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	touch(t, filepath.Join(root, "sub", "deep.frag"))
	touch(t, filepath.Join(root, "top.glsl"))

	got, err := ScanShaders(root, root)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 || got[0].Name != "top.glsl" {
		t.Fatalf("期望只有 top.glsl，实际 %+v", got)
	}
}

func TestScanShaders_FollowSymlinkToFile(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("windows 上创建符号链接需要额外权限")
	}
	root := t.TempDir()
	target := filepath.Join(root, "real", "lit.frag")
	touch(t, target)

	glsl := filepath.Join(root, "glsl")
	if err := os.MkdirAll(glsl, 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.Symlink(target, filepath.Join(glsl, "lit.frag")); err != nil {
		t.Fatalf("创建符号链接失败：%v", err)
	}
	if err := os.Symlink(filepath.Join(root, "missing.vert"), filepath.Join(glsl, "dangling.vert")); err != nil {
		t.Fatalf("创建符号链接失败：%v", err)
	}

	got, err := ScanShaders(glsl, root)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if len(got) != 1 || got[0].Name != "lit.frag" {
		t.Fatalf("期望只有 lit.frag，实际 %+v", got)
	}
}

func TestScanShaders_MissingDir(t *testing.T) {
	_, err := ScanShaders(filepath.Join(t.TempDir(), "nope"), t.TempDir())
	if err == nil {
		t.Fatalf("源目录不存在时期望错误")
	}
	if !os.IsNotExist(err) {
		t.Fatalf("期望 not-exist 错误，实际：%v", err)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("创建目录失败：%v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
}
