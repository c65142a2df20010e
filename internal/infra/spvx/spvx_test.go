package spvx

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestParseHeader_RoundTripLittleEndian(t *testing.T) {
	in := Header{Magic: MagicNumber, Version: 0x00010300, Generator: 0x000d000b, Bound: 42}
	b := EncodeHeader(in)
	if len(b) != 20 {
		t.Fatalf("模块头应为 20 字节，实际 %d", len(b))
	}
	// 小端：首字节是 0x03。
	if b[0] != 0x03 || b[3] != 0x07 {
		t.Fatalf("magic 字节序不正确：% x", b[:4])
	}

	got, err := ParseHeader(b)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if got.Swapped || got.Version != in.Version || got.Bound != 42 || got.Generator != in.Generator {
		t.Fatalf("解码结果不一致：%+v", got)
	}
	if got.VersionString() != "1.3" {
		t.Fatalf("期望版本 1.3，实际 %q", got.VersionString())
	}
}

func TestParseHeader_BigEndianWords(t *testing.T) {
	le := EncodeHeader(Header{Magic: MagicNumber, Version: 0x00010000, Bound: 7})
	be := make([]byte, len(le))
	for i := 0; i < len(le); i += 4 {
		be[i], be[i+1], be[i+2], be[i+3] = le[i+3], le[i+2], le[i+1], le[i]
	}

	got, err := ParseHeader(be)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if !got.Swapped || got.Bound != 7 || got.VersionString() != "1.0" {
		t.Fatalf("大端模块解码不正确：%+v", got)
	}
}

func TestParseHeader_Rejects(t *testing.T) {
	if _, err := ParseHeader([]byte{1, 2, 3}); !errors.Is(err, ErrTooShort) {
		t.Fatalf("期望 ErrTooShort，实际 %v", err)
	}

	bad := EncodeHeader(Header{Magic: 0xdeadbeef})
	if _, err := ParseHeader(bad); !errors.Is(err, ErrBadMagic) {
		t.Fatalf("期望 ErrBadMagic，实际 %v", err)
	}

	odd := append(EncodeHeader(Header{Magic: MagicNumber}), 0)
	if _, err := ParseHeader(odd); err == nil {
		t.Fatalf("长度不是 4 的倍数时期望错误")
	}
}

func TestInspectFile_DigestStable(t *testing.T) {
	dir := t.TempDir()
	b := EncodeHeader(Header{Magic: MagicNumber, Version: 0x00010500, Bound: 3})
	p := filepath.Join(dir, "a_vert.spv")
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	info, err := InspectFile(p)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if info.Version != "1.5" || info.Bound != 3 || info.Size != int64(len(b)) {
		t.Fatalf("模块信息不正确：%+v", info)
	}
	if len(info.BLAKE3) != 64 || info.BLAKE3 != Digest(b) {
		t.Fatalf("摘要不正确：%q", info.BLAKE3)
	}
	if Digest(b) == Digest(append(b, 0, 0, 0, 0)) {
		t.Fatalf("不同内容的摘要不应相同")
	}
}
