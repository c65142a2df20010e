package spvx

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"
	"os"

	"github.com/tchajed/marshal"
	"github.com/zeebo/blake3"

	"github.com/John-Robertt/shaderbuild/internal/domain"
)

// MagicNumber 是 SPIR-V 模块的首个字（按模块自身的字节序存储）。
const MagicNumber uint32 = 0x07230203

const headerSize = 5 * 4

var (
	ErrTooShort = errors.New("spir-v: 文件短于 5 个字的模块头")
	ErrBadMagic = errors.New("spir-v: magic number 不匹配")
)

// Header 是 SPIR-V 模块头：magic, version, generator, bound, schema。
type Header struct {
	Magic     uint32
	Version   uint32
	Generator uint32
	Bound     uint32
	Schema    uint32

	// Swapped 表示模块以大端字存储（解码时已换回主机语义）。
	Swapped bool
}

// ParseHeader 解码模块头。两种字节序都接受；magic 对不上即报错。
func ParseHeader(b []byte) (Header, error) {
	if len(b) < headerSize {
		return Header{}, ErrTooShort
	}
	if len(b)%4 != 0 {
		return Header{}, fmt.Errorf("spir-v: 长度 %d 不是 4 的倍数", len(b))
	}

	dec := marshal.NewDec(b[:headerSize])
	var w [5]uint32
	for i := range w {
		w[i] = dec.GetInt32()
	}

	swapped := false
	if w[0] != MagicNumber {
		if bits.ReverseBytes32(w[0]) != MagicNumber {
			return Header{}, fmt.Errorf("%w：0x%08x", ErrBadMagic, w[0])
		}
		swapped = true
		for i := range w {
			w[i] = bits.ReverseBytes32(w[i])
		}
	}

	return Header{
		Magic:     w[0],
		Version:   w[1],
		Generator: w[2],
		Bound:     w[3],
		Schema:    w[4],
		Swapped:   swapped,
	}, nil
}

// EncodeHeader 按小端字写出模块头。
func EncodeHeader(h Header) []byte {
	enc := marshal.NewEnc(headerSize)
	enc.PutInt32(h.Magic)
	enc.PutInt32(h.Version)
	enc.PutInt32(h.Generator)
	enc.PutInt32(h.Bound)
	enc.PutInt32(h.Schema)
	return enc.Finish()
}

// VersionString 把版本字格式化为 "major.minor"（0x00010300 -> "1.3"）。
func (h Header) VersionString() string {
	return fmt.Sprintf("%d.%d", (h.Version>>16)&0xff, (h.Version>>8)&0xff)
}

// Digest 返回内容的 BLAKE3-256 十六进制摘要。只用于报告，不参与任何跳过判断。
func Digest(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Inspect 解析产物内容并生成报告用的模块信息。
func Inspect(b []byte) (domain.ModuleInfo, error) {
	h, err := ParseHeader(b)
	if err != nil {
		return domain.ModuleInfo{}, err
	}
	return domain.ModuleInfo{
		Version:   h.VersionString(),
		Generator: h.Generator,
		Bound:     h.Bound,
		Size:      int64(len(b)),
		BLAKE3:    Digest(b),
	}, nil
}

// InspectFile 读取 path 并调用 Inspect。
func InspectFile(path string) (domain.ModuleInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.ModuleInfo{}, err
	}
	return Inspect(b)
}
