package elevator

import (
	"errors"
	"fmt"
)

var (
	ErrShortFrame    = errors.New("short frame")
	ErrBadStart      = errors.New("bad start byte")
	ErrBadReserved   = errors.New("bad reserved byte")
	ErrBadLength     = errors.New("bad length")
	ErrBadTerminator = errors.New("bad terminator")
	ErrChecksum      = errors.New("checksum mismatch")
)

// DecodeError 解码失败详情，Unwrap 为上面的哨兵错误
type DecodeError struct {
	Err    error
	Offset int // 出错帧在缓冲区中的起始位置
	Len    int // 缓冲区剩余长度
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode frame at offset %d (%d bytes): %v", e.Offset, e.Len, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Checksum 异或校验
func Checksum(b []byte) byte {
	var cs byte
	for _, v := range b {
		cs ^= v
	}
	return cs
}

// checksumFrom 校验覆盖范围起点：偏移1（保留字节）至数据区末尾，不含 STX
const checksumFrom = 1

// Encode 构造完整下行帧。len(data) <= MaxDataLen 由调用方保证。
func Encode(cmd, addr, door byte, data []byte) []byte {
	n := len(data)
	buf := make([]byte, 0, minFrameLen+n)
	buf = append(buf, stx, reserved, cmd, addr, door, byte(n), byte(n>>8))
	buf = append(buf, data...)
	buf = append(buf, Checksum(buf[checksumFrom:]), etx)
	return buf
}

// Decode 严格解析单帧：起始/保留字节、长度、结束符、校验
func Decode(raw []byte) (*Frame, error) {
	fr, n, err := decodeAt(raw, 0)
	if err != nil {
		return nil, err
	}
	if n != len(raw) {
		return nil, &DecodeError{Err: ErrBadLength, Offset: 0, Len: len(raw)}
	}
	return fr, nil
}

// DecodeAll 解析一次读取中首尾相连的多帧。
// 末尾残帧视为截断错误，不做重新同步。
func DecodeAll(raw []byte) ([]*Frame, error) {
	frames := make([]*Frame, 0, 1)
	off := 0
	for off < len(raw) {
		fr, n, err := decodeAt(raw[off:], off)
		if err != nil {
			return frames, err
		}
		frames = append(frames, fr)
		off += n
	}
	return frames, nil
}

// decodeAt 从 b 头部解析一帧，返回帧与消耗字节数
func decodeAt(b []byte, base int) (*Frame, int, error) {
	fail := func(err error) (*Frame, int, error) {
		return nil, 0, &DecodeError{Err: err, Offset: base, Len: len(b)}
	}
	if len(b) < minFrameLen {
		return fail(ErrShortFrame)
	}
	if b[0] != stx {
		return fail(ErrBadStart)
	}
	if b[1] != reserved {
		return fail(ErrBadReserved)
	}
	dataLen := int(b[5]) | int(b[6])<<8
	total := minFrameLen + dataLen
	if len(b) < total {
		return fail(ErrShortFrame)
	}
	if b[total-1] != etx {
		return fail(ErrBadTerminator)
	}
	if Checksum(b[checksumFrom:total-2]) != b[total-2] {
		return fail(ErrChecksum)
	}
	data := make([]byte, dataLen)
	copy(data, b[headerLen:headerLen+dataLen])
	return &Frame{Cmd: b[2], Address: b[3], Door: b[4], Data: data}, total, nil
}
