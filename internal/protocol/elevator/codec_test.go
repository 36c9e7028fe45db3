package elevator

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode_OpenDoorLiteral(t *testing.T) {
	out, err := BuildOpenDoor(3)
	require.NoError(t, err)

	cs := byte(0x00 ^ 0x2C ^ 0x00 ^ 0x03 ^ 0x00 ^ 0x00)
	want := []byte{0x02, 0x00, 0x2C, 0x00, 0x03, 0x00, 0x00, cs, 0x03}
	assert.Equal(t, want, out.Frame())
	assert.Equal(t, byte(0x2F), cs)
}

func TestEncode_HeartbeatReplyLiteral(t *testing.T) {
	raw := BuildHeartbeatReply().Frame()
	want := []byte{
		0x02, 0x00, 0x56, 0x00, 0x00, 0x08, 0x00,
		0, 0, 0, 0, 0, 0, 0, 0,
		0x56 ^ 0x08, 0x03,
	}
	assert.Equal(t, want, raw)
}

func TestEncode_LengthLowByteFirst(t *testing.T) {
	data := make([]byte, 0x0102)
	raw := Encode(0x01, 0x00, 0x00, data)
	assert.Equal(t, byte(0x02), raw[5])
	assert.Equal(t, byte(0x01), raw[6])
	assert.Len(t, raw, minFrameLen+0x0102)
}

// 往返：decode(encode(x)) == x
func TestDecode_RoundTrip(t *testing.T) {
	big := bytes.Repeat([]byte{0xA5, 0x5A, 0x00, 0xFF}, MaxDataLen/4)
	big = append(big, 0x01, 0x02, 0x03)
	require.Len(t, big, MaxDataLen)

	tests := []struct {
		name string
		cmd  byte
		addr byte
		door byte
		data []byte
	}{
		{"空数据", CmdOpenDoor, 0x00, 0x01, nil},
		{"心跳", CmdHeartbeat, 0x00, 0x00, make([]byte, 8)},
		{"含结束符字节的数据", 0x7F, 0x12, 0x34, []byte{0x03, 0x02, 0x03}},
		{"非零地址", CmdDeleteCard, 0xFE, 0xFF, []byte{0, 0, 0, 1}},
		{"最大长度", CmdAddCardExt, 0x00, 0x00, big},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr, err := Decode(Encode(tt.cmd, tt.addr, tt.door, tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, fr.Cmd)
			assert.Equal(t, tt.addr, fr.Address)
			assert.Equal(t, tt.door, fr.Door)
			assert.Equal(t, len(tt.data), len(fr.Data))
			assert.True(t, bytes.Equal(tt.data, fr.Data))
		})
	}
}

func TestChecksum_SingleByteFlipDetected(t *testing.T) {
	raw := Encode(CmdAddCardExt, 0x00, 0x00, []byte{0x10, 0x20, 0x30, 0x40})
	region := raw[checksumFrom : len(raw)-2]
	base := Checksum(region)
	for i := range region {
		for _, mask := range []byte{0x01, 0x80, 0xFF} {
			mut := append([]byte(nil), region...)
			mut[i] ^= mask
			assert.NotEqual(t, base, Checksum(mut), "index %d mask %#x", i, mask)
		}
	}
}

func TestDecode_CorruptedByteRejected(t *testing.T) {
	raw := Encode(CmdAddCardExt, 0x00, 0x00, []byte{0x10, 0x20, 0x30, 0x40})
	for i := 0; i < len(raw); i++ {
		mut := append([]byte(nil), raw...)
		mut[i] ^= 0x40
		_, err := Decode(mut)
		require.Error(t, err, "flip at %d", i)
		var de *DecodeError
		assert.True(t, errors.As(err, &de))
	}
}

func TestDecode_Errors(t *testing.T) {
	good := Encode(CmdHeartbeat, 0x00, 0x00, make([]byte, 8))

	badTerm := append([]byte(nil), good...)
	badTerm[len(badTerm)-1] = 0x04

	badCS := append([]byte(nil), good...)
	badCS[len(badCS)-2] ^= 0x01

	badStart := append([]byte(nil), good...)
	badStart[0] = 0x55

	badReserved := append([]byte(nil), good...)
	badReserved[1] = 0x01

	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"空缓冲", nil, ErrShortFrame},
		{"不足最小长度", []byte{0x02, 0x00, 0x56}, ErrShortFrame},
		{"结束符前截断", good[:len(good)-1], ErrShortFrame},
		{"声明长度大于数据", good[:len(good)-4], ErrShortFrame},
		{"结束符错误", badTerm, ErrBadTerminator},
		{"校验错误", badCS, ErrChecksum},
		{"起始字节错误", badStart, ErrBadStart},
		{"保留字节错误", badReserved, ErrBadReserved},
		{"尾部多余字节", append(append([]byte(nil), good...), 0x00), ErrBadLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr, err := Decode(tt.raw)
			assert.Nil(t, fr)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecodeAll(t *testing.T) {
	hb := Encode(CmdHeartbeat, 0x00, 0x00, make([]byte, 8))
	ack := BuildAck(CmdOpenDoor, 0x02, true).Frame()

	frames, err := DecodeAll(append(append([]byte(nil), hb...), ack...))
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.True(t, frames[0].IsHeartbeat())
	assert.Equal(t, CmdOpenDoor, frames[1].Cmd)

	// 第二帧被截断：前一帧照常返回，同时报告错误
	frames, err = DecodeAll(append(append([]byte(nil), hb...), ack[:4]...))
	assert.ErrorIs(t, err, ErrShortFrame)
	require.Len(t, frames, 1)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, len(hb), de.Offset)
}

func TestFrameAck(t *testing.T) {
	ok, has := (&Frame{Cmd: CmdOpenDoor, Data: []byte{AckSuccess}}).Ack()
	assert.True(t, has)
	assert.True(t, ok)

	ok, has = (&Frame{Cmd: CmdOpenDoor, Data: []byte{AckFailure}}).Ack()
	assert.True(t, has)
	assert.False(t, ok)

	ok, has = (&Frame{Cmd: CmdOpenDoor, Data: []byte{0x42}}).Ack()
	assert.True(t, has)
	assert.False(t, ok)

	_, has = (&Frame{Cmd: CmdOpenDoor}).Ack()
	assert.False(t, has)
}

func TestCmdName(t *testing.T) {
	assert.Equal(t, "heartbeat", CmdName(CmdHeartbeat))
	assert.Equal(t, "open_door", CmdName(CmdOpenDoor))
	assert.Equal(t, "0x99", CmdName(0x99))
}
