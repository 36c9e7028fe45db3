package elevator

import "fmt"

// Frame 梯控/门禁控制器协议帧
// 布局：STX(0x02) | 保留(0x00) | cmd[1] | addr[1] | door[1] | lenL | lenH | data[len] | cs[1] | ETX(0x03)
// cs 为保留字节到 data 末尾所有字节的异或（偏移 1..7+len-1）
type Frame struct {
	Cmd     byte
	Address byte
	Door    byte
	Data    []byte
}

const (
	stx      byte = 0x02
	reserved byte = 0x00
	etx      byte = 0x03

	// headerLen STX..lenH 共7字节
	headerLen = 7
	// minFrameLen 头部 + 校验 + 结束符
	minFrameLen = headerLen + 2

	// MaxDataLen 数据区长度上限（2字节长度字段）
	MaxDataLen = 0xFFFF
)

// 命令码
const (
	CmdOpenDoor   byte = 0x2C // 远程开门
	CmdAddCardExt byte = 0xC1 // 添加卡（扩展）
	CmdDeleteCard byte = 0x15 // 删除卡
	CmdHeartbeat  byte = 0x56 // 心跳（设备主动上报）
)

// DefaultAddress 单控制器部署地址固定为0
const DefaultAddress byte = 0x00

// 应答首字节
const (
	AckSuccess byte = 0x06
	AckFailure byte = 0x15
)

// IsHeartbeat 是否为设备心跳
func (f *Frame) IsHeartbeat() bool { return f.Cmd == CmdHeartbeat }

// Ack 按应答约定解析首个数据字节：0x06 成功，其余均视为失败。
// 数据区为空时 ok=false。
func (f *Frame) Ack() (success bool, ok bool) {
	if len(f.Data) == 0 {
		return false, false
	}
	return f.Data[0] == AckSuccess, true
}

// Bytes 重新编码为线上字节
func (f *Frame) Bytes() []byte {
	return Encode(f.Cmd, f.Address, f.Door, f.Data)
}

// CmdName 命令码可读名称（日志/指标标签）
func CmdName(cmd byte) string {
	switch cmd {
	case CmdOpenDoor:
		return "open_door"
	case CmdAddCardExt:
		return "add_card"
	case CmdDeleteCard:
		return "delete_card"
	case CmdHeartbeat:
		return "heartbeat"
	default:
		return fmt.Sprintf("0x%02X", cmd)
	}
}
