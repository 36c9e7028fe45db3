package elevator

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrInvalidDoor   = errors.New("invalid door")
	ErrInvalidCardID = errors.New("invalid card id")
)

// MaxDeleteCardID 删除卡使用4字节大端卡ID
const MaxDeleteCardID = 1<<32 - 1

// Outbound 一条待编码的下行命令
type Outbound struct {
	Cmd     byte
	Address byte
	Door    byte
	Data    []byte
}

// Frame 编码为线上字节
func (o Outbound) Frame() []byte {
	return Encode(o.Cmd, o.Address, o.Door, o.Data)
}

// BuildOpenDoor 0x2C 远程开门，无数据区；door 即继电器号（1 => 继电器1）
func BuildOpenDoor(doorID int) (Outbound, error) {
	if doorID < 1 || doorID > 0xFF {
		return Outbound{}, fmt.Errorf("open door %d: %w", doorID, ErrInvalidDoor)
	}
	return Outbound{Cmd: CmdOpenDoor, Address: DefaultAddress, Door: byte(doorID)}, nil
}

// BuildAddCardExtended 0xC1 添加卡，数据区为 61 字节卡记录
func BuildAddCardExtended(card CardRecord) (Outbound, error) {
	data, err := card.MarshalBinary()
	if err != nil {
		return Outbound{}, fmt.Errorf("add card %d: %w", card.CardID, err)
	}
	return Outbound{Cmd: CmdAddCardExt, Address: DefaultAddress, Door: 0x00, Data: data}, nil
}

// BuildDeleteCard 0x15 删除卡。
// 注意卡ID为4字节大端，与 0xC1 中3字节小端的 card_id 不同，协议如此。
func BuildDeleteCard(cardID int64) (Outbound, error) {
	if cardID < 1 || cardID > MaxDeleteCardID {
		return Outbound{}, fmt.Errorf("delete card %d: %w", cardID, ErrInvalidCardID)
	}
	data := make([]byte, 4)
	binary.BigEndian.PutUint32(data, uint32(cardID))
	return Outbound{Cmd: CmdDeleteCard, Address: DefaultAddress, Door: 0x00, Data: data}, nil
}

// BuildHeartbeatReply 0x56 心跳应答：保留2 + 保留2 + pull_id(4)=0，表示无待下发命令。
// 长度字节与普通下行帧同为低字节在前。
func BuildHeartbeatReply() Outbound {
	return Outbound{Cmd: CmdHeartbeat, Address: DefaultAddress, Door: 0x00, Data: make([]byte, 8)}
}

// BuildAck 设备侧应答帧（模拟器使用）
func BuildAck(cmd, door byte, success bool) Outbound {
	code := AckSuccess
	if !success {
		code = AckFailure
	}
	return Outbound{Cmd: cmd, Address: DefaultAddress, Door: door, Data: []byte{code}}
}
