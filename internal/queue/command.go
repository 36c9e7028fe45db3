package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/taoyao-code/elevator-gateway/internal/protocol/elevator"
)

// Action 命令类型（队列消息的 action 字段）
type Action string

const (
	ActionOpenDoor   Action = "open_door"
	ActionAddCard    Action = "add_card"
	ActionDeleteCard Action = "delete_card"
)

// ExpiryLayout CardInfo.Expiry 的时间格式
const ExpiryLayout = "2006-01-02 15:04"

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrMissingField  = errors.New("missing field")
)

// CardInfo 添加卡请求数据；card_id/card_number/floors/name 由生产方保证必填
type CardInfo struct {
	CardID         int64  `json:"card_id"`
	CardNumber     int64  `json:"card_number"`
	Floors         uint64 `json:"floors"`
	Name           string `json:"name"`
	DoorPermission uint16 `json:"door_permission,omitempty"`
	Expiry         string `json:"expiry,omitempty"` // 例如 "2030-12-31 23:59"
}

// Record 转换为协议卡记录
func (c CardInfo) Record() (elevator.CardRecord, error) {
	rec := elevator.CardRecord{
		CardID:         c.CardID,
		CardNumber:     c.CardNumber,
		Floors:         c.Floors,
		DoorPermission: c.DoorPermission,
		Name:           c.Name,
	}
	if c.Expiry != "" {
		t, err := time.ParseInLocation(ExpiryLayout, c.Expiry, time.Local)
		if err != nil {
			return elevator.CardRecord{}, &elevator.FieldError{Field: "expiry", Err: err}
		}
		rec.Expiry = elevator.ExpiryFromTime(t)
	}
	return rec, nil
}

// Command 队列消息，三选一：
//
//	{"action":"open_door","door":1}
//	{"action":"add_card","data":{...}}
//	{"action":"delete_card","card_id":1}
type Command struct {
	ID         string    `json:"id,omitempty"`
	Action     Action    `json:"action"`
	Door       int       `json:"door,omitempty"`
	Data       *CardInfo `json:"data,omitempty"`
	CardID     int64     `json:"card_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at,omitzero"`
}

// OpenDoor 构造开门命令
func OpenDoor(door int) Command { return Command{Action: ActionOpenDoor, Door: door} }

// AddCard 构造添加卡命令
func AddCard(info CardInfo) Command { return Command{Action: ActionAddCard, Data: &info} }

// DeleteCard 构造删除卡命令
func DeleteCard(cardID int64) Command { return Command{Action: ActionDeleteCard, CardID: cardID} }

// Outbound 按 action 构造下行命令；参数非法时返回错误且不产生任何帧
func (c Command) Outbound() (elevator.Outbound, error) {
	switch c.Action {
	case ActionOpenDoor:
		return elevator.BuildOpenDoor(c.Door)
	case ActionAddCard:
		if c.Data == nil {
			return elevator.Outbound{}, fmt.Errorf("add_card data: %w", ErrMissingField)
		}
		rec, err := c.Data.Record()
		if err != nil {
			return elevator.Outbound{}, err
		}
		return elevator.BuildAddCardExtended(rec)
	case ActionDeleteCard:
		return elevator.BuildDeleteCard(c.CardID)
	default:
		return elevator.Outbound{}, fmt.Errorf("%q: %w", c.Action, ErrUnknownAction)
	}
}
