package elevator

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
)

// 0xC1 卡记录各字段宽度
const (
	cardIDLen     = 3
	cardNumberLen = 4
	qrCodeLen     = 9
	idCardLen     = 18
	passwordLen   = 4
	floorsLen     = 8
	permLen       = 2
	expiryLen     = 5
	nameLen       = 8

	// CardRecordLen 3+4+9+18+4+8+2+5+8
	CardRecordLen = cardIDLen + cardNumberLen + qrCodeLen + idCardLen + passwordLen +
		floorsLen + permLen + expiryLen + nameLen

	// MaxCardID card_id 为3字节无符号
	MaxCardID = 1<<24 - 1
	// MaxCardNumber card_number 为4字节无符号
	MaxCardNumber = 1<<32 - 1

	// DefaultDoorPermission 默认时段组1
	DefaultDoorPermission uint16 = 0x0001
)

var (
	ErrOutOfRange   = errors.New("value out of range")
	ErrNameTooLong  = errors.New("name exceeds 8 bytes")
	ErrNameEncoding = errors.New("name not representable in GB2312")
)

// FieldError 卡记录字段错误
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("card field %s: %v", e.Field, e.Err) }

func (e *FieldError) Unwrap() error { return e.Err }

// Expiry 有效期（年为 2000 起的偏移，逐字节编码）
type Expiry struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
}

// DefaultExpiry 2030-12-31 23:59
var DefaultExpiry = Expiry{Year: 2030, Month: 12, Day: 31, Hour: 23, Minute: 59}

// ExpiryFromTime 取本地时间的年月日时分
func ExpiryFromTime(t time.Time) Expiry {
	return Expiry{Year: t.Year(), Month: int(t.Month()), Day: t.Day(), Hour: t.Hour(), Minute: t.Minute()}
}

// IsZero 未设置
func (e Expiry) IsZero() bool { return e == Expiry{} }

func (e Expiry) encode() ([expiryLen]byte, error) {
	var out [expiryLen]byte
	if e.Year < 2000 || e.Year > 2255 ||
		e.Month < 1 || e.Month > 12 ||
		e.Day < 1 || e.Day > 31 ||
		e.Hour < 0 || e.Hour > 23 ||
		e.Minute < 0 || e.Minute > 59 {
		return out, &FieldError{Field: "expiry", Err: ErrOutOfRange}
	}
	// 2月31日之类会被 time.Date 顺延到下月
	if time.Date(e.Year, time.Month(e.Month), e.Day, 0, 0, 0, 0, time.UTC).Day() != e.Day {
		return out, &FieldError{Field: "expiry", Err: ErrOutOfRange}
	}
	out = [expiryLen]byte{byte(e.Year - 2000), byte(e.Month), byte(e.Day), byte(e.Hour), byte(e.Minute)}
	return out, nil
}

// CardRecord 卡登记记录（0xC1 数据区）
// QR码、身份证号保留填0；密码固定 FFFFFFFF 表示未设置。
type CardRecord struct {
	CardID         int64
	CardNumber     int64
	Floors         uint64 // bit n => n+1 层
	DoorPermission uint16 // 0 => DefaultDoorPermission
	Expiry         Expiry // 零值 => DefaultExpiry
	Name           string
}

// MarshalBinary 按固定宽度编码为 61 字节；任何字段非法都返回 *FieldError，不输出半截数据
func (c CardRecord) MarshalBinary() ([]byte, error) {
	if c.CardID < 0 || c.CardID > MaxCardID {
		return nil, &FieldError{Field: "card_id", Err: ErrOutOfRange}
	}
	if c.CardNumber < 0 || c.CardNumber > MaxCardNumber {
		return nil, &FieldError{Field: "card_number", Err: ErrOutOfRange}
	}
	exp := c.Expiry
	if exp.IsZero() {
		exp = DefaultExpiry
	}
	expBytes, err := exp.encode()
	if err != nil {
		return nil, err
	}
	name, err := EncodeName(c.Name)
	if err != nil {
		return nil, err
	}
	perm := c.DoorPermission
	if perm == 0 {
		perm = DefaultDoorPermission
	}

	buf := make([]byte, CardRecordLen)
	off := 0
	// 卡ID（3字节，小端）
	buf[0], buf[1], buf[2] = byte(c.CardID), byte(c.CardID>>8), byte(c.CardID>>16)
	off += cardIDLen
	// 卡号（4字节，小端）
	binary.LittleEndian.PutUint32(buf[off:], uint32(c.CardNumber))
	off += cardNumberLen
	// QR码 + 身份证号，保留
	off += qrCodeLen + idCardLen
	// 密码
	binary.LittleEndian.PutUint32(buf[off:], 0xFFFFFFFF)
	off += passwordLen
	// 楼层位图（8字节，小端）
	binary.LittleEndian.PutUint64(buf[off:], c.Floors)
	off += floorsLen
	// 门权限/时段
	binary.LittleEndian.PutUint16(buf[off:], perm)
	off += permLen
	copy(buf[off:], expBytes[:])
	off += expiryLen
	copy(buf[off:], name[:])
	return buf, nil
}

// EncodeName 姓名编码为 GB2312，右侧补0至8字节。
// 放不下或含 GB2312 之外的字符直接报错，不截断。
func EncodeName(name string) ([nameLen]byte, error) {
	var out [nameLen]byte
	enc, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return out, &FieldError{Field: "name", Err: ErrNameEncoding}
	}
	if !isGB2312(enc) {
		return out, &FieldError{Field: "name", Err: ErrNameEncoding}
	}
	if len(enc) > nameLen {
		return out, &FieldError{Field: "name", Err: ErrNameTooLong}
	}
	copy(out[:], enc)
	return out, nil
}

// isGB2312 GBK 编码结果是否落在 GB2312 区位（高字节 A1-F7，低字节 A1-FE）
func isGB2312(b []byte) bool {
	for i := 0; i < len(b); i++ {
		if b[i] < 0x80 {
			continue
		}
		if i+1 >= len(b) {
			return false
		}
		hi, lo := b[i], b[i+1]
		if hi < 0xA1 || hi > 0xF7 || lo < 0xA1 || lo > 0xFE {
			return false
		}
		i++
	}
	return true
}

// DecodeName 解码8字节姓名字段（去掉尾部0）
func DecodeName(b []byte) (string, error) {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	out, err := simplifiedchinese.GBK.NewDecoder().Bytes(b[:end])
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ParseCardRecord 解析 0xC1 数据区（模拟器与测试使用）
func ParseCardRecord(data []byte) (CardRecord, error) {
	if len(data) != CardRecordLen {
		return CardRecord{}, fmt.Errorf("card record length %d, want %d: %w", len(data), CardRecordLen, ErrBadLength)
	}
	var c CardRecord
	c.CardID = int64(data[0]) | int64(data[1])<<8 | int64(data[2])<<16
	off := cardIDLen
	c.CardNumber = int64(binary.LittleEndian.Uint32(data[off:]))
	off += cardNumberLen + qrCodeLen + idCardLen + passwordLen
	c.Floors = binary.LittleEndian.Uint64(data[off:])
	off += floorsLen
	c.DoorPermission = binary.LittleEndian.Uint16(data[off:])
	off += permLen
	e := data[off : off+expiryLen]
	c.Expiry = Expiry{Year: 2000 + int(e[0]), Month: int(e[1]), Day: int(e[2]), Hour: int(e[3]), Minute: int(e[4])}
	off += expiryLen
	name, err := DecodeName(data[off : off+nameLen])
	if err != nil {
		return CardRecord{}, &FieldError{Field: "name", Err: ErrNameEncoding}
	}
	c.Name = name
	return c, nil
}
