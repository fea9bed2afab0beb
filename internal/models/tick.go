package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var ErrNotScalar = errors.New("tick value must be a string, number or null")

// Tick 单条价格观测 (producer 提交的原始形态)
// Price/Size 保留原文，数值转换推迟到落盘阶段；镜像照原文写出
type Tick struct {
	Symbol string   `json:"symbol"`
	TS     string   `json:"ts"`
	Price  RawValue `json:"price"`
	Size   RawValue `json:"size,omitempty"`
}

// RawValue 保存 producer 给出的标量原文：数字按字面量，字符串去掉引号，null 为空
type RawValue string

func (v RawValue) String() string { return string(v) }

func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*v = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*v = RawValue(data)
	default:
		return ErrNotScalar
	}
	return nil
}

// MarshalJSON 数字字面量原样输出，其它按字符串输出
func (v RawValue) MarshalJSON() ([]byte, error) {
	if v == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseFloat(string(v), 64); err == nil && json.Valid([]byte(v)) {
		return []byte(v), nil
	}
	return json.Marshal(string(v))
}

// NewTick builds a tick from already-numeric values.
func NewTick(symbol, ts string, price, size float64) Tick {
	return Tick{
		Symbol: symbol,
		TS:     ts,
		Price:  RawValue(strconv.FormatFloat(price, 'f', -1, 64)),
		Size:   RawValue(strconv.FormatFloat(size, 'f', -1, 64)),
	}
}

// MirrorSymbol 返回文件路由用的大写 symbol
func (t Tick) MirrorSymbol() string {
	sym := strings.ToUpper(strings.TrimSpace(t.Symbol))
	if sym == "" {
		return "UNKNOWN"
	}
	return sym
}

// SizeText is the size as written to mirror files.
func (t Tick) SizeText() string {
	if t.Size == "" {
		return "0.0"
	}
	return t.Size.String()
}

// RecentTick is the shape returned by recent-history reads.
type RecentTick struct {
	Symbol string  `db:"symbol" json:"symbol"`
	TS     string  `db:"ts" json:"ts"`
	Price  float64 `db:"price" json:"price"`
	Size   float64 `db:"size" json:"size"`
}
