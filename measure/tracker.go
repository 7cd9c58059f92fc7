package measure

import (
	"strconv"
	"strings"
)

// queryFields 是被跟踪的六条测量查询（规整后精确匹配）到记录字段名的映射。
var queryFields = map[string]string{
	"MEASURE:VOLTAGE? CH1": "ch1_v",
	"MEASURE:CURRENT? CH1": "ch1_i",
	"MEASURE:VOLTAGE? CH2": "ch2_v",
	"MEASURE:CURRENT? CH2": "ch2_i",
	"MEASURE:VOLTAGE? CH3": "ch3_v",
	"MEASURE:CURRENT? CH3": "ch3_i",
}

// RequiredFields 是一条完整记录必须包含的六个字段名。
var RequiredFields = []string{"ch1_v", "ch1_i", "ch2_v", "ch2_i", "ch3_v", "ch3_i"}

// Tracker 按发送顺序登记测量查询的期望字段名，并按 FIFO 将应答配对回去。
// 规则：
// - 链路协议不携带请求标识，配对完全依赖收发顺序
// - 仅在桥接器的串行化区间内访问，自身不加锁
type Tracker struct {
	pending []string
}

// NewTracker 构造一个空的查询跟踪器。
func NewTracker() *Tracker { return &Tracker{} }

// Track 登记一条即将发出的命令。
// 规则：
// - 命令文本 TrimSpace 后转大写，与六条查询模式精确比较
// - 命中时将对应字段名追加到待配对队列，未命中不做任何事
func (t *Tracker) Track(cmd string) {
	field, ok := queryFields[strings.ToUpper(strings.TrimSpace(cmd))]
	if !ok {
		return
	}
	t.pending = append(t.pending, field)
}

// Resolve 将一行应答与最早的待配对查询配对。
// 返回：
// - field/value: 配对出的字段名与解析出的数值
// - ok: 队列为空或应答不是合法数字时为 false
// 规则：
// - 队列为空时不消耗任何状态
// - 应答解析失败时仍然弹出队首（顺序必须保持），但不产生下游更新
func (t *Tracker) Resolve(reply string) (string, float64, bool) {
	if len(t.pending) == 0 {
		return "", 0, false
	}
	field := t.pending[0]
	t.pending = t.pending[1:]
	value, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return "", 0, false
	}
	return field, value, true
}

// Pending 返回当前待配对查询数量。
func (t *Tracker) Pending() int { return len(t.pending) }
