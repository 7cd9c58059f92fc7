package measure

// Record 是一条完整的六字段测量记录（发出后不再修改）。
type Record map[string]float64

// Collector 按字段累积配对结果，六个必需字段齐全时产出一条完整记录并清空。
// 规则：
// - 部分状态对外不可见，不会产出不完整记录
// - 仅在桥接器的串行化区间内访问，自身不加锁
type Collector struct {
	partial map[string]float64
}

// NewCollector 构造一个空的测量聚合器。
func NewCollector() *Collector {
	return &Collector{partial: make(map[string]float64, len(RequiredFields))}
}

// Add 写入一个字段值，并在六字段齐全时产出记录。
// 参数：
// - field: 字段名（来自 Tracker 的配对结果，域内保证合法）
// - value: 数值，按线缆原值存储，不做舍入与单位换算
// 返回：
// - Record: 字段齐全时的完整记录副本，未齐全时为 nil
// - bool: 是否产出了记录；产出即清空内部累积
func (c *Collector) Add(field string, value float64) (Record, bool) {
	c.partial[field] = value
	for _, f := range RequiredFields {
		if _, ok := c.partial[f]; !ok {
			return nil, false
		}
	}
	rec := make(Record, len(c.partial))
	for k, v := range c.partial {
		rec[k] = v
	}
	c.partial = make(map[string]float64, len(RequiredFields))
	return rec, true
}

// Len 返回当前部分记录中已累积的字段数。
func (c *Collector) Len() int { return len(c.partial) }
