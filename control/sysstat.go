package control

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
)

// hostSampler 为 /status 提供进程侧的 CPU 与内存读数。
// 规则：
// - CPU 按两次采样间 /proc/stat 的时间片差值计算，首次调用返回 0
// - 读取失败一律按 0 处理，状态接口不因宿主差异报错
type hostSampler struct {
	mu sync.Mutex

	lastTotal uint64
	lastIdle  uint64
}

// sample 返回 CPU 使用率（0~100）与进程堆内存（MB）。
func (h *hostSampler) sample() (cpu, memMB float64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	memMB = float64(ms.Alloc) / (1024 * 1024)

	h.mu.Lock()
	defer h.mu.Unlock()

	total, idle, err := cpuTicks()
	if err != nil {
		return 0, memMB
	}
	if h.lastTotal == 0 {
		h.lastTotal = total
		h.lastIdle = idle
		return 0, memMB
	}
	dt := total - h.lastTotal
	di := idle - h.lastIdle
	h.lastTotal = total
	h.lastIdle = idle
	if dt == 0 {
		return 0, memMB
	}
	busy := float64(dt-di) / float64(dt) * 100
	if busy < 0 {
		return 0, memMB
	}
	if busy > 100 {
		return 100, memMB
	}
	return busy, memMB
}

// cpuTicks 读取 /proc/stat 首行，返回总时间片与空闲时间片。
func cpuTicks() (total, idle uint64, err error) {
	f, err := os.Open("/proc/stat")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		return 0, 0, fmt.Errorf("empty /proc/stat")
	}
	fields := strings.Fields(sc.Text())
	if len(fields) < 5 || fields[0] != "cpu" {
		return 0, 0, fmt.Errorf("invalid /proc/stat header")
	}
	var vals []uint64
	for _, raw := range fields[1:] {
		v, e := strconv.ParseUint(raw, 10, 64)
		if e != nil {
			return 0, 0, e
		}
		vals = append(vals, v)
	}
	for _, v := range vals {
		total += v
	}
	idle = vals[3]
	if len(vals) > 4 {
		idle += vals[4]
	}
	return total, idle, nil
}
