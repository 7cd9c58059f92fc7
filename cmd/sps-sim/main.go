package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"sync"
)

// main 启动 SPS5000X 仪器模拟器。
// 使用说明：
// - 在 TCP 端口上按行应答 SCPI 命令，用于没有真机时联调桥接器
// - 六条 MEASURE 查询返回设定值附近的抖动读数
// - "VOLTAGE CHn,<v>" / "CURRENT CHn,<i>" 调整设定值，其余设置命令静默接受
func main() {
	addr := flag.String("addr", "127.0.0.1:5025", "listen address")
	idn := flag.String("idn", "Siglent Technologies,SPS5051X,SPS5XCAD1R0001,1.0", "*IDN? reply")
	jitter := flag.Float64("jitter", 0.005, "relative reading jitter")
	flag.Parse()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		panic(err)
	}
	fmt.Printf("sps-sim listening on %s\n", ln.Addr())

	sim := newBench(*idn, *jitter)
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		fmt.Printf("client %s connected\n", conn.RemoteAddr())
		go sim.serve(conn)
	}
}

// bench 保存三通道的设定值。
type bench struct {
	idn    string
	jitter float64

	mu      sync.Mutex
	voltage map[string]float64
	current map[string]float64
}

func newBench(idn string, jitter float64) *bench {
	return &bench{
		idn:     idn,
		jitter:  jitter,
		voltage: map[string]float64{"CH1": 12.0, "CH2": 5.0, "CH3": 3.3},
		current: map[string]float64{"CH1": 1.2, "CH2": 0.5, "CH3": 0.1},
	}
}

// serve 按行处理一个连接上的命令，查询才回应答。
func (b *bench) serve(conn net.Conn) {
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		cmd := strings.TrimSpace(sc.Text())
		if cmd == "" {
			continue
		}
		reply, ok := b.handle(cmd)
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(conn, "%s\n", reply); err != nil {
			return
		}
	}
	fmt.Printf("client %s disconnected\n", conn.RemoteAddr())
}

// handle 解析一条命令。
// 返回：
// - string: 应答文本
// - bool: 是否需要应答（非查询不应答）
func (b *bench) handle(cmd string) (string, bool) {
	upper := strings.ToUpper(cmd)
	if upper == "*IDN?" {
		return b.idn, true
	}
	if ch, found := strings.CutPrefix(upper, "MEASURE:VOLTAGE? "); found {
		return b.reading(b.voltage, ch)
	}
	if ch, found := strings.CutPrefix(upper, "MEASURE:CURRENT? "); found {
		return b.reading(b.current, ch)
	}
	if rest, found := strings.CutPrefix(upper, "VOLTAGE "); found {
		b.set(b.voltage, rest)
		return "", false
	}
	if rest, found := strings.CutPrefix(upper, "CURRENT "); found {
		b.set(b.current, rest)
		return "", false
	}
	if strings.Contains(upper, "?") {
		// 未建模的查询回 0，桥接器读回不会卡死
		return "0", true
	}
	return "", false
}

// reading 返回设定值附近的一次抖动读数。
func (b *bench) reading(table map[string]float64, ch string) (string, bool) {
	b.mu.Lock()
	base, ok := table[strings.TrimSpace(ch)]
	b.mu.Unlock()
	if !ok {
		return "0.000", true
	}
	v := base * (1 + b.jitter*(2*rand.Float64()-1))
	return strconv.FormatFloat(v, 'f', 3, 64), true
}

// set 处理 "CHn,<value>" 形式的设定。
func (b *bench) set(table map[string]float64, rest string) {
	ch, val, found := strings.Cut(rest, ",")
	if !found {
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil {
		return
	}
	b.mu.Lock()
	table[strings.TrimSpace(ch)] = v
	b.mu.Unlock()
}
