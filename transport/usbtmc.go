package transport

import (
	"os"
	"strings"
	"sync"
	"time"

	bridgeerrors "sps-bridge/errors"
	"sps-bridge/status"
)

const (
	opWrite = iota
	opRead
)

type deviceRequest struct {
	op     int
	data   []byte
	bufLen int
	result chan deviceResult
}

type deviceResult struct {
	data []byte
	err  error
}

// usbtmcTransport 在独立 worker goroutine 上执行设备文件的阻塞读写，
// 保证阻塞的设备系统调用不会卡住任何其它 goroutine。
// 规则：
// - 读超时后放弃等待，worker 迟到的结果被丢弃（设备应答随之丢失）
// - worker 同一时刻只处理一个请求（串行化闸保证不会有并发请求）
type usbtmcTransport struct {
	f         *os.File
	path      string
	bufLen    int
	reqs      chan *deviceRequest
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// OpenUSBTMC 以无缓冲读写方式打开 USBTMC 设备节点并启动 I/O worker。
// 参数：
// - path: 设备节点路径（如 /dev/usbtmc0）
// - readBuffer: 单次设备读取的缓冲区大小
// 返回：
// - Transport: USBTMC 链路实现
// - error: 打开失败原因（权限不足时底层为 fs.ErrPermission，便于上层提示 udev 规则）
func OpenUSBTMC(path string, readBuffer int) (Transport, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, bridgeerrors.Wrap(bridgeerrors.CodeTransportIO, "open usbtmc device", err)
	}
	return newUSBTMC(f, path, readBuffer), nil
}

// newUSBTMC 用已打开的设备文件构造链路（测试可传入管道文件）。
func newUSBTMC(f *os.File, path string, readBuffer int) *usbtmcTransport {
	t := &usbtmcTransport{
		f:      f,
		path:   path,
		bufLen: readBuffer,
		reqs:   make(chan *deviceRequest),
		done:   make(chan struct{}),
	}
	go t.worker()
	return t
}

// worker 串行执行设备阻塞 I/O；结果通道带缓冲，调用方放弃等待也不会卡住 worker。
func (t *usbtmcTransport) worker() {
	for {
		select {
		case <-t.done:
			return
		case req := <-t.reqs:
			switch req.op {
			case opWrite:
				_, err := t.f.Write(req.data)
				req.result <- deviceResult{err: err}
			case opRead:
				buf := make([]byte, req.bufLen)
				n, err := t.f.Read(buf)
				req.result <- deviceResult{data: buf[:n], err: err}
			}
		}
	}
}

// submit 将请求交给 worker。
// 返回：
// - chan deviceResult: 结果通道
// - error: 链路已关闭时的 CodeTransportIO
func (t *usbtmcTransport) submit(req *deviceRequest) (chan deviceResult, error) {
	select {
	case t.reqs <- req:
		return req.result, nil
	case <-t.done:
		return nil, bridgeerrors.New(bridgeerrors.CodeTransportIO, "usbtmc transport closed")
	}
}

// Write 发送一条命令（ASCII，补换行），在 worker 上执行阻塞写。
func (t *usbtmcTransport) Write(line string) error {
	req := &deviceRequest{
		op:     opWrite,
		data:   []byte(line + "\n"),
		result: make(chan deviceResult, 1),
	}
	result, err := t.submit(req)
	if err != nil {
		return err
	}
	select {
	case res := <-result:
		if res.err != nil {
			return bridgeerrors.Wrap(bridgeerrors.CodeTransportIO, "usbtmc write", res.err)
		}
		return nil
	case <-t.done:
		return bridgeerrors.New(bridgeerrors.CodeTransportIO, "usbtmc transport closed")
	}
}

// ReadLine 在 worker 上执行一次阻塞设备读（至多 readBuffer 字节），裁剪为内容行。
// 规则：
// - timeout > 0 且到期时返回 CodeTransportTimeout，迟到的设备结果被丢弃
// - 设备读失败（含 EOF/拔出）返回 CodeTransportIO
func (t *usbtmcTransport) ReadLine(timeout time.Duration) (string, error) {
	req := &deviceRequest{
		op:     opRead,
		bufLen: t.bufLen,
		result: make(chan deviceResult, 1),
	}
	result, err := t.submit(req)
	if err != nil {
		return "", err
	}

	var timer <-chan time.Time
	if timeout > 0 {
		tm := time.NewTimer(timeout)
		defer tm.Stop()
		timer = tm.C
	}

	select {
	case res := <-result:
		if res.err != nil {
			return "", bridgeerrors.Wrap(bridgeerrors.CodeTransportIO, "usbtmc read", res.err)
		}
		return strings.TrimSpace(string(res.data)), nil
	case <-timer:
		return "", bridgeerrors.New(bridgeerrors.CodeTransportTimeout, "usbtmc read timeout")
	case <-t.done:
		return "", bridgeerrors.New(bridgeerrors.CodeTransportIO, "usbtmc transport closed")
	}
}

// Kind 返回链路类型。
func (t *usbtmcTransport) Kind() status.TransportKind { return status.TransportUSBTMC }

// Describe 返回人读的链路描述。
func (t *usbtmcTransport) Describe() string { return "usbtmc: " + t.path }

// Close 关闭设备文件并停止 worker（幂等）。
func (t *usbtmcTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.done)
		t.closeErr = t.f.Close()
	})
	return t.closeErr
}
