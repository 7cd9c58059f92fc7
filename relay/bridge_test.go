package relay

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"sps-bridge/errors"
	"sps-bridge/status"
	"sps-bridge/transport"
)

// fakeTransport 是内存中的仪器链路替身。
// 规则：
// - replies 按 FIFO 供给 ReadLine，队列耗尽且带超时 -> 超时错误
// - inflight 在 Write 置位、ReadLine 清零，用于检测命令是否被并发插入
type fakeTransport struct {
	mu       sync.Mutex
	wrote    []string
	replies  []string
	writeErr error
	readErr  error

	inflight   bool
	interleave bool
}

var _ transport.Transport = (*fakeTransport)(nil)

func newFakeTransport(replies ...string) *fakeTransport {
	return &fakeTransport{replies: append([]string(nil), replies...)}
}

func (f *fakeTransport) Write(line string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.inflight {
		f.interleave = true
	}
	f.inflight = true
	f.wrote = append(f.wrote, line)
	return nil
}

func (f *fakeTransport) ReadLine(timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight = false
	if f.readErr != nil {
		return "", f.readErr
	}
	if len(f.replies) == 0 {
		if timeout > 0 {
			return "", errors.New(errors.CodeTransportTimeout, "read timeout")
		}
		return "", errors.New(errors.CodeTransportIO, "no reply queued")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeTransport) push(replies ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, replies...)
}

func (f *fakeTransport) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.wrote...)
}

func (f *fakeTransport) Kind() status.TransportKind { return status.TransportTCP }
func (f *fakeTransport) Describe() string           { return "fake: bench" }
func (f *fakeTransport) Close() error               { return nil }

// recordObserver 记录收到的测量值与连接事件。
type recordObserver struct {
	mu     sync.Mutex
	values map[string]float64
	peers  []string
}

func newRecordObserver() *recordObserver {
	return &recordObserver{values: map[string]float64{}}
}

func (o *recordObserver) OnValuesUpdated(field string, value float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values[field] = value
}

func (o *recordObserver) OnClientChange(peer string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.peers = append(o.peers, peer)
}

func (o *recordObserver) value(field string) (float64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	v, ok := o.values[field]
	return v, ok
}

func (o *recordObserver) peerEvents() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.peers...)
}

// fakeSink 记录收到的完整记录。
type fakeSink struct {
	mu       sync.Mutex
	records  []map[string]float64
	writeErr error
}

func (s *fakeSink) Ping(context.Context) error { return nil }

func (s *fakeSink) Write(_ context.Context, fields map[string]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	cp := make(map[string]float64, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	s.records = append(s.records, cp)
	return nil
}

func (s *fakeSink) Describe() string            { return "enabled (bench)" }
func (s *fakeSink) Close(context.Context) error { return nil }

func (s *fakeSink) all() []map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]float64(nil), s.records...)
}

// benchQueries 是六条标准测量查询，顺序与聚合字段一一对应。
var benchQueries = []string{
	"MEASure:VOLTage? CH1",
	"MEASure:CURRent? CH1",
	"MEASure:VOLTage? CH2",
	"MEASure:CURRent? CH2",
	"MEASure:VOLTage? CH3",
	"MEASure:CURRent? CH3",
}

// TestExecRelaysQueryReply 验证中转命令先转发应答再配对更新测量值。
func TestExecRelaysQueryReply(t *testing.T) {
	fake := newFakeTransport("12.340")
	obs := newRecordObserver()
	b := NewBridge(fake, time.Second, nil, obs)

	var forwarded []string
	err := b.Exec("MEASure:VOLTage? CH1", func(reply string) error {
		forwarded = append(forwarded, reply)
		return nil
	})
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if len(forwarded) != 1 || forwarded[0] != "12.340" {
		t.Fatalf("forwarded=%v", forwarded)
	}
	if got := fake.written(); len(got) != 1 || got[0] != "MEASure:VOLTage? CH1" {
		t.Fatalf("wrote=%v", got)
	}
	if v, ok := obs.value("ch1_v"); !ok || v != 12.34 {
		t.Fatalf("ch1_v=%v ok=%v", v, ok)
	}
	if b.Pending() != 0 {
		t.Fatalf("pending=%d", b.Pending())
	}
}

// TestExecNonQueryWritesOnly 验证非查询命令只写不读也不转发。
func TestExecNonQueryWritesOnly(t *testing.T) {
	fake := newFakeTransport()
	b := NewBridge(fake, time.Second, nil, nil)

	called := false
	err := b.Exec("OUTPut CH1,ON", func(string) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if called {
		t.Fatalf("unexpected forward")
	}
	if got := fake.written(); len(got) != 1 {
		t.Fatalf("wrote=%v", got)
	}
}

// TestExecEmptyReplyKeepsSlot 验证空应答不转发、槽位保留待下次配对。
func TestExecEmptyReplyKeepsSlot(t *testing.T) {
	fake := newFakeTransport("")
	b := NewBridge(fake, time.Second, nil, nil)

	called := false
	err := b.Exec("MEASure:VOLTage? CH1", func(string) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("exec: %v", err)
	}
	if called {
		t.Fatalf("unexpected forward")
	}
	if b.Pending() != 1 {
		t.Fatalf("pending=%d", b.Pending())
	}
}

// TestExecWriteFailureIsFatal 验证写入失败直接返回链路错误且不登记槽位。
func TestExecWriteFailureIsFatal(t *testing.T) {
	fake := newFakeTransport()
	fake.writeErr = errors.New(errors.CodeTransportIO, "device gone")
	b := NewBridge(fake, time.Second, nil, nil)

	err := b.Exec("MEASure:VOLTage? CH1", func(string) error { return nil })
	if errors.Code(err) != errors.CodeTransportIO {
		t.Fatalf("code=%d", errors.Code(err))
	}
	if b.Pending() != 0 {
		t.Fatalf("pending=%d", b.Pending())
	}
}

// TestExecForwardFailureKeepsSlot 验证转发失败返回 CodeClientClosed 且不消耗槽位。
func TestExecForwardFailureKeepsSlot(t *testing.T) {
	fake := newFakeTransport("12.340")
	obs := newRecordObserver()
	b := NewBridge(fake, time.Second, nil, obs)

	err := b.Exec("MEASure:VOLTage? CH1", func(string) error {
		return fmt.Errorf("client gone")
	})
	if errors.Code(err) != errors.CodeClientClosed {
		t.Fatalf("code=%d", errors.Code(err))
	}
	if b.Pending() != 1 {
		t.Fatalf("pending=%d", b.Pending())
	}
	if _, ok := obs.value("ch1_v"); ok {
		t.Fatalf("value updated before forward succeeded")
	}
}

// TestSendQueryAndNonQuery 验证手输命令的读回与配对。
func TestSendQueryAndNonQuery(t *testing.T) {
	fake := newFakeTransport("5.010")
	obs := newRecordObserver()
	b := NewBridge(fake, time.Second, nil, obs)

	resp, err := b.Send("OUTPut CH1,ON")
	if err != nil || resp != "" {
		t.Fatalf("resp=%q err=%v", resp, err)
	}
	resp, err = b.Send("MEASure:VOLTage? CH2")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp != "5.010" {
		t.Fatalf("resp=%q", resp)
	}
	if v, ok := obs.value("ch2_v"); !ok || v != 5.01 {
		t.Fatalf("ch2_v=%v ok=%v", v, ok)
	}
	if b.Pending() != 0 {
		t.Fatalf("pending=%d", b.Pending())
	}
}

// TestSendTimeoutKeepsSlot 验证手输查询超时后槽位保留，迟到应答仍按最老槽位配对。
func TestSendTimeoutKeepsSlot(t *testing.T) {
	fake := newFakeTransport()
	obs := newRecordObserver()
	b := NewBridge(fake, 50*time.Millisecond, nil, obs)

	_, err := b.Send("MEASure:VOLTage? CH1")
	if errors.Code(err) != errors.CodeTransportTimeout {
		t.Fatalf("code=%d", errors.Code(err))
	}
	if b.Pending() != 1 {
		t.Fatalf("pending=%d", b.Pending())
	}

	fake.push("12.500")
	resp, err := b.Send("MEASure:CURRent? CH1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp != "12.500" {
		t.Fatalf("resp=%q", resp)
	}
	if v, ok := obs.value("ch1_v"); !ok || v != 12.5 {
		t.Fatalf("ch1_v=%v ok=%v", v, ok)
	}
	if _, ok := obs.value("ch1_i"); ok {
		t.Fatalf("ch1_i resolved out of order")
	}
	if b.Pending() != 1 {
		t.Fatalf("pending=%d", b.Pending())
	}
}

// TestSendEmptyReplyConsumesSlot 验证手输查询读回空应答时同样配对出队，不残留槽位。
func TestSendEmptyReplyConsumesSlot(t *testing.T) {
	fake := newFakeTransport("")
	obs := newRecordObserver()
	b := NewBridge(fake, time.Second, nil, obs)

	resp, err := b.Send("MEASure:VOLTage? CH1")
	if err != nil || resp != "" {
		t.Fatalf("resp=%q err=%v", resp, err)
	}
	if b.Pending() != 0 {
		t.Fatalf("pending=%d", b.Pending())
	}
	if _, ok := obs.value("ch1_v"); ok {
		t.Fatalf("ch1_v recorded from empty reply")
	}

	fake.push("3.300")
	resp, err = b.Send("MEASure:CURRent? CH1")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp != "3.300" {
		t.Fatalf("resp=%q", resp)
	}
	if v, ok := obs.value("ch1_i"); !ok || v != 3.3 {
		t.Fatalf("ch1_i=%v ok=%v", v, ok)
	}
	if b.Pending() != 0 {
		t.Fatalf("pending=%d", b.Pending())
	}
}

// TestCompleteRecordWrittenToSink 验证六字段齐全后整条记录写入时序库。
func TestCompleteRecordWrittenToSink(t *testing.T) {
	fake := newFakeTransport("12.340", "1.500", "5.010", "0.250", "0.000", "0.000")
	sk := &fakeSink{}
	b := NewBridge(fake, time.Second, sk, nil)

	for _, q := range benchQueries {
		if err := b.Exec(q, func(string) error { return nil }); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	records := sk.all()
	if len(records) != 1 {
		t.Fatalf("records=%d", len(records))
	}
	want := map[string]float64{
		"ch1_v": 12.34, "ch1_i": 1.5,
		"ch2_v": 5.01, "ch2_i": 0.25,
		"ch3_v": 0, "ch3_i": 0,
	}
	for k, v := range want {
		if records[0][k] != v {
			t.Fatalf("%s=%v, want %v", k, records[0][k], v)
		}
	}
	if b.Records() != 1 {
		t.Fatalf("Records()=%d", b.Records())
	}
}

// TestSinkFailureDoesNotBreakRelay 验证时序库写入失败只记日志，中转继续。
func TestSinkFailureDoesNotBreakRelay(t *testing.T) {
	fake := newFakeTransport("12.340", "1.500", "5.010", "0.250", "0.000", "0.000")
	sk := &fakeSink{writeErr: errors.New(errors.CodeSinkWrite, "influxdb down")}
	b := NewBridge(fake, time.Second, sk, nil)

	for _, q := range benchQueries {
		if err := b.Exec(q, func(string) error { return nil }); err != nil {
			t.Fatalf("exec %q: %v", q, err)
		}
	}
	if b.Records() != 1 {
		t.Fatalf("Records()=%d", b.Records())
	}
	if len(sk.all()) != 0 {
		t.Fatalf("unexpected sink records")
	}
}

// TestGateSerializesCommands 验证并发来源的命令在链路上严格串行、互不插入。
func TestGateSerializesCommands(t *testing.T) {
	const perWorker = 50
	fake := newFakeTransport()
	for i := 0; i < 2*perWorker; i++ {
		fake.push("1.000")
	}
	b := NewBridge(fake, time.Second, nil, nil)

	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := b.Exec("MEASure:VOLTage? CH1", func(string) error { return nil }); err != nil {
					t.Errorf("exec: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	fake.mu.Lock()
	interleave := fake.interleave
	fake.mu.Unlock()
	if interleave {
		t.Fatalf("writes interleaved with pending reads")
	}
	if got := len(fake.written()); got != 2*perWorker {
		t.Fatalf("wrote=%d", got)
	}
	if b.Pending() != 0 {
		t.Fatalf("pending=%d", b.Pending())
	}
}

// TestBridgeDescribe 验证状态描述访问器。
func TestBridgeDescribe(t *testing.T) {
	fake := newFakeTransport()
	b := NewBridge(fake, time.Second, nil, nil)
	if b.TransportKind() != status.TransportTCP {
		t.Fatalf("kind=%s", b.TransportKind())
	}
	if b.TransportDescribe() != "fake: bench" {
		t.Fatalf("describe=%q", b.TransportDescribe())
	}
	if b.SinkDescribe() != "disabled" {
		t.Fatalf("sink=%q", b.SinkDescribe())
	}
	b2 := NewBridge(fake, time.Second, &fakeSink{}, nil)
	if b2.SinkDescribe() != "enabled (bench)" {
		t.Fatalf("sink=%q", b2.SinkDescribe())
	}
}
