package measure

import "testing"

// TestTrackRecognizedQueries 验证六条查询模式的登记与非查询命令的忽略。
func TestTrackRecognizedQueries(t *testing.T) {
	tr := NewTracker()
	cases := []struct {
		cmd   string
		field string
	}{
		{"MEASURE:VOLTAGE? CH1", "ch1_v"},
		{"measure:current? ch1", "ch1_i"},
		{"  Measure:Voltage? CH2  ", "ch2_v"},
		{"MEASURE:CURRENT? CH2", "ch2_i"},
		{"measure:voltage? ch3", "ch3_v"},
		{"MEASURE:CURRENT? CH3\n", "ch3_i"},
	}
	for _, c := range cases {
		tr.Track(c.cmd)
	}
	if tr.Pending() != len(cases) {
		t.Fatalf("pending=%d", tr.Pending())
	}
	for _, c := range cases {
		field, v, ok := tr.Resolve("1.0")
		if !ok || field != c.field || v != 1.0 {
			t.Fatalf("cmd %q: field=%q v=%v ok=%v", c.cmd, field, v, ok)
		}
	}

	for _, cmd := range []string{
		"*IDN?",
		"MEASURE:VOLTAGE? CH4",
		"MEASURE:VOLTAGE?CH1",
		"OUTPUT CH1,ON",
		"",
	} {
		tr.Track(cmd)
	}
	if tr.Pending() != 0 {
		t.Fatalf("unrecognized command enqueued: pending=%d", tr.Pending())
	}
}

// TestResolvePairsInOrder 验证 FIFO 配对：第 i 条应答配第 i 条查询，与内容无关。
func TestResolvePairsInOrder(t *testing.T) {
	tr := NewTracker()
	tr.Track("MEASURE:VOLTAGE? CH1")
	tr.Track("MEASURE:CURRENT? CH1")
	tr.Track("MEASURE:VOLTAGE? CH2")

	want := []string{"ch1_v", "ch1_i", "ch2_v"}
	replies := []string{"99.9", "0.001", "12"}
	for i, r := range replies {
		field, _, ok := tr.Resolve(r)
		if !ok || field != want[i] {
			t.Fatalf("reply %d: field=%q ok=%v", i, field, ok)
		}
	}
	if tr.Pending() != 0 {
		t.Fatalf("pending=%d", tr.Pending())
	}
}

// TestResolveOnEmptyQueue 验证空队列时不消耗状态。
func TestResolveOnEmptyQueue(t *testing.T) {
	tr := NewTracker()
	if _, _, ok := tr.Resolve("3.14"); ok {
		t.Fatalf("expected no pairing on empty queue")
	}
	if tr.Pending() != 0 {
		t.Fatalf("pending=%d", tr.Pending())
	}
}

// TestResolveBadNumberConsumesSlot 验证非法数字仍弹出队首以保持顺序。
func TestResolveBadNumberConsumesSlot(t *testing.T) {
	tr := NewTracker()
	tr.Track("MEASURE:VOLTAGE? CH1")
	tr.Track("MEASURE:CURRENT? CH1")

	if _, _, ok := tr.Resolve("ERR -113"); ok {
		t.Fatalf("expected parse failure")
	}
	if tr.Pending() != 1 {
		t.Fatalf("pending=%d", tr.Pending())
	}
	field, v, ok := tr.Resolve("2.5")
	if !ok || field != "ch1_i" || v != 2.5 {
		t.Fatalf("field=%q v=%v ok=%v", field, v, ok)
	}
}
