package intent

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		want   Intent
		wantOK bool
	}{
		{"inline on", "好的 [DEVICE_CTL] room=客厅 action=on", Intent{Room: "客厅", TurnOn: true}, true},
		{"own line off", "好的，已关闭卧室灯。\n[DEVICE_CTL] room=卧室 action=off", Intent{Room: "卧室"}, true},
		{"lower case", "[device_ctl] room=all action=ON", Intent{Room: "all", TurnOn: true}, true},
		{"no space after tag", "[DEVICE_CTL]room=书房 action=off", Intent{Room: "书房"}, true},
		{"first match wins", "[DEVICE_CTL] room=a action=on\n[DEVICE_CTL] room=b action=off", Intent{Room: "a", TurnOn: true}, true},
		{"absent", "今天天气不错", Intent{}, false},
		{"bad action", "[DEVICE_CTL] room=客厅 action=toggle", Intent{}, false},
		{"empty", "", Intent{}, false},
	}
	x := NewMarkerExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := x.Parse(tt.reply)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStrip(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"inline", "好的 [DEVICE_CTL] room=客厅 action=on", "好的"},
		{"trailing line", "好的，已打开客厅灯。\n[DEVICE_CTL] room=客厅 action=on", "好的，已打开客厅灯。"},
		{"middle line", "第一句。\n\n[DEVICE_CTL] room=all action=off\n\n第二句。", "第一句。\n第二句。"},
		{"no marker", "  你好  ", "你好"},
		{"only marker", "[DEVICE_CTL] room=客厅 action=on", ""},
		{"text after marker kept", "[DEVICE_CTL] room=客厅 action=on 已为您打开", "已为您打开"},
		{"every marker", "[DEVICE_CTL] room=a action=on 中间 [device_ctl] room=b action=off", "中间"},
	}
	x := NewMarkerExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := x.Strip(tt.reply); got != tt.want {
				t.Errorf("Strip() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsAll(t *testing.T) {
	for _, room := range []string{"all", "ALL", "All"} {
		if !IsAll(room) {
			t.Errorf("IsAll(%q) = false", room)
		}
	}
	if IsAll("客厅") {
		t.Error("IsAll(客厅) = true")
	}
}
