package reader

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      Message
		withName bool
		want     string
	}{
		{
			name:     "plain text with name",
			msg:      Message{AuthorName: "alice", Content: "こんにちは"},
			withName: true,
			want:     "aliceさん、こんにちは",
		},
		{
			name:     "plain text without name",
			msg:      Message{AuthorName: "alice", Content: "こんにちは"},
			withName: false,
			want:     "こんにちは",
		},
		{
			name:     "link elided",
			msg:      Message{Content: "see https://example.com/x?y=1 here"},
			withName: false,
			want:     "see 、リンク省略、 here",
		},
		{
			name:     "channel reference elided",
			msg:      Message{Content: "go to <#123456>"},
			withName: false,
			want:     "go to 、チャンネル省略、",
		},
		{
			name:     "user mention elided",
			msg:      Message{Content: "hey <@987654>"},
			withName: false,
			want:     "hey 、メンション省略、",
		},
		{
			name:     "custom emoji elided",
			msg:      Message{Content: "nice <:party:112233>"},
			withName: false,
			want:     "nice 、絵文字省略、",
		},
		{
			name:     "animated emoji elided",
			msg:      Message{Content: "<a:spin:445566> wow"},
			withName: false,
			want:     "、絵文字省略、 wow",
		},
		{
			name:     "attachment marker appended",
			msg:      Message{AuthorName: "bob", Content: "photo", HasAttachment: true},
			withName: true,
			want:     "bobさん、photo、添付ファイル",
		},
		{
			name:     "attachment only",
			msg:      Message{Content: "", HasAttachment: true},
			withName: false,
			want:     "、添付ファイル",
		},
		{
			name:     "empty name adds no prefix",
			msg:      Message{AuthorName: "", Content: "x"},
			withName: true,
			want:     "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Normalize(tt.msg, nil, tt.withName)
			if got != tt.want {
				t.Errorf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeTruncation(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("あ", 150)
	got := Normalize(Message{Content: long}, nil, false)
	want := strings.Repeat("あ", 100) + "、長文省略"
	if got != want {
		t.Errorf("truncated text = %q, want %q", got, want)
	}

	// Exactly at the limit nothing is cut.
	exact := strings.Repeat("い", 100)
	if got := Normalize(Message{Content: exact}, nil, false); got != exact {
		t.Errorf("text at limit was modified: %q", got)
	}
}

func TestNormalizeDictionaryRunsFirst(t *testing.T) {
	t.Parallel()

	// A rule that expands text past the truncation limit proves the
	// dictionary is applied before truncation, and a rule producing a URL
	// proves elision runs after the dictionary.
	dict := NewDictionary()
	dict.Add("LINK", "https://example.com/page", false)

	got := Normalize(Message{Content: "open LINK now"}, dict, false)
	if got != "open 、リンク省略、 now" {
		t.Errorf("Normalize() = %q, want link marker", got)
	}

	dict2 := NewDictionary()
	dict2.Add("x", strings.Repeat("や", 200), false)
	got = Normalize(Message{Content: "x"}, dict2, false)
	if !strings.HasSuffix(got, markerTruncated) {
		t.Errorf("expanded text not truncated: %q", got)
	}
}

func TestNotices(t *testing.T) {
	t.Parallel()

	if got := JoinNotice("alice"); got != "aliceさんが入室しました。" {
		t.Errorf("JoinNotice() = %q", got)
	}
	if got := LeaveNotice("bob"); got != "bobさんが退出しました。" {
		t.Errorf("LeaveNotice() = %q", got)
	}
	if Greeting != "接続しました。" {
		t.Errorf("Greeting = %q", Greeting)
	}
}
